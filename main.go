package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/xerrors"

	"github.com/khaledhikmat/dd-go/fatigue"
	"github.com/khaledhikmat/dd-go/mode"
	"github.com/khaledhikmat/dd-go/model"
	"github.com/khaledhikmat/dd-go/pipeline"
	"github.com/khaledhikmat/dd-go/service/alarm"
	"github.com/khaledhikmat/dd-go/service/clips"
	"github.com/khaledhikmat/dd-go/service/config"
	"github.com/khaledhikmat/dd-go/service/data"
	"github.com/khaledhikmat/dd-go/service/inference"
	"github.com/khaledhikmat/dd-go/service/lgr"
	"github.com/khaledhikmat/dd-go/service/orphan"
	"github.com/khaledhikmat/dd-go/service/regions"
	"github.com/khaledhikmat/dd-go/service/storage"
	"github.com/khaledhikmat/dd-go/service/webhook"
)

const (
	// WARNING: this has to be bigger that the mode processor shutdown time
	waitOnShutdown = 8 * time.Second
)

var modeProcessors = map[string]mode.Processor{
	"manager": mode.Manager,
	"monitor": mode.Monitor,
}

func main() {
	rootCtx := context.Background()
	canxCtx, canxFn := context.WithCancel(rootCtx)

	// Hook up a signal handler to cancel the context
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		lgr.Logger.Info(
			"received kill signal",
			slog.Any("signal", sig),
		)
		canxFn()
	}()

	// Load env vars if we are in DEV mode
	if os.Getenv("RUN_TIME_ENV") == "dev" || os.Getenv("RUN_TIME_ENV") == "" {
		lgr.Logger.Info("loading env vars from .env file")
		err := godotenv.Load()
		if err != nil {
			lgr.Logger.Error("error loading .env file", slog.Any("error", xerrors.New(err.Error())))
			panic("error loading .env file")
		}
	}

	modeType := "manager"
	args := os.Args[1:]
	if len(args) > 0 {
		modeType = args[0]
	}

	modeProc, ok := modeProcessors[modeType]
	if !ok {
		lgr.Logger.Error("invalid mode", slog.String("mode", modeType))
		panic("invalid mode")
	}

	// Create the services needed for the mode processor
	// They can be overridden by the mode processor with different implementations
	// Config service
	cfgSvc := config.NewEnvVars()
	// Data service
	dataSvc, err := newDataService(cfgSvc)
	if err != nil {
		lgr.Logger.Error("error creating data service", slog.Any("error", err))
		panic("error creating data service")
	}
	// Orphan service
	orphanSvc, err := orphan.NewTimed(canxCtx, cfgSvc, dataSvc)
	if err != nil {
		lgr.Logger.Error("error creating orphan service", slog.Any("error", err))
		panic("error creating orphan service")
	}
	// Storage service
	storageSvc := storage.NewLocal(cfgSvc)
	// Clips service
	clipsSvc := clips.NewLocal(cfgSvc)
	// Inference service
	inferenceSvc := inference.NewFake()
	// Webhook service
	webhookSvc := webhook.NewHTTP(cfgSvc)

	svcs := pipeline.ServicesFactory{
		CfgSvc:       cfgSvc,
		DataSvc:      dataSvc,
		OrphanSvc:    orphanSvc,
		StorageSvc:   storageSvc,
		ClipsSvc:     clipsSvc,
		InferenceSvc: inferenceSvc,
		WebhookSvc:   webhookSvc,
		// Each agent gets its own detector and alarm driver
		RegionsFactory: func(camera model.Camera) (regions.IService, error) {
			// Synthetic framers carry no faces; replay a canned drowsiness
			// scenario so bench pods exercise the whole pipeline
			if camera.FramerType == "random" {
				return regions.NewScripted(benchScenario()), nil
			}
			return regions.NewHaar(cfgSvc)
		},
		AlarmFactory: func(camera model.Camera) alarm.IService {
			return alarm.NewConsole(camera.Name)
		},
	}

	defer dataSvc.Finalize()
	defer orphanSvc.Finalize()

	// Create mode processor result
	modeProcResult := make(chan error)
	defer close(modeProcResult)

	// Decide on streamers
	streamers := []pipeline.Streamer{
		pipeline.DrowsinessDetector,
		pipeline.EvidenceRecorder,
	}

	// Start the mode processor with the library alerter and broadcaster
	go func() {
		modeProcResult <- modeProc(canxCtx, svcs, streamers, pipeline.SimpleAlerter, pipeline.MJPEGBroadcaster)
	}()

	// Wait for cancellation, mode proc, stats or error
	for {
		select {
		case <-canxCtx.Done():
			lgr.Logger.Info(
				"agents pod context cancelled",
			)
			goto resume

		case err := <-modeProcResult:
			if err != nil {
				lgr.Logger.Info(
					"agents pod mode processor exited",
					slog.Any("error", xerrors.New(err.Error())),
				)
			}
			goto resume
		}
	}

	// Wait in a non-blocking way for `waitOnShutdown` for all the go routines to exit
	// This is needed because the go routines may need to report errors as they are existing
resume:
	// Cancel the context if not already cancelled
	if canxCtx.Err() == nil {
		// Force cancel the context
		canxFn()
	}

	lgr.Logger.Info(
		"agents pod is waiting for all go routines to exit",
	)

	// The only way to exit the main function is to wait for the shutdown
	// duration
	timer := time.NewTimer(waitOnShutdown)
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			// Timer expired, proceed with shutdown
			lgr.Logger.Info(
				"agents pod shutdown waiting period expired. Exiting now",
				slog.Duration("period", waitOnShutdown),
			)

			return

		case err := <-modeProcResult:
			if err != nil {
				lgr.Logger.Info(
					"agents pod mode processor exited",
					slog.Any("error", xerrors.New(err.Error())),
				)
			}
		}
	}
}

// benchScenario is the replayed sample script for synthetic cameras: the
// driver nods off long enough to trip the alarm, then wakes up.
func benchScenario() []fatigue.Sample {
	samples := make([]fatigue.Sample, 0, 40)
	for i := 0; i < 10; i++ {
		samples = append(samples, fatigue.Sample{FaceFound: true, EyesFound: 2})
	}
	for i := 0; i < 20; i++ {
		samples = append(samples, fatigue.Sample{FaceFound: true, EyesFound: 0})
	}
	for i := 0; i < 10; i++ {
		samples = append(samples, fatigue.Sample{FaceFound: true, EyesFound: 2})
	}
	return samples
}

func newDataService(cfgSvc config.IService) (data.IService, error) {
	switch cfgSvc.GetDataSvcType() {
	case "sqlite":
		return data.NewSqlite(cfgSvc)
	default:
		return data.NewFilesDB(cfgSvc), nil
	}
}
