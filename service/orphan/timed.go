package orphan

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/xerrors"

	"github.com/khaledhikmat/dd-go/model"
	"github.com/khaledhikmat/dd-go/service/config"
	"github.com/khaledhikmat/dd-go/service/data"
	"github.com/khaledhikmat/dd-go/service/lgr"
)

type timedService struct {
	CanxCtx       context.Context
	SubsCtx       context.Context
	SubsCancel    context.CancelFunc
	CameraChannel chan []model.Camera
	CfgSvc        config.IService
	DataSvc       data.IService
	Cameras       []model.Camera
}

// NewTimed delivers one orphaned camera on the subscribed channel every few
// seconds. Useful for dev pods where no agents monitor is running.
func NewTimed(canxCtx context.Context, cfgSvc config.IService, dataSvc data.IService) (IService, error) {
	cameras, err := dataSvc.RetrieveCameras()
	if err != nil {
		return nil, xerrors.Errorf("retrieving cameras: %w", err)
	}

	return &timedService{
		CfgSvc:  cfgSvc,
		DataSvc: dataSvc,
		CanxCtx: canxCtx,
		Cameras: cameras,
	}, nil
}

func (svc *timedService) Publish(_ []model.Camera) error {
	// This cannot be implemented in this service
	return nil
}

func (svc *timedService) Subscribe() (<-chan []model.Camera, error) {
	if svc.SubsCtx != nil {
		lgr.Logger.Error(
			"orphan timed service. Already subscribed to cameras. Unsubscribe first",
			slog.Any("Subs Context", svc.SubsCtx),
		)
		return nil, xerrors.New("orphan timed service. child context is not nil. Unsubscribe first")
	}

	// Create a channel to send orphaned cameras that need agents
	// This is created the first time we subscribe
	// Regardless of how many times we subscribe/unsubscribe, we will always
	// have only one channel to send the cameras to the agent manager
	if svc.CameraChannel == nil {
		svc.CameraChannel = make(chan []model.Camera)
	}

	// Create a child context for the subscription
	// This context will be used to cancel the subscription
	subsContext, subsCancel := context.WithCancel(svc.CanxCtx)
	svc.SubsCtx = subsContext
	svc.SubsCancel = subsCancel

	go func() {
		defer svc.cleanup()

		cameraIndex := 0

		for {
			select {
			case <-svc.CanxCtx.Done():
				lgr.Logger.Info(
					"orphan timed service context cancelled",
				)
				return
			case <-svc.SubsCtx.Done():
				lgr.Logger.Info(
					"orphan timed service subscription cancelled",
				)
				return
			case <-time.After(time.Duration(5 * time.Second)):
				if len(svc.Cameras) == 0 {
					continue
				}
				if cameraIndex >= len(svc.Cameras) {
					cameraIndex = 0
				}

				svc.CameraChannel <- []model.Camera{svc.Cameras[cameraIndex]}
				cameraIndex++
			}
		}
	}()

	return svc.CameraChannel, nil
}

func (svc *timedService) Unsubscribe() error {
	if svc.SubsCtx == nil {
		return xerrors.New("not subscribed yet. Subscribe first")
	}

	svc.cleanup()
	return nil
}

func (svc *timedService) Finalize() {
	if svc.CameraChannel != nil {
		close(svc.CameraChannel)
		svc.CameraChannel = nil
	}
}

func (svc *timedService) cleanup() {
	if svc.SubsCancel != nil {
		svc.SubsCancel()
		svc.SubsCtx = nil
		svc.SubsCancel = nil
	}
}
