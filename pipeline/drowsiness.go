package pipeline

import (
	"context"
	"image"
	"image/color"
	"log/slog"
	"strconv"
	"time"

	"gocv.io/x/gocv"

	"github.com/khaledhikmat/dd-go/fatigue"
	"github.com/khaledhikmat/dd-go/model"
	"github.com/khaledhikmat/dd-go/service/lgr"
	"github.com/khaledhikmat/dd-go/service/regions"
)

var (
	hudFaceColor  = color.RGBA{R: 100, G: 100, B: 100, A: 0}
	hudEyeColor   = color.RGBA{G: 255, A: 0}
	hudAwakeColor = color.RGBA{G: 255, A: 0}
	hudAlertColor = color.RGBA{R: 255, A: 0}
	hudTextColor  = color.RGBA{R: 255, G: 255, B: 255, A: 0}
	hudBarColor   = color.RGBA{A: 0}
)

// DrowsinessDetector evaluates one camera's frames against the fatigue
// machine: region selection, scoring, alarm dispatch, HUD overlay, alert and
// monitor publication.
//
// WARNING: unlike other streamers, this one runs exactly one worker. The
// fatigue machine is owned by a single loop and the closed-eye debounce is
// calibrated in consecutive frames, so frames must be evaluated in order.
func DrowsinessDetector(canx context.Context, svcs ServicesFactory, camera model.Camera, errorStream chan interface{}, statsStream chan interface{}, alertStream chan AlertData, monitorStream chan MonitorData) chan FrameData {
	in := make(chan FrameData, 100)

	go func() {
		defer close(in)

		lgr.Logger.Info(
			"drowsiness detector starting...",
			slog.String("camera", camera.Name),
			slog.String("driver", camera.DriverName),
			slog.Int("sleepThreshold", svcs.CfgSvc.GetSleepThreshold()),
			slog.String("openCV", gocv.Version()),
		)

		regionsSvc, err := svcs.RegionsFactory(camera)
		if err != nil {
			errorStream <- model.GenError("agent_drowsiness_detector",
				err,
				map[string]interface{}{},
				"error creating region selector for camera %s", camera.Name)
			return
		}
		defer regionsSvc.Finalize()

		alarmSvc := svcs.AlarmFactory(camera)
		defer alarmSvc.Finalize()

		sess, err := newSession(camera, svcs.CfgSvc.GetSleepThreshold(), alarmSvc)
		if err != nil {
			errorStream <- model.GenError("agent_drowsiness_detector",
				err,
				map[string]interface{}{},
				"error creating fatigue session for camera %s", camera.Name)
			return
		}

		frames := 0
		alarms := 0
		errors := 0

		proc := func(frame FrameData) {
			defer frame.Mat.Close()

			result, err := regionsSvc.Detect(frame.Mat)
			if err != nil {
				errors++
				errorStream <- model.GenError("agent_drowsiness_detector",
					err,
					map[string]interface{}{},
					"error detecting regions for camera %s", camera.Name)
				return
			}

			outcome, err := sess.step(result.Sample, frame.Timestamp)
			if err != nil {
				errors++
				errorStream <- model.GenError("agent_drowsiness_detector",
					err,
					map[string]interface{}{},
					"error stepping fatigue session for camera %s", camera.Name)
				return
			}

			overlay(&frame.Mat, result, outcome.Decision)

			if outcome.Opened != nil {
				alarms++
				select {
				case alertStream <- AlertData{
					Mat:       frame.Mat.Clone(),
					Camera:    camera,
					EventID:   outcome.Opened.ID,
					Status:    string(outcome.Decision.Status),
					Score:     outcome.Decision.Score,
					Timestamp: frame.Timestamp,
				}:
				default:
					lgr.Logger.Warn("alertStream full, dropping alert")
				}
			}

			if outcome.ClearedEventID != "" {
				select {
				case alertStream <- AlertData{
					Camera:    camera,
					EventID:   outcome.ClearedEventID,
					Status:    string(outcome.Decision.Status),
					Score:     outcome.Decision.Score,
					Cleared:   true,
					Timestamp: frame.Timestamp,
				}:
				default:
					lgr.Logger.Warn("alertStream full, dropping alert clearance")
				}
			}

			// Publish the annotated frame; a slow dashboard never blocks
			// the scoring loop.
			select {
			case monitorStream <- MonitorData{
				Mat:         frame.Mat.Clone(),
				Camera:      camera,
				Status:      outcome.Decision.Status,
				Score:       outcome.Decision.Score,
				AlarmActive: sess.machine.AlarmActive(),
				Timestamp:   frame.Timestamp,
			}:
			default:
			}
		}

		go func(in chan FrameData) {
			beginTime := time.Now().Unix()
			var totalProcTime time.Duration

			defer func() {
				uptime := time.Now().Unix() - beginTime
				fps := 0
				if uptime > 0 {
					fps = int(float64(frames) / float64(uptime))
				}
				var avgProcTime float64
				if frames > 0 {
					avgProcTime = totalProcTime.Seconds() / float64(frames)
				}
				statsStream <- model.StreamerStats{
					Name:        "drowsinessDetector",
					Worker:      0,
					Camera:      camera.Name,
					Frames:      frames,
					Errors:      errors,
					Alarms:      alarms,
					Uptime:      uptime,
					FPS:         fps,
					AvgProcTime: avgProcTime,
				}
			}()

			for f := range in {
				select {
				case <-canx.Done():
					lgr.Logger.Info(
						"drowsiness detector worker context cancelled",
						slog.String("camera", camera.Name),
					)
					return
				default:
					startProc := time.Now()
					proc(f)
					frames++
					totalProcTime += time.Since(startProc)
				}
			}
		}(in)

		// Wait until cancelled
		<-canx.Done()
		// Give some time to the framer to recognize the context is cancelled
		time.Sleep(waitBeforeCancel)
		lgr.Logger.Info(
			"drowsiness detector context cancelled",
		)
	}()

	return in
}

// overlay draws the dashboard HUD on the frame: face/eye boxes, a status bar
// and the WAKE UP banner while alerting.
func overlay(img *gocv.Mat, result regions.Result, decision fatigue.Decision) {
	statusColor := hudAwakeColor
	if decision.Status == fatigue.StatusAlert {
		statusColor = hudAlertColor
	}

	if result.Sample.FaceFound {
		gocv.Rectangle(img, result.Face, hudFaceColor, 2)

		// Eye rects are relative to the face region
		for _, eye := range result.Eyes {
			gocv.Rectangle(img, eye.Add(result.Face.Min), hudEyeColor, 2)
		}

		if decision.Status == fatigue.StatusAlert {
			gocv.PutText(img, "WAKE UP!",
				image.Pt(result.Face.Min.X, result.Face.Min.Y-10),
				gocv.FontHersheySimplex, 1, hudAlertColor, 3)
		}
	}

	// Dark bar behind the text for readability
	gocv.Rectangle(img, image.Rect(0, 0, 300, 80), hudBarColor, -1)
	gocv.PutText(img, "Status: "+string(decision.Status),
		image.Pt(10, 30), gocv.FontHersheySimplex, 0.7, statusColor, 2)
	gocv.PutText(img, "Fatigue Score: "+strconv.Itoa(decision.Score),
		image.Pt(10, 60), gocv.FontHersheySimplex, 0.7, hudTextColor, 2)
}
