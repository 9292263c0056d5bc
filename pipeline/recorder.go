package pipeline

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"time"

	"gocv.io/x/gocv"

	"github.com/khaledhikmat/dd-go/model"
	"github.com/khaledhikmat/dd-go/service/lgr"
)

// EvidenceRecorder chunks each session into short MP4 clips and archives
// them so an alarm can be reviewed with the footage around it. The clips
// service resolves chunks by the start timestamp embedded in the file name.
//
// WARNING:
// GoCV produces uncompressed frames, which might generate large MP4 files.
// Keep clip durations short.
func EvidenceRecorder(canx context.Context, svcs ServicesFactory, camera model.Camera, errorStream chan interface{}, statsStream chan interface{}, _ chan AlertData, _ chan MonitorData) chan FrameData {
	in := make(chan FrameData, 100)

	go func() {
		defer close(in)

		var buffer []FrameData
		var recordingTime = time.Now()

		lgr.Logger.Info(
			"evidence recorder initialized...",
			slog.String("camera", camera.Name),
			slog.Int("clipDuration", svcs.CfgSvc.GetRecorderStreamerClipDuration()),
		)

		flush := func(clonedBuffer []FrameData) {
			defer func() {
				for _, f := range clonedBuffer {
					f.Mat.Close()
				}
				if r := recover(); r != nil {
					lgr.Logger.Error(
						"evidence recorder flush panic recovered",
						slog.Any("panic", r),
					)
				}
			}()

			if len(clonedBuffer) == 0 {
				return
			}

			fn, err := saveClip(svcs, camera, clonedBuffer)
			if err != nil {
				errorStream <- model.GenError("agent_evidence_recorder",
					err,
					map[string]interface{}{},
					"error saving evidence clip")
				return
			}

			if _, err := svcs.StorageSvc.StoreFile(fn); err != nil {
				errorStream <- model.GenError("agent_evidence_recorder",
					err,
					map[string]interface{}{},
					"error archiving evidence clip %s",
					fn)
			}
		}

		proc := func(frame FrameData) bool {
			buffer = append(buffer, frame)

			if time.Since(recordingTime) >= time.Duration(svcs.CfgSvc.GetRecorderStreamerClipDuration())*time.Second {
				clonedBuffer := make([]FrameData, len(buffer))
				for i, f := range buffer {
					clonedBuffer[i] = FrameData{
						Mat:       f.Mat.Clone(),
						Timestamp: f.Timestamp,
					}
				}

				// Close original frames immediately (not deferred)
				for _, f := range buffer {
					f.Mat.Close()
				}

				buffer = make([]FrameData, 0, len(buffer))

				// Flush in the background; capture never waits on disk
				go flush(clonedBuffer)
				return true
			}
			return false
		}

		frames := 0
		beginTime := time.Now().Unix()
		errors := 0
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
				Name:        "evidenceRecorder",
				Worker:      -1,
				Camera:      camera.Name,
				Frames:      frames,
				Errors:      errors,
				Uptime:      uptime,
				FPS:         fps,
				AvgProcTime: avgProcTime,
			}
		}()

		defer func() {
			// Final flush on shutdown
			if len(buffer) > 0 {
				clonedBuffer := make([]FrameData, len(buffer))
				for i, f := range buffer {
					clonedBuffer[i] = FrameData{
						Mat:       f.Mat.Clone(),
						Timestamp: f.Timestamp,
					}
					f.Mat.Close()
				}
				go flush(clonedBuffer)
			}
		}()

		for f := range in {
			select {
			case <-canx.Done():
				lgr.Logger.Info("evidence recorder context cancelled")
				time.Sleep(waitBeforeCancel)
				return
			default:
				startProc := time.Now()
				if proc(f) {
					recordingTime = time.Now()
				}
				frames++
				totalProcTime += time.Since(startProc)
			}
		}
	}()

	return in
}

func saveClip(svcs ServicesFactory, camera model.Camera, frames []FrameData) (string, error) {
	if len(frames) == 0 {
		return "", fmt.Errorf("no frames to save")
	}

	first := frames[0].Mat
	if first.Empty() || first.Cols() <= 0 || first.Rows() <= 0 {
		return "", fmt.Errorf("invalid first frame: cols=%d, rows=%d", first.Cols(), first.Rows())
	}

	// The clips service depends on this naming scheme
	filename := fmt.Sprintf("%s/%s_clip_%d.mp4", svcs.CfgSvc.GetRecordingsFolder(), camera.ID, frames[0].Timestamp.Unix())

	lgr.Logger.Debug(
		"evidence recorder saving clip",
		slog.String("camera", camera.Name),
		slog.Int("frames", len(frames)),
		slog.String("filename", filename),
	)

	writer, err := gocv.VideoWriterFile(filename, "avc1", 30, first.Cols(), first.Rows(), true)
	if err != nil {
		return "", err
	}
	defer writer.Close()

	for _, f := range frames {
		if f.Mat.Cols() != first.Cols() || f.Mat.Rows() != first.Rows() {
			// Resize the frame to match the clip dimensions
			resized := gocv.NewMat()
			gocv.Resize(f.Mat, &resized, image.Pt(first.Cols(), first.Rows()), 0, 0, gocv.InterpolationLinear)
			err = writer.Write(resized)
			resized.Close()
		} else {
			err = writer.Write(f.Mat)
		}
		if err != nil {
			return "", err
		}
	}

	return filename, nil
}
