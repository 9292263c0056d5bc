package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gocv.io/x/gocv"

	"github.com/khaledhikmat/dd-go/model"
	"github.com/khaledhikmat/dd-go/service/lgr"
)

// SimpleAlerter persists alarm events and delivers them to the dispatch
// webhook. Streamers publish on the returned channel; delivery never blocks
// the scoring loops.
func SimpleAlerter(canx context.Context, svcs ServicesFactory, errorStream chan interface{}, statsStream chan interface{}) chan AlertData {
	in := make(chan AlertData, 100)

	go func() {
		defer close(in)

		var alerterStartTime = time.Now().Unix()
		alerterStats := model.AlerterStats{
			Name: "simpleAlerter",
		}

		flush := func() {
			alerterStats.Uptime = time.Now().Unix() - alerterStartTime
			statsStream <- alerterStats
		}
		defer flush()

		for {
			select {
			case <-canx.Done():
				lgr.Logger.Info(
					"alerter context cancelled",
				)
				return

			case <-time.After(time.Duration(time.Duration(svcs.CfgSvc.GetAgentAlerterWebhookRetry()) * time.Second)):
				// TODO: Retry webhooks if failures

			case alert := <-in:
				if alert.Cleared {
					procClearance(svcs, alert, &alerterStats)
					continue
				}

				procAlert(svcs, alert, &alerterStats)
			}
		}
	}()

	return in
}

func procAlert(svcs ServicesFactory, alert AlertData, stats *model.AlerterStats) {
	defer alert.Mat.Close()

	stats.Alerts++

	lgr.Logger.Info(
		"drowsiness alarm fired",
		slog.String("camera", alert.Camera.Name),
		slog.String("eventID", alert.EventID),
		slog.Int("score", alert.Score),
		slog.Time("timestamp", alert.Timestamp),
	)

	// Store the alerted frame as an image and archive it
	snapshotURL := ""
	snapshot := fmt.Sprintf("%s/%s_alerted_frame_%d.jpg", svcs.CfgSvc.GetRecordingsFolder(), alert.Camera.ID, alert.Timestamp.Unix())
	if !alert.Mat.Empty() && gocv.IMWrite(snapshot, alert.Mat) {
		url, err := svcs.StorageSvc.StoreFile(snapshot)
		if err != nil {
			stats.Errors++
			lgr.Logger.Error(
				"error archiving alert snapshot",
				slog.String("snapshot", snapshot),
				slog.Any("error", err),
			)
		} else {
			snapshotURL = url
		}
	}

	// Secondary confirmation pass; the alarm stands either way
	confirmation, err := svcs.InferenceSvc.Invoke("drowsiness-confirm", snapshotURL)
	if err != nil {
		stats.Errors++
		lgr.Logger.Error(
			"error invoking confirmation inference",
			slog.Any("error", err),
		)
	}

	// Attach the evidence clip covering the alarm window, if one exists
	clipURL := ""
	clip, err := svcs.ClipsSvc.RetrieveClip(alert.Camera.ID, alert.Timestamp.Unix()-60, alert.Timestamp.Unix())
	if err == nil {
		clipURL = clip
	}

	event := model.AlarmEvent{
		ID:          alert.EventID,
		CameraID:    alert.Camera.ID,
		Camera:      alert.Camera.Name,
		Score:       alert.Score,
		Status:      alert.Status,
		SnapshotURL: snapshotURL,
		StartedAt:   alert.Timestamp.Unix(),
	}
	if err := svcs.DataSvc.NewAlarmEvent(event); err != nil {
		stats.Errors++
		lgr.Logger.Error(
			"error persisting alarm event",
			slog.String("eventID", alert.EventID),
			slog.Any("error", err),
		)
	}

	payload := map[string]interface{}{
		"eventId":       alert.EventID,
		"source":        alert.Camera.Name,
		"driver":        alert.Camera.DriverName,
		"status":        alert.Status,
		"score":         alert.Score,
		"confirmed":     confirmation.Confirmed,
		"alertImageURL": snapshotURL,
		"alertVideoURL": clipURL,
		"timestamp":     alert.Timestamp.Format(time.RFC3339),
	}
	if err := svcs.WebhookSvc.Post(payload); err != nil {
		stats.Errors++
		lgr.Logger.Error(
			"error posting alarm webhook",
			slog.String("eventID", alert.EventID),
			slog.Any("error", err),
		)
	}
}

func procClearance(svcs ServicesFactory, alert AlertData, stats *model.AlerterStats) {
	lgr.Logger.Info(
		"drowsiness alarm cleared",
		slog.String("camera", alert.Camera.Name),
		slog.String("eventID", alert.EventID),
		slog.Int("score", alert.Score),
	)

	if err := svcs.DataSvc.UpdateAlarmEventCleared(alert.EventID, alert.Timestamp.Unix()); err != nil {
		stats.Errors++
		lgr.Logger.Error(
			"error clearing alarm event",
			slog.String("eventID", alert.EventID),
			slog.Any("error", err),
		)
	}

	payload := map[string]interface{}{
		"eventId":   alert.EventID,
		"source":    alert.Camera.Name,
		"driver":    alert.Camera.DriverName,
		"status":    alert.Status,
		"score":     alert.Score,
		"cleared":   true,
		"timestamp": alert.Timestamp.Format(time.RFC3339),
	}
	if err := svcs.WebhookSvc.Post(payload); err != nil {
		stats.Errors++
		lgr.Logger.Error(
			"error posting alarm clearance webhook",
			slog.String("eventID", alert.EventID),
			slog.Any("error", err),
		)
	}
}
