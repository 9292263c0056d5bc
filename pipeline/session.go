package pipeline

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/natefinch/lumberjack"

	"github.com/khaledhikmat/dd-go/fatigue"
	"github.com/khaledhikmat/dd-go/model"
	"github.com/khaledhikmat/dd-go/service/alarm"
	"github.com/khaledhikmat/dd-go/service/lgr"
)

// Rotating audit trail of latch transitions, kept separate from the main log
// so fleet reviews can replay alarms without grepping.
var alarmAuditLogger = &lumberjack.Logger{
	Filename:   "alarms.log",
	MaxSize:    10, // MB
	MaxBackups: 5,
	MaxAge:     30,   // days
	Compress:   true, // compress old logs
}

// session ties one camera's fatigue machine to its alarm driver and tracks
// the currently open alarm event. Owned by exactly one worker.
type session struct {
	camera      model.Camera
	machine     *fatigue.Machine
	alarmSvc    alarm.IService
	openEventID string
}

// stepOutcome is what one frame produced beyond the raw decision.
type stepOutcome struct {
	Decision fatigue.Decision
	// Opened is non-nil when the alarm fired on this frame.
	Opened *model.AlarmEvent
	// ClearedEventID is non-empty when an eyes-open frame silenced the
	// alarm on this frame.
	ClearedEventID string
	ClearedAt      int64
}

func newSession(camera model.Camera, sleepThreshold int, alarmSvc alarm.IService) (*session, error) {
	machine, err := fatigue.NewMachine(fatigue.Config{SleepThreshold: sleepThreshold})
	if err != nil {
		return nil, err
	}

	return &session{
		camera:   camera,
		machine:  machine,
		alarmSvc: alarmSvc,
	}, nil
}

func (s *session) step(sample fatigue.Sample, now time.Time) (stepOutcome, error) {
	decision, err := s.machine.Step(sample)
	if err != nil {
		return stepOutcome{}, err
	}

	outcome := stepOutcome{Decision: decision}

	switch decision.Command {
	case fatigue.CommandStartLoop:
		// The session keeps scoring even if the driver is unavailable;
		// whether the command is acted upon is the driver's concern.
		if err := s.alarmSvc.StartLooping(); err != nil {
			lgr.Logger.Error(
				"error starting alarm loop",
				slog.String("camera", s.camera.Name),
				slog.Any("error", err),
			)
		}

		event := &model.AlarmEvent{
			ID:        uuid.NewString(),
			CameraID:  s.camera.ID,
			Camera:    s.camera.Name,
			Score:     decision.Score,
			Status:    string(decision.Status),
			StartedAt: now.Unix(),
		}
		s.openEventID = event.ID
		outcome.Opened = event
		s.audit("alarm-started", event.ID, decision.Score, now)

	case fatigue.CommandStop:
		if err := s.alarmSvc.Stop(); err != nil {
			lgr.Logger.Error(
				"error stopping alarm loop",
				slog.String("camera", s.camera.Name),
				slog.Any("error", err),
			)
		}

		outcome.ClearedEventID = s.openEventID
		outcome.ClearedAt = now.Unix()
		s.audit("alarm-cleared", s.openEventID, decision.Score, now)
		s.openEventID = ""
	}

	return outcome, nil
}

func (s *session) audit(transition, eventID string, score int, now time.Time) {
	entry := map[string]interface{}{
		"time":       now.Format(time.RFC3339),
		"camera":     s.camera.Name,
		"cameraId":   s.camera.ID,
		"transition": transition,
		"eventId":    eventID,
		"score":      score,
	}

	jsonData, err := json.Marshal(entry)
	if err != nil {
		fmt.Println("Error marshaling alarm audit entry:", err)
		return
	}

	if _, err := alarmAuditLogger.Write(append(jsonData, '\n')); err != nil {
		fmt.Println("Error writing to alarm audit log:", err)
	}
}
