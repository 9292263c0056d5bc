package pipeline

import (
	"testing"
	"time"

	"github.com/khaledhikmat/dd-go/fatigue"
	"github.com/khaledhikmat/dd-go/model"
	"github.com/khaledhikmat/dd-go/service/alarm"
)

func stepN(t *testing.T, s *session, sample fatigue.Sample, n int) stepOutcome {
	t.Helper()
	var outcome stepOutcome
	var err error
	for i := 0; i < n; i++ {
		outcome, err = s.step(sample, time.Unix(1000+int64(i), 0))
		if err != nil {
			t.Fatalf("step() error = %v", err)
		}
	}
	return outcome
}

func TestSessionAlarmLifecycle(t *testing.T) {
	alarmSvc := alarm.NewFake()
	sess, err := newSession(model.Camera{ID: "cam-1", Name: "truck 1 cabin"}, 3, alarmSvc)
	if err != nil {
		t.Fatalf("newSession() error = %v", err)
	}

	closedSample := fatigue.Sample{FaceFound: true, EyesFound: 0}
	openSample := fatigue.Sample{FaceFound: true, EyesFound: 2}

	// Three closed frames: at the threshold, nothing fires.
	outcome := stepN(t, sess, closedSample, 3)
	if outcome.Opened != nil {
		t.Fatal("alarm fired at the threshold; it must only fire above it")
	}
	if alarmSvc.Starts != 0 {
		t.Fatalf("driver started %d times, want 0", alarmSvc.Starts)
	}

	// Fourth closed frame crosses the threshold.
	outcome = stepN(t, sess, closedSample, 1)
	if outcome.Opened == nil {
		t.Fatal("alarm did not fire above the threshold")
	}
	if outcome.Opened.ID == "" {
		t.Error("opened event must carry an id")
	}
	if outcome.Opened.Score != 4 {
		t.Errorf("opened event score = %d, want 4", outcome.Opened.Score)
	}
	if alarmSvc.Starts != 1 {
		t.Errorf("driver started %d times, want 1", alarmSvc.Starts)
	}
	if !alarmSvc.Ringing() {
		t.Error("driver should be ringing")
	}

	// More closed frames never re-dispatch the start command.
	outcome = stepN(t, sess, closedSample, 5)
	if outcome.Opened != nil {
		t.Error("alarm re-fired while latch active")
	}
	if alarmSvc.Starts != 1 {
		t.Errorf("driver started %d times, want 1", alarmSvc.Starts)
	}

	openedID := sess.openEventID

	// One open-eye frame clears the alarm and closes the event.
	outcome = stepN(t, sess, openSample, 1)
	if outcome.ClearedEventID != openedID {
		t.Errorf("cleared event id = %q, want %q", outcome.ClearedEventID, openedID)
	}
	if outcome.ClearedAt == 0 {
		t.Error("cleared outcome must carry a timestamp")
	}
	if alarmSvc.Stops != 1 {
		t.Errorf("driver stopped %d times, want 1", alarmSvc.Stops)
	}
	if alarmSvc.Ringing() {
		t.Error("driver should have stopped")
	}
}

func TestSessionFaceLossKeepsAlarmRinging(t *testing.T) {
	alarmSvc := alarm.NewFake()
	sess, err := newSession(model.Camera{ID: "cam-1", Name: "truck 1 cabin"}, 2, alarmSvc)
	if err != nil {
		t.Fatalf("newSession() error = %v", err)
	}

	closedSample := fatigue.Sample{FaceFound: true, EyesFound: 0}
	stepN(t, sess, closedSample, 3)
	if !alarmSvc.Ringing() {
		t.Fatal("driver should be ringing")
	}

	outcome := stepN(t, sess, fatigue.Sample{FaceFound: false}, 1)
	if outcome.ClearedEventID != "" {
		t.Error("face loss must not clear the alarm event")
	}
	if !alarmSvc.Ringing() {
		t.Error("face loss must not stop the driver")
	}
	if outcome.Decision.Score != 0 {
		t.Errorf("score = %d, want 0 after face loss", outcome.Decision.Score)
	}
}

func TestSessionInvalidSample(t *testing.T) {
	alarmSvc := alarm.NewFake()
	sess, err := newSession(model.Camera{ID: "cam-1", Name: "truck 1 cabin"}, 2, alarmSvc)
	if err != nil {
		t.Fatalf("newSession() error = %v", err)
	}

	if _, err := sess.step(fatigue.Sample{FaceFound: true, EyesFound: -2}, time.Now()); err == nil {
		t.Error("step() with negative eye count should fail")
	}
}

func TestSessionRejectsBadThreshold(t *testing.T) {
	if _, err := newSession(model.Camera{ID: "cam-1"}, 0, alarm.NewFake()); err == nil {
		t.Error("newSession() with zero threshold should fail")
	}
}
