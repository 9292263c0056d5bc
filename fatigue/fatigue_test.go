package fatigue

import (
	"testing"
)

func closed() Sample {
	return Sample{FaceFound: true, EyesFound: 0}
}

func open(eyes int) Sample {
	return Sample{FaceFound: true, EyesFound: eyes}
}

func noFace() Sample {
	return Sample{FaceFound: false}
}

func mustMachine(t *testing.T, threshold int) *Machine {
	t.Helper()
	m, err := NewMachine(Config{SleepThreshold: threshold})
	if err != nil {
		t.Fatalf("NewMachine() error = %v", err)
	}
	return m
}

func mustStep(t *testing.T, m *Machine, s Sample) Decision {
	t.Helper()
	d, err := m.Step(s)
	if err != nil {
		t.Fatalf("Step(%+v) error = %v", s, err)
	}
	return d
}

func TestNewMachine(t *testing.T) {
	tests := []struct {
		name      string
		threshold int
		wantErr   bool
	}{
		{name: "positive threshold", threshold: 15, wantErr: false},
		{name: "threshold of one", threshold: 1, wantErr: false},
		{name: "zero threshold", threshold: 0, wantErr: true},
		{name: "negative threshold", threshold: -3, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewMachine(Config{SleepThreshold: tt.threshold})
			if (err != nil) != tt.wantErr {
				t.Errorf("NewMachine() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestStepRejectsNegativeEyeCount(t *testing.T) {
	m := mustMachine(t, 15)
	if _, err := m.Step(Sample{FaceFound: true, EyesFound: -1}); err == nil {
		t.Error("Step() with negative eye count should fail")
	}
	// A rejected sample must not have mutated the machine.
	if m.Score() != 0 || m.AlarmActive() {
		t.Errorf("machine mutated by invalid sample: score=%d alarm=%v", m.Score(), m.AlarmActive())
	}
}

func TestStepScoring(t *testing.T) {
	tests := []struct {
		name       string
		threshold  int
		samples    []Sample
		wantScore  int
		wantStatus Status
		wantAlarm  bool
	}{
		{
			name:       "single closed frame accumulates",
			threshold:  15,
			samples:    []Sample{closed()},
			wantScore:  1,
			wantStatus: StatusEyesClosed,
			wantAlarm:  false,
		},
		{
			name:       "at threshold still no alert",
			threshold:  3,
			samples:    []Sample{closed(), closed(), closed()},
			wantScore:  3,
			wantStatus: StatusEyesClosed,
			wantAlarm:  false,
		},
		{
			name:       "threshold exceeded raises alert",
			threshold:  3,
			samples:    []Sample{closed(), closed(), closed(), closed()},
			wantScore:  4,
			wantStatus: StatusAlert,
			wantAlarm:  true,
		},
		{
			name:       "open eyes decrement and floor at zero",
			threshold:  15,
			samples:    []Sample{open(2), open(2)},
			wantScore:  0,
			wantStatus: StatusAwake,
			wantAlarm:  false,
		},
		{
			name:       "one eye counts as open",
			threshold:  15,
			samples:    []Sample{closed(), closed(), open(1)},
			wantScore:  1,
			wantStatus: StatusAwake,
			wantAlarm:  false,
		},
		{
			name:       "face lost resets score",
			threshold:  15,
			samples:    []Sample{closed(), closed(), closed(), noFace()},
			wantScore:  0,
			wantStatus: StatusNoFaceFound,
			wantAlarm:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := mustMachine(t, tt.threshold)
			var last Decision
			for _, s := range tt.samples {
				last = mustStep(t, m, s)
			}
			if last.Score != tt.wantScore {
				t.Errorf("score = %d, want %d", last.Score, tt.wantScore)
			}
			if last.Status != tt.wantStatus {
				t.Errorf("status = %q, want %q", last.Status, tt.wantStatus)
			}
			if m.AlarmActive() != tt.wantAlarm {
				t.Errorf("alarm = %v, want %v", m.AlarmActive(), tt.wantAlarm)
			}
		})
	}
}

// Sixteen consecutive closed-eye frames against a threshold of 15 must fire
// the alarm exactly once, on the sixteenth frame.
func TestAlarmFiresOnThresholdCrossing(t *testing.T) {
	m := mustMachine(t, 15)

	for i := 1; i <= 15; i++ {
		d := mustStep(t, m, closed())
		if d.Command != CommandNone {
			t.Fatalf("frame %d: command = %v, want none", i, d.Command)
		}
		if d.Status != StatusEyesClosed {
			t.Fatalf("frame %d: status = %q, want %q", i, d.Status, StatusEyesClosed)
		}
	}

	d := mustStep(t, m, closed())
	if d.Score != 16 {
		t.Errorf("score = %d, want 16", d.Score)
	}
	if d.Status != StatusAlert {
		t.Errorf("status = %q, want %q", d.Status, StatusAlert)
	}
	if d.Command != CommandStartLoop {
		t.Errorf("command = %v, want startLoop", d.Command)
	}
	if !m.AlarmActive() {
		t.Error("alarm latch should be active")
	}

	// Further closed frames keep alerting but never re-fire the command.
	for i := 0; i < 5; i++ {
		d = mustStep(t, m, closed())
		if d.Command != CommandNone {
			t.Fatalf("command re-fired while latch active: %v", d.Command)
		}
		if d.Status != StatusAlert {
			t.Fatalf("status = %q, want %q", d.Status, StatusAlert)
		}
	}
}

// A single open-eye frame silences an active alarm even though the score is
// still above the threshold.
func TestSingleOpenEyeSilencesAlarm(t *testing.T) {
	m := mustMachine(t, 15)

	for i := 0; i < 16; i++ {
		mustStep(t, m, closed())
	}
	if !m.AlarmActive() {
		t.Fatal("alarm should be active after 16 closed frames")
	}

	d := mustStep(t, m, open(2))
	if d.Score != 15 {
		t.Errorf("score = %d, want 15", d.Score)
	}
	if d.Status != StatusAwake {
		t.Errorf("status = %q, want %q", d.Status, StatusAwake)
	}
	if d.Command != CommandStop {
		t.Errorf("command = %v, want stop", d.Command)
	}
	if m.AlarmActive() {
		t.Error("alarm latch should be cleared")
	}
}

// Losing the face resets the score but never silences an active alarm.
func TestFaceLossKeepsLatch(t *testing.T) {
	m := mustMachine(t, 3)

	for i := 0; i < 4; i++ {
		mustStep(t, m, closed())
	}
	if !m.AlarmActive() {
		t.Fatal("alarm should be active")
	}

	d := mustStep(t, m, noFace())
	if d.Score != 0 {
		t.Errorf("score = %d, want 0", d.Score)
	}
	if d.Status != StatusNoFaceFound {
		t.Errorf("status = %q, want %q", d.Status, StatusNoFaceFound)
	}
	if d.Command != CommandNone {
		t.Errorf("command = %v, want none", d.Command)
	}
	if !m.AlarmActive() {
		t.Error("face loss must not clear the alarm latch")
	}

	// The next open-eye frame still clears it.
	d = mustStep(t, m, open(1))
	if d.Command != CommandStop {
		t.Errorf("command = %v, want stop", d.Command)
	}
	if m.AlarmActive() {
		t.Error("alarm latch should be cleared")
	}
}

// Score path from spec scenario: 5 closed, 3 open, 1 face-lost.
func TestScorePath(t *testing.T) {
	m := mustMachine(t, 15)

	samples := []Sample{
		closed(), closed(), closed(), closed(), closed(),
		open(2), open(2), open(2),
		noFace(),
	}
	wantScores := []int{1, 2, 3, 4, 5, 4, 3, 2, 0}

	for i, s := range samples {
		d := mustStep(t, m, s)
		if d.Score != wantScores[i] {
			t.Errorf("step %d: score = %d, want %d", i, d.Score, wantScores[i])
		}
	}

	d := mustStep(t, m, noFace())
	if d.Status != StatusNoFaceFound {
		t.Errorf("final status = %q, want %q", d.Status, StatusNoFaceFound)
	}
}

// The score must never go negative no matter the input sequence.
func TestScoreNeverNegative(t *testing.T) {
	m := mustMachine(t, 2)

	samples := []Sample{
		open(2), open(1), noFace(), open(2), closed(), open(2), open(2), open(2),
	}
	for i, s := range samples {
		d := mustStep(t, m, s)
		if d.Score < 0 {
			t.Fatalf("step %d: score went negative: %d", i, d.Score)
		}
		if m.Score() < 0 {
			t.Fatalf("step %d: machine score went negative: %d", i, m.Score())
		}
	}
}
