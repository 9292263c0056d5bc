package fatigue

import (
	"golang.org/x/xerrors"
)

// Status is the per-frame classification of the driver.
type Status string

const (
	StatusNoFaceFound Status = "No Face Found"
	StatusEyesClosed  Status = "Eyes Closed"
	StatusAwake       Status = "Awake"
	StatusAlert       Status = "DROWSINESS ALERT!"
)

// Command is the alarm side effect the caller should dispatch for a step.
// At most one command is emitted per frame.
type Command int

const (
	CommandNone Command = iota
	CommandStartLoop
	CommandStop
)

func (c Command) String() string {
	switch c {
	case CommandStartLoop:
		return "startLoop"
	case CommandStop:
		return "stop"
	default:
		return "none"
	}
}

// Sample is one observation per processed frame, produced by the region
// selector. EyesFound is only meaningful when FaceFound is true.
type Sample struct {
	FaceFound bool
	EyesFound int
}

// Config carries the session-immutable tunables.
type Config struct {
	// SleepThreshold is the number of consecutive closed-eye frames the
	// score must exceed before the alarm fires.
	SleepThreshold int
}

// Decision is the observable outcome of one step.
type Decision struct {
	Status  Status  `json:"status"`
	Score   int     `json:"score"`
	Command Command `json:"command"`
}

// Machine is the fatigue-scoring state machine for one monitoring session.
// It is owned by exactly one processing loop; it is not safe for concurrent
// use and must never be shared across sessions.
type Machine struct {
	cfg         Config
	score       int
	alarmActive bool
}

func NewMachine(cfg Config) (*Machine, error) {
	if cfg.SleepThreshold <= 0 {
		return nil, xerrors.Errorf("sleep threshold must be positive, got %d", cfg.SleepThreshold)
	}

	return &Machine{cfg: cfg}, nil
}

// Score returns the current fatigue score. Never negative.
func (m *Machine) Score() int {
	return m.score
}

// AlarmActive reports whether the alarm latch is set.
func (m *Machine) AlarmActive() bool {
	return m.alarmActive
}

// Step consumes one sample and advances the machine.
//
// No face resets the score but leaves the latch alone: losing face tracking
// is not evidence the driver woke up, so an active alarm keeps ringing until
// an explicit eyes-open observation. Face with zero eyes counts as closed;
// one visible eye is enough to count as open.
func (m *Machine) Step(sample Sample) (Decision, error) {
	if sample.EyesFound < 0 {
		return Decision{}, xerrors.Errorf("eyes found count cannot be negative, got %d", sample.EyesFound)
	}

	if !sample.FaceFound {
		// Safe fail: no face means no reliable eye signal, so any
		// in-progress closure streak is discarded.
		m.score = 0
		return Decision{
			Status:  StatusNoFaceFound,
			Score:   m.score,
			Command: CommandNone,
		}, nil
	}

	if sample.EyesFound == 0 {
		m.score++
		if m.score > m.cfg.SleepThreshold {
			command := CommandNone
			if !m.alarmActive {
				m.alarmActive = true
				command = CommandStartLoop
			}
			return Decision{
				Status:  StatusAlert,
				Score:   m.score,
				Command: command,
			}, nil
		}

		return Decision{
			Status:  StatusEyesClosed,
			Score:   m.score,
			Command: CommandNone,
		}, nil
	}

	// Eyes open: de-escalate and silence an active alarm regardless of
	// how high the score still is.
	m.score--
	if m.score < 0 {
		m.score = 0
	}

	command := CommandNone
	if m.alarmActive {
		m.alarmActive = false
		command = CommandStop
	}

	return Decision{
		Status:  StatusAwake,
		Score:   m.score,
		Command: command,
	}, nil
}
