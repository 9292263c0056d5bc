package alarm

import "testing"

func TestConsoleIdempotency(t *testing.T) {
	svc := NewConsole("truck 1 cabin")
	defer svc.Finalize()

	// Stop while already stopped is a no-op.
	if err := svc.Stop(); err != nil {
		t.Fatalf("Stop() on stopped driver error = %v", err)
	}
	if svc.Ringing() {
		t.Error("driver should not be ringing")
	}

	if err := svc.StartLooping(); err != nil {
		t.Fatalf("StartLooping() error = %v", err)
	}
	// Start while already looping is a no-op.
	if err := svc.StartLooping(); err != nil {
		t.Fatalf("StartLooping() on ringing driver error = %v", err)
	}
	if !svc.Ringing() {
		t.Error("driver should be ringing")
	}

	if err := svc.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if svc.Ringing() {
		t.Error("driver should have stopped")
	}
}
