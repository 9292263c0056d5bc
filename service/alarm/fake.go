package alarm

import "sync"

type fakeService struct {
	mu      sync.Mutex
	ringing bool

	Starts int
	Stops  int
}

// NewFake records start/stop calls so tests can assert the latch never
// produces redundant commands.
func NewFake() *fakeService {
	return &fakeService{}
}

func (svc *fakeService) StartLooping() error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	svc.Starts++
	svc.ringing = true
	return nil
}

func (svc *fakeService) Stop() error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	svc.Stops++
	svc.ringing = false
	return nil
}

func (svc *fakeService) Ringing() bool {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return svc.ringing
}

func (svc *fakeService) Finalize() {
}
