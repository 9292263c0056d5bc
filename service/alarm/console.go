package alarm

import (
	"sync"
	"time"

	"github.com/fatih/color"
)

type consoleService struct {
	mu      sync.Mutex
	camera  string
	ringing bool
	stop    chan struct{}
}

// NewConsole loops a red WAKE UP banner on the terminal until stopped. Pods
// that run on the vehicle swap this for a sound-capable driver.
func NewConsole(camera string) IService {
	return &consoleService{
		camera: camera,
	}
}

func (svc *consoleService) StartLooping() error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	if svc.ringing {
		// Already looping
		return nil
	}

	svc.ringing = true
	svc.stop = make(chan struct{})

	banner := color.New(color.FgRed, color.Bold)
	go func(stop chan struct{}) {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				banner.Printf("*** WAKE UP *** camera: %s\n", svc.camera)
			}
		}
	}(svc.stop)

	return nil
}

func (svc *consoleService) Stop() error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	if !svc.ringing {
		// Already stopped
		return nil
	}

	svc.ringing = false
	close(svc.stop)
	svc.stop = nil

	return nil
}

func (svc *consoleService) Ringing() bool {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return svc.ringing
}

func (svc *consoleService) Finalize() {
	_ = svc.Stop()
}
