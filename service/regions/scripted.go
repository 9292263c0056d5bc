package regions

import (
	"image"

	"gocv.io/x/gocv"

	"github.com/khaledhikmat/dd-go/fatigue"
)

type scriptedService struct {
	samples []fatigue.Sample
	index   int
}

// NewScripted replays a fixed sequence of samples, cycling when exhausted.
// Pairs with the random framer for dev runs and with pipeline tests.
func NewScripted(samples []fatigue.Sample) IService {
	return &scriptedService{
		samples: samples,
	}
}

func (svc *scriptedService) Detect(_ gocv.Mat) (Result, error) {
	if len(svc.samples) == 0 {
		return Result{Sample: fatigue.Sample{FaceFound: false}}, nil
	}

	if svc.index >= len(svc.samples) {
		svc.index = 0
	}

	sample := svc.samples[svc.index]
	svc.index++

	result := Result{Sample: sample}
	if sample.FaceFound {
		result.Face = image.Rect(200, 120, 440, 360)
		result.FacesSeen = 1
		for i := 0; i < sample.EyesFound; i++ {
			result.Eyes = append(result.Eyes, image.Rect(40+i*120, 60, 100+i*120, 110))
		}
	}

	return result, nil
}

func (svc *scriptedService) Finalize() {
}
