package regions

import (
	"image"

	"gocv.io/x/gocv"

	"github.com/khaledhikmat/dd-go/fatigue"
)

// Result is the per-frame output of the region selector.
type Result struct {
	// Sample is what the fatigue machine consumes.
	Sample fatigue.Sample
	// Face is the designated face rect in frame coordinates. Zero when no
	// face was found.
	Face image.Rectangle
	// Eyes are the eye rects relative to Face.
	Eyes []image.Rectangle
	// FacesSeen is the total number of faces in the frame. Only the
	// designated face (largest bounding area) feeds the sample.
	FacesSeen int
}

// IService localizes face and eye regions in a frame. Implementations are
// not safe for concurrent use; each session owns its own instance.
type IService interface {
	Detect(img gocv.Mat) (Result, error)
	Finalize()
}
