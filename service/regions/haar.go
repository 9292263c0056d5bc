package regions

import (
	"image"

	"gocv.io/x/gocv"
	"golang.org/x/xerrors"

	"github.com/khaledhikmat/dd-go/fatigue"
	"github.com/khaledhikmat/dd-go/service/config"
)

type haarService struct {
	CfgSvc      config.IService
	faceCascade gocv.CascadeClassifier
	eyeCascade  gocv.CascadeClassifier
}

// NewHaar localizes faces and eyes with OpenCV Haar cascades. Frames are
// converted to grayscale and histogram-equalized first so detection holds up
// in low cabin light.
func NewHaar(cfgsvc config.IService) (IService, error) {
	faceCascade := gocv.NewCascadeClassifier()
	if !faceCascade.Load(cfgsvc.GetFaceCascadeFile()) {
		faceCascade.Close()
		return nil, xerrors.Errorf("error loading face cascade file %s", cfgsvc.GetFaceCascadeFile())
	}

	eyeCascade := gocv.NewCascadeClassifier()
	if !eyeCascade.Load(cfgsvc.GetEyeCascadeFile()) {
		faceCascade.Close()
		eyeCascade.Close()
		return nil, xerrors.Errorf("error loading eye cascade file %s", cfgsvc.GetEyeCascadeFile())
	}

	return &haarService{
		CfgSvc:      cfgsvc,
		faceCascade: faceCascade,
		eyeCascade:  eyeCascade,
	}, nil
}

func (svc *haarService) Detect(img gocv.Mat) (Result, error) {
	if img.Empty() {
		return Result{}, xerrors.New("cannot detect regions on an empty frame")
	}

	gray := gocv.NewMat()
	defer gray.Close()

	gocv.CvtColor(img, &gray, gocv.ColorBGRToGray)
	gocv.EqualizeHist(gray, &gray)

	faces := svc.faceCascade.DetectMultiScaleWithParams(
		gray,
		svc.CfgSvc.GetFaceScaleFactor(),
		svc.CfgSvc.GetFaceMinNeighbors(),
		0,
		image.Point{},
		image.Point{},
	)

	if len(faces) == 0 {
		return Result{
			Sample: fatigue.Sample{FaceFound: false},
		}, nil
	}

	// The selector may see several faces; only the largest bounding area
	// (the driver, closest to the camera) feeds the fatigue machine.
	face := largestRect(faces)

	roi := gray.Region(face)
	defer roi.Close()

	eyes := svc.eyeCascade.DetectMultiScaleWithParams(
		roi,
		svc.CfgSvc.GetEyeScaleFactor(),
		svc.CfgSvc.GetEyeMinNeighbors(),
		0,
		image.Point{},
		image.Point{},
	)

	return Result{
		Sample: fatigue.Sample{
			FaceFound: true,
			EyesFound: len(eyes),
		},
		Face:      face,
		Eyes:      eyes,
		FacesSeen: len(faces),
	}, nil
}

func (svc *haarService) Finalize() {
	svc.faceCascade.Close()
	svc.eyeCascade.Close()
}

func largestRect(rects []image.Rectangle) image.Rectangle {
	best := rects[0]
	bestArea := best.Dx() * best.Dy()
	for _, r := range rects[1:] {
		if area := r.Dx() * r.Dy(); area > bestArea {
			best = r
			bestArea = area
		}
	}
	return best
}
