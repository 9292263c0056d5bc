package regions

import (
	"image"
	"testing"

	"gocv.io/x/gocv"

	"github.com/khaledhikmat/dd-go/fatigue"
)

func TestLargestRect(t *testing.T) {
	tests := []struct {
		name  string
		rects []image.Rectangle
		want  image.Rectangle
	}{
		{
			name:  "single face",
			rects: []image.Rectangle{image.Rect(0, 0, 100, 100)},
			want:  image.Rect(0, 0, 100, 100),
		},
		{
			name: "driver face closest to camera wins",
			rects: []image.Rectangle{
				image.Rect(0, 0, 50, 50),
				image.Rect(200, 200, 500, 500),
				image.Rect(10, 10, 110, 60),
			},
			want: image.Rect(200, 200, 500, 500),
		},
		{
			name: "ties keep the first",
			rects: []image.Rectangle{
				image.Rect(0, 0, 100, 100),
				image.Rect(5, 5, 105, 105),
			},
			want: image.Rect(0, 0, 100, 100),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := largestRect(tt.rects); got != tt.want {
				t.Errorf("largestRect() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScriptedCyclesSamples(t *testing.T) {
	script := []fatigue.Sample{
		{FaceFound: true, EyesFound: 2},
		{FaceFound: true, EyesFound: 0},
		{FaceFound: false},
	}
	svc := NewScripted(script)
	defer svc.Finalize()

	// Two full cycles.
	for cycle := 0; cycle < 2; cycle++ {
		for i, want := range script {
			got, err := svc.Detect(gocv.Mat{})
			if err != nil {
				t.Fatalf("Detect() error = %v", err)
			}
			if got.Sample != want {
				t.Errorf("cycle %d sample %d = %+v, want %+v", cycle, i, got.Sample, want)
			}
			if want.FaceFound && got.Face.Empty() {
				t.Errorf("cycle %d sample %d: face rect should not be empty", cycle, i)
			}
			if len(got.Eyes) != want.EyesFound {
				t.Errorf("cycle %d sample %d: eyes = %d, want %d", cycle, i, len(got.Eyes), want.EyesFound)
			}
		}
	}
}

func TestScriptedEmptyScript(t *testing.T) {
	svc := NewScripted(nil)
	defer svc.Finalize()

	got, err := svc.Detect(gocv.Mat{})
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if got.Sample.FaceFound {
		t.Error("empty script should report no face")
	}
}
