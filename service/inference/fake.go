package inference

type fakeService struct {
}

func NewFake() IService {
	return &fakeService{}
}

func (svc *fakeService) Invoke(_ string, _ string) (Result, error) {
	return Result{
		Score:     "0",
		Confirmed: true,
	}, nil
}

func (svc *fakeService) CanSkipFrame(_ int) bool {
	// The sleep threshold is calibrated in consecutive frames, so fatigue
	// sessions must see every frame.
	return false
}
