package inference

// Result is the outcome of a secondary (cloud) inference pass over an
// alerted snapshot.
type Result struct {
	Score         string `json:"score"`
	Confirmed     bool   `json:"confirmed"`
	AlertImageURL string `json:"alertImageUrl"`
}

// There should be more input to CanSkipFrame than just frames
type IService interface {
	Invoke(modelName string, inputURL string) (Result, error)
	CanSkipFrame(frames int) bool
}
