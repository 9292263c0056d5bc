package clips

// IService locates the evidence clip covering a time window for a camera.
type IService interface {
	RetrieveClip(cameraID string, from, to int64) (string, error)
}
