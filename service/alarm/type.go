package alarm

// IService drives the audible/visual alarm for one monitoring session.
// Both operations must tolerate redundant calls: the fatigue latch normally
// prevents them, but the driver never relies on that.
type IService interface {
	StartLooping() error
	Stop() error
	Ringing() bool
	Finalize()
}
