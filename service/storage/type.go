package storage

// IService uploads artifacts (alert snapshots, evidence clips) and returns
// the URL they can be retrieved from.
type IService interface {
	StoreFile(fileName string) (string, error)
}
