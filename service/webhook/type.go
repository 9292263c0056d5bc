package webhook

// IService delivers alarm payloads to the fleet dispatch endpoint.
type IService interface {
	Post(payload map[string]interface{}) error
}
