package data

import "github.com/khaledhikmat/dd-go/model"

type IService interface {
	RetrieveCameras() ([]model.Camera, error)
	RetrieveCameraByID(id string) (model.Camera, error)
	RetrieveCamerasByIDs(ids []string) ([]model.Camera, error)
	RetrieveOrphanedCameras(max int) ([]model.Camera, error)
	UpdateCameraExcluded(id string, excluded bool) error
	UpdateCameraAgentID(cameraID, agentID string) error
	UpdateCameraAgentHeartbeat(id string) error

	NewAlarmEvent(event model.AlarmEvent) error
	UpdateAlarmEventCleared(id string, clearedAt int64) error
	RetrieveAlarmEvents(cameraID string, max int) ([]model.AlarmEvent, error)

	NewError(err interface{}) error
	NewAgentsManagerStats(stats model.AgentsManagerStats) error
	NewAgentStats(stats model.AgentStats) error
	NewFramerStats(stats model.FramerStats) error
	NewStreamerStats(stats model.StreamerStats) error
	NewAlerterStats(stats model.AlerterStats) error

	Finalize()
}
