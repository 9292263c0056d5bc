package data

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/khaledhikmat/dd-go/model"
	"github.com/khaledhikmat/dd-go/service/config"
)

type filesDBService struct {
	CfgSvc config.IService
}

// NewFilesDB persists everything as JSON files under the input folder. Meant
// for dev and single-pod deployments; use the sqlite service otherwise.
func NewFilesDB(cfgsvc config.IService) IService {
	return &filesDBService{
		CfgSvc: cfgsvc,
	}
}

func (svc *filesDBService) RetrieveCameras() ([]model.Camera, error) {
	cameras := []model.Camera{}

	input := svc.CfgSvc.GetCamerasInputFile()
	data, err := os.ReadFile(input)
	if err != nil {
		return cameras, err
	}

	err = json.Unmarshal(data, &cameras)
	if err != nil {
		return cameras, err
	}

	return cameras, nil
}

func (svc *filesDBService) RetrieveCameraByID(id string) (model.Camera, error) {
	cameras, err := svc.RetrieveCameras()
	if err != nil {
		return model.Camera{}, err
	}

	for _, camera := range cameras {
		if camera.ID == id {
			return camera, nil
		}
	}

	return model.Camera{}, nil
}

func (svc *filesDBService) RetrieveCamerasByIDs(ids []string) ([]model.Camera, error) {
	cameras, err := svc.RetrieveCameras()
	if err != nil {
		return nil, err
	}

	var result []model.Camera
	for _, camera := range cameras {
		for _, id := range ids {
			if camera.ID == id {
				result = append(result, camera)
			}
		}
	}

	return result, nil
}

func (svc *filesDBService) RetrieveOrphanedCameras(max int) ([]model.Camera, error) {
	cameras, err := svc.RetrieveCameras()
	if err != nil {
		return nil, err
	}

	var result []model.Camera
	now := time.Now().Unix()
	for _, camera := range cameras {
		if camera.AgentID == "" || (now-camera.LastHeartBeat > 5*60) {
			result = append(result, camera)
			if len(result) >= max {
				break
			}
		}
	}

	return result, nil
}

func (svc *filesDBService) UpdateCameraExcluded(id string, excluded bool) error {
	cameras, err := svc.RetrieveCameras()
	if err != nil {
		return err
	}

	for i, camera := range cameras {
		if camera.ID == id {
			cameras[i].Excluded = excluded
			break
		}
	}

	return svc.writeCameras(cameras)
}

func (svc *filesDBService) UpdateCameraAgentID(cameraID, agentID string) error {
	cameras, err := svc.RetrieveCameras()
	if err != nil {
		return err
	}

	for i, camera := range cameras {
		if camera.ID == cameraID {
			cameras[i].AgentID = agentID
			cameras[i].StartupTime = time.Now().Unix()
			cameras[i].LastHeartBeat = time.Now().Unix()
			cameras[i].Uptime = cameras[i].LastHeartBeat - cameras[i].StartupTime
			break
		}
	}

	return svc.writeCameras(cameras)
}

func (svc *filesDBService) UpdateCameraAgentHeartbeat(id string) error {
	cameras, err := svc.RetrieveCameras()
	if err != nil {
		return err
	}

	for i, camera := range cameras {
		if camera.ID == id {
			cameras[i].LastHeartBeat = time.Now().Unix()
			cameras[i].Uptime = cameras[i].LastHeartBeat - cameras[i].StartupTime
			break
		}
	}

	return svc.writeCameras(cameras)
}

func (svc *filesDBService) writeCameras(cameras []model.Camera) error {
	data, err := json.MarshalIndent(cameras, "", "  ")
	if err != nil {
		return err
	}

	output := svc.CfgSvc.GetCamerasInputFile()
	// Write the JSON data to the file (with truncation)
	return os.WriteFile(output, data, 0644)
}

func (svc *filesDBService) NewAlarmEvent(event model.AlarmEvent) error {
	return newEntity(event, "alarm-events", svc.CfgSvc)
}

func (svc *filesDBService) UpdateAlarmEventCleared(id string, clearedAt int64) error {
	events, err := retrieveEntities[model.AlarmEvent]("alarm-events", svc.CfgSvc)
	if err != nil {
		return err
	}

	for i, event := range events {
		if event.ID == id {
			events[i].ClearedAt = clearedAt
			break
		}
	}

	data, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return err
	}

	output := fmt.Sprintf("%s/alarm-events.json", svc.CfgSvc.GetInputFolder())
	return os.WriteFile(output, data, 0644)
}

func (svc *filesDBService) RetrieveAlarmEvents(cameraID string, max int) ([]model.AlarmEvent, error) {
	events, err := retrieveEntities[model.AlarmEvent]("alarm-events", svc.CfgSvc)
	if err != nil {
		return nil, err
	}

	var result []model.AlarmEvent
	for _, event := range events {
		if cameraID != "" && event.CameraID != cameraID {
			continue
		}
		result = append(result, event)
		if max > 0 && len(result) >= max {
			break
		}
	}

	return result, nil
}

func (svc *filesDBService) NewError(err interface{}) error {
	// Determine if the error is custom
	var customErr model.CustomError
	if custom, ok := err.(model.CustomError); ok {
		customErr = custom
	} else if inner, ok := err.(error); ok {
		customErr.Processor = "N/A"
		customErr.Inner = inner
		customErr.Message = inner.Error()
		customErr.StackTrace = "N/A"
	} else {
		customErr.Processor = "N/A"
		customErr.Inner = fmt.Errorf("%v", err)
		customErr.Message = customErr.Inner.Error()
		customErr.StackTrace = "N/A"
	}

	// Create an error object to persist
	errorData := struct {
		Timestamp  int64                  `json:"timestamp"`
		Processor  string                 `json:"processor"`
		Inner      string                 `json:"innerError"`
		Message    string                 `json:"message"`
		StackTrace string                 `json:"stackTrace"`
		Misc       map[string]interface{} `json:"misc"`
	}{
		Timestamp:  time.Now().Unix(),
		Processor:  customErr.Processor,
		Inner:      customErr.Inner.Error(),
		Message:    customErr.Message,
		StackTrace: customErr.StackTrace,
		Misc:       customErr.Misc,
	}
	return newEntity(errorData, "errors", svc.CfgSvc)
}

func (svc *filesDBService) NewAgentsManagerStats(stats model.AgentsManagerStats) error {
	stats.Timestamp = time.Now().Unix()
	return newEntity(stats, "agents-manager-stats", svc.CfgSvc)
}

func (svc *filesDBService) NewAgentStats(stats model.AgentStats) error {
	stats.Timestamp = time.Now().Unix()
	return newEntity(stats, "agent-stats", svc.CfgSvc)
}

func (svc *filesDBService) NewFramerStats(stats model.FramerStats) error {
	stats.Timestamp = time.Now().Unix()
	return newEntity(stats, "framer-stats", svc.CfgSvc)
}

func (svc *filesDBService) NewStreamerStats(stats model.StreamerStats) error {
	stats.Timestamp = time.Now().Unix()
	return newEntity(stats, "streamer-stats", svc.CfgSvc)
}

func (svc *filesDBService) NewAlerterStats(stats model.AlerterStats) error {
	stats.Timestamp = time.Now().Unix()
	return newEntity(stats, "alerter-stats", svc.CfgSvc)
}

func (svc *filesDBService) Finalize() {
}

func newEntity[T any](entity T, filename string, cfgsvc config.IService) error {
	entities, err := retrieveEntities[T](filename, cfgsvc)
	if err != nil {
		return err
	}

	entities = append(entities, entity)

	data, err := json.MarshalIndent(entities, "", "  ")
	if err != nil {
		return err
	}

	// Write the JSON data to the file (with truncation)
	output := fmt.Sprintf("%s/%s.json", cfgsvc.GetInputFolder(), filename)
	return os.WriteFile(output, data, 0644)
}

func retrieveEntities[T any](filename string, cfgsvc config.IService) ([]T, error) {
	entities := []T{}

	data, err := os.ReadFile(fmt.Sprintf("%s/%s.json", cfgsvc.GetInputFolder(), filename))
	if err != nil {
		// File not found, return empty slice
		return entities, nil
	}

	err = json.Unmarshal(data, &entities)
	if err != nil {
		return entities, err
	}

	return entities, nil
}
