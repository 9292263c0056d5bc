package data

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/khaledhikmat/dd-go/model"
)

type testConfig struct {
	inputFolder string
	sqlitePath  string
}

func (c *testConfig) GetModeMaxShutdownTime() int             { return 1 }
func (c *testConfig) GetInputFolder() string                  { return c.inputFolder }
func (c *testConfig) GetCamerasInputFile() string             { return filepath.Join(c.inputFolder, "cameras.json") }
func (c *testConfig) GetRecordingsFolder() string             { return c.inputFolder }
func (c *testConfig) GetDataSvcType() string                  { return "files" }
func (c *testConfig) GetSqliteFilePath() string               { return c.sqlitePath }
func (c *testConfig) GetMaxAgentsPerPod() int                 { return 1 }
func (c *testConfig) GetAlerterWebhookURL() string            { return "" }
func (c *testConfig) GetAgentAlerterWebhookRetry() int        { return 1 }
func (c *testConfig) GetAgentPeriodicTimeout() int            { return 1 }
func (c *testConfig) GetAgentsManagerPeriodicTimeout() int    { return 1 }
func (c *testConfig) GetAgentsMonitorPeriodicTimeout() int    { return 1 }
func (c *testConfig) GetAgentsMonitorMaxOrphanedCameras() int { return 10 }
func (c *testConfig) GetStreamerMaxWorkers() int              { return 1 }
func (c *testConfig) GetRecorderStreamerClipDuration() int    { return 1 }
func (c *testConfig) GetBroadcasterHTTPPort() int             { return 0 }
func (c *testConfig) GetSleepThreshold() int                  { return 15 }
func (c *testConfig) GetFaceCascadeFile() string              { return "" }
func (c *testConfig) GetEyeCascadeFile() string               { return "" }
func (c *testConfig) GetFaceScaleFactor() float64             { return 1.3 }
func (c *testConfig) GetEyeScaleFactor() float64              { return 1.1 }
func (c *testConfig) GetFaceMinNeighbors() int                { return 5 }
func (c *testConfig) GetEyeMinNeighbors() int                 { return 4 }

func seedCameras(t *testing.T, folder string, cameras []model.Camera) {
	t.Helper()
	data, err := json.MarshalIndent(cameras, "", "  ")
	if err != nil {
		t.Fatalf("marshalling cameras: %v", err)
	}
	if err := os.WriteFile(filepath.Join(folder, "cameras.json"), data, 0644); err != nil {
		t.Fatalf("writing cameras file: %v", err)
	}
}

func TestFilesDBCameras(t *testing.T) {
	folder := t.TempDir()
	seedCameras(t, folder, []model.Camera{
		{ID: "cam-1", Name: "truck 1 cabin", FramerType: "rtsp"},
		{ID: "cam-2", Name: "truck 2 cabin", FramerType: "random"},
	})

	svc := NewFilesDB(&testConfig{inputFolder: folder})
	defer svc.Finalize()

	cameras, err := svc.RetrieveCameras()
	if err != nil {
		t.Fatalf("RetrieveCameras() error = %v", err)
	}
	if len(cameras) != 2 {
		t.Fatalf("got %d cameras, want 2", len(cameras))
	}

	// Both cameras are orphaned: no agent assigned yet.
	orphans, err := svc.RetrieveOrphanedCameras(10)
	if err != nil {
		t.Fatalf("RetrieveOrphanedCameras() error = %v", err)
	}
	if len(orphans) != 2 {
		t.Fatalf("got %d orphans, want 2", len(orphans))
	}

	if err := svc.UpdateCameraAgentID("cam-1", "agent-xyz"); err != nil {
		t.Fatalf("UpdateCameraAgentID() error = %v", err)
	}

	camera, err := svc.RetrieveCameraByID("cam-1")
	if err != nil {
		t.Fatalf("RetrieveCameraByID() error = %v", err)
	}
	if camera.AgentID != "agent-xyz" {
		t.Errorf("agent id = %q, want %q", camera.AgentID, "agent-xyz")
	}
	if camera.LastHeartBeat == 0 {
		t.Error("heartbeat should be set after agent assignment")
	}

	orphans, err = svc.RetrieveOrphanedCameras(10)
	if err != nil {
		t.Fatalf("RetrieveOrphanedCameras() error = %v", err)
	}
	if len(orphans) != 1 || orphans[0].ID != "cam-2" {
		t.Errorf("orphans = %+v, want only cam-2", orphans)
	}
}

func TestFilesDBAlarmEvents(t *testing.T) {
	folder := t.TempDir()
	seedCameras(t, folder, []model.Camera{{ID: "cam-1", Name: "truck 1 cabin"}})

	svc := NewFilesDB(&testConfig{inputFolder: folder})
	defer svc.Finalize()

	event := model.AlarmEvent{
		ID:        "evt-1",
		CameraID:  "cam-1",
		Camera:    "truck 1 cabin",
		Score:     16,
		Status:    "DROWSINESS ALERT!",
		StartedAt: 1000,
	}
	if err := svc.NewAlarmEvent(event); err != nil {
		t.Fatalf("NewAlarmEvent() error = %v", err)
	}

	if err := svc.UpdateAlarmEventCleared("evt-1", 1010); err != nil {
		t.Fatalf("UpdateAlarmEventCleared() error = %v", err)
	}

	events, err := svc.RetrieveAlarmEvents("cam-1", 10)
	if err != nil {
		t.Fatalf("RetrieveAlarmEvents() error = %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if events[0].ClearedAt != 1010 {
		t.Errorf("cleared at = %d, want 1010", events[0].ClearedAt)
	}

	// Filtered by a camera with no events
	events, err = svc.RetrieveAlarmEvents("cam-9", 10)
	if err != nil {
		t.Fatalf("RetrieveAlarmEvents() error = %v", err)
	}
	if len(events) != 0 {
		t.Errorf("got %d events for cam-9, want 0", len(events))
	}
}

func TestFilesDBStats(t *testing.T) {
	folder := t.TempDir()
	seedCameras(t, folder, []model.Camera{{ID: "cam-1", Name: "truck 1 cabin"}})

	svc := NewFilesDB(&testConfig{inputFolder: folder})
	defer svc.Finalize()

	if err := svc.NewStreamerStats(model.StreamerStats{Name: "drowsinessDetector", Camera: "truck 1 cabin", Frames: 100}); err != nil {
		t.Fatalf("NewStreamerStats() error = %v", err)
	}
	if err := svc.NewError(model.GenError("test", os.ErrNotExist, nil, "boom")); err != nil {
		t.Fatalf("NewError() error = %v", err)
	}

	if _, err := os.Stat(filepath.Join(folder, "streamer-stats.json")); err != nil {
		t.Errorf("streamer stats file missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(folder, "errors.json")); err != nil {
		t.Errorf("errors file missing: %v", err)
	}
}
