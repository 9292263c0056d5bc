package clips

import (
	"os"
	"path/filepath"
	"testing"
)

type testConfig struct {
	folder string
}

func (c *testConfig) GetModeMaxShutdownTime() int             { return 1 }
func (c *testConfig) GetInputFolder() string                  { return c.folder }
func (c *testConfig) GetCamerasInputFile() string             { return filepath.Join(c.folder, "cameras.json") }
func (c *testConfig) GetRecordingsFolder() string             { return c.folder }
func (c *testConfig) GetDataSvcType() string                  { return "files" }
func (c *testConfig) GetSqliteFilePath() string               { return "" }
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

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("clip"), 0644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

func TestRetrieveClip(t *testing.T) {
	folder := t.TempDir()
	touch(t, filepath.Join(folder, "cam-1_clip_1000.mp4"))
	touch(t, filepath.Join(folder, "cam-1_clip_2000.mp4"))
	touch(t, filepath.Join(folder, "cam-1_clip_3000.mp4"))
	touch(t, filepath.Join(folder, "cam-2_clip_1500.mp4"))

	svc := NewLocal(&testConfig{folder: folder})

	// The chunk that started before the window end wins.
	clip, err := svc.RetrieveClip("cam-1", 2100, 2500)
	if err != nil {
		t.Fatalf("RetrieveClip() error = %v", err)
	}
	if filepath.Base(clip) != "cam-1_clip_2000.mp4" {
		t.Errorf("clip = %s, want cam-1_clip_2000.mp4", clip)
	}

	// Window before any chunk.
	if _, err := svc.RetrieveClip("cam-1", 0, 500); err == nil {
		t.Error("expected error for window before any chunk")
	}

	// Unknown camera.
	if _, err := svc.RetrieveClip("cam-9", 0, 5000); err == nil {
		t.Error("expected error for unknown camera")
	}
}
