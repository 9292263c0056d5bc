package config

import (
	"fmt"
	"os"
	"strconv"
)

type envVarsService struct {
}

// NewEnvVars reads settings from environment variables and falls back to
// sensible defaults. main loads a .env file in dev mode before this runs.
func NewEnvVars() IService {
	return &envVarsService{}
}

func (svc *envVarsService) GetModeMaxShutdownTime() int {
	return intEnv("MODE_MAX_SHUTDOWN_TIME", 5)
}

func (svc *envVarsService) GetInputFolder() string {
	return stringEnv("INPUT_FOLDER", "./settings")
}

func (svc *envVarsService) GetCamerasInputFile() string {
	return fmt.Sprintf("%s/cameras.json", svc.GetInputFolder())
}

func (svc *envVarsService) GetRecordingsFolder() string {
	return stringEnv("RECORDINGS_FOLDER", "./recordings")
}

func (svc *envVarsService) GetDataSvcType() string {
	// `sqlite` or `files`
	return stringEnv("DATA_SVC_TYPE", "sqlite")
}

func (svc *envVarsService) GetSqliteFilePath() string {
	return stringEnv("SQLITE_FILE_PATH", "./dd-go.db")
}

func (svc *envVarsService) GetMaxAgentsPerPod() int {
	return intEnv("MAX_AGENTS_PER_POD", 1)
}

func (svc *envVarsService) GetAlerterWebhookURL() string {
	// Empty means webhook delivery is disabled
	return stringEnv("ALERTER_WEBHOOK_URL", "")
}

func (svc *envVarsService) GetAgentAlerterWebhookRetry() int {
	return intEnv("AGENT_ALERTER_WEBHOOK_RETRY", 5*60)
}

func (svc *envVarsService) GetAgentPeriodicTimeout() int {
	return intEnv("AGENT_PERIODIC_TIMEOUT", 30)
}

func (svc *envVarsService) GetAgentsManagerPeriodicTimeout() int {
	return intEnv("AGENTS_MANAGER_PERIODIC_TIMEOUT", 30)
}

func (svc *envVarsService) GetAgentsMonitorPeriodicTimeout() int {
	return intEnv("AGENTS_MONITOR_PERIODIC_TIMEOUT", 30)
}

func (svc *envVarsService) GetAgentsMonitorMaxOrphanedCameras() int {
	return intEnv("AGENTS_MONITOR_MAX_ORPHANED_CAMERAS", 10)
}

func (svc *envVarsService) GetStreamerMaxWorkers() int {
	return intEnv("STREAMER_MAX_WORKERS", 3)
}

func (svc *envVarsService) GetRecorderStreamerClipDuration() int {
	return intEnv("RECORDER_CLIP_DURATION", 6)
}

func (svc *envVarsService) GetBroadcasterHTTPPort() int {
	return intEnv("BROADCASTER_HTTP_PORT", 5000)
}

func (svc *envVarsService) GetSleepThreshold() int {
	// Number of consecutive closed-eye frames before the alarm fires
	return intEnv("SLEEP_THRESHOLD", 15)
}

func (svc *envVarsService) GetFaceCascadeFile() string {
	return stringEnv("FACE_CASCADE_FILE", "./cascades/haarcascade_frontalface_default.xml")
}

func (svc *envVarsService) GetEyeCascadeFile() string {
	return stringEnv("EYE_CASCADE_FILE", "./cascades/haarcascade_eye.xml")
}

func (svc *envVarsService) GetFaceScaleFactor() float64 {
	return floatEnv("FACE_SCALE_FACTOR", 1.3)
}

func (svc *envVarsService) GetEyeScaleFactor() float64 {
	return floatEnv("EYE_SCALE_FACTOR", 1.1)
}

func (svc *envVarsService) GetFaceMinNeighbors() int {
	return intEnv("FACE_MIN_NEIGHBORS", 5)
}

func (svc *envVarsService) GetEyeMinNeighbors() int {
	return intEnv("EYE_MIN_NEIGHBORS", 4)
}

func stringEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func intEnv(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}

	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func floatEnv(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}

	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}
