package config

type IService interface {
	GetModeMaxShutdownTime() int
	GetInputFolder() string
	GetCamerasInputFile() string
	GetRecordingsFolder() string
	GetDataSvcType() string
	GetSqliteFilePath() string
	GetMaxAgentsPerPod() int
	GetAlerterWebhookURL() string
	GetAgentAlerterWebhookRetry() int
	GetAgentPeriodicTimeout() int
	GetAgentsManagerPeriodicTimeout() int
	GetAgentsMonitorPeriodicTimeout() int
	GetAgentsMonitorMaxOrphanedCameras() int
	GetStreamerMaxWorkers() int
	GetRecorderStreamerClipDuration() int
	GetBroadcasterHTTPPort() int

	// Fatigue session tunables
	GetSleepThreshold() int
	GetFaceCascadeFile() string
	GetEyeCascadeFile() string
	GetFaceScaleFactor() float64
	GetEyeScaleFactor() float64
	GetFaceMinNeighbors() int
	GetEyeMinNeighbors() int
}
