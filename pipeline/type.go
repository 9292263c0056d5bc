package pipeline

import (
	"context"
	"time"

	"gocv.io/x/gocv"

	"github.com/khaledhikmat/dd-go/fatigue"
	"github.com/khaledhikmat/dd-go/model"
	"github.com/khaledhikmat/dd-go/service/alarm"
	"github.com/khaledhikmat/dd-go/service/clips"
	"github.com/khaledhikmat/dd-go/service/config"
	"github.com/khaledhikmat/dd-go/service/data"
	"github.com/khaledhikmat/dd-go/service/inference"
	"github.com/khaledhikmat/dd-go/service/orphan"
	"github.com/khaledhikmat/dd-go/service/regions"
	"github.com/khaledhikmat/dd-go/service/storage"
	"github.com/khaledhikmat/dd-go/service/webhook"
)

const waitBeforeCancel = 2 * time.Second

// ServicesFactory carries the services (and per-session factories) the
// pipeline stages need. Mode processors may override entries with different
// implementations.
type ServicesFactory struct {
	CfgSvc       config.IService
	DataSvc      data.IService
	OrphanSvc    orphan.IService
	StorageSvc   storage.IService
	ClipsSvc     clips.IService
	InferenceSvc inference.IService
	WebhookSvc   webhook.IService

	// RegionsFactory produces a region selector per session; selectors are
	// not safe to share across sessions.
	RegionsFactory func(camera model.Camera) (regions.IService, error)
	// AlarmFactory produces an alarm driver per session. Sharing a driver
	// across sessions is disallowed: one latch, one driver.
	AlarmFactory func(camera model.Camera) alarm.IService
}

type FrameData struct {
	Mat       gocv.Mat
	Timestamp time.Time
}

// AlertData reports a latch transition of a fatigue session.
type AlertData struct {
	Mat       gocv.Mat // clone of the alerted frame; empty on cleared alerts
	Camera    model.Camera
	EventID   string
	Status    string
	Score     int
	Cleared   bool
	Timestamp time.Time
}

// MonitorData is an annotated frame plus session status, consumed by the
// broadcaster to feed dashboards.
type MonitorData struct {
	Mat         gocv.Mat // annotated clone; the broadcaster owns and closes it
	Camera      model.Camera
	Status      fatigue.Status
	Score       int
	AlarmActive bool
	Timestamp   time.Time
}

// Signature of streamer function
type Streamer func(canx context.Context, svcs ServicesFactory, camera model.Camera, errorStream chan interface{}, statsStream chan interface{}, alertStream chan AlertData, monitorStream chan MonitorData) chan FrameData

// Signature of alerter function
type Alerter func(canx context.Context, svcs ServicesFactory, errorStream chan interface{}, statsStream chan interface{}) chan AlertData

// Signature of broadcaster function
type Broadcaster func(canx context.Context, svcs ServicesFactory, errorStream chan interface{}, statsStream chan interface{}) chan MonitorData
