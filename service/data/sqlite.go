package data

import (
	"database/sql"
	"encoding/json"
	"os"
	"time"

	"golang.org/x/xerrors"
	_ "modernc.org/sqlite"

	"github.com/khaledhikmat/dd-go/model"
	"github.com/khaledhikmat/dd-go/service/config"
)

type sqliteService struct {
	CfgSvc config.IService
	db     *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS cameras (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	driver_name TEXT NOT NULL DEFAULT '',
	rtsp_url TEXT NOT NULL DEFAULT '',
	framer_type TEXT NOT NULL DEFAULT 'rtsp',
	excluded INTEGER NOT NULL DEFAULT 0,
	agent_id TEXT NOT NULL DEFAULT '',
	startup_time INTEGER NOT NULL DEFAULT 0,
	last_heartbeat INTEGER NOT NULL DEFAULT 0,
	uptime INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS alarm_events (
	id TEXT PRIMARY KEY,
	camera_id TEXT NOT NULL,
	camera TEXT NOT NULL,
	score INTEGER NOT NULL,
	status TEXT NOT NULL,
	snapshot_url TEXT NOT NULL DEFAULT '',
	started_at INTEGER NOT NULL,
	cleared_at INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS errors (
	timestamp INTEGER NOT NULL,
	processor TEXT NOT NULL,
	message TEXT NOT NULL,
	stack_trace TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS stats (
	timestamp INTEGER NOT NULL,
	kind TEXT NOT NULL,
	payload TEXT NOT NULL
);
`

// NewSqlite persists cameras, alarm events, errors and stats in a local
// sqlite database. Cameras are seeded from the cameras input file when the
// table is empty.
func NewSqlite(cfgsvc config.IService) (IService, error) {
	db, err := sql.Open("sqlite", cfgsvc.GetSqliteFilePath())
	if err != nil {
		return nil, xerrors.Errorf("opening sqlite db: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, xerrors.Errorf("creating sqlite schema: %w", err)
	}

	svc := &sqliteService{
		CfgSvc: cfgsvc,
		db:     db,
	}

	if err := svc.seedCameras(); err != nil {
		db.Close()
		return nil, err
	}

	return svc, nil
}

func (svc *sqliteService) seedCameras() error {
	var count int
	if err := svc.db.QueryRow(`SELECT COUNT(*) FROM cameras`).Scan(&count); err != nil {
		return xerrors.Errorf("counting cameras: %w", err)
	}
	if count > 0 {
		return nil
	}

	data, err := os.ReadFile(svc.CfgSvc.GetCamerasInputFile())
	if err != nil {
		// No seed file is fine; cameras can be inserted out of band.
		return nil
	}

	cameras := []model.Camera{}
	if err := json.Unmarshal(data, &cameras); err != nil {
		return xerrors.Errorf("unmarshalling cameras seed file: %w", err)
	}

	for _, camera := range cameras {
		_, err := svc.db.Exec(
			`INSERT INTO cameras (id, name, driver_name, rtsp_url, framer_type, excluded) VALUES (?, ?, ?, ?, ?, ?)`,
			camera.ID, camera.Name, camera.DriverName, camera.RtspURL, camera.FramerType, boolToInt(camera.Excluded),
		)
		if err != nil {
			return xerrors.Errorf("seeding camera %s: %w", camera.ID, err)
		}
	}

	return nil
}

const cameraColumns = `id, name, driver_name, rtsp_url, framer_type, excluded, agent_id, startup_time, last_heartbeat, uptime`

func (svc *sqliteService) scanCameras(rows *sql.Rows) ([]model.Camera, error) {
	defer rows.Close()

	var cameras []model.Camera
	for rows.Next() {
		var c model.Camera
		var excluded int
		if err := rows.Scan(&c.ID, &c.Name, &c.DriverName, &c.RtspURL, &c.FramerType,
			&excluded, &c.AgentID, &c.StartupTime, &c.LastHeartBeat, &c.Uptime); err != nil {
			return nil, err
		}
		c.Excluded = excluded != 0
		cameras = append(cameras, c)
	}

	return cameras, rows.Err()
}

func (svc *sqliteService) RetrieveCameras() ([]model.Camera, error) {
	rows, err := svc.db.Query(`SELECT ` + cameraColumns + ` FROM cameras`)
	if err != nil {
		return nil, err
	}
	return svc.scanCameras(rows)
}

func (svc *sqliteService) RetrieveCameraByID(id string) (model.Camera, error) {
	rows, err := svc.db.Query(`SELECT `+cameraColumns+` FROM cameras WHERE id = ?`, id)
	if err != nil {
		return model.Camera{}, err
	}

	cameras, err := svc.scanCameras(rows)
	if err != nil {
		return model.Camera{}, err
	}
	if len(cameras) == 0 {
		return model.Camera{}, nil
	}
	return cameras[0], nil
}

func (svc *sqliteService) RetrieveCamerasByIDs(ids []string) ([]model.Camera, error) {
	var result []model.Camera
	for _, id := range ids {
		camera, err := svc.RetrieveCameraByID(id)
		if err != nil {
			return nil, err
		}
		if camera.ID != "" {
			result = append(result, camera)
		}
	}

	return result, nil
}

func (svc *sqliteService) RetrieveOrphanedCameras(max int) ([]model.Camera, error) {
	cutoff := time.Now().Unix() - 5*60
	rows, err := svc.db.Query(
		`SELECT `+cameraColumns+` FROM cameras WHERE excluded = 0 AND (agent_id = '' OR last_heartbeat < ?) LIMIT ?`,
		cutoff, max,
	)
	if err != nil {
		return nil, err
	}
	return svc.scanCameras(rows)
}

func (svc *sqliteService) UpdateCameraExcluded(id string, excluded bool) error {
	_, err := svc.db.Exec(`UPDATE cameras SET excluded = ? WHERE id = ?`, boolToInt(excluded), id)
	return err
}

func (svc *sqliteService) UpdateCameraAgentID(cameraID, agentID string) error {
	now := time.Now().Unix()
	_, err := svc.db.Exec(
		`UPDATE cameras SET agent_id = ?, startup_time = ?, last_heartbeat = ?, uptime = 0 WHERE id = ?`,
		agentID, now, now, cameraID,
	)
	return err
}

func (svc *sqliteService) UpdateCameraAgentHeartbeat(id string) error {
	now := time.Now().Unix()
	_, err := svc.db.Exec(
		`UPDATE cameras SET last_heartbeat = ?, uptime = ? - startup_time WHERE id = ?`,
		now, now, id,
	)
	return err
}

func (svc *sqliteService) NewAlarmEvent(event model.AlarmEvent) error {
	_, err := svc.db.Exec(
		`INSERT INTO alarm_events (id, camera_id, camera, score, status, snapshot_url, started_at, cleared_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID, event.CameraID, event.Camera, event.Score, event.Status,
		event.SnapshotURL, event.StartedAt, event.ClearedAt,
	)
	return err
}

func (svc *sqliteService) UpdateAlarmEventCleared(id string, clearedAt int64) error {
	_, err := svc.db.Exec(`UPDATE alarm_events SET cleared_at = ? WHERE id = ?`, clearedAt, id)
	return err
}

func (svc *sqliteService) RetrieveAlarmEvents(cameraID string, max int) ([]model.AlarmEvent, error) {
	query := `SELECT id, camera_id, camera, score, status, snapshot_url, started_at, cleared_at FROM alarm_events`
	args := []interface{}{}
	if cameraID != "" {
		query += ` WHERE camera_id = ?`
		args = append(args, cameraID)
	}
	query += ` ORDER BY started_at DESC LIMIT ?`
	args = append(args, max)

	rows, err := svc.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []model.AlarmEvent
	for rows.Next() {
		var e model.AlarmEvent
		if err := rows.Scan(&e.ID, &e.CameraID, &e.Camera, &e.Score, &e.Status,
			&e.SnapshotURL, &e.StartedAt, &e.ClearedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}

	return events, rows.Err()
}

func (svc *sqliteService) NewError(err interface{}) error {
	var customErr model.CustomError
	if custom, ok := err.(model.CustomError); ok {
		customErr = custom
	} else if inner, ok := err.(error); ok {
		customErr.Processor = "N/A"
		customErr.Message = inner.Error()
		customErr.StackTrace = "N/A"
	}

	_, dbErr := svc.db.Exec(
		`INSERT INTO errors (timestamp, processor, message, stack_trace) VALUES (?, ?, ?, ?)`,
		time.Now().Unix(), customErr.Processor, customErr.Message, customErr.StackTrace,
	)
	return dbErr
}

func (svc *sqliteService) NewAgentsManagerStats(stats model.AgentsManagerStats) error {
	stats.Timestamp = time.Now().Unix()
	return svc.newStats("agents-manager-stats", stats)
}

func (svc *sqliteService) NewAgentStats(stats model.AgentStats) error {
	stats.Timestamp = time.Now().Unix()
	return svc.newStats("agent-stats", stats)
}

func (svc *sqliteService) NewFramerStats(stats model.FramerStats) error {
	stats.Timestamp = time.Now().Unix()
	return svc.newStats("framer-stats", stats)
}

func (svc *sqliteService) NewStreamerStats(stats model.StreamerStats) error {
	stats.Timestamp = time.Now().Unix()
	return svc.newStats("streamer-stats", stats)
}

func (svc *sqliteService) NewAlerterStats(stats model.AlerterStats) error {
	stats.Timestamp = time.Now().Unix()
	return svc.newStats("alerter-stats", stats)
}

func (svc *sqliteService) newStats(kind string, stats interface{}) error {
	payload, err := json.Marshal(stats)
	if err != nil {
		return err
	}

	_, err = svc.db.Exec(
		`INSERT INTO stats (timestamp, kind, payload) VALUES (?, ?, ?)`,
		time.Now().Unix(), kind, string(payload),
	)
	return err
}

func (svc *sqliteService) Finalize() {
	svc.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
