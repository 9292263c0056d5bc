package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"gocv.io/x/gocv"

	"github.com/khaledhikmat/dd-go/model"
	"github.com/khaledhikmat/dd-go/service/lgr"
)

// cameraView is the latest published state of one session, as the dashboard
// sees it.
type cameraView struct {
	CameraID    string `json:"cameraId"`
	Camera      string `json:"camera"`
	Driver      string `json:"driver"`
	Status      string `json:"status"`
	Score       int    `json:"score"`
	AlarmActive bool   `json:"alarmActive"`
	UpdatedAt   int64  `json:"updatedAt"`

	frame []byte // latest annotated JPEG
}

type broadcastState struct {
	mu      sync.RWMutex
	cameras map[string]*cameraView
}

func newBroadcastState() *broadcastState {
	return &broadcastState{
		cameras: make(map[string]*cameraView),
	}
}

func (s *broadcastState) update(m MonitorData, frame []byte) *cameraView {
	s.mu.Lock()
	defer s.mu.Unlock()

	view, ok := s.cameras[m.Camera.ID]
	if !ok {
		view = &cameraView{CameraID: m.Camera.ID}
		s.cameras[m.Camera.ID] = view
	}

	view.Camera = m.Camera.Name
	view.Driver = m.Camera.DriverName
	view.Status = string(m.Status)
	view.Score = m.Score
	view.AlarmActive = m.AlarmActive
	view.UpdatedAt = m.Timestamp.Unix()
	if frame != nil {
		view.frame = frame
	}

	copied := *view
	copied.frame = nil
	return &copied
}

func (s *broadcastState) latestFrame(cameraID string) []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()

	view, ok := s.cameras[cameraID]
	if !ok {
		return nil
	}
	return view.frame
}

func (s *broadcastState) views() []*cameraView {
	s.mu.RLock()
	defer s.mu.RUnlock()

	views := make([]*cameraView, 0, len(s.cameras))
	for _, view := range s.cameras {
		copied := *view
		copied.frame = nil
		views = append(views, &copied)
	}
	return views
}

// MJPEGBroadcaster serves the pod dashboard: an MJPEG feed per camera, a
// JSON status API and a websocket status stream. One broadcaster runs per
// pod; streamers publish annotated frames on the returned channel.
func MJPEGBroadcaster(canx context.Context, svcs ServicesFactory, errorStream chan interface{}, statsStream chan interface{}) chan MonitorData {
	in := make(chan MonitorData, 100)

	go func() {
		defer close(in)

		state := newBroadcastState()
		hub := newStatusHub()

		router := chi.NewRouter()
		router.Get("/", indexHandler(state))
		router.Get("/api/cameras", camerasHandler(state))
		router.Get("/cameras/{id}/feed", feedHandler(canx, state))
		router.Get("/ws", wsHandler(hub))

		server := &http.Server{
			Addr:    fmt.Sprintf(":%d", svcs.CfgSvc.GetBroadcasterHTTPPort()),
			Handler: router,
		}

		lgr.Logger.Info(
			"mjpeg broadcaster starting...",
			slog.String("addr", server.Addr),
		)

		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errorStream <- model.GenError("mjpeg_broadcaster",
					err,
					map[string]interface{}{},
					"error running broadcaster http server")
			}
		}()

		frames := 0
		errors := 0
		beginTime := time.Now().Unix()

		defer func() {
			uptime := time.Now().Unix() - beginTime
			fps := 0
			if uptime > 0 {
				fps = int(float64(frames) / float64(uptime))
			}
			statsStream <- model.StreamerStats{
				Name:   "mjpegBroadcaster",
				Worker: 0,
				Frames: frames,
				Errors: errors,
				Uptime: uptime,
				FPS:    fps,
			}
		}()

		for {
			select {
			case <-canx.Done():
				lgr.Logger.Info(
					"mjpeg broadcaster context cancelled",
				)

				shutdownCtx, shutdownCanx := context.WithTimeout(context.Background(), waitBeforeCancel)
				defer shutdownCanx()
				if err := server.Shutdown(shutdownCtx); err != nil {
					lgr.Logger.Error(
						"error shutting down broadcaster http server",
						slog.Any("error", err),
					)
				}
				hub.closeAll()
				return

			case m := <-in:
				frame, err := encodeJPEG(m.Mat)
				m.Mat.Close() // Crucial to close the image to avoid memory leaks
				if err != nil {
					errors++
					lgr.Logger.Error(
						"error encoding monitor frame",
						slog.String("camera", m.Camera.Name),
						slog.Any("error", err),
					)
					continue
				}

				frames++
				view := state.update(m, frame)

				payload, err := json.Marshal(view)
				if err != nil {
					errors++
					continue
				}
				hub.broadcast(payload)
			}
		}
	}()

	return in
}

func encodeJPEG(img gocv.Mat) ([]byte, error) {
	if img.Empty() {
		return nil, fmt.Errorf("cannot encode an empty frame")
	}

	buf, err := gocv.IMEncode(".jpg", img)
	if err != nil {
		return nil, err
	}
	defer buf.Close()

	// The native buffer dies with Close; keep our own copy
	data := make([]byte, len(buf.GetBytes()))
	copy(data, buf.GetBytes())
	return data, nil
}

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head><title>dd-go pod dashboard</title></head>
<body style="background:#111;color:#eee;font-family:sans-serif">
<h2>Driver Drowsiness Monitor</h2>
{{range .}}
<div style="display:inline-block;margin:8px">
	<h3>{{.Camera}} ({{.Driver}})</h3>
	<img src="/cameras/{{.CameraID}}/feed" width="640" height="480"/>
	<p id="status-{{.CameraID}}">{{.Status}} &mdash; score {{.Score}}</p>
</div>
{{end}}
<script>
const ws = new WebSocket((location.protocol === "https:" ? "wss://" : "ws://") + location.host + "/ws");
ws.onmessage = (e) => {
	const v = JSON.parse(e.data);
	const el = document.getElementById("status-" + v.cameraId);
	if (el) { el.textContent = v.status + " — score " + v.score; }
};
</script>
</body>
</html>
`))

func indexHandler(state *broadcastState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := indexTemplate.Execute(w, state.views()); err != nil {
			lgr.Logger.Error(
				"error rendering index template",
				slog.Any("error", err),
			)
		}
	}
}

func camerasHandler(state *broadcastState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(state.views()); err != nil {
			lgr.Logger.Error(
				"error encoding cameras response",
				slog.Any("error", err),
			)
		}
	}
}

// feedHandler streams the camera's annotated frames as
// multipart/x-mixed-replace MJPEG.
func feedHandler(canx context.Context, state *broadcastState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cameraID := chi.URLParam(r, "id")

		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming unsupported", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")

		ticker := time.NewTicker(66 * time.Millisecond) // ~15 fps
		defer ticker.Stop()

		for {
			select {
			case <-canx.Done():
				return
			case <-r.Context().Done():
				return
			case <-ticker.C:
				frame := state.latestFrame(cameraID)
				if frame == nil {
					continue
				}

				if _, err := fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", len(frame)); err != nil {
					return
				}
				if _, err := w.Write(frame); err != nil {
					return
				}
				if _, err := fmt.Fprint(w, "\r\n"); err != nil {
					return
				}
				flusher.Flush()
			}
		}
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Dashboards are viewed from other hosts on the pod's LAN
	CheckOrigin: func(r *http.Request) bool { return true },
}

func wsHandler(hub *statusHub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			lgr.Logger.Error(
				"error upgrading websocket",
				slog.Any("error", err),
			)
			return
		}

		send := hub.register(conn)

		// Writer
		go func() {
			for msg := range send {
				if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					break
				}
			}
			conn.Close()
		}()

		// Reader, only to notice the client going away
		go func() {
			defer hub.unregister(conn)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
	}
}
