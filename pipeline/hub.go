package pipeline

import (
	"sync"

	"github.com/gorilla/websocket"

	"github.com/khaledhikmat/dd-go/service/lgr"
)

// statusHub fans session status updates out to websocket dashboard clients.
// Slow clients are dropped rather than ever backing up the pipeline.
type statusHub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]chan []byte
}

func newStatusHub() *statusHub {
	return &statusHub{
		clients: make(map[*websocket.Conn]chan []byte),
	}
}

func (h *statusHub) register(conn *websocket.Conn) chan []byte {
	h.mu.Lock()
	defer h.mu.Unlock()

	send := make(chan []byte, 64)
	h.clients[conn] = send
	return send
}

func (h *statusHub) unregister(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if send, ok := h.clients[conn]; ok {
		close(send)
		delete(h.clients, conn)
	}
}

func (h *statusHub) broadcast(data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn, send := range h.clients {
		select {
		case send <- data:
			// Queued successfully
		default:
			// Client's buffer is full - they're too slow
			close(send)
			delete(h.clients, conn)
			lgr.Logger.Warn("dropped slow websocket client")
		}
	}
}

func (h *statusHub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn, send := range h.clients {
		close(send)
		delete(h.clients, conn)
		conn.Close()
	}
}
