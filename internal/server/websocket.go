package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocket upgrader with reasonable defaults.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow connections from any origin in development
		// In production, you should check against allowed origins
		return true
	},
}

// Progress is one progress update pushed to subscribed clients while a
// comparison is running.
type Progress struct {
	Stage  string `json:"stage"`
	Mode   string `json:"mode,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// ProgressHub fans out comparison progress to WebSocket subscribers keyed
// by session ID. Publish never blocks: slow subscribers drop updates.
type ProgressHub struct {
	mu   sync.Mutex
	subs map[string]map[chan Progress]struct{}
}

// NewProgressHub creates an empty hub.
func NewProgressHub() *ProgressHub {
	return &ProgressHub{subs: make(map[string]map[chan Progress]struct{})}
}

// Subscribe registers a channel for a session's progress updates.
func (h *ProgressHub) Subscribe(sessionID string) chan Progress {
	ch := make(chan Progress, 16)
	h.mu.Lock()
	if h.subs[sessionID] == nil {
		h.subs[sessionID] = make(map[chan Progress]struct{})
	}
	h.subs[sessionID][ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

// Unsubscribe removes a channel registered with Subscribe.
func (h *ProgressHub) Unsubscribe(sessionID string, ch chan Progress) {
	h.mu.Lock()
	if set, ok := h.subs[sessionID]; ok {
		delete(set, ch)
		if len(set) == 0 {
			delete(h.subs, sessionID)
		}
	}
	h.mu.Unlock()
}

// Publish delivers an update to all subscribers of a session.
func (h *ProgressHub) Publish(sessionID string, p Progress) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[sessionID] {
		select {
		case ch <- p:
		default:
		}
	}
}

// progressHandler streams comparison progress for one session over a
// WebSocket connection. The session is selected by the session_id query
// parameter.
func (s *Server) progressHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if _, ok := s.sessions.Get(sessionID); !ok {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade connection to WebSocket", "error", err)
		return
	}
	defer func() {
		_ = conn.Close()
	}()

	websocketConnections.Inc()
	defer websocketConnections.Dec()
	slog.Info("WebSocket connection established", "session", sessionID, "remote_addr", r.RemoteAddr)

	updates := s.progress.Subscribe(sessionID)
	defer s.progress.Unsubscribe(sessionID, updates)

	// The client is not expected to send anything; the read loop exists
	// to observe the close handshake.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					slog.Error("WebSocket error", "error", err)
				}
				return
			}
			websocketMessagesTotal.WithLabelValues("received").Inc()
		}
	}()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-closed:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(10*time.Second)); err != nil {
				return
			}
		case p := <-updates:
			data, err := json.Marshal(p)
			if err != nil {
				slog.Error("Failed to encode progress update", "error", err)
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
			websocketMessagesTotal.WithLabelValues("sent").Inc()
		}
	}
}
