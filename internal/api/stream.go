package api

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/drug-repurposing-engine/internal/service"
)

// progressFrame describes websocket payloads emitted while an analysis
// or validation runs.
type progressFrame struct {
	Type      string    `json:"type"`
	Stage     string    `json:"stage"`
	Disease   string    `json:"disease,omitempty"`
	Processed int       `json:"processed,omitempty"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// wsClient wraps a websocket connection with write locking.
type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsClient) writeJSON(payload interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.conn.WriteJSON(payload)
}

// ProgressHub keeps track of active websocket clients and broadcasts
// pipeline stage events. It satisfies service.ProgressNotifier.
type ProgressHub struct {
	mu         sync.Mutex
	clients    map[*wsClient]struct{}
	lastStatus *progressFrame
	logger     *logrus.Logger
}

// NewProgressHub constructs a hub instance.
func NewProgressHub(logger *logrus.Logger) *ProgressHub {
	return &ProgressHub{
		clients: make(map[*wsClient]struct{}),
		logger:  logger,
	}
}

// Publish converts a pipeline event into a websocket frame and fans it
// out to every connected client.
func (h *ProgressHub) Publish(event service.ProgressEvent) {
	frame := progressFrame{
		Type:      "progress",
		Stage:     event.Stage,
		Disease:   event.Disease,
		Processed: event.Count,
		Message:   event.Message,
		Timestamp: event.At,
	}
	if frame.Timestamp.IsZero() {
		frame.Timestamp = time.Now().UTC()
	}
	if event.Done {
		if event.Stage == service.StageFailed {
			frame.Type = "failed"
		} else {
			frame.Type = "complete"
		}
	}
	h.broadcast(frame)
}

// Register attaches a websocket connection and returns a client handle.
// New clients are caught up with the most recent frame.
func (h *ProgressHub) Register(conn *websocket.Conn) *wsClient {
	client := &wsClient{conn: conn}
	h.mu.Lock()
	h.clients[client] = struct{}{}
	status := h.lastStatus
	h.mu.Unlock()

	if status != nil {
		_ = client.writeJSON(*status)
	}
	return client
}

// Unregister removes the websocket client from the hub and closes the
// socket.
func (h *ProgressHub) Unregister(client *wsClient) {
	if client == nil {
		return
	}
	h.mu.Lock()
	delete(h.clients, client)
	h.mu.Unlock()
	_ = client.conn.Close()
}

func (h *ProgressHub) broadcast(frame progressFrame) {
	h.mu.Lock()
	h.lastStatus = &frame

	for client := range h.clients {
		if err := client.writeJSON(frame); err != nil {
			delete(h.clients, client)
			_ = client.conn.Close()
		}
	}
	h.mu.Unlock()
}

// LastStatus returns a copy of the most recently broadcast frame.
func (h *ProgressHub) LastStatus() *progressFrame {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.lastStatus == nil {
		return nil
	}
	frame := *h.lastStatus
	return &frame
}

func (s *Server) handleProgressSocket(c *gin.Context) {
	if s.deps.Hub == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "progress stream not enabled"})
		return
	}

	upgrader := websocket.Upgrader{
		HandshakeTimeout:  5 * time.Second,
		EnableCompression: true,
		CheckOrigin: func(r *http.Request) bool {
			origins := s.cfg.AllowedOrigins
			if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
				return true
			}
			origin := strings.TrimSpace(r.Header.Get("Origin"))
			for _, allowed := range origins {
				if strings.EqualFold(origin, allowed) {
					return true
				}
			}
			return false
		},
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.WithError(err).Warn("upgrade websocket")
		return
	}

	client := s.deps.Hub.Register(conn)
	s.logger.WithField("remote", conn.RemoteAddr().String()).Info("progress websocket connected")
	defer s.deps.Hub.Unregister(client)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if !websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.logger.WithField("remote", conn.RemoteAddr().String()).Info("progress websocket closed")
			} else {
				s.logger.WithError(err).Warn("progress websocket unexpected close")
			}
			break
		}
	}
}
