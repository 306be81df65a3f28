package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/bonecondor/space-weather/internal/logging"
	"github.com/bonecondor/space-weather/internal/state"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The dashboard is served from a different origin in development.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// StreamManager pushes refreshed alert payloads to connected dashboards
// whenever the checker writes a new state file.
type StreamManager struct {
	states      *state.Store
	logger      *logging.Logger
	mutex       sync.Mutex
	connections map[*websocket.Conn]bool
	watching    bool
}

func NewStreamManager(states *state.Store, logger *logging.Logger) *StreamManager {
	return &StreamManager{
		states:      states,
		logger:      logger,
		connections: make(map[*websocket.Conn]bool),
	}
}

// Handle upgrades the request and registers the connection. The first
// connection starts the state watcher.
func (m *StreamManager) Handle(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		m.logger.Errorf("WebSocket upgrade failed: %v", err)
		return
	}

	m.mutex.Lock()
	m.connections[conn] = true
	if !m.watching {
		m.watching = true
		go m.watch()
	}
	m.mutex.Unlock()

	m.logger.Infof("WebSocket client connected (%d active)", m.count())

	// Drain reads so close frames are processed; we never expect data.
	go func() {
		defer m.drop(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	// Send the current picture immediately on connect.
	if payload, ok := m.payload(); ok {
		m.mutex.Lock()
		_ = conn.WriteMessage(websocket.TextMessage, payload)
		m.mutex.Unlock()
	}
}

// watch polls the last run marker and broadcasts when it advances.
func (m *StreamManager) watch() {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	var lastSeen time.Time
	for range ticker.C {
		if m.count() == 0 {
			continue
		}
		st := m.states.Load()
		if st.LastRunAt == nil || !st.LastRunAt.After(lastSeen) {
			continue
		}
		lastSeen = *st.LastRunAt
		if payload, ok := m.payload(); ok {
			m.broadcast(payload)
		}
	}
}

func (m *StreamManager) payload() ([]byte, bool) {
	st := m.states.Load()
	data, err := json.Marshal(gin.H{
		"lastRun": st.LastRunAt,
		"alerts":  st.AlertsSent,
		"health":  st.DataHealth,
		"currentValues": gin.H{
			"kp":          st.LastKp,
			"bz":          st.LastBz,
			"windSpeed":   st.LastWindSpeed,
			"windDensity": st.LastWindDensity,
		},
	})
	if err != nil {
		m.logger.Errorf("WebSocket payload marshal failed: %v", err)
		return nil, false
	}
	return data, true
}

func (m *StreamManager) broadcast(payload []byte) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	for conn := range m.connections {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			m.logger.Warnf("WebSocket write failed, dropping client: %v", err)
			_ = conn.Close()
			delete(m.connections, conn)
		}
	}
}

func (m *StreamManager) drop(conn *websocket.Conn) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	_ = conn.Close()
	delete(m.connections, conn)
}

func (m *StreamManager) count() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return len(m.connections)
}
