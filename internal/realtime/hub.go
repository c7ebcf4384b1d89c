package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"madamis/backend/internal/model"
)

const SnapshotType = "timer.snapshot"

// Snapshot is the full timer document as pushed to subscribers. ServerTime
// lets clients correct for local clock drift.
type Snapshot struct {
	Type       string              `json:"type"`
	SessionID  string              `json:"sessionId"`
	Document   model.TimerDocument `json:"document"`
	ServerTime time.Time           `json:"serverTime"`
}

func NewSnapshot(doc model.TimerDocument, now time.Time) Snapshot {
	return Snapshot{
		Type:       SnapshotType,
		SessionID:  doc.SessionID,
		Document:   doc,
		ServerTime: now.UTC(),
	}
}

type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	SendBuffer      int
	CheckOrigin     func(r *http.Request) bool
}

func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  1024,
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		SendBuffer:      16,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
}

// Hub fans timer snapshots out to the websocket subscribers of each session.
type Hub struct {
	sessions map[string]map[*Connection]bool
	mu       sync.RWMutex

	upgrader    websocket.Upgrader
	config      ConnectionConfig
	broadcastCh chan Snapshot
}

// Connection is one subscribed display or control surface.
type Connection struct {
	ID          string
	SessionID   string
	Conn        *websocket.Conn
	ConnectedAt time.Time

	send chan []byte
	hub  *Hub

	mu          sync.Mutex
	closed      bool
	lastVersion int64
	sentAny     bool
}

func NewHub(config ConnectionConfig) *Hub {
	if config.SendBuffer <= 0 {
		config.SendBuffer = 16
	}
	return &Hub{
		sessions: make(map[string]map[*Connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		broadcastCh: make(chan Snapshot, 256),
	}
}

// Start delivers queued broadcasts until ctx is done.
func (h *Hub) Start(ctx context.Context) {
	log.Info().Msg("realtime hub started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("realtime hub shutting down")
			h.closeAll()
			return
		case snapshot := <-h.broadcastCh:
			h.deliver(snapshot)
		}
	}
}

// SnapshotLoader reads the current document of a session.
type SnapshotLoader func(ctx context.Context) (Snapshot, error)

// Serve upgrades the request and subscribes it to sessionID. load runs only
// after the connection is registered, so a write racing the subscription is
// either in the loaded snapshot or broadcast to the connection.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, sessionID string, load SnapshotLoader) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("failed to upgrade websocket connection")
		return fmt.Errorf("upgrade connection: %w", err)
	}

	connection := &Connection{
		ID:          uuid.NewString(),
		SessionID:   sessionID,
		Conn:        conn,
		ConnectedAt: time.Now(),
		send:        make(chan []byte, h.config.SendBuffer),
		hub:         h,
	}

	h.register(connection)
	initial, err := load(r.Context())
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("failed to load initial snapshot")
		h.unregister(connection)
		_ = conn.Close()
		return fmt.Errorf("load initial snapshot: %w", err)
	}
	connection.enqueue(initial)

	go connection.writePump()
	go connection.readPump()

	log.Info().
		Str("connection_id", connection.ID).
		Str("session_id", sessionID).
		Msg("timer subscriber connected")
	return nil
}

// Broadcast queues snapshot for every subscriber of its session.
func (h *Hub) Broadcast(snapshot Snapshot) {
	select {
	case h.broadcastCh <- snapshot:
	default:
		log.Warn().Str("session_id", snapshot.SessionID).Msg("broadcast channel full, dropping snapshot")
	}
}

func (h *Hub) Stats() map[string]interface{} {
	h.mu.RLock()
	defer h.mu.RUnlock()

	total := 0
	perSession := make(map[string]int, len(h.sessions))
	for sessionID, connections := range h.sessions {
		total += len(connections)
		perSession[sessionID] = len(connections)
	}
	return map[string]interface{}{
		"total_connections":   total,
		"active_sessions":     len(h.sessions),
		"session_connections": perSession,
	}
}

func (h *Hub) register(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.sessions[conn.SessionID] == nil {
		h.sessions[conn.SessionID] = make(map[*Connection]bool)
	}
	h.sessions[conn.SessionID][conn] = true
}

func (h *Hub) unregister(conn *Connection) {
	h.mu.Lock()
	connections, ok := h.sessions[conn.SessionID]
	if ok && connections[conn] {
		delete(connections, conn)
		if len(connections) == 0 {
			delete(h.sessions, conn.SessionID)
		}
	}
	h.mu.Unlock()

	if ok {
		conn.close()
	}
}

func (h *Hub) deliver(snapshot Snapshot) {
	h.mu.RLock()
	targets := make([]*Connection, 0, len(h.sessions[snapshot.SessionID]))
	for conn := range h.sessions[snapshot.SessionID] {
		targets = append(targets, conn)
	}
	h.mu.RUnlock()

	for _, conn := range targets {
		if !conn.enqueue(snapshot) {
			log.Warn().
				Str("connection_id", conn.ID).
				Str("session_id", conn.SessionID).
				Msg("subscriber send buffer full, closing connection")
			h.unregister(conn)
			_ = conn.Conn.Close()
		}
	}

	log.Debug().
		Str("session_id", snapshot.SessionID).
		Int64("version", snapshot.Document.Version).
		Int("connections", len(targets)).
		Msg("snapshot broadcast")
}

func (h *Hub) closeAll() {
	h.mu.RLock()
	var all []*Connection
	for _, connections := range h.sessions {
		for conn := range connections {
			all = append(all, conn)
		}
	}
	h.mu.RUnlock()

	for _, conn := range all {
		h.unregister(conn)
	}
}

// enqueue reports false only when the send buffer is full. Snapshots not
// newer than the last one sent are skipped.
func (c *Connection) enqueue(snapshot Snapshot) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return true
	}
	if c.sentAny && snapshot.Document.Version <= c.lastVersion {
		return true
	}

	data, err := json.Marshal(snapshot)
	if err != nil {
		log.Error().Err(err).Str("session_id", snapshot.SessionID).Msg("failed to marshal snapshot")
		return true
	}

	select {
	case c.send <- data:
		c.lastVersion = snapshot.Document.Version
		c.sentAny = true
		return true
	default:
		return false
	}
}

func (c *Connection) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(c.hub.config.PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
		c.hub.unregister(c)
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(c.hub.config.WriteTimeout))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Debug().Err(err).Str("connection_id", c.ID).Msg("failed to write snapshot")
				return
			}
		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(c.hub.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debug().Err(err).Str("connection_id", c.ID).Msg("failed to send ping")
				return
			}
		}
	}
}

// readPump only keeps the read deadline fresh; subscribers never send commands
// over the socket.
func (c *Connection) readPump() {
	defer func() {
		c.hub.unregister(c)
		_ = c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.hub.config.MaxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(c.hub.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(c.hub.config.ReadTimeout))
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Str("connection_id", c.ID).Msg("subscriber closed unexpectedly")
			}
			log.Info().Str("connection_id", c.ID).Str("session_id", c.SessionID).Msg("timer subscriber disconnected")
			return
		}
		_ = c.Conn.SetReadDeadline(time.Now().Add(c.hub.config.ReadTimeout))
	}
}
