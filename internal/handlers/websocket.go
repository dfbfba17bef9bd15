package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/colligo/internal/common"
	"github.com/ternarybob/colligo/internal/services/status"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

const statusBroadcastInterval = 5 * time.Second

// WSMessage is the envelope for every frame pushed to clients
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// WebSocketHandler pushes engine status and run progress to connected
// clients. Writes to a connection are serialized through a per-connection
// mutex; gorilla/websocket does not allow concurrent writers.
type WebSocketHandler struct {
	logger           arbor.ILogger
	statusService    *status.Service
	clients          map[*websocket.Conn]bool
	clientMutex      map[*websocket.Conn]*sync.Mutex
	mu               sync.RWMutex
	serverInstanceID string // Unique ID generated on startup - clients use to detect server restart
}

func NewWebSocketHandler(statusService *status.Service, logger arbor.ILogger) *WebSocketHandler {
	if logger == nil {
		logger = common.GetLogger()
	}
	h := &WebSocketHandler{
		logger:           logger,
		statusService:    statusService,
		clients:          make(map[*websocket.Conn]bool),
		clientMutex:      make(map[*websocket.Conn]*sync.Mutex),
		serverInstanceID: uuid.New().String(),
	}

	logger.Info().Str("server_instance_id", h.serverInstanceID).Msg("WebSocket handler initialized")
	return h
}

// HandleWebSocket upgrades the connection and parks it in a read loop.
// Clients never send meaningful frames; the loop exists to detect
// disconnects promptly.
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	h.registerClient(conn)
	defer h.unregisterClient(conn)

	h.sendStatus(conn)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				h.logger.Debug().Err(err).Msg("WebSocket read error")
			}
			return
		}
	}
}

func (h *WebSocketHandler) registerClient(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[conn] = true
	h.clientMutex[conn] = &sync.Mutex{}
	h.logger.Debug().Int("clients", len(h.clients)).Msg("WebSocket client connected")
}

func (h *WebSocketHandler) unregisterClient(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[conn]; !ok {
		return
	}
	delete(h.clients, conn)
	delete(h.clientMutex, conn)
	conn.Close()
	h.logger.Debug().Int("clients", len(h.clients)).Msg("WebSocket client disconnected")
}

// ClientCount returns the number of connected clients
func (h *WebSocketHandler) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *WebSocketHandler) statusMessage() WSMessage {
	payload := h.statusService.GetStatus()
	payload["server_instance_id"] = h.serverInstanceID
	return WSMessage{Type: "status", Payload: payload}
}

// sendStatus writes the current status snapshot to a single connection
func (h *WebSocketHandler) sendStatus(conn *websocket.Conn) {
	data, err := json.Marshal(h.statusMessage())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to marshal status message")
		return
	}

	h.mu.RLock()
	connMu, ok := h.clientMutex[conn]
	h.mu.RUnlock()
	if !ok {
		return
	}

	connMu.Lock()
	err = conn.WriteMessage(websocket.TextMessage, data)
	connMu.Unlock()
	if err != nil {
		h.unregisterClient(conn)
	}
}

// Broadcast sends a message to every connected client. The payload is
// marshaled once; failed connections are dropped.
func (h *WebSocketHandler) Broadcast(msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error().Err(err).Str("type", msg.Type).Msg("Failed to marshal WebSocket message")
		return
	}

	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	mutexes := make([]*sync.Mutex, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
		mutexes = append(mutexes, h.clientMutex[conn])
	}
	h.mu.RUnlock()

	var failed []*websocket.Conn
	for i, conn := range conns {
		mutexes[i].Lock()
		err := conn.WriteMessage(websocket.TextMessage, data)
		mutexes[i].Unlock()
		if err != nil {
			failed = append(failed, conn)
		}
	}

	for _, conn := range failed {
		h.unregisterClient(conn)
	}
}

// BroadcastStatus pushes the current status snapshot to all clients
func (h *WebSocketHandler) BroadcastStatus() {
	h.Broadcast(h.statusMessage())
}

// StartStatusBroadcaster periodically rebroadcasts status so clients
// recover from any missed transition. Stops when ctx is cancelled.
func (h *WebSocketHandler) StartStatusBroadcaster(ctx context.Context) {
	common.SafeGo(h.logger, "ws-status-broadcaster", func() {
		ticker := time.NewTicker(statusBroadcastInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if h.ClientCount() > 0 {
					h.BroadcastStatus()
				}
			}
		}
	})
}

// ServerInstanceID returns the ID clients use to detect restarts
func (h *WebSocketHandler) ServerInstanceID() string {
	return h.serverInstanceID
}
