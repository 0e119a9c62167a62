package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/IANDYI/nutrition-service/internal/core/domain"
	"github.com/IANDYI/nutrition-service/internal/core/ports"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 16
)

// ProgressMessageType tags progress pushes
const ProgressMessageType = "today_progress"

var (
	progressPushesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "progress_pushes_total",
			Help: "Total number of today-progress pushes per outcome",
		},
		[]string{"outcome"},
	)

	connectedClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Current number of WebSocket connections",
		},
	)
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ProgressMessage is the JSON frame pushed to a user's connections
type ProgressMessage struct {
	Type     string                `json:"type"`
	UserID   uuid.UUID             `json:"user_id"`
	Progress *domain.TodayProgress `json:"progress"`
	SentAt   time.Time             `json:"sent_at"`
}

// Client represents a websocket connection of one user
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	userID uuid.UUID
}

// NewClient wraps an upgraded connection. Call Hub.Serve to start it.
func NewClient(hub *Hub, conn *websocket.Conn, userID uuid.UUID) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		userID: userID,
	}
}

type userMessage struct {
	userID  uuid.UUID
	payload []byte
}

// Hub keeps the active connections per user and pushes progress updates
// to all connections of the affected user.
// Implements ports.ProgressNotifier
type Hub struct {
	clients    map[uuid.UUID]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	direct     chan userMessage
	done       chan struct{}
	mu         sync.RWMutex
	log        *zap.Logger
}

// NewHub creates a new WebSocket hub
func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		direct:     make(chan userMessage, 256),
		done:       make(chan struct{}),
		log:        log,
	}
}

// Run starts the hub's main loop and returns when ctx is done
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.closeAll()
			return

		case client := <-h.register:
			h.mu.Lock()
			set, ok := h.clients[client.userID]
			if !ok {
				set = make(map[*Client]bool)
				h.clients[client.userID] = set
			}
			set[client] = true
			count := len(set)
			h.mu.Unlock()
			connectedClients.Inc()
			h.log.Info("websocket_connected",
				zap.String("user_id", client.userID.String()),
				zap.Int("user_connections", count))

		case client := <-h.unregister:
			if h.remove(client) {
				h.log.Info("websocket_disconnected", zap.String("user_id", client.userID.String()))
			}

		case msg := <-h.direct:
			h.deliver(msg)
		}
	}
}

// deliver sends to every connection of the user; slow clients are dropped
func (h *Hub) deliver(msg userMessage) {
	h.mu.RLock()
	var slow []*Client
	sent := 0
	for client := range h.clients[msg.userID] {
		select {
		case client.send <- msg.payload:
			sent++
		default:
			slow = append(slow, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range slow {
		h.log.Warn("websocket_client_too_slow", zap.String("user_id", client.userID.String()))
		h.remove(client)
	}

	outcome := "delivered"
	if sent == 0 {
		outcome = "no_listener"
	}
	progressPushesTotal.WithLabelValues(outcome).Inc()
}

func (h *Hub) remove(client *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.clients[client.userID]
	if !ok || !set[client] {
		return false
	}
	delete(set, client)
	if len(set) == 0 {
		delete(h.clients, client.userID)
	}
	close(client.send)
	connectedClients.Dec()
	return true
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for userID, set := range h.clients {
		for client := range set {
			close(client.send)
			connectedClients.Dec()
		}
		delete(h.clients, userID)
	}
}

// NotifyProgress queues today's progress for every connection of a user.
// It never blocks the caller; when the hub is saturated the push is dropped.
func (h *Hub) NotifyProgress(userID uuid.UUID, progress *domain.TodayProgress) {
	payload, err := json.Marshal(ProgressMessage{
		Type:     ProgressMessageType,
		UserID:   userID,
		Progress: progress,
		SentAt:   time.Now(),
	})
	if err != nil {
		h.log.Error("Failed to marshal progress message", zap.Error(err))
		return
	}

	select {
	case h.direct <- userMessage{userID: userID, payload: payload}:
	default:
		progressPushesTotal.WithLabelValues("dropped").Inc()
		h.log.Warn("progress_push_dropped", zap.String("user_id", userID.String()))
	}
}

// ConnectedCount returns the number of open connections of a user
func (h *Hub) ConnectedCount(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// Serve registers the client and starts its pumps. After the hub has
// stopped the connection is closed instead.
func (h *Hub) Serve(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		client.conn.Close()
		return
	}
	go client.writePump()
	go client.readPump()
}

// readPump drains the connection until it closes; clients only send pongs
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Warn("WebSocket error", zap.String("user_id", c.userID.String()), zap.Error(err))
			}
			return
		}
	}
}

// writePump pumps messages from the hub to the websocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			// one JSON document per frame
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Upgrade upgrades HTTP connection to WebSocket
func Upgrade(w http.ResponseWriter, r *http.Request, responseHeader http.Header) (*websocket.Conn, error) {
	return upgrader.Upgrade(w, r, responseHeader)
}

var _ ports.ProgressNotifier = (*Hub)(nil)
