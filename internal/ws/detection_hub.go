package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	broadcastQueue = 32
)

// client wraps a connection; gorilla connections allow one writer at a time
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) write(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(messageType, data)
}

// DetectionHub fans detection events out to WebSocket subscribers
type DetectionHub struct {
	clients   map[*client]bool
	mu        sync.RWMutex
	broadcast chan []byte
	logger    *log.Logger
}

// NewDetectionHub creates a new detection hub. Run must be started for
// messages to be delivered.
func NewDetectionHub(logger *log.Logger) *DetectionHub {
	return &DetectionHub{
		clients:   make(map[*client]bool),
		broadcast: make(chan []byte, broadcastQueue),
		logger:    logger,
	}
}

// Run delivers queued messages until ctx is done, then closes all clients
func (h *DetectionHub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case msg := <-h.broadcast:
			h.send(msg)
		}
	}
}

// Register adds a connection
func (h *DetectionHub) Register(conn *websocket.Conn) *client {
	c := &client{conn: conn}

	h.mu.Lock()
	h.clients[c] = true
	total := len(h.clients)
	h.mu.Unlock()

	h.logger.Printf("[WS] Client registered (total: %d)", total)
	return c
}

// Unregister removes a connection
func (h *DetectionHub) Unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		h.logger.Printf("[WS] Client unregistered")
	}
}

// HasClients returns true if any subscriber is connected
func (h *DetectionHub) HasClients() bool {
	return h.ClientCount() > 0
}

// ClientCount returns the number of connected clients
func (h *DetectionHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// BroadcastDetection queues a detection message without blocking. Messages
// are dropped when nobody listens or the queue is full.
func (h *DetectionHub) BroadcastDetection(msg *DetectionMessage) {
	if !h.HasClients() {
		return
	}

	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Printf("[WS] Error marshaling detection message: %v", err)
		return
	}

	select {
	case h.broadcast <- data:
	default:
		h.logger.Printf("[WS] Dropping detection message, queue full")
	}
}

func (h *DetectionHub) send(message []byte) {
	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if err := c.write(websocket.TextMessage, message); err != nil {
			h.logger.Printf("[WS] Error sending to client: %v", err)
			h.Unregister(c)
			c.conn.Close()
		}
	}
}

func (h *DetectionHub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		c.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		c.conn.Close()
		delete(h.clients, c)
	}
}
