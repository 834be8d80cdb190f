package realtime

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var connections = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "giftshop_ws_connections",
	Help: "Open websocket connections",
})

// Client represents a single websocket client connection.
// The network connection itself is managed by the ws handler.
type Client interface {
	Send(message []byte) bool
	Close()
}

// Event is a message pushed to a customer's open connections.
type Event struct {
	Type string    `json:"type"`
	At   time.Time `json:"at"`
	Data any       `json:"data"`
}

// EventOrderStatus is sent when an admin changes the status of an order.
const EventOrderStatus = "order_status"

// OrderStatus is the payload of an EventOrderStatus event.
type OrderStatus struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
}

// Hub maintains active session connections and pushes events to them.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]map[Client]struct{}
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{sessions: make(map[string]map[Client]struct{})}
}

// Register adds a client under a session ID.
func (h *Hub) Register(session string, client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.sessions[session]; !ok {
		h.sessions[session] = make(map[Client]struct{})
	}
	if _, dup := h.sessions[session][client]; !dup {
		connections.Inc()
	}
	h.sessions[session][client] = struct{}{}
}

// Unregister removes a client; a session with no clients left is dropped.
func (h *Hub) Unregister(session string, client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients, ok := h.sessions[session]
	if !ok {
		return
	}
	if _, ok := clients[client]; ok {
		delete(clients, client)
		connections.Dec()
	}
	if len(clients) == 0 {
		delete(h.sessions, session)
	}
}

// Count returns how many clients a session has open.
func (h *Hub) Count(session string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[session])
}

// Broadcast sends a raw message to all clients of a session and returns how
// many accepted it. Failed clients are cleaned up by their handler.
func (h *Hub) Broadcast(session string, message []byte) int {
	h.mu.RLock()
	clients := make([]Client, 0, len(h.sessions[session]))
	for c := range h.sessions[session] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	sent := 0
	for _, c := range clients {
		if c.Send(message) {
			sent++
		}
	}
	return sent
}

// Publish encodes an event and broadcasts it to session.
func (h *Hub) Publish(session, eventType string, data any) (int, error) {
	msg, err := json.Marshal(Event{Type: eventType, At: time.Now().UTC(), Data: data})
	if err != nil {
		return 0, err
	}
	return h.Broadcast(session, msg), nil
}
