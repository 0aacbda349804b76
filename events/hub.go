package events

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Hub holds every websocket subscriber grouped by logical channel
// (restaurant-{slug}, order-{id}). One connection may subscribe to several
// channels.
type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]map[string]bool
	log     *logrus.Logger
}

func NewHub(log *logrus.Logger) *Hub {
	return &Hub{
		clients: make(map[*websocket.Conn]map[string]bool),
		log:     log,
	}
}

// Register adds a connection subscribed to the given channels.
func (h *Hub) Register(conn *websocket.Conn, channels ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs := make(map[string]bool, len(channels))
	for _, ch := range channels {
		subs[ch] = true
	}
	h.clients[conn] = subs
}

// Unregister drops a connection and closes it.
func (h *Hub) Unregister(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, conn)
	conn.Close()
}

// ClientCount returns the number of connections subscribed to a channel.
func (h *Hub) ClientCount(channel string) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := 0
	for _, subs := range h.clients {
		if subs[channel] {
			n++
		}
	}
	return n
}

// Broadcast delivers a message to every local subscriber of its channel.
// Write failures are logged and the connection is left for the reader
// goroutine to reap.
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Errorf("events: marshal message for %s: %v", msg.Channel, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for conn, subs := range h.clients {
		if !subs[msg.Channel] {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.log.Errorf("events: write to subscriber of %s: %v", msg.Channel, err)
		}
	}
}
