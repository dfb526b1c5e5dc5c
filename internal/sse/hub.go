package sse

import (
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mcoot/clickergame/internal/broadcast"
	"github.com/mcoot/clickergame/internal/model"
	"github.com/mcoot/clickergame/internal/observability"
)

// message is a formatted frame queued for delivery. An empty target means
// every connected client.
type message struct {
	event  model.EventType
	target string
	frame  []byte
}

// Hub manages the live connections of every client
type Hub struct {
	clients map[string]*Client
	mu      sync.RWMutex
	logger  *slog.Logger
	metrics *observability.Metrics

	// Channels for managing clients
	register   chan *Client
	unregister chan *Client
	broadcast  chan message
	done       chan struct{}
	closeOnce  sync.Once
}

// Ensure Hub implements the broadcaster used by services
var _ broadcast.Broadcaster = (*Hub)(nil)

// NewHub creates a new Hub. metrics may be nil.
func NewHub(logger *slog.Logger, metrics *observability.Metrics) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		logger:     logger.With(slog.String("component", "sse")),
		metrics:    metrics,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan message, 256),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's event loop
func (h *Hub) Run() {
	h.logger.Info("sse hub started")
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.id] = client
			clientCount := len(h.clients)
			h.mu.Unlock()
			h.metrics.LiveConnected(1)
			h.logger.Info("live client connected",
				slog.String("connection_id", client.id),
				slog.String("remote_addr", client.remoteAddr),
				slog.Int("total_clients", clientCount))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.id]; ok {
				delete(h.clients, client.id)
				close(client.send)
				clientCount := len(h.clients)
				h.mu.Unlock()
				h.metrics.LiveConnected(-1)
				h.logger.Info("live client disconnected",
					slog.String("connection_id", client.id),
					slog.Duration("connection_duration", time.Since(client.connectedAt)),
					slog.Int("total_clients", clientCount))
			} else {
				h.mu.Unlock()
			}

		case msg := <-h.broadcast:
			h.deliver(msg)

		case <-h.done:
			h.mu.Lock()
			clientCount := len(h.clients)
			for id, client := range h.clients {
				close(client.send)
				delete(h.clients, id)
			}
			h.mu.Unlock()
			h.metrics.LiveConnected(-float64(clientCount))
			h.logger.Info("sse hub stopped", slog.Int("disconnected_clients", clientCount))
			return
		}
	}
}

func (h *Hub) deliver(msg message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if msg.target != "" {
		client, ok := h.clients[msg.target]
		if !ok {
			h.logger.Debug("live message for unknown connection discarded",
				slog.String("connection_id", msg.target),
				slog.String("event", string(msg.event)))
			return
		}
		h.enqueue(client, msg)
		return
	}

	sentCount := 0
	droppedCount := 0
	for _, client := range h.clients {
		if h.enqueue(client, msg) {
			sentCount++
		} else {
			droppedCount++
		}
	}
	if droppedCount > 0 {
		h.logger.Warn("sse broadcast partial failure",
			slog.String("event", string(msg.event)),
			slog.Int("sent", sentCount),
			slog.Int("dropped", droppedCount))
	}
}

// enqueue must be called with h.mu held
func (h *Hub) enqueue(client *Client, msg message) bool {
	select {
	case client.send <- msg.frame:
		h.metrics.LiveEventSent(string(msg.event))
		return true
	default:
		h.metrics.LiveEventDropped(string(msg.event))
		h.logger.Warn("sse message dropped - client buffer full",
			slog.String("connection_id", client.id),
			slog.String("event", string(msg.event)))
		return false
	}
}

// Register adds a client to the hub. It is a no-op once the hub is closed.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
	}
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Publish sends an event to every connected client
func (h *Hub) Publish(event model.EventType, payload any) {
	h.queue(event, "", payload)
}

// PublishTo sends an event to a single connection. Unknown ids are ignored.
func (h *Hub) PublishTo(connID string, event model.EventType, payload any) {
	h.queue(event, connID, payload)
}

func (h *Hub) queue(event model.EventType, target string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("sse failed to encode payload",
			slog.String("event", string(event)),
			slog.Any("error", err))
		return
	}

	msg := message{event: event, target: target, frame: formatSSEMessage(string(event), string(data))}
	select {
	case h.broadcast <- msg:
	case <-h.done:
	default:
		h.metrics.LiveEventDropped(string(event))
		h.logger.Warn("sse broadcast dropped - hub buffer full",
			slog.String("event", string(event)))
	}
}

// HasClient reports whether a connection id is currently registered
func (h *Hub) HasClient(connID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[connID]
	return ok
}

// Close shuts down the hub and disconnects every client
func (h *Hub) Close() {
	h.closeOnce.Do(func() {
		close(h.done)
	})
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// formatSSEMessage formats an SSE message with event name and data.
// Each line of data gets its own "data: " prefix.
func formatSSEMessage(eventName, data string) []byte {
	var b strings.Builder
	b.WriteString("event: ")
	b.WriteString(eventName)
	b.WriteString("\n")
	for _, line := range splitLines(data) {
		b.WriteString("data: ")
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	return []byte(b.String())
}

// splitLines splits a string into lines, handling various line endings
func splitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.TrimSuffix(s, "\n")
	return strings.Split(s, "\n")
}
