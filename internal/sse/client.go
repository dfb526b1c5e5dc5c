package sse

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/mcoot/clickergame/internal/model"
)

const (
	// Time between keepalive pings
	pingPeriod = 30 * time.Second

	// Buffer size for outgoing messages
	sendBufferSize = 256
)

// ConnectHook runs once a client is registered, before any queued events are written
type ConnectHook func(ctx context.Context, connID string)

// Client represents a connected SSE client
type Client struct {
	id          string
	remoteAddr  string
	send        chan []byte
	connectedAt time.Time
}

// NewClient creates a new SSE client with a fresh connection id
func NewClient(remoteAddr string) *Client {
	return &Client{
		id:          uuid.NewString(),
		remoteAddr:  remoteAddr,
		send:        make(chan []byte, sendBufferSize),
		connectedAt: time.Now(),
	}
}

// ID returns the connection id clients use to address inbound events
func (c *Client) ID() string {
	return c.id
}

// ServeSSE handles the SSE connection for a client. The first event is always
// "connected" carrying the connection id; onConnect may then queue more.
func ServeSSE(w http.ResponseWriter, r *http.Request, hub *Hub, onConnect ConnectHook) {
	// Check if SSE is supported
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	// Streams outlive the server's write timeout
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	client := NewClient(r.RemoteAddr)

	data, _ := json.Marshal(model.ConnectedPayload{ConnectionID: client.id})
	client.send <- formatSSEMessage(string(model.EventConnected), string(data))

	hub.Register(client)

	// Ensure cleanup on disconnect
	defer hub.Unregister(client)

	if onConnect != nil {
		onConnect(r.Context(), client.id)
	}

	// Create ticker for keepalive
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case message, ok := <-client.send:
			if !ok {
				// Hub closed the channel
				return
			}
			if _, err := w.Write(message); err != nil {
				return
			}
			flusher.Flush()

		case <-ticker.C:
			if _, err := w.Write([]byte(": keepalive\n\n")); err != nil {
				return
			}
			flusher.Flush()

		case <-r.Context().Done():
			// Client disconnected
			return
		}
	}
}
