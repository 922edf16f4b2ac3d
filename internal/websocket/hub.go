package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"purepresenter/internal/infrastructure"
)

// Message types
const (
	TypeConnection    = "connection"
	TypeLicenseStatus = "license:status"
)

// Message is the envelope of every frame sent to clients
type Message struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp string      `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
}

// SnapshotFunc returns the current license status for a newly connected
// client
type SnapshotFunc func(ctx context.Context) interface{}

type outbound struct {
	msgType string
	payload []byte
}

// Hub maintains the set of active clients and broadcasts messages to the clients
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	broadcast  chan outbound
	register   chan *Client
	unregister chan *Client

	// done is closed when Run returns
	done chan struct{}

	mu       sync.RWMutex
	snapshot SnapshotFunc
	metrics  *Metrics
	logger   *slog.Logger
}

// NewHub creates a new Hub instance with dependency injection
func NewHub(logger *slog.Logger, metrics *Metrics) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan outbound, 16),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		metrics:    metrics,
		logger:     logger.With(slog.String("component", "websocket.hub")),
	}
}

// SetSnapshot sets the function used to greet new clients with the current
// license status
func (h *Hub) SetSnapshot(fn SnapshotFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.snapshot = fn
}

// Run starts the hub's main loop and blocks until ctx is cancelled. All
// client send channels are closed on return.
func (h *Hub) Run(ctx context.Context) error {
	defer func() {
		h.mu.Lock()
		for client := range h.clients {
			close(client.send)
			delete(h.clients, client)
		}
		h.mu.Unlock()
		close(h.done)
		h.logger.Info("Hub shut down")
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case client := <-h.register:
			h.addClient(ctx, client)

		case client := <-h.unregister:
			h.removeClient(ctx, client)

		case msg := <-h.broadcast:
			h.fanOut(ctx, msg)
		}
	}
}

func (h *Hub) addClient(ctx context.Context, client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	count := len(h.clients)
	snapshot := h.snapshot
	h.mu.Unlock()

	if client.traceID != "" {
		ctx = infrastructure.WithTraceID(ctx, client.traceID)
	}

	h.logger.InfoContext(ctx, "Client registered",
		slog.Int("total_clients", count),
		slog.String("client_id", client.id),
		slog.String("remote_addr", client.remoteAddr))
	h.metrics.RecordConnection(ctx)

	h.sendTo(ctx, client, TypeConnection, map[string]interface{}{
		"status":    "connected",
		"client_id": client.id,
	})
	if snapshot != nil {
		h.sendTo(ctx, client, TypeLicenseStatus, snapshot(ctx))
	}
}

func (h *Hub) removeClient(ctx context.Context, client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client)
	close(client.send)
	count := len(h.clients)
	h.mu.Unlock()

	h.logger.InfoContext(ctx, "Client unregistered",
		slog.Int("total_clients", count),
		slog.String("client_id", client.id),
		slog.Duration("connection_duration", time.Since(client.connectedAt)))
	h.metrics.RecordDisconnection(ctx, time.Since(client.connectedAt))
}

func (h *Hub) fanOut(ctx context.Context, msg outbound) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	sent := 0
	for _, client := range clients {
		select {
		case client.send <- msg.payload:
			sent++
		default:
			// Client's send channel is full, close it
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			h.metrics.RecordDropped(ctx)
			h.logger.WarnContext(ctx, "Client send buffer full, disconnecting",
				slog.String("client_id", client.id))
		}
	}

	h.metrics.RecordMessage(ctx, msg.msgType, sent)
	h.logger.DebugContext(ctx, "Broadcast message",
		slog.String("type", msg.msgType),
		slog.Int("client_count", sent),
		slog.Int("message_size", len(msg.payload)))
}

// sendTo queues a message for one client without blocking the hub
func (h *Hub) sendTo(ctx context.Context, client *Client, msgType string, data interface{}) {
	payload, err := encode(msgType, data, client.traceID)
	if err != nil {
		h.logger.ErrorContext(ctx, "Error marshaling message",
			slog.String("message_type", msgType),
			slog.String("error", err.Error()))
		return
	}

	select {
	case client.send <- payload:
		h.metrics.RecordMessage(ctx, msgType, 1)
	default:
		h.logger.WarnContext(ctx, "Failed to greet client - buffer full",
			slog.String("client_id", client.id))
	}
}

// Broadcast sends a message to all connected clients. It never blocks once
// the hub has stopped.
func (h *Hub) Broadcast(ctx context.Context, msgType string, data interface{}) {
	payload, err := encode(msgType, data, infrastructure.GetTraceID(ctx))
	if err != nil {
		h.logger.ErrorContext(ctx, "Error marshaling message",
			slog.String("message_type", msgType),
			slog.String("error", err.Error()))
		return
	}

	select {
	case h.broadcast <- outbound{msgType: msgType, payload: payload}:
	case <-h.done:
	case <-ctx.Done():
	}
}

// BroadcastLicenseStatus sends a license status update to all clients
func (h *Hub) BroadcastLicenseStatus(ctx context.Context, status interface{}) {
	h.Broadcast(ctx, TypeLicenseStatus, status)
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) unregisterClient(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func encode(msgType string, data interface{}, traceID string) ([]byte, error) {
	return json.Marshal(Message{
		Type:      msgType,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		TraceID:   traceID,
	})
}
