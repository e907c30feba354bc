// Package websocket pushes pricing events to connected dashboards.
package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"fuelpulse/internal/infrastructure"
	"fuelpulse/pkg/contracts"
	"fuelpulse/pkg/contracts/events"
)

const (
	// broadcastBuffer is the number of pending broadcasts the hub accepts
	// before BroadcastEvent blocks
	broadcastBuffer = 64

	// DefaultMetricsInterval is how often the hub logs its counters
	DefaultMetricsInterval = 30 * time.Second
)

// Hub maintains the set of active clients and broadcasts messages to them.
// The client set is owned by the Run goroutine; the mutex only guards reads
// from other goroutines.
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Outbound messages for every client
	broadcast chan []byte

	// Register requests from the clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	mu     sync.RWMutex
	logger *slog.Logger

	metrics         *infrastructure.PricingMetrics
	metricsInterval time.Duration

	totalConnections atomic.Int64
	messagesSent     atomic.Int64
	messagesDropped  atomic.Int64

	// Control
	quit      chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

// NewHub creates a new Hub. metrics may be nil.
func NewHub(logger *slog.Logger, metrics *infrastructure.PricingMetrics) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	return &Hub{
		clients:         make(map[*Client]bool),
		broadcast:       make(chan []byte, broadcastBuffer),
		register:        make(chan *Client),
		unregister:      make(chan *Client),
		logger:          logger.With(slog.String("component", "websocket.hub")),
		metrics:         metrics,
		metricsInterval: DefaultMetricsInterval,
		quit:            make(chan struct{}),
	}
}

// Start starts the hub's goroutines. Calling it more than once is a no-op.
func (h *Hub) Start() {
	h.startOnce.Do(func() {
		h.wg.Add(2)
		go func() {
			defer h.wg.Done()
			h.Run()
		}()
		go func() {
			defer h.wg.Done()
			h.reportMetrics()
		}()
	})
}

// Run is the hub's main loop. It returns once Stop is called.
func (h *Hub) Run() {
	for {
		select {
		case <-h.quit:
			h.closeAll()
			h.logger.Info("Hub shutting down")
			return

		case client := <-h.register:
			h.addClient(client)

		case client := <-h.unregister:
			h.removeClient(client, "normal")

		case message := <-h.broadcast:
			h.deliver(message)
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	count := len(h.clients)
	h.mu.Unlock()

	h.totalConnections.Add(1)
	ctx := client.context()
	h.metrics.RecordWebSocketClients(ctx, 1)

	h.logger.InfoContext(ctx, "Client registered",
		slog.Int("total_clients", count),
		slog.String("client_id", client.id),
		slog.String("remote_addr", client.remoteAddr))

	msg, err := json.Marshal(events.NewMessage(events.MessageTypeConnect, events.ConnectData{
		ClientID:   client.id,
		APIVersion: contracts.APIVersion,
	}, client.traceID))
	if err != nil {
		return
	}

	select {
	case client.send <- msg:
	default:
		h.logger.WarnContext(ctx, "Failed to send connection message - client buffer full",
			slog.String("client_id", client.id))
	}
}

func (h *Hub) removeClient(client *Client, reason string) {
	h.mu.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client)
	close(client.send)
	count := len(h.clients)
	h.mu.Unlock()

	ctx := client.context()
	h.metrics.RecordWebSocketClients(ctx, -1)

	h.logger.InfoContext(ctx, "Client unregistered",
		slog.Int("total_clients", count),
		slog.String("client_id", client.id),
		slog.String("reason", reason),
		slog.Duration("connection_duration", time.Since(client.connectedAt)))
}

func (h *Hub) deliver(message []byte) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	failCount := 0
	for _, client := range clients {
		select {
		case client.send <- message:
			h.messagesSent.Add(1)
		default:
			failCount++
			h.messagesDropped.Add(1)
			h.removeClient(client, "send buffer full")
		}
	}

	h.logger.Debug("Broadcast delivered",
		slog.Int("client_count", len(clients)),
		slog.Int("fail_count", failCount),
		slog.Int("message_size", len(message)))
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
		h.metrics.RecordWebSocketClients(context.Background(), -1)
	}
}

// BroadcastEvent sends an event envelope to every connected client. The
// trace id of ctx is copied into the envelope. It returns without sending
// once the hub is stopped or ctx is done.
func (h *Hub) BroadcastEvent(ctx context.Context, messageType events.MessageType, data interface{}) {
	traceID := infrastructure.TraceIDFromContext(ctx)
	if traceID == "" {
		traceID = infrastructure.GetTraceID(ctx)
	}

	message, err := json.Marshal(events.NewMessage(messageType, data, traceID))
	if err != nil {
		h.logger.ErrorContext(ctx, "Error marshaling message",
			slog.String("error", err.Error()),
			slog.String("message_type", string(messageType)))
		return
	}

	select {
	case h.broadcast <- message:
		h.logger.DebugContext(ctx, "Broadcast queued",
			slog.String("message_type", string(messageType)),
			slog.Int("message_size", len(message)))
	case <-h.quit:
	case <-ctx.Done():
		h.logger.WarnContext(ctx, "Broadcast abandoned",
			slog.String("message_type", string(messageType)),
			slog.String("error", ctx.Err().Error()))
	}
}

// Broadcast sends data under an arbitrary message type
func (h *Hub) Broadcast(messageType string, data interface{}) {
	h.BroadcastEvent(context.Background(), events.MessageType(messageType), data)
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Register adds a client to the hub. It reports false when the hub is
// already stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.quit:
		return false
	}
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.quit:
	}
}

// Stop closes every client and waits for the hub goroutines to exit
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.quit)
	})
	h.wg.Wait()
}

// reportMetrics periodically logs hub counters
func (h *Hub) reportMetrics() {
	ticker := time.NewTicker(h.metricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.quit:
			return

		case <-ticker.C:
			h.logger.Info("WebSocket hub metrics",
				slog.Int("active_clients", h.ClientCount()),
				slog.Int64("total_connections", h.totalConnections.Load()),
				slog.Int64("messages_sent", h.messagesSent.Load()),
				slog.Int64("messages_dropped", h.messagesDropped.Load()),
				slog.Int("broadcast_queue", len(h.broadcast)),
			)
		}
	}
}

// GetHubMetrics returns current hub metrics
func (h *Hub) GetHubMetrics() map[string]interface{} {
	return map[string]interface{}{
		"active_clients":    h.ClientCount(),
		"total_connections": h.totalConnections.Load(),
		"messages_sent":     h.messagesSent.Load(),
		"messages_dropped":  h.messagesDropped.Load(),
	}
}
