// Package websocket delivers realtime notifications to connected users.
// Uses github.com/coder/websocket, the context-aware WebSocket library for Go.
package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/nextolk/backend/internal/logger"
	"github.com/nextolk/backend/internal/metrics"
	"go.uber.org/zap"
)

// Hub maintains the set of active clients and routes messages to users.
type Hub struct {
	// Registered clients by user ID
	clients map[uint]map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	unicast    chan *UnicastMessage

	mu sync.RWMutex

	metrics *Metrics

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	rateLimitConfig RateLimitConfig
}

// Metrics tracks WebSocket statistics
type Metrics struct {
	TotalConnections   atomic.Int64
	ActiveConnections  atomic.Int64
	MessagesReceived   atomic.Int64
	MessagesSent       atomic.Int64
	Errors             atomic.Int64
	ConnectionsDropped atomic.Int64
}

// RateLimitConfig limits inbound client messages
type RateLimitConfig struct {
	MaxMessagesPerSecond int
	BurstSize            int
}

// DefaultRateLimitConfig returns sensible defaults
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxMessagesPerSecond: 10,
		BurstSize:            20,
	}
}

// UnicastMessage is a message targeted at a specific user
type UnicastMessage struct {
	UserID  uint
	Message *Message
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:         make(map[uint]map[*Client]struct{}),
		register:        make(chan *Client, 256),
		unregister:      make(chan *Client, 256),
		unicast:         make(chan *UnicastMessage, 256),
		metrics:         &Metrics{},
		ctx:             ctx,
		cancel:          cancel,
		done:            make(chan struct{}),
		rateLimitConfig: DefaultRateLimitConfig(),
	}
}

// Run starts the hub's event loop. It returns after Shutdown.
func (h *Hub) Run() {
	defer close(h.done)
	logger.Log.Info("WebSocket hub starting")

	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case unicast := <-h.unicast:
			h.sendToUser(unicast.UserID, unicast.Message)
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[client.UserID] == nil {
		h.clients[client.UserID] = make(map[*Client]struct{})
	}
	h.clients[client.UserID][client] = struct{}{}

	h.metrics.TotalConnections.Add(1)
	active := h.metrics.ActiveConnections.Add(1)
	metrics.Get().WebSocketConnections.Inc()

	logger.Log.Info("WebSocket client connected",
		logger.WithUserID(client.UserID),
		zap.Int64("active", active))
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.clients[client.UserID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	if len(clients) == 0 {
		delete(h.clients, client.UserID)
	}
	client.closeSend()

	active := h.metrics.ActiveConnections.Add(-1)
	metrics.Get().WebSocketConnections.Dec()

	logger.Log.Info("WebSocket client disconnected",
		logger.WithUserID(client.UserID),
		zap.Int64("active", active))
}

// sendToUser delivers message to every connection of userID. Clients whose
// buffer is full are dropped.
func (h *Hub) sendToUser(userID uint, message *Message) {
	data, err := json.Marshal(message)
	if err != nil {
		logger.Log.Error("Failed to marshal websocket message", zap.String("type", message.Type), zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients[userID] {
		select {
		case client.send <- data:
			h.metrics.MessagesSent.Add(1)
		default:
			h.metrics.ConnectionsDropped.Add(1)
			go h.Unregister(client)
		}
	}
}

// SendToUser queues a message for all connections of a user. Delivery is
// best effort; users without connections simply miss it.
func (h *Hub) SendToUser(userID uint, message *Message) {
	if h == nil || userID == 0 || message == nil {
		return
	}
	select {
	case h.unicast <- &UnicastMessage{UserID: userID, Message: message}:
	case <-h.ctx.Done():
	}
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.ctx.Done():
	}
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.ctx.Done():
	}
}

// IsUserOnline checks if a user has any active connections
func (h *Hub) IsUserOnline(userID uint) bool {
	return h.GetUserConnectionCount(userID) > 0
}

// GetUserConnectionCount returns the number of connections for a user
func (h *Hub) GetUserConnectionCount(userID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// GetOnlineUsers returns the IDs of all connected users
func (h *Hub) GetOnlineUsers() []uint {
	h.mu.RLock()
	defer h.mu.RUnlock()

	users := make([]uint, 0, len(h.clients))
	for userID := range h.clients {
		users = append(users, userID)
	}
	return users
}

// GetMetrics returns current WebSocket metrics
func (h *Hub) GetMetrics() MetricsSnapshot {
	return MetricsSnapshot{
		TotalConnections:   h.metrics.TotalConnections.Load(),
		ActiveConnections:  h.metrics.ActiveConnections.Load(),
		MessagesReceived:   h.metrics.MessagesReceived.Load(),
		MessagesSent:       h.metrics.MessagesSent.Load(),
		Errors:             h.metrics.Errors.Load(),
		ConnectionsDropped: h.metrics.ConnectionsDropped.Load(),
	}
}

// MetricsSnapshot is a point-in-time snapshot of metrics
type MetricsSnapshot struct {
	TotalConnections   int64 `json:"total_connections"`
	ActiveConnections  int64 `json:"active_connections"`
	MessagesReceived   int64 `json:"messages_received"`
	MessagesSent       int64 `json:"messages_sent"`
	Errors             int64 `json:"errors"`
	ConnectionsDropped int64 `json:"connections_dropped"`
}

func (m MetricsSnapshot) String() string {
	return fmt.Sprintf(
		"connections=%d/%d messages=rx:%d/tx:%d errors=%d dropped=%d",
		m.ActiveConnections, m.TotalConnections,
		m.MessagesReceived, m.MessagesSent,
		m.Errors, m.ConnectionsDropped,
	)
}

// Shutdown stops the hub and closes every client connection
func (h *Hub) Shutdown(ctx context.Context) error {
	logger.Log.Info("Initiating WebSocket hub shutdown")
	h.cancel()

	select {
	case <-h.done:
		logger.Log.Info("WebSocket hub shutdown complete")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shutdown timeout: %w", ctx.Err())
	}
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	data, _ := json.Marshal(NewMessage(MessageTypeSystem, SystemPayload{Event: "server_shutdown"}))

	closed := 0
	for _, clients := range h.clients {
		for client := range clients {
			select {
			case client.send <- data:
			default:
			}
			client.closeSend()
			closed++
		}
	}
	metrics.Get().WebSocketConnections.Sub(float64(closed))
	h.metrics.ActiveConnections.Store(0)
	h.clients = make(map[uint]map[*Client]struct{})

	logger.Log.Info("Closed websocket connections during shutdown", zap.Int("count", closed))
}

// SetRateLimitConfig updates the rate limiting configuration for new clients
func (h *Hub) SetRateLimitConfig(config RateLimitConfig) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.rateLimitConfig = config
}

// GetRateLimitConfig returns the current rate limit configuration
func (h *Hub) GetRateLimitConfig() RateLimitConfig {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.rateLimitConfig
}
