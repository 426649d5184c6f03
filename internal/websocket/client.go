package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/nextolk/backend/internal/logger"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Pings double as the liveness check; a missed pong closes the connection
	pingPeriod = 30 * time.Second

	maxMessageSize = 64 * 1024

	sendBufferSize = 256
)

var (
	errClientClosed = errors.New("client connection closed")
	errSendBuffer   = errors.New("send buffer full")
)

// Client is a single WebSocket connection owned by one user
type Client struct {
	conn *websocket.Conn
	hub  *Hub

	UserID   uint
	Username string

	// Buffered channel of outbound messages
	send chan []byte

	ConnectedAt time.Time
	LastPingAt  time.Time
	RemoteAddr  string

	limiter *rate.Limiter

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.RWMutex
	closed     bool
	sendClosed bool
}

// NewClient creates a new Client
func NewClient(hub *Hub, conn *websocket.Conn, userID uint, username string) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := hub.GetRateLimitConfig()

	return &Client{
		hub:         hub,
		conn:        conn,
		UserID:      userID,
		Username:    username,
		send:        make(chan []byte, sendBufferSize),
		ConnectedAt: time.Now(),
		limiter:     rate.NewLimiter(rate.Limit(cfg.MaxMessagesPerSecond), cfg.BurstSize),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// ReadPump reads client messages until the connection closes. The server
// only answers pings; notifications flow the other way.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)

	for {
		_, data, err := c.conn.Read(c.ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				logger.Log.Debug("Client disconnected normally", logger.WithUserID(c.UserID))
			} else if c.ctx.Err() == nil {
				logger.Log.Warn("WebSocket read error", logger.WithUserID(c.UserID), zap.Error(err))
				c.hub.metrics.Errors.Add(1)
			}
			return
		}

		if !c.limiter.Allow() {
			c.SendError("rate_limited", "Too many messages, please slow down")
			c.hub.metrics.Errors.Add(1)
			continue
		}

		c.hub.metrics.MessagesReceived.Add(1)

		var message Message
		if err := json.Unmarshal(data, &message); err != nil {
			c.SendError("invalid_json", "Failed to parse message")
			continue
		}
		c.handleMessage(&message)
	}
}

// WritePump drains the send channel to the connection and keeps it alive
// with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-c.ctx.Done():
			c.conn.Close(websocket.StatusGoingAway, "server shutdown")
			return

		case message, ok := <-c.send:
			if !ok {
				c.conn.Close(websocket.StatusNormalClosure, "closing")
				return
			}

			ctx, cancel := context.WithTimeout(c.ctx, writeWait)
			err := c.conn.Write(ctx, websocket.MessageText, message)
			cancel()
			if err != nil {
				logger.Log.Warn("WebSocket write error", logger.WithUserID(c.UserID), zap.Error(err))
				c.hub.metrics.Errors.Add(1)
				return
			}

		case <-ticker.C:
			c.mu.Lock()
			c.LastPingAt = time.Now()
			c.mu.Unlock()

			ctx, cancel := context.WithTimeout(c.ctx, writeWait)
			err := c.conn.Ping(ctx)
			cancel()
			if err != nil {
				logger.Log.Debug("WebSocket ping failed", logger.WithUserID(c.UserID), zap.Error(err))
				return
			}
		}
	}
}

func (c *Client) handleMessage(message *Message) {
	switch message.Type {
	case MessageTypePing, "heartbeat":
		c.handlePing(message)
	default:
		c.SendError("unknown_type", fmt.Sprintf("Unknown message type: %s", message.Type))
	}
}

func (c *Client) handlePing(message *Message) {
	var ping PingPayload
	if err := message.ParsePayload(&ping); err != nil {
		ping.ClientTime = 0
	}

	serverTime := time.Now().UnixMilli()
	var latency int64
	if ping.ClientTime > 0 {
		latency = serverTime - ping.ClientTime
	}

	_ = c.Send(NewReply(message, MessageTypePong, PongPayload{
		ClientTime: ping.ClientTime,
		ServerTime: serverTime,
		Latency:    latency,
	}))
}

// Send queues message for this client without blocking
func (c *Client) Send(message *Message) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed || c.sendClosed {
		return errClientClosed
	}

	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	select {
	case c.send <- data:
		return nil
	case <-c.ctx.Done():
		return errClientClosed
	default:
		return errSendBuffer
	}
}

// SendError sends an error message to the client
func (c *Client) SendError(code, message string) {
	_ = c.Send(NewErrorMessage(code, message))
}

// Close closes the connection once
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	c.cancel()
	c.conn.Close(websocket.StatusNormalClosure, "closing")
}

// closeSend closes the outbound channel. Only the hub calls it, once the
// client is out of its maps.
func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendClosed {
		return
	}
	c.sendClosed = true
	close(c.send)
}

// IsClosed returns whether the client connection is closed
func (c *Client) IsClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}
