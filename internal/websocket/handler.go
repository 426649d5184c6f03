package websocket

import (
	"context"
	"time"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nextolk/backend/internal/auth"
	"github.com/nextolk/backend/internal/logger"
	"github.com/nextolk/backend/internal/middleware"
	"github.com/nextolk/backend/internal/util"
	"go.uber.org/zap"
)

// Handler upgrades authenticated HTTP requests to WebSocket connections
type Handler struct {
	hub            *Hub
	auth           auth.AuthServiceInterface
	originPatterns []string
}

// NewHandler creates a new WebSocket handler. originPatterns are host
// patterns accepted for cross-origin upgrades; nil accepts same-origin only
// and "*" accepts any origin.
func NewHandler(hub *Hub, authService auth.AuthServiceInterface, originPatterns []string) *Handler {
	return &Handler{
		hub:            hub,
		auth:           authService,
		originPatterns: originPatterns,
	}
}

// HandleWebSocket handles GET /api/ws. The access token comes from the
// token query parameter since browsers cannot set headers on upgrades; an
// Authorization header is accepted too.
func (h *Handler) HandleWebSocket(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		token = middleware.BearerToken(c)
	}
	if token == "" {
		util.RespondUnauthorized(c)
		return
	}

	user, err := h.auth.ValidateToken(token)
	if err != nil {
		logger.Log.Debug("WebSocket auth failed", logger.WithIP(c.ClientIP()), zap.Error(err))
		util.RespondUnauthorized(c, "Given token not valid for any token type")
		return
	}

	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		OriginPatterns:  h.originPatterns,
		CompressionMode: websocket.CompressionContextTakeover,
	})
	if err != nil {
		logger.Log.Warn("WebSocket upgrade failed", logger.WithUserID(user.ID), zap.Error(err))
		return
	}

	client := NewClient(h.hub, conn, user.ID, user.Username)
	client.RemoteAddr = c.ClientIP()
	h.hub.Register(client)

	_ = client.Send(NewMessage(MessageTypeSystem, SystemPayload{
		Event:   "connected",
		Message: "Welcome to nextolk!",
		Data: map[string]interface{}{
			"user_id":     user.ID,
			"username":    user.Username,
			"server_time": time.Now().UTC().UnixMilli(),
			"session_id":  uuid.NewString(),
		},
	}))

	go client.WritePump()
	client.ReadPump()
}

// Shutdown gracefully shuts down the hub behind this handler
func (h *Handler) Shutdown(ctx context.Context) error {
	return h.hub.Shutdown(ctx)
}

// Hub returns the hub for notification senders
func (h *Handler) Hub() *Hub {
	return h.hub
}
