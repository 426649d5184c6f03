package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nextolk/backend/internal/database"
)

// Health reports the state of the database, redis, the transcode queue and
// the websocket hub. It answers 503 when the database is down.
// GET /health
func (h *Handlers) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	body := gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
		"service":   "nextolk-backend",
	}

	if err := database.Health(ctx); err != nil {
		status = http.StatusServiceUnavailable
		body["status"] = "degraded"
		body["database"] = gin.H{"status": "down", "error": err.Error()}
	} else {
		users, _ := h.users.GetTotalUserCount(ctx)
		body["database"] = gin.H{"status": "up", "users": users}
	}

	switch {
	case h.redis == nil:
		body["redis"] = gin.H{"status": "disabled"}
	case h.redis.Ping(ctx) != nil:
		body["redis"] = gin.H{"status": "down"}
	default:
		body["redis"] = gin.H{"status": "up"}
	}

	if h.queue != nil {
		body["transcode_queue"] = h.queue.Stats()
	}
	if h.hub != nil {
		body["websocket"] = h.hub.GetMetrics()
	}
	body["search"] = gin.H{"elasticsearch": h.search.Enabled()}

	c.JSON(status, body)
}
