package middleware

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nextolk/backend/internal/cache"
	apierrors "github.com/nextolk/backend/internal/errors"
	"github.com/nextolk/backend/internal/logger"
	"github.com/nextolk/backend/internal/util"
	"go.uber.org/zap"
)

// RedisRateLimitMiddleware creates a fixed-window limiter shared by every
// instance through store. A store error rejects the request with 503.
func RedisRateLimitMiddleware(store cache.Store, config RateLimitConfig) gin.HandlerFunc {
	if config.Name == "" {
		config.Name = "default"
	}
	return func(c *gin.Context) {
		clientKey := config.key(c)
		key := fmt.Sprintf("rate_limit:%s:%s", config.Name, clientKey)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		count, ttl, err := store.IncrWindow(ctx, key, config.Window)
		if err != nil {
			logger.Log.Error("Rate limit check failed - rejecting request",
				zap.String("client", clientKey),
				zap.Error(err),
			)
			util.RespondWithAPIError(c, apierrors.ServiceUnavailable("rate limiter"))
			return
		}

		remaining := int64(config.Limit) - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(config.Limit))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if count > int64(config.Limit) {
			logger.Log.Warn("Rate limit exceeded",
				zap.String("client", clientKey),
				zap.String("limiter", config.Name),
				zap.Int64("current_requests", count),
			)
			rejectRateLimited(c, config, ttl)
			return
		}

		c.Next()
	}
}

// SmartRateLimit uses store when Redis is configured and the in-process
// limiter otherwise
func SmartRateLimit(redis *cache.RedisClient, config RateLimitConfig) gin.HandlerFunc {
	if redis != nil {
		return RedisRateLimitMiddleware(redis, config)
	}
	return NewRateLimiter(config).Middleware()
}
