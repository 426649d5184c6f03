package middleware

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nextolk/backend/internal/cache"
	"github.com/nextolk/backend/internal/logger"
	"github.com/nextolk/backend/internal/util"
	"go.uber.org/zap"
)

// generationTTL bounds how long an invalidation marker lives. It only has
// to outlive the cached responses it shadows.
const generationTTL = 24 * time.Hour

// ResponseCacheMiddleware caches successful GET responses per user.
// Adds X-Cache: HIT/MISS header for debugging.
// Cache key is: response:{name}:{user_id}:{generation}:{query_string}
func ResponseCacheMiddleware(store cache.Store, name string, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if store == nil || c.Request.Method != http.MethodGet {
			c.Next()
			return
		}
		userID, ok := util.OptionalUserID(c)
		if !ok {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		cacheKey := generateCacheKey(name, userID, generation(ctx, store, name, userID), c.Request.URL.RawQuery)

		if cached, err := store.Get(ctx, cacheKey); err == nil {
			RecordCacheHit(name)
			c.Header("X-Cache", "HIT")
			c.Data(http.StatusOK, "application/json; charset=utf-8", cached)
			c.Abort()
			return
		}
		RecordCacheMiss(name)

		writer := &cachedResponseWriter{
			ResponseWriter: c.Writer,
			body:           &bytes.Buffer{},
		}
		c.Writer = writer
		c.Header("X-Cache", "MISS")

		c.Next()

		status := writer.Status()
		if status >= 200 && status < 300 && writer.body.Len() > 0 {
			if err := store.Set(ctx, cacheKey, writer.body.Bytes(), ttl); err != nil {
				logger.Log.Debug("Failed to write response to cache", logger.WithKey(cacheKey), zap.Error(err))
			}
		}
	}
}

// InvalidateUserResponses drops every cached response under name for the
// given users by moving them to a new generation
func InvalidateUserResponses(ctx context.Context, store cache.Store, name string, userIDs ...uint) {
	if store == nil {
		return
	}
	for _, id := range userIDs {
		if err := store.Set(ctx, generationKey(name, id), []byte(uuid.New().String()[:8]), generationTTL); err != nil {
			logger.Log.Warn("Failed to invalidate cache", zap.String("cache", name), logger.WithUserID(id), zap.Error(err))
		}
	}
}

// CacheInvalidationMiddleware invalidates the caller's cached responses under
// name after a successful mutation
func CacheInvalidationMiddleware(store cache.Store, name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Request.Method == http.MethodGet || c.Writer.Status() >= 400 {
			return
		}
		if userID, ok := util.OptionalUserID(c); ok {
			InvalidateUserResponses(c.Request.Context(), store, name, userID)
		}
	}
}

func generationKey(name string, userID uint) string {
	return fmt.Sprintf("response_gen:%s:%d", name, userID)
}

func generation(ctx context.Context, store cache.Store, name string, userID uint) string {
	gen, err := store.Get(ctx, generationKey(name, userID))
	if err != nil {
		return "0"
	}
	return string(gen)
}

func generateCacheKey(name string, userID uint, gen, query string) string {
	return fmt.Sprintf("response:%s:%d:%s:%s", name, userID, gen, query)
}

// cachedResponseWriter intercepts response writes to capture the response body
type cachedResponseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *cachedResponseWriter) Write(data []byte) (int, error) {
	w.body.Write(data)
	return w.ResponseWriter.Write(data)
}

func (w *cachedResponseWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}
