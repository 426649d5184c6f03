package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nextolk/backend/internal/cache"
	"github.com/stretchr/testify/assert"
)

func rateLimitedRouter(handler gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(handler)
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return router
}

func TestRateLimiter(t *testing.T) {
	router := rateLimitedRouter(NewRateLimiter(RateLimitConfig{
		Name:   "test",
		Limit:  3,
		Window: time.Second,
	}).Middleware())

	// First 3 requests should succeed
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/test", nil))
		assert.Equal(t, http.StatusOK, w.Code, "Request %d should succeed", i+1)
	}

	// 4th request should be rate limited
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/test", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code, "4th request should be rate limited")
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "RATE_LIMITED")

	// One token refills every third of a second
	time.Sleep(400 * time.Millisecond)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/test", nil))
	assert.Equal(t, http.StatusOK, w.Code, "Request after refill should succeed")
}

func TestRateLimiterDifferentClients(t *testing.T) {
	router := rateLimitedRouter(NewRateLimiter(RateLimitConfig{
		Limit:  2,
		Window: time.Minute,
		KeyFunc: func(c *gin.Context) string {
			return c.GetHeader("X-Client-ID")
		},
	}).Middleware())

	send := func(client string) int {
		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set("X-Client-ID", client)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, send("client-a"))
	assert.Equal(t, http.StatusOK, send("client-a"))
	assert.Equal(t, http.StatusTooManyRequests, send("client-a"), "Client A should be rate limited")
	assert.Equal(t, http.StatusOK, send("client-b"), "Client B should not be rate limited")
}

func TestRedisRateLimitMiddleware(t *testing.T) {
	store := cache.NewMemoryStore()
	router := rateLimitedRouter(RedisRateLimitMiddleware(store, RateLimitConfig{
		Name:   "shared",
		Limit:  2,
		Window: time.Minute,
	}))

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/test", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/test", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	// A second instance sharing the store sees the same counter
	other := rateLimitedRouter(RedisRateLimitMiddleware(store, RateLimitConfig{
		Name:   "shared",
		Limit:  2,
		Window: time.Minute,
	}))
	w = httptest.NewRecorder()
	other.ServeHTTP(w, httptest.NewRequest("GET", "/test", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestDefaultConfigs(t *testing.T) {
	defaultConfig := DefaultRateLimitConfig()
	assert.Equal(t, 100, defaultConfig.Limit)
	assert.Equal(t, time.Minute, defaultConfig.Window)

	authConfig := AuthRateLimitConfig()
	assert.Equal(t, 10, authConfig.Limit)
	assert.Equal(t, time.Minute, authConfig.Window)

	uploadConfig := UploadRateLimitConfig()
	assert.Equal(t, 20, uploadConfig.Limit)
	assert.NotNil(t, uploadConfig.KeyFunc)
}
