package middleware

import (
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	apierrors "github.com/nextolk/backend/internal/errors"
	"github.com/nextolk/backend/internal/util"
	"golang.org/x/time/rate"
)

// RateLimitConfig holds configuration for rate limiting
type RateLimitConfig struct {
	// Name labels the limiter in metrics and Redis keys
	Name string
	// Requests per window
	Limit int
	// Window duration
	Window time.Duration
	// KeyFunc picks the bucket; defaults to the client IP
	KeyFunc func(c *gin.Context) string
}

// DefaultRateLimitConfig returns sensible defaults
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Name:   "default",
		Limit:  100,
		Window: time.Minute,
	}
}

// AuthRateLimitConfig returns stricter limits for auth endpoints
func AuthRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Name:   "auth",
		Limit:  10,
		Window: time.Minute,
	}
}

// UploadRateLimitConfig returns limits for upload endpoints, keyed per user
func UploadRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Name:    "upload",
		Limit:   20,
		Window:  time.Minute,
		KeyFunc: userOrIPKey,
	}
}

func (cfg RateLimitConfig) key(c *gin.Context) string {
	if cfg.KeyFunc != nil {
		return cfg.KeyFunc(c)
	}
	return c.ClientIP()
}

func userOrIPKey(c *gin.Context) string {
	if id, ok := util.OptionalUserID(c); ok {
		return "user:" + strconv.FormatUint(uint64(id), 10)
	}
	return c.ClientIP()
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per key. Buckets refill at
// Limit/Window and hold at most Limit tokens.
type RateLimiter struct {
	config  RateLimitConfig
	limit   rate.Limit
	mu      sync.Mutex
	entries map[string]*limiterEntry
}

// NewRateLimiter creates a limiter; call Middleware to get the handler
func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	if config.Limit <= 0 {
		config.Limit = DefaultRateLimitConfig().Limit
	}
	if config.Window <= 0 {
		config.Window = time.Minute
	}
	return &RateLimiter{
		config:  config,
		limit:   rate.Limit(float64(config.Limit) / config.Window.Seconds()),
		entries: make(map[string]*limiterEntry),
	}
}

func (rl *RateLimiter) get(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	e, ok := rl.entries[key]
	if !ok {
		if len(rl.entries) > 10000 {
			rl.evictLocked(now)
		}
		e = &limiterEntry{limiter: rate.NewLimiter(rl.limit, rl.config.Limit)}
		rl.entries[key] = e
	}
	e.lastSeen = now
	return e.limiter
}

// evictLocked drops buckets idle for longer than a window; they would be
// full again anyway
func (rl *RateLimiter) evictLocked(now time.Time) {
	for k, e := range rl.entries {
		if now.Sub(e.lastSeen) > rl.config.Window {
			delete(rl.entries, k)
		}
	}
}

// Allow takes a token for key. When none is left it reports how long until
// the next one.
func (rl *RateLimiter) Allow(key string) (bool, time.Duration) {
	limiter := rl.get(key)
	r := limiter.Reserve()
	delay := r.Delay()
	if delay == 0 {
		return true, 0
	}
	r.Cancel()
	return false, delay
}

// Middleware returns the gin handler
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, retryAfter := rl.Allow(rl.config.key(c))
		if !ok {
			rejectRateLimited(c, rl.config, retryAfter)
			return
		}
		c.Next()
	}
}

func rejectRateLimited(c *gin.Context, cfg RateLimitConfig, retryAfter time.Duration) {
	seconds := int(math.Ceil(retryAfter.Seconds()))
	if seconds < 1 {
		seconds = 1
	}
	RecordRateLimitExceeded(cfg.Name)
	c.Header("Retry-After", strconv.Itoa(seconds))
	c.Header("X-RateLimit-Limit", strconv.Itoa(cfg.Limit))
	c.Header("X-RateLimit-Remaining", "0")
	util.RespondWithAPIError(c, apierrors.RateLimited("Request was throttled.").
		WithDetails("Expected available in "+strconv.Itoa(seconds)+" seconds."))
}
