package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nextolk/backend/internal/metrics"
)

// MetricsMiddleware collects HTTP metrics for Prometheus. Paths are the
// matched route templates so IDs do not explode label cardinality.
func MetricsMiddleware() gin.HandlerFunc {
	m := metrics.Get()

	return func(c *gin.Context) {
		m.HTTPActiveConnections.Inc()
		defer m.HTTPActiveConnections.Dec()

		startTime := time.Now()
		c.Next()

		method := c.Request.Method
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		// Numeric status so queries like status=~"5.." work
		status := strconv.Itoa(c.Writer.Status())

		m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
		m.HTTPRequestDuration.WithLabelValues(method, path, status).Observe(time.Since(startTime).Seconds())
		if size := c.Writer.Size(); size > 0 {
			m.HTTPResponseSize.WithLabelValues(method, path).Observe(float64(size))
		}
		if c.Writer.Status() >= 500 {
			RecordError("http_5xx", path)
		}
	}
}

func RecordCacheHit(cacheName string) {
	metrics.Get().CacheHitsTotal.WithLabelValues(cacheName).Inc()
}

func RecordCacheMiss(cacheName string) {
	metrics.Get().CacheMissesTotal.WithLabelValues(cacheName).Inc()
}

// RecordRateLimitExceeded counts a rejected request
func RecordRateLimitExceeded(limiter string) {
	metrics.Get().RateLimitExceededTotal.WithLabelValues(limiter).Inc()
}

// RecordError counts errors by type
func RecordError(errorType, endpoint string) {
	metrics.Get().ErrorsTotal.WithLabelValues(errorType, endpoint).Inc()
}
