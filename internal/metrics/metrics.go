package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal     *prometheus.CounterVec
	HTTPRequestDuration   *prometheus.HistogramVec
	HTTPResponseSize      *prometheus.HistogramVec
	HTTPActiveConnections prometheus.Gauge

	// Rate limiting
	RateLimitExceededTotal *prometheus.CounterVec

	// Transcode pipeline
	TranscodeJobsTotal   *prometheus.CounterVec
	TranscodeDuration    *prometheus.HistogramVec
	TranscodeQueueDepth  prometheus.Gauge
	VideoUploadsTotal    *prometheus.CounterVec
	VideoUploadSizeBytes prometheus.Histogram

	// Social engagement
	LikesTotal    *prometheus.CounterVec
	FollowsTotal  *prometheus.CounterVec
	CommentsTotal *prometheus.CounterVec

	// OTP
	OTPRequestsTotal      *prometheus.CounterVec
	OTPVerificationsTotal *prometheus.CounterVec

	// Realtime and search
	WebSocketConnections prometheus.Gauge
	SearchRequestsTotal  *prometheus.CounterVec

	// Cache
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec

	// Maintenance sweeps
	MaintenanceRunsTotal *prometheus.CounterVec

	ErrorsTotal *prometheus.CounterVec
}

var (
	instance *Metrics
	once     sync.Once
)

// Initialize creates and registers all Prometheus metrics once
func Initialize() *Metrics {
	once.Do(func() {
		instance = &Metrics{
			HTTPRequestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "http_requests_total",
					Help: "Total number of HTTP requests",
				},
				[]string{"method", "path", "status"},
			),
			HTTPRequestDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "http_request_duration_seconds",
					Help:    "HTTP request latency in seconds",
					Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
				},
				[]string{"method", "path", "status"},
			),
			HTTPResponseSize: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "http_response_size_bytes",
					Help:    "HTTP response body size in bytes",
					Buckets: prometheus.ExponentialBuckets(100, 10, 7),
				},
				[]string{"method", "path"},
			),
			HTTPActiveConnections: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "http_active_requests",
					Help: "Requests currently being served",
				},
			),
			RateLimitExceededTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "rate_limit_exceeded_total",
					Help: "Requests rejected by a rate limiter",
				},
				[]string{"limiter"},
			),
			TranscodeJobsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "transcode_jobs_total",
					Help: "Transcode jobs by final status",
				},
				[]string{"status"},
			),
			TranscodeDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "transcode_duration_seconds",
					Help:    "Time spent per transcode stage",
					Buckets: []float64{0.5, 1, 5, 10, 30, 60, 120, 300, 600},
				},
				[]string{"stage"},
			),
			TranscodeQueueDepth: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "transcode_queue_depth",
					Help: "Jobs waiting in the transcode queue",
				},
			),
			VideoUploadsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "video_uploads_total",
					Help: "Video uploads by outcome",
				},
				[]string{"status"},
			),
			VideoUploadSizeBytes: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "video_upload_size_bytes",
					Help:    "Size of uploaded source videos",
					Buckets: prometheus.ExponentialBuckets(1<<20, 2, 9),
				},
			),
			LikesTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "video_likes_total",
					Help: "Like toggles by action",
				},
				[]string{"action"},
			),
			FollowsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "follows_total",
					Help: "Follow toggles by action",
				},
				[]string{"action"},
			),
			CommentsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "comments_total",
					Help: "Comment writes by action",
				},
				[]string{"action"},
			),
			OTPRequestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "otp_requests_total",
					Help: "OTP requests by outcome",
				},
				[]string{"status"},
			),
			OTPVerificationsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "otp_verifications_total",
					Help: "OTP verifications by outcome",
				},
				[]string{"status"},
			),
			WebSocketConnections: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "websocket_connections",
					Help: "Open websocket connections",
				},
			),
			SearchRequestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "search_requests_total",
					Help: "Search requests by index and backend",
				},
				[]string{"index", "backend"},
			),
			CacheHitsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "cache_hits_total",
					Help: "Cache hits by cache name",
				},
				[]string{"cache"},
			),
			CacheMissesTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "cache_misses_total",
					Help: "Cache misses by cache name",
				},
				[]string{"cache"},
			),
			MaintenanceRunsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "maintenance_runs_total",
					Help: "Maintenance sweep runs by task and outcome",
				},
				[]string{"task", "status"},
			),
			ErrorsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "errors_total",
					Help: "Total number of errors by type",
				},
				[]string{"error_type", "endpoint"},
			),
		}
	})
	return instance
}

// Get returns the global metrics instance
func Get() *Metrics {
	return Initialize()
}
