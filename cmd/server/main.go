package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/nextolk/backend/internal/auth"
	"github.com/nextolk/backend/internal/cache"
	"github.com/nextolk/backend/internal/config"
	"github.com/nextolk/backend/internal/database"
	"github.com/nextolk/backend/internal/handlers"
	"github.com/nextolk/backend/internal/logger"
	"github.com/nextolk/backend/internal/maintenance"
	"github.com/nextolk/backend/internal/metrics"
	"github.com/nextolk/backend/internal/middleware"
	"github.com/nextolk/backend/internal/otp"
	"github.com/nextolk/backend/internal/queue"
	"github.com/nextolk/backend/internal/search"
	"github.com/nextolk/backend/internal/storage"
	"github.com/nextolk/backend/internal/telemetry"
	"github.com/nextolk/backend/internal/validation"
	"github.com/nextolk/backend/internal/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		fmt.Println("Warning: .env file not found, using system environment variables")
	}

	ctx := context.Background()
	cfg, err := config.Load(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Initialize(cfg.Log.Level, cfg.Log.File); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Close()

	logger.Log.Info("Nextolk server starting",
		zap.String("environment", cfg.Environment),
		zap.Bool("debug", cfg.Debug))

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize tracing
	shutdownTracer, err := telemetry.InitTracer(telemetry.Config{
		ServiceName:  telemetry.ServiceName,
		Environment:  cfg.Environment,
		OTLPEndpoint: cfg.Telemetry.Endpoint,
		Enabled:      cfg.Telemetry.Enabled,
		SamplingRate: cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		logger.Log.Warn("Tracing disabled", zap.Error(err))
	}
	metrics.Initialize()

	// Initialize database
	if err := database.Initialize(cfg.Database, cfg.Debug); err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer database.Close()
	if cfg.Telemetry.Enabled {
		if err := database.DB.Use(telemetry.GORMTracingPlugin()); err != nil {
			logger.Log.Warn("Failed to install database tracing", zap.Error(err))
		}
	}

	// Run migrations
	if err := database.Migrate(); err != nil {
		logger.Log.Fatal("Failed to run migrations", zap.Error(err))
	}

	// Redis backs the caches, OTP throttling and rate limits when present
	var redisClient *cache.RedisClient
	var store cache.Store = cache.NewMemoryStore()
	if cfg.RedisEnabled() {
		redisClient, err = cache.NewRedisClient(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password)
		if err != nil {
			logger.Log.Warn("Redis unavailable, using in-process caches", zap.Error(err))
			redisClient = nil
		} else {
			store = redisClient
			defer redisClient.Close()
		}
	}

	if err := validation.NewServiceValidator(cfg).ValidateServices(ctx); err != nil {
		logger.Log.Fatal("Required service unavailable", zap.Error(err))
	}

	authService := auth.NewService([]byte(cfg.Auth.JWTSecret), cfg.Auth.AccessTTL, cfg.Auth.RefreshTTL)

	// Initialize media storage
	mediaStore, err := storage.FromConfig(ctx, cfg)
	if err != nil {
		logger.Log.Fatal("Failed to initialize media storage", zap.Error(err))
	}
	if s3Store, ok := mediaStore.(*storage.S3Store); ok {
		if err := s3Store.CheckBucketAccess(ctx); err != nil {
			logger.Log.Warn("S3 bucket access failed; uploads will fail", zap.Error(err))
		}
	}

	// Start the transcode queue when FFmpeg is installed. Without it uploads
	// stay pending until a server with FFmpeg sweeps them.
	var videoQueue *queue.VideoQueue
	if err := queue.CheckFFmpegAvailable(); err != nil {
		logger.Log.Warn("FFmpeg not available, video transcoding disabled", zap.Error(err))
	} else {
		videoQueue = queue.NewVideoQueue(queue.Options{
			DB:        database.DB,
			Store:     mediaStore,
			Workers:   cfg.TranscodeWorkers(),
			QueueSize: cfg.Transcode.QueueSize,
			Timeout:   cfg.Transcode.Timeout,
			TempDir:   cfg.Transcode.TempDir,
		})
		videoQueue.Start()
	}

	// Initialize search
	var searchClient *search.Client
	if cfg.ElasticsearchURL != "" {
		searchClient, err = search.NewClient(cfg.ElasticsearchURL)
		if err == nil {
			err = searchClient.InitializeIndices(ctx)
		}
		if err != nil {
			logger.Log.Warn("Elasticsearch unavailable, searching the database", zap.Error(err))
			searchClient = nil
		}
	}
	searchService := search.NewService(searchClient, database.DB, store)

	// Initialize WebSocket hub and handler
	wsHub := websocket.NewHub()
	go wsHub.Run()
	wsHandler := websocket.NewHandler(wsHub, authService, cfg.WebSocketOriginPatterns())

	// Initialize handlers
	h := handlers.NewHandlers(authService, mediaStore, videoQueue)
	h.SetOTPService(otp.NewService(cfg.OTP.TTL, cfg.OTP.RequestsPerMinute, otp.LogSender{}, store))
	h.SetWebSocketHub(wsHub)
	h.SetSearchService(searchService)
	h.SetCache(store)
	h.SetRedis(redisClient)
	h.SetDebug(cfg.Debug)
	h.SetMaxVideoUploadBytes(cfg.MaxVideoUploadBytes())
	if videoQueue != nil {
		videoQueue.SetCompletionCallback(h.OnVideoProcessed)
	}

	// Schedule the maintenance sweep
	sweepOpts := maintenance.Options{
		DB:         database.DB,
		Search:     searchService,
		Schedule:   cfg.Schedule.Schedule,
		StuckAfter: cfg.Schedule.StuckVideoAfter,
	}
	if videoQueue != nil {
		sweepOpts.Queue = videoQueue
	}
	sweeper := maintenance.New(sweepOpts)
	if err := sweeper.Start(); err != nil {
		logger.Log.Fatal("Failed to start maintenance scheduler", zap.Error(err))
	}

	// Setup Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.GinLoggerMiddleware())
	if cfg.Telemetry.Enabled {
		r.Use(middleware.TracingMiddleware(telemetry.ServiceName))
	}
	r.Use(middleware.MetricsMiddleware())
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/api/ws", "/media"})))

	corsConfig := cors.DefaultConfig()
	if cfg.AllowAllOrigins() {
		// reflect the caller's origin so credentialed requests still work
		corsConfig.AllowOriginFunc = func(string) bool { return true }
	} else {
		corsConfig.AllowOrigins = cfg.CORSAllowedOrigins
	}
	corsConfig.AllowCredentials = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "X-Cache", "Retry-After"}
	r.Use(cors.New(corsConfig))
	r.Use(middleware.SmartRateLimit(redisClient, middleware.DefaultRateLimitConfig()))

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if local, ok := mediaStore.(*storage.LocalStore); ok {
		r.Static("/media", local.Root())
	}
	r.GET("/api/ws", wsHandler.HandleWebSocket)

	h.RegisterRoutes(r, handlers.RouteOptions{
		Auth:        middleware.RequireAuth(authService),
		AuthLimit:   middleware.SmartRateLimit(redisClient, middleware.AuthRateLimitConfig()),
		UploadLimit: middleware.SmartRateLimit(redisClient, middleware.UploadRateLimitConfig()),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Log.Info("Nextolk backend listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := wsHandler.Shutdown(shutdownCtx); err != nil {
		logger.Log.Warn("WebSocket shutdown warning", zap.Error(err))
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := sweeper.Stop(shutdownCtx); err != nil {
		logger.Log.Warn("Maintenance sweep still running at shutdown", zap.Error(err))
	}
	if videoQueue != nil {
		videoQueue.Stop()
	}
	if err := shutdownTracer(shutdownCtx); err != nil {
		logger.Log.Warn("Failed to flush traces", zap.Error(err))
	}

	logger.Log.Info("Server exited")
}
