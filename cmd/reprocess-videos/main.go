package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/nextolk/backend/internal/config"
	"github.com/nextolk/backend/internal/database"
	"github.com/nextolk/backend/internal/logger"
	"github.com/nextolk/backend/internal/maintenance"
	"github.com/nextolk/backend/internal/queue"
	"github.com/nextolk/backend/internal/storage"
	"go.uber.org/zap"
)

func main() {
	godotenv.Load()

	videoID := flag.Uint("id", 0, "Re-queue a single video")
	resetFailed := flag.Bool("failed", false, "Reset failed videos to pending before sweeping")
	wait := flag.Duration("wait", 30*time.Minute, "How long to wait for queued transcodes")
	flag.Parse()

	ctx := context.Background()
	cfg, err := config.Load(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Initialize(cfg.Log.Level, "logs/reprocess.log"); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Close()

	if err := queue.CheckFFmpegAvailable(); err != nil {
		logger.Log.Fatal("FFmpeg is required to reprocess videos", zap.Error(err))
	}
	if err := database.Initialize(cfg.Database, false); err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer database.Close()

	store, err := storage.FromConfig(ctx, cfg)
	if err != nil {
		logger.Log.Fatal("Failed to initialize media storage", zap.Error(err))
	}

	videoQueue := queue.NewVideoQueue(queue.Options{
		DB:        database.DB,
		Store:     store,
		Workers:   cfg.TranscodeWorkers(),
		QueueSize: cfg.Transcode.QueueSize,
		Timeout:   cfg.Transcode.Timeout,
		TempDir:   cfg.Transcode.TempDir,
	})
	videoQueue.Start()
	defer videoQueue.Stop()

	if *videoID != 0 {
		if err := maintenance.RequeueVideo(ctx, database.DB, videoQueue, *videoID, *resetFailed); err != nil {
			logger.Log.Fatal("Failed to re-queue video", logger.WithVideoID(*videoID), zap.Error(err))
		}
		logger.Log.Info("Video re-queued", logger.WithVideoID(*videoID))
	} else {
		if *resetFailed {
			n, err := maintenance.ResetFailed(ctx, database.DB)
			if err != nil {
				logger.Log.Fatal("Failed to reset failed videos", zap.Error(err))
			}
			logger.Log.Info("Reset failed videos", zap.Int64("count", n))
		}

		// no grace period: everything pending is fair game
		sweeper := maintenance.New(maintenance.Options{
			DB:           database.DB,
			Queue:        videoQueue,
			StuckAfter:   cfg.Schedule.StuckVideoAfter,
			PendingGrace: time.Nanosecond,
		})
		report, err := sweeper.RunOnce(ctx)
		if err != nil {
			logger.Log.Error("Sweep finished with errors", zap.Error(err))
		}
		if report.Deferred > 0 {
			logger.Log.Warn("Queue filled up; run again for the rest", zap.Int("deferred", report.Deferred))
		}
	}

	if !waitForIdle(videoQueue, *wait) {
		logger.Log.Warn("Gave up waiting for transcodes; unfinished videos stay pending", logger.WithDuration(*wait))
		return
	}
	stats := videoQueue.Stats()
	logger.Log.Info("Reprocessing finished",
		zap.Int("complete", stats[queue.JobComplete]),
		zap.Int("failed", stats[queue.JobFailed]),
		zap.Int("skipped", stats[queue.JobSkipped]))
}

func waitForIdle(q *queue.VideoQueue, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		stats := q.Stats()
		if stats["queued"] == 0 && stats[queue.JobPending] == 0 && stats[queue.JobProcessing] == 0 {
			return true
		}
		time.Sleep(time.Second)
	}
	return false
}
