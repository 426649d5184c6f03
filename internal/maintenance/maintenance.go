// Package maintenance runs the periodic housekeeping sweep: re-queueing
// videos the transcode pipeline lost track of and purging dead OTP records.
package maintenance

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nextolk/backend/internal/logger"
	"github.com/nextolk/backend/internal/metrics"
	"github.com/nextolk/backend/internal/models"
	"github.com/nextolk/backend/internal/otp"
	"github.com/nextolk/backend/internal/queue"
	"github.com/nextolk/backend/internal/telemetry"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Submitter accepts transcode jobs. *queue.VideoQueue satisfies it.
type Submitter interface {
	SubmitJob(videoID, userID uint, sourceKey, tempFilePath string) (*queue.VideoJob, error)
}

// Reconciler refreshes search documents. *search.Service satisfies it.
type Reconciler interface {
	Reconcile(ctx context.Context, sample int) (int, error)
}

// DefaultPendingGrace is how long a pending video may wait before the sweep
// assumes its job was never queued.
const DefaultPendingGrace = 2 * time.Minute

// Options configures a Sweeper
type Options struct {
	DB       *gorm.DB
	Queue    Submitter  // nil skips the video requeue
	Search   Reconciler // optional
	Schedule string     // cron spec, e.g. "@every 5m"

	// StuckAfter is how long a video may sit in processing before it is
	// reset to pending
	StuckAfter   time.Duration
	PendingGrace time.Duration
	RunTimeout   time.Duration
}

// Report summarizes one sweep
type Report struct {
	Reset      int   `json:"reset"`
	Requeued   int   `json:"requeued"`
	Deferred   int   `json:"deferred"`
	PurgedOTPs int64 `json:"purged_otps"`
	Reindexed  int   `json:"reindexed"`
}

// Sweeper runs the maintenance sweep on a cron schedule
type Sweeper struct {
	opts Options
	now  func() time.Time

	cron *cron.Cron
	mu   sync.Mutex // serializes sweeps
}

// New builds a Sweeper, filling defaults
func New(opts Options) *Sweeper {
	if opts.Schedule == "" {
		opts.Schedule = "@every 5m"
	}
	if opts.StuckAfter <= 0 {
		opts.StuckAfter = 30 * time.Minute
	}
	if opts.PendingGrace <= 0 {
		opts.PendingGrace = DefaultPendingGrace
	}
	if opts.RunTimeout <= 0 {
		opts.RunTimeout = 5 * time.Minute
	}
	return &Sweeper{opts: opts, now: time.Now}
}

// Start schedules the sweep. Overlapping runs are skipped.
func (s *Sweeper) Start() error {
	cronLog := cronLogger{log: logger.Log.Named("maintenance")}
	c := cron.New(
		cron.WithLogger(cronLog),
		cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
	)

	_, err := c.AddFunc(s.opts.Schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.opts.RunTimeout)
		defer cancel()
		if _, err := s.RunOnce(ctx); err != nil {
			logger.Log.Error("Maintenance sweep failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("invalid maintenance schedule %q: %w", s.opts.Schedule, err)
	}

	s.cron = c
	c.Start()
	logger.Log.Info("Maintenance scheduler started", zap.String("schedule", s.opts.Schedule))
	return nil
}

// Stop stops the scheduler and waits for a running sweep to finish
func (s *Sweeper) Stop(ctx context.Context) error {
	if s.cron == nil {
		return nil
	}
	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce performs one sweep. Task failures are logged and the remaining
// tasks still run; the first error is returned.
func (s *Sweeper) RunOnce(ctx context.Context) (*Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := s.now()
	report := &Report{}
	var firstErr error
	ctx, span := telemetry.StartSpan(ctx, "maintenance.sweep")
	defer func() { telemetry.EndSpan(span, firstErr) }()
	record := func(task string, err error) {
		status := "success"
		if err != nil {
			status = "error"
			logger.Log.Warn("Maintenance task failed", zap.String("task", task), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
		metrics.Get().MaintenanceRunsTotal.WithLabelValues(task, status).Inc()
	}

	if s.opts.Queue != nil {
		record("requeue_videos", s.requeueStuck(ctx, report))
	}

	purged, err := otp.PurgeExpired(ctx, s.opts.DB, start)
	report.PurgedOTPs = purged
	record("purge_otps", err)

	if s.opts.Search != nil {
		n, err := s.opts.Search.Reconcile(ctx, 0)
		report.Reindexed = n
		record("reconcile_search", err)
	}

	logger.Log.Info("Maintenance sweep completed",
		zap.Int("reset", report.Reset),
		zap.Int("requeued", report.Requeued),
		zap.Int("deferred", report.Deferred),
		zap.Int64("purged_otps", report.PurgedOTPs),
		zap.Int("reindexed", report.Reindexed),
		logger.WithDuration(s.now().Sub(start)),
	)
	return report, firstErr
}

// requeueStuck resets long-running processing videos to pending, then
// submits every pending video older than the grace period.
func (s *Sweeper) requeueStuck(ctx context.Context, report *Report) error {
	db := s.opts.DB.WithContext(ctx)
	now := s.now().UTC()

	var stuckIDs []uint
	if err := db.Model(&models.Video{}).
		Where("processing_status = ? AND updated_at < ?", models.ProcessingProcessing, now.Add(-s.opts.StuckAfter)).
		Pluck("id", &stuckIDs).Error; err != nil {
		return fmt.Errorf("failed to find stuck videos: %w", err)
	}
	if len(stuckIDs) > 0 {
		// status is re-checked so a job finishing right now keeps its result
		res := db.Model(&models.Video{}).
			Where("id IN ? AND processing_status = ?", stuckIDs, models.ProcessingProcessing).
			Updates(map[string]interface{}{
				"processing_status": models.ProcessingPending,
				"processing_error":  "",
			})
		if res.Error != nil {
			return fmt.Errorf("failed to reset stuck videos: %w", res.Error)
		}
		report.Reset = int(res.RowsAffected)
	}

	var videos []models.Video
	q := db.Where("processing_status = ? AND updated_at < ?", models.ProcessingPending, now.Add(-s.opts.PendingGrace))
	if len(stuckIDs) > 0 {
		q = db.Where("processing_status = ? AND (updated_at < ? OR id IN ?)",
			models.ProcessingPending, now.Add(-s.opts.PendingGrace), stuckIDs)
	}
	if err := q.Order("id").Find(&videos).Error; err != nil {
		return fmt.Errorf("failed to list pending videos: %w", err)
	}

	for i, v := range videos {
		if _, err := s.opts.Queue.SubmitJob(v.ID, v.UserID, v.VideoFile, ""); err != nil {
			if errors.Is(err, queue.ErrQueueFull) {
				report.Deferred = len(videos) - i
				logger.Log.Info("Transcode queue full, deferring remaining videos", zap.Int("deferred", report.Deferred))
				return nil
			}
			return fmt.Errorf("failed to requeue video %d: %w", v.ID, err)
		}
		report.Requeued++
	}
	return nil
}

// RequeueVideo puts a single video back through the pipeline. Failed videos
// are only retried when resetFailed is set; completed videos are left alone.
func RequeueVideo(ctx context.Context, db *gorm.DB, q Submitter, videoID uint, resetFailed bool) error {
	var video models.Video
	if err := db.WithContext(ctx).First(&video, videoID).Error; err != nil {
		return fmt.Errorf("failed to load video %d: %w", videoID, err)
	}

	switch video.ProcessingStatus {
	case models.ProcessingComplete:
		return fmt.Errorf("video %d is already processed", videoID)
	case models.ProcessingFailed:
		if !resetFailed {
			return fmt.Errorf("video %d failed processing; pass -failed to retry it", videoID)
		}
	}

	if video.ProcessingStatus != models.ProcessingPending {
		if err := db.WithContext(ctx).Model(&video).Updates(map[string]interface{}{
			"processing_status": models.ProcessingPending,
			"processing_error":  "",
		}).Error; err != nil {
			return fmt.Errorf("failed to reset video %d: %w", videoID, err)
		}
	}

	_, err := q.SubmitJob(video.ID, video.UserID, video.VideoFile, "")
	return err
}

// ResetFailed moves every failed video back to pending so the next sweep
// picks it up. The original upload is still in storage after a failure.
func ResetFailed(ctx context.Context, db *gorm.DB) (int64, error) {
	res := db.WithContext(ctx).Model(&models.Video{}).
		Where("processing_status = ?", models.ProcessingFailed).
		Updates(map[string]interface{}{
			"processing_status": models.ProcessingPending,
			"processing_error":  "",
		})
	return res.RowsAffected, res.Error
}

// cronLogger adapts zap to cron.Logger
type cronLogger struct {
	log *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Sugar().Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
