package queue

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nextolk/backend/internal/logger"
	"github.com/nextolk/backend/internal/metrics"
	"github.com/nextolk/backend/internal/models"
	"github.com/nextolk/backend/internal/storage"
	"github.com/nextolk/backend/internal/telemetry"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Job statuses
const (
	JobPending    = "pending"
	JobProcessing = "processing"
	JobComplete   = "complete"
	JobFailed     = "failed"
	JobSkipped    = "skipped"
)

// maxDefaultWorkers caps the NumCPU default, matching config.TranscodeWorkers
const maxDefaultWorkers = 8

var (
	ErrQueueFull    = errors.New("queue is full")
	ErrQueueStopped = errors.New("queue is stopped")
	ErrJobNotFound  = errors.New("job not found")
)

// VideoJob represents one transcode of an uploaded video
type VideoJob struct {
	ID           string          `json:"id"`
	VideoID      uint            `json:"video_id"`
	UserID       uint            `json:"user_id"`
	SourceKey    string          `json:"source_key"`
	TempFilePath string          `json:"temp_file_path,omitempty"`
	Status       string          `json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
	ErrorMessage *string         `json:"error_message,omitempty"`
	Result       *VideoJobResult `json:"result,omitempty"`
}

// VideoJobResult contains the processing result
type VideoJobResult struct {
	VideoKey     string  `json:"video_key"`
	ThumbnailKey string  `json:"thumbnail_key,omitempty"`
	Duration     float64 `json:"duration"`
	Size         int64   `json:"size"`
}

// CompletionCallback runs after a job finishes. err is nil on success.
type CompletionCallback func(video *models.Video, err error)

// Options configures a VideoQueue. Zero values pick sensible defaults.
type Options struct {
	DB         *gorm.DB
	Store      storage.MediaStore
	Transcoder Transcoder
	Workers    int
	QueueSize  int
	Timeout    time.Duration
	TempDir    string
}

// VideoQueue runs transcodes on a bounded worker pool
type VideoQueue struct {
	jobs       chan *VideoJob
	results    map[string]*VideoJob
	resultsMux sync.RWMutex
	workers    int
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	startOnce  sync.Once

	db         *gorm.DB
	store      storage.MediaStore
	transcoder Transcoder
	tempDir    string
	timeout    time.Duration

	callbackMux sync.RWMutex
	onComplete  CompletionCallback

	// For testing: receives job IDs as they finish
	jobCompleted chan string
}

// NewVideoQueue creates a new transcode queue
func NewVideoQueue(opts Options) *VideoQueue {
	ctx, cancel := context.WithCancel(context.Background())

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
		if workers > maxDefaultWorkers {
			workers = maxDefaultWorkers
		}
	}
	queueSize := opts.QueueSize
	if queueSize <= 0 {
		queueSize = 100
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	tempDir := opts.TempDir
	if tempDir == "" {
		tempDir = filepath.Join(os.TempDir(), "nextolk_transcode")
	}
	if err := os.MkdirAll(tempDir, 0755); err != nil {
		logger.Log.Warn("Failed to create temp directory", zap.String("temp_dir", tempDir), zap.Error(err))
	}

	transcoder := opts.Transcoder
	if transcoder == nil {
		transcoder = NewFFmpegTranscoder()
	}

	return &VideoQueue{
		jobs:         make(chan *VideoJob, queueSize),
		results:      make(map[string]*VideoJob),
		workers:      workers,
		ctx:          ctx,
		cancel:       cancel,
		db:           opts.DB,
		store:        opts.Store,
		transcoder:   transcoder,
		tempDir:      tempDir,
		timeout:      timeout,
		jobCompleted: make(chan string, queueSize),
	}
}

// SetCompletionCallback sets the function called after every finished job
func (q *VideoQueue) SetCompletionCallback(callback CompletionCallback) {
	q.callbackMux.Lock()
	defer q.callbackMux.Unlock()
	q.onComplete = callback
}

// TempDir is where uploads wait for their worker
func (q *VideoQueue) TempDir() string {
	return q.tempDir
}

// Start begins processing jobs with the worker pool
func (q *VideoQueue) Start() {
	q.startOnce.Do(func() {
		logger.Log.Info("Starting video queue", zap.Int("workers", q.workers))
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go q.worker(i)
		}
	})
}

// Stop cancels in-flight work and waits for the workers to exit. Interrupted
// videos go back to pending and buffered jobs are dropped, leaving both for
// the maintenance sweep.
func (q *VideoQueue) Stop() {
	q.cancel()
	q.wg.Wait()
}

// SubmitJob queues a video for transcoding. tempFilePath may be empty, in
// which case the worker downloads sourceKey from the store.
func (q *VideoQueue) SubmitJob(videoID, userID uint, sourceKey, tempFilePath string) (*VideoJob, error) {
	if q.ctx.Err() != nil {
		return nil, ErrQueueStopped
	}

	job := &VideoJob{
		ID:           uuid.New().String(),
		VideoID:      videoID,
		UserID:       userID,
		SourceKey:    sourceKey,
		TempFilePath: tempFilePath,
		Status:       JobPending,
		CreatedAt:    time.Now(),
	}

	q.resultsMux.Lock()
	q.pruneResultsLocked(time.Hour)
	q.results[job.ID] = job
	q.resultsMux.Unlock()

	select {
	case q.jobs <- job:
		metrics.Get().TranscodeQueueDepth.Set(float64(len(q.jobs)))
		return job, nil
	default:
		q.resultsMux.Lock()
		delete(q.results, job.ID)
		q.resultsMux.Unlock()
		return nil, ErrQueueFull
	}
}

// GetJobStatus returns a copy of the job's current state
func (q *VideoQueue) GetJobStatus(jobID string) (*VideoJob, error) {
	q.resultsMux.RLock()
	defer q.resultsMux.RUnlock()

	job, exists := q.results[jobID]
	if !exists {
		return nil, ErrJobNotFound
	}
	snapshot := *job
	return &snapshot, nil
}

// Stats reports queue depth and job counts by status
func (q *VideoQueue) Stats() map[string]int {
	q.resultsMux.RLock()
	defer q.resultsMux.RUnlock()

	stats := map[string]int{
		"workers": q.workers,
		"queued":  len(q.jobs),
	}
	for _, job := range q.results {
		stats[job.Status]++
	}
	return stats
}

// WaitForJobCompletion waits for a specific job to complete (for testing)
func (q *VideoQueue) WaitForJobCompletion(jobID string, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case completedJobID := <-q.jobCompleted:
			if completedJobID == jobID {
				return nil
			}
		case <-timer.C:
			return fmt.Errorf("timeout waiting for job %s", jobID)
		case <-q.ctx.Done():
			return fmt.Errorf("queue stopped")
		}
	}
}

// pruneResultsLocked forgets finished jobs older than maxAge
func (q *VideoQueue) pruneResultsLocked(maxAge time.Duration) {
	cutoff := time.Now().Add(-maxAge)
	for id, job := range q.results {
		if job.CompletedAt != nil && job.CompletedAt.Before(cutoff) {
			delete(q.results, id)
		}
	}
}

func (q *VideoQueue) worker(workerID int) {
	defer q.wg.Done()
	logger.Log.Debug("Video worker started", zap.Int("worker_id", workerID))

	for {
		select {
		case job := <-q.jobs:
			metrics.Get().TranscodeQueueDepth.Set(float64(len(q.jobs)))
			q.processJob(workerID, job)
		case <-q.ctx.Done():
			logger.Log.Debug("Video worker shutting down", zap.Int("worker_id", workerID))
			return
		}
	}
}

func (q *VideoQueue) processJob(workerID int, job *VideoJob) {
	log := logger.Log.With(zap.Int("worker_id", workerID), logger.WithJobID(job.ID), logger.WithVideoID(job.VideoID))
	startTime := time.Now()

	if job.TempFilePath != "" {
		defer os.Remove(job.TempFilePath)
	}
	defer q.signalCompletion(job.ID)

	claimed, err := q.claim(job.VideoID)
	if err != nil {
		q.fail(job, log, fmt.Errorf("failed to claim video: %w", err))
		return
	}
	if !claimed {
		log.Info("Video is not pending, skipping")
		q.updateJobStatus(job.ID, JobSkipped, nil, nil)
		metrics.Get().TranscodeJobsTotal.WithLabelValues(JobSkipped).Inc()
		return
	}
	q.updateJobStatus(job.ID, JobProcessing, nil, nil)

	ctx, cancel := context.WithTimeout(q.ctx, q.timeout)
	defer cancel()
	ctx, span := telemetry.TraceTranscode(ctx, job.ID, job.VideoID)
	var jobErr error
	defer func() { telemetry.EndSpan(span, jobErr) }()

	if hasTranscodedSuffix(job.SourceKey) {
		log.Info("Source is already transcoded, marking complete")
		result := &VideoJobResult{VideoKey: job.SourceKey}
		if jobErr = q.markComplete(job.VideoID, result, ""); jobErr != nil {
			q.fail(job, log, jobErr)
			return
		}
		q.finish(job, log, result, startTime)
		return
	}

	result, jobErr := q.transcode(ctx, job, log)
	if jobErr != nil {
		if q.ctx.Err() != nil {
			q.release(job, log)
			return
		}
		q.fail(job, log, jobErr)
		return
	}

	if jobErr = q.markComplete(job.VideoID, result, job.SourceKey); jobErr != nil {
		q.deleteQuietly(result.VideoKey)
		q.deleteQuietly(result.ThumbnailKey)
		q.fail(job, log, jobErr)
		return
	}

	if result.VideoKey != job.SourceKey {
		q.deleteQuietly(job.SourceKey)
	}
	q.finish(job, log, result, startTime)
}

func hasTranscodedSuffix(key string) bool {
	return (&models.Video{VideoFile: key}).IsTranscoded()
}

// transcode produces the streaming MP4 and a thumbnail and uploads both
func (q *VideoQueue) transcode(ctx context.Context, job *VideoJob, log *zap.Logger) (*VideoJobResult, error) {
	inputPath := job.TempFilePath
	if _, err := os.Stat(inputPath); inputPath == "" || err != nil {
		inputPath = filepath.Join(q.tempDir, job.ID+"_source"+path.Ext(job.SourceKey))
		defer os.Remove(inputPath)
		if err := storage.Download(ctx, q.store, job.SourceKey, inputPath); err != nil {
			return nil, fmt.Errorf("failed to fetch source: %w", err)
		}
	}

	outputPath := filepath.Join(q.tempDir, job.ID+models.TranscodedSuffix)
	defer os.Remove(outputPath)

	stageStart := time.Now()
	if err := q.transcoder.Transcode(ctx, inputPath, outputPath); err != nil {
		return nil, fmt.Errorf("transcode failed: %w", err)
	}
	metrics.Get().TranscodeDuration.WithLabelValues("transcode").Observe(time.Since(stageStart).Seconds())

	result := &VideoJobResult{}

	duration, err := q.transcoder.Probe(ctx, outputPath)
	if err != nil {
		log.Warn("Duration probe failed", zap.Error(err))
	} else {
		result.Duration = duration
	}

	thumbPath := filepath.Join(q.tempDir, job.ID+"_thumb.jpg")
	defer os.Remove(thumbPath)
	if err := q.transcoder.Thumbnail(ctx, outputPath, thumbPath); err != nil {
		log.Warn("Thumbnail generation failed", zap.Error(err))
	} else {
		thumbKey := storage.NewKey(storage.ThumbnailsPrefix, "thumb.jpg")
		uploaded, err := storage.SaveFile(ctx, q.store, thumbKey, thumbPath, "image/jpeg")
		if err != nil {
			log.Warn("Thumbnail upload failed", zap.Error(err))
		} else {
			result.ThumbnailKey = uploaded.Key
		}
	}

	stageStart = time.Now()
	uploaded, err := storage.SaveFile(ctx, q.store, models.TranscodedKey(job.SourceKey), outputPath, "video/mp4")
	if err != nil {
		q.deleteQuietly(result.ThumbnailKey)
		return nil, fmt.Errorf("upload failed: %w", err)
	}
	metrics.Get().TranscodeDuration.WithLabelValues("upload").Observe(time.Since(stageStart).Seconds())

	result.VideoKey = uploaded.Key
	result.Size = uploaded.Size
	return result, nil
}

// claim moves a pending video to processing. It reports false when another
// worker already owns the video or it is no longer pending.
func (q *VideoQueue) claim(videoID uint) (bool, error) {
	res := q.db.Model(&models.Video{}).
		Where("id = ? AND processing_status = ?", videoID, models.ProcessingPending).
		Updates(map[string]interface{}{
			"processing_status": models.ProcessingProcessing,
			"processing_error":  "",
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// markComplete swaps in the transcoded file. expectedSource guards against
// the owner replacing the video while the worker ran.
func (q *VideoQueue) markComplete(videoID uint, result *VideoJobResult, expectedSource string) error {
	now := time.Now().UTC()
	updates := map[string]interface{}{
		"video_file":        result.VideoKey,
		"processing_status": models.ProcessingComplete,
		"processing_error":  "",
		"processed_at":      &now,
	}
	if result.ThumbnailKey != "" {
		updates["thumbnail_file"] = result.ThumbnailKey
	}
	if result.Duration > 0 {
		updates["duration_seconds"] = result.Duration
	}

	tx := q.db.Model(&models.Video{}).
		Where("id = ? AND processing_status = ?", videoID, models.ProcessingProcessing)
	if expectedSource != "" {
		tx = tx.Where("video_file = ?", expectedSource)
	}
	res := tx.Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("database update failed: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("video %d changed or was deleted during processing", videoID)
	}
	return nil
}

func (q *VideoQueue) fail(job *VideoJob, log *zap.Logger, jobErr error) {
	errMsg := jobErr.Error()
	log.Error("Video job failed", zap.Error(jobErr))

	err := q.db.Model(&models.Video{}).
		Where("id = ? AND processing_status = ?", job.VideoID, models.ProcessingProcessing).
		Updates(map[string]interface{}{
			"processing_status": models.ProcessingFailed,
			"processing_error":  errMsg,
		}).Error
	if err != nil {
		log.Error("Failed to record video failure; the sweep will retry it", zap.Error(err))
	}

	q.updateJobStatus(job.ID, JobFailed, nil, &errMsg)
	metrics.Get().TranscodeJobsTotal.WithLabelValues(JobFailed).Inc()
	q.runCallback(job.VideoID, jobErr)
}

// release hands a video interrupted by Stop back to the maintenance sweep
func (q *VideoQueue) release(job *VideoJob, log *zap.Logger) {
	err := q.db.Model(&models.Video{}).
		Where("id = ? AND processing_status = ?", job.VideoID, models.ProcessingProcessing).
		Update("processing_status", models.ProcessingPending).Error
	if err != nil {
		log.Error("Failed to release interrupted video", zap.Error(err))
	} else {
		log.Info("Queue stopping, video returned to pending")
	}
	q.updateJobStatus(job.ID, JobPending, nil, nil)
}

func (q *VideoQueue) finish(job *VideoJob, log *zap.Logger, result *VideoJobResult, startTime time.Time) {
	q.updateJobStatus(job.ID, JobComplete, result, nil)
	metrics.Get().TranscodeJobsTotal.WithLabelValues(JobComplete).Inc()
	metrics.Get().TranscodeDuration.WithLabelValues("total").Observe(time.Since(startTime).Seconds())

	log.Info("Video job completed",
		zap.Duration("elapsed", time.Since(startTime)),
		zap.Float64("duration", result.Duration),
		zap.Int64("size", result.Size),
	)
	q.runCallback(job.VideoID, nil)
}

func (q *VideoQueue) runCallback(videoID uint, jobErr error) {
	q.callbackMux.RLock()
	callback := q.onComplete
	q.callbackMux.RUnlock()
	if callback == nil {
		return
	}

	var video models.Video
	if err := q.db.First(&video, videoID).Error; err != nil {
		logger.Log.Warn("Failed to reload video for callback", logger.WithVideoID(videoID), zap.Error(err))
		return
	}
	callback(&video, jobErr)
}

func (q *VideoQueue) deleteQuietly(key string) {
	if key == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := q.store.Delete(ctx, key); err != nil {
		logger.Log.Warn("Failed to delete media object", logger.WithKey(key), zap.Error(err))
	}
}

func (q *VideoQueue) updateJobStatus(jobID, status string, result *VideoJobResult, errorMessage *string) {
	q.resultsMux.Lock()
	defer q.resultsMux.Unlock()

	job, exists := q.results[jobID]
	if !exists {
		return
	}
	job.Status = status
	if result != nil {
		job.Result = result
	}
	if errorMessage != nil {
		job.ErrorMessage = errorMessage
	}
	if status == JobComplete || status == JobFailed || status == JobSkipped {
		now := time.Now()
		job.CompletedAt = &now
	}
}

func (q *VideoQueue) signalCompletion(jobID string) {
	select {
	case q.jobCompleted <- jobID:
	default:
	}
}
