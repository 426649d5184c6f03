package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nextolk/backend/internal/auth"
	"github.com/nextolk/backend/internal/cache"
	"github.com/nextolk/backend/internal/database"
	"github.com/nextolk/backend/internal/logger"
	"github.com/nextolk/backend/internal/models"
	"github.com/nextolk/backend/internal/otp"
	"github.com/nextolk/backend/internal/queue"
	"github.com/nextolk/backend/internal/repository"
	"github.com/nextolk/backend/internal/search"
	"github.com/nextolk/backend/internal/storage"
	"github.com/nextolk/backend/internal/util"
	"github.com/nextolk/backend/internal/websocket"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// feedCacheName scopes cached following feeds
const feedCacheName = "following_feed"

// Handlers contains all HTTP handlers for the API
type Handlers struct {
	auth   auth.AuthServiceInterface
	users  repository.UserRepository
	store  storage.MediaStore
	queue  *queue.VideoQueue
	otp    *otp.Service
	hub    *websocket.Hub
	search *search.Service
	cache  cache.Store
	redis  *cache.RedisClient

	debug          bool
	maxVideoUpload int64
	feedTTL        time.Duration
}

// NewHandlers creates a new handlers instance. database.DB must already be
// initialized.
func NewHandlers(authService auth.AuthServiceInterface, store storage.MediaStore, videoQueue *queue.VideoQueue) *Handlers {
	return &Handlers{
		auth:           authService,
		users:          repository.NewUserRepository(database.DB),
		store:          store,
		queue:          videoQueue,
		search:         search.NewService(nil, database.DB, nil),
		maxVideoUpload: 200 << 20,
		feedTTL:        30 * time.Second,
	}
}

// SetOTPService sets the phone verification service
func (h *Handlers) SetOTPService(service *otp.Service) {
	h.otp = service
}

// SetWebSocketHub enables real-time like, comment, follow and transcode
// notifications
func (h *Handlers) SetWebSocketHub(hub *websocket.Hub) {
	h.hub = hub
}

// SetSearchService replaces the database-only search service
func (h *Handlers) SetSearchService(service *search.Service) {
	if service != nil {
		h.search = service
	}
}

// SetRedis adds redis to the health report
func (h *Handlers) SetRedis(client *cache.RedisClient) {
	h.redis = client
}

// SetCache enables the following feed cache
func (h *Handlers) SetCache(store cache.Store) {
	h.cache = store
}

// SetDebug makes OTP requests echo the code
func (h *Handlers) SetDebug(debug bool) {
	h.debug = debug
}

// SetMaxVideoUploadBytes caps video upload size
func (h *Handlers) SetMaxVideoUploadBytes(n int64) {
	if n > 0 {
		h.maxVideoUpload = n
	}
}

// OnVideoProcessed is the transcode queue's completion callback. It tells
// the owner how the job went and refreshes the search document.
func (h *Handlers) OnVideoProcessed(video *models.Video, jobErr error) {
	h.hub.NotifyVideoStatus(video, h.urlFor(video.VideoFile), h.urlFor(video.ThumbnailFile), jobErr)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	h.indexVideo(ctx, video.ID)
}

// indexVideo and the other search helpers log failures: the index is
// repaired by the maintenance sweep.
func (h *Handlers) indexVideo(ctx context.Context, videoID uint) {
	if err := h.search.IndexVideo(ctx, videoID); err != nil {
		logger.Log.Warn("Failed to index video", logger.WithVideoID(videoID), zap.Error(err))
	}
}

func (h *Handlers) unindexVideo(ctx context.Context, videoID uint) {
	if err := h.search.DeleteVideo(ctx, videoID); err != nil {
		logger.Log.Warn("Failed to remove video from index", logger.WithVideoID(videoID), zap.Error(err))
	}
}

func (h *Handlers) indexProduct(ctx context.Context, productID uint) {
	if err := h.search.IndexProduct(ctx, productID); err != nil {
		logger.Log.Warn("Failed to index product", logger.WithProductID(productID), zap.Error(err))
	}
}

func (h *Handlers) unindexProduct(ctx context.Context, productID uint) {
	if err := h.search.DeleteProduct(ctx, productID); err != nil {
		logger.Log.Warn("Failed to remove product from index", logger.WithProductID(productID), zap.Error(err))
	}
}

func (h *Handlers) urlFor(key string) string {
	if key == "" || h.store == nil {
		return ""
	}
	return h.store.URL(key)
}

// deleteMedia removes stored objects after the rows pointing at them are
// gone. Failures only leave orphans, so they are logged.
func (h *Handlers) deleteMedia(ctx context.Context, keys ...string) {
	if h.store == nil {
		return
	}
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := h.store.Delete(ctx, key); err != nil {
			logger.Log.Warn("Failed to delete media object", logger.WithKey(key), zap.Error(err))
		}
	}
}

func (h *Handlers) db(c *gin.Context) *gorm.DB {
	return database.DB.WithContext(c.Request.Context())
}

// currentUser loads the caller, responding 401 when it cannot
func currentUser(c *gin.Context) (*models.User, bool) {
	return util.GetUserFromContext(c)
}
