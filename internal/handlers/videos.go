package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/nextolk/backend/internal/dto"
	apierrors "github.com/nextolk/backend/internal/errors"
	"github.com/nextolk/backend/internal/logger"
	"github.com/nextolk/backend/internal/metrics"
	"github.com/nextolk/backend/internal/models"
	"github.com/nextolk/backend/internal/queue"
	"github.com/nextolk/backend/internal/repository"
	"github.com/nextolk/backend/internal/storage"
	"github.com/nextolk/backend/internal/util"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ListVideos lists videos newest first
// GET /api/videos/?user_id=&hashtag=
func (h *Handlers) ListVideos(c *gin.Context) {
	limit, offset := util.Pagination(c)

	query := h.videoQuery(c)
	if raw := c.Query("user_id"); raw != "" {
		userID, ok := util.ParseUint(raw)
		if !ok {
			c.JSON(http.StatusOK, []*dto.VideoResponse{})
			return
		}
		query = query.Where("user_id = ?", userID)
	}
	if tag := util.NormalizeTags([]string{c.Query("hashtag")}); len(tag) == 1 {
		// hashtags is a JSON array in a text column
		query = query.Where("hashtags LIKE ?", fmt.Sprintf("%%%q%%", tag[0]))
	}

	videos := []models.Video{}
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Offset(offset).Find(&videos).Error; err != nil {
		util.RespondError(c, err, "Failed to list videos")
		return
	}
	c.JSON(http.StatusOK, dto.ToVideoResponses(videos, h.store))
}

// FollowingFeed lists videos by the users the caller follows
// GET /api/videos/following_feed/
func (h *Handlers) FollowingFeed(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	limit, offset := util.Pagination(c)

	followingIDs, err := h.users.GetFollowingIDs(c.Request.Context(), userID)
	if err != nil {
		util.RespondError(c, err, "Failed to load feed")
		return
	}
	videos := []models.Video{}
	if len(followingIDs) > 0 {
		err = h.videoQuery(c).
			Where("user_id IN ?", followingIDs).
			Order("created_at DESC, id DESC").
			Limit(limit).Offset(offset).
			Find(&videos).Error
		if err != nil {
			util.RespondError(c, err, "Failed to load feed")
			return
		}
	}
	c.JSON(http.StatusOK, dto.ToVideoResponses(videos, h.store))
}

// GetVideo returns one video
// GET /api/videos/:id/
func (h *Handlers) GetVideo(c *gin.Context) {
	video, ok := h.loadVideo(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, dto.ToVideoResponse(video, h.store))
}

// UploadVideo stores an uploaded clip and queues it for transcoding
// POST /api/videos/
func (h *Handlers) UploadVideo(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	if !isMultipart(c) {
		util.RespondValidationError(c, "video_file", "No file was submitted.")
		return
	}

	header, err := c.FormFile("video_file")
	if err != nil {
		util.RespondValidationError(c, "video_file", "No file was submitted.")
		return
	}
	if err := util.ValidateFilename(header.Filename); err != nil {
		util.RespondValidationError(c, "video_file", err.Error())
		return
	}
	if !util.IsValidVideoFile(header.Filename) {
		util.RespondValidationError(c, "video_file", "Unsupported video format. Use mp4, mov, avi, mkv, webm, m4v or 3gp.")
		return
	}
	if header.Size > h.maxVideoUpload {
		metrics.Get().VideoUploadsTotal.WithLabelValues("too_large").Inc()
		util.RespondWithAPIError(c, apierrors.PayloadTooLarge(fmt.Sprintf("Video must be at most %d MB.", h.maxVideoUpload>>20)))
		return
	}

	fields, ok := h.bindVideoFields(c)
	if !ok {
		return
	}

	tempDir := ""
	if h.queue != nil {
		tempDir = h.queue.TempDir()
	}
	tempPath, err := util.SaveUploadedFile(header, tempDir)
	if err != nil {
		logger.Log.Error("Failed to stage upload", logger.WithUserID(user.ID), zap.Error(err))
		util.RespondInternalError(c, "Failed to process upload")
		return
	}
	handedOff := false
	defer func() {
		if !handedOff {
			os.Remove(tempPath)
		}
	}()

	ctx := c.Request.Context()
	stored, err := storage.SaveFile(ctx, h.store, storage.NewKey(storage.VideosPrefix, header.Filename), tempPath, util.ContentTypeFor(header.Filename))
	if err != nil {
		logger.Log.Error("Failed to store video", logger.WithUserID(user.ID), zap.Error(err))
		util.RespondInternalError(c, "Failed to store video")
		return
	}
	key := stored.Key
	metrics.Get().VideoUploadSizeBytes.Observe(float64(header.Size))

	video := models.Video{
		UserID:           user.ID,
		VideoFile:        key,
		ProcessingStatus: models.ProcessingPending,
		Hashtags:         models.StringList{},
		AppliedFilters:   models.StringList{},
	}
	applyVideoFields(&video, fields)
	if len(video.Hashtags) == 0 {
		video.Hashtags = util.ExtractHashtags(video.Caption)
	}
	if err := h.db(c).Create(&video).Error; err != nil {
		h.deleteMedia(ctx, key)
		util.RespondError(c, err, "Failed to create video")
		return
	}

	if h.queue != nil {
		job, err := h.queue.SubmitJob(video.ID, user.ID, key, tempPath)
		switch {
		case err == nil:
			handedOff = true
			logger.Log.Info("Video queued for transcoding", logger.WithVideoID(video.ID), logger.WithJobID(job.ID))
		case errors.Is(err, queue.ErrQueueFull), errors.Is(err, queue.ErrQueueStopped):
			// the maintenance sweep picks pending videos up later
			logger.Log.Warn("Transcode queue unavailable, leaving video pending", logger.WithVideoID(video.ID), zap.Error(err))
		default:
			logger.Log.Error("Failed to queue video", logger.WithVideoID(video.ID), zap.Error(err))
		}
	}

	metrics.Get().VideoUploadsTotal.WithLabelValues("accepted").Inc()
	video.User = user
	c.JSON(http.StatusCreated, dto.ToVideoResponse(&video, h.store))
}

// UpdateVideo edits the metadata of the caller's own video
// PUT|PATCH /api/videos/:id/
func (h *Handlers) UpdateVideo(c *gin.Context) {
	video, ok := h.loadOwnVideo(c)
	if !ok {
		return
	}
	fields, ok := h.bindVideoFields(c)
	if !ok {
		return
	}

	applyVideoFields(video, fields)
	err := h.db(c).Model(video).Select("caption", "hashtags", "audio_name", "applied_filters", "is_live").Updates(video).Error
	if err != nil {
		util.RespondError(c, err, "Failed to update video")
		return
	}
	if video.ProcessingStatus == models.ProcessingComplete {
		h.indexVideo(c.Request.Context(), video.ID)
	}
	c.JSON(http.StatusOK, dto.ToVideoResponse(video, h.store))
}

// DeleteVideo deletes the caller's own video with its comments, likes and
// stored files
// DELETE /api/videos/:id/
func (h *Handlers) DeleteVideo(c *gin.Context) {
	video, ok := h.loadOwnVideo(c)
	if !ok {
		return
	}
	if err := h.db(c).Delete(video).Error; err != nil {
		util.RespondError(c, err, "Failed to delete video")
		return
	}

	ctx := c.Request.Context()
	h.deleteMedia(ctx, video.VideoFile, video.ThumbnailFile)
	h.unindexVideo(ctx, video.ID)
	c.Status(http.StatusNoContent)
}

// VideoStatus reports transcode progress
// GET /api/videos/:id/status/
func (h *Handlers) VideoStatus(c *gin.Context) {
	id, ok := util.ParseIDParam(c, "id", "Video")
	if !ok {
		return
	}
	var video models.Video
	if err := h.db(c).First(&video, id).Error; err != nil {
		util.HandleDBError(c, err, "Video")
		return
	}
	c.JSON(http.StatusOK, dto.ToVideoStatusResponse(&video, h.store))
}

// CheckLike reports whether the caller likes the video
// GET /api/videos/:id/check_like/
func (h *Handlers) CheckLike(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	video, ok := h.loadVideo(c)
	if !ok {
		return
	}
	var count int64
	if err := h.db(c).Model(&models.Like{}).Where("video_id = ? AND user_id = ?", video.ID, userID).Count(&count).Error; err != nil {
		util.RespondError(c, err, "Failed to check like")
		return
	}
	c.JSON(http.StatusOK, dto.LikeStatusResponse{IsLiked: count > 0})
}

// ToggleLike likes the video, or removes the caller's like
// POST /api/videos/:id/toggle_like/
func (h *Handlers) ToggleLike(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	video, ok := h.loadVideo(c)
	if !ok {
		return
	}

	liked := false
	err := h.db(c).Transaction(func(tx *gorm.DB) error {
		removed := tx.Where("video_id = ? AND user_id = ?", video.ID, user.ID).Delete(&models.Like{})
		if removed.Error != nil {
			return removed.Error
		}
		delta := -1
		if removed.RowsAffected == 0 {
			if err := tx.Create(&models.Like{VideoID: video.ID, UserID: user.ID}).Error; err != nil {
				return err
			}
			delta = 1
			liked = true
		}
		if err := repository.AdjustCounter(tx, &models.Video{}, video.ID, "likes_count", delta); err != nil {
			return err
		}
		n, err := repository.ReadCounter(tx, &models.Video{}, video.ID, "likes_count")
		video.LikesCount = n
		return err
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// a concurrent request created the same like first
		n, readErr := repository.ReadCounter(h.db(c), &models.Video{}, video.ID, "likes_count")
		if readErr != nil {
			util.RespondError(c, readErr, "Failed to toggle like")
			return
		}
		c.JSON(http.StatusCreated, dto.ToggleLikeResponse{Status: "liked", LikesCount: n})
		return
	}
	if err != nil {
		util.RespondError(c, err, "Failed to toggle like")
		return
	}

	if !liked {
		metrics.Get().LikesTotal.WithLabelValues("unlike").Inc()
		c.JSON(http.StatusOK, dto.ToggleLikeResponse{Status: "unliked", LikesCount: video.LikesCount})
		return
	}
	metrics.Get().LikesTotal.WithLabelValues("like").Inc()
	h.hub.NotifyLike(video, user)
	c.JSON(http.StatusCreated, dto.ToggleLikeResponse{Status: "liked", LikesCount: video.LikesCount})
}

func (h *Handlers) videoQuery(c *gin.Context) *gorm.DB {
	return h.db(c).Preload("User.Profile")
}

func (h *Handlers) loadVideo(c *gin.Context) (*models.Video, bool) {
	id, ok := util.ParseIDParam(c, "id", "Video")
	if !ok {
		return nil, false
	}
	var video models.Video
	if err := h.videoQuery(c).First(&video, id).Error; err != nil {
		util.HandleDBError(c, err, "Video")
		return nil, false
	}
	return &video, true
}

func (h *Handlers) loadOwnVideo(c *gin.Context) (*models.Video, bool) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return nil, false
	}
	video, ok := h.loadVideo(c)
	if !ok {
		return nil, false
	}
	if video.UserID != userID {
		util.RespondForbidden(c)
		return nil, false
	}
	return video, true
}

// bindVideoFields reads the editable fields from JSON or form data
func (h *Handlers) bindVideoFields(c *gin.Context) (*dto.UpdateVideoRequest, bool) {
	var req dto.UpdateVideoRequest
	if !isMultipart(c) && c.ContentType() != "application/x-www-form-urlencoded" {
		if c.Request.ContentLength == 0 {
			return &req, true
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return nil, false
		}
		return &req, true
	}

	if v, ok := c.GetPostForm("caption"); ok {
		req.Caption = &v
	}
	if values, ok := c.GetPostFormArray("hashtags"); ok {
		list := util.ParseStringList(values)
		req.Hashtags = &list
	}
	if values, ok := c.GetPostFormArray("applied_filters"); ok {
		list := util.ParseStringList(values)
		req.AppliedFilters = &list
	}
	if v, ok := c.GetPostForm("audio_name"); ok {
		if len(v) > 255 {
			util.RespondValidationError(c, "audio_name", "Ensure this field has no more than 255 characters.")
			return nil, false
		}
		req.AudioName = &v
	}
	if v, ok := c.GetPostForm("is_live"); ok {
		live := util.ParseBool(v)
		req.IsLive = &live
	}
	return &req, true
}

func applyVideoFields(v *models.Video, req *dto.UpdateVideoRequest) {
	if req.Caption != nil {
		v.Caption = *req.Caption
	}
	if req.Hashtags != nil {
		v.Hashtags = util.NormalizeTags(*req.Hashtags)
	}
	if req.AudioName != nil {
		if name := strings.TrimSpace(*req.AudioName); name != "" {
			v.AudioName = &name
		} else {
			v.AudioName = nil
		}
	}
	if req.AppliedFilters != nil {
		v.AppliedFilters = util.ParseStringList(*req.AppliedFilters)
	}
	if req.IsLive != nil {
		v.IsLive = *req.IsLive
	}
}
