package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nextolk/backend/internal/dto"
	"github.com/nextolk/backend/internal/metrics"
	"github.com/nextolk/backend/internal/models"
	"github.com/nextolk/backend/internal/repository"
	"github.com/nextolk/backend/internal/util"
	"gorm.io/gorm"
)

// ListComments lists a video's comments oldest first
// GET /api/videos/:id/comments/
func (h *Handlers) ListComments(c *gin.Context) {
	video, ok := h.loadVideo(c)
	if !ok {
		return
	}
	limit, offset := util.Pagination(c)

	comments := []models.Comment{}
	err := h.db(c).Preload("User").
		Where("video_id = ?", video.ID).
		Order("created_at ASC, id ASC").
		Limit(limit).Offset(offset).
		Find(&comments).Error
	if err != nil {
		util.RespondError(c, err, "Failed to list comments")
		return
	}
	c.JSON(http.StatusOK, dto.ToCommentResponses(comments))
}

// CreateComment comments on a video
// POST /api/videos/:id/comments/
func (h *Handlers) CreateComment(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	video, ok := h.loadVideo(c)
	if !ok {
		return
	}

	var req dto.CommentRequest
	if err := c.ShouldBind(&req); err != nil {
		respondBindError(c, err)
		return
	}

	comment := models.Comment{VideoID: video.ID, UserID: user.ID, Text: req.Text}
	err := h.db(c).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&comment).Error; err != nil {
			return err
		}
		if err := repository.AdjustCounter(tx, &models.Video{}, video.ID, "comments_count", 1); err != nil {
			return err
		}
		n, err := repository.ReadCounter(tx, &models.Video{}, video.ID, "comments_count")
		video.CommentsCount = n
		return err
	})
	if err != nil {
		util.RespondError(c, err, "Failed to create comment")
		return
	}

	comment.User = user
	metrics.Get().CommentsTotal.WithLabelValues("create").Inc()
	h.hub.NotifyComment(video, &comment, user)
	c.JSON(http.StatusCreated, dto.ToCommentResponse(&comment))
}

// GetComment returns one comment of the video
// GET /api/videos/:id/comments/:pk/
func (h *Handlers) GetComment(c *gin.Context) {
	comment, ok := h.loadComment(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, dto.ToCommentResponse(comment))
}

// UpdateComment edits the caller's own comment
// PUT|PATCH /api/videos/:id/comments/:pk/
func (h *Handlers) UpdateComment(c *gin.Context) {
	comment, ok := h.loadOwnComment(c)
	if !ok {
		return
	}

	var req dto.CommentRequest
	if err := c.ShouldBind(&req); err != nil {
		respondBindError(c, err)
		return
	}
	if err := h.db(c).Model(comment).Update("text", req.Text).Error; err != nil {
		util.RespondError(c, err, "Failed to update comment")
		return
	}
	comment.Text = req.Text
	c.JSON(http.StatusOK, dto.ToCommentResponse(comment))
}

// DeleteComment deletes the caller's own comment
// DELETE /api/videos/:id/comments/:pk/
func (h *Handlers) DeleteComment(c *gin.Context) {
	comment, ok := h.loadOwnComment(c)
	if !ok {
		return
	}

	err := h.db(c).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.Comment{}, comment.ID)
		if res.Error != nil || res.RowsAffected == 0 {
			return res.Error
		}
		return repository.AdjustCounter(tx, &models.Video{}, comment.VideoID, "comments_count", -1)
	})
	if err != nil {
		util.RespondError(c, err, "Failed to delete comment")
		return
	}
	metrics.Get().CommentsTotal.WithLabelValues("delete").Inc()
	c.Status(http.StatusNoContent)
}

func (h *Handlers) loadComment(c *gin.Context) (*models.Comment, bool) {
	videoID, ok := util.ParseIDParam(c, "id", "Video")
	if !ok {
		return nil, false
	}
	commentID, ok := util.ParseIDParam(c, "pk", "Comment")
	if !ok {
		return nil, false
	}

	var comment models.Comment
	err := h.db(c).Preload("User").Where("video_id = ?", videoID).First(&comment, commentID).Error
	if err != nil {
		util.HandleDBError(c, err, "Comment")
		return nil, false
	}
	return &comment, true
}

func (h *Handlers) loadOwnComment(c *gin.Context) (*models.Comment, bool) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return nil, false
	}
	comment, ok := h.loadComment(c)
	if !ok {
		return nil, false
	}
	if comment.UserID != userID {
		util.RespondForbidden(c)
		return nil, false
	}
	return comment, true
}
