package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nextolk/backend/internal/dto"
	apierrors "github.com/nextolk/backend/internal/errors"
	"github.com/nextolk/backend/internal/logger"
	"github.com/nextolk/backend/internal/metrics"
	"github.com/nextolk/backend/internal/repository"
	"github.com/nextolk/backend/internal/util"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ToggleFollow follows following_id, or unfollows when already following
// POST /api/follow/
func (h *Handlers) ToggleFollow(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req dto.FollowRequest
	if err := c.ShouldBind(&req); err != nil || req.FollowingID == 0 {
		util.RespondValidationError(c, "following_id", "following_id is required.")
		return
	}

	ctx := c.Request.Context()
	result, err := h.users.ToggleFollow(ctx, user.ID, req.FollowingID)
	switch {
	case errors.Is(err, repository.ErrSelfFollow):
		util.RespondValidationError(c, "following_id", err.Error())
		return
	case errors.Is(err, repository.ErrUserNotFound):
		util.RespondWithAPIError(c, apierrors.NotFoundMessage("User to follow not found."))
		return
	case errors.Is(err, gorm.ErrDuplicatedKey):
		// a concurrent request created the same follow first
		c.JSON(http.StatusCreated, dto.FollowResponse{Status: "followed"})
		return
	case err != nil:
		util.RespondError(c, err, "Failed to update follow")
		return
	}

	logger.Log.Debug("Follow toggled",
		logger.WithUserID(user.ID),
		zap.Uint("following_id", req.FollowingID),
		zap.Bool("followed", result.Followed))

	if !result.Followed {
		metrics.Get().FollowsTotal.WithLabelValues("unfollow").Inc()
		c.JSON(http.StatusOK, dto.FollowResponse{Status: "unfollowed"})
		return
	}
	metrics.Get().FollowsTotal.WithLabelValues("follow").Inc()
	h.hub.NotifyFollow(req.FollowingID, user, result.FollowerCount)
	c.JSON(http.StatusCreated, dto.FollowResponse{Status: "followed"})
}
