package handlers

import (
	"errors"
	"net/http"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/nextolk/backend/internal/dto"
	apierrors "github.com/nextolk/backend/internal/errors"
	"github.com/nextolk/backend/internal/logger"
	"github.com/nextolk/backend/internal/models"
	"github.com/nextolk/backend/internal/repository"
	"github.com/nextolk/backend/internal/storage"
	"github.com/nextolk/backend/internal/util"
	"go.uber.org/zap"
)

// ListProfiles lists profiles, optionally only the one of ?user_id=
// GET /api/profiles/
func (h *Handlers) ListProfiles(c *gin.Context) {
	limit, offset := util.Pagination(c)

	var userID *uint
	if raw := c.Query("user_id"); raw != "" {
		id, ok := util.ParseUint(raw)
		if !ok {
			c.JSON(http.StatusOK, []*dto.ProfileResponse{})
			return
		}
		userID = &id
	}

	profiles, err := h.users.ListProfiles(c.Request.Context(), userID, limit, offset)
	if err != nil {
		util.RespondError(c, err, "Failed to list profiles")
		return
	}
	c.JSON(http.StatusOK, dto.ToProfileResponses(profiles, h.store))
}

// GetProfile returns one profile
// GET /api/profiles/:id/
func (h *Handlers) GetProfile(c *gin.Context) {
	profile, ok := h.loadProfile(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, dto.ToProfileResponse(profile, h.store))
}

// GetCurrentUserProfile returns the caller's profile, creating it if needed
// GET /api/profiles/current_user/
func (h *Handlers) GetCurrentUserProfile(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	profile, err := h.users.GetOrCreateProfile(c.Request.Context(), userID)
	if err != nil {
		util.RespondError(c, err, "Failed to load profile")
		return
	}
	c.JSON(http.StatusOK, dto.ToProfileResponse(profile, h.store))
}

// CreateProfile always conflicts: every account gets its profile at
// registration
// POST /api/profiles/
func (h *Handlers) CreateProfile(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	if _, err := h.users.GetOrCreateProfile(c.Request.Context(), userID); err != nil {
		util.RespondError(c, err, "Failed to load profile")
		return
	}
	util.RespondConflict(c, "A profile already exists for this user.")
}

// UpdateProfile changes the bio and picture of the caller's own profile
// PUT|PATCH /api/profiles/:id/
func (h *Handlers) UpdateProfile(c *gin.Context) {
	profile, ok := h.loadOwnProfile(c)
	if !ok {
		return
	}

	var req dto.UpdateProfileRequest
	if err := c.ShouldBind(&req); err != nil {
		respondBindError(c, err)
		return
	}
	// the binding max counts bytes; bios are limited in characters
	if req.Bio != nil && utf8.RuneCountInString(*req.Bio) > models.MaxBioLength {
		util.RespondValidationError(c, "bio", "Ensure this field has no more than 500 characters.")
		return
	}

	newPicture, hasPicture, ok := h.saveImageField(c, "profile_picture", storage.ProfilePicturesPrefix)
	if !ok {
		return
	}

	updates := map[string]interface{}{}
	if req.Bio != nil {
		updates["bio"] = *req.Bio
	}
	oldPicture := profile.ProfilePicture
	if hasPicture {
		updates["profile_picture"] = newPicture
	}

	ctx := c.Request.Context()
	if len(updates) > 0 {
		if err := h.db(c).Model(profile).Updates(updates).Error; err != nil {
			h.deleteMedia(ctx, newPicture)
			util.RespondError(c, err, "Failed to update profile")
			return
		}
	}
	if hasPicture && oldPicture != "" && oldPicture != newPicture {
		h.deleteMedia(ctx, oldPicture)
	}

	updated, err := h.users.GetProfile(ctx, profile.ID)
	if err != nil {
		util.RespondError(c, err, "Failed to load profile")
		return
	}
	c.JSON(http.StatusOK, dto.ToProfileResponse(updated, h.store))
}

// DeleteProfile deletes the caller's account along with everything it owns
// DELETE /api/profiles/:id/
func (h *Handlers) DeleteProfile(c *gin.Context) {
	profile, ok := h.loadOwnProfile(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	media, err := h.users.DeleteUser(ctx, profile.UserID)
	if err != nil {
		util.RespondError(c, err, "Failed to delete account")
		return
	}

	h.deleteMedia(ctx, media.Keys...)
	for _, id := range media.VideoIDs {
		h.unindexVideo(ctx, id)
	}
	for _, id := range media.ProductIDs {
		h.unindexProduct(ctx, id)
	}
	logger.Log.Info("Account deleted", logger.WithUserID(profile.UserID), zap.Int("media_objects", len(media.Keys)))
	c.Status(http.StatusNoContent)
}

// IsFollowedBy reports whether current_user_id follows the profile's owner
// GET /api/profiles/:id/is_followed_by/:current_user_id/
func (h *Handlers) IsFollowedBy(c *gin.Context) {
	ctx := c.Request.Context()

	profileID, ok := util.ParseUint(c.Param("id"))
	var profile *models.Profile
	var err error
	if ok {
		profile, err = h.users.GetProfile(ctx, profileID)
	}
	if !ok || errors.Is(err, repository.ErrProfileNotFound) {
		util.RespondWithAPIError(c, apierrors.NotFoundMessage("Target profile not found."))
		return
	}
	if err != nil {
		util.RespondError(c, err, "Failed to load profile")
		return
	}

	currentUserID, ok := util.ParseUint(c.Param("current_user_id"))
	if ok {
		_, err = h.users.GetUser(ctx, currentUserID)
	}
	if !ok || errors.Is(err, repository.ErrUserNotFound) {
		util.RespondWithAPIError(c, apierrors.NotFoundMessage("Current user not found."))
		return
	}
	if err != nil {
		util.RespondError(c, err, "Failed to load user")
		return
	}

	following, err := h.users.IsFollowing(ctx, currentUserID, profile.UserID)
	if err != nil {
		util.RespondError(c, err, "Failed to check follow")
		return
	}
	c.JSON(http.StatusOK, dto.IsFollowingResponse{IsFollowing: following})
}

func (h *Handlers) loadProfile(c *gin.Context) (*models.Profile, bool) {
	id, ok := util.ParseIDParam(c, "id", "Profile")
	if !ok {
		return nil, false
	}
	profile, err := h.users.GetProfile(c.Request.Context(), id)
	if errors.Is(err, repository.ErrProfileNotFound) {
		util.RespondNotFound(c, "Profile")
		return nil, false
	}
	if err != nil {
		util.RespondError(c, err, "Failed to load profile")
		return nil, false
	}
	return profile, true
}

// loadOwnProfile loads :id and checks the caller owns it before any write
func (h *Handlers) loadOwnProfile(c *gin.Context) (*models.Profile, bool) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return nil, false
	}
	profile, ok := h.loadProfile(c)
	if !ok {
		return nil, false
	}
	if profile.UserID != userID {
		util.RespondForbidden(c)
		return nil, false
	}
	return profile, true
}
