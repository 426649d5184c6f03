package dto

import (
	"time"

	"github.com/nextolk/backend/internal/models"
	"github.com/nextolk/backend/internal/storage"
)

// VideoResponse is a video with its owner's public details inlined
type VideoResponse struct {
	ID                 uint                    `json:"id"`
	User               uint                    `json:"user"`
	UserID             uint                    `json:"user_id"`
	UserUsername       string                  `json:"user_username"`
	UserProfilePicture *string                 `json:"user_profile_picture"`
	VideoFile          *string                 `json:"video_file"`
	ThumbnailURL       *string                 `json:"thumbnail_url"`
	Caption            string                  `json:"caption"`
	LikesCount         int                     `json:"likes_count"`
	CommentsCount      int                     `json:"comments_count"`
	CreatedAt          time.Time               `json:"created_at"`
	Hashtags           models.StringList       `json:"hashtags"`
	AudioName          *string                 `json:"audio_name"`
	AppliedFilters     models.StringList       `json:"applied_filters"`
	IsLive             bool                    `json:"is_live"`
	ProcessingStatus   models.ProcessingStatus `json:"processing_status"`
	DurationSeconds    float64                 `json:"duration_seconds"`
}

// VideoStatusResponse is the lightweight polling view of a video
type VideoStatusResponse struct {
	ID               uint                    `json:"id"`
	ProcessingStatus models.ProcessingStatus `json:"processing_status"`
	ProcessingError  *string                 `json:"processing_error"`
	VideoFile        *string                 `json:"video_file"`
}

// UpdateVideoRequest holds the editable video fields. Nil means unchanged.
type UpdateVideoRequest struct {
	Caption        *string   `json:"caption"`
	Hashtags       *[]string `json:"hashtags"`
	AudioName      *string   `json:"audio_name" binding:"omitempty,max=255"`
	AppliedFilters *[]string `json:"applied_filters"`
	IsLive         *bool     `json:"is_live"`
}

// LikeStatusResponse answers check_like
type LikeStatusResponse struct {
	IsLiked bool `json:"is_liked"`
}

// ToggleLikeResponse reports the like state after a toggle
type ToggleLikeResponse struct {
	Status     string `json:"status"`
	LikesCount int    `json:"likes_count"`
}

// CommentResponse is a comment with its author's username
type CommentResponse struct {
	ID        uint      `json:"id"`
	Video     uint      `json:"video"`
	User      string    `json:"user"`
	UserID    uint      `json:"user_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// CommentRequest creates or edits a comment
type CommentRequest struct {
	Text string `json:"text" form:"text" binding:"required"`
}

// ToVideoResponse converts a video. Preload User.Profile to fill the owner
// fields.
func ToVideoResponse(v *models.Video, store storage.MediaStore) *VideoResponse {
	if v == nil {
		return nil
	}
	resp := &VideoResponse{
		ID:               v.ID,
		User:             v.UserID,
		UserID:           v.UserID,
		VideoFile:        storage.URLOrNil(store, v.VideoFile),
		ThumbnailURL:     storage.URLOrNil(store, v.ThumbnailFile),
		Caption:          v.Caption,
		LikesCount:       v.LikesCount,
		CommentsCount:    v.CommentsCount,
		CreatedAt:        v.CreatedAt,
		Hashtags:         v.Hashtags,
		AudioName:        v.AudioName,
		AppliedFilters:   v.AppliedFilters,
		IsLive:           v.IsLive,
		ProcessingStatus: v.ProcessingStatus,
		DurationSeconds:  v.DurationSeconds,
	}
	if v.User != nil {
		resp.UserUsername = v.User.Username
		if v.User.Profile != nil {
			resp.UserProfilePicture = storage.URLOrNil(store, v.User.Profile.ProfilePicture)
		}
	}
	return resp
}

// ToVideoResponses converts a page of videos
func ToVideoResponses(videos []models.Video, store storage.MediaStore) []*VideoResponse {
	out := make([]*VideoResponse, len(videos))
	for i := range videos {
		out[i] = ToVideoResponse(&videos[i], store)
	}
	return out
}

func ToVideoStatusResponse(v *models.Video, store storage.MediaStore) *VideoStatusResponse {
	resp := &VideoStatusResponse{
		ID:               v.ID,
		ProcessingStatus: v.ProcessingStatus,
		VideoFile:        storage.URLOrNil(store, v.VideoFile),
	}
	if v.ProcessingError != "" {
		msg := v.ProcessingError
		resp.ProcessingError = &msg
	}
	return resp
}

// ToCommentResponse converts a comment. Preload User for the username.
func ToCommentResponse(c *models.Comment) *CommentResponse {
	resp := &CommentResponse{
		ID:        c.ID,
		Video:     c.VideoID,
		UserID:    c.UserID,
		Text:      c.Text,
		CreatedAt: c.CreatedAt,
	}
	if c.User != nil {
		resp.User = c.User.Username
	}
	return resp
}

func ToCommentResponses(comments []models.Comment) []*CommentResponse {
	out := make([]*CommentResponse, len(comments))
	for i := range comments {
		out[i] = ToCommentResponse(&comments[i])
	}
	return out
}
