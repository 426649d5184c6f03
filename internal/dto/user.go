package dto

import (
	"time"

	"github.com/nextolk/backend/internal/models"
	"github.com/nextolk/backend/internal/storage"
)

// RegisterResponse is returned by registration. The password never leaves
// the server.
type RegisterResponse struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// RefreshRequest exchanges a refresh token for a new access token
type RefreshRequest struct {
	Refresh string `json:"refresh" form:"refresh" binding:"required"`
}

// VerifyRequest checks any token
type VerifyRequest struct {
	Token string `json:"token" form:"token" binding:"required"`
}

// ProfileResponse is the public profile representation
type ProfileResponse struct {
	ID                uint      `json:"id"`
	UserID            uint      `json:"user_id"`
	User              string    `json:"user"`
	Bio               string    `json:"bio"`
	ProfilePicture    *string   `json:"profile_picture"`
	ProfilePictureURL *string   `json:"profile_picture_url"`
	FollowerCount     int       `json:"follower_count"`
	FollowingCount    int       `json:"following_count"`
	CreatedAt         time.Time `json:"created_at"`
}

// UpdateProfileRequest is the JSON body of a profile update. Multipart
// updates carry the same field plus profile_picture.
type UpdateProfileRequest struct {
	Bio *string `json:"bio" form:"bio" binding:"omitempty,max=500"`
}

// FollowRequest toggles a follow on following_id
type FollowRequest struct {
	FollowingID uint `json:"following_id" form:"following_id"`
}

// FollowResponse reports the state after a toggle
type FollowResponse struct {
	Status string `json:"status"`
}

// IsFollowingResponse answers is_followed_by
type IsFollowingResponse struct {
	IsFollowing bool `json:"is_following"`
}

// ToRegisterResponse converts a freshly registered user
func ToRegisterResponse(user *models.User) *RegisterResponse {
	return &RegisterResponse{ID: user.ID, Username: user.Username, Email: user.Email}
}

// ToProfileResponse converts a profile. The User association should be
// loaded so the username can be shown.
func ToProfileResponse(p *models.Profile, store storage.MediaStore) *ProfileResponse {
	if p == nil {
		return nil
	}
	resp := &ProfileResponse{
		ID:                p.ID,
		UserID:            p.UserID,
		Bio:               p.Bio,
		ProfilePictureURL: storage.URLOrNil(store, p.ProfilePicture),
		FollowerCount:     p.FollowerCount,
		FollowingCount:    p.FollowingCount,
		CreatedAt:         p.CreatedAt,
	}
	if p.ProfilePicture != "" {
		key := p.ProfilePicture
		resp.ProfilePicture = &key
	}
	if p.User != nil {
		resp.User = p.User.Username
	}
	return resp
}

// ToProfileResponses converts a page of profiles
func ToProfileResponses(profiles []models.Profile, store storage.MediaStore) []*ProfileResponse {
	out := make([]*ProfileResponse, len(profiles))
	for i := range profiles {
		out[i] = ToProfileResponse(&profiles[i], store)
	}
	return out
}
