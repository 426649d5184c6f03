package models

import (
	"path"
	"strings"
	"time"
)

// ProcessingStatus tracks a video through the transcode pipeline
type ProcessingStatus string

const (
	ProcessingPending    ProcessingStatus = "pending"
	ProcessingProcessing ProcessingStatus = "processing"
	ProcessingComplete   ProcessingStatus = "complete"
	ProcessingFailed     ProcessingStatus = "failed"
)

// TranscodedSuffix marks the output of the transcoder. A file carrying it is
// never submitted for processing again.
const TranscodedSuffix = "_transcoded.mp4"

// Video is a short clip plus the editor metadata the app records with it.
type Video struct {
	ID     uint  `gorm:"primaryKey" json:"id"`
	UserID uint  `gorm:"not null;index" json:"user_id"`
	User   *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`

	VideoFile     string `gorm:"size:512;not null" json:"video_file"`
	ThumbnailFile string `gorm:"size:512" json:"thumbnail_file"`
	Caption       string `gorm:"type:text;not null;default:''" json:"caption"`

	LikesCount    int `gorm:"not null;default:0" json:"likes_count"`
	CommentsCount int `gorm:"not null;default:0" json:"comments_count"`

	Hashtags       StringList `gorm:"type:text" json:"hashtags"`
	AudioName      *string    `gorm:"size:255" json:"audio_name"`
	AppliedFilters StringList `gorm:"type:text" json:"applied_filters"`
	IsLive         bool       `gorm:"not null;default:false" json:"is_live"`

	ProcessingStatus ProcessingStatus `gorm:"size:20;not null;default:'pending';index" json:"processing_status"`
	ProcessingError  string           `gorm:"type:text" json:"processing_error,omitempty"`
	DurationSeconds  float64          `json:"duration_seconds"`
	ProcessedAt      *time.Time       `json:"processed_at,omitempty"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsTranscoded reports whether VideoFile already points at transcoder output
func (v *Video) IsTranscoded() bool {
	return strings.HasSuffix(v.VideoFile, TranscodedSuffix)
}

// TranscodedKey derives the output key from a source key:
// videos/abc.mov -> videos/abc_transcoded.mp4
func TranscodedKey(sourceKey string) string {
	ext := path.Ext(sourceKey)
	return strings.TrimSuffix(sourceKey, ext) + TranscodedSuffix
}

// Comment is a flat comment on a video, ordered oldest first.
type Comment struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	VideoID uint   `gorm:"not null;index" json:"video"`
	Video   *Video `gorm:"foreignKey:VideoID;constraint:OnDelete:CASCADE" json:"-"`
	UserID  uint   `gorm:"not null;index" json:"user_id"`
	User    *User  `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Text    string `gorm:"type:text;not null" json:"text"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Like is unique per (video, user).
type Like struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	VideoID uint   `gorm:"not null;uniqueIndex:idx_likes_video_user" json:"video"`
	Video   *Video `gorm:"foreignKey:VideoID;constraint:OnDelete:CASCADE" json:"-"`
	UserID  uint   `gorm:"not null;uniqueIndex:idx_likes_video_user;index" json:"user_id"`
	User    *User  `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`

	CreatedAt time.Time `json:"created_at"`
}

// Follow is unique per (follower, following).
type Follow struct {
	ID          uint  `gorm:"primaryKey" json:"id"`
	FollowerID  uint  `gorm:"not null;uniqueIndex:idx_follows_pair" json:"follower_id"`
	Follower    *User `gorm:"foreignKey:FollowerID;constraint:OnDelete:CASCADE" json:"-"`
	FollowingID uint  `gorm:"not null;uniqueIndex:idx_follows_pair;index" json:"following_id"`
	Following   *User `gorm:"foreignKey:FollowingID;constraint:OnDelete:CASCADE" json:"-"`

	CreatedAt time.Time `json:"created_at"`
}
