package models

import (
	"time"
)

// User is an account. Every user owns exactly one Profile.
type User struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	Username     string `gorm:"size:150;uniqueIndex;not null" json:"username"`
	Email        string `gorm:"size:254;index" json:"email"`
	PasswordHash string `gorm:"type:text;not null" json:"-"`
	IsAdmin      bool   `gorm:"not null;default:false" json:"is_admin"`
	IsActive     bool   `gorm:"not null;default:true" json:"-"`

	Profile *Profile `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"profile,omitempty"`

	LastLoginAt *time.Time `json:"-"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Profile is the public face of a user.
type Profile struct {
	ID             uint   `gorm:"primaryKey" json:"id"`
	UserID         uint   `gorm:"uniqueIndex;not null" json:"user_id"`
	User           *User  `gorm:"foreignKey:UserID" json:"-"`
	Bio            string `gorm:"type:text;not null;default:''" json:"bio"`
	ProfilePicture string `gorm:"size:512" json:"profile_picture"`

	// Denormalized from follows, maintained inside the follow transaction
	FollowerCount  int `gorm:"not null;default:0" json:"follower_count"`
	FollowingCount int `gorm:"not null;default:0" json:"following_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MaxBioLength caps Profile.Bio in characters
const MaxBioLength = 500
