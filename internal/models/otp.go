package models

import "time"

// PhoneNumberOTP holds the HOTP state for one phone number. The code itself
// is never stored; it is derived from Secret and Counter.
type PhoneNumberOTP struct {
	ID          uint   `gorm:"primaryKey" json:"-"`
	PhoneNumber string `gorm:"size:20;uniqueIndex;not null" json:"phone_number"`
	Secret      string `gorm:"size:64;not null" json:"-"`
	Counter     uint64 `gorm:"not null;default:0" json:"-"`
	Attempts    int    `gorm:"not null;default:0" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"-"`
	ExpiresAt time.Time `gorm:"index;not null" json:"expires_at"`
}

// TableName keeps the table name readable
func (PhoneNumberOTP) TableName() string {
	return "phone_number_otps"
}

// IsValid reports whether the code has not yet expired at now
func (o *PhoneNumberOTP) IsValid(now time.Time) bool {
	return now.Before(o.ExpiresAt)
}
