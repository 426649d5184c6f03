package models

import "time"

// Category groups products. Names are unique and listed alphabetically.
type Category struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:100;uniqueIndex;not null" json:"name"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Product is a listing owned by a seller. Removing its category leaves the
// product uncategorized.
type Product struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	SellerID   uint      `gorm:"not null;index" json:"seller"`
	Seller     *User     `gorm:"foreignKey:SellerID;constraint:OnDelete:CASCADE" json:"-"`
	CategoryID *uint     `gorm:"index" json:"category"`
	Category   *Category `gorm:"foreignKey:CategoryID;constraint:OnDelete:SET NULL" json:"-"`

	Name        string `gorm:"size:255;not null" json:"name"`
	Description string `gorm:"type:text;not null;default:''" json:"description"`
	Price       Money  `gorm:"type:decimal(10,2);not null" json:"price"`
	Image       string `gorm:"size:512" json:"image"`
	Stock       int    `gorm:"not null" json:"stock"`
	IsAvailable bool   `gorm:"not null" json:"is_available"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Product defaults applied when a create request leaves the field out
const (
	DefaultProductStock       = 1
	DefaultProductIsAvailable = true
)
