package search

import (
	"time"

	"github.com/nextolk/backend/internal/models"
)

// VideoDoc is the indexed form of a completed video
type VideoDoc struct {
	ID            uint     `json:"id"`
	UserID        uint     `json:"user_id"`
	Username      string   `json:"username"`
	Caption       string   `json:"caption"`
	Hashtags      []string `json:"hashtags,omitempty"`
	AudioName     string   `json:"audio_name,omitempty"`
	LikesCount    int      `json:"likes_count"`
	CommentsCount int      `json:"comments_count"`
	CreatedAt     string   `json:"created_at"`
}

// ProductDoc is the indexed form of a product
type ProductDoc struct {
	ID             uint    `json:"id"`
	SellerID       uint    `json:"seller_id"`
	SellerUsername string  `json:"seller_username"`
	Name           string  `json:"name"`
	Description    string  `json:"description"`
	CategoryName   string  `json:"category_name,omitempty"`
	Price          float64 `json:"price"`
	IsAvailable    bool    `json:"is_available"`
	CreatedAt      string  `json:"created_at"`
}

// NewVideoDoc builds a VideoDoc. The User association should be loaded.
func NewVideoDoc(v *models.Video) VideoDoc {
	doc := VideoDoc{
		ID:            v.ID,
		UserID:        v.UserID,
		Caption:       v.Caption,
		Hashtags:      v.Hashtags,
		LikesCount:    v.LikesCount,
		CommentsCount: v.CommentsCount,
		CreatedAt:     v.CreatedAt.UTC().Format(time.RFC3339),
	}
	if v.User != nil {
		doc.Username = v.User.Username
	}
	if v.AudioName != nil {
		doc.AudioName = *v.AudioName
	}
	return doc
}

// NewProductDoc builds a ProductDoc. Seller and Category should be loaded.
func NewProductDoc(p *models.Product) ProductDoc {
	doc := ProductDoc{
		ID:          p.ID,
		SellerID:    p.SellerID,
		Name:        p.Name,
		Description: p.Description,
		Price:       float64(p.Price) / 100,
		IsAvailable: p.IsAvailable,
		CreatedAt:   p.CreatedAt.UTC().Format(time.RFC3339),
	}
	if p.Seller != nil {
		doc.SellerUsername = p.Seller.Username
	}
	if p.Category != nil {
		doc.CategoryName = p.Category.Name
	}
	return doc
}
