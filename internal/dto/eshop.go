package dto

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nextolk/backend/internal/models"
	"github.com/nextolk/backend/internal/storage"
)

type CategoryResponse struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

type CategoryRequest struct {
	Name string `json:"name" form:"name" binding:"required,max=100"`
}

// ProductResponse renders price as a decimal string ("19.99")
type ProductResponse struct {
	ID             uint         `json:"id"`
	Seller         uint         `json:"seller"`
	SellerUsername string       `json:"seller_username"`
	Category       *uint        `json:"category"`
	CategoryName   *string      `json:"category_name"`
	Name           string       `json:"name"`
	Description    string       `json:"description"`
	Price          models.Money `json:"price"`
	ImageURL       *string      `json:"image_url"`
	Stock          int          `json:"stock"`
	IsAvailable    bool         `json:"is_available"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// ProductRequest is a create or update body. Every field is optional at the
// binding level; creation checks the required ones. Multipart bodies carry
// everything as strings, so the typed fields are FlexStrings parsed by the
// handler.
type ProductRequest struct {
	Name        *string     `json:"name" form:"name" binding:"omitempty,max=255"`
	Description *string     `json:"description" form:"description"`
	Price       *FlexString `json:"price" form:"price"`
	Category    *FlexString `json:"category" form:"category"`
	Stock       *FlexString `json:"stock" form:"stock"`
	IsAvailable *FlexString `json:"is_available" form:"is_available"`
}

// FlexString accepts any JSON scalar and keeps its text: "19.99", 19.99 and
// true become "19.99", "19.99" and "true".
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	if len(data) > 0 && (data[0] == '{' || data[0] == '[') {
		return fmt.Errorf("expected a scalar value")
	}
	*f = FlexString(data)
	return nil
}

func ToCategoryResponse(c *models.Category) *CategoryResponse {
	return &CategoryResponse{ID: c.ID, Name: c.Name}
}

func ToCategoryResponses(categories []models.Category) []*CategoryResponse {
	out := make([]*CategoryResponse, len(categories))
	for i := range categories {
		out[i] = ToCategoryResponse(&categories[i])
	}
	return out
}

// ToProductResponse converts a product. Preload Seller and Category for the
// display names.
func ToProductResponse(p *models.Product, store storage.MediaStore) *ProductResponse {
	resp := &ProductResponse{
		ID:          p.ID,
		Seller:      p.SellerID,
		Category:    p.CategoryID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		ImageURL:    storage.URLOrNil(store, p.Image),
		Stock:       p.Stock,
		IsAvailable: p.IsAvailable,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	if p.Seller != nil {
		resp.SellerUsername = p.Seller.Username
	}
	if p.Category != nil {
		name := p.Category.Name
		resp.CategoryName = &name
	}
	return resp
}

func ToProductResponses(products []models.Product, store storage.MediaStore) []*ProductResponse {
	out := make([]*ProductResponse, len(products))
	for i := range products {
		out[i] = ToProductResponse(&products[i], store)
	}
	return out
}
