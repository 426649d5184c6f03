package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/nextolk/backend/internal/dto"
	"github.com/nextolk/backend/internal/models"
	"github.com/nextolk/backend/internal/storage"
	"github.com/nextolk/backend/internal/util"
	"gorm.io/gorm"
)

// ListCategories lists categories alphabetically
// GET /api/eshop/categories/
func (h *Handlers) ListCategories(c *gin.Context) {
	categories := []models.Category{}
	if err := h.db(c).Order("name ASC").Find(&categories).Error; err != nil {
		util.RespondError(c, err, "Failed to list categories")
		return
	}
	c.JSON(http.StatusOK, dto.ToCategoryResponses(categories))
}

// GET /api/eshop/categories/:id/
func (h *Handlers) GetCategory(c *gin.Context) {
	category, ok := h.loadCategory(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, dto.ToCategoryResponse(category))
}

// CreateCategory adds a category. Admin only.
// POST /api/eshop/categories/
func (h *Handlers) CreateCategory(c *gin.Context) {
	var req dto.CategoryRequest
	if err := c.ShouldBind(&req); err != nil {
		respondBindError(c, err)
		return
	}
	category := models.Category{Name: strings.TrimSpace(req.Name)}
	if err := h.db(c).Create(&category).Error; err != nil {
		h.respondCategoryWriteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.ToCategoryResponse(&category))
}

// UpdateCategory renames a category. Admin only.
// PUT|PATCH /api/eshop/categories/:id/
func (h *Handlers) UpdateCategory(c *gin.Context) {
	category, ok := h.loadCategory(c)
	if !ok {
		return
	}
	var req dto.CategoryRequest
	if err := c.ShouldBind(&req); err != nil {
		respondBindError(c, err)
		return
	}
	name := strings.TrimSpace(req.Name)
	if err := h.db(c).Model(category).Update("name", name).Error; err != nil {
		h.respondCategoryWriteError(c, err)
		return
	}
	category.Name = name
	c.JSON(http.StatusOK, dto.ToCategoryResponse(category))
}

// DeleteCategory removes a category; its products become uncategorized.
// Admin only.
// DELETE /api/eshop/categories/:id/
func (h *Handlers) DeleteCategory(c *gin.Context) {
	category, ok := h.loadCategory(c)
	if !ok {
		return
	}

	var productIDs []uint
	err := h.db(c).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Product{}).Where("category_id = ?", category.ID).Pluck("id", &productIDs).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Product{}).Where("category_id = ?", category.ID).Update("category_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(category).Error
	})
	if err != nil {
		util.RespondError(c, err, "Failed to delete category")
		return
	}
	for _, id := range productIDs {
		h.indexProduct(c.Request.Context(), id)
	}
	c.Status(http.StatusNoContent)
}

func (h *Handlers) loadCategory(c *gin.Context) (*models.Category, bool) {
	id, ok := util.ParseIDParam(c, "id", "Category")
	if !ok {
		return nil, false
	}
	var category models.Category
	if err := h.db(c).First(&category, id).Error; err != nil {
		util.HandleDBError(c, err, "Category")
		return nil, false
	}
	return &category, true
}

func (h *Handlers) respondCategoryWriteError(c *gin.Context, err error) {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		util.RespondConflict(c, "category with this name already exists.")
		return
	}
	util.RespondError(c, err, "Failed to save category")
}

// ListProducts lists products newest first
// GET /api/eshop/products/?seller_id=&category=&search=
func (h *Handlers) ListProducts(c *gin.Context) {
	limit, offset := util.Pagination(c)
	query := h.productQuery(c)

	if raw := c.Query("seller_id"); raw != "" {
		id, ok := util.ParseUint(raw)
		if !ok {
			c.JSON(http.StatusOK, []*dto.ProductResponse{})
			return
		}
		query = query.Where("seller_id = ?", id)
	}
	if raw := c.Query("category"); raw != "" {
		id, ok := util.ParseUint(raw)
		if !ok {
			c.JSON(http.StatusOK, []*dto.ProductResponse{})
			return
		}
		query = query.Where("category_id = ?", id)
	}
	if q := strings.TrimSpace(c.Query("search")); q != "" {
		p := "%" + strings.ToLower(q) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", p, p)
	}

	products := []models.Product{}
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Offset(offset).Find(&products).Error; err != nil {
		util.RespondError(c, err, "Failed to list products")
		return
	}
	c.JSON(http.StatusOK, dto.ToProductResponses(products, h.store))
}

// GET /api/eshop/products/:id/
func (h *Handlers) GetProduct(c *gin.Context) {
	product, ok := h.loadProduct(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, dto.ToProductResponse(product, h.store))
}

// CreateProduct lists a product for sale by the caller
// POST /api/eshop/products/
func (h *Handlers) CreateProduct(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req dto.ProductRequest
	if err := c.ShouldBind(&req); err != nil {
		respondBindError(c, err)
		return
	}
	if req.Name == nil || strings.TrimSpace(*req.Name) == "" {
		util.RespondValidationError(c, "name", "This field is required.")
		return
	}
	if req.Price == nil {
		util.RespondValidationError(c, "price", "This field is required.")
		return
	}

	product := models.Product{
		SellerID:    user.ID,
		Stock:       models.DefaultProductStock,
		IsAvailable: models.DefaultProductIsAvailable,
	}
	if !h.applyProductFields(c, &product, &req) {
		return
	}

	image, hasImage, ok := h.saveImageField(c, "image", storage.ProductImagesPrefix)
	if !ok {
		return
	}
	if hasImage {
		product.Image = image
	}

	if err := h.db(c).Create(&product).Error; err != nil {
		h.deleteMedia(c.Request.Context(), image)
		util.RespondError(c, err, "Failed to create product")
		return
	}
	h.respondProduct(c, http.StatusCreated, product.ID)
}

// UpdateProduct edits the caller's own product
// PUT|PATCH /api/eshop/products/:id/
func (h *Handlers) UpdateProduct(c *gin.Context) {
	product, ok := h.loadOwnProduct(c)
	if !ok {
		return
	}
	var req dto.ProductRequest
	if err := c.ShouldBind(&req); err != nil {
		respondBindError(c, err)
		return
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		util.RespondValidationError(c, "name", "This field may not be blank.")
		return
	}
	if !h.applyProductFields(c, product, &req) {
		return
	}

	oldImage := product.Image
	image, hasImage, ok := h.saveImageField(c, "image", storage.ProductImagesPrefix)
	if !ok {
		return
	}
	if hasImage {
		product.Image = image
	}

	ctx := c.Request.Context()
	err := h.db(c).Model(product).
		Select("name", "description", "price", "category_id", "stock", "is_available", "image").
		Updates(product).Error
	if err != nil {
		h.deleteMedia(ctx, image)
		util.RespondError(c, err, "Failed to update product")
		return
	}
	if hasImage && oldImage != "" && oldImage != image {
		h.deleteMedia(ctx, oldImage)
	}
	h.respondProduct(c, http.StatusOK, product.ID)
}

// DeleteProduct removes the caller's own product and its image
// DELETE /api/eshop/products/:id/
func (h *Handlers) DeleteProduct(c *gin.Context) {
	product, ok := h.loadOwnProduct(c)
	if !ok {
		return
	}
	if err := h.db(c).Delete(product).Error; err != nil {
		util.RespondError(c, err, "Failed to delete product")
		return
	}
	ctx := c.Request.Context()
	h.deleteMedia(ctx, product.Image)
	h.unindexProduct(ctx, product.ID)
	c.Status(http.StatusNoContent)
}

// applyProductFields validates the request and copies the present fields
// onto p, responding 400 on the first invalid one
func (h *Handlers) applyProductFields(c *gin.Context, p *models.Product, req *dto.ProductRequest) bool {
	if req.Name != nil {
		p.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		p.Description = *req.Description
	}

	if req.Price != nil {
		price, err := models.ParseMoney(string(*req.Price))
		if err != nil {
			util.RespondValidationError(c, "price", sentence(err.Error()))
			return false
		}
		if price <= 0 {
			util.RespondValidationError(c, "price", "Price must be greater than zero.")
			return false
		}
		p.Price = price
	}

	if req.Stock != nil {
		stock, err := strconv.Atoi(strings.TrimSpace(string(*req.Stock)))
		if err != nil {
			util.RespondValidationError(c, "stock", "A valid integer is required.")
			return false
		}
		if stock < 0 {
			util.RespondValidationError(c, "stock", "Stock cannot be negative.")
			return false
		}
		p.Stock = stock
	}

	if req.IsAvailable != nil {
		p.IsAvailable = util.ParseBool(string(*req.IsAvailable))
	}

	if req.Category != nil {
		raw := strings.TrimSpace(string(*req.Category))
		if raw == "" || raw == "null" {
			p.CategoryID = nil
			p.Category = nil
			return true
		}
		id, ok := util.ParseUint(raw)
		var count int64
		if ok {
			if err := h.db(c).Model(&models.Category{}).Where("id = ?", id).Count(&count).Error; err != nil {
				util.RespondError(c, err, "Failed to load category")
				return false
			}
		}
		if count == 0 {
			util.RespondValidationError(c, "category", fmt.Sprintf("Invalid pk %q - object does not exist.", raw))
			return false
		}
		p.CategoryID = &id
		p.Category = nil
	}
	return true
}

func (h *Handlers) productQuery(c *gin.Context) *gorm.DB {
	return h.db(c).Preload("Seller").Preload("Category")
}

// respondProduct reloads the product with its associations, refreshes its
// search document and writes it
func (h *Handlers) respondProduct(c *gin.Context, status int, id uint) {
	h.indexProduct(c.Request.Context(), id)

	var product models.Product
	if err := h.productQuery(c).First(&product, id).Error; err != nil {
		util.HandleDBError(c, err, "Product")
		return
	}
	c.JSON(status, dto.ToProductResponse(&product, h.store))
}

func (h *Handlers) loadProduct(c *gin.Context) (*models.Product, bool) {
	id, ok := util.ParseIDParam(c, "id", "Product")
	if !ok {
		return nil, false
	}
	var product models.Product
	if err := h.productQuery(c).First(&product, id).Error; err != nil {
		util.HandleDBError(c, err, "Product")
		return nil, false
	}
	return &product, true
}

func (h *Handlers) loadOwnProduct(c *gin.Context) (*models.Product, bool) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return nil, false
	}
	product, ok := h.loadProduct(c)
	if !ok {
		return nil, false
	}
	if product.SellerID != userID {
		util.RespondForbidden(c)
		return nil, false
	}
	return product, true
}

// sentence capitalizes msg and ends it with a period
func sentence(msg string) string {
	if msg == "" {
		return msg
	}
	msg = strings.ToUpper(msg[:1]) + msg[1:]
	if !strings.HasSuffix(msg, ".") {
		msg += "."
	}
	return msg
}
