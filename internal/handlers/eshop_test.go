package handlers

import (
	"fmt"
	"net/http"

	"github.com/nextolk/backend/internal/models"
)

func (suite *HandlersTestSuite) createCategory(name string) *models.Category {
	category := &models.Category{Name: name}
	suite.Require().NoError(suite.db.Create(category).Error)
	return category
}

func (suite *HandlersTestSuite) TestCategoriesReadPublicWriteAdmin() {
	admin := suite.createUser("root", true)
	suite.createCategory("Shoes")

	w := suite.request(http.MethodPost, "/api/eshop/categories/", suite.alice, map[string]string{"name": "Bags"})
	suite.Equal(http.StatusForbidden, w.Code)
	w = suite.request(http.MethodPost, "/api/eshop/categories/", nil, map[string]string{"name": "Bags"})
	suite.Equal(http.StatusUnauthorized, w.Code)

	w = suite.request(http.MethodPost, "/api/eshop/categories/", admin, map[string]string{"name": "Bags"})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var bags map[string]interface{}
	suite.decode(w, &bags)

	w = suite.request(http.MethodPost, "/api/eshop/categories/", admin, map[string]string{"name": "Bags"})
	suite.Equal(http.StatusConflict, w.Code)

	w = suite.request(http.MethodGet, "/api/eshop/categories/", nil, nil)
	suite.Equal(http.StatusOK, w.Code)
	var list []map[string]interface{}
	suite.decode(w, &list)
	suite.Require().Len(list, 2)
	suite.Equal("Bags", list[0]["name"])
	suite.Equal("Shoes", list[1]["name"])

	detail := fmt.Sprintf("/api/eshop/categories/%d/", uint(bags["id"].(float64)))
	w = suite.request(http.MethodPatch, detail, admin, map[string]string{"name": "Handbags"})
	suite.Equal(http.StatusOK, w.Code)
	suite.JSONEq(fmt.Sprintf(`{"id": %d, "name": "Handbags"}`, uint(bags["id"].(float64))), w.Body.String())

	w = suite.request(http.MethodDelete, detail, admin, nil)
	suite.Equal(http.StatusNoContent, w.Code)
	w = suite.request(http.MethodGet, detail, nil, nil)
	suite.Equal(http.StatusNotFound, w.Code)
}

func (suite *HandlersTestSuite) TestCreateProductJSON() {
	shoes := suite.createCategory("Shoes")

	w := suite.request(http.MethodPost, "/api/eshop/products/", suite.alice, map[string]interface{}{
		"name":        "Sneakers",
		"description": "White",
		"price":       "49.90",
		"category":    shoes.ID,
	})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var product map[string]interface{}
	suite.decode(w, &product)
	suite.Equal("49.90", product["price"])
	suite.Equal("Shoes", product["category_name"])
	suite.Equal("alice", product["seller_username"])
	suite.EqualValues(models.DefaultProductStock, product["stock"])
	suite.Equal(true, product["is_available"])
	suite.Nil(product["image_url"])
}

func (suite *HandlersTestSuite) TestCreateProductValidation() {
	cases := []struct {
		name  string
		body  map[string]interface{}
		field string
	}{
		{"missing name", map[string]interface{}{"price": "1.00"}, "name"},
		{"missing price", map[string]interface{}{"name": "Hat"}, "price"},
		{"zero price", map[string]interface{}{"name": "Hat", "price": "0"}, "price"},
		{"three decimals", map[string]interface{}{"name": "Hat", "price": 1.999}, "price"},
		{"negative stock", map[string]interface{}{"name": "Hat", "price": "5", "stock": -1}, "stock"},
		{"unknown category", map[string]interface{}{"name": "Hat", "price": "5", "category": 9999}, "category"},
	}
	for _, tc := range cases {
		suite.Run(tc.name, func() {
			w := suite.request(http.MethodPost, "/api/eshop/products/", suite.alice, tc.body)
			suite.Equal(http.StatusBadRequest, w.Code, w.Body.String())
			suite.Equal(tc.field, suite.errorBody(w)["field"])
		})
	}

	var count int64
	suite.db.Model(&models.Product{}).Count(&count)
	suite.Zero(count)
}

func (suite *HandlersTestSuite) TestProductMultipartImageLifecycle() {
	w := suite.multipartRequest(http.MethodPost, "/api/eshop/products/", suite.alice, map[string]string{
		"name":         "Mug",
		"price":        "12.5",
		"stock":        "3",
		"is_available": "false",
	}, &upload{field: "image", filename: "mug.jpg", data: []byte("jpg")})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var product map[string]interface{}
	suite.decode(w, &product)
	suite.Equal("12.50", product["price"])
	suite.EqualValues(3, product["stock"])
	suite.Equal(false, product["is_available"])
	suite.NotNil(product["image_url"])
	suite.Len(suite.store.Keys(), 1)

	detail := fmt.Sprintf("/api/eshop/products/%d/", uint(product["id"].(float64)))

	w = suite.request(http.MethodPatch, detail, suite.bob, map[string]string{"name": "Stolen"})
	suite.Equal(http.StatusForbidden, w.Code)

	w = suite.multipartRequest(http.MethodPatch, detail, suite.alice, map[string]string{"name": "Big mug"},
		&upload{field: "image", filename: "big.png", data: []byte("png")})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var stored models.Product
	suite.Require().NoError(suite.db.First(&stored, uint(product["id"].(float64))).Error)
	suite.Equal("Big mug", stored.Name)
	suite.Equal(models.Money(1250), stored.Price)
	suite.Equal([]string{stored.Image}, suite.store.Keys())

	w = suite.request(http.MethodDelete, detail, suite.bob, nil)
	suite.Equal(http.StatusForbidden, w.Code)
	w = suite.request(http.MethodDelete, detail, suite.alice, nil)
	suite.Equal(http.StatusNoContent, w.Code)
	suite.Empty(suite.store.Keys())
}

func (suite *HandlersTestSuite) TestListProductsFilters() {
	shoes := suite.createCategory("Shoes")
	suite.Require().NoError(suite.db.Create(&models.Product{SellerID: suite.alice.ID, CategoryID: &shoes.ID, Name: "Boots", Price: 9000, Stock: 1, IsAvailable: true}).Error)
	suite.Require().NoError(suite.db.Create(&models.Product{SellerID: suite.bob.ID, Name: "Scarf", Description: "Wool", Price: 1500, Stock: 1, IsAvailable: true}).Error)

	var all []map[string]interface{}
	suite.decode(suite.request(http.MethodGet, "/api/eshop/products/", suite.alice, nil), &all)
	suite.Len(all, 2)

	var bySeller []map[string]interface{}
	suite.decode(suite.request(http.MethodGet, fmt.Sprintf("/api/eshop/products/?seller_id=%d", suite.bob.ID), suite.alice, nil), &bySeller)
	suite.Require().Len(bySeller, 1)
	suite.Equal("Scarf", bySeller[0]["name"])

	var byCategory []map[string]interface{}
	suite.decode(suite.request(http.MethodGet, fmt.Sprintf("/api/eshop/products/?category=%d", shoes.ID), suite.alice, nil), &byCategory)
	suite.Require().Len(byCategory, 1)
	suite.Equal("Boots", byCategory[0]["name"])

	var searched []map[string]interface{}
	suite.decode(suite.request(http.MethodGet, "/api/eshop/products/?search=wool", suite.alice, nil), &searched)
	suite.Require().Len(searched, 1)
	suite.Equal("Scarf", searched[0]["name"])

	w := suite.request(http.MethodGet, "/api/eshop/products/", nil, nil)
	suite.Equal(http.StatusUnauthorized, w.Code)
}

func (suite *HandlersTestSuite) TestDeleteCategoryUncategorizesProducts() {
	admin := suite.createUser("root", true)
	shoes := suite.createCategory("Shoes")
	product := models.Product{SellerID: suite.alice.ID, CategoryID: &shoes.ID, Name: "Boots", Price: 9000, Stock: 1, IsAvailable: true}
	suite.Require().NoError(suite.db.Create(&product).Error)

	w := suite.request(http.MethodDelete, fmt.Sprintf("/api/eshop/categories/%d/", shoes.ID), admin, nil)
	suite.Equal(http.StatusNoContent, w.Code)

	var stored models.Product
	suite.Require().NoError(suite.db.First(&stored, product.ID).Error)
	suite.Nil(stored.CategoryID)
}
