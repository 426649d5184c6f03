package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nextolk/backend/internal/auth"
	"github.com/nextolk/backend/internal/cache"
	"github.com/nextolk/backend/internal/models"
	"github.com/nextolk/backend/internal/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func authRouter(mock *auth.MockAuthService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestIDMiddleware())
	requireAuth := RequireAuth(mock)

	router.GET("/me", requireAuth, func(c *gin.Context) {
		id, _ := util.GetUserIDFromContext(c)
		c.JSON(http.StatusOK, gin.H{"user_id": id})
	})
	router.GET("/admin", requireAuth, RequireAdmin(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	categories := router.Group("/categories", AdminForWrites(requireAuth))
	categories.GET("", func(c *gin.Context) { c.Status(http.StatusOK) })
	categories.POST("", func(c *gin.Context) { c.Status(http.StatusCreated) })
	return router
}

func do(router *gin.Engine, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRequireAuth(t *testing.T) {
	mock := auth.NewMockAuthService()
	user := &models.User{Username: "viewer"}
	mock.AddUser(user)
	router := authRouter(mock)

	w := do(router, "GET", "/me", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Authentication credentials were not provided.")

	w = do(router, "GET", "/me", "garbage")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(router, "GET", "/me", "mock_access_1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":1}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRequireAdmin(t *testing.T) {
	mock := auth.NewMockAuthService()
	mock.AddUser(&models.User{Username: "plain"})
	admin := &models.User{Username: "boss"}
	mock.AddUser(admin)
	admin.IsAdmin = true
	router := authRouter(mock)

	assert.Equal(t, http.StatusForbidden, do(router, "GET", "/admin", "mock_access_1").Code)
	assert.Equal(t, http.StatusNoContent, do(router, "GET", "/admin", "mock_access_2").Code)
}

func TestAdminForWrites(t *testing.T) {
	mock := auth.NewMockAuthService()
	mock.AddUser(&models.User{Username: "plain"})
	admin := &models.User{Username: "boss"}
	mock.AddUser(admin)
	admin.IsAdmin = true
	router := authRouter(mock)

	assert.Equal(t, http.StatusOK, do(router, "GET", "/categories", "").Code, "reads are public")
	assert.Equal(t, http.StatusUnauthorized, do(router, "POST", "/categories", "").Code)
	assert.Equal(t, http.StatusForbidden, do(router, "POST", "/categories", "mock_access_1").Code)
	assert.Equal(t, http.StatusCreated, do(router, "POST", "/categories", "mock_access_2").Code)
}

func TestBearerToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/", nil)

	c.Request.Header.Set("Authorization", "bearer abc.def")
	assert.Equal(t, "abc.def", BearerToken(c))
	c.Request.Header.Set("Authorization", "Token abc")
	assert.Equal(t, "", BearerToken(c))
}

func TestResponseCache(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := cache.NewMemoryStore()
	calls := 0

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(util.ContextUserIDKey, uint(7))
		c.Next()
	})
	router.GET("/feed", ResponseCacheMiddleware(store, "feed", time.Minute), func(c *gin.Context) {
		calls++
		c.JSON(http.StatusOK, gin.H{"calls": calls})
	})
	router.POST("/follow", CacheInvalidationMiddleware(store, "feed"), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})

	first := do(router, "GET", "/feed", "")
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))
	second := do(router, "GET", "/feed", "")
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, 1, calls)

	assert.Equal(t, "MISS", do(router, "GET", "/feed?limit=5", "").Header().Get("X-Cache"), "query is part of the key")

	do(router, "POST", "/follow", "")
	third := do(router, "GET", "/feed", "")
	assert.Equal(t, "MISS", third.Header().Get("X-Cache"))
	assert.JSONEq(t, `{"calls":3}`, third.Body.String())
}
