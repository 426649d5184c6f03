package util

import (
	"github.com/gin-gonic/gin"
	"github.com/nextolk/backend/internal/models"
)

// Context keys set by the auth middleware
const (
	ContextUserKey   = "user"
	ContextUserIDKey = "user_id"
)

// GetUserFromContext returns the authenticated user. When there is none it
// responds with 401 and returns false.
func GetUserFromContext(c *gin.Context) (*models.User, bool) {
	user, exists := c.Get(ContextUserKey)
	if !exists {
		RespondUnauthorized(c)
		return nil, false
	}
	userPtr, ok := user.(*models.User)
	if !ok {
		RespondInternalError(c, "invalid user data in context")
		return nil, false
	}
	return userPtr, true
}

// GetUserIDFromContext returns the authenticated user's ID, responding with
// 401 when the request is anonymous.
func GetUserIDFromContext(c *gin.Context) (uint, bool) {
	userID, exists := c.Get(ContextUserIDKey)
	if !exists {
		RespondUnauthorized(c)
		return 0, false
	}
	id, ok := userID.(uint)
	if !ok {
		RespondInternalError(c, "invalid user ID in context")
		return 0, false
	}
	return id, true
}

// OptionalUserID returns the caller's ID without responding when anonymous.
func OptionalUserID(c *gin.Context) (uint, bool) {
	userID, exists := c.Get(ContextUserIDKey)
	if !exists {
		return 0, false
	}
	id, ok := userID.(uint)
	return id, ok
}
