package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/nextolk/backend/internal/util"
)

// RequireAdmin ensures the request is authenticated and the user is an admin.
// It must run after RequireAuth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := util.GetUserFromContext(c)
		if !ok {
			c.Abort()
			return
		}
		if !user.IsAdmin {
			util.RespondForbidden(c)
			return
		}
		c.Next()
	}
}

// AdminForWrites lets safe methods through and requires an admin for the rest
func AdminForWrites(authMiddleware gin.HandlerFunc) gin.HandlerFunc {
	admin := RequireAdmin()
	return func(c *gin.Context) {
		switch c.Request.Method {
		case "GET", "HEAD", "OPTIONS":
			c.Next()
			return
		}
		authMiddleware(c)
		if c.IsAborted() {
			return
		}
		admin(c)
	}
}
