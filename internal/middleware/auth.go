package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/nextolk/backend/internal/auth"
	"github.com/nextolk/backend/internal/util"
)

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header
func BearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

// RequireAuth validates the access token and stores the user in the context.
// It does not call c.Next so AdminForWrites can run it inline.
func RequireAuth(authService auth.AuthServiceInterface) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := BearerToken(c)
		if token == "" {
			util.RespondUnauthorized(c, "Authentication credentials were not provided.")
			return
		}

		user, err := authService.ValidateToken(token)
		if err != nil {
			util.RespondUnauthorized(c, "Given token not valid for any token type")
			return
		}

		c.Set(util.ContextUserKey, user)
		c.Set(util.ContextUserIDKey, user.ID)
	}
}
