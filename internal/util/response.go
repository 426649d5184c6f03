package util

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nextolk/backend/internal/errors"
	"github.com/nextolk/backend/internal/logger"
	"go.uber.org/zap"
)

// RespondWithAPIError logs and writes a structured API error
func RespondWithAPIError(c *gin.Context, apiErr *errors.APIError) {
	fields := []zap.Field{
		zap.String("code", string(apiErr.Code)),
		zap.String("message", apiErr.Message),
		zap.String("path", c.FullPath()),
		zap.Int("status", apiErr.Status),
	}
	if apiErr.Field != "" {
		fields = append(fields, zap.String("field", apiErr.Field))
	}
	if requestID := c.GetString("request_id"); requestID != "" {
		fields = append(fields, logger.WithRequestID(requestID))
	}

	if apiErr.Status >= http.StatusInternalServerError {
		logger.Log.Error("API error", fields...)
	} else {
		logger.Log.Warn("API error", fields...)
	}

	c.AbortWithStatusJSON(apiErr.Status, apiErr)
}

// RespondError maps any error to a response. APIErrors keep their status,
// everything else becomes a 500 with a generic message.
func RespondError(c *gin.Context, err error, fallback string) {
	if apiErr, ok := errors.As(err); ok {
		RespondWithAPIError(c, apiErr)
		return
	}
	logger.Log.Error(fallback, zap.Error(err), zap.String("path", c.FullPath()))
	RespondWithAPIError(c, errors.InternalError(fallback))
}

func RespondUnauthorized(c *gin.Context, message ...string) {
	msg := "Authentication credentials were not provided."
	if len(message) > 0 && message[0] != "" {
		msg = message[0]
	}
	RespondWithAPIError(c, errors.Unauthorized(msg))
}

// RespondNotFound sends a 404 naming the resource ("Video not found.")
func RespondNotFound(c *gin.Context, resource string) {
	RespondWithAPIError(c, errors.NotFound(resource))
}

func RespondBadRequest(c *gin.Context, message string) {
	RespondWithAPIError(c, errors.BadRequest(message))
}

func RespondForbidden(c *gin.Context, message ...string) {
	msg := ""
	if len(message) > 0 {
		msg = message[0]
	}
	RespondWithAPIError(c, errors.Forbidden(msg))
}

func RespondInternalError(c *gin.Context, message string) {
	RespondWithAPIError(c, errors.InternalError(message))
}

func RespondConflict(c *gin.Context, message string) {
	RespondWithAPIError(c, errors.Conflict(message))
}

func RespondValidationError(c *gin.Context, field, message string) {
	RespondWithAPIError(c, errors.ValidationError(field, message))
}
