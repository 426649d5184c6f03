package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/nextolk/backend/internal/util"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracingMiddleware returns a middleware that traces HTTP requests using OpenTelemetry
// It wraps the official otelgin middleware and adds custom span attributes
func TracingMiddleware(serviceName string) gin.HandlerFunc {
	base := otelgin.Middleware(serviceName)

	return func(c *gin.Context) {
		base(c)

		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			return
		}

		if requestID := GetRequestID(c); requestID != "" {
			span.SetAttributes(attribute.String("request.id", requestID))
		}
		if userID, ok := util.OptionalUserID(c); ok {
			span.SetAttributes(attribute.Int64("user.id", int64(userID)))
		}
		if limit := c.Query("limit"); limit != "" {
			span.SetAttributes(attribute.String("query.limit", limit))
		}
		if offset := c.Query("offset"); offset != "" {
			span.SetAttributes(attribute.String("query.offset", offset))
		}

		// Record Gin errors as span events
		for _, ginErr := range c.Errors {
			if ginErr.Err != nil {
				span.RecordError(ginErr.Err, trace.WithStackTrace(true))
				span.SetStatus(codes.Error, ginErr.Error())
			}
		}
	}
}
