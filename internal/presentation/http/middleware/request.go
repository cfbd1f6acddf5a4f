// Package middleware provides HTTP middleware for the presentation layer.
package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mkim/mystory/internal/infrastructure/observability/logging"
	"github.com/mkim/mystory/internal/infrastructure/security"
)

const requestIDHeader = "X-Request-ID"

// RequestMiddleware assigns every request an id, stores it on the request
// context for logging.WithContext and logs the completed request on the
// system channel.
func RequestMiddleware(logger *logging.ChanneledLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		id := c.GetHeader(requestIDHeader)
		if id == "" || len(id) > 64 {
			id = security.GenerateULID()
		}
		c.Set(string(logging.RequestIDKey), id)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), logging.RequestIDKey, id))
		c.Header(requestIDHeader, id)

		c.Next()

		status := c.Writer.Status()
		log := logger.WithContext(c.Request.Context(), logging.ChannelSystem)
		attrs := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"duration", time.Since(start),
			"remoteAddr", c.ClientIP(),
		}
		switch {
		case status >= 500:
			log.Error("Request failed", attrs...)
		case status >= 400:
			log.Warn("Request rejected", attrs...)
		default:
			log.Debug("Request completed", attrs...)
		}
	}
}

// GetRequestID retrieves the request id from gin context
func GetRequestID(c *gin.Context) string {
	id, ok := c.Get(string(logging.RequestIDKey))
	if !ok {
		return ""
	}
	s, _ := id.(string)
	return s
}
