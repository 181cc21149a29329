package server

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ppiankov/veritas/internal/apperr"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

// RequestID assigns every request an id, reusing one supplied by the client.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		c.Set(apperr.RequestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// RequestLogger logs one line per request.
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start)
		status := c.Writer.Status()
		attrs := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"ip", c.ClientIP(),
			"user_agent", c.GetHeader("User-Agent"),
			"status_code", status,
			"duration_ms", duration.Milliseconds(),
			"request_id", c.GetString(apperr.RequestIDKey),
		}

		switch {
		case status >= 500:
			logger.Error("HTTP Request", attrs...)
		case duration > 5*time.Second:
			logger.Warn("HTTP Request", append(attrs, "slow", true)...)
		default:
			logger.Info("HTTP Request", attrs...)
		}
	}
}
