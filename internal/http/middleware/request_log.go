package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/babycare-backend/internal/platform/ctxutil"
	"github.com/yungbote/babycare-backend/internal/platform/logger"
)

// RequestLogger writes one line per request after the handler returns. Health
// probes log at debug. The uid value is hashed by the logger.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	if log == nil {
		return func(c *gin.Context) { c.Next() }
	}
	log = log.With("component", "http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		status := c.Writer.Status()
		ctx := c.Request.Context()

		fields := append([]interface{}{
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"bytes", c.Writer.Size(),
			"client_ip", c.ClientIP(),
			"duration_ms", time.Since(start).Milliseconds(),
		}, ctxutil.LogFields(ctx)...)
		if id := ctxutil.GetIdentity(ctx); id != nil {
			fields = append(fields, "uid", id.UID)
		}
		if err := c.Errors.Last(); err != nil {
			fields = append(fields, "error", err.Error())
		}

		switch {
		case status >= 500:
			log.Error("request failed", fields...)
		case status >= 400:
			log.Warn("request rejected", fields...)
		case path == "/healthcheck" || path == "/":
			log.Debug("request", fields...)
		default:
			log.Info("request", fields...)
		}
	}
}
