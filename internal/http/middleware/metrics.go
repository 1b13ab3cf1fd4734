package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/babycare-backend/internal/observability"
)

// Probe and scrape routes are not recorded.
var unobservedRoutes = map[string]bool{
	"/healthcheck": true,
	"/metrics":     true,
}

// Metrics records API counts and latency. Socket lifetimes are tracked by the
// socket handler, so upgraded requests only count toward requests_total.
func Metrics(m *observability.Metrics) gin.HandlerFunc {
	if m == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		route := c.FullPath()
		if unobservedRoutes[route] {
			c.Next()
			return
		}
		if route == "" {
			route = "unmatched"
		}
		upgrade := c.IsWebsocket()

		start := time.Now()
		if !upgrade {
			m.ApiInflightInc()
			defer m.ApiInflightDec()
		}
		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		if upgrade {
			status = "upgrade"
		}
		m.ObserveAPI(c.Request.Method, route, status, time.Since(start))
	}
}
