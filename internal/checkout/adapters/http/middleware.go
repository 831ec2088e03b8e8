package http

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

// WithMetrics records request count and latency per route.
func WithMetrics(metrics *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.RecordRequest(c.Request.Context(), c.Request.Method, route, c.Writer.Status(), time.Since(start).Seconds())
	}
}

// WithErrorLogging logs errors attached to the context by handlers.
func WithErrorLogging(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		for _, err := range c.Errors {
			logger.ErrorContext(c.Request.Context(), "request failed",
				"method", c.Request.Method,
				"route", c.FullPath(),
				"status", c.Writer.Status(),
				"error", err.Err,
			)
		}
	}
}
