// Package webhook implements the authenticated HTTP intake gin routes
// spec.md §4.13 describes, one per provider (mail push, chat push,
// ticketing), grounded on
// original_source/src/agent1/webhook/{app,middleware,guards}.py and its
// routes/ package.
package webhook

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// requestIDHeader is the header clients may supply to correlate a request
// across systems; one is generated when absent.
const requestIDHeader = "X-Request-ID"

// RequestID attaches a request ID to every request and logs method, path,
// status, and latency once the handler returns, matching
// middleware.py's RequestIdMiddleware.
func RequestID(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader(requestIDHeader)
		if reqID == "" {
			reqID = uuid.New().String()[:8]
		}
		c.Set("request_id", reqID)
		c.Header(requestIDHeader, reqID)

		start := time.Now()
		c.Next()
		elapsed := time.Since(start)

		log.Info("http_request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency_ms", elapsed.Milliseconds(),
			"request_id", reqID,
		)
	}
}
