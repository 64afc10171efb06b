package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"kitanda/pkg/logger"
)

// Logger writes one entry per request. Probes and scrapes go to debug.
func Logger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		kv := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"route", c.FullPath(),
			"status", status,
			"bytes", c.Writer.Size(),
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		}
		if q := c.Request.URL.RawQuery; q != "" {
			kv = append(kv, "query", q)
		}
		if len(c.Errors) > 0 {
			kv = append(kv, "errors", c.Errors.Errors())
		}

		entry := log.WithContext(c.Request.Context())
		switch {
		case status >= 500:
			entry.Errorw("http request", kv...)
		case quietRoute(c.FullPath()):
			entry.Debugw("http request", kv...)
		default:
			entry.Infow("http request", kv...)
		}
	}
}

func quietRoute(route string) bool {
	return route == "/metrics" || strings.HasPrefix(route, "/health/")
}
