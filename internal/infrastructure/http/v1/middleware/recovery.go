// Package middleware holds the gin middleware chain of the v1 API.
package middleware

import (
	"fmt"
	"io"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"kitanda/internal/core/apperror"
	appctx "kitanda/internal/core/context"
	"kitanda/pkg/logger"
)

// Recovery turns a handler panic into a 500 in the API error shape. The
// response is written here because ErrorHandler never resumes after a panic.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, recovered any) {
		ctx := c.Request.Context()
		logger.Error(ctx, "panic",
			"panic", recovered,
			"method", c.Request.Method,
			"route", c.FullPath(),
			"stack", string(debug.Stack()),
		)

		_ = c.Error(apperror.NewInternal(fmt.Errorf("panic: %v", recovered)))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"code":    apperror.CodeInternal,
			"message": "Internal server error",
			"details": map[string]any{"request_id": appctx.GetRequestID(ctx)},
		})
	})
}
