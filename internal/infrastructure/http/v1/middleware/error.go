package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"kitanda/internal/core/apperror"
	appctx "kitanda/internal/core/context"
	"kitanda/pkg/logger"
)

// ErrorHandler middleware transforms errors into consistent JSON responses.
// Hides internal errors from clients while logging full details.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err
		ctx := c.Request.Context()
		requestID := appctx.GetRequestID(ctx)

		// If response already written by handler, do not override it.
		if c.Writer.Written() {
			return
		}

		if appErr, ok := apperror.AsAppError(err); ok {
			if apperror.IsBusinessFailure(err) {
				logger.Debug(ctx, "request rejected", "code", appErr.Code, "message", appErr.Message)
			} else {
				logger.Error(ctx, "request error", "code", appErr.Code, "cause", appErr.Err)
			}
			if appErr.HTTPStatus >= http.StatusInternalServerError {
				c.JSON(appErr.HTTPStatus, gin.H{
					"code":    appErr.Code,
					"message": "Internal server error",
					"details": map[string]any{"request_id": requestID},
				})
				return
			}
			c.JSON(appErr.HTTPStatus, gin.H{
				"code":    appErr.Code,
				"message": appErr.Message,
				"details": appErr.Details,
			})
			return
		}

		// Unknown error - log and return generic message
		logger.Error(ctx, "unhandled error", "error", err)

		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    apperror.CodeInternal,
			"message": "Internal server error",
			"details": map[string]any{
				"request_id": requestID,
			},
		})
	}
}
