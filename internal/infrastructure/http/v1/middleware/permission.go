// Package middleware provides HTTP middleware for the API.
package middleware

import (
	"github.com/gin-gonic/gin"

	"kitanda/internal/core/apperror"
	appctx "kitanda/internal/core/context"
)

// RequirePermission middleware checks if user has required permission.
// Admins automatically have all permissions.
func RequirePermission(permission string) gin.HandlerFunc {
	return RequireAnyPermission(permission)
}

// RequireAnyPermission middleware checks if user has any of the required permissions.
func RequireAnyPermission(permissions ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if appctx.GetUser(ctx) == nil {
			abortUnauthorized(c, "authentication required")
			return
		}

		for _, required := range permissions {
			if appctx.HasPermission(ctx, required) {
				c.Next()
				return
			}
		}

		err := apperror.NewForbidden("insufficient permissions")
		if len(permissions) == 1 {
			err = err.WithDetail("required_permission", permissions[0])
		} else {
			err = err.WithDetail("required_permissions", permissions)
		}
		_ = c.Error(err)
		c.Abort()
	}
}
