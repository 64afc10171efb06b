// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"kitanda/internal/infrastructure/http/v1/middleware"
)

// route binds a handler to a method and path behind a permission check.
type route struct {
	method     string
	path       string
	permission string
	handler    gin.HandlerFunc
}

// registerRoutes wires a route table onto group. Every route is guarded by
// RequirePermission so no endpoint can be registered without one.
func registerRoutes(group *gin.RouterGroup, routes []route) {
	for _, r := range routes {
		group.Handle(r.method, r.path, middleware.RequirePermission(r.permission), r.handler)
	}
}
