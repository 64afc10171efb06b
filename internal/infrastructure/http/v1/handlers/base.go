// Package handlers holds the gin handlers of the v1 API. Handlers only bind,
// call a domain service and render; failures go through c.Error so that
// middleware.ErrorHandler renders every error the same way.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"kitanda/internal/core/apperror"
	"kitanda/internal/core/id"
)

// BaseHandler carries the binding and rendering helpers shared by handlers.
type BaseHandler struct{}

func NewBaseHandler() *BaseHandler {
	return &BaseHandler{}
}

// BindJSON binds the body into obj. On failure it records a validation
// error and returns false.
func (h *BaseHandler) BindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		h.Error(c, apperror.NewValidation("invalid request body").WithDetail("error", err.Error()))
		return false
	}
	return true
}

// BindQuery is BindJSON for the query string.
func (h *BaseHandler) BindQuery(c *gin.Context, obj any) bool {
	if err := c.ShouldBindQuery(obj); err != nil {
		h.Error(c, apperror.NewValidation("invalid query parameters").WithDetail("error", err.Error()))
		return false
	}
	return true
}

// PathID parses the :id path parameter.
func (h *BaseHandler) PathID(c *gin.Context) (id.ID, bool) {
	v, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format").WithDetail("value", c.Param("id")))
		return id.ID{}, false
	}
	return v, true
}

// QueryInt reads an optional non-negative integer query parameter.
func (h *BaseHandler) QueryInt(c *gin.Context, key string, def int) (int, bool) {
	raw, present := c.GetQuery(key)
	if !present || raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		h.Error(c, apperror.NewValidation("invalid query parameter").
			WithDetail("parameter", key).
			WithDetail("value", raw))
		return 0, false
	}
	return n, true
}

// Error records err for middleware.ErrorHandler and stops the chain.
func (h *BaseHandler) Error(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, data)
}

func (h *BaseHandler) OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}
