package handlers

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"kitanda/internal/domain/series"
	"kitanda/internal/infrastructure/http/v1/dto"
)

// SeriesHandler manages numbering series and their counters.
type SeriesHandler struct {
	*BaseHandler
	service   *series.Service
	allocator *series.Allocator
	now       func() time.Time
}

// NewSeriesHandler creates a series handler.
func NewSeriesHandler(base *BaseHandler, service *series.Service, allocator *series.Allocator) *SeriesHandler {
	return &SeriesHandler{
		BaseHandler: base,
		service:     service,
		allocator:   allocator,
		now:         time.Now,
	}
}

// List handles GET /series
func (h *SeriesHandler) List(c *gin.Context) {
	var q dto.ListSeriesQuery
	if !h.BindQuery(c, &q) {
		return
	}
	items, err := h.service.List(c.Request.Context(), series.ListFilter{Year: q.Year, ActiveOnly: q.ActiveOnly})
	if err != nil {
		h.Error(c, err)
		return
	}
	out := make([]dto.SeriesResponse, len(items))
	for i, s := range items {
		out[i] = dto.FromSeries(s)
	}
	h.OK(c, dto.NewListResponse(out))
}

// Create handles POST /series
func (h *SeriesHandler) Create(c *gin.Context) {
	var req dto.CreateSeriesRequest
	if !h.BindJSON(c, &req) {
		return
	}
	s := req.ToEntity()
	if err := h.service.Create(c.Request.Context(), s); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromSeries(s))
}

// Get handles GET /series/:id
func (h *SeriesHandler) Get(c *gin.Context) {
	seriesID, ok := h.PathID(c)
	if !ok {
		return
	}
	s, err := h.service.Get(c.Request.Context(), seriesID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromSeries(s))
}

// SetActive handles PATCH /series/:id/active
func (h *SeriesHandler) SetActive(c *gin.Context) {
	seriesID, ok := h.PathID(c)
	if !ok {
		return
	}
	var req dto.SetActiveRequest
	if !h.BindJSON(c, &req) {
		return
	}
	s, err := h.service.SetActive(c.Request.Context(), seriesID, *req.Active)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromSeries(s))
}

// SetAllowedUsers handles PUT /series/:id/users
func (h *SeriesHandler) SetAllowedUsers(c *gin.Context) {
	seriesID, ok := h.PathID(c)
	if !ok {
		return
	}
	var req dto.AllowedUsersRequest
	if !h.BindJSON(c, &req) {
		return
	}
	s, err := h.service.SetAllowedUsers(c.Request.Context(), seriesID, req.UserIDs)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromSeries(s))
}

// Allocate handles POST /series/:id/allocate
func (h *SeriesHandler) Allocate(c *gin.Context) {
	seriesID, ok := h.PathID(c)
	if !ok {
		return
	}
	var req dto.AllocateRequest
	if !h.BindJSON(c, &req) {
		return
	}
	a, err := h.allocator.Allocate(c.Request.Context(), seriesID, req.DocType, h.yearOr(req.Year))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromAllocation(a))
}

// RecordManual handles POST /series/:id/manual
func (h *SeriesHandler) RecordManual(c *gin.Context) {
	seriesID, ok := h.PathID(c)
	if !ok {
		return
	}
	var req dto.ManualNumberRequest
	if !h.BindJSON(c, &req) {
		return
	}
	a, err := h.allocator.RecordManual(c.Request.Context(), seriesID, req.DocType, h.yearOr(req.Year), req.Number)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromAllocation(a))
}

// SetNext handles POST /series/:id/next
func (h *SeriesHandler) SetNext(c *gin.Context) {
	seriesID, ok := h.PathID(c)
	if !ok {
		return
	}
	var req dto.SetNextRequest
	if !h.BindJSON(c, &req) {
		return
	}
	year := h.yearOr(req.Year)
	next, err := h.allocator.SetNext(c.Request.Context(), seriesID, req.DocType, year, req.Value)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewCounterResponse(strings.ToUpper(req.DocType), year, next-1))
}

// Counter handles GET /series/:id/counters/:docType
func (h *SeriesHandler) Counter(c *gin.Context) {
	seriesID, ok := h.PathID(c)
	if !ok {
		return
	}
	docType := strings.ToUpper(c.Param("docType"))
	year, ok := h.QueryInt(c, "year", 0)
	if !ok {
		return
	}
	year = h.yearOr(year)
	last, err := h.allocator.Current(c.Request.Context(), seriesID, docType, year)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewCounterResponse(docType, year, last))
}

func (h *SeriesHandler) yearOr(year int) int {
	if year != 0 {
		return year
	}
	return h.now().Year()
}
