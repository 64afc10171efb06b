package handlers

import (
	"github.com/gin-gonic/gin"

	"kitanda/internal/domain/reports/model7"
	"kitanda/internal/infrastructure/http/v1/dto"
)

// ReportsHandler handles HTTP requests for reports.
type ReportsHandler struct {
	*BaseHandler
	model7 *model7.Service
}

// NewReportsHandler creates a new reports handler.
func NewReportsHandler(base *BaseHandler, model7Service *model7.Service) *ReportsHandler {
	return &ReportsHandler{BaseHandler: base, model7: model7Service}
}

// Model7 handles GET /reports/model7
func (h *ReportsHandler) Model7(c *gin.Context) {
	var q dto.Model7Query
	if !h.BindQuery(c, &q) {
		return
	}
	regime, err := model7.ParseRegime(q.Regime)
	if err != nil {
		h.Error(c, err)
		return
	}
	report, err := h.model7.Generate(c.Request.Context(), model7.Period{Year: q.Year, Month: q.Month}, regime)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromModel7(report))
}
