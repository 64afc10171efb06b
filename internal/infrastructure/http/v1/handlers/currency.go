package handlers

import (
	"github.com/gin-gonic/gin"

	"kitanda/internal/domain/currency"
	"kitanda/internal/infrastructure/http/v1/dto"
	"kitanda/pkg/logger"
)

// CurrencyHandler exposes the exchange-rate table.
type CurrencyHandler struct {
	*BaseHandler
	converter *currency.Converter
}

// NewCurrencyHandler creates a currency handler.
func NewCurrencyHandler(base *BaseHandler, converter *currency.Converter) *CurrencyHandler {
	return &CurrencyHandler{BaseHandler: base, converter: converter}
}

// Rates handles GET /currencies/rates
func (h *CurrencyHandler) Rates(c *gin.Context) {
	h.OK(c, dto.NewListResponse(dto.FromRates(h.converter.Rates())))
}

// SetRate handles PUT /currencies/:code/rate
func (h *CurrencyHandler) SetRate(c *gin.Context) {
	var req dto.SetRateRequest
	if !h.BindJSON(c, &req) {
		return
	}
	code, err := currency.Normalize(c.Param("code"))
	if err != nil {
		h.Error(c, err)
		return
	}
	if err := h.converter.SetRate(code, req.Rate); err != nil {
		h.Error(c, err)
		return
	}
	logger.Info(c.Request.Context(), "exchange rate updated", "currency", code, "rate", req.Rate.String())
	h.OK(c, dto.RateResponse{Code: code, Rate: req.Rate.String()})
}
