package handler

import (
	"payme-wallet/internal/adapter/http/dto"
	"payme-wallet/internal/core/ports"
	"payme-wallet/pkg/response"

	"github.com/gin-gonic/gin"
)

// RateHandler exposes the current conversion rate table.
type RateHandler struct {
	rates ports.RateService
}

// NewRateHandler creates a new RateHandler.
func NewRateHandler(rates ports.RateService) *RateHandler {
	return &RateHandler{rates: rates}
}

// GetTable handles GET /api/v1/rates.
func (h *RateHandler) GetTable(c *gin.Context) {
	table, err := h.rates.Table(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	out := make(map[string]string, len(table.Rates))
	for pair, rate := range table.Rates {
		out[pair] = rate.String()
	}
	response.OK(c, dto.RateTableResponse{
		Rates:     out,
		Origin:    string(table.Origin),
		Timestamp: table.Timestamp.Unix(),
	})
}
