package handler

import (
	"payme-wallet/internal/adapter/http/dto"
	"payme-wallet/internal/core/domain"
	"payme-wallet/internal/core/ports"
	"payme-wallet/pkg/apperror"
	"payme-wallet/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CardHandler handles the payment instrument registry endpoints.
type CardHandler struct {
	instruments ports.InstrumentRegistry
}

// NewCardHandler creates a new CardHandler.
func NewCardHandler(instruments ports.InstrumentRegistry) *CardHandler {
	return &CardHandler{instruments: instruments}
}

// Register handles POST /api/v1/cards.
func (h *CardHandler) Register(c *gin.Context) {
	id, ok := accountID(c)
	if !ok {
		return
	}

	var req dto.RegisterCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	instrument, err := h.instruments.Register(c.Request.Context(), id, ports.InstrumentDraft{
		Number:     req.Number,
		Currency:   parseCurrency(req.Currency),
		HolderName: req.HolderName,
		Phone:      req.Phone,
		BankName:   req.BankName,
		Expiry:     req.Expiry,
		CVV:        req.CVV,
		CVV2:       req.CVV2,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.ToCardResponse(instrument))
}

// List handles GET /api/v1/cards.
func (h *CardHandler) List(c *gin.Context) {
	id, ok := accountID(c)
	if !ok {
		return
	}

	var currency *domain.Currency
	if raw := c.Query("currency"); raw != "" {
		cur := parseCurrency(raw)
		currency = &cur
	}

	items, err := h.instruments.List(c.Request.Context(), id, currency)
	if err != nil {
		response.Error(c, err)
		return
	}

	out := make([]dto.CardResponse, 0, len(items))
	for i := range items {
		out = append(out, dto.ToCardResponse(&items[i]))
	}
	response.OK(c, out)
}

// Delete handles DELETE /api/v1/cards/:id.
func (h *CardHandler) Delete(c *gin.Context) {
	id, ok := accountID(c)
	if !ok {
		return
	}

	instrumentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("card id must be a UUID"))
		return
	}

	if err := h.instruments.Delete(c.Request.Context(), id, instrumentID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
