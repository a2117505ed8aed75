package handler

import (
	"strconv"
	"strings"

	"payme-wallet/internal/adapter/http/dto"
	"payme-wallet/internal/adapter/http/middleware"
	"payme-wallet/internal/core/domain"
	"payme-wallet/internal/core/ports"
	"payme-wallet/pkg/apperror"
	"payme-wallet/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WalletHandler handles balance queries and the money-movement flows.
type WalletHandler struct {
	engine ports.TransactionEngine
	ledger ports.Ledger
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(engine ports.TransactionEngine, ledger ports.Ledger) *WalletHandler {
	return &WalletHandler{engine: engine, ledger: ledger}
}

// accountID extracts the authenticated account from the request context.
func accountID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(middleware.CtxAccountID)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return uuid.Nil, false
	}
	return id, true
}

// parseAmount converts a wire amount into a decimal. Precision rules
// are enforced downstream per currency.
func parseAmount(raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, apperror.Validation("amount must be a decimal string")
	}
	return amount, nil
}

func parseCurrency(raw string) domain.Currency {
	return domain.Currency(strings.ToUpper(strings.TrimSpace(raw)))
}

// GetBalance handles GET /api/v1/wallet/balance.
func (h *WalletHandler) GetBalance(c *gin.Context) {
	id, ok := accountID(c)
	if !ok {
		return
	}

	balances, err := h.ledger.Balances(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	out := make([]dto.BalanceResponse, 0, len(balances))
	for _, currency := range domain.SupportedCurrencies() {
		out = append(out, dto.BalanceResponse{
			Currency: string(currency),
			Amount:   balances[currency].String(),
		})
	}
	response.OK(c, out)
}

// Deposit handles POST /api/v1/wallet/deposit.
func (h *WalletHandler) Deposit(c *gin.Context) {
	id, ok := accountID(c)
	if !ok {
		return
	}

	var req dto.DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	amount, err := parseAmount(req.Amount)
	if err != nil {
		response.Error(c, err)
		return
	}

	input := ports.DepositRequest{
		AccountID: id,
		Currency:  parseCurrency(req.Currency),
		Amount:    amount,
	}
	if req.InstrumentID != nil && *req.InstrumentID != "" {
		instrumentID, err := uuid.Parse(*req.InstrumentID)
		if err != nil {
			response.Error(c, apperror.Validation("instrument_id must be a UUID"))
			return
		}
		input.InstrumentID = &instrumentID
	}

	result, err := h.engine.Deposit(c.Request.Context(), input)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.DepositResponse{
		Transaction: dto.ToTransactionResponse(result.Transaction),
		NewBalance:  result.NewBalance.String(),
	})
}

// Exchange handles POST /api/v1/wallet/exchange.
func (h *WalletHandler) Exchange(c *gin.Context) {
	id, ok := accountID(c)
	if !ok {
		return
	}

	var req dto.ExchangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	amount, err := parseAmount(req.Amount)
	if err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.engine.Exchange(c.Request.Context(), ports.ExchangeRequest{
		AccountID:    id,
		FromCurrency: parseCurrency(req.FromCurrency),
		ToCurrency:   parseCurrency(req.ToCurrency),
		FromAmount:   amount,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.ExchangeResponse{
		Transaction: dto.ToTransactionResponse(result.Transaction),
		ToAmount:    result.ToAmount.String(),
		Rate:        result.RateApplied.String(),
		RateOrigin:  string(result.RateOrigin),
		Fee:         result.Fee.String(),
	})
}

// Transfer handles POST /api/v1/wallet/transfer.
func (h *WalletHandler) Transfer(c *gin.Context) {
	id, ok := accountID(c)
	if !ok {
		return
	}

	var req dto.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	amount, err := parseAmount(req.Amount)
	if err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.engine.Transfer(c.Request.Context(), ports.TransferRequest{
		AccountID: id,
		Currency:  parseCurrency(req.Currency),
		Amount:    amount,
		Recipient: req.Recipient,
		Note:      req.Note,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.TransferResponse{
		Transaction: dto.ToTransactionResponse(result.Transaction),
		NewBalance:  result.NewBalance.String(),
	})
}

// RequestWithdrawOTP handles POST /api/v1/wallet/withdraw/request-otp.
func (h *WalletHandler) RequestWithdrawOTP(c *gin.Context) {
	id, ok := accountID(c)
	if !ok {
		return
	}

	var req dto.WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	amount, err := parseAmount(req.Amount)
	if err != nil {
		response.Error(c, err)
		return
	}
	instrumentID, err := uuid.Parse(req.InstrumentID)
	if err != nil {
		response.Error(c, apperror.Validation("instrument_id must be a UUID"))
		return
	}

	challengeRef, err := h.engine.RequestWithdrawalOTP(c.Request.Context(), ports.WithdrawalRequest{
		AccountID:    id,
		InstrumentID: instrumentID,
		Currency:     parseCurrency(req.Currency),
		Amount:       amount,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.WithdrawOTPResponse{
		ChallengeRef: challengeRef.String(),
		Delivery:     "sms",
	})
}

// ConfirmWithdraw handles POST /api/v1/wallet/withdraw/confirm.
func (h *WalletHandler) ConfirmWithdraw(c *gin.Context) {
	id, ok := accountID(c)
	if !ok {
		return
	}

	var req dto.ConfirmWithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	challengeRef, err := uuid.Parse(req.ChallengeRef)
	if err != nil {
		response.Error(c, apperror.Validation("challenge_ref must be a UUID"))
		return
	}

	result, err := h.engine.ConfirmWithdrawal(c.Request.Context(), ports.ConfirmRequest{
		AccountID:    id,
		ChallengeRef: challengeRef,
		Code:         req.Code,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.WithdrawResponse{
		Transaction: dto.ToTransactionResponse(result.Transaction),
		Fee:         result.Fee.String(),
		NetAmount:   result.NetAmount.String(),
		NewBalance:  result.NewBalance.String(),
	})
}

// ListTransactions handles GET /api/v1/wallet/transactions.
func (h *WalletHandler) ListTransactions(c *gin.Context) {
	id, ok := accountID(c)
	if !ok {
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			response.Error(c, apperror.Validation("limit must be a non-negative integer"))
			return
		}
		limit = parsed
	}

	items, err := h.engine.History(c.Request.Context(), id, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	out := make([]dto.TransactionResponse, 0, len(items))
	for i := range items {
		out = append(out, dto.ToTransactionResponse(&items[i]))
	}
	response.OK(c, out)
}
