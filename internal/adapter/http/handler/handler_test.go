package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"payme-wallet/internal/adapter/http/dto"
	"payme-wallet/internal/adapter/http/middleware"
	"payme-wallet/internal/core/domain"
	"payme-wallet/internal/core/ports"
	"payme-wallet/internal/core/ports/mocks"
	"payme-wallet/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func jsonRequest(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, *gin.Context) {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, path, bytes.NewReader(raw))
	c.Request.Header.Set("Content-Type", "application/json")
	return w, c
}

func authed(c *gin.Context, accountID uuid.UUID) {
	c.Set(middleware.CtxAccountID, accountID)
	c.Set(middleware.CtxUsername, "alice")
}

func responseData(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data, ok := resp["data"].(map[string]interface{})
	require.True(t, ok, "response has no data object: %s", w.Body.String())
	return data
}

func completedTx(accountID uuid.UUID, txType domain.TransactionType) *domain.Transaction {
	return &domain.Transaction{
		ID:           uuid.New(),
		AccountID:    accountID,
		Type:         txType,
		Status:       domain.TransactionStatusCompleted,
		FromCurrency: domain.CurrencyUSD,
		FromAmount:   decimal.RequireFromString("100.00"),
		ToCurrency:   domain.CurrencyUSD,
		ToAmount:     decimal.RequireFromString("100.00"),
		Fee:          decimal.Zero,
		NetAmount:    decimal.RequireFromString("100.00"),
		CreatedAt:    time.Now().UTC(),
	}
}

// --- Auth Handler ---

func TestRegister_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockAuth := mocks.NewMockAuthService(ctrl)
	h := NewAuthHandler(mockAuth)

	account := &domain.Account{
		ID:       uuid.New(),
		Email:    "alice@example.com",
		Username: "alice",
		Status:   domain.AccountStatusActive,
	}
	mockAuth.EXPECT().Register(gomock.Any(), "alice@example.com", "alice", "password123").
		Return(account, nil)

	w, c := jsonRequest(t, http.MethodPost, "/api/v1/auth/register", dto.RegisterRequest{
		Email:    "alice@example.com",
		Username: "alice",
		Password: "password123",
	})

	h.Register(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	data := responseData(t, w)
	assert.Equal(t, account.ID.String(), data["account_id"])
	assert.Equal(t, "alice@example.com", data["email"])
}

func TestRegister_ValidationError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := NewAuthHandler(mocks.NewMockAuthService(ctrl))

	w, c := jsonRequest(t, http.MethodPost, "/api/v1/auth/register", map[string]string{})

	h.Register(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRegister_AccountExists(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockAuth := mocks.NewMockAuthService(ctrl)
	h := NewAuthHandler(mockAuth)

	mockAuth.EXPECT().Register(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, apperror.ErrAccountExists())

	w, c := jsonRequest(t, http.MethodPost, "/", dto.RegisterRequest{
		Email:    "taken@example.com",
		Username: "taken",
		Password: "password123",
	})

	h.Register(c)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestLogin_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockAuth := mocks.NewMockAuthService(ctrl)
	h := NewAuthHandler(mockAuth)

	mockAuth.EXPECT().Login(gomock.Any(), "alice", "password123").Return(&ports.AuthResult{
		AccountID: uuid.New(),
		Token:     "jwt-token-123",
		ExpiresAt: time.Now().Add(24 * time.Hour),
	}, nil)

	w, c := jsonRequest(t, http.MethodPost, "/", dto.LoginRequest{
		Username: "alice",
		Password: "password123",
	})

	h.Login(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := responseData(t, w)
	assert.Equal(t, "jwt-token-123", data["token"])
}

func TestLogin_InvalidCredentials(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockAuth := mocks.NewMockAuthService(ctrl)
	h := NewAuthHandler(mockAuth)

	mockAuth.EXPECT().Login(gomock.Any(), "bad", "badpassword").
		Return(nil, apperror.ErrInvalidCredentials())

	w, c := jsonRequest(t, http.MethodPost, "/", dto.LoginRequest{
		Username: "bad",
		Password: "badpassword",
	})

	h.Login(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

// --- Wallet Handler ---

func TestGetBalance_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLedger := mocks.NewMockLedger(ctrl)
	h := NewWalletHandler(mocks.NewMockTransactionEngine(ctrl), mockLedger)

	accID := uuid.New()
	mockLedger.EXPECT().Balances(gomock.Any(), accID).Return(map[domain.Currency]decimal.Decimal{
		domain.CurrencyUSD:  decimal.RequireFromString("120.50"),
		domain.CurrencyUSDT: decimal.Zero,
		domain.CurrencyIRR:  decimal.RequireFromString("5000000"),
	}, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/wallet/balance", nil)
	authed(c, accID)

	h.GetBalance(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data []dto.BalanceResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 3)
	assert.Equal(t, "USD", resp.Data[0].Currency)
	assert.Equal(t, "120.5", resp.Data[0].Amount)
}

func TestGetBalance_NoAuth(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := NewWalletHandler(mocks.NewMockTransactionEngine(ctrl), mocks.NewMockLedger(ctrl))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/wallet/balance", nil)

	h.GetBalance(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestDeposit_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockEngine := mocks.NewMockTransactionEngine(ctrl)
	h := NewWalletHandler(mockEngine, mocks.NewMockLedger(ctrl))

	accID := uuid.New()
	tx := completedTx(accID, domain.TransactionTypeDeposit)
	mockEngine.EXPECT().Deposit(gomock.Any(), ports.DepositRequest{
		AccountID: accID,
		Currency:  domain.CurrencyUSD,
		Amount:    decimal.RequireFromString("100.00"),
	}).Return(&ports.TxResult{
		Transaction: tx,
		NewBalance:  decimal.RequireFromString("100.00"),
	}, nil)

	w, c := jsonRequest(t, http.MethodPost, "/api/v1/wallet/deposit", dto.DepositRequest{
		Currency: "usd",
		Amount:   "100.00",
	})
	authed(c, accID)

	h.Deposit(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	data := responseData(t, w)
	assert.Equal(t, "100", data["new_balance"])
}

func TestDeposit_BadAmount(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := NewWalletHandler(mocks.NewMockTransactionEngine(ctrl), mocks.NewMockLedger(ctrl))

	w, c := jsonRequest(t, http.MethodPost, "/api/v1/wallet/deposit", dto.DepositRequest{
		Currency: "USD",
		Amount:   "not-a-number",
	})
	authed(c, uuid.New())

	h.Deposit(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExchange_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockEngine := mocks.NewMockTransactionEngine(ctrl)
	h := NewWalletHandler(mockEngine, mocks.NewMockLedger(ctrl))

	accID := uuid.New()
	tx := completedTx(accID, domain.TransactionTypeExchange)
	mockEngine.EXPECT().Exchange(gomock.Any(), ports.ExchangeRequest{
		AccountID:    accID,
		FromCurrency: domain.CurrencyUSD,
		ToCurrency:   domain.CurrencyIRR,
		FromAmount:   decimal.RequireFromString("100.00"),
	}).Return(&ports.ExchangeResult{
		Transaction: tx,
		ToAmount:    decimal.RequireFromString("106465000"),
		RateApplied: decimal.RequireFromString("1070000"),
		RateOrigin:  domain.RateOriginLive,
		Fee:         decimal.RequireFromString("0.50"),
	}, nil)

	w, c := jsonRequest(t, http.MethodPost, "/api/v1/wallet/exchange", dto.ExchangeRequest{
		FromCurrency: "USD",
		ToCurrency:   "IRR",
		Amount:       "100.00",
	})
	authed(c, accID)

	h.Exchange(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	data := responseData(t, w)
	assert.Equal(t, "106465000", data["to_amount"])
	assert.Equal(t, "live", data["rate_origin"])
}

func TestExchange_InsufficientFunds(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockEngine := mocks.NewMockTransactionEngine(ctrl)
	h := NewWalletHandler(mockEngine, mocks.NewMockLedger(ctrl))

	mockEngine.EXPECT().Exchange(gomock.Any(), gomock.Any()).
		Return(nil, apperror.ErrInsufficientFunds())

	w, c := jsonRequest(t, http.MethodPost, "/api/v1/wallet/exchange", dto.ExchangeRequest{
		FromCurrency: "USD",
		ToCurrency:   "IRR",
		Amount:       "100.00",
	})
	authed(c, uuid.New())

	h.Exchange(c)

	assert.Equal(t, http.StatusPaymentRequired, w.Code)
}

func TestTransfer_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockEngine := mocks.NewMockTransactionEngine(ctrl)
	h := NewWalletHandler(mockEngine, mocks.NewMockLedger(ctrl))

	accID := uuid.New()
	tx := completedTx(accID, domain.TransactionTypeTransfer)
	mockEngine.EXPECT().Transfer(gomock.Any(), ports.TransferRequest{
		AccountID: accID,
		Currency:  domain.CurrencyUSDT,
		Amount:    decimal.RequireFromString("25"),
		Recipient: "bob@example.com",
	}).Return(&ports.TxResult{
		Transaction: tx,
		NewBalance:  decimal.RequireFromString("75"),
	}, nil)

	w, c := jsonRequest(t, http.MethodPost, "/api/v1/wallet/transfer", dto.TransferRequest{
		Recipient: "bob@example.com",
		Currency:  "USDT",
		Amount:    "25",
	})
	authed(c, accID)

	h.Transfer(c)

	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestRequestWithdrawOTP_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockEngine := mocks.NewMockTransactionEngine(ctrl)
	h := NewWalletHandler(mockEngine, mocks.NewMockLedger(ctrl))

	accID := uuid.New()
	instrumentID := uuid.New()
	challengeRef := uuid.New()
	mockEngine.EXPECT().RequestWithdrawalOTP(gomock.Any(), ports.WithdrawalRequest{
		AccountID:    accID,
		InstrumentID: instrumentID,
		Currency:     domain.CurrencyUSD,
		Amount:       decimal.RequireFromString("50.00"),
	}).Return(challengeRef, nil)

	w, c := jsonRequest(t, http.MethodPost, "/api/v1/wallet/withdraw/request-otp", dto.WithdrawRequest{
		InstrumentID: instrumentID.String(),
		Currency:     "USD",
		Amount:       "50.00",
	})
	authed(c, accID)

	h.RequestWithdrawOTP(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := responseData(t, w)
	assert.Equal(t, challengeRef.String(), data["challenge_ref"])
	assert.Equal(t, "sms", data["delivery"])
}

func TestConfirmWithdraw_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockEngine := mocks.NewMockTransactionEngine(ctrl)
	h := NewWalletHandler(mockEngine, mocks.NewMockLedger(ctrl))

	accID := uuid.New()
	challengeRef := uuid.New()
	tx := completedTx(accID, domain.TransactionTypeWithdraw)
	mockEngine.EXPECT().ConfirmWithdrawal(gomock.Any(), ports.ConfirmRequest{
		AccountID:    accID,
		ChallengeRef: challengeRef,
		Code:         "123456",
	}).Return(&ports.WithdrawalResult{
		Transaction: tx,
		Fee:         decimal.RequireFromString("1.00"),
		NetAmount:   decimal.RequireFromString("49.00"),
		NewBalance:  decimal.RequireFromString("50.00"),
	}, nil)

	w, c := jsonRequest(t, http.MethodPost, "/api/v1/wallet/withdraw/confirm", dto.ConfirmWithdrawRequest{
		ChallengeRef: challengeRef.String(),
		Code:         "123456",
	})
	authed(c, accID)

	h.ConfirmWithdraw(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	data := responseData(t, w)
	assert.Equal(t, "49", data["net_amount"])
}

func TestConfirmWithdraw_Replay(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockEngine := mocks.NewMockTransactionEngine(ctrl)
	h := NewWalletHandler(mockEngine, mocks.NewMockLedger(ctrl))

	mockEngine.EXPECT().ConfirmWithdrawal(gomock.Any(), gomock.Any()).
		Return(nil, apperror.ErrChallengeAlreadyUsed())

	w, c := jsonRequest(t, http.MethodPost, "/api/v1/wallet/withdraw/confirm", dto.ConfirmWithdrawRequest{
		ChallengeRef: uuid.NewString(),
		Code:         "123456",
	})
	authed(c, uuid.New())

	h.ConfirmWithdraw(c)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestListTransactions_BadLimit(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := NewWalletHandler(mocks.NewMockTransactionEngine(ctrl), mocks.NewMockLedger(ctrl))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/wallet/transactions?limit=abc", nil)
	authed(c, uuid.New())

	h.ListTransactions(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// --- Card Handler ---

func TestRegisterCard_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRegistry := mocks.NewMockInstrumentRegistry(ctrl)
	h := NewCardHandler(mockRegistry)

	accID := uuid.New()
	instrument := &domain.Instrument{
		ID:         uuid.New(),
		AccountID:  accID,
		Scheme:     domain.SchemeCard,
		Currency:   domain.CurrencyUSD,
		Last4:      "1111",
		HolderName: "Alice Doe",
		CreatedAt:  time.Now().UTC(),
	}
	mockRegistry.EXPECT().Register(gomock.Any(), accID, gomock.Any()).Return(instrument, nil)

	w, c := jsonRequest(t, http.MethodPost, "/api/v1/cards", dto.RegisterCardRequest{
		Number:     "4111 1111 1111 1111",
		Currency:   "USD",
		HolderName: "Alice Doe",
		Phone:      "09123456789",
		Expiry:     "12/28",
		CVV:        "123",
	})
	authed(c, accID)

	h.Register(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	data := responseData(t, w)
	assert.Equal(t, "****1111", data["masked"])
}

func TestRegisterCard_InvalidPAN(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRegistry := mocks.NewMockInstrumentRegistry(ctrl)
	h := NewCardHandler(mockRegistry)

	mockRegistry.EXPECT().Register(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, apperror.ErrInvalidInstrument("card number must have at least 16 digits"))

	w, c := jsonRequest(t, http.MethodPost, "/api/v1/cards", dto.RegisterCardRequest{
		Number:     "4111 1111 1111 111x",
		Currency:   "USD",
		HolderName: "Alice Doe",
		Phone:      "09123456789",
		Expiry:     "12/28",
		CVV:        "123",
	})
	authed(c, uuid.New())

	h.Register(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteCard_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRegistry := mocks.NewMockInstrumentRegistry(ctrl)
	h := NewCardHandler(mockRegistry)

	accID := uuid.New()
	cardID := uuid.New()
	mockRegistry.EXPECT().Delete(gomock.Any(), accID, cardID).
		Return(apperror.ErrNotFound("Card"))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodDelete, "/api/v1/cards/"+cardID.String(), nil)
	c.Params = gin.Params{{Key: "id", Value: cardID.String()}}
	authed(c, accID)

	h.Delete(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

// --- Rate Handler ---

func TestGetRates_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRates := mocks.NewMockRateService(ctrl)
	h := NewRateHandler(mockRates)

	mockRates.EXPECT().Table(gomock.Any()).Return(&domain.RateTable{
		Rates: map[string]decimal.Decimal{
			"USD_IRR": decimal.RequireFromString("1070000"),
		},
		Timestamp: time.Unix(1756684800, 0).UTC(),
		Origin:    domain.RateOriginFallback,
	}, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/rates", nil)

	h.GetTable(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := responseData(t, w)
	assert.Equal(t, "fallback", data["origin"])
	rates := data["rates"].(map[string]interface{})
	assert.Equal(t, "1070000", rates["USD_IRR"])
}

// --- Health ---

type stubChecker struct {
	name string
	err  error
}

func (s stubChecker) Name() string                  { return s.name }
func (s stubChecker) Check(_ context.Context) error { return s.err }

func TestHealthCheck_Degraded(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/health", nil)

	HealthCheck(
		stubChecker{name: "postgresql"},
		stubChecker{name: "redis", err: errors.New("connection refused")},
	)(c)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp["status"])
}
