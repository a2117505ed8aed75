package dto

import (
	"time"

	"payme-wallet/internal/core/domain"
)

// RegisterRequest is the request body for account registration.
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email,max=254"`
	Username string `json:"username" binding:"required,min=3,max=50"`
	Password string `json:"password" binding:"required,min=8,max=128"`
}

// LoginRequest is the request body for login.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RegisterResponse is the response body for successful registration.
type RegisterResponse struct {
	AccountID string `json:"account_id"`
	Email     string `json:"email"`
	Username  string `json:"username"`
}

// LoginResponse is the response body for successful login.
type LoginResponse struct {
	Token  string `json:"token"`
	Expiry int64  `json:"expiry"` // Unix timestamp
}

// DepositRequest is the request body for a deposit. Amounts travel as
// decimal strings end to end; floats never touch money.
type DepositRequest struct {
	Currency     string  `json:"currency" binding:"required,min=3,max=4"`
	Amount       string  `json:"amount" binding:"required,max=40"`
	InstrumentID *string `json:"instrument_id,omitempty"`
}

// ExchangeRequest is the request body for a currency conversion.
type ExchangeRequest struct {
	FromCurrency string `json:"from_currency" binding:"required,min=3,max=4"`
	ToCurrency   string `json:"to_currency" binding:"required,min=3,max=4"`
	Amount       string `json:"amount" binding:"required,max=40"`
}

// TransferRequest is the request body for a peer transfer.
type TransferRequest struct {
	Recipient string `json:"recipient" binding:"required,email"`
	Currency  string `json:"currency" binding:"required,min=3,max=4"`
	Amount    string `json:"amount" binding:"required,max=40"`
	Note      string `json:"note" binding:"max=200"`
}

// WithdrawRequest is the request body for phase 1 of a withdrawal.
type WithdrawRequest struct {
	InstrumentID string `json:"instrument_id" binding:"required,uuid"`
	Currency     string `json:"currency" binding:"required,min=3,max=4"`
	Amount       string `json:"amount" binding:"required,max=40"`
}

// ConfirmWithdrawRequest is the request body for phase 2 of a withdrawal.
type ConfirmWithdrawRequest struct {
	ChallengeRef string `json:"challenge_ref" binding:"required,uuid"`
	Code         string `json:"code" binding:"required,len=6,numeric"`
}

// RegisterCardRequest is the request body for card registration.
type RegisterCardRequest struct {
	Number     string `json:"number" binding:"required,min=16,max=30"`
	Currency   string `json:"currency" binding:"required,min=3,max=4"`
	HolderName string `json:"holder_name" binding:"required,min=1,max=100"`
	Phone      string `json:"phone" binding:"required,len=11"`
	BankName   string `json:"bank_name" binding:"max=100"`
	Expiry     string `json:"expiry" binding:"required,len=5"`
	CVV        string `json:"cvv,omitempty" binding:"omitempty,min=3,max=4"`
	CVV2       string `json:"cvv2,omitempty" binding:"omitempty,min=3,max=4"`
}

// BalanceResponse is one currency line of a balance query.
type BalanceResponse struct {
	Currency string `json:"currency"`
	Amount   string `json:"amount"`
}

// TransactionResponse is the wire form of a transaction record.
type TransactionResponse struct {
	ID              string `json:"id"`
	Type            string `json:"type"`
	Status          string `json:"status"`
	FromCurrency    string `json:"from_currency"`
	FromAmount      string `json:"from_amount"`
	ToCurrency      string `json:"to_currency"`
	ToAmount        string `json:"to_amount"`
	Fee             string `json:"fee"`
	NetAmount       string `json:"net_amount"`
	Rate            string `json:"rate,omitempty"`
	RateOrigin      string `json:"rate_origin,omitempty"`
	Recipient       string `json:"recipient,omitempty"`
	InstrumentLast4 string `json:"instrument_last4,omitempty"`
	Note            string `json:"note,omitempty"`
	CreatedAt       string `json:"created_at"`
}

// DepositResponse is the response body for a committed deposit.
type DepositResponse struct {
	Transaction TransactionResponse `json:"transaction"`
	NewBalance  string              `json:"new_balance"`
}

// ExchangeResponse is the response body for a committed exchange.
type ExchangeResponse struct {
	Transaction TransactionResponse `json:"transaction"`
	ToAmount    string              `json:"to_amount"`
	Rate        string              `json:"rate"`
	RateOrigin  string              `json:"rate_origin"`
	Fee         string              `json:"fee"`
}

// TransferResponse is the response body for a committed transfer.
type TransferResponse struct {
	Transaction TransactionResponse `json:"transaction"`
	NewBalance  string              `json:"new_balance"`
}

// WithdrawOTPResponse is the response body for phase 1 of a withdrawal.
type WithdrawOTPResponse struct {
	ChallengeRef string `json:"challenge_ref"`
	Delivery     string `json:"delivery"` // always "sms"
}

// WithdrawResponse is the response body for a confirmed withdrawal.
type WithdrawResponse struct {
	Transaction TransactionResponse `json:"transaction"`
	Fee         string              `json:"fee"`
	NetAmount   string              `json:"net_amount"`
	NewBalance  string              `json:"new_balance"`
}

// CardResponse is the wire form of a registered instrument. The PAN and
// contact phone never appear here.
type CardResponse struct {
	ID         string `json:"id"`
	Scheme     string `json:"scheme"`
	Currency   string `json:"currency"`
	Masked     string `json:"masked"`
	HolderName string `json:"holder_name"`
	BankName   string `json:"bank_name,omitempty"`
	CreatedAt  string `json:"created_at"`
}

// RateTableResponse is the response body for the rate table query.
type RateTableResponse struct {
	Rates     map[string]string `json:"rates"`
	Origin    string            `json:"origin"`
	Timestamp int64             `json:"timestamp"`
}

// ToTransactionResponse maps a domain transaction onto the wire form.
func ToTransactionResponse(t *domain.Transaction) TransactionResponse {
	resp := TransactionResponse{
		ID:              t.ID.String(),
		Type:            string(t.Type),
		Status:          string(t.Status),
		FromCurrency:    string(t.FromCurrency),
		FromAmount:      t.FromAmount.String(),
		ToCurrency:      string(t.ToCurrency),
		ToAmount:        t.ToAmount.String(),
		Fee:             t.Fee.String(),
		NetAmount:       t.NetAmount.String(),
		RateOrigin:      string(t.RateOrigin),
		Recipient:       t.Recipient,
		InstrumentLast4: t.InstrumentLast4,
		Note:            t.Note,
		CreatedAt:       t.CreatedAt.UTC().Format(time.RFC3339),
	}
	if t.Rate != nil {
		resp.Rate = t.Rate.String()
	}
	return resp
}

// ToCardResponse maps a domain instrument onto the wire form.
func ToCardResponse(i *domain.Instrument) CardResponse {
	return CardResponse{
		ID:         i.ID.String(),
		Scheme:     string(i.Scheme),
		Currency:   string(i.Currency),
		Masked:     i.Masked(),
		HolderName: i.HolderName,
		BankName:   i.BankName,
		CreatedAt:  i.CreatedAt.UTC().Format(time.RFC3339),
	}
}
