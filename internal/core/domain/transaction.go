package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType represents the kind of money movement.
type TransactionType string

const (
	TransactionTypeDeposit  TransactionType = "DEPOSIT"
	TransactionTypeExchange TransactionType = "EXCHANGE"
	TransactionTypeTransfer TransactionType = "TRANSFER"
	TransactionTypeReceive  TransactionType = "RECEIVE"
	TransactionTypeWithdraw TransactionType = "WITHDRAW"
)

// TransactionStatus is the state of a persisted transaction. Only
// completed movements are ever recorded; failed attempts leave no row.
type TransactionStatus string

const (
	TransactionStatusCompleted TransactionStatus = "COMPLETED"
)

// RateOrigin tags where an exchange rate came from.
type RateOrigin string

const (
	RateOriginLive     RateOrigin = "live"
	RateOriginFallback RateOrigin = "fallback"
)

// Transaction is an immutable ledger record owned by the initiating
// account. For non-exchange kinds the destination leg equals the source.
type Transaction struct {
	ID              uuid.UUID         `json:"id"`
	AccountID       uuid.UUID         `json:"account_id"`
	Type            TransactionType   `json:"type"`
	Status          TransactionStatus `json:"status"`
	FromCurrency    Currency          `json:"from_currency"`
	FromAmount      decimal.Decimal   `json:"from_amount"`
	ToCurrency      Currency          `json:"to_currency"`
	ToAmount        decimal.Decimal   `json:"to_amount"`
	Fee             decimal.Decimal   `json:"fee"`
	NetAmount       decimal.Decimal   `json:"net_amount"`
	Rate            *decimal.Decimal  `json:"rate,omitempty"`        // exchange only
	RateOrigin      RateOrigin        `json:"rate_origin,omitempty"` // exchange only
	CounterpartyID  *uuid.UUID        `json:"counterparty_id,omitempty"`
	Recipient       string            `json:"recipient,omitempty"`       // transfer address/email
	InstrumentLast4 string            `json:"instrument_last4,omitempty"` // masked snapshot
	Note            string            `json:"note,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
}

// IsExchange reports whether the record carries two distinct currency legs.
func (t *Transaction) IsExchange() bool {
	return t.Type == TransactionTypeExchange
}
