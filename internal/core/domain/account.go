package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountStatus represents the lifecycle state of an account.
type AccountStatus string

const (
	AccountStatusActive    AccountStatus = "ACTIVE"
	AccountStatusSuspended AccountStatus = "SUSPENDED"
)

// Account is a wallet owner. Balances live in separate per-currency rows
// (see Balance); the account row holds identity only.
type Account struct {
	ID           uuid.UUID     `json:"id"`
	Email        string        `json:"email"`
	Username     string        `json:"username"`
	PasswordHash string        `json:"-"` // Argon2id, never exposed
	Status       AccountStatus `json:"status"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// IsActive returns true if the account may move money.
func (a *Account) IsActive() bool {
	return a.Status == AccountStatusActive
}

// Balance is the authoritative per-account, per-currency balance row.
// Invariant: Amount >= 0 at all times.
type Balance struct {
	AccountID uuid.UUID       `json:"account_id"`
	Currency  Currency        `json:"currency"`
	Amount    decimal.Decimal `json:"amount"`
	UpdatedAt time.Time       `json:"updated_at"`
}
