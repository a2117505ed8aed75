package ports

import (
	"context"

	"payme-wallet/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// AccountRepository defines persistence operations for accounts.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	GetByUsername(ctx context.Context, username string) (*domain.Account, error)
}

// BalanceRepository defines persistence for per-account, per-currency
// balance rows. Methods accepting pgx.Tx are used inside transaction
// blocks for pessimistic locking.
type BalanceRepository interface {
	Create(ctx context.Context, balance *domain.Balance) error
	GetAll(ctx context.Context, accountID uuid.UUID) ([]domain.Balance, error)
	Get(ctx context.Context, accountID uuid.UUID, currency domain.Currency) (*domain.Balance, error)
	// GetForUpdate locks the balance row until the surrounding transaction
	// ends. Callers locking multiple rows MUST lock in ascending
	// (account id, currency) order to avoid deadlock.
	GetForUpdate(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, currency domain.Currency) (*domain.Balance, error)
	UpdateAmount(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, currency domain.Currency, amount decimal.Decimal) error
}

// InstrumentRepository defines persistence operations for payment cards.
type InstrumentRepository interface {
	Create(ctx context.Context, instrument *domain.Instrument) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Instrument, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID, currency *domain.Currency) ([]domain.Instrument, error)
	// Delete removes the instrument if it belongs to the account.
	// Returns false if no matching row existed.
	Delete(ctx context.Context, accountID, instrumentID uuid.UUID) (bool, error)
}

// TransactionRepository defines persistence for immutable transaction records.
type TransactionRepository interface {
	Create(ctx context.Context, tx pgx.Tx, transaction *domain.Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID, limit int) ([]domain.Transaction, error)
}

// ChallengeRepository defines persistence for OTP challenges.
type ChallengeRepository interface {
	Create(ctx context.Context, challenge *domain.Challenge) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Challenge, error)
	// ExpirePending marks any PENDING challenge for the (account, operation)
	// pair as EXPIRED, enforcing the single-pending invariant on issue.
	ExpirePending(ctx context.Context, accountID uuid.UUID, operation domain.TransactionType) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.ChallengeStatus) error
	IncrementAttempts(ctx context.Context, id uuid.UUID) (int, error)
	// Consume transitions VERIFIED -> CONSUMED inside the caller's database
	// transaction. Returns false if the challenge was not in VERIFIED state,
	// which is the one-shot guard against replay.
	Consume(ctx context.Context, tx pgx.Tx, id uuid.UUID) (bool, error)
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// RateCache stores the last-known rate table for fallback when the
// live source is unavailable.
type RateCache interface {
	Get(ctx context.Context) (*domain.RateTable, error)
	Set(ctx context.Context, table *domain.RateTable) error
}
