package postgres

import (
	"context"
	"errors"
	"fmt"

	"payme-wallet/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// BalanceRepo implements ports.BalanceRepository. Amounts are stored as
// NUMERIC and scanned through shopspring decimal, never float.
type BalanceRepo struct {
	pool Pool
}

// NewBalanceRepo creates a new BalanceRepo.
func NewBalanceRepo(pool Pool) *BalanceRepo {
	return &BalanceRepo{pool: pool}
}

// Create inserts a zero-value balance row for a new account.
func (r *BalanceRepo) Create(ctx context.Context, b *domain.Balance) error {
	query := `INSERT INTO balances (account_id, currency, amount, updated_at)
		VALUES ($1, $2, $3, $4)`

	_, err := r.pool.Exec(ctx, query, b.AccountID, b.Currency, b.Amount, b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert balance: %w", err)
	}
	return nil
}

// GetAll fetches all balance rows for an account.
func (r *BalanceRepo) GetAll(ctx context.Context, accountID uuid.UUID) ([]domain.Balance, error) {
	query := `SELECT account_id, currency, amount, updated_at
		FROM balances WHERE account_id = $1 ORDER BY currency`

	rows, err := r.pool.Query(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("query balances: %w", err)
	}
	defer rows.Close()

	var out []domain.Balance
	for rows.Next() {
		var b domain.Balance
		if err := rows.Scan(&b.AccountID, &b.Currency, &b.Amount, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan balance: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Get fetches a single balance row (non-locking read).
func (r *BalanceRepo) Get(ctx context.Context, accountID uuid.UUID, currency domain.Currency) (*domain.Balance, error) {
	query := `SELECT account_id, currency, amount, updated_at
		FROM balances WHERE account_id = $1 AND currency = $2`

	b := &domain.Balance{}
	err := r.pool.QueryRow(ctx, query, accountID, currency).Scan(
		&b.AccountID, &b.Currency, &b.Amount, &b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get balance: %w", err)
	}
	return b, nil
}

// GetForUpdate fetches a balance row with a pessimistic lock. MUST be
// called within a transaction; the lock is held until it ends.
func (r *BalanceRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, currency domain.Currency) (*domain.Balance, error) {
	query := `SELECT account_id, currency, amount, updated_at
		FROM balances WHERE account_id = $1 AND currency = $2 FOR UPDATE`

	b := &domain.Balance{}
	err := tx.QueryRow(ctx, query, accountID, currency).Scan(
		&b.AccountID, &b.Currency, &b.Amount, &b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get balance for update: %w", err)
	}
	return b, nil
}

// UpdateAmount writes the new balance within a transaction. The upsert
// covers accounts created before a currency was introduced.
func (r *BalanceRepo) UpdateAmount(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, currency domain.Currency, amount decimal.Decimal) error {
	query := `INSERT INTO balances (account_id, currency, amount, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (account_id, currency)
		DO UPDATE SET amount = EXCLUDED.amount, updated_at = NOW()`

	_, err := tx.Exec(ctx, query, accountID, currency, amount)
	if err != nil {
		return fmt.Errorf("update balance: %w", err)
	}
	return nil
}
