package postgres

import (
	"context"
	"errors"
	"fmt"

	"payme-wallet/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// TransactionRepo implements ports.TransactionRepository. Records are
// append-only; there is no update path.
type TransactionRepo struct {
	pool Pool
}

// NewTransactionRepo creates a new TransactionRepo.
func NewTransactionRepo(pool Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

const transactionColumns = `id, account_id, type, status, from_currency, from_amount,
	to_currency, to_amount, fee, net_amount, rate, rate_origin,
	counterparty_id, recipient, instrument_last4, note, created_at`

// Create inserts a transaction record within the caller's database
// transaction so it commits atomically with the balance mutation.
func (r *TransactionRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	query := `INSERT INTO transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

	_, err := tx.Exec(ctx, query,
		t.ID, t.AccountID, t.Type, t.Status, t.FromCurrency, t.FromAmount,
		t.ToCurrency, t.ToAmount, t.Fee, t.NetAmount, t.Rate, nullableString(string(t.RateOrigin)),
		t.CounterpartyID, nullableString(t.Recipient), nullableString(t.InstrumentLast4),
		nullableString(t.Note), t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// GetByID fetches a transaction by its UUID.
func (r *TransactionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`

	t := &domain.Transaction{}
	var rateOrigin, recipient, last4, note *string
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&t.ID, &t.AccountID, &t.Type, &t.Status, &t.FromCurrency, &t.FromAmount,
		&t.ToCurrency, &t.ToAmount, &t.Fee, &t.NetAmount, &t.Rate, &rateOrigin,
		&t.CounterpartyID, &recipient, &last4, &note, &t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	restoreOptional(t, rateOrigin, recipient, last4, note)
	return t, nil
}

// ListByAccount fetches the account's most recent transactions.
func (r *TransactionRepo) ListByAccount(ctx context.Context, accountID uuid.UUID, limit int) ([]domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions
		WHERE account_id = $1 ORDER BY created_at DESC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []domain.Transaction
	for rows.Next() {
		var t domain.Transaction
		var rateOrigin, recipient, last4, note *string
		if err := rows.Scan(
			&t.ID, &t.AccountID, &t.Type, &t.Status, &t.FromCurrency, &t.FromAmount,
			&t.ToCurrency, &t.ToAmount, &t.Fee, &t.NetAmount, &t.Rate, &rateOrigin,
			&t.CounterpartyID, &recipient, &last4, &note, &t.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		restoreOptional(&t, rateOrigin, recipient, last4, note)
		out = append(out, t)
	}
	return out, rows.Err()
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func restoreOptional(t *domain.Transaction, rateOrigin, recipient, last4, note *string) {
	if rateOrigin != nil {
		t.RateOrigin = domain.RateOrigin(*rateOrigin)
	}
	if recipient != nil {
		t.Recipient = *recipient
	}
	if last4 != nil {
		t.InstrumentLast4 = *last4
	}
	if note != nil {
		t.Note = *note
	}
}
