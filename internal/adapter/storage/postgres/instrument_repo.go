package postgres

import (
	"context"
	"errors"
	"fmt"

	"payme-wallet/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// InstrumentRepo implements ports.InstrumentRepository.
type InstrumentRepo struct {
	pool Pool
}

// NewInstrumentRepo creates a new InstrumentRepo.
func NewInstrumentRepo(pool Pool) *InstrumentRepo {
	return &InstrumentRepo{pool: pool}
}

const instrumentColumns = `id, account_id, scheme, currency, last4, number_enc, holder_name, contact_phone, bank_name, created_at`

// Create inserts a new instrument.
func (r *InstrumentRepo) Create(ctx context.Context, i *domain.Instrument) error {
	query := `INSERT INTO instruments (` + instrumentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.pool.Exec(ctx, query,
		i.ID, i.AccountID, i.Scheme, i.Currency, i.Last4,
		i.NumberEnc, i.HolderName, i.ContactPhone, i.BankName, i.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert instrument: %w", err)
	}
	return nil
}

// GetByID fetches an instrument by its UUID.
func (r *InstrumentRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Instrument, error) {
	query := `SELECT ` + instrumentColumns + ` FROM instruments WHERE id = $1`

	i := &domain.Instrument{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&i.ID, &i.AccountID, &i.Scheme, &i.Currency, &i.Last4,
		&i.NumberEnc, &i.HolderName, &i.ContactPhone, &i.BankName, &i.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get instrument: %w", err)
	}
	return i, nil
}

// ListByAccount fetches an account's instruments in creation order,
// optionally filtered by currency.
func (r *InstrumentRepo) ListByAccount(ctx context.Context, accountID uuid.UUID, currency *domain.Currency) ([]domain.Instrument, error) {
	query := `SELECT ` + instrumentColumns + ` FROM instruments WHERE account_id = $1`
	args := []any{accountID}
	if currency != nil {
		query += ` AND currency = $2`
		args = append(args, *currency)
	}
	query += ` ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query instruments: %w", err)
	}
	defer rows.Close()

	var out []domain.Instrument
	for rows.Next() {
		var i domain.Instrument
		if err := rows.Scan(
			&i.ID, &i.AccountID, &i.Scheme, &i.Currency, &i.Last4,
			&i.NumberEnc, &i.HolderName, &i.ContactPhone, &i.BankName, &i.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan instrument: %w", err)
		}
		out = append(out, i)
	}
	return out, rows.Err()
}

// Delete removes the instrument if owned by the account. Returns false
// when no matching row existed.
func (r *InstrumentRepo) Delete(ctx context.Context, accountID, instrumentID uuid.UUID) (bool, error) {
	query := `DELETE FROM instruments WHERE id = $1 AND account_id = $2`

	tag, err := r.pool.Exec(ctx, query, instrumentID, accountID)
	if err != nil {
		return false, fmt.Errorf("delete instrument: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
