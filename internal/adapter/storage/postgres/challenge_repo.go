package postgres

import (
	"context"
	"errors"
	"fmt"

	"payme-wallet/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ChallengeRepo implements ports.ChallengeRepository. Challenges live
// in Postgres rather than a TTL cache so Consume can join the
// withdrawal's database transaction.
type ChallengeRepo struct {
	pool Pool
}

// NewChallengeRepo creates a new ChallengeRepo.
func NewChallengeRepo(pool Pool) *ChallengeRepo {
	return &ChallengeRepo{pool: pool}
}

const challengeColumns = `id, account_id, instrument_id, operation, currency, amount,
	code_hash, attempts, status, issued_at, expires_at`

// Create inserts a new challenge.
func (r *ChallengeRepo) Create(ctx context.Context, c *domain.Challenge) error {
	query := `INSERT INTO challenges (` + challengeColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.pool.Exec(ctx, query,
		c.ID, c.AccountID, c.InstrumentID, c.Operation, c.Currency, c.Amount,
		c.CodeHash, c.Attempts, c.Status, c.IssuedAt, c.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("insert challenge: %w", err)
	}
	return nil
}

// GetByID fetches a challenge by its UUID.
func (r *ChallengeRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Challenge, error) {
	query := `SELECT ` + challengeColumns + ` FROM challenges WHERE id = $1`

	c := &domain.Challenge{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&c.ID, &c.AccountID, &c.InstrumentID, &c.Operation, &c.Currency, &c.Amount,
		&c.CodeHash, &c.Attempts, &c.Status, &c.IssuedAt, &c.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get challenge: %w", err)
	}
	return c, nil
}

// ExpirePending marks any pending challenge for the (account, operation)
// pair as expired. Called on issue to enforce the single-pending rule.
func (r *ChallengeRepo) ExpirePending(ctx context.Context, accountID uuid.UUID, operation domain.TransactionType) error {
	query := `UPDATE challenges SET status = $1
		WHERE account_id = $2 AND operation = $3 AND status = $4`

	_, err := r.pool.Exec(ctx, query,
		domain.ChallengeStatusExpired, accountID, operation, domain.ChallengeStatusPending,
	)
	if err != nil {
		return fmt.Errorf("expire pending challenges: %w", err)
	}
	return nil
}

// UpdateStatus sets a challenge's status.
func (r *ChallengeRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.ChallengeStatus) error {
	query := `UPDATE challenges SET status = $1 WHERE id = $2`

	tag, err := r.pool.Exec(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("update challenge status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("challenge not found: %s", id)
	}
	return nil
}

// IncrementAttempts bumps the failure counter and returns the new value.
func (r *ChallengeRepo) IncrementAttempts(ctx context.Context, id uuid.UUID) (int, error) {
	query := `UPDATE challenges SET attempts = attempts + 1 WHERE id = $1 RETURNING attempts`

	var attempts int
	if err := r.pool.QueryRow(ctx, query, id).Scan(&attempts); err != nil {
		return 0, fmt.Errorf("increment challenge attempts: %w", err)
	}
	return attempts, nil
}

// Consume transitions VERIFIED -> CONSUMED inside the caller's database
// transaction. The status predicate makes the update conditional: a
// second consumer sees zero rows affected and returns false.
func (r *ChallengeRepo) Consume(ctx context.Context, tx pgx.Tx, id uuid.UUID) (bool, error) {
	query := `UPDATE challenges SET status = $1 WHERE id = $2 AND status = $3`

	tag, err := tx.Exec(ctx, query,
		domain.ChallengeStatusConsumed, id, domain.ChallengeStatusVerified,
	)
	if err != nil {
		return false, fmt.Errorf("consume challenge: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
