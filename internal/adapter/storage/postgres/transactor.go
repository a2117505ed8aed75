package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// Transactor hands out database transactions to the transaction engine.
// Every money flow runs under exactly one of them, so the balance
// mutation, the challenge consume and the transaction record commit
// together or not at all.
type Transactor struct {
	pool Pool
}

// NewTransactor creates a Transactor on top of the connection pool.
func NewTransactor(pool Pool) *Transactor {
	return &Transactor{pool: pool}
}

// Begin opens a transaction on the pool.
func (t *Transactor) Begin(ctx context.Context) (pgx.Tx, error) {
	return t.pool.Begin(ctx)
}
