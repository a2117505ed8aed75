package service

import (
	"context"
	"fmt"

	"payme-wallet/internal/core/domain"
	"payme-wallet/internal/core/ports"
	"payme-wallet/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// LedgerImpl implements ports.Ledger over locked balance rows. All
// mutations go through a row lock taken with the caller's pgx.Tx, so
// two concurrent debits can never both pass a stale balance check.
type LedgerImpl struct {
	balanceRepo ports.BalanceRepository
	log         zerolog.Logger
}

// NewLedger creates a new LedgerImpl.
func NewLedger(balanceRepo ports.BalanceRepository, log zerolog.Logger) *LedgerImpl {
	return &LedgerImpl{balanceRepo: balanceRepo, log: log}
}

// Balances returns every currency balance of the account.
func (l *LedgerImpl) Balances(ctx context.Context, accountID uuid.UUID) (map[domain.Currency]decimal.Decimal, error) {
	rows, err := l.balanceRepo.GetAll(ctx, accountID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("load balances: %w", err))
	}
	out := make(map[domain.Currency]decimal.Decimal, len(rows))
	for _, b := range rows {
		out[b.Currency] = b.Amount
	}
	// Currencies without a row read as zero.
	for _, c := range domain.SupportedCurrencies() {
		if _, ok := out[c]; !ok {
			out[c] = decimal.Zero
		}
	}
	return out, nil
}

// Balance returns a single-currency balance (zero if no row exists yet).
func (l *LedgerImpl) Balance(ctx context.Context, accountID uuid.UUID, currency domain.Currency) (decimal.Decimal, error) {
	if !currency.IsSupported() {
		return decimal.Zero, apperror.ErrUnknownCurrency(string(currency))
	}
	b, err := l.balanceRepo.Get(ctx, accountID, currency)
	if err != nil {
		return decimal.Zero, apperror.InternalError(fmt.Errorf("load balance: %w", err))
	}
	if b == nil {
		return decimal.Zero, nil
	}
	return b.Amount, nil
}

// Credit adds amount to the balance and returns the new balance.
func (l *LedgerImpl) Credit(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, currency domain.Currency, amount decimal.Decimal) (decimal.Decimal, error) {
	return l.mutate(ctx, tx, accountID, currency, amount)
}

// Debit subtracts amount from the balance, failing with
// InsufficientFunds if the result would be negative.
func (l *LedgerImpl) Debit(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, currency domain.Currency, amount decimal.Decimal) (decimal.Decimal, error) {
	return l.mutate(ctx, tx, accountID, currency, amount.Neg())
}

// Exchange applies both legs of a same-account conversion under the
// same transaction: both commit or neither does. Rows are locked in
// ascending currency order regardless of direction.
func (l *LedgerImpl) Exchange(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, from domain.Currency, fromAmount decimal.Decimal, to domain.Currency, toAmount decimal.Decimal) error {
	first, second := from, to
	if string(second) < string(first) {
		first, second = second, first
	}
	if _, err := l.balanceRepo.GetForUpdate(ctx, tx, accountID, first); err != nil {
		return apperror.InternalError(fmt.Errorf("lock %s balance: %w", first, err))
	}
	if _, err := l.balanceRepo.GetForUpdate(ctx, tx, accountID, second); err != nil {
		return apperror.InternalError(fmt.Errorf("lock %s balance: %w", second, err))
	}

	if _, err := l.applyLocked(ctx, tx, accountID, from, fromAmount.Neg()); err != nil {
		return err
	}
	if _, err := l.applyLocked(ctx, tx, accountID, to, toAmount); err != nil {
		return err
	}
	return nil
}

// Transfer moves amount between two accounts, locking both balance rows
// in ascending (account id, currency) order to avoid deadlock.
func (l *LedgerImpl) Transfer(ctx context.Context, tx pgx.Tx, fromAccount, toAccount uuid.UUID, currency domain.Currency, amount decimal.Decimal) (decimal.Decimal, error) {
	first, second := fromAccount, toAccount
	if second.String() < first.String() {
		first, second = second, first
	}
	if _, err := l.balanceRepo.GetForUpdate(ctx, tx, first, currency); err != nil {
		return decimal.Zero, apperror.InternalError(fmt.Errorf("lock sender balance: %w", err))
	}
	if _, err := l.balanceRepo.GetForUpdate(ctx, tx, second, currency); err != nil {
		return decimal.Zero, apperror.InternalError(fmt.Errorf("lock recipient balance: %w", err))
	}

	senderBalance, err := l.applyLocked(ctx, tx, fromAccount, currency, amount.Neg())
	if err != nil {
		return decimal.Zero, err
	}
	if _, err := l.applyLocked(ctx, tx, toAccount, currency, amount); err != nil {
		return decimal.Zero, err
	}
	return senderBalance, nil
}

// mutate applies a single-row delta under the row lock.
func (l *LedgerImpl) mutate(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, currency domain.Currency, delta decimal.Decimal) (decimal.Decimal, error) {
	if delta.IsZero() {
		return decimal.Zero, apperror.ErrInvalidAmount()
	}
	return l.applyLocked(ctx, tx, accountID, currency, delta)
}

// applyLocked reads the balance row under FOR UPDATE, applies the delta
// and enforces the non-negative invariant. Re-locking a row already held
// by this transaction is a no-op, so the multi-row paths may pre-lock in
// a fixed order before calling this.
func (l *LedgerImpl) applyLocked(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, currency domain.Currency, delta decimal.Decimal) (decimal.Decimal, error) {
	if !currency.IsSupported() {
		return decimal.Zero, apperror.ErrUnknownCurrency(string(currency))
	}

	row, err := l.balanceRepo.GetForUpdate(ctx, tx, accountID, currency)
	if err != nil {
		return decimal.Zero, apperror.InternalError(fmt.Errorf("read balance: %w", err))
	}
	current := decimal.Zero
	if row != nil {
		current = row.Amount
	}

	next := current.Add(delta)
	if next.IsNegative() {
		return decimal.Zero, apperror.ErrInsufficientFunds()
	}

	if err := l.balanceRepo.UpdateAmount(ctx, tx, accountID, currency, next); err != nil {
		return decimal.Zero, apperror.InternalError(fmt.Errorf("write balance: %w", err))
	}

	l.log.Debug().
		Str("account_id", accountID.String()).
		Str("currency", string(currency)).
		Str("delta", delta.String()).
		Str("balance", next.String()).
		Msg("balance mutated")

	return next, nil
}
