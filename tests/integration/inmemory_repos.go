package integration

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"payme-wallet/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// --- In-Memory Account Repo ---

type inMemoryAccountRepo struct {
	mu       sync.RWMutex
	accounts map[uuid.UUID]*domain.Account
}

func newInMemoryAccountRepo() *inMemoryAccountRepo {
	return &inMemoryAccountRepo{accounts: make(map[uuid.UUID]*domain.Account)}
}

func (r *inMemoryAccountRepo) Create(ctx context.Context, a *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.accounts {
		if existing.Email == a.Email || existing.Username == a.Username {
			return fmt.Errorf("account already exists")
		}
	}
	cp := *a
	r.accounts[a.ID] = &cp
	return nil
}

func (r *inMemoryAccountRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.accounts[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (r *inMemoryAccountRepo) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.accounts {
		if a.Email == email {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *inMemoryAccountRepo) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.accounts {
		if a.Username == username {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

// --- In-Memory Balance Repo ---

type balanceKey struct {
	accountID uuid.UUID
	currency  domain.Currency
}

type inMemoryBalanceRepo struct {
	mu       sync.RWMutex
	balances map[balanceKey]*domain.Balance
}

func newInMemoryBalanceRepo() *inMemoryBalanceRepo {
	return &inMemoryBalanceRepo{balances: make(map[balanceKey]*domain.Balance)}
}

func (r *inMemoryBalanceRepo) Create(ctx context.Context, b *domain.Balance) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *b
	r.balances[balanceKey{b.AccountID, b.Currency}] = &cp
	return nil
}

func (r *inMemoryBalanceRepo) GetAll(ctx context.Context, accountID uuid.UUID) ([]domain.Balance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Balance
	for key, b := range r.balances {
		if key.accountID == accountID {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Currency < out[j].Currency })
	return out, nil
}

func (r *inMemoryBalanceRepo) Get(ctx context.Context, accountID uuid.UUID, currency domain.Currency) (*domain.Balance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.balances[balanceKey{accountID, currency}]
	if !ok {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

// GetForUpdate relies on the serializing transactor for isolation; the
// whole in-memory transaction runs under one global lock.
func (r *inMemoryBalanceRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, currency domain.Currency) (*domain.Balance, error) {
	return r.Get(ctx, accountID, currency)
}

func (r *inMemoryBalanceRepo) UpdateAmount(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, currency domain.Currency, amount decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := balanceKey{accountID, currency}
	b, ok := r.balances[key]
	if !ok {
		b = &domain.Balance{AccountID: accountID, Currency: currency}
		r.balances[key] = b
	}
	prev := b.Amount
	b.Amount = amount
	b.UpdatedAt = time.Now().UTC()
	deferOnRollback(tx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if cur, ok := r.balances[key]; ok {
			cur.Amount = prev
		}
	})
	return nil
}

// --- In-Memory Instrument Repo ---

type inMemoryInstrumentRepo struct {
	mu          sync.RWMutex
	instruments map[uuid.UUID]*domain.Instrument
}

func newInMemoryInstrumentRepo() *inMemoryInstrumentRepo {
	return &inMemoryInstrumentRepo{instruments: make(map[uuid.UUID]*domain.Instrument)}
}

func (r *inMemoryInstrumentRepo) Create(ctx context.Context, i *domain.Instrument) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *i
	r.instruments[i.ID] = &cp
	return nil
}

func (r *inMemoryInstrumentRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Instrument, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.instruments[id]
	if !ok {
		return nil, nil
	}
	cp := *i
	return &cp, nil
}

func (r *inMemoryInstrumentRepo) ListByAccount(ctx context.Context, accountID uuid.UUID, currency *domain.Currency) ([]domain.Instrument, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Instrument
	for _, i := range r.instruments {
		if i.AccountID != accountID {
			continue
		}
		if currency != nil && i.Currency != *currency {
			continue
		}
		out = append(out, *i)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].CreatedAt.Before(out[b].CreatedAt) })
	return out, nil
}

func (r *inMemoryInstrumentRepo) Delete(ctx context.Context, accountID, instrumentID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.instruments[instrumentID]
	if !ok || i.AccountID != accountID {
		return false, nil
	}
	delete(r.instruments, instrumentID)
	return true, nil
}

// --- In-Memory Transaction Repo ---

type inMemoryTransactionRepo struct {
	mu           sync.RWMutex
	transactions []*domain.Transaction
}

func newInMemoryTransactionRepo() *inMemoryTransactionRepo {
	return &inMemoryTransactionRepo{}
}

func (r *inMemoryTransactionRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *t
	r.transactions = append(r.transactions, &cp)
	deferOnRollback(tx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		for i, rec := range r.transactions {
			if rec.ID == cp.ID {
				r.transactions = append(r.transactions[:i], r.transactions[i+1:]...)
				break
			}
		}
	})
	return nil
}

func (r *inMemoryTransactionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.transactions {
		if t.ID == id {
			cp := *t
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *inMemoryTransactionRepo) ListByAccount(ctx context.Context, accountID uuid.UUID, limit int) ([]domain.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Transaction
	for i := len(r.transactions) - 1; i >= 0 && len(out) < limit; i-- {
		if r.transactions[i].AccountID == accountID {
			out = append(out, *r.transactions[i])
		}
	}
	return out, nil
}

// --- In-Memory Challenge Repo ---

type inMemoryChallengeRepo struct {
	mu         sync.Mutex
	challenges map[uuid.UUID]*domain.Challenge
}

func newInMemoryChallengeRepo() *inMemoryChallengeRepo {
	return &inMemoryChallengeRepo{challenges: make(map[uuid.UUID]*domain.Challenge)}
}

func (r *inMemoryChallengeRepo) Create(ctx context.Context, c *domain.Challenge) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *c
	r.challenges[c.ID] = &cp
	return nil
}

func (r *inMemoryChallengeRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Challenge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.challenges[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (r *inMemoryChallengeRepo) ExpirePending(ctx context.Context, accountID uuid.UUID, operation domain.TransactionType) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.challenges {
		if c.AccountID == accountID && c.Operation == operation && c.Status == domain.ChallengeStatusPending {
			c.Status = domain.ChallengeStatusExpired
		}
	}
	return nil
}

func (r *inMemoryChallengeRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.ChallengeStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.challenges[id]
	if !ok {
		return fmt.Errorf("challenge not found: %s", id)
	}
	c.Status = status
	return nil
}

func (r *inMemoryChallengeRepo) IncrementAttempts(ctx context.Context, id uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.challenges[id]
	if !ok {
		return 0, fmt.Errorf("challenge not found: %s", id)
	}
	c.Attempts++
	return c.Attempts, nil
}

// Consume is atomic under the repo mutex: exactly one caller observes
// the VERIFIED state. Rolling back the surrounding transaction restores
// it, matching the conditional UPDATE in the real repository.
func (r *inMemoryChallengeRepo) Consume(ctx context.Context, tx pgx.Tx, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.challenges[id]
	if !ok || c.Status != domain.ChallengeStatusVerified {
		return false, nil
	}
	c.Status = domain.ChallengeStatusConsumed
	deferOnRollback(tx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if cur, ok := r.challenges[id]; ok && cur.Status == domain.ChallengeStatusConsumed {
			cur.Status = domain.ChallengeStatusVerified
		}
	})
	return true, nil
}

// --- Serializing Transactor ---

// inMemoryTransactor serializes whole transactions behind one mutex,
// standing in for row-level FOR UPDATE locks. Commit and Rollback both
// release it, so the usual Begin / defer Rollback / Commit shape works.
// Repositories register undo hooks for their writes; a rollback replays
// them in reverse, so aborted flows leave no trace just like the real
// database.
type inMemoryTransactor struct {
	mu sync.Mutex
}

func newInMemoryTransactor() *inMemoryTransactor {
	return &inMemoryTransactor{}
}

func (t *inMemoryTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	t.mu.Lock()
	return &serialTx{release: func() { t.mu.Unlock() }}, nil
}

type serialTx struct {
	once    sync.Once
	release func()
	undo    []func()
}

// deferOnRollback registers an undo hook when the write happened inside
// a serialTx. Non-transactional callers pass through untouched.
func deferOnRollback(tx pgx.Tx, f func()) {
	if st, ok := tx.(*serialTx); ok {
		st.undo = append(st.undo, f)
	}
}

func (t *serialTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }

func (t *serialTx) Commit(ctx context.Context) error {
	t.once.Do(func() {
		t.undo = nil
		t.release()
	})
	return nil
}

func (t *serialTx) Rollback(ctx context.Context) error {
	t.once.Do(func() {
		for i := len(t.undo) - 1; i >= 0; i-- {
			t.undo[i]()
		}
		t.undo = nil
		t.release()
	})
	return nil
}
func (t *serialTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *serialTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *serialTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *serialTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *serialTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *serialTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *serialTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}
func (t *serialTx) Conn() *pgx.Conn { return nil }
