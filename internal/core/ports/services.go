package ports

import (
	"context"
	"time"

	"payme-wallet/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Ledger is the authoritative balance mutation engine. All mutating
// methods must run inside a database transaction (pgx.Tx) so the
// FOR UPDATE row locks serialize concurrent writers per account.
type Ledger interface {
	// Balances returns all balances for an account (non-locking read).
	Balances(ctx context.Context, accountID uuid.UUID) (map[domain.Currency]decimal.Decimal, error)
	// Balance returns a single-currency balance (non-locking read).
	Balance(ctx context.Context, accountID uuid.UUID, currency domain.Currency) (decimal.Decimal, error)
	// Credit adds amount to a balance and returns the new balance.
	Credit(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, currency domain.Currency, amount decimal.Decimal) (decimal.Decimal, error)
	// Debit subtracts amount from a balance, failing with
	// apperror.ErrInsufficientFunds if the result would be negative.
	Debit(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, currency domain.Currency, amount decimal.Decimal) (decimal.Decimal, error)
	// Exchange applies both legs of a same-account currency conversion
	// atomically: debit fromAmount of from, credit toAmount of to.
	Exchange(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, from domain.Currency, fromAmount decimal.Decimal, to domain.Currency, toAmount decimal.Decimal) error
	// Transfer moves amount between two accounts in one atomic unit,
	// locking both balance rows in fixed global order.
	Transfer(ctx context.Context, tx pgx.Tx, fromAccount, toAccount uuid.UUID, currency domain.Currency, amount decimal.Decimal) (senderBalance decimal.Decimal, err error)
}

// FeeCalculator computes platform fees. Pure: no I/O, no state beyond
// the configured policy.
type FeeCalculator interface {
	Fee(operation domain.TransactionType, currency domain.Currency, amount decimal.Decimal) (decimal.Decimal, error)
}

// ChallengeCoordinator manages OTP issuance, verification and one-shot
// consumption for payment flows.
type ChallengeCoordinator interface {
	// Issue supersedes any pending challenge for the (account, operation)
	// pair, generates a fresh code, hands it to the out-of-band sender and
	// returns an opaque challenge reference. The code is never returned.
	Issue(ctx context.Context, account *domain.Account, instrument *domain.Instrument, operation domain.TransactionType, currency domain.Currency, amount decimal.Decimal) (uuid.UUID, error)
	// Verify fails closed: typed errors for expired, mismatched or
	// exhausted challenges. On success the challenge is VERIFIED and
	// returned for the caller to bind the guarded mutation to.
	Verify(ctx context.Context, challengeID uuid.UUID, code string) (*domain.Challenge, error)
	// Consume transitions VERIFIED -> CONSUMED inside the caller's
	// database transaction; fails with ErrChallengeAlreadyUsed on replay.
	Consume(ctx context.Context, tx pgx.Tx, challengeID uuid.UUID) error
}

// RateService resolves conversion rates, falling back to the last cached
// table and finally to configured defaults when the live source is down.
type RateService interface {
	Quote(ctx context.Context, from, to domain.Currency) (*domain.RateQuote, error)
	Table(ctx context.Context) (*domain.RateTable, error)
}

// RateFetcher is the live rate source boundary (external collaborator).
type RateFetcher interface {
	Fetch(ctx context.Context) (*domain.RateTable, error)
}

// OTPSender delivers a one-time code out of band. The cleartext code
// crosses this boundary and nowhere else.
type OTPSender interface {
	Send(ctx context.Context, phone string, cardLast4 string, code string) error
}

// DepositRequest is the input for the deposit flow.
type DepositRequest struct {
	AccountID    uuid.UUID
	Currency     domain.Currency
	Amount       decimal.Decimal
	InstrumentID *uuid.UUID
}

// ExchangeRequest is the input for the currency conversion flow.
type ExchangeRequest struct {
	AccountID    uuid.UUID
	FromCurrency domain.Currency
	ToCurrency   domain.Currency
	FromAmount   decimal.Decimal
}

// TransferRequest is the input for the peer transfer flow.
type TransferRequest struct {
	AccountID uuid.UUID
	Currency  domain.Currency
	Amount    decimal.Decimal
	Recipient string // recipient email
	Note      string
}

// WithdrawalRequest is the input for phase 1 of the withdrawal flow.
type WithdrawalRequest struct {
	AccountID    uuid.UUID
	InstrumentID uuid.UUID
	Currency     domain.Currency
	Amount       decimal.Decimal
}

// ConfirmRequest is the input for phase 2 of the withdrawal flow.
type ConfirmRequest struct {
	AccountID    uuid.UUID
	ChallengeRef uuid.UUID
	Code         string
}

// TxResult is the outcome of a committed flow.
type TxResult struct {
	Transaction *domain.Transaction
	NewBalance  decimal.Decimal
}

// ExchangeResult is the outcome of a committed exchange.
type ExchangeResult struct {
	Transaction *domain.Transaction
	ToAmount    decimal.Decimal
	RateApplied decimal.Decimal
	RateOrigin  domain.RateOrigin
	Fee         decimal.Decimal
}

// WithdrawalResult is the outcome of a confirmed withdrawal.
type WithdrawalResult struct {
	Transaction *domain.Transaction
	Fee         decimal.Decimal
	NetAmount   decimal.Decimal
	NewBalance  decimal.Decimal
}

// TransactionEngine orchestrates the four money-movement flows. Every
// flow either commits fully or leaves no trace.
type TransactionEngine interface {
	Deposit(ctx context.Context, req DepositRequest) (*TxResult, error)
	Exchange(ctx context.Context, req ExchangeRequest) (*ExchangeResult, error)
	Transfer(ctx context.Context, req TransferRequest) (*TxResult, error)
	RequestWithdrawalOTP(ctx context.Context, req WithdrawalRequest) (uuid.UUID, error)
	ConfirmWithdrawal(ctx context.Context, req ConfirmRequest) (*WithdrawalResult, error)
	History(ctx context.Context, accountID uuid.UUID, limit int) ([]domain.Transaction, error)
}

// InstrumentDraft is the unvalidated input for card registration.
type InstrumentDraft struct {
	Number     string
	Currency   domain.Currency
	HolderName string
	Phone      string
	BankName   string
	Expiry     string // MM/YY
	CVV        string // card-present fiat
	CVV2       string // Shetab scheme
}

// InstrumentRegistry manages registered payment cards.
type InstrumentRegistry interface {
	Register(ctx context.Context, accountID uuid.UUID, draft InstrumentDraft) (*domain.Instrument, error)
	List(ctx context.Context, accountID uuid.UUID, currency *domain.Currency) ([]domain.Instrument, error)
	Delete(ctx context.Context, accountID, instrumentID uuid.UUID) error
	// Get returns the instrument only if owned by the account.
	Get(ctx context.Context, accountID, instrumentID uuid.UUID) (*domain.Instrument, error)
}

// TokenClaims holds validated JWT claims.
type TokenClaims struct {
	AccountID uuid.UUID
	Username  string
}

// TokenService issues and validates bearer credentials.
type TokenService interface {
	Generate(accountID uuid.UUID, username string) (string, time.Time, error)
	Validate(token string) (*TokenClaims, error)
}

// HashService hashes and verifies passwords (one-way, salted).
type HashService interface {
	Hash(password string) (string, error)
	Verify(password string, hash string) (bool, error)
}

// EncryptionService encrypts sensitive payloads (card numbers) at rest.
type EncryptionService interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// AuthResult is returned on successful login.
type AuthResult struct {
	AccountID uuid.UUID
	Token     string
	ExpiresAt time.Time
}

// AuthService handles registration and login (external-collaborator
// surface; token validation is what the wallet core relies on).
type AuthService interface {
	Register(ctx context.Context, email, username, password string) (*domain.Account, error)
	Login(ctx context.Context, username, password string) (*AuthResult, error)
}

// ThrottleResult reports the outcome of a fixed-window throttle check.
type ThrottleResult struct {
	Allowed   bool
	Limit     int64
	Remaining int64
	ResetAt   int64 // Unix timestamp
}

// ThrottleStore is a fixed-window request counter (OTP issue throttling,
// login abuse protection).
type ThrottleStore interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (*ThrottleResult, error)
}

// HealthChecker verifies a dependency is reachable.
type HealthChecker interface {
	Name() string
	Check(ctx context.Context) error
}
