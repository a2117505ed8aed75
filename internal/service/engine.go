package service

import (
	"context"
	"fmt"
	"time"

	"payme-wallet/internal/core/domain"
	"payme-wallet/internal/core/ports"
	"payme-wallet/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// TransactionEngineImpl implements ports.TransactionEngine. Every flow
// runs inside one database transaction: the balance mutation and the
// transaction record commit together or not at all.
type TransactionEngineImpl struct {
	transactor  ports.DBTransactor
	ledger      ports.Ledger
	fees        ports.FeeCalculator
	rates       ports.RateService
	challenges  ports.ChallengeCoordinator
	instruments ports.InstrumentRegistry
	accountRepo ports.AccountRepository
	txRepo      ports.TransactionRepository
	log         zerolog.Logger
}

// NewTransactionEngine creates a new TransactionEngineImpl.
func NewTransactionEngine(
	transactor ports.DBTransactor,
	ledger ports.Ledger,
	fees ports.FeeCalculator,
	rates ports.RateService,
	challenges ports.ChallengeCoordinator,
	instruments ports.InstrumentRegistry,
	accountRepo ports.AccountRepository,
	txRepo ports.TransactionRepository,
	log zerolog.Logger,
) *TransactionEngineImpl {
	return &TransactionEngineImpl{
		transactor:  transactor,
		ledger:      ledger,
		fees:        fees,
		rates:       rates,
		challenges:  challenges,
		instruments: instruments,
		accountRepo: accountRepo,
		txRepo:      txRepo,
		log:         log,
	}
}

// Deposit credits an account balance from an external funding source.
func (s *TransactionEngineImpl) Deposit(ctx context.Context, req ports.DepositRequest) (*ports.TxResult, error) {
	amount, err := normalizeAmount(req.Currency, req.Amount)
	if err != nil {
		return nil, err
	}

	var last4 string
	if req.InstrumentID != nil {
		instrument, err := s.instruments.Get(ctx, req.AccountID, *req.InstrumentID)
		if err != nil {
			return nil, err
		}
		if instrument.Currency != req.Currency {
			return nil, apperror.ErrCurrencyMismatch()
		}
		last4 = instrument.Last4
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	newBalance, err := s.ledger.Credit(ctx, dbTx, req.AccountID, req.Currency, amount)
	if err != nil {
		return nil, err
	}

	txn := &domain.Transaction{
		ID:              uuid.New(),
		AccountID:       req.AccountID,
		Type:            domain.TransactionTypeDeposit,
		Status:          domain.TransactionStatusCompleted,
		FromCurrency:    req.Currency,
		FromAmount:      amount,
		ToCurrency:      req.Currency,
		ToAmount:        amount,
		Fee:             decimal.Zero,
		NetAmount:       amount,
		InstrumentLast4: last4,
		CreatedAt:       time.Now().UTC(),
	}
	if err := s.txRepo.Create(ctx, dbTx, txn); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("record deposit: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit deposit: %w", err))
	}

	s.log.Info().
		Str("transaction_id", txn.ID.String()).
		Str("account_id", req.AccountID.String()).
		Str("currency", string(req.Currency)).
		Str("amount", amount.String()).
		Msg("deposit completed")

	return &ports.TxResult{Transaction: txn, NewBalance: newBalance}, nil
}

// Exchange converts between two of the account's own balances. The fee
// is taken from the source amount before conversion; the destination
// amount is rounded banker's-style to the destination currency unit.
func (s *TransactionEngineImpl) Exchange(ctx context.Context, req ports.ExchangeRequest) (*ports.ExchangeResult, error) {
	fromAmount, err := normalizeAmount(req.FromCurrency, req.FromAmount)
	if err != nil {
		return nil, err
	}
	if !req.ToCurrency.IsSupported() {
		return nil, apperror.ErrUnknownCurrency(string(req.ToCurrency))
	}
	if req.FromCurrency == req.ToCurrency {
		return nil, apperror.ErrInvalidPair()
	}

	fee, err := s.fees.Fee(domain.TransactionTypeExchange, req.FromCurrency, fromAmount)
	if err != nil {
		return nil, err
	}
	net := fromAmount.Sub(fee)
	if !net.IsPositive() {
		return nil, apperror.ErrInvalidAmount()
	}

	quote, err := s.rates.Quote(ctx, req.FromCurrency, req.ToCurrency)
	if err != nil {
		return nil, err
	}
	toAmount := req.ToCurrency.Round(net.Mul(quote.Rate))
	if !toAmount.IsPositive() {
		return nil, apperror.ErrInvalidAmount()
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.ledger.Exchange(ctx, dbTx, req.AccountID, req.FromCurrency, fromAmount, req.ToCurrency, toAmount); err != nil {
		return nil, err
	}

	rate := quote.Rate
	txn := &domain.Transaction{
		ID:           uuid.New(),
		AccountID:    req.AccountID,
		Type:         domain.TransactionTypeExchange,
		Status:       domain.TransactionStatusCompleted,
		FromCurrency: req.FromCurrency,
		FromAmount:   fromAmount,
		ToCurrency:   req.ToCurrency,
		ToAmount:     toAmount,
		Fee:          fee,
		NetAmount:    net,
		Rate:         &rate,
		RateOrigin:   quote.Origin,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.txRepo.Create(ctx, dbTx, txn); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("record exchange: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit exchange: %w", err))
	}

	s.log.Info().
		Str("transaction_id", txn.ID.String()).
		Str("account_id", req.AccountID.String()).
		Str("pair", domain.PairKey(req.FromCurrency, req.ToCurrency)).
		Str("rate", rate.String()).
		Str("rate_origin", string(quote.Origin)).
		Msg("exchange completed")

	return &ports.ExchangeResult{
		Transaction: txn,
		ToAmount:    toAmount,
		RateApplied: rate,
		RateOrigin:  quote.Origin,
		Fee:         fee,
	}, nil
}

// Transfer moves value to another account identified by email. The
// recipient gets a mirrored RECEIVE record so both histories show the
// movement.
func (s *TransactionEngineImpl) Transfer(ctx context.Context, req ports.TransferRequest) (*ports.TxResult, error) {
	amount, err := normalizeAmount(req.Currency, req.Amount)
	if err != nil {
		return nil, err
	}

	recipient, err := s.accountRepo.GetByEmail(ctx, req.Recipient)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("find recipient: %w", err))
	}
	if recipient == nil {
		return nil, apperror.ErrUnknownRecipient()
	}
	if recipient.ID == req.AccountID {
		return nil, apperror.Validation("cannot transfer to your own account")
	}
	if !recipient.IsActive() {
		return nil, apperror.ErrUnknownRecipient()
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	senderBalance, err := s.ledger.Transfer(ctx, dbTx, req.AccountID, recipient.ID, req.Currency, amount)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	txn := &domain.Transaction{
		ID:             uuid.New(),
		AccountID:      req.AccountID,
		Type:           domain.TransactionTypeTransfer,
		Status:         domain.TransactionStatusCompleted,
		FromCurrency:   req.Currency,
		FromAmount:     amount,
		ToCurrency:     req.Currency,
		ToAmount:       amount,
		Fee:            decimal.Zero,
		NetAmount:      amount,
		CounterpartyID: &recipient.ID,
		Recipient:      recipient.Email,
		Note:           req.Note,
		CreatedAt:      now,
	}
	if err := s.txRepo.Create(ctx, dbTx, txn); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("record transfer: %w", err))
	}

	mirror := &domain.Transaction{
		ID:             uuid.New(),
		AccountID:      recipient.ID,
		Type:           domain.TransactionTypeReceive,
		Status:         domain.TransactionStatusCompleted,
		FromCurrency:   req.Currency,
		FromAmount:     amount,
		ToCurrency:     req.Currency,
		ToAmount:       amount,
		Fee:            decimal.Zero,
		NetAmount:      amount,
		CounterpartyID: &req.AccountID,
		Note:           req.Note,
		CreatedAt:      now,
	}
	if err := s.txRepo.Create(ctx, dbTx, mirror); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("record receipt: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit transfer: %w", err))
	}

	s.log.Info().
		Str("transaction_id", txn.ID.String()).
		Str("account_id", req.AccountID.String()).
		Str("recipient_id", recipient.ID.String()).
		Str("currency", string(req.Currency)).
		Str("amount", amount.String()).
		Msg("transfer completed")

	return &ports.TxResult{Transaction: txn, NewBalance: senderBalance}, nil
}

// RequestWithdrawalOTP is phase 1 of the two-phase withdrawal: validate
// everything that can be validated upfront, then issue a challenge
// bound to the card. Nothing is debited here.
func (s *TransactionEngineImpl) RequestWithdrawalOTP(ctx context.Context, req ports.WithdrawalRequest) (uuid.UUID, error) {
	amount, err := normalizeAmount(req.Currency, req.Amount)
	if err != nil {
		return uuid.Nil, err
	}

	account, err := s.accountRepo.GetByID(ctx, req.AccountID)
	if err != nil {
		return uuid.Nil, apperror.InternalError(fmt.Errorf("load account: %w", err))
	}
	if account == nil {
		return uuid.Nil, apperror.ErrNotFound("account")
	}
	if !account.IsActive() {
		return uuid.Nil, apperror.ErrAccountSuspended()
	}

	instrument, err := s.instruments.Get(ctx, req.AccountID, req.InstrumentID)
	if err != nil {
		return uuid.Nil, err
	}
	if instrument.Currency != req.Currency {
		return uuid.Nil, apperror.ErrCurrencyMismatch()
	}

	// Advisory pre-check. The binding check happens again under lock at
	// confirm time; this one only spares the user a pointless SMS.
	balance, err := s.ledger.Balance(ctx, req.AccountID, req.Currency)
	if err != nil {
		return uuid.Nil, err
	}
	if balance.LessThan(amount) {
		return uuid.Nil, apperror.ErrInsufficientFunds()
	}

	return s.challenges.Issue(ctx, account, instrument, domain.TransactionTypeWithdraw, req.Currency, amount)
}

// ConfirmWithdrawal is phase 2: verify the code, then consume the
// challenge and debit the balance inside one database transaction. A
// concurrent confirm of the same challenge loses on the consume and
// rolls back without touching the balance.
func (s *TransactionEngineImpl) ConfirmWithdrawal(ctx context.Context, req ports.ConfirmRequest) (*ports.WithdrawalResult, error) {
	challenge, err := s.challenges.Verify(ctx, req.ChallengeRef, req.Code)
	if err != nil {
		return nil, err
	}
	if challenge.AccountID != req.AccountID {
		// A foreign challenge reference is indistinguishable from an
		// unknown one.
		return nil, apperror.ErrChallengeNotFound()
	}

	amount, err := decimal.NewFromString(challenge.Amount)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("parse challenge amount: %w", err))
	}

	instrument, err := s.instruments.Get(ctx, req.AccountID, challenge.InstrumentID)
	if err != nil {
		return nil, err
	}

	fee, err := s.fees.Fee(domain.TransactionTypeWithdraw, challenge.Currency, amount)
	if err != nil {
		return nil, err
	}
	net := amount.Sub(fee)
	if !net.IsPositive() {
		return nil, apperror.ErrInvalidAmount()
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.challenges.Consume(ctx, dbTx, challenge.ID); err != nil {
		return nil, err
	}

	// Fresh balance check under the row lock: the balance may have moved
	// since the OTP was requested.
	newBalance, err := s.ledger.Debit(ctx, dbTx, req.AccountID, challenge.Currency, amount)
	if err != nil {
		return nil, err
	}

	txn := &domain.Transaction{
		ID:              uuid.New(),
		AccountID:       req.AccountID,
		Type:            domain.TransactionTypeWithdraw,
		Status:          domain.TransactionStatusCompleted,
		FromCurrency:    challenge.Currency,
		FromAmount:      amount,
		ToCurrency:      challenge.Currency,
		ToAmount:        net,
		Fee:             fee,
		NetAmount:       net,
		InstrumentLast4: instrument.Last4,
		CreatedAt:       time.Now().UTC(),
	}
	if err := s.txRepo.Create(ctx, dbTx, txn); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("record withdrawal: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit withdrawal: %w", err))
	}

	s.log.Info().
		Str("transaction_id", txn.ID.String()).
		Str("account_id", req.AccountID.String()).
		Str("currency", string(challenge.Currency)).
		Str("amount", amount.String()).
		Str("fee", fee.String()).
		Str("card", instrument.Masked()).
		Msg("withdrawal completed")

	return &ports.WithdrawalResult{
		Transaction: txn,
		Fee:         fee,
		NetAmount:   net,
		NewBalance:  newBalance,
	}, nil
}

// History returns the account's most recent transactions.
func (s *TransactionEngineImpl) History(ctx context.Context, accountID uuid.UUID, limit int) ([]domain.Transaction, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	records, err := s.txRepo.ListByAccount(ctx, accountID, limit)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list transactions: %w", err))
	}
	return records, nil
}

// normalizeAmount validates and rounds a request amount to the
// currency's precision. Sub-unit dust is rejected rather than silently
// rounded away.
func normalizeAmount(currency domain.Currency, amount decimal.Decimal) (decimal.Decimal, error) {
	if !currency.IsSupported() {
		return decimal.Zero, apperror.ErrUnknownCurrency(string(currency))
	}
	if !amount.IsPositive() {
		return decimal.Zero, apperror.ErrInvalidAmount()
	}
	rounded := currency.Round(amount)
	if !rounded.Equal(amount) {
		return decimal.Zero, apperror.Validation(fmt.Sprintf("amount exceeds %s precision", currency))
	}
	return rounded, nil
}
