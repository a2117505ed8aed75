package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"
	"time"

	"payme-wallet/config"
	"payme-wallet/internal/core/domain"
	"payme-wallet/internal/core/ports"
	"payme-wallet/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const otpDigits = 6

// ChallengeService implements ports.ChallengeCoordinator. Codes are
// stored only as SHA-256 hashes and compared in constant time; the
// cleartext goes to the out-of-band sender and is then discarded.
type ChallengeService struct {
	challengeRepo ports.ChallengeRepository
	sender        ports.OTPSender
	ttl           time.Duration
	maxAttempts   int
	log           zerolog.Logger
}

// NewChallengeService creates a new ChallengeService with the configured
// OTP policy.
func NewChallengeService(
	challengeRepo ports.ChallengeRepository,
	sender ports.OTPSender,
	cfg config.OTPConfig,
	log zerolog.Logger,
) *ChallengeService {
	return &ChallengeService{
		challengeRepo: challengeRepo,
		sender:        sender,
		ttl:           cfg.TTL,
		maxAttempts:   cfg.MaxAttempts,
		log:           log,
	}
}

// Issue supersedes any pending challenge for the (account, operation)
// pair, creates a fresh one and hands the code to the sender. Only the
// opaque challenge id is returned.
func (s *ChallengeService) Issue(
	ctx context.Context,
	account *domain.Account,
	instrument *domain.Instrument,
	operation domain.TransactionType,
	currency domain.Currency,
	amount decimal.Decimal,
) (uuid.UUID, error) {
	if err := s.challengeRepo.ExpirePending(ctx, account.ID, operation); err != nil {
		return uuid.Nil, apperror.InternalError(fmt.Errorf("supersede pending challenge: %w", err))
	}

	code, err := generateCode(otpDigits)
	if err != nil {
		return uuid.Nil, apperror.InternalError(fmt.Errorf("generate code: %w", err))
	}

	now := time.Now().UTC()
	challenge := &domain.Challenge{
		ID:           uuid.New(),
		AccountID:    account.ID,
		InstrumentID: instrument.ID,
		Operation:    operation,
		Currency:     currency,
		Amount:       amount.String(),
		CodeHash:     hashCode(code),
		Attempts:     0,
		Status:       domain.ChallengeStatusPending,
		IssuedAt:     now,
		ExpiresAt:    now.Add(s.ttl),
	}
	if err := s.challengeRepo.Create(ctx, challenge); err != nil {
		return uuid.Nil, apperror.InternalError(fmt.Errorf("create challenge: %w", err))
	}

	if err := s.sender.Send(ctx, instrument.ContactPhone, instrument.Last4, code); err != nil {
		// The challenge row exists but the code never left the system;
		// expire it so the caller re-issues instead of guessing.
		_ = s.challengeRepo.UpdateStatus(ctx, challenge.ID, domain.ChallengeStatusExpired)
		return uuid.Nil, apperror.ErrServiceUnavailable(fmt.Errorf("deliver code: %w", err))
	}

	s.log.Info().
		Str("challenge_id", challenge.ID.String()).
		Str("account_id", account.ID.String()).
		Str("operation", string(operation)).
		Str("card", instrument.Masked()).
		Msg("challenge issued")

	return challenge.ID, nil
}

// Verify fails closed. A non-matching code burns one attempt; the
// attempt cap forces re-issue to resist brute force over the 6-digit
// space. On match the challenge transitions to VERIFIED.
func (s *ChallengeService) Verify(ctx context.Context, challengeID uuid.UUID, code string) (*domain.Challenge, error) {
	challenge, err := s.challengeRepo.GetByID(ctx, challengeID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("load challenge: %w", err))
	}
	if challenge == nil {
		return nil, apperror.ErrChallengeNotFound()
	}

	switch challenge.Status {
	case domain.ChallengeStatusPending, domain.ChallengeStatusVerified:
		// A VERIFIED challenge whose confirm rolled back (the balance
		// moved between issue and confirm) stays redeemable. The consume
		// step is the one-shot guard, not this check.
	case domain.ChallengeStatusConsumed:
		return nil, apperror.ErrChallengeAlreadyUsed()
	default:
		return nil, apperror.ErrChallengeExpired()
	}

	if challenge.IsExpired(time.Now().UTC()) {
		if err := s.challengeRepo.UpdateStatus(ctx, challengeID, domain.ChallengeStatusExpired); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("expire challenge: %w", err))
		}
		return nil, apperror.ErrChallengeExpired()
	}

	if challenge.Attempts >= s.maxAttempts {
		return nil, apperror.ErrChallengeAttemptsExceeded()
	}

	if subtle.ConstantTimeCompare([]byte(hashCode(code)), []byte(challenge.CodeHash)) != 1 {
		attempts, err := s.challengeRepo.IncrementAttempts(ctx, challengeID)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("record attempt: %w", err))
		}
		remaining := s.maxAttempts - attempts
		if remaining <= 0 {
			if err := s.challengeRepo.UpdateStatus(ctx, challengeID, domain.ChallengeStatusExpired); err != nil {
				return nil, apperror.InternalError(fmt.Errorf("expire challenge: %w", err))
			}
			return nil, apperror.ErrChallengeAttemptsExceeded()
		}
		return nil, apperror.ErrChallengeMismatch(remaining)
	}

	if err := s.challengeRepo.UpdateStatus(ctx, challengeID, domain.ChallengeStatusVerified); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("mark verified: %w", err))
	}
	challenge.Status = domain.ChallengeStatusVerified

	s.log.Info().
		Str("challenge_id", challengeID.String()).
		Msg("challenge verified")

	return challenge, nil
}

// Consume transitions VERIFIED -> CONSUMED inside the caller's database
// transaction. The conditional update is the one-shot guard: a replayed
// confirm sees zero rows updated and fails with ChallengeAlreadyUsed.
func (s *ChallengeService) Consume(ctx context.Context, tx pgx.Tx, challengeID uuid.UUID) error {
	ok, err := s.challengeRepo.Consume(ctx, tx, challengeID)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("consume challenge: %w", err))
	}
	if !ok {
		return apperror.ErrChallengeAlreadyUsed()
	}
	return nil
}

// generateCode produces n cryptographically random decimal digits.
func generateCode(n int) (string, error) {
	max := big.NewInt(10)
	buf := make([]byte, n)
	for i := range buf {
		d, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = byte('0' + d.Int64())
	}
	return string(buf), nil
}

// hashCode returns the hex SHA-256 digest of an OTP code.
func hashCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}
