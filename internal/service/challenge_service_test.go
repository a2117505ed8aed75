package service

import (
	"context"
	"testing"
	"time"

	"payme-wallet/config"
	"payme-wallet/internal/core/domain"
	"payme-wallet/internal/core/ports/mocks"
	"payme-wallet/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newChallengeFixture(t *testing.T) (*ChallengeService, *mocks.MockChallengeRepository, *mocks.MockOTPSender) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockChallengeRepository(ctrl)
	sender := mocks.NewMockOTPSender(ctrl)
	svc := NewChallengeService(repo, sender, config.OTPConfig{
		TTL:         5 * time.Minute,
		MaxAttempts: 5,
	}, logger.New("disabled", false))
	return svc, repo, sender
}

func testAccount() *domain.Account {
	return &domain.Account{ID: uuid.New(), Email: "ali@example.com", Username: "ali", Status: domain.AccountStatusActive}
}

func testInstrument(accountID uuid.UUID) *domain.Instrument {
	return &domain.Instrument{
		ID:           uuid.New(),
		AccountID:    accountID,
		Scheme:       domain.SchemeCard,
		Currency:     domain.CurrencyUSD,
		Last4:        "4242",
		ContactPhone: "09123456789",
	}
}

func TestChallengeService_Issue(t *testing.T) {
	svc, repo, sender := newChallengeFixture(t)
	account := testAccount()
	instrument := testInstrument(account.ID)

	var created *domain.Challenge
	var sentCode string

	repo.EXPECT().ExpirePending(gomock.Any(), account.ID, domain.TransactionTypeWithdraw).Return(nil)
	repo.EXPECT().Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, c *domain.Challenge) error {
			created = c
			return nil
		})
	sender.EXPECT().Send(gomock.Any(), instrument.ContactPhone, "4242", gomock.Any()).
		DoAndReturn(func(_ context.Context, _, _, code string) error {
			sentCode = code
			return nil
		})

	id, err := svc.Issue(context.Background(), account, instrument,
		domain.TransactionTypeWithdraw, domain.CurrencyUSD, decimal.RequireFromString("50.00"))
	require.NoError(t, err)

	require.NotNil(t, created)
	assert.Equal(t, created.ID, id)
	assert.Equal(t, domain.ChallengeStatusPending, created.Status)
	assert.Equal(t, account.ID, created.AccountID)
	assert.Equal(t, instrument.ID, created.InstrumentID)
	assert.Equal(t, "50", decimal.RequireFromString(created.Amount).String())
	assert.WithinDuration(t, created.IssuedAt.Add(5*time.Minute), created.ExpiresAt, time.Second)

	// The code never touches storage in cleartext.
	require.Len(t, sentCode, 6)
	assert.NotEqual(t, sentCode, created.CodeHash)
	assert.Equal(t, hashCode(sentCode), created.CodeHash)
}

func TestChallengeService_Issue_SenderFailureExpiresChallenge(t *testing.T) {
	svc, repo, sender := newChallengeFixture(t)
	account := testAccount()
	instrument := testInstrument(account.ID)

	var challengeID uuid.UUID
	repo.EXPECT().ExpirePending(gomock.Any(), account.ID, domain.TransactionTypeWithdraw).Return(nil)
	repo.EXPECT().Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, c *domain.Challenge) error {
			challengeID = c.ID
			return nil
		})
	sender.EXPECT().Send(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(assert.AnError)
	repo.EXPECT().UpdateStatus(gomock.Any(), gomock.Any(), domain.ChallengeStatusExpired).
		DoAndReturn(func(_ context.Context, id uuid.UUID, _ domain.ChallengeStatus) error {
			assert.Equal(t, challengeID, id)
			return nil
		})

	_, err := svc.Issue(context.Background(), account, instrument,
		domain.TransactionTypeWithdraw, domain.CurrencyUSD, decimal.RequireFromString("50.00"))
	assertAppError(t, err, "SYS_003")
}

func pendingChallenge(code string) *domain.Challenge {
	now := time.Now().UTC()
	return &domain.Challenge{
		ID:        uuid.New(),
		AccountID: uuid.New(),
		Operation: domain.TransactionTypeWithdraw,
		Currency:  domain.CurrencyUSD,
		Amount:    "50",
		CodeHash:  hashCode(code),
		Status:    domain.ChallengeStatusPending,
		IssuedAt:  now,
		ExpiresAt: now.Add(5 * time.Minute),
	}
}

func TestChallengeService_Verify_Success(t *testing.T) {
	svc, repo, _ := newChallengeFixture(t)
	ch := pendingChallenge("123456")

	repo.EXPECT().GetByID(gomock.Any(), ch.ID).Return(ch, nil)
	repo.EXPECT().UpdateStatus(gomock.Any(), ch.ID, domain.ChallengeStatusVerified).Return(nil)

	got, err := svc.Verify(context.Background(), ch.ID, "123456")
	require.NoError(t, err)
	assert.Equal(t, domain.ChallengeStatusVerified, got.Status)
}

func TestChallengeService_Verify_NotFound(t *testing.T) {
	svc, repo, _ := newChallengeFixture(t)
	id := uuid.New()

	repo.EXPECT().GetByID(gomock.Any(), id).Return(nil, nil)

	_, err := svc.Verify(context.Background(), id, "123456")
	assertAppError(t, err, "OTP_005")
}

func TestChallengeService_Verify_Expired(t *testing.T) {
	svc, repo, _ := newChallengeFixture(t)
	ch := pendingChallenge("123456")
	ch.ExpiresAt = time.Now().UTC().Add(-time.Second)

	repo.EXPECT().GetByID(gomock.Any(), ch.ID).Return(ch, nil)
	repo.EXPECT().UpdateStatus(gomock.Any(), ch.ID, domain.ChallengeStatusExpired).Return(nil)

	_, err := svc.Verify(context.Background(), ch.ID, "123456")
	assertAppError(t, err, "OTP_001")
}

func TestChallengeService_Verify_MismatchBurnsAttempt(t *testing.T) {
	svc, repo, _ := newChallengeFixture(t)
	ch := pendingChallenge("123456")

	repo.EXPECT().GetByID(gomock.Any(), ch.ID).Return(ch, nil)
	repo.EXPECT().IncrementAttempts(gomock.Any(), ch.ID).Return(1, nil)

	_, err := svc.Verify(context.Background(), ch.ID, "654321")
	assertAppError(t, err, "OTP_002")
}

func TestChallengeService_Verify_LastAttemptExhausts(t *testing.T) {
	svc, repo, _ := newChallengeFixture(t)
	ch := pendingChallenge("123456")
	ch.Attempts = 4

	repo.EXPECT().GetByID(gomock.Any(), ch.ID).Return(ch, nil)
	repo.EXPECT().IncrementAttempts(gomock.Any(), ch.ID).Return(5, nil)
	repo.EXPECT().UpdateStatus(gomock.Any(), ch.ID, domain.ChallengeStatusExpired).Return(nil)

	_, err := svc.Verify(context.Background(), ch.ID, "654321")
	assertAppError(t, err, "OTP_004")
}

func TestChallengeService_Verify_ExhaustedEvenWithCorrectCode(t *testing.T) {
	svc, repo, _ := newChallengeFixture(t)
	ch := pendingChallenge("123456")
	ch.Attempts = 5

	repo.EXPECT().GetByID(gomock.Any(), ch.ID).Return(ch, nil)

	_, err := svc.Verify(context.Background(), ch.ID, "123456")
	assertAppError(t, err, "OTP_004")
}

func TestChallengeService_Verify_RetryAfterRolledBackConfirm(t *testing.T) {
	svc, repo, _ := newChallengeFixture(t)
	ch := pendingChallenge("123456")
	ch.Status = domain.ChallengeStatusVerified

	repo.EXPECT().GetByID(gomock.Any(), ch.ID).Return(ch, nil)
	repo.EXPECT().UpdateStatus(gomock.Any(), ch.ID, domain.ChallengeStatusVerified).Return(nil)

	got, err := svc.Verify(context.Background(), ch.ID, "123456")
	require.NoError(t, err)
	assert.Equal(t, domain.ChallengeStatusVerified, got.Status)
}

func TestChallengeService_Verify_ConsumedRejected(t *testing.T) {
	svc, repo, _ := newChallengeFixture(t)
	ch := pendingChallenge("123456")
	ch.Status = domain.ChallengeStatusConsumed

	repo.EXPECT().GetByID(gomock.Any(), ch.ID).Return(ch, nil)

	_, err := svc.Verify(context.Background(), ch.ID, "123456")
	assertAppError(t, err, "OTP_003")
}

func TestChallengeService_Consume_OneShot(t *testing.T) {
	svc, repo, _ := newChallengeFixture(t)
	id := uuid.New()

	repo.EXPECT().Consume(gomock.Any(), gomock.Any(), id).Return(true, nil)
	require.NoError(t, svc.Consume(context.Background(), nil, id))

	repo.EXPECT().Consume(gomock.Any(), gomock.Any(), id).Return(false, nil)
	err := svc.Consume(context.Background(), nil, id)
	assertAppError(t, err, "OTP_003")
}

func TestGenerateCode_SixDecimalDigits(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 32; i++ {
		code, err := generateCode(otpDigits)
		require.NoError(t, err)
		require.Len(t, code, otpDigits)
		for _, r := range code {
			assert.True(t, r >= '0' && r <= '9')
		}
		seen[code] = true
	}
	// Collisions across 32 draws from a million-value space would be
	// suspicious enough to fail on.
	assert.Greater(t, len(seen), 30)
}
