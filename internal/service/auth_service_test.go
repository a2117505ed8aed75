package service

import (
	"context"
	"testing"
	"time"

	"payme-wallet/internal/core/domain"
	"payme-wallet/internal/core/ports/mocks"
	"payme-wallet/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type authFixture struct {
	svc         *AuthServiceImpl
	accountRepo *mocks.MockAccountRepository
	balanceRepo *mocks.MockBalanceRepository
	hashSvc     *mocks.MockHashService
	tokenSvc    *mocks.MockTokenService
}

func newAuthFixture(t *testing.T) *authFixture {
	ctrl := gomock.NewController(t)
	f := &authFixture{
		accountRepo: mocks.NewMockAccountRepository(ctrl),
		balanceRepo: mocks.NewMockBalanceRepository(ctrl),
		hashSvc:     mocks.NewMockHashService(ctrl),
		tokenSvc:    mocks.NewMockTokenService(ctrl),
	}
	f.svc = NewAuthService(f.accountRepo, f.balanceRepo, f.hashSvc, f.tokenSvc, logger.New("disabled", false))
	return f
}

func TestAuthService_Register_CreatesZeroBalances(t *testing.T) {
	f := newAuthFixture(t)

	var created []domain.Currency
	f.accountRepo.EXPECT().GetByEmail(gomock.Any(), "ali@example.com").Return(nil, nil)
	f.accountRepo.EXPECT().GetByUsername(gomock.Any(), "ali").Return(nil, nil)
	f.hashSvc.EXPECT().Hash("hunter2secure").Return("$argon2id$...", nil)
	f.accountRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
	f.balanceRepo.EXPECT().Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, b *domain.Balance) error {
			assert.True(t, b.Amount.IsZero())
			created = append(created, b.Currency)
			return nil
		}).
		Times(3)

	account, err := f.svc.Register(context.Background(), "Ali@Example.com", "ali", "hunter2secure")
	require.NoError(t, err)

	assert.Equal(t, "ali@example.com", account.Email, "email is lowercased")
	assert.Equal(t, "$argon2id$...", account.PasswordHash)
	assert.Equal(t, domain.AccountStatusActive, account.Status)
	assert.ElementsMatch(t, domain.SupportedCurrencies(), created)
}

func TestAuthService_Register_Validation(t *testing.T) {
	tests := []struct {
		name                      string
		email, username, password string
	}{
		{"bad email", "not-an-email", "ali", "hunter2secure"},
		{"short username", "ali@example.com", "al", "hunter2secure"},
		{"short password", "ali@example.com", "ali", "short"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAuthFixture(t)
			_, err := f.svc.Register(context.Background(), tt.email, tt.username, tt.password)
			assertAppError(t, err, "WAL_001")
		})
	}
}

func TestAuthService_Register_EmailTaken(t *testing.T) {
	f := newAuthFixture(t)

	f.accountRepo.EXPECT().GetByEmail(gomock.Any(), "ali@example.com").
		Return(&domain.Account{ID: uuid.New()}, nil)

	_, err := f.svc.Register(context.Background(), "ali@example.com", "ali", "hunter2secure")
	assertAppError(t, err, "AUTH_002")
}

func TestAuthService_Login(t *testing.T) {
	f := newAuthFixture(t)
	account := testAccount()
	account.PasswordHash = "stored-hash"
	expiresAt := time.Now().Add(24 * time.Hour)

	f.accountRepo.EXPECT().GetByUsername(gomock.Any(), "ali").Return(account, nil)
	f.hashSvc.EXPECT().Verify("hunter2secure", "stored-hash").Return(true, nil)
	f.tokenSvc.EXPECT().Generate(account.ID, "ali").Return("signed.jwt", expiresAt, nil)

	res, err := f.svc.Login(context.Background(), "ali", "hunter2secure")
	require.NoError(t, err)
	assert.Equal(t, account.ID, res.AccountID)
	assert.Equal(t, "signed.jwt", res.Token)
	assert.Equal(t, expiresAt, res.ExpiresAt)
}

func TestAuthService_Login_WrongPasswordAndUnknownUserLookIdentical(t *testing.T) {
	f := newAuthFixture(t)
	account := testAccount()

	f.accountRepo.EXPECT().GetByUsername(gomock.Any(), "ali").Return(account, nil)
	f.hashSvc.EXPECT().Verify("wrong", gomock.Any()).Return(false, nil)
	_, errWrong := f.svc.Login(context.Background(), "ali", "wrong")

	f.accountRepo.EXPECT().GetByUsername(gomock.Any(), "ghost").Return(nil, nil)
	_, errUnknown := f.svc.Login(context.Background(), "ghost", "whatever")

	assertAppError(t, errWrong, "AUTH_001")
	assertAppError(t, errUnknown, "AUTH_001")
	assert.Equal(t, errWrong.Error(), errUnknown.Error())
}

func TestAuthService_Login_SuspendedAccount(t *testing.T) {
	f := newAuthFixture(t)
	account := testAccount()
	account.Status = domain.AccountStatusSuspended

	f.accountRepo.EXPECT().GetByUsername(gomock.Any(), "ali").Return(account, nil)
	f.hashSvc.EXPECT().Verify(gomock.Any(), gomock.Any()).Return(true, nil)

	_, err := f.svc.Login(context.Background(), "ali", "hunter2secure")
	assertAppError(t, err, "AUTH_004")
}
