package service

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"payme-wallet/internal/core/domain"
	"payme-wallet/internal/core/ports"
	"payme-wallet/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// AuthServiceImpl implements ports.AuthService.
type AuthServiceImpl struct {
	accountRepo ports.AccountRepository
	balanceRepo ports.BalanceRepository
	hashSvc     ports.HashService
	tokenSvc    ports.TokenService
	log         zerolog.Logger
}

// NewAuthService creates a new AuthServiceImpl.
func NewAuthService(
	accountRepo ports.AccountRepository,
	balanceRepo ports.BalanceRepository,
	hashSvc ports.HashService,
	tokenSvc ports.TokenService,
	log zerolog.Logger,
) *AuthServiceImpl {
	return &AuthServiceImpl{
		accountRepo: accountRepo,
		balanceRepo: balanceRepo,
		hashSvc:     hashSvc,
		tokenSvc:    tokenSvc,
		log:         log,
	}
}

// Register creates a new account with zero balances in every supported
// currency.
func (s *AuthServiceImpl) Register(ctx context.Context, email, username, password string) (*domain.Account, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	username = strings.TrimSpace(username)

	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apperror.Validation("invalid email address")
	}
	if len(username) < 3 {
		return nil, apperror.Validation("username must be at least 3 characters")
	}
	if len(password) < 8 {
		return nil, apperror.Validation("password must be at least 8 characters")
	}

	if existing, err := s.accountRepo.GetByEmail(ctx, email); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("check email: %w", err))
	} else if existing != nil {
		return nil, apperror.ErrAccountExists()
	}
	if existing, err := s.accountRepo.GetByUsername(ctx, username); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("check username: %w", err))
	} else if existing != nil {
		return nil, apperror.ErrAccountExists()
	}

	passwordHash, err := s.hashSvc.Hash(password)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("hash password: %w", err))
	}

	now := time.Now().UTC()
	account := &domain.Account{
		ID:           uuid.New(),
		Email:        email,
		Username:     username,
		PasswordHash: passwordHash,
		Status:       domain.AccountStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.accountRepo.Create(ctx, account); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create account: %w", err))
	}

	for _, c := range domain.SupportedCurrencies() {
		balance := &domain.Balance{
			AccountID: account.ID,
			Currency:  c,
			Amount:    decimal.Zero,
			UpdatedAt: now,
		}
		if err := s.balanceRepo.Create(ctx, balance); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("create %s balance: %w", c, err))
		}
	}

	s.log.Info().
		Str("account_id", account.ID.String()).
		Str("username", username).
		Msg("account registered")

	return account, nil
}

// Login validates credentials and returns a session token. Failures are
// indistinguishable between unknown user and wrong password.
func (s *AuthServiceImpl) Login(ctx context.Context, username, password string) (*ports.AuthResult, error) {
	account, err := s.accountRepo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("find account: %w", err))
	}
	if account == nil {
		return nil, apperror.ErrInvalidCredentials()
	}

	valid, err := s.hashSvc.Verify(password, account.PasswordHash)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("verify password: %w", err))
	}
	if !valid {
		return nil, apperror.ErrInvalidCredentials()
	}

	if !account.IsActive() {
		return nil, apperror.ErrAccountSuspended()
	}

	token, expiresAt, err := s.tokenSvc.Generate(account.ID, account.Username)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("generate token: %w", err))
	}

	return &ports.AuthResult{
		AccountID: account.ID,
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}
