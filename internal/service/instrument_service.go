package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"payme-wallet/internal/core/domain"
	"payme-wallet/internal/core/ports"
	"payme-wallet/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	digitsOnly  = regexp.MustCompile(`^[0-9]+$`)
	expiryMMYY  = regexp.MustCompile(`^(0[1-9]|1[0-2])/[0-9]{2}$`)
	phonePat    = regexp.MustCompile(`^09[0-9]{9}$`)
	cvvPat      = regexp.MustCompile(`^[0-9]{3,4}$`)
	panStripper = strings.NewReplacer(" ", "", "-", "")
)

// InstrumentService implements ports.InstrumentRegistry. Card numbers
// are AES-encrypted before they reach storage; everything downstream
// sees only the last four digits.
type InstrumentService struct {
	instrumentRepo ports.InstrumentRepository
	encryption     ports.EncryptionService
	log            zerolog.Logger
}

// NewInstrumentService creates a new InstrumentService.
func NewInstrumentService(
	instrumentRepo ports.InstrumentRepository,
	encryption ports.EncryptionService,
	log zerolog.Logger,
) *InstrumentService {
	return &InstrumentService{
		instrumentRepo: instrumentRepo,
		encryption:     encryption,
		log:            log,
	}
}

// Register validates the draft against the scheme rules for its
// currency, encrypts the PAN and persists the card.
func (s *InstrumentService) Register(ctx context.Context, accountID uuid.UUID, draft ports.InstrumentDraft) (*domain.Instrument, error) {
	if !draft.Currency.IsSupported() {
		return nil, apperror.ErrUnknownCurrency(string(draft.Currency))
	}

	pan := panStripper.Replace(draft.Number)
	if len(pan) < 16 || !digitsOnly.MatchString(pan) {
		return nil, apperror.ErrInvalidInstrument("card number must be at least 16 digits")
	}
	if !phonePat.MatchString(draft.Phone) {
		return nil, apperror.ErrInvalidInstrument("contact phone must be 11 digits starting with 09")
	}

	scheme, err := validateScheme(draft)
	if err != nil {
		return nil, err
	}

	enc, err := s.encryption.Encrypt(pan)
	if err != nil {
		return nil, apperror.ErrEncryptionFailure(fmt.Errorf("encrypt card number: %w", err))
	}

	instrument := &domain.Instrument{
		ID:           uuid.New(),
		AccountID:    accountID,
		Scheme:       scheme,
		Currency:     draft.Currency,
		Last4:        pan[len(pan)-4:],
		NumberEnc:    enc,
		HolderName:   strings.TrimSpace(draft.HolderName),
		ContactPhone: draft.Phone,
		BankName:     strings.TrimSpace(draft.BankName),
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.instrumentRepo.Create(ctx, instrument); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create instrument: %w", err))
	}

	s.log.Info().
		Str("account_id", accountID.String()).
		Str("instrument_id", instrument.ID.String()).
		Str("card", instrument.Masked()).
		Str("scheme", string(scheme)).
		Msg("instrument registered")

	return instrument, nil
}

// validateScheme applies the per-currency card scheme rules. IRR cards
// ride the Shetab network and carry CVV2; everything else is treated as
// a card-present fiat card with expiry and CVV.
func validateScheme(draft ports.InstrumentDraft) (domain.InstrumentScheme, error) {
	if draft.Currency == domain.CurrencyIRR {
		if !expiryMMYY.MatchString(draft.Expiry) {
			return "", apperror.ErrInvalidInstrument("expiry date must be MM/YY")
		}
		if !cvvPat.MatchString(draft.CVV2) {
			return "", apperror.ErrInvalidInstrument("CVV2 is required for Shetab cards")
		}
		return domain.SchemeShetab, nil
	}

	if !expiryMMYY.MatchString(draft.Expiry) {
		return "", apperror.ErrInvalidInstrument("expiry date must be MM/YY")
	}
	if !cvvPat.MatchString(draft.CVV) {
		return "", apperror.ErrInvalidInstrument("CVV is required")
	}
	return domain.SchemeCard, nil
}

// List returns the account's cards in creation order, optionally
// filtered by currency.
func (s *InstrumentService) List(ctx context.Context, accountID uuid.UUID, currency *domain.Currency) ([]domain.Instrument, error) {
	if currency != nil && !currency.IsSupported() {
		return nil, apperror.ErrUnknownCurrency(string(*currency))
	}
	instruments, err := s.instrumentRepo.ListByAccount(ctx, accountID, currency)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list instruments: %w", err))
	}
	return instruments, nil
}

// Delete removes a card owned by the account. Deleting someone else's
// card looks identical to deleting a card that never existed.
func (s *InstrumentService) Delete(ctx context.Context, accountID, instrumentID uuid.UUID) error {
	deleted, err := s.instrumentRepo.Delete(ctx, accountID, instrumentID)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("delete instrument: %w", err))
	}
	if !deleted {
		return apperror.ErrNotFound("instrument")
	}

	s.log.Info().
		Str("account_id", accountID.String()).
		Str("instrument_id", instrumentID.String()).
		Msg("instrument deleted")
	return nil
}

// Get returns the instrument only if it belongs to the account.
func (s *InstrumentService) Get(ctx context.Context, accountID, instrumentID uuid.UUID) (*domain.Instrument, error) {
	instrument, err := s.instrumentRepo.GetByID(ctx, instrumentID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("load instrument: %w", err))
	}
	if instrument == nil || instrument.AccountID != accountID {
		return nil, apperror.ErrNotFound("instrument")
	}
	return instrument, nil
}
