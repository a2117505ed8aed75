package service

import (
	"fmt"

	"payme-wallet/config"
	"payme-wallet/internal/core/domain"
	"payme-wallet/pkg/apperror"

	"github.com/shopspring/decimal"
)

// FeeCalculatorImpl implements ports.FeeCalculator from a configured
// fee policy. It is pure: same inputs always produce the same fee.
type FeeCalculatorImpl struct {
	withdrawalRate decimal.Decimal
	withdrawalMin  map[domain.Currency]decimal.Decimal
	exchangeRate   decimal.Decimal
}

// NewFeeCalculator parses the fee policy from configuration.
func NewFeeCalculator(cfg config.FeeConfig) (*FeeCalculatorImpl, error) {
	withdrawalRate, err := cfg.WithdrawalRate()
	if err != nil {
		return nil, fmt.Errorf("parsing withdrawal percent: %w", err)
	}
	exchangeRate, err := cfg.ExchangeFeeRate()
	if err != nil {
		return nil, fmt.Errorf("parsing exchange percent: %w", err)
	}

	minimums := make(map[domain.Currency]decimal.Decimal, len(cfg.WithdrawalMinimums))
	for code, raw := range cfg.WithdrawalMinimums {
		min, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("parsing withdrawal minimum for %s: %w", code, err)
		}
		minimums[domain.Currency(code)] = min
	}

	return &FeeCalculatorImpl{
		withdrawalRate: withdrawalRate,
		withdrawalMin:  minimums,
		exchangeRate:   exchangeRate,
	}, nil
}

// Fee computes the platform fee for an operation. Withdrawal fee is
// max(amount x rate, per-currency minimum); exchange fee is a percentage
// of the source amount; deposits and transfers carry no platform fee.
func (f *FeeCalculatorImpl) Fee(operation domain.TransactionType, currency domain.Currency, amount decimal.Decimal) (decimal.Decimal, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, apperror.ErrInvalidAmount()
	}
	if !currency.IsSupported() {
		return decimal.Zero, apperror.ErrUnknownCurrency(string(currency))
	}

	switch operation {
	case domain.TransactionTypeWithdraw:
		fee := currency.Round(amount.Mul(f.withdrawalRate))
		if min, ok := f.withdrawalMin[currency]; ok && fee.LessThan(min) {
			fee = min
		}
		return fee, nil
	case domain.TransactionTypeExchange:
		return currency.Round(amount.Mul(f.exchangeRate)), nil
	default:
		return decimal.Zero, nil
	}
}
