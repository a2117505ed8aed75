package service

import (
	"context"
	"fmt"
	"time"

	"payme-wallet/config"
	"payme-wallet/internal/core/domain"
	"payme-wallet/internal/core/ports"
	"payme-wallet/pkg/apperror"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// RateServiceImpl resolves conversion rates with a three-tier strategy:
// live source, last-known cached table, configured defaults. The origin
// tag on every result tells callers which tier answered.
type RateServiceImpl struct {
	fetcher  ports.RateFetcher
	cache    ports.RateCache
	defaults *domain.RateTable
	timeout  time.Duration
	log      zerolog.Logger
}

// NewRateService creates a new RateServiceImpl. The configured default
// table is parsed eagerly so a bad config fails at startup, not at
// quote time.
func NewRateService(
	fetcher ports.RateFetcher,
	cache ports.RateCache,
	cfg config.RatesConfig,
	log zerolog.Logger,
) (*RateServiceImpl, error) {
	defaults := &domain.RateTable{
		Rates:  make(map[string]decimal.Decimal, len(cfg.Defaults)),
		Origin: domain.RateOriginFallback,
	}
	for pair, raw := range cfg.Defaults {
		rate, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid default rate for %s: %w", pair, err)
		}
		defaults.Rates[pair] = rate
	}
	return &RateServiceImpl{
		fetcher:  fetcher,
		cache:    cache,
		defaults: defaults,
		timeout:  cfg.Timeout,
		log:      log,
	}, nil
}

// Table returns the freshest rate table available: live when the source
// answers in time, otherwise the cached last-known table, otherwise the
// configured defaults. It never fails; the worst case is stale data
// tagged fallback.
func (s *RateServiceImpl) Table(ctx context.Context) (*domain.RateTable, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	table, err := s.fetcher.Fetch(fetchCtx)
	if err == nil && table != nil && len(table.Rates) > 0 {
		table.Origin = domain.RateOriginLive
		if cacheErr := s.cache.Set(ctx, table); cacheErr != nil {
			s.log.Warn().Err(cacheErr).Msg("failed to cache rate table")
		}
		return table, nil
	}
	if err != nil {
		s.log.Warn().Err(err).Msg("live rate source unavailable, falling back")
	}

	cached, cacheErr := s.cache.Get(ctx)
	if cacheErr != nil {
		s.log.Warn().Err(cacheErr).Msg("rate cache unavailable")
	}
	if cached != nil && len(cached.Rates) > 0 {
		cached.Origin = domain.RateOriginFallback
		return cached, nil
	}

	out := &domain.RateTable{
		Rates:     s.defaults.Rates,
		Timestamp: time.Now().UTC(),
		Origin:    domain.RateOriginFallback,
	}
	return out, nil
}

// Quote resolves a single pair. A missing direct rate is answered from
// the inverse pair when present.
func (s *RateServiceImpl) Quote(ctx context.Context, from, to domain.Currency) (*domain.RateQuote, error) {
	if !from.IsSupported() {
		return nil, apperror.ErrUnknownCurrency(string(from))
	}
	if !to.IsSupported() {
		return nil, apperror.ErrUnknownCurrency(string(to))
	}
	if from == to {
		return nil, apperror.ErrInvalidPair()
	}

	table, err := s.Table(ctx)
	if err != nil {
		return nil, err
	}

	rate, ok := table.Rate(from, to)
	if !ok {
		inverse, invOk := table.Rate(to, from)
		if !invOk || inverse.IsZero() {
			return nil, apperror.ErrRateUnavailable()
		}
		rate = decimal.NewFromInt(1).DivRound(inverse, 12)
	}

	return &domain.RateQuote{
		From:      from,
		To:        to,
		Rate:      rate,
		Origin:    table.Origin,
		Timestamp: table.Timestamp,
	}, nil
}
