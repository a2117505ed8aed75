package service

import (
	"context"
	"testing"
	"time"

	"payme-wallet/config"
	"payme-wallet/internal/core/domain"
	"payme-wallet/internal/core/ports/mocks"
	"payme-wallet/pkg/logger"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newRateFixture(t *testing.T, defaults map[string]string) (*RateServiceImpl, *mocks.MockRateFetcher, *mocks.MockRateCache) {
	ctrl := gomock.NewController(t)
	fetcher := mocks.NewMockRateFetcher(ctrl)
	cache := mocks.NewMockRateCache(ctrl)
	svc, err := NewRateService(fetcher, cache, config.RatesConfig{
		Timeout:  time.Second,
		Defaults: defaults,
	}, logger.New("disabled", false))
	require.NoError(t, err)
	return svc, fetcher, cache
}

func liveTable(pairs map[string]string) *domain.RateTable {
	rates := make(map[string]decimal.Decimal, len(pairs))
	for k, v := range pairs {
		rates[k] = decimal.RequireFromString(v)
	}
	return &domain.RateTable{Rates: rates, Timestamp: time.Now().UTC()}
}

func TestRateService_Quote_LiveSource(t *testing.T) {
	svc, fetcher, cache := newRateFixture(t, nil)

	fetcher.EXPECT().Fetch(gomock.Any()).Return(liveTable(map[string]string{"USD_IRR": "1100000"}), nil)
	cache.EXPECT().Set(gomock.Any(), gomock.Any()).Return(nil)

	q, err := svc.Quote(context.Background(), domain.CurrencyUSD, domain.CurrencyIRR)
	require.NoError(t, err)
	assert.Equal(t, domain.RateOriginLive, q.Origin)
	assert.True(t, q.Rate.Equal(decimal.RequireFromString("1100000")))
}

func TestRateService_Quote_FallsBackToCache(t *testing.T) {
	svc, fetcher, cache := newRateFixture(t, nil)

	fetcher.EXPECT().Fetch(gomock.Any()).Return(nil, assert.AnError)
	cached := liveTable(map[string]string{"USD_IRR": "1050000"})
	cache.EXPECT().Get(gomock.Any()).Return(cached, nil)

	q, err := svc.Quote(context.Background(), domain.CurrencyUSD, domain.CurrencyIRR)
	require.NoError(t, err)
	assert.Equal(t, domain.RateOriginFallback, q.Origin)
	assert.True(t, q.Rate.Equal(decimal.RequireFromString("1050000")))
}

func TestRateService_Quote_FallsBackToDefaults(t *testing.T) {
	svc, fetcher, cache := newRateFixture(t, map[string]string{"USD_IRR": "1070000"})

	fetcher.EXPECT().Fetch(gomock.Any()).Return(nil, assert.AnError)
	cache.EXPECT().Get(gomock.Any()).Return(nil, assert.AnError)

	q, err := svc.Quote(context.Background(), domain.CurrencyUSD, domain.CurrencyIRR)
	require.NoError(t, err)
	assert.Equal(t, domain.RateOriginFallback, q.Origin)
	assert.True(t, q.Rate.Equal(decimal.RequireFromString("1070000")))
}

func TestRateService_Quote_InverseLookup(t *testing.T) {
	svc, fetcher, cache := newRateFixture(t, nil)

	fetcher.EXPECT().Fetch(gomock.Any()).Return(liveTable(map[string]string{"USD_IRR": "1000000"}), nil)
	cache.EXPECT().Set(gomock.Any(), gomock.Any()).Return(nil)

	q, err := svc.Quote(context.Background(), domain.CurrencyIRR, domain.CurrencyUSD)
	require.NoError(t, err)
	assert.True(t, q.Rate.Equal(decimal.RequireFromString("0.000001")), "got %s", q.Rate)
}

func TestRateService_Quote_SamePairRejected(t *testing.T) {
	svc, _, _ := newRateFixture(t, nil)

	_, err := svc.Quote(context.Background(), domain.CurrencyUSD, domain.CurrencyUSD)
	assertAppError(t, err, "WAL_004")
}

func TestRateService_Quote_UnknownPairUnavailable(t *testing.T) {
	svc, fetcher, cache := newRateFixture(t, nil)

	fetcher.EXPECT().Fetch(gomock.Any()).Return(nil, assert.AnError)
	cache.EXPECT().Get(gomock.Any()).Return(nil, nil)

	_, err := svc.Quote(context.Background(), domain.CurrencyUSD, domain.CurrencyIRR)
	assertAppError(t, err, "RATE_001")
}

func TestRateService_RejectsBadDefaultConfig(t *testing.T) {
	ctrl := gomock.NewController(t)
	_, err := NewRateService(
		mocks.NewMockRateFetcher(ctrl),
		mocks.NewMockRateCache(ctrl),
		config.RatesConfig{Timeout: time.Second, Defaults: map[string]string{"USD_IRR": "not-a-number"}},
		logger.New("disabled", false),
	)
	require.Error(t, err)
}

func TestRateService_CacheWriteFailureIsNonFatal(t *testing.T) {
	svc, fetcher, cache := newRateFixture(t, nil)

	fetcher.EXPECT().Fetch(gomock.Any()).Return(liveTable(map[string]string{"USD_IRR": "1100000"}), nil)
	cache.EXPECT().Set(gomock.Any(), gomock.Any()).Return(assert.AnError)

	table, err := svc.Table(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.RateOriginLive, table.Origin)
}
