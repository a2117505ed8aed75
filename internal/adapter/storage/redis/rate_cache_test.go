package redis_test

import (
	"context"
	"testing"
	"time"

	"payme-wallet/internal/adapter/storage/redis"
	"payme-wallet/internal/core/domain"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRateTable() *domain.RateTable {
	return &domain.RateTable{
		Rates: map[string]decimal.Decimal{
			"USD_IRR":  decimal.RequireFromString("1070000"),
			"USD_USDT": decimal.RequireFromString("0.999"),
		},
		Timestamp: time.Now().UTC().Truncate(time.Second),
		Origin:    domain.RateOriginLive,
	}
}

func TestRateCache_RoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer client.Close()

	cache := redis.NewRateCache(client, time.Hour)
	ctx := context.Background()

	err := cache.Set(ctx, testRateTable())
	require.NoError(t, err)

	got, err := cache.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Rates["USD_IRR"].Equal(decimal.RequireFromString("1070000")))
	assert.Equal(t, domain.RateOriginLive, got.Origin)
}

func TestRateCache_ColdCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer client.Close()

	cache := redis.NewRateCache(client, time.Hour)

	got, err := cache.Get(context.Background())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRateCache_TTLExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer client.Close()

	cache := redis.NewRateCache(client, time.Minute)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, testRateTable()))

	mr.FastForward(61 * time.Second)

	got, err := cache.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}
