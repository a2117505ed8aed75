package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"payme-wallet/internal/core/domain"

	goredis "github.com/redis/go-redis/v9"
)

const rateCacheKey = "rates:table"

// RateCache implements ports.RateCache using Redis. It holds the last
// successfully fetched rate table so quotes survive source outages.
type RateCache struct {
	client *goredis.Client
	ttl    time.Duration
}

// NewRateCache creates a Redis-backed rate table cache.
func NewRateCache(client *goredis.Client, ttl time.Duration) *RateCache {
	return &RateCache{client: client, ttl: ttl}
}

// Get retrieves the cached rate table. Returns nil, nil when the cache
// is cold or the entry expired.
func (c *RateCache) Get(ctx context.Context) (*domain.RateTable, error) {
	val, err := c.client.Get(ctx, rateCacheKey).Bytes()
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis rate cache get: %w", err)
	}

	var table domain.RateTable
	if err := json.Unmarshal(val, &table); err != nil {
		return nil, fmt.Errorf("redis rate cache decode: %w", err)
	}
	return &table, nil
}

// Set stores the rate table with the configured TTL.
func (c *RateCache) Set(ctx context.Context, table *domain.RateTable) error {
	val, err := json.Marshal(table)
	if err != nil {
		return fmt.Errorf("redis rate cache encode: %w", err)
	}
	if err := c.client.Set(ctx, rateCacheKey, val, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis rate cache set: %w", err)
	}
	return nil
}
