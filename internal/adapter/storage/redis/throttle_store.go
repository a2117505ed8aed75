package redis

import (
	"context"
	"fmt"
	"time"

	"payme-wallet/internal/core/ports"

	goredis "github.com/redis/go-redis/v9"
)

// ThrottleStore implements ports.ThrottleStore with Redis-backed
// fixed-window counters.
type ThrottleStore struct {
	client *goredis.Client
	prefix string
}

// NewThrottleStore creates a Redis-backed throttle store.
func NewThrottleStore(client *goredis.Client) *ThrottleStore {
	return &ThrottleStore{
		client: client,
		prefix: "throttle:",
	}
}

// Allow checks if a request is within the limit. It uses a fixed-window
// counter: INCR + EXPIRE on a key scoped by the window index, so counts
// reset at window boundaries.
func (s *ThrottleStore) Allow(ctx context.Context, key string, limit int64, window time.Duration) (*ports.ThrottleResult, error) {
	now := time.Now()
	windowID := now.Unix() / int64(window.Seconds())
	redisKey := fmt.Sprintf("%s%s:%d", s.prefix, key, windowID)

	count, err := s.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return nil, fmt.Errorf("redis throttle incr: %w", err)
	}

	// Set expiry only on first increment (new window)
	if count == 1 {
		s.client.Expire(ctx, redisKey, window+time.Second)
	}

	resetAt := (windowID + 1) * int64(window.Seconds())
	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}

	return &ports.ThrottleResult{
		Allowed:   count <= limit,
		Limit:     limit,
		Remaining: remaining,
		ResetAt:   resetAt,
	}, nil
}
