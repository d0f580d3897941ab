package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimitRepository keeps fixed-window request counters in Redis.
type RateLimitRepository struct {
	client *redis.Client
	prefix string
}

// NewRateLimitRepository constructs the repository. Keys are stored under prefix.
func NewRateLimitRepository(client *redis.Client, prefix string) *RateLimitRepository {
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &RateLimitRepository{client: client, prefix: prefix}
}

// Hit increments the counter of key for the current window and returns the new count and
// the time until the window resets. Without a client every hit counts as the first.
func (r *RateLimitRepository) Hit(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if r.client == nil {
		return 1, window, nil
	}

	fullKey := fmt.Sprintf("%s:%s", r.prefix, key)
	var (
		incr *redis.IntCmd
		ttl  *redis.DurationCmd
	)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, fullKey)
		pipe.ExpireNX(ctx, fullKey, window)
		ttl = pipe.TTL(ctx, fullKey)
		return nil
	})
	if err != nil {
		return 0, 0, fmt.Errorf("rate limit hit %s: %w", fullKey, err)
	}

	remaining := ttl.Val()
	if remaining < 0 {
		remaining = window
	}
	return incr.Val(), remaining, nil
}
