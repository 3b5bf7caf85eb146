package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"workclock/pkg/platform/sentinel"
)

// RedisLimiter implements Limiter with a Redis sorted set per key, scored by
// attempt time. Safe across instances; the add-then-count pipeline keeps
// increments atomic so concurrent attempts never undercount.
type RedisLimiter struct {
	client *redis.Client
	now    func() time.Time
}

func NewRedisLimiter(client *redis.Client) *RedisLimiter {
	return &RedisLimiter{client: client, now: time.Now}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (*Result, error) {
	now := l.now()
	cutoff := now.Add(-window)

	// Member must be unique per attempt; a bare timestamp would collapse
	// same-millisecond attempts into one entry.
	member := fmt.Sprintf("%d-%s", now.UnixNano(), uuid.NewString())

	pipe := l.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("%d", cutoff.UnixNano()))
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now.UnixNano()), Member: member})
	countCmd := pipe.ZCard(ctx, key)
	pipe.Expire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("rate limit check: %w", sentinel.ErrUnavailable)
	}

	count := int(countCmd.Val())
	if count > limit {
		// The rejected attempt was already added and counts toward the window.
		return &Result{Allowed: false, Remaining: 0, ResetAt: now.Add(window), Limit: limit}, nil
	}

	return &Result{
		Allowed:   true,
		Remaining: limit - count,
		ResetAt:   now.Add(window),
		Limit:     limit,
	}, nil
}
