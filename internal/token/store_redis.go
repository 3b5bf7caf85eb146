package token

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"workclock/pkg/platform/sentinel"
)

var findDurationMs = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "workclock_token_find_duration_ms",
	Help:    "Latency of clock token lookups in milliseconds",
	Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25},
})

const tokenKeyPrefix = "rcp:token:"

// RedisStore is the production token store for distributed deployments.
// Records are written with a TTL slightly past ExpiresAt so Redis reclaims
// them on its own; the service still checks ExpiresAt on every validation.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

type redisToken struct {
	LocationID string    `json:"location_id"`
	IssuedAt   time.Time `json:"issued_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

func (s *RedisStore) Save(ctx context.Context, token ClockToken) error {
	payload, err := json.Marshal(redisToken{
		LocationID: token.LocationID,
		IssuedAt:   token.IssuedAt,
		ExpiresAt:  token.ExpiresAt,
	})
	if err != nil {
		return fmt.Errorf("marshal clock token: %w", err)
	}

	// Keep the record one minute past expiry so validation can distinguish
	// expired from unknown for stragglers.
	ttl := time.Until(token.ExpiresAt) + time.Minute
	if err := s.client.Set(ctx, tokenKeyPrefix+token.Token, payload, ttl).Err(); err != nil {
		return fmt.Errorf("save clock token: %w", sentinel.ErrUnavailable)
	}
	return nil
}

func (s *RedisStore) Find(ctx context.Context, value string) (ClockToken, error) {
	start := time.Now()
	defer func() {
		findDurationMs.Observe(float64(time.Since(start).Microseconds()) / 1000.0)
	}()

	raw, err := s.client.Get(ctx, tokenKeyPrefix+value).Bytes()
	if errors.Is(err, redis.Nil) {
		return ClockToken{}, fmt.Errorf("clock token not found: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return ClockToken{}, fmt.Errorf("find clock token: %w", sentinel.ErrUnavailable)
	}

	var rec redisToken
	if err := json.Unmarshal(raw, &rec); err != nil {
		return ClockToken{}, fmt.Errorf("unmarshal clock token: %w", err)
	}
	return ClockToken{
		Token:      value,
		LocationID: rec.LocationID,
		IssuedAt:   rec.IssuedAt,
		ExpiresAt:  rec.ExpiresAt,
	}, nil
}
