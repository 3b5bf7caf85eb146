//go:build integration

package ratelimit_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"workclock/internal/ratelimit"
	"workclock/pkg/testutil/containers"
)

type RedisLimiterSuite struct {
	suite.Suite
	redis   *containers.RedisContainer
	limiter *ratelimit.RedisLimiter
}

func TestRedisLimiterSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisLimiterSuite))
}

func (s *RedisLimiterSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.limiter = ratelimit.NewRedisLimiter(s.redis.Client)
}

func (s *RedisLimiterSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisLimiterSuite) TestAllowUpToLimit() {
	ctx := context.Background()
	key := ratelimit.Key("emp-1", "loc-1")

	for i := 0; i < 5; i++ {
		res, err := s.limiter.Allow(ctx, key, 5, time.Minute)
		s.Require().NoError(err)
		s.True(res.Allowed, "attempt %d should be allowed", i+1)
		s.Equal(5-(i+1), res.Remaining)
	}

	res, err := s.limiter.Allow(ctx, key, 5, time.Minute)
	s.Require().NoError(err)
	s.False(res.Allowed)
	s.Zero(res.Remaining)
}

func (s *RedisLimiterSuite) TestKeysAreIndependent() {
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		res, err := s.limiter.Allow(ctx, ratelimit.Key("emp-1", "loc-1"), 5, time.Minute)
		s.Require().NoError(err)
		s.True(res.Allowed)
	}

	res, err := s.limiter.Allow(ctx, ratelimit.Key("emp-2", "loc-1"), 5, time.Minute)
	s.Require().NoError(err)
	s.True(res.Allowed)
}

// TestConcurrentAllow verifies that concurrent attempts never undercount:
// the pipeline adds before counting, so at most 'limit' succeed.
func (s *RedisLimiterSuite) TestConcurrentAllow() {
	ctx := context.Background()
	key := ratelimit.Key("emp-concurrent", "")
	limit := 10
	const goroutines = 50

	var wg sync.WaitGroup
	var allowedCount atomic.Int32

	for range goroutines {
		wg.Go(func() {
			res, err := s.limiter.Allow(ctx, key, limit, time.Minute)
			s.Require().NoError(err)
			if res.Allowed {
				allowedCount.Add(1)
			}
		})
	}

	wg.Wait()
	s.Equal(int32(limit), allowedCount.Load())
}
