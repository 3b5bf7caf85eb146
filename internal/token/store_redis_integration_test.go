//go:build integration

package token_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"workclock/internal/token"
	"workclock/pkg/platform/sentinel"
	"workclock/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *token.RedisStore
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.store = token.NewRedisStore(s.redis.Client)
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisStoreSuite) TestSaveAndFind() {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)
	saved := token.ClockToken{
		Token:      "integration-token-1",
		LocationID: "loc-1",
		IssuedAt:   now,
		ExpiresAt:  now.Add(10 * time.Minute),
	}

	s.Require().NoError(s.store.Save(ctx, saved))

	found, err := s.store.Find(ctx, saved.Token)
	s.Require().NoError(err)
	s.Equal(saved.LocationID, found.LocationID)
	s.True(saved.IssuedAt.Equal(found.IssuedAt))
	s.True(saved.ExpiresAt.Equal(found.ExpiresAt))
}

func (s *RedisStoreSuite) TestFindUnknownToken() {
	_, err := s.store.Find(context.Background(), "never-issued")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RedisStoreSuite) TestExpiredTokenStillReadableWithinGrace() {
	ctx := context.Background()
	now := time.Now()
	saved := token.ClockToken{
		Token:      "integration-token-expired",
		LocationID: "loc-1",
		IssuedAt:   now.Add(-11 * time.Minute),
		ExpiresAt:  now.Add(-time.Second),
	}
	s.Require().NoError(s.store.Save(ctx, saved))

	// The record survives past ExpiresAt so validation can report expiry
	// rather than unknown.
	found, err := s.store.Find(ctx, saved.Token)
	s.Require().NoError(err)
	s.True(found.Expired(now))
}

func (s *RedisStoreSuite) TestTokensAreIndependent() {
	ctx := context.Background()
	now := time.Now()
	for _, value := range []string{"tok-a", "tok-b"} {
		s.Require().NoError(s.store.Save(ctx, token.ClockToken{
			Token:      value,
			LocationID: "loc-" + value,
			IssuedAt:   now,
			ExpiresAt:  now.Add(10 * time.Minute),
		}))
	}

	found, err := s.store.Find(ctx, "tok-a")
	s.Require().NoError(err)
	s.Equal("loc-tok-a", found.LocationID)
}
