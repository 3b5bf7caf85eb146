package token

import (
	"context"
	"fmt"
	"sync"
	"time"

	"workclock/pkg/platform/sentinel"
)

// InMemoryStore keeps issued tokens in memory for tests and single-instance
// deployments. Expired entries are pruned opportunistically on Save.
type InMemoryStore struct {
	mu     sync.RWMutex
	tokens map[string]ClockToken
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{tokens: make(map[string]ClockToken)}
}

func (s *InMemoryStore) Save(_ context.Context, token ClockToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for value, t := range s.tokens {
		if t.Expired(now) {
			delete(s.tokens, value)
		}
	}
	s.tokens[token.Token] = token
	return nil
}

func (s *InMemoryStore) Find(_ context.Context, value string) (ClockToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if token, ok := s.tokens[value]; ok {
		return token, nil
	}
	return ClockToken{}, fmt.Errorf("clock token not found: %w", sentinel.ErrNotFound)
}
