package token

import "context"

// Store persists issued tokens until expiry. Implementations return
// sentinel.ErrNotFound for unknown tokens; expiry is enforced by the service,
// though TTL-native backends may expire records on their own.
type Store interface {
	Save(ctx context.Context, token ClockToken) error
	Find(ctx context.Context, value string) (ClockToken, error)
}
