package token

import "time"

// ClockToken is a short-lived, location-bound credential. One token is shared
// by every employee scanning the same QR code; it stays valid until ExpiresAt
// and is never consumed by use.
type ClockToken struct {
	Token      string
	LocationID string
	IssuedAt   time.Time
	ExpiresAt  time.Time
}

// Expired reports whether the token is past its TTL at the given instant.
// Validity is inclusive of ExpiresAt itself.
func (t ClockToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
