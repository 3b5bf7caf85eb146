// Package ratelimit throttles clock submissions with a sliding window per
// employee so rapid repeated attempts are shed before the expensive checks.
package ratelimit

import (
	"context"
	"time"
)

// Result describes the outcome of one limiter check.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
	Limit     int
}

// Limiter counts an attempt against the key and reports whether it fits the
// window. Every call counts, including ones that later fail validation.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*Result, error)
}

// Key builds the limiter key for an employee, optionally scoped to a
// location.
func Key(employeeID, locationID string) string {
	if locationID == "" {
		return "rcp:attempts:" + employeeID
	}
	return "rcp:attempts:" + employeeID + ":" + locationID
}
