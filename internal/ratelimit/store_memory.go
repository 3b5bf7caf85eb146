package ratelimit

import (
	"context"
	"sync"
	"time"
)

// InMemoryLimiter implements Limiter with an in-memory sliding window of
// attempt timestamps. Suited to tests and single-instance deployments; use
// RedisLimiter when state must be shared.
type InMemoryLimiter struct {
	mu      sync.Mutex
	windows map[string]*slidingWindow
	now     func() time.Time
}

type slidingWindow struct {
	timestamps []time.Time
	window     time.Duration
}

func NewInMemoryLimiter() *InMemoryLimiter {
	return &InMemoryLimiter{
		windows: make(map[string]*slidingWindow),
		now:     time.Now,
	}
}

func (l *InMemoryLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (*Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	sw := l.getOrCreateWindow(key, window)
	sw.cleanup(now)

	if len(sw.timestamps)+1 > limit {
		resetAt := now.Add(window)
		if len(sw.timestamps) > 0 {
			resetAt = sw.timestamps[0].Add(window)
		}
		return &Result{Allowed: false, Remaining: 0, ResetAt: resetAt, Limit: limit}, nil
	}

	sw.timestamps = append(sw.timestamps, now)
	return &Result{
		Allowed:   true,
		Remaining: limit - len(sw.timestamps),
		ResetAt:   sw.timestamps[0].Add(window),
		Limit:     limit,
	}, nil
}

// cleanup removes timestamps that have slid out of the window.
func (sw *slidingWindow) cleanup(now time.Time) {
	cutoff := now.Add(-sw.window)
	i := 0
	for ; i < len(sw.timestamps); i++ {
		if sw.timestamps[i].After(cutoff) {
			break
		}
	}
	sw.timestamps = sw.timestamps[i:]
}

// getOrCreateWindow must be called while holding l.mu.
func (l *InMemoryLimiter) getOrCreateWindow(key string, window time.Duration) *slidingWindow {
	if sw := l.windows[key]; sw != nil {
		return sw
	}
	sw := &slidingWindow{window: window}
	l.windows[key] = sw
	return sw
}
