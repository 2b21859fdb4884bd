// Package server implements a token bucket rate limiter applied to each
// connection's inbound records before dispatch.
package server

import (
	"sync"
	"time"
)

// limiter is a token bucket: every inbound record spends one token, and
// tokens refill continuously at burst-per-interval. Refill is computed
// lazily from the time elapsed since the previous admission check, so an
// idle connection carries no background work.
type limiter struct {
	mu       sync.Mutex
	tokens   float64
	capacity float64
	perToken time.Duration
	last     time.Time
}

func newLimiter(cfg RateLimitConfig) *limiter {
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	interval := cfg.RefillInterval
	if interval <= 0 {
		interval = time.Second
	}

	return &limiter{
		tokens:   float64(burst),
		capacity: float64(burst),
		perToken: interval / time.Duration(burst),
		last:     time.Now(),
	}
}

// admit spends one token if any has accrued by now. Taking the clock as an
// argument keeps the refill math testable without sleeping.
func (l *limiter) admit(now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if elapsed := now.Sub(l.last); elapsed > 0 {
		l.tokens += float64(elapsed) / float64(l.perToken)
		if l.tokens > l.capacity {
			l.tokens = l.capacity
		}
	}
	l.last = now

	if l.tokens < 1 {
		return false
	}
	l.tokens--
	return true
}
