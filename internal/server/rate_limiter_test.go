package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiterAllowsBurstThenBlocks(t *testing.T) {
	l := newLimiter(RateLimitConfig{Burst: 3, RefillInterval: time.Second})
	now := time.Now()

	for i := 0; i < 3; i++ {
		assert.True(t, l.admit(now), "record %d within burst", i)
	}
	assert.False(t, l.admit(now), "burst exhausted")
}

func TestLimiterRefillsWithElapsedTime(t *testing.T) {
	l := newLimiter(RateLimitConfig{Burst: 2, RefillInterval: time.Second})
	now := time.Now()

	assert.True(t, l.admit(now))
	assert.True(t, l.admit(now))
	assert.False(t, l.admit(now))

	// Half the interval restores one of the two tokens.
	now = now.Add(500 * time.Millisecond)
	assert.True(t, l.admit(now))
	assert.False(t, l.admit(now))
}

func TestLimiterCapsAtBurst(t *testing.T) {
	l := newLimiter(RateLimitConfig{Burst: 2, RefillInterval: time.Second})
	now := time.Now().Add(time.Hour)

	assert.True(t, l.admit(now))
	assert.True(t, l.admit(now))
	assert.False(t, l.admit(now), "a long idle period accrues at most the burst")
}

func TestLimiterSanitizesDegenerateConfig(t *testing.T) {
	l := newLimiter(RateLimitConfig{Burst: 0, RefillInterval: -time.Second})
	now := time.Now()

	assert.True(t, l.admit(now))
	assert.False(t, l.admit(now))
	assert.True(t, l.admit(now.Add(time.Second)))
}
