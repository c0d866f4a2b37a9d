package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAllowUnderLimit(t *testing.T) {
	rl := NewRequestLimiter(time.Minute, 3)

	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow(1), "request %d should be allowed", i+1)
	}
	assert.False(t, rl.Allow(1), "request over the limit should be denied")
}

func TestUsersAreIsolated(t *testing.T) {
	rl := NewRequestLimiter(time.Minute, 1)

	assert.True(t, rl.Allow(1))
	assert.False(t, rl.Allow(1))
	assert.True(t, rl.Allow(2), "user 2 has their own budget")
}

func TestWindowExpiry(t *testing.T) {
	rl := NewRequestLimiter(20*time.Millisecond, 1)

	assert.True(t, rl.Allow(1))
	assert.False(t, rl.Allow(1))

	time.Sleep(30 * time.Millisecond)
	assert.True(t, rl.Allow(1), "the window has slid past the first request")
}

func TestRetryAfter(t *testing.T) {
	rl := NewRequestLimiter(time.Minute, 1)

	assert.Zero(t, rl.RetryAfter(1), "no events means no wait")

	rl.Allow(1)
	retry := rl.RetryAfter(1)
	assert.Greater(t, retry, time.Duration(0))
	assert.LessOrEqual(t, retry, time.Minute)
}

func TestReset(t *testing.T) {
	rl := NewRequestLimiter(time.Minute, 1)

	rl.Allow(1)
	assert.False(t, rl.Allow(1))

	rl.Reset(1)
	assert.True(t, rl.Allow(1))
}

func TestCleanupRemovesExpired(t *testing.T) {
	rl := NewRequestLimiter(10*time.Millisecond, 5)

	rl.Allow(1)
	rl.Allow(2)
	time.Sleep(20 * time.Millisecond)

	rl.Cleanup()

	rl.mu.RLock()
	defer rl.mu.RUnlock()
	assert.Empty(t, rl.events)
}

func TestStartStopCleanup(t *testing.T) {
	rl := NewRequestLimiter(time.Minute, 5)
	rl.StartCleanup()
	rl.StopCleanup()
	// Stopping twice must not panic.
	rl.StopCleanup()
}
