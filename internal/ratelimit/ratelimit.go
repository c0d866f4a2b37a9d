// Package ratelimit provides rate limiting for the HTTP message API.
// It implements a sliding window algorithm keyed by user id.
package ratelimit

import (
	"sync"
	"time"
)

// RequestLimiter limits the rate of requests per user using a sliding window.
type RequestLimiter struct {
	events map[int64][]time.Time
	window time.Duration
	limit  int
	mu     sync.RWMutex

	cleanupInterval time.Duration
	stopCleanup     chan struct{}
	stopOnce        sync.Once
	cleanupWg       sync.WaitGroup
}

// NewRequestLimiter creates a new request rate limiter.
// window: time window for rate limiting (e.g., 15 minutes)
// limit: maximum number of requests allowed in the window
func NewRequestLimiter(window time.Duration, limit int) *RequestLimiter {
	return &RequestLimiter{
		events:          make(map[int64][]time.Time),
		window:          window,
		limit:           limit,
		cleanupInterval: 5 * time.Minute,
		stopCleanup:     make(chan struct{}),
	}
}

// Allow checks if a request is allowed for the user.
// Returns true if allowed, false if the rate limit is exceeded.
func (rl *RequestLimiter) Allow(userID int64) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-rl.window)

	var recent []time.Time
	for _, t := range rl.events[userID] {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}

	if len(recent) >= rl.limit {
		rl.events[userID] = recent
		return false
	}

	rl.events[userID] = append(recent, now)
	return true
}

// RetryAfter returns the duration until the next request is allowed.
// Returns zero if a request would be allowed now.
func (rl *RequestLimiter) RetryAfter(userID int64) time.Duration {
	rl.mu.RLock()
	defer rl.mu.RUnlock()

	now := time.Now()
	cutoff := now.Add(-rl.window)

	var oldest time.Time
	recent := 0
	for _, t := range rl.events[userID] {
		if t.After(cutoff) {
			recent++
			if oldest.IsZero() || t.Before(oldest) {
				oldest = t
			}
		}
	}

	if recent < rl.limit || oldest.IsZero() {
		return 0
	}

	retryAfter := oldest.Add(rl.window).Sub(now)
	if retryAfter < 0 {
		return 0
	}
	return retryAfter
}

// Reset clears the rate limit history for a user.
func (rl *RequestLimiter) Reset(userID int64) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.events, userID)
}

// Cleanup removes expired events to prevent memory leaks.
func (rl *RequestLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-rl.window)
	for userID, events := range rl.events {
		var recent []time.Time
		for _, t := range events {
			if t.After(cutoff) {
				recent = append(recent, t)
			}
		}

		if len(recent) == 0 {
			delete(rl.events, userID)
		} else {
			rl.events[userID] = recent
		}
	}
}

// StartCleanup starts a background goroutine that periodically removes
// expired events.
func (rl *RequestLimiter) StartCleanup() {
	rl.cleanupWg.Add(1)
	go func() {
		defer rl.cleanupWg.Done()
		ticker := time.NewTicker(rl.cleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				rl.Cleanup()
			case <-rl.stopCleanup:
				return
			}
		}
	}()
}

// StopCleanup stops the cleanup goroutine and waits for it to finish.
func (rl *RequestLimiter) StopCleanup() {
	rl.stopOnce.Do(func() {
		close(rl.stopCleanup)
	})
	rl.cleanupWg.Wait()
}
