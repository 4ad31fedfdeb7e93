package nlp

import (
	"fmt"
	"sync"
	"time"
)

const (
	// DefaultRateLimit is the maximum number of messages allowed per user
	// per minute when no explicit limit is configured.
	DefaultRateLimit = 10

	// defaultRateLimitWindow is the sliding window duration.
	defaultRateLimitWindow = time.Minute
)

// RateLimiter enforces a per-user sliding-window message limit.
//
// Internally it holds the message timestamps for each user within the
// current window and prunes stale entries on every Allow call.  This keeps
// memory bounded to O(limit) entries per active user.
//
// Rejected attempts are never recorded, so a user who keeps typing while
// throttled does not push their own window further into the future.
//
// RateLimiter is safe for concurrent use from multiple goroutines.
type RateLimiter struct {
	mu       sync.Mutex
	limit    int
	window   time.Duration
	counters map[int64][]time.Time // userID → message timestamps in window
}

// NewRateLimiter returns a RateLimiter that allows at most limit messages
// per user within window.
//
// If limit ≤ 0 it defaults to DefaultRateLimit.
// If window ≤ 0 it defaults to one minute.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	if limit <= 0 {
		limit = DefaultRateLimit
	}
	if window <= 0 {
		window = defaultRateLimitWindow
	}
	return &RateLimiter{
		limit:    limit,
		window:   window,
		counters: make(map[int64][]time.Time),
	}
}

// Allow returns true when the user is permitted to send another message and
// records the current timestamp.  Returns false when the user has exhausted
// their quota for the current window.
//
// The expected caller pattern is:
//
//	if !limiter.Allow(userID) {
//	    send(throttleNotice)
//	    return
//	}
func (r *RateLimiter) Allow(userID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-r.window)

	// Prune timestamps that have fallen outside the window.
	existing := r.counters[userID]
	valid := existing[:0] // reuse backing array
	for _, t := range existing {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}

	if len(valid) >= r.limit {
		r.counters[userID] = valid
		return false
	}

	r.counters[userID] = append(valid, now)
	return true
}

// Notice returns the user-facing message for a rejected attempt, naming
// this limiter's window length.
func (r *RateLimiter) Notice() string {
	return fmt.Sprintf("⚠️ Rate limit exceeded. Please wait %d seconds before sending more messages.", int(r.window.Seconds()))
}

// Remaining returns the number of messages the user can still send within
// the current window.  A return value of 0 means the next Allow call will
// return false.
func (r *RateLimiter) Remaining(userID int64) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := time.Now().Add(-r.window)
	count := 0
	for _, t := range r.counters[userID] {
		if t.After(cutoff) {
			count++
		}
	}
	rem := r.limit - count
	if rem < 0 {
		return 0
	}
	return rem
}
