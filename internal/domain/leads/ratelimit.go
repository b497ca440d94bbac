package leads

import (
	"sync"
	"time"
)

// RateLimiter counts submissions per identifier within a window. It lives in
// process memory only. An expired window is reset by the next check rather
// than by a timer.
type RateLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	now     func() time.Time
	entries map[string]*rateEntry
}

type rateEntry struct {
	count       int
	windowStart time.Time
}

// NewRateLimiter allows limit submissions per window per identifier.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:   limit,
		window:  window,
		now:     time.Now,
		entries: make(map[string]*rateEntry),
	}
}

// WithClock swaps the time source. Used by tests.
func (r *RateLimiter) WithClock(now func() time.Time) *RateLimiter {
	r.now = now
	return r
}

// Allow records a submission attempt and reports whether it is within the limit.
func (r *RateLimiter) Allow(identifier string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	entry, ok := r.entries[identifier]
	if !ok || now.Sub(entry.windowStart) > r.window {
		r.entries[identifier] = &rateEntry{count: 1, windowStart: now}
		return true
	}

	if entry.count >= r.limit {
		return false
	}
	entry.count++
	return true
}

// Prune drops identifiers whose window has expired.
func (r *RateLimiter) Prune() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	removed := 0
	for id, entry := range r.entries {
		if now.Sub(entry.windowStart) > r.window {
			delete(r.entries, id)
			removed++
		}
	}
	return removed
}
