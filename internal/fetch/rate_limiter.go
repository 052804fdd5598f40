package fetch

import (
	"sync"
	"time"
)

// RateLimiter spaces outgoing requests at a fixed interval. It is a
// courtesy limiter, not a token bucket: each caller gets the next free
// slot and sleeps until then.
type RateLimiter struct {
	mu       sync.Mutex
	nextSlot time.Time
	interval time.Duration
}

func NewRateLimiter(requestsPerSecond int) *RateLimiter {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 1
	}
	return &RateLimiter{interval: time.Second / time.Duration(requestsPerSecond)}
}

func (r *RateLimiter) WaitTurn() {
	r.mu.Lock()
	now := time.Now()
	slot := now
	if r.nextSlot.After(now) {
		slot = r.nextSlot
	}
	r.nextSlot = slot.Add(r.interval)
	r.mu.Unlock()

	if sleep := time.Until(slot); sleep > 0 {
		time.Sleep(sleep)
	}
}
