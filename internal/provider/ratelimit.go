package provider

import (
	"context"
	"sync"
	"time"
)

// RateLimiter implements a sliding window rate limiter shared by the HTTP
// adapters of one provider.
type RateLimiter struct {
	mu          sync.Mutex
	requests    []time.Time
	maxRequests int
	window      time.Duration
}

// NewRateLimiter allows maxRequests per window.
func NewRateLimiter(maxRequests int, window time.Duration) *RateLimiter {
	if maxRequests < 1 {
		maxRequests = 1
	}
	return &RateLimiter{
		maxRequests: maxRequests,
		window:      window,
		requests:    make([]time.Time, 0, maxRequests),
	}
}

// Wait blocks until a request can be made within rate limits or ctx ends.
func (r *RateLimiter) Wait(ctx context.Context) error {
	for {
		r.mu.Lock()
		now := time.Now()
		r.prune(now)

		if len(r.requests) < r.maxRequests {
			r.requests = append(r.requests, now)
			r.mu.Unlock()
			return nil
		}

		// Wait for the oldest request to leave the window
		waitTime := r.window - now.Sub(r.requests[0]) + 10*time.Millisecond
		r.mu.Unlock()

		timer := time.NewTimer(waitTime)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (r *RateLimiter) prune(now time.Time) {
	cutoff := now.Add(-r.window)
	valid := r.requests[:0]
	for _, req := range r.requests {
		if req.After(cutoff) {
			valid = append(valid, req)
		}
	}
	r.requests = valid
}
