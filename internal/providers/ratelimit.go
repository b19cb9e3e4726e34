package providers

import (
	"context"
	"sync"
	"time"
)

// DefaultRequestsPerMinute applies when a client reports no limit of its own.
const DefaultRequestsPerMinute = 50

// RateLimiter paces provider calls with a token bucket that refills at a
// fixed requests-per-minute rate. A 429 from the provider drains the bucket
// so every worker pauses until a full token accrues.
type RateLimiter struct {
	mu     sync.Mutex
	rpm    int
	tokens float64
	last   time.Time
	waited time.Duration
}

// NewRateLimiter creates a full bucket refilling at rpm requests per minute.
func NewRateLimiter(rpm int) *RateLimiter {
	if rpm <= 0 {
		rpm = DefaultRequestsPerMinute
	}
	return &RateLimiter{rpm: rpm, tokens: float64(rpm), last: time.Now()}
}

// Wait blocks until a token is available or ctx is cancelled.
func (r *RateLimiter) Wait(ctx context.Context) error {
	for {
		r.mu.Lock()
		r.refill()
		if r.tokens >= 1 {
			r.tokens--
			r.mu.Unlock()
			return nil
		}
		need := 1 - r.tokens
		wait := time.Duration(need / r.perSecond() * float64(time.Second))
		r.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			r.mu.Lock()
			r.waited += wait
			r.mu.Unlock()
		}
	}
}

// TryConsume takes a token without blocking and reports whether one was
// available.
func (r *RateLimiter) TryConsume() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refill()
	if r.tokens >= 1 {
		r.tokens--
		return true
	}
	return false
}

// Record429 drains the bucket after provider pushback so the next call waits
// for a full refill interval.
func (r *RateLimiter) Record429() {
	r.mu.Lock()
	r.tokens = 0
	r.mu.Unlock()
}

// Waited reports the cumulative time callers spent blocked in Wait.
func (r *RateLimiter) Waited() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.waited
}

// refill accrues tokens for the time since the last update. Lock held.
func (r *RateLimiter) refill() {
	now := time.Now()
	r.tokens += now.Sub(r.last).Seconds() * r.perSecond()
	r.last = now
	if r.tokens > float64(r.rpm) {
		r.tokens = float64(r.rpm)
	}
}

func (r *RateLimiter) perSecond() float64 {
	return float64(r.rpm) / 60
}
