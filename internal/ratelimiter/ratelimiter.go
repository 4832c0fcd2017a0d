package ratelimiter

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter throttles service calls on an endpoint using a token bucket.
//
// A batched call (for example a Read of 200 nodes) can consume one token per
// operation through AllowN, so a client cannot bypass the limit by packing
// operations into a single request.
//
// All methods are safe for concurrent use.
type RateLimiter struct {
	limiter *rate.Limiter
}

// New creates a limiter allowing requestsPerSecond sustained operations with
// the given burst capacity. A zero rate disables limiting.
func New(requestsPerSecond, burst uint) *RateLimiter {
	if requestsPerSecond == 0 {
		return &RateLimiter{limiter: rate.NewLimiter(rate.Inf, 0)}
	}
	if burst == 0 {
		burst = requestsPerSecond
	}

	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), int(burst)),
	}
}

// Unlimited reports whether this limiter lets everything through.
func (r *RateLimiter) Unlimited() bool {
	return r.limiter.Limit() == rate.Inf
}

// Allow consumes one token without waiting.
func (r *RateLimiter) Allow() bool {
	return r.limiter.Allow()
}

// AllowN consumes n tokens at once, or none if fewer are available.
func (r *RateLimiter) AllowN(n int) bool {
	return r.limiter.AllowN(time.Now(), n)
}

// Wait blocks until a token is available or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}

// Retry returns how long a rejected caller should back off before one
// token becomes available. Used to fill the Retry-After header.
func (r *RateLimiter) Retry() time.Duration {
	if r.Unlimited() {
		return 0
	}
	reservation := r.limiter.Reserve()
	delay := reservation.Delay()
	reservation.Cancel()
	return delay
}
