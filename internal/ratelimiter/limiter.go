package ratelimiter

import (
	"context"

	"golang.org/x/time/rate"
)

// SendLimiter is a single token bucket capping the rate of provider calls.
// The dispatch loop is already strictly sequential; the limiter additionally
// spaces calls out so a large eligible batch cannot burst the provider's
// per-second limits. Burst is set equal to the rate so no extra burst
// capacity accumulates beyond the configured per-second maximum.
type SendLimiter struct {
	limiter *rate.Limiter
}

// New creates a SendLimiter allowing ratePerSec provider calls per second.
func New(ratePerSec int) *SendLimiter {
	return &SendLimiter{limiter: rate.NewLimiter(rate.Limit(ratePerSec), ratePerSec)}
}

// Wait blocks until the limiter grants a token.
// Returns a non-nil error only if ctx is cancelled while waiting.
func (l *SendLimiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}
