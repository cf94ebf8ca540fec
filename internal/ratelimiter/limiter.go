package ratelimiter

import (
	"context"

	"golang.org/x/time/rate"
)

// Outbound is a token bucket limiter applied to every call leaving for
// the external authority system. NPWD rate-limits aggressively with 429;
// pacing requests client-side keeps the retry policy out of the steady
// state. Burst equals the rate so no capacity is saved up beyond the
// configured per-second maximum.
type Outbound struct {
	limiter *rate.Limiter
}

// New creates an Outbound limiter allowing ratePerSec requests per second.
func New(ratePerSec int) *Outbound {
	return &Outbound{limiter: rate.NewLimiter(rate.Limit(ratePerSec), ratePerSec)}
}

// Wait blocks until the limiter grants a token. Called immediately before
// each NPWD request. Returns a non-nil error only if ctx is cancelled
// while waiting.
func (o *Outbound) Wait(ctx context.Context) error {
	return o.limiter.Wait(ctx)
}
