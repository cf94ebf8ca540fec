package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/eprhub/prn-integration/internal/domain"
)

// Policy wraps a single outbound call to the external authority system
// with bounded retries. Only transient failures (network faults, HTTP 429
// and 5xx, anything classified domain.Transient by the client) are
// retried; other errors surface immediately. Exhausting the attempt
// budget surfaces the last failure: retries are never silently swallowed.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
	Exponential bool
}

// NewPolicy returns a Policy with defaults applied: 3 attempts, 30s
// fixed delay.
func NewPolicy(maxAttempts int, delay time.Duration, exponential bool) Policy {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if delay <= 0 {
		delay = 30 * time.Second
	}
	return Policy{MaxAttempts: maxAttempts, Delay: delay, Exponential: exponential}
}

// Do invokes op until it succeeds, returns a non-transient error, or the
// attempt budget is exhausted.
func (p Policy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	wrapped := func() (struct{}, error) {
		err := op(ctx)
		if err == nil {
			return struct{}{}, nil
		}
		if !domain.IsTransient(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	}

	var b backoff.BackOff
	if p.Exponential {
		eb := backoff.NewExponentialBackOff()
		eb.InitialInterval = p.Delay
		b = eb
	} else {
		b = backoff.NewConstantBackOff(p.Delay)
	}

	_, err := backoff.Retry(ctx, wrapped,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(p.MaxAttempts)),
	)
	return err
}
