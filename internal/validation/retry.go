package validation

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"
)

// RetryPolicy configures how judge calls are retried.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts including the first.
	MaxAttempts int
	// InitialBackoff is the delay before the first retry.
	InitialBackoff time.Duration
	// MaxBackoff caps every delay.
	MaxBackoff time.Duration
	// Multiplier grows the delay after each retry.
	Multiplier float64
	// Jitter spreads each delay by up to this fraction in either direction.
	Jitter float64

	sleep func(ctx context.Context, d time.Duration) error
}

// DefaultRetryPolicy makes three attempts, backing off from 3s to at most 10s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    3,
		InitialBackoff: 3 * time.Second,
		MaxBackoff:     10 * time.Second,
		Multiplier:     2.0,
		Jitter:         0.1,
	}
}

// Do calls fn until it succeeds, the attempts run out, or ctx ends. It
// returns the number of attempts made. When attempts run out the error is
// an *ExhaustedError wrapping the last failure. Cancellation is returned
// as ctx.Err() without further attempts.
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) error) (int, error) {
	maxAttempts := p.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	sleep := p.sleep
	if sleep == nil {
		sleep = sleepContext
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			return attempt, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return attempt, ctx.Err()
		}
		if errors.Is(err, context.Canceled) {
			return attempt, err
		}
		if attempt == maxAttempts {
			break
		}
		if err := sleep(ctx, p.Backoff(attempt)); err != nil {
			return attempt, err
		}
	}
	return maxAttempts, &ExhaustedError{Attempts: maxAttempts, LastError: lastErr}
}

// Backoff returns the delay after the given 1-based attempt.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	mult := p.Multiplier
	if mult <= 0 {
		mult = 1
	}
	backoff := float64(p.InitialBackoff) * math.Pow(mult, float64(attempt-1))
	if p.MaxBackoff > 0 && backoff > float64(p.MaxBackoff) {
		backoff = float64(p.MaxBackoff)
	}
	if p.Jitter > 0 {
		backoff += backoff * p.Jitter * (rand.Float64()*2 - 1) //nolint:gosec // jitter doesn't need crypto rand
	}
	if p.MaxBackoff > 0 && backoff > float64(p.MaxBackoff) {
		backoff = float64(p.MaxBackoff)
	}
	return time.Duration(backoff)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
