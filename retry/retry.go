// Package retry implements the shared retry/backoff engine that sits under
// every HTTP call a provider adapter makes: Retry-After honoring, jittered
// exponential backoff, transient-network classification, and stream
// interruption handling. Grounded on the teacher's llm.Retrier, generalized
// from a fixed-factor loop into the full state machine spec.md §4.A demands.
package retry

import (
	"context"
	"math/rand/v2"
	"time"
)

// Do runs op, retrying when cfg.ShouldRetry(err) is true and the attempt
// count is below cfg.MaxAttempts. It returns the first successful result,
// or the final error once attempts are exhausted. Do is generic so callers
// can retry any op without boxing the result in interface{}.
func Do[T any](ctx context.Context, op func(ctx context.Context, attempt int) (T, error), cfg Config) (T, error) {
	cfg = cfg.withDefaults()

	var zero T
	delay := cfg.InitialDelay
	lastWasExplicit := false

	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := op(ctx, attempt)
		if err == nil {
			return result, nil
		}
		if attempt+1 >= cfg.MaxAttempts || !cfg.ShouldRetry(err) {
			return zero, err
		}

		if lastWasExplicit {
			// An explicit Retry-After wait resets backoff progression: the
			// next non-explicit wait starts again from InitialDelay.
			delay = cfg.InitialDelay
			lastWasExplicit = false
		}

		wait, explicit := nextDelay(err, delay, cfg)

		if cfg.Tracker != nil {
			cfg.Tracker.AddThrottleWait(wait)
		}

		if err := sleep(ctx, wait); err != nil {
			return zero, err
		}

		if explicit {
			lastWasExplicit = true
		} else {
			next := time.Duration(float64(delay) * 2)
			if next > cfg.MaxDelay {
				next = cfg.MaxDelay
			}
			delay = next
		}
	}
}

// nextDelay selects the wait duration for the upcoming sleep: an honored
// Retry-After value when the error exposes one, else jittered exponential
// backoff. The second return value reports whether the wait was explicit
// (Retry-After), in which case the caller must not apply backoff doubling
// for this attempt.
func nextDelay(err error, currentDelay time.Duration, cfg Config) (time.Duration, bool) {
	if ra, ok := err.(RetryAfterProvider); ok {
		if d, ok := ra.RetryAfter(); ok {
			if d < 0 {
				d = 0
			}
			return d, true
		}
	}
	return applyJitter(currentDelay, cfg.JitterFraction), false
}

func applyJitter(delay time.Duration, fraction float64) time.Duration {
	if fraction <= 0 {
		return delay
	}
	// U(-1, 1) * fraction
	jitter := (rand.Float64()*2 - 1) * fraction
	d := time.Duration(float64(delay) * (1 + jitter))
	if d < 0 {
		d = 0
	}
	return d
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
