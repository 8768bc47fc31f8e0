// Package resilience retries flaky external calls with capped exponential
// backoff and a per-attempt deadline.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/Adithya-Monish-Kumar-K/invindex/pkg/config"
)

const jitterFraction = 0.1

type permanentError struct{ err error }

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

// Retry calls fn until it succeeds, returns a Permanent error, ctx is done
// or cfg.MaxAttempts is reached. Each attempt gets its own deadline when
// cfg.AttemptTimeout is set.
func Retry(ctx context.Context, name string, cfg config.RetryConfig, fn func(ctx context.Context) error) error {
	attempts := max(cfg.MaxAttempts, 1)
	logger := slog.Default().With("component", "retry", "operation", name)

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = runAttempt(ctx, cfg.AttemptTimeout, fn)
		if lastErr == nil {
			if attempt > 1 {
				logger.Info("succeeded after retry", "attempt", attempt)
			}
			return nil
		}
		var perm permanentError
		if errors.As(lastErr, &perm) {
			return fmt.Errorf("%s: %w", name, perm.err)
		}
		if attempt == attempts {
			break
		}
		delay := Backoff(attempt, cfg)
		logger.Warn("attempt failed, retrying",
			"attempt", attempt,
			"max_attempts", attempts,
			"next_delay", delay,
			"error", lastErr,
		)
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%s: retry aborted: %w", name, ctx.Err())
		}
	}
	return fmt.Errorf("%s: all %d attempts failed: %w", name, attempts, lastErr)
}

func runAttempt(ctx context.Context, timeout time.Duration, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return Permanent(err)
	}
	if timeout <= 0 {
		return fn(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(attemptCtx)
}

// Backoff returns the delay after the given failed attempt: InitialDelay
// doubled per attempt, jittered by up to 10% and capped at MaxDelay.
func Backoff(attempt int, cfg config.RetryConfig) time.Duration {
	base := cfg.InitialDelay
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	d := float64(base) * float64(uint64(1)<<min(attempt-1, 30))
	d += d * jitterFraction * (2*rand.Float64() - 1)
	if cfg.MaxDelay > 0 && d > float64(cfg.MaxDelay) {
		d = float64(cfg.MaxDelay)
	}
	return time.Duration(d)
}
