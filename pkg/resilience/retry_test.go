package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/invindex/pkg/config"
)

func fastRetry(attempts int) config.RetryConfig {
	return config.RetryConfig{MaxAttempts: attempts, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), "write", fastRetry(3), func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryGivesUp(t *testing.T) {
	boom := errors.New("down")
	calls := 0
	err := Retry(context.Background(), "write", fastRetry(2), func(context.Context) error {
		calls++
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 2, calls)
}

func TestRetryStopsOnPermanentError(t *testing.T) {
	boom := errors.New("bad schema")
	calls := 0
	err := Retry(context.Background(), "write", fastRetry(5), func(context.Context) error {
		calls++
		return Permanent(boom)
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestRetryHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	err := Retry(ctx, "write", fastRetry(5), func(context.Context) error {
		calls++
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
}

func TestRetryAttemptTimeout(t *testing.T) {
	cfg := fastRetry(1)
	cfg.AttemptTimeout = 10 * time.Millisecond
	err := Retry(context.Background(), "write", cfg, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestBackoffIsCapped(t *testing.T) {
	cfg := config.RetryConfig{InitialDelay: 100 * time.Millisecond, MaxDelay: time.Second}
	first := Backoff(1, cfg)
	assert.InDelta(t, float64(100*time.Millisecond), float64(first), float64(10*time.Millisecond))
	assert.Equal(t, time.Second, Backoff(10, cfg))
}
