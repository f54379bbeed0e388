package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/niksmo/product-explorer/pkg/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTemporary = errors.New("temporary")

func TestDoWithResult(t *testing.T) {
	cfg := retry.RetryConfig{
		MaxAttempts: 3,
		Backoff:     retry.ConstantBackoff(time.Millisecond),
	}

	t.Run("FirstAttempt", func(t *testing.T) {
		var calls int
		v, err := retry.DoWithResult(t.Context(), cfg, func() (int, error) {
			calls++
			return 7, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 7, v)
		assert.Equal(t, 1, calls)
	})

	t.Run("SucceedsAfterRetries", func(t *testing.T) {
		var calls int
		v, err := retry.DoWithResult(t.Context(), cfg, func() (string, error) {
			calls++
			if calls < 3 {
				return "", errTemporary
			}
			return "ok", nil
		})
		require.NoError(t, err)
		assert.Equal(t, "ok", v)
		assert.Equal(t, 3, calls)
	})

	t.Run("AttemptsExhausted", func(t *testing.T) {
		var calls int
		v, err := retry.DoWithResult(t.Context(), cfg, func() (int, error) {
			calls++
			return calls, errTemporary
		})
		assert.ErrorIs(t, err, errTemporary)
		assert.Zero(t, v)
		assert.Equal(t, 3, calls)
	})

	t.Run("NotRetryable", func(t *testing.T) {
		errPermanent := errors.New("permanent")
		cfg := cfg
		cfg.ShouldRetry = func(err error) bool {
			return !errors.Is(err, errPermanent)
		}

		var calls int
		_, err := retry.DoWithResult(t.Context(), cfg, func() (int, error) {
			calls++
			return 0, errPermanent
		})
		assert.ErrorIs(t, err, errPermanent)
		assert.Equal(t, 1, calls)
	})

	t.Run("CanceledBeforeStart", func(t *testing.T) {
		ctx, cancel := context.WithCancel(t.Context())
		cancel()

		var calls int
		err := retry.Do(ctx, cfg, func() error {
			calls++
			return nil
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Zero(t, calls)
	})

	t.Run("CanceledWhileWaiting", func(t *testing.T) {
		ctx, cancel := context.WithCancel(t.Context())
		cfg := retry.RetryConfig{
			MaxAttempts: 5,
			Backoff:     retry.ConstantBackoff(time.Hour),
		}

		err := retry.Do(ctx, cfg, func() error {
			cancel()
			return errTemporary
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.ErrorIs(t, err, errTemporary)
	})
}

func TestBackoff(t *testing.T) {
	constant := retry.ConstantBackoff(time.Second)
	assert.Equal(t, time.Second, constant(1))
	assert.Equal(t, time.Second, constant(10))

	exp := retry.ExponentialBackoff(10 * time.Millisecond)
	for attempt := 1; attempt <= 4; attempt++ {
		base := (1 << attempt) * 10 * time.Millisecond
		d := exp(attempt)
		assert.GreaterOrEqual(t, d, base)
		assert.LessOrEqual(t, d, base+base/2)
	}
}
