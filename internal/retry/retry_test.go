package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2,
	}
}

func TestWithExponentialBackoff_SucceedsAfterRetry(t *testing.T) {
	calls := 0
	result := WithExponentialBackoff(context.Background(), fastConfig(), func(ctx context.Context, attempt int) error {
		calls++
		if attempt < 2 {
			return errors.New("transient")
		}
		return nil
	})

	assert.True(t, result.Success)
	assert.Equal(t, 2, result.Attempts)
	assert.Equal(t, 2, calls)
	assert.NoError(t, result.Err())
}

func TestWithExponentialBackoff_GivesUp(t *testing.T) {
	sentinel := errors.New("down")
	err := Do(context.Background(), fastConfig(), func(ctx context.Context, attempt int) error {
		return sentinel
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel)
	assert.Contains(t, err.Error(), "after 3 attempts")
}

func TestWithExponentialBackoff_ShouldRetryStopsEarly(t *testing.T) {
	cfg := fastConfig()
	cfg.ShouldRetry = func(err error) bool { return false }

	calls := 0
	result := WithExponentialBackoff(context.Background(), cfg, func(ctx context.Context, attempt int) error {
		calls++
		return errors.New("permanent")
	})

	assert.False(t, result.Success)
	assert.Equal(t, 1, calls)
}

func TestWithExponentialBackoff_ContextCancelledDuringBackoff(t *testing.T) {
	cfg := fastConfig()
	cfg.InitialDelay = time.Hour
	cfg.MaxDelay = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	result := WithExponentialBackoff(ctx, cfg, func(ctx context.Context, attempt int) error {
		cancel()
		return errors.New("transient")
	})

	assert.False(t, result.Success)
	assert.ErrorIs(t, result.LastError, context.Canceled)
}

func TestCalculateDelay(t *testing.T) {
	cfg := &RetryConfig{InitialDelay: 100 * time.Millisecond, MaxDelay: 350 * time.Millisecond, Multiplier: 2}

	assert.Equal(t, 100*time.Millisecond, calculateDelay(cfg, 1))
	assert.Equal(t, 200*time.Millisecond, calculateDelay(cfg, 2))
	assert.Equal(t, 350*time.Millisecond, calculateDelay(cfg, 3))
}
