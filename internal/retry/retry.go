// Package retry runs operations with exponential backoff.
package retry

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/portfolio-dashboard/internal/logging"
)

// RetryConfig configures retry behavior
type RetryConfig struct {
	MaxAttempts  int           // Maximum number of attempts, including the first
	InitialDelay time.Duration // Delay before the second attempt
	MaxDelay     time.Duration // Cap on any single delay
	Multiplier   float64       // Growth factor between delays

	// ShouldRetry decides whether err is worth another attempt.
	// nil retries every error.
	ShouldRetry func(err error) bool
}

// DefaultRetryConfig returns a default retry configuration
// Pattern: 200ms, 400ms, 800ms, max 5s
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:  4,
		InitialDelay: 200 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
	}
}

// RetryResult contains information about the retry operation
type RetryResult struct {
	Attempts      int           `json:"attempts"`
	Success       bool          `json:"success"`
	TotalDuration time.Duration `json:"totalDuration"`
	LastError     error         `json:"lastError,omitempty"`
}

// Err returns nil on success, otherwise the last error annotated with the attempt count
func (r *RetryResult) Err() error {
	if r.Success {
		return nil
	}
	return fmt.Errorf("operation failed after %d attempts: %w", r.Attempts, r.LastError)
}

// RetryFunc is a function that can be retried
type RetryFunc func(ctx context.Context, attempt int) error

// WithExponentialBackoff executes fn until it succeeds, the attempts run out,
// ShouldRetry rejects the error or ctx is done.
func WithExponentialBackoff(ctx context.Context, config *RetryConfig, fn RetryFunc) *RetryResult {
	if config == nil {
		config = DefaultRetryConfig()
	}
	logger := logging.FromContext(ctx)
	startTime := time.Now()
	result := &RetryResult{}

	for attempt := 1; attempt <= max(config.MaxAttempts, 1); attempt++ {
		result.Attempts = attempt

		err := fn(ctx, attempt)
		if err == nil {
			result.Success = true
			result.LastError = nil
			result.TotalDuration = time.Since(startTime)
			if attempt > 1 {
				logger.WithFields(map[string]interface{}{
					"attempts":      attempt,
					"totalDuration": result.TotalDuration.String(),
				}).Info("Operation succeeded after retry")
			}
			return result
		}
		result.LastError = err

		if config.ShouldRetry != nil && !config.ShouldRetry(err) {
			break
		}
		if attempt >= config.MaxAttempts {
			logger.WithError(err).WithField("attempts", attempt).Warn("Operation failed after max retry attempts")
			break
		}

		delay := calculateDelay(config, attempt)
		logger.WithError(err).WithFields(map[string]interface{}{
			"attempt":     attempt,
			"maxAttempts": config.MaxAttempts,
			"delay":       delay.String(),
		}).Debug("Operation failed, retrying with exponential backoff")

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			result.LastError = ctx.Err()
			result.TotalDuration = time.Since(startTime)
			return result
		}
	}

	result.TotalDuration = time.Since(startTime)
	return result
}

// calculateDelay returns initialDelay * multiplier^(attempt-1), capped at MaxDelay
func calculateDelay(config *RetryConfig, attempt int) time.Duration {
	delay := float64(config.InitialDelay) * math.Pow(config.Multiplier, float64(attempt-1))
	if config.MaxDelay > 0 && delay > float64(config.MaxDelay) {
		delay = float64(config.MaxDelay)
	}
	return time.Duration(delay)
}

// Do is WithExponentialBackoff reduced to an error
func Do(ctx context.Context, config *RetryConfig, fn RetryFunc) error {
	return WithExponentialBackoff(ctx, config, fn).Err()
}
