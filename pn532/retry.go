package pn532

import (
	"context"
	"time"
)

// RetryConfig configures TransportWithRetry's backoff behavior when a
// command's ACK is missing or a frame comes back corrupted.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int
	// InitialBackoff is the delay before the second attempt; it doubles on
	// each subsequent attempt.
	InitialBackoff time.Duration
	// MaxBackoff caps the doubling.
	MaxBackoff time.Duration
}

// DefaultRetryConfig matches spec's MAX_RETRIES default of 3 attempts with
// a 50ms initial backoff, the same order of magnitude as the controller's
// own pre-command hygiene delay.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: 50 * time.Millisecond,
		MaxBackoff:     1 * time.Second,
	}
}

// RetryWithConfig runs fn until it succeeds, fn's error is not retryable, or
// config.MaxAttempts is exhausted. It backs off exponentially between
// attempts and honors ctx cancellation.
func RetryWithConfig(ctx context.Context, config *RetryConfig, fn func() error) error {
	if config == nil {
		config = DefaultRetryConfig()
	}
	backoff := config.InitialBackoff

	var lastErr error
	for attempt := 0; attempt < config.MaxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !IsRetryable(lastErr) {
			return lastErr
		}
		if attempt == config.MaxAttempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > config.MaxBackoff {
			backoff = config.MaxBackoff
		}
	}
	return lastErr
}
