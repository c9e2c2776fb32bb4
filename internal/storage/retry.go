package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"math/rand"
	"time"
)

// RetryConfig holds configuration for retry behavior
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Jitter      bool
	Backoff     BackoffStrategy
}

// BackoffStrategy defines the backoff algorithm
type BackoffStrategy int

const (
	BackoffExponential BackoffStrategy = iota
	BackoffLinear
	BackoffFixed
)

// DefaultRemoveRetry is used when removing scoped directories. An engine
// killed on timeout may still be flushing lock files for a few milliseconds,
// which makes the first RemoveAll fail with "directory not empty".
var DefaultRemoveRetry = RetryConfig{
	MaxAttempts: 3,
	BaseDelay:   50 * time.Millisecond,
	MaxDelay:    time.Second,
	Jitter:      true,
	Backoff:     BackoffExponential,
}

// RetryableFunc is a function that can be retried
type RetryableFunc func(attempt int) error

// RetryableError is returned when every attempt failed
type RetryableError struct {
	Err      error
	Attempts int
}

func (e *RetryableError) Error() string {
	msg := fmt.Sprintf("retryable error after %d attempts", e.Attempts)
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether a filesystem error may clear up on its own.
// Missing paths and permission problems never do.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
		return false
	}
	return true
}

// Retry executes fn until it succeeds, fails permanently or runs out of attempts
func Retry(ctx context.Context, config RetryConfig, fn RetryableFunc) error {
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}

	var lastErr error

	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		err := fn(attempt)
		if err == nil {
			return nil
		}

		lastErr = err

		if !IsRetryable(err) {
			return err
		}

		if attempt >= config.MaxAttempts {
			break
		}

		delay := calculateDelay(config, attempt)
		if config.Jitter {
			delay = applyJitter(delay)
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return fmt.Errorf("retry cancelled: %w", ctx.Err())
		}
	}

	return &RetryableError{
		Err:      lastErr,
		Attempts: config.MaxAttempts,
	}
}

// calculateDelay computes the delay before the next attempt
func calculateDelay(config RetryConfig, attempt int) time.Duration {
	var delay time.Duration

	switch config.Backoff {
	case BackoffExponential:
		delay = config.BaseDelay * time.Duration(math.Pow(2, float64(attempt-1)))
	case BackoffLinear:
		delay = config.BaseDelay * time.Duration(attempt)
	default:
		delay = config.BaseDelay
	}

	if config.MaxDelay > 0 && delay > config.MaxDelay {
		delay = config.MaxDelay
	}

	return delay
}

// applyJitter spreads the delay by ±25%
func applyJitter(delay time.Duration) time.Duration {
	jitter := (rand.Float64() - 0.5) * 0.5
	return time.Duration(float64(delay) * (1 + jitter))
}
