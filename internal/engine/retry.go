package engine

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"
)

// DefaultTimeout is the default per-operation timeout.
const DefaultTimeout = 30 * time.Minute

// DefaultRetryMax is the default maximum number of retries for transient
// errors.
const DefaultRetryMax = 3

// RetryPolicy defines retry behavior for transient applier errors.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// DefaultRetryPolicy returns a sensible default retry policy.
func DefaultRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxRetries: DefaultRetryMax,
		BaseDelay:  1 * time.Second,
		MaxDelay:   30 * time.Second,
	}
}

// RetryWithBackoff executes fn with exponential backoff and jitter. It
// retries only if shouldRetry returns true for the error.
func RetryWithBackoff(ctx context.Context, policy *RetryPolicy, fn func() error, shouldRetry func(error) bool) error {
	if policy == nil {
		policy = DefaultRetryPolicy()
	}

	var lastErr error
	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		if !shouldRetry(lastErr) {
			return lastErr
		}

		if attempt < policy.MaxRetries {
			delay := calculateBackoff(attempt, policy.BaseDelay, policy.MaxDelay)
			select {
			case <-ctx.Done():
				return fmt.Errorf("retry cancelled: %w", ctx.Err())
			case <-time.After(delay):
			}
		}
	}

	return fmt.Errorf("max retries (%d) exceeded: %w", policy.MaxRetries, lastErr)
}

// calculateBackoff returns exponential backoff with jitter.
func calculateBackoff(attempt int, base, max time.Duration) time.Duration {
	backoff := float64(base) * math.Pow(2, float64(attempt))
	if backoff > float64(max) {
		backoff = float64(max)
	}
	return time.Duration(rand.Float64() * backoff)
}

// IsTransientError checks if an error is likely transient and retryable.
func IsTransientError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	transientPatterns := []string{
		"throttl",
		"rate exceed",
		"too many requests",
		"service unavailable",
		"connection reset",
		"connection refused",
		"timeout",
		"i/o timeout",
		"temporary failure",
	}
	for _, pattern := range transientPatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
