package engine

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/retag-io/retag/internal/provider"
)

// DefaultRetryMax is the default maximum number of retries for
// transient errors during discovery.
const DefaultRetryMax = 3

// Default jitter bounds, additive on top of every computed delay.
const (
	DefaultJitterMin = 100 * time.Millisecond
	DefaultJitterMax = 500 * time.Millisecond
)

// RetryPolicy defines retry behavior for transient cloud API errors.
// Jitter is an additive random delay in [JitterMin, JitterMax), applied
// to every backoff sleep to desynchronize callers.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	JitterMin  time.Duration
	JitterMax  time.Duration
}

// DefaultRetryPolicy returns a sensible default retry policy.
func DefaultRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxRetries: DefaultRetryMax,
		BaseDelay:  500 * time.Millisecond,
		MaxDelay:   30 * time.Second,
		JitterMin:  DefaultJitterMin,
		JitterMax:  DefaultJitterMax,
	}
}

// RetryWithBackoff executes fn with exponential backoff and jitter.
// It retries only if shouldRetry returns true for the error.
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
			delay := policy.backoff(attempt)
			select {
			case <-ctx.Done():
				return fmt.Errorf("retry cancelled: %w", ctx.Err())
			case <-time.After(delay):
			}
		}
	}

	return fmt.Errorf("max retries (%d) exceeded: %w", policy.MaxRetries, lastErr)
}

// backoff returns the exponential delay for an attempt, jitter included.
func (p *RetryPolicy) backoff(attempt int) time.Duration {
	base := p.BaseDelay
	if base < 100*time.Millisecond {
		base = 100 * time.Millisecond
	}
	d := float64(base) * math.Pow(2, float64(attempt))
	if p.MaxDelay > 0 && d > float64(p.MaxDelay) {
		d = float64(p.MaxDelay)
	}
	return time.Duration(d) + p.jitter()
}

func (p *RetryPolicy) jitter() time.Duration {
	min, max := p.JitterMin, p.JitterMax
	if max <= min {
		return min
	}
	return min + rand.N(max-min)
}

// Pace sleeps the policy's base delay plus jitter, the courtesy pause
// issued after each remote call to stay under implicit rate limits.
// Returns early if ctx is cancelled.
func (p *RetryPolicy) Pace(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(p.BaseDelay + p.jitter()):
	}
}

// IsTransientError checks if an error is likely transient and worth
// retrying: a typed throttle/transient provider error, or a message
// matching common cloud API throttling and network failures.
func IsTransientError(err error) bool {
	if err == nil {
		return false
	}
	if provider.IsRetryable(err) {
		return true
	}
	msg := strings.ToLower(err.Error())
	transientPatterns := []string{
		"throttl",
		"rate exceed",
		"too many requests",
		"request limit",
		"slow down",
		"service unavailable",
		"internal server error",
		"connection reset",
		"connection refused",
		"timeout",
		"tls handshake",
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
