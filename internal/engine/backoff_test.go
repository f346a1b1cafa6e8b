package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/retag-io/retag/internal/provider"
)

func fastPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxRetries: 3,
		BaseDelay:  time.Millisecond,
		MaxDelay:   5 * time.Millisecond,
		JitterMin:  0,
		JitterMax:  time.Millisecond,
	}
}

func TestRetryWithBackoff_Success(t *testing.T) {
	attempts := 0
	err := RetryWithBackoff(context.Background(), fastPolicy(), func() error {
		attempts++
		if attempts < 3 {
			return fmt.Errorf("throttled")
		}
		return nil
	}, func(err error) bool {
		return true
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryWithBackoff_NonRetryable(t *testing.T) {
	attempts := 0
	err := RetryWithBackoff(context.Background(), fastPolicy(), func() error {
		attempts++
		return fmt.Errorf("permanent error")
	}, func(err error) bool {
		return false
	})

	assert.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestRetryWithBackoff_MaxRetries(t *testing.T) {
	policy := fastPolicy()
	policy.MaxRetries = 2

	attempts := 0
	err := RetryWithBackoff(context.Background(), policy, func() error {
		attempts++
		return fmt.Errorf("always fails")
	}, func(err error) bool {
		return true
	})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "max retries")
	assert.Equal(t, 3, attempts) // 1 initial + 2 retries
}

func TestRetryWithBackoff_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := RetryWithBackoff(ctx, &RetryPolicy{
		MaxRetries: 5,
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   time.Second,
	}, func() error {
		return fmt.Errorf("would retry")
	}, func(err error) bool {
		return true
	})

	assert.Error(t, err)
}

func TestBackoffJitterBounds(t *testing.T) {
	policy := &RetryPolicy{
		BaseDelay: 100 * time.Millisecond,
		MaxDelay:  time.Second,
		JitterMin: DefaultJitterMin,
		JitterMax: DefaultJitterMax,
	}

	for attempt := 0; attempt < 4; attempt++ {
		d := policy.backoff(attempt)
		base := 100 * time.Millisecond << attempt
		if base > time.Second {
			base = time.Second
		}
		assert.GreaterOrEqual(t, d, base+DefaultJitterMin)
		assert.Less(t, d, base+DefaultJitterMax)
	}
}

func TestIsTransientError(t *testing.T) {
	tests := []struct {
		err      error
		expected bool
	}{
		{nil, false},
		{fmt.Errorf("throttling"), true},
		{fmt.Errorf("Rate exceeded"), true},
		{fmt.Errorf("Too Many Requests"), true},
		{fmt.Errorf("Service Unavailable"), true},
		{fmt.Errorf("connection reset by peer"), true},
		{fmt.Errorf("i/o timeout"), true},
		{fmt.Errorf("resource not found"), false},
		{fmt.Errorf("access denied"), false},
		{provider.NewError(provider.KindThrottled, "list", "", errors.New("x")), true},
		{provider.NewError(provider.KindTransient, "list", "", errors.New("x")), true},
		{provider.NewError(provider.KindPermissionDenied, "list", "", errors.New("x")), false},
	}

	for _, tt := range tests {
		name := "nil"
		if tt.err != nil {
			name = tt.err.Error()
		}
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsTransientError(tt.err))
		})
	}
}
