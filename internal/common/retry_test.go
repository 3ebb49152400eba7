package common

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry(attempts int) RetryOptions {
	return RetryOptions{MaxAttempts: attempts, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func TestWithRetry_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), func() error {
		calls++
		if calls < 3 {
			return ErrTransport
		}
		return nil
	}, fastRetry(5))

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithRetry_StopsOnPermanentError(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), func() error {
		calls++
		return &HTTPError{Status: 404}
	}, fastRetry(5))

	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 1, calls)
}

func TestWithRetry_ExhaustsAttempts(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), func() error {
		calls++
		return ErrTransport
	}, fastRetry(2))

	assert.ErrorIs(t, err, ErrMaxRetries)
	assert.ErrorIs(t, err, ErrTransport)
	assert.Equal(t, 2, calls)
}

func TestWithRetry_HonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := WithRetry(ctx, func() error { return ErrTransport }, RetryOptions{MaxAttempts: 3, InitialDelay: time.Second})
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestWithRetry_RateLimitWaitsMaxDelay(t *testing.T) {
	calls := 0
	start := time.Now()
	err := WithRetry(context.Background(), func() error {
		calls++
		if calls == 1 {
			return &HTTPError{Status: 429}
		}
		return nil
	}, RetryOptions{MaxAttempts: 2, InitialDelay: time.Millisecond, MaxDelay: 50 * time.Millisecond})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}
