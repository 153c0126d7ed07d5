package common

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oskarvik/kontosort/internal/service"
)

func fastOpts() service.RetryOptions {
	return service.RetryOptions{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2,
	}
}

func TestWithRetrySucceedsAfterFailure(t *testing.T) {
	attempts := 0
	err := WithRetry(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	}, fastOpts())

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestWithRetryExhaustsAttempts(t *testing.T) {
	attempts := 0
	err := WithRetry(context.Background(), func() error {
		attempts++
		return errors.New("permanent")
	}, fastOpts())

	require.ErrorIs(t, err, ErrMaxRetries)
	assert.Equal(t, 3, attempts)
}

func TestWithRetryStopsOnNonRetryable(t *testing.T) {
	attempts := 0
	err := WithRetry(context.Background(), func() error {
		attempts++
		return &RetryableError{Err: errors.New("bad request"), Retryable: false}
	}, fastOpts())

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestWithRetryHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := WithRetry(ctx, func() error {
		return errors.New("transient")
	}, service.RetryOptions{MaxAttempts: 5, InitialDelay: time.Hour})

	require.ErrorIs(t, err, context.Canceled)
}
