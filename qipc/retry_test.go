package qipc

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDelaySchedule(t *testing.T) {
	p := &RetryPolicy{
		BaseDelay:     100 * time.Millisecond,
		BackoffFactor: 2,
		MaxDelay:      500 * time.Millisecond,
	}
	assert.Equal(t, 100*time.Millisecond, p.Delay(0))
	assert.Equal(t, 200*time.Millisecond, p.Delay(1))
	assert.Equal(t, 400*time.Millisecond, p.Delay(2))
	assert.Equal(t, 500*time.Millisecond, p.Delay(3), "capped at MaxDelay")
	assert.Equal(t, 500*time.Millisecond, p.Delay(10))
}

func TestRetryableClassification(t *testing.T) {
	p := DefaultRetryPolicy()
	assert.True(t, p.Retryable(ErrConnection))
	assert.True(t, p.Retryable(ErrHandshake))
	assert.True(t, p.Retryable(ErrPoolExhausted))
	assert.False(t, p.Retryable(&QError{Msg: "type"}))
	assert.False(t, p.Retryable(ErrDeserialization))
	assert.False(t, p.Retryable(nil))

	// A broadened set retries deserialization failures too.
	p.RetryableErrors = []error{ErrConnection, ErrDeserialization}
	assert.True(t, p.Retryable(ErrDeserialization))
	// But a QError stays non-retryable regardless of policy.
	p.RetryableErrors = []error{ErrQuery}
	assert.False(t, p.Retryable(&QError{Msg: "type"}))
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	p := &RetryPolicy{MaxRetries: 3, BaseDelay: time.Millisecond, BackoffFactor: 2, MaxDelay: 5 * time.Millisecond}
	attempts := 0
	v, err := p.Do(context.Background(), func() (any, error) {
		attempts++
		if attempts < 3 {
			return nil, ErrConnection
		}
		return "done", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "done", v)
	assert.Equal(t, 3, attempts)
}

func TestDoExhaustsAndPropagates(t *testing.T) {
	p := &RetryPolicy{MaxRetries: 2, BaseDelay: time.Millisecond, BackoffFactor: 2, MaxDelay: 5 * time.Millisecond}
	attempts := 0
	wrapped := errors.Join(ErrConnection, errors.New("dial refused"))
	_, err := p.Do(context.Background(), func() (any, error) {
		attempts++
		return nil, wrapped
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConnection)
	assert.Equal(t, 3, attempts, "initial attempt plus MaxRetries")
}

func TestDoStopsOnPermanentError(t *testing.T) {
	p := &RetryPolicy{MaxRetries: 5, BaseDelay: time.Millisecond, BackoffFactor: 2, MaxDelay: 5 * time.Millisecond}
	attempts := 0
	_, err := p.Do(context.Background(), func() (any, error) {
		attempts++
		return nil, &QError{Msg: "length"}
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrQ)
	assert.Equal(t, 1, attempts)
}
