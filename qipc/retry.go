// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package qipc

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy controls reconnect-and-retry behavior at the session boundary.
// The delay before attempt n (0-indexed) is
// min(MaxDelay, BaseDelay * BackoffFactor^n), with no jitter so schedules
// are deterministic.
type RetryPolicy struct {
	MaxRetries    int
	BaseDelay     time.Duration
	BackoffFactor float64
	MaxDelay      time.Duration
	// RetryableErrors lists the error families that trigger a retry.
	// Defaults to the connection family only; *QError is never retried.
	RetryableErrors []error
}

// DefaultRetryPolicy returns the standard policy: 3 retries, 100ms base,
// doubling, capped at 30s, connection errors only.
func DefaultRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxRetries:      3,
		BaseDelay:       100 * time.Millisecond,
		BackoffFactor:   2.0,
		MaxDelay:        30 * time.Second,
		RetryableErrors: []error{ErrConnection},
	}
}

// Delay computes the backoff before the given 0-indexed attempt.
func (p *RetryPolicy) Delay(attempt int) time.Duration {
	d := float64(p.BaseDelay)
	for range attempt {
		d *= p.BackoffFactor
	}
	if dd := time.Duration(d); dd < p.MaxDelay {
		return dd
	}
	return p.MaxDelay
}

// Retryable reports whether err belongs to one of the policy's retryable
// families. A *QError is never retryable.
func (p *RetryPolicy) Retryable(err error) bool {
	if err == nil || errors.Is(err, ErrQ) {
		return false
	}
	kinds := p.RetryableErrors
	if kinds == nil {
		kinds = []error{ErrConnection}
	}
	for _, kind := range kinds {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}

// Do runs op, retrying per the policy. Non-retryable errors propagate
// immediately; the last error propagates on exhaustion.
func (p *RetryPolicy) Do(ctx context.Context, op func() (any, error)) (any, error) {
	var result any
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.BaseDelay
	eb.Multiplier = p.BackoffFactor
	eb.MaxInterval = p.MaxDelay
	eb.RandomizationFactor = 0
	eb.MaxElapsedTime = 0

	err := backoff.Retry(func() error {
		v, err := op()
		if err != nil {
			if p.Retryable(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		result = v
		return nil
	}, backoff.WithContext(backoff.WithMaxRetries(eb, uint64(p.MaxRetries)), ctx))
	if err != nil {
		return nil, err
	}
	return result, nil
}
