package rowstore

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrUnavailable marks a permanent failure after the retry budget for
// opening the row store is exhausted. The current operation is aborted
// and the error surfaced to the caller.
var ErrUnavailable = errors.New("row store unavailable")

// RetryPolicy bounds the retry loop around the store's open operation.
// Transient backend failures (quota, rate limits) are retried with
// exponential backoff; anything left after MaxAttempts is permanent.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64
}

// DefaultRetryPolicy mirrors the backend's historical behavior: five
// attempts starting at 500ms, doubling each time.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 5,
		BaseDelay:   500 * time.Millisecond,
		Multiplier:  2.0,
	}
}

// Do runs op until it succeeds, the attempts are exhausted, or the
// context is cancelled.
func (p RetryPolicy) Do(ctx context.Context, op func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	delay := p.BaseDelay
	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * p.Multiplier)
		}
		if lastErr = op(); lastErr == nil {
			return nil
		}
	}
	return fmt.Errorf("%w after %d attempts: %v", ErrUnavailable, attempts, lastErr)
}
