// ABOUTME: Retry utilities for embedding, LLM, and inference calls
// ABOUTME: Exponential backoff with jitter plus a context-aware attempt loop
package util

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"
)

// MaxBackoff caps a single backoff interval before jitter is applied.
const MaxBackoff = 30 * time.Second

// CalculateBackoff returns exponential backoff with jitter.
// The base delay is doubled each attempt and jittered by up to ±25%.
func CalculateBackoff(baseDelay time.Duration, attempt int) time.Duration {
	if attempt <= 0 || baseDelay <= 0 {
		return 0
	}
	if attempt > 30 {
		attempt = 30
	}
	backoff := baseDelay * time.Duration(1<<uint(attempt))
	if backoff > MaxBackoff || backoff <= 0 {
		backoff = MaxBackoff
	}
	jitter := time.Duration(rand.Int64N(int64(backoff)/2+1)) - backoff/4
	return backoff + jitter
}

// Retry calls fn up to attempts times, sleeping with CalculateBackoff between
// failures. Each call receives the 1-based attempt number. It stops early when
// ctx is done or fn returns an error wrapped by Permanent.
func Retry(ctx context.Context, attempts int, baseDelay time.Duration, fn func(ctx context.Context, attempt int) error) error {
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(CalculateBackoff(baseDelay, attempt))
			select {
			case <-ctx.Done():
				timer.Stop()
				return fmt.Errorf("retry canceled after %d attempts: %w", attempt, ctx.Err())
			case <-timer.C:
			}
		}

		err := fn(ctx, attempt+1)
		if err == nil {
			return nil
		}
		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		lastErr = fmt.Errorf("attempt %d: %w", attempt+1, err)
	}

	return fmt.Errorf("failed after %d attempts: %w", attempts, lastErr)
}

type permanentError struct{ err error }

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}
