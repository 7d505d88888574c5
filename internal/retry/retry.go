// Package retry provides a caller-side retry wrapper for fallible cloud
// operations. The resource lifecycle itself carries no retry policy; the
// runner wraps Create/Delete calls with Do.
package retry

import (
	"context"
	"fmt"
	"time"
)

// Policy controls how Do retries an operation.
type Policy struct {
	// MaxAttempts bounds the total number of attempts, including the first.
	MaxAttempts int
	// Backoff is the delay before the first retry; it doubles after each
	// failed attempt. Zero disables waiting.
	Backoff time.Duration
	// MaxBackoff caps the doubled delay. Zero means no cap.
	MaxBackoff time.Duration
	// Retryable decides whether an error is worth another attempt. Nil
	// means every error is retryable.
	Retryable func(error) bool
}

// Do runs op until it succeeds, the policy is exhausted, a non-retryable
// error occurs, or ctx is done. The last error is returned wrapped with the
// attempt count.
func Do(ctx context.Context, p Policy, op func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	backoff := p.Backoff
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if p.Retryable != nil && !p.Retryable(lastErr) {
			return lastErr
		}
		if attempt == attempts {
			break
		}

		if backoff > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
			if p.MaxBackoff > 0 && backoff > p.MaxBackoff {
				backoff = p.MaxBackoff
			}
		}
	}

	return fmt.Errorf("giving up after %d attempts: %w", attempts, lastErr)
}
