package httputil

import (
	"context"
	"errors"
	"time"
)

// Defaults used by [RetryWithBackoff]. Index listing pages and artifact
// downloads share the same policy.
const (
	defaultAttempts     = 3
	defaultInitialDelay = time.Second
)

// RetryableError marks an error as transient. Wrap network timeouts and
// 5xx responses with it; [Retry] gives up immediately on anything else,
// so a 404 from an index never burns retry budget.
type RetryableError struct{ Err error }

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Retry executes fn up to attempts times, doubling delay after each
// failed attempt. Only errors wrapped in [RetryableError] are retried.
// Returns the last error when the budget runs out, or ctx.Err() if the
// context is cancelled while waiting.
func Retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	attempts = max(attempts, 1)
	var lastErr error

	for i := range attempts {
		if err := fn(); err == nil {
			return nil
		} else if lastErr = err; !isRetryable(err) {
			return err
		}

		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				delay *= 2
			}
		}
	}
	return lastErr
}

// RetryWithBackoff runs fn under the package's default policy.
func RetryWithBackoff(ctx context.Context, fn func() error) error {
	return Retry(ctx, defaultAttempts, defaultInitialDelay, fn)
}

func isRetryable(err error) bool {
	return errors.As(err, new(*RetryableError))
}
