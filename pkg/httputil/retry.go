package httputil

import (
	"context"
	"errors"
	"time"
)

// RetryableError marks a failure that a later attempt may not repeat: a
// dropped connection, 429 or a 5xx status.
type RetryableError struct{ Err error }

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Retryable wraps err in a RetryableError. A nil err stays nil.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

// IsRetryable reports whether err carries a RetryableError.
func IsRetryable(err error) bool {
	return errors.As(err, new(*RetryableError))
}

// Backoff is a retry policy with a doubling delay.
type Backoff struct {
	Attempts int
	Delay    time.Duration
	// MaxDelay caps the delay between attempts. Zero means no cap.
	MaxDelay time.Duration
}

// Retry runs fn until it succeeds, fails with an error that is not
// retryable, or the attempts are used up. The last error is returned, or
// ctx.Err() if the context ends while waiting.
func (b Backoff) Retry(ctx context.Context, fn func() error) error {
	attempts := max(b.Attempts, 1)
	delay := b.Delay

	var err error
	for i := range attempts {
		if err = fn(); err == nil || !IsRetryable(err) {
			return err
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if b.MaxDelay > 0 && delay > b.MaxDelay {
			delay = b.MaxDelay
		}
	}
	return err
}
