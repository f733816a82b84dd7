// Package retry runs an operation a bounded number of times.
package retry

import (
	"context"
	"errors"
	"fmt"
)

// Func is one attempt. attempt starts at 1.
type Func func(ctx context.Context, attempt int) error

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err so that Do stops without further attempts.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var pe *permanentError
	return errors.As(err, &pe)
}

// Do calls fn until it succeeds, returns a Permanent error, or attempts are
// exhausted. Attempts follow each other immediately. No attempt is started
// once ctx is done. It returns the number of attempts made and the last error.
func Do(ctx context.Context, attempts int, fn Func) (int, error) {
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	made := 0
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr == nil {
				lastErr = err
			}
			break
		}

		made++
		err := fn(ctx, attempt)
		if err == nil {
			return made, nil
		}
		lastErr = err
		if IsPermanent(err) {
			return made, err
		}
	}

	return made, fmt.Errorf("failed after %d attempts: %w", made, lastErr)
}
