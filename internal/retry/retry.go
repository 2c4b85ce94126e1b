// Package retry bounds retries of externally-facing operations (toolchain
// installs, store writes, release calls). Exhaustion surfaces as its own
// error kind so callers can tell a flaky dependency from a hard failure.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ExhaustedError reports that an operation failed on every allowed attempt.
// It wraps the last attempt's error.
type ExhaustedError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s: retries exhausted after %d attempts: %v", e.Op, e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// Permanent marks an error as not worth retrying (e.g. a release-name
// collision). Do returns it immediately, unwrapped.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Policy controls how Do retries.
type Policy struct {
	Attempts int           // total attempts, including the first; min 1
	Initial  time.Duration // initial backoff interval; defaults to 500ms
}

// Do runs fn up to p.Attempts times with exponential backoff between
// attempts. Permanent errors and context cancellation stop retrying at once;
// anything else that survives every attempt comes back as *ExhaustedError.
func (p Policy) Do(ctx context.Context, op string, fn func(context.Context) error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	bo := backoff.NewExponentialBackOff()
	if p.Initial > 0 {
		bo.InitialInterval = p.Initial
	} else {
		bo.InitialInterval = 500 * time.Millisecond
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = fn(ctx)
		if err == nil {
			return nil
		}

		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			return perm.Err
		}

		if attempt == attempts {
			break
		}
		select {
		case <-time.After(bo.NextBackOff()):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return &ExhaustedError{Op: op, Attempts: attempts, Err: err}
}
