// Package retry runs an operation a bounded number of times with a delay between attempts.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Policy bounds a retry loop. Multiplier <= 1 keeps the delay fixed.
type Policy struct {
	Attempts   int
	Delay      time.Duration
	Multiplier float64
}

// Fixed returns a policy with a constant delay between attempts
func Fixed(attempts int, delay time.Duration) Policy {
	return Policy{Attempts: attempts, Delay: delay, Multiplier: 1}
}

type permanentError struct{ err error }

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks err so that Do stops retrying and returns it unwrapped
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// ErrExhausted is matched by errors.Is when every attempt failed
var ErrExhausted = errors.New("retries exhausted")

type exhaustedError struct {
	attempts int
	last     error
}

func (e *exhaustedError) Error() string {
	return fmt.Sprintf("failed after %d attempts: %v", e.attempts, e.last)
}

func (e *exhaustedError) Unwrap() []error { return []error{ErrExhausted, e.last} }

// Do calls fn until it succeeds, returns a Permanent error, the context ends,
// or the attempts are used up. attempt starts at 1.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context, attempt int) error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	delay := p.Delay

	var last error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn(ctx, attempt)
		if err == nil {
			return nil
		}
		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		last = err

		if attempt == attempts {
			break
		}
		if delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
			if p.Multiplier > 1 {
				delay = time.Duration(float64(delay) * p.Multiplier)
			}
		}
	}
	return &exhaustedError{attempts: attempts, last: last}
}
