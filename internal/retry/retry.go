// Package retry wraps single API operations with bounded retry and backoff.
// Callers supply the operation, a classifier mapping errors into the
// transient/permanent taxonomy, and a policy; retry logic lives here instead
// of being scattered per call site.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Class is the failure class assigned to an error by a Classifier.
type Class int

const (
	// Transient failures (rate limiting, network blips) are expected to
	// resolve after waiting and are retried.
	Transient Class = iota

	// Permanent failures (bad payload, permission denied) will not resolve
	// on retry and are surfaced immediately.
	Permanent
)

// Classifier maps an operation error into a failure class.
type Classifier func(error) Class

// Delayer is implemented by errors that carry a server-advised wait, such as
// a rate-limit response with a retry_after field. The advised delay takes
// precedence over the policy's computed backoff.
type Delayer interface {
	RetryDelay() time.Duration
}

// ErrExhausted marks a transient failure that survived every allowed
// attempt. It is treated the same as a permanent failure by callers.
var ErrExhausted = errors.New("retry: attempts exhausted")

// Policy bounds the retry loop.
type Policy struct {
	// MaxAttempts is the total number of tries, including the first.
	MaxAttempts int

	// InitialBackoff is the wait after the first transient failure; it
	// doubles per attempt up to MaxBackoff.
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	// AttemptTimeout bounds each individual attempt. Zero means the attempt
	// runs under the caller's context alone.
	AttemptTimeout time.Duration
}

func (p Policy) withDefaults() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.InitialBackoff <= 0 {
		p.InitialBackoff = time.Second
	}
	if p.MaxBackoff <= 0 {
		p.MaxBackoff = 2 * time.Minute
	}
	return p
}

// Do runs op until it succeeds, fails permanently, the context is cancelled,
// or attempts are exhausted. Exhaustion is reported wrapped in ErrExhausted
// together with the last transient error.
func Do(ctx context.Context, policy Policy, classify Classifier, op func(context.Context) error) error {
	policy = policy.withDefaults()
	backoff := policy.InitialBackoff

	var lastErr error
	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := runAttempt(ctx, policy.AttemptTimeout, op)
		if err == nil {
			return nil
		}
		if classify(err) == Permanent {
			return err
		}
		lastErr = err

		if attempt == policy.MaxAttempts-1 {
			break
		}

		wait := backoff
		var d Delayer
		if errors.As(err, &d) && d.RetryDelay() > 0 {
			wait = d.RetryDelay()
		}
		if wait > policy.MaxBackoff {
			wait = policy.MaxBackoff
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		backoff *= 2
		if backoff > policy.MaxBackoff {
			backoff = policy.MaxBackoff
		}
	}

	return fmt.Errorf("%w after %d attempts: %w", ErrExhausted, policy.MaxAttempts, lastErr)
}

func runAttempt(ctx context.Context, timeout time.Duration, op func(context.Context) error) error {
	if timeout <= 0 {
		return op(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return op(attemptCtx)
}
