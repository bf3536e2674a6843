package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errBoom = errors.New("boom")

func alwaysTransient(error) Class { return Transient }
func alwaysPermanent(error) Class { return Permanent }

func fastPolicy(attempts int) Policy {
	return Policy{
		MaxAttempts:    attempts,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
	}
}

func TestDo_SucceedsFirstTry(t *testing.T) {
	t.Parallel()
	calls := 0
	err := Do(context.Background(), fastPolicy(3), alwaysTransient, func(context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDo_RetriesTransientThenSucceeds(t *testing.T) {
	t.Parallel()
	calls := 0
	err := Do(context.Background(), fastPolicy(5), alwaysTransient, func(context.Context) error {
		calls++
		if calls < 3 {
			return errBoom
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestDo_PermanentFailsImmediately(t *testing.T) {
	t.Parallel()
	calls := 0
	err := Do(context.Background(), fastPolicy(5), alwaysPermanent, func(context.Context) error {
		calls++
		return errBoom
	})
	if !errors.Is(err, errBoom) {
		t.Fatalf("expected errBoom, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDo_ExhaustionWrapsLastError(t *testing.T) {
	t.Parallel()
	calls := 0
	err := Do(context.Background(), fastPolicy(3), alwaysTransient, func(context.Context) error {
		calls++
		return errBoom
	})
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("expected ErrExhausted, got %v", err)
	}
	if !errors.Is(err, errBoom) {
		t.Fatalf("expected wrapped errBoom, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

type delayedError struct{ delay time.Duration }

func (e *delayedError) Error() string             { return "rate limited" }
func (e *delayedError) RetryDelay() time.Duration { return e.delay }

func TestDo_HonorsServerDelay(t *testing.T) {
	t.Parallel()
	calls := 0
	start := time.Now()
	err := Do(context.Background(), fastPolicy(2), alwaysTransient, func(context.Context) error {
		calls++
		if calls == 1 {
			return &delayedError{delay: 30 * time.Millisecond}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 30ms advised delay exceeds MaxBackoff (5ms); the cap wins, so the
	// second attempt must have started within a small bound.
	if elapsed := time.Since(start); elapsed > 25*time.Millisecond {
		t.Errorf("advised delay not capped by MaxBackoff: %v", elapsed)
	}
}

func TestDo_UncappedServerDelayWaits(t *testing.T) {
	t.Parallel()
	policy := Policy{MaxAttempts: 2, InitialBackoff: time.Millisecond, MaxBackoff: time.Second}
	calls := 0
	start := time.Now()
	err := Do(context.Background(), policy, alwaysTransient, func(context.Context) error {
		calls++
		if calls == 1 {
			return &delayedError{delay: 20 * time.Millisecond}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Errorf("server-advised delay ignored: waited only %v", elapsed)
	}
}

func TestDo_ContextCancelDuringBackoff(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	policy := Policy{MaxAttempts: 3, InitialBackoff: time.Minute, MaxBackoff: time.Minute}
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	err := Do(ctx, policy, alwaysTransient, func(context.Context) error {
		return errBoom
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestDo_AttemptTimeoutBoundsEachTry(t *testing.T) {
	t.Parallel()
	policy := Policy{
		MaxAttempts:    1,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     time.Millisecond,
		AttemptTimeout: 10 * time.Millisecond,
	}
	err := Do(context.Background(), policy, alwaysPermanent, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
