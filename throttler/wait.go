package throttler

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
)

// Sleeper blocks the calling goroutine for at least d.
type Sleeper interface {
	// Sleep returns nil once d has elapsed, or the context error if ctx ends
	// first.
	Sleep(ctx context.Context, d time.Duration) error
}

// SleeperFunc adapts a function to Sleeper.
type SleeperFunc func(ctx context.Context, d time.Duration) error

func (f SleeperFunc) Sleep(ctx context.Context, d time.Duration) error {
	return f(ctx, d)
}

// ClockSleeper returns a Sleeper that waits on clock timers.
func ClockSleeper(clock clockwork.Clock) Sleeper {
	return SleeperFunc(func(ctx context.Context, d time.Duration) error {
		if d <= 0 {
			return ctx.Err()
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-clock.After(d):
			return nil
		}
	})
}

// WaitInterruptedError reports a wait that ended before its duration elapsed.
// It matches ErrWaitInterrupted and unwraps to the context error.
type WaitInterruptedError struct {
	// Wait is the full duration the throttler asked for.
	Wait time.Duration
	// Forced is set when the window was full and the wait was for its oldest
	// entry to expire.
	Forced bool
	Cause  error
}

func (e *WaitInterruptedError) Error() string {
	return fmt.Sprintf("%v after requesting %v: %v", ErrWaitInterrupted, e.Wait, e.Cause)
}

func (e *WaitInterruptedError) Unwrap() error { return e.Cause }

func (e *WaitInterruptedError) Is(target error) bool {
	return target == ErrWaitInterrupted
}

func millis(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
