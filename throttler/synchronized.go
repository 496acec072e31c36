package throttler

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Synchronized serializes Allow calls on a throttler shared by several
// goroutines. The lock is held for the whole call, including the wait, and
// callers queue in arrival order. A caller whose context ends while queued
// leaves the queue with an error matching ErrWaitInterrupted.
type Synchronized struct {
	sem   *semaphore.Weighted
	inner Throttler
}

// NewSynchronized wraps t. t must not be used directly afterwards.
func NewSynchronized(t Throttler) *Synchronized {
	return &Synchronized{
		sem:   semaphore.NewWeighted(1),
		inner: t,
	}
}

func (s *Synchronized) Allow(ctx context.Context) error {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return &WaitInterruptedError{Cause: err}
	}
	defer s.sem.Release(1)

	return s.inner.Allow(ctx)
}

// Unwrap returns the wrapped throttler.
func (s *Synchronized) Unwrap() Throttler { return s.inner }
