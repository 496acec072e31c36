package throttler

import (
	"context"
	"time"
)

// Burst admits actions as fast as they arrive until the window holds capacity
// of them, then makes each further caller wait for the oldest admission to
// expire.
//
// For example, NewBurst(time.Minute, 300) lets 300 calls through at once and
// then about one call per 200ms as the first ones age out.
//
// A Burst is not safe for concurrent use.
type Burst struct {
	core
}

// NewBurst creates a burst throttler over a TimestampWindow.
func NewBurst(period time.Duration, capacity int, opts ...Option) (*Burst, error) {
	w, err := NewTimestampWindow(period.Milliseconds(), capacity)
	if err != nil {
		return nil, err
	}
	return &Burst{core: newCore(KindBurst, w, buildOptions(KindBurst, opts))}, nil
}

// NewCompact creates a burst throttler over a CompactTimestampWindow. It
// accepts capacities up to MaxCompactCapacity at half the memory per slot, but
// Allow fails with ErrOffsetOverflow if the window never drains for
// MaxCompactSpan milliseconds.
func NewCompact(period time.Duration, capacity int, opts ...Option) (*Burst, error) {
	w, err := NewCompactTimestampWindow(period.Milliseconds(), capacity)
	if err != nil {
		return nil, err
	}
	return &Burst{core: newCore(KindCompact, w, buildOptions(KindCompact, opts))}, nil
}

// Allow blocks until the window has room and records the action.
func (b *Burst) Allow(ctx context.Context) error {
	now, ev := b.begin()
	if b.window.IsFull() {
		if err := b.makeRoom(ctx, now, &ev); err != nil {
			return err
		}
	}
	return b.record(ev)
}
