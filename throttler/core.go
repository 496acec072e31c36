package throttler

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
)

// core is the bookkeeping shared by every policy: the window, the time source,
// and the event hook.
type core struct {
	name     string
	kind     Kind
	clock    clockwork.Clock
	sleeper  Sleeper
	observer Observer

	origin time.Time
	window Window
}

func newCore(kind Kind, window Window, o options) core {
	return core{
		name:     o.name,
		kind:     kind,
		clock:    o.clock,
		sleeper:  o.sleeper,
		observer: o.observer,
		origin:   o.clock.Now(),
		window:   window,
	}
}

// now is milliseconds since the throttler was built.
func (c *core) now() int64 {
	return c.clock.Now().Sub(c.origin).Milliseconds()
}

// begin evicts expired entries and opens the event for this call.
func (c *core) begin() (int64, Event) {
	now := c.now()
	c.window.EvictExpired(now)
	return now, Event{
		Throttler: c.name,
		Kind:      c.kind,
		Occupancy: c.window.Len(),
		Capacity:  c.window.Cap(),
	}
}

// makeRoom waits for the oldest entry of a full window to leave it, then
// evicts that entry. The extra millisecond keeps an action admitted exactly one
// period after the oldest from fitting in the same window.
func (c *core) makeRoom(ctx context.Context, now int64, ev *Event) error {
	ev.Forced = true
	ev.Delay = millis(c.window.OldestExpiry() - now + 1)
	if err := c.sleeper.Sleep(ctx, ev.Delay); err != nil {
		return c.interrupted(*ev, err)
	}
	c.window.EvictOldest()
	return nil
}

func (c *core) pause(ctx context.Context, delayMs int64, ev *Event) error {
	if delayMs <= 0 {
		return nil
	}
	ev.Delay = millis(delayMs)
	if err := c.sleeper.Sleep(ctx, ev.Delay); err != nil {
		return c.interrupted(*ev, err)
	}
	return nil
}

func (c *core) record(ev Event) error {
	if err := c.window.Insert(c.now()); err != nil {
		return err
	}
	if c.observer != nil {
		c.observer.Observe(ev)
	}
	return nil
}

func (c *core) interrupted(ev Event, cause error) error {
	ev.Interrupted = true
	if c.observer != nil {
		c.observer.Observe(ev)
	}
	return &WaitInterruptedError{Wait: ev.Delay, Forced: ev.Forced, Cause: cause}
}

// Name returns the label used in observer events.
func (c *core) Name() string { return c.name }

// Kind returns the policy.
func (c *core) Kind() Kind { return c.kind }

// Capacity returns the number of actions admitted per period.
func (c *core) Capacity() int { return c.window.Cap() }

// Period returns the window length.
func (c *core) Period() time.Duration { return millis(c.window.PeriodMs()) }

// Len returns the number of admissions within the trailing period.
func (c *core) Len() int {
	c.window.EvictExpired(c.now())
	return c.window.Len()
}

// Window exposes the underlying buffer for inspection.
func (c *core) Window() Window { return c.window }
