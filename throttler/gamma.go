package throttler

import (
	"context"
	"math"
	"time"
)

// Gamma spreads admissions across the period instead of letting them burst.
//
// Each call into a non-empty window waits until the time the occupancy curve
// period*(occupancy/capacity)^gamma says the next action is due, measured from
// the oldest live admission. With gamma 1 the schedule is linear; larger gamma
// admits early calls faster and slows down near full, smaller gamma throttles
// earlier.
//
// A Gamma is not safe for concurrent use.
type Gamma struct {
	core
	gamma float64
}

// NewGamma creates a gamma throttler. Use WithGamma to change the exponent
// from DefaultGamma.
func NewGamma(period time.Duration, capacity int, opts ...Option) (*Gamma, error) {
	w, err := NewTimestampWindow(period.Milliseconds(), capacity)
	if err != nil {
		return nil, err
	}
	o := buildOptions(KindGamma, opts)
	if err := validateGamma(o.gamma); err != nil {
		return nil, err
	}
	return &Gamma{core: newCore(KindGamma, w, o), gamma: o.gamma}, nil
}

// Gamma returns the distribution exponent.
func (g *Gamma) Gamma() float64 { return g.gamma }

// Allow blocks until the action is due and records it.
func (g *Gamma) Allow(ctx context.Context) error {
	now, ev := g.begin()
	switch {
	case g.window.IsFull():
		// no free slot: wait for the oldest entry like Burst does
		if err := g.makeRoom(ctx, now, &ev); err != nil {
			return err
		}
	case !g.window.IsEmpty():
		delay := GammaDelay(ev.Occupancy, ev.Capacity, g.window.PeriodMs(), g.window.OldestExpiry()-now, g.gamma)
		if err := g.pause(ctx, delay, &ev); err != nil {
			return err
		}
	}
	return g.record(ev)
}

// GammaDelay returns how many milliseconds a caller should wait when live of
// capacity slots are occupied and the oldest entry expires in timeReserveMs.
// The result is at least 1 unless the window has no free slot, in which case it
// is the time until just before the oldest entry expires.
func GammaDelay(live, capacity int, periodMs, timeReserveMs int64, gamma float64) int64 {
	if capacity-live < 1 {
		return timeReserveMs - 1
	}
	fill := float64(live) / float64(capacity)
	expected := int64(float64(periodMs) * math.Pow(fill, gamma))
	delay := expected - periodMs + timeReserveMs
	if delay <= 0 {
		return 1
	}
	return delay
}
