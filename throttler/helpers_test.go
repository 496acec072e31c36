package throttler

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
)

// steppingSleeper advances a fake clock instead of blocking, so a whole
// admission schedule runs instantly and deterministically.
type steppingSleeper struct {
	clock clockwork.FakeClock
	waits []time.Duration
}

func (s *steppingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.waits = append(s.waits, d)
	s.clock.Advance(d)
	return nil
}

func (s *steppingSleeper) total() time.Duration {
	var sum time.Duration
	for _, w := range s.waits {
		sum += w
	}
	return sum
}

func fakeTime() (clockwork.FakeClock, *steppingSleeper, []Option) {
	clock := clockwork.NewFakeClock()
	sleeper := &steppingSleeper{clock: clock}
	return clock, sleeper, []Option{WithClock(clock), WithSleeper(sleeper)}
}

type recorder struct {
	events []Event
}

func (r *recorder) Observe(ev Event) {
	r.events = append(r.events, ev)
}

func (r *recorder) last() Event {
	return r.events[len(r.events)-1]
}

// maxInWindow returns the largest number of admissions found in any closed
// interval [t-period, t] ending at an admission.
func maxInWindow(admits []int64, periodMs int64) int {
	most := 0
	for _, t := range admits {
		n := 0
		for _, u := range admits {
			if u >= t-periodMs && u <= t {
				n++
			}
		}
		if n > most {
			most = n
		}
	}
	return most
}
