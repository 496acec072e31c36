package throttler

import "time"

// Event describes one Allow call.
type Event struct {
	Throttler string
	Kind      Kind
	// Occupancy is the number of live entries after expired ones were evicted
	// and before this action was recorded.
	Occupancy int
	Capacity  int
	// Delay is the wait the throttler asked for; zero when admitted at once.
	Delay time.Duration
	// Forced is set when the window was full.
	Forced bool
	// Interrupted is set when the wait was abandoned and nothing was recorded.
	Interrupted bool
}

// Observer receives an Event for every Allow call. Observers run on the
// caller's goroutine after the wait, so they should not block.
type Observer interface {
	Observe(ev Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ev Event)

func (f ObserverFunc) Observe(ev Event) { f(ev) }

type multiObserver []Observer

func (m multiObserver) Observe(ev Event) {
	for _, o := range m {
		o.Observe(ev)
	}
}

// Observers fans events out to every non-nil observer in order.
func Observers(obs ...Observer) Observer {
	out := make(multiObserver, 0, len(obs))
	for _, o := range obs {
		if o != nil {
			out = append(out, o)
		}
	}
	switch len(out) {
	case 0:
		return nil
	case 1:
		return out[0]
	}
	return out
}
