package throttler

import (
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// options holds the collaborators shared by every policy.
type options struct {
	name     string
	clock    clockwork.Clock
	sleeper  Sleeper
	observer Observer
	gamma    float64
}

// Option configures a throttler.
type Option interface {
	apply(*options)
}

type optionFunc func(*options)

func (f optionFunc) apply(o *options) { f(o) }

func buildOptions(kind Kind, opts []Option) options {
	o := options{
		clock: clockwork.NewRealClock(),
		gamma: DefaultGamma,
	}
	for _, opt := range opts {
		opt.apply(&o)
	}
	if o.sleeper == nil {
		o.sleeper = ClockSleeper(o.clock)
	}
	if o.name == "" {
		o.name = kind.String() + "-" + uuid.NewString()
	}
	return o
}

// WithClock sets the time source. Unless WithSleeper is also given, waits are
// timed by the same clock.
func WithClock(clock clockwork.Clock) Option {
	return optionFunc(func(o *options) {
		o.clock = clock
	})
}

// WithSleeper replaces the wait primitive.
func WithSleeper(s Sleeper) Option {
	return optionFunc(func(o *options) {
		o.sleeper = s
	})
}

// WithName labels the throttler in observer events.
func WithName(name string) Option {
	return optionFunc(func(o *options) {
		o.name = name
	})
}

// WithObserver installs an event hook called once per Allow. A nil observer
// disables events.
func WithObserver(obs Observer) Option {
	return optionFunc(func(o *options) {
		o.observer = obs
	})
}

// WithGamma sets the distribution exponent of a Gamma throttler. Other
// policies ignore it.
func WithGamma(gamma float64) Option {
	return optionFunc(func(o *options) {
		o.gamma = gamma
	})
}
