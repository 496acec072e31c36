package ratelimiter

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/lowc1012/nanothrottler/throttler"
)

// ensure that Keyed satisfies an interface RateLimiter
var _ RateLimiter = &Keyed{}

// ErrTooManyKeys is reported when a new key would exceed the key limit.
var ErrTooManyKeys = errors.New("ratelimiter: too many keys")

const defaultThrottlerName = "keyed"

type keyedEntry struct {
	throttler  *throttler.Synchronized
	lastAccess time.Time
	inflight   int
}

// Keyed throttles each key with its own throttler built from one Config.
// Requests for the same key are serialized; different keys never wait on each
// other.
type Keyed struct {
	mu      sync.Mutex
	config  throttler.Config
	entries map[string]*keyedEntry

	maxKeys int
	idleTTL time.Duration
	clock   clockwork.Clock
	topts   []throttler.Option
}

// Option configures a Keyed limiter.
type Option func(*Keyed)

// WithMaxKeys caps the number of tracked keys. Requests for new keys beyond the
// cap are denied. Zero means unlimited.
func WithMaxKeys(n int) Option {
	return func(k *Keyed) { k.maxKeys = n }
}

// WithIdleTTL sets how long an unused key is kept before Sweep drops it.
func WithIdleTTL(d time.Duration) Option {
	return func(k *Keyed) { k.idleTTL = d }
}

// WithClock sets the clock used for idle tracking and by every throttler.
func WithClock(c clockwork.Clock) Option {
	return func(k *Keyed) {
		k.clock = c
		k.topts = append(k.topts, throttler.WithClock(c))
	}
}

// WithThrottlerOptions passes options to every throttler the limiter builds.
func WithThrottlerOptions(opts ...throttler.Option) Option {
	return func(k *Keyed) { k.topts = append(k.topts, opts...) }
}

// NewKeyed creates a keyed limiter. cfg is validated up front so that Run only
// fails for reasons outside the caller's control.
func NewKeyed(cfg throttler.Config, opts ...Option) (*Keyed, error) {
	if cfg.Name == "" {
		cfg.Name = defaultThrottlerName
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	k := &Keyed{
		config:  cfg,
		entries: make(map[string]*keyedEntry),
		idleTTL: 5 * time.Minute,
		clock:   clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(k)
	}
	return k, nil
}

func (k *Keyed) Type() throttler.Kind {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.config.Kind
}

// Run blocks until the throttler for req.Key admits the request.
func (k *Keyed) Run(ctx context.Context, req *Request) (*Result, error) {
	entry, cfg, err := k.acquire(req.Key)
	if errors.Is(err, ErrTooManyKeys) {
		return &Result{State: Deny, RequestLimit: uint32(cfg.Capacity), Period: cfg.Period}, nil
	}
	if err != nil {
		return nil, err
	}
	defer k.release(entry)

	start := k.clock.Now()
	err = entry.throttler.Allow(ctx)
	result := &Result{
		State:        Allow,
		RequestLimit: uint32(cfg.Capacity),
		Period:       cfg.Period,
		Waited:       k.clock.Now().Sub(start),
	}

	if errors.Is(err, throttler.ErrWaitInterrupted) {
		result.State = Deny
		return result, nil
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// acquire gets or creates the entry for key and marks it in use.
func (k *Keyed) acquire(key string) (*keyedEntry, throttler.Config, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	cfg := k.config
	entry, ok := k.entries[key]
	if !ok {
		if k.maxKeys > 0 && len(k.entries) >= k.maxKeys {
			return nil, cfg, ErrTooManyKeys
		}
		t, err := throttler.New(cfg, k.topts...)
		if err != nil {
			return nil, cfg, err
		}
		entry = &keyedEntry{throttler: throttler.NewSynchronized(t)}
		k.entries[key] = entry
	}
	entry.inflight++
	entry.lastAccess = k.clock.Now()
	return entry, cfg, nil
}

func (k *Keyed) release(entry *keyedEntry) {
	k.mu.Lock()
	defer k.mu.Unlock()
	entry.inflight--
	entry.lastAccess = k.clock.Now()
}

// Reconfigure switches to cfg. Existing keys start over with fresh throttlers;
// requests already waiting finish on the old ones.
func (k *Keyed) Reconfigure(cfg throttler.Config) error {
	if cfg.Name == "" {
		cfg.Name = defaultThrottlerName
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	k.config = cfg
	k.entries = make(map[string]*keyedEntry)
	return nil
}

// Sweep drops keys that have been idle for longer than the idle TTL and
// returns how many were dropped. A key is idle while no request holds it.
func (k *Keyed) Sweep() int {
	k.mu.Lock()
	defer k.mu.Unlock()

	cutoff := k.clock.Now().Add(-k.idleTTL)
	removed := 0
	for key, entry := range k.entries {
		if entry.inflight == 0 && entry.lastAccess.Before(cutoff) {
			delete(k.entries, key)
			removed++
		}
	}
	return removed
}

// RunSweeper calls Sweep every interval until ctx ends.
func (k *Keyed) RunSweeper(ctx context.Context, interval time.Duration) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-k.clock.After(interval):
			k.Sweep()
		}
	}
}

// Len returns the number of tracked keys.
func (k *Keyed) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.entries)
}
