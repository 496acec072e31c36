// Package throttler provides blocking admission control over a trailing time
// window: at most Capacity actions may be admitted during any Period.
//
// Two policies share one ring-buffer of admission timestamps:
//
//   - Burst admits immediately while the window has room, then stalls until the
//     oldest admission leaves the window.
//   - Gamma spreads admissions across the window by inserting a delay that grows
//     with occupancy along the curve occupancy^gamma.
//
// Compact is Burst over a ring of 32-bit offsets, for very large capacities.
//
// Throttlers are not safe for concurrent use. Wrap one with NewSynchronized when
// several goroutines share it.
package throttler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// MaxCapacity bounds the capacity of Burst and Gamma throttlers.
	MaxCapacity = 10_000
	// MaxCompactCapacity bounds the capacity of Compact throttlers.
	MaxCompactCapacity = 1_000_000

	// MinCapacity is the smallest capacity any throttler accepts.
	MinCapacity = 2

	// DefaultGamma distributes admissions linearly across the period.
	DefaultGamma = 1.0
	// MaxGamma is the largest accepted gamma.
	MaxGamma = 10.0
)

// Common errors.
var (
	// ErrInvalidConfiguration is returned by constructors for out-of-range
	// parameters. It is never returned by Allow.
	ErrInvalidConfiguration = errors.New("throttler: invalid configuration")

	// ErrWaitInterrupted is matched by errors returned from Allow when the
	// context ends before the wait completes. The action is not admitted.
	ErrWaitInterrupted = errors.New("throttler: wait interrupted")

	// ErrOffsetOverflow is returned by a compact window that has not been empty
	// for longer than its 32-bit offsets can express.
	ErrOffsetOverflow = errors.New("throttler: compact offset overflow")
)

// Compile-time interface compliance checks.
var (
	_ Throttler = (*Burst)(nil)
	_ Throttler = (*Gamma)(nil)
	_ Throttler = (*Synchronized)(nil)

	_ Window = (*TimestampWindow)(nil)
	_ Window = (*CompactTimestampWindow)(nil)
)

// Throttler admits one action per Allow call, blocking as long as needed to keep
// the number of admissions within any trailing period at or below capacity.
type Throttler interface {
	// Allow blocks until the action may proceed and records it.
	// It returns an error matching ErrWaitInterrupted if ctx ends first,
	// in which case nothing is recorded.
	Allow(ctx context.Context) error
}

// Kind identifies a throttling policy.
type Kind int

const (
	KindBurst Kind = iota
	KindGamma
	KindCompact
)

var kindNames = map[Kind]string{
	KindBurst:   "burst",
	KindGamma:   "gamma",
	KindCompact: "compact",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// MaxCapacity returns the largest capacity the kind accepts.
func (k Kind) MaxCapacity() int {
	if k == KindCompact {
		return MaxCompactCapacity
	}
	return MaxCapacity
}

// ParseKind parses a policy name as used in configuration files.
func ParseKind(s string) (Kind, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for k, n := range kindNames {
		if n == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown kind %q", ErrInvalidConfiguration, s)
}

// UnmarshalText lets Kind be decoded directly from YAML and flags.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Config describes a throttler independently of its policy.
type Config struct {
	Kind     Kind
	Period   time.Duration
	Capacity int
	// Gamma is used by KindGamma only. Zero means DefaultGamma.
	Gamma float64
	// Name labels observer events. Empty means a generated name.
	Name string
}

// Validate reports the first parameter that no throttler of c.Kind accepts.
func (c Config) Validate() error {
	if _, ok := kindNames[c.Kind]; !ok {
		return fmt.Errorf("%w: unknown kind %d", ErrInvalidConfiguration, int(c.Kind))
	}
	if err := validateWindow(c.Period.Milliseconds(), c.Capacity, c.Kind.MaxCapacity()); err != nil {
		return err
	}
	if c.Kind == KindGamma && c.Gamma != 0 {
		return validateGamma(c.Gamma)
	}
	return nil
}

// New builds the throttler described by cfg. Options are applied after the
// ones derived from cfg.
func New(cfg Config, opts ...Option) (Throttler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Name != "" {
		opts = append([]Option{WithName(cfg.Name)}, opts...)
	}

	switch cfg.Kind {
	case KindGamma:
		gamma := cfg.Gamma
		if gamma == 0 {
			gamma = DefaultGamma
		}
		return NewGamma(cfg.Period, cfg.Capacity, append([]Option{WithGamma(gamma)}, opts...)...)
	case KindCompact:
		return NewCompact(cfg.Period, cfg.Capacity, opts...)
	default:
		return NewBurst(cfg.Period, cfg.Capacity, opts...)
	}
}

func validateWindow(periodMs int64, capacity, maxCapacity int) error {
	if capacity < MinCapacity || capacity > maxCapacity {
		return fmt.Errorf("%w: capacity %d outside [%d, %d]", ErrInvalidConfiguration, capacity, MinCapacity, maxCapacity)
	}
	if periodMs < 0 {
		return fmt.Errorf("%w: negative period %dms", ErrInvalidConfiguration, periodMs)
	}
	// one millisecond of resolution per slot
	if periodMs < int64(capacity) {
		return fmt.Errorf("%w: period %dms shorter than capacity %d", ErrInvalidConfiguration, periodMs, capacity)
	}
	return nil
}

func validateGamma(gamma float64) error {
	if !(gamma > 0 && gamma <= MaxGamma) {
		return fmt.Errorf("%w: gamma %v outside (0, %v]", ErrInvalidConfiguration, gamma, MaxGamma)
	}
	return nil
}
