package throttler

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParseKind(t *testing.T) {
	var tests = []struct {
		in      string
		want    Kind
		wantErr bool
	}{
		{in: "burst", want: KindBurst},
		{in: " Gamma ", want: KindGamma},
		{in: "COMPACT", want: KindCompact},
		{in: "token-bucket", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseKind(tt.in)
		if tt.wantErr {
			assert.True(t, errors.Is(err, ErrInvalidConfiguration), "%q", tt.in)
			continue
		}
		require.NoError(t, err, "%q", tt.in)
		assert.Equal(t, tt.want, got)
		assert.Equal(t, strings.ToLower(strings.TrimSpace(tt.in)), got.String())
	}

	assert.Equal(t, "Kind(9)", Kind(9).String())
}

func TestKind_YAML(t *testing.T) {
	var doc struct {
		Kind Kind `yaml:"kind"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("kind: gamma\n"), &doc))
	assert.Equal(t, KindGamma, doc.Kind)

	assert.Error(t, yaml.Unmarshal([]byte("kind: leaky\n"), &doc))

	out, err := yaml.Marshal(doc)
	require.NoError(t, err)
	assert.Equal(t, "kind: gamma\n", string(out))
}

func TestNew(t *testing.T) {
	var tests = []struct {
		name    string
		config  Config
		check   func(t *testing.T, th Throttler)
		wantErr bool
	}{
		{
			name:   "burst",
			config: Config{Kind: KindBurst, Period: time.Second, Capacity: 10, Name: "api"},
			check: func(t *testing.T, th Throttler) {
				b, ok := th.(*Burst)
				require.True(t, ok)
				assert.Equal(t, "api", b.Name())
				assert.Equal(t, KindBurst, b.Kind())
			},
		},
		{
			name:   "gamma defaults exponent",
			config: Config{Kind: KindGamma, Period: time.Second, Capacity: 10},
			check: func(t *testing.T, th Throttler) {
				g, ok := th.(*Gamma)
				require.True(t, ok)
				assert.Equal(t, DefaultGamma, g.Gamma())
				assert.True(t, strings.HasPrefix(g.Name(), "gamma-"))
			},
		},
		{
			name:   "gamma with exponent",
			config: Config{Kind: KindGamma, Period: time.Second, Capacity: 10, Gamma: 2.5},
			check: func(t *testing.T, th Throttler) {
				assert.Equal(t, 2.5, th.(*Gamma).Gamma())
			},
		},
		{
			name:   "compact",
			config: Config{Kind: KindCompact, Period: time.Hour, Capacity: 500_000},
			check: func(t *testing.T, th Throttler) {
				b := th.(*Burst)
				assert.Equal(t, KindCompact, b.Kind())
				_, ok := b.Window().(*CompactTimestampWindow)
				assert.True(t, ok)
			},
		},
		{name: "capacity one", config: Config{Kind: KindBurst, Period: time.Second, Capacity: 1}, wantErr: true},
		{name: "burst above max", config: Config{Kind: KindBurst, Period: time.Hour, Capacity: 500_000}, wantErr: true},
		{name: "period below capacity", config: Config{Kind: KindGamma, Period: time.Millisecond, Capacity: 2}, wantErr: true},
		{name: "gamma out of range", config: Config{Kind: KindGamma, Period: time.Second, Capacity: 2, Gamma: 11}, wantErr: true},
		{name: "negative gamma", config: Config{Kind: KindGamma, Period: time.Second, Capacity: 2, Gamma: -1}, wantErr: true},
		{name: "unknown kind", config: Config{Kind: Kind(7), Period: time.Second, Capacity: 2}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			th, err := New(tt.config)
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrInvalidConfiguration), "got %v", err)
				assert.Nil(t, th)
				return
			}
			require.NoError(t, err)
			tt.check(t, th)
		})
	}
}

func TestNew_OptionsOverrideConfig(t *testing.T) {
	_, sleeper, opts := fakeTime()
	th, err := New(Config{Kind: KindBurst, Period: time.Second, Capacity: 2, Name: "from-config"},
		append(opts, WithName("from-option"))...)
	require.NoError(t, err)

	assert.Equal(t, "from-option", th.(*Burst).Name())
	for i := 0; i < 3; i++ {
		require.NoError(t, th.Allow(context.Background()))
	}
	assert.Len(t, sleeper.waits, 1)
}

func TestObservers(t *testing.T) {
	assert.Nil(t, Observers())
	assert.Nil(t, Observers(nil, nil))

	a := &recorder{}
	assert.Same(t, a, Observers(nil, a))

	b := &recorder{}
	var calls int
	fan := Observers(a, ObserverFunc(func(Event) { calls++ }), b)
	fan.Observe(Event{Throttler: "x"})

	assert.Len(t, a.events, 1)
	assert.Len(t, b.events, 1)
	assert.Equal(t, 1, calls)
}

func TestClockSleeper(t *testing.T) {
	s := ClockSleeper(clockwork.NewRealClock())

	assert.NoError(t, s.Sleep(context.Background(), 0))
	assert.NoError(t, s.Sleep(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Sleep(ctx, time.Hour), context.Canceled)
	assert.ErrorIs(t, s.Sleep(ctx, 0), context.Canceled)
}

func TestWaitInterruptedError(t *testing.T) {
	err := &WaitInterruptedError{Wait: time.Second, Forced: true, Cause: context.Canceled}
	assert.True(t, errors.Is(err, ErrWaitInterrupted))
	assert.True(t, errors.Is(err, context.Canceled))
	assert.False(t, errors.Is(err, ErrInvalidConfiguration))
	assert.Contains(t, err.Error(), "wait interrupted")
	assert.Contains(t, err.Error(), "1s")
}
