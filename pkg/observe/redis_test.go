package observe

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lowc1012/nanothrottler/throttler"
)

func TestRedisStats_Flush(t *testing.T) {
	var tests = []struct {
		name   string
		events []throttler.Event
		want   Stats
	}{
		{
			name: "admissions without waiting",
			events: []throttler.Event{
				{Throttler: "api"},
				{Throttler: "api"},
			},
			want: Stats{Admitted: 2},
		},
		{
			name: "forced and paced waits",
			events: []throttler.Event{
				{Throttler: "api", Delay: 40 * time.Millisecond},
				{Throttler: "api", Delay: 1001 * time.Millisecond, Forced: true},
			},
			want: Stats{Admitted: 2, Forced: 1, WaitedMs: 1041},
		},
		{
			name: "interrupted waits are not admissions",
			events: []throttler.Event{
				{Throttler: "api", Delay: time.Second, Forced: true, Interrupted: true},
				{Throttler: "other"},
			},
			want: Stats{Interrupted: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, err := miniredis.Run()
			assert.Nil(t, err)
			defer server.Close()

			client := redis.NewClient(&redis.Options{
				Addr: server.Addr(),
			})
			defer client.Close()

			stats := NewRedisStats(client, "throttle_stats:")
			for _, ev := range tt.events {
				stats.Observe(ev)
			}
			require.NoError(t, stats.Flush(context.Background()))

			got, err := stats.Get(context.Background(), "api")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			// a second flush has nothing new to add
			require.NoError(t, stats.Flush(context.Background()))
			again, err := stats.Get(context.Background(), "api")
			require.NoError(t, err)
			assert.Equal(t, tt.want, again)
		})
	}
}

func TestRedisStats_FromThrottler(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	defer server.Close()

	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer client.Close()

	stats := NewRedisStats(client, "ts:")
	b, err := throttler.NewBurst(time.Second, 2, append(instantOptions(stats), throttler.WithName("search"))...)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		require.NoError(t, b.Allow(context.Background()))
	}
	require.NoError(t, stats.Flush(context.Background()))

	assert.Equal(t, "3", server.HGet("ts:search", "admitted"))
	assert.Equal(t, "1", server.HGet("ts:search", "forced"))
	assert.Equal(t, "1001", server.HGet("ts:search", "waited_ms"))
}

func TestRedisStats_KeepsCountersWhenFlushFails(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	defer server.Close()

	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer client.Close()

	stats := NewRedisStats(client, "ts:")
	stats.Observe(throttler.Event{Throttler: "api"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, stats.Flush(ctx))
	assert.False(t, server.Exists("ts:api"))

	stats.Observe(throttler.Event{Throttler: "api"})
	require.NoError(t, stats.Flush(context.Background()))
	assert.Equal(t, "2", server.HGet("ts:api", "admitted"))
}

func TestRedisStats_RunFlushesOnShutdown(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	defer server.Close()

	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer client.Close()

	stats := NewRedisStats(client, "ts:")
	stats.Observe(throttler.Event{Throttler: "api"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		stats.Run(ctx, time.Hour)
		close(done)
	}()
	cancel()
	<-done

	assert.Equal(t, "1", server.HGet("ts:api", "admitted"))
}
