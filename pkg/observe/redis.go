package observe

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/lowc1012/nanothrottler/internal/log"
	"github.com/lowc1012/nanothrottler/throttler"
)

var _ throttler.Observer = (*RedisStats)(nil)

// Stats are the counters RedisStats keeps per throttler name.
type Stats struct {
	Admitted    int64 `redis:"admitted"`
	Forced      int64 `redis:"forced"`
	Interrupted int64 `redis:"interrupted"`
	WaitedMs    int64 `redis:"waited_ms"`
}

func (s *Stats) add(o Stats) {
	s.Admitted += o.Admitted
	s.Forced += o.Forced
	s.Interrupted += o.Interrupted
	s.WaitedMs += o.WaitedMs
}

// RedisStats aggregates admission counters in memory and periodically adds
// them to one Redis hash per throttler name, so several processes can report
// into the same dashboard. Only counters are shared; each process still
// throttles on its own.
type RedisStats struct {
	client    *redis.Client
	keyPrefix string

	mu      sync.Mutex
	pending map[string]*Stats
}

// NewRedisStats creates a stats sink writing hashes named keyPrefix+throttler.
func NewRedisStats(client *redis.Client, keyPrefix string) *RedisStats {
	return &RedisStats{
		client:    client,
		keyPrefix: keyPrefix,
		pending:   make(map[string]*Stats),
	}
}

func (s *RedisStats) Observe(ev throttler.Event) {
	var delta Stats
	if ev.Interrupted {
		delta.Interrupted = 1
	} else {
		delta.Admitted = 1
		delta.WaitedMs = ev.Delay.Milliseconds()
		if ev.Forced {
			delta.Forced = 1
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.pending[ev.Throttler]
	if !ok {
		st = &Stats{}
		s.pending[ev.Throttler] = st
	}
	st.add(delta)
}

func (s *RedisStats) getKey(name string) string {
	return s.keyPrefix + name
}

// Flush adds the pending counters to Redis in one pipeline. On failure the
// counters are kept for the next flush.
func (s *RedisStats) Flush(ctx context.Context) error {
	s.mu.Lock()
	batch := s.pending
	s.pending = make(map[string]*Stats, len(batch))
	s.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}

	// Using Redis pipeline to send every throttler's counters in one round trip
	p := s.client.Pipeline()
	for name, st := range batch {
		key := s.getKey(name)
		p.HIncrBy(ctx, key, "admitted", st.Admitted)
		p.HIncrBy(ctx, key, "forced", st.Forced)
		p.HIncrBy(ctx, key, "interrupted", st.Interrupted)
		p.HIncrBy(ctx, key, "waited_ms", st.WaitedMs)
	}

	if _, err := p.Exec(ctx); err != nil {
		s.restore(batch)
		return fmt.Errorf("failed to flush throttler stats: %w", err)
	}
	return nil
}

func (s *RedisStats) restore(batch map[string]*Stats) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for name, st := range batch {
		if cur, ok := s.pending[name]; ok {
			cur.add(*st)
		} else {
			s.pending[name] = st
		}
	}
}

// Get reads the counters stored in Redis for one throttler name.
func (s *RedisStats) Get(ctx context.Context, name string) (Stats, error) {
	var st Stats
	if err := s.client.HGetAll(ctx, s.getKey(name)).Scan(&st); err != nil {
		return Stats{}, fmt.Errorf("failed to read stats for %q: %w", name, err)
	}
	return st, nil
}

// Run flushes every interval until ctx ends, then makes a final flush.
func (s *RedisStats) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), interval)
			if err := s.Flush(flushCtx); err != nil {
				log.Logger().Error("Failed to flush throttler stats on shutdown", zap.Error(err))
			}
			cancel()
			return
		case <-ticker.C:
			if err := s.Flush(ctx); err != nil {
				log.Logger().Warn("Failed to flush throttler stats", zap.Error(err))
			}
		}
	}
}
