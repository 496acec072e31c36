package observe

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/lowc1012/nanothrottler/throttler"
)

// instantOptions makes throttler waits advance a fake clock instead of
// blocking.
func instantOptions(obs throttler.Observer) []throttler.Option {
	clock := clockwork.NewFakeClock()
	return []throttler.Option{
		throttler.WithClock(clock),
		throttler.WithSleeper(throttler.SleeperFunc(func(ctx context.Context, d time.Duration) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			clock.Advance(d)
			return nil
		})),
		throttler.WithObserver(obs),
	}
}
