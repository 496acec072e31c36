package observe

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/lowc1012/nanothrottler/throttler"
)

var _ throttler.Observer = (*Logging)(nil)

// Logging writes admissions at debug level and abandoned waits at warn level.
// Entries below the logger's level cost one level check.
type Logging struct {
	logger *zap.Logger
}

func NewLogging(logger *zap.Logger) *Logging {
	return &Logging{logger: logger}
}

func (l *Logging) Observe(ev throttler.Event) {
	lvl, msg := zapcore.DebugLevel, "admitted action"
	if ev.Interrupted {
		lvl, msg = zapcore.WarnLevel, "abandoned throttler wait"
	}

	ce := l.logger.Check(lvl, msg)
	if ce == nil {
		return
	}
	ce.Write(
		zap.String("throttler", ev.Throttler),
		zap.Stringer("kind", ev.Kind),
		zap.Int("occupancy", ev.Occupancy),
		zap.Int("capacity", ev.Capacity),
		zap.Duration("delay", ev.Delay),
		zap.Bool("forced", ev.Forced),
	)
}
