package observe

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/lowc1012/nanothrottler/throttler"
)

var _ throttler.Observer = (*Prometheus)(nil)

// DelayBuckets are the default histogram buckets for admission delays, in
// seconds.
var DelayBuckets = []float64{0, 0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}

var labelNames = []string{"throttler", "kind"}

// Prometheus records admission events as Prometheus metrics labelled by
// throttler name and kind.
type Prometheus struct {
	admitted    *prometheus.CounterVec
	forced      *prometheus.CounterVec
	interrupted *prometheus.CounterVec
	delay       *prometheus.HistogramVec
	fill        *prometheus.GaugeVec
}

// NewPrometheus creates the metrics and registers them with reg. A nil reg
// means prometheus.DefaultRegisterer.
func NewPrometheus(reg prometheus.Registerer, namespace string) (*Prometheus, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	p := &Prometheus{
		admitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "admissions_total",
			Help:      "Actions admitted by the throttler.",
		}, labelNames),
		forced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forced_waits_total",
			Help:      "Admissions that waited for a full window to free a slot.",
		}, labelNames),
		interrupted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "interrupted_waits_total",
			Help:      "Waits abandoned because the caller's context ended.",
		}, labelNames),
		delay: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "admission_delay_seconds",
			Help:      "Time callers were held before admission.",
			Buckets:   DelayBuckets,
		}, labelNames),
		fill: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "window_fill_ratio",
			Help:      "Share of the window occupied after the latest admission.",
		}, labelNames),
	}

	for _, c := range []prometheus.Collector{p.admitted, p.forced, p.interrupted, p.delay, p.fill} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register throttler metrics: %w", err)
		}
	}
	return p, nil
}

func (p *Prometheus) Observe(ev throttler.Event) {
	labels := prometheus.Labels{"throttler": ev.Throttler, "kind": ev.Kind.String()}

	if ev.Interrupted {
		p.interrupted.With(labels).Inc()
		return
	}

	p.admitted.With(labels).Inc()
	if ev.Forced {
		p.forced.With(labels).Inc()
	}
	p.delay.With(labels).Observe(ev.Delay.Seconds())

	occupancy := ev.Occupancy + 1
	if ev.Forced {
		// the oldest entry was evicted to make room
		occupancy--
	}
	if ev.Capacity > 0 {
		p.fill.With(labels).Set(float64(occupancy) / float64(ev.Capacity))
	}
}
