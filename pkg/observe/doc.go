// Package observe provides throttler.Observer implementations that export
// admission events as Prometheus metrics, Redis counters and log entries.
//
// Combine several with throttler.Observers:
//
//	prom, _ := observe.NewPrometheus(registry, "nanothrottler")
//	obs := throttler.Observers(prom, observe.NewLogging(logger))
//	t, _ := throttler.NewGamma(time.Second, 15, throttler.WithObserver(obs))
package observe
