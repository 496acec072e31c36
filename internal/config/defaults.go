package config

import "time"

// Default values for configuration fields.
const (
	DefaultListenAddress = "localhost:8080"
	DefaultMaxWait       = 5 * time.Second

	DefaultThrottlePeriod   = time.Second
	DefaultThrottleCapacity = 10
	DefaultThrottleName     = "http"
	DefaultIdleTTL          = 10 * time.Minute

	DefaultMetricsPath      = "/metrics"
	DefaultMetricsNamespace = "nanothrottler"

	DefaultRedisKeyPrefix     = "nanothrottler:"
	DefaultRedisFlushInterval = 10 * time.Second

	DefaultLogLevel = "info"
)

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{Metrics: MetricsConfig{Enabled: true}}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills in zero-valued fields. The throttle kind defaults to
// burst because that is the zero Kind.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.MaxWait == 0 {
		cfg.Server.MaxWait = DefaultMaxWait
	}

	if cfg.Throttle.Period == 0 {
		cfg.Throttle.Period = DefaultThrottlePeriod
	}
	if cfg.Throttle.Capacity == 0 {
		cfg.Throttle.Capacity = DefaultThrottleCapacity
	}
	if cfg.Throttle.Name == "" {
		cfg.Throttle.Name = DefaultThrottleName
	}
	if cfg.Throttle.IdleTTL == 0 {
		cfg.Throttle.IdleTTL = DefaultIdleTTL
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}

	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = DefaultRedisKeyPrefix
	}
	if cfg.Redis.FlushInterval == 0 {
		cfg.Redis.FlushInterval = DefaultRedisFlushInterval
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLogLevel
	}
}
