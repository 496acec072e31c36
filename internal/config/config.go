// Package config loads the server configuration from YAML with environment
// overrides, and watches the file for changes.
package config

import (
	"time"

	"github.com/lowc1012/nanothrottler/throttler"
)

// Config is the root of the server configuration file.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Throttle ThrottleConfig `yaml:"throttle"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Redis    RedisConfig    `yaml:"redis"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	ListenAddress string `yaml:"listen_address"`
	// MaxWait bounds how long a request may be held before it is answered
	// with 429.
	MaxWait time.Duration `yaml:"max_wait"`
	// KeyHeaders are joined to form the throttling key. The client address is
	// used when a header is missing.
	KeyHeaders []string `yaml:"key_headers"`
}

type ThrottleConfig struct {
	Kind     throttler.Kind `yaml:"kind"`
	Period   time.Duration  `yaml:"period"`
	Capacity int            `yaml:"capacity"`
	Gamma    float64        `yaml:"gamma"`
	Name     string         `yaml:"name"`
	// MaxKeys caps the number of tracked clients. Zero means unlimited.
	MaxKeys int           `yaml:"max_keys"`
	IdleTTL time.Duration `yaml:"idle_ttl"`
}

// Throttler returns the per-key throttler configuration.
func (t ThrottleConfig) Throttler() throttler.Config {
	return throttler.Config{
		Kind:     t.Kind,
		Period:   t.Period,
		Capacity: t.Capacity,
		Gamma:    t.Gamma,
		Name:     t.Name,
	}
}

type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Path      string `yaml:"path"`
	Namespace string `yaml:"namespace"`
}

// RedisConfig enables the Redis stats sink when Address is set.
type RedisConfig struct {
	Address       string        `yaml:"address"`
	KeyPrefix     string        `yaml:"key_prefix"`
	FlushInterval time.Duration `yaml:"flush_interval"`
}

type LoggingConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}
