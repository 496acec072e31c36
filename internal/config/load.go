package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lowc1012/nanothrottler/throttler"
)

// Load reads the YAML file at path, applies defaults and environment
// overrides, then validates the result. Environment variables follow the
// naming convention NANOTHROTTLER_SECTION_FIELD and take precedence over the
// file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}
	return Parse(data)
}

// Parse is Load without the file read.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	ApplyDefaults(cfg)
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides. Unlike values
// from the file, a malformed override is reported rather than ignored.
func applyEnvOverrides(cfg *Config) error {
	if val := os.Getenv("NANOTHROTTLER_SERVER_LISTEN_ADDRESS"); val != "" {
		cfg.Server.ListenAddress = val
	}
	if val := os.Getenv("NANOTHROTTLER_THROTTLE_KIND"); val != "" {
		kind, err := throttler.ParseKind(val)
		if err != nil {
			return fmt.Errorf("NANOTHROTTLER_THROTTLE_KIND: %w", err)
		}
		cfg.Throttle.Kind = kind
	}
	if val := os.Getenv("NANOTHROTTLER_THROTTLE_PERIOD"); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("NANOTHROTTLER_THROTTLE_PERIOD: %w", err)
		}
		cfg.Throttle.Period = d
	}
	if val := os.Getenv("NANOTHROTTLER_THROTTLE_CAPACITY"); val != "" {
		i, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("NANOTHROTTLER_THROTTLE_CAPACITY: %w", err)
		}
		cfg.Throttle.Capacity = i
	}
	if val := os.Getenv("NANOTHROTTLER_THROTTLE_GAMMA"); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("NANOTHROTTLER_THROTTLE_GAMMA: %w", err)
		}
		cfg.Throttle.Gamma = f
	}
	if val := os.Getenv("NANOTHROTTLER_REDIS_ADDRESS"); val != "" {
		cfg.Redis.Address = val
	}
	if val := os.Getenv("NANOTHROTTLER_LOG_LEVEL"); val != "" {
		cfg.Logging.Level = val
	}
	return nil
}
