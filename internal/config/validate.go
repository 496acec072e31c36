package config

import (
	"fmt"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap/zapcore"
)

// FieldError reports a problem with one configuration field.
type FieldError struct {
	// Field is the dotted path to the field, e.g. "throttle.capacity".
	Field   string
	Message string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the whole configuration and returns every problem found,
// combined with multierr.
func Validate(cfg *Config) error {
	var errs error

	if cfg.Server.ListenAddress == "" {
		errs = multierr.Append(errs, FieldError{"server.listen_address", "must not be empty"})
	}
	if cfg.Server.MaxWait <= 0 {
		errs = multierr.Append(errs, FieldError{"server.max_wait", "must be positive"})
	}
	for i, h := range cfg.Server.KeyHeaders {
		if strings.TrimSpace(h) == "" {
			errs = multierr.Append(errs, FieldError{fmt.Sprintf("server.key_headers[%d]", i), "must not be blank"})
		}
	}

	if err := cfg.Throttle.Throttler().Validate(); err != nil {
		errs = multierr.Append(errs, FieldError{"throttle", err.Error()})
	}
	if cfg.Throttle.MaxKeys < 0 {
		errs = multierr.Append(errs, FieldError{"throttle.max_keys", "must not be negative"})
	}
	if cfg.Throttle.IdleTTL <= 0 {
		errs = multierr.Append(errs, FieldError{"throttle.idle_ttl", "must be positive"})
	}

	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = multierr.Append(errs, FieldError{"metrics.path", "must start with /"})
	}

	if cfg.Redis.Address != "" && cfg.Redis.FlushInterval <= 0 {
		errs = multierr.Append(errs, FieldError{"redis.flush_interval", "must be positive"})
	}

	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Logging.Level)); err != nil {
		errs = multierr.Append(errs, FieldError{"logging.level", err.Error()})
	}

	return errs
}
