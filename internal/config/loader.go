package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if PITCHLINE_CONFIG is set
//  3. env (prefix PITCHLINE_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("PITCHLINE_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: PITCHLINE_ADDR, PITCHLINE_MAX_CONCURRENT, ...
	// Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider("PITCHLINE_", ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, "pitchline_")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.MaxConcurrent < 1:
		return fmt.Errorf("%w: max_concurrent must be positive", ErrInvalidConfig)
	case c.BacklogLimit < 0:
		return fmt.Errorf("%w: backlog_limit must not be negative", ErrInvalidConfig)
	case c.TickRate < 1:
		return fmt.Errorf("%w: tick_rate must be positive", ErrInvalidConfig)
	case c.ThrottleWindowMS < 1 || c.ThrottleMaxRequests < 1:
		return fmt.Errorf("%w: throttle window and max requests must be positive", ErrInvalidConfig)
	case c.SubscriberBuffer < 1:
		return fmt.Errorf("%w: subscriber_buffer must be positive", ErrInvalidConfig)
	case c.StreamRetentionS < 0:
		return fmt.Errorf("%w: stream_retention_s must not be negative", ErrInvalidConfig)
	}
	return nil
}
