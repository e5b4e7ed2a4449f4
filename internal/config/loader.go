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
//  2. file (YAML) if COURTSIDE_CONFIG is set
//  3. env (prefix COURTSIDE_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("COURTSIDE_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
		}
	}

	// Environment variables: COURTSIDE_ADDR, COURTSIDE_STORE_BACKEND, ...
	// Keys keep their underscores to match the koanf struct tags.
	envProvider := env.Provider("COURTSIDE_", ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, "courtside_")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	switch c.StoreBackend {
	case "memory", "redis", "postgres":
	default:
		return fmt.Errorf("%w: unknown store_backend %q", ErrInvalidConfig, c.StoreBackend)
	}
	if c.StoreBackend == "postgres" && c.PostgresDSN == "" {
		return fmt.Errorf("%w: postgres_dsn required for the postgres backend", ErrInvalidConfig)
	}
	switch c.BlockedPolicy {
	case "resync", "disconnect":
	default:
		return fmt.Errorf("%w: unknown blocked_policy %q", ErrInvalidConfig, c.BlockedPolicy)
	}
	if c.ToleranceSeconds < 0 {
		return fmt.Errorf("%w: tolerance_seconds must not be negative", ErrInvalidConfig)
	}
	if c.LockTimeoutMS <= 0 {
		return fmt.Errorf("%w: lock_timeout_ms must be positive", ErrInvalidConfig)
	}
	return nil
}
