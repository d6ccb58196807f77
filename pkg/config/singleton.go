package config

import (
	"fmt"
	"sync/atomic"
)

// current is the process configuration published by Initialize.
var current atomic.Pointer[Config]

// Override adjusts a loaded configuration before it is validated, for
// example to apply command-line flags.
type Override func(*Config)

// Initialize loads path with environment overrides, applies overrides,
// validates the result and publishes it as the process configuration. A
// failed call leaves the published configuration unchanged. An empty path
// loads defaults plus environment overrides.
func Initialize(path string, overrides ...Override) (*Config, error) {
	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		return nil, err
	}
	if len(overrides) > 0 {
		for _, o := range overrides {
			o(cfg)
		}
		if err := Validate(cfg); err != nil {
			return nil, fmt.Errorf("configuration validation failed: %w", err)
		}
	}
	current.Store(cfg)
	return cfg, nil
}

// GetConfig returns the published configuration, or nil before a successful
// Initialize. Packages below cmd/ receive explicit config values instead.
func GetConfig() *Config {
	return current.Load()
}

// SetConfig publishes cfg without loading or validating it.
func SetConfig(cfg *Config) {
	current.Store(cfg)
}

// MustGetConfig returns the published configuration and panics if there is
// none.
func MustGetConfig() *Config {
	cfg := GetConfig()
	if cfg == nil {
		panic("configuration not initialized: call Initialize first")
	}
	return cfg
}
