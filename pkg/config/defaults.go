package config

import (
	"fmt"
	"os"
	"time"
)

// Default values for configuration.
const (
	DefaultFormat = "combined"
	DefaultOutput = OutputJSON

	DefaultWebhookTimeout = 10 * time.Second
)

// Environment variable names.
const (
	EnvFormat = "LOGREADER_FORMAT"
	EnvOutput = "LOGREADER_OUTPUT"
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Format:  DefaultFormat,
		Formats: map[string]string{},
		Sources: []string{},
		Output:  DefaultOutput,
	}
}

// Default returns DefaultConfig with environment overrides applied and
// validated. It is used when no config file is given.
func Default() (*Config, error) {
	cfg := DefaultConfig()
	cfg.applyEnvironmentOverrides()
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// applyEnvironmentOverrides applies environment variable overrides to the config.
func (c *Config) applyEnvironmentOverrides() {
	if format := os.Getenv(EnvFormat); format != "" {
		c.Format = format
	}
	if output := os.Getenv(EnvOutput); output != "" {
		c.Output = output
	}
}
