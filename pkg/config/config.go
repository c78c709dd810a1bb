package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ccollicutt/logreader/pkg/detector"
	"github.com/ccollicutt/logreader/pkg/logformat"
)

// Load reads and validates a configuration file.
func Load(_ context.Context, path string) (*Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- user-provided config path is expected
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyEnvironmentOverrides()

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Validate checks a configuration for errors and compiles every format.
func Validate(cfg *Config) error {
	for name, format := range cfg.Formats {
		if name == "" {
			return errors.New("formats: format name must not be empty")
		}
		if _, err := logformat.Compile(format); err != nil {
			return fmt.Errorf("formats.%s: %w", name, err)
		}
	}

	if cfg.Format == "" {
		return errors.New("format: a log format is required")
	}
	plan, err := cfg.CompileFormat(cfg.Format)
	if err != nil {
		return fmt.Errorf("format: %w", err)
	}
	cfg.compiledPlan = plan

	switch cfg.Output {
	case OutputJSON, OutputText:
	default:
		return fmt.Errorf("output: invalid value %q (must be json or text)", cfg.Output)
	}

	for i, src := range cfg.Sources {
		if src == "" {
			return fmt.Errorf("sources[%d]: empty source", i)
		}
		cfg.Sources[i] = os.ExpandEnv(src)
	}

	for i := range cfg.Webhooks {
		if err := ValidateWebhook(&cfg.Webhooks[i]); err != nil {
			return fmt.Errorf("webhooks[%d] (%s): %w", i, cfg.Webhooks[i].DisplayName(), err)
		}
	}

	return nil
}

// ValidateWebhook checks wh and fills in the default trigger and timeout.
func ValidateWebhook(wh *WebhookConfig) error {
	if wh.URL == "" {
		return errors.New("url is required")
	}

	u, err := url.Parse(wh.URL)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("url must have a host")
	}

	wh.Token = os.ExpandEnv(wh.Token)

	switch wh.Trigger {
	case "":
		wh.Trigger = WebhookTriggerOnErrors
	case WebhookTriggerOnErrors, WebhookTriggerAlways, WebhookTriggerNever:
	default:
		return fmt.Errorf("invalid trigger %q (must be on_errors, always, or never)", wh.Trigger)
	}

	if wh.Timeout <= 0 {
		wh.Timeout = DefaultWebhookTimeout
	}
	return nil
}

// ResolveFormat maps a format name to its LogFormat string. Names defined
// in Formats take precedence over built-in names; anything else is
// returned unchanged as a literal LogFormat string.
func (c *Config) ResolveFormat(name string) string {
	if format, ok := c.Formats[name]; ok {
		return format
	}
	if known, ok := detector.Lookup(name); ok {
		return known.Format
	}
	return name
}

// CompileFormat resolves name and compiles it.
func (c *Config) CompileFormat(name string) (*logformat.Plan, error) {
	return logformat.Compile(c.ResolveFormat(name))
}
