// Package config provides configuration loading and validation for logreader.
package config

import (
	"time"

	"github.com/ccollicutt/logreader/pkg/logformat"
)

// Output formats understood by the parse command.
const (
	OutputJSON = "json"
	OutputText = "text"
)

// Config is the root configuration structure loaded from YAML.
type Config struct {
	// Format is the LogFormat used for every source. It may be a built-in
	// name (combined, common, ...), a key of Formats, or a literal
	// LogFormat string.
	Format string `yaml:"format"`

	// Formats defines named custom LogFormat strings.
	Formats map[string]string `yaml:"formats,omitempty"`

	// Sources lists log files or glob patterns. Environment variables
	// are expanded.
	Sources []string `yaml:"sources,omitempty"`

	// Output is the record output format (json or text).
	Output string `yaml:"output"`

	// SkipErrors logs unparseable lines and continues instead of failing.
	SkipErrors bool `yaml:"skip_errors"`

	// Webhooks receive the run summary after a parse.
	Webhooks []WebhookConfig `yaml:"webhooks,omitempty"`

	// compiledPlan is the plan for Format (populated during validation).
	compiledPlan *logformat.Plan
}

// Plan returns the compiled plan for Format.
func (c *Config) Plan() *logformat.Plan {
	return c.compiledPlan
}

// WebhookTrigger determines when a webhook fires.
type WebhookTrigger string

const (
	// WebhookTriggerOnErrors fires only when some lines failed to parse (default).
	WebhookTriggerOnErrors WebhookTrigger = "on_errors"
	// WebhookTriggerAlways fires after every parse.
	WebhookTriggerAlways WebhookTrigger = "always"
	// WebhookTriggerNever disables the webhook.
	WebhookTriggerNever WebhookTrigger = "never"
)

// WebhookConfig defines an endpoint that receives the parse summary.
type WebhookConfig struct {
	Name string `yaml:"name,omitempty"`

	// URL is the http(s) endpoint (required).
	URL string `yaml:"url"`

	// Token is sent as a bearer token. Environment variables are expanded.
	Token string `yaml:"token,omitempty"`

	Trigger WebhookTrigger `yaml:"trigger,omitempty"`
	Timeout time.Duration  `yaml:"timeout,omitempty"`
}

// DisplayName returns Name, or URL when no name is set.
func (w WebhookConfig) DisplayName() string {
	if w.Name != "" {
		return w.Name
	}
	return w.URL
}
