package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ccollicutt/logreader/pkg/logformat"
)

func TestLoad_ValidConfig(t *testing.T) {
	content := `
format: vhost
formats:
  vhost: '%h %u %t "%r" %>s %b "%{Host}i"'
sources:
  - /var/log/nginx/*.log
output: text
skip_errors: true
`
	path := writeTempFile(t, "config.yaml", content)
	cfg, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Format != "vhost" {
		t.Errorf("Format = %q, want vhost", cfg.Format)
	}
	if len(cfg.Sources) != 1 {
		t.Errorf("Sources = %d, want 1", len(cfg.Sources))
	}
	if cfg.Output != OutputText {
		t.Errorf("Output = %q, want text", cfg.Output)
	}
	if !cfg.SkipErrors {
		t.Error("SkipErrors = false, want true")
	}
	if cfg.Plan() == nil {
		t.Fatal("Plan() is nil after Load")
	}
	want := []string{"ips", "username", "time", "method", "path", "protocol", "status", "size", "Host"}
	if got := cfg.Plan().Fields(); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Plan().Fields() = %v, want %v", got, want)
	}
}

func TestLoad_Defaults(t *testing.T) {
	path := writeTempFile(t, "empty.yaml", "sources: []\n")
	cfg, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Format != DefaultFormat || cfg.Output != DefaultOutput {
		t.Errorf("Format = %q Output = %q, want defaults", cfg.Format, cfg.Output)
	}
	if cfg.Plan().Format() != logformat.Combined {
		t.Errorf("Plan().Format() = %q, want combined", cfg.Plan().Format())
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load(context.Background(), "/nonexistent/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	content := `invalid: yaml: content: [`
	path := writeTempFile(t, "invalid.yaml", content)
	_, err := Load(context.Background(), path)
	if err == nil {
		t.Error("Load() expected error for invalid YAML")
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv(EnvFormat, "common")
	t.Setenv(EnvOutput, "text")

	path := writeTempFile(t, "config.yaml", "format: combined\noutput: json\n")
	cfg, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Format != "common" {
		t.Errorf("Format = %q, want common", cfg.Format)
	}
	if cfg.Output != OutputText {
		t.Errorf("Output = %q, want text", cfg.Output)
	}
	if cfg.Plan().Format() != logformat.Common {
		t.Errorf("Plan().Format() = %q, want common", cfg.Plan().Format())
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *Config
		wantErr string
	}{
		{
			name: "built-in name",
			cfg:  &Config{Format: "common", Output: OutputJSON},
		},
		{
			name: "literal format",
			cfg:  &Config{Format: `%h "%r"`, Output: OutputText},
		},
		{
			name: "named format",
			cfg: &Config{
				Format:  "mine",
				Formats: map[string]string{"mine": "%u %b"},
				Output:  OutputJSON,
			},
		},
		{
			name:    "empty format",
			cfg:     &Config{Output: OutputJSON},
			wantErr: "format",
		},
		{
			name:    "bad literal format",
			cfg:     &Config{Format: `"%r`, Output: OutputJSON},
			wantErr: "format",
		},
		{
			name: "bad named format",
			cfg: &Config{
				Format:  "combined",
				Formats: map[string]string{"broken": "%q"},
				Output:  OutputJSON,
			},
			wantErr: "formats.broken",
		},
		{
			name:    "bad output",
			cfg:     &Config{Format: "combined", Output: "xml"},
			wantErr: "output",
		},
		{
			name:    "empty source",
			cfg:     &Config{Format: "combined", Output: OutputJSON, Sources: []string{""}},
			wantErr: "sources[0]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				if tt.cfg.Plan() == nil {
					t.Error("Plan() is nil after Validate")
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_Webhooks(t *testing.T) {
	t.Setenv("LOGREADER_TEST_TOKEN", "s3cret")
	content := `
format: common
webhooks:
  - name: ops
    url: https://hooks.example.com/logreader
    token: ${LOGREADER_TEST_TOKEN}
    trigger: always
    timeout: 3s
  - url: http://localhost:8080/hook
`
	path := writeTempFile(t, "config.yaml", content)
	cfg, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(cfg.Webhooks) != 2 {
		t.Fatalf("Webhooks = %d, want 2", len(cfg.Webhooks))
	}

	ops := cfg.Webhooks[0]
	if ops.Token != "s3cret" || ops.Trigger != WebhookTriggerAlways || ops.Timeout != 3*time.Second {
		t.Errorf("Unexpected webhook: %+v", ops)
	}

	local := cfg.Webhooks[1]
	if local.Trigger != WebhookTriggerOnErrors || local.Timeout != DefaultWebhookTimeout {
		t.Errorf("Defaults not applied: %+v", local)
	}
	if local.DisplayName() != "http://localhost:8080/hook" {
		t.Errorf("DisplayName() = %q", local.DisplayName())
	}
}

func TestValidateWebhook(t *testing.T) {
	tests := []struct {
		name    string
		wh      WebhookConfig
		wantErr string
	}{
		{name: "valid", wh: WebhookConfig{URL: "https://example.com/hook"}},
		{name: "missing url", wh: WebhookConfig{Name: "x"}, wantErr: "url is required"},
		{name: "bad scheme", wh: WebhookConfig{URL: "ftp://example.com/hook"}, wantErr: "scheme"},
		{name: "no host", wh: WebhookConfig{URL: "http:///hook"}, wantErr: "host"},
		{name: "bad trigger", wh: WebhookConfig{URL: "https://example.com", Trigger: "sometimes"}, wantErr: "invalid trigger"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateWebhook(&tt.wh)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("ValidateWebhook() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("ValidateWebhook() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_WebhookErrorNamesHook(t *testing.T) {
	cfg := &Config{
		Format:   "combined",
		Output:   OutputJSON,
		Webhooks: []WebhookConfig{{Name: "ops", URL: "ftp://example.com"}},
	}
	err := Validate(cfg)
	if err == nil || !strings.Contains(err.Error(), "webhooks[0] (ops)") {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestValidate_FormatErrorIsWrapped(t *testing.T) {
	err := Validate(&Config{Format: "%x", Output: OutputJSON})
	var fe *logformat.FormatError
	if !errors.As(err, &fe) {
		t.Errorf("Validate() error = %v, want *logformat.FormatError in chain", err)
	}
}

func TestValidate_ExpandsSources(t *testing.T) {
	t.Setenv("LOGREADER_TEST_DIR", "/srv/logs")
	cfg := &Config{Format: "combined", Output: OutputJSON, Sources: []string{"${LOGREADER_TEST_DIR}/access.log"}}
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if cfg.Sources[0] != "/srv/logs/access.log" {
		t.Errorf("Sources[0] = %q", cfg.Sources[0])
	}
}

func TestResolveFormat(t *testing.T) {
	cfg := &Config{Formats: map[string]string{"common": "%h", "mine": "%u"}}

	tests := []struct {
		name string
		want string
	}{
		{"combined", logformat.Combined},
		{"common", "%h"}, // config names shadow built-ins
		{"mine", "%u"},
		{`%h %b`, `%h %b`},
	}
	for _, tt := range tests {
		if got := cfg.ResolveFormat(tt.name); got != tt.want {
			t.Errorf("ResolveFormat(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg == nil {
		t.Fatal("DefaultConfig() returned nil")
	}
	if cfg.Format == "" {
		t.Error("DefaultConfig() has empty format")
	}
	if cfg.Output == "" {
		t.Error("DefaultConfig() has empty output")
	}
}

func TestDefault(t *testing.T) {
	cfg, err := Default()
	if err != nil {
		t.Fatalf("Default() error = %v", err)
	}
	if cfg.Plan() == nil {
		t.Error("Default() returned config without a plan")
	}

	t.Setenv(EnvOutput, "xml")
	if _, err := Default(); err == nil {
		t.Error("Default() expected error for bad environment override")
	}
}

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing temp file: %v", err)
	}
	return path
}
