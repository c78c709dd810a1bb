package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ccollicutt/logreader/pkg/detector"
)

const (
	commonLogLine   = `127.0.0.1 - frank [10/Oct/2000:13:55:36 -0700] "GET /apache_pb.gif HTTP/1.0" 200 2326`
	combinedLogLine = commonLogLine + ` "http://www.example.com/start.html" "Mozilla/4.08 [en] (Win98; I ;Nav)"`
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}

func TestNewParseCommand(t *testing.T) {
	cmd := NewParseCommand()

	if cmd.Use != "parse [log-file...]" {
		t.Errorf("Unexpected Use: %s", cmd.Use)
	}

	flags := []string{"config", "format", "output", "fields", "skip-errors", "keep-blank", "merge", "summary", "quiet", "webhook-url", "webhook-token", "webhook-trigger"}
	for _, flag := range flags {
		if cmd.Flags().Lookup(flag) == nil {
			t.Errorf("Missing flag: %s", flag)
		}
	}
}

func TestNewValidateCommand(t *testing.T) {
	cmd := NewValidateCommand()

	if cmd.Use != "validate [config-file]" {
		t.Errorf("Unexpected Use: %s", cmd.Use)
	}
	if !strings.Contains(cmd.Long, "Validate") {
		t.Error("Missing description in Long")
	}
}

func TestNewVersionCommand(t *testing.T) {
	cmd := NewVersionCommand()

	if cmd.Use != "version" {
		t.Errorf("Unexpected Use: %s", cmd.Use)
	}

	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetArgs(nil)
	if err := cmd.Execute(); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "logreader dev\n" {
		t.Errorf("version output = %q", buf.String())
	}
}

func TestRunValidate_Success(t *testing.T) {
	logPath := writeFile(t, "access.log", commonLogLine+"\n")
	config := `format: vhost
formats:
  vhost: '%h %u %t "%r" %>s %b "%{Host}i"'
sources:
  - ` + logPath + `
output: text
`
	configPath := writeFile(t, "config.yaml", config)

	cmd := NewValidateCommand()
	cmd.SetArgs([]string{configPath})
	var buf bytes.Buffer
	cmd.SetOut(&buf)

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	output := buf.String()
	for _, want := range []string{
		"Configuration valid!",
		"Format:      vhost",
		"Fields:    ips, username, time, method, path, protocol, status, size, Host",
		"Named formats:",
		"Log files matched: 1",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("Output missing %q:\n%s", want, output)
		}
	}
}

func TestRunValidate_InvalidConfig(t *testing.T) {
	configPath := writeFile(t, "config.yaml", "format: '\"%r'\n")

	cmd := NewValidateCommand()
	cmd.SetArgs([]string{configPath})
	cmd.SetOut(&bytes.Buffer{})

	err := cmd.ExecuteContext(context.Background())
	if err == nil || !strings.Contains(err.Error(), "validation failed") {
		t.Errorf("Expected validation error, got %v", err)
	}
}

func TestRunValidate_MissingFile(t *testing.T) {
	cmd := NewValidateCommand()
	cmd.SetArgs([]string{"/nonexistent/config.yaml"})
	cmd.SetOut(&bytes.Buffer{})

	if err := cmd.ExecuteContext(context.Background()); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestRunValidate_Format(t *testing.T) {
	tests := []struct {
		name    string
		format  string
		want    string
		wantErr bool
	}{
		{name: "built-in", format: "common", want: "Fields:    ips, logname, username, time, method, path, protocol, status, size"},
		{name: "literal", format: `%u "%{X-Request-Id}i"`, want: "Fields:    username, X-Request-Id"},
		{name: "invalid", format: "%Z", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := NewValidateCommand()
			cmd.SetArgs([]string{"--format", tt.format})
			var buf bytes.Buffer
			cmd.SetOut(&buf)

			err := cmd.ExecuteContext(context.Background())
			if tt.wantErr {
				if err == nil {
					t.Error("Expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if !strings.Contains(buf.String(), tt.want) {
				t.Errorf("Output missing %q:\n%s", tt.want, buf.String())
			}
		})
	}
}

func TestRunValidate_NoInput(t *testing.T) {
	cmd := NewValidateCommand()
	cmd.SetArgs(nil)
	cmd.SetOut(&bytes.Buffer{})

	if err := cmd.ExecuteContext(context.Background()); err == nil {
		t.Error("Expected error with neither config file nor --format")
	}
}

func TestOutputDetectText_NoMatch(t *testing.T) {
	result := &detector.DetectionResult{
		Matches:      []detector.FormatMatch{},
		SampledLines: 100,
	}

	var buf bytes.Buffer
	if err := outputDetectText(&buf, result, "/test/access.log", &DetectOptions{}); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "No known log format detected") {
		t.Error("Expected 'No known log format detected' message")
	}
}

func TestOutputDetectText_WithMatch(t *testing.T) {
	result := detector.New().DetectFromLines([]string{combinedLogLine, "garbage"})

	var buf bytes.Buffer
	if err := outputDetectText(&buf, result, "/test/access.log", &DetectOptions{}); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}

	output := buf.String()
	for _, want := range []string{
		"Detected Format: combined",
		"50.0%",
		"format: combined",
		"user-agent Mozilla/4.08 [en] (Win98; I ;Nav)",
		"Note: 1 of 2 sampled lines",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("Output missing %q:\n%s", want, output)
		}
	}
}

func TestOutputDetectText_ShowAll(t *testing.T) {
	result := detector.New().DetectFromLines([]string{combinedLogLine, commonLogLine})

	var buf bytes.Buffer
	if err := outputDetectText(&buf, result, "/test/access.log", &DetectOptions{ShowAll: true}); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "Alternative formats detected") {
		t.Errorf("Expected alternatives section:\n%s", buf.String())
	}
}

func TestOutputDetectJSON(t *testing.T) {
	result := detector.New().DetectFromLines([]string{combinedLogLine, commonLogLine})

	var buf bytes.Buffer
	if err := outputDetectJSON(&buf, result, "/test/access.log", &DetectOptions{}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	var parsed JSONOutput
	if err := json.Unmarshal(buf.Bytes(), &parsed); err != nil {
		t.Fatalf("Invalid JSON output: %v", err)
	}
	if parsed.File != "/test/access.log" {
		t.Errorf("File = %q", parsed.File)
	}
	if len(parsed.Matches) != 1 {
		t.Fatalf("Expected only the best match, got %d", len(parsed.Matches))
	}
	if parsed.Matches[0].Confidence != 0.5 || parsed.SampledLines != 2 {
		t.Errorf("Unexpected match: %+v", parsed)
	}
	if len(parsed.Matches[0].Fields) == 0 {
		t.Error("Expected field list in JSON output")
	}
}

func TestRunDetect_MissingFile(t *testing.T) {
	cmd := NewDetectCommand()
	cmd.SetArgs([]string{"/nonexistent/file.log"})

	if err := cmd.ExecuteContext(context.Background()); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestRunDetect_Success(t *testing.T) {
	logPath := writeFile(t, "access.log", combinedLogLine+"\n"+combinedLogLine+"\n")

	cmd := NewDetectCommand()
	cmd.SetArgs([]string{logPath})
	var buf bytes.Buffer
	cmd.SetOut(&buf)

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Errorf("Detect failed: %v", err)
	}
	if !strings.Contains(buf.String(), "Detected Format: combined") {
		t.Errorf("Unexpected output:\n%s", buf.String())
	}
}

func TestRunDetect_JSONOutput(t *testing.T) {
	logPath := writeFile(t, "access.log", commonLogLine+"\n")

	cmd := NewDetectCommand()
	cmd.SetArgs([]string{"-o", "json", logPath})
	var buf bytes.Buffer
	cmd.SetOut(&buf)

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Errorf("Detect with JSON output failed: %v", err)
	}
	if !json.Valid(buf.Bytes()) {
		t.Errorf("Output is not valid JSON:\n%s", buf.String())
	}
}

func TestRunDetect_WriteConfig(t *testing.T) {
	logPath := writeFile(t, "access.log", commonLogLine+"\n")
	configPath := filepath.Join(t.TempDir(), "output.yaml")

	cmd := NewDetectCommand()
	cmd.SetArgs([]string{"--write-config", configPath, logPath})
	cmd.SetOut(&bytes.Buffer{})

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Errorf("Detect with write-config failed: %v", err)
	}

	// The generated config must load and use the detected format.
	validate := NewValidateCommand()
	validate.SetArgs([]string{configPath})
	var buf bytes.Buffer
	validate.SetOut(&buf)
	if err := validate.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("Generated config does not validate: %v", err)
	}
	if !strings.Contains(buf.String(), "Format:      common") {
		t.Errorf("Unexpected validate output:\n%s", buf.String())
	}
}
