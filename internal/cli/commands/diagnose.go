package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ccollicutt/logreader/pkg/config"
	"github.com/ccollicutt/logreader/pkg/detector"
	"github.com/ccollicutt/logreader/pkg/logformat"
	"github.com/ccollicutt/logreader/pkg/matcher"
	"github.com/ccollicutt/logreader/pkg/reader"

	"github.com/spf13/cobra"
)

// diagnoseSampleLines is how many lines of each source the format test reads.
const diagnoseSampleLines = 10

// DiagnoseOptions holds options for the diagnose command
type DiagnoseOptions struct {
	Verbose bool
}

// DiagnosticResult represents the result of a single diagnostic check
type DiagnosticResult struct {
	Check    string
	Status   string // "ok", "warning", "error"
	Message  string
	Details  []string
	Suggests []string
}

// NewDiagnoseCommand creates the diagnose command
func NewDiagnoseCommand() *cobra.Command {
	opts := &DiagnoseOptions{}

	cmd := &cobra.Command{
		Use:   "diagnose <config-file>",
		Short: "Diagnose common configuration issues",
		Long: `Diagnose common configuration issues.

This command checks your configuration file for common problems:
- Config file syntax and structure
- Log source file existence and accessibility
- The configured format parsing actual lines from each source

When lines fail to parse, the offending line, field and cause are shown
and a known format that fits the file is suggested.

Example:
  logreader diagnose logreader.yaml
  logreader diagnose -v logreader.yaml  # verbose output`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return runDiagnose(ctx, cmd.OutOrStdout(), args[0], opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Show detailed diagnostic output")

	return cmd
}

func runDiagnose(ctx context.Context, w io.Writer, configPath string, opts *DiagnoseOptions) error {
	results := []DiagnosticResult{}

	// 1. Check config file existence
	result := checkConfigExists(configPath)
	results = append(results, result)
	if result.Status == "error" {
		printDiagnostics(w, results, opts)
		return nil
	}

	// 2. Parse config file
	cfg, result := checkConfigParseable(ctx, configPath)
	results = append(results, result)
	if result.Status == "error" {
		printDiagnostics(w, results, opts)
		return nil
	}

	// 3. Check formats
	results = append(results, checkFormats(cfg, opts)...)

	// 4. Check log sources
	results = append(results, checkLogSources(cfg)...)

	// 5. Check the format against actual logs
	results = append(results, checkFormatAgainstLogs(ctx, cfg, opts)...)

	// 6. Check webhooks
	results = append(results, checkWebhooks(cfg, opts)...)

	printDiagnostics(w, results, opts)
	return nil
}

func checkConfigExists(path string) DiagnosticResult {
	result := DiagnosticResult{
		Check: "Config File",
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		result.Status = "error"
		result.Message = fmt.Sprintf("Config file not found: %s", path)
		result.Suggests = []string{
			"Check the file path is correct",
			"Use 'logreader detect <log-file> --write-config logreader.yaml' to generate a starter config",
		}
		return result
	}
	if err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("Cannot access config file: %v", err)
		result.Suggests = []string{"Check file permissions"}
		return result
	}
	if info.IsDir() {
		result.Status = "error"
		result.Message = "Path is a directory, not a file"
		return result
	}
	if info.Size() == 0 {
		result.Status = "error"
		result.Message = "Config file is empty"
		result.Suggests = []string{
			"Use 'logreader detect <log-file> --write-config logreader.yaml' to generate a starter config",
		}
		return result
	}

	result.Status = "ok"
	result.Message = fmt.Sprintf("Found: %s (%d bytes)", path, info.Size())
	return result
}

func checkConfigParseable(ctx context.Context, path string) (*config.Config, DiagnosticResult) {
	result := DiagnosticResult{
		Check: "Config Syntax",
	}

	cfg, err := config.Load(ctx, path)
	if err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("Failed to load config: %v", err)

		var fe *logformat.FormatError
		switch {
		case errors.As(err, &fe):
			result.Details = []string{
				fe.Format,
				strings.Repeat(" ", fe.Offset) + "^",
			}
			result.Suggests = []string{
				"Supported directives: %h %l %u %t %r %s %>s %b %{Header}i",
				"A directive wrapped in quotes needs both the opening and closing quote",
			}
		case strings.Contains(err.Error(), "yaml"):
			result.Suggests = []string{
				"Check YAML syntax - ensure proper indentation (use spaces, not tabs)",
				"Quote LogFormat strings with single quotes so % and \" survive YAML parsing",
			}
		}
		return nil, result
	}

	result.Status = "ok"
	result.Message = "Config file parsed successfully"
	result.Details = []string{
		fmt.Sprintf("Format: %s", cfg.Format),
		fmt.Sprintf("Named formats: %d", len(cfg.Formats)),
		fmt.Sprintf("Log sources: %d", len(cfg.Sources)),
	}
	return cfg, result
}

func checkFormats(cfg *config.Config, opts *DiagnoseOptions) []DiagnosticResult {
	results := []DiagnosticResult{{
		Check:   "Format",
		Status:  "ok",
		Message: fmt.Sprintf("%s compiles to %d fields", cfg.Format, cfg.Plan().NumFields()),
		Details: []string{
			fmt.Sprintf("LogFormat: %s", cfg.Plan().Format()),
			fmt.Sprintf("Fields: %s", strings.Join(cfg.Plan().Fields(), ", ")),
		},
	}}

	if !opts.Verbose {
		return results
	}

	names := make([]string, 0, len(cfg.Formats))
	for name := range cfg.Formats {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		plan, err := logformat.Compile(cfg.Formats[name])
		if err != nil {
			// Load already rejects this; kept for configs validated elsewhere.
			results = append(results, DiagnosticResult{
				Check:   fmt.Sprintf("Named Format: %s", name),
				Status:  "error",
				Message: err.Error(),
			})
			continue
		}
		results = append(results, DiagnosticResult{
			Check:   fmt.Sprintf("Named Format: %s", name),
			Status:  "ok",
			Message: fmt.Sprintf("%d fields", plan.NumFields()),
			Details: []string{strings.Join(plan.Fields(), ", ")},
		})
	}
	return results
}

func checkLogSources(cfg *config.Config) []DiagnosticResult {
	results := []DiagnosticResult{}

	if len(cfg.Sources) == 0 {
		results = append(results, DiagnosticResult{
			Check:   "Log Sources",
			Status:  "warning",
			Message: "No log sources defined; files must be given on the command line",
			Suggests: []string{
				"Add a sources section to your config",
				"Example: sources:\n  - /var/log/nginx/access.log*",
			},
		})
		return results
	}

	totalFiles := 0
	for _, source := range cfg.Sources {
		result := DiagnosticResult{
			Check: fmt.Sprintf("Log Source: %s", source),
		}

		// Check if it's a glob pattern
		if strings.ContainsAny(source, "*?[") {
			matches, err := reader.ExpandGlobs([]string{source})
			if err != nil {
				result.Status = "error"
				result.Message = fmt.Sprintf("Invalid glob pattern: %v", err)
			} else if len(matches) == 0 || (len(matches) == 1 && matches[0] == source) {
				result.Status = "warning"
				result.Message = "Glob pattern matches no files"
				result.Suggests = []string{
					"Check if the log files exist at this path",
					"Verify the glob pattern syntax",
				}
			} else {
				result.Status = "ok"
				result.Message = fmt.Sprintf("Matches %d file(s)", len(matches))
				result.Details = append(result.Details, matches...)
				totalFiles += len(matches)
			}
		} else {
			// Direct file path
			info, err := os.Stat(source)
			if os.IsNotExist(err) {
				result.Status = "error"
				result.Message = "File does not exist"
				result.Suggests = []string{
					"Check if the log file path is correct",
					"Use 'ls -la' to verify the file exists",
				}
			} else if err != nil {
				result.Status = "error"
				result.Message = fmt.Sprintf("Cannot access file: %v", err)
				result.Suggests = []string{"Check file permissions"}
			} else if info.IsDir() {
				result.Status = "error"
				result.Message = "Path is a directory, not a file"
				result.Suggests = []string{
					"Use a glob pattern to match files in directory",
					"Example: /var/log/nginx/*.log",
				}
			} else if info.Size() == 0 {
				result.Status = "warning"
				result.Message = "File is empty (0 bytes)"
			} else {
				result.Status = "ok"
				result.Message = fmt.Sprintf("File exists (%d bytes)", info.Size())
				totalFiles++
			}
		}
		results = append(results, result)
	}

	if totalFiles == 0 {
		results = append(results, DiagnosticResult{
			Check:   "Log Files Summary",
			Status:  "error",
			Message: "No accessible log files found",
			Suggests: []string{
				"Ensure at least one log file exists and is readable",
			},
		})
	}

	return results
}

// checkFormatAgainstLogs parses the head of the first readable source with
// the configured plan.
func checkFormatAgainstLogs(ctx context.Context, cfg *config.Config, opts *DiagnoseOptions) []DiagnosticResult {
	files, err := reader.ExpandGlobs(cfg.Sources)
	if err != nil {
		return nil
	}

	for _, logFile := range files {
		if info, err := os.Stat(logFile); err != nil || info.Size() == 0 {
			continue
		}

		result := DiagnosticResult{
			Check: fmt.Sprintf("Format Test: %s", filepath.Base(logFile)),
		}

		r, err := reader.New(reader.OwnedPath(logFile), reader.WithPlan(cfg.Plan()))
		if err != nil {
			result.Status = "warning"
			result.Message = fmt.Sprintf("Cannot read file: %v", err)
			return []DiagnosticResult{result}
		}

		matchCount, total := 0, 0
		var firstFail *matcher.LineParseError
		var sampleMatch string
		for total < diagnoseSampleLines {
			_, err := r.Next(ctx)
			if err == io.EOF {
				break
			}
			var lpe *matcher.LineParseError
			if errors.As(err, &lpe) {
				total++
				if firstFail == nil {
					firstFail = lpe
				}
				continue
			}
			if err != nil {
				result.Status = "warning"
				result.Message = fmt.Sprintf("Cannot read file: %v", err)
				break
			}
			total++
			matchCount++
			if sampleMatch == "" {
				sampleMatch = r.CurrentLine()
			}
		}
		_ = r.Close()

		if result.Status != "" {
			return []DiagnosticResult{result}
		}

		switch {
		case total == 0:
			result.Status = "warning"
			result.Message = "File has no non-blank lines"
		case matchCount == 0:
			result.Status = "error"
			result.Message = "Format parses no lines in log file"
			result.Suggests = []string{
				"The format may not match your log",
				"Use 'logreader detect " + logFile + "' to find a matching format",
			}
			if best := suggestFormat(ctx, logFile); best != nil {
				result.Suggests = append(result.Suggests,
					fmt.Sprintf("Detected format: %s (%.0f%% of sampled lines)", best.Format.Name, best.Confidence*100),
				)
			}
		case matchCount < total:
			result.Status = "warning"
			result.Message = fmt.Sprintf("Format parses only %d/%d sample lines", matchCount, total)
		default:
			result.Status = "ok"
			result.Message = fmt.Sprintf("Format parses %d/%d sample lines", matchCount, total)
			if opts.Verbose && sampleMatch != "" {
				result.Details = []string{
					"Sample match:",
					truncate(sampleMatch, 80),
				}
			}
		}

		if firstFail != nil {
			result.Details = append(result.Details, describeParseError(firstFail)...)
		}

		return []DiagnosticResult{result}
	}

	return nil
}

func describeParseError(lpe *matcher.LineParseError) []string {
	details := []string{
		"First line that didn't parse:",
		truncate(lpe.Line, 80),
	}
	if lpe.Field != "" {
		details = append(details, fmt.Sprintf("Field: %s", lpe.Field))
	}
	details = append(details, fmt.Sprintf("Cause: %v", lpe.Err))
	return details
}

func suggestFormat(ctx context.Context, logFile string) *detector.FormatMatch {
	d := detector.New(detector.WithSampleSize(diagnoseSampleLines))
	result, err := d.DetectFromFile(ctx, logFile)
	if err != nil {
		return nil
	}
	return result.BestMatch()
}

func checkWebhooks(cfg *config.Config, opts *DiagnoseOptions) []DiagnosticResult {
	results := []DiagnosticResult{}

	if len(cfg.Webhooks) == 0 {
		if opts.Verbose {
			results = append(results, DiagnosticResult{
				Check:   "Webhooks",
				Status:  "ok",
				Message: "No webhooks configured (optional)",
			})
		}
		return results
	}

	// URL, trigger and timeout were already checked by config.Load.
	for _, wh := range cfg.Webhooks {
		result := DiagnosticResult{
			Check:   fmt.Sprintf("Webhook: %s", wh.DisplayName()),
			Status:  "ok",
			Message: fmt.Sprintf("POST %s (trigger %s, timeout %s)", wh.URL, wh.Trigger, wh.Timeout),
		}

		switch {
		case wh.Trigger == config.WebhookTriggerNever:
			result.Status = "warning"
			result.Message = "Webhook is disabled (trigger: never)"
		case wh.Token != "" && strings.HasPrefix(wh.URL, "http://"):
			result.Status = "warning"
			result.Message = "Bearer token would be sent over plain http"
			result.Suggests = []string{"Use an https:// URL for authenticated webhooks"}
		}

		results = append(results, result)
	}
	return results
}

func printDiagnostics(w io.Writer, results []DiagnosticResult, opts *DiagnoseOptions) {
	fmt.Fprintln(w, "=== logreader Configuration Diagnostics ===")
	fmt.Fprintln(w)

	okCount := 0
	warnCount := 0
	errCount := 0

	for _, r := range results {
		var icon string
		switch r.Status {
		case "ok":
			icon = "PASS"
			okCount++
		case "warning":
			icon = "WARN"
			warnCount++
		case "error":
			icon = "FAIL"
			errCount++
		}

		fmt.Fprintf(w, "[%s] %s\n", icon, r.Check)
		fmt.Fprintf(w, "    %s\n", r.Message)

		if opts.Verbose || r.Status != "ok" {
			for _, d := range r.Details {
				fmt.Fprintf(w, "      - %s\n", d)
			}
		}

		for _, s := range r.Suggests {
			fmt.Fprintf(w, "      Hint: %s\n", s)
		}

		fmt.Fprintln(w)
	}

	// Summary
	fmt.Fprintln(w, "---")
	fmt.Fprintf(w, "Summary: %d passed, %d warnings, %d errors\n", okCount, warnCount, errCount)

	if errCount > 0 {
		fmt.Fprintln(w, "\nFix the errors above before parsing.")
	} else if warnCount > 0 {
		fmt.Fprintln(w, "\nConfiguration is usable but has warnings.")
	} else {
		fmt.Fprintln(w, "\nConfiguration looks good!")
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
