package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/logreader/pkg/config"
	"github.com/ccollicutt/logreader/pkg/logformat"
	"github.com/ccollicutt/logreader/pkg/reader"
)

// ValidateOptions holds command-line options for the validate command.
type ValidateOptions struct {
	Format string
}

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	opts := &ValidateOptions{}

	cmd := &cobra.Command{
		Use:   "validate [config-file]",
		Short: "Validate a configuration file or a LogFormat string",
		Long: `Validate a logreader configuration file, or a single LogFormat string
with --format, without reading any logs.

Checks:
  - YAML syntax
  - Every format compiles (directives, header names, quoting)
  - Output format
  - Log source file existence (warning only)

Example:
  logreader validate logreader.yaml
  logreader validate --format '%h %l %u %t "%r" %>s %b'`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Format, "format", "f", "", "Validate a LogFormat string or built-in name instead of a config file")

	return cmd
}

func runValidate(cmd *cobra.Command, args []string, opts *ValidateOptions) error {
	out := cmd.OutOrStdout()
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if opts.Format != "" {
		cfg := config.DefaultConfig()
		plan, err := cfg.CompileFormat(opts.Format)
		if err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		fmt.Fprintln(out, "Format valid!")
		printPlan(out, "", plan)
		return nil
	}

	if len(args) == 0 {
		return errors.New("validate requires a config file or --format")
	}
	configPath := args[0]

	fmt.Fprintf(out, "Validating %s...\n", configPath)

	cfg, err := config.Load(ctx, configPath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	fmt.Fprintf(out, "\nConfiguration valid!\n")
	fmt.Fprintf(out, "  Format:      %s\n", cfg.Format)
	fmt.Fprintf(out, "  Output:      %s\n", cfg.Output)
	fmt.Fprintf(out, "  Skip errors: %t\n", cfg.SkipErrors)
	fmt.Fprintf(out, "  Log sources: %d pattern(s)\n", len(cfg.Sources))

	fmt.Fprintln(out)
	printPlan(out, "", cfg.Plan())

	if len(cfg.Formats) > 0 {
		names := make([]string, 0, len(cfg.Formats))
		for name := range cfg.Formats {
			names = append(names, name)
		}
		sort.Strings(names)

		fmt.Fprintf(out, "\nNamed formats:\n")
		for _, name := range names {
			// Already compiled once by Validate.
			plan := logformat.MustCompile(cfg.Formats[name])
			fmt.Fprintf(out, "  %s:\n", name)
			printPlan(out, "    ", plan)
		}
	}

	if len(cfg.Webhooks) > 0 {
		fmt.Fprintf(out, "\nWebhooks:\n")
		for _, wh := range cfg.Webhooks {
			fmt.Fprintf(out, "  - %s (trigger: %s)\n", wh.DisplayName(), wh.Trigger)
		}
	}

	// Check if log sources exist (warnings only)
	if len(cfg.Sources) == 0 {
		return nil
	}
	files, err := reader.ExpandGlobs(cfg.Sources)
	if err != nil {
		fmt.Fprintf(out, "\nWarning: Error expanding log source patterns: %v\n", err)
	} else {
		fmt.Fprintf(out, "\nLog files matched: %d\n", len(files))
		for _, f := range files {
			fmt.Fprintf(out, "  - %s\n", f)
		}
	}

	return nil
}

func printPlan(w io.Writer, indent string, plan *logformat.Plan) {
	fmt.Fprintf(w, "%sLogFormat: %s\n", indent, plan.Format())
	fmt.Fprintf(w, "%sFields:    %s\n", indent, strings.Join(plan.Fields(), ", "))
}
