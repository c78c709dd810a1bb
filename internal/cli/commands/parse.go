package commands

import (
	"context"
	"errors"
	"fmt"
	"io"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ccollicutt/logreader/pkg/config"
	"github.com/ccollicutt/logreader/pkg/logformat"
	"github.com/ccollicutt/logreader/pkg/matcher"
	"github.com/ccollicutt/logreader/pkg/output"
	"github.com/ccollicutt/logreader/pkg/reader"
	"github.com/ccollicutt/logreader/pkg/record"
	"github.com/ccollicutt/logreader/pkg/webhook"
)

// ExitCode is set by commands to indicate the result
var ExitCode = 0

// ParseOptions holds command-line options for the parse command.
type ParseOptions struct {
	Config     string
	Format     string
	Output     string
	Fields     []string
	SkipErrors bool
	KeepBlank  bool
	Merge      bool
	Summary    bool
	Quiet      bool

	// Webhook options
	WebhookURL     string
	WebhookToken   string
	WebhookTrigger string
}

// NewParseCommand creates the parse command.
func NewParseCommand() *cobra.Command {
	opts := &ParseOptions{}

	cmd := &cobra.Command{
		Use:   "parse [log-file...]",
		Short: "Parse access logs into structured records",
		Long: `Parse Apache/NGINX access logs into structured records.

Each line is matched against a LogFormat string and written as one record.
Files ending in .gz or .zst are decompressed. With no files (or "-") the
log is read from standard input.

The format may be a built-in name (combined, common, combined_xff,
common_host), a name defined under formats: in the config file, or a
literal LogFormat string such as '%h %u %t "%r" %>s %b'.

Exit codes:
  0 - All lines parsed
  1 - One or more lines failed to parse
  2 - Configuration or runtime error

Example:
  logreader parse /var/log/nginx/access.log
  logreader parse -f common -o text access.log.1 access.log.2.gz
  logreader parse --merge --skip-errors --summary /var/log/apache2/*access.log
  zcat access.log.gz | logreader parse -f '%h %t "%r" %>s'
  logreader parse --skip-errors --webhook-url https://hooks.example.com/logs access.log`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Config, "config", "c", "", "Config file")
	cmd.Flags().StringVarP(&opts.Format, "format", "f", config.DefaultFormat, "Log format name or LogFormat string")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", config.DefaultOutput, "Output format (json|text)")
	cmd.Flags().StringSliceVar(&opts.Fields, "fields", nil, "Only write these fields, in this order")
	cmd.Flags().BoolVar(&opts.SkipErrors, "skip-errors", false, "Log unparseable lines and continue")
	cmd.Flags().BoolVar(&opts.KeepBlank, "keep-blank", false, "Treat blank lines as parse failures instead of skipping them")
	cmd.Flags().BoolVar(&opts.Merge, "merge", false, "Merge several files into one stream ordered by request time")
	cmd.Flags().BoolVar(&opts.Summary, "summary", false, "Write a summary report after the records")
	cmd.Flags().BoolVarP(&opts.Quiet, "quiet", "q", false, "Do not write records (use with --summary)")

	// Webhook flags
	cmd.Flags().StringVar(&opts.WebhookURL, "webhook-url", "", "Post the run summary to this URL")
	cmd.Flags().StringVar(&opts.WebhookToken, "webhook-token", "", "Bearer token for webhook auth")
	cmd.Flags().StringVar(&opts.WebhookTrigger, "webhook-trigger", string(config.WebhookTriggerOnErrors), "When to fire webhook (on_errors|always|never)")

	return cmd
}

// recordStream is the pull interface shared by Reader and MergedReader.
type recordStream interface {
	Next(ctx context.Context) (record.Record, error)
	CurrentLine() string
	Close() error
}

func runParse(cmd *cobra.Command, args []string, opts *ParseOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadParseConfig(ctx, opts)
	if err != nil {
		return err
	}

	plan := cfg.Plan()
	if cmd.Flags().Changed("format") {
		plan, err = cfg.CompileFormat(opts.Format)
		if err != nil {
			return fmt.Errorf("compiling format: %w", err)
		}
	}
	outputName := cfg.Output
	if cmd.Flags().Changed("output") {
		outputName = opts.Output
	}
	skipErrors := opts.SkipErrors || cfg.SkipErrors

	formatter, err := output.New(outputName, output.FormatOptions{Fields: opts.Fields})
	if err != nil {
		return err
	}
	hooks, err := collectWebhooks(cfg, opts)
	if err != nil {
		return err
	}

	inputs := args
	if len(inputs) == 0 {
		inputs = cfg.Sources
	}
	if len(inputs) == 0 {
		inputs = []string{reader.Stdin}
	}
	files, err := reader.ExpandGlobs(inputs)
	if err != nil {
		return fmt.Errorf("expanding log sources: %w", err)
	}

	readers := make([]*reader.Reader, 0, len(files))
	for _, file := range files {
		r, err := newReader(cmd, file, plan, !opts.KeepBlank)
		if err != nil {
			return err
		}
		readers = append(readers, r)
	}

	log.WithFields(log.Fields{
		"format":  plan.Format(),
		"sources": len(readers),
		"merge":   opts.Merge,
	}).Debug("starting parse")

	report := output.NewReport(plan.Format(), files)
	p := &parseRun{
		out:        cmd.OutOrStdout(),
		formatter:  formatter,
		report:     report,
		skipErrors: skipErrors,
		quiet:      opts.Quiet,
	}

	if opts.Merge && len(readers) > 1 {
		merged := reader.NewMergedReader(readers...)
		err = p.consume(ctx, merged, merged.CurrentSource)
	} else {
		for _, r := range readers {
			if err = p.consume(ctx, r, r.Name); err != nil || p.stopped {
				break
			}
		}
		for _, r := range readers {
			_ = r.Close()
		}
	}
	if err != nil {
		return err
	}

	report.Finish()
	if opts.Summary {
		if err := formatter.WriteReport(ctx, report, cmd.OutOrStdout()); err != nil {
			return fmt.Errorf("writing summary: %w", err)
		}
	}

	log.WithFields(log.Fields{
		"records": report.Summary.RecordsParsed,
		"errors":  report.Summary.ParseErrors,
	}).Info("parse finished")

	// Webhook failures are logged but do not fail the parse.
	webhook.NewClient().Deliver(ctx, hooks, report)

	if report.HasErrors() {
		ExitCode = 1
	}
	return nil
}

func loadParseConfig(ctx context.Context, opts *ParseOptions) (*config.Config, error) {
	if opts.Config == "" {
		return config.Default()
	}
	cfg, err := config.Load(ctx, opts.Config)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// collectWebhooks merges config file webhooks with the one given by flags.
func collectWebhooks(cfg *config.Config, opts *ParseOptions) ([]config.WebhookConfig, error) {
	hooks := make([]config.WebhookConfig, 0, len(cfg.Webhooks)+1)
	hooks = append(hooks, cfg.Webhooks...)

	if opts.WebhookURL == "" {
		return hooks, nil
	}
	cli := config.WebhookConfig{
		Name:    "cli",
		URL:     opts.WebhookURL,
		Token:   opts.WebhookToken,
		Trigger: config.WebhookTrigger(opts.WebhookTrigger),
	}
	if err := config.ValidateWebhook(&cli); err != nil {
		return nil, fmt.Errorf("--webhook-url: %w", err)
	}
	return append(hooks, cli), nil
}

func newReader(cmd *cobra.Command, file string, plan *logformat.Plan, skipBlank bool) (*reader.Reader, error) {
	var src reader.Source = reader.OwnedPath(file)
	if file == reader.Stdin {
		src = reader.FromReader(cmd.InOrStdin())
	}
	r, err := reader.New(src, reader.WithPlan(plan), reader.WithSkipBlank(skipBlank))
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", file, err)
	}
	return r, nil
}

// parseRun carries the output side of a parse through one or more streams.
type parseRun struct {
	out        io.Writer
	formatter  output.Formatter
	report     *output.Report
	skipErrors bool
	quiet      bool
	stopped    bool
}

// consume drains s. A line that fails to parse is logged and counted; it
// stops the run unless skipErrors is set.
func (p *parseRun) consume(ctx context.Context, s recordStream, source func() string) error {
	defer s.Close()

	for {
		rec, err := s.Next(ctx)
		if err == io.EOF {
			return nil
		}

		var lpe *matcher.LineParseError
		if errors.As(err, &lpe) {
			p.report.AddError()
			entry := log.WithFields(log.Fields{
				"source": source(),
				"line":   s.CurrentLine(),
				"error":  lpe.Err,
			})
			if lpe.Field != "" {
				entry = entry.WithField("field", lpe.Field)
			}
			if !p.skipErrors {
				entry.Error("line failed to parse; use --skip-errors to continue past it")
				p.stopped = true
				return nil
			}
			entry.Warn("skipping unparseable line")
			continue
		}
		if err != nil {
			return fmt.Errorf("reading %s: %w", source(), err)
		}

		p.report.Add(rec)
		if p.quiet {
			continue
		}
		if err := p.formatter.WriteRecord(ctx, rec, p.out); err != nil {
			return fmt.Errorf("writing record: %w", err)
		}
	}
}
