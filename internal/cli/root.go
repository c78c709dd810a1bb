// Package cli provides the command-line interface for logreader.
package cli

import (
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ccollicutt/logreader/internal/cli/commands"
)

// Execute runs the root command and returns the exit code.
func Execute() int {
	rootCmd := NewRootCommand()

	if err := rootCmd.Execute(); err != nil {
		// Print error to stderr (SilenceErrors prevents Cobra from doing this)
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2 // Configuration or runtime error
	}
	return commands.ExitCode
}

// NewRootCommand creates the root cobra command.
func NewRootCommand() *cobra.Command {
	var logLevel string

	rootCmd := &cobra.Command{
		Use:   "logreader",
		Short: "Parse Apache/NGINX access logs into structured records",
		Long: `logreader turns Apache/NGINX access log lines into structured records.

A LogFormat string (the same directives Apache's LogFormat uses, such as
%h %l %u %t "%r" %>s %b) is compiled once and applied to every line. Each
record is written as JSON or key=value text.

Supported directives:
  %h             remote hosts (comma-separated list)
  %l             remote logname
  %u             remote user
  %t             request time [DD/Mon/YYYY:HH:MM:SS +ZZZZ]
  %r             request line (method, path, protocol)
  %s, %>s        status
  %b             response size
  %{Header}i     request header (Referer and User-Agent are lower-cased)`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return configureLogging(logLevel, cmd.ErrOrStderr())
		},
	}

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug|info|warn|error)")

	// Add subcommands
	rootCmd.AddCommand(commands.NewParseCommand())
	rootCmd.AddCommand(commands.NewDetectCommand())
	rootCmd.AddCommand(commands.NewDiagnoseCommand())
	rootCmd.AddCommand(commands.NewValidateCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	return rootCmd
}

// configureLogging points the standard logrus logger at w with the given level.
func configureLogging(level string, w io.Writer) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid --log-level: %w", err)
	}
	log.SetOutput(w)
	log.SetLevel(lvl)
	log.SetFormatter(&log.TextFormatter{
		DisableTimestamp: true,
	})
	return nil
}
