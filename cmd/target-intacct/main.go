package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/pipewise/target-intacct/internal/config"
	"github.com/pipewise/target-intacct/internal/intacct"
	"github.com/pipewise/target-intacct/internal/target"
	"github.com/pipewise/target-intacct/internal/util"
	"github.com/pipewise/target-intacct/internal/version"
)

func main() {
	var configPath string
	var inputPath string
	var logLevel string

	root := &cobra.Command{
		Use:   "target-intacct",
		Short: "Submit tagged JSON records on stdin to the Intacct XML gateway",
		Long: `target-intacct reads newline-delimited tagged JSON messages, groups the
records by stream, validates identifier fields against live Intacct
reference data, and submits journal entries, employee pay rates, or
payment records depending on the configured object_name.`,
		Version:       version.Current,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, configPath, inputPath, logLevel)
		},
	}
	root.Flags().StringVarP(&configPath, "config", "c", "", "Path to the connector config file (JSON or YAML)")
	root.Flags().StringVarP(&inputPath, "input", "i", "", "Read messages from a file instead of stdin")
	root.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	_ = root.MarkFlagRequired("config")

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "target-intacct: %s\n", util.RedactSecrets(err.Error()))
		if isUsageError(err) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, configPath, inputPath, logLevel string) error {
	level, err := log.ParseLevel(logLevel)
	if err != nil {
		return &usageError{fmt.Errorf("invalid log level %q", logLevel)}
	}
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Level:           level,
	})

	cfg, err := config.Load(configPath)
	if err != nil {
		return &usageError{err}
	}

	var input io.Reader = cmd.InOrStdin()
	if inputPath != "" {
		f, err := os.Open(inputPath)
		if err != nil {
			return &usageError{fmt.Errorf("open input file: %w", err)}
		}
		defer f.Close()
		input = f
	}

	client, err := intacct.NewClient(cfg.ClientConfig(), logger)
	if err != nil {
		return &usageError{err}
	}

	ctx := cmd.Context()
	if err := client.Login(ctx); err != nil {
		return err
	}

	d := &target.Dispatcher{Client: client, Logger: logger}
	return d.Run(ctx, cfg, input)
}

// usageError marks failures caused by invocation or configuration rather
// than by the upload itself. They exit with status 2.
type usageError struct{ err error }

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func isUsageError(err error) bool {
	var ue *usageError
	return errors.As(err, &ue)
}
