package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/lysyi3m/race-comb/app/bootstrap"
	"github.com/lysyi3m/race-comb/app/cfg"
	"github.com/spf13/cobra"
)

const (
	ExitSuccess = 0
	ExitError   = 1
)

// errAllFailed marks a run whose report was written but where no provider
// succeeded.
var errAllFailed = errors.New("every selected provider failed")

type runOptions struct {
	providers []string
	format    string
	dryRun    bool
	verbose   bool
}

// NewRootCmd creates the race-comb-ingest command tree.
func NewRootCmd(stdout io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:   "race-comb-ingest",
		Short: "Collect running events from the configured providers",
		Long: `Runs one ingestion cycle against the configured race providers and
prints the run report. Configuration is read from the same environment
variables as the server (DB_PATH, PROVIDERS_DIR, BROWSER_POOL_SIZE, ...).`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd(stdout))
	return root
}

func newRunCmd(stdout io.Writer) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one ingestion cycle",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runIngest(cmd.Context(), stdout, opts)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.providers, "provider", "p", nil, "Provider to run (repeatable, default: all enabled)")
	cmd.Flags().StringVar(&opts.format, "format", string(FormatText), "Output format: text or json")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Decide create/update/skip without writing")
	cmd.Flags().BoolVar(&opts.verbose, "verbose", false, "Enable debug logging")

	return cmd
}

func runIngest(ctx context.Context, stdout io.Writer, opts *runOptions) error {
	format := OutputFormat(strings.ToLower(opts.format))
	if format != FormatText && format != FormatJSON {
		return fmt.Errorf("invalid format: %s (must be 'text' or 'json')", opts.format)
	}

	c, err := cfg.LoadArgs(nil)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	bootstrap.SetupLogging(c.Debug || opts.verbose)

	app, err := bootstrap.New(c, bootstrap.Options{DryRun: opts.dryRun})
	if err != nil {
		return fmt.Errorf("initializing: %w", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			slog.Warn("Failed to close resources", "error", err)
		}
	}()

	report, err := app.Orchestrator.Run(ctx, opts.providers)
	if err != nil {
		return fmt.Errorf("running ingestion: %w", err)
	}

	if err := WriteReport(stdout, report, format); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}

	if report.AllFailed() {
		return errAllFailed
	}
	return nil
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd(os.Stdout).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitError
	}
	return ExitSuccess
}
