package cli

import (
	"slices"

	"github.com/spf13/cobra"

	"github.com/FranksOps/seedcorpus/internal/config"
	"github.com/FranksOps/seedcorpus/internal/report"
	"github.com/FranksOps/seedcorpus/internal/storage"
)

// ReportFormats defines the allowed report formats.
var ReportFormats = []string{"text", "json", "html"}

// ReportOptions holds flags for the report command.
type ReportOptions struct {
	*RootOptions
	RunID  string
	Query  string
	Format string
}

// NewReportCommand creates the report command.
func NewReportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "report",
		Short:         "Summarize stored corpus pages",
		Args:          noArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.RunID, "run", "", "only pages from this run")
	cmd.Flags().StringVar(&opts.Query, "query", "", "only pages found by this tuple")
	cmd.Flags().StringVar(&opts.Format, "format", "text", "output format (text|json|html)")
	addStorageFlags(cmd)

	return cmd
}

func runReport(cmd *cobra.Command, opts *ReportOptions) error {
	if !slices.Contains(ReportFormats, opts.Format) {
		return NewExitError(ExitCommandError, "invalid format "+opts.Format)
	}

	cfg, err := config.Load(opts.ConfigPath, cmd.Flags())
	if err != nil {
		return WrapExitError(ExitCommandError, "load config", err)
	}

	ctx := cmd.Context()
	backend, err := openBackend(ctx, cfg.Storage)
	if err != nil {
		return WrapExitError(ExitFailure, "open storage", err)
	}
	defer backend.Close()

	pages, err := backend.Query(ctx, storage.Filter{RunID: opts.RunID, Query: opts.Query})
	if err != nil {
		return WrapExitError(ExitFailure, "query storage", err)
	}

	opts.Logger.Debug("pages loaded", "count", len(pages))
	if err := report.Write(cmd.OutOrStdout(), opts.Format, report.GenerateSummary(pages)); err != nil {
		return WrapExitError(ExitFailure, "write report", err)
	}
	return nil
}
