package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Verbose    bool

	// Logger is built in PersistentPreRunE and writes to the command's
	// error stream.
	Logger *slog.Logger
}

// NewRootCommand creates the root command for the seedcorpus CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seedcorpus",
		Short: "Build web corpora from seed terms",
		Long: `seedcorpus combines seed terms into randomized query tuples, submits
them to a search engine and stores the filtered result pages as a corpus.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// cobra checks these after the pre-run; do it here so they
			// surface as command errors.
			if err := cmd.ValidateRequiredFlags(); err != nil {
				return WrapExitError(ExitCommandError, "invalid flags", err)
			}
			if err := cmd.ValidateFlagGroups(); err != nil {
				return WrapExitError(ExitCommandError, "invalid flags", err)
			}

			level := slog.LevelInfo
			if opts.Verbose {
				level = slog.LevelDebug
			}
			opts.Logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file (yaml, toml or json)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return WrapExitError(ExitCommandError, "invalid flags", err)
	})

	cmd.AddCommand(NewTuplesCommand(opts))
	cmd.AddCommand(NewCollectCommand(opts))
	cmd.AddCommand(NewReportCommand(opts))

	return cmd
}

// noArgs rejects positional arguments with a command error.
func noArgs(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("unexpected argument %q for %s", args[0], cmd.CommandPath()))
	}
	return nil
}

// Execute runs the CLI with args and returns the process exit code. Errors
// are printed to stderr.
func Execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	opts := &RootOptions{}
	cmd := newRootCommand(opts)
	cmd.SetArgs(args)
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}

	fmt.Fprintln(stderr, "Error:", err)

	// unknown commands fail before the persistent pre-run builds the logger
	var exitErr *ExitError
	if !errors.As(err, &exitErr) && opts.Logger == nil {
		return ExitCommandError
	}
	return GetExitCode(err)
}
