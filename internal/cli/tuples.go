package cli

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/FranksOps/seedcorpus/internal/config"
	"github.com/FranksOps/seedcorpus/internal/metrics"
	"github.com/FranksOps/seedcorpus/internal/tuple"
	"github.com/FranksOps/seedcorpus/internal/tuplefile"
)

// TuplesOptions holds flags for the tuples command.
type TuplesOptions struct {
	*RootOptions
	Seeds    string // seed file, "-" for stdin
	Out      string // output file, empty or "-" for stdout
	RandSeed uint64
}

// NewTuplesCommand creates the tuples command.
func NewTuplesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TuplesOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "tuples",
		Short: "Sample query tuples from a seed list",
		Long: `Read one seed per line, then write --count distinct tuples of --size
seeds, one tuple per line. Nothing is written when the request cannot be
met: either --size is out of range or fewer than --count combinations exist.`,
		Args:          noArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTuples(cmd, opts)
		},
	}

	addSamplingFlags(cmd, &opts.Seeds, &opts.RandSeed)
	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "output file (default stdout)")
	_ = cmd.MarkFlagRequired("seeds")

	return cmd
}

// addSamplingFlags registers the flags shared by tuples and collect. Size
// and count are read back through config.Load.
func addSamplingFlags(cmd *cobra.Command, seeds *string, randSeed *uint64) {
	cmd.Flags().StringVarP(seeds, "seeds", "s", "", `seed file, one seed per line ("-" for stdin)`)
	cmd.Flags().IntP("size", "k", 3, "seeds per tuple")
	cmd.Flags().IntP("count", "n", 10, "number of tuples")
	cmd.Flags().Uint64Var(randSeed, "rand-seed", 0, "seed the sampler for reproducible output")
}

func runTuples(cmd *cobra.Command, opts *TuplesOptions) error {
	cfg, err := config.Load(opts.ConfigPath, cmd.Flags())
	if err != nil {
		return WrapExitError(ExitCommandError, "load config", err)
	}

	tuples, err := sampleTuples(cmd, opts.Seeds, cfg.Tuples, opts.RandSeed)
	if err != nil {
		return err
	}

	if err := writeTuples(cmd, opts.Out, tuples); err != nil {
		return err
	}

	opts.Logger.Info("tuples sampled", "size", cfg.Tuples.Size, "count", len(tuples))
	return nil
}

// sampleTuples loads seeds and runs the tuple engine.
func sampleTuples(cmd *cobra.Command, seedsPath string, t config.Tuples, randSeed uint64) ([]tuple.Tuple, error) {
	var r io.Reader
	if seedsPath == "-" {
		r = cmd.InOrStdin()
	} else {
		f, err := os.Open(seedsPath)
		if err != nil {
			return nil, tupleExit("open seeds", &tuple.IOError{Op: "open seeds", Err: err})
		}
		defer f.Close()
		r = f
	}

	var sampler *tuple.Sampler
	if cmd.Flags().Changed("rand-seed") {
		sampler = tuple.NewSeededSampler(randSeed)
	}

	tuples, err := tuple.FromReader(r, tuple.Request{Size: t.Size, Count: t.Count}, sampler)
	if err != nil {
		return nil, tupleExit("sample tuples", err)
	}

	metrics.TuplesSampled.Add(float64(len(tuples)))
	return tuples, nil
}

func writeTuples(cmd *cobra.Command, path string, tuples []tuple.Tuple) error {
	var err error
	if path == "" || path == "-" {
		err = tuplefile.Write(cmd.OutOrStdout(), tuples)
	} else {
		err = tuplefile.WriteFile(path, tuples)
	}
	if err != nil {
		return tupleExit("write tuples", err)
	}
	return nil
}
