package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/FranksOps/seedcorpus/internal/config"
	"github.com/FranksOps/seedcorpus/internal/filter"
	"github.com/FranksOps/seedcorpus/internal/fingerprint"
	"github.com/FranksOps/seedcorpus/internal/metrics"
	"github.com/FranksOps/seedcorpus/internal/pipeline"
	"github.com/FranksOps/seedcorpus/internal/report"
	"github.com/FranksOps/seedcorpus/internal/scraper"
	"github.com/FranksOps/seedcorpus/internal/serp"
	"github.com/FranksOps/seedcorpus/internal/tuple"
	"github.com/FranksOps/seedcorpus/internal/tuplefile"
	"github.com/FranksOps/seedcorpus/pkg/ratelimit"
	"github.com/FranksOps/seedcorpus/pkg/useragent"
)

// CollectOptions holds flags for the collect command.
type CollectOptions struct {
	*RootOptions
	Seeds     string
	Tuples    string // existing tuple file; replaces sampling
	TuplesOut string
	RandSeed  uint64
}

// NewCollectCommand creates the collect command.
func NewCollectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CollectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Search tuples and store the resulting pages",
		Long: `Sample tuples from --seeds (or read them from --tuples), submit each
tuple to the search engine, download every unique hit and store it in the
corpus with its filter verdict.`,
		Args:          noArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCollect(cmd, opts)
		},
	}

	addSamplingFlags(cmd, &opts.Seeds, &opts.RandSeed)
	cmd.Flags().StringVar(&opts.Tuples, "tuples", "", "read tuples from this file instead of sampling")
	cmd.Flags().StringVar(&opts.TuplesOut, "tuples-out", "", "also write the sampled tuples to this file")
	cmd.Flags().String("engine", serp.DuckDuckGo.Name, "search engine")
	cmd.Flags().Int("results", 10, "results taken per query")
	cmd.Flags().Int("concurrency", 3, "parallel page downloads")
	cmd.Flags().String("fingerprint", string(fingerprint.ProfileChrome), "TLS fingerprint (chrome|firefox|safari|go|random)")
	cmd.Flags().String("proxy-file", "", "rotate requests through the proxies listed in this file")
	cmd.Flags().Bool("metrics", false, "serve prometheus metrics while collecting")
	cmd.Flags().Int("metrics-port", 9090, "metrics listen port")
	addStorageFlags(cmd)
	cmd.MarkFlagsMutuallyExclusive("seeds", "tuples")
	cmd.MarkFlagsOneRequired("seeds", "tuples")

	return cmd
}

func runCollect(cmd *cobra.Command, opts *CollectOptions) error {
	ctx := cmd.Context()
	logger := opts.Logger

	cfg, err := config.Load(opts.ConfigPath, cmd.Flags())
	if err != nil {
		return WrapExitError(ExitCommandError, "load config", err)
	}
	if err := cfg.Validate(); err != nil {
		return WrapExitError(ExitCommandError, "invalid config", err)
	}

	var tuples []tuple.Tuple
	if opts.Tuples != "" {
		tuples, err = tuplefile.ReadFile(opts.Tuples)
		if err != nil {
			return tupleExit("read tuples", err)
		}
	} else {
		tuples, err = sampleTuples(cmd, opts.Seeds, cfg.Tuples, opts.RandSeed)
		if err != nil {
			return err
		}
		if opts.TuplesOut != "" {
			if err := tuplefile.WriteFile(opts.TuplesOut, tuples); err != nil {
				return tupleExit("write tuples", err)
			}
		}
	}
	logger.Info("tuples ready", "count", len(tuples))

	backend, err := openBackend(ctx, cfg.Storage)
	if err != nil {
		return WrapExitError(ExitFailure, "open storage", err)
	}
	defer backend.Close()

	profile, err := fingerprint.ParseProfile(cfg.Fetch.Fingerprint)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid config", err)
	}

	proxies, err := cfg.ProxyPool()
	if err != nil {
		return WrapExitError(ExitFailure, "load proxies", err)
	}
	if proxies != nil {
		logger.Info("rotating through proxies", "count", proxies.Len())
		defer func() {
			for _, s := range proxies.Stats() {
				logger.Debug("proxy stats", "proxy", s.URL, "successes", s.Successes, "failures", s.Failures, "benched", s.Benched)
			}
		}()
	}

	fetcher, err := scraper.NewFetcher(scraper.FetchConfig{
		Timeout:      cfg.Fetch.Timeout,
		MaxRedirects: cfg.Fetch.MaxRedirects,
		UseCookieJar: cfg.Fetch.CookieJar,
		UAPool:       useragent.NewPool(cfg.Fetch.UserAgents),
		Fingerprint:  profile,
		Limiter:      ratelimit.NewLimiter(cfg.Fetch.RequestsPerSecond, cfg.Fetch.Jitter),
		MaxBodyBytes: cfg.Fetch.MaxBodyBytes,
		Proxies:      proxies,
	})
	if err != nil {
		return WrapExitError(ExitFailure, "create fetcher", err)
	}
	defer fetcher.Close()

	engine, err := cfg.Engine()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid config", err)
	}
	provider, err := serp.NewHTMLScrape(
		engine,
		fetcher.Client(),
		ratelimit.NewLimiter(cfg.Search.RequestsPerSecond, cfg.Search.Jitter),
		logger,
	)
	if err != nil {
		return WrapExitError(ExitCommandError, "search engine", err)
	}

	if cfg.Metrics.Enabled {
		srv, err := metrics.Start(cfg.Metrics.Port, logger)
		if err != nil {
			return WrapExitError(ExitFailure, "start metrics", err)
		}
		logger.Info("serving metrics", "addr", srv.Addr())
		defer srv.Stop(ctx)
	}

	p, err := pipeline.New(pipeline.Config{
		ResultsPerQuery: cfg.Search.ResultsPerQuery,
		Concurrency:     cfg.Fetch.Concurrency,
		RespectRobots:   cfg.Fetch.RespectRobots,
		UserAgent:       cfg.Fetch.RobotsAgent,
		Domains:         cfg.Fetch.Domains,
		Rules:           filter.Rules(cfg.FilterConfig()),
	}, provider, fetcher, backend, logger)
	if err != nil {
		return WrapExitError(ExitFailure, "create pipeline", err)
	}

	res, err := p.Run(ctx, tuples)
	if err != nil {
		return WrapExitError(ExitFailure, "collect", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run %s: %d queries (%d failed), %d unique hits, %d skipped by robots.txt\n\n",
		res.RunID, res.Queries, res.FailedQueries, res.Hits, res.Skipped)
	if err := report.WriteText(out, res.Summary); err != nil {
		return WrapExitError(ExitFailure, "write summary", err)
	}
	return nil
}
