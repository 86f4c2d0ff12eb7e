// Package pipeline runs a collection pass: each query tuple is searched,
// every unique hit is downloaded, filtered and stored.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/url"
	"strings"
	"sync"

	"github.com/FranksOps/seedcorpus/internal/analyzer"
	"github.com/FranksOps/seedcorpus/internal/filter"
	"github.com/FranksOps/seedcorpus/internal/metrics"
	"github.com/FranksOps/seedcorpus/internal/report"
	"github.com/FranksOps/seedcorpus/internal/scraper"
	"github.com/FranksOps/seedcorpus/internal/serp"
	"github.com/FranksOps/seedcorpus/internal/storage"
	"github.com/FranksOps/seedcorpus/internal/tuple"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// ErrNoResults is returned when every search request of a run failed.
var ErrNoResults = errors.New("all searches failed")

// Config provides parameters for a collection run.
type Config struct {
	// ResultsPerQuery caps the hits taken from each search (0 = 10).
	ResultsPerQuery int
	// Concurrency bounds parallel page downloads (0 = 3).
	Concurrency int
	// RespectRobots checks robots.txt before each download.
	RespectRobots bool
	// UserAgent is the robots.txt group to obey (empty = "*").
	UserAgent string
	// Domains restricts downloads to these hosts and their subdomains.
	// Empty allows every host.
	Domains []string
	// Rules decide corpus membership. Nil uses filter.Rules(filter.Config{}).
	Rules []filter.Rule
}

// Pipeline wires a search provider, a fetcher and a storage backend.
type Pipeline struct {
	cfg      Config
	provider serp.Provider
	fetcher  *scraper.Fetcher
	backend  storage.Backend
	auditor  *scraper.RobotsTxtAuditor
	logger   *slog.Logger
}

// Result describes a finished run.
type Result struct {
	RunID         string
	Queries       int
	FailedQueries int
	Hits          int // unique in-scope URLs
	Skipped       int // blocked by robots.txt
	Summary       report.Summary
}

// New validates the collaborators and applies defaults.
func New(cfg Config, provider serp.Provider, fetcher *scraper.Fetcher, backend storage.Backend, logger *slog.Logger) (*Pipeline, error) {
	if provider == nil {
		return nil, fmt.Errorf("search provider is nil")
	}
	if fetcher == nil {
		return nil, fmt.Errorf("fetcher is nil")
	}
	if backend == nil {
		return nil, fmt.Errorf("storage backend is nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ResultsPerQuery <= 0 {
		cfg.ResultsPerQuery = 10
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 3
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "*"
	}
	if cfg.Rules == nil {
		cfg.Rules = filter.Rules(filter.Config{})
	}

	p := &Pipeline{
		cfg:      cfg,
		provider: provider,
		fetcher:  fetcher,
		backend:  backend,
		logger:   logger,
	}
	if cfg.RespectRobots {
		p.auditor = scraper.NewRobotsTxtAuditor(fetcher, logger)
	}
	return p, nil
}

// Run searches every tuple, then downloads the unique hits concurrently.
// Individual search and fetch failures are logged and recorded; the run
// fails on cancellation, on a storage error, or when no search succeeded.
func (p *Pipeline) Run(ctx context.Context, tuples []tuple.Tuple) (*Result, error) {
	res := &Result{RunID: uuid.NewString()}
	logger := p.logger.With("run", res.RunID)

	hits, err := p.search(ctx, logger, tuples, res)
	if err != nil {
		return res, err
	}
	res.Hits = len(hits)
	logger.Info("search complete", "queries", res.Queries, "failed", res.FailedQueries, "hits", res.Hits)

	var (
		mu    sync.Mutex
		pages []*storage.Page
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Concurrency)

	for _, hit := range hits {
		g.Go(func() error {
			page, err := p.process(gCtx, logger, res.RunID, hit)
			if err != nil {
				return err
			}

			mu.Lock()
			defer mu.Unlock()
			if page == nil {
				res.Skipped++
				return nil
			}
			pages = append(pages, page)
			return nil
		})
	}

	err = g.Wait()
	res.Summary = report.GenerateSummary(pages)
	if err != nil {
		return res, err
	}

	logger.Info("collection complete",
		"pages", res.Summary.Pages,
		"accepted", res.Summary.Accepted,
		"rejected", res.Summary.Rejected,
		"skipped", res.Skipped,
	)
	return res, nil
}

// search queries the provider once per tuple, in order, and returns the
// in-scope hits with duplicate URLs removed. The first query to surface a
// URL keeps it.
func (p *Pipeline) search(ctx context.Context, logger *slog.Logger, tuples []tuple.Tuple, res *Result) ([]serp.Hit, error) {
	seen := make(map[string]bool)
	var (
		hits    []serp.Hit
		lastErr error
	)

	for _, t := range tuples {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		query := t.String()
		res.Queries++

		found, err := p.provider.Search(ctx, query, p.cfg.ResultsPerQuery)
		metrics.RecordSearch(p.provider.Name(), len(found), err)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			res.FailedQueries++
			lastErr = err
			logger.Warn("search failed", "query", query, "err", err)
			continue
		}

		for _, h := range found {
			key := normalize(h.URL)
			if key == "" || seen[key] || !p.inScope(key) {
				continue
			}
			seen[key] = true
			h.URL = key
			hits = append(hits, h)
		}
	}

	if res.Queries > 0 && res.FailedQueries == res.Queries {
		return nil, fmt.Errorf("%w: %d queries, last error: %w", ErrNoResults, res.Queries, lastErr)
	}
	return hits, nil
}

// process downloads one hit. A nil page with a nil error means robots.txt
// disallowed it.
func (p *Pipeline) process(ctx context.Context, logger *slog.Logger, runID string, hit serp.Hit) (*storage.Page, error) {
	if p.auditor != nil {
		allowed, err := p.auditor.IsAllowed(ctx, hit.URL, p.cfg.UserAgent)
		if err != nil {
			logger.Warn("error checking robots.txt", "url", hit.URL, "err", err)
		} else if !allowed {
			logger.Debug("url blocked by robots.txt", "url", hit.URL)
			return nil, nil
		}
	}

	logger.Debug("fetching", "url", hit.URL, "query", hit.Query, "rank", hit.Rank)

	page, err := p.fetcher.Fetch(ctx, hit.URL)
	if err != nil {
		return nil, err
	}
	page.RunID = runID
	page.Query = hit.Query
	page.Rank = hit.Rank

	if page.Error == "" && isHTML(page.ContentType) {
		doc, err := analyzer.ExtractText(page.Body)
		if err != nil {
			logger.Debug("text extraction failed", "url", hit.URL, "err", err)
		} else {
			page.Text = doc.Text
		}
	}

	filter.Apply(page, p.cfg.Rules)

	if err := p.backend.Save(ctx, page); err != nil {
		return nil, fmt.Errorf("save page %s: %w", hit.URL, err)
	}

	domain := ""
	if u, err := url.Parse(hit.URL); err == nil {
		domain = u.Hostname()
	}
	metrics.RecordPage(domain, page)

	if page.Accepted {
		logger.Debug("page accepted", "url", hit.URL)
	} else {
		logger.Debug("page rejected", "url", hit.URL, "reason", page.Reason)
	}
	return page, nil
}

func (p *Pipeline) inScope(rawURL string) bool {
	if len(p.cfg.Domains) == 0 {
		return true
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, domain := range p.cfg.Domains {
		d := strings.ToLower(strings.TrimSpace(domain))
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

// normalize drops the fragment and rejects non-http(s) URLs.
func normalize(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ""
	}
	u.Fragment = ""
	return u.String()
}

func isHTML(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return strings.Contains(mt, "html")
}
