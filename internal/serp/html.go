package serp

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/FranksOps/seedcorpus/pkg/ratelimit"
	"github.com/PuerkitoBio/goquery"
)

// Doer sends an HTTP request. *httpclient.Client satisfies it.
type Doer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// HTMLScrape is a Provider that downloads an engine's HTML result page and
// extracts hits with a CSS selector.
type HTMLScrape struct {
	engine  Engine
	client  Doer
	limiter *ratelimit.Limiter
	logger  *slog.Logger
}

// NewHTMLScrape validates engine and returns a provider. limiter may be nil.
func NewHTMLScrape(engine Engine, client Doer, limiter *ratelimit.Limiter, logger *slog.Logger) (*HTMLScrape, error) {
	if err := engine.Validate(); err != nil {
		return nil, err
	}
	if client == nil {
		return nil, fmt.Errorf("search engine %s: client is required", engine.Name)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HTMLScrape{engine: engine, client: client, limiter: limiter, logger: logger}, nil
}

func (s *HTMLScrape) Name() string { return s.engine.Name }

// Search fetches the first result page for query.
func (s *HTMLScrape) Search(ctx context.Context, query string, limit int) ([]Hit, error) {
	if limit < 0 {
		return nil, fmt.Errorf("limit cannot be negative: %d", limit)
	}
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("empty query")
	}

	endpoint := s.engine.URL(query, limit)
	base, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("search %s: invalid endpoint: %w", s.engine.Name, err)
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", s.engine.Name, err)
	}

	resp, err := s.client.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", s.engine.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search %s: unexpected status %d", s.engine.Name, resp.StatusCode)
	}

	hits, err := ParseHits(resp.Body, base, s.engine, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", s.engine.Name, err)
	}

	s.logger.Debug("search complete", "engine", s.engine.Name, "query", query, "hits", len(hits))
	return hits, nil
}

// URL renders the endpoint template for query.
func (e Engine) URL(query string, limit int) string {
	r := strings.NewReplacer(
		"{query}", url.QueryEscape(query),
		"{limit}", strconv.Itoa(limit),
	)
	return r.Replace(e.Endpoint)
}

// ParseHits extracts ranked hits from a result page. Links are resolved
// against base, unwrapped from the engine's redirect wrapper, restricted to
// http(s) and deduplicated. A limit of zero keeps all of them.
func ParseHits(r io.Reader, base *url.URL, e Engine, query string, limit int) ([]Hit, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse results: %w", err)
	}

	seen := make(map[string]bool)
	var hits []Hit

	doc.Find(e.Selector).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, ok := sel.Attr("href")
		if !ok {
			return true
		}

		target := resolve(base, href, e.Redirect)
		if target == "" || seen[target] {
			return true
		}
		seen[target] = true

		hits = append(hits, Hit{
			Query: query,
			URL:   target,
			Title: strings.Join(strings.Fields(sel.Text()), " "),
			Rank:  len(hits) + 1,
		})
		return limit == 0 || len(hits) < limit
	})

	return hits, nil
}

func resolve(base *url.URL, href, redirectParam string) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	u := base.ResolveReference(ref)

	if redirectParam != "" && sameSite(base.Host, u.Host) {
		if wrapped := u.Query().Get(redirectParam); wrapped != "" {
			if inner, err := url.Parse(wrapped); err == nil && inner.IsAbs() {
				u = inner
			}
		}
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	if sameSite(base.Host, u.Host) {
		// navigation, ads and redirect wrappers that could not be unwrapped
		return ""
	}

	u.Fragment = ""
	return u.String()
}

// sameSite reports whether host is the engine host or one of its parents,
// e.g. duckduckgo.com for html.duckduckgo.com.
func sameSite(engineHost, host string) bool {
	return host == engineHost || strings.HasSuffix(engineHost, "."+host)
}
