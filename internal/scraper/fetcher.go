package scraper

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/FranksOps/seedcorpus/internal/fingerprint"
	"github.com/FranksOps/seedcorpus/internal/storage"
	"github.com/FranksOps/seedcorpus/pkg/httpclient"
	"github.com/FranksOps/seedcorpus/pkg/proxy"
	"github.com/FranksOps/seedcorpus/pkg/ratelimit"
	"github.com/FranksOps/seedcorpus/pkg/useragent"
	"github.com/google/uuid"
)

// DefaultMaxBodyBytes caps a downloaded page when FetchConfig leaves it unset.
const DefaultMaxBodyBytes = 5 << 20

// FetchConfig configures page downloads.
type FetchConfig struct {
	Timeout time.Duration
	// MaxRedirects: 0 means 10, negative returns the redirect response itself.
	MaxRedirects int
	UseCookieJar bool
	UAPool       *useragent.Pool
	Fingerprint  fingerprint.Profile
	// InsecureSkipVerify disables certificate checks. Only for tests.
	InsecureSkipVerify bool
	Limiter            *ratelimit.Limiter
	MaxBodyBytes       int64
	// Proxies rotates requests across forward proxies. Nil connects directly.
	Proxies *proxy.Pool
}

// Fetcher downloads single URLs into storage.Page records.
type Fetcher struct {
	config FetchConfig
	client *httpclient.Client
}

// NewFetcher builds a Fetcher. The underlying client, and its cookie jar if
// enabled, lives as long as the Fetcher.
func NewFetcher(cfg FetchConfig) (*Fetcher, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRedirects == 0 {
		cfg.MaxRedirects = 10
	}
	if cfg.UAPool == nil {
		cfg.UAPool = useragent.NewPool(nil)
	}
	if cfg.Fingerprint == "" {
		cfg.Fingerprint = fingerprint.ProfileChrome
	}
	if cfg.MaxBodyBytes == 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}

	opts := fingerprint.Options{
		Profile:            cfg.Fingerprint,
		InsecureSkipVerify: cfg.InsecureSkipVerify,
	}
	if cfg.Proxies != nil {
		opts.Proxy = proxy.FromRequest
	}
	transport, err := fingerprint.Transport(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to setup transport: %w", err)
	}

	client, err := httpclient.New(httpclient.Config{
		Timeout:      cfg.Timeout,
		MaxRedirects: cfg.MaxRedirects,
		UseCookieJar: cfg.UseCookieJar,
		UAPool:       cfg.UAPool,
		Transport:    transport,
		Proxies:      cfg.Proxies,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return &Fetcher{config: cfg, client: client}, nil
}

// Client exposes the shared HTTP client so other components (the search
// provider) reuse the same transport, cookies and user agents.
func (f *Fetcher) Client() *httpclient.Client { return f.client }

// Fetch GETs targetURL and records the outcome on a new Page. Transport and
// HTTP failures are stored in Page.Error; the returned error is non-nil only
// when ctx is done.
func (f *Fetcher) Fetch(ctx context.Context, targetURL string) (*storage.Page, error) {
	page := &storage.Page{
		ID:  uuid.NewString(),
		URL: targetURL,
	}

	if f.config.Limiter != nil {
		if err := f.config.Limiter.Wait(ctx); err != nil {
			page.CreatedAt = time.Now().UTC()
			page.Error = fmt.Sprintf("rate limiter: %v", err)
			return page, ctx.Err()
		}
	}

	start := time.Now()
	page.CreatedAt = start.UTC()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		page.Error = fmt.Sprintf("failed to create request: %v", err)
		return page, nil
	}

	resp, err := f.client.Do(ctx, req)
	if err != nil {
		page.Error = fmt.Sprintf("request failed: %v", err)
		page.Duration = time.Since(start)
		return page, ctx.Err()
	}

	page.StatusCode = resp.StatusCode
	page.ContentType = resp.Header.Get("Content-Type")
	page.Headers = resp.Header

	body, truncated, err := httpclient.ReadBody(resp, f.config.MaxBodyBytes)
	page.Body = body
	page.Duration = time.Since(start)
	switch {
	case err != nil:
		page.Error = fmt.Sprintf("failed to read body: %v", err)
	case truncated:
		page.Error = fmt.Sprintf("body exceeds %d bytes", f.config.MaxBodyBytes)
	}

	return page, nil
}

// Close releases idle connections.
func (f *Fetcher) Close() {
	f.client.CloseIdleConnections()
}
