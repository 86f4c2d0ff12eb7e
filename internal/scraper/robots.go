package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"github.com/temoto/robotstxt"
)

// RobotsTxtAuditor fetches robots.txt once per host and answers whether a
// URL may be downloaded.
type RobotsTxtAuditor struct {
	fetcher *Fetcher
	logger  *slog.Logger
	mu      sync.Mutex
	cache   map[string]*robotsEntry
}

type robotsEntry struct {
	once sync.Once
	data *robotstxt.RobotsData
}

// NewRobotsTxtAuditor creates a new instance.
func NewRobotsTxtAuditor(fetcher *Fetcher, logger *slog.Logger) *RobotsTxtAuditor {
	if logger == nil {
		logger = slog.Default()
	}
	return &RobotsTxtAuditor{
		fetcher: fetcher,
		logger:  logger,
		cache:   make(map[string]*robotsEntry),
	}
}

// IsAllowed reports whether userAgent may fetch targetURL. A missing,
// unreachable or unparsable robots.txt allows everything.
func (r *RobotsTxtAuditor) IsAllowed(ctx context.Context, targetURL string, userAgent string) (bool, error) {
	u, err := url.Parse(targetURL)
	if err != nil {
		return false, fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return false, fmt.Errorf("invalid url %q: missing scheme or host", targetURL)
	}

	data := r.lookup(ctx, u.Scheme+"://"+u.Host)
	if data == nil {
		return true, nil
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return data.FindGroup(userAgent).Test(path), nil
}

// lookup returns the cached rules for host, fetching them on first use.
// Concurrent callers for the same host share one fetch.
func (r *RobotsTxtAuditor) lookup(ctx context.Context, host string) *robotstxt.RobotsData {
	r.mu.Lock()
	entry, ok := r.cache[host]
	if !ok {
		entry = &robotsEntry{}
		r.cache[host] = entry
	}
	r.mu.Unlock()

	entry.once.Do(func() {
		data, err := r.fetch(ctx, host)
		if err != nil {
			r.logger.Debug("robots.txt unavailable, defaulting to allow", "host", host, "err", err)
			return
		}
		entry.data = data
	})
	return entry.data
}

func (r *RobotsTxtAuditor) fetch(ctx context.Context, host string) (*robotstxt.RobotsData, error) {
	page, err := r.fetcher.Fetch(ctx, host+"/robots.txt")
	if err != nil {
		return nil, fmt.Errorf("fetch error: %w", err)
	}
	if page.Error != "" {
		return nil, fmt.Errorf("fetch error: %s", page.Error)
	}

	// robotstxt treats 4xx as allow-all and 5xx as disallow-all
	data, err := robotstxt.FromStatusAndBytes(page.StatusCode, page.Body)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	return data, nil
}
