package storage

import (
	"context"
	"time"
)

// Page is one downloaded search hit, kept or rejected for the corpus.
type Page struct {
	ID          string
	RunID       string
	Query       string // the tuple line that surfaced the URL
	URL         string
	Rank        int // position in the search results, 1-based
	StatusCode  int
	ContentType string
	Headers     map[string][]string
	Body        []byte
	Text        string // extracted plain text, empty for non-HTML
	Duration    time.Duration
	Accepted    bool
	Reason      string // why the page was rejected; empty when accepted
	CreatedAt   time.Time
	Error       string // non-empty if the fetch failed before an HTTP response
}

// Filter selects stored pages. Zero values match everything.
type Filter struct {
	RunID    string
	Query    string
	URL      string
	Accepted *bool
	Since    *time.Time
	Limit    int
	Offset   int
}

// Match reports whether p passes the field filters. Limit and Offset are not
// considered. File backends use it; SQL backends translate the same rules.
func (f Filter) Match(p *Page) bool {
	if f.RunID != "" && p.RunID != f.RunID {
		return false
	}
	if f.Query != "" && p.Query != f.Query {
		return false
	}
	if f.URL != "" && p.URL != f.URL {
		return false
	}
	if f.Accepted != nil && p.Accepted != *f.Accepted {
		return false
	}
	if f.Since != nil && p.CreatedAt.Before(*f.Since) {
		return false
	}
	return true
}

// Window orders pages newest first and applies Offset and Limit. pages is
// expected in insertion order.
func (f Filter) Window(pages []*Page) []*Page {
	for i, j := 0, len(pages)-1; i < j; i, j = i+1, j-1 {
		pages[i], pages[j] = pages[j], pages[i]
	}
	if f.Offset > 0 {
		if f.Offset >= len(pages) {
			return []*Page{}
		}
		pages = pages[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(pages) {
		pages = pages[:f.Limit]
	}
	return pages
}

// Backend stores corpus pages.
type Backend interface {
	Save(ctx context.Context, page *Page) error
	Query(ctx context.Context, filter Filter) ([]*Page, error)
	Close() error
}
