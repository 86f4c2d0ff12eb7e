// Package serp turns query tuples into ranked result URLs by scraping a
// search engine's HTML result page.
package serp

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/andybalholm/cascadia"
)

// Hit is one organic result returned for a query.
type Hit struct {
	Query string `json:"query"`
	URL   string `json:"url"`
	Title string `json:"title"`
	Rank  int    `json:"rank"` // 1-based position on the result page
}

// Provider abstracts a search engine. The limit parameter caps the number of
// hits returned; zero means everything on the first result page.
type Provider interface {
	Name() string
	Search(ctx context.Context, query string, limit int) ([]Hit, error)
}

// Engine describes how to query a search engine and where its result links
// sit in the returned HTML.
type Engine struct {
	Name string
	// Endpoint is a URL template. {query} is replaced with the escaped query
	// and {limit} with the requested hit count.
	Endpoint string
	// Selector matches the result anchors, in rank order.
	Selector string
	// Redirect names the query parameter that carries the real target when
	// the engine wraps results in its own click-tracking links.
	Redirect string
}

var (
	DuckDuckGo = Engine{
		Name:     "duckduckgo",
		Endpoint: "https://html.duckduckgo.com/html/?q={query}",
		Selector: "a.result__a",
		Redirect: "uddg",
	}

	Bing = Engine{
		Name:     "bing",
		Endpoint: "https://www.bing.com/search?q={query}&count={limit}",
		Selector: "li.b_algo h2 a",
	}

	Google = Engine{
		Name:     "google",
		Endpoint: "https://www.google.com/search?q={query}&num={limit}",
		Selector: "div#search a:has(h3)",
		Redirect: "q",
	}
)

var engines = map[string]Engine{
	DuckDuckGo.Name: DuckDuckGo,
	Bing.Name:       Bing,
	Google.Name:     Google,
}

// Engines lists the built-in engine names.
func Engines() []string {
	names := make([]string, 0, len(engines))
	for name := range engines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the built-in engine with the given name.
func Lookup(name string) (Engine, error) {
	e, ok := engines[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Engine{}, fmt.Errorf("unknown search engine %q (known: %s)", name, strings.Join(Engines(), ", "))
	}
	return e, nil
}

// Validate checks that the engine can be queried.
func (e Engine) Validate() error {
	if e.Name == "" {
		return fmt.Errorf("search engine: name is required")
	}
	if !strings.Contains(e.Endpoint, "{query}") {
		return fmt.Errorf("search engine %s: endpoint must contain {query}", e.Name)
	}
	if e.Selector == "" {
		return fmt.Errorf("search engine %s: result selector is required", e.Name)
	}
	if _, err := cascadia.Compile(e.Selector); err != nil {
		return fmt.Errorf("search engine %s: selector %q: %w", e.Name, e.Selector, err)
	}
	return nil
}
