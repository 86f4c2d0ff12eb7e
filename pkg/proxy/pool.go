// Package proxy rotates outbound requests across a list of forward proxies
// and benches proxies that keep failing.
package proxy

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"
)

var (
	// ErrExhausted is returned when every proxy is cooling down.
	ErrExhausted = errors.New("no healthy proxy available")
	// ErrUnknown is returned when marking a proxy that is not in the pool.
	ErrUnknown = errors.New("proxy not in pool")
)

// Schemes lists the proxy URL schemes net/http can dial.
var Schemes = []string{"http", "https", "socks5"}

type entry struct {
	url       *url.URL
	failures  int
	successes int
	benched   time.Time // zero while healthy
}

// Pool hands out proxies round-robin, skipping benched ones.
type Pool struct {
	mu          sync.Mutex
	entries     []*entry
	next        int
	maxFailures int
	cooldown    time.Duration
	now         func() time.Time
}

// Config sets the health policy of a Pool.
type Config struct {
	// MaxFailures benches a proxy after this many failures in a row (0 = 3).
	MaxFailures int
	// Cooldown is how long a benched proxy sits out (0 = 5m).
	Cooldown time.Duration
}

// Stats reports the request outcomes of one proxy.
type Stats struct {
	URL       string
	Successes int
	Failures  int
	Benched   bool
}

func NewPool(cfg Config) *Pool {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 3
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 5 * time.Minute
	}
	return &Pool{maxFailures: cfg.MaxFailures, cooldown: cfg.Cooldown, now: time.Now}
}

// LoadFile adds one proxy per line of path. Blank lines and lines starting
// with '#' are skipped.
func (p *Pool) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open proxy list: %w", err)
	}
	defer f.Close()

	var raw []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		raw = append(raw, line)
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read proxy list %s: %w", path, err)
	}
	return p.Add(raw...)
}

// Add parses and appends proxies. A missing scheme means http. Nothing is
// added if any entry is invalid.
func (p *Pool) Add(raw ...string) error {
	parsed := make([]*entry, 0, len(raw))
	for _, r := range raw {
		u, err := parse(r)
		if err != nil {
			return err
		}
		parsed = append(parsed, &entry{url: u})
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries = append(p.entries, parsed...)
	return nil
}

func parse(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse proxy %q: %w", raw, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("proxy %q has no host", raw)
	}
	for _, s := range Schemes {
		if u.Scheme == s {
			return u, nil
		}
	}
	return nil, fmt.Errorf("proxy %q: unsupported scheme %q", raw, u.Scheme)
}

// Len returns the number of proxies, benched or not.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// Next returns the next healthy proxy, or ErrExhausted when the pool is
// empty or every proxy is benched. A proxy whose cooldown has passed comes
// back with a clean failure count.
func (p *Pool) Next() (*url.URL, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	for range p.entries {
		e := p.entries[p.next]
		p.next = (p.next + 1) % len(p.entries)

		if !e.benched.IsZero() {
			if now.Before(e.benched.Add(p.cooldown)) {
				continue
			}
			e.benched = time.Time{}
			e.failures = 0
		}
		return e.url, nil
	}
	return nil, ErrExhausted
}

// MarkSuccess clears the failure streak of u.
func (p *Pool) MarkSuccess(u *url.URL) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	e := p.find(u)
	if e == nil {
		return ErrUnknown
	}
	e.successes++
	e.failures = 0
	return nil
}

// MarkFailure counts a failure against u and benches it once the streak
// reaches MaxFailures.
func (p *Pool) MarkFailure(u *url.URL) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	e := p.find(u)
	if e == nil {
		return ErrUnknown
	}
	e.failures++
	if e.failures >= p.maxFailures && e.benched.IsZero() {
		e.benched = p.now()
	}
	return nil
}

// Stats returns a snapshot in pool order.
func (p *Pool) Stats() []Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	out := make([]Stats, len(p.entries))
	for i, e := range p.entries {
		out[i] = Stats{
			URL:       e.url.Redacted(),
			Successes: e.successes,
			Failures:  e.failures,
			Benched:   !e.benched.IsZero() && now.Before(e.benched.Add(p.cooldown)),
		}
	}
	return out
}

// must be called with p.mu held
func (p *Pool) find(u *url.URL) *entry {
	if u == nil {
		return nil
	}
	target := u.String()
	for _, e := range p.entries {
		if e.url.String() == target {
			return e
		}
	}
	return nil
}

type ctxKey struct{}

// NewContext returns a copy of ctx that routes requests through u.
func NewContext(ctx context.Context, u *url.URL) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

// FromContext returns the proxy stored by NewContext, if any.
func FromContext(ctx context.Context) (*url.URL, bool) {
	u, ok := ctx.Value(ctxKey{}).(*url.URL)
	return u, ok && u != nil
}

// FromRequest is an http.Transport Proxy func that uses the proxy chosen
// for the request's context and connects directly otherwise.
func FromRequest(req *http.Request) (*url.URL, error) {
	u, _ := FromContext(req.Context())
	return u, nil
}
