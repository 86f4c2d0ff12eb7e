package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/FranksOps/seedcorpus/pkg/proxy"
	"github.com/FranksOps/seedcorpus/pkg/useragent"
)

// DefaultHeaders are sent with every request unless the request sets them.
var DefaultHeaders = http.Header{
	"Accept":          {"text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"},
	"Accept-Language": {"en-US,en;q=0.5"},
}

// Config defines the setup for the HTTP Client.
type Config struct {
	Timeout      time.Duration
	MaxRedirects int
	UseCookieJar bool
	// UAPool rotates the User-Agent header. Nil uses useragent.DefaultPool.
	UAPool *useragent.Pool
	// Headers override DefaultHeaders.
	Headers http.Header
	// Transport replaces the default transport, e.g. for uTLS fingerprinting.
	// With Proxies set it must route through proxy.FromRequest.
	Transport http.RoundTripper
	// Proxies, if set, picks a proxy for every request and records the
	// outcome against it.
	Proxies *proxy.Pool
}

// Client wraps a standard http.Client with timeouts, a redirect policy,
// optional cookies and browser-like default headers.
type Client struct {
	*http.Client
	uas     *useragent.Pool
	headers http.Header
	proxies *proxy.Pool
}

// New creates a new HTTP client based on the provided configuration.
func New(cfg Config) (*Client, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.UAPool == nil {
		cfg.UAPool = useragent.NewPool(nil)
	}

	c := &http.Client{
		Timeout: cfg.Timeout,
	}

	if cfg.MaxRedirects >= 0 {
		limit := cfg.MaxRedirects
		c.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			if len(via) >= limit {
				return fmt.Errorf("stopped after %d redirects", limit)
			}
			return nil
		}
	} else {
		c.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	if cfg.UseCookieJar {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("cookie jar: %w", err)
		}
		c.Jar = jar
	}

	if cfg.Transport != nil {
		c.Transport = cfg.Transport
	} else if cfg.Proxies != nil {
		t := http.DefaultTransport.(*http.Transport).Clone()
		t.Proxy = proxy.FromRequest
		c.Transport = t
	}

	headers := DefaultHeaders.Clone()
	for k, v := range cfg.Headers {
		headers[http.CanonicalHeaderKey(k)] = append([]string(nil), v...)
	}

	return &Client{Client: c, uas: cfg.UAPool, headers: headers, proxies: cfg.Proxies}, nil
}

// Do executes req under ctx after filling in the User-Agent and any default
// header the request does not already carry.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if ctx == nil {
		return nil, errors.New("httpclient: context cannot be nil")
	}

	var via *url.URL
	if c.proxies != nil {
		u, err := c.proxies.Next()
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Redacted(), err)
		}
		via = u
		ctx = proxy.NewContext(ctx, u)
	}

	r := req.Clone(ctx)
	if r.Header.Get("User-Agent") == "" {
		r.Header.Set("User-Agent", c.uas.Next())
	}
	for k, v := range c.headers {
		if r.Header.Get(k) == "" {
			r.Header[k] = append([]string(nil), v...)
		}
	}

	resp, err := c.Client.Do(r)
	if via != nil {
		// a canceled request says nothing about the proxy
		switch {
		case err != nil && ctx.Err() == nil, resp != nil && resp.StatusCode == http.StatusProxyAuthRequired:
			_ = c.proxies.MarkFailure(via)
		case err == nil:
			_ = c.proxies.MarkSuccess(via)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", r.Method, r.URL.Redacted(), err)
	}
	return resp, nil
}

// Get issues a GET for rawURL.
func (c *Client) Get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	return c.Do(ctx, req)
}

// ReadBody reads at most limit bytes of resp.Body and closes it. A limit <= 0
// reads everything. The second return value reports truncation.
func ReadBody(resp *http.Response, limit int64) ([]byte, bool, error) {
	defer resp.Body.Close()
	if limit <= 0 {
		body, err := io.ReadAll(resp.Body)
		return body, false, err
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if int64(len(body)) > limit {
		return body[:limit], true, err
	}
	return body, false, err
}
