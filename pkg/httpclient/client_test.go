package httpclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/FranksOps/seedcorpus/pkg/proxy"
	"github.com/FranksOps/seedcorpus/pkg/useragent"
)

func TestClient_Timeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	client, err := New(Config{Timeout: 10 * time.Millisecond})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := client.Get(context.Background(), ts.URL); err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestClient_Redirects(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/1":
			http.Redirect(w, r, "/2", http.StatusFound)
		case "/2":
			http.Redirect(w, r, "/3", http.StatusFound)
		default:
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer ts.Close()

	client, err := New(Config{MaxRedirects: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := client.Get(context.Background(), ts.URL+"/1"); err == nil {
		t.Fatal("expected redirect limit error")
	}

	follow, _ := New(Config{MaxRedirects: 5})
	resp, err := follow.Get(context.Background(), ts.URL+"/1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()
	if resp.Request.URL.Path != "/3" {
		t.Errorf("expected to land on /3, got %s", resp.Request.URL.Path)
	}

	noRedir, _ := New(Config{MaxRedirects: -1})
	resp, err = noRedir.Get(context.Background(), ts.URL+"/1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusFound {
		t.Errorf("expected 302 StatusFound, got %d", resp.StatusCode)
	}
}

func TestClient_Cookies(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/set" {
			http.SetCookie(w, &http.Cookie{Name: "session", Value: "test"})
			return
		}
		c, err := r.Cookie("session")
		if err != nil || c.Value != "test" {
			w.WriteHeader(http.StatusUnauthorized)
		}
	}))
	defer ts.Close()

	client, err := New(Config{UseCookieJar: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	resp1, err := client.Get(context.Background(), ts.URL+"/set")
	if err != nil {
		t.Fatalf("unexpected error on /set: %v", err)
	}
	resp1.Body.Close()

	resp2, err := client.Get(context.Background(), ts.URL+"/check")
	if err != nil {
		t.Fatalf("unexpected error on /check: %v", err)
	}
	defer resp2.Body.Close()

	if resp2.StatusCode != http.StatusOK {
		t.Errorf("expected 200 OK from /check, got %d. Cookies not persisted?", resp2.StatusCode)
	}
}

func TestClient_Headers(t *testing.T) {
	seen := make(chan http.Header, 2)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen <- r.Header.Clone()
	}))
	defer ts.Close()

	client, _ := New(Config{
		UAPool:  useragent.NewPool([]string{"TestBrowser/1.0"}),
		Headers: http.Header{"accept-language": {"de-DE"}},
	})

	resp, err := client.Get(context.Background(), ts.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()

	got := <-seen
	if ua := got.Get("User-Agent"); ua != "TestBrowser/1.0" {
		t.Errorf("expected pooled User-Agent, got %q", ua)
	}
	if al := got.Get("Accept-Language"); al != "de-DE" {
		t.Errorf("expected overridden Accept-Language, got %q", al)
	}
	if !strings.HasPrefix(got.Get("Accept"), "text/html") {
		t.Errorf("expected default Accept header, got %q", got.Get("Accept"))
	}

	req, _ := http.NewRequest(http.MethodGet, ts.URL, nil)
	req.Header.Set("User-Agent", "Explicit/2.0")
	resp, err = client.Do(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()
	if ua := (<-seen).Get("User-Agent"); ua != "Explicit/2.0" {
		t.Errorf("request User-Agent must win, got %q", ua)
	}
}

func TestClient_Context(t *testing.T) {
	client, _ := New(Config{})

	req, _ := http.NewRequest(http.MethodGet, "http://example.com", nil)

	//nolint:staticcheck // nil context is the case under test
	_, err := client.Do(nil, req)
	if err == nil || !strings.Contains(err.Error(), "context cannot be nil") {
		t.Errorf("expected nil context error, got %v", err)
	}

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(1 * time.Second)
	}))
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := client.Get(ctx, ts.URL); err == nil {
		t.Fatal("expected cancellation error")
	}
}

func TestReadBody(t *testing.T) {
	mk := func(s string) *http.Response {
		return &http.Response{Body: io.NopCloser(strings.NewReader(s))}
	}

	body, truncated, err := ReadBody(mk("hello world"), 5)
	if err != nil || !truncated || string(body) != "hello" {
		t.Errorf("expected truncated 'hello', got %q truncated=%v err=%v", body, truncated, err)
	}

	body, truncated, err = ReadBody(mk("hello"), 5)
	if err != nil || truncated || string(body) != "hello" {
		t.Errorf("expected full 'hello', got %q truncated=%v err=%v", body, truncated, err)
	}

	body, truncated, _ = ReadBody(mk("unbounded"), 0)
	if truncated || string(body) != "unbounded" {
		t.Errorf("expected unbounded read, got %q", body)
	}
}

func TestClient_Proxies(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []string
	)
	fwd := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, r.URL.String())
		mu.Unlock()
		_, _ = w.Write([]byte("via proxy"))
	}))
	defer fwd.Close()

	dead := httptest.NewServer(http.NotFoundHandler())
	deadURL := dead.URL
	dead.Close()

	pool := proxy.NewPool(proxy.Config{MaxFailures: 1, Cooldown: time.Hour})
	if err := pool.Add(fwd.URL, deadURL); err != nil {
		t.Fatalf("Add: %v", err)
	}

	client, err := New(Config{Timeout: 5 * time.Second, Proxies: pool})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	resp, err := client.Get(context.Background(), "http://corpus.example/page")
	if err != nil {
		t.Fatalf("request through proxy: %v", err)
	}
	body, _, _ := ReadBody(resp, 0)
	if string(body) != "via proxy" {
		t.Errorf("unexpected body %q", body)
	}
	mu.Lock()
	if len(seen) != 1 || seen[0] != "http://corpus.example/page" {
		t.Errorf("proxy saw %v", seen)
	}
	mu.Unlock()

	if _, err := client.Get(context.Background(), "http://corpus.example/other"); err == nil {
		t.Fatal("expected error through dead proxy")
	}

	stats := pool.Stats()
	if stats[0].Successes != 1 || !stats[1].Benched {
		t.Errorf("unexpected proxy stats %+v", stats)
	}

	// only the healthy proxy is left
	if _, err := client.Get(context.Background(), "http://corpus.example/again"); err != nil {
		t.Fatalf("expected healthy proxy to be used: %v", err)
	}

	_ = pool.MarkFailure(mustParse(t, fwd.URL))
	if _, err := client.Get(context.Background(), "http://corpus.example/last"); !errors.Is(err, proxy.ErrExhausted) {
		t.Errorf("expected ErrExhausted, got %v", err)
	}
}

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	return u
}
