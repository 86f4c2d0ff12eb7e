package storage

import (
	"context"
	"testing"
	"time"
)

func TestFilter_Match(t *testing.T) {
	now := time.Now()
	p := &Page{RunID: "r1", Query: "cat dog", URL: "http://a", Accepted: true, CreatedAt: now}

	yes, no := true, false
	earlier, later := now.Add(-time.Minute), now.Add(time.Minute)

	cases := []struct {
		name string
		f    Filter
		want bool
	}{
		{"empty", Filter{}, true},
		{"run", Filter{RunID: "r1"}, true},
		{"other run", Filter{RunID: "r2"}, false},
		{"query", Filter{Query: "cat dog"}, true},
		{"other query", Filter{Query: "dog cat"}, false},
		{"url", Filter{URL: "http://b"}, false},
		{"accepted", Filter{Accepted: &yes}, true},
		{"rejected", Filter{Accepted: &no}, false},
		{"since earlier", Filter{Since: &earlier}, true},
		{"since later", Filter{Since: &later}, false},
	}
	for _, tc := range cases {
		if got := tc.f.Match(p); got != tc.want {
			t.Errorf("%s: Match = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestFilter_Window(t *testing.T) {
	mk := func() []*Page {
		return []*Page{{ID: "1"}, {ID: "2"}, {ID: "3"}}
	}

	got := Filter{}.Window(mk())
	if len(got) != 3 || got[0].ID != "3" || got[2].ID != "1" {
		t.Errorf("expected newest first, got %v %v %v", got[0].ID, got[1].ID, got[2].ID)
	}

	got = Filter{Offset: 1, Limit: 1}.Window(mk())
	if len(got) != 1 || got[0].ID != "2" {
		t.Errorf("expected page 2 only, got %d pages", len(got))
	}

	got = Filter{Offset: 5}.Window(mk())
	if len(got) != 0 {
		t.Errorf("expected empty window, got %d", len(got))
	}
}

type memBackend struct{ pages []*Page }

func (m *memBackend) Save(ctx context.Context, p *Page) error {
	m.pages = append(m.pages, p)
	return nil
}

func (m *memBackend) Query(ctx context.Context, f Filter) ([]*Page, error) {
	var out []*Page
	for _, p := range m.pages {
		if f.Match(p) {
			out = append(out, p)
		}
	}
	return f.Window(out), nil
}

func (m *memBackend) Close() error { return nil }

func TestBackendInterface(t *testing.T) {
	var b Backend = &memBackend{}
	ctx := context.Background()
	_ = b.Save(ctx, &Page{ID: "a", Accepted: true})
	_ = b.Save(ctx, &Page{ID: "b"})

	yes := true
	got, err := b.Query(ctx, Filter{Accepted: &yes})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].ID != "a" {
		t.Errorf("expected only accepted page a, got %d pages", len(got))
	}
}
