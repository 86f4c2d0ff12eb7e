// Package storagetest holds the behaviour every storage.Backend must show.
// Backend packages call Run from their own tests.
package storagetest

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/FranksOps/seedcorpus/internal/storage"
)

// Pages returns three pages from two runs, oldest first.
func Pages(now time.Time) []*storage.Page {
	return []*storage.Page{
		{
			ID:          "p1",
			RunID:       "run-a",
			Query:       `cat "big bird"`,
			URL:         "http://example.com/one",
			Rank:        1,
			StatusCode:  200,
			ContentType: "text/html; charset=utf-8",
			Headers:     map[string][]string{"Content-Type": {"text/html; charset=utf-8"}},
			Body:        []byte("<p>cat and big bird</p>"),
			Text:        "cat and big bird",
			Duration:    10 * time.Millisecond,
			Accepted:    true,
			CreatedAt:   now.Add(-2 * time.Hour),
		},
		{
			ID:          "p2",
			RunID:       "run-a",
			Query:       "dog cat",
			URL:         "http://example.com/two",
			Rank:        2,
			StatusCode:  403,
			ContentType: "text/html",
			Headers:     map[string][]string{"Server": {"cloudflare"}},
			Body:        []byte("cf challenge"),
			Duration:    20 * time.Millisecond,
			Accepted:    false,
			Reason:      "challenge: Cloudflare",
			CreatedAt:   now.Add(-1 * time.Hour),
		},
		{
			ID:        "p3",
			RunID:     "run-b",
			Query:     "dog cat",
			URL:       "http://example.com/three",
			Rank:      1,
			Headers:   map[string][]string{},
			Accepted:  false,
			Reason:    "fetch error",
			CreatedAt: now,
			Error:     "request failed: connection refused",
		},
	}
}

// Run saves Pages into b and checks round-tripping, every filter, ordering
// and windowing.
func Run(t *testing.T, b storage.Backend) {
	t.Helper()

	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)
	pages := Pages(now)

	for _, p := range pages {
		if err := b.Save(ctx, p); err != nil {
			t.Fatalf("save %s: %v", p.ID, err)
		}
	}

	all, err := b.Query(ctx, storage.Filter{})
	if err != nil {
		t.Fatalf("query all: %v", err)
	}
	expectIDs(t, "all, newest first", all, "p3", "p2", "p1")

	got := find(all, "p1")
	want := pages[0]
	if got == nil {
		t.Fatal("p1 missing")
	}
	if got.RunID != want.RunID || got.Query != want.Query || got.URL != want.URL || got.Rank != want.Rank {
		t.Errorf("identity fields differ: got %+v", got)
	}
	if got.StatusCode != want.StatusCode || got.ContentType != want.ContentType {
		t.Errorf("response fields differ: status %d type %q", got.StatusCode, got.ContentType)
	}
	if len(got.Headers["Content-Type"]) != 1 || got.Headers["Content-Type"][0] != want.ContentType {
		t.Errorf("headers differ: %v", got.Headers)
	}
	if !bytes.Equal(got.Body, want.Body) || got.Text != want.Text {
		t.Errorf("content differs: body %q text %q", got.Body, got.Text)
	}
	if got.Duration.Milliseconds() != want.Duration.Milliseconds() {
		t.Errorf("duration differs: %v", got.Duration)
	}
	if !got.Accepted || got.Reason != "" {
		t.Errorf("verdict differs: accepted=%v reason=%q", got.Accepted, got.Reason)
	}
	if got.CreatedAt.Unix() != want.CreatedAt.Unix() {
		t.Errorf("created_at differs: %v vs %v", got.CreatedAt, want.CreatedAt)
	}
	if e := find(all, "p3"); e == nil || e.Error != pages[2].Error {
		t.Errorf("error field lost")
	}

	check := func(name string, f storage.Filter, ids ...string) {
		t.Helper()
		res, err := b.Query(ctx, f)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		expectIDs(t, name, res, ids...)
	}

	yes, no := true, false
	since := now.Add(-90 * time.Minute)

	check("run", storage.Filter{RunID: "run-a"}, "p2", "p1")
	check("query", storage.Filter{Query: "dog cat"}, "p3", "p2")
	check("url", storage.Filter{URL: "http://example.com/two"}, "p2")
	check("accepted", storage.Filter{Accepted: &yes}, "p1")
	check("rejected", storage.Filter{Accepted: &no}, "p3", "p2")
	check("since", storage.Filter{Since: &since}, "p3", "p2")
	check("limit", storage.Filter{Limit: 1}, "p3")
	check("offset", storage.Filter{Offset: 1}, "p2", "p1")
	check("offset+limit", storage.Filter{Offset: 1, Limit: 1}, "p2")
	check("offset past end", storage.Filter{Offset: 10})
	check("combined", storage.Filter{RunID: "run-a", Accepted: &no}, "p2")
}

func find(pages []*storage.Page, id string) *storage.Page {
	for _, p := range pages {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func expectIDs(t *testing.T, name string, pages []*storage.Page, ids ...string) {
	t.Helper()
	if len(pages) != len(ids) {
		got := make([]string, len(pages))
		for i, p := range pages {
			got[i] = p.ID
		}
		t.Fatalf("%s: expected %v, got %v", name, ids, got)
	}
	for i, id := range ids {
		if pages[i].ID != id {
			t.Errorf("%s: position %d expected %s, got %s", name, i, id, pages[i].ID)
		}
	}
}
