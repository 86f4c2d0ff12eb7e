package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/FranksOps/seedcorpus/internal/storage"
	"github.com/sebdah/goldie/v2"
)

func fixturePages() []*storage.Page {
	t0 := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return []*storage.Page{
		{
			RunID: "run-a", Query: "cat dog", URL: "https://example.com/a",
			StatusCode: 200, Body: []byte("hello"), Accepted: true, CreatedAt: t0,
		},
		{
			RunID: "run-a", Query: "cat dog", URL: "https://example.org/b",
			StatusCode: 404, Body: []byte("nf"), Reason: "status 404", CreatedAt: t0.Add(time.Second),
		},
		{
			RunID: "run-b", Query: "cat bird", URL: "https://example.com/c",
			Error: "request failed", Reason: "fetch failed", CreatedAt: t0.Add(3 * time.Second),
		},
		{
			RunID: "run-b", Query: "cat bird", URL: "https://sub.example.net/d",
			StatusCode: 200, Body: []byte("abcdefghij"), Accepted: true, CreatedAt: t0.Add(2 * time.Second),
		},
	}
}

func TestGenerateSummary(t *testing.T) {
	summary := GenerateSummary(fixturePages())

	if summary.Pages != 4 {
		t.Errorf("expected 4 pages, got %d", summary.Pages)
	}
	if summary.Errors != 1 {
		t.Errorf("expected 1 error, got %d", summary.Errors)
	}
	if summary.Accepted != 2 || summary.Rejected != 2 {
		t.Errorf("expected 2 accepted and 2 rejected, got %d/%d", summary.Accepted, summary.Rejected)
	}
	if summary.Reasons["status 404"] != 1 || summary.Reasons["fetch failed"] != 1 {
		t.Errorf("unexpected reasons %v", summary.Reasons)
	}
	if summary.StatusCodes[200] != 2 || summary.StatusCodes[404] != 1 || len(summary.StatusCodes) != 2 {
		t.Errorf("unexpected status codes %v", summary.StatusCodes)
	}
	if summary.Queries != 2 {
		t.Errorf("expected 2 queries, got %d", summary.Queries)
	}
	if summary.Domains != 2 {
		t.Errorf("expected 2 accepted domains, got %d", summary.Domains)
	}
	if summary.TotalBytes != 17 || summary.CorpusBytes != 15 {
		t.Errorf("unexpected bytes %d/%d", summary.CorpusBytes, summary.TotalBytes)
	}
	if summary.Duration != 3*time.Second {
		t.Errorf("expected 3s duration, got %v", summary.Duration)
	}
	if len(summary.Runs) != 2 || summary.Runs[0] != "run-a" || summary.Runs[1] != "run-b" {
		t.Errorf("unexpected runs %v", summary.Runs)
	}
	if summary.AcceptRate() != 0.5 {
		t.Errorf("expected accept rate 0.5, got %v", summary.AcceptRate())
	}
}

func TestGenerateSummaryEmpty(t *testing.T) {
	summary := GenerateSummary(nil)
	if summary.Pages != 0 || summary.AcceptRate() != 0 {
		t.Errorf("unexpected summary for no pages: %+v", summary)
	}

	var buf bytes.Buffer
	if err := WriteText(&buf, summary); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Count(buf.String(), "None") != 2 {
		t.Errorf("expected empty sections, got:\n%s", buf.String())
	}
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteText(&buf, GenerateSummary(fixturePages())); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	g := goldie.New(t, goldie.WithFixtureDir("testdata"), goldie.WithNameSuffix(".golden"))
	g.Assert(t, "summary", buf.Bytes())
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, GenerateSummary(fixturePages())); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var decoded Summary
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if decoded.Pages != 4 || decoded.StatusCodes[404] != 1 {
		t.Errorf("unexpected decoded summary %+v", decoded)
	}
	if !strings.Contains(buf.String(), `"corpus_bytes": 15`) {
		t.Errorf("expected snake_case field names, got:\n%s", buf.String())
	}
}

func TestWriteHTML(t *testing.T) {
	summary := Summary{
		Pages:    10,
		Rejected: 2,
		Reasons:  map[string]int{"bot challenge: <DataDome>": 2},
	}
	var buf bytes.Buffer
	if err := WriteHTML(&buf, summary); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "<title>Corpus Report</title>") {
		t.Errorf("expected HTML title")
	}
	if !strings.Contains(out, "bot challenge: &lt;DataDome&gt;") {
		t.Errorf("expected escaped reason in HTML")
	}
}

func TestWriteFormat(t *testing.T) {
	summary := GenerateSummary(fixturePages())
	for _, format := range []string{"", "text", "json", "html"} {
		var buf bytes.Buffer
		if err := Write(&buf, format, summary); err != nil {
			t.Errorf("Write(%q): %v", format, err)
		}
		if buf.Len() == 0 {
			t.Errorf("Write(%q) produced no output", format)
		}
	}

	if err := Write(&bytes.Buffer{}, "xml", summary); err == nil {
		t.Error("expected error for unknown format")
	}
}
