// Package report aggregates stored corpus pages into a run summary.
package report

import (
	"encoding/json"
	"fmt"
	htmltemplate "html/template"
	"io"
	"net/url"
	"sort"
	"text/template"
	"time"

	"github.com/FranksOps/seedcorpus/internal/storage"
)

// Summary contains aggregated figures about one or more collection runs.
type Summary struct {
	Runs        []string       `json:"runs"`
	Pages       int            `json:"pages"`
	Errors      int            `json:"errors"`
	Accepted    int            `json:"accepted"`
	Rejected    int            `json:"rejected"`
	Reasons     map[string]int `json:"reasons"`
	StatusCodes map[int]int    `json:"status_codes"`
	Queries     int            `json:"queries"`
	Domains     int            `json:"domains"` // distinct hosts among accepted pages
	TotalBytes  int64          `json:"total_bytes"`
	CorpusBytes int64          `json:"corpus_bytes"`
	StartTime   time.Time      `json:"start_time"`
	EndTime     time.Time      `json:"end_time"`
	Duration    time.Duration  `json:"duration"`
}

// AcceptRate is the accepted share of pages, 0 when there are none.
func (s Summary) AcceptRate() float64 {
	if s.Pages == 0 {
		return 0
	}
	return float64(s.Accepted) / float64(s.Pages)
}

// GenerateSummary aggregates pages in any order.
func GenerateSummary(pages []*storage.Page) Summary {
	s := Summary{
		Runs:        []string{},
		Reasons:     make(map[string]int),
		StatusCodes: make(map[int]int),
	}

	if len(pages) == 0 {
		return s
	}

	runs := make(map[string]bool)
	queries := make(map[string]bool)
	domains := make(map[string]bool)

	s.StartTime = pages[0].CreatedAt
	s.EndTime = pages[0].CreatedAt

	for _, p := range pages {
		s.Pages++
		if p.Error != "" {
			s.Errors++
		}
		if p.StatusCode > 0 {
			s.StatusCodes[p.StatusCode]++
		}
		s.TotalBytes += int64(len(p.Body))

		if p.Accepted {
			s.Accepted++
			s.CorpusBytes += int64(len(p.Body))
			if u, err := url.Parse(p.URL); err == nil && u.Host != "" {
				domains[u.Hostname()] = true
			}
		} else {
			s.Rejected++
			if p.Reason != "" {
				s.Reasons[p.Reason]++
			}
		}

		if p.RunID != "" && !runs[p.RunID] {
			runs[p.RunID] = true
			s.Runs = append(s.Runs, p.RunID)
		}
		if p.Query != "" {
			queries[p.Query] = true
		}

		if p.CreatedAt.Before(s.StartTime) {
			s.StartTime = p.CreatedAt
		}
		if p.CreatedAt.After(s.EndTime) {
			s.EndTime = p.CreatedAt
		}
	}

	sort.Strings(s.Runs)
	s.Queries = len(queries)
	s.Domains = len(domains)
	s.Duration = s.EndTime.Sub(s.StartTime)
	return s
}

// WriteJSON writes the summary to the provided writer in JSON format.
func WriteJSON(w io.Writer, summary Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	return nil
}

const textTmpl = `Corpus Summary
--------------
Runs:          {{len .Runs}}{{range .Runs}}
  {{.}}{{end}}
Time:          {{.StartTime.UTC.Format "2006-01-02 15:04:05"}} - {{.EndTime.UTC.Format "2006-01-02 15:04:05"}}
Duration:      {{.Duration}}
Queries:       {{.Queries}}
Pages:         {{.Pages}}
Fetch Errors:  {{.Errors}}
Accepted:      {{.Accepted}} ({{printf "%.1f" (percent .AcceptRate)}}%)
Rejected:      {{.Rejected}}
Domains:       {{.Domains}}
Corpus Bytes:  {{.CorpusBytes}} of {{.TotalBytes}}

Status Codes:
{{- range $code, $count := .StatusCodes}}
  {{$code}}: {{$count}}
{{- else}}
  None
{{- end}}

Reject Reasons:
{{- range $reason, $count := .Reasons}}
  {{$reason}}: {{$count}}
{{- else}}
  None
{{- end}}
`

var funcs = map[string]any{
	"percent": func(f float64) float64 { return f * 100 },
}

var (
	textReport = template.Must(template.New("textReport").Funcs(funcs).Parse(textTmpl))
	htmlReport = htmltemplate.Must(htmltemplate.New("htmlReport").Funcs(funcs).Parse(htmlTmpl))
)

// WriteText writes a human-readable text summary to the provided writer.
func WriteText(w io.Writer, summary Summary) error {
	if err := textReport.Execute(w, summary); err != nil {
		return fmt.Errorf("render text report: %w", err)
	}
	return nil
}

const htmlTmpl = `<!DOCTYPE html>
<html>
<head>
<title>Corpus Report</title>
<style>
  body { font-family: sans-serif; margin: 40px; color: #333; }
  h1 { border-bottom: 2px solid #ccc; padding-bottom: 10px; }
  .stat-card { display: inline-block; padding: 20px; margin: 10px 10px 10px 0; background: #f4f4f4; border-radius: 5px; min-width: 150px; }
  .stat-val { font-size: 24px; font-weight: bold; }
  table { border-collapse: collapse; margin-top: 10px; }
  th, td { padding: 8px 12px; border: 1px solid #ccc; text-align: left; }
  th { background: #eaeaea; }
</style>
</head>
<body>
  <h1>Corpus Report</h1>
  <p><strong>Time:</strong> {{.StartTime.UTC.Format "2006-01-02 15:04:05"}} to {{.EndTime.UTC.Format "2006-01-02 15:04:05"}} ({{.Duration}})</p>

  <div class="stat-card"><div>Pages</div><div class="stat-val">{{.Pages}}</div></div>
  <div class="stat-card"><div>Accepted</div><div class="stat-val">{{.Accepted}}</div></div>
  <div class="stat-card"><div>Rejected</div><div class="stat-val">{{.Rejected}}</div></div>
  <div class="stat-card"><div>Fetch Errors</div><div class="stat-val">{{.Errors}}</div></div>
  <div class="stat-card"><div>Queries</div><div class="stat-val">{{.Queries}}</div></div>
  <div class="stat-card"><div>Corpus Bytes</div><div class="stat-val">{{.CorpusBytes}}</div></div>

  <h3>Status Codes</h3>
  <table>
    <tr><th>Code</th><th>Count</th></tr>
    {{- range $code, $count := .StatusCodes}}
    <tr><td>{{$code}}</td><td>{{$count}}</td></tr>
    {{- else}}
    <tr><td colspan="2">None</td></tr>
    {{- end}}
  </table>

  <h3>Reject Reasons</h3>
  <table>
    <tr><th>Reason</th><th>Count</th></tr>
    {{- range $reason, $count := .Reasons}}
    <tr><td>{{$reason}}</td><td>{{$count}}</td></tr>
    {{- else}}
    <tr><td colspan="2">None</td></tr>
    {{- end}}
  </table>
</body>
</html>
`

// WriteHTML writes a basic HTML report to the provided writer.
func WriteHTML(w io.Writer, summary Summary) error {
	if err := htmlReport.Execute(w, summary); err != nil {
		return fmt.Errorf("render html report: %w", err)
	}
	return nil
}

// Write renders summary in the named format: text, json or html.
func Write(w io.Writer, format string, summary Summary) error {
	switch format {
	case "", "text":
		return WriteText(w, summary)
	case "json":
		return WriteJSON(w, summary)
	case "html":
		return WriteHTML(w, summary)
	default:
		return fmt.Errorf("unknown report format %q", format)
	}
}
