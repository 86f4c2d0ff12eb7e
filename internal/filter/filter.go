// Package filter decides which downloaded pages enter the corpus.
package filter

import (
	"fmt"
	"mime"
	"strings"

	"github.com/FranksOps/seedcorpus/internal/analyzer"
	"github.com/FranksOps/seedcorpus/internal/seed"
	"github.com/FranksOps/seedcorpus/internal/storage"
)

// Rule inspects a page and returns a non-empty reason when the page must be
// rejected. Reasons are short fixed phrases so reports can group by them.
type Rule func(p *storage.Page) string

// Config selects and parameterizes the default rule set.
type Config struct {
	// ContentTypes are accepted media types. Empty means HTML only.
	ContentTypes []string
	MinBytes     int
	MaxBytes     int // 0 disables the upper bound
	// MinTerms is the number of distinct query seeds the page text must
	// contain. 0 disables the check; values above the tuple size require
	// every seed.
	MinTerms int
}

// DefaultContentTypes are accepted when Config.ContentTypes is empty.
var DefaultContentTypes = []string{"text/html", "application/xhtml+xml"}

// Rules builds the rule chain for cfg, in evaluation order.
func Rules(cfg Config) []Rule {
	types := cfg.ContentTypes
	if len(types) == 0 {
		types = DefaultContentTypes
	}

	rules := []Rule{
		FetchOK,
		BotChallenge(DefaultChallenges()),
		StatusOK,
		ContentType(types...),
		SizeBounds(cfg.MinBytes, cfg.MaxBytes),
	}
	if cfg.MinTerms > 0 {
		rules = append(rules, TermCoverage(cfg.MinTerms))
	}
	return rules
}

// Apply runs p through rules and records the verdict on it. The first
// rejecting rule wins.
func Apply(p *storage.Page, rules []Rule) bool {
	if p == nil {
		return false
	}
	for _, rule := range rules {
		if reason := rule(p); reason != "" {
			p.Accepted = false
			p.Reason = reason
			return false
		}
	}
	p.Accepted = true
	p.Reason = ""
	return true
}

// FetchOK rejects pages whose download failed.
func FetchOK(p *storage.Page) string {
	if p.Error != "" {
		return "fetch failed"
	}
	return ""
}

// StatusOK rejects non-2xx responses.
func StatusOK(p *storage.Page) string {
	if p.StatusCode < 200 || p.StatusCode > 299 {
		return fmt.Sprintf("status %d", p.StatusCode)
	}
	return ""
}

// ContentType accepts pages whose media type is one of allowed. Parameters
// such as charset are ignored.
func ContentType(allowed ...string) Rule {
	set := make(map[string]bool, len(allowed))
	for _, a := range allowed {
		set[strings.ToLower(strings.TrimSpace(a))] = true
	}
	return func(p *storage.Page) string {
		mt, _, err := mime.ParseMediaType(p.ContentType)
		if err != nil {
			mt = strings.ToLower(strings.TrimSpace(p.ContentType))
		}
		if !set[mt] {
			if mt == "" {
				return "missing content type"
			}
			return "content type " + mt
		}
		return ""
	}
}

// SizeBounds rejects bodies shorter than minBytes or longer than maxBytes.
// A zero maxBytes disables the upper bound.
func SizeBounds(minBytes, maxBytes int) Rule {
	return func(p *storage.Page) string {
		n := len(p.Body)
		if n < minBytes {
			return fmt.Sprintf("body below %d bytes", minBytes)
		}
		if maxBytes > 0 && n > maxBytes {
			return fmt.Sprintf("body above %d bytes", maxBytes)
		}
		return ""
	}
}

// TermCoverage requires the page text to mention at least minTerms of the
// seeds in the query that surfaced it.
func TermCoverage(minTerms int) Rule {
	return func(p *storage.Page) string {
		seeds := seed.Split(p.Query)
		terms := make([]string, len(seeds))
		for i, s := range seeds {
			terms[i] = s.Term()
		}

		need := min(minTerms, len(terms))
		if analyzer.Coverage(p.Text, terms) < need {
			return fmt.Sprintf("fewer than %d query terms", need)
		}
		return ""
	}
}
