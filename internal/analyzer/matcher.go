package analyzer

import (
	"strings"
	"unicode"
)

// TermMatch represents occurrences of a seed term within a page.
type TermMatch struct {
	Term      string   `json:"term"`
	Count     int      `json:"count"`
	Sentences []string `json:"sentences"`
}

// FindTermMatches scans content for each term (case-insensitive) and
// returns one TermMatch per term that occurs, with the sentences containing
// it. Terms that do not occur are omitted.
func FindTermMatches(content string, terms []string) []TermMatch {
	if len(content) == 0 || len(terms) == 0 {
		return nil
	}

	results := make([]TermMatch, 0, len(terms))
	lowerContent := strings.ToLower(content)
	sentences := splitIntoSentences(content)

	for _, term := range terms {
		lowerTerm := strings.ToLower(term)
		if lowerTerm == "" {
			continue
		}
		count := strings.Count(lowerContent, lowerTerm)
		if count == 0 {
			continue
		}

		var matched []string
		for _, s := range sentences {
			if strings.Contains(s.lower, lowerTerm) {
				matched = append(matched, s.original)
			}
		}

		results = append(results, TermMatch{
			Term:      term,
			Count:     count,
			Sentences: matched,
		})
	}
	return results
}

// Coverage counts how many distinct terms occur in content at least once.
func Coverage(content string, terms []string) int {
	lowerContent := strings.ToLower(content)
	seen := make(map[string]bool, len(terms))
	n := 0
	for _, term := range terms {
		lowerTerm := strings.ToLower(term)
		if lowerTerm == "" || seen[lowerTerm] {
			continue
		}
		seen[lowerTerm] = true
		if strings.Contains(lowerContent, lowerTerm) {
			n++
		}
	}
	return n
}

type sentence struct {
	original string
	lower    string
}

// splitIntoSentences splits on '.', '!', '?' and newlines, keeping the
// delimiter with its sentence.
func splitIntoSentences(text string) []sentence {
	if len(text) == 0 {
		return nil
	}

	estimated := len(text) / 50
	if estimated < 1 {
		estimated = 1
	}

	sentences := make([]sentence, 0, estimated)
	add := func(s string) {
		if s = strings.TrimSpace(s); s != "" {
			sentences = append(sentences, sentence{original: s, lower: strings.ToLower(s)})
		}
	}

	start := 0
	for i, r := range text {
		if i < start {
			continue
		}
		if r == '.' || r == '!' || r == '?' || r == '\n' {
			end := i + 1
			for end < len(text) && unicode.IsSpace(rune(text[end])) {
				end++
			}
			add(text[start:end])
			start = end
		}
	}
	if start < len(text) {
		add(text[start:])
	}

	return sentences
}
