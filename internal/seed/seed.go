// Package seed turns raw input lines into canonical seed terms.
//
// A canonical seed is trimmed, has no double quotes and no runs of spaces,
// and is wrapped in double quotes when it holds more than one word so that a
// whitespace-joined tuple line keeps multi-word seeds together.
package seed

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// maxLineBytes caps a single input line.
const maxLineBytes = 1 << 20

const bom = "\uFEFF"

// Seed is a normalized seed term in its canonical string form.
type Seed string

// List is an ordered, index-addressable sequence of seeds. Duplicate entries
// are kept: they are distinct positional seeds.
type List []Seed

// String returns the canonical form.
func (s Seed) String() string { return string(s) }

// Term returns the seed text without the wrapping quotes.
func (s Seed) Term() string {
	return strings.Trim(string(s), `"`)
}

// Strings returns the canonical forms of all seeds in order.
func (l List) Strings() []string {
	out := make([]string, len(l))
	for i, s := range l {
		out[i] = string(s)
	}
	return out
}

// Normalize cleans a raw line. The second return value is false when the line
// holds nothing once cleaned and must be skipped.
func Normalize(line string) (Seed, bool) {
	s := collapse(strings.TrimSpace(line))
	s = strings.ReplaceAll(s, `"`, "")
	// quote removal can expose new edge or double spaces
	s = collapse(strings.TrimSpace(s))
	if s == "" {
		return "", false
	}
	if strings.Contains(s, " ") {
		s = `"` + s + `"`
	}
	return Seed(s), true
}

func collapse(s string) string {
	for strings.Contains(s, "  ") {
		s = strings.ReplaceAll(s, "  ", " ")
	}
	return s
}

// FromLines normalizes every line, dropping the empty ones.
func FromLines(lines []string) List {
	out := make(List, 0, len(lines))
	for _, line := range lines {
		if s, ok := Normalize(line); ok {
			out = append(out, s)
		}
	}
	return out
}

// Read consumes r to the end, one candidate seed per line. The whole source
// is read before returning.
func Read(r io.Reader) (List, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var out List
	first := true
	for sc.Scan() {
		line := sc.Text()
		if first {
			line = strings.TrimPrefix(line, bom)
			first = false
		}
		if s, ok := Normalize(line); ok {
			out = append(out, s)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read seeds: %w", err)
	}
	return out, nil
}

// Split breaks a tuple line back into its seeds. Spaces inside a quoted seed
// do not split it.
func Split(line string) []Seed {
	var (
		out    []Seed
		cur    strings.Builder
		quoted bool
	)
	flush := func() {
		if cur.Len() > 0 {
			out = append(out, Seed(cur.String()))
			cur.Reset()
		}
	}
	for _, r := range strings.TrimSpace(line) {
		switch {
		case r == '"':
			quoted = !quoted
			cur.WriteRune(r)
		case r == ' ' && !quoted:
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return out
}
