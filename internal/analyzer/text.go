// Package analyzer turns downloaded HTML into corpus text and measures how
// well that text covers the seeds that surfaced it.
package analyzer

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// dropped holds elements whose contents never reach the corpus.
const dropped = "script, style, noscript, template, iframe, svg, head"

// blocks are elements that end a line of text.
const blocks = "p, div, br, li, tr, h1, h2, h3, h4, h5, h6, pre, blockquote, section, article, header, footer, td, th, dt, dd"

// Document is the readable content of an HTML page.
type Document struct {
	Title string
	Text  string
}

// ExtractText parses body as HTML and returns its title and visible text,
// one block element per line with runs of whitespace collapsed.
func ExtractText(body []byte) (Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return Document{}, fmt.Errorf("parse html: %w", err)
	}

	title := normalizeLine(doc.Find("title").First().Text())

	doc.Find(dropped).Remove()
	doc.Find(blocks).Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})

	root := doc.Find("body")
	if root.Length() == 0 {
		root = doc.Selection
	}

	var lines []string
	for _, line := range strings.Split(root.Text(), "\n") {
		if line = normalizeLine(line); line != "" {
			lines = append(lines, line)
		}
	}

	return Document{Title: title, Text: strings.Join(lines, "\n")}, nil
}

func normalizeLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
