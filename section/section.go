// Package section picks one candidate section per page from raw page text.
package section

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/brunobiangulo/docsense/parser"
)

// Section is a page-level candidate: the first heading-like line of the page
// and the trimmed page text, byte for byte as read.
type Section struct {
	Title string `json:"title"`
	Page  int    `json:"page"`
	Text  string `json:"text"`
}

// Normalize trims the text, removes carriage returns and composes it to NFC.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r", "")
	return norm.NFC.String(strings.TrimSpace(text))
}

// Extract returns at most one section per page, in page order. Pages whose
// text is empty or has no heading-like line produce nothing.
func Extract(pages []parser.PageText) []Section {
	var sections []Section
	for _, p := range pages {
		if s, ok := FromPage(p); ok {
			sections = append(sections, s)
		}
	}
	return sections
}

// FromPage returns the section of a single page, if any. Titles are matched
// on the normalized text; Text keeps the original bytes.
func FromPage(p parser.PageText) (Section, bool) {
	text := Normalize(p.Text)
	if text == "" {
		return Section{}, false
	}
	for _, l := range strings.Split(text, "\n") {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		if IsHeadingLike(l) {
			return Section{Title: l, Page: p.Page, Text: strings.TrimSpace(p.Text)}, true
		}
	}
	return Section{}, false
}
