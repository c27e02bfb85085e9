package section

import (
	"strings"
	"testing"

	"github.com/brunobiangulo/docsense/parser"
)

func TestIsHeadingLike(t *testing.T) {
	tests := []struct {
		line     string
		expected bool
		reason   string
	}{
		// --- Title case ---
		{"Introduction", true, "single capitalised word"},
		{"Comprehensive Guide To Cities", true, "every word capitalised"},
		{"Chapter 3 Results", true, "digits are uncased"},
		{"Über Die Reise", true, "non-ASCII upper-case start"},
		{"Guide to cities", false, "lower-case word breaks title case"},
		{"McDonald Farm", false, "upper-case after lower-case inside a word"},
		{"World's End", false, "letter after apostrophe starts a new lower-case run"},

		// --- Upper case ---
		{"INTRODUCTION", true, "all caps"},
		{"SECTION 2 - SCOPE", true, "all caps with digits and punctuation"},
		{"CAPÍTULO TRES", true, "all caps with accent"},
		{"A", true, "single upper-case letter"},

		// --- Colon labels ---
		{"things to pack:", true, "short colon label"},
		{"what you will need for the trip:", true, "seven words"},
		{"one two three four five six seven eight:", false, "eight words"},
		{"a very long label that goes past forty chars:", false, "too many characters"},
		{"ends with colon but is lower case and long enough to fail the limit:", false, "long label"},

		// --- Not headings ---
		{"this is a normal paragraph of text.", false, "plain body text"},
		{"1234 5678", false, "no cased letters"},
		{"", false, "empty"},
		{"---", false, "punctuation only"},
		{"The hotel offers free breakfast every day.", false, "sentence case"},
	}

	for _, tt := range tests {
		got := IsHeadingLike(tt.line)
		if got != tt.expected {
			t.Errorf("IsHeadingLike(%q) = %v, want %v (%s)", tt.line, got, tt.expected, tt.reason)
		}
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  Title\r\nBody \r\n", "Title\nBody"},
		{"Café", "Café"},
		{"\n\n", ""},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExtractFirstQualifyingLineWins(t *testing.T) {
	pages := []parser.PageText{
		{Page: 0, Text: "the cover page has no heading\njust words"},
		{Page: 1, Text: "intro text here\nPacking List\nTRAVEL TIPS\nmore text"},
		{Page: 2, Text: "   "},
		{Page: 3, Text: "\r\n  NIGHTLIFE  \r\nClubs and bars"},
	}

	got := Extract(pages)
	if len(got) != 2 {
		t.Fatalf("expected 2 sections, got %d: %+v", len(got), got)
	}
	if got[0].Title != "Packing List" || got[0].Page != 1 {
		t.Errorf("section 0 = %+v, want Packing List on page 1", got[0])
	}
	if got[0].Text != "intro text here\nPacking List\nTRAVEL TIPS\nmore text" {
		t.Errorf("section text should be the full page text, got %q", got[0].Text)
	}
	if got[1].Title != "NIGHTLIFE" || got[1].Page != 3 {
		t.Errorf("section 1 = %+v, want NIGHTLIFE on page 3", got[1])
	}
	if got[1].Text != "NIGHTLIFE  \r\nClubs and bars" {
		t.Errorf("section 1 text = %q", got[1].Text)
	}
}

func TestExtractKeepsOriginalBytes(t *testing.T) {
	// Decomposed accents: E + U+0301, e + U+0301.
	orig := "  RE\u0301SUME\u0301\nCafe\u0301 au lait.\n"
	got := Extract([]parser.PageText{{Page: 0, Text: orig}})
	if len(got) != 1 {
		t.Fatalf("expected 1 section, got %+v", got)
	}
	if got[0].Title != "R\u00c9SUM\u00c9" {
		t.Errorf("title should be matched on the composed form, got %q", got[0].Title)
	}
	if got[0].Text != strings.TrimSpace(orig) {
		t.Errorf("section text = %q, want the trimmed original %q", got[0].Text, strings.TrimSpace(orig))
	}
}

func TestExtractAtMostOnePerPage(t *testing.T) {
	pages := []parser.PageText{
		{Page: 0, Text: "ONE\nTWO\nThree Four\nfive:"},
		{Page: 1, Text: "Alpha\nBETA"},
	}
	got := Extract(pages)
	seen := make(map[int]bool)
	for _, s := range got {
		if seen[s.Page] {
			t.Errorf("page %d produced more than one section", s.Page)
		}
		seen[s.Page] = true
	}
	if len(got) != 2 {
		t.Errorf("expected 2 sections, got %d", len(got))
	}
}

func TestExtractEmpty(t *testing.T) {
	if got := Extract(nil); len(got) != 0 {
		t.Errorf("Extract(nil) = %+v", got)
	}
}
