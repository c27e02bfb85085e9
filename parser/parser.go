package parser

import (
	"context"
	"errors"
	"math"
	"strings"
)

// ErrParse is returned when a document cannot be opened or decoded.
var ErrParse = errors.New("parser: document could not be parsed")

// PageText is the raw text of a single page. Page is 0-based.
type PageText struct {
	Page int    `json:"page"`
	Text string `json:"text"`
}

// Span is a run of text drawn with a single font at a single size.
type Span struct {
	Text string
	Font string
	Size float64 // size in points as reported by the PDF
}

// RoundedSize returns the span size rounded to the nearest integer.
func (s Span) RoundedSize() int {
	return int(math.Round(s.Size))
}

// Line is a sequence of spans sharing a baseline.
type Line struct {
	Page  int // 0-based page index
	Block int // index of the text block within the page
	Spans []Span
}

// Size returns the rounded size of the first span, or 0 for an empty line.
func (l Line) Size() int {
	if len(l.Spans) == 0 {
		return 0
	}
	return l.Spans[0].RoundedSize()
}

// Text joins the span texts with a single space and trims the result.
func (l Line) Text() string {
	parts := make([]string, len(l.Spans))
	for i, s := range l.Spans {
		parts[i] = s.Text
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

// Layout is the span-level view of a document, in reading order.
type Layout struct {
	PageCount int
	Lines     []Line
}

// SpanReader produces the span layout of a document.
type SpanReader interface {
	ReadSpans(ctx context.Context, path string) (*Layout, error)
}

// PageReader produces the plain text of every page of a document.
type PageReader interface {
	ReadPages(ctx context.Context, path string) ([]PageText, error)
	SupportedFormats() []string
}
