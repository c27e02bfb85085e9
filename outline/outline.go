// Package outline infers a document title and heading hierarchy from font
// size statistics alone.
//
// The most frequent rounded size is treated as the title size and the next
// most frequent sizes become heading levels H1..Hn. A second pass over the
// document lines assigns the title and emits outline entries in reading
// order.
package outline

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/brunobiangulo/docsense/parser"
)

const (
	DefaultLevels    = 3
	MaxLevels        = 6
	DefaultMinLength = 3

	// titlePages is the number of leading pages searched for the title.
	titlePages = 2
)

// Entry is one heading of the outline. Page is 1-based.
type Entry struct {
	Level string `json:"level"`
	Text  string `json:"text"`
	Page  int    `json:"page"`
}

// Document is the outline of a single document.
type Document struct {
	Title   string  `json:"title"`
	Outline []Entry `json:"outline"`
}

// LevelMap maps a rounded font size to its heading level label.
type LevelMap map[int]string

// NewLevelMap assigns H1..Hn to ranks 1..n. Rank 0 is reserved for the title.
func NewLevelMap(rank FontSizeRank, levels int) LevelMap {
	m := make(LevelMap)
	for i := 1; i <= levels && i < len(rank); i++ {
		m[rank[i]] = fmt.Sprintf("H%d", i)
	}
	return m
}

// ClampLevels limits the heading level count to [1, MaxLevels].
func ClampLevels(n int) int {
	return max(1, min(n, MaxLevels))
}

// ClampMinLength limits the minimum heading length to at least 1.
func ClampMinLength(n int) int {
	return max(1, n)
}

// Classifier assigns title and heading roles to the lines of a layout.
type Classifier struct {
	Levels           int
	MinHeadingLength int
}

// NewClassifier returns a classifier with clamped settings.
func NewClassifier(levels, minHeadingLength int) Classifier {
	return Classifier{Levels: ClampLevels(levels), MinHeadingLength: ClampMinLength(minHeadingLength)}
}

// Classify runs both passes over the layout. A layout without spans yields
// an empty title and an empty outline.
func (c Classifier) Classify(layout *parser.Layout) Document {
	doc := Document{Outline: []Entry{}}
	if layout == nil {
		return doc
	}

	rank := Profile(layout.Lines)
	levels := NewLevelMap(rank, ClampLevels(c.Levels))
	titleSize, hasTitleSize := rank.TitleSize()
	minLen := ClampMinLength(c.MinHeadingLength)

	titleFound := false
	for _, line := range layout.Lines {
		if len(line.Spans) == 0 {
			continue
		}
		text := line.Text()
		if text == "" {
			continue
		}
		size := line.Size()

		if hasTitleSize && !titleFound && line.Page < titlePages && size == titleSize {
			doc.Title = text
			titleFound = true
			continue
		}

		if level, ok := levels[size]; ok && utf8.RuneCountInString(text) >= minLen {
			doc.Outline = append(doc.Outline, Entry{Level: level, Text: text, Page: line.Page + 1})
		}
	}

	if doc.Title == "" && layout.PageCount > 0 {
		doc.Title = fallbackTitle(layout.Lines)
	}
	return doc
}

// fallbackTitle returns the first non-empty line of the first text block
// (Block 0) on page 0.
func fallbackTitle(lines []parser.Line) string {
	for _, l := range lines {
		if l.Page != 0 || l.Block != 0 {
			continue
		}
		if text := l.Text(); text != "" {
			return text
		}
	}
	return ""
}

// Extractor reads a document and classifies it.
type Extractor struct {
	reader     parser.SpanReader
	classifier Classifier
	logger     *slog.Logger
}

func NewExtractor(reader parser.SpanReader, classifier Classifier, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{reader: reader, classifier: classifier, logger: logger}
}

// Extract returns the outline of the document at path. Read failures are
// returned unchanged; callers decide whether to skip the document.
func (e *Extractor) Extract(ctx context.Context, path string) (*Document, error) {
	start := time.Now()
	layout, err := e.reader.ReadSpans(ctx, path)
	if err != nil {
		return nil, err
	}
	doc := e.classifier.Classify(layout)
	e.logger.Debug("outline: classified",
		"file", path,
		"pages", layout.PageCount,
		"lines", len(layout.Lines),
		"headings", len(doc.Outline),
		"elapsed", time.Since(start),
	)
	return &doc, nil
}
