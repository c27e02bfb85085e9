package parser

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ledongthuc/pdf"
)

// ---------------------------------------------------------------------------
// Registry tests
// ---------------------------------------------------------------------------

func TestRegistryBuiltInReaders(t *testing.T) {
	reg := NewRegistry()

	formats := []string{"pdf", "xlsx", "txt", "PDF"}
	for _, format := range formats {
		t.Run(format, func(t *testing.T) {
			p, err := reg.Get(format)
			if err != nil {
				t.Fatalf("Get(%q) returned error: %v", format, err)
			}
			found := false
			for _, f := range p.SupportedFormats() {
				if f == FormatOf("x."+format) {
					found = true
					break
				}
			}
			if !found {
				t.Errorf("reader for %q does not list it in SupportedFormats(): %v", format, p.SupportedFormats())
			}
		})
	}
}

func TestRegistryUnknown(t *testing.T) {
	reg := NewRegistry()

	for _, format := range []string{"docx", "csv", "json", ""} {
		t.Run("format_"+format, func(t *testing.T) {
			p, err := reg.Get(format)
			if !errors.Is(err, ErrUnsupportedFormat) {
				t.Errorf("Get(%q) error = %v, want ErrUnsupportedFormat", format, err)
			}
			if p != nil {
				t.Errorf("Get(%q) expected nil reader", format)
			}
		})
	}
}

func TestRegistryRegisterAndSupports(t *testing.T) {
	reg := NewRegistry()
	if reg.Supports("notes.md") {
		t.Fatal("md should not be supported before registration")
	}
	reg.Register("MD", &TextReader{})
	if !reg.Supports("notes.md") {
		t.Fatal("md should be supported after registration")
	}
	if _, err := reg.ForPath("/tmp/Report.PDF"); err != nil {
		t.Errorf("ForPath with upper-case extension: %v", err)
	}

	got := reg.Formats()
	want := []string{"md", "pdf", "txt", "xlsx"}
	if len(got) != len(want) {
		t.Fatalf("Formats() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Formats()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

// ---------------------------------------------------------------------------
// Span / line helpers
// ---------------------------------------------------------------------------

func TestSpanRoundedSize(t *testing.T) {
	tests := []struct {
		size float64
		want int
	}{
		{11.4, 11},
		{11.5, 12},
		{23.96, 24},
		{0, 0},
	}
	for _, tt := range tests {
		if got := (Span{Size: tt.size}).RoundedSize(); got != tt.want {
			t.Errorf("RoundedSize(%v) = %d, want %d", tt.size, got, tt.want)
		}
	}
}

func TestLineTextAndSize(t *testing.T) {
	l := Line{Spans: []Span{{Text: "Chapter", Size: 18.2}, {Text: "One ", Size: 14}}}
	if got := l.Text(); got != "Chapter One" {
		t.Errorf("Text() = %q, want %q", got, "Chapter One")
	}
	if got := l.Size(); got != 18 {
		t.Errorf("Size() = %d, want 18 (first span)", got)
	}
	if got := (Line{}).Size(); got != 0 {
		t.Errorf("empty line Size() = %d, want 0", got)
	}
}

// ---------------------------------------------------------------------------
// Glyph grouping
// ---------------------------------------------------------------------------

func glyphs(s string, x, y, size float64, font string) []pdf.Text {
	out := make([]pdf.Text, 0, len(s))
	w := size * 0.5
	for i, r := range s {
		out = append(out, pdf.Text{Font: font, FontSize: size, X: x + float64(i)*w, Y: y, W: w, S: string(r)})
	}
	return out
}

func TestGroupLinesOrdersTopToBottom(t *testing.T) {
	var texts []pdf.Text
	// Drawn bottom line first to make sure ordering comes from coordinates.
	texts = append(texts, glyphs("body", 72, 700, 12, "F1")...)
	texts = append(texts, glyphs("Title", 72, 760, 24, "F2")...)

	lines := groupLines(0, texts)
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0].Text() != "Title" || lines[0].Size() != 24 {
		t.Errorf("first line = %q/%d, want Title/24", lines[0].Text(), lines[0].Size())
	}
	if lines[1].Text() != "body" || lines[1].Size() != 12 {
		t.Errorf("second line = %q/%d, want body/12", lines[1].Text(), lines[1].Size())
	}
	if lines[0].Block == lines[1].Block {
		t.Errorf("a 60pt gap should start a new block")
	}
}

func TestGroupLinesSplitsSpansOnFontChange(t *testing.T) {
	var texts []pdf.Text
	texts = append(texts, glyphs("Bold", 72, 700, 12, "F-Bold")...)
	texts = append(texts, glyphs("plain", 110, 700, 12, "F-Regular")...)

	lines := groupLines(3, texts)
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	l := lines[0]
	if l.Page != 3 {
		t.Errorf("Page = %d, want 3", l.Page)
	}
	if len(l.Spans) != 2 {
		t.Fatalf("expected 2 spans, got %d: %+v", len(l.Spans), l.Spans)
	}
	if l.Text() != "Bold plain" {
		t.Errorf("Text() = %q, want %q", l.Text(), "Bold plain")
	}
}

func TestGroupLinesInsertsWordGaps(t *testing.T) {
	var texts []pdf.Text
	texts = append(texts, glyphs("two", 72, 700, 10, "F1")...)
	texts = append(texts, glyphs("words", 100, 700, 10, "F1")...)

	lines := groupLines(0, texts)
	if len(lines) != 1 || len(lines[0].Spans) != 1 {
		t.Fatalf("expected one line with one span, got %+v", lines)
	}
	if got := lines[0].Spans[0].Text; got != "two words" {
		t.Errorf("span text = %q, want %q", got, "two words")
	}
}

func TestGroupLinesSameBlockForTightLines(t *testing.T) {
	var texts []pdf.Text
	texts = append(texts, glyphs("first", 72, 700, 12, "F1")...)
	texts = append(texts, glyphs("second", 72, 686, 12, "F1")...)

	lines := groupLines(0, texts)
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0].Block != lines[1].Block {
		t.Errorf("lines 14pt apart should share a block")
	}
}

func TestGroupLinesSkipsBlankGlyphs(t *testing.T) {
	texts := []pdf.Text{
		{Font: "F1", FontSize: 12, X: 72, Y: 700, W: 6, S: " "},
		{Font: "F1", FontSize: 12, X: 72, Y: 650, W: 6, S: ""},
	}
	if lines := groupLines(0, texts); len(lines) != 0 {
		t.Errorf("whitespace-only rows should yield no lines, got %+v", lines)
	}
}

// ---------------------------------------------------------------------------
// Readers
// ---------------------------------------------------------------------------

func TestTextReaderPages(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.txt")
	if err := os.WriteFile(path, []byte("Intro\nbody\fSecond Page\nmore"), 0o644); err != nil {
		t.Fatal(err)
	}

	pages, err := (&TextReader{}).ReadPages(context.Background(), path)
	if err != nil {
		t.Fatalf("ReadPages: %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("expected 2 pages, got %d", len(pages))
	}
	if pages[1].Page != 1 || pages[1].Text != "Second Page\nmore" {
		t.Errorf("page 1 = %+v", pages[1])
	}
}

func TestTextReaderMissingFile(t *testing.T) {
	_, err := (&TextReader{}).ReadPages(context.Background(), filepath.Join(t.TempDir(), "nope.txt"))
	if !errors.Is(err, ErrParse) {
		t.Errorf("expected ErrParse, got %v", err)
	}
}

func TestPDFReaderCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.pdf")
	if err := os.WriteFile(path, []byte("this is not a pdf"), 0o644); err != nil {
		t.Fatal(err)
	}

	r := NewPDFReader()
	if _, err := r.ReadSpans(context.Background(), path); !errors.Is(err, ErrParse) {
		t.Errorf("ReadSpans: expected ErrParse, got %v", err)
	}
	if _, err := r.ReadPages(context.Background(), path); !errors.Is(err, ErrParse) {
		t.Errorf("ReadPages: expected ErrParse, got %v", err)
	}
}

func TestXLSXReaderMissingFile(t *testing.T) {
	_, err := (&XLSXReader{}).ReadPages(context.Background(), filepath.Join(t.TempDir(), "none.xlsx"))
	if !errors.Is(err, ErrParse) {
		t.Errorf("expected ErrParse, got %v", err)
	}
}
