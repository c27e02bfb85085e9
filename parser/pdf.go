package parser

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

const (
	// blockGapFactor is the vertical gap, in line heights, that starts a new block.
	blockGapFactor = 1.5
	// wordGapFactor is the horizontal gap, in font sizes, treated as a word break.
	wordGapFactor = 0.2
)

// PDFReader reads the text layer of PDF files. It implements both SpanReader
// and PageReader.
type PDFReader struct {
	// Preflight runs a relaxed pdfcpu validation before extraction and uses
	// its page count when the text layer reports none.
	Preflight bool
	Logger    *slog.Logger
}

func NewPDFReader() *PDFReader {
	return &PDFReader{Preflight: true}
}

func (p *PDFReader) SupportedFormats() []string { return []string{"pdf"} }

func (p *PDFReader) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

// ReadSpans returns every text line of the document with its spans.
func (p *PDFReader) ReadSpans(ctx context.Context, path string) (*Layout, error) {
	layout := &Layout{}
	checked, err := p.walk(ctx, path, func(page int, lines []Line) {
		layout.Lines = append(layout.Lines, lines...)
		layout.PageCount = page + 1
	})
	if err != nil {
		return nil, err
	}
	if layout.PageCount == 0 {
		layout.PageCount = checked
	}
	return layout, nil
}

// ReadPages returns the text of each page, one line per row of glyphs.
func (p *PDFReader) ReadPages(ctx context.Context, path string) ([]PageText, error) {
	var pages []PageText
	_, err := p.walk(ctx, path, func(page int, lines []Line) {
		texts := make([]string, 0, len(lines))
		for _, l := range lines {
			texts = append(texts, l.Text())
		}
		pages = append(pages, PageText{Page: page, Text: strings.Join(texts, "\n")})
	})
	if err != nil {
		return nil, err
	}
	return pages, nil
}

// walk opens the document and calls fn for every page in order, including
// pages without text. Panics raised while decoding are reported as ErrParse.
// It returns the preflight page count, or 0 when preflight is off or failed.
func (p *PDFReader) walk(ctx context.Context, path string, fn func(page int, lines []Line)) (checked int, err error) {
	if p.Preflight {
		checked = p.preflight(path)
	}

	f, reader, err := pdf.Open(path)
	if err != nil {
		return checked, fmt.Errorf("%w: opening PDF: %v", ErrParse, err)
	}
	defer f.Close()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: decoding PDF: %v", ErrParse, r)
		}
	}()

	total := reader.NumPage()
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return checked, err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			fn(i-1, nil)
			continue
		}
		fn(i-1, groupLines(i-1, page.Content().Text))
	}
	return checked, nil
}

// preflight validates the file with pdfcpu in relaxed mode and returns its
// page count. Failures are logged only; the text layer decides.
func (p *PDFReader) preflight(path string) int {
	f, err := os.Open(path)
	if err != nil {
		return 0
	}
	defer f.Close()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	n, err := api.PageCount(f, conf)
	if err != nil {
		p.logger().Debug("parser: pdf preflight failed", "file", path, "error", err)
		return 0
	}
	return n
}

type row struct {
	y      float64
	glyphs []pdf.Text
}

// groupLines turns the glyphs of one page into lines of spans, top to bottom.
func groupLines(page int, texts []pdf.Text) []Line {
	rows := make(map[int64]*row)
	var keys []int64
	for _, t := range texts {
		if t.S == "" {
			continue
		}
		k := int64(math.Round(t.Y))
		r, ok := rows[k]
		if !ok {
			r = &row{y: t.Y}
			rows[k] = r
			keys = append(keys, k)
		}
		r.glyphs = append(r.glyphs, t)
	}
	// PDF y grows upwards.
	sort.Slice(keys, func(i, j int) bool { return keys[i] > keys[j] })

	var lines []Line
	block := 0
	prevY, prevHeight := 0.0, 0.0
	for _, k := range keys {
		r := rows[k]
		sort.SliceStable(r.glyphs, func(i, j int) bool { return r.glyphs[i].X < r.glyphs[j].X })
		spans := buildSpans(r.glyphs)
		if len(spans) == 0 {
			continue
		}
		height := rowHeight(r.glyphs)
		if len(lines) > 0 && prevY-r.y > blockGapFactor*math.Max(height, prevHeight) {
			block++
		}
		lines = append(lines, Line{Page: page, Block: block, Spans: spans})
		prevY, prevHeight = r.y, height
	}
	return lines
}

func buildSpans(glyphs []pdf.Text) []Span {
	var spans []Span
	var cur strings.Builder
	var font string
	var size float64
	var prev *pdf.Text

	flush := func() {
		if text := strings.TrimSpace(cur.String()); text != "" {
			spans = append(spans, Span{Text: text, Font: font, Size: size})
		}
		cur.Reset()
	}

	for i := range glyphs {
		g := &glyphs[i]
		if prev == nil || g.Font != font || math.Round(g.FontSize) != math.Round(size) {
			if prev != nil {
				flush()
			}
			font, size = g.Font, g.FontSize
		} else if gap := g.X - (prev.X + prev.W); gap > prev.FontSize*wordGapFactor &&
			!strings.HasSuffix(prev.S, " ") && !strings.HasPrefix(g.S, " ") {
			cur.WriteByte(' ')
		}
		cur.WriteString(g.S)
		prev = g
	}
	if prev != nil {
		flush()
	}
	return spans
}

func rowHeight(glyphs []pdf.Text) float64 {
	h := 0.0
	for _, g := range glyphs {
		h = math.Max(h, g.FontSize)
	}
	return h
}
