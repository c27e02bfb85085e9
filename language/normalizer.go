package language

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/brunobiangulo/docsense/parser"
)

const (
	// minSampleChars is the length a page must exceed to be used for detection.
	minSampleChars = 50
	// maxSampleChars bounds the text handed to the detector.
	maxSampleChars = 1000
)

// Result is the outcome of normalizing one document.
type Result struct {
	Pages      []parser.PageText
	Language   string
	Translated bool
	Failures   int // pages that kept their original text after a failed translation
}

// Normalizer detects the dominant language of a document and, when it is not
// English, translates every page through the configured Translator.
type Normalizer struct {
	Detector      Detector
	Translator    Translator
	Translate     bool
	MaxChunkChars int
	Logger        *slog.Logger
}

func (n *Normalizer) logger() *slog.Logger {
	if n.Logger != nil {
		return n.Logger
	}
	return slog.Default()
}

// Sample returns the detection sample of a document: the first 1000 runes of
// the first page longer than 50 runes. ok is false when no page qualifies.
func Sample(pages []parser.PageText) (string, bool) {
	for _, p := range pages {
		if utf8.RuneCountInString(p.Text) > minSampleChars {
			return truncateRunes(p.Text, maxSampleChars), true
		}
	}
	return "", false
}

// DetectPages returns the language of the document, defaulting to English
// when no page qualifies or detection fails.
func (n *Normalizer) DetectPages(ctx context.Context, pages []parser.PageText) string {
	sample, ok := Sample(pages)
	if !ok || n.Detector == nil {
		return English
	}
	code, err := n.Detector.Detect(ctx, sample)
	if err != nil {
		n.logger().Warn("language: detection failed, assuming English", "error", err)
		return English
	}
	canonical, err := Canonical(code)
	if err != nil {
		n.logger().Warn("language: detector returned an unknown code, assuming English", "code", code, "error", err)
		return English
	}
	return canonical
}

// Normalize detects the language once and translates every non-empty page
// when needed. A page whose translation fails keeps its original text.
func (n *Normalizer) Normalize(ctx context.Context, pages []parser.PageText) Result {
	lang := n.DetectPages(ctx, pages)
	res := Result{Pages: pages, Language: lang}
	if lang == English || !n.Translate {
		return res
	}
	res.Translated = true

	out := make([]parser.PageText, len(pages))
	for i, p := range pages {
		out[i] = p
		text := strings.TrimSpace(p.Text)
		if text == "" {
			continue
		}
		if n.Translator == nil {
			res.Failures++
			continue
		}
		translated, err := TranslateChunked(ctx, n.Translator, text, lang, English, n.MaxChunkChars)
		if err != nil {
			n.logger().Warn("language: translation failed, using original text",
				"page", p.Page, "language", lang, "error", err)
			res.Failures++
			continue
		}
		out[i].Text = translated
	}
	res.Pages = out
	return res
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
