// Package language detects the dominant language of a document and
// translates its pages to English through pluggable backends.
package language

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	textlang "golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/brunobiangulo/docsense/llm"
)

// English is the target language of every translation.
const English = "en"

var (
	// ErrDetection is returned when the language of a sample cannot be determined.
	ErrDetection = errors.New("language: detection failed")

	// ErrTranslation is returned when a translation backend fails.
	ErrTranslation = errors.New("language: translation failed")
)

// Detector identifies the language of a text sample as an ISO-639-1 code.
type Detector interface {
	Detect(ctx context.Context, sample string) (string, error)
}

// Canonical parses code as a BCP 47 tag and returns its base language,
// e.g. "pt-BR" -> "pt". Unknown or empty codes return ErrDetection.
func Canonical(code string) (string, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", fmt.Errorf("%w: empty language code", ErrDetection)
	}
	tag, err := textlang.Parse(code)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrDetection, code, err)
	}
	base, conf := tag.Base()
	if conf == textlang.No || base.String() == "und" {
		return "", fmt.Errorf("%w: %q has no base language", ErrDetection, code)
	}
	return base.String(), nil
}

// DisplayName returns the English name of a language code ("es" -> "Spanish").
// Unknown codes are returned unchanged.
func DisplayName(code string) string {
	tag, err := textlang.Parse(code)
	if err != nil {
		return code
	}
	if name := display.English.Languages().Name(tag); name != "" {
		return name
	}
	return code
}

// HeuristicDetector detects languages offline: writing systems first, then
// frequencies of common words for Latin-script languages.
type HeuristicDetector struct{}

type scriptRule struct {
	code  string
	table *unicode.RangeTable
}

var scriptRules = []scriptRule{
	{"ja", unicode.Hiragana},
	{"ja", unicode.Katakana},
	{"ko", unicode.Hangul},
	{"zh", unicode.Han},
	{"ru", unicode.Cyrillic},
	{"ar", unicode.Arabic},
	{"he", unicode.Hebrew},
	{"el", unicode.Greek},
	{"hi", unicode.Devanagari},
	{"bn", unicode.Bengali},
	{"ta", unicode.Tamil},
	{"te", unicode.Telugu},
	{"th", unicode.Thai},
}

type wordRule struct {
	code  string
	words []string
}

var wordRules = []wordRule{
	{"es", []string{"de", "en", "la", "el", "del", "los", "las", "para", "por", "con", "que", "una", "como", "está", "más", "también", "según", "puede", "debe", "sobre"}},
	{"pt", []string{"de", "em", "do", "da", "dos", "das", "para", "por", "com", "que", "uma", "como", "está", "mais", "também", "segundo", "pode", "deve", "sobre", "não"}},
	{"fr", []string{"de", "le", "la", "les", "des", "du", "en", "pour", "par", "avec", "que", "une", "dans", "est", "plus", "aussi", "selon", "peut", "doit", "sur"}},
	{"de", []string{"der", "die", "das", "den", "dem", "des", "ein", "eine", "und", "ist", "für", "mit", "von", "auf", "nicht", "auch", "nach", "kann", "wird", "über"}},
	{"it", []string{"il", "lo", "la", "gli", "le", "di", "del", "della", "che", "per", "con", "una", "sono", "è", "anche", "come", "più", "può", "deve", "non"}},
	{"nl", []string{"de", "het", "een", "en", "van", "is", "dat", "op", "te", "voor", "met", "zijn", "niet", "ook", "aan", "worden", "kan", "maar", "naar", "bij"}},
	{"en", []string{"the", "and", "for", "with", "that", "this", "from", "are", "was", "has", "have", "been", "will", "should", "must", "can", "which", "when", "where", "would"}},
}

// minWordHitRate is the share of words that must be common words for a
// Latin-script guess to be trusted.
const minWordHitRate = 0.01

func (HeuristicDetector) Detect(ctx context.Context, sample string) (string, error) {
	if code, ok := detectScript(sample); ok {
		return code, nil
	}

	words := strings.FieldsFunc(strings.ToLower(sample), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	if len(words) == 0 {
		return "", fmt.Errorf("%w: no words in sample", ErrDetection)
	}

	counts := make(map[string]int, len(words))
	for _, w := range words {
		counts[w]++
	}

	var best string
	var bestScore float64
	for _, rule := range wordRules {
		hits := 0
		for _, w := range rule.words {
			hits += counts[w]
		}
		freq := float64(hits) / float64(len(words))
		if freq > bestScore {
			bestScore = freq
			best = rule.code
		}
	}

	// Spanish and Portuguese share most function words.
	if best == "es" || best == "pt" {
		es, pt := 0, 0
		for _, w := range []string{"el", "los", "las", "muy", "pero"} {
			es += counts[w]
		}
		for _, w := range []string{"não", "muito", "mas", "foi", "são"} {
			pt += counts[w]
		}
		if es > pt {
			best = "es"
		} else if pt > es {
			best = "pt"
		}
	}

	if bestScore < minWordHitRate {
		return "", fmt.Errorf("%w: no language reached %.0f%% common words", ErrDetection, minWordHitRate*100)
	}
	return best, nil
}

// detectScript returns the language of the dominant non-Latin script, if
// letters of that script make up at least a third of all letters.
func detectScript(sample string) (string, bool) {
	counts := make(map[string]int)
	letters := 0
	for _, r := range sample {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		for _, rule := range scriptRules {
			if unicode.Is(rule.table, r) {
				counts[rule.code]++
				break
			}
		}
	}
	if letters == 0 {
		return "", false
	}
	// Kana mixed with Han is Japanese.
	if counts["ja"] > 0 && counts["ja"]+counts["zh"] >= letters/3 {
		return "ja", true
	}
	best, bestCount := "", 0
	for _, rule := range scriptRules {
		if c := counts[rule.code]; c > bestCount {
			best, bestCount = rule.code, c
		}
	}
	if bestCount == 0 || bestCount*3 < letters {
		return "", false
	}
	return best, true
}

// LLMDetector asks a chat model for the ISO-639-1 code of a sample. When the
// model fails or answers with something that is not a language code, the
// Fallback detector is used.
type LLMDetector struct {
	Chat     llm.Provider
	Fallback Detector
}

func (d *LLMDetector) Detect(ctx context.Context, sample string) (string, error) {
	if d.Chat != nil {
		resp, err := d.Chat.Chat(ctx, llm.ChatRequest{
			Messages: []llm.Message{
				{Role: "system", Content: "You are a language detection assistant. Respond with ONLY the two-letter ISO 639-1 code of the language (e.g. 'en', 'es', 'fr', 'ja'). Nothing else."},
				{Role: "user", Content: "What language is this text written in?\n\n" + sample},
			},
			Temperature: 0,
			MaxTokens:   10,
		})
		if err == nil {
			answer := llm.StripThinking(resp.Content)
			answer = strings.Trim(answer, " .'\"`\n\r\t")
			if idx := strings.IndexAny(answer, "\n\r "); idx > 0 {
				answer = answer[:idx]
			}
			if code, err := Canonical(answer); err == nil {
				return code, nil
			}
		}
	}
	if d.Fallback != nil {
		return d.Fallback.Detect(ctx, sample)
	}
	return "", fmt.Errorf("%w: no usable answer from chat model", ErrDetection)
}
