package docsense

import (
	"context"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/brunobiangulo/docsense/retrieval"
)

// DefaultRefineMaxChars bounds the refined text of a section, in runes.
const DefaultRefineMaxChars = 600

// Refiner condenses a ranked section into a short evidence passage. It must
// be deterministic and must never fail: on any problem it returns the
// section's original text.
type Refiner interface {
	Refine(ctx context.Context, docPath string, sec retrieval.RankedSection) string
}

// RefinerFactory builds the refiner used for one persona.
type RefinerFactory func(p retrieval.Persona) Refiner

// SnippetRefiner keeps the sentences of a section that share the most
// significant words with the persona query and the section title.
type SnippetRefiner struct {
	Terms    map[string]bool
	MaxChars int
}

// NewSnippetRefiner creates a refiner scoring sentences against the persona query.
func NewSnippetRefiner(p retrieval.Persona, maxChars int) *SnippetRefiner {
	if maxChars <= 0 {
		maxChars = DefaultRefineMaxChars
	}
	return &SnippetRefiner{Terms: retrieval.SignificantTerms(p.Query()), MaxChars: maxChars}
}

func (r *SnippetRefiner) Refine(ctx context.Context, docPath string, sec retrieval.RankedSection) (refined string) {
	defer func() {
		if rec := recover(); rec != nil {
			refined = sec.Text
		}
	}()

	text := strings.TrimSpace(sec.Text)
	if text == "" {
		return sec.Text
	}

	terms := make(map[string]bool, len(r.Terms))
	for w := range r.Terms {
		terms[w] = true
	}
	for w := range retrieval.SignificantTerms(sec.Title) {
		terms[w] = true
	}

	sentences := splitSentences(text)
	type scored struct {
		text  string
		score int
		index int
	}
	candidates := make([]scored, 0, len(sentences))
	for i, s := range sentences {
		if n := retrieval.Overlap(s, terms); n > 0 {
			candidates = append(candidates, scored{text: s, score: n, index: i})
		}
	}
	if len(candidates) == 0 {
		return sec.Text
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	maxChars := r.MaxChars
	if maxChars <= 0 {
		maxChars = DefaultRefineMaxChars
	}

	var kept []scored
	used := 0
	for _, c := range candidates {
		n := utf8.RuneCountInString(c.text)
		if len(kept) > 0 {
			n++ // joining space
		}
		if used+n > maxChars {
			continue
		}
		kept = append(kept, c)
		used += n
	}
	if len(kept) == 0 {
		return truncateWords(candidates[0].text, maxChars)
	}

	// Back to document order.
	sort.Slice(kept, func(i, j int) bool { return kept[i].index < kept[j].index })
	parts := make([]string, len(kept))
	for i, k := range kept {
		parts[i] = k.text
	}
	return strings.Join(parts, " ")
}

// splitSentences splits text into sentences at period/question/exclamation
// boundaries followed by whitespace or end of string. Line breaks inside a
// sentence are folded into spaces.
func splitSentences(text string) []string {
	var sentences []string
	var cur strings.Builder

	flush := func() {
		s := strings.Join(strings.Fields(cur.String()), " ")
		if s != "" {
			sentences = append(sentences, s)
		}
		cur.Reset()
	}

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		cur.WriteRune(runes[i])
		switch runes[i] {
		case '.', '?', '!':
			if i+1 >= len(runes) || runes[i+1] == ' ' || runes[i+1] == '\n' || runes[i+1] == '\r' || runes[i+1] == '\t' {
				flush()
			}
		case '\n':
			// A blank line ends a paragraph, and with it a sentence.
			if i+1 < len(runes) && runes[i+1] == '\n' {
				flush()
			}
		}
	}
	flush()
	return sentences
}

// truncateWords cuts s to at most n runes, at a word boundary when possible.
func truncateWords(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	cut := n
	for i := n; i > n/2; i-- {
		if runes[i] == ' ' {
			cut = i
			break
		}
	}
	return strings.TrimSpace(string(runes[:cut]))
}
