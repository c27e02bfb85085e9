package retrieval

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// minTermLen is the shortest word, in runes, that counts as a term.
const minTermLen = 4

// SignificantTerms returns the set of lower-cased words of text that are at
// least four runes long and not stop words.
func SignificantTerms(text string) map[string]bool {
	terms := make(map[string]bool)
	for _, w := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if utf8.RuneCountInString(w) >= minTermLen && !IsStopWord(w) {
			terms[w] = true
		}
	}
	return terms
}

// Overlap counts the significant terms of text that appear in terms.
func Overlap(text string, terms map[string]bool) int {
	n := 0
	for w := range SignificantTerms(text) {
		if terms[w] {
			n++
		}
	}
	return n
}

var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true,
	"but": true, "in": true, "on": true, "at": true, "to": true,
	"for": true, "of": true, "with": true, "by": true, "from": true,
	"is": true, "are": true, "was": true, "were": true, "be": true,
	"been": true, "being": true, "have": true, "has": true, "had": true,
	"do": true, "does": true, "did": true, "will": true, "would": true,
	"could": true, "should": true, "may": true, "might": true, "must": true,
	"shall": true, "can": true, "this": true, "that": true, "these": true,
	"those": true, "what": true, "which": true, "who": true, "whom": true,
	"where": true, "when": true, "how": true, "why": true, "not": true,
	"no": true, "nor": true, "if": true, "then": true, "than": true,
	"so": true, "as": true, "about": true, "into": true, "between": true,
	"they": true, "their": true, "there": true, "them": true, "your": true,
	"more": true, "some": true, "such": true, "only": true, "also": true,
	"very": true, "just": true, "over": true, "each": true, "most": true,
	"after": true, "before": true, "other": true, "same": true, "both": true,
	"needs": true,
}

// IsStopWord reports whether w is a common English word carrying no topic.
func IsStopWord(w string) bool {
	return stopWords[strings.ToLower(w)]
}
