package section

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// maxLabelWords and maxLabelChars bound a colon-terminated label line.
	maxLabelWords = 8
	maxLabelChars = 40
)

// IsHeadingLike reports whether a trimmed line looks like a section heading:
// title-cased, fully upper-case, or a short label ending in a colon.
func IsHeadingLike(line string) bool {
	return isTitleCase(line) || isUpperCase(line) || isLabel(line)
}

// isTitleCase reports whether every run of cased letters starts with an
// upper-case letter followed only by lower-case letters. At least one cased
// letter is required.
func isTitleCase(s string) bool {
	cased, prevCased := false, false
	for _, r := range s {
		switch {
		case unicode.IsUpper(r) || unicode.IsTitle(r):
			if prevCased {
				return false
			}
			prevCased, cased = true, true
		case unicode.IsLower(r):
			if !prevCased {
				return false
			}
			prevCased, cased = true, true
		default:
			prevCased = false
		}
	}
	return cased
}

// isUpperCase reports whether s has at least one cased letter and no
// lower-case ones.
func isUpperCase(s string) bool {
	cased := false
	for _, r := range s {
		if unicode.IsLower(r) || unicode.IsTitle(r) {
			return false
		}
		if unicode.IsUpper(r) {
			cased = true
		}
	}
	return cased
}

func isLabel(s string) bool {
	return strings.HasSuffix(s, ":") &&
		len(strings.Fields(s)) < maxLabelWords &&
		utf8.RuneCountInString(s) < maxLabelChars
}
