package llm

import "strings"

// StripThinking removes <think>...</think> blocks from model output and
// trims the result. An unclosed block is cut to the end of the text.
func StripThinking(s string) string {
	for {
		start := strings.Index(s, "<think>")
		if start == -1 {
			break
		}
		end := strings.Index(s, "</think>")
		if end == -1 || end < start {
			s = s[:start]
			break
		}
		s = s[:start] + s[end+len("</think>"):]
	}
	return strings.TrimSpace(s)
}
