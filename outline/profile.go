package outline

import (
	"sort"

	"github.com/brunobiangulo/docsense/parser"
)

// FontSizeRank lists distinct rounded font sizes, most frequent first.
// Equal counts are ordered by descending size.
type FontSizeRank []int

// TitleSize returns the rank-0 size and whether the rank is non-empty.
func (r FontSizeRank) TitleSize() (int, bool) {
	if len(r) == 0 {
		return 0, false
	}
	return r[0], true
}

// Histogram counts span occurrences per rounded font size.
type Histogram map[int]int

// Count adds every span of every line to the histogram.
func (h Histogram) Count(lines []parser.Line) {
	for _, l := range lines {
		for _, s := range l.Spans {
			h[s.RoundedSize()]++
		}
	}
}

// Rank orders the histogram sizes by (-count, -size).
func (h Histogram) Rank() FontSizeRank {
	rank := make(FontSizeRank, 0, len(h))
	for size := range h {
		rank = append(rank, size)
	}
	sort.Slice(rank, func(i, j int) bool {
		ci, cj := h[rank[i]], h[rank[j]]
		if ci != cj {
			return ci > cj
		}
		return rank[i] > rank[j]
	})
	return rank
}

// Profile builds the font size rank of a document.
func Profile(lines []parser.Line) FontSizeRank {
	h := make(Histogram)
	h.Count(lines)
	return h.Rank()
}
