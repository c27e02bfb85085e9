// Package retrieval ranks document sections against a persona's task using
// sentence embeddings.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/brunobiangulo/docsense/llm"
	"github.com/brunobiangulo/docsense/section"
)

// DefaultTopK is the number of sections kept per document, and the most
// that may be kept.
const DefaultTopK = 5

// ClampTopK limits k to [1, DefaultTopK]; k <= 0 selects DefaultTopK.
func ClampTopK(k int) int {
	if k <= 0 {
		return DefaultTopK
	}
	return min(k, DefaultTopK)
}

// ErrEmbedding is returned when the embedder fails or returns a malformed batch.
var ErrEmbedding = errors.New("retrieval: embedding failed")

// Persona is the reader the ranking is done for.
type Persona struct {
	Role string `json:"role"`
	Job  string `json:"job"`
}

// Query is the sentence embedded on the persona side of the comparison.
func (p Persona) Query() string {
	return p.Role + " needs to " + p.Job
}

// RankedSection is a section with its similarity score and 1-based rank.
type RankedSection struct {
	section.Section
	Score          float64 `json:"score"`
	ImportanceRank int     `json:"importance_rank"`
}

// Ranker scores sections by cosine similarity between the embedding of their
// title and the embedding of the persona query.
type Ranker struct {
	Embedder llm.Embedder
	TopK     int
	Logger   *slog.Logger
}

// NewRanker creates a ranker keeping at most topK sections, clamped by
// ClampTopK.
func NewRanker(embedder llm.Embedder, topK int, logger *slog.Logger) *Ranker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ranker{Embedder: embedder, TopK: ClampTopK(topK), Logger: logger}
}

// Rank embeds the query and every section title in one batch and returns the
// best TopK sections in descending score order. Sections with equal scores
// keep their extraction order.
func (r *Ranker) Rank(ctx context.Context, sections []section.Section, persona Persona) ([]RankedSection, error) {
	if len(sections) == 0 {
		return []RankedSection{}, nil
	}
	if r.Embedder == nil {
		return nil, fmt.Errorf("%w: no embedder configured", ErrEmbedding)
	}

	start := time.Now()
	texts := make([]string, 0, len(sections)+1)
	texts = append(texts, persona.Query())
	for _, s := range sections {
		texts = append(texts, s.Title)
	}

	vecs, err := r.Embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbedding, err)
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("%w: got %d vectors for %d texts", ErrEmbedding, len(vecs), len(texts))
	}

	query := vecs[0]
	ranked := make([]RankedSection, len(sections))
	for i, s := range sections {
		ranked[i] = RankedSection{Section: s, Score: CosineSimilarity(vecs[i+1], query)}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	k := ClampTopK(r.TopK)
	if len(ranked) > k {
		ranked = ranked[:k]
	}
	for i := range ranked {
		ranked[i].ImportanceRank = i + 1
	}

	if r.Logger != nil {
		r.Logger.Debug("retrieval: ranked sections",
			"sections", len(sections), "kept", len(ranked), "elapsed", time.Since(start))
	}
	return ranked, nil
}

// CosineSimilarity returns the cosine of the angle between a and b, in
// [-1, 1]. Mismatched lengths and zero vectors give 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	// Rounding can push parallel vectors just past 1.
	return math.Max(-1, math.Min(1, sim))
}
