package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/brunobiangulo/docsense/llm"
)

// CachedEmbedder wraps an embedder with the store, embedding only the texts
// that are not cached yet. Cache failures are logged and never fail a call.
type CachedEmbedder struct {
	Inner  llm.Embedder
	Store  *Store
	Model  string
	Logger *slog.Logger
}

// NewCachedEmbedder creates a caching embedder. model namespaces the cache so
// vectors from different models never mix.
func NewCachedEmbedder(inner llm.Embedder, s *Store, model string, logger *slog.Logger) *CachedEmbedder {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedEmbedder{Inner: inner, Store: s, Model: model, Logger: logger}
}

func (c *CachedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	cached, err := c.Store.Get(ctx, c.Model, texts)
	if err != nil {
		c.Logger.Warn("store: cache lookup failed, embedding everything", "error", err)
		cached = map[int][]float32{}
	}

	out := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string
	for i, t := range texts {
		if v, ok := cached[i]; ok {
			out[i] = v
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, t)
	}

	if len(missTexts) > 0 {
		vecs, err := c.Inner.Embed(ctx, missTexts)
		if err != nil {
			return nil, err
		}
		if len(vecs) != len(missTexts) {
			return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vecs), len(missTexts))
		}
		for j, i := range missIdx {
			out[i] = vecs[j]
		}
		if err := c.Store.Put(ctx, c.Model, missTexts, vecs); err != nil {
			c.Logger.Warn("store: caching embeddings failed", "texts", len(missTexts), "error", err)
		}
	}

	c.Logger.Debug("store: embedded batch", "texts", len(texts), "cached", len(texts)-len(missTexts))
	return out, nil
}
