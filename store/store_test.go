//go:build cgo

package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "cache.db")
	s, err := New(dbPath, 4, nil) // dim=4 for test vectors
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// ---------------------------------------------------------------------------
// Schema / construction
// ---------------------------------------------------------------------------

func TestNew(t *testing.T) {
	s := newTestStore(t)
	if s.EmbeddingDim() != 4 {
		t.Fatalf("expected embedding dim 4, got %d", s.EmbeddingDim())
	}
}

func TestNewCreatesParentDir(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "sub", "dir", "cache.db")
	s, err := New(dbPath, 4, nil)
	if err != nil {
		t.Fatalf("creating store in nested dir: %v", err)
	}
	s.Close()
}

func TestNewRejectsBadDimension(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "x.db"), 0, nil)
	if !errors.Is(err, ErrDimension) {
		t.Errorf("expected ErrDimension, got %v", err)
	}
}

func TestMigrationsApplyOnce(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cache.db")
	want := migrations[len(migrations)-1].version

	for i := 0; i < 2; i++ {
		s, err := New(path, 4, nil)
		if err != nil {
			t.Fatalf("open %d: %v", i, err)
		}
		v, err := s.SchemaVersion(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if v != want {
			t.Errorf("open %d: schema version = %d, want %d", i, v, want)
		}
		var rows int
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_version").Scan(&rows); err != nil {
			t.Fatal(err)
		}
		if rows != len(migrations) {
			t.Errorf("open %d: %d schema_version rows, want %d", i, rows, len(migrations))
		}
		s.Close()
	}
}

func TestReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cache.db")

	s, err := New(path, 4, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Put(ctx, "m", []string{"hotels"}, [][]float32{{1, 0, 0, 0}}); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = New(path, 4, nil)
	if err != nil {
		t.Fatalf("reopening: %v", err)
	}
	defer s.Close()
	got, err := s.Get(ctx, "m", []string{"hotels"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Errorf("expected cached vector after reopen, got %v", got)
	}
}

// ---------------------------------------------------------------------------
// Get / Put
// ---------------------------------------------------------------------------

func TestPutAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	texts := []string{"Coastal Adventures", "Culinary Experiences"}
	vecs := [][]float32{{1, 0, 0, 0}, {0, 0.5, 0.25, 0}}
	if err := s.Put(ctx, "nomic", texts, vecs); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := s.Get(ctx, "nomic", []string{"unknown", "Culinary Experiences", "Coastal Adventures"})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(got))
	}
	if _, ok := got[0]; ok {
		t.Error("unknown text should be a miss")
	}
	if v := got[1]; v[1] != 0.5 || v[2] != 0.25 {
		t.Errorf("vector for index 1 = %v", v)
	}
	if v := got[2]; v[0] != 1 {
		t.Errorf("vector for index 2 = %v", v)
	}
}

func TestGetIsScopedByModel(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.Put(ctx, "model-a", []string{"text"}, [][]float32{{1, 0, 0, 0}}); err != nil {
		t.Fatal(err)
	}
	got, err := s.Get(ctx, "model-b", []string{"text"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("vectors must not leak across models, got %v", got)
	}
}

func TestPutReplacesVector(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.Put(ctx, "m", []string{"t"}, [][]float32{{1, 0, 0, 0}}); err != nil {
		t.Fatal(err)
	}
	if err := s.Put(ctx, "m", []string{"t"}, [][]float32{{0, 1, 0, 0}}); err != nil {
		t.Fatalf("second Put: %v", err)
	}
	got, _ := s.Get(ctx, "m", []string{"t"})
	if got[0][1] != 1 {
		t.Errorf("vector not replaced: %v", got[0])
	}
	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Embeddings != 1 {
		t.Errorf("expected 1 stored vector, got %d", stats.Embeddings)
	}
}

func TestPutValidates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.Put(ctx, "m", []string{"a", "b"}, [][]float32{{1, 0, 0, 0}}); err == nil {
		t.Error("expected error for mismatched lengths")
	}
	if err := s.Put(ctx, "m", []string{"a"}, [][]float32{{1, 0}}); !errors.Is(err, ErrDimension) {
		t.Errorf("expected ErrDimension, got %v", err)
	}
}

func TestStatsCountsHits(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.Put(ctx, "m", []string{"a", "b"}, [][]float32{{1, 0, 0, 0}, {0, 1, 0, 0}}); err != nil {
		t.Fatal(err)
	}
	if err := s.Put(ctx, "other", []string{"a"}, [][]float32{{0, 0, 1, 0}}); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if _, err := s.Get(ctx, "m", []string{"a"}); err != nil {
			t.Fatal(err)
		}
	}
	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Embeddings != 3 || stats.Models != 2 || stats.Hits != 3 {
		t.Errorf("stats = %+v", stats)
	}
}

// ---------------------------------------------------------------------------
// CachedEmbedder
// ---------------------------------------------------------------------------

type countingEmbedder struct {
	batches [][]string
	err     error
}

func (c *countingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	c.batches = append(c.batches, texts)
	if c.err != nil {
		return nil, c.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), 1, 0, 0}
	}
	return out, nil
}

func TestCachedEmbedderEmbedsOnlyMisses(t *testing.T) {
	s := newTestStore(t)
	inner := &countingEmbedder{}
	c := NewCachedEmbedder(inner, s, "m", nil)
	ctx := context.Background()

	first, err := c.Embed(ctx, []string{"Travel Planner needs to plan a trip", "Hotels"})
	if err != nil {
		t.Fatalf("first Embed: %v", err)
	}
	second, err := c.Embed(ctx, []string{"Hotels", "Nightlife", "Travel Planner needs to plan a trip"})
	if err != nil {
		t.Fatalf("second Embed: %v", err)
	}

	if len(inner.batches) != 2 {
		t.Fatalf("expected 2 inner calls, got %d", len(inner.batches))
	}
	if len(inner.batches[1]) != 1 || inner.batches[1][0] != "Nightlife" {
		t.Errorf("second call should embed only the miss, got %v", inner.batches[1])
	}
	if second[0][0] != first[1][0] || second[2][0] != first[0][0] {
		t.Errorf("cached vectors out of order: %v vs %v", second, first)
	}
	if second[1][0] != float32(len("Nightlife")) {
		t.Errorf("miss vector = %v", second[1])
	}
}

func TestCachedEmbedderPropagatesErrors(t *testing.T) {
	s := newTestStore(t)
	c := NewCachedEmbedder(&countingEmbedder{err: errors.New("offline")}, s, "m", nil)
	if _, err := c.Embed(context.Background(), []string{"x"}); err == nil {
		t.Fatal("expected error from inner embedder")
	}
}

func TestCachedEmbedderSurvivesCacheWriteFailure(t *testing.T) {
	s := newTestStore(t)
	// Vectors of the wrong dimension cannot be cached but are still returned.
	inner := &wideEmbedder{}
	c := NewCachedEmbedder(inner, s, "m", nil)
	got, err := c.Embed(context.Background(), []string{"a"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(got) != 1 || len(got[0]) != 8 {
		t.Errorf("got %v", got)
	}
}

type wideEmbedder struct{}

func (wideEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = make([]float32, 8)
	}
	return out, nil
}
