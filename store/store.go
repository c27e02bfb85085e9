// Package store persists embeddings in SQLite with the sqlite-vec extension,
// so repeated runs over the same collections do not re-embed known texts.
package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
)

func init() {
	sqlite_vec.Auto()
}

// ErrDimension is returned when a vector does not match the store dimension.
var ErrDimension = errors.New("store: embedding dimension mismatch")

// Stats summarises the cache contents.
type Stats struct {
	Embeddings int `json:"embeddings"`
	Models     int `json:"models"`
	Hits       int `json:"hits"`
}

// Store wraps the SQLite embedding cache.
type Store struct {
	db           *sql.DB
	embeddingDim int
	logger       *slog.Logger
}

// New opens (or creates) a SQLite database at the given path and
// initialises the schema including the sqlite-vec virtual table.
func New(dbPath string, embeddingDim int, logger *slog.Logger) (*Store, error) {
	if embeddingDim <= 0 {
		return nil, fmt.Errorf("%w: dimension must be positive, got %d", ErrDimension, embeddingDim)
	}
	if logger == nil {
		logger = slog.Default()
	}

	dir := filepath.Dir(dbPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if _, err := db.Exec(schemaSQL(embeddingDim)); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &Store{db: db, embeddingDim: embeddingDim, logger: logger}

	if err := s.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// EmbeddingDim returns the configured embedding dimension.
func (s *Store) EmbeddingDim() int {
	return s.embeddingDim
}

// TextHash is the cache key of a text.
func TextHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Get looks up the cached embeddings of texts for model. The result maps the
// index of every text found to its vector; missing texts are absent.
func (s *Store) Get(ctx context.Context, model string, texts []string) (map[int][]float32, error) {
	found := make(map[int][]float32)
	if len(texts) == 0 {
		return found, nil
	}

	stmt, err := s.db.PrepareContext(ctx, `
		SELECT e.id, v.embedding
		FROM embeddings e
		JOIN vec_embeddings v ON v.embedding_id = e.id
		WHERE e.model = ? AND e.text_hash = ?
	`)
	if err != nil {
		return nil, fmt.Errorf("preparing lookup: %w", err)
	}
	defer stmt.Close()

	var ids []int64
	for i, text := range texts {
		var id int64
		var blob []byte
		err := stmt.QueryRowContext(ctx, model, TextHash(text)).Scan(&id, &blob)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("looking up embedding: %w", err)
		}
		found[i] = deserializeFloat32(blob)
		ids = append(ids, id)
	}

	if len(ids) > 0 {
		err := s.inTx(ctx, func(tx *sql.Tx) error {
			for _, id := range ids {
				if _, err := tx.ExecContext(ctx,
					"UPDATE embeddings SET hits = hits + 1, last_used_at = CURRENT_TIMESTAMP WHERE id = ?", id); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			// Hit counters are informational only.
			s.logger.Debug("store: updating hit counters failed", "error", err)
		}
	}
	return found, nil
}

// Put stores the embeddings of texts for model, replacing existing vectors.
func (s *Store) Put(ctx context.Context, model string, texts []string, vecs [][]float32) error {
	if len(texts) != len(vecs) {
		return fmt.Errorf("store: %d texts but %d vectors", len(texts), len(vecs))
	}
	for i, v := range vecs {
		if len(v) != s.embeddingDim {
			return fmt.Errorf("%w: vector %d has %d dimensions, store has %d", ErrDimension, i, len(v), s.embeddingDim)
		}
	}

	return s.inTx(ctx, func(tx *sql.Tx) error {
		for i, text := range texts {
			hash := TextHash(text)
			if _, err := tx.ExecContext(ctx,
				"INSERT OR IGNORE INTO embeddings (model, text_hash, text) VALUES (?, ?, ?)",
				model, hash, text); err != nil {
				return fmt.Errorf("inserting embedding row: %w", err)
			}
			var id int64
			if err := tx.QueryRowContext(ctx,
				"SELECT id FROM embeddings WHERE model = ? AND text_hash = ?", model, hash).Scan(&id); err != nil {
				return fmt.Errorf("reading embedding id: %w", err)
			}
			if _, err := tx.ExecContext(ctx, "DELETE FROM vec_embeddings WHERE embedding_id = ?", id); err != nil {
				return fmt.Errorf("replacing vector: %w", err)
			}
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO vec_embeddings (embedding_id, embedding) VALUES (?, ?)",
				id, serializeFloat32(vecs[i])); err != nil {
				return fmt.Errorf("inserting vector: %w", err)
			}
		}
		return nil
	})
}

// Stats returns counts of cached embeddings, distinct models and cache hits.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}
	queries := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM vec_embeddings", &stats.Embeddings},
		{"SELECT COUNT(DISTINCT model) FROM embeddings", &stats.Models},
		{"SELECT COALESCE(SUM(hits), 0) FROM embeddings", &stats.Hits},
	}
	for _, q := range queries {
		if err := s.db.QueryRowContext(ctx, q.query).Scan(q.dest); err != nil {
			return nil, fmt.Errorf("counting %s: %w", q.query, err)
		}
	}
	return stats, nil
}

// --- helpers ---

func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// serializeFloat32 converts a float32 slice to little-endian bytes for sqlite-vec.
func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func deserializeFloat32(blob []byte) []float32 {
	v := make([]float32, len(blob)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return v
}
