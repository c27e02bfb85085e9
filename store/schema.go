package store

import "fmt"

// schemaSQL returns the DDL for the embedding cache. embeddingDim controls
// the vec0 virtual table dimension.
func schemaSQL(embeddingDim int) string {
	return fmt.Sprintf(`
-- One row per (model, text) pair; the vector itself lives in vec_embeddings
CREATE TABLE IF NOT EXISTS embeddings (
    id INTEGER PRIMARY KEY,
    model TEXT NOT NULL,
    text_hash TEXT NOT NULL,
    text TEXT NOT NULL,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(model, text_hash)
);

-- Vector embeddings via sqlite-vec
CREATE VIRTUAL TABLE IF NOT EXISTS vec_embeddings USING vec0(
    embedding_id INTEGER PRIMARY KEY,
    embedding float[%d] distance_metric=cosine
);

CREATE INDEX IF NOT EXISTS idx_embeddings_model ON embeddings(model);
`, embeddingDim)
}
