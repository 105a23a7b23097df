// Package search provides the storage-backed retrieval implementations:
// per-backend vector stores and the keyword fallback matcher.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"gorm.io/gorm"

	"github.com/harmonium-fm/harmonium/domain/search"
	"github.com/harmonium-fm/harmonium/internal/database"
)

// SQL specific to pgvector (extension, dynamic column DDL, index, catalog).
// The embedding column and its index are managed here with raw SQL because
// the VECTOR(n) type is outside what GORM AutoMigrate can express.
const (
	pgvCreateExtension = `CREATE EXTENSION IF NOT EXISTS vector`

	pgvAddColumnTemplate = `ALTER TABLE tracks ADD COLUMN IF NOT EXISTS embedding VECTOR(%d)`

	// Partial HNSW index over the searchable subset only. m and ef_construction
	// follow the pgvector defaults that hold recall above 0.95 at this scale.
	pgvCreateIndex = `
CREATE INDEX IF NOT EXISTS tracks_embedding_hnsw_idx
ON tracks
USING hnsw (embedding vector_cosine_ops)
WITH (m = 16, ef_construction = 64)
WHERE is_public AND embedding IS NOT NULL`

	pgvCheckDimension = `
SELECT a.atttypmod AS dimension
FROM pg_attribute a
JOIN pg_class c ON a.attrelid = c.oid
WHERE c.relname = 'tracks'
AND a.attname = 'embedding'`

	// ef_search sized for >=0.95 recall at the default result limits.
	pgvEFSearch = 80

	pgvQueryNearest = `
SELECT id, 1 - (embedding <=> ?::vector) AS similarity
FROM tracks
WHERE is_public
  AND embedding IS NOT NULL
  AND 1 - (embedding <=> ?::vector) >= ?
ORDER BY embedding <=> ?::vector ASC, id ASC
LIMIT ?`
)

// Initialization and validation errors.
var (
	ErrPgvectorInitializationFailed = errors.New("failed to initialize pgvector store")
	ErrDimensionMismatch            = errors.New("embedding dimension mismatch")
)

// PgvectorStore implements search.VectorStore on the PostgreSQL pgvector
// extension. The embedding lives in a VECTOR(384) column on the tracks table;
// ranking runs inside the database through a partial HNSW index.
type PgvectorStore struct {
	db          database.Database
	logger      *slog.Logger
	initialized bool
	mu          sync.Mutex
}

// NewPgvectorStore creates a new PgvectorStore. Schema setup is deferred to
// the first operation.
func NewPgvectorStore(db database.Database, logger *slog.Logger) *PgvectorStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PgvectorStore{db: db, logger: logger}
}

func (s *PgvectorStore) initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return nil
	}

	db := s.db.Session(ctx)

	if err := db.Exec(pgvCreateExtension).Error; err != nil {
		return errors.Join(ErrPgvectorInitializationFailed, fmt.Errorf("create extension: %w", err))
	}

	addColumn := fmt.Sprintf(pgvAddColumnTemplate, search.EmbeddingDim)
	if err := db.Exec(addColumn).Error; err != nil {
		return errors.Join(ErrPgvectorInitializationFailed, fmt.Errorf("add embedding column: %w", err))
	}

	if err := db.Exec(pgvCreateIndex).Error; err != nil {
		s.logger.Warn("failed to create hnsw index (may already exist)", "error", err)
	}

	// atttypmod carries the declared dimension for vector columns.
	var dbDimension int
	result := db.Raw(pgvCheckDimension).Scan(&dbDimension)
	if result.Error != nil && !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return errors.Join(ErrPgvectorInitializationFailed, fmt.Errorf("check dimension: %w", result.Error))
	}
	if result.RowsAffected > 0 && dbDimension != search.EmbeddingDim {
		return fmt.Errorf("%w: database has %d, provider has %d", ErrDimensionMismatch, dbDimension, search.EmbeddingDim)
	}

	s.initialized = true
	return nil
}

// UpsertEmbedding replaces the embedding for a track.
func (s *PgvectorStore) UpsertEmbedding(ctx context.Context, trackID int64, vector []float64) error {
	if err := s.initialize(ctx); err != nil {
		return err
	}
	if len(vector) != search.EmbeddingDim {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vector), search.EmbeddingDim)
	}

	result := s.db.Session(ctx).Exec(
		`UPDATE tracks SET embedding = ?::vector WHERE id = ?`,
		database.NewPgVector(vector).String(), trackID,
	)
	if result.Error != nil {
		return fmt.Errorf("upsert embedding: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("upsert embedding for track %d: %w", trackID, search.ErrNotFound)
	}
	return nil
}

// ClearEmbedding sets a track's embedding to absent.
func (s *PgvectorStore) ClearEmbedding(ctx context.Context, trackID int64) error {
	if err := s.initialize(ctx); err != nil {
		return err
	}

	result := s.db.Session(ctx).Exec(`UPDATE tracks SET embedding = NULL WHERE id = ?`, trackID)
	if result.Error != nil {
		return fmt.Errorf("clear embedding: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("clear embedding for track %d: %w", trackID, search.ErrNotFound)
	}
	return nil
}

// QueryNearest returns up to limit public tracks ordered by cosine similarity
// to queryVector, filtered by minSimilarity. Similarity is 1 minus cosine
// distance, clamped into [0,1].
func (s *PgvectorStore) QueryNearest(ctx context.Context, queryVector []float64, limit int, minSimilarity float64) ([]search.Match, error) {
	if err := s.initialize(ctx); err != nil {
		return nil, err
	}
	if len(queryVector) != search.EmbeddingDim {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(queryVector), search.EmbeddingDim)
	}
	if limit <= 0 {
		return []search.Match{}, nil
	}

	literal := database.NewPgVector(queryVector).String()

	type row struct {
		ID         int64
		Similarity float64
	}
	var rows []row

	err := s.db.Session(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(fmt.Sprintf(`SET LOCAL hnsw.ef_search = %d`, pgvEFSearch)).Error; err != nil {
			return fmt.Errorf("set ef_search: %w", err)
		}
		return tx.Raw(pgvQueryNearest, literal, literal, minSimilarity, literal, limit).Scan(&rows).Error
	})
	if err != nil {
		return nil, fmt.Errorf("query nearest: %w", err)
	}

	matches := make([]search.Match, len(rows))
	for i, r := range rows {
		matches[i] = search.NewMatch(r.ID, search.ClampSimilarity(r.Similarity))
	}
	return matches, nil
}
