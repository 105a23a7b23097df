package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/harmonium-fm/harmonium/domain/search"
	"github.com/harmonium-fm/harmonium/internal/database"
)

// ErrSQLiteVectorInitializationFailed indicates SQLite vector initialization failed.
var ErrSQLiteVectorInitializationFailed = errors.New("failed to initialize SQLite vector store")

// SQLiteVectorStore implements search.VectorStore for SQLite. Embeddings are
// stored as JSON text on the tracks table and ranked exactly in memory, which
// keeps recall at 1.0 for the catalog sizes a single-node deployment sees.
type SQLiteVectorStore struct {
	db          database.Database
	logger      *slog.Logger
	initialized bool
	mu          sync.Mutex
}

// NewSQLiteVectorStore creates a new SQLiteVectorStore. Schema setup is
// deferred to the first operation.
func NewSQLiteVectorStore(db database.Database, logger *slog.Logger) *SQLiteVectorStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLiteVectorStore{db: db, logger: logger}
}

func (s *SQLiteVectorStore) initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return nil
	}

	db := s.db.Session(ctx)

	// SQLite has no ADD COLUMN IF NOT EXISTS; probe the catalog first.
	var count int64
	err := db.Raw(`SELECT COUNT(*) FROM pragma_table_info('tracks') WHERE name = 'embedding'`).Scan(&count).Error
	if err != nil {
		return errors.Join(ErrSQLiteVectorInitializationFailed, fmt.Errorf("probe embedding column: %w", err))
	}

	if count == 0 {
		if err := db.Exec(`ALTER TABLE tracks ADD COLUMN embedding JSON`).Error; err != nil {
			return errors.Join(ErrSQLiteVectorInitializationFailed, fmt.Errorf("add embedding column: %w", err))
		}
	}

	s.initialized = true
	return nil
}

// UpsertEmbedding replaces the embedding for a track.
func (s *SQLiteVectorStore) UpsertEmbedding(ctx context.Context, trackID int64, vector []float64) error {
	if err := s.initialize(ctx); err != nil {
		return err
	}
	if len(vector) != search.EmbeddingDim {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vector), search.EmbeddingDim)
	}

	result := s.db.Session(ctx).Exec(
		`UPDATE tracks SET embedding = ? WHERE id = ?`,
		database.Float64Slice(vector), trackID,
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
func (s *SQLiteVectorStore) ClearEmbedding(ctx context.Context, trackID int64) error {
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

// QueryNearest loads every public embedded track and ranks it exactly against
// the query vector.
func (s *SQLiteVectorStore) QueryNearest(ctx context.Context, queryVector []float64, limit int, minSimilarity float64) ([]search.Match, error) {
	if err := s.initialize(ctx); err != nil {
		return nil, err
	}
	if len(queryVector) != search.EmbeddingDim {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(queryVector), search.EmbeddingDim)
	}
	if limit <= 0 {
		return []search.Match{}, nil
	}

	type row struct {
		ID        int64
		Embedding database.Float64Slice
	}
	var rows []row

	err := s.db.Session(ctx).
		Raw(`SELECT id, embedding FROM tracks WHERE is_public = ? AND embedding IS NOT NULL`, true).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load embeddings: %w", err)
	}

	candidates := make([]search.Candidate, 0, len(rows))
	for _, r := range rows {
		if len(r.Embedding) == 0 {
			s.logger.Warn("skipping empty embedding", "track_id", r.ID)
			continue
		}
		candidates = append(candidates, search.NewCandidate(r.ID, r.Embedding))
	}

	return search.RankNearest(queryVector, candidates, limit, minSimilarity), nil
}
