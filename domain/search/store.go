package search

import "context"

// EmbeddingDim is the fixed width of every stored vector. The provider's
// sentence model produces 384-dimensional, unit-normalized embeddings.
const EmbeddingDim = 384

// VectorStore persists one embedding per track and serves cosine-ranked
// approximate nearest-neighbor retrieval over public tracks.
type VectorStore interface {
	// UpsertEmbedding replaces the embedding for a track. Fails with
	// ErrNotFound if the track does not exist.
	UpsertEmbedding(ctx context.Context, trackID int64, vector []float64) error

	// ClearEmbedding sets a track's embedding to absent. Used when backfill
	// fails or the source text becomes empty. Fails with ErrNotFound if the
	// track does not exist.
	ClearEmbedding(ctx context.Context, trackID int64) error

	// QueryNearest returns up to limit matches with similarity >= minSimilarity,
	// ordered by similarity descending, ties broken by lower track ID. Only
	// public tracks with a present embedding are candidates. An empty slice is
	// a normal "no qualifying record" outcome, never an infrastructure error.
	QueryNearest(ctx context.Context, queryVector []float64, limit int, minSimilarity float64) ([]Match, error)
}

// KeywordMatcher is the cheap substring fallback used when vector search
// under-delivers.
type KeywordMatcher interface {
	// MatchKeyword returns up to limit public tracks whose title, description,
	// genre, or primary artist contains text (case-insensitive substring),
	// ordered by popularity descending with ties broken by ID ascending.
	MatchKeyword(ctx context.Context, text string, limit int) ([]Match, error)
}
