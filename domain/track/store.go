package track

import "context"

// Store provides read access to track projections for search hydration and
// backfill scheduling.
type Store interface {
	// ByIDs returns tracks for the given IDs, including owner and like count.
	// Missing IDs are silently omitted; order is unspecified.
	ByIDs(ctx context.Context, ids []int64) ([]Track, error)

	// MissingEmbeddings returns up to limit public tracks that have no
	// embedding yet, ordered by ID ascending. An empty slice means the
	// backfill predicate is exhausted.
	MissingEmbeddings(ctx context.Context, limit int) ([]Track, error)

	// Save inserts or updates a track projection and returns the stored value.
	Save(ctx context.Context, t Track) (Track, error)
}
