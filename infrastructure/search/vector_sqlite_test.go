package search_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harmonium-fm/harmonium/domain/search"
	"github.com/harmonium-fm/harmonium/domain/track"
	"github.com/harmonium-fm/harmonium/infrastructure/persistence"
	infrasearch "github.com/harmonium-fm/harmonium/infrastructure/search"
	"github.com/harmonium-fm/harmonium/internal/database"
	"github.com/harmonium-fm/harmonium/internal/testdb"
)

// basisVec returns a unit vector with 1 at the given index.
func basisVec(index int) []float64 {
	v := make([]float64, search.EmbeddingDim)
	v[index] = 1
	return v
}

// blendVec returns the unit-normalized blend a*e0 + b*e1, giving a cosine
// similarity of a/sqrt(a^2+b^2) against e0.
func blendVec(a, b float64) []float64 {
	norm := math.Sqrt(a*a + b*b)
	v := make([]float64, search.EmbeddingDim)
	v[0] = a / norm
	v[1] = b / norm
	return v
}

func seedTrack(t *testing.T, db database.Database, id int64, title string, public bool, popularity int64) {
	t.Helper()
	store := persistence.NewTrackStore(db)
	_, err := store.Save(context.Background(), track.New(id, title,
		track.WithPublic(public),
		track.WithPopularity(popularity),
	))
	require.NoError(t, err)
}

func TestSQLiteVectorStore_UpsertAndQuery(t *testing.T) {
	db := testdb.New(t)
	store := infrasearch.NewSQLiteVectorStore(db, nil)
	ctx := context.Background()

	seedTrack(t, db, 1, "Exact", true, 0)
	seedTrack(t, db, 2, "Close", true, 0)
	seedTrack(t, db, 3, "Orthogonal", true, 0)
	seedTrack(t, db, 4, "Private", false, 0)
	seedTrack(t, db, 5, "No embedding", true, 0)

	require.NoError(t, store.UpsertEmbedding(ctx, 1, basisVec(0)))
	require.NoError(t, store.UpsertEmbedding(ctx, 2, blendVec(3, 1)))
	require.NoError(t, store.UpsertEmbedding(ctx, 3, basisVec(1)))
	require.NoError(t, store.UpsertEmbedding(ctx, 4, basisVec(0)))

	matches, err := store.QueryNearest(ctx, basisVec(0), 10, 0.3)
	require.NoError(t, err)

	require.Len(t, matches, 2)
	assert.Equal(t, int64(1), matches[0].TrackID())
	assert.InDelta(t, 1.0, matches[0].Similarity(), 1e-9)
	assert.Equal(t, int64(2), matches[1].TrackID())
	assert.InDelta(t, 3/math.Sqrt(10), matches[1].Similarity(), 1e-9)
}

func TestSQLiteVectorStore_ThresholdFiltersLowSimilarity(t *testing.T) {
	db := testdb.New(t)
	store := infrasearch.NewSQLiteVectorStore(db, nil)
	ctx := context.Background()

	seedTrack(t, db, 1, "Near", true, 0)
	seedTrack(t, db, 2, "Far", true, 0)
	require.NoError(t, store.UpsertEmbedding(ctx, 1, basisVec(0)))
	require.NoError(t, store.UpsertEmbedding(ctx, 2, blendVec(1, 3)))

	matches, err := store.QueryNearest(ctx, basisVec(0), 10, 0.9)
	require.NoError(t, err)

	require.Len(t, matches, 1)
	assert.Equal(t, int64(1), matches[0].TrackID())
}

func TestSQLiteVectorStore_TiesBreakByLowerID(t *testing.T) {
	db := testdb.New(t)
	store := infrasearch.NewSQLiteVectorStore(db, nil)
	ctx := context.Background()

	for _, id := range []int64{9, 2, 5} {
		seedTrack(t, db, id, "Tied", true, 0)
		require.NoError(t, store.UpsertEmbedding(ctx, id, basisVec(0)))
	}

	matches, err := store.QueryNearest(ctx, basisVec(0), 10, 0)
	require.NoError(t, err)

	ids := make([]int64, len(matches))
	for i, m := range matches {
		ids[i] = m.TrackID()
	}
	assert.Equal(t, []int64{2, 5, 9}, ids)
}

func TestSQLiteVectorStore_LimitApplied(t *testing.T) {
	db := testdb.New(t)
	store := infrasearch.NewSQLiteVectorStore(db, nil)
	ctx := context.Background()

	for id := int64(1); id <= 5; id++ {
		seedTrack(t, db, id, "Track", true, 0)
		require.NoError(t, store.UpsertEmbedding(ctx, id, basisVec(0)))
	}

	matches, err := store.QueryNearest(ctx, basisVec(0), 3, 0)
	require.NoError(t, err)
	assert.Len(t, matches, 3)
}

func TestSQLiteVectorStore_EmptyStoreReturnsEmpty(t *testing.T) {
	db := testdb.New(t)
	store := infrasearch.NewSQLiteVectorStore(db, nil)

	matches, err := store.QueryNearest(context.Background(), basisVec(0), 10, 0)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestSQLiteVectorStore_UpsertUnknownTrack(t *testing.T) {
	db := testdb.New(t)
	store := infrasearch.NewSQLiteVectorStore(db, nil)

	err := store.UpsertEmbedding(context.Background(), 404, basisVec(0))
	assert.ErrorIs(t, err, search.ErrNotFound)
}

func TestSQLiteVectorStore_UpsertWrongDimension(t *testing.T) {
	db := testdb.New(t)
	store := infrasearch.NewSQLiteVectorStore(db, nil)
	seedTrack(t, db, 1, "Track", true, 0)

	err := store.UpsertEmbedding(context.Background(), 1, []float64{1, 2, 3})
	assert.ErrorIs(t, err, infrasearch.ErrDimensionMismatch)
}

func TestSQLiteVectorStore_ClearEmbedding(t *testing.T) {
	db := testdb.New(t)
	store := infrasearch.NewSQLiteVectorStore(db, nil)
	ctx := context.Background()

	seedTrack(t, db, 1, "Track", true, 0)
	require.NoError(t, store.UpsertEmbedding(ctx, 1, basisVec(0)))
	require.NoError(t, store.ClearEmbedding(ctx, 1))

	matches, err := store.QueryNearest(ctx, basisVec(0), 10, 0)
	require.NoError(t, err)
	assert.Empty(t, matches)

	assert.ErrorIs(t, store.ClearEmbedding(ctx, 404), search.ErrNotFound)
}

func TestSQLiteVectorStore_UpsertReplacesExisting(t *testing.T) {
	db := testdb.New(t)
	store := infrasearch.NewSQLiteVectorStore(db, nil)
	ctx := context.Background()

	seedTrack(t, db, 1, "Track", true, 0)
	require.NoError(t, store.UpsertEmbedding(ctx, 1, basisVec(1)))
	require.NoError(t, store.UpsertEmbedding(ctx, 1, basisVec(0)))

	matches, err := store.QueryNearest(ctx, basisVec(0), 10, 0.5)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.InDelta(t, 1.0, matches[0].Similarity(), 1e-9)
}
