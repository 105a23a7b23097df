package persistence_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harmonium-fm/harmonium/domain/track"
	"github.com/harmonium-fm/harmonium/domain/user"
	"github.com/harmonium-fm/harmonium/infrastructure/persistence"
	"github.com/harmonium-fm/harmonium/internal/database"
	"github.com/harmonium-fm/harmonium/internal/testdb"
)

func addEmbeddingColumn(t *testing.T, db database.Database) {
	t.Helper()
	require.NoError(t, db.Session(context.Background()).Exec(`ALTER TABLE tracks ADD COLUMN embedding JSON`).Error)
}

func TestTrackStore_SaveAndByIDs(t *testing.T) {
	db := testdb.New(t)
	users := persistence.NewUserStore(db)
	tracks := persistence.NewTrackStore(db)
	ctx := context.Background()

	owner, err := users.Save(ctx, user.New(7, "amara", "Amara O.", ""))
	require.NoError(t, err)

	saved, err := tracks.Save(ctx, track.New(1, "Night Drive",
		track.WithDescription("synthwave for empty highways"),
		track.WithGenre("synthwave"),
		track.WithPrimaryArtist("Neon Fox"),
		track.WithPublic(true),
		track.WithPopularity(42),
		track.WithLikeCount(9),
		track.WithOwner(track.NewOwner(owner.ID(), owner.DisplayName())),
	))
	require.NoError(t, err)
	assert.Equal(t, int64(1), saved.ID())

	got, err := tracks.ByIDs(ctx, []int64{1})
	require.NoError(t, err)
	require.Len(t, got, 1)

	tr := got[0]
	assert.Equal(t, "Night Drive", tr.Title())
	assert.Equal(t, "synthwave", tr.Genre())
	assert.Equal(t, "Neon Fox", tr.PrimaryArtist())
	assert.Equal(t, int64(42), tr.Popularity())
	assert.Equal(t, int64(9), tr.LikeCount())
	require.NotNil(t, tr.Owner())
	assert.Equal(t, int64(7), tr.Owner().ID())
	assert.Equal(t, "Amara O.", tr.Owner().DisplayName())
}

func TestTrackStore_ByIDs_OmitsMissing(t *testing.T) {
	db := testdb.New(t)
	tracks := persistence.NewTrackStore(db)
	ctx := context.Background()

	_, err := tracks.Save(ctx, track.New(1, "Only One", track.WithPublic(true)))
	require.NoError(t, err)

	got, err := tracks.ByIDs(ctx, []int64{1, 999})
	require.NoError(t, err)
	assert.Len(t, got, 1)

	empty, err := tracks.ByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestTrackStore_Save_UpdatesExisting(t *testing.T) {
	db := testdb.New(t)
	tracks := persistence.NewTrackStore(db)
	ctx := context.Background()

	_, err := tracks.Save(ctx, track.New(1, "Draft", track.WithPublic(false)))
	require.NoError(t, err)

	_, err = tracks.Save(ctx, track.New(1, "Final", track.WithPublic(true)))
	require.NoError(t, err)

	got, err := tracks.ByIDs(ctx, []int64{1})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Final", got[0].Title())
	assert.True(t, got[0].IsPublic())
}

func TestTrackStore_MissingEmbeddings(t *testing.T) {
	db := testdb.New(t)
	addEmbeddingColumn(t, db)
	tracks := persistence.NewTrackStore(db)
	ctx := context.Background()

	for id := int64(1); id <= 4; id++ {
		_, err := tracks.Save(ctx, track.New(id, "Track", track.WithPublic(true)))
		require.NoError(t, err)
	}
	_, err := tracks.Save(ctx, track.New(5, "Private", track.WithPublic(false)))
	require.NoError(t, err)

	// Track 2 already has an embedding.
	require.NoError(t, db.Session(ctx).Exec(`UPDATE tracks SET embedding = '[0.1]' WHERE id = 2`).Error)

	missing, err := tracks.MissingEmbeddings(ctx, 10)
	require.NoError(t, err)

	ids := make([]int64, len(missing))
	for i, tr := range missing {
		ids[i] = tr.ID()
	}
	assert.Equal(t, []int64{1, 3, 4}, ids)
}

func TestTrackStore_MissingEmbeddings_Limit(t *testing.T) {
	db := testdb.New(t)
	addEmbeddingColumn(t, db)
	tracks := persistence.NewTrackStore(db)
	ctx := context.Background()

	for id := int64(1); id <= 5; id++ {
		_, err := tracks.Save(ctx, track.New(id, "Track", track.WithPublic(true)))
		require.NoError(t, err)
	}

	missing, err := tracks.MissingEmbeddings(ctx, 2)
	require.NoError(t, err)
	require.Len(t, missing, 2)
	assert.Equal(t, int64(1), missing[0].ID())
	assert.Equal(t, int64(2), missing[1].ID())
}
