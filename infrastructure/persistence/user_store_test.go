package persistence_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harmonium-fm/harmonium/domain/user"
	"github.com/harmonium-fm/harmonium/infrastructure/persistence"
	"github.com/harmonium-fm/harmonium/internal/testdb"
)

func TestUserStore_Match(t *testing.T) {
	db := testdb.New(t)
	store := persistence.NewUserStore(db)
	ctx := context.Background()

	for _, u := range []user.User{
		user.New(1, "jazzcat", "Miles", ""),
		user.New(2, "runner", "Jazz Fan", ""),
		user.New(3, "quiet", "Someone Else", ""),
	} {
		_, err := store.Save(ctx, u)
		require.NoError(t, err)
	}

	got, err := store.Match(ctx, "JAZZ", 10)
	require.NoError(t, err)

	usernames := make([]string, len(got))
	for i, u := range got {
		usernames[i] = u.Username()
	}
	// Ordered by username ascending.
	assert.Equal(t, []string{"jazzcat", "runner"}, usernames)
}

func TestUserStore_Match_Limit(t *testing.T) {
	db := testdb.New(t)
	store := persistence.NewUserStore(db)
	ctx := context.Background()

	for i := int64(1); i <= 5; i++ {
		_, err := store.Save(ctx, user.New(i, "listener"+string(rune('a'+i)), "", ""))
		require.NoError(t, err)
	}

	got, err := store.Match(ctx, "listener", 3)
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestUserStore_Match_NoResults(t *testing.T) {
	db := testdb.New(t)
	store := persistence.NewUserStore(db)

	got, err := store.Match(context.Background(), "ghost", 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestUserStore_Save_UpdatesExisting(t *testing.T) {
	db := testdb.New(t)
	store := persistence.NewUserStore(db)
	ctx := context.Background()

	_, err := store.Save(ctx, user.New(1, "old", "Old Name", ""))
	require.NoError(t, err)
	_, err = store.Save(ctx, user.New(1, "new", "New Name", "https://cdn/a.png"))
	require.NoError(t, err)

	got, err := store.Match(ctx, "new", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "New Name", got[0].DisplayName())
	assert.Equal(t, "https://cdn/a.png", got[0].AvatarURL())
}
