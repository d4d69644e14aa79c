package favorites

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gurman-sys/rentbuddy/internal/services"
	"github.com/gurman-sys/rentbuddy/internal/testutil"
	"github.com/gurman-sys/rentbuddy/pkg/models"
)

func newTestStore(t *testing.T) (*Store, *services.SQLiteKeyValueRepository, *testutil.Clock) {
	t.Helper()
	kv := testutil.NewKeyValue(t)
	clock := testutil.NewClock()
	s := NewStore(kv)
	s.SetClock(clock.Now)
	return s, kv, clock
}

func TestStore_AddListRemove(t *testing.T) {
	ctx := context.Background()
	s, _, clock := newTestStore(t)

	fav, added, err := s.Add(ctx, "u1", models.Favorite{ID: "1", Title: "Canon EOS R5 Camera", Price: 1500})
	require.NoError(t, err)
	assert.True(t, added)
	assert.True(t, fav.AddedAt.Equal(clock.Now()))

	clock.Advance(time.Minute)
	_, _, err = s.Add(ctx, "u1", models.Favorite{ID: "2", Title: "DJI Drone", Price: 2000})
	require.NoError(t, err)

	favs, err := s.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, favs, 2)
	assert.Equal(t, "1", favs[0].ID)
	assert.Equal(t, "2", favs[1].ID)

	ok, err := s.IsFavorite(ctx, "u1", "2")
	require.NoError(t, err)
	assert.True(t, ok)

	removed, err := s.Remove(ctx, "u1", "2")
	require.NoError(t, err)
	assert.True(t, removed)

	ok, err = s.IsFavorite(ctx, "u1", "2")
	require.NoError(t, err)
	assert.False(t, ok)

	removed, err = s.Remove(ctx, "u1", "2")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestStore_AddIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s, _, clock := newTestStore(t)

	first, added, err := s.Add(ctx, "u1", models.Favorite{ID: "1", Title: "Camera"})
	require.NoError(t, err)
	require.True(t, added)

	clock.Advance(time.Hour)
	again, added, err := s.Add(ctx, "u1", models.Favorite{ID: "1", Title: "Camera"})
	require.NoError(t, err)
	assert.False(t, added)
	assert.True(t, again.AddedAt.Equal(first.AddedAt), "second add keeps the original timestamp")

	favs, err := s.List(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, favs, 1)
}

func TestStore_PersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	s, kv, _ := newTestStore(t)

	_, _, err := s.Add(ctx, "u1", models.Favorite{ID: "3", Title: "Trek Mountain Bike", Price: 500})
	require.NoError(t, err)

	var stored []models.Favorite
	found, err := services.GetJSON(ctx, kv, "u1", services.KeyFavorites, &stored)
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, stored, 1)
	assert.Equal(t, "Trek Mountain Bike", stored[0].Title)

	fresh := NewStore(kv)
	require.NoError(t, fresh.Load(ctx, "u1"))
	ok, err := fresh.IsFavorite(ctx, "u1", "3")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStore_UsersAreSeparate(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestStore(t)

	_, _, err := s.Add(ctx, "u1", models.Favorite{ID: "1"})
	require.NoError(t, err)

	favs, err := s.List(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, favs)
	assert.NotNil(t, favs, "an empty list encodes as []")
}

func TestStore_ListReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestStore(t)
	_, _, err := s.Add(ctx, "u1", models.Favorite{ID: "1", Title: "Camera"})
	require.NoError(t, err)

	favs, err := s.List(ctx, "u1")
	require.NoError(t, err)
	favs[0].Title = "changed"

	again, err := s.List(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Camera", again[0].Title)
}

// failingKV accepts reads and rejects writes.
type failingKV struct {
	services.KeyValueRepository
}

func (failingKV) Get(context.Context, string, string) (*services.Entry, error) {
	return nil, services.ErrNotFound
}

func (failingKV) Set(context.Context, string, string, string) error {
	return errors.New("disk full")
}

func TestStore_FailedSaveLeavesCacheUnchanged(t *testing.T) {
	ctx := context.Background()
	s := NewStore(failingKV{})

	_, _, err := s.Add(ctx, "u1", models.Favorite{ID: "1"})
	require.Error(t, err)

	ok, err := s.IsFavorite(ctx, "u1", "1")
	require.NoError(t, err)
	assert.False(t, ok)
}
