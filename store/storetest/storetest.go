// Package storetest holds a behaviour suite every store.Store backend must pass
package storetest

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"memoria/models"
	"memoria/store"
)

// Run executes the suite. newStore must return an empty store on every call.
func Run(t *testing.T, newStore func(t *testing.T) store.Store) {
	t.Run("users", func(t *testing.T) { testUsers(t, newStore(t)) })
	t.Run("album patch", func(t *testing.T) { testAlbumPatch(t, newStore(t)) })
	t.Run("album listing", func(t *testing.T) { testAlbumListing(t, newStore(t)) })
	t.Run("photo listing", func(t *testing.T) { testPhotoListing(t, newStore(t)) })
	t.Run("photo patch and refs", func(t *testing.T) { testPhotoPatch(t, newStore(t)) })
	t.Run("tx rollback", func(t *testing.T) { testRollback(t, newStore(t)) })
}

func album(userID string, createdAt int64, public bool) *models.Album {
	return &models.Album{ID: uuid.NewString(), UserID: userID, Title: "a", IsPublic: public, CreatedAt: createdAt, UpdatedAt: createdAt}
}

func photo(albumID, userID string, createdAt int64) *models.Photo {
	key := "photos/" + userID + "/" + uuid.NewString()
	return &models.Photo{
		ID: uuid.NewString(), AlbumID: albumID, UserID: userID, Title: "p",
		StorageID: key, ThumbnailStorageID: key + "_thumb.jpg",
		CreatedAt: createdAt, UpdatedAt: createdAt,
	}
}

func testUsers(t *testing.T, s store.Store) {
	ctx := context.Background()
	u := &models.User{ID: uuid.NewString(), ExternalID: "ext-1", Name: "Ann", Username: "ann", Email: "ann@example.com", CreatedAt: 1, UpdatedAt: 1}
	require.NoError(t, s.InsertUser(ctx, u))

	got, err := s.FindUserByExternalID(ctx, "ext-1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	dup := &models.User{ID: uuid.NewString(), ExternalID: "ext-1", Username: "other", CreatedAt: 2}
	assert.ErrorIs(t, s.InsertUser(ctx, dup), store.ErrDuplicate)

	img := "https://img.example.com/a.png"
	require.NoError(t, s.PatchUser(ctx, u.ID, store.UserPatch{Name: "Anna", Username: "anna", Email: "anna@example.com", ImageURL: &img, UpdatedAt: 5}))
	got, err = s.FindUserByUsername(ctx, "anna")
	require.NoError(t, err)
	assert.Equal(t, "Anna", got.Name)
	require.NotNil(t, got.ImageURL)
	assert.Equal(t, img, *got.ImageURL)
	assert.EqualValues(t, 5, got.UpdatedAt)

	_, err = s.FindUserByUsername(ctx, "ann")
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.DeleteUser(ctx, u.ID))
	_, err = s.GetUser(ctx, u.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, s.DeleteUser(ctx, u.ID), store.ErrNotFound)
}

func testAlbumPatch(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := album("u1", 10, false)
	desc := "old"
	a.Description = &desc
	require.NoError(t, s.InsertAlbum(ctx, a))

	title := "new title"
	public := true
	cover := "photo-1"
	require.NoError(t, s.PatchAlbum(ctx, a.ID, store.AlbumPatch{Title: &title, IsPublic: &public, CoverPhotoID: &cover, UpdatedAt: 20}))
	got, err := s.GetAlbum(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "new title", got.Title)
	assert.True(t, got.IsPublic)
	require.NotNil(t, got.Description)
	assert.Equal(t, "old", *got.Description)
	assert.True(t, got.HasCover("photo-1"))
	assert.EqualValues(t, 20, got.UpdatedAt)

	require.NoError(t, s.PatchAlbum(ctx, a.ID, store.AlbumPatch{ClearCover: true, UpdatedAt: 30}))
	got, err = s.GetAlbum(ctx, a.ID)
	require.NoError(t, err)
	assert.Nil(t, got.CoverPhotoID)

	n, err := s.CountAlbums(ctx, "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	require.NoError(t, s.DeleteAlbum(ctx, a.ID))
	_, err = s.GetAlbum(ctx, a.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testAlbumListing(t *testing.T, s store.Store) {
	ctx := context.Background()
	var want []string
	for i := 0; i < 5; i++ {
		a := album("u1", int64(100+i), i%2 == 0)
		require.NoError(t, s.InsertAlbum(ctx, a))
		want = append([]string{a.ID}, want...)
	}
	require.NoError(t, s.InsertAlbum(ctx, album("u2", 50, true)))

	var seen []string
	cursor := ""
	for pages := 0; ; pages++ {
		require.Less(t, pages, 5)
		page, err := s.ListAlbums(ctx, store.AlbumQuery{UserID: "u1", Limit: 2, Cursor: cursor})
		require.NoError(t, err)
		for _, a := range page.Items {
			seen = append(seen, a.ID)
		}
		if page.IsDone {
			break
		}
		cursor = page.ContinueCursor
	}
	assert.Equal(t, want, seen)

	public, err := s.ListAlbums(ctx, store.AlbumQuery{PublicOnly: true})
	require.NoError(t, err)
	assert.Len(t, public.Items, 4)
	assert.True(t, public.IsDone)

	_, err = s.ListAlbums(ctx, store.AlbumQuery{Cursor: "%%%"})
	assert.ErrorIs(t, err, store.ErrBadCursor)
}

func testPhotoListing(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := album("u1", 1, true)
	b := album("u1", 2, false)
	require.NoError(t, s.InsertAlbum(ctx, a))
	require.NoError(t, s.InsertAlbum(ctx, b))
	var inA []*models.Photo
	for i := 0; i < 4; i++ {
		p := photo(a.ID, "u1", int64(10+i))
		require.NoError(t, s.InsertPhoto(ctx, p))
		inA = append(inA, p)
	}
	require.NoError(t, s.InsertPhoto(ctx, photo(b.ID, "u1", 50)))

	page, err := s.ListPhotos(ctx, store.PhotoQuery{AlbumID: a.ID, Limit: 3})
	require.NoError(t, err)
	require.Len(t, page.Items, 3)
	assert.False(t, page.IsDone)
	assert.Equal(t, inA[3].ID, page.Items[0].ID)

	next, err := s.ListPhotos(ctx, store.PhotoQuery{AlbumID: a.ID, Limit: 3, Cursor: page.ContinueCursor})
	require.NoError(t, err)
	require.Len(t, next.Items, 1)
	assert.True(t, next.IsDone)
	assert.Equal(t, inA[0].ID, next.Items[0].ID)

	oldest, err := s.ListPhotos(ctx, store.PhotoQuery{AlbumID: a.ID, ExcludeID: inA[0].ID, OldestFirst: true, Limit: 1})
	require.NoError(t, err)
	require.NotEmpty(t, oldest.Items)
	assert.Equal(t, inA[1].ID, oldest.Items[0].ID)

	scoped, err := s.ListPhotos(ctx, store.PhotoQuery{AlbumIDs: []string{b.ID}})
	require.NoError(t, err)
	assert.Len(t, scoped.Items, 1)

	none, err := s.ListPhotos(ctx, store.PhotoQuery{AlbumIDs: []string{}})
	require.NoError(t, err)
	assert.Empty(t, none.Items)
	assert.True(t, none.IsDone)

	all, err := s.ListPhotos(ctx, store.PhotoQuery{UserID: "u1"})
	require.NoError(t, err)
	assert.Len(t, all.Items, 5)

	n, err := s.CountPhotos(ctx, a.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 4, n)
}

func testPhotoPatch(t *testing.T, s store.Store) {
	ctx := context.Background()
	p := photo("a1", "u1", 1)
	p.Tags = models.Tags{"sea"}
	require.NoError(t, s.InsertPhoto(ctx, p))

	tags := models.Tags{"sea", "sunset"}
	desc := "evening"
	require.NoError(t, s.PatchPhoto(ctx, p.ID, store.PhotoPatch{Description: &desc, Tags: &tags, UpdatedAt: 9}))
	got, err := s.GetPhoto(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "p", got.Title)
	assert.Equal(t, tags, got.Tags)
	require.NotNil(t, got.Description)
	assert.Equal(t, "evening", *got.Description)

	refs, err := s.CountStorageRefs(ctx, p.ThumbnailStorageID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, refs)

	require.NoError(t, s.DeletePhoto(ctx, p.ID))
	refs, err = s.CountStorageRefs(ctx, p.StorageID)
	require.NoError(t, err)
	assert.Zero(t, refs)
	assert.ErrorIs(t, s.DeletePhoto(ctx, p.ID), store.ErrNotFound)
}

func testRollback(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := album("u1", 1, false)
	require.NoError(t, s.InsertAlbum(ctx, a))
	p := photo(a.ID, "u1", 2)
	require.NoError(t, s.InsertPhoto(ctx, p))

	boom := errors.New("boom")
	err := s.Tx(ctx, func(tx store.Store) error {
		if err := tx.DeletePhoto(ctx, p.ID); err != nil {
			return err
		}
		if err := tx.DeleteAlbum(ctx, a.ID); err != nil {
			return err
		}
		return fmt.Errorf("after deletes: %w", boom)
	})
	assert.ErrorIs(t, err, boom)

	_, err = s.GetAlbum(ctx, a.ID)
	assert.NoError(t, err)
	_, err = s.GetPhoto(ctx, p.ID)
	assert.NoError(t, err)

	require.NoError(t, s.Tx(ctx, func(tx store.Store) error {
		return tx.DeletePhoto(ctx, p.ID)
	}))
	_, err = s.GetPhoto(ctx, p.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
