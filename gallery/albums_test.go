package gallery_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"memoria/gallery"
	"memoria/models"
	"memoria/store"
	"memoria/store/memstore"
)

func TestCoverLifecycle(t *testing.T) {
	each(t, func(t *testing.T, e *env) {
		owner := e.user(t, "u1")

		a1 := e.album(t, owner, "Trip", true)
		assert.Nil(t, a1.CoverPhotoID)

		p1 := e.photo(t, owner, a1.ID, "Beach")
		got, err := e.svc.AlbumByID(owner, a1.ID)
		require.NoError(t, err)
		assert.True(t, got.HasCover(p1.ID))

		p2 := e.photo(t, owner, a1.ID, "Dunes")
		got, err = e.svc.AlbumByID(owner, a1.ID)
		require.NoError(t, err)
		assert.True(t, got.HasCover(p1.ID))

		require.NoError(t, e.svc.DeletePhoto(owner, p1.ID))
		got, err = e.svc.AlbumByID(owner, a1.ID)
		require.NoError(t, err)
		assert.True(t, got.HasCover(p2.ID))

		require.NoError(t, e.svc.DeletePhoto(owner, p2.ID))
		got, err = e.svc.AlbumByID(owner, a1.ID)
		require.NoError(t, err)
		assert.Nil(t, got.CoverPhotoID)

		require.NoError(t, e.svc.DeleteAlbum(owner, a1.ID))
		photos, err := e.svc.PhotosByAlbum(owner, a1.ID, 0, "")
		require.NoError(t, err)
		assert.Empty(t, photos.Items)
		assert.True(t, photos.IsDone)
		_, err = e.svc.AlbumByID(owner, a1.ID)
		assert.ErrorIs(t, err, gallery.ErrNotFound)
	})
}

func TestCoverReplacementPicksRemainingPhoto(t *testing.T) {
	each(t, func(t *testing.T, e *env) {
		owner := e.user(t, "u1")
		a := e.album(t, owner, "Many", false)
		cover := e.photo(t, owner, a.ID, "one")
		second := e.photo(t, owner, a.ID, "two")
		e.photo(t, owner, a.ID, "three")

		require.NoError(t, e.svc.DeletePhoto(owner, cover.ID))
		got := e.storedAlbum(t, a.ID)
		require.NotNil(t, got.CoverPhotoID)
		assert.Equal(t, second.ID, *got.CoverPhotoID)

		// deleting a non-cover photo keeps the cover
		third, err := e.st.ListPhotos(context.Background(), store.PhotoQuery{AlbumID: a.ID, ExcludeID: second.ID})
		require.NoError(t, err)
		require.Len(t, third.Items, 1)
		require.NoError(t, e.svc.DeletePhoto(owner, third.Items[0].ID))
		assert.True(t, e.storedAlbum(t, a.ID).HasCover(second.ID))
	})
}

func TestDeleteAlbumCascades(t *testing.T) {
	each(t, func(t *testing.T, e *env) {
		owner := e.user(t, "u1")
		a := e.album(t, owner, "Gone", true)
		keep := e.album(t, owner, "Kept", true)
		for _, title := range []string{"x", "y", "z"} {
			e.photo(t, owner, a.ID, title)
		}
		kept := e.photo(t, owner, keep.ID, "k")

		require.NoError(t, e.svc.DeleteAlbum(owner, a.ID))

		left, err := e.st.ListPhotos(context.Background(), store.PhotoQuery{AlbumID: a.ID})
		require.NoError(t, err)
		assert.Empty(t, left.Items)
		_, err = e.st.GetPhoto(context.Background(), kept.ID)
		assert.NoError(t, err)

		assert.Len(t, e.reaper.Keys(), 6)
		assert.Contains(t, e.reaper.Keys(), "photos/"+a.ID+"/x.jpg")
		assert.Contains(t, e.reaper.Keys(), "photos/"+a.ID+"/x.jpg_thumb.jpg")
	})
}

func TestCreateAlbumValidation(t *testing.T) {
	each(t, func(t *testing.T, e *env) {
		owner := e.user(t, "u1")

		_, err := e.svc.CreateAlbum(owner, gallery.NewAlbum{Title: "   "})
		assert.ErrorIs(t, err, gallery.ErrValidation)

		a, err := e.svc.CreateAlbum(owner, gallery.NewAlbum{Title: "  Trip  ", Description: strptr("summer"), Category: strptr("travel")})
		require.NoError(t, err)
		assert.Equal(t, "Trip", a.Title)
		assert.False(t, a.IsPublic)
		assert.Equal(t, a.CreatedAt, a.UpdatedAt)

		_, err = e.svc.CreateAlbum(context.Background(), gallery.NewAlbum{Title: "anon"})
		assert.ErrorIs(t, err, gallery.ErrUnauthorized)
	})
}

func TestUpdateAlbum(t *testing.T) {
	each(t, func(t *testing.T, e *env) {
		owner := e.user(t, "u1")
		a, err := e.svc.CreateAlbum(owner, gallery.NewAlbum{Title: "Trip", Description: strptr("d"), IsPublic: true})
		require.NoError(t, err)

		t.Run("empty patch only bumps updated_at", func(t *testing.T) {
			before := e.storedAlbum(t, a.ID)
			got, err := e.svc.UpdateAlbum(owner, a.ID, gallery.AlbumPatch{})
			require.NoError(t, err)
			assert.Greater(t, got.UpdatedAt, before.UpdatedAt)
			got.UpdatedAt = before.UpdatedAt
			assert.Equal(t, before, got)
		})

		t.Run("partial fields", func(t *testing.T) {
			private := false
			got, err := e.svc.UpdateAlbum(owner, a.ID, gallery.AlbumPatch{Title: strptr(" Renamed "), IsPublic: &private})
			require.NoError(t, err)
			assert.Equal(t, "Renamed", got.Title)
			assert.False(t, got.IsPublic)
			require.NotNil(t, got.Description)
			assert.Equal(t, "d", *got.Description)
		})

		t.Run("blank title", func(t *testing.T) {
			_, err := e.svc.UpdateAlbum(owner, a.ID, gallery.AlbumPatch{Title: strptr(" ")})
			assert.ErrorIs(t, err, gallery.ErrValidation)
		})

		t.Run("cover must belong to album", func(t *testing.T) {
			other := e.album(t, owner, "Other", false)
			foreign := e.photo(t, owner, other.ID, "f")
			_, err := e.svc.UpdateAlbum(owner, a.ID, gallery.AlbumPatch{CoverPhotoID: &foreign.ID})
			assert.ErrorIs(t, err, gallery.ErrValidation)
			_, err = e.svc.UpdateAlbum(owner, a.ID, gallery.AlbumPatch{CoverPhotoID: strptr("missing")})
			assert.ErrorIs(t, err, gallery.ErrValidation)

			first := e.photo(t, owner, a.ID, "first")
			second := e.photo(t, owner, a.ID, "second")
			got, err := e.svc.UpdateAlbum(owner, a.ID, gallery.AlbumPatch{CoverPhotoID: &second.ID})
			require.NoError(t, err)
			assert.True(t, got.HasCover(second.ID))
			assert.NotEqual(t, first.ID, *got.CoverPhotoID)

			got, err = e.svc.UpdateAlbum(owner, a.ID, gallery.AlbumPatch{CoverPhotoID: strptr("")})
			require.NoError(t, err)
			assert.Nil(t, got.CoverPhotoID)
		})

		t.Run("missing album", func(t *testing.T) {
			_, err := e.svc.UpdateAlbum(owner, "nope", gallery.AlbumPatch{})
			assert.ErrorIs(t, err, gallery.ErrNotFound)
		})
	})
}

// flakyPhotos fails every photo lookup with err
type flakyPhotos struct {
	store.Store
	err error
}

func (f flakyPhotos) GetPhoto(ctx context.Context, id string) (models.Photo, error) {
	return models.Photo{}, f.err
}

func (f flakyPhotos) Tx(ctx context.Context, fn func(tx store.Store) error) error {
	return f.Store.Tx(ctx, func(tx store.Store) error {
		return fn(flakyPhotos{Store: tx, err: f.err})
	})
}

func TestUpdateAlbumCoverLookupFailure(t *testing.T) {
	timeout := errors.New("i/o timeout")
	svc := gallery.New(flakyPhotos{Store: memstore.New(), err: timeout}, nil, nil)
	user, err := svc.SyncUser(context.Background(), gallery.Identity{ExternalID: "u1", Username: "u1"})
	require.NoError(t, err)
	owner := gallery.WithActor(context.Background(), gallery.Actor{UserID: user.ID, ExternalID: "u1"})
	a, err := svc.CreateAlbum(owner, gallery.NewAlbum{Title: "Trip"})
	require.NoError(t, err)

	_, err = svc.UpdateAlbum(owner, a.ID, gallery.AlbumPatch{CoverPhotoID: strptr("p1")})
	assert.ErrorIs(t, err, timeout)
	assert.NotErrorIs(t, err, gallery.ErrValidation)
}

func TestNonOwnerMutationsFail(t *testing.T) {
	each(t, func(t *testing.T, e *env) {
		owner := e.user(t, "u1")
		intruder := e.user(t, "u2")
		a := e.album(t, owner, "Trip", true)
		p := e.photo(t, owner, a.ID, "Beach")
		albumBefore := e.storedAlbum(t, a.ID)
		photoBefore, err := e.st.GetPhoto(context.Background(), p.ID)
		require.NoError(t, err)

		_, err = e.svc.UpdateAlbum(intruder, a.ID, gallery.AlbumPatch{Title: strptr("Hacked")})
		assert.ErrorIs(t, err, gallery.ErrUnauthorized)
		assert.ErrorIs(t, e.svc.DeleteAlbum(intruder, a.ID), gallery.ErrUnauthorized)
		_, err = e.svc.AddPhoto(intruder, gallery.NewPhoto{AlbumID: a.ID, Title: "x", StorageID: "k", ThumbnailStorageID: "k"})
		assert.ErrorIs(t, err, gallery.ErrUnauthorized)
		_, err = e.svc.UpdatePhoto(intruder, p.ID, gallery.PhotoPatch{Title: strptr("Hacked")})
		assert.ErrorIs(t, err, gallery.ErrUnauthorized)
		assert.ErrorIs(t, e.svc.DeletePhoto(intruder, p.ID), gallery.ErrUnauthorized)

		got, err := e.svc.AlbumByID(owner, a.ID)
		require.NoError(t, err)
		assert.Equal(t, "Trip", got.Title)
		assert.Equal(t, albumBefore, e.storedAlbum(t, a.ID))
		photoAfter, err := e.st.GetPhoto(context.Background(), p.ID)
		require.NoError(t, err)
		assert.Equal(t, photoBefore, photoAfter)
		n, err := e.st.CountPhotos(context.Background(), a.ID)
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)
		assert.Empty(t, e.reaper.Keys())
	})
}
