package gallery_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"memoria/gallery"
)

func TestAddPhoto(t *testing.T) {
	each(t, func(t *testing.T, e *env) {
		owner := e.user(t, "u1")
		a := e.album(t, owner, "Trip", false)

		tests := []struct {
			name string
			in   gallery.NewPhoto
			want error
		}{
			{"blank title", gallery.NewPhoto{AlbumID: a.ID, Title: " ", StorageID: "k", ThumbnailStorageID: "t"}, gallery.ErrValidation},
			{"missing storage id", gallery.NewPhoto{AlbumID: a.ID, Title: "x", ThumbnailStorageID: "t"}, gallery.ErrValidation},
			{"missing thumbnail", gallery.NewPhoto{AlbumID: a.ID, Title: "x", StorageID: "k"}, gallery.ErrValidation},
			{"empty tag", gallery.NewPhoto{AlbumID: a.ID, Title: "x", StorageID: "k", ThumbnailStorageID: "t", Tags: []string{""}}, gallery.ErrValidation},
			{"unknown album", gallery.NewPhoto{AlbumID: "nope", Title: "x", StorageID: "k", ThumbnailStorageID: "t"}, gallery.ErrNotFound},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := e.svc.AddPhoto(owner, tt.in)
				assert.ErrorIs(t, err, tt.want)
			})
		}

		p, err := e.svc.AddPhoto(owner, gallery.NewPhoto{AlbumID: a.ID, Title: "Beach", StorageID: "k", ThumbnailStorageID: "t", Tags: []string{"sea"}})
		require.NoError(t, err)
		assert.Equal(t, e.storedAlbum(t, a.ID).UserID, p.UserID)
		assert.Equal(t, []string{"sea"}, []string(p.Tags))
		assert.True(t, e.storedAlbum(t, a.ID).HasCover(p.ID))
		assert.Equal(t, p.CreatedAt, e.storedAlbum(t, a.ID).UpdatedAt)
	})
}

func TestUpdatePhoto(t *testing.T) {
	each(t, func(t *testing.T, e *env) {
		owner := e.user(t, "u1")
		a := e.album(t, owner, "Trip", false)
		p := e.photo(t, owner, a.ID, "Beach", "sea")
		before, err := e.st.GetPhoto(context.Background(), p.ID)
		require.NoError(t, err)

		got, err := e.svc.UpdatePhoto(owner, p.ID, gallery.PhotoPatch{})
		require.NoError(t, err)
		assert.Greater(t, got.UpdatedAt, before.UpdatedAt)
		got.UpdatedAt = before.UpdatedAt
		assert.Equal(t, before, got)

		tags := []string{"sea", "sunset"}
		got, err = e.svc.UpdatePhoto(owner, p.ID, gallery.PhotoPatch{Description: strptr("golden hour"), Tags: &tags})
		require.NoError(t, err)
		assert.Equal(t, "Beach", got.Title)
		assert.Equal(t, tags, []string(got.Tags))
		require.NotNil(t, got.Description)
		assert.Equal(t, "golden hour", *got.Description)

		_, err = e.svc.UpdatePhoto(owner, p.ID, gallery.PhotoPatch{Title: strptr("")})
		assert.ErrorIs(t, err, gallery.ErrValidation)
		_, err = e.svc.UpdatePhoto(owner, "nope", gallery.PhotoPatch{})
		assert.ErrorIs(t, err, gallery.ErrNotFound)
	})
}

func TestDeletePhotoReapsKeys(t *testing.T) {
	each(t, func(t *testing.T, e *env) {
		owner := e.user(t, "u1")
		a := e.album(t, owner, "Trip", false)
		p := e.photo(t, owner, a.ID, "Beach")

		require.NoError(t, e.svc.DeletePhoto(owner, p.ID))
		assert.ElementsMatch(t, []string{p.StorageID, p.ThumbnailStorageID}, e.reaper.Keys())

		assert.ErrorIs(t, e.svc.DeletePhoto(owner, p.ID), gallery.ErrNotFound)
		assert.Len(t, e.reaper.Keys(), 2)
	})
}

func TestPhotoCountByAlbum(t *testing.T) {
	each(t, func(t *testing.T, e *env) {
		owner := e.user(t, "u1")
		other := e.user(t, "u2")
		private := e.album(t, owner, "Private", false)
		e.photo(t, owner, private.ID, "a")
		e.photo(t, owner, private.ID, "b")

		n, err := e.svc.PhotoCountByAlbum(owner, private.ID)
		require.NoError(t, err)
		assert.EqualValues(t, 2, n)

		n, err = e.svc.PhotoCountByAlbum(other, private.ID)
		require.NoError(t, err)
		assert.Zero(t, n)

		n, err = e.svc.PhotoCountByAlbum(owner, "nope")
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}
