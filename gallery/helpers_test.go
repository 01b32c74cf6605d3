package gallery_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"memoria/gallery"
	"memoria/models"
	"memoria/store"
	"memoria/store/gormstore"
	"memoria/store/memstore"
	"memoria/store/storetest"
)

type fakeReaper struct {
	mu   sync.Mutex
	keys []string
}

func (r *fakeReaper) Enqueue(keys ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys = append(r.keys, keys...)
}

func (r *fakeReaper) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.keys...)
}

type cdn struct{}

func (cdn) URL(ctx context.Context, key string) (string, error) {
	return "https://cdn.test/" + key, nil
}

type env struct {
	svc    *gallery.Service
	st     store.Store
	reaper *fakeReaper
	now    time.Time
}

// each runs fn once per storage backend
func each(t *testing.T, fn func(t *testing.T, e *env)) {
	backends := map[string]func(t *testing.T) store.Store{
		"memstore":  func(t *testing.T) store.Store { return memstore.New() },
		"gormstore": func(t *testing.T) store.Store { return gormstore.New(storetest.SQLite(t)) },
	}
	for name, open := range backends {
		t.Run(name, func(t *testing.T) {
			e := &env{st: open(t), reaper: &fakeReaper{}, now: time.UnixMilli(1_700_000_000_000)}
			e.svc = gallery.New(e.st, cdn{}, e.reaper)
			var mu sync.Mutex
			e.svc.SetClock(func() time.Time {
				mu.Lock()
				defer mu.Unlock()
				e.now = e.now.Add(time.Millisecond)
				return e.now
			})
			fn(t, e)
		})
	}
}

func (e *env) user(t *testing.T, externalID string) context.Context {
	u, err := e.svc.SyncUser(context.Background(), gallery.Identity{ExternalID: externalID, Email: externalID + "@example.com", Name: externalID, Username: externalID})
	require.NoError(t, err)
	return gallery.WithActor(context.Background(), gallery.Actor{UserID: u.ID, ExternalID: externalID})
}

func (e *env) album(t *testing.T, ctx context.Context, title string, public bool) models.Album {
	a, err := e.svc.CreateAlbum(ctx, gallery.NewAlbum{Title: title, IsPublic: public})
	require.NoError(t, err)
	return a
}

func (e *env) photo(t *testing.T, ctx context.Context, albumID, title string, tags ...string) models.Photo {
	key := "photos/" + albumID + "/" + title + ".jpg"
	p, err := e.svc.AddPhoto(ctx, gallery.NewPhoto{AlbumID: albumID, Title: title, StorageID: key, ThumbnailStorageID: key + "_thumb.jpg", Tags: tags})
	require.NoError(t, err)
	return p
}

func (e *env) storedAlbum(t *testing.T, id string) models.Album {
	a, err := e.st.GetAlbum(context.Background(), id)
	require.NoError(t, err)
	return a
}

func strptr(s string) *string { return &s }
