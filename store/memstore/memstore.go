// Package memstore keeps every record in process memory.
// It is used by tests and by `go run` setups without a database.
package memstore

import (
	"context"
	"sort"
	"sync"

	"memoria/models"
	"memoria/store"
)

type data struct {
	users  map[string]models.User
	albums map[string]models.Album
	photos map[string]models.Photo
}

func (d *data) clone() *data {
	c := &data{
		users:  make(map[string]models.User, len(d.users)),
		albums: make(map[string]models.Album, len(d.albums)),
		photos: make(map[string]models.Photo, len(d.photos)),
	}
	for k, v := range d.users {
		c.users[k] = v
	}
	for k, v := range d.albums {
		c.albums[k] = v
	}
	for k, v := range d.photos {
		v.Tags = append(models.Tags(nil), v.Tags...)
		c.photos[k] = v
	}
	return c
}

// Store is safe for concurrent use. Units of work are serialised.
type Store struct {
	mu   *sync.Mutex
	data *data
	inTx bool
}

func New() *Store {
	return &Store{
		mu: &sync.Mutex{},
		data: &data{
			users:  map[string]models.User{},
			albums: map[string]models.Album{},
			photos: map[string]models.Photo{},
		},
	}
}

// Tx runs fn against a copy of the data and swaps the copy in when fn succeeds
func (s *Store) Tx(ctx context.Context, fn func(tx store.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tx := &Store{mu: s.mu, data: s.data.clone(), inTx: true}
	if err := fn(tx); err != nil {
		return err
	}
	s.data = tx.data
	return nil
}

func (s *Store) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) GetUser(ctx context.Context, id string) (models.User, error) {
	defer s.lock()()
	u, ok := s.data.users[id]
	if !ok {
		return models.User{}, store.ErrNotFound
	}
	return u, nil
}

func (s *Store) FindUserByExternalID(ctx context.Context, externalID string) (models.User, error) {
	defer s.lock()()
	for _, u := range s.data.users {
		if u.ExternalID == externalID {
			return u, nil
		}
	}
	return models.User{}, store.ErrNotFound
}

func (s *Store) FindUserByUsername(ctx context.Context, username string) (models.User, error) {
	defer s.lock()()
	for _, u := range s.data.users {
		if u.Username == username {
			return u, nil
		}
	}
	return models.User{}, store.ErrNotFound
}

func (s *Store) InsertUser(ctx context.Context, user *models.User) error {
	defer s.lock()()
	if _, ok := s.data.users[user.ID]; ok {
		return store.ErrDuplicate
	}
	for _, u := range s.data.users {
		if u.ExternalID == user.ExternalID || (user.Username != "" && u.Username == user.Username) {
			return store.ErrDuplicate
		}
	}
	s.data.users[user.ID] = *user
	return nil
}

func (s *Store) PatchUser(ctx context.Context, id string, patch store.UserPatch) error {
	defer s.lock()()
	u, ok := s.data.users[id]
	if !ok {
		return store.ErrNotFound
	}
	for _, other := range s.data.users {
		if other.ID != id && patch.Username != "" && other.Username == patch.Username {
			return store.ErrDuplicate
		}
	}
	u.Name = patch.Name
	u.Username = patch.Username
	u.Email = patch.Email
	u.ImageURL = patch.ImageURL
	u.UpdatedAt = patch.UpdatedAt
	s.data.users[id] = u
	return nil
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	defer s.lock()()
	if _, ok := s.data.users[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.data.users, id)
	return nil
}

func (s *Store) ListUsers(ctx context.Context, limit int, cursor string) (store.Page[models.User], error) {
	c, err := store.DecodeCursor(cursor)
	if err != nil {
		return store.Page[models.User]{}, err
	}
	defer s.lock()()
	var out []models.User
	for _, u := range s.data.users {
		if c.Before(u.CreatedAt, u.ID) {
			out = append(out, u)
		}
	}
	return store.NewPage(newestFirst(out, store.UserKey, limit), limit, store.UserKey), nil
}

func (s *Store) GetAlbum(ctx context.Context, id string) (models.Album, error) {
	defer s.lock()()
	a, ok := s.data.albums[id]
	if !ok {
		return models.Album{}, store.ErrNotFound
	}
	return a, nil
}

func (s *Store) InsertAlbum(ctx context.Context, album *models.Album) error {
	defer s.lock()()
	if _, ok := s.data.albums[album.ID]; ok {
		return store.ErrDuplicate
	}
	s.data.albums[album.ID] = *album
	return nil
}

func (s *Store) PatchAlbum(ctx context.Context, id string, patch store.AlbumPatch) error {
	defer s.lock()()
	a, ok := s.data.albums[id]
	if !ok {
		return store.ErrNotFound
	}
	if patch.Title != nil {
		a.Title = *patch.Title
	}
	if patch.Description != nil {
		a.Description = patch.Description
	}
	if patch.Category != nil {
		a.Category = patch.Category
	}
	if patch.IsPublic != nil {
		a.IsPublic = *patch.IsPublic
	}
	if patch.ClearCover {
		a.CoverPhotoID = nil
	} else if patch.CoverPhotoID != nil {
		a.CoverPhotoID = patch.CoverPhotoID
	}
	a.UpdatedAt = patch.UpdatedAt
	s.data.albums[id] = a
	return nil
}

func (s *Store) DeleteAlbum(ctx context.Context, id string) error {
	defer s.lock()()
	if _, ok := s.data.albums[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.data.albums, id)
	return nil
}

func (s *Store) ListAlbums(ctx context.Context, q store.AlbumQuery) (store.Page[models.Album], error) {
	c, err := store.DecodeCursor(q.Cursor)
	if err != nil {
		return store.Page[models.Album]{}, err
	}
	defer s.lock()()
	var out []models.Album
	for _, a := range s.data.albums {
		if q.UserID != "" && a.UserID != q.UserID {
			continue
		}
		if q.PublicOnly && !a.IsPublic {
			continue
		}
		if c.Before(a.CreatedAt, a.ID) {
			out = append(out, a)
		}
	}
	return store.NewPage(newestFirst(out, store.AlbumKey, q.Limit), q.Limit, store.AlbumKey), nil
}

func (s *Store) CountAlbums(ctx context.Context, userID string) (int64, error) {
	defer s.lock()()
	var n int64
	for _, a := range s.data.albums {
		if a.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (s *Store) GetPhoto(ctx context.Context, id string) (models.Photo, error) {
	defer s.lock()()
	p, ok := s.data.photos[id]
	if !ok {
		return models.Photo{}, store.ErrNotFound
	}
	return p, nil
}

func (s *Store) InsertPhoto(ctx context.Context, photo *models.Photo) error {
	defer s.lock()()
	if _, ok := s.data.photos[photo.ID]; ok {
		return store.ErrDuplicate
	}
	p := *photo
	p.Tags = append(models.Tags(nil), photo.Tags...)
	s.data.photos[p.ID] = p
	return nil
}

func (s *Store) PatchPhoto(ctx context.Context, id string, patch store.PhotoPatch) error {
	defer s.lock()()
	p, ok := s.data.photos[id]
	if !ok {
		return store.ErrNotFound
	}
	if patch.Title != nil {
		p.Title = *patch.Title
	}
	if patch.Description != nil {
		p.Description = patch.Description
	}
	if patch.Tags != nil {
		p.Tags = append(models.Tags(nil), (*patch.Tags)...)
	}
	p.UpdatedAt = patch.UpdatedAt
	s.data.photos[id] = p
	return nil
}

func (s *Store) DeletePhoto(ctx context.Context, id string) error {
	defer s.lock()()
	if _, ok := s.data.photos[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.data.photos, id)
	return nil
}

func (s *Store) ListPhotos(ctx context.Context, q store.PhotoQuery) (store.Page[models.Photo], error) {
	c, err := store.DecodeCursor(q.Cursor)
	if err != nil {
		return store.Page[models.Photo]{}, err
	}
	var albums map[string]bool
	if q.AlbumIDs != nil {
		albums = make(map[string]bool, len(q.AlbumIDs))
		for _, id := range q.AlbumIDs {
			albums[id] = true
		}
	}
	defer s.lock()()
	var out []models.Photo
	for _, p := range s.data.photos {
		switch {
		case q.AlbumID != "" && p.AlbumID != q.AlbumID,
			albums != nil && !albums[p.AlbumID],
			q.UserID != "" && p.UserID != q.UserID,
			q.ExcludeID != "" && p.ID == q.ExcludeID:
			continue
		}
		if q.OldestFirst || c.Before(p.CreatedAt, p.ID) {
			out = append(out, p)
		}
	}
	if q.OldestFirst {
		sortBy(out, store.PhotoKey, false)
		if q.Limit > 0 && len(out) > q.Limit+1 {
			out = out[:q.Limit+1]
		}
	} else {
		out = newestFirst(out, store.PhotoKey, q.Limit)
	}
	return store.NewPage(out, q.Limit, store.PhotoKey), nil
}

func (s *Store) CountPhotos(ctx context.Context, albumID string) (int64, error) {
	defer s.lock()()
	var n int64
	for _, p := range s.data.photos {
		if p.AlbumID == albumID {
			n++
		}
	}
	return n, nil
}

func (s *Store) CountStorageRefs(ctx context.Context, key string) (int64, error) {
	defer s.lock()()
	var n int64
	for _, p := range s.data.photos {
		if p.StorageID == key || p.ThumbnailStorageID == key {
			n++
		}
	}
	return n, nil
}

// newestFirst sorts items and keeps at most limit+1 of them
func newestFirst[T any](items []T, key func(T) (int64, string), limit int) []T {
	sortBy(items, key, true)
	if limit > 0 && len(items) > limit+1 {
		items = items[:limit+1]
	}
	return items
}

func sortBy[T any](items []T, key func(T) (int64, string), desc bool) {
	sort.Slice(items, func(i, j int) bool {
		ci, ii := key(items[i])
		cj, ij := key(items[j])
		if ci != cj {
			return (ci > cj) == desc
		}
		return (ii > ij) == desc
	})
}

var _ store.Store = (*Store)(nil)
