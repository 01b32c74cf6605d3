package gallery

import (
	"context"
	"errors"
	"strings"

	"memoria/models"
	"memoria/store"
)

// PhotoView is a photo with fetchable URLs for its image and thumbnail
type PhotoView struct {
	models.Photo
	ImageURL     string `json:"image_url"`
	ThumbnailURL string `json:"thumbnail_url"`
}

func isStoreNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}

func visible(album models.Album, viewerID string) bool {
	return album.IsPublic || (viewerID != "" && album.UserID == viewerID)
}

func (s *Service) view(ctx context.Context, photo models.Photo) (PhotoView, error) {
	v := PhotoView{Photo: photo}
	if s.urls == nil {
		return v, nil
	}
	var err error
	if v.ImageURL, err = s.urls.URL(ctx, photo.StorageID); err != nil {
		return v, err
	}
	if v.ThumbnailURL, err = s.urls.URL(ctx, photo.ThumbnailStorageID); err != nil {
		return v, err
	}
	return v, nil
}

func (s *Service) views(ctx context.Context, photos []models.Photo) ([]PhotoView, error) {
	out := make([]PhotoView, 0, len(photos))
	for _, p := range photos {
		v, err := s.view(ctx, p)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *Service) viewPage(ctx context.Context, page store.Page[models.Photo]) (store.Page[PhotoView], error) {
	items, err := s.views(ctx, page.Items)
	if err != nil {
		return store.Page[PhotoView]{}, err
	}
	return store.Page[PhotoView]{Items: items, ContinueCursor: page.ContinueCursor, IsDone: page.IsDone}, nil
}

func emptyPage[T any]() store.Page[T] {
	return store.Page[T]{Items: []T{}, IsDone: true}
}

// AlbumByID returns an album. Private albums of other users are reported missing.
func (s *Service) AlbumByID(ctx context.Context, id string) (models.Album, error) {
	album, err := s.st.GetAlbum(ctx, id)
	if err != nil {
		return models.Album{}, storeErr(err, "album", id)
	}
	if !visible(album, viewerID(ctx)) {
		return models.Album{}, notFound("album", id)
	}
	return album, nil
}

// AlbumsByUser lists an owner's albums. Private ones are included only when
// asked for by the owner.
func (s *Service) AlbumsByUser(ctx context.Context, ownerID string, includePrivate bool, limit int, cursor string) (store.Page[models.Album], error) {
	q := store.AlbumQuery{
		UserID:     ownerID,
		PublicOnly: !includePrivate || viewerID(ctx) != ownerID,
		Limit:      clampLimit(limit),
		Cursor:     cursor,
	}
	page, err := s.st.ListAlbums(ctx, q)
	return page, storeErr(err, "album", "")
}

func (s *Service) PublicAlbums(ctx context.Context, limit int, cursor string) (store.Page[models.Album], error) {
	page, err := s.st.ListAlbums(ctx, store.AlbumQuery{PublicOnly: true, Limit: clampLimit(limit), Cursor: cursor})
	return page, storeErr(err, "album", "")
}

func (s *Service) AlbumCountByUser(ctx context.Context, ownerID string) (int64, error) {
	return s.st.CountAlbums(ctx, ownerID)
}

func contains(field, needle string) bool {
	return strings.Contains(strings.ToLower(field), needle)
}

func containsPtr(field *string, needle string) bool {
	return field != nil && contains(*field, needle)
}

// SearchAlbums matches public albums by title or description
func (s *Service) SearchAlbums(ctx context.Context, text string, limit int) ([]models.Album, error) {
	needle := strings.ToLower(strings.TrimSpace(text))
	if needle == "" {
		return []models.Album{}, nil
	}
	limit = clampLimit(limit)
	public, err := s.st.ListAlbums(ctx, store.AlbumQuery{PublicOnly: true})
	if err != nil {
		return nil, err
	}
	out := []models.Album{}
	for _, a := range public.Items {
		if contains(a.Title, needle) || containsPtr(a.Description, needle) {
			out = append(out, a)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (s *Service) PhotoByID(ctx context.Context, id string) (PhotoView, error) {
	photo, err := s.st.GetPhoto(ctx, id)
	if err != nil {
		return PhotoView{}, storeErr(err, "photo", id)
	}
	if viewer := viewerID(ctx); photo.UserID != viewer {
		album, err := s.st.GetAlbum(ctx, photo.AlbumID)
		if err != nil || !visible(album, viewer) {
			return PhotoView{}, notFound("photo", id)
		}
	}
	return s.view(ctx, photo)
}

// PhotosByAlbum pages through an album. Missing or hidden albums give an empty page.
func (s *Service) PhotosByAlbum(ctx context.Context, albumID string, limit int, cursor string) (store.Page[PhotoView], error) {
	album, err := s.st.GetAlbum(ctx, albumID)
	if isStoreNotFound(err) {
		return emptyPage[PhotoView](), nil
	}
	if err != nil {
		return store.Page[PhotoView]{}, err
	}
	if !visible(album, viewerID(ctx)) {
		return emptyPage[PhotoView](), nil
	}
	page, err := s.st.ListPhotos(ctx, store.PhotoQuery{AlbumID: album.ID, Limit: clampLimit(limit), Cursor: cursor})
	if err != nil {
		return store.Page[PhotoView]{}, storeErr(err, "photo", "")
	}
	return s.viewPage(ctx, page)
}

// PhotosByUser pages through an owner's photos. Other viewers only see
// photos from the owner's public albums.
func (s *Service) PhotosByUser(ctx context.Context, ownerID string, limit int, cursor string) (store.Page[PhotoView], error) {
	q := store.PhotoQuery{UserID: ownerID, Limit: clampLimit(limit), Cursor: cursor}
	if viewerID(ctx) != ownerID {
		ids, err := s.publicAlbumIDs(ctx, ownerID)
		if err != nil {
			return store.Page[PhotoView]{}, err
		}
		q.AlbumIDs = ids
	}
	page, err := s.st.ListPhotos(ctx, q)
	if err != nil {
		return store.Page[PhotoView]{}, storeErr(err, "photo", "")
	}
	return s.viewPage(ctx, page)
}

func (s *Service) publicAlbumIDs(ctx context.Context, ownerID string) ([]string, error) {
	albums, err := s.st.ListAlbums(ctx, store.AlbumQuery{UserID: ownerID, PublicOnly: true})
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(albums.Items))
	for _, a := range albums.Items {
		ids = append(ids, a.ID)
	}
	return ids, nil
}

// searchable returns the photos of public albums plus the viewer's own, newest first
func (s *Service) searchable(ctx context.Context) ([]models.Photo, error) {
	ids, err := s.publicAlbumIDs(ctx, "")
	if err != nil {
		return nil, err
	}
	public, err := s.st.ListPhotos(ctx, store.PhotoQuery{AlbumIDs: ids})
	if err != nil {
		return nil, err
	}
	viewer := viewerID(ctx)
	if viewer == "" {
		return public.Items, nil
	}
	own, err := s.st.ListPhotos(ctx, store.PhotoQuery{UserID: viewer})
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(public.Items))
	out := public.Items
	for _, p := range out {
		seen[p.ID] = true
	}
	for _, p := range own.Items {
		if !seen[p.ID] {
			out = append(out, p)
		}
	}
	return out, nil
}

// SearchPhotos matches visible photos by title, description or tag
func (s *Service) SearchPhotos(ctx context.Context, text string, limit int) ([]PhotoView, error) {
	needle := strings.ToLower(strings.TrimSpace(text))
	if needle == "" {
		return []PhotoView{}, nil
	}
	limit = clampLimit(limit)
	photos, err := s.searchable(ctx)
	if err != nil {
		return nil, err
	}
	var hits []models.Photo
	for _, p := range photos {
		if matchPhoto(p, needle) {
			hits = append(hits, p)
			if len(hits) == limit {
				break
			}
		}
	}
	return s.views(ctx, hits)
}

func matchPhoto(p models.Photo, needle string) bool {
	if contains(p.Title, needle) || containsPtr(p.Description, needle) {
		return true
	}
	for _, tag := range p.Tags {
		if contains(tag, needle) {
			return true
		}
	}
	return false
}

// ExplorePhotos returns a random selection of photos from public albums
func (s *Service) ExplorePhotos(ctx context.Context, limit int) ([]PhotoView, error) {
	ids, err := s.publicAlbumIDs(ctx, "")
	if err != nil {
		return nil, err
	}
	all, err := s.st.ListPhotos(ctx, store.PhotoQuery{AlbumIDs: ids})
	if err != nil {
		return nil, err
	}
	photos := all.Items
	s.shuffle(len(photos), func(i, j int) { photos[i], photos[j] = photos[j], photos[i] })
	if limit = clampLimit(limit); len(photos) > limit {
		photos = photos[:limit]
	}
	return s.views(ctx, photos)
}
