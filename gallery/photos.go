package gallery

import (
	"context"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"memoria/models"
	"memoria/store"
)

var tagRules = validation.Each(validation.Required, validation.RuneLength(1, 50))

type NewPhoto struct {
	AlbumID            string   `json:"album_id"`
	Title              string   `json:"title"`
	StorageID          string   `json:"storage_id"`
	ThumbnailStorageID string   `json:"thumbnail_storage_id"`
	Description        *string  `json:"description"`
	Tags               []string `json:"tags"`
}

func (p *NewPhoto) Validate() error {
	p.Title = strings.TrimSpace(p.Title)
	return validation.ValidateStruct(p,
		validation.Field(&p.AlbumID, validation.Required),
		validation.Field(&p.Title, validation.Required.Error("title is required"), validation.RuneLength(1, 300)),
		validation.Field(&p.StorageID, validation.Required),
		validation.Field(&p.ThumbnailStorageID, validation.Required),
		validation.Field(&p.Tags, tagRules),
	)
}

type PhotoPatch struct {
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
	Tags        *[]string `json:"tags"`
}

func (p *PhotoPatch) Validate() error {
	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		p.Title = &title
	}
	errs := validation.Errors{
		"title": validation.Validate(p.Title, validation.NilOrNotEmpty.Error("title cannot be blank"), validation.RuneLength(0, 300)),
	}
	if p.Tags != nil {
		errs["tags"] = validation.Validate(*p.Tags, tagRules)
	}
	return errs.Filter()
}

// AddPhoto records an uploaded photo in an album owned by the caller.
// The first photo of an album without a cover becomes its cover.
func (s *Service) AddPhoto(ctx context.Context, in NewPhoto) (models.Photo, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return models.Photo{}, err
	}
	if err = in.Validate(); err != nil {
		return models.Photo{}, invalid(err)
	}
	var photo models.Photo
	err = s.st.Tx(ctx, func(tx store.Store) error {
		album, err := tx.GetAlbum(ctx, in.AlbumID)
		if err != nil {
			return storeErr(err, "album", in.AlbumID)
		}
		if err = guard(actor, album.UserID); err != nil {
			return err
		}
		now := s.millis()
		photo = models.Photo{
			ID:                 uuid.NewString(),
			AlbumID:            album.ID,
			UserID:             album.UserID,
			Title:              in.Title,
			StorageID:          in.StorageID,
			ThumbnailStorageID: in.ThumbnailStorageID,
			Description:        in.Description,
			Tags:               models.Tags(in.Tags),
			CreatedAt:          now,
			UpdatedAt:          now,
		}
		if err = tx.InsertPhoto(ctx, &photo); err != nil {
			return err
		}
		if album.CoverPhotoID == nil {
			return tx.PatchAlbum(ctx, album.ID, store.AlbumPatch{CoverPhotoID: &photo.ID, UpdatedAt: now})
		}
		return nil
	})
	return photo, err
}

func (s *Service) UpdatePhoto(ctx context.Context, photoID string, in PhotoPatch) (models.Photo, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return models.Photo{}, err
	}
	if err = in.Validate(); err != nil {
		return models.Photo{}, invalid(err)
	}
	var updated models.Photo
	err = s.st.Tx(ctx, func(tx store.Store) error {
		photo, err := tx.GetPhoto(ctx, photoID)
		if err != nil {
			return storeErr(err, "photo", photoID)
		}
		if err = guard(actor, photo.UserID); err != nil {
			return err
		}
		patch := store.PhotoPatch{Title: in.Title, Description: in.Description, UpdatedAt: s.millis()}
		if in.Tags != nil {
			tags := models.Tags(*in.Tags)
			patch.Tags = &tags
		}
		if err = tx.PatchPhoto(ctx, photo.ID, patch); err != nil {
			return storeErr(err, "photo", photoID)
		}
		updated, err = tx.GetPhoto(ctx, photo.ID)
		return storeErr(err, "photo", photoID)
	})
	return updated, err
}

// DeletePhoto removes a photo. When it was the album cover, the oldest
// remaining photo takes its place, or the cover is cleared.
func (s *Service) DeletePhoto(ctx context.Context, photoID string) error {
	actor, err := requireActor(ctx)
	if err != nil {
		return err
	}
	var keys []string
	err = s.st.Tx(ctx, func(tx store.Store) error {
		photo, err := tx.GetPhoto(ctx, photoID)
		if err != nil {
			return storeErr(err, "photo", photoID)
		}
		if err = guard(actor, photo.UserID); err != nil {
			return err
		}
		album, err := tx.GetAlbum(ctx, photo.AlbumID)
		switch {
		case err == nil:
			if album.HasCover(photo.ID) {
				if err = replaceCover(ctx, tx, album.ID, photo.ID, s.millis()); err != nil {
					return err
				}
			}
		case !isStoreNotFound(err):
			return err
		}
		if err = tx.DeletePhoto(ctx, photo.ID); err != nil {
			return storeErr(err, "photo", photoID)
		}
		keys = photo.StorageKeys()
		return nil
	})
	if err != nil {
		return err
	}
	s.reap(keys)
	return nil
}

func replaceCover(ctx context.Context, tx store.Store, albumID, removedID string, now int64) error {
	next, err := tx.ListPhotos(ctx, store.PhotoQuery{AlbumID: albumID, ExcludeID: removedID, OldestFirst: true, Limit: 1})
	if err != nil {
		return err
	}
	patch := store.AlbumPatch{UpdatedAt: now, ClearCover: true}
	if len(next.Items) > 0 {
		patch = store.AlbumPatch{UpdatedAt: now, CoverPhotoID: &next.Items[0].ID}
	}
	return tx.PatchAlbum(ctx, albumID, patch)
}

// PhotoCountByAlbum counts the photos of an album the caller can see.
// Hidden and missing albums count zero.
func (s *Service) PhotoCountByAlbum(ctx context.Context, albumID string) (int64, error) {
	album, err := s.st.GetAlbum(ctx, albumID)
	if err != nil {
		if isStoreNotFound(err) {
			return 0, nil
		}
		return 0, err
	}
	if !visible(album, viewerID(ctx)) {
		return 0, nil
	}
	return s.st.CountPhotos(ctx, album.ID)
}
