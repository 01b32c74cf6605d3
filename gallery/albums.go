package gallery

import (
	"context"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"memoria/models"
	"memoria/store"
)

type NewAlbum struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
	IsPublic    bool    `json:"is_public"`
}

func (a *NewAlbum) Validate() error {
	a.Title = strings.TrimSpace(a.Title)
	return validation.ValidateStruct(a,
		validation.Field(&a.Title, validation.Required.Error("title is required"), validation.RuneLength(1, 300)),
		validation.Field(&a.Category, validation.NilOrNotEmpty, validation.RuneLength(0, 100)),
	)
}

// AlbumPatch changes only the fields that are set.
// An empty CoverPhotoID removes the cover.
type AlbumPatch struct {
	Title        *string `json:"title"`
	Description  *string `json:"description"`
	Category     *string `json:"category"`
	IsPublic     *bool   `json:"is_public"`
	CoverPhotoID *string `json:"cover_photo_id"`
}

func (p *AlbumPatch) Validate() error {
	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		p.Title = &title
	}
	return validation.ValidateStruct(p,
		validation.Field(&p.Title, validation.NilOrNotEmpty.Error("title cannot be blank"), validation.RuneLength(0, 300)),
		validation.Field(&p.Category, validation.RuneLength(0, 100)),
	)
}

func (s *Service) CreateAlbum(ctx context.Context, in NewAlbum) (models.Album, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return models.Album{}, err
	}
	if err = in.Validate(); err != nil {
		return models.Album{}, invalid(err)
	}
	now := s.millis()
	album := models.Album{
		ID:          uuid.NewString(),
		UserID:      actor.UserID,
		Title:       in.Title,
		Description: in.Description,
		Category:    in.Category,
		IsPublic:    in.IsPublic,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err = s.st.InsertAlbum(ctx, &album); err != nil {
		return models.Album{}, err
	}
	return album, nil
}

func (s *Service) UpdateAlbum(ctx context.Context, albumID string, in AlbumPatch) (models.Album, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return models.Album{}, err
	}
	if err = in.Validate(); err != nil {
		return models.Album{}, invalid(err)
	}
	var updated models.Album
	err = s.st.Tx(ctx, func(tx store.Store) error {
		album, err := tx.GetAlbum(ctx, albumID)
		if err != nil {
			return storeErr(err, "album", albumID)
		}
		if err = guard(actor, album.UserID); err != nil {
			return err
		}
		patch := store.AlbumPatch{
			Title:       in.Title,
			Description: in.Description,
			Category:    in.Category,
			IsPublic:    in.IsPublic,
			UpdatedAt:   s.millis(),
		}
		if in.CoverPhotoID != nil {
			if *in.CoverPhotoID == "" {
				patch.ClearCover = true
			} else {
				photo, err := tx.GetPhoto(ctx, *in.CoverPhotoID)
				if err != nil && !isStoreNotFound(err) {
					return err
				}
				if err != nil || photo.AlbumID != album.ID {
					return invalid(validation.NewError("cover_photo", "cover photo must belong to the album"))
				}
				patch.CoverPhotoID = in.CoverPhotoID
			}
		}
		if err = tx.PatchAlbum(ctx, album.ID, patch); err != nil {
			return storeErr(err, "album", albumID)
		}
		updated, err = tx.GetAlbum(ctx, album.ID)
		return storeErr(err, "album", albumID)
	})
	return updated, err
}

func (s *Service) DeleteAlbum(ctx context.Context, albumID string) error {
	actor, err := requireActor(ctx)
	if err != nil {
		return err
	}
	var keys []string
	err = s.st.Tx(ctx, func(tx store.Store) error {
		album, err := tx.GetAlbum(ctx, albumID)
		if err != nil {
			return storeErr(err, "album", albumID)
		}
		if err = guard(actor, album.UserID); err != nil {
			return err
		}
		keys, err = deleteAlbumTx(ctx, tx, album.ID)
		return err
	})
	if err != nil {
		return err
	}
	s.reap(keys)
	return nil
}

// deleteAlbumTx removes every photo of the album and then the album.
// It returns the storage keys the removed photos pointed at.
func deleteAlbumTx(ctx context.Context, tx store.Store, albumID string) ([]string, error) {
	photos, err := tx.ListPhotos(ctx, store.PhotoQuery{AlbumID: albumID})
	if err != nil {
		return nil, err
	}
	var keys []string
	for _, photo := range photos.Items {
		if err = tx.DeletePhoto(ctx, photo.ID); err != nil {
			return nil, storeErr(err, "photo", photo.ID)
		}
		keys = append(keys, photo.StorageKeys()...)
	}
	if err = tx.DeleteAlbum(ctx, albumID); err != nil {
		return nil, storeErr(err, "album", albumID)
	}
	return keys, nil
}
