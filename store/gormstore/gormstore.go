// Package gormstore implements store.Store on top of GORM (MySQL or SQLite)
package gormstore

import (
	"context"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"

	"memoria/models"
	"memoria/store"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Tx(ctx context.Context, fn func(tx store.Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

func (s *Store) with(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

// Patch methods do not report missing rows: MySQL counts only changed rows.

// translate maps driver errors onto the store sentinels
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return store.ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return store.ErrDuplicate
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == 1062 {
		return store.ErrDuplicate
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return store.ErrDuplicate
	}
	return err
}

func affected(res *gorm.DB) error {
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// keyset restricts q to rows strictly after the cursor, newest first
func keyset(q *gorm.DB, table, cursor string) (*gorm.DB, error) {
	c, err := store.DecodeCursor(cursor)
	if err != nil {
		return nil, err
	}
	if c != nil {
		q = q.Where(table+".created_at < ? OR ("+table+".created_at = ? AND "+table+".id < ?)", c.CreatedAt, c.CreatedAt, c.ID)
	}
	return q.Order(table + ".created_at DESC").Order(table + ".id DESC"), nil
}

func limited(q *gorm.DB, limit int) *gorm.DB {
	if limit > 0 {
		return q.Limit(limit + 1)
	}
	return q
}

func (s *Store) GetUser(ctx context.Context, id string) (user models.User, err error) {
	err = translate(s.with(ctx).Where("id = ?", id).Take(&user).Error)
	return
}

func (s *Store) FindUserByExternalID(ctx context.Context, externalID string) (user models.User, err error) {
	err = translate(s.with(ctx).Where("external_id = ?", externalID).Take(&user).Error)
	return
}

func (s *Store) FindUserByUsername(ctx context.Context, username string) (user models.User, err error) {
	err = translate(s.with(ctx).Where("username = ?", username).Take(&user).Error)
	return
}

func (s *Store) InsertUser(ctx context.Context, user *models.User) error {
	return translate(s.with(ctx).Create(user).Error)
}

func (s *Store) PatchUser(ctx context.Context, id string, patch store.UserPatch) error {
	return translate(s.with(ctx).Model(&models.User{}).Where("id = ?", id).Updates(map[string]any{
		"name":       patch.Name,
		"username":   patch.Username,
		"email":      patch.Email,
		"image_url":  patch.ImageURL,
		"updated_at": patch.UpdatedAt,
	}).Error)
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	return affected(s.with(ctx).Where("id = ?", id).Delete(&models.User{}))
}

func (s *Store) ListUsers(ctx context.Context, limit int, cursor string) (store.Page[models.User], error) {
	q, err := keyset(s.with(ctx).Model(&models.User{}), "users", cursor)
	if err != nil {
		return store.Page[models.User]{}, err
	}
	var users []models.User
	if err = limited(q, limit).Find(&users).Error; err != nil {
		return store.Page[models.User]{}, translate(err)
	}
	return store.NewPage(users, limit, store.UserKey), nil
}

func (s *Store) GetAlbum(ctx context.Context, id string) (album models.Album, err error) {
	err = translate(s.with(ctx).Where("id = ?", id).Take(&album).Error)
	return
}

func (s *Store) InsertAlbum(ctx context.Context, album *models.Album) error {
	return translate(s.with(ctx).Create(album).Error)
}

func (s *Store) PatchAlbum(ctx context.Context, id string, patch store.AlbumPatch) error {
	fields := map[string]any{"updated_at": patch.UpdatedAt}
	if patch.Title != nil {
		fields["title"] = *patch.Title
	}
	if patch.Description != nil {
		fields["description"] = *patch.Description
	}
	if patch.Category != nil {
		fields["category"] = *patch.Category
	}
	if patch.IsPublic != nil {
		fields["is_public"] = *patch.IsPublic
	}
	if patch.ClearCover {
		fields["cover_photo_id"] = nil
	} else if patch.CoverPhotoID != nil {
		fields["cover_photo_id"] = *patch.CoverPhotoID
	}
	return translate(s.with(ctx).Model(&models.Album{}).Where("id = ?", id).Updates(fields).Error)
}

func (s *Store) DeleteAlbum(ctx context.Context, id string) error {
	return affected(s.with(ctx).Where("id = ?", id).Delete(&models.Album{}))
}

func (s *Store) ListAlbums(ctx context.Context, q store.AlbumQuery) (store.Page[models.Album], error) {
	db := s.with(ctx).Model(&models.Album{})
	if q.UserID != "" {
		db = db.Where("user_id = ?", q.UserID)
	}
	if q.PublicOnly {
		db = db.Where("is_public = ?", true)
	}
	db, err := keyset(db, "albums", q.Cursor)
	if err != nil {
		return store.Page[models.Album]{}, err
	}
	var albums []models.Album
	if err = limited(db, q.Limit).Find(&albums).Error; err != nil {
		return store.Page[models.Album]{}, translate(err)
	}
	return store.NewPage(albums, q.Limit, store.AlbumKey), nil
}

func (s *Store) CountAlbums(ctx context.Context, userID string) (n int64, err error) {
	err = translate(s.with(ctx).Model(&models.Album{}).Where("user_id = ?", userID).Count(&n).Error)
	return
}

func (s *Store) GetPhoto(ctx context.Context, id string) (photo models.Photo, err error) {
	err = translate(s.with(ctx).Where("id = ?", id).Take(&photo).Error)
	return
}

func (s *Store) InsertPhoto(ctx context.Context, photo *models.Photo) error {
	return translate(s.with(ctx).Create(photo).Error)
}

func (s *Store) PatchPhoto(ctx context.Context, id string, patch store.PhotoPatch) error {
	fields := map[string]any{"updated_at": patch.UpdatedAt}
	if patch.Title != nil {
		fields["title"] = *patch.Title
	}
	if patch.Description != nil {
		fields["description"] = *patch.Description
	}
	if patch.Tags != nil {
		fields["tags"] = *patch.Tags
	}
	return translate(s.with(ctx).Model(&models.Photo{}).Where("id = ?", id).Updates(fields).Error)
}

func (s *Store) DeletePhoto(ctx context.Context, id string) error {
	return affected(s.with(ctx).Where("id = ?", id).Delete(&models.Photo{}))
}

func (s *Store) ListPhotos(ctx context.Context, q store.PhotoQuery) (store.Page[models.Photo], error) {
	db := s.with(ctx).Model(&models.Photo{})
	if q.AlbumID != "" {
		db = db.Where("album_id = ?", q.AlbumID)
	}
	if q.AlbumIDs != nil {
		if len(q.AlbumIDs) == 0 {
			return store.NewPage[models.Photo](nil, q.Limit, store.PhotoKey), nil
		}
		db = db.Where("album_id IN ?", q.AlbumIDs)
	}
	if q.UserID != "" {
		db = db.Where("user_id = ?", q.UserID)
	}
	if q.ExcludeID != "" {
		db = db.Where("id <> ?", q.ExcludeID)
	}
	var err error
	if q.OldestFirst {
		db = db.Order("photos.created_at ASC").Order("photos.id ASC")
	} else if db, err = keyset(db, "photos", q.Cursor); err != nil {
		return store.Page[models.Photo]{}, err
	}
	var photos []models.Photo
	if err = limited(db, q.Limit).Find(&photos).Error; err != nil {
		return store.Page[models.Photo]{}, translate(err)
	}
	return store.NewPage(photos, q.Limit, store.PhotoKey), nil
}

func (s *Store) CountPhotos(ctx context.Context, albumID string) (n int64, err error) {
	err = translate(s.with(ctx).Model(&models.Photo{}).Where("album_id = ?", albumID).Count(&n).Error)
	return
}

func (s *Store) CountStorageRefs(ctx context.Context, key string) (n int64, err error) {
	err = translate(s.with(ctx).Model(&models.Photo{}).Where("storage_id = ? OR thumbnail_storage_id = ?", key, key).Count(&n).Error)
	return
}

var _ store.Store = (*Store)(nil)
