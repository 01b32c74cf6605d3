// Package store defines the persistence port used by the gallery service.
//
// Implementations live in the sub-packages: gormstore (MySQL/SQLite),
// mongostore (MongoDB) and memstore (in-memory, used by tests).
package store

import (
	"context"
	"errors"

	"memoria/models"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

// AlbumPatch holds the album fields to change. Nil pointers are left untouched.
type AlbumPatch struct {
	Title        *string
	Description  *string
	Category     *string
	IsPublic     *bool
	CoverPhotoID *string
	ClearCover   bool // unsets the cover, wins over CoverPhotoID
	UpdatedAt    int64
}

type PhotoPatch struct {
	Title       *string
	Description *string
	Tags        *models.Tags
	UpdatedAt   int64
}

// UserPatch refreshes the profile of an existing user
type UserPatch struct {
	Name      string
	Username  string
	Email     string
	ImageURL  *string
	UpdatedAt int64
}

// AlbumQuery selects albums newest first. A Limit <= 0 returns every match.
type AlbumQuery struct {
	UserID     string
	PublicOnly bool
	Limit      int
	Cursor     string
}

// PhotoQuery selects photos newest first, or oldest first when OldestFirst is set.
// Cursors are only honoured for the newest first order.
type PhotoQuery struct {
	AlbumID     string
	AlbumIDs    []string // restricts to these albums when not nil
	UserID      string
	ExcludeID   string
	OldestFirst bool
	Limit       int
	Cursor      string
}

type Page[T any] struct {
	Items          []T    `json:"items"`
	ContinueCursor string `json:"continue_cursor"`
	IsDone         bool   `json:"is_done"`
}

// Store is a set of single-record operations plus Tx for units of work.
// Every method of a Store passed to a Tx callback runs inside that unit of work.
type Store interface {
	Tx(ctx context.Context, fn func(tx Store) error) error

	GetUser(ctx context.Context, id string) (models.User, error)
	FindUserByExternalID(ctx context.Context, externalID string) (models.User, error)
	FindUserByUsername(ctx context.Context, username string) (models.User, error)
	InsertUser(ctx context.Context, user *models.User) error
	PatchUser(ctx context.Context, id string, patch UserPatch) error
	DeleteUser(ctx context.Context, id string) error
	ListUsers(ctx context.Context, limit int, cursor string) (Page[models.User], error)

	GetAlbum(ctx context.Context, id string) (models.Album, error)
	InsertAlbum(ctx context.Context, album *models.Album) error
	PatchAlbum(ctx context.Context, id string, patch AlbumPatch) error
	DeleteAlbum(ctx context.Context, id string) error
	ListAlbums(ctx context.Context, q AlbumQuery) (Page[models.Album], error)
	CountAlbums(ctx context.Context, userID string) (int64, error)

	GetPhoto(ctx context.Context, id string) (models.Photo, error)
	InsertPhoto(ctx context.Context, photo *models.Photo) error
	PatchPhoto(ctx context.Context, id string, patch PhotoPatch) error
	DeletePhoto(ctx context.Context, id string) error
	ListPhotos(ctx context.Context, q PhotoQuery) (Page[models.Photo], error)
	CountPhotos(ctx context.Context, albumID string) (int64, error)
	// CountStorageRefs counts photos that use key as image or thumbnail
	CountStorageRefs(ctx context.Context, key string) (int64, error)
}
