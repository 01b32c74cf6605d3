package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

type Photo struct {
	ID                 string  `gorm:"primaryKey;type:varchar(36)" bson:"_id" json:"id"`
	AlbumID            string  `gorm:"type:varchar(36);not null;index:photos_by_album;index:photos_by_album_and_created,priority:1" bson:"album_id" json:"album_id"`
	UserID             string  `gorm:"type:varchar(36);not null;index:photos_by_user" bson:"user_id" json:"user_id"`
	Title              string  `gorm:"type:varchar(300);not null" bson:"title" json:"title"`
	StorageID          string  `gorm:"type:varchar(300);not null;index:photos_by_storage" bson:"storage_id" json:"storage_id"`
	ThumbnailStorageID string  `gorm:"type:varchar(300);not null;index:photos_by_thumbnail" bson:"thumbnail_storage_id" json:"thumbnail_storage_id"`
	Description        *string `gorm:"type:text" bson:"description,omitempty" json:"description,omitempty"`
	Tags               Tags    `gorm:"type:text" bson:"tags,omitempty" json:"tags,omitempty"`
	CreatedAt          int64   `gorm:"autoCreateTime:false;index:photos_by_created;index:photos_by_album_and_created,priority:2" bson:"created_at" json:"created_at"`
	UpdatedAt          int64   `gorm:"autoUpdateTime:false" bson:"updated_at" json:"updated_at"`
}

// StorageKeys returns the distinct blob keys the photo points at
func (p *Photo) StorageKeys() []string {
	if p.ThumbnailStorageID == "" || p.ThumbnailStorageID == p.StorageID {
		return []string{p.StorageID}
	}
	return []string{p.StorageID, p.ThumbnailStorageID}
}

// Tags is stored as a JSON array in SQL databases and as a native array in Mongo
type Tags []string

func (t Tags) Value() (driver.Value, error) {
	if t == nil {
		return nil, nil
	}
	b, err := json.Marshal([]string(t))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (t *Tags) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*t = nil
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return errors.New("tags: unsupported column type")
	}
	if len(raw) == 0 {
		*t = nil
		return nil
	}
	return json.Unmarshal(raw, (*[]string)(t))
}
