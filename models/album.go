package models

type Album struct {
	ID           string  `gorm:"primaryKey;type:varchar(36)" bson:"_id" json:"id"`
	UserID       string  `gorm:"type:varchar(36);not null;index:albums_by_user;index:albums_by_user_and_created,priority:1" bson:"user_id" json:"user_id"`
	Title        string  `gorm:"type:varchar(300);not null" bson:"title" json:"title"`
	Description  *string `gorm:"type:text" bson:"description,omitempty" json:"description,omitempty"`
	Category     *string `gorm:"type:varchar(100)" bson:"category,omitempty" json:"category,omitempty"`
	CoverPhotoID *string `gorm:"type:varchar(36)" bson:"cover_photo_id,omitempty" json:"cover_photo_id,omitempty"`
	IsPublic     bool    `gorm:"not null;default:false;index:albums_by_visibility" bson:"is_public" json:"is_public"`
	CreatedAt    int64   `gorm:"autoCreateTime:false;index:albums_by_user_and_created,priority:2" bson:"created_at" json:"created_at"`
	UpdatedAt    int64   `gorm:"autoUpdateTime:false" bson:"updated_at" json:"updated_at"`
}

// HasCover reports whether photoID is the current cover of the album
func (a Album) HasCover(photoID string) bool {
	return a.CoverPhotoID != nil && *a.CoverPhotoID == photoID
}
