package models

// Like is migrated but no operation reads or writes it yet
type Like struct {
	ID        string `gorm:"primaryKey;type:varchar(36)" bson:"_id"`
	UserID    string `gorm:"type:varchar(36);not null;index:likes_by_user;index:likes_by_user_and_photo,unique,priority:1" bson:"user_id"`
	PhotoID   string `gorm:"type:varchar(36);not null;index:likes_by_photo;index:likes_by_user_and_photo,unique,priority:2" bson:"photo_id"`
	CreatedAt int64  `gorm:"autoCreateTime:false" bson:"created_at"`
}
