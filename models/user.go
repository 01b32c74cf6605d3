package models

type User struct {
	ID         string  `gorm:"primaryKey;type:varchar(36)" bson:"_id" json:"id"`
	ExternalID string  `gorm:"type:varchar(200);not null;index:users_by_external_id,unique" bson:"external_id" json:"-"`
	Name       string  `gorm:"type:varchar(100)" bson:"name" json:"name"`
	Username   string  `gorm:"type:varchar(100);index:users_by_username,unique" bson:"username" json:"username"`
	Email      string  `gorm:"type:varchar(150);index:users_by_email" bson:"email" json:"email"`
	ImageURL   *string `gorm:"type:varchar(2000)" bson:"image_url,omitempty" json:"image_url,omitempty"`
	CreatedAt  int64   `gorm:"autoCreateTime:false" bson:"created_at" json:"created_at"`
	UpdatedAt  int64   `gorm:"autoUpdateTime:false" bson:"updated_at" json:"updated_at"`
}
