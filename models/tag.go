package models

// Tag is migrated but no operation reads or writes it yet
type Tag struct {
	ID          string  `gorm:"primaryKey;type:varchar(36)" bson:"_id"`
	Name        string  `gorm:"type:varchar(250);index:tags_by_name,unique" bson:"name"`
	Description *string `gorm:"type:text" bson:"description,omitempty"`
	CreatedAt   int64   `gorm:"autoCreateTime:false" bson:"created_at"`
}
