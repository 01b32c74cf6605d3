package models

import "gorm.io/gorm"

// Init creates or updates the SQL schema
func Init(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&Album{},
		&Photo{},
		&Tag{},
		&Like{},
	)
}
