package models

import "gorm.io/gorm"

// Migrate creates or updates every table owned by the service.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Sequence{},
		&EmailQueueEntry{},
		&Session{},
		&Message{},
		&Folder{},
		&File{},
		&Embedding{},
	)
}
