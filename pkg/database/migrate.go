package database

import (
	"essay-coach-be/internal/model"

	"gorm.io/gorm"
)

// Models lists every table owned by the service, parents first.
func Models() []interface{} {
	return []interface{}{
		&model.User{},
		&model.Conversation{},
		&model.Message{},
	}
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}
