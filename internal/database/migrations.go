package database

import (
	"github.com/chachabrian/railparcel-backend/internal/models"
	"gorm.io/gorm"
)

// Migrate creates or updates the schema. Unique indexes on station code,
// tracking number and user contacts come from the model tags.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Station{},
		&models.User{},
		&models.Parcel{},
		&models.Message{},
	)
}
