// Package persistence provides database storage implementations.
package persistence

import (
	"github.com/harmonium-fm/harmonium/internal/database"
)

// AutoMigrate runs GORM auto migration for all models. The per-backend vector
// stores add the embedding column and its index afterwards.
func AutoMigrate(db database.Database) error {
	return db.GORM().AutoMigrate(
		&UserModel{},
		&TrackModel{},
	)
}
