package gorm

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/narwhalmedia/availability/pkg/database"
)

// Migrations returns the schema migrations in order.
func Migrations() []database.MigrationEntry {
	return []database.MigrationEntry{
		{
			Version: "20240101_001",
			Name:    "Create media and request tables",
			Up: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&MediaModel{}, &SeasonModel{}, &RequestModel{}, &RequestSeasonModel{})
			},
		},
		{
			Version: "20240101_002",
			Name:    "Add pending request index",
			Up: func(tx *gorm.DB) error {
				return database.ExecAll(tx,
					"CREATE INDEX IF NOT EXISTS idx_requests_media_status_created ON requests(media_id, status, created_at)",
				)
			},
		},
	}
}

// Migrate applies pending migrations and returns the applied versions.
func Migrate(db *gorm.DB, logger *zap.Logger) ([]string, error) {
	return database.NewMigrator(db, logger, Migrations()...).Migrate()
}
