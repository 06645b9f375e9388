package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"

	"github.com/loadedteafinder/backend/internal/database"
)

// CreateCoreTables creates the directory, rewards, and claim tables
func CreateCoreTables() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000001_create_core_tables",
		Migrate: func(tx *gorm.DB) error {
			return tx.AutoMigrate(database.Models()...)
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(
				"claim_histories",
				"verification_steps",
				"claims",
				"check_ins",
				"reward_accounts",
				"reviews",
				"businesses",
				"users",
			)
		},
	}
}
