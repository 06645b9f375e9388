package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// migrationsList holds all migrations in order
var migrationsList = []*gormigrate.Migration{
	CreateCoreTables(),
	CreateJobsTable(),
	CreateClaimConstraints(),
}

// RunMigrations runs all database migrations
func RunMigrations(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, migrationsList)

	if err := m.Migrate(); err != nil {
		logrus.WithError(err).Error("could not migrate")
		return err
	}
	logrus.Info("migrations ran successfully")
	return nil
}
