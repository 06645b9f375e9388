package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// CreateClaimConstraints enforces the one-active-claim-per-business rule at
// the storage layer. The application check alone is a check-then-act race
// under concurrent submissions; the partial unique index closes it.
func CreateClaimConstraints() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000003_create_claim_constraints",
		Migrate: func(tx *gorm.DB) error {
			return tx.Exec(`
				CREATE UNIQUE INDEX IF NOT EXISTS idx_claims_one_active_per_business
				ON claims (business_id)
				WHERE status IN ('pending', 'in_review', 'needs_more_info');
			`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Exec(`DROP INDEX IF EXISTS idx_claims_one_active_per_business;`).Error
		},
	}
}
