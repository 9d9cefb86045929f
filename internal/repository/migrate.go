package repository

import "gorm.io/gorm"

// Migrate creates the subsystem's tables. The engagements table belongs to
// the surrounding back office; it is migrated here only so local sqlite
// setups and tests have it available.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&reservationModel{},
		&draftModel{},
		&engagementModel{},
	)
}
