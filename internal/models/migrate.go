package models

import (
	"github.com/sweetspotdev/prop-edge/pkg/database"
)

// AutoMigrate creates or updates the schema for every model. Called on
// server start and from the seed command so the list stays in one place.
func AutoMigrate(db *database.DB) error {
	return db.AutoMigrate(
		&PropLine{},
		&PlayerGameLog{},
		&MatchupHistory{},
		&SweetSpotRecord{},
		&PropGrade{},
	)
}
