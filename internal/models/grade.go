package models

import (
	"time"
)

// Grade outcomes. A push happens when the realized value lands exactly on
// the line; a void grade means no box score was found for the game.
const (
	OutcomeHit  = "HIT"
	OutcomeMiss = "MISS"
	OutcomePush = "PUSH"
	OutcomeVoid = "VOID"
)

// PropGrade records how a scored prop resolved once the game's box score is
// available. One grade exists per sweet spot record; regrading overwrites in
// place rather than appending.
type PropGrade struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	SweetSpotID uint      `gorm:"not null;uniqueIndex" json:"sweet_spot_id"`
	ScanID      string    `gorm:"type:uuid;index" json:"scan_id"`
	GameDate    time.Time `gorm:"not null;index" json:"game_date"`
	PlayerName  string    `gorm:"not null" json:"player_name"`
	StatType    string    `gorm:"not null" json:"stat_type"`
	Side        string    `gorm:"not null" json:"side"`
	Line        float64   `gorm:"not null" json:"line"`
	Score       int       `json:"score"`
	Tier        string    `json:"tier"`
	ActualValue *float64  `json:"actual_value,omitempty"` // null when the grade is VOID
	Outcome     string    `gorm:"not null" json:"outcome"`
	GradedAt    time.Time `json:"graded_at"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM
func (PropGrade) TableName() string {
	return "prop_grades"
}

// DetermineOutcome grades a realized stat value against a line. The same
// strict inequality used for window hits applies: landing exactly on the
// line is a push for either side.
func DetermineOutcome(actual, line float64, side string) string {
	if actual == line {
		return OutcomePush
	}
	switch side {
	case "OVER":
		if actual > line {
			return OutcomeHit
		}
	case "UNDER":
		if actual < line {
			return OutcomeHit
		}
	}
	return OutcomeMiss
}
