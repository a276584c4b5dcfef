package models

import (
	"time"

	"github.com/sweetspotdev/prop-edge/internal/engine"
	"github.com/sweetspotdev/prop-edge/pkg/database"
)

// MatchupHistory aggregates a player's production against one opponent.
// StatType is empty for rows aggregated across all statistics; the engine
// prefers a stat-specific row and falls back to the aggregate.
type MatchupHistory struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	PlayerName  string    `gorm:"not null;uniqueIndex:idx_matchup_key" json:"player_name"`
	Opponent    string    `gorm:"not null;uniqueIndex:idx_matchup_key" json:"opponent"`
	StatType    string    `gorm:"uniqueIndex:idx_matchup_key" json:"stat_type,omitempty"` // empty = all statistics
	Avg         float64   `json:"avg"`
	Min         float64   `json:"min"`
	Max         float64   `json:"max"`
	Meetings    int       `json:"meetings"`
	LastMeeting time.Time `json:"last_meeting"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (MatchupHistory) TableName() string {
	return "matchup_histories"
}

// ToEngineRecord converts a stored matchup row into the engine's record shape.
func (m *MatchupHistory) ToEngineRecord() engine.MatchupRecord {
	return engine.MatchupRecord{
		PlayerName: m.PlayerName,
		Opponent:   m.Opponent,
		StatType:   m.StatType,
		Avg:        m.Avg,
		Min:        m.Min,
		Max:        m.Max,
		Meetings:   m.Meetings,
	}
}

// MatchupsForPlayers fetches every matchup row for the given players.
func MatchupsForPlayers(db *database.DB, playerNames []string) ([]MatchupHistory, error) {
	if len(playerNames) == 0 {
		return nil, nil
	}

	var matchups []MatchupHistory
	err := db.Where("player_name IN ?", playerNames).Find(&matchups).Error
	if err != nil {
		return nil, err
	}
	return matchups, nil
}
