package models

import (
	"time"

	"github.com/sweetspotdev/prop-edge/internal/engine"
	"github.com/sweetspotdev/prop-edge/pkg/database"
)

// PlayerGameLog is one player's box score line for one game. Stat columns
// are nullable because a source may omit a statistic for a game; a null is
// excluded from window samples rather than treated as zero.
type PlayerGameLog struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	PlayerName string    `gorm:"not null;uniqueIndex:idx_player_game_date" json:"player_name"`
	GameDate   time.Time `gorm:"not null;uniqueIndex:idx_player_game_date" json:"game_date"` // midnight UTC of the game day
	Team       string    `json:"team"`
	Opponent   string    `json:"opponent"`
	Minutes    float64   `json:"minutes"`
	Points     *float64  `json:"points,omitempty"`
	Rebounds   *float64  `json:"rebounds,omitempty"`
	Assists    *float64  `json:"assists,omitempty"`
	Threes     *float64  `json:"threes,omitempty"`
	Blocks     *float64  `json:"blocks,omitempty"`
	UsageRate  *float64  `json:"usage_rate,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (PlayerGameLog) TableName() string {
	return "player_game_logs"
}

// ToEngineEntry converts a stored log row into the engine's game log shape.
func (g *PlayerGameLog) ToEngineEntry() engine.GameLogEntry {
	return engine.GameLogEntry{
		PlayerName: g.PlayerName,
		GameDate:   g.GameDate,
		Points:     g.Points,
		Rebounds:   g.Rebounds,
		Assists:    g.Assists,
		Threes:     g.Threes,
		Blocks:     g.Blocks,
		Minutes:    g.Minutes,
		UsageRate:  g.UsageRate,
	}
}

// RecentGameLogs fetches up to depth most recent logs per player for the
// given players, most recent first. Truncation happens per player after the
// fetch so one player's long history cannot starve another's.
func RecentGameLogs(db *database.DB, playerNames []string, depth int) ([]PlayerGameLog, error) {
	if len(playerNames) == 0 {
		return nil, nil
	}

	var logs []PlayerGameLog
	err := db.Where("player_name IN ?", playerNames).
		Order("game_date DESC").
		Find(&logs).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int, len(playerNames))
	trimmed := make([]PlayerGameLog, 0, len(logs))
	for _, log := range logs {
		if depth > 0 && counts[log.PlayerName] >= depth {
			continue
		}
		counts[log.PlayerName]++
		trimmed = append(trimmed, log)
	}
	return trimmed, nil
}
