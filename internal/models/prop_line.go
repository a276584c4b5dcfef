package models

import (
	"strconv"
	"strings"
	"time"

	"github.com/sweetspotdev/prop-edge/internal/engine"
	"github.com/sweetspotdev/prop-edge/pkg/database"
)

// PropLine is one captured sportsbook quote for a player prop. Rows are
// append-only snapshots: a line move is recorded as a new row with a later
// CapturedAt, never as an update to an existing one. The snapshot index
// makes a replayed capture a no-op.
type PropLine struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	ExternalID      string    `gorm:"index" json:"external_id"` // provider's line ID
	PlayerName      string    `gorm:"not null;index;uniqueIndex:idx_prop_snapshot" json:"player_name"`
	Team            string    `json:"team"`
	Opponent        string    `json:"opponent"`
	StatType        string    `gorm:"not null;uniqueIndex:idx_prop_snapshot" json:"stat_type"` // "points", "assists", "threes", "blocks", "pra"
	Line            float64   `gorm:"not null;uniqueIndex:idx_prop_snapshot" json:"line"`
	OverPrice       *int      `json:"over_price,omitempty"`  // American odds, null when the book quotes one side
	UnderPrice      *int      `json:"under_price,omitempty"` // American odds, null when the book quotes one side
	GameDate        time.Time `gorm:"not null;index;uniqueIndex:idx_prop_snapshot" json:"game_date"` // midnight UTC of the game day
	GameDescription string    `json:"game_description"`
	StartTime       time.Time `json:"start_time"`
	Source          string    `json:"source"` // "balldontlie"
	CapturedAt      time.Time `gorm:"not null;index;uniqueIndex:idx_prop_snapshot" json:"captured_at"`
	CreatedAt       time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM
func (PropLine) TableName() string {
	return "prop_lines"
}

// ToCandidate converts a stored line into the engine's candidate shape.
func (p *PropLine) ToCandidate() engine.PropCandidate {
	return engine.PropCandidate{
		PlayerName:      p.PlayerName,
		Team:            p.Team,
		Opponent:        p.Opponent,
		StatType:        p.StatType,
		Line:            p.Line,
		OverPrice:       p.OverPrice,
		UnderPrice:      p.UnderPrice,
		GameDescription: p.GameDescription,
		StartTime:       p.StartTime,
	}
}

// LatestPropLines returns the most recent snapshot of every quoted line for a
// game date. Snapshots are keyed by player, statistic and line value, so a
// moved line supersedes its earlier capture while alternate lines for the
// same statistic all survive.
func LatestPropLines(db *database.DB, gameDate time.Time) ([]PropLine, error) {
	var lines []PropLine
	err := db.Where("game_date = ?", gameDate).
		Order("captured_at DESC, id DESC").
		Find(&lines).Error
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(lines))
	latest := make([]PropLine, 0, len(lines))
	for _, line := range lines {
		key := propLineKey(line.PlayerName, line.StatType, line.Line)
		if seen[key] {
			continue
		}
		seen[key] = true
		latest = append(latest, line)
	}
	return latest, nil
}

func propLineKey(player, statType string, line float64) string {
	return strings.ToLower(strings.TrimSpace(player)) + "|" +
		strings.ToLower(strings.TrimSpace(statType)) + "|" +
		strconv.FormatFloat(line, 'f', -1, 64)
}
