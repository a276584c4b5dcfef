package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/sweetspotdev/prop-edge/internal/engine"
	"github.com/sweetspotdev/prop-edge/pkg/database"
)

// SweetSpotRecord is one scored prop persisted from a scan. Each scan writes
// a full replacement set under a fresh ScanID; readers always query the most
// recent scan for a game date.
type SweetSpotRecord struct {
	ID                 uint           `gorm:"primaryKey" json:"id"`
	ScanID             string         `gorm:"type:uuid;not null;index" json:"scan_id"`
	GameDate           time.Time      `gorm:"not null;index" json:"game_date"`
	PlayerName         string         `gorm:"not null" json:"player_name"`
	Team               string         `json:"team"`
	Opponent           string         `json:"opponent"`
	StatType           string         `gorm:"not null" json:"stat_type"`
	Side               string         `gorm:"not null" json:"side"` // "OVER" or "UNDER"
	Line               float64        `gorm:"not null" json:"line"`
	Price              int            `json:"price"`
	Score              int            `gorm:"not null" json:"score"`
	Tier               string         `gorm:"not null" json:"tier"`
	TierRank           int            `gorm:"not null;index" json:"-"` // 0 = ELITE, used for ordering
	FloorProtection    float64        `json:"floor_protection"`
	Edge               float64        `json:"edge"`
	HitRate            float64        `json:"hit_rate"`
	MomentumTier       string         `json:"momentum_tier"`
	MomentumRatio      float64        `json:"momentum_ratio"`
	ProductionRate     float64        `json:"production_rate"`
	MinutesRequired    float64        `json:"minutes_required"`
	FeasibilityVerdict string         `json:"feasibility_verdict"`
	MatchupBoost       float64        `json:"matchup_boost"`
	MatchupTrusted     bool           `json:"matchup_trusted"`
	UsageBoost         float64        `json:"usage_boost"`
	IsValuePlay        bool           `json:"is_value_play"`
	IsTrap             bool           `json:"is_trap"`
	StatsBreakdown     datatypes.JSON `json:"stats_breakdown"`
	GameDescription    string         `json:"game_description"`
	StartTime          time.Time      `json:"start_time"`
	AnalyzedAt         time.Time      `json:"analyzed_at"`
	CreatedAt          time.Time      `json:"created_at"`
}

// TableName specifies the table name for GORM
func (SweetSpotRecord) TableName() string {
	return "sweet_spot_records"
}

// SweetSpotBreakdown is the window and factor detail stored alongside the
// scalar columns, kept as JSON so the engine output survives verbatim.
type SweetSpotBreakdown struct {
	Last10     engine.WindowStats     `json:"last_10"`
	Last5      engine.WindowStats     `json:"last_5"`
	Momentum   engine.Momentum        `json:"momentum"`
	Production engine.Production      `json:"production"`
	Matchup    engine.MatchupAnalysis `json:"matchup"`
	Price      engine.PriceAnalysis   `json:"price"`
}

// NewSweetSpotRecord flattens an engine result into a persistable record.
func NewSweetSpotRecord(scanID string, gameDate time.Time, r engine.SweetSpotResult) (*SweetSpotRecord, error) {
	breakdown, err := json.Marshal(SweetSpotBreakdown{
		Last10:     r.Last10,
		Last5:      r.Last5,
		Momentum:   r.Momentum,
		Production: r.Production,
		Matchup:    r.Matchup,
		Price:      r.Price,
	})
	if err != nil {
		return nil, err
	}

	return &SweetSpotRecord{
		ScanID:             scanID,
		GameDate:           gameDate,
		PlayerName:         r.PlayerName,
		Team:               r.Team,
		Opponent:           r.Opponent,
		StatType:           string(r.StatType),
		Side:               string(r.Side),
		Line:               r.Line,
		Price:              r.Price.Price,
		Score:              r.Score,
		Tier:               string(r.Tier),
		TierRank:           r.Tier.Rank(),
		FloorProtection:    r.FloorProtection,
		Edge:               r.Edge,
		HitRate:            r.Last10.HitRate(),
		MomentumTier:       string(r.Momentum.Tier),
		MomentumRatio:      r.Momentum.Ratio,
		ProductionRate:     r.Production.Rate,
		MinutesRequired:    r.Production.MinutesRequired,
		FeasibilityVerdict: string(r.Production.Verdict),
		MatchupBoost:       r.Matchup.Boost,
		MatchupTrusted:     r.Matchup.Trusted,
		UsageBoost:         r.UsageBoost,
		IsValuePlay:        r.Price.IsValuePlay,
		IsTrap:             r.Price.IsTrap,
		StatsBreakdown:     datatypes.JSON(breakdown),
		GameDescription:    r.GameDescription,
		StartTime:          r.StartTime,
		AnalyzedAt:         r.AnalyzedAt,
	}, nil
}

// Breakdown unmarshals the stored window and factor detail.
func (s *SweetSpotRecord) Breakdown() (*SweetSpotBreakdown, error) {
	var breakdown SweetSpotBreakdown
	if err := json.Unmarshal(s.StatsBreakdown, &breakdown); err != nil {
		return nil, err
	}
	return &breakdown, nil
}

// SweetSpotsForScan fetches a scan's records in presentation order: best
// tier first, then score, with name and statistic as deterministic
// tie-breakers.
func SweetSpotsForScan(db *database.DB, scanID string) ([]SweetSpotRecord, error) {
	var records []SweetSpotRecord
	err := db.Where("scan_id = ?", scanID).
		Order("tier_rank ASC, score DESC, player_name ASC, stat_type ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

// LatestScanID returns the most recent scan for a game date, or empty when
// the date has never been scanned.
func LatestScanID(db *database.DB, gameDate time.Time) (string, error) {
	var record SweetSpotRecord
	err := db.Where("game_date = ?", gameDate).
		Order("created_at DESC, id DESC").
		First(&record).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return "", nil
		}
		return "", err
	}
	return record.ScanID, nil
}
