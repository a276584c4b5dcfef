package engine

import (
	"strings"
	"time"
)

// StatType identifies one of the supported prop markets.
type StatType string

const (
	StatPoints  StatType = "points"
	StatAssists StatType = "assists"
	StatThrees  StatType = "threes"
	StatBlocks  StatType = "blocks"
	StatPRA     StatType = "pra" // points + rebounds + assists
)

// ParseStatType maps a raw market stat label onto the supported enumeration.
// Unmapped labels are rejected here so a bad candidate is dropped at the
// boundary instead of returning nulls deep inside a factor analyzer.
func ParseStatType(raw string) (StatType, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "points", "pts":
		return StatPoints, true
	case "assists", "ast":
		return StatAssists, true
	case "threes", "3pm", "three_pointers_made":
		return StatThrees, true
	case "blocks", "blk":
		return StatBlocks, true
	case "pra", "pts_rebs_asts", "points_rebounds_assists":
		return StatPRA, true
	}
	return "", false
}

// Value extracts this statistic from a game log entry. ok is false when the
// entry does not record the statistic; for the compound stat every component
// must be present.
func (s StatType) Value(e GameLogEntry) (float64, bool) {
	switch s {
	case StatPoints:
		return deref(e.Points)
	case StatAssists:
		return deref(e.Assists)
	case StatThrees:
		return deref(e.Threes)
	case StatBlocks:
		return deref(e.Blocks)
	case StatPRA:
		pts, ok1 := deref(e.Points)
		reb, ok2 := deref(e.Rebounds)
		ast, ok3 := deref(e.Assists)
		if !ok1 || !ok2 || !ok3 {
			return 0, false
		}
		return pts + reb + ast, true
	}
	return 0, false
}

func deref(v *float64) (float64, bool) {
	if v == nil {
		return 0, false
	}
	return *v, true
}

// Side is the recommended bet direction for a line.
type Side string

const (
	SideOver  Side = "OVER"
	SideUnder Side = "UNDER"
)

// MomentumTier classifies a short-window trend against the long window.
type MomentumTier string

const (
	MomentumHot    MomentumTier = "HOT"
	MomentumCold   MomentumTier = "COLD"
	MomentumNormal MomentumTier = "NORMAL"
)

// Feasibility is the minutes-based verdict on whether a line is reachable.
type Feasibility string

const (
	FeasibilityCanMeet  Feasibility = "CAN_MEET"
	FeasibilityRisky    Feasibility = "RISKY"
	FeasibilityUnlikely Feasibility = "UNLIKELY"
)

// Tier is the quality classification of a scored prop.
type Tier string

const (
	TierElite    Tier = "ELITE"
	TierPremium  Tier = "PREMIUM"
	TierStrong   Tier = "STRONG"
	TierStandard Tier = "STANDARD"
	TierAvoid    Tier = "AVOID"
)

// Rank orders tiers best-first for final sorting.
func (t Tier) Rank() int {
	switch t {
	case TierElite:
		return 0
	case TierPremium:
		return 1
	case TierStrong:
		return 2
	case TierStandard:
		return 3
	default:
		return 4
	}
}

// PropCandidate is one quoted market line for one player and statistic.
// Prices are per side and nullable; absent prices fall back to DefaultPrice.
type PropCandidate struct {
	PlayerName      string    `json:"player_name"`
	Team            string    `json:"team"`
	Opponent        string    `json:"opponent"`
	StatType        string    `json:"stat_type"`
	Line            float64   `json:"line"`
	OverPrice       *int      `json:"over_price,omitempty"`
	UnderPrice      *int      `json:"under_price,omitempty"`
	GameDescription string    `json:"game_description,omitempty"`
	StartTime       time.Time `json:"start_time"`
}

// GameLogEntry is one player's box score line for one past game. Stat values
// are pointers because a statistic may simply not have been recorded.
type GameLogEntry struct {
	PlayerName string    `json:"player_name"`
	GameDate   time.Time `json:"game_date"`
	Points     *float64  `json:"points,omitempty"`
	Rebounds   *float64  `json:"rebounds,omitempty"`
	Assists    *float64  `json:"assists,omitempty"`
	Threes     *float64  `json:"threes,omitempty"`
	Blocks     *float64  `json:"blocks,omitempty"`
	Minutes    float64   `json:"minutes"`
	UsageRate  *float64  `json:"usage_rate,omitempty"`
}

// MatchupRecord aggregates a player's history against one opponent. StatType
// may be empty for records aggregated across all statistics.
type MatchupRecord struct {
	PlayerName string  `json:"player_name"`
	Opponent   string  `json:"opponent"`
	StatType   string  `json:"stat_type,omitempty"`
	Avg        float64 `json:"avg"`
	Min        float64 `json:"min"`
	Max        float64 `json:"max"`
	Meetings   int     `json:"meetings"`
}

// WindowStats summarizes a trailing game window for one statistic.
type WindowStats struct {
	Min        float64 `json:"min"`
	Max        float64 `json:"max"`
	Avg        float64 `json:"avg"`
	Median     float64 `json:"median"`
	HitCount   int     `json:"hit_count"`
	SampleSize int     `json:"sample_size"`
}

// HitRate returns the fraction of sampled games that satisfied the side
// condition, 0 when the window is empty.
func (w WindowStats) HitRate() float64 {
	if w.SampleSize == 0 {
		return 0
	}
	return float64(w.HitCount) / float64(w.SampleSize)
}

// Momentum compares the 5-game average against the 10-game average.
type Momentum struct {
	Tier  MomentumTier `json:"tier"`
	Ratio float64      `json:"ratio"`
}

// Production is the minutes-based feasibility analysis. MinutesRequired is 0
// with an UNLIKELY verdict when the rate sample is empty or the rate is zero
// (the required minutes would be unbounded).
type Production struct {
	Rate            float64     `json:"rate_per_minute"`
	AvgMinutes      float64     `json:"avg_minutes"`
	MinutesRequired float64     `json:"minutes_required"`
	Verdict         Feasibility `json:"verdict"`
}

// PriceAnalysis is the juice-band evaluation of the selected side's price.
type PriceAnalysis struct {
	Price       int     `json:"price"`
	Boost       float64 `json:"boost"`
	IsValuePlay bool    `json:"is_value_play"`
	IsTrap      bool    `json:"is_trap"`
}

// MatchupAnalysis is the head-to-head evaluation against the scheduled
// opponent. Trusted is false when fewer than the minimum meetings exist.
type MatchupAnalysis struct {
	Boost    float64 `json:"boost"`
	Trusted  bool    `json:"trusted"`
	Meetings int     `json:"meetings"`
	Avg      float64 `json:"avg"`
}

// SweetSpotResult is the engine's scored output for one deduplicated
// candidate.
type SweetSpotResult struct {
	PlayerName      string          `json:"player_name"`
	StatType        StatType        `json:"stat_type"`
	Team            string          `json:"team"`
	Opponent        string          `json:"opponent"`
	Side            Side            `json:"side"`
	Line            float64         `json:"line"`
	Last10          WindowStats     `json:"last_10"`
	Last5           WindowStats     `json:"last_5"`
	Momentum        Momentum        `json:"momentum"`
	Production      Production      `json:"production"`
	Matchup         MatchupAnalysis `json:"matchup"`
	Price           PriceAnalysis   `json:"price"`
	UsageBoost      float64         `json:"usage_boost"`
	FloorProtection float64         `json:"floor_protection"`
	Edge            float64         `json:"edge"`
	Score           int             `json:"score"`
	Tier            Tier            `json:"tier"`
	GameDescription string          `json:"game_description,omitempty"`
	StartTime       time.Time       `json:"start_time"`
	AnalyzedAt      time.Time       `json:"analyzed_at"`
}

// Summary aggregates one scoring run.
type Summary struct {
	Total         int              `json:"total"`
	ByTier        map[Tier]int     `json:"by_tier"`
	ByStatType    map[StatType]int `json:"by_stat_type"`
	DistinctTeams int              `json:"distinct_teams"`
}

// Output is the ordered result set of one scoring run plus its summary.
type Output struct {
	Results []SweetSpotResult `json:"results"`
	Summary Summary           `json:"summary"`
}

// Input carries the already-fetched collections for one scoring run. Game
// logs may arrive in any order; the engine groups and orders them itself.
type Input struct {
	Candidates []PropCandidate `json:"candidates"`
	GameLogs   []GameLogEntry  `json:"game_logs"`
	Matchups   []MatchupRecord `json:"matchups"`
}
