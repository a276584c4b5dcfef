package engine

// DefaultPrice is assumed for a side whose price was absent from the market
// snapshot.
const DefaultPrice = -110

// Trailing window sizes consumed per candidate.
const (
	longWindow  = 10
	shortWindow = 5
)

// ScoreWeights are the composite score weights. They sum to 1 so the weighted
// factor sum lands in [0,1] before scaling to [0,100].
type ScoreWeights struct {
	Floor   float64 `json:"floor"`
	Edge    float64 `json:"edge"`
	HitRate float64 `json:"hit_rate"`
	Usage   float64 `json:"usage"`
	Price   float64 `json:"price"`
	Matchup float64 `json:"matchup"`
}

// Config holds every tunable threshold of the scoring pipeline. Tier
// boundaries and price bands are business-sensitive, so deployments feed
// these from live configuration rather than hardcoding them.
type Config struct {
	// Minimum valid game-log entries before a candidate is scored at all.
	MinGames int `json:"min_games"`

	// Momentum tier cutoffs on the 5-game/10-game average ratio.
	HotStreakRatio  float64 `json:"hot_streak_ratio"`
	ColdStreakRatio float64 `json:"cold_streak_ratio"`

	// Feasibility cutoffs as fractions of average minutes.
	CanMeetMinutesRatio float64 `json:"can_meet_minutes_ratio"`
	RiskyMinutesRatio   float64 `json:"risky_minutes_ratio"`

	// American-odds band edges, best price first.
	ValuePriceCutoff  int `json:"value_price_cutoff"`
	MediumJuiceCutoff int `json:"medium_juice_cutoff"`
	HeavyJuiceCutoff  int `json:"heavy_juice_cutoff"`

	// Band adjustments. The light-juice band between value and medium is
	// always neutral.
	ValueBoost         float64 `json:"value_boost"`
	MediumJuicePenalty float64 `json:"medium_juice_penalty"`
	HeavyJuicePenalty  float64 `json:"heavy_juice_penalty"`

	// Head-to-head boosts and the relative margin for the strong bands.
	MinMatchupGames      int     `json:"min_matchup_games"`
	MatchupDominantBoost float64 `json:"matchup_dominant_boost"`
	MatchupStrongBoost   float64 `json:"matchup_strong_boost"`
	MatchupLeanBoost     float64 `json:"matchup_lean_boost"`
	MatchupMargin        float64 `json:"matchup_margin"`

	// Usage-rate bands.
	UsageEliteThreshold    float64 `json:"usage_elite_threshold"`
	UsageHighThreshold     float64 `json:"usage_high_threshold"`
	UsageModerateThreshold float64 `json:"usage_moderate_threshold"`
	UsageEliteBoost        float64 `json:"usage_elite_boost"`
	UsageHighBoost         float64 `json:"usage_high_boost"`
	UsageModerateBoost     float64 `json:"usage_moderate_boost"`

	// Quality tier ladder cutoffs.
	EliteFloor      float64 `json:"elite_floor"`
	EliteHitRate    float64 `json:"elite_hit_rate"`
	PremiumFloor    float64 `json:"premium_floor"`
	PremiumHitRate  float64 `json:"premium_hit_rate"`
	StrongHitRate   float64 `json:"strong_hit_rate"`
	StandardHitRate float64 `json:"standard_hit_rate"`

	// AVOID-tier candidates below this hit rate are dropped entirely.
	DiscardHitRate float64 `json:"discard_hit_rate"`

	Weights ScoreWeights `json:"weights"`
}

// DefaultConfig returns the production defaults for every threshold.
func DefaultConfig() Config {
	return Config{
		MinGames:            5,
		HotStreakRatio:      1.15,
		ColdStreakRatio:     0.85,
		CanMeetMinutesRatio: 0.90,
		RiskyMinutesRatio:   1.10,

		ValuePriceCutoff:   -105,
		MediumJuiceCutoff:  -120,
		HeavyJuiceCutoff:   -135,
		ValueBoost:         0.10,
		MediumJuicePenalty: -0.05,
		HeavyJuicePenalty:  -0.10,

		MinMatchupGames:      2,
		MatchupDominantBoost: 0.15,
		MatchupStrongBoost:   0.10,
		MatchupLeanBoost:     0.05,
		MatchupMargin:        0.15,

		UsageEliteThreshold:    30,
		UsageHighThreshold:     25,
		UsageModerateThreshold: 20,
		UsageEliteBoost:        0.10,
		UsageHighBoost:         0.06,
		UsageModerateBoost:     0.03,

		EliteFloor:      1.00,
		EliteHitRate:    0.90,
		PremiumFloor:    0.95,
		PremiumHitRate:  0.80,
		StrongHitRate:   0.70,
		StandardHitRate: 0.60,
		DiscardHitRate:  0.50,

		Weights: ScoreWeights{
			Floor:   0.25,
			Edge:    0.20,
			HitRate: 0.25,
			Usage:   0.10,
			Price:   0.10,
			Matchup: 0.10,
		},
	}
}
