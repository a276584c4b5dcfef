package engine

import "math"

const (
	// floorProtectionCap caps the floor ratio before normalization; anything
	// 1.5x the line is already maximal safety.
	floorProtectionCap = 1.5

	// edgeSpan is the fraction of the line at which an edge saturates to a
	// full score. A 30% beat of the line is treated as maximal.
	edgeSpan = 0.30
)

// floorProtection measures how safely the worst recent outcome covers the
// side. For OVER it is the window minimum over the line; for UNDER the line
// over the window maximum. At or above 1.0 the side would have cashed in
// every sampled game.
func floorProtection(win WindowStats, line float64, side Side) float64 {
	if win.SampleSize == 0 {
		return 0
	}
	if side == SideUnder {
		if win.Max <= 0 {
			// Never produced the stat at all; an UNDER cannot be safer.
			return floorProtectionCap
		}
		return line / win.Max
	}
	if line <= 0 {
		return 0
	}
	return win.Min / line
}

// computeEdge is the signed gap between the recent average and the line,
// oriented so a positive edge always favors the selected side.
func computeEdge(avg, line float64, side Side) float64 {
	if side == SideUnder {
		return line - avg
	}
	return avg - line
}

// factorScores holds every normalized factor in [0,1]. Keeping the
// normalization separate from the weighting leaves the weight constants a
// single source of truth.
type factorScores struct {
	floor   float64
	edge    float64
	hitRate float64
	usage   float64
	price   float64
	matchup float64
}

// normalizeFactors rescales each raw factor from its native range into
// [0,1] ahead of weighting.
func normalizeFactors(floorProt, edge, line, hitRate, usageBoost float64, price PriceAnalysis, matchup MatchupAnalysis, cfg Config) factorScores {
	f := factorScores{
		floor:   clamp01(math.Min(floorProt, floorProtectionCap) / floorProtectionCap),
		hitRate: clamp01(hitRate),
		usage:   clamp01(usageBoost / cfg.UsageEliteBoost),
	}

	// Edge saturates at a fixed fraction of the line; negative edges score 0.
	if line > 0 {
		f.edge = clamp01(edge / (line * edgeSpan))
	}

	// Price boost native range is [heavy penalty, value boost].
	span := cfg.ValueBoost - cfg.HeavyJuicePenalty
	if span > 0 {
		f.price = clamp01((price.Boost - cfg.HeavyJuicePenalty) / span)
	}

	// Matchup boost native range is [-strong, +dominant].
	span = cfg.MatchupDominantBoost + cfg.MatchupStrongBoost
	if span > 0 {
		f.matchup = clamp01((matchup.Boost + cfg.MatchupStrongBoost) / span)
	}

	return f
}

// compositeScore fuses the normalized factors into the 0-100 integer score.
func compositeScore(f factorScores, w ScoreWeights) int {
	sum := w.Floor*f.floor +
		w.Edge*f.edge +
		w.HitRate*f.hitRate +
		w.Usage*f.usage +
		w.Price*f.price +
		w.Matchup*f.matchup

	score := int(math.Round(sum * 100))
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// classifyTier walks the quality ladder top-down, first match wins. The tier
// is a pure function of floor protection, 10-game hit rate, and edge.
func classifyTier(floorProt, hitRate, edge float64, cfg Config) Tier {
	switch {
	case floorProt >= cfg.EliteFloor && hitRate >= cfg.EliteHitRate:
		return TierElite
	case floorProt >= cfg.PremiumFloor || (hitRate >= cfg.PremiumHitRate && edge > 0):
		return TierPremium
	case hitRate >= cfg.StrongHitRate && edge > 0:
		return TierStrong
	case hitRate >= cfg.StandardHitRate:
		return TierStandard
	}
	return TierAvoid
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
