package engine

import "gonum.org/v1/gonum/floats"

// analyzeMomentum classifies the 5-game trend against the 10-game baseline.
// A zero baseline yields a ratio of exactly 1 and a NORMAL tier so a cold
// stretch of zeros never divides by zero or fakes a streak either way.
func analyzeMomentum(avg5, avg10 float64, cfg Config) Momentum {
	if avg10 == 0 {
		return Momentum{Tier: MomentumNormal, Ratio: 1}
	}

	ratio := avg5 / avg10
	tier := MomentumNormal
	switch {
	case ratio >= cfg.HotStreakRatio:
		tier = MomentumHot
	case ratio <= cfg.ColdStreakRatio:
		tier = MomentumCold
	}

	return Momentum{Tier: tier, Ratio: ratio}
}

// analyzeProduction computes the minutes-weighted production rate over
// entries with positive minutes and a recorded statistic. Weighted by total
// minutes rather than averaging per-game rates, so high-minute games count
// proportionally. The verdict compares minutes required at that rate against
// average minutes.
func analyzeProduction(entries []GameLogEntry, statType StatType, line float64, cfg Config) Production {
	var totalStat, totalMinutes float64
	games := 0
	for _, e := range entries {
		if e.Minutes <= 0 {
			continue
		}
		v, ok := statType.Value(e)
		if !ok {
			continue
		}
		totalStat += v
		totalMinutes += e.Minutes
		games++
	}

	if games == 0 || totalMinutes == 0 {
		return Production{Verdict: FeasibilityUnlikely}
	}

	rate := totalStat / totalMinutes
	avgMinutes := totalMinutes / float64(games)

	if rate == 0 {
		// Required minutes would be unbounded.
		return Production{AvgMinutes: avgMinutes, Verdict: FeasibilityUnlikely}
	}

	required := line / rate
	verdict := FeasibilityUnlikely
	switch {
	case required <= avgMinutes*cfg.CanMeetMinutesRatio:
		verdict = FeasibilityCanMeet
	case required <= avgMinutes*cfg.RiskyMinutesRatio:
		verdict = FeasibilityRisky
	}

	return Production{
		Rate:            rate,
		AvgMinutes:      avgMinutes,
		MinutesRequired: required,
		Verdict:         verdict,
	}
}

// analyzePrice maps the selected side's American price into one of four
// juice bands. A nil price defaults to the standard -110 quote, which lands
// in the neutral light-juice band.
func analyzePrice(price *int, cfg Config) PriceAnalysis {
	p := DefaultPrice
	if price != nil {
		p = *price
	}

	analysis := PriceAnalysis{Price: p}
	switch {
	case p >= cfg.ValuePriceCutoff:
		analysis.Boost = cfg.ValueBoost
		analysis.IsValuePlay = true
	case p > cfg.MediumJuiceCutoff:
		// Light juice, neutral.
	case p > cfg.HeavyJuiceCutoff:
		analysis.Boost = cfg.MediumJuicePenalty
	default:
		analysis.Boost = cfg.HeavyJuicePenalty
		analysis.IsTrap = true
	}

	return analysis
}

// analyzeMatchup converts opponent-specific history into a signed boost.
// Bands are evaluated in priority order; the dominant band means the side
// cashed in every prior meeting. Records with too few meetings are not
// trusted and contribute nothing.
func analyzeMatchup(rec *MatchupRecord, line float64, side Side, cfg Config) MatchupAnalysis {
	if rec == nil {
		return MatchupAnalysis{}
	}
	if rec.Meetings < cfg.MinMatchupGames {
		return MatchupAnalysis{Meetings: rec.Meetings, Avg: rec.Avg}
	}

	analysis := MatchupAnalysis{Trusted: true, Meetings: rec.Meetings, Avg: rec.Avg}
	if side == SideUnder {
		switch {
		case rec.Max < line:
			analysis.Boost = cfg.MatchupDominantBoost
		case rec.Avg <= line*(1-cfg.MatchupMargin):
			analysis.Boost = cfg.MatchupStrongBoost
		case rec.Avg < line:
			analysis.Boost = cfg.MatchupLeanBoost
		case rec.Avg >= line*(1+cfg.MatchupMargin):
			analysis.Boost = -cfg.MatchupStrongBoost
		}
		return analysis
	}

	switch {
	case rec.Min > line:
		analysis.Boost = cfg.MatchupDominantBoost
	case rec.Avg >= line*(1+cfg.MatchupMargin):
		analysis.Boost = cfg.MatchupStrongBoost
	case rec.Avg > line:
		analysis.Boost = cfg.MatchupLeanBoost
	case rec.Avg <= line*(1-cfg.MatchupMargin):
		analysis.Boost = -cfg.MatchupStrongBoost
	}
	return analysis
}

// analyzeUsage grants a small reliability boost at three usage-rate bands.
// Absent usage data earns nothing rather than guessing.
func analyzeUsage(usage *float64, cfg Config) float64 {
	if usage == nil {
		return 0
	}
	switch {
	case *usage >= cfg.UsageEliteThreshold:
		return cfg.UsageEliteBoost
	case *usage >= cfg.UsageHighThreshold:
		return cfg.UsageHighBoost
	case *usage >= cfg.UsageModerateThreshold:
		return cfg.UsageModerateBoost
	}
	return 0
}

// latestUsage returns the most recent recorded usage rate in the window.
func latestUsage(entries []GameLogEntry) *float64 {
	for _, e := range entries {
		if e.UsageRate != nil {
			return e.UsageRate
		}
	}
	return nil
}

// selectSide picks the favorable bet direction for a line. Certainty wins
// over raw hit rate: a 10-game minimum that clears the line locks OVER, a
// maximum that never reaches it locks UNDER. Only when neither guarantee
// holds do the per-side hit rates decide, with ties going OVER.
func selectSide(values []float64, line float64) Side {
	if len(values) == 0 {
		return SideOver
	}

	if floats.Min(values) > line {
		return SideOver
	}
	if floats.Max(values) < line {
		return SideUnder
	}

	over, under := 0, 0
	for _, v := range values {
		if v > line {
			over++
		} else if v < line {
			under++
		}
	}
	if under > over {
		return SideUnder
	}
	return SideOver
}
