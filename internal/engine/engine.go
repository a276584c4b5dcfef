// Package engine scores player prop candidates against recent game logs and
// opponent history, producing ranked, tiered sweet spot recommendations. It
// is a pure computation library: all inputs arrive as already-fetched
// collections and re-running it over identical inputs yields identical
// output.
package engine

import (
	"context"
	"sort"
	"strings"
	"time"
)

type Engine struct {
	config Config
}

// New returns an engine with the given thresholds. Zero-value configs are
// replaced by the production defaults.
func New(cfg Config) *Engine {
	if cfg.MinGames == 0 {
		cfg = DefaultConfig()
	}
	return &Engine{config: cfg}
}

func (e *Engine) Config() Config {
	return e.config
}

// Run scores every candidate, deduplicates per player and statistic, and
// returns the ranked result set with its summary. Candidates are excluded
// silently when their statistic is unmapped, their sample is too small, or
// they classify AVOID with a sub-discard hit rate.
func (e *Engine) Run(ctx context.Context, input Input) (*Output, error) {
	now := time.Now().UTC()
	logsByPlayer := groupLogs(input.GameLogs)
	matchups := indexMatchups(input.Matchups)

	scored := make([]SweetSpotResult, 0, len(input.Candidates))
	for _, cand := range input.Candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if result, ok := e.scoreCandidate(cand, logsByPlayer, matchups, now); ok {
			scored = append(scored, result)
		}
	}

	results := dedupeAndRank(scored)
	return &Output{Results: results, Summary: summarize(results)}, nil
}

// scoreCandidate runs the full factor pipeline for one candidate. ok is
// false when the candidate must be excluded.
func (e *Engine) scoreCandidate(cand PropCandidate, logsByPlayer map[string][]GameLogEntry, matchups map[string]MatchupRecord, now time.Time) (SweetSpotResult, bool) {
	cfg := e.config

	statType, ok := ParseStatType(cand.StatType)
	if !ok {
		return SweetSpotResult{}, false
	}

	logs := logsByPlayer[normKey(cand.PlayerName)]
	entries10 := windowEntries(logs, statType, longWindow)
	if len(entries10) < cfg.MinGames {
		return SweetSpotResult{}, false
	}

	values10 := windowValues(entries10, statType)
	side := selectSide(values10, cand.Line)

	win10 := computeWindow(values10, cand.Line, side)
	values5 := values10
	if len(values5) > shortWindow {
		values5 = values5[:shortWindow]
	}
	win5 := computeWindow(values5, cand.Line, side)

	momentum := analyzeMomentum(win5.Avg, win10.Avg, cfg)
	production := analyzeProduction(entries10, statType, cand.Line, cfg)
	price := analyzePrice(sidePrice(cand, side), cfg)
	matchup := analyzeMatchup(lookupMatchup(matchups, cand, statType), cand.Line, side, cfg)
	usageBoost := analyzeUsage(latestUsage(entries10), cfg)

	floorProt := floorProtection(win10, cand.Line, side)
	edge := computeEdge(win10.Avg, cand.Line, side)
	hitRate := win10.HitRate()

	tier := classifyTier(floorProt, hitRate, edge, cfg)
	if tier == TierAvoid && hitRate < cfg.DiscardHitRate {
		return SweetSpotResult{}, false
	}

	factors := normalizeFactors(floorProt, edge, cand.Line, hitRate, usageBoost, price, matchup, cfg)
	score := compositeScore(factors, cfg.Weights)

	return SweetSpotResult{
		PlayerName:      cand.PlayerName,
		StatType:        statType,
		Team:            cand.Team,
		Opponent:        cand.Opponent,
		Side:            side,
		Line:            cand.Line,
		Last10:          win10,
		Last5:           win5,
		Momentum:        momentum,
		Production:      production,
		Matchup:         matchup,
		Price:           price,
		UsageBoost:      usageBoost,
		FloorProtection: floorProt,
		Edge:            edge,
		Score:           score,
		Tier:            tier,
		GameDescription: cand.GameDescription,
		StartTime:       cand.StartTime,
		AnalyzedAt:      now,
	}, true
}

// dedupeAndRank collapses duplicate (player, statistic) keys to the single
// best line and orders the survivors tier-first, score-second. The name and
// statistic tiebreaks keep repeated runs byte-identical.
func dedupeAndRank(scored []SweetSpotResult) []SweetSpotResult {
	best := make(map[string]SweetSpotResult, len(scored))
	for _, r := range scored {
		key := normKey(r.PlayerName) + "|" + string(r.StatType)
		current, exists := best[key]
		if !exists || betterLine(r, current) {
			best[key] = r
		}
	}

	results := make([]SweetSpotResult, 0, len(best))
	for _, r := range best {
		results = append(results, r)
	}

	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Tier.Rank() != b.Tier.Rank() {
			return a.Tier.Rank() < b.Tier.Rank()
		}
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.PlayerName != b.PlayerName {
			return a.PlayerName < b.PlayerName
		}
		return a.StatType < b.StatType
	})

	return results
}

// betterLine decides which of two lines survives deduplication: higher floor
// protection wins, then higher composite score.
func betterLine(a, b SweetSpotResult) bool {
	if a.FloorProtection != b.FloorProtection {
		return a.FloorProtection > b.FloorProtection
	}
	return a.Score > b.Score
}

func summarize(results []SweetSpotResult) Summary {
	summary := Summary{
		Total:      len(results),
		ByTier:     make(map[Tier]int),
		ByStatType: make(map[StatType]int),
	}

	teams := make(map[string]bool)
	for _, r := range results {
		summary.ByTier[r.Tier]++
		summary.ByStatType[r.StatType]++
		if r.Team != "" {
			teams[r.Team] = true
		}
	}
	summary.DistinctTeams = len(teams)

	return summary
}

// groupLogs buckets entries per player and orders each bucket most recent
// first, regardless of input order.
func groupLogs(logs []GameLogEntry) map[string][]GameLogEntry {
	byPlayer := make(map[string][]GameLogEntry)
	for _, entry := range logs {
		key := normKey(entry.PlayerName)
		byPlayer[key] = append(byPlayer[key], entry)
	}

	for key := range byPlayer {
		entries := byPlayer[key]
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].GameDate.After(entries[j].GameDate)
		})
	}

	return byPlayer
}

// indexMatchups keys records by player, opponent, and statistic. Records
// without a statistic key double as the fallback for any statistic.
func indexMatchups(records []MatchupRecord) map[string]MatchupRecord {
	index := make(map[string]MatchupRecord, len(records))
	for _, rec := range records {
		index[matchupKey(rec.PlayerName, rec.Opponent, rec.StatType)] = rec
	}
	return index
}

// lookupMatchup prefers the statistic-specific record and falls back to the
// all-statistics aggregate.
func lookupMatchup(index map[string]MatchupRecord, cand PropCandidate, statType StatType) *MatchupRecord {
	if rec, ok := index[matchupKey(cand.PlayerName, cand.Opponent, string(statType))]; ok {
		return &rec
	}
	if rec, ok := index[matchupKey(cand.PlayerName, cand.Opponent, "")]; ok {
		return &rec
	}
	return nil
}

func matchupKey(player, opponent, statType string) string {
	return normKey(player) + "|" + normKey(opponent) + "|" + strings.ToLower(statType)
}

// sidePrice picks the quoted price for the selected side.
func sidePrice(cand PropCandidate, side Side) *int {
	if side == SideUnder {
		return cand.UnderPrice
	}
	return cand.OverPrice
}

func normKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
