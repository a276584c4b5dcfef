package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// steadyScorer has the book-beating profile from every angle: line 17.5
// against [20,22,18,25,19,21,23,20,24,19].
func steadyScorer() []GameLogEntry {
	return logsFromPoints("Steady Scorer", []float64{20, 22, 18, 25, 19, 21, 23, 20, 24, 19})
}

func candidate(player, statType string, line float64) PropCandidate {
	return PropCandidate{
		PlayerName: player,
		Team:       "BOS",
		Opponent:   "MIA",
		StatType:   statType,
		Line:       line,
		StartTime:  time.Date(2025, 1, 31, 19, 30, 0, 0, time.UTC),
	}
}

func TestRunFullFloorOver(t *testing.T) {
	eng := New(DefaultConfig())

	out, err := eng.Run(context.Background(), Input{
		Candidates: []PropCandidate{candidate("Steady Scorer", "points", 17.5)},
		GameLogs:   steadyScorer(),
	})
	require.NoError(t, err)
	require.Len(t, out.Results, 1)

	r := out.Results[0]
	assert.Equal(t, SideOver, r.Side, "a minimum above the line locks OVER")
	assert.Equal(t, 18.0, r.Last10.Min)
	assert.Equal(t, 10, r.Last10.HitCount, "every sampled game cleared the line")
	assert.InDelta(t, 1.0, r.Last10.HitRate(), 1e-9)
	assert.GreaterOrEqual(t, r.FloorProtection, 1.0)
	assert.Equal(t, TierElite, r.Tier)
	assert.GreaterOrEqual(t, r.Score, 0)
	assert.LessOrEqual(t, r.Score, 100)
}

func TestRunCeilingUnder(t *testing.T) {
	eng := New(DefaultConfig())

	out, err := eng.Run(context.Background(), Input{
		Candidates: []PropCandidate{candidate("Steady Scorer", "points", 26)},
		GameLogs:   steadyScorer(),
	})
	require.NoError(t, err)
	require.Len(t, out.Results, 1)

	r := out.Results[0]
	assert.Equal(t, SideUnder, r.Side, "a maximum below the line locks UNDER")
	assert.Equal(t, 25.0, r.Last10.Max)
	assert.Equal(t, 10, r.Last10.HitCount)
}

func TestRunExcludesUnmappedStat(t *testing.T) {
	eng := New(DefaultConfig())

	out, err := eng.Run(context.Background(), Input{
		Candidates: []PropCandidate{candidate("Steady Scorer", "steals", 1.5)},
		GameLogs:   steadyScorer(),
	})
	require.NoError(t, err)
	assert.Empty(t, out.Results, "unsupported stat types are dropped at the boundary")
}

func TestRunExcludesSmallSample(t *testing.T) {
	eng := New(DefaultConfig())

	out, err := eng.Run(context.Background(), Input{
		Candidates: []PropCandidate{candidate("Part Timer", "points", 10.5)},
		GameLogs:   logsFromPoints("Part Timer", []float64{12, 14, 11, 13}),
	})
	require.NoError(t, err)
	assert.Empty(t, out.Results, "fewer than five valid games is an insufficient sample")
}

func TestRunDiscardsWeakAvoid(t *testing.T) {
	eng := New(DefaultConfig())

	// Scattered outcomes with three exact pushes: the better side still hits
	// only 4 of 10.
	logs := logsFromPoints("Coin Flip", []float64{10, 30, 8, 31, 20, 29, 12, 28, 20, 20})

	out, err := eng.Run(context.Background(), Input{
		Candidates: []PropCandidate{candidate("Coin Flip", "points", 20)},
		GameLogs:   logs,
	})
	require.NoError(t, err)
	assert.Empty(t, out.Results, "AVOID with a losing hit rate is discarded, not deprioritized")
}

func TestRunDeduplicatesByFloorThenScore(t *testing.T) {
	eng := New(DefaultConfig())

	// Two quoted lines for the same player and stat: the lower line carries
	// the higher floor protection and must survive.
	low := candidate("Steady Scorer", "points", 16.5)
	high := candidate("Steady Scorer", "points", 17.5)

	out, err := eng.Run(context.Background(), Input{
		Candidates: []PropCandidate{high, low},
		GameLogs:   steadyScorer(),
	})
	require.NoError(t, err)
	require.Len(t, out.Results, 1, "duplicate player+stat keys collapse to one")
	assert.Equal(t, 16.5, out.Results[0].Line)

	// Key comparison ignores case.
	lowUpper := low
	lowUpper.PlayerName = "STEADY SCORER"
	out, err = eng.Run(context.Background(), Input{
		Candidates: []PropCandidate{high, lowUpper},
		GameLogs:   steadyScorer(),
	})
	require.NoError(t, err)
	require.Len(t, out.Results, 1)
	assert.Equal(t, 16.5, out.Results[0].Line)
}

func TestRunOrdersTierThenScore(t *testing.T) {
	eng := New(DefaultConfig())

	logs := steadyScorer()
	logs = append(logs, logsFromPoints("Good Not Great", []float64{20, 14, 22, 19, 13, 21, 18, 20, 12, 23})...)

	out, err := eng.Run(context.Background(), Input{
		Candidates: []PropCandidate{
			candidate("Good Not Great", "points", 15.5),
			candidate("Steady Scorer", "points", 17.5),
		},
		GameLogs: logs,
	})
	require.NoError(t, err)
	require.Len(t, out.Results, 2)

	for i := 1; i < len(out.Results); i++ {
		prev, cur := out.Results[i-1], out.Results[i]
		betterTier := prev.Tier.Rank() < cur.Tier.Rank()
		sameTierOrdered := prev.Tier.Rank() == cur.Tier.Rank() && prev.Score >= cur.Score
		assert.True(t, betterTier || sameTierOrdered, "results must be ordered tier first, score second")
	}
	assert.Equal(t, "Steady Scorer", out.Results[0].PlayerName)
}

func TestRunIdempotent(t *testing.T) {
	eng := New(DefaultConfig())

	logs := append(steadyScorer(), logsFromPoints("Good Not Great", []float64{20, 14, 22, 19, 13, 21, 18, 20, 12, 23})...)
	input := Input{
		Candidates: []PropCandidate{
			candidate("Steady Scorer", "points", 17.5),
			candidate("Steady Scorer", "pra", 30.5),
			candidate("Good Not Great", "points", 15.5),
		},
		GameLogs: logs,
	}

	first, err := eng.Run(context.Background(), input)
	require.NoError(t, err)
	second, err := eng.Run(context.Background(), input)
	require.NoError(t, err)

	require.Equal(t, len(first.Results), len(second.Results))
	for i := range first.Results {
		a, b := first.Results[i], second.Results[i]
		// Only the analysis timestamp may differ between runs.
		a.AnalyzedAt = time.Time{}
		b.AnalyzedAt = time.Time{}
		assert.Equal(t, a, b, "re-scoring identical inputs must produce identical ordered output")
	}
	assert.Equal(t, first.Summary, second.Summary)
}

func TestRunSummary(t *testing.T) {
	eng := New(DefaultConfig())

	logs := steadyScorer()
	logs = append(logs, logsFromPoints("Second Player", []float64{30, 28, 32, 29, 31, 30, 33, 28, 30, 29})...)

	second := candidate("Second Player", "points", 24.5)
	second.Team = "DEN"

	out, err := eng.Run(context.Background(), Input{
		Candidates: []PropCandidate{
			candidate("Steady Scorer", "points", 17.5),
			second,
		},
		GameLogs: logs,
	})
	require.NoError(t, err)
	require.Len(t, out.Results, 2)

	assert.Equal(t, 2, out.Summary.Total)
	assert.Equal(t, 2, out.Summary.DistinctTeams)
	assert.Equal(t, 2, out.Summary.ByStatType[StatPoints])

	tierTotal := 0
	for _, n := range out.Summary.ByTier {
		tierTotal += n
	}
	assert.Equal(t, out.Summary.Total, tierTotal)
}

func TestRunMatchupLookupPrefersStatSpecific(t *testing.T) {
	eng := New(DefaultConfig())

	input := Input{
		Candidates: []PropCandidate{candidate("Steady Scorer", "points", 17.5)},
		GameLogs:   steadyScorer(),
		Matchups: []MatchupRecord{
			{PlayerName: "Steady Scorer", Opponent: "MIA", StatType: "points", Avg: 28, Min: 22, Max: 34, Meetings: 3},
			{PlayerName: "Steady Scorer", Opponent: "MIA", Avg: 10, Min: 5, Max: 15, Meetings: 3},
		},
	}

	out, err := eng.Run(context.Background(), input)
	require.NoError(t, err)
	require.Len(t, out.Results, 1)
	assert.InDelta(t, 0.15, out.Results[0].Matchup.Boost, 1e-9, "stat-specific record should win over the aggregate")
}

func TestRunRespectsCancellation(t *testing.T) {
	eng := New(DefaultConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := eng.Run(ctx, Input{
		Candidates: []PropCandidate{candidate("Steady Scorer", "points", 17.5)},
		GameLogs:   steadyScorer(),
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunUnorderedLogs(t *testing.T) {
	eng := New(DefaultConfig())

	// Oldest-first input must produce the same window as recent-first.
	logs := steadyScorer()
	reversed := make([]GameLogEntry, 0, len(logs))
	for i := len(logs) - 1; i >= 0; i-- {
		reversed = append(reversed, logs[i])
	}

	out, err := eng.Run(context.Background(), Input{
		Candidates: []PropCandidate{candidate("Steady Scorer", "points", 17.5)},
		GameLogs:   reversed,
	})
	require.NoError(t, err)
	require.Len(t, out.Results, 1)
	assert.Equal(t, 18.0, out.Results[0].Last10.Min)
	assert.Equal(t, 10, out.Results[0].Last10.SampleSize)
}
