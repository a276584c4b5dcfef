package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/sweetspotdev/prop-edge/internal/engine"
	"github.com/sweetspotdev/prop-edge/pkg/database"
)

type ModelsTestSuite struct {
	suite.Suite
	db *database.DB
}

func (s *ModelsTestSuite) SetupSuite() {
	gormDB, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	s.Require().NoError(err)

	s.db = &database.DB{DB: gormDB}
	s.Require().NoError(AutoMigrate(s.db))
}

func (s *ModelsTestSuite) SetupTest() {
	s.db.Exec("DELETE FROM prop_grades")
	s.db.Exec("DELETE FROM sweet_spot_records")
	s.db.Exec("DELETE FROM matchup_histories")
	s.db.Exec("DELETE FROM player_game_logs")
	s.db.Exec("DELETE FROM prop_lines")
}

func (s *ModelsTestSuite) TestLatestPropLinesSupersedesByCapture() {
	gameDate := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)
	over := -115

	// Same line captured twice, the later capture should win
	s.Require().NoError(s.db.Create(&PropLine{
		PlayerName: "Jayson Tatum",
		StatType:   "points",
		Line:       27.5,
		OverPrice:  &over,
		GameDate:   gameDate,
		CapturedAt: time.Date(2025, 1, 31, 10, 0, 0, 0, time.UTC),
	}).Error)
	moved := -125
	s.Require().NoError(s.db.Create(&PropLine{
		PlayerName: "Jayson Tatum",
		StatType:   "points",
		Line:       27.5,
		OverPrice:  &moved,
		GameDate:   gameDate,
		CapturedAt: time.Date(2025, 1, 31, 14, 0, 0, 0, time.UTC),
	}).Error)

	// Alternate line and a second statistic both survive dedup
	s.Require().NoError(s.db.Create(&PropLine{
		PlayerName: "Jayson Tatum",
		StatType:   "points",
		Line:       29.5,
		GameDate:   gameDate,
		CapturedAt: time.Date(2025, 1, 31, 10, 0, 0, 0, time.UTC),
	}).Error)
	s.Require().NoError(s.db.Create(&PropLine{
		PlayerName: "Jayson Tatum",
		StatType:   "assists",
		Line:       4.5,
		GameDate:   gameDate,
		CapturedAt: time.Date(2025, 1, 31, 10, 0, 0, 0, time.UTC),
	}).Error)

	// A different game date never leaks in
	s.Require().NoError(s.db.Create(&PropLine{
		PlayerName: "Jayson Tatum",
		StatType:   "points",
		Line:       27.5,
		GameDate:   gameDate.AddDate(0, 0, 1),
		CapturedAt: time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC),
	}).Error)

	lines, err := LatestPropLines(s.db, gameDate)
	s.Require().NoError(err)
	s.Require().Len(lines, 3)

	var mainLine *PropLine
	for i := range lines {
		if lines[i].StatType == "points" && lines[i].Line == 27.5 {
			mainLine = &lines[i]
		}
	}
	s.Require().NotNil(mainLine, "moved line should survive as a single snapshot")
	s.Require().NotNil(mainLine.OverPrice)
	assert.Equal(s.T(), -125, *mainLine.OverPrice, "later capture should supersede")
}

func (s *ModelsTestSuite) TestRecentGameLogsDepthPerPlayer() {
	base := time.Date(2025, 1, 30, 0, 0, 0, 0, time.UTC)
	pts := func(v float64) *float64 { return &v }

	for i := 0; i < 6; i++ {
		s.Require().NoError(s.db.Create(&PlayerGameLog{
			PlayerName: "Deep History",
			GameDate:   base.AddDate(0, 0, -i),
			Minutes:    34,
			Points:     pts(float64(20 + i)),
		}).Error)
	}
	for i := 0; i < 2; i++ {
		s.Require().NoError(s.db.Create(&PlayerGameLog{
			PlayerName: "Short History",
			GameDate:   base.AddDate(0, 0, -i),
			Minutes:    20,
			Points:     pts(10),
		}).Error)
	}

	logs, err := RecentGameLogs(s.db, []string{"Deep History", "Short History"}, 4)
	s.Require().NoError(err)

	counts := map[string]int{}
	for _, log := range logs {
		counts[log.PlayerName]++
	}
	assert.Equal(s.T(), 4, counts["Deep History"], "depth should cap the long history")
	assert.Equal(s.T(), 2, counts["Short History"], "short history should be untouched")

	// Most recent first within the fetch
	var deep []PlayerGameLog
	for _, log := range logs {
		if log.PlayerName == "Deep History" {
			deep = append(deep, log)
		}
	}
	for i := 1; i < len(deep); i++ {
		assert.True(s.T(), deep[i-1].GameDate.After(deep[i].GameDate), "logs should be ordered most recent first")
	}
	s.Require().NotNil(deep[0].Points)
	assert.Equal(s.T(), 20.0, *deep[0].Points, "newest log should come first")
}

func (s *ModelsTestSuite) TestGameLogUniquePerPlayerDate() {
	gameDate := time.Date(2025, 1, 30, 0, 0, 0, 0, time.UTC)
	s.Require().NoError(s.db.Create(&PlayerGameLog{
		PlayerName: "Jaylen Brown",
		GameDate:   gameDate,
		Minutes:    36,
	}).Error)

	err := s.db.Create(&PlayerGameLog{
		PlayerName: "Jaylen Brown",
		GameDate:   gameDate,
		Minutes:    36,
	}).Error
	assert.Error(s.T(), err, "duplicate player and game date should violate the unique index")
}

func (s *ModelsTestSuite) TestSweetSpotRecordRoundTrip() {
	analyzed := time.Date(2025, 1, 31, 15, 0, 0, 0, time.UTC)
	result := engine.SweetSpotResult{
		PlayerName: "Derrick White",
		StatType:   engine.StatThrees,
		Team:       "BOS",
		Opponent:   "MIA",
		Side:       engine.SideOver,
		Line:       2.5,
		Last10: engine.WindowStats{
			Min: 1, Max: 6, Avg: 3.2, Median: 3, HitCount: 7, SampleSize: 10,
		},
		Last5: engine.WindowStats{
			Min: 2, Max: 6, Avg: 3.8, Median: 4, HitCount: 4, SampleSize: 5,
		},
		Momentum:        engine.Momentum{Tier: engine.MomentumHot, Ratio: 1.19},
		Production:      engine.Production{Rate: 0.11, AvgMinutes: 33, MinutesRequired: 22.7, Verdict: engine.FeasibilityCanMeet},
		Matchup:         engine.MatchupAnalysis{Boost: 0.10, Trusted: true, Meetings: 3, Avg: 3.7},
		Price:           engine.PriceAnalysis{Price: -105, Boost: 0.10, IsValuePlay: true},
		UsageBoost:      0.03,
		FloorProtection: 0.4,
		Edge:            0.7,
		Score:           71,
		Tier:            engine.TierStrong,
		AnalyzedAt:      analyzed,
	}

	record, err := NewSweetSpotRecord("1b4e28ba-2fa1-11d2-883f-0016d3cca427", time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC), result)
	s.Require().NoError(err)
	s.Require().NoError(s.db.Create(record).Error)

	records, err := SweetSpotsForScan(s.db, "1b4e28ba-2fa1-11d2-883f-0016d3cca427")
	s.Require().NoError(err)
	s.Require().Len(records, 1)

	got := records[0]
	assert.Equal(s.T(), "Derrick White", got.PlayerName)
	assert.Equal(s.T(), "threes", got.StatType)
	assert.Equal(s.T(), "OVER", got.Side)
	assert.Equal(s.T(), 71, got.Score)
	assert.Equal(s.T(), "STRONG", got.Tier)
	assert.Equal(s.T(), 2, got.TierRank)
	assert.Equal(s.T(), -105, got.Price)
	assert.InDelta(s.T(), 0.7, got.HitRate, 1e-9)
	assert.Equal(s.T(), "HOT", got.MomentumTier)
	assert.Equal(s.T(), "CAN_MEET", got.FeasibilityVerdict)
	assert.True(s.T(), got.IsValuePlay)
	assert.True(s.T(), got.MatchupTrusted)

	breakdown, err := got.Breakdown()
	s.Require().NoError(err)
	assert.Equal(s.T(), result.Last10, breakdown.Last10)
	assert.Equal(s.T(), result.Last5, breakdown.Last5)
	assert.Equal(s.T(), result.Matchup, breakdown.Matchup)
}

func (s *ModelsTestSuite) TestSweetSpotsForScanOrder() {
	scanID := "2c5f39cb-3fb2-22e3-994f-1127e4ddb538"
	gameDate := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)
	insert := func(player, statType, tier string, rank, score int) {
		s.Require().NoError(s.db.Create(&SweetSpotRecord{
			ScanID:     scanID,
			GameDate:   gameDate,
			PlayerName: player,
			StatType:   statType,
			Side:       "OVER",
			Line:       20.5,
			Score:      score,
			Tier:       tier,
			TierRank:   rank,
		}).Error)
	}

	insert("Charlie", "points", "STANDARD", 3, 80)
	insert("Alpha", "points", "ELITE", 0, 70)
	insert("Bravo", "points", "ELITE", 0, 90)
	insert("Delta", "assists", "PREMIUM", 1, 75)
	insert("Alpha", "assists", "PREMIUM", 1, 75)

	records, err := SweetSpotsForScan(s.db, scanID)
	s.Require().NoError(err)
	s.Require().Len(records, 5)

	var order []string
	for _, r := range records {
		order = append(order, r.PlayerName+"/"+r.StatType)
	}
	assert.Equal(s.T(), []string{
		"Bravo/points",
		"Alpha/points",
		"Alpha/assists",
		"Delta/assists",
		"Charlie/points",
	}, order, "order should be tier, then score, then name")
}

func (s *ModelsTestSuite) TestPropGradeUniquePerSweetSpot() {
	grade := PropGrade{
		SweetSpotID: 7,
		GameDate:    time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC),
		PlayerName:  "Jrue Holiday",
		StatType:    "assists",
		Side:        "OVER",
		Line:        6.5,
		Outcome:     OutcomeHit,
	}
	s.Require().NoError(s.db.Create(&grade).Error)

	dup := grade
	dup.ID = 0
	assert.Error(s.T(), s.db.Create(&dup).Error, "one grade per sweet spot record")
}

func TestModelsSuite(t *testing.T) {
	suite.Run(t, new(ModelsTestSuite))
}

func TestDetermineOutcome(t *testing.T) {
	tests := []struct {
		name     string
		actual   float64
		line     float64
		side     string
		expected string
	}{
		{"over clears", 31, 27.5, "OVER", OutcomeHit},
		{"over falls short", 25, 27.5, "OVER", OutcomeMiss},
		{"under stays below", 25, 27.5, "UNDER", OutcomeHit},
		{"under blows past", 31, 27.5, "UNDER", OutcomeMiss},
		{"exact line pushes over", 27, 27, "OVER", OutcomePush},
		{"exact line pushes under", 27, 27, "UNDER", OutcomePush},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DetermineOutcome(tt.actual, tt.line, tt.side))
		})
	}
}

func TestToEngineConversions(t *testing.T) {
	usage := 28.5
	pts := 22.0
	log := PlayerGameLog{
		PlayerName: "Payton Pritchard",
		GameDate:   time.Date(2025, 1, 28, 0, 0, 0, 0, time.UTC),
		Minutes:    28,
		Points:     &pts,
		UsageRate:  &usage,
	}
	entry := log.ToEngineEntry()
	assert.Equal(t, "Payton Pritchard", entry.PlayerName)
	assert.Equal(t, 28.0, entry.Minutes)
	assert.Same(t, log.Points, entry.Points)
	assert.Nil(t, entry.Rebounds)

	matchup := MatchupHistory{
		PlayerName: "Payton Pritchard",
		Opponent:   "MIA",
		StatType:   "points",
		Avg:        14.2,
		Min:        8,
		Max:        21,
		Meetings:   4,
	}
	record := matchup.ToEngineRecord()
	assert.Equal(t, 4, record.Meetings)
	assert.Equal(t, "points", record.StatType)

	over := -110
	line := PropLine{
		PlayerName: "Payton Pritchard",
		StatType:   "points",
		Line:       12.5,
		OverPrice:  &over,
	}
	candidate := line.ToCandidate()
	assert.Equal(t, 12.5, candidate.Line)
	assert.Same(t, line.OverPrice, candidate.OverPrice)
	assert.Nil(t, candidate.UnderPrice)
}
