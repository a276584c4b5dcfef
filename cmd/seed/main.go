package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sweetspotdev/prop-edge/internal/models"
	"github.com/sweetspotdev/prop-edge/internal/services"
	"github.com/sweetspotdev/prop-edge/pkg/config"
	"github.com/sweetspotdev/prop-edge/pkg/database"
)

// Development fixture loader. Seeds a realistic board for today so the
// dashboard has something to scan without a provider key.
func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: seed [fixtures|wipe]")
	}

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	// Connect to database
	db, err := database.NewConnection(cfg.DatabaseURL, cfg.IsDevelopment())
	if err != nil {
		logrus.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := models.AutoMigrate(db); err != nil {
		logrus.Fatalf("Failed to migrate database: %v", err)
	}

	command := os.Args[1]

	switch command {
	case "fixtures":
		if err := seedFixtures(db); err != nil {
			logrus.Fatalf("Failed to seed fixtures: %v", err)
		}
		logrus.Info("Fixtures seeded successfully")

	case "wipe":
		if err := wipeData(db); err != nil {
			logrus.Fatalf("Failed to wipe data: %v", err)
		}
		logrus.Info("Data wiped successfully")

	default:
		log.Fatalf("Unknown command: %s", command)
	}
}

type seedPlayer struct {
	name     string
	team     string
	opponent string
	minutes  float64
	usage    float64
	points   []float64
	rebounds []float64
	assists  []float64
	threes   []float64
	blocks   []float64
}

type seedLine struct {
	player     string
	statType   string
	line       float64
	overPrice  int
	underPrice int
}

func seedFixtures(db *database.DB) error {
	gameDate := services.NormalizeGameDate(time.Now().UTC())
	capturedAt := time.Now().UTC()

	players := []seedPlayer{
		{
			name: "Jayson Tatum", team: "BOS", opponent: "MIA", minutes: 36.5, usage: 29.8,
			points:   []float64{31, 28, 35, 26, 30, 29, 33, 27, 32, 28, 25, 30},
			rebounds: []float64{8, 9, 7, 10, 8, 6, 9, 8, 11, 7, 8, 9},
			assists:  []float64{5, 4, 6, 5, 3, 5, 4, 6, 5, 4, 5, 3},
			threes:   []float64{4, 3, 5, 2, 4, 3, 4, 3, 5, 3, 2, 4},
		},
		{
			name: "Nikola Jokic", team: "DEN", opponent: "LAL", minutes: 35.0, usage: 31.2,
			points:   []float64{26, 29, 24, 31, 27, 25, 30, 28, 26, 32, 24, 27},
			rebounds: []float64{13, 11, 14, 12, 15, 12, 10, 13, 14, 11, 12, 13},
			assists:  []float64{10, 9, 12, 8, 11, 10, 9, 12, 10, 9, 11, 8},
		},
		{
			name: "Stephen Curry", team: "GSW", opponent: "PHX", minutes: 33.5, usage: 28.4,
			points: []float64{32, 29, 36, 27, 34, 30, 28, 33, 26, 31, 29, 35},
			threes: []float64{6, 5, 7, 4, 6, 5, 5, 6, 4, 5, 5, 7},
		},
		{
			name: "Victor Wembanyama", team: "SAS", opponent: "HOU", minutes: 31.0, usage: 27.6,
			points:   []float64{22, 25, 20, 27, 23, 21, 26, 24, 22, 28, 19, 23},
			rebounds: []float64{11, 10, 12, 9, 13, 11, 10, 12, 11, 9, 12, 10},
			blocks:   []float64{4, 3, 5, 4, 3, 4, 5, 3, 4, 4, 2, 5},
		},
		{
			name: "Tyrese Haliburton", team: "IND", opponent: "CLE", minutes: 34.0, usage: 24.9,
			points:  []float64{20, 18, 23, 17, 21, 19, 22, 18, 20, 24, 16, 19},
			assists: []float64{12, 11, 13, 10, 12, 11, 14, 10, 12, 11, 9, 12},
		},
		{
			name: "Anthony Edwards", team: "MIN", opponent: "OKC", minutes: 35.5, usage: 30.1,
			points: []float64{27, 22, 31, 19, 29, 24, 21, 33, 20, 26, 23, 28},
			threes: []float64{3, 2, 4, 1, 3, 2, 2, 5, 1, 3, 2, 4},
		},
	}

	lines := []seedLine{
		{player: "Jayson Tatum", statType: "points", line: 27.5, overPrice: -115, underPrice: -105},
		{player: "Nikola Jokic", statType: "pra", line: 47.5, overPrice: -120, underPrice: -110},
		{player: "Nikola Jokic", statType: "assists", line: 9.5, overPrice: -110, underPrice: -110},
		{player: "Stephen Curry", statType: "threes", line: 4.5, overPrice: -105, underPrice: -115},
		{player: "Victor Wembanyama", statType: "blocks", line: 3.5, overPrice: -130, underPrice: 100},
		{player: "Tyrese Haliburton", statType: "assists", line: 10.5, overPrice: -110, underPrice: -110},
		{player: "Anthony Edwards", statType: "points", line: 26.5, overPrice: -110, underPrice: -110},
	}

	byName := make(map[string]*seedPlayer, len(players))
	for i := range players {
		byName[players[i].name] = &players[i]
	}

	logCount := 0
	for _, p := range players {
		for i := range p.points {
			entry := models.PlayerGameLog{
				PlayerName: p.name,
				Team:       p.team,
				Opponent:   p.opponent,
				GameDate:   gameDate.AddDate(0, 0, -(i + 1)),
				Minutes:    p.minutes,
				Points:     ptr(p.points[i]),
				UsageRate:  ptr(p.usage),
			}
			if len(p.rebounds) > i {
				entry.Rebounds = ptr(p.rebounds[i])
			}
			if len(p.assists) > i {
				entry.Assists = ptr(p.assists[i])
			}
			if len(p.threes) > i {
				entry.Threes = ptr(p.threes[i])
			}
			if len(p.blocks) > i {
				entry.Blocks = ptr(p.blocks[i])
			}
			if err := db.Create(&entry).Error; err != nil {
				return fmt.Errorf("failed to create game log: %w", err)
			}
			logCount++
		}
	}

	for _, l := range lines {
		p, ok := byName[l.player]
		if !ok {
			return fmt.Errorf("line references unknown player %s", l.player)
		}
		over := l.overPrice
		under := l.underPrice
		propLine := models.PropLine{
			PlayerName:      l.player,
			Team:            p.team,
			Opponent:        p.opponent,
			StatType:        l.statType,
			Line:            l.line,
			OverPrice:       &over,
			UnderPrice:      &under,
			GameDate:        gameDate,
			GameDescription: fmt.Sprintf("%s @ %s", p.opponent, p.team),
			StartTime:       gameDate.Add(19 * time.Hour),
			Source:          "seed",
			CapturedAt:      capturedAt,
		}
		if err := db.Create(&propLine).Error; err != nil {
			return fmt.Errorf("failed to create prop line: %w", err)
		}
	}

	matchups := []models.MatchupHistory{
		{PlayerName: "Jayson Tatum", Opponent: "MIA", StatType: "points", Avg: 29.3, Min: 24, Max: 36, Meetings: 4, LastMeeting: gameDate.AddDate(0, 0, -21)},
		{PlayerName: "Stephen Curry", Opponent: "PHX", StatType: "threes", Avg: 5.3, Min: 4, Max: 7, Meetings: 3, LastMeeting: gameDate.AddDate(0, 0, -14)},
		{PlayerName: "Anthony Edwards", Opponent: "OKC", StatType: "points", Avg: 22.5, Min: 17, Max: 28, Meetings: 4, LastMeeting: gameDate.AddDate(0, 0, -9)},
	}
	for i := range matchups {
		if err := db.Create(&matchups[i]).Error; err != nil {
			return fmt.Errorf("failed to create matchup history: %w", err)
		}
	}

	logrus.Infof("Seeded %d prop lines, %d game logs, %d matchups for %s",
		len(lines), logCount, len(matchups), gameDate.Format("2006-01-02"))
	return nil
}

func wipeData(db *database.DB) error {
	// Delete in dependency order
	tables := []string{
		"prop_grades",
		"sweet_spot_records",
		"matchup_histories",
		"player_game_logs",
		"prop_lines",
	}

	for _, table := range tables {
		if err := db.Exec(fmt.Sprintf("DELETE FROM %s", table)).Error; err != nil {
			return fmt.Errorf("failed to wipe table %s: %w", table, err)
		}
	}

	return nil
}

func ptr(v float64) *float64 {
	return &v
}
