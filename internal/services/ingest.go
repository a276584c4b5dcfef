package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/lib/pq"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/sweetspotdev/prop-edge/internal/engine"
	"github.com/sweetspotdev/prop-edge/internal/models"
	"github.com/sweetspotdev/prop-edge/pkg/database"
)

// PropProvider is the upstream source of prop odds and box scores.
type PropProvider interface {
	FetchPropLines(ctx context.Context, gameDate time.Time) ([]models.PropLine, error)
	FetchGameLogs(ctx context.Context, gameDate time.Time) ([]models.PlayerGameLog, error)
}

// IngestService pulls odds snapshots and completed box scores from the
// provider on a schedule, keeping the matchup aggregates in sync with the
// logs as they land.
type IngestService struct {
	db            *database.DB
	provider      PropProvider
	logger        *logrus.Logger
	cron          *cron.Cron
	mu            sync.Mutex
	isRunning     bool
	fetchInterval time.Duration
}

// NewIngestService creates a new ingest service
func NewIngestService(db *database.DB, provider PropProvider, logger *logrus.Logger, fetchInterval time.Duration) *IngestService {
	return &IngestService{
		db:            db,
		provider:      provider,
		logger:        logger,
		cron:          cron.New(),
		fetchInterval: fetchInterval,
	}
}

// Start schedules the recurring refresh cycle.
func (s *IngestService) Start(runInitialFetch bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("ingest service is already running")
	}

	schedule := fmt.Sprintf("@every %s", s.fetchInterval.String())
	_, err := s.cron.AddFunc(schedule, s.runScheduledRefresh)
	if err != nil {
		return fmt.Errorf("failed to schedule ingest: %w", err)
	}

	s.cron.Start()
	s.isRunning = true

	if runInitialFetch {
		go s.runScheduledRefresh()
	}

	s.logger.Info("Ingest service started")
	return nil
}

// Stop halts the scheduled refreshes.
func (s *IngestService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()

	s.isRunning = false
	s.logger.Info("Ingest service stopped")
}

func (s *IngestService) runScheduledRefresh() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if err := s.RefreshAll(ctx); err != nil {
		s.logger.Errorf("Scheduled refresh failed: %v", err)
	}
}

// RefreshAll pulls today's odds board and yesterday's box scores. Either
// half can fail independently; the other still lands.
func (s *IngestService) RefreshAll(ctx context.Context) error {
	today := NormalizeGameDate(time.Now().UTC())
	yesterday := today.AddDate(0, 0, -1)

	var errs []error
	if _, err := s.RefreshPropLines(ctx, today); err != nil {
		errs = append(errs, fmt.Errorf("prop lines: %w", err))
	}
	if _, err := s.RefreshGameLogs(ctx, yesterday); err != nil {
		errs = append(errs, fmt.Errorf("game logs: %w", err))
	}
	return errors.Join(errs...)
}

// RefreshPropLines captures the current odds board for a game date. Every
// quote is stored as a new snapshot; nothing is overwritten. Replaying a
// capture hits the snapshot unique index and is skipped, so a retried batch
// cannot double-count the board.
func (s *IngestService) RefreshPropLines(ctx context.Context, gameDate time.Time) (int, error) {
	gameDate = NormalizeGameDate(gameDate)

	lines, err := s.provider.FetchPropLines(ctx, gameDate)
	if err != nil {
		return 0, err
	}

	stored := 0
	skipped := 0
	for i := range lines {
		lines[i].GameDate = NormalizeGameDate(lines[i].GameDate)
		if err := s.db.WithContext(ctx).Create(&lines[i]).Error; err != nil {
			if isUniqueViolation(err) {
				skipped++
				continue
			}
			s.logger.Warnf("Failed to store prop line for %s: %v", lines[i].PlayerName, err)
			continue
		}
		stored++
	}

	s.logger.WithFields(logrus.Fields{
		"game_date": gameDate.Format("2006-01-02"),
		"stored":    stored,
		"skipped":   skipped,
	}).Info("Prop lines refreshed")
	return stored, nil
}

// RefreshGameLogs upserts the box scores for a game date and rebuilds the
// matchup aggregates of every player who appeared. Re-running a date is
// safe: rows update in place under the player and date unique index.
func (s *IngestService) RefreshGameLogs(ctx context.Context, gameDate time.Time) (int, error) {
	gameDate = NormalizeGameDate(gameDate)

	logs, err := s.provider.FetchGameLogs(ctx, gameDate)
	if err != nil {
		return 0, err
	}

	playerSet := make(map[string]bool, len(logs))
	stored := 0
	for i := range logs {
		logs[i].GameDate = NormalizeGameDate(logs[i].GameDate)
		if err := s.upsertGameLog(ctx, &logs[i]); err != nil {
			s.logger.Warnf("Failed to store game log for %s: %v", logs[i].PlayerName, err)
			continue
		}
		playerSet[logs[i].PlayerName] = true
		stored++
	}

	players := make([]string, 0, len(playerSet))
	for name := range playerSet {
		players = append(players, name)
	}
	sort.Strings(players)

	if err := s.RebuildMatchups(ctx, players); err != nil {
		return stored, fmt.Errorf("matchup rebuild: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"game_date": gameDate.Format("2006-01-02"),
		"stored":    stored,
	}).Info("Game logs refreshed")
	return stored, nil
}

func (s *IngestService) upsertGameLog(ctx context.Context, log *models.PlayerGameLog) error {
	err := s.db.WithContext(ctx).Create(log).Error
	if err == nil {
		return nil
	}
	if !isUniqueViolation(err) {
		return err
	}

	return s.db.WithContext(ctx).Model(&models.PlayerGameLog{}).
		Where("player_name = ? AND game_date = ?", log.PlayerName, log.GameDate).
		Updates(map[string]interface{}{
			"team":       log.Team,
			"opponent":   log.Opponent,
			"minutes":    log.Minutes,
			"points":     log.Points,
			"rebounds":   log.Rebounds,
			"assists":    log.Assists,
			"threes":     log.Threes,
			"blocks":     log.Blocks,
			"usage_rate": log.UsageRate,
		}).Error
}

// isUniqueViolation reports whether an insert failed on a unique index, for
// postgres in production and sqlite in tests.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key")
}

// RebuildMatchups recomputes per-opponent aggregates for the given players
// from their stored logs, one row per statistic with at least one sample.
func (s *IngestService) RebuildMatchups(ctx context.Context, players []string) error {
	if len(players) == 0 {
		return nil
	}

	var logs []models.PlayerGameLog
	err := s.db.WithContext(ctx).
		Where("player_name IN ?", players).
		Find(&logs).Error
	if err != nil {
		return err
	}

	type pairKey struct {
		player   string
		opponent string
	}
	byPair := make(map[pairKey][]models.PlayerGameLog)
	for i := range logs {
		if logs[i].Opponent == "" {
			continue
		}
		key := pairKey{player: logs[i].PlayerName, opponent: logs[i].Opponent}
		byPair[key] = append(byPair[key], logs[i])
	}

	statTypes := []engine.StatType{
		engine.StatPoints,
		engine.StatAssists,
		engine.StatThrees,
		engine.StatBlocks,
		engine.StatPRA,
	}

	for key, pairLogs := range byPair {
		for _, statType := range statTypes {
			matchup := aggregateMatchup(key.player, key.opponent, statType, pairLogs)
			if matchup == nil {
				continue
			}
			if err := s.upsertMatchup(ctx, matchup); err != nil {
				return fmt.Errorf("failed to store matchup %s vs %s: %w", key.player, key.opponent, err)
			}
		}
	}
	return nil
}

// aggregateMatchup folds a player's logs against one opponent into a single
// per-statistic row, nil when no game recorded the statistic.
func aggregateMatchup(player, opponent string, statType engine.StatType, logs []models.PlayerGameLog) *models.MatchupHistory {
	matchup := &models.MatchupHistory{
		PlayerName: player,
		Opponent:   opponent,
		StatType:   string(statType),
	}

	sum := 0.0
	for i := range logs {
		v, ok := statType.Value(logs[i].ToEngineEntry())
		if !ok {
			continue
		}
		if matchup.Meetings == 0 || v < matchup.Min {
			matchup.Min = v
		}
		if matchup.Meetings == 0 || v > matchup.Max {
			matchup.Max = v
		}
		if logs[i].GameDate.After(matchup.LastMeeting) {
			matchup.LastMeeting = logs[i].GameDate
		}
		sum += v
		matchup.Meetings++
	}

	if matchup.Meetings == 0 {
		return nil
	}
	matchup.Avg = sum / float64(matchup.Meetings)
	return matchup
}

func (s *IngestService) upsertMatchup(ctx context.Context, matchup *models.MatchupHistory) error {
	var existing models.MatchupHistory
	err := s.db.WithContext(ctx).
		Where("player_name = ? AND opponent = ? AND stat_type = ?",
			matchup.PlayerName, matchup.Opponent, matchup.StatType).
		First(&existing).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return s.db.WithContext(ctx).Create(matchup).Error
		}
		return err
	}

	return s.db.WithContext(ctx).Model(&existing).
		Updates(map[string]interface{}{
			"avg":          matchup.Avg,
			"min":          matchup.Min,
			"max":          matchup.Max,
			"meetings":     matchup.Meetings,
			"last_meeting": matchup.LastMeeting,
		}).Error
}
