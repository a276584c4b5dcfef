package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/sweetspotdev/prop-edge/internal/engine"
	"github.com/sweetspotdev/prop-edge/internal/models"
	"github.com/sweetspotdev/prop-edge/pkg/database"
)

// ErrScanInProgress is returned when a scan is requested while another scan
// is still running. Scans are serialized; callers retry rather than queue.
var ErrScanInProgress = errors.New("scan already in progress")

// ScanResult summarizes one completed scan.
type ScanResult struct {
	ScanID     string         `json:"scan_id"`
	GameDate   time.Time      `json:"game_date"`
	Candidates int            `json:"candidates"`
	Kept       int            `json:"kept"`
	Summary    engine.Summary `json:"summary"`
	DurationMS int64          `json:"duration_ms"`
	AnalyzedAt time.Time      `json:"analyzed_at"`
}

// ScanService runs the scoring engine over the stored prop snapshots on a
// schedule and on demand, persisting each scan as a replacement set of
// sweet spot records.
type ScanService struct {
	db           *database.DB
	cache        *CacheService
	engine       *engine.Engine
	logger       *logrus.Logger
	cron         *cron.Cron
	mu           sync.Mutex
	scanMu       sync.Mutex
	isRunning    bool
	scanInterval time.Duration
	cacheTTL     time.Duration
	gameLogDepth int
	retentionDay int
	lastScanID   string
	lastScanAt   time.Time
}

// NewScanService creates a new scan service
func NewScanService(
	db *database.DB,
	cache *CacheService,
	eng *engine.Engine,
	logger *logrus.Logger,
	scanInterval time.Duration,
	cacheTTL time.Duration,
	gameLogDepth int,
	retentionDays int,
) *ScanService {
	return &ScanService{
		db:           db,
		cache:        cache,
		engine:       eng,
		logger:       logger,
		cron:         cron.New(),
		scanInterval: scanInterval,
		cacheTTL:     cacheTTL,
		gameLogDepth: gameLogDepth,
		retentionDay: retentionDays,
	}
}

// Start schedules recurring scans and the nightly cleanup.
func (s *ScanService) Start(runInitialScan bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scan service is already running")
	}

	schedule := fmt.Sprintf("@every %s", s.scanInterval.String())
	_, err := s.cron.AddFunc(schedule, s.runScheduledScan)
	if err != nil {
		return fmt.Errorf("failed to schedule scans: %w", err)
	}

	// Nightly cleanup of snapshots and scans past the retention window
	_, err = s.cron.AddFunc("0 3 * * *", s.cleanupOldData)
	if err != nil {
		return fmt.Errorf("failed to schedule cleanup: %w", err)
	}

	s.cron.Start()
	s.isRunning = true

	if runInitialScan {
		go s.runScheduledScan()
	}

	s.logger.Info("Scan service started")
	return nil
}

// Stop halts the scheduled scans.
func (s *ScanService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()

	s.isRunning = false
	s.logger.Info("Scan service stopped")
}

func (s *ScanService) runScheduledScan() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if _, err := s.RunScan(ctx, time.Now().UTC()); err != nil {
		if errors.Is(err, ErrScanInProgress) {
			s.logger.Warn("Skipping scheduled scan, previous scan still running")
			return
		}
		s.logger.Errorf("Scheduled scan failed: %v", err)
	}
}

// RunScan scores every current prop snapshot for the game date and replaces
// that date's persisted results. Only one scan runs at a time; a second
// request while one is in flight gets ErrScanInProgress.
func (s *ScanService) RunScan(ctx context.Context, gameDate time.Time) (*ScanResult, error) {
	if !s.scanMu.TryLock() {
		return nil, ErrScanInProgress
	}
	defer s.scanMu.Unlock()

	gameDate = NormalizeGameDate(gameDate)
	scanID := uuid.New().String()
	started := time.Now()

	log := s.logger.WithFields(logrus.Fields{
		"scan_id":   scanID,
		"game_date": gameDate.Format("2006-01-02"),
	})
	log.Info("Scan started")

	input, candidates, err := s.loadInput(gameDate)
	if err != nil {
		return nil, fmt.Errorf("failed to load scan input: %w", err)
	}

	output, err := s.engine.Run(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("engine run failed: %w", err)
	}

	records := make([]*models.SweetSpotRecord, 0, len(output.Results))
	for _, result := range output.Results {
		record, err := models.NewSweetSpotRecord(scanID, gameDate, result)
		if err != nil {
			return nil, fmt.Errorf("failed to build record for %s: %w", result.PlayerName, err)
		}
		records = append(records, record)
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("game_date = ?", gameDate).Delete(&models.SweetSpotRecord{}).Error; err != nil {
			return err
		}
		for _, record := range records {
			if err := tx.Create(record).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to persist scan: %w", err)
	}

	s.cacheScan(ctx, gameDate, records, output.Summary)

	s.mu.Lock()
	s.lastScanID = scanID
	s.lastScanAt = time.Now().UTC()
	s.mu.Unlock()

	result := &ScanResult{
		ScanID:     scanID,
		GameDate:   gameDate,
		Candidates: candidates,
		Kept:       len(output.Results),
		Summary:    output.Summary,
		DurationMS: time.Since(started).Milliseconds(),
		AnalyzedAt: time.Now().UTC(),
	}

	log.WithFields(logrus.Fields{
		"candidates":  candidates,
		"kept":        result.Kept,
		"duration_ms": result.DurationMS,
	}).Info("Scan completed")

	return result, nil
}

// loadInput assembles the engine input from the stored snapshots, logs and
// matchup history for one game date.
func (s *ScanService) loadInput(gameDate time.Time) (engine.Input, int, error) {
	lines, err := models.LatestPropLines(s.db, gameDate)
	if err != nil {
		return engine.Input{}, 0, err
	}

	playerSet := make(map[string]bool, len(lines))
	players := make([]string, 0, len(lines))
	candidates := make([]engine.PropCandidate, 0, len(lines))
	for i := range lines {
		candidates = append(candidates, lines[i].ToCandidate())
		if !playerSet[lines[i].PlayerName] {
			playerSet[lines[i].PlayerName] = true
			players = append(players, lines[i].PlayerName)
		}
	}

	logs, err := models.RecentGameLogs(s.db, players, s.gameLogDepth)
	if err != nil {
		return engine.Input{}, 0, err
	}
	entries := make([]engine.GameLogEntry, 0, len(logs))
	for i := range logs {
		entries = append(entries, logs[i].ToEngineEntry())
	}

	matchups, err := models.MatchupsForPlayers(s.db, players)
	if err != nil {
		return engine.Input{}, 0, err
	}
	records := make([]engine.MatchupRecord, 0, len(matchups))
	for i := range matchups {
		records = append(records, matchups[i].ToEngineRecord())
	}

	return engine.Input{
		Candidates: candidates,
		GameLogs:   entries,
		Matchups:   records,
	}, len(candidates), nil
}

func (s *ScanService) cacheScan(ctx context.Context, gameDate time.Time, records []*models.SweetSpotRecord, summary engine.Summary) {
	if err := s.cache.SetWithRetry(ctx, SweetSpotsCacheKey(gameDate), records, s.cacheTTL, 3); err != nil {
		s.logger.Warnf("Failed to cache scan results: %v", err)
	}
	if err := s.cache.SetWithRetry(ctx, SummaryCacheKey(gameDate), summary, s.cacheTTL, 3); err != nil {
		s.logger.Warnf("Failed to cache scan summary: %v", err)
	}
}

// GetSweetSpots returns the most recent scan's records for a game date,
// serving from cache when warm and falling back to the database.
func (s *ScanService) GetSweetSpots(ctx context.Context, gameDate time.Time) ([]models.SweetSpotRecord, error) {
	gameDate = NormalizeGameDate(gameDate)

	var cached []models.SweetSpotRecord
	if err := s.cache.Get(ctx, SweetSpotsCacheKey(gameDate), &cached); err == nil {
		return cached, nil
	}

	scanID, err := models.LatestScanID(s.db, gameDate)
	if err != nil {
		return nil, err
	}
	if scanID == "" {
		return nil, nil
	}

	records, err := models.SweetSpotsForScan(s.db, scanID)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, SweetSpotsCacheKey(gameDate), records, s.cacheTTL); err != nil {
		s.logger.Warnf("Failed to warm sweet spots cache: %v", err)
	}
	return records, nil
}

// GetSummary returns the tier and statistic distribution of the most recent
// scan for a game date.
func (s *ScanService) GetSummary(ctx context.Context, gameDate time.Time) (*engine.Summary, error) {
	gameDate = NormalizeGameDate(gameDate)

	var cached engine.Summary
	if err := s.cache.Get(ctx, SummaryCacheKey(gameDate), &cached); err == nil {
		return &cached, nil
	}

	records, err := s.GetSweetSpots(ctx, gameDate)
	if err != nil {
		return nil, err
	}

	summary := summarizeRecords(records)
	if err := s.cache.Set(ctx, SummaryCacheKey(gameDate), summary, s.cacheTTL); err != nil {
		s.logger.Warnf("Failed to warm summary cache: %v", err)
	}
	return summary, nil
}

// summarizeRecords rebuilds a scan summary from persisted records, used when
// the cached summary has expired.
func summarizeRecords(records []models.SweetSpotRecord) *engine.Summary {
	summary := &engine.Summary{
		Total:      len(records),
		ByTier:     make(map[engine.Tier]int),
		ByStatType: make(map[engine.StatType]int),
	}

	teams := make(map[string]bool)
	for _, record := range records {
		summary.ByTier[engine.Tier(record.Tier)]++
		summary.ByStatType[engine.StatType(record.StatType)]++
		if record.Team != "" {
			teams[record.Team] = true
		}
	}
	summary.DistinctTeams = len(teams)
	return summary
}

func (s *ScanService) cleanupOldData() {
	cutoff := NormalizeGameDate(time.Now().UTC()).AddDate(0, 0, -s.retentionDay)

	result := s.db.Where("game_date < ?", cutoff).Delete(&models.SweetSpotRecord{})
	if result.Error != nil {
		s.logger.Errorf("Failed to clean up old sweet spots: %v", result.Error)
	} else if result.RowsAffected > 0 {
		s.logger.Infof("Cleaned up %d sweet spot records before %s", result.RowsAffected, cutoff.Format("2006-01-02"))
	}

	result = s.db.Where("game_date < ?", cutoff).Delete(&models.PropLine{})
	if result.Error != nil {
		s.logger.Errorf("Failed to clean up old prop lines: %v", result.Error)
	} else if result.RowsAffected > 0 {
		s.logger.Infof("Cleaned up %d prop line snapshots before %s", result.RowsAffected, cutoff.Format("2006-01-02"))
	}
}

// Status reports the scheduler state for the health endpoint.
func (s *ScanService) Status() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.cron.Entries()
	nextRuns := make([]time.Time, 0, len(entries))
	for _, entry := range entries {
		nextRuns = append(nextRuns, entry.Next)
	}

	status := map[string]interface{}{
		"is_running":    s.isRunning,
		"scan_interval": s.scanInterval.String(),
		"next_runs":     nextRuns,
	}
	if s.lastScanID != "" {
		status["last_scan_id"] = s.lastScanID
		status["last_scan_at"] = s.lastScanAt
	}
	return status
}

// NormalizeGameDate truncates a timestamp to midnight UTC, the canonical
// form for game date keys.
func NormalizeGameDate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
