package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/sweetspotdev/prop-edge/internal/engine"
	"github.com/sweetspotdev/prop-edge/internal/models"
	"github.com/sweetspotdev/prop-edge/pkg/database"
)

// TierAccuracy aggregates grade outcomes for one tier. Pushes and voids are
// excluded from the hit rate denominator, mirroring how window hits treat
// landing on the line.
type TierAccuracy struct {
	Tier    string  `json:"tier"`
	Total   int     `json:"total"`
	Hits    int     `json:"hits"`
	Misses  int     `json:"misses"`
	Pushes  int     `json:"pushes"`
	Voids   int     `json:"voids"`
	HitRate float64 `json:"hit_rate"`
}

// AccuracyReport is the graded performance of past scans over a window.
type AccuracyReport struct {
	WindowDays  int            `json:"window_days"`
	From        time.Time      `json:"from"`
	To          time.Time      `json:"to"`
	Overall     TierAccuracy   `json:"overall"`
	ByTier      []TierAccuracy `json:"by_tier"`
	GeneratedAt time.Time      `json:"generated_at"`
}

// AccuracyService grades persisted sweet spots against realized box scores
// once games complete, and reports hit rates by tier.
type AccuracyService struct {
	db         *database.DB
	cache      *CacheService
	logger     *logrus.Logger
	cron       *cron.Cron
	mu         sync.Mutex
	isRunning  bool
	windowDays int
}

// NewAccuracyService creates a new accuracy service
func NewAccuracyService(db *database.DB, cache *CacheService, logger *logrus.Logger, windowDays int) *AccuracyService {
	return &AccuracyService{
		db:         db,
		cache:      cache,
		logger:     logger,
		cron:       cron.New(),
		windowDays: windowDays,
	}
}

// Start schedules the nightly grading pass.
func (s *AccuracyService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("accuracy service is already running")
	}

	// Grade at 4 AM, after the night's box scores have been ingested
	_, err := s.cron.AddFunc("0 4 * * *", s.runScheduledGrading)
	if err != nil {
		return fmt.Errorf("failed to schedule grading: %w", err)
	}

	s.cron.Start()
	s.isRunning = true

	s.logger.Info("Accuracy service started")
	return nil
}

// Stop halts the scheduled grading.
func (s *AccuracyService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()

	s.isRunning = false
	s.logger.Info("Accuracy service stopped")
}

func (s *AccuracyService) runScheduledGrading() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	graded, err := s.GradeCompletedScans(ctx)
	if err != nil {
		s.logger.Errorf("Scheduled grading failed: %v", err)
		return
	}
	s.logger.Infof("Graded %d sweet spots", graded)
}

// GradeCompletedScans grades every ungraded sweet spot whose game date has
// passed, within the reporting window. A record with no matching box score
// is graded VOID and picked up again on the next pass in case the log
// arrives late.
func (s *AccuracyService) GradeCompletedScans(ctx context.Context) (int, error) {
	today := NormalizeGameDate(time.Now().UTC())
	from := today.AddDate(0, 0, -s.windowDays)

	var records []models.SweetSpotRecord
	err := s.db.WithContext(ctx).
		Where("game_date >= ? AND game_date < ?", from, today).
		Find(&records).Error
	if err != nil {
		return 0, fmt.Errorf("failed to load records for grading: %w", err)
	}
	if len(records) == 0 {
		return 0, nil
	}

	graded, err := s.existingGrades(ctx, records)
	if err != nil {
		return 0, err
	}

	count := 0
	for i := range records {
		record := &records[i]
		if outcome, ok := graded[record.ID]; ok && outcome != models.OutcomeVoid {
			continue
		}
		if err := ctx.Err(); err != nil {
			return count, err
		}

		grade, err := s.gradeRecord(ctx, record)
		if err != nil {
			s.logger.Warnf("Failed to grade %s %s: %v", record.PlayerName, record.StatType, err)
			continue
		}
		count++

		if _, existed := graded[record.ID]; existed {
			err = s.db.WithContext(ctx).Model(&models.PropGrade{}).
				Where("sweet_spot_id = ?", record.ID).
				Updates(map[string]interface{}{
					"actual_value": grade.ActualValue,
					"outcome":      grade.Outcome,
					"graded_at":    grade.GradedAt,
				}).Error
		} else {
			err = s.db.WithContext(ctx).Create(grade).Error
		}
		if err != nil {
			s.logger.Errorf("Failed to save grade for record %d: %v", record.ID, err)
			count--
		}
	}

	if count > 0 {
		if err := s.cache.Delete(ctx, AccuracyCacheKey(s.windowDays)); err != nil {
			s.logger.Warnf("Failed to invalidate accuracy cache: %v", err)
		}
	}
	return count, nil
}

// existingGrades maps sweet spot ID to its current grade outcome.
func (s *AccuracyService) existingGrades(ctx context.Context, records []models.SweetSpotRecord) (map[uint]string, error) {
	ids := make([]uint, 0, len(records))
	for i := range records {
		ids = append(ids, records[i].ID)
	}

	var grades []models.PropGrade
	err := s.db.WithContext(ctx).
		Where("sweet_spot_id IN ?", ids).
		Find(&grades).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load existing grades: %w", err)
	}

	existing := make(map[uint]string, len(grades))
	for i := range grades {
		existing[grades[i].SweetSpotID] = grades[i].Outcome
	}
	return existing, nil
}

// gradeRecord resolves one sweet spot against the player's box score for
// that game date.
func (s *AccuracyService) gradeRecord(ctx context.Context, record *models.SweetSpotRecord) (*models.PropGrade, error) {
	grade := &models.PropGrade{
		SweetSpotID: record.ID,
		ScanID:      record.ScanID,
		GameDate:    record.GameDate,
		PlayerName:  record.PlayerName,
		StatType:    record.StatType,
		Side:        record.Side,
		Line:        record.Line,
		Score:       record.Score,
		Tier:        record.Tier,
		Outcome:     models.OutcomeVoid,
		GradedAt:    time.Now().UTC(),
	}

	var log models.PlayerGameLog
	err := s.db.WithContext(ctx).
		Where("player_name = ? AND game_date = ?", record.PlayerName, record.GameDate).
		First(&log).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return grade, nil
		}
		return nil, err
	}

	statType, ok := engine.ParseStatType(record.StatType)
	if !ok {
		return grade, nil
	}
	actual, ok := statType.Value(log.ToEngineEntry())
	if !ok {
		return grade, nil
	}

	grade.ActualValue = &actual
	grade.Outcome = models.DetermineOutcome(actual, record.Line, record.Side)
	return grade, nil
}

// GetAccuracy reports graded performance over the trailing window.
func (s *AccuracyService) GetAccuracy(ctx context.Context, windowDays int) (*AccuracyReport, error) {
	if windowDays <= 0 {
		windowDays = s.windowDays
	}

	var cached AccuracyReport
	if err := s.cache.Get(ctx, AccuracyCacheKey(windowDays), &cached); err == nil {
		return &cached, nil
	}

	today := NormalizeGameDate(time.Now().UTC())
	from := today.AddDate(0, 0, -windowDays)

	var grades []models.PropGrade
	err := s.db.WithContext(ctx).
		Where("game_date >= ? AND game_date < ?", from, today).
		Find(&grades).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load grades: %w", err)
	}

	report := &AccuracyReport{
		WindowDays:  windowDays,
		From:        from,
		To:          today,
		GeneratedAt: time.Now().UTC(),
	}

	byTier := make(map[string]*TierAccuracy)
	for i := range grades {
		tallyGrade(&report.Overall, &grades[i])

		tier, ok := byTier[grades[i].Tier]
		if !ok {
			tier = &TierAccuracy{Tier: grades[i].Tier}
			byTier[grades[i].Tier] = tier
		}
		tallyGrade(tier, &grades[i])
	}
	report.Overall.Tier = "ALL"
	finalizeAccuracy(&report.Overall)

	for _, tierName := range []engine.Tier{engine.TierElite, engine.TierPremium, engine.TierStrong, engine.TierStandard, engine.TierAvoid} {
		tier, ok := byTier[string(tierName)]
		if !ok {
			continue
		}
		finalizeAccuracy(tier)
		report.ByTier = append(report.ByTier, *tier)
	}

	if err := s.cache.Set(ctx, AccuracyCacheKey(windowDays), report, 5*time.Minute); err != nil {
		s.logger.Warnf("Failed to cache accuracy report: %v", err)
	}
	return report, nil
}

func tallyGrade(acc *TierAccuracy, grade *models.PropGrade) {
	acc.Total++
	switch grade.Outcome {
	case models.OutcomeHit:
		acc.Hits++
	case models.OutcomeMiss:
		acc.Misses++
	case models.OutcomePush:
		acc.Pushes++
	case models.OutcomeVoid:
		acc.Voids++
	}
}

func finalizeAccuracy(acc *TierAccuracy) {
	decided := acc.Hits + acc.Misses
	if decided > 0 {
		acc.HitRate = float64(acc.Hits) / float64(decided)
	}
}
