package services

import (
	"context"
	"fmt"
	"time"

	"github.com/IANDYI/nutrition-service/internal/core/domain"
	"github.com/IANDYI/nutrition-service/internal/core/ports"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MaxDailyLogLimit caps the range queries exposed by the service
const MaxDailyLogLimit = 366

// GoalsService implements goal tracking over the stored daily logs
type GoalsService struct {
	dailyLogRepo ports.DailyLogRepository
	foodRepo     ports.FoodLogRepository
	settingsRepo ports.SettingsRepository
	log          *zap.Logger
	now          func() time.Time
}

// NewGoalsService creates a new goals service
func NewGoalsService(
	dailyLogRepo ports.DailyLogRepository,
	foodRepo ports.FoodLogRepository,
	settingsRepo ports.SettingsRepository,
	log *zap.Logger,
) *GoalsService {
	return &GoalsService{
		dailyLogRepo: dailyLogRepo,
		foodRepo:     foodRepo,
		settingsRepo: settingsRepo,
		log:          log,
		now:          time.Now,
	}
}

// WithClock replaces the time source used to pick "today"
func (s *GoalsService) WithClock(now func() time.Time) *GoalsService {
	s.now = now
	return s
}

// GetGoals aggregates the last MaxTrackedDays logs against targets
// recomputed from the current settings. When the latest log is today, the
// daily macro and micronutrient values come from today's food list.
func (s *GoalsService) GetGoals(ctx context.Context, userID uuid.UUID) (*domain.GoalsState, error) {
	targets, err := loadRDI(ctx, s.settingsRepo, userID)
	if err != nil {
		return nil, err
	}

	recent, err := s.dailyLogRepo.GetDailyLogs(ctx, userID, domain.MaxTrackedDays, domain.SortDescending)
	if err != nil {
		return nil, fmt.Errorf("failed to get daily logs: %w", err)
	}

	// newest first from the store, the aggregator wants oldest first
	logs := make([]domain.DailyLogEntry, len(recent))
	for i, entry := range recent {
		logs[len(recent)-1-i] = *entry
	}

	state := domain.AggregateGoals(targets, logs)

	today := domain.DateOf(s.now())
	if len(logs) > 0 && logs[len(logs)-1].Date == today {
		items, err := s.foodRepo.GetFoodLogItems(ctx, userID, today)
		if err != nil {
			return nil, fmt.Errorf("failed to get food log: %w", err)
		}
		state.ApplyTodayIntake(summariesOf(items))
	}

	s.log.Debug("goals_aggregated",
		zap.String("user_id", userID.String()),
		zap.Int("days_tracked", state.Monthly.TotalDaysTracked),
		zap.Int("calorie_target", targets.Calories))

	return &state, nil
}

// GetDailyLogs returns stored daily logs, limit clamped to [1, MaxDailyLogLimit]
func (s *GoalsService) GetDailyLogs(ctx context.Context, userID uuid.UUID, limit int, order domain.SortOrder) ([]*domain.DailyLogEntry, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than 0")
	}
	limit = min(limit, MaxDailyLogLimit)

	logs, err := s.dailyLogRepo.GetDailyLogs(ctx, userID, limit, order)
	if err != nil {
		return nil, fmt.Errorf("failed to get daily logs: %w", err)
	}
	return logs, nil
}

// GetDailyLog returns the entry of one date or domain.ErrDailyLogNotFound
func (s *GoalsService) GetDailyLog(ctx context.Context, userID uuid.UUID, date string) (*domain.DailyLogEntry, error) {
	if !domain.IsValidDate(date) {
		return nil, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", date)
	}
	entry, err := s.dailyLogRepo.GetDailyLogByDate(ctx, userID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to get daily log: %w", err)
	}
	return entry, nil
}

var _ ports.GoalsService = (*GoalsService)(nil)
