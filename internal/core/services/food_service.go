package services

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"time"

	"github.com/IANDYI/nutrition-service/internal/core/domain"
	"github.com/IANDYI/nutrition-service/internal/core/ports"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// FoodService implements today's food list: appending resolved or manual
// items, keeping the daily log in sync and computing today's progress
type FoodService struct {
	foodRepo     ports.FoodLogRepository
	settingsRepo ports.SettingsRepository
	resolver     ports.BarcodeResolver
	publisher    ports.DailyLogPublisher
	notifier     ports.ProgressNotifier
	log          *zap.Logger
	now          func() time.Time

	// orders appends of one user within this process so progress pushes
	// leave in commit order; users hash onto a fixed set of stripes
	userLocks [userLockStripes]sync.Mutex
}

const userLockStripes = 64

// NewFoodService creates a new food service. publisher and notifier may be nil.
func NewFoodService(
	foodRepo ports.FoodLogRepository,
	settingsRepo ports.SettingsRepository,
	resolver ports.BarcodeResolver,
	publisher ports.DailyLogPublisher,
	notifier ports.ProgressNotifier,
	log *zap.Logger,
) *FoodService {
	return &FoodService{
		foodRepo:     foodRepo,
		settingsRepo: settingsRepo,
		resolver:     resolver,
		publisher:    publisher,
		notifier:     notifier,
		log:          log,
		now:          time.Now,
	}
}

// WithClock replaces the time source used to pick "today"
func (s *FoodService) WithClock(now func() time.Time) *FoodService {
	s.now = now
	return s
}

// ResolveBarcode looks a barcode up without touching the food list
func (s *FoodService) ResolveBarcode(ctx context.Context, rawBarcode string) (*domain.NutritionSummary, error) {
	return s.resolver.Resolve(ctx, rawBarcode)
}

// AddBarcodeFood resolves a barcode and appends the summary to today's list.
// Lookup failures are returned as *domain.LookupError and nothing is stored.
func (s *FoodService) AddBarcodeFood(ctx context.Context, userID, entryID uuid.UUID, rawBarcode string) (*domain.FoodLogItem, error) {
	summary, err := s.resolver.Resolve(ctx, rawBarcode)
	if err != nil {
		return nil, err
	}
	return s.appendItem(ctx, userID, entryID, domain.FoodSourceBarcode, domain.NormalizeBarcode(rawBarcode), *summary)
}

// AddManualFood appends a manually entered summary to today's list
func (s *FoodService) AddManualFood(ctx context.Context, userID, entryID uuid.UUID, summary domain.NutritionSummary) (*domain.FoodLogItem, error) {
	for _, v := range summary.Values() {
		if v != nil && *v < 0 {
			return nil, fmt.Errorf("%w: nutrient amounts cannot be negative", domain.ErrInvalidFoodEntry)
		}
	}
	summary.Description = strings.TrimSpace(summary.Description)
	if summary.Description == "" {
		summary.Description = domain.UnknownProduct
	}
	return s.appendItem(ctx, userID, entryID, domain.FoodSourceManual, "", summary)
}

// TodayFoods returns today's food list, oldest first
func (s *FoodService) TodayFoods(ctx context.Context, userID uuid.UUID) ([]*domain.FoodLogItem, error) {
	items, err := s.foodRepo.GetFoodLogItems(ctx, userID, domain.DateOf(s.now()))
	if err != nil {
		return nil, fmt.Errorf("failed to get food log: %w", err)
	}
	return items, nil
}

// TodayProgress computes today's grouped progress against the live targets
func (s *FoodService) TodayProgress(ctx context.Context, userID uuid.UUID) (*domain.TodayProgress, error) {
	items, err := s.TodayFoods(ctx, userID)
	if err != nil {
		return nil, err
	}
	targets, err := loadRDI(ctx, s.settingsRepo, userID)
	if err != nil {
		return nil, err
	}
	progress := domain.ComputeTodayProgress(summariesOf(items), &targets)
	return &progress, nil
}

// appendItem stores the item and replaces today's daily log entry with the
// new calorie total in one repository transaction. This is the only write
// path into the daily log. A repeated entryID stores nothing new and leaves
// the total unchanged.
func (s *FoodService) appendItem(ctx context.Context, userID, entryID uuid.UUID, source domain.FoodSource, barcode string, summary domain.NutritionSummary) (*domain.FoodLogItem, error) {
	unlock := s.lockUser(userID)
	defer unlock()

	if entryID == uuid.Nil {
		entryID = uuid.New()
	}
	now := s.now()
	date := domain.DateOf(now)

	item := &domain.FoodLogItem{
		ID:        entryID,
		UserID:    userID,
		Date:      date,
		Source:    source,
		Barcode:   barcode,
		Summary:   summary,
		CreatedAt: now,
	}
	items, entry, err := s.foodRepo.AppendFoodLogItem(ctx, item)
	if err != nil {
		return nil, fmt.Errorf("failed to append food log item: %w", err)
	}
	for _, stored := range items {
		if stored.ID == item.ID {
			item = stored
			break
		}
	}
	summaries := summariesOf(items)

	s.log.Debug("daily_log_upserted",
		zap.String("user_id", userID.String()),
		zap.String("date", date),
		zap.Int("calories_consumed", entry.CaloriesConsumed))

	s.log.Info("food_logged",
		zap.String("user_id", userID.String()),
		zap.String("item_id", item.ID.String()),
		zap.String("source", string(source)),
		zap.String("description", item.Summary.Description),
		zap.String("date", date),
		zap.Int("calories_consumed", entry.CaloriesConsumed),
		zap.Int("item_count", len(items)))

	s.publish(ctx, entry)
	s.notify(ctx, userID, summaries)

	return item, nil
}

// publish sends the daily log update in the background. Failures are logged
// and never fail the append.
func (s *FoodService) publish(ctx context.Context, entry *domain.DailyLogEntry) {
	if s.publisher == nil {
		return
	}
	event := *entry
	go func() {
		// detached from the request so a finished request does not cancel it
		bgCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
		defer cancel()
		if err := s.publisher.PublishDailyLogUpdated(bgCtx, &event); err != nil {
			s.log.Warn("daily_log_publish_failed",
				zap.String("user_id", event.UserID.String()),
				zap.String("date", event.Date),
				zap.Error(err))
		}
	}()
}

func (s *FoodService) notify(ctx context.Context, userID uuid.UUID, summaries []domain.NutritionSummary) {
	if s.notifier == nil {
		return
	}
	targets, err := loadRDI(ctx, s.settingsRepo, userID)
	if err != nil {
		s.log.Warn("progress_notify_skipped", zap.String("user_id", userID.String()), zap.Error(err))
		return
	}
	progress := domain.ComputeTodayProgress(summaries, &targets)
	s.notifier.NotifyProgress(userID, &progress)
}

func (s *FoodService) lockUser(userID uuid.UUID) func() {
	mu := &s.userLocks[lockStripe(userID)]
	mu.Lock()
	return mu.Unlock
}

func lockStripe(userID uuid.UUID) uint32 {
	h := fnv.New32a()
	_, _ = h.Write(userID[:])
	return h.Sum32() % userLockStripes
}

func summariesOf(items []*domain.FoodLogItem) []domain.NutritionSummary {
	summaries := make([]domain.NutritionSummary, 0, len(items))
	for _, item := range items {
		summaries = append(summaries, item.Summary)
	}
	return summaries
}

var _ ports.FoodService = (*FoodService)(nil)
