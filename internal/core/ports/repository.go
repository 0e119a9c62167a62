package ports

import (
	"context"

	"github.com/IANDYI/nutrition-service/internal/core/domain"
	"github.com/google/uuid"
)

// DailyLogRepository defines persistence of per-date intake records
type DailyLogRepository interface {
	// UpsertDailyLog inserts or fully replaces the entry for (user, date)
	UpsertDailyLog(ctx context.Context, entry *domain.DailyLogEntry) error

	// GetDailyLogByDate returns domain.ErrDailyLogNotFound if no entry exists
	GetDailyLogByDate(ctx context.Context, userID uuid.UUID, date string) (*domain.DailyLogEntry, error)

	// GetDailyLogs returns at most limit entries ordered by date
	GetDailyLogs(ctx context.Context, userID uuid.UUID, limit int, order domain.SortOrder) ([]*domain.DailyLogEntry, error)
}

// SettingsRepository defines key/value persistence of raw user settings
type SettingsRepository interface {
	// GetSettings returns all stored keys; an empty map if none
	GetSettings(ctx context.Context, userID uuid.UUID) (map[string]string, error)

	// SaveSettings replaces all stored keys of the user
	SaveSettings(ctx context.Context, userID uuid.UUID, values map[string]string) error

	// ClearSettings removes every stored key of the user
	ClearSettings(ctx context.Context, userID uuid.UUID) error
}

// FoodLogRepository defines persistence of the per-day food list
type FoodLogRepository interface {
	// AppendFoodLogItem stores the item and upserts the daily log of its
	// date in one transaction; on error neither is written. An item whose ID
	// is already stored is not inserted again. It returns the date's items,
	// oldest first, and the upserted entry.
	AppendFoodLogItem(ctx context.Context, item *domain.FoodLogItem) ([]*domain.FoodLogItem, *domain.DailyLogEntry, error)

	// GetFoodLogItems returns the user's items for a date, oldest first
	GetFoodLogItems(ctx context.Context, userID uuid.UUID, date string) ([]*domain.FoodLogItem, error)
}

// FoodLookupClient defines the external food-composition lookup service
type FoodLookupClient interface {
	// SearchByCode returns candidates for a barcode query. No match is an
	// empty slice, not an error.
	SearchByCode(ctx context.Context, query string, dataType string, pageSize int) ([]domain.FoodCandidate, error)

	// GetDetails fetches the full record of a candidate
	GetDetails(ctx context.Context, id int) (*domain.FoodDetails, error)
}

// DailyLogPublisher defines the interface for publishing daily log updates
type DailyLogPublisher interface {
	PublishDailyLogUpdated(ctx context.Context, entry *domain.DailyLogEntry) error
}

// ProgressNotifier pushes today's progress to a user's live connections
type ProgressNotifier interface {
	NotifyProgress(userID uuid.UUID, progress *domain.TodayProgress)
}
