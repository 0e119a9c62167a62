package ports

import (
	"context"

	"github.com/IANDYI/nutrition-service/internal/core/domain"
	"github.com/google/uuid"
)

// ProfileService defines user settings and RDI operations
type ProfileService interface {
	GetSettings(ctx context.Context, userID uuid.UUID) (*domain.SettingsData, error)

	// SaveSettings stores the raw settings as entered; parsing and defaulting
	// happen only when targets are calculated
	SaveSettings(ctx context.Context, userID uuid.UUID, settings domain.SettingsData) (*domain.SettingsData, error)

	ClearSettings(ctx context.Context, userID uuid.UUID) error

	// CurrentRDI recomputes the targets from the stored settings
	CurrentRDI(ctx context.Context, userID uuid.UUID) (*RDIReport, error)
}

// RDIReport is the calculated target set with the inputs it was derived from
type RDIReport struct {
	Profile            domain.BiometricProfile `json:"profile"`
	BMR                float64                 `json:"bmr"`
	ActivityMultiplier float64                 `json:"activity_multiplier"`
	Requirements       domain.RDIRequirements  `json:"requirements"`
}

// BarcodeResolver turns a raw barcode into a nutrition summary
type BarcodeResolver interface {
	// Resolve fails only with a *domain.LookupError
	Resolve(ctx context.Context, rawBarcode string) (*domain.NutritionSummary, error)
}

// FoodService defines food logging operations on today's list
type FoodService interface {
	// ResolveBarcode looks a barcode up without logging it
	ResolveBarcode(ctx context.Context, rawBarcode string) (*domain.NutritionSummary, error)

	// AddBarcodeFood resolves the barcode and appends the result to today's
	// list. entryID becomes the item ID, so repeating a call with the same
	// entryID stores the item once; uuid.Nil picks a fresh ID.
	AddBarcodeFood(ctx context.Context, userID, entryID uuid.UUID, rawBarcode string) (*domain.FoodLogItem, error)

	// AddManualFood appends a manually entered summary to today's list.
	// entryID works as in AddBarcodeFood.
	AddManualFood(ctx context.Context, userID, entryID uuid.UUID, summary domain.NutritionSummary) (*domain.FoodLogItem, error)

	TodayFoods(ctx context.Context, userID uuid.UUID) ([]*domain.FoodLogItem, error)

	TodayProgress(ctx context.Context, userID uuid.UUID) (*domain.TodayProgress, error)
}

// GoalsService defines goal tracking over the daily log history
type GoalsService interface {
	GetGoals(ctx context.Context, userID uuid.UUID) (*domain.GoalsState, error)

	GetDailyLogs(ctx context.Context, userID uuid.UUID, limit int, order domain.SortOrder) ([]*domain.DailyLogEntry, error)

	GetDailyLog(ctx context.Context, userID uuid.UUID, date string) (*domain.DailyLogEntry, error)
}
