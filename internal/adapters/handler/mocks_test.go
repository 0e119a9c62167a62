package handler_test

import (
	"context"

	"github.com/IANDYI/nutrition-service/internal/adapters/middleware"
	"github.com/IANDYI/nutrition-service/internal/core/domain"
	"github.com/IANDYI/nutrition-service/internal/core/ports"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockFoodService is a mock implementation of ports.FoodService
type MockFoodService struct {
	mock.Mock
}

func (m *MockFoodService) ResolveBarcode(ctx context.Context, rawBarcode string) (*domain.NutritionSummary, error) {
	args := m.Called(ctx, rawBarcode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.NutritionSummary), args.Error(1)
}

func (m *MockFoodService) AddBarcodeFood(ctx context.Context, userID, entryID uuid.UUID, rawBarcode string) (*domain.FoodLogItem, error) {
	args := m.Called(ctx, userID, entryID, rawBarcode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FoodLogItem), args.Error(1)
}

func (m *MockFoodService) AddManualFood(ctx context.Context, userID, entryID uuid.UUID, summary domain.NutritionSummary) (*domain.FoodLogItem, error) {
	args := m.Called(ctx, userID, entryID, summary)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FoodLogItem), args.Error(1)
}

func (m *MockFoodService) TodayFoods(ctx context.Context, userID uuid.UUID) ([]*domain.FoodLogItem, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.FoodLogItem), args.Error(1)
}

func (m *MockFoodService) TodayProgress(ctx context.Context, userID uuid.UUID) (*domain.TodayProgress, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TodayProgress), args.Error(1)
}

// MockGoalsService is a mock implementation of ports.GoalsService
type MockGoalsService struct {
	mock.Mock
}

func (m *MockGoalsService) GetGoals(ctx context.Context, userID uuid.UUID) (*domain.GoalsState, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.GoalsState), args.Error(1)
}

func (m *MockGoalsService) GetDailyLogs(ctx context.Context, userID uuid.UUID, limit int, order domain.SortOrder) ([]*domain.DailyLogEntry, error) {
	args := m.Called(ctx, userID, limit, order)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.DailyLogEntry), args.Error(1)
}

func (m *MockGoalsService) GetDailyLog(ctx context.Context, userID uuid.UUID, date string) (*domain.DailyLogEntry, error) {
	args := m.Called(ctx, userID, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DailyLogEntry), args.Error(1)
}

// MockProfileService is a mock implementation of ports.ProfileService
type MockProfileService struct {
	mock.Mock
}

func (m *MockProfileService) GetSettings(ctx context.Context, userID uuid.UUID) (*domain.SettingsData, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SettingsData), args.Error(1)
}

func (m *MockProfileService) SaveSettings(ctx context.Context, userID uuid.UUID, settings domain.SettingsData) (*domain.SettingsData, error) {
	args := m.Called(ctx, userID, settings)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SettingsData), args.Error(1)
}

func (m *MockProfileService) ClearSettings(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockProfileService) CurrentRDI(ctx context.Context, userID uuid.UUID) (*ports.RDIReport, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.RDIReport), args.Error(1)
}

// withUser attaches an authenticated user the way RequireAuth does
func withUser(ctx context.Context, userID uuid.UUID) context.Context {
	return context.WithValue(ctx, middleware.UserIDKey, userID.String())
}
