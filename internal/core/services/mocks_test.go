package services_test

import (
	"context"

	"github.com/IANDYI/nutrition-service/internal/core/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockDailyLogRepository is a mock implementation of ports.DailyLogRepository
type MockDailyLogRepository struct {
	mock.Mock
}

func (m *MockDailyLogRepository) UpsertDailyLog(ctx context.Context, entry *domain.DailyLogEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockDailyLogRepository) GetDailyLogByDate(ctx context.Context, userID uuid.UUID, date string) (*domain.DailyLogEntry, error) {
	args := m.Called(ctx, userID, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DailyLogEntry), args.Error(1)
}

func (m *MockDailyLogRepository) GetDailyLogs(ctx context.Context, userID uuid.UUID, limit int, order domain.SortOrder) ([]*domain.DailyLogEntry, error) {
	args := m.Called(ctx, userID, limit, order)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.DailyLogEntry), args.Error(1)
}

// MockSettingsRepository is a mock implementation of ports.SettingsRepository
type MockSettingsRepository struct {
	mock.Mock
}

func (m *MockSettingsRepository) GetSettings(ctx context.Context, userID uuid.UUID) (map[string]string, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]string), args.Error(1)
}

func (m *MockSettingsRepository) SaveSettings(ctx context.Context, userID uuid.UUID, values map[string]string) error {
	args := m.Called(ctx, userID, values)
	return args.Error(0)
}

func (m *MockSettingsRepository) ClearSettings(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

// MockFoodLogRepository is a mock implementation of ports.FoodLogRepository
type MockFoodLogRepository struct {
	mock.Mock
}

// AppendFoodLogItem accepts either values or functions of (ctx, item) as
// the first two return arguments
func (m *MockFoodLogRepository) AppendFoodLogItem(ctx context.Context, item *domain.FoodLogItem) ([]*domain.FoodLogItem, *domain.DailyLogEntry, error) {
	args := m.Called(ctx, item)

	var items []*domain.FoodLogItem
	switch v := args.Get(0).(type) {
	case func(context.Context, *domain.FoodLogItem) []*domain.FoodLogItem:
		items = v(ctx, item)
	case []*domain.FoodLogItem:
		items = v
	}

	var entry *domain.DailyLogEntry
	switch v := args.Get(1).(type) {
	case func(context.Context, *domain.FoodLogItem) *domain.DailyLogEntry:
		entry = v(ctx, item)
	case *domain.DailyLogEntry:
		entry = v
	}

	return items, entry, args.Error(2)
}

func (m *MockFoodLogRepository) GetFoodLogItems(ctx context.Context, userID uuid.UUID, date string) ([]*domain.FoodLogItem, error) {
	args := m.Called(ctx, userID, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.FoodLogItem), args.Error(1)
}

// MockFoodLookupClient is a mock implementation of ports.FoodLookupClient
type MockFoodLookupClient struct {
	mock.Mock
}

func (m *MockFoodLookupClient) SearchByCode(ctx context.Context, query string, dataType string, pageSize int) ([]domain.FoodCandidate, error) {
	args := m.Called(ctx, query, dataType, pageSize)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.FoodCandidate), args.Error(1)
}

func (m *MockFoodLookupClient) GetDetails(ctx context.Context, id int) (*domain.FoodDetails, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FoodDetails), args.Error(1)
}

// MockBarcodeResolver is a mock implementation of ports.BarcodeResolver
type MockBarcodeResolver struct {
	mock.Mock
}

func (m *MockBarcodeResolver) Resolve(ctx context.Context, rawBarcode string) (*domain.NutritionSummary, error) {
	args := m.Called(ctx, rawBarcode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.NutritionSummary), args.Error(1)
}

// MockDailyLogPublisher is a mock implementation of ports.DailyLogPublisher
type MockDailyLogPublisher struct {
	mock.Mock
}

func (m *MockDailyLogPublisher) PublishDailyLogUpdated(ctx context.Context, entry *domain.DailyLogEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

// MockProgressNotifier is a mock implementation of ports.ProgressNotifier
type MockProgressNotifier struct {
	mock.Mock
}

func (m *MockProgressNotifier) NotifyProgress(userID uuid.UUID, progress *domain.TodayProgress) {
	m.Called(userID, progress)
}
