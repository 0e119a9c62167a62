package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/IANDYI/nutrition-service/internal/core/domain"
	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecuteWithRetry(t *testing.T) {
	repo := NewSQLRepository(nil, gobreaker.Settings{}).WithRetry(3, 0)

	t.Run("succeeds after transient failures", func(t *testing.T) {
		attempts := 0
		err := repo.executeWithRetry(context.Background(), func() error {
			attempts++
			if attempts < 3 {
				return errors.New("connection reset")
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, attempts)
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		attempts := 0
		transient := errors.New("connection reset")
		err := repo.executeWithRetry(context.Background(), func() error {
			attempts++
			return transient
		})
		assert.ErrorIs(t, err, transient)
		assert.Equal(t, 3, attempts)
	})

	t.Run("no rows is not retried", func(t *testing.T) {
		attempts := 0
		err := repo.executeWithRetry(context.Background(), func() error {
			attempts++
			return sql.ErrNoRows
		})
		assert.ErrorIs(t, err, sql.ErrNoRows)
		assert.Equal(t, 1, attempts)
	})

	t.Run("cancelled context stops retrying", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		attempts := 0
		err := repo.executeWithRetry(ctx, func() error {
			attempts++
			cancel()
			return errors.New("timeout")
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, attempts)
	})
}

func TestBreakerIgnoresNoRows(t *testing.T) {
	repo := NewSQLRepository(nil, gobreaker.Settings{
		Timeout: time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 1
		},
	})

	_, err := repo.dailyLogCB.Execute(func() (interface{}, error) {
		return nil, sql.ErrNoRows
	})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.Equal(t, gobreaker.StateClosed, repo.dailyLogCB.State())

	_, _ = repo.dailyLogCB.Execute(func() (interface{}, error) {
		return nil, errors.New("connection refused")
	})
	assert.Equal(t, gobreaker.StateOpen, repo.dailyLogCB.State())
	assert.Equal(t, gobreaker.StateClosed, repo.settingsCB.State(), "breakers are per table group")
}

func TestNullFloatRoundTrip(t *testing.T) {
	assert.False(t, nullFloat(nil).Valid)
	assert.Nil(t, floatPtr(sql.NullFloat64{}))

	zero := nullFloat(domain.Float64(0))
	require.True(t, zero.Valid)
	got := floatPtr(zero)
	require.NotNil(t, got, "zero is known, not missing")
	assert.Equal(t, 0.0, *got)
}

func TestNewDailyLogUpdatedEvent(t *testing.T) {
	entry := &domain.DailyLogEntry{
		UserID:           uuid.New(),
		Date:             "2026-03-14",
		CaloriesConsumed: 1830,
		UpdatedAt:        time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC),
	}

	event := NewDailyLogUpdatedEvent(entry)
	assert.NotEqual(t, uuid.Nil, event.EventID)

	body, err := json.Marshal(event)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, entry.UserID.String(), decoded["user_id"])
	assert.Equal(t, "2026-03-14", decoded["date"])
	assert.Equal(t, 1830.0, decoded["calories_consumed"])
	assert.Equal(t, 0.0, decoded["calories_target"])
}

func manualItem(userID uuid.UUID, calories float64) *domain.FoodLogItem {
	return &domain.FoodLogItem{
		ID:        uuid.New(),
		UserID:    userID,
		Date:      "2026-03-14",
		Source:    domain.FoodSourceManual,
		Summary:   domain.NutritionSummary{Description: "Rice", Calories: domain.Float64(calories)},
		CreatedAt: time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
	}
}

func TestAppendFoodLogItem_FailedUpsertRollsBackItem(t *testing.T) {
	store := newFakeStore()
	store.failDailyLogUpserts = 1
	repo := NewSQLRepository(store.open(), gobreaker.Settings{}).WithRetry(1, 0)

	items, entry, err := repo.AppendFoodLogItem(context.Background(), manualItem(uuid.New(), 200))

	require.Error(t, err)
	assert.Nil(t, items)
	assert.Nil(t, entry)
	assert.Equal(t, 0, store.itemCount())
	assert.Equal(t, 0, store.commits)
	assert.Equal(t, 1, store.rollbacks)
}

func TestAppendFoodLogItem_RetryRerunsWholeTransaction(t *testing.T) {
	store := newFakeStore()
	store.failDailyLogUpserts = 1
	repo := NewSQLRepository(store.open(), gobreaker.Settings{}).WithRetry(2, 0)
	userID := uuid.New()

	items, entry, err := repo.AppendFoodLogItem(context.Background(), manualItem(userID, 200.7))

	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 200, entry.CaloriesConsumed)
	assert.Equal(t, "2026-03-14", entry.Date)
	assert.Equal(t, 1, store.itemCount())
	assert.Equal(t, int64(200), store.caloriesOf(userID))
}

func TestAppendFoodLogItem_DuplicateIDStoredOnce(t *testing.T) {
	store := newFakeStore()
	repo := NewSQLRepository(store.open(), gobreaker.Settings{}).WithRetry(1, 0)
	userID := uuid.New()
	first := manualItem(userID, 300)
	second := manualItem(userID, 150)

	_, _, err := repo.AppendFoodLogItem(context.Background(), first)
	require.NoError(t, err)
	_, _, err = repo.AppendFoodLogItem(context.Background(), second)
	require.NoError(t, err)
	items, entry, err := repo.AppendFoodLogItem(context.Background(), first)
	require.NoError(t, err)

	require.Len(t, items, 2)
	assert.Equal(t, first.ID, items[0].ID)
	assert.Equal(t, 450, entry.CaloriesConsumed)
	assert.Equal(t, 2, store.itemCount())
	assert.Equal(t, int64(450), store.caloriesOf(userID))
}

func TestGetFoodLogItems_EmptyDay(t *testing.T) {
	repo := NewSQLRepository(newFakeStore().open(), gobreaker.Settings{})

	items, err := repo.GetFoodLogItems(context.Background(), uuid.New(), "2026-03-14")

	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}
