package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/IANDYI/nutrition-service/internal/core/domain"
	"github.com/IANDYI/nutrition-service/internal/core/ports"
	"github.com/google/uuid"
	"github.com/sony/gobreaker"
)

// SQLRepository implements DailyLogRepository, SettingsRepository and
// FoodLogRepository using PostgreSQL.
// Includes retry logic and circuit breakers for resilience
type SQLRepository struct {
	db         *sql.DB
	dailyLogCB *gobreaker.CircuitBreaker
	settingsCB *gobreaker.CircuitBreaker
	foodLogCB  *gobreaker.CircuitBreaker
	maxRetries int
	retryDelay time.Duration
}

// DefaultBreakerSettings are used when the caller passes zero settings
var DefaultBreakerSettings = gobreaker.Settings{
	MaxRequests: 5,
	Interval:    60 * time.Second,
	Timeout:     30 * time.Second,
	ReadyToTrip: func(counts gobreaker.Counts) bool {
		return counts.ConsecutiveFailures > 5
	},
}

// NewSQLRepository creates a new PostgreSQL repository with one circuit
// breaker per table group
func NewSQLRepository(db *sql.DB, settings gobreaker.Settings) *SQLRepository {
	if settings.ReadyToTrip == nil {
		settings = DefaultBreakerSettings
	}
	// a missing row is an answer, not a database failure
	settings.IsSuccessful = func(err error) bool {
		return err == nil || errors.Is(err, sql.ErrNoRows)
	}

	named := func(name string) gobreaker.Settings {
		s := settings
		s.Name = name
		return s
	}

	return &SQLRepository{
		db:         db,
		dailyLogCB: gobreaker.NewCircuitBreaker(named("daily_logs")),
		settingsCB: gobreaker.NewCircuitBreaker(named("user_settings")),
		foodLogCB:  gobreaker.NewCircuitBreaker(named("food_log_items")),
		maxRetries: 3,
		retryDelay: 1 * time.Second,
	}
}

// WithRetry overrides the retry policy
func (r *SQLRepository) WithRetry(maxRetries int, retryDelay time.Duration) *SQLRepository {
	if maxRetries > 0 {
		r.maxRetries = maxRetries
	}
	r.retryDelay = retryDelay
	return r
}

// executeWithRetry executes a database operation with retry logic
func (r *SQLRepository) executeWithRetry(ctx context.Context, operation func() error) error {
	var lastErr error
	for i := 0; i < r.maxRetries; i++ {
		err := operation()
		if err == nil {
			return nil
		}
		lastErr = err
		// Don't retry on sql.ErrNoRows - it's not a transient error
		if errors.Is(err, sql.ErrNoRows) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if i < r.maxRetries-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(r.retryDelay):
			}
		}
	}
	return fmt.Errorf("operation failed after %d retries: %w", r.maxRetries, lastErr)
}

// Ping checks database connectivity for the readiness check
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// DailyLogRepository implementation

func (r *SQLRepository) UpsertDailyLog(ctx context.Context, entry *domain.DailyLogEntry) error {
	_, err := r.dailyLogCB.Execute(func() (interface{}, error) {
		return nil, r.executeWithRetry(ctx, func() error {
			return upsertDailyLog(ctx, r.db, entry)
		})
	})
	return err
}

func upsertDailyLog(ctx context.Context, q querier, entry *domain.DailyLogEntry) error {
	query := `INSERT INTO daily_logs (user_id, log_date, calories_consumed, calories_target, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, log_date) DO UPDATE SET
			calories_consumed = EXCLUDED.calories_consumed,
			calories_target = EXCLUDED.calories_target,
			updated_at = EXCLUDED.updated_at`
	_, err := q.ExecContext(ctx, query, entry.UserID, entry.Date, entry.CaloriesConsumed, entry.CaloriesTarget, entry.UpdatedAt)
	return err
}

func (r *SQLRepository) GetDailyLogByDate(ctx context.Context, userID uuid.UUID, date string) (*domain.DailyLogEntry, error) {
	result, err := r.dailyLogCB.Execute(func() (interface{}, error) {
		var entry *domain.DailyLogEntry
		err := r.executeWithRetry(ctx, func() error {
			query := `SELECT user_id, log_date, calories_consumed, calories_target, updated_at
				FROM daily_logs WHERE user_id = $1 AND log_date = $2`
			var scanErr error
			entry, scanErr = scanDailyLog(r.db.QueryRowContext(ctx, query, userID, date))
			return scanErr
		})
		if err != nil {
			return nil, err
		}
		return entry, nil
	})

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrDailyLogNotFound
		}
		return nil, err
	}

	return result.(*domain.DailyLogEntry), nil
}

func (r *SQLRepository) GetDailyLogs(ctx context.Context, userID uuid.UUID, limit int, order domain.SortOrder) ([]*domain.DailyLogEntry, error) {
	direction := "DESC"
	if order == domain.SortAscending {
		direction = "ASC"
	}

	result, err := r.dailyLogCB.Execute(func() (interface{}, error) {
		var entries []*domain.DailyLogEntry
		err := r.executeWithRetry(ctx, func() error {
			entries = nil
			// ascending still returns the most recent rows
			query := `SELECT user_id, log_date, calories_consumed, calories_target, updated_at FROM (
					SELECT user_id, log_date, calories_consumed, calories_target, updated_at
					FROM daily_logs WHERE user_id = $1
					ORDER BY log_date DESC LIMIT $2
				) recent ORDER BY log_date ` + direction

			rows, err := r.db.QueryContext(ctx, query, userID, limit)
			if err != nil {
				return err
			}
			defer rows.Close()

			for rows.Next() {
				entry, err := scanDailyLog(rows)
				if err != nil {
					return err
				}
				entries = append(entries, entry)
			}
			return rows.Err()
		})
		if err != nil {
			return nil, err
		}
		return entries, nil
	})

	if err != nil {
		return nil, err
	}

	entries := result.([]*domain.DailyLogEntry)
	if entries == nil {
		entries = []*domain.DailyLogEntry{}
	}
	return entries, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// querier is satisfied by both *sql.DB and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func scanDailyLog(row rowScanner) (*domain.DailyLogEntry, error) {
	var entry domain.DailyLogEntry
	var logDate time.Time
	if err := row.Scan(&entry.UserID, &logDate, &entry.CaloriesConsumed, &entry.CaloriesTarget, &entry.UpdatedAt); err != nil {
		return nil, err
	}
	entry.Date = logDate.Format(domain.DateLayout)
	return &entry, nil
}

// SettingsRepository implementation

func (r *SQLRepository) GetSettings(ctx context.Context, userID uuid.UUID) (map[string]string, error) {
	result, err := r.settingsCB.Execute(func() (interface{}, error) {
		values := make(map[string]string)
		err := r.executeWithRetry(ctx, func() error {
			clear(values)
			rows, err := r.db.QueryContext(ctx, `SELECT key, value FROM user_settings WHERE user_id = $1`, userID)
			if err != nil {
				return err
			}
			defer rows.Close()

			for rows.Next() {
				var key, value string
				if err := rows.Scan(&key, &value); err != nil {
					return err
				}
				values[key] = value
			}
			return rows.Err()
		})
		if err != nil {
			return nil, err
		}
		return values, nil
	})

	if err != nil {
		return nil, err
	}
	return result.(map[string]string), nil
}

// SaveSettings replaces all settings of a user in one transaction
func (r *SQLRepository) SaveSettings(ctx context.Context, userID uuid.UUID, values map[string]string) error {
	_, err := r.settingsCB.Execute(func() (interface{}, error) {
		return nil, r.executeWithRetry(ctx, func() error {
			tx, err := r.db.BeginTx(ctx, nil)
			if err != nil {
				return err
			}
			defer tx.Rollback()

			if _, err := tx.ExecContext(ctx, `DELETE FROM user_settings WHERE user_id = $1`, userID); err != nil {
				return err
			}
			for key, value := range values {
				if value == "" {
					continue
				}
				if _, err := tx.ExecContext(ctx,
					`INSERT INTO user_settings (user_id, key, value) VALUES ($1, $2, $3)`,
					userID, key, value); err != nil {
					return err
				}
			}
			return tx.Commit()
		})
	})
	return err
}

func (r *SQLRepository) ClearSettings(ctx context.Context, userID uuid.UUID) error {
	_, err := r.settingsCB.Execute(func() (interface{}, error) {
		return nil, r.executeWithRetry(ctx, func() error {
			_, err := r.db.ExecContext(ctx, `DELETE FROM user_settings WHERE user_id = $1`, userID)
			return err
		})
	})
	return err
}

// FoodLogRepository implementation

type appendResult struct {
	items []*domain.FoodLogItem
	entry *domain.DailyLogEntry
}

// AppendFoodLogItem inserts the item, reloads its date and upserts the
// daily log total in one transaction. Retried attempts rerun the whole
// transaction; the item insert is a no-op once its ID exists.
func (r *SQLRepository) AppendFoodLogItem(ctx context.Context, item *domain.FoodLogItem) ([]*domain.FoodLogItem, *domain.DailyLogEntry, error) {
	result, err := r.foodLogCB.Execute(func() (interface{}, error) {
		var out appendResult
		err := r.executeWithRetry(ctx, func() error {
			tx, err := r.db.BeginTx(ctx, nil)
			if err != nil {
				return err
			}
			defer tx.Rollback()

			// held until commit: appends of one user serialize across replicas
			if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, item.UserID.String()); err != nil {
				return err
			}
			if err := insertFoodLogItem(ctx, tx, item); err != nil {
				return err
			}
			items, err := queryFoodLogItems(ctx, tx, item.UserID, item.Date)
			if err != nil {
				return err
			}
			entry := domain.DailyLogFor(item.UserID, item.Date, items, item.CreatedAt)
			if err := upsertDailyLog(ctx, tx, entry); err != nil {
				return err
			}
			if err := tx.Commit(); err != nil {
				return err
			}
			out = appendResult{items: items, entry: entry}
			return nil
		})
		if err != nil {
			return nil, err
		}
		return out, nil
	})

	if err != nil {
		return nil, nil, err
	}
	out := result.(appendResult)
	return out.items, out.entry, nil
}

func insertFoodLogItem(ctx context.Context, q querier, item *domain.FoodLogItem) error {
	query := `INSERT INTO food_log_items (id, user_id, log_date, source, barcode, description,
			calories, protein, total_carbs, total_fat, fiber, vitamin_c, vitamin_d, calcium, iron, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (id) DO NOTHING`

	var barcode sql.NullString
	if item.Barcode != "" {
		barcode = sql.NullString{String: item.Barcode, Valid: true}
	}

	s := item.Summary
	_, err := q.ExecContext(ctx, query,
		item.ID, item.UserID, item.Date, string(item.Source), barcode, s.Description,
		nullFloat(s.Calories), nullFloat(s.Protein), nullFloat(s.TotalCarbs), nullFloat(s.TotalFat),
		nullFloat(s.Fiber), nullFloat(s.VitaminC), nullFloat(s.VitaminD), nullFloat(s.Calcium),
		nullFloat(s.Iron), item.CreatedAt)
	return err
}

// GetFoodLogItems returns the items of one date, oldest first
func (r *SQLRepository) GetFoodLogItems(ctx context.Context, userID uuid.UUID, date string) ([]*domain.FoodLogItem, error) {
	result, err := r.foodLogCB.Execute(func() (interface{}, error) {
		var items []*domain.FoodLogItem
		err := r.executeWithRetry(ctx, func() error {
			var err error
			items, err = queryFoodLogItems(ctx, r.db, userID, date)
			return err
		})
		if err != nil {
			return nil, err
		}
		return items, nil
	})

	if err != nil {
		return nil, err
	}
	return result.([]*domain.FoodLogItem), nil
}

// queryFoodLogItems never returns a nil slice on success
func queryFoodLogItems(ctx context.Context, q querier, userID uuid.UUID, date string) ([]*domain.FoodLogItem, error) {
	query := `SELECT id, user_id, log_date, source, barcode, description,
			calories, protein, total_carbs, total_fat, fiber, vitamin_c, vitamin_d, calcium, iron, created_at
		FROM food_log_items WHERE user_id = $1 AND log_date = $2
		ORDER BY created_at ASC, id ASC`

	rows, err := q.QueryContext(ctx, query, userID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []*domain.FoodLogItem{}
	for rows.Next() {
		item, err := scanFoodLogItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func scanFoodLogItem(row rowScanner) (*domain.FoodLogItem, error) {
	var item domain.FoodLogItem
	var logDate time.Time
	var source string
	var barcode sql.NullString
	var calories, protein, carbs, fat, fiber, vitaminC, vitaminD, calcium, iron sql.NullFloat64

	err := row.Scan(&item.ID, &item.UserID, &logDate, &source, &barcode, &item.Summary.Description,
		&calories, &protein, &carbs, &fat, &fiber, &vitaminC, &vitaminD, &calcium, &iron, &item.CreatedAt)
	if err != nil {
		return nil, err
	}

	item.Date = logDate.Format(domain.DateLayout)
	item.Source = domain.FoodSource(source)
	if barcode.Valid {
		item.Barcode = barcode.String
	}

	item.Summary.Calories = floatPtr(calories)
	item.Summary.Protein = floatPtr(protein)
	item.Summary.TotalCarbs = floatPtr(carbs)
	item.Summary.TotalFat = floatPtr(fat)
	item.Summary.Fiber = floatPtr(fiber)
	item.Summary.VitaminC = floatPtr(vitaminC)
	item.Summary.VitaminD = floatPtr(vitaminD)
	item.Summary.Calcium = floatPtr(calcium)
	item.Summary.Iron = floatPtr(iron)

	return &item, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}

var (
	_ ports.DailyLogRepository = (*SQLRepository)(nil)
	_ ports.SettingsRepository = (*SQLRepository)(nil)
	_ ports.FoodLogRepository  = (*SQLRepository)(nil)
)
