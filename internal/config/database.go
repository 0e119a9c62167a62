package config

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

var schemaStatements = []struct {
	name string
	sql  string
}{
	{"daily_logs", `
	CREATE TABLE IF NOT EXISTS daily_logs (
		user_id UUID NOT NULL,
		log_date DATE NOT NULL,
		calories_consumed INTEGER NOT NULL DEFAULT 0,
		calories_target INTEGER NOT NULL DEFAULT 0,
		updated_at TIMESTAMP NOT NULL DEFAULT now(),
		PRIMARY KEY (user_id, log_date)
	);`},
	{"user_settings", `
	CREATE TABLE IF NOT EXISTS user_settings (
		user_id UUID NOT NULL,
		key TEXT NOT NULL,
		value TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (user_id, key)
	);`},
	{"food_log_items", `
	CREATE TABLE IF NOT EXISTS food_log_items (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL,
		log_date DATE NOT NULL,
		source TEXT NOT NULL,
		barcode TEXT,
		description TEXT NOT NULL,
		calories NUMERIC,
		protein NUMERIC,
		total_carbs NUMERIC,
		total_fat NUMERIC,
		fiber NUMERIC,
		vitamin_c NUMERIC,
		vitamin_d NUMERIC,
		calcium NUMERIC,
		iron NUMERIC,
		created_at TIMESTAMP NOT NULL DEFAULT now(),
		CONSTRAINT chk_food_source CHECK (source IN ('barcode', 'manual'))
	);`},
}

// InitDatabase creates the schema if it does not exist yet.
// dropTables recreates everything from scratch (local development only).
func InitDatabase(db *sql.DB, dropTables bool, log *zap.Logger) error {
	if dropTables {
		log.Warn("Dropping existing tables (DROP_TABLES_ON_STARTUP=true)")
		for _, table := range []string{"food_log_items", "user_settings", "daily_logs"} {
			if _, err := db.Exec("DROP TABLE IF EXISTS " + table + " CASCADE"); err != nil {
				log.Warn("Failed to drop table", zap.String("table", table), zap.Error(err))
			}
		}
	}

	for _, stmt := range schemaStatements {
		log.Info("Ensuring table", zap.String("table", stmt.name))
		if _, err := db.Exec(stmt.sql); err != nil {
			return fmt.Errorf("failed to create %s table: %w", stmt.name, err)
		}
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_daily_logs_user_date ON daily_logs(user_id, log_date DESC)",
		"CREATE INDEX IF NOT EXISTS idx_food_log_items_user_date ON food_log_items(user_id, log_date)",
		"CREATE INDEX IF NOT EXISTS idx_food_log_items_created_at ON food_log_items(created_at)",
	}
	for _, indexSQL := range indexes {
		if _, err := db.Exec(indexSQL); err != nil {
			log.Warn("Failed to create index", zap.String("statement", indexSQL), zap.Error(err))
		}
	}

	log.Info("Database schema initialized successfully")
	return nil
}

// ConnectDatabase establishes a connection to PostgreSQL with retry logic
func ConnectDatabase(databaseURL string, maxRetries int, retryDelay time.Duration, log *zap.Logger) (*sql.DB, error) {
	var db *sql.DB
	var err error

	for i := 0; i < maxRetries; i++ {
		db, err = sql.Open("postgres", databaseURL)
		if err != nil {
			log.Warn("Failed to open database connection",
				zap.Int("attempt", i+1), zap.Int("max_attempts", maxRetries), zap.Error(err))
			if i < maxRetries-1 {
				time.Sleep(retryDelay)
				continue
			}
			return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", maxRetries, err)
		}

		if err = db.Ping(); err != nil {
			log.Warn("Failed to ping database",
				zap.Int("attempt", i+1), zap.Int("max_attempts", maxRetries), zap.Error(err))
			db.Close()
			if i < maxRetries-1 {
				time.Sleep(retryDelay)
				continue
			}
			return nil, fmt.Errorf("failed to ping database after %d attempts: %w", maxRetries, err)
		}

		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)

		log.Info("Database connection established successfully")
		return db, nil
	}

	return nil, fmt.Errorf("failed to connect to database: %w", err)
}
