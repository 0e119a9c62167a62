package domain

import (
	"time"

	"github.com/google/uuid"
)

// DateLayout is the calendar-date key format of daily logs
const DateLayout = "2006-01-02"

// DailyLogEntry is the per-date intake record of a user. One entry exists
// per (user, date); a later write fully replaces the earlier one.
type DailyLogEntry struct {
	UserID           uuid.UUID `json:"user_id"`
	Date             string    `json:"date"` // YYYY-MM-DD
	CaloriesConsumed int       `json:"calories_consumed"`
	// CaloriesTarget is written as 0 and never read back for aggregation.
	CaloriesTarget int       `json:"calories_target"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// SortOrder of a daily log range query
type SortOrder string

const (
	SortAscending  SortOrder = "asc"
	SortDescending SortOrder = "desc"
)

// ParseSortOrder accepts "asc" or "desc"; anything else is descending
func ParseSortOrder(raw string) SortOrder {
	if SortOrder(raw) == SortAscending {
		return SortAscending
	}
	return SortDescending
}

// DateOf formats t as a daily log key in t's location
func DateOf(t time.Time) string {
	return t.Format(DateLayout)
}

// IsValidDate reports whether s is a YYYY-MM-DD calendar date
func IsValidDate(s string) bool {
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

// DailyLogFor builds the entry of one date from that date's full food list.
// The stored target is always 0.
func DailyLogFor(userID uuid.UUID, date string, items []*FoodLogItem, updatedAt time.Time) *DailyLogEntry {
	summaries := make([]NutritionSummary, 0, len(items))
	for _, item := range items {
		summaries = append(summaries, item.Summary)
	}
	return &DailyLogEntry{
		UserID:           userID,
		Date:             date,
		CaloriesConsumed: TotalCalories(summaries),
		CaloriesTarget:   0,
		UpdatedAt:        updatedAt,
	}
}
