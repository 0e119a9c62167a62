package domain

import (
	"fmt"
	"math"
	"sort"
)

const (
	// MaxTrackedDays is the aggregation window of the goals views
	MaxTrackedDays = 31
	// DaysPerWeek is the weekly view window and the monthly chunk size
	DaysPerWeek = 7

	goalMetLowerRatio = 0.90
	goalMetUpperRatio = 1.10
)

var weekdayLabels = []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

// DailyGoals compares the latest tracked day against today's targets
type DailyGoals struct {
	CaloriesCurrent       int     `json:"calories_current"`
	CaloriesTarget        int     `json:"calories_target"`
	ProgressToCalorieGoal float64 `json:"progress_to_calorie_goal"`

	ProteinCurrent int `json:"protein_current"`
	ProteinTarget  int `json:"protein_target"`

	CarbsCurrent int `json:"carbs_current"`
	CarbsTarget  int `json:"carbs_target"`

	FiberCurrent int `json:"fiber_current"`
	FiberTarget  int `json:"fiber_target"`

	// Today's micronutrient intake vs RDI
	VitaminCCurrent int `json:"vitamin_c_current"`
	VitaminCTarget  int `json:"vitamin_c_target"`
	VitaminDCurrent int `json:"vitamin_d_current"`
	VitaminDTarget  int `json:"vitamin_d_target"`
	CalciumCurrent  int `json:"calcium_current"`
	CalciumTarget   int `json:"calcium_target"`
}

type WeeklyDay struct {
	Label         string  `json:"label"`
	PercentOfGoal float64 `json:"percent_of_goal"`
}

type WeeklyGoals struct {
	Days []WeeklyDay `json:"days"`
}

type MonthlyWeek struct {
	Label       string `json:"label"`
	DaysMetGoal int    `json:"days_met_goal"`
}

type MonthlyGoals struct {
	TotalDaysTracked   int           `json:"total_days_tracked"`
	DaysMetGoal        int           `json:"days_met_goal"`
	SuccessRatePercent int           `json:"success_rate_percent"`
	Weeks              []MonthlyWeek `json:"weeks"`
}

// GoalsState is the derived daily/weekly/monthly progress. It is never
// persisted.
type GoalsState struct {
	Daily   DailyGoals   `json:"daily"`
	Weekly  WeeklyGoals  `json:"weekly"`
	Monthly MonthlyGoals `json:"monthly"`
}

// CalorieRatio is consumed/target, or 0 when the target is not positive
func CalorieRatio(consumed, target int) float64 {
	if target <= 0 {
		return 0
	}
	return float64(consumed) / float64(target)
}

// IsGoalMet reports whether a day landed within 90-110% of its target
func IsGoalMet(consumed, target int) bool {
	if target <= 0 {
		return false
	}
	ratio := CalorieRatio(consumed, target)
	return ratio >= goalMetLowerRatio && ratio <= goalMetUpperRatio
}

// EmptyGoals reports zero intake against the given targets
func EmptyGoals(targets RDIRequirements) GoalsState {
	return GoalsState{
		Daily:   dailyGoals(targets, 0),
		Weekly:  WeeklyGoals{Days: []WeeklyDay{}},
		Monthly: MonthlyGoals{Weeks: []MonthlyWeek{}},
	}
}

// AggregateGoals folds daily logs into the goals views. Every day is
// measured against the live calorie target in targets; the target stored on
// an entry is ignored. Only the most recent MaxTrackedDays entries count.
func AggregateGoals(targets RDIRequirements, logs []DailyLogEntry) GoalsState {
	if len(logs) == 0 {
		return EmptyGoals(targets)
	}

	ordered := make([]DailyLogEntry, len(logs))
	copy(ordered, logs)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Date < ordered[j].Date
	})
	if len(ordered) > MaxTrackedDays {
		ordered = ordered[len(ordered)-MaxTrackedDays:]
	}

	latest := ordered[len(ordered)-1]
	return GoalsState{
		Daily:   dailyGoals(targets, latest.CaloriesConsumed),
		Weekly:  weeklyGoals(ordered, targets.Calories),
		Monthly: monthlyGoals(ordered, targets.Calories),
	}
}

func dailyGoals(targets RDIRequirements, caloriesCurrent int) DailyGoals {
	return DailyGoals{
		CaloriesCurrent:       caloriesCurrent,
		CaloriesTarget:        targets.Calories,
		ProgressToCalorieGoal: CalorieRatio(caloriesCurrent, targets.Calories),
		ProteinTarget:         int(math.Round(targets.Protein)),
		CarbsTarget:           int(math.Round(targets.Carbohydrates)),
		FiberTarget:           int(math.Round(targets.Fiber)),
		VitaminCTarget:        targets.VitaminC,
		VitaminDTarget:        targets.VitaminD,
		CalciumTarget:         targets.Calcium,
	}
}

func weeklyGoals(logs []DailyLogEntry, calorieTarget int) WeeklyGoals {
	window := logs
	if len(window) > DaysPerWeek {
		window = window[len(window)-DaysPerWeek:]
	}
	startIndex := len(logs) - len(window)

	days := make([]WeeklyDay, 0, len(window))
	for i, entry := range window {
		label := fmt.Sprintf("D%d", startIndex+i+1)
		if i < len(weekdayLabels) {
			label = weekdayLabels[i]
		}
		days = append(days, WeeklyDay{
			Label:         label,
			PercentOfGoal: CalorieRatio(entry.CaloriesConsumed, calorieTarget) * 100,
		})
	}
	return WeeklyGoals{Days: days}
}

func monthlyGoals(logs []DailyLogEntry, calorieTarget int) MonthlyGoals {
	totalDays := len(logs)
	totalMet := 0
	weeks := make([]MonthlyWeek, 0, (totalDays+DaysPerWeek-1)/DaysPerWeek)

	for start := 0; start < totalDays; start += DaysPerWeek {
		end := min(start+DaysPerWeek, totalDays)
		met := 0
		for _, entry := range logs[start:end] {
			if IsGoalMet(entry.CaloriesConsumed, calorieTarget) {
				met++
			}
		}
		totalMet += met
		weeks = append(weeks, MonthlyWeek{
			Label:       fmt.Sprintf("Week %d", len(weeks)+1),
			DaysMetGoal: met,
		})
	}

	successRate := 0
	if totalDays > 0 {
		successRate = int(math.Round(100 * float64(totalMet) / float64(totalDays)))
	}

	return MonthlyGoals{
		TotalDaysTracked:   totalDays,
		DaysMetGoal:        totalMet,
		SuccessRatePercent: successRate,
		Weeks:              weeks,
	}
}

// ApplyTodayIntake fills the daily macro and micronutrient current values
// from today's food list. Each item is truncated to whole units before
// summing; unknown values count as zero.
func (g *GoalsState) ApplyTodayIntake(items []NutritionSummary) {
	var protein, carbs, fiber, vitaminC, vitaminD, calcium int
	for _, item := range items {
		protein += int(valueOrZero(item.Protein))
		carbs += int(valueOrZero(item.TotalCarbs))
		fiber += int(valueOrZero(item.Fiber))
		vitaminC += int(valueOrZero(item.VitaminC))
		vitaminD += int(valueOrZero(item.VitaminD))
		calcium += int(valueOrZero(item.Calcium))
	}
	g.Daily.ProteinCurrent = protein
	g.Daily.CarbsCurrent = carbs
	g.Daily.FiberCurrent = fiber
	g.Daily.VitaminCCurrent = vitaminC
	g.Daily.VitaminDCurrent = vitaminD
	g.Daily.CalciumCurrent = calcium
}
