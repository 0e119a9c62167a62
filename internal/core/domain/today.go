package domain

import "math"

// Fallback targets of the today view when no RDI is available
const (
	fallbackProteinTarget  = 40.0
	fallbackCarbsTarget    = 130.0
	fallbackFiberTarget    = 25.0
	fallbackVitaminCTarget = 75.0
	fallbackVitaminDTarget = 15.0
	fallbackCalciumTarget  = 1000.0
	fallbackIronTarget     = 18.0
)

// NutrientTotals is the sum of a food list, unknown amounts counted as zero
type NutrientTotals struct {
	Calories   float64 `json:"calories"`
	Protein    float64 `json:"protein"`
	TotalCarbs float64 `json:"total_carbs"`
	TotalFat   float64 `json:"total_fat"`
	Fiber      float64 `json:"fiber"`
	VitaminC   float64 `json:"vitamin_c"`
	VitaminD   float64 `json:"vitamin_d"`
	Calcium    float64 `json:"calcium"`
	Iron       float64 `json:"iron"`
}

// SumFoodLog adds up every nutrient across the items
func SumFoodLog(foodLog []NutritionSummary) NutrientTotals {
	var t NutrientTotals
	for _, item := range foodLog {
		t.Calories += valueOrZero(item.Calories)
		t.Protein += valueOrZero(item.Protein)
		t.TotalCarbs += valueOrZero(item.TotalCarbs)
		t.TotalFat += valueOrZero(item.TotalFat)
		t.Fiber += valueOrZero(item.Fiber)
		t.VitaminC += valueOrZero(item.VitaminC)
		t.VitaminD += valueOrZero(item.VitaminD)
		t.Calcium += valueOrZero(item.Calcium)
		t.Iron += valueOrZero(item.Iron)
	}
	return t
}

// ProgressGroup is one bar of the today view
type ProgressGroup struct {
	Name   string  `json:"name"`
	Unit   string  `json:"unit"`
	Value  float64 `json:"value"`
	Target float64 `json:"target"`
	// Ratio is value/target, unclamped. Progress is the same clamped to [0,1].
	Ratio     float64 `json:"ratio"`
	Progress  float64 `json:"progress"`
	Remaining float64 `json:"remaining"`
}

func newProgressGroup(name, unit string, value, target float64) ProgressGroup {
	ratio := 0.0
	if target > 0 {
		ratio = value / target
	}
	return ProgressGroup{
		Name:      name,
		Unit:      unit,
		Value:     value,
		Target:    target,
		Ratio:     ratio,
		Progress:  math.Min(math.Max(ratio, 0), 1),
		Remaining: math.Max(target-value, 0),
	}
}

// TodayProgress is the compact progress view of today's food list
type TodayProgress struct {
	ItemCount int            `json:"item_count"`
	Totals    NutrientTotals `json:"totals"`
	Macros    ProgressGroup  `json:"macros"`
	Vitamins  ProgressGroup  `json:"vitamins"`
	Minerals  ProgressGroup  `json:"minerals"`
}

// ComputeTodayProgress groups today's totals into macro, vitamin and mineral
// bars. targets may be nil, in which case fixed fallback targets apply.
func ComputeTodayProgress(foodLog []NutritionSummary, targets *RDIRequirements) TodayProgress {
	totals := SumFoodLog(foodLog)

	proteinTarget, carbsTarget, fiberTarget := fallbackProteinTarget, fallbackCarbsTarget, fallbackFiberTarget
	vitaminCTarget, vitaminDTarget := fallbackVitaminCTarget, fallbackVitaminDTarget
	calciumTarget, ironTarget := fallbackCalciumTarget, fallbackIronTarget
	if targets != nil {
		proteinTarget = targets.Protein
		carbsTarget = targets.Carbohydrates
		fiberTarget = targets.Fiber
		vitaminCTarget = float64(targets.VitaminC)
		vitaminDTarget = float64(targets.VitaminD)
		calciumTarget = float64(targets.Calcium)
		ironTarget = targets.Iron
	}

	return TodayProgress{
		ItemCount: len(foodLog),
		Totals:    totals,
		Macros: newProgressGroup("Macro-nutrients", "g",
			totals.Protein+totals.TotalCarbs+totals.Fiber,
			proteinTarget+carbsTarget+fiberTarget),
		Vitamins: newProgressGroup("Vitamins", "mg",
			totals.VitaminC+totals.VitaminD,
			vitaminCTarget+vitaminDTarget),
		Minerals: newProgressGroup("Minerals", "mg",
			totals.Calcium+totals.Iron,
			calciumTarget+ironTarget),
	}
}

// TotalCalories is the whole-kcal sum of a food list, as stored in the
// daily log.
func TotalCalories(foodLog []NutritionSummary) int {
	return int(SumFoodLog(foodLog).Calories)
}

func valueOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
