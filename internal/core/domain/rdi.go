package domain

import (
	"math"
	"strings"
)

// RDIRequirements is the full set of personalized daily nutrient targets.
// It is always fully populated and always recomputed from the current
// profile; stored targets are never trusted.
type RDIRequirements struct {
	Calories      int     `json:"calories"`      // kcal
	Protein       float64 `json:"protein"`       // g
	Carbohydrates float64 `json:"carbohydrates"` // g
	Fiber         float64 `json:"fiber"`         // g
	Calcium       int     `json:"calcium"`       // mg
	Iron          float64 `json:"iron"`          // mg
	Magnesium     int     `json:"magnesium"`     // mg
	Phosphorus    int     `json:"phosphorus"`    // mg
	Potassium     int     `json:"potassium"`     // mg
	Sodium        int     `json:"sodium"`        // mg, upper limit
	Zinc          float64 `json:"zinc"`          // mg
	VitaminA      int     `json:"vitamin_a"`     // mcg RAE
	VitaminC      int     `json:"vitamin_c"`     // mg
	VitaminD      int     `json:"vitamin_d"`     // mcg
	VitaminE      float64 `json:"vitamin_e"`     // mg
	VitaminK      int     `json:"vitamin_k"`     // mcg
	Thiamin       float64 `json:"thiamin"`       // mg
	Riboflavin    float64 `json:"riboflavin"`    // mg
	Niacin        float64 `json:"niacin"`        // mg NE
	VitaminB6     float64 `json:"vitamin_b6"`    // mg
	Folate        int     `json:"folate"`        // mcg DFE
	VitaminB12    float64 `json:"vitamin_b12"`   // mcg
}

const (
	proteinGramsPerKg   = 0.8
	carbohydrateMinimum = 130.0
	sodiumUpperLimit    = 2300
)

// activityMultipliers are matched in order by case-insensitive substring.
var activityMultipliers = []struct {
	label      string
	multiplier float64
}{
	{"Sedentary", 1.2},
	{"Lightly Active", 1.375},
	{"Moderately Active", 1.55},
	{"Very Active", 1.725},
	{"Extra Active", 1.9},
}

const defaultActivityMultiplier = 1.55

// ActivityMultiplier returns the TDEE multiplier for an activity label
func ActivityMultiplier(activityLevel string) float64 {
	level := strings.ToLower(activityLevel)
	for _, a := range activityMultipliers {
		if strings.Contains(level, strings.ToLower(a.label)) {
			return a.multiplier
		}
	}
	return defaultActivityMultiplier
}

// MaxCalories caps the daily energy target
const MaxCalories = math.MaxInt32

// BMR computes the basal metabolic rate with the Mifflin-St Jeor equation
func BMR(p BiometricProfile) float64 {
	base := 10*p.WeightKg + 6.25*p.HeightCm - 5*float64(p.Age)
	if p.IsMale() {
		return base + 5
	}
	return base - 161
}

// CalculateRDI derives every nutrient target from the profile. It never
// fails: out-of-range inputs land in the nearest bracket and an
// implausible energy estimate is clamped to [0, MaxCalories].
func CalculateRDI(p BiometricProfile) RDIRequirements {
	calories := clampCalories(BMR(p) * ActivityMultiplier(p.ActivityLevel))

	// Flat RDA factor; age and sex do not change it.
	protein := proteinGramsPerKg * p.WeightKg
	if protein < 0 {
		protein = 0
	}

	male := p.IsMale()
	return RDIRequirements{
		Calories:      calories,
		Protein:       protein,
		Carbohydrates: carbohydrateMinimum,
		Fiber:         fiberTable.lookup(p.Age, male),
		Calcium:       int(calciumTable.lookup(p.Age, male)),
		Iron:          ironTable.lookup(p.Age, male),
		Magnesium:     int(magnesiumTable.lookup(p.Age, male)),
		Phosphorus:    int(phosphorusTable.lookup(p.Age, male)),
		Potassium:     int(potassiumTable.lookup(p.Age, male)),
		Sodium:        sodiumUpperLimit,
		Zinc:          zincTable.lookup(p.Age, male),
		VitaminA:      int(vitaminATable.lookup(p.Age, male)),
		VitaminC:      int(vitaminCTable.lookup(p.Age, male)),
		VitaminD:      int(vitaminDTable.lookup(p.Age, male)),
		VitaminE:      vitaminETable.lookup(p.Age, male),
		VitaminK:      int(vitaminKTable.lookup(p.Age, male)),
		Thiamin:       thiaminTable.lookup(p.Age, male),
		Riboflavin:    riboflavinTable.lookup(p.Age, male),
		Niacin:        niacinTable.lookup(p.Age, male),
		VitaminB6:     vitaminB6Table.lookup(p.Age, male),
		Folate:        int(folateTable.lookup(p.Age, male)),
		VitaminB12:    vitaminB12Table.lookup(p.Age, male),
	}
}

// clampCalories floors the energy estimate into [0, MaxCalories] before the
// integer conversion.
func clampCalories(energy float64) int {
	switch {
	case math.IsNaN(energy) || energy <= 0:
		return 0
	case energy >= MaxCalories:
		return MaxCalories
	}
	return int(math.Floor(energy))
}

// ageBracket covers ages up to and including maxAge
type ageBracket struct {
	maxAge int
	male   float64
	female float64
}

// rdaTable is evaluated in ascending order, first match wins. The last
// bracket is open-ended.
type rdaTable []ageBracket

func (t rdaTable) lookup(age int, male bool) float64 {
	for _, b := range t {
		if age <= b.maxAge {
			if male {
				return b.male
			}
			return b.female
		}
	}
	last := t[len(t)-1]
	if male {
		return last.male
	}
	return last.female
}

const anyAge = math.MaxInt

// Identical male/female columns are kept per bracket so a single bracket
// can be corrected without restructuring the table.
var (
	fiberTable = rdaTable{
		{8, 25, 25},
		{13, 31, 26},
		{18, 38, 26},
		{50, 38, 25},
		{anyAge, 30, 21},
	}

	calciumTable = rdaTable{
		{3, 700, 700},
		{8, 1000, 1000},
		{18, 1300, 1300},
		{50, 1000, 1000},
		{70, 1000, 1200},
		{anyAge, 1200, 1200},
	}

	ironTable = rdaTable{
		{3, 7, 7},
		{8, 10, 10},
		{13, 8, 8},
		{18, 11, 15},
		{50, 8, 18},
		{anyAge, 8, 8},
	}

	magnesiumTable = rdaTable{
		{3, 80, 80},
		{8, 130, 130},
		{13, 240, 240},
		{18, 410, 360},
		{30, 400, 310},
		{anyAge, 420, 320},
	}

	phosphorusTable = rdaTable{
		{3, 460, 460},
		{8, 500, 500},
		{18, 1250, 1250},
		{anyAge, 700, 700},
	}

	potassiumTable = rdaTable{
		{3, 3000, 3000},
		{8, 3800, 3800},
		{13, 4500, 4500},
		{18, 3000, 2300},
		{anyAge, 3400, 2600},
	}

	zincTable = rdaTable{
		{3, 3, 3},
		{8, 5, 5},
		{13, 8, 8},
		{18, 11, 9},
		{anyAge, 11, 8},
	}

	vitaminATable = rdaTable{
		{3, 300, 300},
		{8, 400, 400},
		{13, 600, 600},
		{18, 900, 700},
		{anyAge, 900, 700},
	}

	vitaminCTable = rdaTable{
		{3, 15, 15},
		{8, 25, 25},
		{13, 45, 45},
		{18, 75, 65},
		{anyAge, 90, 75},
	}

	vitaminDTable = rdaTable{
		{70, 15, 15},
		{anyAge, 20, 20},
	}

	vitaminETable = rdaTable{
		{3, 6, 6},
		{8, 7, 7},
		{13, 11, 11},
		{anyAge, 15, 15},
	}

	vitaminKTable = rdaTable{
		{3, 30, 30},
		{8, 55, 55},
		{13, 60, 60},
		{18, 75, 75},
		{anyAge, 120, 90},
	}

	thiaminTable = rdaTable{
		{3, 0.5, 0.5},
		{8, 0.6, 0.6},
		{13, 0.9, 0.9},
		{18, 1.2, 1.0},
		{anyAge, 1.2, 1.1},
	}

	riboflavinTable = rdaTable{
		{3, 0.5, 0.5},
		{8, 0.6, 0.6},
		{13, 0.9, 0.9},
		{18, 1.3, 1.0},
		{anyAge, 1.3, 1.1},
	}

	niacinTable = rdaTable{
		{3, 6, 6},
		{8, 8, 8},
		{13, 12, 12},
		{18, 16, 14},
		{anyAge, 16, 14},
	}

	vitaminB6Table = rdaTable{
		{3, 0.5, 0.5},
		{8, 0.6, 0.6},
		{13, 1.0, 1.0},
		{18, 1.3, 1.3},
		{50, 1.3, 1.3},
		{anyAge, 1.7, 1.5},
	}

	folateTable = rdaTable{
		{3, 150, 150},
		{8, 200, 200},
		{13, 300, 300},
		{anyAge, 400, 400},
	}

	vitaminB12Table = rdaTable{
		{3, 0.9, 0.9},
		{8, 1.2, 1.2},
		{13, 1.8, 1.8},
		{anyAge, 2.4, 2.4},
	}
)
