package domain

import (
	"math"
	"strconv"
	"strings"
)

// Profile defaults used when a stored setting is missing or unparseable
const (
	DefaultAge           = 25
	DefaultWeightKg      = 70.0
	DefaultHeightCm      = 170.0
	DefaultActivityLevel = "Moderately Active (3-5 days/week)"
)

// Settings keys as persisted in the key/value settings store
const (
	SettingName          = "name"
	SettingAge           = "age"
	SettingGender        = "gender"
	SettingHeight        = "height"
	SettingWeight        = "weight"
	SettingBodyFat       = "body_fat"
	SettingActivityLevel = "activity_level"
	SettingGoalType      = "goal_type"
	SettingDietType      = "diet_type"
	SettingAllergies     = "allergies"
)

// Labels offered by the client. Stored values are not restricted to these;
// unknown labels fall through to the calculation defaults.
var (
	GenderOptions = []string{"Male", "Female", "Other", "Prefer not to say"}

	ActivityLevelOptions = []string{
		"Sedentary (little or no exercise)",
		"Lightly Active (1-3 days/week)",
		"Moderately Active (3-5 days/week)",
		"Very Active (6-7 days/week)",
		"Extra Active (very intense exercise)",
	}

	GoalTypeOptions = []string{
		"Weight Loss",
		"Weight Gain",
		"Muscle Building",
		"Maintain Weight",
		"General Health",
	}

	DietTypeOptions = []string{
		"No Restrictions",
		"Vegetarian",
		"Vegan",
		"Keto",
		"Paleo",
		"Mediterranean",
		"Low Carb",
		"Gluten Free",
	}
)

// SettingsData is the raw user settings record. Every field is kept as the
// string the user entered; parsing happens in Profile.
type SettingsData struct {
	Name          string `json:"name"`
	Age           string `json:"age"`
	Gender        string `json:"gender"`
	Height        string `json:"height"`
	Weight        string `json:"weight"`
	BodyFat       string `json:"body_fat"`
	ActivityLevel string `json:"activity_level"`
	GoalType      string `json:"goal_type"`
	DietType      string `json:"diet_type"`
	Allergies     string `json:"allergies"`
}

// ToMap flattens the settings into store keys
func (s SettingsData) ToMap() map[string]string {
	return map[string]string{
		SettingName:          s.Name,
		SettingAge:           s.Age,
		SettingGender:        s.Gender,
		SettingHeight:        s.Height,
		SettingWeight:        s.Weight,
		SettingBodyFat:       s.BodyFat,
		SettingActivityLevel: s.ActivityLevel,
		SettingGoalType:      s.GoalType,
		SettingDietType:      s.DietType,
		SettingAllergies:     s.Allergies,
	}
}

// SettingsFromMap rebuilds settings from store keys. Missing keys are empty.
func SettingsFromMap(values map[string]string) SettingsData {
	return SettingsData{
		Name:          values[SettingName],
		Age:           values[SettingAge],
		Gender:        values[SettingGender],
		Height:        values[SettingHeight],
		Weight:        values[SettingWeight],
		BodyFat:       values[SettingBodyFat],
		ActivityLevel: values[SettingActivityLevel],
		GoalType:      values[SettingGoalType],
		DietType:      values[SettingDietType],
		Allergies:     values[SettingAllergies],
	}
}

// BiometricProfile is the parsed input of the RDI calculator
type BiometricProfile struct {
	Age           int     `json:"age"`
	Gender        string  `json:"gender"`
	WeightKg      float64 `json:"weight_kg"`
	HeightCm      float64 `json:"height_cm"`
	ActivityLevel string  `json:"activity_level"`
}

// DefaultProfile is the profile of a user with no stored settings
func DefaultProfile() BiometricProfile {
	return SettingsData{}.Profile()
}

// Profile parses the stored strings, substituting defaults for anything
// that does not parse. Gender is passed through raw; a blank activity level
// becomes DefaultActivityLevel.
func (s SettingsData) Profile() BiometricProfile {
	age, err := strconv.Atoi(strings.TrimSpace(s.Age))
	if err != nil {
		age = DefaultAge
	}

	activity := s.ActivityLevel
	if strings.TrimSpace(activity) == "" {
		activity = DefaultActivityLevel
	}

	return BiometricProfile{
		Age:           age,
		Gender:        s.Gender,
		WeightKg:      parseFloatOr(s.Weight, DefaultWeightKg),
		HeightCm:      parseFloatOr(s.Height, DefaultHeightCm),
		ActivityLevel: activity,
	}
}

// IsMale reports whether the profile takes the male branch of the tables.
// Anything other than "Male" (case-insensitive) uses the female branch.
func (p BiometricProfile) IsMale() bool {
	return strings.EqualFold(p.Gender, "Male")
}

func parseFloatOr(raw string, fallback float64) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return fallback
	}
	return v
}
