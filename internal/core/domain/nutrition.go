package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// NutrientID identifies a nutrient in the FoodData Central lookup service
type NutrientID int

const (
	NutrientEnergy     NutrientID = 1008
	NutrientProtein    NutrientID = 1003
	NutrientTotalCarbs NutrientID = 1005
	NutrientTotalFat   NutrientID = 1004
	NutrientFiber      NutrientID = 1079
	NutrientVitaminC   NutrientID = 1162
	NutrientVitaminD   NutrientID = 1114
	NutrientCalcium    NutrientID = 1087
)

// BrandedDataType is the only lookup data type queried for barcodes
const BrandedDataType = "Branded"

// UnknownProduct is the description used when none is available
const UnknownProduct = "Unknown Product"

// FoodCandidate is one hit of a lookup search
type FoodCandidate struct {
	ID          int    `json:"fdc_id"`
	Description string `json:"description"`
}

// FoodNutrient is a nutrient amount per 100 g of product.
// A nil Amount means the service listed the nutrient without a value.
type FoodNutrient struct {
	NutrientID NutrientID `json:"nutrient_id"`
	Name       string     `json:"name,omitempty"`
	Amount     *float64   `json:"amount_per_100g"`
	Unit       string     `json:"unit,omitempty"`
}

// FoodDetails is the full lookup record of a single product
type FoodDetails struct {
	ID              int            `json:"fdc_id"`
	Description     string         `json:"description"`
	Nutrients       []FoodNutrient `json:"nutrients"`
	ServingSize     *float64       `json:"serving_size"`
	ServingSizeUnit string         `json:"serving_size_unit"`
}

// Nutrient returns the first nutrient with the given id, or nil
func (d *FoodDetails) Nutrient(id NutrientID) *FoodNutrient {
	for i := range d.Nutrients {
		if d.Nutrients[i].NutrientID == id {
			return &d.Nutrients[i]
		}
	}
	return nil
}

// NutritionSummary holds the absolute nutrient amounts of one logged food
// item. A nil field is unknown, which is different from zero.
type NutritionSummary struct {
	Description string   `json:"description"`
	Calories    *float64 `json:"calories"`
	Protein     *float64 `json:"protein"`
	TotalCarbs  *float64 `json:"total_carbs"`
	TotalFat    *float64 `json:"total_fat"`
	Fiber       *float64 `json:"fiber"`
	VitaminC    *float64 `json:"vitamin_c"`
	VitaminD    *float64 `json:"vitamin_d"`
	Calcium     *float64 `json:"calcium"`
	Iron        *float64 `json:"iron"`
}

// Values returns the nutrient fields in a fixed order, for validation and
// persistence code that treats them uniformly.
func (s *NutritionSummary) Values() []*float64 {
	return []*float64{
		s.Calories, s.Protein, s.TotalCarbs, s.TotalFat, s.Fiber,
		s.VitaminC, s.VitaminD, s.Calcium, s.Iron,
	}
}

// ScaleServing converts a per-100 g amount to the amount in one serving.
// The result is unknown (nil) when either input is missing or the serving
// size is not positive. Liquids are not special-cased.
func ScaleServing(amountPer100g *float64, servingSizeGrams *float64) *float64 {
	if amountPer100g == nil || servingSizeGrams == nil || *servingSizeGrams <= 0 {
		return nil
	}
	scaled := (*amountPer100g / 100.0) * *servingSizeGrams
	return &scaled
}

// BuildSummary scales every tracked nutrient of a lookup record to one
// serving. Iron is not requested from the lookup service and stays unknown.
func BuildSummary(details *FoodDetails) NutritionSummary {
	scale := func(id NutrientID) *float64 {
		n := details.Nutrient(id)
		if n == nil {
			return nil
		}
		return ScaleServing(n.Amount, details.ServingSize)
	}

	description := strings.TrimSpace(details.Description)
	if description == "" {
		description = UnknownProduct
	}

	return NutritionSummary{
		Description: description,
		Calories:    scale(NutrientEnergy),
		Protein:     scale(NutrientProtein),
		TotalCarbs:  scale(NutrientTotalCarbs),
		TotalFat:    scale(NutrientTotalFat),
		Fiber:       scale(NutrientFiber),
		VitaminC:    scale(NutrientVitaminC),
		VitaminD:    scale(NutrientVitaminD),
		Calcium:     scale(NutrientCalcium),
	}
}

// NormalizeBarcode keeps only the ASCII digits of a scanned or typed code
func NormalizeBarcode(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// LeadingZeroVariant is the vendor-format retry code for a normalized barcode
func LeadingZeroVariant(code string) string {
	return "00" + code
}

// FoodSource tells how a food log item was entered
type FoodSource string

const (
	FoodSourceBarcode FoodSource = "barcode"
	FoodSourceManual  FoodSource = "manual"
)

// FoodLogItem is one entry of a user's food list for a day
type FoodLogItem struct {
	ID        uuid.UUID        `json:"id"`
	UserID    uuid.UUID        `json:"user_id"`
	Date      string           `json:"date"` // YYYY-MM-DD
	Source    FoodSource       `json:"source"`
	Barcode   string           `json:"barcode,omitempty"`
	Summary   NutritionSummary `json:"summary"`
	CreatedAt time.Time        `json:"created_at"`
}

// Float64 returns a pointer to v
func Float64(v float64) *float64 {
	return &v
}
