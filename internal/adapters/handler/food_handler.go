package handler

import (
	"net/http"
	"strings"

	"github.com/IANDYI/nutrition-service/internal/core/domain"
	"github.com/IANDYI/nutrition-service/internal/core/ports"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// IdempotencyKeyHeader optionally carries a UUID naming the food entry; a
// retried POST with the same key stores the item once.
const IdempotencyKeyHeader = "Idempotency-Key"

// FoodHandler handles HTTP requests for today's food list
type FoodHandler struct {
	foodService ports.FoodService
	log         *zap.Logger
}

// NewFoodHandler creates a new food handler
func NewFoodHandler(foodService ports.FoodService, log *zap.Logger) *FoodHandler {
	return &FoodHandler{
		foodService: foodService,
		log:         log,
	}
}

// BarcodeRequest represents the request body for logging a scanned barcode
type BarcodeRequest struct {
	Barcode string `json:"barcode"`
}

// TodayFoodsResponse is today's food list with its calorie total
type TodayFoodsResponse struct {
	Items         []*domain.FoodLogItem `json:"items"`
	TotalCalories int                   `json:"total_calories"`
}

// AddBarcodeFood handles POST /foods/barcode
func (h *FoodHandler) AddBarcodeFood(w http.ResponseWriter, r *http.Request) {
	scope := newRequestScope(h.log, r, "/foods/barcode")
	if !scope.authenticate(w, r) {
		return
	}

	var req BarcodeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		scope.fail(w, http.StatusBadRequest, "invalid request body", "", err)
		return
	}

	entryID, err := entryIDFrom(r)
	if err != nil {
		scope.fail(w, http.StatusBadRequest, "invalid Idempotency-Key header, expected a UUID", "", err)
		return
	}

	item, err := h.foodService.AddBarcodeFood(r.Context(), scope.userID, entryID, req.Barcode)
	BarcodeLookupsTotal.WithLabelValues(lookupResult(err)).Inc()
	if err != nil {
		FoodEntriesTotal.WithLabelValues(string(domain.FoodSourceBarcode), "failed").Inc()
		scope.serviceError(w, err)
		return
	}

	FoodEntriesTotal.WithLabelValues(string(domain.FoodSourceBarcode), "logged").Inc()
	scope.ok(w, http.StatusCreated, item)
}

// LookupBarcode handles GET /foods/lookup/{barcode} - resolves without logging
func (h *FoodHandler) LookupBarcode(w http.ResponseWriter, r *http.Request) {
	scope := newRequestScope(h.log, r, "/foods/lookup/{barcode}")
	if !scope.authenticate(w, r) {
		return
	}

	summary, err := h.foodService.ResolveBarcode(r.Context(), r.PathValue("barcode"))
	BarcodeLookupsTotal.WithLabelValues(lookupResult(err)).Inc()
	if err != nil {
		scope.serviceError(w, err)
		return
	}
	scope.ok(w, http.StatusOK, summary)
}

// AddManualFood handles POST /foods/manual
func (h *FoodHandler) AddManualFood(w http.ResponseWriter, r *http.Request) {
	scope := newRequestScope(h.log, r, "/foods/manual")
	if !scope.authenticate(w, r) {
		return
	}

	var req domain.NutritionSummary
	if err := decodeJSON(w, r, &req); err != nil {
		scope.fail(w, http.StatusBadRequest, "invalid request body", "", err)
		return
	}

	entryID, err := entryIDFrom(r)
	if err != nil {
		scope.fail(w, http.StatusBadRequest, "invalid Idempotency-Key header, expected a UUID", "", err)
		return
	}

	item, err := h.foodService.AddManualFood(r.Context(), scope.userID, entryID, req)
	if err != nil {
		FoodEntriesTotal.WithLabelValues(string(domain.FoodSourceManual), "failed").Inc()
		scope.serviceError(w, err)
		return
	}

	FoodEntriesTotal.WithLabelValues(string(domain.FoodSourceManual), "logged").Inc()
	scope.ok(w, http.StatusCreated, item)
}

// TodayFoods handles GET /foods/today
func (h *FoodHandler) TodayFoods(w http.ResponseWriter, r *http.Request) {
	scope := newRequestScope(h.log, r, "/foods/today")
	if !scope.authenticate(w, r) {
		return
	}

	items, err := h.foodService.TodayFoods(r.Context(), scope.userID)
	if err != nil {
		scope.serviceError(w, err)
		return
	}

	summaries := make([]domain.NutritionSummary, 0, len(items))
	for _, item := range items {
		summaries = append(summaries, item.Summary)
	}
	scope.ok(w, http.StatusOK, TodayFoodsResponse{
		Items:         items,
		TotalCalories: domain.TotalCalories(summaries),
	})
}

// TodayProgress handles GET /progress/today
func (h *FoodHandler) TodayProgress(w http.ResponseWriter, r *http.Request) {
	scope := newRequestScope(h.log, r, "/progress/today")
	if !scope.authenticate(w, r) {
		return
	}

	progress, err := h.foodService.TodayProgress(r.Context(), scope.userID)
	if err != nil {
		scope.serviceError(w, err)
		return
	}
	scope.ok(w, http.StatusOK, progress)
}

func entryIDFrom(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader))
	if raw == "" {
		return uuid.Nil, nil
	}
	return uuid.Parse(raw)
}
