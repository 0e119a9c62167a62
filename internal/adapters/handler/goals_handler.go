package handler

import (
	"net/http"
	"strconv"

	"github.com/IANDYI/nutrition-service/internal/core/domain"
	"github.com/IANDYI/nutrition-service/internal/core/ports"
	"go.uber.org/zap"
)

// defaultDailyLogLimit is used when the limit query parameter is absent
const defaultDailyLogLimit = domain.MaxTrackedDays

// GoalsHandler handles HTTP requests for goals and daily log history
type GoalsHandler struct {
	goalsService ports.GoalsService
	log          *zap.Logger
}

// NewGoalsHandler creates a new goals handler
func NewGoalsHandler(goalsService ports.GoalsService, log *zap.Logger) *GoalsHandler {
	return &GoalsHandler{
		goalsService: goalsService,
		log:          log,
	}
}

// GetGoals handles GET /goals
func (h *GoalsHandler) GetGoals(w http.ResponseWriter, r *http.Request) {
	scope := newRequestScope(h.log, r, "/goals")
	if !scope.authenticate(w, r) {
		return
	}

	state, err := h.goalsService.GetGoals(r.Context(), scope.userID)
	if err != nil {
		scope.serviceError(w, err)
		return
	}
	scope.ok(w, http.StatusOK, state)
}

// GetDailyLogs handles GET /daily-logs?limit=&order=asc|desc
func (h *GoalsHandler) GetDailyLogs(w http.ResponseWriter, r *http.Request) {
	scope := newRequestScope(h.log, r, "/daily-logs")
	if !scope.authenticate(w, r) {
		return
	}

	limit := defaultDailyLogLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			scope.fail(w, http.StatusBadRequest, "limit must be a positive integer", "", err)
			return
		}
		limit = parsed
	}
	order := domain.ParseSortOrder(r.URL.Query().Get("order"))

	logs, err := h.goalsService.GetDailyLogs(r.Context(), scope.userID, limit, order)
	if err != nil {
		scope.serviceError(w, err)
		return
	}
	scope.ok(w, http.StatusOK, logs)
}

// GetDailyLog handles GET /daily-logs/{date}
func (h *GoalsHandler) GetDailyLog(w http.ResponseWriter, r *http.Request) {
	scope := newRequestScope(h.log, r, "/daily-logs/{date}")
	if !scope.authenticate(w, r) {
		return
	}

	date := r.PathValue("date")
	if !domain.IsValidDate(date) {
		scope.fail(w, http.StatusBadRequest, "date must be YYYY-MM-DD", "", nil)
		return
	}

	entry, err := h.goalsService.GetDailyLog(r.Context(), scope.userID, date)
	if err != nil {
		scope.serviceError(w, err)
		return
	}
	scope.ok(w, http.StatusOK, entry)
}
