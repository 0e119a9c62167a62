package handler

import (
	"net/http"

	"github.com/IANDYI/nutrition-service/internal/core/domain"
	"github.com/IANDYI/nutrition-service/internal/core/ports"
	"go.uber.org/zap"
)

// SettingsHandler handles HTTP requests for profile settings and targets
type SettingsHandler struct {
	profileService ports.ProfileService
	log            *zap.Logger
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(profileService ports.ProfileService, log *zap.Logger) *SettingsHandler {
	return &SettingsHandler{
		profileService: profileService,
		log:            log,
	}
}

// SettingsOptions lists the labels offered by the client pickers
type SettingsOptions struct {
	Genders        []string `json:"genders"`
	ActivityLevels []string `json:"activity_levels"`
	GoalTypes      []string `json:"goal_types"`
	DietTypes      []string `json:"diet_types"`
}

// GetSettings handles GET /settings
func (h *SettingsHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	scope := newRequestScope(h.log, r, "/settings")
	if !scope.authenticate(w, r) {
		return
	}

	settings, err := h.profileService.GetSettings(r.Context(), scope.userID)
	if err != nil {
		scope.serviceError(w, err)
		return
	}
	scope.ok(w, http.StatusOK, settings)
}

// SaveSettings handles PUT /settings. The body replaces all stored fields;
// values are stored as entered and defaulted only when targets are computed.
func (h *SettingsHandler) SaveSettings(w http.ResponseWriter, r *http.Request) {
	scope := newRequestScope(h.log, r, "/settings")
	if !scope.authenticate(w, r) {
		return
	}

	var req domain.SettingsData
	if err := decodeJSON(w, r, &req); err != nil {
		scope.fail(w, http.StatusBadRequest, "invalid request body", "", err)
		return
	}

	settings, err := h.profileService.SaveSettings(r.Context(), scope.userID, req)
	if err != nil {
		scope.serviceError(w, err)
		return
	}
	scope.ok(w, http.StatusOK, settings)
}

// ClearSettings handles DELETE /settings
func (h *SettingsHandler) ClearSettings(w http.ResponseWriter, r *http.Request) {
	scope := newRequestScope(h.log, r, "/settings")
	if !scope.authenticate(w, r) {
		return
	}

	if err := h.profileService.ClearSettings(r.Context(), scope.userID); err != nil {
		scope.serviceError(w, err)
		return
	}
	scope.ok(w, http.StatusNoContent, nil)
}

// GetOptions handles GET /settings/options
func (h *SettingsHandler) GetOptions(w http.ResponseWriter, r *http.Request) {
	scope := newRequestScope(h.log, r, "/settings/options")
	scope.ok(w, http.StatusOK, SettingsOptions{
		Genders:        domain.GenderOptions,
		ActivityLevels: domain.ActivityLevelOptions,
		GoalTypes:      domain.GoalTypeOptions,
		DietTypes:      domain.DietTypeOptions,
	})
}

// GetRDI handles GET /rdi - targets recomputed from the current settings
func (h *SettingsHandler) GetRDI(w http.ResponseWriter, r *http.Request) {
	scope := newRequestScope(h.log, r, "/rdi")
	if !scope.authenticate(w, r) {
		return
	}

	report, err := h.profileService.CurrentRDI(r.Context(), scope.userID)
	if err != nil {
		scope.serviceError(w, err)
		return
	}
	scope.ok(w, http.StatusOK, report)
}
