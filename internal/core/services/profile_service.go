package services

import (
	"context"
	"fmt"

	"github.com/IANDYI/nutrition-service/internal/core/domain"
	"github.com/IANDYI/nutrition-service/internal/core/ports"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ProfileService implements settings storage and RDI calculation
type ProfileService struct {
	settingsRepo ports.SettingsRepository
	log          *zap.Logger
}

// NewProfileService creates a new profile service
func NewProfileService(settingsRepo ports.SettingsRepository, log *zap.Logger) *ProfileService {
	return &ProfileService{
		settingsRepo: settingsRepo,
		log:          log,
	}
}

// GetSettings returns the stored settings; empty fields if none are stored
func (s *ProfileService) GetSettings(ctx context.Context, userID uuid.UUID) (*domain.SettingsData, error) {
	values, err := s.settingsRepo.GetSettings(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	settings := domain.SettingsFromMap(values)
	return &settings, nil
}

// SaveSettings replaces the stored settings
func (s *ProfileService) SaveSettings(ctx context.Context, userID uuid.UUID, settings domain.SettingsData) (*domain.SettingsData, error) {
	if err := s.settingsRepo.SaveSettings(ctx, userID, settings.ToMap()); err != nil {
		return nil, fmt.Errorf("failed to save settings: %w", err)
	}

	s.log.Info("settings_saved",
		zap.String("user_id", userID.String()),
		zap.String("activity_level", settings.ActivityLevel),
		zap.String("goal_type", settings.GoalType))

	return &settings, nil
}

// ClearSettings removes all stored settings. Targets fall back to defaults.
func (s *ProfileService) ClearSettings(ctx context.Context, userID uuid.UUID) error {
	if err := s.settingsRepo.ClearSettings(ctx, userID); err != nil {
		return fmt.Errorf("failed to clear settings: %w", err)
	}
	s.log.Info("settings_cleared", zap.String("user_id", userID.String()))
	return nil
}

// CurrentRDI recomputes targets from the current settings
func (s *ProfileService) CurrentRDI(ctx context.Context, userID uuid.UUID) (*ports.RDIReport, error) {
	profile, err := loadProfile(ctx, s.settingsRepo, userID)
	if err != nil {
		return nil, err
	}

	return &ports.RDIReport{
		Profile:            profile,
		BMR:                domain.BMR(profile),
		ActivityMultiplier: domain.ActivityMultiplier(profile.ActivityLevel),
		Requirements:       domain.CalculateRDI(profile),
	}, nil
}

// loadProfile parses the stored settings of a user into a biometric profile
func loadProfile(ctx context.Context, repo ports.SettingsRepository, userID uuid.UUID) (domain.BiometricProfile, error) {
	values, err := repo.GetSettings(ctx, userID)
	if err != nil {
		return domain.BiometricProfile{}, fmt.Errorf("failed to load settings: %w", err)
	}
	return domain.SettingsFromMap(values).Profile(), nil
}

// loadRDI recomputes the live targets of a user
func loadRDI(ctx context.Context, repo ports.SettingsRepository, userID uuid.UUID) (domain.RDIRequirements, error) {
	profile, err := loadProfile(ctx, repo, userID)
	if err != nil {
		return domain.RDIRequirements{}, err
	}
	return domain.CalculateRDI(profile), nil
}

var _ ports.ProfileService = (*ProfileService)(nil)
