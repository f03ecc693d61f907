package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/mawebyasmu/jurnal-aliyah-sub000/internal/models"
	appErrors "github.com/mawebyasmu/jurnal-aliyah-sub000/pkg/errors"
	"github.com/mawebyasmu/jurnal-aliyah-sub000/pkg/events"
)

type settingsRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}) error
}

// SettingsService owns the admin-mutated attendance configuration. Reads
// fall back to the bootstrap defaults until an admin writes a value.
type SettingsService struct {
	repo     settingsRepository
	cache    *CacheService
	bus      *events.Bus
	logger   *zap.Logger
	defaults models.AttendanceSettings
}

// NewSettingsService constructs the settings service.
func NewSettingsService(repo settingsRepository, cache *CacheService, bus *events.Bus, logger *zap.Logger, defaults models.AttendanceSettings) *SettingsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettingsService{repo: repo, cache: cache, bus: bus, logger: logger, defaults: defaults}
}

// Attendance returns the live attendance settings.
func (s *SettingsService) Attendance(ctx context.Context) (models.AttendanceSettings, error) {
	var settings models.AttendanceSettings
	err := s.repo.Get(ctx, models.SettingsKeyAttendance, &settings)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return s.defaults, nil
		}
		return models.AttendanceSettings{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance settings")
	}
	return settings, nil
}

// UpdateAttendance validates and persists new attendance settings, then
// invalidates cached statistics since the rules they derive from changed.
func (s *SettingsService) UpdateAttendance(ctx context.Context, settings models.AttendanceSettings) (models.AttendanceSettings, error) {
	if err := settings.Validate(); err != nil {
		return models.AttendanceSettings{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	if settings.Timezone == "" {
		settings.Timezone = s.defaults.Timezone
	}
	if err := s.repo.Set(ctx, models.SettingsKeyAttendance, settings); err != nil {
		return models.AttendanceSettings{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist attendance settings")
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, "stats:*"); err != nil {
			s.logger.Warn("stats cache invalidation failed", zap.Error(err))
		}
	}
	if s.bus != nil {
		s.bus.Publish(events.TopicSettingsUpdated, settings)
	}
	return settings, nil
}
