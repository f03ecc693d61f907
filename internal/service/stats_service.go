package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mawebyasmu/jurnal-aliyah-sub000/internal/models"
	appErrors "github.com/mawebyasmu/jurnal-aliyah-sub000/pkg/errors"
)

type statsUserRepository interface {
	ListActiveTeachers(ctx context.Context) ([]models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type statsAttendanceRepository interface {
	ListByRange(ctx context.Context, from, to time.Time, userID *string) ([]models.AttendanceRecord, error)
}

type statsJournalRepository interface {
	ListByRange(ctx context.Context, from, to time.Time, userID *string) ([]models.TeachingLog, error)
}

// StatsService feeds the statistics engine from storage and caches computed
// rollups under the stats: prefix. Write paths invalidate that prefix, so a
// stale window never outlives the TTL or the next mutation.
type StatsService struct {
	users      statsUserRepository
	attendance statsAttendanceRepository
	journals   statsJournalRepository
	engine     *StatisticsEngine
	cache      *CacheService
	cacheTTL   time.Duration
	logger     *zap.Logger
}

// NewStatsService constructs the reporting read service.
func NewStatsService(users statsUserRepository, attendance statsAttendanceRepository, journals statsJournalRepository, cache *CacheService, cacheTTL time.Duration, logger *zap.Logger) *StatsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}
	return &StatsService{
		users:      users,
		attendance: attendance,
		journals:   journals,
		engine:     NewStatisticsEngine(),
		cache:      cache,
		cacheTTL:   cacheTTL,
		logger:     logger,
	}
}

// Daily returns the attendance summary for a single day.
func (s *StatsService) Daily(ctx context.Context, date time.Time) (*models.DailyStat, error) {
	day := dateOnly(date)
	key := fmt.Sprintf("stats:daily:%s", day.Format("2006-01-02"))

	var cached models.DailyStat
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, nil
	}

	teachers, err := s.users.ListActiveTeachers(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrDatabaseError.Code, appErrors.ErrDatabaseError.Status, "failed to load teachers")
	}
	records, err := s.attendance.ListByRange(ctx, day, day, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrDatabaseError.Code, appErrors.ErrDatabaseError.Status, "failed to load attendance records")
	}

	stat := s.engine.DailyStat(day, records, len(teachers))
	if err := s.cache.Set(ctx, key, stat, s.cacheTTL); err != nil {
		s.logger.Warn("daily stat cache write failed", zap.String("key", key), zap.Error(err))
	}
	return &stat, nil
}

// Departments returns per-department rollups over an inclusive date range.
func (s *StatsService) Departments(ctx context.Context, from, to time.Time) ([]models.DepartmentStat, error) {
	from, to = dateOnly(from), dateOnly(to)
	if to.Before(from) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "dateTo must not be before dateFrom")
	}
	key := fmt.Sprintf("stats:departments:%s:%s", from.Format("2006-01-02"), to.Format("2006-01-02"))

	var cached []models.DepartmentStat
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return cached, nil
	}

	teachers, err := s.users.ListActiveTeachers(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrDatabaseError.Code, appErrors.ErrDatabaseError.Status, "failed to load teachers")
	}
	records, err := s.attendance.ListByRange(ctx, from, to, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrDatabaseError.Code, appErrors.ErrDatabaseError.Status, "failed to load attendance records")
	}

	stats := s.engine.DepartmentRollup(teachers, records, s.engine.WorkingDaysInRange(from, to))
	if err := s.cache.Set(ctx, key, stats, s.cacheTTL); err != nil {
		s.logger.Warn("department stat cache write failed", zap.String("key", key), zap.Error(err))
	}
	return stats, nil
}

// TeacherPerformance grades teachers over a date range. When userID is set
// only that teacher is evaluated.
func (s *StatsService) TeacherPerformance(ctx context.Context, from, to time.Time, userID *string) ([]models.TeacherPerformance, error) {
	from, to = dateOnly(from), dateOnly(to)
	if to.Before(from) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "dateTo must not be before dateFrom")
	}
	key := fmt.Sprintf("stats:performance:%s:%s:%s", from.Format("2006-01-02"), to.Format("2006-01-02"), derefString(userID))

	var cached []models.TeacherPerformance
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return cached, nil
	}

	var teachers []models.User
	if userID != nil && *userID != "" {
		teacher, err := s.users.FindByID(ctx, *userID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrDatabaseError.Code, appErrors.ErrDatabaseError.Status, "failed to load teacher")
		}
		if teacher == nil || teacher.Role != models.RoleTeacher {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		teachers = []models.User{*teacher}
	} else {
		all, err := s.users.ListActiveTeachers(ctx)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrDatabaseError.Code, appErrors.ErrDatabaseError.Status, "failed to load teachers")
		}
		teachers = all
	}

	records, err := s.attendance.ListByRange(ctx, from, to, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrDatabaseError.Code, appErrors.ErrDatabaseError.Status, "failed to load attendance records")
	}
	logs, err := s.journals.ListByRange(ctx, from, to, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrDatabaseError.Code, appErrors.ErrDatabaseError.Status, "failed to load teaching logs")
	}

	results := make([]models.TeacherPerformance, 0, len(teachers))
	for _, teacher := range teachers {
		results = append(results, s.engine.TeacherPerformance(teacher, records, logs, from, to))
	}
	if err := s.cache.Set(ctx, key, results, s.cacheTTL); err != nil {
		s.logger.Warn("performance cache write failed", zap.String("key", key), zap.Error(err))
	}
	return results, nil
}

func derefString(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}
