package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mawebyasmu/jurnal-aliyah-sub000/internal/models"
	"github.com/mawebyasmu/jurnal-aliyah-sub000/pkg/clock"
	appErrors "github.com/mawebyasmu/jurnal-aliyah-sub000/pkg/errors"
)

type scheduleRepository interface {
	List(ctx context.Context, filter models.ScheduleFilter) ([]models.ScheduleDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.ScheduleDetail, error)
	HasOverlap(ctx context.Context, classID, dayOfWeek, startTime, endTime, excludeID string) (bool, error)
	Create(ctx context.Context, schedule *models.Schedule) error
	Update(ctx context.Context, schedule *models.Schedule) error
	Delete(ctx context.Context, id string) error
}

var scheduleDays = map[string]struct{}{
	"MONDAY": {}, "TUESDAY": {}, "WEDNESDAY": {}, "THURSDAY": {}, "FRIDAY": {}, "SATURDAY": {},
}

// ScheduleRequest holds payload for creating and updating weekly slots.
type ScheduleRequest struct {
	ClassID   string `json:"class_id" validate:"required"`
	SubjectID string `json:"subject_id" validate:"required"`
	TeacherID string `json:"teacher_id" validate:"required"`
	DayOfWeek string `json:"day_of_week" validate:"required"`
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time" validate:"required"`
	Room      string `json:"room"`
}

// ScheduleService manages the weekly teaching timetable.
type ScheduleService struct {
	repo      scheduleRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewScheduleService constructs the schedule service.
func NewScheduleService(repo scheduleRepository, validate *validator.Validate, logger *zap.Logger) *ScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{repo: repo, validator: validate, logger: logger}
}

// List returns schedule slots and pagination metadata.
func (s *ScheduleService) List(ctx context.Context, filter models.ScheduleFilter) ([]models.ScheduleDetail, *models.Pagination, error) {
	slots, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedules")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return slots, pagination, nil
}

// Get returns one schedule slot.
func (s *ScheduleService) Get(ctx context.Context, id string) (*models.ScheduleDetail, error) {
	slot, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	return slot, nil
}

// Create adds a weekly slot after checking for class overlaps.
func (s *ScheduleService) Create(ctx context.Context, req ScheduleRequest) (*models.Schedule, error) {
	normalized, err := s.normalize(req)
	if err != nil {
		return nil, err
	}
	overlap, err := s.repo.HasOverlap(ctx, normalized.ClassID, normalized.DayOfWeek, normalized.StartTime, normalized.EndTime, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check schedule overlap")
	}
	if overlap {
		return nil, appErrors.Clone(appErrors.ErrConflict, "schedule overlaps an existing slot for this class")
	}

	slot := &models.Schedule{
		ID:        uuid.NewString(),
		ClassID:   normalized.ClassID,
		SubjectID: normalized.SubjectID,
		TeacherID: normalized.TeacherID,
		DayOfWeek: normalized.DayOfWeek,
		StartTime: normalized.StartTime,
		EndTime:   normalized.EndTime,
		Room:      normalized.Room,
	}
	if err := s.repo.Create(ctx, slot); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create schedule")
	}
	return slot, nil
}

// Update modifies a weekly slot.
func (s *ScheduleService) Update(ctx context.Context, id string, req ScheduleRequest) (*models.Schedule, error) {
	normalized, err := s.normalize(req)
	if err != nil {
		return nil, err
	}
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	overlap, err := s.repo.HasOverlap(ctx, normalized.ClassID, normalized.DayOfWeek, normalized.StartTime, normalized.EndTime, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check schedule overlap")
	}
	if overlap {
		return nil, appErrors.Clone(appErrors.ErrConflict, "schedule overlaps an existing slot for this class")
	}

	slot := detail.Schedule
	slot.ClassID = normalized.ClassID
	slot.SubjectID = normalized.SubjectID
	slot.TeacherID = normalized.TeacherID
	slot.DayOfWeek = normalized.DayOfWeek
	slot.StartTime = normalized.StartTime
	slot.EndTime = normalized.EndTime
	slot.Room = normalized.Room

	if err := s.repo.Update(ctx, &slot); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update schedule")
	}
	return &slot, nil
}

// Delete removes a weekly slot.
func (s *ScheduleService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete schedule")
	}
	return nil
}

func (s *ScheduleService) normalize(req ScheduleRequest) (ScheduleRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return req, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}
	req.DayOfWeek = strings.ToUpper(strings.TrimSpace(req.DayOfWeek))
	if _, ok := scheduleDays[req.DayOfWeek]; !ok {
		return req, appErrors.Clone(appErrors.ErrValidation, "unsupported day of week")
	}
	start, err := clock.ParseTimeOfDay(req.StartTime)
	if err != nil {
		return req, appErrors.Clone(appErrors.ErrValidation, "start_time must be HH:MM")
	}
	end, err := clock.ParseTimeOfDay(req.EndTime)
	if err != nil {
		return req, appErrors.Clone(appErrors.ErrValidation, "end_time must be HH:MM")
	}
	if !start.Before(end) {
		return req, appErrors.Clone(appErrors.ErrValidation, "start_time must be before end_time")
	}
	req.StartTime = start.String()
	req.EndTime = end.String()
	return req, nil
}
