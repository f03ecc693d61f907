package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mawebyasmu/jurnal-aliyah-sub000/internal/models"
	"github.com/mawebyasmu/jurnal-aliyah-sub000/pkg/clock"
	appErrors "github.com/mawebyasmu/jurnal-aliyah-sub000/pkg/errors"
	"github.com/mawebyasmu/jurnal-aliyah-sub000/pkg/events"
	"github.com/mawebyasmu/jurnal-aliyah-sub000/pkg/geo"
)

type attendanceRepository interface {
	GetByUserAndDate(ctx context.Context, userID string, date time.Time) (*models.AttendanceRecord, error)
	Upsert(ctx context.Context, record *models.AttendanceRecord) (*models.AttendanceRecord, error)
	SetCheckOut(ctx context.Context, id string, checkOut time.Time) (*models.AttendanceRecord, error)
	UpdateStatus(ctx context.Context, id string, status models.AttendanceStatus, notes *string) (*models.AttendanceRecord, error)
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecordDetail, int, error)
}

type attendanceSettingsProvider interface {
	Attendance(ctx context.Context) (models.AttendanceSettings, error)
}

// AttendanceService drives the per-day check-in state machine:
// no record -> checked in -> complete. Every transition is validated before
// the record is mutated, so a rejected action never corrupts state.
type AttendanceService struct {
	repo      attendanceRepository
	settings  attendanceSettingsProvider
	clock     clock.Clock
	bus       *events.Bus
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAttendanceService constructs the attendance service.
func NewAttendanceService(repo attendanceRepository, settings attendanceSettingsProvider, clk clock.Clock, bus *events.Bus, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if clk == nil {
		clk = clock.NewZoneClock(clock.DefaultTimezone)
	}
	return &AttendanceService{
		repo:      repo,
		settings:  settings,
		clock:     clk,
		bus:       bus,
		cache:     cache,
		validator: validate,
		logger:    logger,
	}
}

// CheckInRequest carries the caller-supplied position. The core never calls
// platform geolocation APIs itself.
type CheckInRequest struct {
	Latitude  float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" validate:"gte=-180,lte=180"`
	Notes     *string `json:"notes"`
}

// AttendanceListRequest is used for listing attendance records.
type AttendanceListRequest struct {
	UserID    string     `json:"user_id"`
	Status    *string    `json:"status"`
	DateFrom  *time.Time `json:"date_from"`
	DateTo    *time.Time `json:"date_to"`
	Page      int        `json:"page"`
	PageSize  int        `json:"page_size"`
	SortBy    string     `json:"sort_by"`
	SortOrder string     `json:"sort_order"`
}

// AdminAttendanceUpdateRequest is the admin bulk-edit payload.
type AdminAttendanceUpdateRequest struct {
	Status string  `json:"status" validate:"required"`
	Notes  *string `json:"notes"`
}

// CheckIn records today's attendance for the teacher after geofence and
// window validation. When preventMultipleCheckin is enabled a second call
// the same day is rejected; when disabled it overwrites today's record
// unless the day is already complete.
func (s *AttendanceService) CheckIn(ctx context.Context, userID string, req CheckInRequest) (*models.AttendanceRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid check-in payload")
	}

	settings, err := s.settings.Attendance(ctx)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	today := dateOnly(now)

	existing, err := s.recordFor(ctx, userID, today)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if settings.PreventMultipleCheckin {
			return nil, appErrors.Clone(appErrors.ErrDuplicateCheckIn, "")
		}
		if existing.Complete() {
			return nil, appErrors.Clone(appErrors.ErrAlreadyComplete, "")
		}
	}

	point := geo.Point{Latitude: req.Latitude, Longitude: req.Longitude}
	location := ValidateLocation(point, settings.Zone)
	if !location.Valid {
		return nil, appErrors.Clone(appErrors.ErrOutOfRange,
			fmt.Sprintf("location is %.0f m from school, allowed radius is %.0f m", location.DistanceMeters, settings.Zone.RadiusMeters))
	}

	timeOfDay := clock.TimeOfDayFromTime(now)
	window := ValidateTime(timeOfDay, settings.Window)
	if !window.Valid {
		message := "check-in window has closed for today"
		if window.Status == TimeStatusEarly {
			message = fmt.Sprintf("check-in opens at %s", settings.Window.StartOfDay)
		}
		return nil, appErrors.Clone(appErrors.ErrOutsideTimeWindow, message)
	}

	record := &models.AttendanceRecord{
		ID:             uuid.NewString(),
		UserID:         userID,
		Date:           today,
		CheckInTime:    now,
		Latitude:       req.Latitude,
		Longitude:      req.Longitude,
		DistanceMeters: location.DistanceMeters,
		Status:         DeriveCheckInStatus(timeOfDay, settings.Window),
		Notes:          req.Notes,
	}
	if existing != nil {
		record.ID = existing.ID
	}

	stored, err := s.repo.Upsert(ctx, record)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist check-in")
	}

	s.afterWrite(ctx, stored)
	return stored, nil
}

// CheckOut completes today's record. Repeated check-outs are idempotent and
// return the stored record unchanged; a check-out without a prior check-in
// is rejected.
func (s *AttendanceService) CheckOut(ctx context.Context, userID string) (*models.AttendanceRecord, error) {
	now := s.clock.Now()
	today := dateOnly(now)

	existing, err := s.recordFor(ctx, userID, today)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, appErrors.Clone(appErrors.ErrNotCheckedIn, "")
	}
	if existing.Complete() {
		return existing, nil
	}

	stored, err := s.repo.SetCheckOut(ctx, existing.ID, now)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist check-out")
	}

	s.afterWrite(ctx, stored)
	return stored, nil
}

// Today returns the teacher's record for the current day, or nil when no
// check-in has happened yet.
func (s *AttendanceService) Today(ctx context.Context, userID string) (*models.AttendanceRecord, error) {
	return s.recordFor(ctx, userID, dateOnly(s.clock.Now()))
}

// recordFor loads one teacher's record for a day, mapping a missing row to nil.
func (s *AttendanceService) recordFor(ctx context.Context, userID string, date time.Time) (*models.AttendanceRecord, error) {
	record, err := s.repo.GetByUserAndDate(ctx, userID, date)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load today's record")
	}
	return record, nil
}

// List returns paginated attendance records with teacher metadata.
func (s *AttendanceService) List(ctx context.Context, req AttendanceListRequest) ([]models.AttendanceRecordDetail, *models.Pagination, error) {
	var status *models.AttendanceStatus
	if req.Status != nil {
		st := models.AttendanceStatus(*req.Status)
		if !st.Valid() {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "invalid attendance status filter")
		}
		status = &st
	}
	page := req.Page
	if page < 1 {
		page = 1
	}
	size := req.PageSize
	if size <= 0 {
		size = 50
	}
	filter := models.AttendanceFilter{
		UserID:    req.UserID,
		Status:    status,
		DateFrom:  req.DateFrom,
		DateTo:    req.DateTo,
		Page:      page,
		PageSize:  size,
		SortBy:    req.SortBy,
		SortOrder: req.SortOrder,
	}
	rows, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance")
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return rows, pagination, nil
}

// AdminUpdate lets an admin correct a record's status or notes. This is the
// only path that mutates a record outside the check-in/check-out lifecycle.
func (s *AttendanceService) AdminUpdate(ctx context.Context, id string, req AdminAttendanceUpdateRequest) (*models.AttendanceRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	status := models.AttendanceStatus(req.Status)
	if !status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid attendance status")
	}
	stored, err := s.repo.UpdateStatus(ctx, id, status, req.Notes)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update record")
	}
	if stored == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "attendance record not found")
	}

	s.afterWrite(ctx, stored)
	return stored, nil
}

func (s *AttendanceService) afterWrite(ctx context.Context, record *models.AttendanceRecord) {
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, "stats:*"); err != nil {
			s.logger.Warn("stats cache invalidation failed", zap.Error(err))
		}
	}
	if s.bus != nil {
		s.bus.Publish(events.TopicAttendanceUpdated, record)
	}
}

// dateOnly truncates a timestamp to its calendar day in the clock's zone,
// normalised to UTC midnight for the date column.
func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
