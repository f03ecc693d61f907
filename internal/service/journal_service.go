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
)

type teachingLogRepository interface {
	CreateWithAttendance(ctx context.Context, log *models.TeachingLog, students []models.StudentAttendance) error
	List(ctx context.Context, filter models.TeachingLogFilter) ([]models.TeachingLogDetail, int, error)
	GetByID(ctx context.Context, id string) (*models.TeachingLogDetail, error)
}

type classRoster interface {
	ListActiveByClass(ctx context.Context, classID string) ([]models.Student, error)
}

// JournalService records teaching sessions with their per-student roster
// attendance and derives the session summary.
type JournalService struct {
	repo      teachingLogRepository
	roster    classRoster
	bus       *events.Bus
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewJournalService constructs the journal service.
func NewJournalService(repo teachingLogRepository, roster classRoster, bus *events.Bus, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *JournalService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &JournalService{repo: repo, roster: roster, bus: bus, cache: cache, validator: validate, logger: logger}
	svc.validator.RegisterValidation("student_status", func(fl validator.FieldLevel) bool {
		return models.StudentAttendanceStatus(fl.Field().String()).Valid()
	})
	svc.validator.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
		_, err := clock.ParseTimeOfDay(fl.Field().String())
		return err == nil
	})
	return svc
}

// JournalStudentEntry is one roster student's status in the payload.
type JournalStudentEntry struct {
	StudentID   string  `json:"student_id" validate:"required"`
	Status      string  `json:"status" validate:"required,student_status"`
	ArrivalTime *string `json:"arrival_time" validate:"omitempty,hhmm"`
	Notes       *string `json:"notes"`
}

// CreateJournalRequest describes a teaching session submission.
type CreateJournalRequest struct {
	Date      string                `json:"date" validate:"required"`
	ClassID   string                `json:"class_id" validate:"required"`
	SubjectID string                `json:"subject_id" validate:"required"`
	Topic     string                `json:"topic" validate:"required"`
	Materials string                `json:"materials"`
	Homework  *string               `json:"homework"`
	Notes     *string               `json:"notes"`
	Students  []JournalStudentEntry `json:"students" validate:"dive"`
}

// JournalListRequest filters teaching log listings.
type JournalListRequest struct {
	UserID    string     `json:"user_id"`
	ClassID   string     `json:"class_id"`
	SubjectID string     `json:"subject_id"`
	DateFrom  *time.Time `json:"date_from"`
	DateTo    *time.Time `json:"date_to"`
	Page      int        `json:"page"`
	PageSize  int        `json:"page_size"`
	SortBy    string     `json:"sort_by"`
	SortOrder string     `json:"sort_order"`
}

// SummarizeAttendance counts roster rows by status. Callers must hand in a
// fully-populated roster; unseen students are not implicitly counted.
func SummarizeAttendance(rows []models.StudentAttendance) models.AttendanceSummary {
	var summary models.AttendanceSummary
	for _, row := range rows {
		switch row.Status {
		case models.StudentPresent:
			summary.Present++
		case models.StudentSick:
			summary.Sick++
		case models.StudentPermission:
			summary.Permission++
		case models.StudentAbsent:
			summary.Absent++
		}
	}
	return summary
}

// ClassAttendanceRate returns the present share as a percentage, guarding
// against an empty roster.
func ClassAttendanceRate(summary models.AttendanceSummary, totalStudents int) float64 {
	if totalStudents == 0 {
		return 0
	}
	return float64(summary.Present) / float64(totalStudents) * 100
}

// Create records a teaching session. Roster students missing from the
// payload are filled in as present (the mark-all-present default), so the
// stored summary always accounts for the full active roster.
func (s *JournalService) Create(ctx context.Context, userID string, req CreateJournalRequest) (*models.TeachingLogDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid journal payload")
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date format, expected YYYY-MM-DD")
	}

	roster, err := s.roster.ListActiveByClass(ctx, req.ClassID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class roster")
	}
	if len(roster) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "class has no active students")
	}

	rosterIDs := make(map[string]struct{}, len(roster))
	for _, student := range roster {
		rosterIDs[student.ID] = struct{}{}
	}

	entries := make(map[string]JournalStudentEntry, len(req.Students))
	for _, entry := range req.Students {
		if _, ok := rosterIDs[entry.StudentID]; !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("student %s is not on the class roster", entry.StudentID))
		}
		if _, dup := entries[entry.StudentID]; dup {
			return nil, appErrors.Clone(appErrors.ErrConflict, "duplicate student in payload")
		}
		entries[entry.StudentID] = entry
	}

	logID := uuid.NewString()
	rows := make([]models.StudentAttendance, 0, len(roster))
	for _, student := range roster {
		row := models.StudentAttendance{
			ID:            uuid.NewString(),
			TeachingLogID: logID,
			StudentID:     student.ID,
			Status:        models.StudentPresent,
		}
		if entry, ok := entries[student.ID]; ok {
			row.Status = models.StudentAttendanceStatus(entry.Status)
			row.ArrivalTime = entry.ArrivalTime
			row.Notes = entry.Notes
		}
		rows = append(rows, row)
	}

	summary := SummarizeAttendance(rows)
	log := &models.TeachingLog{
		ID:            logID,
		UserID:        userID,
		Date:          date,
		ClassID:       req.ClassID,
		SubjectID:     req.SubjectID,
		Topic:         req.Topic,
		Materials:     req.Materials,
		Homework:      req.Homework,
		Notes:         req.Notes,
		TotalStudents: len(roster),
		PresentCount:  summary.Present,
	}

	if err := s.repo.CreateWithAttendance(ctx, log, rows); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist teaching log")
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, "stats:*"); err != nil {
			s.logger.Warn("stats cache invalidation failed", zap.Error(err))
		}
	}
	if s.bus != nil {
		s.bus.Publish(events.TopicJournalUpdated, log)
	}

	detail := &models.TeachingLogDetail{TeachingLog: *log, Summary: summary}
	return detail, nil
}

// List returns paginated teaching logs with derived summaries.
func (s *JournalService) List(ctx context.Context, req JournalListRequest) ([]models.TeachingLogDetail, *models.Pagination, error) {
	page := req.Page
	if page < 1 {
		page = 1
	}
	size := req.PageSize
	if size <= 0 {
		size = 50
	}
	filter := models.TeachingLogFilter{
		UserID:    req.UserID,
		ClassID:   req.ClassID,
		SubjectID: req.SubjectID,
		DateFrom:  req.DateFrom,
		DateTo:    req.DateTo,
		Page:      page,
		PageSize:  size,
		SortBy:    req.SortBy,
		SortOrder: req.SortOrder,
	}
	rows, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teaching logs")
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return rows, pagination, nil
}

// Get returns one teaching log with its roster rows and summary.
func (s *JournalService) Get(ctx context.Context, id string) (*models.TeachingLogDetail, error) {
	detail, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teaching log not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teaching log")
	}
	if detail == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "teaching log not found")
	}
	rows := make([]models.StudentAttendance, len(detail.Students))
	for i, student := range detail.Students {
		rows[i] = student.StudentAttendance
	}
	detail.Summary = SummarizeAttendance(rows)
	return detail, nil
}
