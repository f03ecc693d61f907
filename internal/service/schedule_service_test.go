package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mawebyasmu/jurnal-aliyah-sub000/internal/models"
	appErrors "github.com/mawebyasmu/jurnal-aliyah-sub000/pkg/errors"
)

type mockScheduleRepo struct {
	slots   map[string]models.ScheduleDetail
	overlap bool
	deleted []string
}

func (m *mockScheduleRepo) List(ctx context.Context, filter models.ScheduleFilter) ([]models.ScheduleDetail, int, error) {
	slots := make([]models.ScheduleDetail, 0, len(m.slots))
	for _, s := range m.slots {
		slots = append(slots, s)
	}
	return slots, len(slots), nil
}

func (m *mockScheduleRepo) FindByID(ctx context.Context, id string) (*models.ScheduleDetail, error) {
	if s, ok := m.slots[id]; ok {
		copy := s
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockScheduleRepo) HasOverlap(ctx context.Context, classID, dayOfWeek, startTime, endTime, excludeID string) (bool, error) {
	return m.overlap, nil
}

func (m *mockScheduleRepo) Create(ctx context.Context, schedule *models.Schedule) error {
	if m.slots == nil {
		m.slots = make(map[string]models.ScheduleDetail)
	}
	m.slots[schedule.ID] = models.ScheduleDetail{Schedule: *schedule}
	return nil
}

func (m *mockScheduleRepo) Update(ctx context.Context, schedule *models.Schedule) error {
	m.slots[schedule.ID] = models.ScheduleDetail{Schedule: *schedule}
	return nil
}

func (m *mockScheduleRepo) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	delete(m.slots, id)
	return nil
}

func scheduleRequestFixture() ScheduleRequest {
	return ScheduleRequest{
		ClassID:   "class-1",
		SubjectID: "subject-1",
		TeacherID: "teacher-1",
		DayOfWeek: "monday",
		StartTime: "07:30",
		EndTime:   "09:00",
		Room:      "R101",
	}
}

func TestScheduleServiceCreateNormalizes(t *testing.T) {
	repo := &mockScheduleRepo{}
	svc := NewScheduleService(repo, validator.New(), zap.NewNop())

	slot, err := svc.Create(context.Background(), scheduleRequestFixture())
	require.NoError(t, err)
	assert.Equal(t, "MONDAY", slot.DayOfWeek)
	assert.Equal(t, "07:30", slot.StartTime)
	assert.Equal(t, "09:00", slot.EndTime)
	assert.NotEmpty(t, slot.ID)
}

func TestScheduleServiceCreateRejectsOverlap(t *testing.T) {
	repo := &mockScheduleRepo{overlap: true}
	svc := NewScheduleService(repo, validator.New(), zap.NewNop())

	_, err := svc.Create(context.Background(), scheduleRequestFixture())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestScheduleServiceCreateRejectsInvertedTimes(t *testing.T) {
	repo := &mockScheduleRepo{}
	svc := NewScheduleService(repo, validator.New(), zap.NewNop())

	req := scheduleRequestFixture()
	req.StartTime = "09:00"
	req.EndTime = "07:30"
	_, err := svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestScheduleServiceCreateRejectsBadDay(t *testing.T) {
	repo := &mockScheduleRepo{}
	svc := NewScheduleService(repo, validator.New(), zap.NewNop())

	req := scheduleRequestFixture()
	req.DayOfWeek = "SUNDAY"
	_, err := svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestScheduleServiceUpdate(t *testing.T) {
	repo := &mockScheduleRepo{slots: map[string]models.ScheduleDetail{
		"slot-1": {Schedule: models.Schedule{ID: "slot-1", ClassID: "class-1", SubjectID: "subject-1", TeacherID: "teacher-1", DayOfWeek: "MONDAY", StartTime: "07:30", EndTime: "09:00"}},
	}}
	svc := NewScheduleService(repo, validator.New(), zap.NewNop())

	req := scheduleRequestFixture()
	req.DayOfWeek = "TUESDAY"
	req.Room = "R202"
	slot, err := svc.Update(context.Background(), "slot-1", req)
	require.NoError(t, err)
	assert.Equal(t, "TUESDAY", slot.DayOfWeek)
	assert.Equal(t, "R202", slot.Room)
	assert.Equal(t, "TUESDAY", repo.slots["slot-1"].DayOfWeek)
}

func TestScheduleServiceUpdateNotFound(t *testing.T) {
	repo := &mockScheduleRepo{}
	svc := NewScheduleService(repo, validator.New(), zap.NewNop())

	_, err := svc.Update(context.Background(), "missing", scheduleRequestFixture())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestScheduleServiceDelete(t *testing.T) {
	repo := &mockScheduleRepo{slots: map[string]models.ScheduleDetail{
		"slot-1": {Schedule: models.Schedule{ID: "slot-1"}},
	}}
	svc := NewScheduleService(repo, validator.New(), zap.NewNop())

	require.NoError(t, svc.Delete(context.Background(), "slot-1"))
	assert.Contains(t, repo.deleted, "slot-1")
}
