package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mawebyasmu/jurnal-aliyah-sub000/internal/models"
	appErrors "github.com/mawebyasmu/jurnal-aliyah-sub000/pkg/errors"
)

type stubStatsUsers struct {
	teachers []models.User
	calls    int
}

func (s *stubStatsUsers) ListActiveTeachers(ctx context.Context) ([]models.User, error) {
	s.calls++
	return s.teachers, nil
}

func (s *stubStatsUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	for _, teacher := range s.teachers {
		if teacher.ID == id {
			copied := teacher
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

type stubStatsAttendance struct {
	records []models.AttendanceRecord
}

func (s *stubStatsAttendance) ListByRange(ctx context.Context, from, to time.Time, userID *string) ([]models.AttendanceRecord, error) {
	out := make([]models.AttendanceRecord, 0, len(s.records))
	for _, record := range s.records {
		if userID != nil && *userID != "" && record.UserID != *userID {
			continue
		}
		out = append(out, record)
	}
	return out, nil
}

type stubStatsJournals struct {
	logs []models.TeachingLog
}

func (s *stubStatsJournals) ListByRange(ctx context.Context, from, to time.Time, userID *string) ([]models.TeachingLog, error) {
	out := make([]models.TeachingLog, 0, len(s.logs))
	for _, log := range s.logs {
		if userID != nil && *userID != "" && log.UserID != *userID {
			continue
		}
		out = append(out, log)
	}
	return out, nil
}

type memoryCacheRepo struct {
	entries map[string][]byte
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{entries: map[string][]byte{}}
}

func (m *memoryCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	data, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(data, dest)
}

func (m *memoryCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.entries[key] = data
	return nil
}

func (m *memoryCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	m.entries = map[string][]byte{}
	return nil
}

func teacherFixture(id, name, department string) models.User {
	return models.User{ID: id, FullName: name, Department: department, Role: models.RoleTeacher, Active: true}
}

func TestStatsDaily(t *testing.T) {
	users := &stubStatsUsers{teachers: []models.User{
		teacherFixture("t1", "Siti", "Matematika"),
		teacherFixture("t2", "Budi", "Bahasa"),
		teacherFixture("t3", "Rina", "Bahasa"),
	}}
	attendance := &stubStatsAttendance{records: []models.AttendanceRecord{
		{UserID: "t1", Status: models.AttendancePresent},
		{UserID: "t2", Status: models.AttendanceLate},
	}}
	svc := NewStatsService(users, attendance, &stubStatsJournals{}, nil, time.Minute, nil)

	stat, err := svc.Daily(context.Background(), time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Equal(t, 3, stat.TotalTeachers)
	assert.Equal(t, 1, stat.PresentCount)
	assert.Equal(t, 1, stat.LateCount)
	assert.Equal(t, 1, stat.AbsentCount)
	assert.InDelta(t, 66.666, stat.AttendanceRate, 0.01)
}

func TestStatsDailyReadThroughCache(t *testing.T) {
	users := &stubStatsUsers{teachers: []models.User{teacherFixture("t1", "Siti", "Matematika")}}
	attendance := &stubStatsAttendance{records: []models.AttendanceRecord{{UserID: "t1", Status: models.AttendancePresent}}}
	cacheRepo := newMemoryCacheRepo()
	cache := NewCacheService(cacheRepo, nil, time.Minute, nil, true)
	svc := NewStatsService(users, attendance, &stubStatsJournals{}, cache, time.Minute, nil)

	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	first, err := svc.Daily(context.Background(), day)
	require.NoError(t, err)
	require.Equal(t, 1, users.calls)

	second, err := svc.Daily(context.Background(), day)
	require.NoError(t, err)
	assert.Equal(t, 1, users.calls, "second read should come from cache")
	assert.Equal(t, first.AttendanceRate, second.AttendanceRate)
	assert.Contains(t, cacheRepo.entries, "stats:daily:2025-03-10")
}

func TestStatsDepartmentsRejectsInvertedRange(t *testing.T) {
	svc := NewStatsService(&stubStatsUsers{}, &stubStatsAttendance{}, &stubStatsJournals{}, nil, time.Minute, nil)

	from := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
	_, err := svc.Departments(context.Background(), from, from.AddDate(0, 0, -7))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestStatsDepartments(t *testing.T) {
	users := &stubStatsUsers{teachers: []models.User{
		teacherFixture("t1", "Siti", "Matematika"),
		teacherFixture("t2", "Budi", "Bahasa"),
	}}
	attendance := &stubStatsAttendance{records: []models.AttendanceRecord{
		{UserID: "t1", Status: models.AttendancePresent},
		{UserID: "t1", Status: models.AttendancePresent},
		{UserID: "t2", Status: models.AttendanceLate},
	}}
	svc := NewStatsService(users, attendance, &stubStatsJournals{}, nil, time.Minute, nil)

	// Monday and Tuesday, two working days.
	from := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	stats, err := svc.Departments(context.Background(), from, from.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, stats, 2)

	assert.Equal(t, "Bahasa", stats[0].Department)
	assert.InDelta(t, 50.0, stats[0].AttendanceRate, 0.001)
	assert.Equal(t, "Matematika", stats[1].Department)
	assert.InDelta(t, 100.0, stats[1].AttendanceRate, 0.001)
}

func TestStatsTeacherPerformanceSingleTeacher(t *testing.T) {
	users := &stubStatsUsers{teachers: []models.User{
		teacherFixture("t1", "Siti", "Matematika"),
		teacherFixture("t2", "Budi", "Bahasa"),
	}}
	attendance := &stubStatsAttendance{records: []models.AttendanceRecord{
		{UserID: "t1", Status: models.AttendancePresent},
		{UserID: "t2", Status: models.AttendancePresent},
	}}
	journals := &stubStatsJournals{logs: []models.TeachingLog{
		{UserID: "t1", TotalStudents: 20, PresentCount: 20},
	}}
	svc := NewStatsService(users, attendance, journals, nil, time.Minute, nil)

	userID := "t1"
	from := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	results, err := svc.TeacherPerformance(context.Background(), from, from, &userID)
	require.NoError(t, err)
	require.Len(t, results, 1)

	perf := results[0]
	assert.Equal(t, "t1", perf.UserID)
	assert.Equal(t, 1, perf.WorkingDays)
	assert.InDelta(t, 100.0, perf.AttendanceRate, 0.001)
	assert.InDelta(t, 100.0, perf.TeachingQualityRate, 0.001)
	assert.Equal(t, models.GradeA, perf.Grade)
}

func TestStatsTeacherPerformanceUnknownTeacher(t *testing.T) {
	svc := NewStatsService(&stubStatsUsers{}, &stubStatsAttendance{}, &stubStatsJournals{}, nil, time.Minute, nil)

	userID := "missing"
	from := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	_, err := svc.TeacherPerformance(context.Background(), from, from, &userID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
