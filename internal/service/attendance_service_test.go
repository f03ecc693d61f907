package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mawebyasmu/jurnal-aliyah-sub000/internal/models"
	"github.com/mawebyasmu/jurnal-aliyah-sub000/pkg/clock"
	appErrors "github.com/mawebyasmu/jurnal-aliyah-sub000/pkg/errors"
	"github.com/mawebyasmu/jurnal-aliyah-sub000/pkg/events"
	"github.com/mawebyasmu/jurnal-aliyah-sub000/pkg/geo"
)

// stubAttendanceRepo mirrors the sqlx repository contract, including the raw
// sql.ErrNoRows returned when no record exists for the day.
type stubAttendanceRepo struct {
	records map[string]*models.AttendanceRecord
	getErr  error
}

func newStubAttendanceRepo() *stubAttendanceRepo {
	return &stubAttendanceRepo{records: map[string]*models.AttendanceRecord{}}
}

func (r *stubAttendanceRepo) key(userID string, date time.Time) string {
	return userID + "|" + date.Format("2006-01-02")
}

func (r *stubAttendanceRepo) GetByUserAndDate(_ context.Context, userID string, date time.Time) (*models.AttendanceRecord, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	if rec, ok := r.records[r.key(userID, date)]; ok {
		copied := *rec
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (r *stubAttendanceRepo) Upsert(_ context.Context, record *models.AttendanceRecord) (*models.AttendanceRecord, error) {
	copied := *record
	r.records[r.key(record.UserID, record.Date)] = &copied
	result := copied
	return &result, nil
}

func (r *stubAttendanceRepo) SetCheckOut(_ context.Context, id string, checkOut time.Time) (*models.AttendanceRecord, error) {
	for _, rec := range r.records {
		if rec.ID == id {
			rec.CheckOutTime = &checkOut
			copied := *rec
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *stubAttendanceRepo) UpdateStatus(_ context.Context, id string, status models.AttendanceStatus, notes *string) (*models.AttendanceRecord, error) {
	for _, rec := range r.records {
		if rec.ID == id {
			rec.Status = status
			rec.Notes = notes
			copied := *rec
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *stubAttendanceRepo) List(context.Context, models.AttendanceFilter) ([]models.AttendanceRecordDetail, int, error) {
	return nil, 0, nil
}

type stubSettings struct {
	settings models.AttendanceSettings
}

func (s *stubSettings) Attendance(context.Context) (models.AttendanceSettings, error) {
	return s.settings, nil
}

func defaultTestSettings(t *testing.T) models.AttendanceSettings {
	t.Helper()
	start, _ := clock.ParseTimeOfDay("06:30")
	late, _ := clock.ParseTimeOfDay("07:15")
	end, _ := clock.ParseTimeOfDay("07:30")
	return models.AttendanceSettings{
		Zone: models.SchoolZone{
			Center:       geo.Point{Latitude: -6.2088, Longitude: 106.8456},
			RadiusMeters: 500,
		},
		Window:                 models.TimeWindow{StartOfDay: start, LateThreshold: late, EndOfDay: end},
		PreventMultipleCheckin: true,
		Timezone:               "Asia/Jakarta",
	}
}

func jakartaTime(t *testing.T, hhmm string) time.Time {
	t.Helper()
	parsed, err := time.Parse("15:04", hhmm)
	require.NoError(t, err)
	wib := time.FixedZone("WIB", 7*3600)
	return time.Date(2025, 3, 10, parsed.Hour(), parsed.Minute(), 0, 0, wib)
}

func newTestAttendanceService(t *testing.T, repo *stubAttendanceRepo, settings models.AttendanceSettings, now time.Time) *AttendanceService {
	t.Helper()
	return NewAttendanceService(repo, &stubSettings{settings: settings}, clock.Fixed{Time: now}, events.NewBus(zap.NewNop()), nil, nil, zap.NewNop())
}

func TestCheckInOnTime(t *testing.T) {
	repo := newStubAttendanceRepo()
	svc := newTestAttendanceService(t, repo, defaultTestSettings(t), jakartaTime(t, "07:10"))

	record, err := svc.CheckIn(context.Background(), "teacher-1", CheckInRequest{Latitude: -6.2090, Longitude: 106.8459})
	require.NoError(t, err)
	assert.Equal(t, models.AttendancePresent, record.Status)
	assert.False(t, record.Complete())
	assert.Greater(t, record.DistanceMeters, 0.0)
	assert.Less(t, record.DistanceMeters, 500.0)
}

func TestCheckInLate(t *testing.T) {
	repo := newStubAttendanceRepo()
	svc := newTestAttendanceService(t, repo, defaultTestSettings(t), jakartaTime(t, "07:20"))

	record, err := svc.CheckIn(context.Background(), "teacher-1", CheckInRequest{Latitude: -6.2090, Longitude: 106.8459})
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceLate, record.Status)
}

func TestCheckInAfterWindowClosed(t *testing.T) {
	repo := newStubAttendanceRepo()
	svc := newTestAttendanceService(t, repo, defaultTestSettings(t), jakartaTime(t, "07:35"))

	_, err := svc.CheckIn(context.Background(), "teacher-1", CheckInRequest{Latitude: -6.2090, Longitude: 106.8459})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrOutsideTimeWindow.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.records)
}

func TestCheckInOutsideRadius(t *testing.T) {
	repo := newStubAttendanceRepo()
	svc := newTestAttendanceService(t, repo, defaultTestSettings(t), jakartaTime(t, "07:00"))

	// Roughly 4 km north of the campus.
	_, err := svc.CheckIn(context.Background(), "teacher-1", CheckInRequest{Latitude: -6.1700, Longitude: 106.8456})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrOutOfRange.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.records)
}

func TestCheckInDuplicateRejected(t *testing.T) {
	repo := newStubAttendanceRepo()
	svc := newTestAttendanceService(t, repo, defaultTestSettings(t), jakartaTime(t, "07:00"))

	req := CheckInRequest{Latitude: -6.2090, Longitude: 106.8459}
	_, err := svc.CheckIn(context.Background(), "teacher-1", req)
	require.NoError(t, err)

	_, err = svc.CheckIn(context.Background(), "teacher-1", req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrDuplicateCheckIn.Code, appErrors.FromError(err).Code)
	assert.Len(t, repo.records, 1)
}

func TestCheckInOverwriteWhenGuardDisabled(t *testing.T) {
	settings := defaultTestSettings(t)
	settings.PreventMultipleCheckin = false
	repo := newStubAttendanceRepo()
	svc := newTestAttendanceService(t, repo, settings, jakartaTime(t, "07:00"))

	first, err := svc.CheckIn(context.Background(), "teacher-1", CheckInRequest{Latitude: -6.2090, Longitude: 106.8459})
	require.NoError(t, err)

	second, err := svc.CheckIn(context.Background(), "teacher-1", CheckInRequest{Latitude: -6.2089, Longitude: 106.8457})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, repo.records, 1)
}

func TestCheckInCompleteDayIsTerminal(t *testing.T) {
	settings := defaultTestSettings(t)
	settings.PreventMultipleCheckin = false
	repo := newStubAttendanceRepo()
	svc := newTestAttendanceService(t, repo, settings, jakartaTime(t, "07:00"))

	_, err := svc.CheckIn(context.Background(), "teacher-1", CheckInRequest{Latitude: -6.2090, Longitude: 106.8459})
	require.NoError(t, err)
	_, err = svc.CheckOut(context.Background(), "teacher-1")
	require.NoError(t, err)

	_, err = svc.CheckIn(context.Background(), "teacher-1", CheckInRequest{Latitude: -6.2090, Longitude: 106.8459})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAlreadyComplete.Code, appErrors.FromError(err).Code)
}

func TestCheckOutIdempotent(t *testing.T) {
	repo := newStubAttendanceRepo()
	svc := newTestAttendanceService(t, repo, defaultTestSettings(t), jakartaTime(t, "07:00"))

	_, err := svc.CheckIn(context.Background(), "teacher-1", CheckInRequest{Latitude: -6.2090, Longitude: 106.8459})
	require.NoError(t, err)

	first, err := svc.CheckOut(context.Background(), "teacher-1")
	require.NoError(t, err)
	require.NotNil(t, first.CheckOutTime)

	second, err := svc.CheckOut(context.Background(), "teacher-1")
	require.NoError(t, err)
	require.NotNil(t, second.CheckOutTime)
	assert.True(t, first.CheckOutTime.Equal(*second.CheckOutTime))
}

func TestCheckOutWithoutCheckIn(t *testing.T) {
	repo := newStubAttendanceRepo()
	svc := newTestAttendanceService(t, repo, defaultTestSettings(t), jakartaTime(t, "07:00"))

	_, err := svc.CheckOut(context.Background(), "teacher-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotCheckedIn.Code, appErrors.FromError(err).Code)
}

func TestCheckInRepoFailureStaysInternal(t *testing.T) {
	repo := newStubAttendanceRepo()
	repo.getErr = errors.New("connection reset")
	svc := newTestAttendanceService(t, repo, defaultTestSettings(t), jakartaTime(t, "07:00"))

	_, err := svc.CheckIn(context.Background(), "teacher-1", CheckInRequest{Latitude: -6.2090, Longitude: 106.8459})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}

func TestTodayReturnsNilWithoutRecord(t *testing.T) {
	repo := newStubAttendanceRepo()
	svc := newTestAttendanceService(t, repo, defaultTestSettings(t), jakartaTime(t, "07:00"))

	record, err := svc.Today(context.Background(), "teacher-1")
	require.NoError(t, err)
	assert.Nil(t, record)
}

func TestCheckInPublishesEvent(t *testing.T) {
	repo := newStubAttendanceRepo()
	bus := events.NewBus(zap.NewNop())
	var published []*models.AttendanceRecord
	bus.Subscribe(events.TopicAttendanceUpdated, func(e events.Event) {
		published = append(published, e.Payload.(*models.AttendanceRecord))
	})
	svc := NewAttendanceService(repo, &stubSettings{settings: defaultTestSettings(t)}, clock.Fixed{Time: jakartaTime(t, "07:00")}, bus, nil, nil, zap.NewNop())

	record, err := svc.CheckIn(context.Background(), "teacher-1", CheckInRequest{Latitude: -6.2090, Longitude: 106.8459})
	require.NoError(t, err)
	require.Len(t, published, 1)
	assert.Equal(t, record.ID, published[0].ID)
}
