package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mawebyasmu/jurnal-aliyah-sub000/internal/models"
)

func newAttendanceMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func attendanceRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "user_id", "date", "check_in_time", "check_out_time", "latitude", "longitude", "distance_meters", "status", "notes", "created_at", "updated_at"})
}

func TestAttendanceRepositoryGetByUserAndDate(t *testing.T) {
	db, mock, cleanup := newAttendanceMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, user_id, date, check_in_time, check_out_time, latitude, longitude, distance_meters, status, notes, created_at, updated_at FROM attendance_records WHERE user_id = $1 AND date = $2 LIMIT 1")).
		WithArgs("teacher-1", day).
		WillReturnRows(attendanceRows().AddRow("rec-1", "teacher-1", day, day.Add(7*time.Hour), nil, -6.2, 106.8, 120.5, "present", nil, day, day))

	record, err := repo.GetByUserAndDate(context.Background(), "teacher-1", day.Add(9*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "rec-1", record.ID)
	assert.Equal(t, models.AttendancePresent, record.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryGetByUserAndDateMissing(t *testing.T) {
	db, mock, cleanup := newAttendanceMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectQuery("SELECT .* FROM attendance_records").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByUserAndDate(context.Background(), "teacher-1", time.Now())
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestAttendanceRepositoryUpsert(t *testing.T) {
	db, mock, cleanup := newAttendanceMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	checkIn := day.Add(7 * time.Hour)
	mock.ExpectQuery("INSERT INTO attendance_records").
		WillReturnRows(attendanceRows().AddRow("rec-1", "teacher-1", day, checkIn, nil, -6.2, 106.8, 88.2, "late", nil, day, day))

	stored, err := repo.Upsert(context.Background(), &models.AttendanceRecord{
		UserID:         "teacher-1",
		Date:           day.Add(3 * time.Hour),
		CheckInTime:    checkIn,
		Latitude:       -6.2,
		Longitude:      106.8,
		DistanceMeters: 88.2,
		Status:         models.AttendanceLate,
	})
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceLate, stored.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositorySetCheckOut(t *testing.T) {
	db, mock, cleanup := newAttendanceMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	checkOut := day.Add(16 * time.Hour)
	mock.ExpectQuery("UPDATE attendance_records SET check_out_time").
		WillReturnRows(attendanceRows().AddRow("rec-1", "teacher-1", day, day.Add(7*time.Hour), checkOut, -6.2, 106.8, 88.2, "present", nil, day, day))

	stored, err := repo.SetCheckOut(context.Background(), "rec-1", checkOut)
	require.NoError(t, err)
	require.NotNil(t, stored.CheckOutTime)
	assert.True(t, stored.Complete())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryListByRangeScoped(t *testing.T) {
	db, mock, cleanup := newAttendanceMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	from := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
	userID := "teacher-1"
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, user_id, date, check_in_time, check_out_time, latitude, longitude, distance_meters, status, notes, created_at, updated_at FROM attendance_records WHERE date >= $1 AND date <= $2 AND user_id = $3 ORDER BY date ASC")).
		WithArgs(from, to, userID).
		WillReturnRows(attendanceRows().AddRow("rec-1", userID, from, from.Add(7*time.Hour), nil, -6.2, 106.8, 10.0, "present", nil, from, from))

	records, err := repo.ListByRange(context.Background(), from, to, &userID)
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryList(t *testing.T) {
	db, mock, cleanup := newAttendanceMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "user_id", "date", "check_in_time", "check_out_time", "latitude", "longitude", "distance_meters", "status", "notes", "created_at", "updated_at", "teacher_name", "department"}).
		AddRow("rec-1", "teacher-1", day, day.Add(7*time.Hour), nil, -6.2, 106.8, 10.0, "present", nil, day, day, "Siti Rahma", "Matematika")
	mock.ExpectQuery("SELECT a.id, a.user_id, a.date").WillReturnRows(rows)
	mock.ExpectQuery("SELECT COUNT").WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	status := models.AttendancePresent
	records, total, err := repo.List(context.Background(), models.AttendanceFilter{Status: &status})
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, "Siti Rahma", records[0].TeacherName)
	assert.NoError(t, mock.ExpectationsWereMet())
}
