package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mawebyasmu/jurnal-aliyah-sub000/internal/models"
)

func newSettingsMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestSettingsRepositoryGet(t *testing.T) {
	db, mock, cleanup := newSettingsMock(t)
	defer cleanup()
	repo := NewSettingsRepository(db)

	payload := `{"zone":{"center":{"latitude":-6.2088,"longitude":106.8456},"radius_meters":500},"window":{"start_of_day":"06:30","late_threshold":"07:15","end_of_day":"07:30"},"prevent_multiple_checkin":true,"timezone":"Asia/Jakarta"}`
	mock.ExpectQuery(regexp.QuoteMeta("SELECT value FROM settings WHERE key = $1 LIMIT 1")).
		WithArgs(models.SettingsKeyAttendance).
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow([]byte(payload)))

	var settings models.AttendanceSettings
	err := repo.Get(context.Background(), models.SettingsKeyAttendance, &settings)
	require.NoError(t, err)
	assert.Equal(t, 500.0, settings.Zone.RadiusMeters)
	assert.Equal(t, "07:15", settings.Window.LateThreshold.String())
	assert.True(t, settings.PreventMultipleCheckin)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSettingsRepositoryGetMissing(t *testing.T) {
	db, mock, cleanup := newSettingsMock(t)
	defer cleanup()
	repo := NewSettingsRepository(db)

	mock.ExpectQuery("SELECT value FROM settings").WillReturnError(sql.ErrNoRows)

	var settings models.AttendanceSettings
	err := repo.Get(context.Background(), models.SettingsKeyAttendance, &settings)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestSettingsRepositorySet(t *testing.T) {
	db, mock, cleanup := newSettingsMock(t)
	defer cleanup()
	repo := NewSettingsRepository(db)

	mock.ExpectExec("INSERT INTO settings").
		WithArgs(models.SettingsKeyAttendance, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Set(context.Background(), models.SettingsKeyAttendance, models.AttendanceSettings{Timezone: "Asia/Jakarta"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
