package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mawebyasmu/jurnal-aliyah-sub000/internal/models"
)

func newTeachingLogMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestTeachingLogRepositoryCreateWithAttendance(t *testing.T) {
	db, mock, cleanup := newTeachingLogMock(t)
	defer cleanup()
	repo := NewTeachingLogRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO teaching_logs").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO student_attendance").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO student_attendance").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	log := &models.TeachingLog{
		UserID:        "teacher-1",
		Date:          time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		ClassID:       "class-1",
		SubjectID:     "subject-1",
		Topic:         "Persamaan Kuadrat",
		Materials:     "Buku paket bab 4",
		TotalStudents: 2,
		PresentCount:  2,
	}
	students := []models.StudentAttendance{
		{StudentID: "student-1", Status: models.StudentPresent},
		{StudentID: "student-2", Status: models.StudentPresent},
	}
	err := repo.CreateWithAttendance(context.Background(), log, students)
	require.NoError(t, err)
	assert.NotEmpty(t, log.ID)
	assert.Equal(t, log.ID, students[0].TeachingLogID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeachingLogRepositoryCreateRollsBackOnStudentFailure(t *testing.T) {
	db, mock, cleanup := newTeachingLogMock(t)
	defer cleanup()
	repo := NewTeachingLogRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO teaching_logs").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO student_attendance").WillReturnError(assertErr{})
	mock.ExpectRollback()

	log := &models.TeachingLog{UserID: "teacher-1", Date: time.Now(), ClassID: "class-1", SubjectID: "subject-1", Topic: "Topik"}
	err := repo.CreateWithAttendance(context.Background(), log, []models.StudentAttendance{{StudentID: "student-1", Status: models.StudentAbsent}})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

type assertErr struct{}

func (assertErr) Error() string { return "boom" }

func TestTeachingLogRepositoryGetByID(t *testing.T) {
	db, mock, cleanup := newTeachingLogMock(t)
	defer cleanup()
	repo := NewTeachingLogRepository(db)

	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	logRows := sqlmock.NewRows([]string{"id", "user_id", "date", "class_id", "subject_id", "topic", "materials", "homework", "notes", "total_students", "present_count", "created_at", "updated_at", "class_name", "subject_name", "teacher_name"}).
		AddRow("log-1", "teacher-1", day, "class-1", "subject-1", "Persamaan Kuadrat", "Buku paket", nil, nil, 3, 1, day, day, "X IPA 1", "Matematika", "Siti Rahma")
	mock.ExpectQuery("SELECT t.id, t.user_id").WillReturnRows(logRows)

	studentRows := sqlmock.NewRows([]string{"id", "teaching_log_id", "student_id", "status", "arrival_time", "notes", "created_at", "student_name", "nis"}).
		AddRow("sa-1", "log-1", "student-1", "H", nil, nil, day, "Ahmad Fauzi", "20250001").
		AddRow("sa-2", "log-1", "student-2", "S", nil, nil, day, "Budi Santoso", "20250002").
		AddRow("sa-3", "log-1", "student-3", "A", nil, nil, day, "Citra Dewi", "20250003")
	mock.ExpectQuery("SELECT sa.id, sa.teaching_log_id").WithArgs("log-1").WillReturnRows(studentRows)

	detail, err := repo.GetByID(context.Background(), "log-1")
	require.NoError(t, err)
	assert.Len(t, detail.Students, 3)
	assert.Equal(t, 1, detail.Summary.Present)
	assert.Equal(t, 1, detail.Summary.Sick)
	assert.Equal(t, 1, detail.Summary.Absent)
	assert.Equal(t, detail.Summary.Total(), 3)
	assert.NoError(t, mock.ExpectationsWereMet())
}
