package service

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mawebyasmu/jurnal-aliyah-sub000/internal/models"
	"github.com/mawebyasmu/jurnal-aliyah-sub000/pkg/storage"
)

type exportAttendanceStub struct{}

func (exportAttendanceStub) ListDetailByRange(ctx context.Context, from, to time.Time, userID *string) ([]models.AttendanceRecordDetail, error) {
	checkIn := time.Date(2025, 3, 10, 7, 2, 0, 0, time.UTC)
	checkOut := checkIn.Add(8 * time.Hour)
	return []models.AttendanceRecordDetail{
		{
			AttendanceRecord: models.AttendanceRecord{
				UserID:         "t1",
				Date:           time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
				CheckInTime:    checkIn,
				CheckOutTime:   &checkOut,
				DistanceMeters: 42,
				Status:         models.AttendancePresent,
			},
			TeacherName: "Siti Rahma",
			Department:  "Matematika",
		},
	}, nil
}

type exportJournalStub struct{}

func (exportJournalStub) ListDetailByRange(ctx context.Context, from, to time.Time, userID *string) ([]models.TeachingLogDetail, error) {
	return []models.TeachingLogDetail{
		{
			TeachingLog: models.TeachingLog{
				UserID:        "t1",
				Date:          time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
				Topic:         "Persamaan Kuadrat",
				TotalStudents: 30,
				PresentCount:  27,
			},
			TeacherName: "Siti Rahma",
			ClassName:   "X-A",
			SubjectName: "Matematika",
		},
	}, nil
}

type exportStatsStub struct{}

func (exportStatsStub) TeacherPerformance(ctx context.Context, from, to time.Time, userID *string) ([]models.TeacherPerformance, error) {
	return []models.TeacherPerformance{
		{
			UserID: "t1", TeacherName: "Siti Rahma", Department: "Matematika",
			WorkingDays: 5, PresentCount: 4, LateCount: 1,
			AttendanceRate: 100, PunctualityRate: 80, TeachingQualityRate: 90,
			Score: 96, Grade: models.GradeA,
		},
	}, nil
}

func newExportServiceForTest(t *testing.T) (*ExportService, *storage.LocalStorage) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewLocalStorage(dir)
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("secret", time.Hour)
	cfg := ExportConfig{APIPrefix: "/api/v1", ResultTTL: time.Hour}
	svc := NewExportService(exportAttendanceStub{}, exportJournalStub{}, exportStatsStub{}, store, signer, cfg, zap.NewNop())
	return svc, store
}

func exportJobFixture(id string, reportType models.ReportType, format models.ReportFormat) *models.ReportJob {
	return &models.ReportJob{
		ID:        id,
		Type:      reportType,
		Params:    models.ReportJobParams{DateFrom: "2025-03-10", DateTo: "2025-03-14", Format: format},
		CreatedBy: "admin",
	}
}

func TestExportServiceGenerateCSV(t *testing.T) {
	svc, store := newExportServiceForTest(t)

	result, err := svc.Generate(context.Background(), exportJobFixture("job-1", models.ReportTypeAttendance, models.ReportFormatCSV))
	require.NoError(t, err)
	require.NotEmpty(t, result.RelativePath)
	require.Contains(t, result.URL, "/reports/download/")

	data, err := os.ReadFile(store.Path(result.RelativePath))
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "Tanggal")
	assert.Contains(t, content, "Siti Rahma")
	assert.Contains(t, content, "Hadir")
}

func TestExportServiceGeneratePDF(t *testing.T) {
	svc, store := newExportServiceForTest(t)

	result, err := svc.Generate(context.Background(), exportJobFixture("job-2", models.ReportTypeTeacher, models.ReportFormatPDF))
	require.NoError(t, err)
	require.Equal(t, models.ReportFormatPDF, result.Format)

	info, err := os.Stat(filepath.Clean(store.Path(result.RelativePath)))
	require.NoError(t, err)
	require.Greater(t, info.Size(), int64(0))
}

func TestExportServiceGenerateJSON(t *testing.T) {
	svc, store := newExportServiceForTest(t)

	result, err := svc.Generate(context.Background(), exportJobFixture("job-3", models.ReportTypeJournal, models.ReportFormatJSON))
	require.NoError(t, err)

	data, err := os.ReadFile(store.Path(result.RelativePath))
	require.NoError(t, err)
	var rows []map[string]string
	require.NoError(t, json.Unmarshal(data, &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "Persamaan Kuadrat", rows[0]["Topik"])
	assert.Equal(t, "27", rows[0]["Hadir"])
}

func TestExportServiceRejectsInvalidRange(t *testing.T) {
	svc, _ := newExportServiceForTest(t)

	job := exportJobFixture("job-4", models.ReportTypeAttendance, models.ReportFormatCSV)
	job.Params.DateFrom = "2025-03-14"
	job.Params.DateTo = "2025-03-10"
	_, err := svc.Generate(context.Background(), job)
	require.Error(t, err)
}

func TestExportServiceSignResult(t *testing.T) {
	svc, _ := newExportServiceForTest(t)

	url, expiresAt, err := svc.SignResult("job-5", "exports/file.csv")
	require.NoError(t, err)
	assert.Contains(t, url, "/api/v1/reports/download/")
	assert.True(t, expiresAt.After(time.Now()))
}
