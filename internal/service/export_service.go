package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mawebyasmu/jurnal-aliyah-sub000/internal/models"
	"github.com/mawebyasmu/jurnal-aliyah-sub000/pkg/export"
	"github.com/mawebyasmu/jurnal-aliyah-sub000/pkg/storage"
)

type exportAttendanceRepository interface {
	ListDetailByRange(ctx context.Context, from, to time.Time, userID *string) ([]models.AttendanceRecordDetail, error)
}

type exportJournalRepository interface {
	ListDetailByRange(ctx context.Context, from, to time.Time, userID *string) ([]models.TeachingLogDetail, error)
}

type exportStatsProvider interface {
	TeacherPerformance(ctx context.Context, from, to time.Time, userID *string) ([]models.TeacherPerformance, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

type jsonRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ReportFormat
	ExpiresAt    time.Time
}

// ExportService builds report datasets and persists rendered files.
type ExportService struct {
	attendance exportAttendanceRepository
	journals   exportJournalRepository
	stats      exportStatsProvider
	storage    fileStorage
	csv        csvRenderer
	pdf        pdfRenderer
	json       jsonRenderer
	signer     *storage.SignedURLSigner
	logger     *zap.Logger
	cfg        ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(attendance exportAttendanceRepository, journals exportJournalRepository, stats exportStatsProvider, store fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	return &ExportService{
		attendance: attendance,
		journals:   journals,
		stats:      stats,
		storage:    store,
		csv:        export.NewCSVExporter(),
		pdf:        export.NewPDFExporter(),
		json:       export.NewJSONExporter(),
		signer:     signer,
		logger:     logger,
		cfg:        cfg,
	}
}

// Generate builds the dataset for a job and stores the rendered export.
func (s *ExportService) Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	from, to, err := parseJobRange(job.Params)
	if err != nil {
		return nil, err
	}
	dataset, title, err := s.buildDataset(ctx, job, from, to)
	if err != nil {
		return nil, err
	}

	var payload []byte
	switch job.Params.Format {
	case models.ReportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ReportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
	case models.ReportFormatJSON:
		payload, err = s.json.Render(dataset)
	default:
		err = fmt.Errorf("unsupported format %s", job.Params.Format)
	}
	if err != nil {
		return nil, err
	}

	filename := s.buildFilename(job)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          s.resultURL(token),
		Format:       job.Params.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

func (s *ExportService) resultURL(token string) string {
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	return fmt.Sprintf("%s/reports/download/%s", prefix, token)
}

// SignResult issues a fresh download URL for an already stored export. Each
// status poll gets a token with a full TTL.
func (s *ExportService) SignResult(jobID, relPath string) (string, time.Time, error) {
	token, expiresAt, err := s.signer.Generate(jobID, relPath)
	if err != nil {
		return "", time.Time{}, err
	}
	return s.resultURL(token), expiresAt, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) buildFilename(job *models.ReportJob) string {
	timestamp := time.Now().UTC().Format("20060102_150405")
	rangePart := sanitizeFilename(fmt.Sprintf("%s_%s", job.Params.DateFrom, job.Params.DateTo))
	return fmt.Sprintf("%s_%s_%s.%s", strings.ToLower(string(job.Type)), rangePart, timestamp, job.Params.Format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

func parseJobRange(params models.ReportJobParams) (time.Time, time.Time, error) {
	from, err := time.Parse("2006-01-02", params.DateFrom)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid dateFrom %q", params.DateFrom)
	}
	to, err := time.Parse("2006-01-02", params.DateTo)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid dateTo %q", params.DateTo)
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("dateTo before dateFrom")
	}
	return from, to, nil
}

func (s *ExportService) buildDataset(ctx context.Context, job *models.ReportJob, from, to time.Time) (export.Dataset, string, error) {
	switch job.Type {
	case models.ReportTypeAttendance:
		return s.buildAttendanceDataset(ctx, job.Params, from, to)
	case models.ReportTypeJournal:
		return s.buildJournalDataset(ctx, job.Params, from, to)
	case models.ReportTypeTeacher:
		return s.buildTeacherDataset(ctx, job.Params, from, to)
	default:
		return export.Dataset{}, "", fmt.Errorf("unsupported report type %s", job.Type)
	}
}

func (s *ExportService) buildAttendanceDataset(ctx context.Context, params models.ReportJobParams, from, to time.Time) (export.Dataset, string, error) {
	rows, err := s.attendance.ListDetailByRange(ctx, from, to, params.UserID)
	if err != nil {
		return export.Dataset{}, "", err
	}
	dataRows := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		dataRows = append(dataRows, map[string]string{
			"Tanggal":     row.Date.Format("2006-01-02"),
			"Nama Guru":   row.TeacherName,
			"Departemen":  row.Department,
			"Jam Masuk":   row.CheckInTime.Format("15:04"),
			"Jam Pulang":  formatCheckOut(row.CheckOutTime),
			"Status":      attendanceStatusLabel(row.Status),
			"Jarak (m)":   fmt.Sprintf("%.0f", row.DistanceMeters),
			"Keterangan":  derefClean(row.Notes),
		})
	}
	dataset := export.Dataset{
		Headers: []string{"Tanggal", "Nama Guru", "Departemen", "Jam Masuk", "Jam Pulang", "Status", "Jarak (m)", "Keterangan"},
		Rows:    dataRows,
	}
	title := fmt.Sprintf("Laporan Absensi Guru %s s.d. %s", params.DateFrom, params.DateTo)
	return dataset, title, nil
}

func (s *ExportService) buildJournalDataset(ctx context.Context, params models.ReportJobParams, from, to time.Time) (export.Dataset, string, error) {
	rows, err := s.journals.ListDetailByRange(ctx, from, to, params.UserID)
	if err != nil {
		return export.Dataset{}, "", err
	}
	dataRows := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		dataRows = append(dataRows, map[string]string{
			"Tanggal":        row.Date.Format("2006-01-02"),
			"Nama Guru":      row.TeacherName,
			"Kelas":          row.ClassName,
			"Mata Pelajaran": row.SubjectName,
			"Topik":          row.Topic,
			"Jumlah Siswa":   fmt.Sprintf("%d", row.TotalStudents),
			"Hadir":          fmt.Sprintf("%d", row.PresentCount),
			"Kehadiran (%)":  fmt.Sprintf("%.1f", ClassAttendanceRate(models.AttendanceSummary{Present: row.PresentCount}, row.TotalStudents)),
		})
	}
	dataset := export.Dataset{
		Headers: []string{"Tanggal", "Nama Guru", "Kelas", "Mata Pelajaran", "Topik", "Jumlah Siswa", "Hadir", "Kehadiran (%)"},
		Rows:    dataRows,
	}
	title := fmt.Sprintf("Laporan Jurnal Mengajar %s s.d. %s", params.DateFrom, params.DateTo)
	return dataset, title, nil
}

func (s *ExportService) buildTeacherDataset(ctx context.Context, params models.ReportJobParams, from, to time.Time) (export.Dataset, string, error) {
	results, err := s.stats.TeacherPerformance(ctx, from, to, params.UserID)
	if err != nil {
		return export.Dataset{}, "", err
	}
	dataRows := make([]map[string]string, 0, len(results))
	for _, perf := range results {
		dataRows = append(dataRows, map[string]string{
			"Nama Guru":         perf.TeacherName,
			"Departemen":        perf.Department,
			"Hari Kerja":        fmt.Sprintf("%d", perf.WorkingDays),
			"Hadir":             fmt.Sprintf("%d", perf.PresentCount),
			"Terlambat":         fmt.Sprintf("%d", perf.LateCount),
			"Tidak Hadir":       fmt.Sprintf("%d", perf.AbsentCount),
			"Sesi Mengajar":     fmt.Sprintf("%d", perf.SessionsTaught),
			"Kehadiran (%)":     fmt.Sprintf("%.1f", perf.AttendanceRate),
			"Ketepatan (%)":     fmt.Sprintf("%.1f", perf.PunctualityRate),
			"Kualitas (%)":      fmt.Sprintf("%.1f", perf.TeachingQualityRate),
			"Skor":              fmt.Sprintf("%.1f", perf.Score),
			"Predikat":          string(perf.Grade),
		})
	}
	dataset := export.Dataset{
		Headers: []string{"Nama Guru", "Departemen", "Hari Kerja", "Hadir", "Terlambat", "Tidak Hadir", "Sesi Mengajar", "Kehadiran (%)", "Ketepatan (%)", "Kualitas (%)", "Skor", "Predikat"},
		Rows:    dataRows,
	}
	title := fmt.Sprintf("Laporan Kinerja Guru %s s.d. %s", params.DateFrom, params.DateTo)
	return dataset, title, nil
}

func attendanceStatusLabel(status models.AttendanceStatus) string {
	switch status {
	case models.AttendancePresent:
		return "Hadir"
	case models.AttendanceLate:
		return "Terlambat"
	case models.AttendanceAbsent:
		return "Tidak Hadir"
	default:
		return string(status)
	}
}

func formatCheckOut(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("15:04")
}

func derefClean(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}
