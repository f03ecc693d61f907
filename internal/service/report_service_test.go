package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mawebyasmu/jurnal-aliyah-sub000/internal/dto"
	"github.com/mawebyasmu/jurnal-aliyah-sub000/internal/models"
	"github.com/mawebyasmu/jurnal-aliyah-sub000/internal/repository"
	appErrors "github.com/mawebyasmu/jurnal-aliyah-sub000/pkg/errors"
	"github.com/mawebyasmu/jurnal-aliyah-sub000/pkg/jobs"
)

type reportRepoStub struct {
	jobs map[string]*models.ReportJob
}

func newReportRepoStub() *reportRepoStub {
	return &reportRepoStub{jobs: map[string]*models.ReportJob{}}
}

func (r *reportRepoStub) Create(ctx context.Context, job *models.ReportJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	r.jobs[job.ID] = job
	return nil
}

func (r *reportRepoStub) GetByID(ctx context.Context, id string) (*models.ReportJob, error) {
	job, ok := r.jobs[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return job, nil
}

func (r *reportRepoStub) Update(ctx context.Context, id string, params repository.UpdateReportJobParams) error {
	job, ok := r.jobs[id]
	if !ok {
		return errors.New("not found")
	}
	if params.Status != nil {
		job.Status = *params.Status
	}
	if params.Progress != nil {
		job.Progress = *params.Progress
	}
	if params.ResultPath != nil {
		job.ResultPath = params.ResultPath
	}
	if params.ErrorMessage != nil {
		job.ErrorMessage = params.ErrorMessage
	}
	if params.FinishedAt != nil {
		job.FinishedAt = params.FinishedAt
	}
	return nil
}

func (r *reportRepoStub) ListQueued(ctx context.Context, limit int) ([]models.ReportJob, error) {
	var queued []models.ReportJob
	for _, job := range r.jobs {
		if job.Status == models.ReportStatusQueued {
			queued = append(queued, *job)
		}
	}
	return queued, nil
}

func (r *reportRepoStub) ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ReportJob, error) {
	return nil, nil
}

type queueStub struct {
	jobs []jobs.Job
	err  error
}

func (q *queueStub) Enqueue(job jobs.Job) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

func newReportServiceForTest(t *testing.T) (*ReportService, *reportRepoStub, *queueStub, *ExportService) {
	t.Helper()
	repo := newReportRepoStub()
	queue := &queueStub{}
	exportSvc, _ := newExportServiceForTest(t)
	service := NewReportService(repo, queue, exportSvc, zap.NewNop(), ReportServiceConfig{
		ResultTTL:       time.Hour,
		CleanupInterval: time.Hour,
		MaxRetries:      3,
	})
	return service, repo, queue, exportSvc
}

func reportRequestFixture(reportType models.ReportType) dto.ReportRequest {
	return dto.ReportRequest{
		Type:     reportType,
		DateFrom: "2025-03-10",
		DateTo:   "2025-03-14",
		Format:   models.ReportFormatCSV,
	}
}

func TestReportServiceCreateJob(t *testing.T) {
	svc, repo, queue, _ := newReportServiceForTest(t)

	resp, err := svc.CreateJob(context.Background(), reportRequestFixture(models.ReportTypeAttendance), "admin", models.RoleAdmin)
	require.NoError(t, err)
	require.NotEmpty(t, resp.ID)
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, models.ReportStatusQueued, resp.Status)
	assert.Contains(t, repo.jobs, resp.ID)
}

func TestReportServiceCreateJobPinsTeacherScope(t *testing.T) {
	svc, repo, _, _ := newReportServiceForTest(t)

	resp, err := svc.CreateJob(context.Background(), reportRequestFixture(models.ReportTypeJournal), "teacher-1", models.RoleTeacher)
	require.NoError(t, err)

	stored := repo.jobs[resp.ID]
	require.NotNil(t, stored.Params.UserID)
	assert.Equal(t, "teacher-1", *stored.Params.UserID)
}

func TestReportServiceCreateJobTeacherCannotExportOthers(t *testing.T) {
	svc, _, _, _ := newReportServiceForTest(t)

	req := reportRequestFixture(models.ReportTypeAttendance)
	other := "teacher-2"
	req.UserID = &other
	_, err := svc.CreateJob(context.Background(), req, "teacher-1", models.RoleTeacher)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestReportServiceCreateJobValidation(t *testing.T) {
	svc, _, _, _ := newReportServiceForTest(t)

	req := reportRequestFixture(models.ReportTypeAttendance)
	req.DateTo = "2025-03-01"
	_, err := svc.CreateJob(context.Background(), req, "admin", models.RoleAdmin)
	require.Error(t, err)

	req = reportRequestFixture("unknown")
	_, err = svc.CreateJob(context.Background(), req, "admin", models.RoleAdmin)
	require.Error(t, err)
}

func TestReportServiceGetStatusSignsFreshURL(t *testing.T) {
	svc, repo, _, _ := newReportServiceForTest(t)
	path := "exports/report.csv"
	repo.jobs["job-1"] = &models.ReportJob{
		ID:         "job-1",
		Type:       models.ReportTypeAttendance,
		Params:     models.ReportJobParams{DateFrom: "2025-03-10", DateTo: "2025-03-14", Format: models.ReportFormatCSV},
		Status:     models.ReportStatusFinished,
		Progress:   100,
		ResultPath: &path,
		CreatedBy:  "admin",
	}

	resp, err := svc.GetStatus(context.Background(), "job-1", "admin", models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusFinished, resp.Status)
	require.NotNil(t, resp.ResultURL)
	assert.Contains(t, *resp.ResultURL, "/reports/download/")
}

func TestReportServiceGetStatusOwnership(t *testing.T) {
	svc, repo, _, _ := newReportServiceForTest(t)
	repo.jobs["job-1"] = &models.ReportJob{
		ID:        "job-1",
		Type:      models.ReportTypeAttendance,
		Status:    models.ReportStatusProcessing,
		CreatedBy: "teacher-1",
	}

	_, err := svc.GetStatus(context.Background(), "job-1", "teacher-2", models.RoleTeacher)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	resp, err := svc.GetStatus(context.Background(), "job-1", "teacher-1", models.RoleTeacher)
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusProcessing, resp.Status)
}

func TestReportServiceResolveDownload(t *testing.T) {
	svc, repo, _, exportSvc := newReportServiceForTest(t)
	job := &models.ReportJob{
		ID:        "job-download",
		Type:      models.ReportTypeAttendance,
		Params:    models.ReportJobParams{DateFrom: "2025-03-10", DateTo: "2025-03-14", Format: models.ReportFormatCSV},
		Status:    models.ReportStatusFinished,
		Progress:  100,
		CreatedBy: "admin",
	}
	repo.jobs[job.ID] = job
	result, err := exportSvc.Generate(context.Background(), job)
	require.NoError(t, err)
	job.ResultPath = &result.RelativePath
	now := time.Now()
	job.FinishedAt = &now

	download, err := svc.ResolveDownload(context.Background(), result.Token)
	require.NoError(t, err)
	assert.Equal(t, filepath.Base(result.RelativePath), download.Filename)
	download.File.Close()
}

func TestReportServiceResolveDownloadRejectsBadToken(t *testing.T) {
	svc, _, _, _ := newReportServiceForTest(t)

	_, err := svc.ResolveDownload(context.Background(), "not-a-token")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

type exportStub struct {
	result *ExportResult
	err    error
}

func (e exportStub) Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.result, nil
}

func queuedJobFixture(id string) *models.ReportJob {
	return &models.ReportJob{
		ID:        id,
		Type:      models.ReportTypeAttendance,
		Params:    models.ReportJobParams{DateFrom: "2025-03-10", DateTo: "2025-03-14", Format: models.ReportFormatCSV},
		Status:    models.ReportStatusQueued,
		CreatedBy: "admin",
	}
}

func TestReportWorkerHandleSuccess(t *testing.T) {
	repo := &reportRepoStub{jobs: map[string]*models.ReportJob{"job-1": queuedJobFixture("job-1")}}
	exporter := exportStub{result: &ExportResult{RelativePath: "exports/report.csv"}}
	worker := NewReportWorker(repo, exporter, 3, zap.NewNop())

	err := worker.Handle(context.Background(), jobs.Job{ID: "job-1"})
	require.NoError(t, err)
	require.Equal(t, models.ReportStatusFinished, repo.jobs["job-1"].Status)
	require.Equal(t, 100, repo.jobs["job-1"].Progress)
	require.NotNil(t, repo.jobs["job-1"].ResultPath)
	assert.Equal(t, "exports/report.csv", *repo.jobs["job-1"].ResultPath)
}

func TestReportWorkerHandleFailureRequeues(t *testing.T) {
	repo := &reportRepoStub{jobs: map[string]*models.ReportJob{"job-1": queuedJobFixture("job-1")}}
	exporter := exportStub{err: errors.New("boom")}
	worker := NewReportWorker(repo, exporter, 3, zap.NewNop())

	err := worker.Handle(context.Background(), jobs.Job{ID: "job-1", Attempt: 0})
	require.Error(t, err)
	require.Equal(t, models.ReportStatusQueued, repo.jobs["job-1"].Status)
}

func TestReportWorkerHandleFailureExhaustsRetries(t *testing.T) {
	repo := &reportRepoStub{jobs: map[string]*models.ReportJob{"job-1": queuedJobFixture("job-1")}}
	exporter := exportStub{err: errors.New("boom")}
	worker := NewReportWorker(repo, exporter, 2, zap.NewNop())

	err := worker.Handle(context.Background(), jobs.Job{ID: "job-1", Attempt: 2})
	require.Error(t, err)
	require.Equal(t, models.ReportStatusFailed, repo.jobs["job-1"].Status)
}
