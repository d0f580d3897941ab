package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/academic-directory-api/internal/models"
	"github.com/noah-isme/academic-directory-api/internal/repository"
	appErrors "github.com/noah-isme/academic-directory-api/pkg/errors"
	"github.com/noah-isme/academic-directory-api/pkg/jobs"
	"github.com/noah-isme/academic-directory-api/pkg/storage"
)

type exportJobStub struct {
	jobs map[string]*models.ExportJob
}

func newExportJobStub() *exportJobStub {
	return &exportJobStub{jobs: map[string]*models.ExportJob{}}
}

func (r *exportJobStub) Create(_ context.Context, job *models.ExportJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	r.jobs[job.ID] = job
	return nil
}

func (r *exportJobStub) GetByID(_ context.Context, id string) (*models.ExportJob, error) {
	job, ok := r.jobs[id]
	if !ok {
		return nil, fmt.Errorf("get export job: %w", sql.ErrNoRows)
	}
	clone := *job
	return &clone, nil
}

func (r *exportJobStub) Update(_ context.Context, id string, params repository.UpdateExportJobParams) error {
	job, ok := r.jobs[id]
	if !ok {
		return sql.ErrNoRows
	}
	if params.Status != nil {
		job.Status = *params.Status
	}
	if params.Progress != nil {
		job.Progress = *params.Progress
	}
	if params.ResultURL != nil {
		job.ResultURL = params.ResultURL
	}
	if params.ErrorMessage != nil {
		job.ErrorMessage = params.ErrorMessage
	}
	if params.FinishedAt != nil {
		job.FinishedAt = params.FinishedAt
	}
	return nil
}

func (r *exportJobStub) ListQueued(_ context.Context, _ int) ([]models.ExportJob, error) {
	var queued []models.ExportJob
	for _, job := range r.jobs {
		if job.Status == models.ExportStatusQueued {
			queued = append(queued, *job)
		}
	}
	return queued, nil
}

func (r *exportJobStub) ListFinishedBefore(_ context.Context, cutoff time.Time, _ int) ([]models.ExportJob, error) {
	var out []models.ExportJob
	for _, job := range r.jobs {
		if job.Status == models.ExportStatusFinished && job.FinishedAt != nil && job.FinishedAt.Before(cutoff) {
			out = append(out, *job)
		}
	}
	return out, nil
}

type recordingQueue struct {
	enqueued []jobs.Job
	err      error
}

func (q *recordingQueue) Enqueue(job jobs.Job) error {
	if q.err != nil {
		return q.err
	}
	q.enqueued = append(q.enqueued, job)
	return nil
}

type staticExportSource []models.RepresentativeDetail

func (s staticExportSource) ListForExport(context.Context, models.RepresentativeFilter) ([]models.RepresentativeDetail, error) {
	return s, nil
}

func sampleExportSource() staticExportSource {
	entry, tenure := 2021, 2023
	return staticExportSource{
		{Representative: models.Representative{ID: "r1", FullName: "Ada Obi", PhoneNumber: "+2348011112222", Role: models.RoleClassRep, EntryYear: &entry, VerificationStatus: models.VerificationVerified},
			DepartmentName: "Computer Science", FacultyName: "Science", UniversityName: "University of Lagos"},
		{Representative: models.Representative{ID: "r2", FullName: "Bola Ade", PhoneNumber: "+2348033334444", Role: models.RoleDepartmentPresident, TenureStartYear: &tenure, VerificationStatus: models.VerificationUnverified},
			DepartmentName: "Physics", FacultyName: "Science", UniversityName: "University of Lagos"},
	}
}

type exportFixture struct {
	repo     *exportJobStub
	queue    *recordingQueue
	exporter *DirectoryExportService
	svc      *ExportJobService
	worker   *ExportWorker
}

func newExportFixture(t *testing.T) *exportFixture {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("secret", time.Hour)
	exporter := NewDirectoryExportService(sampleExportSource(), store, signer, ExportConfig{APIPrefix: "/api/v1", ResultTTL: time.Hour}, zap.NewNop())
	repo := newExportJobStub()
	queue := &recordingQueue{}
	metrics := NewMetricsService()
	return &exportFixture{
		repo:     repo,
		queue:    queue,
		exporter: exporter,
		svc:      NewExportJobService(repo, queue, exporter, metrics, nil, zap.NewNop(), ExportJobConfig{ResultTTL: time.Hour}),
		worker:   NewExportWorker(repo, exporter, metrics, zap.NewNop()),
	}
}

func TestExportJobLifecycle(t *testing.T) {
	fx := newExportFixture(t)
	ctx := context.Background()

	status, err := fx.svc.CreateJob(ctx, ExportJobRequest{Format: models.ExportFormatCSV, GroupBy: models.GroupByRole}, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusQueued, status.Status)
	require.Len(t, fx.queue.enqueued, 1)
	assert.Equal(t, ExportJobType, fx.queue.enqueued[0].Type)

	require.NoError(t, fx.worker.Handle(ctx, fx.queue.enqueued[0]))

	status, err = fx.svc.GetStatus(ctx, status.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusFinished, status.Status)
	assert.Equal(t, 100, status.Progress)
	require.NotNil(t, status.ResultURL)
	assert.True(t, strings.HasPrefix(*status.ResultURL, "/api/v1/directory/exports/download/"))

	download, err := fx.svc.ResolveDownload(ctx, lastSegment(*status.ResultURL))
	require.NoError(t, err)
	defer download.File.Close() //nolint:errcheck
	assert.Equal(t, "text/csv", download.ContentType)
	body, err := io.ReadAll(download.File)
	require.NoError(t, err)
	assert.Contains(t, string(body), "Class Representative,Ada Obi")
}

func TestExportJobDefaultsGroupingAndValidates(t *testing.T) {
	fx := newExportFixture(t)

	status, err := fx.svc.CreateJob(context.Background(), ExportJobRequest{Format: models.ExportFormatPDF}, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, models.GroupByDepartment, fx.repo.jobs[status.ID].Params.GroupBy)

	_, err = fx.svc.CreateJob(context.Background(), ExportJobRequest{Format: "xlsx"}, "admin-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestExportJobEnqueueFailureMarksFailed(t *testing.T) {
	fx := newExportFixture(t)
	fx.queue.err = errors.New("queue stopped")

	_, err := fx.svc.CreateJob(context.Background(), ExportJobRequest{Format: models.ExportFormatCSV}, "admin-1")
	require.Error(t, err)
	for _, job := range fx.repo.jobs {
		assert.Equal(t, models.ExportStatusFailed, job.Status)
	}
}

func TestExportJobRejectsTamperedToken(t *testing.T) {
	fx := newExportFixture(t)
	_, err := fx.svc.ResolveDownload(context.Background(), "nope")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestExportJobCleanupExpiresFinishedJobs(t *testing.T) {
	fx := newExportFixture(t)
	ctx := context.Background()

	status, err := fx.svc.CreateJob(ctx, ExportJobRequest{Format: models.ExportFormatCSV}, "admin-1")
	require.NoError(t, err)
	require.NoError(t, fx.worker.Handle(ctx, fx.queue.enqueued[0]))

	old := time.Now().UTC().Add(-2 * time.Hour)
	fx.repo.jobs[status.ID].FinishedAt = &old

	assert.Equal(t, 1, fx.svc.CleanupExpired(ctx))
	assert.Equal(t, models.ExportStatusExpired, fx.repo.jobs[status.ID].Status)

	_, err = fx.svc.ResolveDownload(ctx, lastSegment(*fx.repo.jobs[status.ID].ResultURL))
	require.Error(t, err)
}

func TestExportJobRecoverAndExhaust(t *testing.T) {
	fx := newExportFixture(t)
	ctx := context.Background()
	require.NoError(t, fx.repo.Create(ctx, &models.ExportJob{Format: models.ExportFormatCSV, Status: models.ExportStatusQueued}))

	assert.Equal(t, 1, fx.svc.RecoverPendingJobs(ctx))
	job := fx.queue.enqueued[0]

	fx.svc.MarkExhausted(job, errors.New("disk full"))
	stored := fx.repo.jobs[job.ID]
	assert.Equal(t, models.ExportStatusFailed, stored.Status)
	require.NotNil(t, stored.ErrorMessage)
	assert.Equal(t, "disk full", *stored.ErrorMessage)
}

func TestDirectoryExportRenderPDFGroupedByRole(t *testing.T) {
	exporter := NewDirectoryExportService(sampleExportSource(), nil, nil, ExportConfig{}, nil)

	rendered, err := exporter.Render(context.Background(), models.ExportFormatPDF, models.ExportJobParams{GroupBy: models.GroupByRole})
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", rendered.ContentType)
	assert.Equal(t, 2, rendered.Rows)
	assert.True(t, strings.HasSuffix(rendered.Filename, ".pdf"))

	report := exporter.buildReport(sampleExportSource(), models.ExportJobParams{GroupBy: models.GroupByRole})
	require.Len(t, report.Sections, 2)
	assert.Equal(t, models.RoleClassRep.Label(), report.Sections[0].Title)
	assert.Equal(t, "2023", report.Sections[1].Rows[0]["Year"])

	_, err = exporter.Render(context.Background(), models.ExportFormatCSV, models.ExportJobParams{GroupBy: "campus"})
	require.Error(t, err)
}
