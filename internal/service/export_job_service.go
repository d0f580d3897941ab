package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/academic-directory-api/internal/models"
	"github.com/noah-isme/academic-directory-api/internal/repository"
	appErrors "github.com/noah-isme/academic-directory-api/pkg/errors"
	"github.com/noah-isme/academic-directory-api/pkg/jobs"
)

type exportJobStore interface {
	Create(ctx context.Context, job *models.ExportJob) error
	GetByID(ctx context.Context, id string) (*models.ExportJob, error)
	Update(ctx context.Context, id string, params repository.UpdateExportJobParams) error
	ListQueued(ctx context.Context, limit int) ([]models.ExportJob, error)
	ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ExportJob, error)
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

type exportGenerator interface {
	Generate(ctx context.Context, job *models.ExportJob) (*ExportResult, error)
}

type exportFiles interface {
	ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error)
	Open(relPath string) (*os.File, error)
	Delete(relPath string) error
	Cleanup(ttl time.Duration) ([]string, error)
}

// ExportJobType tags queue jobs produced by this service.
const ExportJobType = "representative_export"

const cleanupBatch = 100

// ExportJobRequest asks for an asynchronous representative export.
type ExportJobRequest struct {
	Format             models.ExportFormat       `json:"format" validate:"required,oneof=csv pdf"`
	GroupBy            models.ExportGrouping     `json:"group_by" validate:"omitempty,oneof=department faculty role"`
	UniversityID       string                    `json:"university_id" validate:"omitempty,uuid"`
	FacultyID          string                    `json:"faculty_id" validate:"omitempty,uuid"`
	DepartmentID       string                    `json:"department_id" validate:"omitempty,uuid"`
	Role               models.RepresentativeRole `json:"role"`
	VerificationStatus models.VerificationStatus `json:"verification_status"`
	Title              string                    `json:"title" validate:"max=120"`
}

// Params converts the request into stored job params. Grouping defaults to department.
func (r ExportJobRequest) Params() models.ExportJobParams {
	groupBy := r.GroupBy
	if groupBy == "" {
		groupBy = models.GroupByDepartment
	}
	return models.ExportJobParams{
		UniversityID:       r.UniversityID,
		FacultyID:          r.FacultyID,
		DepartmentID:       r.DepartmentID,
		Role:               r.Role,
		VerificationStatus: r.VerificationStatus,
		GroupBy:            groupBy,
		Title:              r.Title,
	}
}

// ExportJobStatus is the client view of a job.
type ExportJobStatus struct {
	ID        string              `json:"id"`
	Format    models.ExportFormat `json:"format"`
	Status    models.ExportStatus `json:"status"`
	Progress  int                 `json:"progress"`
	ResultURL *string             `json:"result_url,omitempty"`
	Error     *string             `json:"error,omitempty"`
}

// ExportDownload is a resolved stored export.
type ExportDownload struct {
	File        *os.File
	Filename    string
	ContentType string
	ExpiresAt   time.Time
}

// ExportJobConfig governs queue recovery and cleanup.
type ExportJobConfig struct {
	ResultTTL       time.Duration
	CleanupInterval time.Duration
}

// ExportJobService manages the lifecycle of asynchronous exports.
type ExportJobService struct {
	repo      exportJobStore
	queue     jobDispatcher
	files     exportFiles
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ExportJobConfig
}

// NewExportJobService constructs the service.
func NewExportJobService(repo exportJobStore, queue jobDispatcher, files exportFiles, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg ExportJobConfig) *ExportJobService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	return &ExportJobService{repo: repo, queue: queue, files: files, metrics: metrics, validator: validate, logger: logger, cfg: cfg}
}

// CreateJob persists a queued job and hands it to the worker pool.
func (s *ExportJobService) CreateJob(ctx context.Context, req ExportJobRequest, actorID string) (*ExportJobStatus, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid export request")
	}
	params := req.Params()
	if err := validateExportParams(req.Format, params); err != nil {
		return nil, err
	}

	job := &models.ExportJob{
		Format:    req.Format,
		Params:    params,
		Status:    models.ExportStatusQueued,
		CreatedBy: actorID,
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create export job")
	}
	s.metrics.RecordExportJob(job.Format, models.ExportStatusQueued)

	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: ExportJobType}); err != nil {
		s.markFailed(ctx, job.ID, job.Format, "failed to enqueue job")
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue export job")
	}
	return toExportStatus(job), nil
}

// GetStatus returns job progress.
func (s *ExportJobService) GetStatus(ctx context.Context, id string) (*ExportJobStatus, error) {
	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "export job not found", "failed to load export job")
	}
	return toExportStatus(job), nil
}

// ResolveDownload validates a signed token and opens the file it points to.
func (s *ExportJobService) ResolveDownload(ctx context.Context, token string) (*ExportDownload, error) {
	jobID, relPath, expiresAt, err := s.files.ParseToken(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		return nil, notFoundOr(err, "export job not found", "failed to load export job")
	}
	if job.Status != models.ExportStatusFinished {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "export not available")
	}
	if job.ResultURL == nil || lastSegment(*job.ResultURL) != token {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "token mismatch")
	}
	file, err := s.files.Open(relPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "export file no longer exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open export file")
	}
	contentType := "text/csv"
	if job.Format == models.ExportFormatPDF {
		contentType = "application/pdf"
	}
	return &ExportDownload{File: file, Filename: filepath.Base(relPath), ContentType: contentType, ExpiresAt: expiresAt}, nil
}

// RecoverPendingJobs re-enqueues jobs left QUEUED by a previous process.
func (s *ExportJobService) RecoverPendingJobs(ctx context.Context) int {
	pending, err := s.repo.ListQueued(ctx, 50)
	if err != nil {
		s.logger.Warn("failed to recover queued export jobs", zap.Error(err))
		return 0
	}
	recovered := 0
	for _, job := range pending {
		if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: ExportJobType}); err != nil {
			s.logger.Warn("failed to requeue export job", zap.String("job_id", job.ID), zap.Error(err))
			continue
		}
		recovered++
	}
	if recovered > 0 {
		s.logger.Info("recovered queued export jobs", zap.Int("count", recovered))
	}
	return recovered
}

// StartCleanup purges expired exports every CleanupInterval until ctx is done.
func (s *ExportJobService) StartCleanup(ctx context.Context) {
	if s.cfg.CleanupInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.CleanupExpired(ctx)
			}
		}
	}()
}

// CleanupExpired deletes the files of jobs finished longer than ResultTTL ago and marks
// those jobs EXPIRED. Stray files past the TTL are removed as well.
func (s *ExportJobService) CleanupExpired(ctx context.Context) int {
	cutoff := time.Now().UTC().Add(-s.cfg.ResultTTL)
	expired := models.ExportStatusExpired
	cleaned := 0
	for {
		batch, err := s.repo.ListFinishedBefore(ctx, cutoff, cleanupBatch)
		if err != nil {
			s.logger.Warn("export cleanup list failed", zap.Error(err))
			break
		}
		for _, job := range batch {
			if job.ResultURL != nil {
				if _, relPath, _, err := s.files.ParseToken(lastSegment(*job.ResultURL), true); err == nil {
					if err := s.files.Delete(relPath); err != nil {
						s.logger.Warn("export cleanup delete failed", zap.String("job_id", job.ID), zap.Error(err))
					}
				}
			}
			if err := s.repo.Update(ctx, job.ID, repository.UpdateExportJobParams{Status: &expired}); err != nil {
				s.logger.Warn("failed to mark export expired", zap.String("job_id", job.ID), zap.Error(err))
				return cleaned
			}
			cleaned++
		}
		if len(batch) < cleanupBatch {
			break
		}
	}
	if _, err := s.files.Cleanup(s.cfg.ResultTTL); err != nil {
		s.logger.Warn("export filesystem cleanup failed", zap.Error(err))
	}
	return cleaned
}

// MarkExhausted records a job the queue gave up on.
func (s *ExportJobService) MarkExhausted(job jobs.Job, err error) {
	record, getErr := s.repo.GetByID(context.Background(), job.ID)
	format := models.ExportFormat("")
	if getErr == nil {
		format = record.Format
	}
	s.markFailed(context.Background(), job.ID, format, err.Error())
}

func (s *ExportJobService) markFailed(ctx context.Context, id string, format models.ExportFormat, msg string) {
	failed := models.ExportStatusFailed
	progress := 100
	now := time.Now().UTC()
	if err := s.repo.Update(ctx, id, repository.UpdateExportJobParams{
		Status:       &failed,
		Progress:     &progress,
		ErrorMessage: &msg,
		FinishedAt:   &now,
	}); err != nil {
		s.logger.Warn("failed to mark export job failed", zap.String("job_id", id), zap.Error(err))
	}
	s.metrics.RecordExportJob(format, failed)
}

func toExportStatus(job *models.ExportJob) *ExportJobStatus {
	status := &ExportJobStatus{ID: job.ID, Format: job.Format, Status: job.Status, Progress: job.Progress, ResultURL: job.ResultURL}
	if job.ErrorMessage != nil && *job.ErrorMessage != "" {
		status.Error = job.ErrorMessage
	}
	return status
}

func lastSegment(url string) string {
	return url[strings.LastIndex(url, "/")+1:]
}

// ExportWorker bridges queue jobs to the export generator.
type ExportWorker struct {
	repo     exportJobStore
	exporter exportGenerator
	metrics  *MetricsService
	logger   *zap.Logger
}

// NewExportWorker constructs a worker.
func NewExportWorker(repo exportJobStore, exporter exportGenerator, metrics *MetricsService, logger *zap.Logger) *ExportWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportWorker{repo: repo, exporter: exporter, metrics: metrics, logger: logger}
}

// Handle processes one queue job. A returned error lets the queue retry; the job goes
// back to QUEUED until the queue gives up.
func (w *ExportWorker) Handle(ctx context.Context, job jobs.Job) error {
	record, err := w.repo.GetByID(ctx, job.ID)
	if err != nil {
		return err
	}
	if record.Status == models.ExportStatusFinished || record.Status == models.ExportStatusExpired {
		return nil
	}

	processing := models.ExportStatusProcessing
	progress := 10
	if err := w.repo.Update(ctx, job.ID, repository.UpdateExportJobParams{Status: &processing, Progress: &progress}); err != nil {
		return err
	}

	result, err := w.exporter.Generate(ctx, record)
	if err != nil {
		queued := models.ExportStatusQueued
		reset := 0
		msg := err.Error()
		if updateErr := w.repo.Update(ctx, job.ID, repository.UpdateExportJobParams{
			Status:       &queued,
			Progress:     &reset,
			ErrorMessage: &msg,
		}); updateErr != nil {
			w.logger.Warn("failed to requeue export job", zap.String("job_id", job.ID), zap.Error(updateErr))
		}
		return err
	}

	finished := models.ExportStatusFinished
	progress = 100
	now := time.Now().UTC()
	none := ""
	if err := w.repo.Update(ctx, job.ID, repository.UpdateExportJobParams{
		Status:       &finished,
		Progress:     &progress,
		ResultURL:    &result.URL,
		ErrorMessage: &none,
		FinishedAt:   &now,
	}); err != nil {
		return err
	}
	w.metrics.RecordExportJob(record.Format, finished)
	w.logger.Info("export job finished", zap.String("job_id", job.ID), zap.String("path", result.RelativePath))
	return nil
}
