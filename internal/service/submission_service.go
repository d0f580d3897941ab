package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/academic-directory-api/internal/models"
	appErrors "github.com/noah-isme/academic-directory-api/pkg/errors"
)

type representativeDeduplicator interface {
	DeduplicateOrCreate(ctx context.Context, in models.RepresentativeSubmission) (*models.Representative, bool, models.ChangeSet, error)
}

// SubmissionService processes public batches of representative submissions.
type SubmissionService struct {
	reps     representativeDeduplicator
	maxBatch int
	metrics  *MetricsService
	logger   *zap.Logger
}

// NewSubmissionService constructs the service. maxBatch <= 0 falls back to 50.
func NewSubmissionService(reps representativeDeduplicator, maxBatch int, metrics *MetricsService, logger *zap.Logger) *SubmissionService {
	if maxBatch <= 0 {
		maxBatch = 50
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubmissionService{reps: reps, maxBatch: maxBatch, metrics: metrics, logger: logger}
}

// Submit runs every entry through create-or-update. A failing entry is reported and does
// not stop the rest of the batch.
func (s *SubmissionService) Submit(ctx context.Context, batch models.SubmissionBatch) (*models.SubmissionSummary, error) {
	if len(batch.Representatives) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "representatives must not be empty")
	}
	if len(batch.Representatives) > s.maxBatch {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("at most %d representatives per submission", s.maxBatch))
	}

	summary := &models.SubmissionSummary{
		Results:  make([]models.SubmissionResult, 0, len(batch.Representatives)),
		Failures: make([]models.SubmissionFailure, 0),
	}
	for i, item := range batch.Representatives {
		if err := ctx.Err(); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "submission cancelled")
		}

		rep, isNew, changes, err := s.reps.DeduplicateOrCreate(ctx, item)
		if err != nil {
			appErr := appErrors.FromError(err)
			if appErr.Status >= 500 {
				s.logger.Error("submission entry failed", zap.Int("index", i), zap.Error(err))
			}
			summary.Errors++
			summary.Failures = append(summary.Failures, models.SubmissionFailure{Index: i, Code: appErr.Code, Message: appErr.Message})
			continue
		}

		switch {
		case isNew:
			summary.Created++
		case len(changes) > 0:
			summary.Updated++
		default:
			summary.Unchanged++
		}
		summary.Results = append(summary.Results, models.SubmissionResult{Index: i, ID: rep.ID, IsNew: isNew, Changes: changes})
	}

	s.metrics.RecordSubmission(SubmissionCreated, summary.Created)
	s.metrics.RecordSubmission(SubmissionUpdated, summary.Updated)
	s.metrics.RecordSubmission(SubmissionUnchanged, summary.Unchanged)
	s.metrics.RecordSubmission(SubmissionFailed, summary.Errors)
	s.logger.Info("submission processed",
		zap.Int("created", summary.Created),
		zap.Int("updated", summary.Updated),
		zap.Int("unchanged", summary.Unchanged),
		zap.Int("errors", summary.Errors),
	)
	return summary, nil
}
