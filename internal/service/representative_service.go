package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/academic-directory-api/internal/models"
	appErrors "github.com/noah-isme/academic-directory-api/pkg/errors"
	"github.com/noah-isme/academic-directory-api/pkg/phone"
)

// RepresentativeResource names representatives in the audit trail.
const RepresentativeResource = "representative"

type representativeRepository interface {
	FindByPhone(ctx context.Context, normalized string) (*models.Representative, error)
	FindByID(ctx context.Context, id string) (*models.RepresentativeDetail, error)
	List(ctx context.Context, filter models.RepresentativeFilter) ([]models.RepresentativeDetail, int, error)
	Create(ctx context.Context, rep *models.Representative) error
	Update(ctx context.Context, rep *models.Representative) error
	SetVerification(ctx context.Context, id string, status models.VerificationStatus, actorID *string, at *time.Time) error
	Deactivate(ctx context.Context, id string) error
}

type departmentLookup interface {
	FindDepartmentByID(ctx context.Context, id string) (*models.DepartmentDetail, error)
}

type auditReader interface {
	ListAuditLogs(ctx context.Context, resource, resourceID string, limit int) ([]models.AuditLog, error)
}

// RepresentativeService deduplicates submissions by phone number and runs the
// verification workflow.
type RepresentativeService struct {
	repo        representativeRepository
	departments departmentLookup
	audit       auditReader
	normalizer  *phone.Normalizer
	validator   *validator.Validate
	metrics     *MetricsService
	logger      *zap.Logger
	now         func() time.Time
}

// NewRepresentativeService constructs the service. A nil normalizer uses the default region.
func NewRepresentativeService(repo representativeRepository, departments departmentLookup, audit auditReader, normalizer *phone.Normalizer, validate *validator.Validate, logger *zap.Logger) *RepresentativeService {
	if normalizer == nil {
		normalizer = phone.NewNormalizer(phone.DefaultRegion)
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RepresentativeService{
		repo:        repo,
		departments: departments,
		audit:       audit,
		normalizer:  normalizer,
		validator:   validate,
		logger:      logger,
		now:         time.Now,
	}
}

// UseMetrics attaches the metrics service that counts verification decisions.
func (s *RepresentativeService) UseMetrics(metrics *MetricsService) {
	s.metrics = metrics
}

// FindExisting returns the representative stored under the normalized form of rawPhone.
// A phone that cannot be normalized is reported as not found.
func (s *RepresentativeService) FindExisting(ctx context.Context, rawPhone string) (*models.Representative, error) {
	normalized, err := s.normalizer.Normalize(rawPhone)
	if err != nil {
		return nil, nil
	}
	rep, err := s.repo.FindByPhone(ctx, normalized)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up representative")
	}
	return rep, nil
}

// Merge applies the supplied fields of in onto a copy of existing and persists the
// result when anything changed. A verified record that changes drops back to
// unverified. existing is never modified.
func (s *RepresentativeService) Merge(ctx context.Context, existing *models.Representative, in models.RepresentativeSubmission) (*models.Representative, models.ChangeSet, error) {
	if err := s.validator.Struct(in); err != nil {
		return nil, nil, appErrors.Validation(err, "invalid representative payload")
	}
	if err := s.checkYears(in.EntryYear, in.TenureStartYear); err != nil {
		return nil, nil, err
	}

	// Resolve everything that can fail before any field is applied.
	var name *string
	if in.FullName != nil {
		trimmedName := strings.TrimSpace(*in.FullName)
		if trimmedName == "" {
			appErr := appErrors.Clone(appErrors.ErrValidation, "full_name cannot be blank")
			appErr.Details = map[string]string{"full_name": "required"}
			return nil, nil, appErr
		}
		name = &trimmedName
	}
	var whatsapp *string
	if in.WhatsAppNumber != nil {
		normalized, err := s.normalizer.Normalize(*in.WhatsAppNumber)
		if err != nil {
			return nil, nil, appErrors.Wrap(err, appErrors.ErrInvalidPhone.Code, appErrors.ErrInvalidPhone.Status, "invalid whatsapp number")
		}
		whatsapp = &normalized
	}
	var department *models.DepartmentDetail
	if in.DepartmentID != nil && *in.DepartmentID != existing.DepartmentID {
		resolved, err := s.resolveDepartment(ctx, *in.DepartmentID)
		if err != nil {
			return nil, nil, err
		}
		department = resolved
	}

	merged := *existing
	changes := models.ChangeSet{}

	if name != nil && *name != merged.FullName {
		merged.FullName = *name
		changes["full_name"] = *name
	}
	mergeOptionalString(changes, "nickname", &merged.Nickname, trimmed(in.Nickname))
	mergeOptionalString(changes, "email", &merged.Email, lowered(in.Email))
	mergeOptionalString(changes, "notes", &merged.Notes, trimmed(in.Notes))
	mergeOptionalString(changes, "whatsapp_number", &merged.WhatsAppNumber, whatsapp)

	if in.Role != nil && *in.Role != merged.Role {
		merged.Role = *in.Role
		changes["role"] = *in.Role
	}

	if department != nil {
		merged.DepartmentID = department.ID
		merged.FacultyID = department.FacultyID
		merged.UniversityID = department.UniversityID
		changes["department_id"] = department.ID
	}

	mergeOptionalInt(changes, "entry_year", &merged.EntryYear, in.EntryYear)
	mergeOptionalInt(changes, "tenure_start_year", &merged.TenureStartYear, in.TenureStartYear)

	if len(changes) == 0 {
		return &merged, changes, nil
	}

	if merged.VerificationStatus == models.VerificationVerified {
		merged.VerificationStatus = models.VerificationUnverified
		merged.VerifiedAt = nil
		merged.VerifiedBy = nil
		changes["verification_status"] = models.VerificationUnverified
	}

	if err := s.repo.Update(ctx, &merged); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update representative")
	}
	s.logger.Info("representative merged",
		zap.String("representative_id", merged.ID),
		zap.Int("changed_fields", len(changes)),
	)
	return &merged, changes, nil
}

// DeduplicateOrCreate merges in into the representative sharing its phone number, or
// creates a new one. The boolean reports creation. The lookup and the insert are not
// atomic: a concurrent first submission of the same phone loses on the unique index and
// receives CONFLICT.
func (s *RepresentativeService) DeduplicateOrCreate(ctx context.Context, in models.RepresentativeSubmission) (*models.Representative, bool, models.ChangeSet, error) {
	existing, err := s.FindExisting(ctx, in.PhoneNumber)
	if err != nil {
		return nil, false, nil, err
	}
	if existing != nil {
		rep, changes, err := s.Merge(ctx, existing, in)
		if err != nil {
			return nil, false, nil, err
		}
		return rep, false, changes, nil
	}

	rep, err := s.create(ctx, in)
	if err != nil {
		return nil, false, nil, err
	}
	return rep, true, models.ChangeSet{}, nil
}

func (s *RepresentativeService) create(ctx context.Context, in models.RepresentativeSubmission) (*models.Representative, error) {
	if err := s.validator.Struct(in); err != nil {
		return nil, appErrors.Validation(err, "invalid representative payload")
	}
	normalized, err := s.normalizer.Normalize(in.PhoneNumber)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidPhone.Code, appErrors.ErrInvalidPhone.Status, "invalid phone number")
	}

	var missing []string
	if in.FullName == nil || strings.TrimSpace(*in.FullName) == "" {
		missing = append(missing, "full_name")
	}
	if in.Role == nil {
		missing = append(missing, "role")
	}
	if in.DepartmentID == nil {
		missing = append(missing, "department_id")
	}
	if in.Role != nil {
		if *in.Role == models.RoleClassRep && in.EntryYear == nil {
			missing = append(missing, "entry_year")
		}
		if in.Role.IsPresident() && in.TenureStartYear == nil {
			missing = append(missing, "tenure_start_year")
		}
	}
	if len(missing) > 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "missing required fields: "+strings.Join(missing, ", "))
	}
	if err := s.checkYears(in.EntryYear, in.TenureStartYear); err != nil {
		return nil, err
	}

	department, err := s.resolveDepartment(ctx, *in.DepartmentID)
	if err != nil {
		return nil, err
	}

	rep := &models.Representative{
		FullName:           strings.TrimSpace(*in.FullName),
		Nickname:           trimmed(in.Nickname),
		PhoneNumber:        normalized,
		Email:              lowered(in.Email),
		Role:               *in.Role,
		DepartmentID:       department.ID,
		FacultyID:          department.FacultyID,
		UniversityID:       department.UniversityID,
		EntryYear:          in.EntryYear,
		TenureStartYear:    in.TenureStartYear,
		VerificationStatus: models.VerificationUnverified,
		IsActive:           true,
		Notes:              trimmed(in.Notes),
	}
	if in.WhatsAppNumber != nil {
		whatsapp, err := s.normalizer.Normalize(*in.WhatsAppNumber)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInvalidPhone.Code, appErrors.ErrInvalidPhone.Status, "invalid whatsapp number")
		}
		rep.WhatsAppNumber = &whatsapp
	}

	if err := s.repo.Create(ctx, rep); err != nil {
		return nil, passAppError(err, "failed to create representative")
	}
	s.logger.Info("representative created", zap.String("representative_id", rep.ID), zap.String("role", string(rep.Role)))
	return rep, nil
}

// List returns representatives and pagination metadata.
func (s *RepresentativeService) List(ctx context.Context, filter models.RepresentativeFilter) ([]models.RepresentativeDetail, *models.Pagination, error) {
	reps, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list representatives")
	}
	return reps, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns one representative with its parent names.
func (s *RepresentativeService) Get(ctx context.Context, id string) (*models.RepresentativeDetail, error) {
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "representative not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load representative")
	}
	return detail, nil
}

// Update merges a staff edit onto the stored record.
func (s *RepresentativeService) Update(ctx context.Context, id string, in models.RepresentativeUpdate) (*models.Representative, models.ChangeSet, error) {
	detail, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	rep := detail.Representative
	return s.Merge(ctx, &rep, in.Submission(rep.PhoneNumber))
}

// Verify marks a representative verified by actorID.
func (s *RepresentativeService) Verify(ctx context.Context, id, actorID string) (*models.RepresentativeDetail, error) {
	now := s.now().UTC()
	return s.setVerification(ctx, id, models.VerificationVerified, &actorID, &now)
}

// Dispute flags a representative's data as contested. Any previous verification is cleared.
func (s *RepresentativeService) Dispute(ctx context.Context, id string) (*models.RepresentativeDetail, error) {
	return s.setVerification(ctx, id, models.VerificationDisputed, nil, nil)
}

func (s *RepresentativeService) setVerification(ctx context.Context, id string, status models.VerificationStatus, actorID *string, at *time.Time) (*models.RepresentativeDetail, error) {
	detail, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !detail.IsActive {
		return nil, appErrors.Clone(appErrors.ErrConflict, "representative is inactive")
	}
	if err := s.repo.SetVerification(ctx, id, status, actorID, at); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update verification")
	}
	s.metrics.RecordVerification(status)
	detail.VerificationStatus = status
	detail.VerifiedBy = actorID
	detail.VerifiedAt = at
	return detail, nil
}

// Deactivate hides a representative from public listings without deleting it.
func (s *RepresentativeService) Deactivate(ctx context.Context, id string) error {
	detail, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !detail.IsActive {
		return nil
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate representative")
	}
	return nil
}

// History returns the audit trail of a representative, newest first.
func (s *RepresentativeService) History(ctx context.Context, id string, limit int) ([]models.AuditLog, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	if s.audit == nil {
		return []models.AuditLog{}, nil
	}
	logs, err := s.audit.ListAuditLogs(ctx, RepresentativeResource, id, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load history")
	}
	return logs, nil
}

func (s *RepresentativeService) resolveDepartment(ctx context.Context, id string) (*models.DepartmentDetail, error) {
	department, err := s.departments.FindDepartmentByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "department not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load department")
	}
	return department, nil
}

// checkYears rejects years in the future. Lower bounds live on the payload tags.
func (s *RepresentativeService) checkYears(entry, tenure *int) error {
	current := s.now().Year()
	if entry != nil && *entry > current {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("entry_year cannot be after %d", current))
	}
	if tenure != nil && *tenure > current {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("tenure_start_year cannot be after %d", current))
	}
	return nil
}

func mergeOptionalString(changes models.ChangeSet, field string, dst **string, in *string) {
	if in == nil {
		return
	}
	if *dst != nil && **dst == *in {
		return
	}
	value := *in
	*dst = &value
	changes[field] = value
}

func mergeOptionalInt(changes models.ChangeSet, field string, dst **int, in *int) {
	if in == nil {
		return
	}
	if *dst != nil && **dst == *in {
		return
	}
	value := *in
	*dst = &value
	changes[field] = value
}

func trimmed(v *string) *string {
	if v == nil {
		return nil
	}
	out := strings.TrimSpace(*v)
	return &out
}

func lowered(v *string) *string {
	if v == nil {
		return nil
	}
	out := strings.ToLower(strings.TrimSpace(*v))
	return &out
}
