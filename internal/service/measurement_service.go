package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/academic-directory-api/internal/models"
	appErrors "github.com/noah-isme/academic-directory-api/pkg/errors"
)

type measurementRepository interface {
	List(ctx context.Context, filter models.MeasurementFilter) ([]models.Measurement, int, error)
	FindByID(ctx context.Context, userID, id string) (*models.Measurement, error)
	Create(ctx context.Context, m *models.Measurement) error
	Update(ctx context.Context, m *models.Measurement) error
	SoftDelete(ctx context.Context, userID, id string) error
	Restore(ctx context.Context, userID, id string) error
}

// MeasurementService manages the caller's measurement sets. Deleted sets stay in a
// trash view until restored.
type MeasurementService struct {
	repo      measurementRepository
	trash     measurementRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewMeasurementService takes the default repository and its unscoped view.
func NewMeasurementService(repo, trash measurementRepository, validate *validator.Validate, logger *zap.Logger) *MeasurementService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MeasurementService{repo: repo, trash: trash, validator: validate, logger: logger}
}

// List returns the caller's live measurements.
func (s *MeasurementService) List(ctx context.Context, userID string, filter models.MeasurementFilter) ([]models.Measurement, *models.Pagination, error) {
	filter.UserID = userID
	filter.OnlyDeleted = false
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list measurements")
	}
	return items, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Trash returns the caller's soft-deleted measurements, most recently deleted first.
func (s *MeasurementService) Trash(ctx context.Context, userID string, filter models.MeasurementFilter) ([]models.Measurement, *models.Pagination, error) {
	filter.UserID = userID
	filter.OnlyDeleted = true
	if filter.SortBy == "" {
		filter.SortBy = "deleted_at"
	}
	items, total, err := s.trash.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list deleted measurements")
	}
	return items, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns one live measurement owned by userID.
func (s *MeasurementService) Get(ctx context.Context, userID, id string) (*models.Measurement, error) {
	m, err := s.repo.FindByID(ctx, userID, id)
	if err != nil {
		return nil, notFoundOr(err, "measurement not found", "failed to load measurement")
	}
	return m, nil
}

// Create stores a new measurement for userID. The unit defaults to centimetres.
func (s *MeasurementService) Create(ctx context.Context, userID string, in models.MeasurementInput) (*models.Measurement, error) {
	if err := s.validator.Struct(in); err != nil {
		return nil, appErrors.Validation(err, "invalid measurement payload")
	}
	m := &models.Measurement{UserID: userID}
	applyMeasurementInput(m, in)
	if err := s.repo.Create(ctx, m); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create measurement")
	}
	s.logger.Debug("measurement created", zap.String("user_id", userID), zap.String("measurement_id", m.ID))
	return m, nil
}

// Update replaces the values of a live measurement.
func (s *MeasurementService) Update(ctx context.Context, userID, id string, in models.MeasurementInput) (*models.Measurement, error) {
	if err := s.validator.Struct(in); err != nil {
		return nil, appErrors.Validation(err, "invalid measurement payload")
	}
	m, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	applyMeasurementInput(m, in)
	if err := s.repo.Update(ctx, m); err != nil {
		return nil, notFoundOr(err, "measurement not found", "failed to update measurement")
	}
	return m, nil
}

// Delete moves a measurement to the trash.
func (s *MeasurementService) Delete(ctx context.Context, userID, id string) error {
	if err := s.repo.SoftDelete(ctx, userID, id); err != nil {
		return notFoundOr(err, "measurement not found", "failed to delete measurement")
	}
	s.logger.Debug("measurement trashed", zap.String("user_id", userID), zap.String("measurement_id", id))
	return nil
}

// Restore brings a trashed measurement back and returns it.
func (s *MeasurementService) Restore(ctx context.Context, userID, id string) (*models.Measurement, error) {
	if err := s.trash.Restore(ctx, userID, id); err != nil {
		return nil, notFoundOr(err, "deleted measurement not found", "failed to restore measurement")
	}
	return s.Get(ctx, userID, id)
}

func applyMeasurementInput(m *models.Measurement, in models.MeasurementInput) {
	m.Name = strings.TrimSpace(in.Name)
	m.Unit = in.Unit
	if m.Unit == "" {
		m.Unit = models.UnitCentimetre
	}
	m.Chest = in.Chest
	m.Waist = in.Waist
	m.Hips = in.Hips
	m.Shoulder = in.Shoulder
	m.SleeveLength = in.SleeveLength
	m.Inseam = in.Inseam
	m.Neck = in.Neck
	m.Height = in.Height
	m.Notes = strings.TrimSpace(in.Notes)
}
