package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/academic-directory-api/internal/models"
	"github.com/noah-isme/academic-directory-api/pkg/database"
	appErrors "github.com/noah-isme/academic-directory-api/pkg/errors"
)

// PhoneNumberConstraint is the unique index guarding representative identity.
const PhoneNumberConstraint = "representatives_phone_number_key"

const representativeColumns = `id, full_name, nickname, phone_number, whatsapp_number, email, role, department_id, faculty_id, university_id,
        entry_year, tenure_start_year, verification_status, verified_at, verified_by, is_active, notes, created_at, updated_at`

const representativeDetailColumns = `r.id, r.full_name, r.nickname, r.phone_number, r.whatsapp_number, r.email, r.role, r.department_id, r.faculty_id, r.university_id,
        r.entry_year, r.tenure_start_year, r.verification_status, r.verified_at, r.verified_by, r.is_active, r.notes, r.created_at, r.updated_at,
        d.name AS department_name, f.name AS faculty_name, u.name AS university_name`

const representativeJoins = `FROM representatives r
        JOIN departments d ON d.id = r.department_id
        JOIN faculties f ON f.id = r.faculty_id
        JOIN universities u ON u.id = r.university_id`

// RepresentativeRepository manages persistence for student representatives.
type RepresentativeRepository struct {
	db *sqlx.DB
}

// NewRepresentativeRepository constructs a RepresentativeRepository.
func NewRepresentativeRepository(db *sqlx.DB) *RepresentativeRepository {
	return &RepresentativeRepository{db: db}
}

// FindByPhone returns the representative whose stored phone equals the normalized input.
func (r *RepresentativeRepository) FindByPhone(ctx context.Context, normalized string) (*models.Representative, error) {
	query := fmt.Sprintf("SELECT %s FROM representatives WHERE phone_number = $1", representativeColumns)
	var rep models.Representative
	if err := r.db.GetContext(ctx, &rep, query, normalized); err != nil {
		return nil, err
	}
	return &rep, nil
}

// FindByID returns a representative with its department, faculty and university names.
func (r *RepresentativeRepository) FindByID(ctx context.Context, id string) (*models.RepresentativeDetail, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE r.id = $1", representativeDetailColumns, representativeJoins)
	var detail models.RepresentativeDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

func buildRepresentativeConditions(filter models.RepresentativeFilter) (string, []interface{}) {
	conditions := []string{"1=1"}
	args := []interface{}{}

	if filter.UniversityID != "" {
		conditions = append(conditions, fmt.Sprintf("r.university_id = $%d", len(args)+1))
		args = append(args, filter.UniversityID)
	}
	if filter.FacultyID != "" {
		conditions = append(conditions, fmt.Sprintf("r.faculty_id = $%d", len(args)+1))
		args = append(args, filter.FacultyID)
	}
	if filter.DepartmentID != "" {
		conditions = append(conditions, fmt.Sprintf("r.department_id = $%d", len(args)+1))
		args = append(args, filter.DepartmentID)
	}
	if filter.Role != "" {
		conditions = append(conditions, fmt.Sprintf("r.role = $%d", len(args)+1))
		args = append(args, filter.Role)
	}
	if filter.VerificationStatus != "" {
		conditions = append(conditions, fmt.Sprintf("r.verification_status = $%d", len(args)+1))
		args = append(args, filter.VerificationStatus)
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("r.is_active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(r.full_name) LIKE $%d OR LOWER(COALESCE(r.nickname, '')) LIKE $%d OR r.phone_number LIKE $%d)", len(args)+1, len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	return strings.Join(conditions, " AND "), args
}

// List returns representatives matching the provided filters.
func (r *RepresentativeRepository) List(ctx context.Context, filter models.RepresentativeFilter) ([]models.RepresentativeDetail, int, error) {
	where, args := buildRepresentativeConditions(filter)
	base := fmt.Sprintf("%s WHERE %s", representativeJoins, where)

	allowedSorts := map[string]string{
		"full_name":  "r.full_name",
		"role":       "r.role",
		"created_at": "r.created_at",
		"updated_at": "r.updated_at",
	}
	column, ok := allowedSorts[filter.SortBy]
	if !ok {
		column = "r.created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	limit, offset := paginate(filter.Page, filter.PageSize)

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", representativeDetailColumns, base, column, order, limit, offset)
	var reps []models.RepresentativeDetail
	if err := r.db.SelectContext(ctx, &reps, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list representatives: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count representatives: %w", err)
	}
	return reps, total, nil
}

// ListForExport returns every matching representative ordered for grouped rendering.
func (r *RepresentativeRepository) ListForExport(ctx context.Context, filter models.RepresentativeFilter) ([]models.RepresentativeDetail, error) {
	where, args := buildRepresentativeConditions(filter)
	query := fmt.Sprintf("SELECT %s %s WHERE %s ORDER BY u.name ASC, f.name ASC, d.name ASC, r.role ASC, r.full_name ASC",
		representativeDetailColumns, representativeJoins, where)
	var reps []models.RepresentativeDetail
	if err := r.db.SelectContext(ctx, &reps, query, args...); err != nil {
		return nil, fmt.Errorf("list representatives for export: %w", err)
	}
	return reps, nil
}

// Create inserts a representative. A duplicate phone number surfaces as CONFLICT.
func (r *RepresentativeRepository) Create(ctx context.Context, rep *models.Representative) error {
	if rep.ID == "" {
		rep.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if rep.CreatedAt.IsZero() {
		rep.CreatedAt = now
	}
	rep.UpdatedAt = now
	if rep.VerificationStatus == "" {
		rep.VerificationStatus = models.VerificationUnverified
	}
	const query = `INSERT INTO representatives (id, full_name, nickname, phone_number, whatsapp_number, email, role, department_id, faculty_id, university_id,
        entry_year, tenure_start_year, verification_status, verified_at, verified_by, is_active, notes, created_at, updated_at)
        VALUES (:id, :full_name, :nickname, :phone_number, :whatsapp_number, :email, :role, :department_id, :faculty_id, :university_id,
        :entry_year, :tenure_start_year, :verification_status, :verified_at, :verified_by, :is_active, :notes, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, rep); err != nil {
		if database.IsUniqueViolation(err, PhoneNumberConstraint) {
			return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "phone number already registered")
		}
		return fmt.Errorf("create representative: %w", err)
	}
	return nil
}

// Update writes every mutable column of a representative.
func (r *RepresentativeRepository) Update(ctx context.Context, rep *models.Representative) error {
	rep.UpdatedAt = time.Now().UTC()
	const query = `UPDATE representatives SET full_name = :full_name, nickname = :nickname, whatsapp_number = :whatsapp_number, email = :email,
        role = :role, department_id = :department_id, faculty_id = :faculty_id, university_id = :university_id,
        entry_year = :entry_year, tenure_start_year = :tenure_start_year, verification_status = :verification_status,
        verified_at = :verified_at, verified_by = :verified_by, is_active = :is_active, notes = :notes, updated_at = :updated_at
        WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, rep); err != nil {
		return fmt.Errorf("update representative: %w", err)
	}
	return nil
}

// SetVerification records a verification decision.
func (r *RepresentativeRepository) SetVerification(ctx context.Context, id string, status models.VerificationStatus, actorID *string, at *time.Time) error {
	const query = `UPDATE representatives SET verification_status = $2, verified_by = $3, verified_at = $4, updated_at = $5 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, actorID, at, time.Now().UTC()); err != nil {
		return fmt.Errorf("set representative verification: %w", err)
	}
	return nil
}

// Deactivate marks a representative inactive without deleting it.
func (r *RepresentativeRepository) Deactivate(ctx context.Context, id string) error {
	const query = `UPDATE representatives SET is_active = false, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("deactivate representative: %w", err)
	}
	return nil
}
