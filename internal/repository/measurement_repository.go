package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/academic-directory-api/internal/models"
)

const measurementColumns = `id, user_id, name, unit, chest, waist, hips, shoulder, sleeve_length, inseam, neck, height,
        notes, is_deleted, deleted_at, created_at, updated_at`

// MeasurementRepository stores measurement sets. Every query is scoped to the owning user
// and, unless the repository is unscoped, hides soft-deleted rows.
type MeasurementRepository struct {
	db       *sqlx.DB
	unscoped bool
}

// NewMeasurementRepository constructs the default scoped repository.
func NewMeasurementRepository(db *sqlx.DB) *MeasurementRepository {
	return &MeasurementRepository{db: db}
}

// Unscoped returns a view of the repository that also sees soft-deleted rows.
func (r *MeasurementRepository) Unscoped() *MeasurementRepository {
	return &MeasurementRepository{db: r.db, unscoped: true}
}

func (r *MeasurementRepository) scope(conditions []string) []string {
	if r.unscoped {
		return conditions
	}
	return append(conditions, "is_deleted = false")
}

// List returns the user's measurements and the total count.
func (r *MeasurementRepository) List(ctx context.Context, filter models.MeasurementFilter) ([]models.Measurement, int, error) {
	conditions := []string{"user_id = $1"}
	args := []interface{}{filter.UserID}
	conditions = r.scope(conditions)

	if r.unscoped && filter.OnlyDeleted {
		conditions = append(conditions, "is_deleted = true")
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(name) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if filter.Unit != "" {
		conditions = append(conditions, fmt.Sprintf("unit = $%d", len(args)+1))
		args = append(args, filter.Unit)
	}

	base := "FROM measurements WHERE " + strings.Join(conditions, " AND ")

	allowedSorts := map[string]string{
		"name":       "name",
		"created_at": "created_at",
		"updated_at": "updated_at",
		"deleted_at": "deleted_at",
	}
	column, ok := allowedSorts[filter.SortBy]
	if !ok {
		column = "created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	limit, offset := paginate(filter.Page, filter.PageSize)

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", measurementColumns, base, column, order, limit, offset)
	var measurements []models.Measurement
	if err := r.db.SelectContext(ctx, &measurements, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list measurements: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count measurements: %w", err)
	}
	return measurements, total, nil
}

// FindByID returns a measurement owned by userID.
func (r *MeasurementRepository) FindByID(ctx context.Context, userID, id string) (*models.Measurement, error) {
	conditions := r.scope([]string{"id = $1", "user_id = $2"})
	query := fmt.Sprintf("SELECT %s FROM measurements WHERE %s", measurementColumns, strings.Join(conditions, " AND "))
	var measurement models.Measurement
	if err := r.db.GetContext(ctx, &measurement, query, id, userID); err != nil {
		return nil, err
	}
	return &measurement, nil
}

// Create inserts a measurement.
func (r *MeasurementRepository) Create(ctx context.Context, m *models.Measurement) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now
	const query = `INSERT INTO measurements (id, user_id, name, unit, chest, waist, hips, shoulder, sleeve_length, inseam, neck, height,
        notes, is_deleted, deleted_at, created_at, updated_at)
        VALUES (:id, :user_id, :name, :unit, :chest, :waist, :hips, :shoulder, :sleeve_length, :inseam, :neck, :height,
        :notes, :is_deleted, :deleted_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, m); err != nil {
		return fmt.Errorf("create measurement: %w", err)
	}
	return nil
}

// Update writes the measurement values of an owned, live row.
func (r *MeasurementRepository) Update(ctx context.Context, m *models.Measurement) error {
	m.UpdatedAt = time.Now().UTC()
	const query = `UPDATE measurements SET name = :name, unit = :unit, chest = :chest, waist = :waist, hips = :hips, shoulder = :shoulder,
        sleeve_length = :sleeve_length, inseam = :inseam, neck = :neck, height = :height, notes = :notes, updated_at = :updated_at
        WHERE id = :id AND user_id = :user_id AND is_deleted = false`
	res, err := r.db.NamedExecContext(ctx, query, m)
	if err != nil {
		return fmt.Errorf("update measurement: %w", err)
	}
	return requireAffected(res)
}

// SoftDelete flags a live measurement as deleted.
func (r *MeasurementRepository) SoftDelete(ctx context.Context, userID, id string) error {
	now := time.Now().UTC()
	const query = `UPDATE measurements SET is_deleted = true, deleted_at = $3, updated_at = $3 WHERE id = $1 AND user_id = $2 AND is_deleted = false`
	res, err := r.db.ExecContext(ctx, query, id, userID, now)
	if err != nil {
		return fmt.Errorf("soft delete measurement: %w", err)
	}
	return requireAffected(res)
}

// Restore clears the deleted flag of a trashed measurement.
func (r *MeasurementRepository) Restore(ctx context.Context, userID, id string) error {
	const query = `UPDATE measurements SET is_deleted = false, deleted_at = NULL, updated_at = $3 WHERE id = $1 AND user_id = $2 AND is_deleted = true`
	res, err := r.db.ExecContext(ctx, query, id, userID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("restore measurement: %w", err)
	}
	return requireAffected(res)
}

// requireAffected reports sql.ErrNoRows when a write matched nothing.
func requireAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
