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
	"github.com/noah-isme/academic-directory-api/pkg/database"
	appErrors "github.com/noah-isme/academic-directory-api/pkg/errors"
)

// DirectoryRepository persists universities, faculties, departments and program durations.
type DirectoryRepository struct {
	db *sqlx.DB
}

// NewDirectoryRepository constructs a DirectoryRepository.
func NewDirectoryRepository(db *sqlx.DB) *DirectoryRepository {
	return &DirectoryRepository{db: db}
}

func paginate(page, size int) (limit, offset int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return size, (page - 1) * size
}

// ListUniversities returns universities matching the filter and the total count.
func (r *DirectoryRepository) ListUniversities(ctx context.Context, filter models.UniversityFilter) ([]models.University, int, error) {
	conditions := []string{"1=1"}
	args := []interface{}{}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(name) LIKE $%d OR LOWER(abbreviation) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if filter.State != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(state) = $%d", len(args)+1))
		args = append(args, strings.ToLower(filter.State))
	}
	if filter.Ownership != "" {
		conditions = append(conditions, fmt.Sprintf("ownership = $%d", len(args)+1))
		args = append(args, filter.Ownership)
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("is_active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}

	base := "FROM universities WHERE " + strings.Join(conditions, " AND ")

	allowedSorts := map[string]string{
		"name":         "name",
		"abbreviation": "abbreviation",
		"created_at":   "created_at",
	}
	column, ok := allowedSorts[filter.SortBy]
	if !ok {
		column = "name"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}
	limit, offset := paginate(filter.Page, filter.PageSize)

	query := fmt.Sprintf("SELECT id, name, abbreviation, state, ownership, website, is_active, created_at, updated_at %s ORDER BY %s %s LIMIT %d OFFSET %d", base, column, order, limit, offset)
	var universities []models.University
	if err := r.db.SelectContext(ctx, &universities, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list universities: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count universities: %w", err)
	}
	return universities, total, nil
}

// FindUniversityByID fetches a university by identifier.
func (r *DirectoryRepository) FindUniversityByID(ctx context.Context, id string) (*models.University, error) {
	const query = `SELECT id, name, abbreviation, state, ownership, website, is_active, created_at, updated_at FROM universities WHERE id = $1`
	var university models.University
	if err := r.db.GetContext(ctx, &university, query, id); err != nil {
		return nil, err
	}
	return &university, nil
}

// FindUniversityByAbbreviation fetches a university by its unique abbreviation.
func (r *DirectoryRepository) FindUniversityByAbbreviation(ctx context.Context, abbreviation string) (*models.University, error) {
	const query = `SELECT id, name, abbreviation, state, ownership, website, is_active, created_at, updated_at FROM universities WHERE UPPER(abbreviation) = UPPER($1)`
	var university models.University
	if err := r.db.GetContext(ctx, &university, query, abbreviation); err != nil {
		return nil, err
	}
	return &university, nil
}

// CreateUniversity inserts a university.
func (r *DirectoryRepository) CreateUniversity(ctx context.Context, university *models.University) error {
	if university.ID == "" {
		university.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if university.CreatedAt.IsZero() {
		university.CreatedAt = now
	}
	university.UpdatedAt = now
	const query = `INSERT INTO universities (id, name, abbreviation, state, ownership, website, is_active, created_at, updated_at)
        VALUES (:id, :name, :abbreviation, :state, :ownership, :website, :is_active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, university); err != nil {
		return mapUniqueViolation(err, "create university")
	}
	return nil
}

// UpdateUniversity modifies an existing university.
func (r *DirectoryRepository) UpdateUniversity(ctx context.Context, university *models.University) error {
	university.UpdatedAt = time.Now().UTC()
	const query = `UPDATE universities SET name = :name, abbreviation = :abbreviation, state = :state, ownership = :ownership, website = :website, is_active = :is_active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, university); err != nil {
		return mapUniqueViolation(err, "update university")
	}
	return nil
}

// ListFaculties returns faculties, optionally scoped to a university.
func (r *DirectoryRepository) ListFaculties(ctx context.Context, filter models.FacultyFilter) ([]models.Faculty, int, error) {
	conditions := []string{"1=1"}
	args := []interface{}{}
	if filter.UniversityID != "" {
		conditions = append(conditions, fmt.Sprintf("university_id = $%d", len(args)+1))
		args = append(args, filter.UniversityID)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(name) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	base := "FROM faculties WHERE " + strings.Join(conditions, " AND ")
	limit, offset := paginate(filter.Page, filter.PageSize)

	query := fmt.Sprintf("SELECT id, university_id, name, abbreviation, created_at, updated_at %s ORDER BY name ASC LIMIT %d OFFSET %d", base, limit, offset)
	var faculties []models.Faculty
	if err := r.db.SelectContext(ctx, &faculties, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list faculties: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count faculties: %w", err)
	}
	return faculties, total, nil
}

// FindFacultyByID fetches a faculty by identifier.
func (r *DirectoryRepository) FindFacultyByID(ctx context.Context, id string) (*models.Faculty, error) {
	const query = `SELECT id, university_id, name, abbreviation, created_at, updated_at FROM faculties WHERE id = $1`
	var faculty models.Faculty
	if err := r.db.GetContext(ctx, &faculty, query, id); err != nil {
		return nil, err
	}
	return &faculty, nil
}

// FindFacultyByName fetches a faculty by its name within a university.
func (r *DirectoryRepository) FindFacultyByName(ctx context.Context, universityID, name string) (*models.Faculty, error) {
	const query = `SELECT id, university_id, name, abbreviation, created_at, updated_at FROM faculties WHERE university_id = $1 AND name = $2`
	var faculty models.Faculty
	if err := r.db.GetContext(ctx, &faculty, query, universityID, name); err != nil {
		return nil, err
	}
	return &faculty, nil
}

// CreateFaculty inserts a faculty.
func (r *DirectoryRepository) CreateFaculty(ctx context.Context, faculty *models.Faculty) error {
	if faculty.ID == "" {
		faculty.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if faculty.CreatedAt.IsZero() {
		faculty.CreatedAt = now
	}
	faculty.UpdatedAt = now
	const query = `INSERT INTO faculties (id, university_id, name, abbreviation, created_at, updated_at)
        VALUES (:id, :university_id, :name, :abbreviation, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, faculty); err != nil {
		return mapUniqueViolation(err, "create faculty")
	}
	return nil
}

// UpdateFaculty modifies an existing faculty.
func (r *DirectoryRepository) UpdateFaculty(ctx context.Context, faculty *models.Faculty) error {
	faculty.UpdatedAt = time.Now().UTC()
	const query = `UPDATE faculties SET name = :name, abbreviation = :abbreviation, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, faculty); err != nil {
		return mapUniqueViolation(err, "update faculty")
	}
	return nil
}

const departmentDetailColumns = `d.id, d.faculty_id, d.name, d.abbreviation, d.created_at, d.updated_at,
        f.name AS faculty_name, u.id AS university_id, u.name AS university_name`

const departmentJoins = `FROM departments d
        JOIN faculties f ON f.id = d.faculty_id
        JOIN universities u ON u.id = f.university_id`

// ListDepartments returns departments with their parents.
func (r *DirectoryRepository) ListDepartments(ctx context.Context, filter models.DepartmentFilter) ([]models.DepartmentDetail, int, error) {
	conditions := []string{"1=1"}
	args := []interface{}{}
	if filter.FacultyID != "" {
		conditions = append(conditions, fmt.Sprintf("d.faculty_id = $%d", len(args)+1))
		args = append(args, filter.FacultyID)
	}
	if filter.UniversityID != "" {
		conditions = append(conditions, fmt.Sprintf("f.university_id = $%d", len(args)+1))
		args = append(args, filter.UniversityID)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(d.name) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	base := departmentJoins + " WHERE " + strings.Join(conditions, " AND ")
	limit, offset := paginate(filter.Page, filter.PageSize)

	query := fmt.Sprintf("SELECT %s %s ORDER BY d.name ASC LIMIT %d OFFSET %d", departmentDetailColumns, base, limit, offset)
	var departments []models.DepartmentDetail
	if err := r.db.SelectContext(ctx, &departments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list departments: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count departments: %w", err)
	}
	return departments, total, nil
}

// FindDepartmentByID fetches a department with its faculty and university.
func (r *DirectoryRepository) FindDepartmentByID(ctx context.Context, id string) (*models.DepartmentDetail, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE d.id = $1", departmentDetailColumns, departmentJoins)
	var detail models.DepartmentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// FindDepartmentByName fetches a department by name within a faculty.
func (r *DirectoryRepository) FindDepartmentByName(ctx context.Context, facultyID, name string) (*models.Department, error) {
	const query = `SELECT id, faculty_id, name, abbreviation, created_at, updated_at FROM departments WHERE faculty_id = $1 AND name = $2`
	var department models.Department
	if err := r.db.GetContext(ctx, &department, query, facultyID, name); err != nil {
		return nil, err
	}
	return &department, nil
}

// CreateDepartment inserts a department.
func (r *DirectoryRepository) CreateDepartment(ctx context.Context, department *models.Department) error {
	if department.ID == "" {
		department.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if department.CreatedAt.IsZero() {
		department.CreatedAt = now
	}
	department.UpdatedAt = now
	const query = `INSERT INTO departments (id, faculty_id, name, abbreviation, created_at, updated_at)
        VALUES (:id, :faculty_id, :name, :abbreviation, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, department); err != nil {
		return mapUniqueViolation(err, "create department")
	}
	return nil
}

// UpdateDepartment modifies an existing department.
func (r *DirectoryRepository) UpdateDepartment(ctx context.Context, department *models.Department) error {
	department.UpdatedAt = time.Now().UTC()
	const query = `UPDATE departments SET name = :name, abbreviation = :abbreviation, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, department); err != nil {
		return mapUniqueViolation(err, "update department")
	}
	return nil
}

// ListProgramDurations returns the program durations of a department.
func (r *DirectoryRepository) ListProgramDurations(ctx context.Context, departmentID string) ([]models.ProgramDuration, error) {
	const query = `SELECT id, department_id, degree_type, duration_years, created_at FROM program_durations WHERE department_id = $1 ORDER BY degree_type ASC`
	var durations []models.ProgramDuration
	if err := r.db.SelectContext(ctx, &durations, query, departmentID); err != nil {
		return nil, fmt.Errorf("list program durations: %w", err)
	}
	return durations, nil
}

// ProgramDurationExists reports whether a degree type is already recorded for a department.
func (r *DirectoryRepository) ProgramDurationExists(ctx context.Context, departmentID, degreeType string) (bool, error) {
	const query = `SELECT 1 FROM program_durations WHERE department_id = $1 AND degree_type = $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, departmentID, degreeType); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check program duration: %w", err)
	}
	return true, nil
}

// CreateProgramDuration inserts a program duration.
func (r *DirectoryRepository) CreateProgramDuration(ctx context.Context, duration *models.ProgramDuration) error {
	if duration.ID == "" {
		duration.ID = uuid.NewString()
	}
	if duration.CreatedAt.IsZero() {
		duration.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO program_durations (id, department_id, degree_type, duration_years, created_at)
        VALUES (:id, :department_id, :degree_type, :duration_years, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, duration); err != nil {
		return mapUniqueViolation(err, "create program duration")
	}
	return nil
}

// mapUniqueViolation turns a Postgres unique violation into a CONFLICT error.
func mapUniqueViolation(err error, op string) error {
	if database.IsUniqueViolation(err, "") {
		return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "record already exists")
	}
	return fmt.Errorf("%s: %w", op, err)
}
