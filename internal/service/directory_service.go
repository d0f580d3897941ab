package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/academic-directory-api/internal/models"
	appErrors "github.com/noah-isme/academic-directory-api/pkg/errors"
)

// DirectoryCachePattern matches every cached directory listing.
const DirectoryCachePattern = "directory:*"

type directoryRepository interface {
	ListUniversities(ctx context.Context, filter models.UniversityFilter) ([]models.University, int, error)
	FindUniversityByID(ctx context.Context, id string) (*models.University, error)
	CreateUniversity(ctx context.Context, university *models.University) error
	UpdateUniversity(ctx context.Context, university *models.University) error
	ListFaculties(ctx context.Context, filter models.FacultyFilter) ([]models.Faculty, int, error)
	FindFacultyByID(ctx context.Context, id string) (*models.Faculty, error)
	CreateFaculty(ctx context.Context, faculty *models.Faculty) error
	UpdateFaculty(ctx context.Context, faculty *models.Faculty) error
	ListDepartments(ctx context.Context, filter models.DepartmentFilter) ([]models.DepartmentDetail, int, error)
	FindDepartmentByID(ctx context.Context, id string) (*models.DepartmentDetail, error)
	CreateDepartment(ctx context.Context, department *models.Department) error
	UpdateDepartment(ctx context.Context, department *models.Department) error
	ListProgramDurations(ctx context.Context, departmentID string) ([]models.ProgramDuration, error)
	ProgramDurationExists(ctx context.Context, departmentID, degreeType string) (bool, error)
	CreateProgramDuration(ctx context.Context, duration *models.ProgramDuration) error
}

// UniversityRequest is the create and update payload for universities.
type UniversityRequest struct {
	Name         string           `json:"name" validate:"required,max=200"`
	Abbreviation string           `json:"abbreviation" validate:"required,max=20"`
	State        string           `json:"state" validate:"required,max=60"`
	Ownership    models.Ownership `json:"ownership" validate:"required,oneof=FEDERAL STATE PRIVATE"`
	Website      string           `json:"website" validate:"omitempty,url,max=255"`
	IsActive     *bool            `json:"is_active"`
}

// FacultyRequest creates a faculty.
type FacultyRequest struct {
	UniversityID string `json:"university_id" validate:"required,uuid"`
	Name         string `json:"name" validate:"required,max=200"`
	Abbreviation string `json:"abbreviation" validate:"max=20"`
}

// DepartmentRequest creates a department.
type DepartmentRequest struct {
	FacultyID    string `json:"faculty_id" validate:"required,uuid"`
	Name         string `json:"name" validate:"required,max=200"`
	Abbreviation string `json:"abbreviation" validate:"max=20"`
}

// RenameRequest updates the name of a faculty or department.
type RenameRequest struct {
	Name         string `json:"name" validate:"required,max=200"`
	Abbreviation string `json:"abbreviation" validate:"max=20"`
}

// ProgramDurationRequest records a degree length for a department.
type ProgramDurationRequest struct {
	DepartmentID  string `json:"department_id" validate:"required,uuid"`
	DegreeType    string `json:"degree_type" validate:"required,max=20"`
	DurationYears int    `json:"duration_years" validate:"required,min=1,max=7"`
}

// UniversityPage is a cached page of universities.
type UniversityPage struct {
	Items      []models.University `json:"items"`
	Pagination *models.Pagination  `json:"pagination"`
}

// FacultyPage is a cached page of faculties.
type FacultyPage struct {
	Items      []models.Faculty   `json:"items"`
	Pagination *models.Pagination `json:"pagination"`
}

// DepartmentPage is a cached page of departments.
type DepartmentPage struct {
	Items      []models.DepartmentDetail `json:"items"`
	Pagination *models.Pagination        `json:"pagination"`
}

// DirectoryService manages the reference hierarchy of universities, faculties,
// departments and program durations. Listings are cached until the next write.
type DirectoryService struct {
	repo      directoryRepository
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewDirectoryService constructs the service. cache may be nil.
func NewDirectoryService(repo directoryRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *DirectoryService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DirectoryService{repo: repo, cache: cache, validator: validate, logger: logger}
}

// ListUniversities returns a page of universities and whether it was served from cache.
func (s *DirectoryService) ListUniversities(ctx context.Context, filter models.UniversityFilter) (*UniversityPage, bool, error) {
	values := url.Values{}
	values.Set("search", strings.ToLower(filter.Search))
	values.Set("state", strings.ToLower(filter.State))
	values.Set("ownership", string(filter.Ownership))
	values.Set("active", boolKey(filter.Active))
	values.Set("sort", filter.SortBy+":"+filter.SortOrder)
	setPageKey(values, filter.Page, filter.PageSize)

	var page UniversityPage
	hit, err := s.cache.Remember(ctx, "directory:universities:"+values.Encode(), &page, func() (interface{}, error) {
		items, total, err := s.repo.ListUniversities(ctx, filter)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list universities")
		}
		page = UniversityPage{Items: items, Pagination: models.NewPagination(filter.Page, filter.PageSize, total)}
		return page, nil
	})
	if err != nil {
		return nil, false, err
	}
	return &page, hit, nil
}

// GetUniversity returns one university.
func (s *DirectoryService) GetUniversity(ctx context.Context, id string) (*models.University, error) {
	university, err := s.repo.FindUniversityByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "university not found", "failed to load university")
	}
	return university, nil
}

// CreateUniversity registers a university.
func (s *DirectoryService) CreateUniversity(ctx context.Context, req UniversityRequest) (*models.University, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid university payload")
	}
	university := &models.University{
		Name:         strings.TrimSpace(req.Name),
		Abbreviation: strings.ToUpper(strings.TrimSpace(req.Abbreviation)),
		State:        strings.TrimSpace(req.State),
		Ownership:    req.Ownership,
		Website:      strings.TrimSpace(req.Website),
		IsActive:     req.IsActive == nil || *req.IsActive,
	}
	if err := s.repo.CreateUniversity(ctx, university); err != nil {
		return nil, passAppError(err, "failed to create university")
	}
	s.invalidate(ctx)
	return university, nil
}

// UpdateUniversity replaces the mutable fields of a university.
func (s *DirectoryService) UpdateUniversity(ctx context.Context, id string, req UniversityRequest) (*models.University, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid university payload")
	}
	university, err := s.GetUniversity(ctx, id)
	if err != nil {
		return nil, err
	}
	university.Name = strings.TrimSpace(req.Name)
	university.Abbreviation = strings.ToUpper(strings.TrimSpace(req.Abbreviation))
	university.State = strings.TrimSpace(req.State)
	university.Ownership = req.Ownership
	university.Website = strings.TrimSpace(req.Website)
	if req.IsActive != nil {
		university.IsActive = *req.IsActive
	}
	if err := s.repo.UpdateUniversity(ctx, university); err != nil {
		return nil, passAppError(err, "failed to update university")
	}
	s.invalidate(ctx)
	return university, nil
}

// ListFaculties returns a page of faculties.
func (s *DirectoryService) ListFaculties(ctx context.Context, filter models.FacultyFilter) (*FacultyPage, bool, error) {
	values := url.Values{}
	values.Set("university", filter.UniversityID)
	values.Set("search", strings.ToLower(filter.Search))
	setPageKey(values, filter.Page, filter.PageSize)

	var page FacultyPage
	hit, err := s.cache.Remember(ctx, "directory:faculties:"+values.Encode(), &page, func() (interface{}, error) {
		items, total, err := s.repo.ListFaculties(ctx, filter)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list faculties")
		}
		page = FacultyPage{Items: items, Pagination: models.NewPagination(filter.Page, filter.PageSize, total)}
		return page, nil
	})
	if err != nil {
		return nil, false, err
	}
	return &page, hit, nil
}

// CreateFaculty adds a faculty to an existing university.
func (s *DirectoryService) CreateFaculty(ctx context.Context, req FacultyRequest) (*models.Faculty, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid faculty payload")
	}
	if _, err := s.GetUniversity(ctx, req.UniversityID); err != nil {
		return nil, err
	}
	faculty := &models.Faculty{
		UniversityID: req.UniversityID,
		Name:         strings.TrimSpace(req.Name),
		Abbreviation: strings.ToUpper(strings.TrimSpace(req.Abbreviation)),
	}
	if err := s.repo.CreateFaculty(ctx, faculty); err != nil {
		return nil, passAppError(err, "failed to create faculty")
	}
	s.invalidate(ctx)
	return faculty, nil
}

// UpdateFaculty renames a faculty.
func (s *DirectoryService) UpdateFaculty(ctx context.Context, id string, req RenameRequest) (*models.Faculty, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid faculty payload")
	}
	faculty, err := s.repo.FindFacultyByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "faculty not found", "failed to load faculty")
	}
	faculty.Name = strings.TrimSpace(req.Name)
	faculty.Abbreviation = strings.ToUpper(strings.TrimSpace(req.Abbreviation))
	if err := s.repo.UpdateFaculty(ctx, faculty); err != nil {
		return nil, passAppError(err, "failed to update faculty")
	}
	s.invalidate(ctx)
	return faculty, nil
}

// ListDepartments returns a page of departments with their parents.
func (s *DirectoryService) ListDepartments(ctx context.Context, filter models.DepartmentFilter) (*DepartmentPage, bool, error) {
	values := url.Values{}
	values.Set("faculty", filter.FacultyID)
	values.Set("university", filter.UniversityID)
	values.Set("search", strings.ToLower(filter.Search))
	setPageKey(values, filter.Page, filter.PageSize)

	var page DepartmentPage
	hit, err := s.cache.Remember(ctx, "directory:departments:"+values.Encode(), &page, func() (interface{}, error) {
		items, total, err := s.repo.ListDepartments(ctx, filter)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list departments")
		}
		page = DepartmentPage{Items: items, Pagination: models.NewPagination(filter.Page, filter.PageSize, total)}
		return page, nil
	})
	if err != nil {
		return nil, false, err
	}
	return &page, hit, nil
}

// CreateDepartment adds a department to an existing faculty.
func (s *DirectoryService) CreateDepartment(ctx context.Context, req DepartmentRequest) (*models.Department, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid department payload")
	}
	if _, err := s.repo.FindFacultyByID(ctx, req.FacultyID); err != nil {
		return nil, notFoundOr(err, "faculty not found", "failed to load faculty")
	}
	department := &models.Department{
		FacultyID:    req.FacultyID,
		Name:         strings.TrimSpace(req.Name),
		Abbreviation: strings.ToUpper(strings.TrimSpace(req.Abbreviation)),
	}
	if err := s.repo.CreateDepartment(ctx, department); err != nil {
		return nil, passAppError(err, "failed to create department")
	}
	s.invalidate(ctx)
	return department, nil
}

// UpdateDepartment renames a department.
func (s *DirectoryService) UpdateDepartment(ctx context.Context, id string, req RenameRequest) (*models.DepartmentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid department payload")
	}
	detail, err := s.repo.FindDepartmentByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "department not found", "failed to load department")
	}
	detail.Name = strings.TrimSpace(req.Name)
	detail.Abbreviation = strings.ToUpper(strings.TrimSpace(req.Abbreviation))
	if err := s.repo.UpdateDepartment(ctx, &detail.Department); err != nil {
		return nil, passAppError(err, "failed to update department")
	}
	s.invalidate(ctx)
	return detail, nil
}

// ListProgramDurations returns the degree lengths of a department.
func (s *DirectoryService) ListProgramDurations(ctx context.Context, departmentID string) ([]models.ProgramDuration, bool, error) {
	if departmentID == "" {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "department_id is required")
	}
	var durations []models.ProgramDuration
	hit, err := s.cache.Remember(ctx, "directory:durations:"+departmentID, &durations, func() (interface{}, error) {
		items, err := s.repo.ListProgramDurations(ctx, departmentID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list program durations")
		}
		durations = items
		return durations, nil
	})
	if err != nil {
		return nil, false, err
	}
	return durations, hit, nil
}

// CreateProgramDuration records a degree length. Each degree type appears once per department.
func (s *DirectoryService) CreateProgramDuration(ctx context.Context, req ProgramDurationRequest) (*models.ProgramDuration, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid program duration payload")
	}
	if _, err := s.repo.FindDepartmentByID(ctx, req.DepartmentID); err != nil {
		return nil, notFoundOr(err, "department not found", "failed to load department")
	}
	degree := strings.ToUpper(strings.TrimSpace(req.DegreeType))
	exists, err := s.repo.ProgramDurationExists(ctx, req.DepartmentID, degree)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check program duration")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("%s already recorded for department", degree))
	}
	duration := &models.ProgramDuration{DepartmentID: req.DepartmentID, DegreeType: degree, DurationYears: req.DurationYears}
	if err := s.repo.CreateProgramDuration(ctx, duration); err != nil {
		return nil, passAppError(err, "failed to create program duration")
	}
	s.invalidate(ctx)
	return duration, nil
}

func (s *DirectoryService) invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, DirectoryCachePattern); err != nil {
		s.logger.Warn("directory cache not invalidated", zap.Error(err))
	}
}

func setPageKey(values url.Values, page, size int) {
	p := models.NewPagination(page, size, 0)
	values.Set("page", strconv.Itoa(p.Page))
	values.Set("size", strconv.Itoa(p.PageSize))
}

func boolKey(v *bool) string {
	if v == nil {
		return "any"
	}
	return strconv.FormatBool(*v)
}

// notFoundOr maps sql.ErrNoRows to NOT_FOUND and anything else to INTERNAL_ERROR.
func notFoundOr(err error, notFound, internal string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, internal)
}

// passAppError keeps typed repository errors such as CONFLICT and wraps the rest.
func passAppError(err error, internal string) error {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, internal)
}
