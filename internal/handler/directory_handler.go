package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academic-directory-api/internal/models"
	"github.com/noah-isme/academic-directory-api/internal/service"
	appErrors "github.com/noah-isme/academic-directory-api/pkg/errors"
	"github.com/noah-isme/academic-directory-api/pkg/response"
)

// DirectoryHandler exposes university, faculty, department and program duration endpoints.
type DirectoryHandler struct {
	directory *service.DirectoryService
}

// NewDirectoryHandler constructs DirectoryHandler.
func NewDirectoryHandler(directory *service.DirectoryService) *DirectoryHandler {
	return &DirectoryHandler{directory: directory}
}

// ListUniversities godoc
// @Summary List universities
// @Tags Directory
// @Produce json
// @Param search query string false "Search by name or abbreviation"
// @Param state query string false "Filter by state"
// @Param ownership query string false "FEDERAL, STATE or PRIVATE"
// @Param active query bool false "Filter by active state"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /directory/universities [get]
func (h *DirectoryHandler) ListUniversities(c *gin.Context) {
	filter := models.UniversityFilter{
		Search:    strings.TrimSpace(c.Query("search")),
		State:     c.Query("state"),
		Ownership: models.Ownership(strings.ToUpper(c.Query("ownership"))),
		Active:    boolQuery(c, "active"),
		SortBy:    c.Query("sort"),
		SortOrder: c.Query("order"),
	}
	filter.Page, filter.PageSize = pageQuery(c)

	page, hit, err := h.directory.ListUniversities(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondCached(c, hit, page.Items, page.Pagination)
}

// GetUniversity godoc
// @Summary Get university
// @Tags Directory
// @Produce json
// @Param id path string true "University ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /directory/universities/{id} [get]
func (h *DirectoryHandler) GetUniversity(c *gin.Context) {
	university, err := h.directory.GetUniversity(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, university, nil)
}

// CreateUniversity godoc
// @Summary Create university
// @Tags Directory
// @Accept json
// @Produce json
// @Param payload body service.UniversityRequest true "University payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /directory/universities [post]
func (h *DirectoryHandler) CreateUniversity(c *gin.Context) {
	var req service.UniversityRequest
	if !bindJSON(c, &req, "invalid payload") {
		return
	}
	university, err := h.directory.CreateUniversity(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, university)
}

// UpdateUniversity godoc
// @Summary Update university
// @Tags Directory
// @Accept json
// @Produce json
// @Param id path string true "University ID"
// @Param payload body service.UniversityRequest true "University payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /directory/universities/{id} [put]
func (h *DirectoryHandler) UpdateUniversity(c *gin.Context) {
	var req service.UniversityRequest
	if !bindJSON(c, &req, "invalid payload") {
		return
	}
	university, err := h.directory.UpdateUniversity(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, university, nil)
}

// ListFaculties godoc
// @Summary List faculties
// @Tags Directory
// @Produce json
// @Param university_id query string false "Filter by university"
// @Param search query string false "Search by name"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /directory/faculties [get]
func (h *DirectoryHandler) ListFaculties(c *gin.Context) {
	filter := models.FacultyFilter{
		UniversityID: c.Query("university_id"),
		Search:       strings.TrimSpace(c.Query("search")),
	}
	filter.Page, filter.PageSize = pageQuery(c)

	page, hit, err := h.directory.ListFaculties(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondCached(c, hit, page.Items, page.Pagination)
}

// CreateFaculty godoc
// @Summary Create faculty
// @Tags Directory
// @Accept json
// @Produce json
// @Param payload body service.FacultyRequest true "Faculty payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /directory/faculties [post]
func (h *DirectoryHandler) CreateFaculty(c *gin.Context) {
	var req service.FacultyRequest
	if !bindJSON(c, &req, "invalid payload") {
		return
	}
	faculty, err := h.directory.CreateFaculty(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, faculty)
}

// UpdateFaculty godoc
// @Summary Rename faculty
// @Tags Directory
// @Accept json
// @Produce json
// @Param id path string true "Faculty ID"
// @Param payload body service.RenameRequest true "Faculty payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /directory/faculties/{id} [put]
func (h *DirectoryHandler) UpdateFaculty(c *gin.Context) {
	var req service.RenameRequest
	if !bindJSON(c, &req, "invalid payload") {
		return
	}
	faculty, err := h.directory.UpdateFaculty(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, faculty, nil)
}

// ListDepartments godoc
// @Summary List departments
// @Tags Directory
// @Produce json
// @Param faculty_id query string false "Filter by faculty"
// @Param university_id query string false "Filter by university"
// @Param search query string false "Search by name"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /directory/departments [get]
func (h *DirectoryHandler) ListDepartments(c *gin.Context) {
	filter := models.DepartmentFilter{
		FacultyID:    c.Query("faculty_id"),
		UniversityID: c.Query("university_id"),
		Search:       strings.TrimSpace(c.Query("search")),
	}
	filter.Page, filter.PageSize = pageQuery(c)

	page, hit, err := h.directory.ListDepartments(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondCached(c, hit, page.Items, page.Pagination)
}

// CreateDepartment godoc
// @Summary Create department
// @Tags Directory
// @Accept json
// @Produce json
// @Param payload body service.DepartmentRequest true "Department payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /directory/departments [post]
func (h *DirectoryHandler) CreateDepartment(c *gin.Context) {
	var req service.DepartmentRequest
	if !bindJSON(c, &req, "invalid payload") {
		return
	}
	department, err := h.directory.CreateDepartment(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, department)
}

// UpdateDepartment godoc
// @Summary Rename department
// @Tags Directory
// @Accept json
// @Produce json
// @Param id path string true "Department ID"
// @Param payload body service.RenameRequest true "Department payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /directory/departments/{id} [put]
func (h *DirectoryHandler) UpdateDepartment(c *gin.Context) {
	var req service.RenameRequest
	if !bindJSON(c, &req, "invalid payload") {
		return
	}
	department, err := h.directory.UpdateDepartment(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, department, nil)
}

// ListProgramDurations godoc
// @Summary List program durations of a department
// @Tags Directory
// @Produce json
// @Param department_id query string true "Department ID"
// @Success 200 {object} response.Envelope
// @Router /directory/program-durations [get]
func (h *DirectoryHandler) ListProgramDurations(c *gin.Context) {
	departmentID := c.Query("department_id")
	if departmentID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "department_id required"))
		return
	}
	durations, hit, err := h.directory.ListProgramDurations(c.Request.Context(), departmentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondCached(c, hit, durations, nil)
}

// CreateProgramDuration godoc
// @Summary Record a program duration
// @Tags Directory
// @Accept json
// @Produce json
// @Param payload body service.ProgramDurationRequest true "Program duration payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /directory/program-durations [post]
func (h *DirectoryHandler) CreateProgramDuration(c *gin.Context) {
	var req service.ProgramDurationRequest
	if !bindJSON(c, &req, "invalid payload") {
		return
	}
	duration, err := h.directory.CreateProgramDuration(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, duration)
}
