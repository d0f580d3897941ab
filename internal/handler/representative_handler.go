package handler

import (
	"bytes"
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academic-directory-api/internal/middleware"
	"github.com/noah-isme/academic-directory-api/internal/models"
	"github.com/noah-isme/academic-directory-api/internal/service"
	"github.com/noah-isme/academic-directory-api/pkg/response"
)

type representativeService interface {
	List(ctx context.Context, filter models.RepresentativeFilter) ([]models.RepresentativeDetail, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.RepresentativeDetail, error)
	Update(ctx context.Context, id string, in models.RepresentativeUpdate) (*models.Representative, models.ChangeSet, error)
	Verify(ctx context.Context, id, actorID string) (*models.RepresentativeDetail, error)
	Dispute(ctx context.Context, id string) (*models.RepresentativeDetail, error)
	Deactivate(ctx context.Context, id string) error
	History(ctx context.Context, id string, limit int) ([]models.AuditLog, error)
}

type submissionService interface {
	Submit(ctx context.Context, batch models.SubmissionBatch) (*models.SubmissionSummary, error)
}

type exportRenderer interface {
	Render(ctx context.Context, format models.ExportFormat, params models.ExportJobParams) (*service.RenderedExport, error)
}

// RepresentativeHandler exposes representative submission, moderation and export endpoints.
type RepresentativeHandler struct {
	reps        representativeService
	submissions submissionService
	exporter    exportRenderer
}

// NewRepresentativeHandler constructs RepresentativeHandler.
func NewRepresentativeHandler(reps representativeService, submissions submissionService, exporter exportRenderer) *RepresentativeHandler {
	return &RepresentativeHandler{reps: reps, submissions: submissions, exporter: exporter}
}

// Submit godoc
// @Summary Submit representatives
// @Description Each entry is matched on its normalised phone number and either merged into the existing record or created
// @Tags Representatives
// @Accept json
// @Produce json
// @Param payload body models.SubmissionBatch true "Submission batch"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 429 {object} response.Envelope
// @Router /directory/submissions [post]
func (h *RepresentativeHandler) Submit(c *gin.Context) {
	var batch models.SubmissionBatch
	if !bindJSON(c, &batch, "invalid submission payload") {
		return
	}
	summary, err := h.submissions.Submit(c.Request.Context(), batch)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// List godoc
// @Summary List representatives
// @Description Anonymous callers only see active representatives
// @Tags Representatives
// @Produce json
// @Param university_id query string false "Filter by university"
// @Param faculty_id query string false "Filter by faculty"
// @Param department_id query string false "Filter by department"
// @Param role query string false "CLASS_REP, DEPARTMENT_PRESIDENT or FACULTY_PRESIDENT"
// @Param verification_status query string false "UNVERIFIED, VERIFIED or DISPUTED"
// @Param search query string false "Search by name or phone"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /directory/representatives [get]
func (h *RepresentativeHandler) List(c *gin.Context) {
	filter := representativeFilter(c)
	filter.Search = strings.TrimSpace(c.Query("search"))
	filter.Page, filter.PageSize = pageQuery(c)
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	filter.Active = boolQuery(c, "active")
	if !isStaff(claimsFromContext(c)) || filter.Active == nil {
		active := true
		filter.Active = &active
	}

	reps, pagination, err := h.reps.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reps, pagination)
}

// Get godoc
// @Summary Get representative
// @Tags Representatives
// @Produce json
// @Param id path string true "Representative ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /directory/representatives/{id} [get]
func (h *RepresentativeHandler) Get(c *gin.Context) {
	rep, err := h.reps.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rep, nil)
}

// Update godoc
// @Summary Update representative
// @Description Supplied fields are merged onto the stored record; the response lists what changed
// @Tags Representatives
// @Accept json
// @Produce json
// @Param id path string true "Representative ID"
// @Param payload body models.RepresentativeUpdate true "Representative payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /directory/representatives/{id} [put]
func (h *RepresentativeHandler) Update(c *gin.Context) {
	var req models.RepresentativeUpdate
	if !bindJSON(c, &req, "invalid payload") {
		return
	}
	rep, changes, err := h.reps.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetAuditValues(c, changes)
	response.JSON(c, http.StatusOK, gin.H{"representative": rep, "changes": changes}, nil)
}

// Verify godoc
// @Summary Verify representative
// @Tags Representatives
// @Produce json
// @Param id path string true "Representative ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /directory/representatives/{id}/verify [post]
func (h *RepresentativeHandler) Verify(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	rep, err := h.reps.Verify(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetAuditValues(c, gin.H{"verification_status": rep.VerificationStatus})
	response.JSON(c, http.StatusOK, rep, nil)
}

// Dispute godoc
// @Summary Dispute representative
// @Tags Representatives
// @Produce json
// @Param id path string true "Representative ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /directory/representatives/{id}/dispute [post]
func (h *RepresentativeHandler) Dispute(c *gin.Context) {
	rep, err := h.reps.Dispute(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetAuditValues(c, gin.H{"verification_status": rep.VerificationStatus})
	response.JSON(c, http.StatusOK, rep, nil)
}

// Deactivate godoc
// @Summary Deactivate representative
// @Tags Representatives
// @Param id path string true "Representative ID"
// @Success 204
// @Security BearerAuth
// @Router /directory/representatives/{id}/deactivate [post]
func (h *RepresentativeHandler) Deactivate(c *gin.Context) {
	if err := h.reps.Deactivate(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// History godoc
// @Summary Representative audit trail
// @Tags Representatives
// @Produce json
// @Param id path string true "Representative ID"
// @Param limit query int false "Maximum entries"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /directory/representatives/{id}/history [get]
func (h *RepresentativeHandler) History(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	logs, err := h.reps.History(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, logs, nil)
}

// Export godoc
// @Summary Download representatives
// @Description Renders the filtered directory as CSV or as a PDF sectioned by department, faculty or role
// @Tags Representatives
// @Produce application/pdf
// @Produce text/csv
// @Param format query string true "pdf or csv"
// @Param group_by query string false "department, faculty or role"
// @Param title query string false "Document title"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /directory/representatives/export [get]
func (h *RepresentativeHandler) Export(c *gin.Context) {
	filter := representativeFilter(c)
	params := models.ExportJobParams{
		UniversityID:       filter.UniversityID,
		FacultyID:          filter.FacultyID,
		DepartmentID:       filter.DepartmentID,
		Role:               filter.Role,
		VerificationStatus: filter.VerificationStatus,
		GroupBy:            models.ExportGrouping(strings.ToLower(c.DefaultQuery("group_by", string(models.GroupByDepartment)))),
		Title:              c.Query("title"),
	}
	format := models.ExportFormat(strings.ToLower(c.Query("format")))

	rendered, err := h.exporter.Render(c.Request.Context(), format, params)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetAuditValues(c, gin.H{"format": format, "group_by": params.GroupBy, "rows": rendered.Rows})
	_ = response.Attachment(c, rendered.Filename, rendered.ContentType, bytes.NewReader(rendered.Data))
}

func representativeFilter(c *gin.Context) models.RepresentativeFilter {
	return models.RepresentativeFilter{
		UniversityID:       c.Query("university_id"),
		FacultyID:          c.Query("faculty_id"),
		DepartmentID:       c.Query("department_id"),
		Role:               models.RepresentativeRole(strings.ToUpper(c.Query("role"))),
		VerificationStatus: models.VerificationStatus(strings.ToUpper(c.Query("verification_status"))),
	}
}

func isStaff(claims *models.JWTClaims) bool {
	return claims != nil && (claims.Role == models.RoleAdmin || claims.Role == models.RoleModerator)
}
