package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academic-directory-api/internal/models"
	"github.com/noah-isme/academic-directory-api/pkg/response"
)

type measurementService interface {
	List(ctx context.Context, userID string, filter models.MeasurementFilter) ([]models.Measurement, *models.Pagination, error)
	Trash(ctx context.Context, userID string, filter models.MeasurementFilter) ([]models.Measurement, *models.Pagination, error)
	Get(ctx context.Context, userID, id string) (*models.Measurement, error)
	Create(ctx context.Context, userID string, in models.MeasurementInput) (*models.Measurement, error)
	Update(ctx context.Context, userID, id string, in models.MeasurementInput) (*models.Measurement, error)
	Delete(ctx context.Context, userID, id string) error
	Restore(ctx context.Context, userID, id string) (*models.Measurement, error)
}

// MeasurementHandler exposes the caller's body measurements.
type MeasurementHandler struct {
	measurements measurementService
}

// NewMeasurementHandler constructs MeasurementHandler.
func NewMeasurementHandler(measurements measurementService) *MeasurementHandler {
	return &MeasurementHandler{measurements: measurements}
}

// List godoc
// @Summary List measurements
// @Tags Measurements
// @Produce json
// @Param search query string false "Search by name"
// @Param unit query string false "cm or in"
// @Param sort query string false "name, created_at or updated_at"
// @Param order query string false "asc or desc"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /measurements [get]
func (h *MeasurementHandler) List(c *gin.Context) {
	h.list(c, h.measurements.List)
}

// Trash godoc
// @Summary List deleted measurements
// @Tags Measurements
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /measurements/trash [get]
func (h *MeasurementHandler) Trash(c *gin.Context) {
	h.list(c, h.measurements.Trash)
}

func (h *MeasurementHandler) list(c *gin.Context, load func(context.Context, string, models.MeasurementFilter) ([]models.Measurement, *models.Pagination, error)) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	filter := models.MeasurementFilter{
		Search:    strings.TrimSpace(c.Query("search")),
		Unit:      models.MeasurementUnit(strings.ToLower(c.Query("unit"))),
		SortBy:    c.Query("sort"),
		SortOrder: c.Query("order"),
	}
	filter.Page, filter.PageSize = pageQuery(c)

	items, pagination, err := load(c.Request.Context(), claims.UserID, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Get measurement
// @Tags Measurements
// @Produce json
// @Param id path string true "Measurement ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /measurements/{id} [get]
func (h *MeasurementHandler) Get(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	item, err := h.measurements.Get(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Create godoc
// @Summary Create measurement
// @Tags Measurements
// @Accept json
// @Produce json
// @Param payload body models.MeasurementInput true "Measurement payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /measurements [post]
func (h *MeasurementHandler) Create(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req models.MeasurementInput
	if !bindJSON(c, &req, "invalid payload") {
		return
	}
	item, err := h.measurements.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// Update godoc
// @Summary Update measurement
// @Tags Measurements
// @Accept json
// @Produce json
// @Param id path string true "Measurement ID"
// @Param payload body models.MeasurementInput true "Measurement payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /measurements/{id} [put]
func (h *MeasurementHandler) Update(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req models.MeasurementInput
	if !bindJSON(c, &req, "invalid payload") {
		return
	}
	item, err := h.measurements.Update(c.Request.Context(), claims.UserID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Delete godoc
// @Summary Move measurement to trash
// @Tags Measurements
// @Param id path string true "Measurement ID"
// @Success 204
// @Security BearerAuth
// @Router /measurements/{id} [delete]
func (h *MeasurementHandler) Delete(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	if err := h.measurements.Delete(c.Request.Context(), claims.UserID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Restore godoc
// @Summary Restore measurement from trash
// @Tags Measurements
// @Produce json
// @Param id path string true "Measurement ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /measurements/{id}/restore [post]
func (h *MeasurementHandler) Restore(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	item, err := h.measurements.Restore(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}
