package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/academic-directory-api/internal/middleware"
	"github.com/noah-isme/academic-directory-api/internal/service"
	"github.com/noah-isme/academic-directory-api/pkg/response"
)

type exportJobService interface {
	CreateJob(ctx context.Context, req service.ExportJobRequest, actorID string) (*service.ExportJobStatus, error)
	GetStatus(ctx context.Context, id string) (*service.ExportJobStatus, error)
	ResolveDownload(ctx context.Context, token string) (*service.ExportDownload, error)
}

// ExportJobHandler exposes asynchronous export endpoints.
type ExportJobHandler struct {
	jobs   exportJobService
	logger *zap.Logger
}

// NewExportJobHandler constructs ExportJobHandler.
func NewExportJobHandler(jobs exportJobService, logger *zap.Logger) *ExportJobHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportJobHandler{jobs: jobs, logger: logger}
}

// Create godoc
// @Summary Queue a representative export
// @Tags Exports
// @Accept json
// @Produce json
// @Param payload body service.ExportJobRequest true "Export request"
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /directory/exports [post]
func (h *ExportJobHandler) Create(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req service.ExportJobRequest
	if !bindJSON(c, &req, "invalid export payload") {
		return
	}
	status, err := h.jobs.CreateJob(c.Request.Context(), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetAuditValues(c, gin.H{"job_id": status.ID, "format": status.Format})
	response.JSON(c, http.StatusAccepted, status, nil)
}

// Status godoc
// @Summary Export job status
// @Tags Exports
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /directory/exports/{id} [get]
func (h *ExportJobHandler) Status(c *gin.Context) {
	status, err := h.jobs.GetStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}

// Download godoc
// @Summary Download a finished export
// @Tags Exports
// @Produce application/pdf
// @Produce text/csv
// @Param token path string true "Signed token"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /directory/exports/download/{token} [get]
func (h *ExportJobHandler) Download(c *gin.Context) {
	download, err := h.jobs.ResolveDownload(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close() //nolint:errcheck

	if err := response.Attachment(c, download.Filename, download.ContentType, download.File); err != nil {
		h.logger.Warn("export download interrupted", zap.String("file", download.Filename), zap.Error(err))
	}
}
