package handler

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academic-directory-api/internal/middleware"
	"github.com/noah-isme/academic-directory-api/internal/models"
	"github.com/noah-isme/academic-directory-api/internal/service"
	appErrors "github.com/noah-isme/academic-directory-api/pkg/errors"
)

type exportJobServiceMock struct {
	actor    string
	request  service.ExportJobRequest
	download *service.ExportDownload
}

func (m *exportJobServiceMock) CreateJob(_ context.Context, req service.ExportJobRequest, actorID string) (*service.ExportJobStatus, error) {
	m.actor, m.request = actorID, req
	return &service.ExportJobStatus{ID: "job-1", Format: req.Format, Status: models.ExportStatusQueued}, nil
}

func (m *exportJobServiceMock) GetStatus(_ context.Context, id string) (*service.ExportJobStatus, error) {
	if id != "job-1" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
	}
	return &service.ExportJobStatus{ID: id, Status: models.ExportStatusFinished, Progress: 100}, nil
}

func (m *exportJobServiceMock) ResolveDownload(_ context.Context, token string) (*service.ExportDownload, error) {
	if m.download == nil || token != "good" {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid download token")
	}
	return m.download, nil
}

func TestExportJobHandlerCreate(t *testing.T) {
	svc := &exportJobServiceMock{}
	h := NewExportJobHandler(svc, nil)

	c, w := newTestContext(http.MethodPost, "/directory/exports", []byte(`{"format":"pdf","group_by":"role"}`))
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin", Role: models.RoleAdmin})
	h.Create(c)

	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "admin", svc.actor)
	assert.Equal(t, models.GroupByRole, svc.request.GroupBy)
}

func TestExportJobHandlerStatus(t *testing.T) {
	h := NewExportJobHandler(&exportJobServiceMock{}, nil)

	c, w := newTestContext(http.MethodGet, "/directory/exports/job-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "job-1"}}
	h.Status(c)
	require.Equal(t, http.StatusOK, w.Code)

	c, w = newTestContext(http.MethodGet, "/directory/exports/job-2", nil)
	c.Params = gin.Params{{Key: "id", Value: "job-2"}}
	h.Status(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestExportJobHandlerDownload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reps.csv")
	require.NoError(t, os.WriteFile(path, []byte("Group,Name\n"), 0o600))
	file, err := os.Open(path)
	require.NoError(t, err)

	svc := &exportJobServiceMock{download: &service.ExportDownload{File: file, Filename: "reps.csv", ContentType: "text/csv"}}
	h := NewExportJobHandler(svc, nil)

	c, w := newTestContext(http.MethodGet, "/directory/exports/download/good", nil)
	c.Params = gin.Params{{Key: "token", Value: "good"}}
	h.Download(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Group,Name\n", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "reps.csv")

	c, w = newTestContext(http.MethodGet, "/directory/exports/download/bad", nil)
	c.Params = gin.Params{{Key: "token", Value: "bad"}}
	h.Download(c)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
