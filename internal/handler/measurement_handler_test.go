package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academic-directory-api/internal/middleware"
	"github.com/noah-isme/academic-directory-api/internal/models"
	appErrors "github.com/noah-isme/academic-directory-api/pkg/errors"
)

type measurementServiceMock struct {
	userID string
	filter models.MeasurementFilter
	trash  bool
}

func (m *measurementServiceMock) List(_ context.Context, userID string, filter models.MeasurementFilter) ([]models.Measurement, *models.Pagination, error) {
	m.userID, m.filter = userID, filter
	return []models.Measurement{}, models.NewPagination(1, 20, 0), nil
}

func (m *measurementServiceMock) Trash(_ context.Context, userID string, filter models.MeasurementFilter) ([]models.Measurement, *models.Pagination, error) {
	m.trash = true
	return m.List(context.Background(), userID, filter)
}

func (m *measurementServiceMock) Get(_ context.Context, userID, id string) (*models.Measurement, error) {
	if userID != "owner" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "measurement not found")
	}
	return &models.Measurement{ID: id, UserID: userID}, nil
}

func (m *measurementServiceMock) Create(_ context.Context, userID string, in models.MeasurementInput) (*models.Measurement, error) {
	return &models.Measurement{ID: "m1", UserID: userID, Name: in.Name}, nil
}

func (m *measurementServiceMock) Update(_ context.Context, userID, id string, in models.MeasurementInput) (*models.Measurement, error) {
	return &models.Measurement{ID: id, UserID: userID, Name: in.Name}, nil
}

func (m *measurementServiceMock) Delete(context.Context, string, string) error { return nil }

func (m *measurementServiceMock) Restore(_ context.Context, userID, id string) (*models.Measurement, error) {
	return &models.Measurement{ID: id, UserID: userID}, nil
}

func asUser(c *gin.Context, id string) {
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: id, Role: models.RoleMember})
}

func TestMeasurementHandlerRequiresUser(t *testing.T) {
	h := NewMeasurementHandler(&measurementServiceMock{})
	c, w := newTestContext(http.MethodGet, "/measurements", nil)
	h.List(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMeasurementHandlerListScopesToCaller(t *testing.T) {
	svc := &measurementServiceMock{}
	h := NewMeasurementHandler(svc)

	c, w := newTestContext(http.MethodGet, "/measurements?search=%20suit%20&unit=CM&sort=name", nil)
	asUser(c, "owner")
	h.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "owner", svc.userID)
	assert.Equal(t, "suit", svc.filter.Search)
	assert.Equal(t, models.UnitCentimetre, svc.filter.Unit)
	assert.Equal(t, "name", svc.filter.SortBy)

	c, _ = newTestContext(http.MethodGet, "/measurements/trash", nil)
	asUser(c, "owner")
	h.Trash(c)
	assert.True(t, svc.trash)
}

func TestMeasurementHandlerCRUD(t *testing.T) {
	h := NewMeasurementHandler(&measurementServiceMock{})

	c, w := newTestContext(http.MethodPost, "/measurements", []byte(`{"name":"Agbada","chest":101}`))
	asUser(c, "owner")
	h.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"name":"Agbada"`)

	c, w = newTestContext(http.MethodGet, "/measurements/m1", nil)
	c.Params = gin.Params{{Key: "id", Value: "m1"}}
	asUser(c, "intruder")
	h.Get(c)
	assert.Equal(t, http.StatusNotFound, w.Code)

	c, w = newTestContext(http.MethodDelete, "/measurements/m1", nil)
	c.Params = gin.Params{{Key: "id", Value: "m1"}}
	asUser(c, "owner")
	h.Delete(c)
	c.Writer.WriteHeaderNow()
	assert.Equal(t, http.StatusNoContent, w.Code)

	c, w = newTestContext(http.MethodPost, "/measurements/m1/restore", nil)
	c.Params = gin.Params{{Key: "id", Value: "m1"}}
	asUser(c, "owner")
	h.Restore(c)
	assert.Equal(t, http.StatusOK, w.Code)
}
