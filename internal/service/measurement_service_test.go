package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academic-directory-api/internal/models"
	appErrors "github.com/noah-isme/academic-directory-api/pkg/errors"
)

// memoryMeasurements mimics the scoped and unscoped repository views over one table.
type memoryMeasurements struct {
	rows     map[string]*models.Measurement
	unscoped bool
	seq      int
}

func newMeasurementStore() (*memoryMeasurements, *memoryMeasurements) {
	rows := map[string]*models.Measurement{}
	return &memoryMeasurements{rows: rows}, &memoryMeasurements{rows: rows, unscoped: true}
}

func (m *memoryMeasurements) visible(row *models.Measurement, userID string) bool {
	if row.UserID != userID {
		return false
	}
	return m.unscoped || !row.IsDeleted
}

func (m *memoryMeasurements) List(_ context.Context, filter models.MeasurementFilter) ([]models.Measurement, int, error) {
	var out []models.Measurement
	for _, row := range m.rows {
		if !m.visible(row, filter.UserID) {
			continue
		}
		if m.unscoped && filter.OnlyDeleted && !row.IsDeleted {
			continue
		}
		out = append(out, *row)
	}
	return out, len(out), nil
}

func (m *memoryMeasurements) FindByID(_ context.Context, userID, id string) (*models.Measurement, error) {
	row, ok := m.rows[id]
	if !ok || !m.visible(row, userID) {
		return nil, sql.ErrNoRows
	}
	clone := *row
	return &clone, nil
}

func (m *memoryMeasurements) Create(_ context.Context, row *models.Measurement) error {
	m.seq++
	row.ID = "m-" + string(rune('0'+m.seq))
	clone := *row
	m.rows[row.ID] = &clone
	return nil
}

func (m *memoryMeasurements) Update(_ context.Context, row *models.Measurement) error {
	existing, ok := m.rows[row.ID]
	if !ok || existing.UserID != row.UserID || existing.IsDeleted {
		return sql.ErrNoRows
	}
	clone := *row
	m.rows[row.ID] = &clone
	return nil
}

func (m *memoryMeasurements) SoftDelete(_ context.Context, userID, id string) error {
	row, ok := m.rows[id]
	if !ok || row.UserID != userID || row.IsDeleted {
		return sql.ErrNoRows
	}
	now := time.Now()
	row.IsDeleted = true
	row.DeletedAt = &now
	return nil
}

func (m *memoryMeasurements) Restore(_ context.Context, userID, id string) error {
	row, ok := m.rows[id]
	if !ok || row.UserID != userID || !row.IsDeleted {
		return sql.ErrNoRows
	}
	row.IsDeleted = false
	row.DeletedAt = nil
	return nil
}

func floatPtr(v float64) *float64 { return &v }

func TestMeasurementServiceLifecycle(t *testing.T) {
	scoped, unscoped := newMeasurementStore()
	svc := NewMeasurementService(scoped, unscoped, nil, nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, "user-1", models.MeasurementInput{Name: " Agbada ", Chest: floatPtr(102.5)})
	require.NoError(t, err)
	assert.Equal(t, "Agbada", created.Name)
	assert.Equal(t, models.UnitCentimetre, created.Unit)

	require.NoError(t, svc.Delete(ctx, "user-1", created.ID))

	items, _, err := svc.List(ctx, "user-1", models.MeasurementFilter{})
	require.NoError(t, err)
	assert.Empty(t, items)

	_, err = svc.Get(ctx, "user-1", created.ID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	trash, _, err := svc.Trash(ctx, "user-1", models.MeasurementFilter{})
	require.NoError(t, err)
	require.Len(t, trash, 1)
	assert.True(t, trash[0].IsDeleted)

	restored, err := svc.Restore(ctx, "user-1", created.ID)
	require.NoError(t, err)
	assert.False(t, restored.IsDeleted)

	items, _, err = svc.List(ctx, "user-1", models.MeasurementFilter{})
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestMeasurementServiceHidesOtherUsers(t *testing.T) {
	scoped, unscoped := newMeasurementStore()
	svc := NewMeasurementService(scoped, unscoped, nil, nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, "owner", models.MeasurementInput{Name: "Suit", Unit: models.UnitInch})
	require.NoError(t, err)

	_, err = svc.Get(ctx, "intruder", created.ID)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	_, err = svc.Update(ctx, "intruder", created.ID, models.MeasurementInput{Name: "Mine now"})
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	err = svc.Delete(ctx, "intruder", created.ID)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	owned, err := svc.Get(ctx, "owner", created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Suit", owned.Name)
}

func TestMeasurementServiceRejectsInvalidValues(t *testing.T) {
	scoped, unscoped := newMeasurementStore()
	svc := NewMeasurementService(scoped, unscoped, nil, nil)

	_, err := svc.Create(context.Background(), "user-1", models.MeasurementInput{Name: "Kaftan", Waist: floatPtr(-3)})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Create(context.Background(), "user-1", models.MeasurementInput{Name: "Kaftan", Unit: "mm"})
	require.Error(t, err)
}

func TestMeasurementServiceRestoreRequiresTrashedRow(t *testing.T) {
	scoped, unscoped := newMeasurementStore()
	svc := NewMeasurementService(scoped, unscoped, nil, nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, "user-1", models.MeasurementInput{Name: "Shirt"})
	require.NoError(t, err)

	_, err = svc.Restore(ctx, "user-1", created.ID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	require.NoError(t, svc.Delete(ctx, "user-1", created.ID))
	err = svc.Delete(ctx, "user-1", created.ID)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
