package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academic-directory-api/internal/models"
)

var measurementRowColumns = []string{"id", "user_id", "name", "unit", "chest", "waist", "hips", "shoulder", "sleeve_length", "inseam", "neck", "height",
	"notes", "is_deleted", "deleted_at", "created_at", "updated_at"}

func TestMeasurementRepositoryListHidesDeleted(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewMeasurementRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(measurementRowColumns).
		AddRow("m1", "user-1", "Wedding suit", "cm", 101.5, 86.0, nil, nil, nil, nil, nil, nil, "", false, nil, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM measurements WHERE user_id = $1 AND is_deleted = false AND LOWER(name) LIKE $2 ORDER BY name ASC LIMIT 20 OFFSET 0")).
		WithArgs("user-1", "%suit%").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM measurements WHERE user_id = $1 AND is_deleted = false AND LOWER(name) LIKE $2")).
		WithArgs("user-1", "%suit%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	items, total, err := repo.List(context.Background(), models.MeasurementFilter{UserID: "user-1", Search: "Suit", SortBy: "name", SortOrder: "asc"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.NotNil(t, items[0].Chest)
	assert.InDelta(t, 101.5, *items[0].Chest, 0.001)
	assert.Nil(t, items[0].Hips)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMeasurementRepositoryUnscopedTrash(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewMeasurementRepository(db).Unscoped()

	mock.ExpectQuery(regexp.QuoteMeta("FROM measurements WHERE user_id = $1 AND is_deleted = true ORDER BY deleted_at DESC")).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows(measurementRowColumns))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM measurements WHERE user_id = $1 AND is_deleted = true")).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	items, total, err := repo.List(context.Background(), models.MeasurementFilter{UserID: "user-1", OnlyDeleted: true, SortBy: "deleted_at"})
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Zero(t, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMeasurementRepositoryFindByIDScopes(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewMeasurementRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM measurements WHERE id = $1 AND user_id = $2 AND is_deleted = false")).
		WithArgs("m1", "user-2").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "user-2", "m1")
	assert.ErrorIs(t, err, sql.ErrNoRows)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM measurements WHERE id = $1 AND user_id = $2")).
		WithArgs("m1", "user-1").
		WillReturnRows(sqlmock.NewRows(measurementRowColumns).
			AddRow("m1", "user-1", "Old", "in", nil, nil, nil, nil, nil, nil, nil, nil, "", true, now, now, now))

	m, err := repo.Unscoped().FindByID(context.Background(), "user-1", "m1")
	require.NoError(t, err)
	assert.True(t, m.IsDeleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMeasurementRepositorySoftDeleteAndRestore(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewMeasurementRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE measurements SET is_deleted = true, deleted_at = $3, updated_at = $3 WHERE id = $1 AND user_id = $2 AND is_deleted = false")).
		WithArgs("m1", "user-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE measurements SET is_deleted = true")).
		WithArgs("m1", "user-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE measurements SET is_deleted = false, deleted_at = NULL")).
		WithArgs("m1", "user-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SoftDelete(context.Background(), "user-1", "m1"))
	assert.ErrorIs(t, repo.SoftDelete(context.Background(), "user-1", "m1"), sql.ErrNoRows)
	require.NoError(t, repo.Restore(context.Background(), "user-1", "m1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMeasurementRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewMeasurementRepository(db)

	mock.ExpectExec("INSERT INTO measurements").WillReturnResult(sqlmock.NewResult(1, 1))

	m := &models.Measurement{UserID: "user-1", Name: "Agbada", Unit: models.UnitInch}
	require.NoError(t, repo.Create(context.Background(), m))
	assert.NotEmpty(t, m.ID)
	assert.False(t, m.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}
