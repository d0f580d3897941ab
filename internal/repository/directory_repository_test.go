package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academic-directory-api/internal/models"
	appErrors "github.com/noah-isme/academic-directory-api/pkg/errors"
)

func TestDirectoryRepositoryListUniversities(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDirectoryRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "name", "abbreviation", "state", "ownership", "website", "is_active", "created_at", "updated_at"}).
		AddRow("u1", "University of Lagos", "UNILAG", "Lagos", string(models.OwnershipFederal), "https://unilag.edu.ng", true, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, abbreviation, state, ownership, website, is_active, created_at, updated_at FROM universities WHERE 1=1 AND (LOWER(name) LIKE $1 OR LOWER(abbreviation) LIKE $1) AND ownership = $2 ORDER BY name ASC LIMIT 20 OFFSET 0")).
		WithArgs("%lagos%", models.OwnershipFederal).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM universities WHERE 1=1 AND (LOWER(name) LIKE $1 OR LOWER(abbreviation) LIKE $1) AND ownership = $2")).
		WithArgs("%lagos%", models.OwnershipFederal).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	universities, total, err := repo.ListUniversities(context.Background(), models.UniversityFilter{Search: "Lagos", Ownership: models.OwnershipFederal})
	require.NoError(t, err)
	require.Len(t, universities, 1)
	assert.Equal(t, "UNILAG", universities[0].Abbreviation)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDirectoryRepositoryFindDepartmentByID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDirectoryRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "faculty_id", "name", "abbreviation", "created_at", "updated_at", "faculty_name", "university_id", "university_name"}).
		AddRow("d1", "f1", "Computer Science", "CSC", now, now, "Science", "u1", "University of Lagos")
	mock.ExpectQuery("SELECT d.id, d.faculty_id, d.name").
		WithArgs("d1").
		WillReturnRows(rows)

	detail, err := repo.FindDepartmentByID(context.Background(), "d1")
	require.NoError(t, err)
	assert.Equal(t, "f1", detail.FacultyID)
	assert.Equal(t, "u1", detail.UniversityID)
	assert.Equal(t, "Science", detail.FacultyName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDirectoryRepositoryFindDepartmentByIDNotFound(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDirectoryRepository(db)

	mock.ExpectQuery("SELECT d.id, d.faculty_id, d.name").WithArgs("missing").WillReturnError(sql.ErrNoRows)

	_, err := repo.FindDepartmentByID(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDirectoryRepositoryCreateUniversityConflict(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDirectoryRepository(db)

	mock.ExpectExec("INSERT INTO universities").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "universities_name_key"})

	err := repo.CreateUniversity(context.Background(), &models.University{Name: "University of Lagos", Abbreviation: "UNILAG"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDirectoryRepositoryProgramDurationExists(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDirectoryRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM program_durations WHERE department_id = $1 AND degree_type = $2 LIMIT 1")).
		WithArgs("d1", "BSC").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM program_durations WHERE department_id = $1 AND degree_type = $2 LIMIT 1")).
		WithArgs("d1", "MBBS").
		WillReturnError(sql.ErrNoRows)

	exists, err := repo.ProgramDurationExists(context.Background(), "d1", "BSC")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ProgramDurationExists(context.Background(), "d1", "MBBS")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}
