package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/academic-directory-api/internal/models"
	appErrors "github.com/noah-isme/academic-directory-api/pkg/errors"
	"github.com/noah-isme/academic-directory-api/pkg/phone"
)

const (
	deptCSC = "0b5a3f57-2a47-4c38-9d8e-0d6f0b7f6c11"
	deptEEE = "6f1c2e0a-8e4b-4d3a-a1f2-9c3d5e7b8a22"
)

type fakeRepresentativeRepo struct {
	byID     map[string]*models.Representative
	updates  int
	creates  int
	createFn func(rep *models.Representative) error
	seq      int
}

func newFakeRepresentativeRepo() *fakeRepresentativeRepo {
	return &fakeRepresentativeRepo{byID: map[string]*models.Representative{}}
}

func (f *fakeRepresentativeRepo) FindByPhone(ctx context.Context, normalized string) (*models.Representative, error) {
	for _, rep := range f.byID {
		if rep.PhoneNumber == normalized {
			clone := *rep
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeRepresentativeRepo) FindByID(ctx context.Context, id string) (*models.RepresentativeDetail, error) {
	rep, ok := f.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &models.RepresentativeDetail{Representative: *rep, DepartmentName: "Computer Science"}, nil
}

func (f *fakeRepresentativeRepo) List(ctx context.Context, filter models.RepresentativeFilter) ([]models.RepresentativeDetail, int, error) {
	out := make([]models.RepresentativeDetail, 0, len(f.byID))
	for _, rep := range f.byID {
		out = append(out, models.RepresentativeDetail{Representative: *rep})
	}
	return out, len(out), nil
}

func (f *fakeRepresentativeRepo) Create(ctx context.Context, rep *models.Representative) error {
	if f.createFn != nil {
		if err := f.createFn(rep); err != nil {
			return err
		}
	}
	f.seq++
	f.creates++
	rep.ID = "rep-" + string(rune('0'+f.seq))
	clone := *rep
	f.byID[rep.ID] = &clone
	return nil
}

func (f *fakeRepresentativeRepo) Update(ctx context.Context, rep *models.Representative) error {
	f.updates++
	clone := *rep
	f.byID[rep.ID] = &clone
	return nil
}

func (f *fakeRepresentativeRepo) SetVerification(ctx context.Context, id string, status models.VerificationStatus, actorID *string, at *time.Time) error {
	rep := f.byID[id]
	rep.VerificationStatus = status
	rep.VerifiedBy = actorID
	rep.VerifiedAt = at
	return nil
}

func (f *fakeRepresentativeRepo) Deactivate(ctx context.Context, id string) error {
	f.byID[id].IsActive = false
	return nil
}

type fakeDepartments map[string]models.DepartmentDetail

func (f fakeDepartments) FindDepartmentByID(ctx context.Context, id string) (*models.DepartmentDetail, error) {
	d, ok := f[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &d, nil
}

func testDepartments() fakeDepartments {
	return fakeDepartments{
		deptCSC: {Department: models.Department{ID: deptCSC, FacultyID: "fac-sci", Name: "Computer Science"}, UniversityID: "uni-lag"},
		deptEEE: {Department: models.Department{ID: deptEEE, FacultyID: "fac-eng", Name: "Electrical Engineering"}, UniversityID: "uni-lag"},
	}
}

func newTestRepresentativeService(repo *fakeRepresentativeRepo) *RepresentativeService {
	svc := NewRepresentativeService(repo, testDepartments(), nil, phone.NewNormalizer("NG"), validator.New(), zap.NewNop())
	svc.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

func strPtr(v string) *string { return &v }
func intPtr(v int) *int       { return &v }
func rolePtr(r models.RepresentativeRole) *models.RepresentativeRole {
	return &r
}

func classRepSubmission(phoneNumber, name string) models.RepresentativeSubmission {
	return models.RepresentativeSubmission{
		FullName:     strPtr(name),
		PhoneNumber:  phoneNumber,
		Role:         rolePtr(models.RoleClassRep),
		DepartmentID: strPtr(deptCSC),
		EntryYear:    intPtr(2021),
	}
}

func TestDeduplicateOrCreateScenario(t *testing.T) {
	repo := newFakeRepresentativeRepo()
	svc := newTestRepresentativeService(repo)
	ctx := context.Background()

	rep, isNew, changes, err := svc.DeduplicateOrCreate(ctx, classRepSubmission("08011112222", "Ada Obi"))
	require.NoError(t, err)
	assert.True(t, isNew)
	assert.Empty(t, changes)
	assert.Equal(t, "+2348011112222", rep.PhoneNumber)
	assert.Equal(t, "fac-sci", rep.FacultyID)
	assert.Equal(t, "uni-lag", rep.UniversityID)
	assert.Equal(t, models.VerificationUnverified, rep.VerificationStatus)
	assert.True(t, rep.IsActive)

	again, isNew, changes, err := svc.DeduplicateOrCreate(ctx, classRepSubmission("08011112222", "Ada Obiageli"))
	require.NoError(t, err)
	assert.False(t, isNew)
	assert.Equal(t, rep.ID, again.ID)
	assert.Equal(t, models.ChangeSet{"full_name": "Ada Obiageli"}, changes)
	assert.Len(t, repo.byID, 1)
}

func TestDeduplicateOrCreateIsIdempotent(t *testing.T) {
	repo := newFakeRepresentativeRepo()
	svc := newTestRepresentativeService(repo)
	ctx := context.Background()

	payload := classRepSubmission("+234 801 234 5678", "Ada Obi")
	payload.Email = strPtr("Ada@Example.com")
	payload.WhatsAppNumber = strPtr("08012345678")

	_, _, _, err := svc.DeduplicateOrCreate(ctx, payload)
	require.NoError(t, err)
	_, isNew, changes, err := svc.DeduplicateOrCreate(ctx, payload)
	require.NoError(t, err)

	assert.False(t, isNew)
	assert.Empty(t, changes)
	assert.Len(t, repo.byID, 1)
	assert.Equal(t, 0, repo.updates)
}

func TestDeduplicateAcrossPhoneFormats(t *testing.T) {
	repo := newFakeRepresentativeRepo()
	svc := newTestRepresentativeService(repo)
	ctx := context.Background()

	for _, raw := range []string{"08012345678", "2348012345678", "+2348012345678", "0801-234-5678"} {
		_, _, _, err := svc.DeduplicateOrCreate(ctx, classRepSubmission(raw, "Ada Obi"))
		require.NoError(t, err, raw)
	}
	assert.Len(t, repo.byID, 1)
	assert.Equal(t, 1, repo.creates)
}

func TestMergeSkipsNilFields(t *testing.T) {
	repo := newFakeRepresentativeRepo()
	svc := newTestRepresentativeService(repo)
	existing := &models.Representative{
		ID:                 "rep-x",
		FullName:           "Ada Obi",
		Nickname:           strPtr("Ada"),
		Email:              strPtr("ada@example.com"),
		PhoneNumber:        "+2348012345678",
		Role:               models.RoleClassRep,
		DepartmentID:       deptCSC,
		EntryYear:          intPtr(2021),
		VerificationStatus: models.VerificationVerified,
		IsActive:           true,
	}
	repo.byID[existing.ID] = existing

	merged, changes, err := svc.Merge(context.Background(), existing, models.RepresentativeSubmission{PhoneNumber: "08012345678"})
	require.NoError(t, err)
	assert.Empty(t, changes)
	assert.Equal(t, "Ada Obi", merged.FullName)
	require.NotNil(t, merged.Nickname)
	assert.Equal(t, "Ada", *merged.Nickname)
	require.NotNil(t, merged.Email)
	assert.Equal(t, "ada@example.com", *merged.Email)
	require.NotNil(t, merged.EntryYear)
	assert.Equal(t, 2021, *merged.EntryYear)
	assert.Equal(t, models.VerificationVerified, merged.VerificationStatus)
	assert.Equal(t, 0, repo.updates)
}

func TestMergeResetsVerificationOnChange(t *testing.T) {
	repo := newFakeRepresentativeRepo()
	svc := newTestRepresentativeService(repo)
	verifiedAt := time.Now()
	existing := &models.Representative{
		ID:                 "rep-v",
		FullName:           "Ada Obi",
		PhoneNumber:        "+2348012345678",
		Role:               models.RoleClassRep,
		DepartmentID:       deptCSC,
		EntryYear:          intPtr(2021),
		VerificationStatus: models.VerificationVerified,
		VerifiedAt:         &verifiedAt,
		VerifiedBy:         strPtr("admin-1"),
		IsActive:           true,
	}
	repo.byID[existing.ID] = existing

	merged, changes, err := svc.Merge(context.Background(), existing, models.RepresentativeSubmission{
		PhoneNumber: "08012345678",
		EntryYear:   intPtr(2022),
	})
	require.NoError(t, err)
	assert.Equal(t, models.ChangeSet{
		"entry_year":          2022,
		"verification_status": models.VerificationUnverified,
	}, changes)
	assert.Equal(t, models.VerificationUnverified, merged.VerificationStatus)
	assert.Nil(t, merged.VerifiedAt)
	assert.Nil(t, merged.VerifiedBy)
	assert.Equal(t, 1, repo.updates)
}

func TestMergeLeavesDisputedStatus(t *testing.T) {
	repo := newFakeRepresentativeRepo()
	svc := newTestRepresentativeService(repo)
	existing := &models.Representative{
		ID:                 "rep-d",
		FullName:           "Ada Obi",
		PhoneNumber:        "+2348012345678",
		Role:               models.RoleClassRep,
		DepartmentID:       deptCSC,
		VerificationStatus: models.VerificationDisputed,
		IsActive:           true,
	}
	repo.byID[existing.ID] = existing

	merged, changes, err := svc.Merge(context.Background(), existing, models.RepresentativeSubmission{PhoneNumber: "08012345678", FullName: strPtr("Ada N. Obi")})
	require.NoError(t, err)
	assert.Equal(t, models.ChangeSet{"full_name": "Ada N. Obi"}, changes)
	assert.Equal(t, models.VerificationDisputed, merged.VerificationStatus)
}

func TestMergeDepartmentChangeResolvesParents(t *testing.T) {
	repo := newFakeRepresentativeRepo()
	svc := newTestRepresentativeService(repo)
	existing := &models.Representative{
		ID:                 "rep-m",
		FullName:           "Ada Obi",
		PhoneNumber:        "+2348012345678",
		Role:               models.RoleClassRep,
		DepartmentID:       deptCSC,
		FacultyID:          "fac-sci",
		UniversityID:       "uni-lag",
		VerificationStatus: models.VerificationUnverified,
		IsActive:           true,
	}
	repo.byID[existing.ID] = existing

	merged, changes, err := svc.Merge(context.Background(), existing, models.RepresentativeSubmission{PhoneNumber: "08012345678", DepartmentID: strPtr(deptEEE)})
	require.NoError(t, err)
	assert.Equal(t, deptEEE, changes["department_id"])
	assert.Equal(t, "fac-eng", merged.FacultyID)
}

func TestMergeRejectsBlankName(t *testing.T) {
	repo := newFakeRepresentativeRepo()
	svc := newTestRepresentativeService(repo)
	ctx := context.Background()

	rep, _, _, err := svc.DeduplicateOrCreate(ctx, classRepSubmission("08011112222", "Ada Obi"))
	require.NoError(t, err)
	_, err = svc.Verify(ctx, rep.ID, "admin-1")
	require.NoError(t, err)

	_, _, _, err = svc.DeduplicateOrCreate(ctx, models.RepresentativeSubmission{PhoneNumber: "08011112222", FullName: strPtr("   ")})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Equal(t, "required", appErr.Details["full_name"])

	stored := repo.byID[rep.ID]
	assert.Equal(t, "Ada Obi", stored.FullName)
	assert.Equal(t, models.VerificationVerified, stored.VerificationStatus)
	assert.Equal(t, 0, repo.updates)
}

func TestMergeFailureLeavesInputUntouched(t *testing.T) {
	repo := newFakeRepresentativeRepo()
	svc := newTestRepresentativeService(repo)
	existing := &models.Representative{
		ID:                 "rep-f",
		FullName:           "Ada Obi",
		PhoneNumber:        "+2348012345678",
		Role:               models.RoleClassRep,
		DepartmentID:       deptCSC,
		EntryYear:          intPtr(2021),
		VerificationStatus: models.VerificationVerified,
		IsActive:           true,
	}
	repo.byID[existing.ID] = existing
	snapshot := *existing

	_, _, err := svc.Merge(context.Background(), existing, models.RepresentativeSubmission{
		PhoneNumber:    "08012345678",
		FullName:       strPtr("Changed Name"),
		WhatsAppNumber: strPtr("not a phone"),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidPhone.Code, appErrors.FromError(err).Code)
	assert.Equal(t, snapshot, *existing)

	_, _, err = svc.Merge(context.Background(), existing, models.RepresentativeSubmission{
		PhoneNumber:  "08012345678",
		FullName:     strPtr("Changed Name"),
		DepartmentID: strPtr("9a9a9a9a-1111-4222-8333-444455556666"),
	})
	require.Error(t, err)
	assert.Equal(t, snapshot, *existing)
	assert.Equal(t, 0, repo.updates)
}

func TestMergeDoesNotMutateCaller(t *testing.T) {
	repo := newFakeRepresentativeRepo()
	svc := newTestRepresentativeService(repo)
	existing := &models.Representative{
		ID:           "rep-c",
		FullName:     "Ada Obi",
		PhoneNumber:  "+2348012345678",
		Role:         models.RoleClassRep,
		DepartmentID: deptCSC,
		IsActive:     true,
	}
	repo.byID[existing.ID] = existing

	merged, _, err := svc.Merge(context.Background(), existing, models.RepresentativeSubmission{PhoneNumber: "08012345678", FullName: strPtr("Ada N. Obi")})
	require.NoError(t, err)
	assert.Equal(t, "Ada N. Obi", merged.FullName)
	assert.Equal(t, "Ada Obi", existing.FullName)
	assert.Equal(t, "Ada N. Obi", repo.byID[existing.ID].FullName)
}

func TestDeduplicateOrCreateInvalidPhone(t *testing.T) {
	repo := newFakeRepresentativeRepo()
	svc := newTestRepresentativeService(repo)

	found, err := svc.FindExisting(context.Background(), "not a phone")
	require.NoError(t, err)
	assert.Nil(t, found)

	_, _, _, err = svc.DeduplicateOrCreate(context.Background(), classRepSubmission("not a phone", "Ada Obi"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidPhone.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.byID)
}

func TestDeduplicateOrCreateRequiresRoleYear(t *testing.T) {
	svc := newTestRepresentativeService(newFakeRepresentativeRepo())

	payload := models.RepresentativeSubmission{
		FullName:     strPtr("Chinedu Eze"),
		PhoneNumber:  "08099998888",
		Role:         rolePtr(models.RoleFacultyPresident),
		DepartmentID: strPtr(deptCSC),
	}
	_, _, _, err := svc.DeduplicateOrCreate(context.Background(), payload)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tenure_start_year")

	payload.TenureStartYear = intPtr(2030)
	_, _, _, err = svc.DeduplicateOrCreate(context.Background(), payload)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	payload.TenureStartYear = intPtr(2023)
	rep, isNew, _, err := svc.DeduplicateOrCreate(context.Background(), payload)
	require.NoError(t, err)
	assert.True(t, isNew)
	assert.Nil(t, rep.EntryYear)
}

func TestDeduplicateOrCreateUnknownDepartment(t *testing.T) {
	svc := newTestRepresentativeService(newFakeRepresentativeRepo())

	payload := classRepSubmission("08012345678", "Ada Obi")
	payload.DepartmentID = strPtr("9a9a9a9a-1111-4222-8333-444455556666")
	_, _, _, err := svc.DeduplicateOrCreate(context.Background(), payload)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestDeduplicateOrCreateConflictPassesThrough(t *testing.T) {
	repo := newFakeRepresentativeRepo()
	repo.createFn = func(rep *models.Representative) error {
		return appErrors.Clone(appErrors.ErrConflict, "phone number already registered")
	}
	svc := newTestRepresentativeService(repo)

	_, _, _, err := svc.DeduplicateOrCreate(context.Background(), classRepSubmission("08012345678", "Ada Obi"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestRepresentativeVerifyAndDispute(t *testing.T) {
	repo := newFakeRepresentativeRepo()
	svc := newTestRepresentativeService(repo)
	repo.byID["rep-1"] = &models.Representative{ID: "rep-1", FullName: "Ada", PhoneNumber: "+2348012345678", Role: models.RoleClassRep, VerificationStatus: models.VerificationUnverified, IsActive: true}

	detail, err := svc.Verify(context.Background(), "rep-1", "admin-1")
	require.NoError(t, err)
	assert.Equal(t, models.VerificationVerified, detail.VerificationStatus)
	require.NotNil(t, detail.VerifiedBy)
	assert.Equal(t, "admin-1", *detail.VerifiedBy)

	detail, err = svc.Dispute(context.Background(), "rep-1")
	require.NoError(t, err)
	assert.Equal(t, models.VerificationDisputed, detail.VerificationStatus)
	assert.Nil(t, repo.byID["rep-1"].VerifiedBy)

	_, err = svc.Verify(context.Background(), "missing", "admin-1")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestRepresentativeDeactivate(t *testing.T) {
	repo := newFakeRepresentativeRepo()
	svc := newTestRepresentativeService(repo)
	repo.byID["rep-1"] = &models.Representative{ID: "rep-1", FullName: "Ada", IsActive: true}

	require.NoError(t, svc.Deactivate(context.Background(), "rep-1"))
	assert.False(t, repo.byID["rep-1"].IsActive)

	_, err := svc.Verify(context.Background(), "rep-1", "admin-1")
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestRepresentativeUpdateKeepsPhone(t *testing.T) {
	repo := newFakeRepresentativeRepo()
	svc := newTestRepresentativeService(repo)
	repo.byID["rep-1"] = &models.Representative{ID: "rep-1", FullName: "Ada", PhoneNumber: "+2348012345678", Role: models.RoleClassRep, DepartmentID: deptCSC, VerificationStatus: models.VerificationVerified, IsActive: true}

	rep, changes, err := svc.Update(context.Background(), "rep-1", models.RepresentativeUpdate{Role: rolePtr(models.RoleDepartmentPresident), TenureStartYear: intPtr(2023)})
	require.NoError(t, err)
	assert.Equal(t, "+2348012345678", rep.PhoneNumber)
	assert.Equal(t, models.RoleDepartmentPresident, changes["role"])
	assert.Equal(t, 2023, changes["tenure_start_year"])
	assert.Equal(t, models.VerificationUnverified, changes["verification_status"])
}
