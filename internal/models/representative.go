package models

import "time"

// RepresentativeRole is the leadership position a student holds.
type RepresentativeRole string

const (
	RoleClassRep            RepresentativeRole = "CLASS_REP"
	RoleDepartmentPresident RepresentativeRole = "DEPARTMENT_PRESIDENT"
	RoleFacultyPresident    RepresentativeRole = "FACULTY_PRESIDENT"
)

// Valid reports whether r is a known role.
func (r RepresentativeRole) Valid() bool {
	switch r {
	case RoleClassRep, RoleDepartmentPresident, RoleFacultyPresident:
		return true
	}
	return false
}

// IsPresident is true for roles that carry a tenure start year.
func (r RepresentativeRole) IsPresident() bool {
	return r == RoleDepartmentPresident || r == RoleFacultyPresident
}

// Label returns a human readable role name.
func (r RepresentativeRole) Label() string {
	switch r {
	case RoleClassRep:
		return "Class Representative"
	case RoleDepartmentPresident:
		return "Department President"
	case RoleFacultyPresident:
		return "Faculty President"
	}
	return string(r)
}

// VerificationStatus tracks administrative trust in submitted data.
type VerificationStatus string

const (
	VerificationUnverified VerificationStatus = "UNVERIFIED"
	VerificationVerified   VerificationStatus = "VERIFIED"
	VerificationDisputed   VerificationStatus = "DISPUTED"
)

// Valid reports whether s is a known status.
func (s VerificationStatus) Valid() bool {
	switch s {
	case VerificationUnverified, VerificationVerified, VerificationDisputed:
		return true
	}
	return false
}

// Representative is a student leader. PhoneNumber is stored normalized and is unique.
// FacultyID and UniversityID duplicate the department's parents for filtering.
type Representative struct {
	ID                 string             `db:"id" json:"id"`
	FullName           string             `db:"full_name" json:"full_name"`
	Nickname           *string            `db:"nickname" json:"nickname,omitempty"`
	PhoneNumber        string             `db:"phone_number" json:"phone_number"`
	WhatsAppNumber     *string            `db:"whatsapp_number" json:"whatsapp_number,omitempty"`
	Email              *string            `db:"email" json:"email,omitempty"`
	Role               RepresentativeRole `db:"role" json:"role"`
	DepartmentID       string             `db:"department_id" json:"department_id"`
	FacultyID          string             `db:"faculty_id" json:"faculty_id"`
	UniversityID       string             `db:"university_id" json:"university_id"`
	EntryYear          *int               `db:"entry_year" json:"entry_year,omitempty"`
	TenureStartYear    *int               `db:"tenure_start_year" json:"tenure_start_year,omitempty"`
	VerificationStatus VerificationStatus `db:"verification_status" json:"verification_status"`
	VerifiedAt         *time.Time         `db:"verified_at" json:"verified_at,omitempty"`
	VerifiedBy         *string            `db:"verified_by" json:"verified_by,omitempty"`
	IsActive           bool               `db:"is_active" json:"is_active"`
	Notes              *string            `db:"notes" json:"notes,omitempty"`
	CreatedAt          time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time          `db:"updated_at" json:"updated_at"`
}

// DisplayName prefers the nickname when one is set.
func (r *Representative) DisplayName() string {
	if r.Nickname != nil && *r.Nickname != "" {
		return *r.Nickname
	}
	return r.FullName
}

// RepresentativeDetail joins the names of the department, faculty and university.
type RepresentativeDetail struct {
	Representative
	DepartmentName string `db:"department_name" json:"department_name"`
	FacultyName    string `db:"faculty_name" json:"faculty_name"`
	UniversityName string `db:"university_name" json:"university_name"`
}

// RepresentativeFilter captures list parameters for representatives.
type RepresentativeFilter struct {
	UniversityID       string
	FacultyID          string
	DepartmentID       string
	Role               RepresentativeRole
	VerificationStatus VerificationStatus
	Active             *bool
	Search             string
	Page               int
	PageSize           int
	SortBy             string
	SortOrder          string
}

// ChangeSet maps a field name to the value it was changed to.
type ChangeSet map[string]interface{}

// RepresentativeSubmission is one incoming representative record. Nil fields carry no
// information: on a merge they never overwrite stored values.
type RepresentativeSubmission struct {
	FullName        *string             `json:"full_name" validate:"omitempty,min=2,max=150"`
	Nickname        *string             `json:"nickname" validate:"omitempty,max=60"`
	PhoneNumber     string              `json:"phone_number" validate:"required,max=32"`
	WhatsAppNumber  *string             `json:"whatsapp_number" validate:"omitempty,max=32"`
	Email           *string             `json:"email" validate:"omitempty,email,max=255"`
	Role            *RepresentativeRole `json:"role" validate:"omitempty,oneof=CLASS_REP DEPARTMENT_PRESIDENT FACULTY_PRESIDENT"`
	DepartmentID    *string             `json:"department_id" validate:"omitempty,uuid"`
	EntryYear       *int                `json:"entry_year" validate:"omitempty,min=1990"`
	TenureStartYear *int                `json:"tenure_start_year" validate:"omitempty,min=2000"`
	Notes           *string             `json:"notes" validate:"omitempty,max=2000"`
}

// RepresentativeUpdate is the staff edit payload. The phone number is the identity key and
// cannot be changed through it.
type RepresentativeUpdate struct {
	FullName        *string             `json:"full_name" validate:"omitempty,min=2,max=150"`
	Nickname        *string             `json:"nickname" validate:"omitempty,max=60"`
	WhatsAppNumber  *string             `json:"whatsapp_number" validate:"omitempty,max=32"`
	Email           *string             `json:"email" validate:"omitempty,email,max=255"`
	Role            *RepresentativeRole `json:"role" validate:"omitempty,oneof=CLASS_REP DEPARTMENT_PRESIDENT FACULTY_PRESIDENT"`
	DepartmentID    *string             `json:"department_id" validate:"omitempty,uuid"`
	EntryYear       *int                `json:"entry_year" validate:"omitempty,min=1990"`
	TenureStartYear *int                `json:"tenure_start_year" validate:"omitempty,min=2000"`
	Notes           *string             `json:"notes" validate:"omitempty,max=2000"`
}

// Submission converts an update into a submission for the stored phone number.
func (u RepresentativeUpdate) Submission(phone string) RepresentativeSubmission {
	return RepresentativeSubmission{
		FullName:        u.FullName,
		Nickname:        u.Nickname,
		PhoneNumber:     phone,
		WhatsAppNumber:  u.WhatsAppNumber,
		Email:           u.Email,
		Role:            u.Role,
		DepartmentID:    u.DepartmentID,
		EntryYear:       u.EntryYear,
		TenureStartYear: u.TenureStartYear,
		Notes:           u.Notes,
	}
}

// SubmissionBatch is the public submission payload.
type SubmissionBatch struct {
	Representatives []RepresentativeSubmission `json:"representatives" validate:"required,min=1"`
}

// SubmissionResult reports what happened to one accepted submission.
type SubmissionResult struct {
	Index   int       `json:"index"`
	ID      string    `json:"id"`
	IsNew   bool      `json:"is_new"`
	Changes ChangeSet `json:"changes"`
}

// SubmissionFailure reports a rejected submission.
type SubmissionFailure struct {
	Index   int    `json:"index"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SubmissionSummary aggregates a batch.
type SubmissionSummary struct {
	Created   int                 `json:"created"`
	Updated   int                 `json:"updated"`
	Unchanged int                 `json:"unchanged"`
	Errors    int                 `json:"errors"`
	Results   []SubmissionResult  `json:"results"`
	Failures  []SubmissionFailure `json:"failures"`
}
