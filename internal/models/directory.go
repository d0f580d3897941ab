package models

import "time"

// Ownership classifies who funds a university.
type Ownership string

const (
	OwnershipFederal Ownership = "FEDERAL"
	OwnershipState   Ownership = "STATE"
	OwnershipPrivate Ownership = "PRIVATE"
)

// University is a degree-awarding institution in the directory.
type University struct {
	ID           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Abbreviation string    `db:"abbreviation" json:"abbreviation"`
	State        string    `db:"state" json:"state"`
	Ownership    Ownership `db:"ownership" json:"ownership"`
	Website      string    `db:"website" json:"website"`
	IsActive     bool      `db:"is_active" json:"is_active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// UniversityFilter captures list parameters for universities.
type UniversityFilter struct {
	Search    string
	State     string
	Ownership Ownership
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// Faculty groups departments within a university.
type Faculty struct {
	ID           string    `db:"id" json:"id"`
	UniversityID string    `db:"university_id" json:"university_id"`
	Name         string    `db:"name" json:"name"`
	Abbreviation string    `db:"abbreviation" json:"abbreviation"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// FacultyFilter captures list parameters for faculties.
type FacultyFilter struct {
	UniversityID string
	Search       string
	Page         int
	PageSize     int
}

// Department is the unit a representative belongs to.
type Department struct {
	ID           string    `db:"id" json:"id"`
	FacultyID    string    `db:"faculty_id" json:"faculty_id"`
	Name         string    `db:"name" json:"name"`
	Abbreviation string    `db:"abbreviation" json:"abbreviation"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// DepartmentDetail adds the parent faculty and university to a department.
type DepartmentDetail struct {
	Department
	FacultyName    string `db:"faculty_name" json:"faculty_name"`
	UniversityID   string `db:"university_id" json:"university_id"`
	UniversityName string `db:"university_name" json:"university_name"`
}

// DepartmentFilter captures list parameters for departments.
type DepartmentFilter struct {
	FacultyID    string
	UniversityID string
	Search       string
	Page         int
	PageSize     int
}

// ProgramDuration records how long a degree runs in a department.
type ProgramDuration struct {
	ID            string    `db:"id" json:"id"`
	DepartmentID  string    `db:"department_id" json:"department_id"`
	DegreeType    string    `db:"degree_type" json:"degree_type"`
	DurationYears int       `db:"duration_years" json:"duration_years"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}
