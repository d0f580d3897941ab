package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ExportFormat enumerates supported directory export formats.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ExportGrouping selects how a PDF export splits representatives into sections.
type ExportGrouping string

const (
	GroupByDepartment ExportGrouping = "department"
	GroupByFaculty    ExportGrouping = "faculty"
	GroupByRole       ExportGrouping = "role"
)

// ExportStatus captures background job lifecycle states.
type ExportStatus string

const (
	ExportStatusQueued     ExportStatus = "QUEUED"
	ExportStatusProcessing ExportStatus = "PROCESSING"
	ExportStatusFinished   ExportStatus = "FINISHED"
	ExportStatusFailed     ExportStatus = "FAILED"
	// ExportStatusExpired marks a finished job whose file has been cleaned up.
	ExportStatusExpired    ExportStatus = "EXPIRED"
)

// ExportJob is persisted background export metadata.
type ExportJob struct {
	ID           string          `db:"id" json:"id"`
	Format       ExportFormat    `db:"format" json:"format"`
	Params       ExportJobParams `db:"params" json:"params"`
	Status       ExportStatus    `db:"status" json:"status"`
	Progress     int             `db:"progress" json:"progress"`
	ResultURL    *string         `db:"result_url" json:"result_url,omitempty"`
	CreatedBy    string          `db:"created_by" json:"created_by"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	FinishedAt   *time.Time      `db:"finished_at" json:"finished_at,omitempty"`
	ErrorMessage *string         `db:"error_message" json:"error_message,omitempty"`
}

// ExportJobParams stores the representative filter and grouping as JSONB.
type ExportJobParams struct {
	UniversityID       string             `json:"university_id,omitempty"`
	FacultyID          string             `json:"faculty_id,omitempty"`
	DepartmentID       string             `json:"department_id,omitempty"`
	Role               RepresentativeRole `json:"role,omitempty"`
	VerificationStatus VerificationStatus `json:"verification_status,omitempty"`
	GroupBy            ExportGrouping     `json:"group_by,omitempty"`
	Title              string             `json:"title,omitempty"`
}

// Filter converts the params into an unpaged representative filter over active records.
func (p ExportJobParams) Filter() RepresentativeFilter {
	active := true
	return RepresentativeFilter{
		UniversityID:       p.UniversityID,
		FacultyID:          p.FacultyID,
		DepartmentID:       p.DepartmentID,
		Role:               p.Role,
		VerificationStatus: p.VerificationStatus,
		Active:             &active,
	}
}

// Value marshals params to JSON for persistence.
func (p ExportJobParams) Value() (driver.Value, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal export job params: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the params struct.
func (p *ExportJobParams) Scan(value interface{}) error {
	if value == nil {
		*p = ExportJobParams{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for ExportJobParams", value)
	}
	if len(data) == 0 {
		*p = ExportJobParams{}
		return nil
	}
	if err := json.Unmarshal(data, p); err != nil {
		return fmt.Errorf("unmarshal export job params: %w", err)
	}
	return nil
}
