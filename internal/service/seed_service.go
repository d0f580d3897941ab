package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/academic-directory-api/internal/models"
	"github.com/noah-isme/academic-directory-api/internal/seed"
)

type seedRepository interface {
	FindUniversityByAbbreviation(ctx context.Context, abbreviation string) (*models.University, error)
	CreateUniversity(ctx context.Context, university *models.University) error
	FindFacultyByName(ctx context.Context, universityID, name string) (*models.Faculty, error)
	CreateFaculty(ctx context.Context, faculty *models.Faculty) error
	FindDepartmentByName(ctx context.Context, facultyID, name string) (*models.Department, error)
	CreateDepartment(ctx context.Context, department *models.Department) error
	ProgramDurationExists(ctx context.Context, departmentID, degreeType string) (bool, error)
	CreateProgramDuration(ctx context.Context, duration *models.ProgramDuration) error
}

// SeedCount tallies one kind of record.
type SeedCount struct {
	Created  int `json:"created"`
	Existing int `json:"existing"`
}

// SeedReport summarises a seed run.
type SeedReport struct {
	DryRun           bool      `json:"dry_run"`
	Universities     SeedCount `json:"universities"`
	Faculties        SeedCount `json:"faculties"`
	Departments      SeedCount `json:"departments"`
	ProgramDurations SeedCount `json:"program_durations"`
}

// SeedService loads the reference directory with get-or-create semantics so runs are repeatable.
type SeedService struct {
	repo   seedRepository
	logger *zap.Logger
}

// NewSeedService constructs SeedService.
func NewSeedService(repo seedRepository, logger *zap.Logger) *SeedService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SeedService{repo: repo, logger: logger}
}

// Run applies table. With dryRun nothing is written; records below a missing parent count as created.
func (s *SeedService) Run(ctx context.Context, table *seed.Table, dryRun bool) (*SeedReport, error) {
	report := &SeedReport{DryRun: dryRun}
	for _, u := range table.Universities {
		universityID, err := s.university(ctx, u, dryRun, report)
		if err != nil {
			return report, err
		}
		for _, f := range u.Faculties {
			facultyID, err := s.faculty(ctx, universityID, f, dryRun, report)
			if err != nil {
				return report, err
			}
			for _, d := range f.Departments {
				departmentID, err := s.department(ctx, facultyID, d, dryRun, report)
				if err != nil {
					return report, err
				}
				if err := s.durations(ctx, departmentID, d.Durations, dryRun, report); err != nil {
					return report, err
				}
			}
		}
	}
	s.logger.Info("seed finished",
		zap.Bool("dry_run", dryRun),
		zap.Int("universities_created", report.Universities.Created),
		zap.Int("faculties_created", report.Faculties.Created),
		zap.Int("departments_created", report.Departments.Created),
		zap.Int("durations_created", report.ProgramDurations.Created),
	)
	return report, nil
}

func (s *SeedService) university(ctx context.Context, u seed.University, dryRun bool, report *SeedReport) (string, error) {
	abbreviation := strings.ToUpper(strings.TrimSpace(u.Abbreviation))
	existing, err := s.repo.FindUniversityByAbbreviation(ctx, abbreviation)
	if err == nil {
		report.Universities.Existing++
		return existing.ID, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("seed university %s: %w", abbreviation, err)
	}
	report.Universities.Created++
	if dryRun {
		return "", nil
	}
	university := &models.University{
		Name:         strings.TrimSpace(u.Name),
		Abbreviation: abbreviation,
		State:        u.State,
		Ownership:    models.Ownership(strings.ToUpper(u.Ownership)),
		Website:      u.Website,
		IsActive:     true,
	}
	if err := s.repo.CreateUniversity(ctx, university); err != nil {
		return "", fmt.Errorf("seed university %s: %w", abbreviation, err)
	}
	return university.ID, nil
}

func (s *SeedService) faculty(ctx context.Context, universityID string, f seed.Faculty, dryRun bool, report *SeedReport) (string, error) {
	if universityID != "" {
		existing, err := s.repo.FindFacultyByName(ctx, universityID, f.Name)
		if err == nil {
			report.Faculties.Existing++
			return existing.ID, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("seed faculty %s: %w", f.Name, err)
		}
	}
	report.Faculties.Created++
	if dryRun {
		return "", nil
	}
	faculty := &models.Faculty{UniversityID: universityID, Name: f.Name, Abbreviation: strings.ToUpper(f.Abbreviation)}
	if err := s.repo.CreateFaculty(ctx, faculty); err != nil {
		return "", fmt.Errorf("seed faculty %s: %w", f.Name, err)
	}
	return faculty.ID, nil
}

func (s *SeedService) department(ctx context.Context, facultyID string, d seed.Department, dryRun bool, report *SeedReport) (string, error) {
	if facultyID != "" {
		existing, err := s.repo.FindDepartmentByName(ctx, facultyID, d.Name)
		if err == nil {
			report.Departments.Existing++
			return existing.ID, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("seed department %s: %w", d.Name, err)
		}
	}
	report.Departments.Created++
	if dryRun {
		return "", nil
	}
	department := &models.Department{FacultyID: facultyID, Name: d.Name, Abbreviation: strings.ToUpper(d.Abbreviation)}
	if err := s.repo.CreateDepartment(ctx, department); err != nil {
		return "", fmt.Errorf("seed department %s: %w", d.Name, err)
	}
	return department.ID, nil
}

func (s *SeedService) durations(ctx context.Context, departmentID string, durations map[string]int, dryRun bool, report *SeedReport) error {
	degrees := make([]string, 0, len(durations))
	for degree := range durations {
		degrees = append(degrees, degree)
	}
	sort.Strings(degrees)

	for _, degree := range degrees {
		degreeType := strings.ToUpper(degree)
		if departmentID != "" {
			exists, err := s.repo.ProgramDurationExists(ctx, departmentID, degreeType)
			if err != nil {
				return fmt.Errorf("seed program duration %s: %w", degreeType, err)
			}
			if exists {
				report.ProgramDurations.Existing++
				continue
			}
		}
		report.ProgramDurations.Created++
		if dryRun {
			continue
		}
		duration := &models.ProgramDuration{DepartmentID: departmentID, DegreeType: degreeType, DurationYears: durations[degree]}
		if err := s.repo.CreateProgramDuration(ctx, duration); err != nil {
			return fmt.Errorf("seed program duration %s: %w", degreeType, err)
		}
	}
	return nil
}
