package service

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/academic-directory-api/internal/models"
	appErrors "github.com/noah-isme/academic-directory-api/pkg/errors"
	"github.com/noah-isme/academic-directory-api/pkg/export"
	"github.com/noah-isme/academic-directory-api/pkg/storage"
)

var exportHeaders = []string{"Name", "Role", "Phone", "WhatsApp", "Department", "Year", "Status"}

var exportColumnWeights = map[string]float64{
	"Name":       3,
	"Role":       2.2,
	"Phone":      2,
	"WhatsApp":   2,
	"Department": 3,
	"Year":       0.8,
	"Status":     1.4,
}

var roleOrder = map[string]int{
	models.RoleClassRep.Label():            0,
	models.RoleDepartmentPresident.Label(): 1,
	models.RoleFacultyPresident.Label():    2,
}

type exportSource interface {
	ListForExport(ctx context.Context, filter models.RepresentativeFilter) ([]models.RepresentativeDetail, error)
}

type fileStorage interface {
	Save(name string, data []byte) (string, error)
	Open(name string) (*os.File, error)
	Delete(name string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(report export.Report) ([]byte, error)
}

type pdfRenderer interface {
	Render(report export.Report) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// RenderedExport is an export produced in memory for a direct download.
type RenderedExport struct {
	Filename    string
	ContentType string
	Data        []byte
	Rows        int
}

// ExportResult describes an export written to storage.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ExportFormat
	ExpiresAt    time.Time
}

// DirectoryExportService renders representative listings to CSV or sectioned PDF.
type DirectoryExportService struct {
	source  exportSource
	storage fileStorage
	signer  *storage.SignedURLSigner
	csv     csvRenderer
	pdf     pdfRenderer
	logger  *zap.Logger
	cfg     ExportConfig
	now     func() time.Time
}

// NewDirectoryExportService constructs the service. storage and signer may be nil when
// only synchronous downloads are served.
func NewDirectoryExportService(source exportSource, store fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger) *DirectoryExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	return &DirectoryExportService{
		source:  source,
		storage: store,
		signer:  signer,
		csv:     export.NewCSVExporter(),
		pdf:     export.NewPDFExporter(exportColumnWeights),
		logger:  logger,
		cfg:     cfg,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Render builds the export in memory.
func (s *DirectoryExportService) Render(ctx context.Context, format models.ExportFormat, params models.ExportJobParams) (*RenderedExport, error) {
	if err := validateExportParams(format, params); err != nil {
		return nil, err
	}
	reps, err := s.source.ListForExport(ctx, params.Filter())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load representatives")
	}
	report := s.buildReport(reps, params)

	var data []byte
	contentType := "text/csv"
	if format == models.ExportFormatPDF {
		contentType = "application/pdf"
		data, err = s.pdf.Render(report)
	} else {
		data, err = s.csv.Render(report)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	return &RenderedExport{
		Filename:    s.filename(format, params),
		ContentType: contentType,
		Data:        data,
		Rows:        report.RowCount(),
	}, nil
}

// Generate renders the export of a background job, stores it and signs a download URL.
func (s *DirectoryExportService) Generate(ctx context.Context, job *models.ExportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	if s.storage == nil || s.signer == nil {
		return nil, fmt.Errorf("export storage not configured")
	}
	rendered, err := s.Render(ctx, job.Format, job.Params)
	if err != nil {
		return nil, err
	}
	relPath, err := s.storage.Save(job.ID+"/"+rendered.Filename, rendered.Data)
	if err != nil {
		return nil, err
	}
	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/directory/exports/download/%s", prefix, token),
		Format:       job.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates a download token.
func (s *DirectoryExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to a stored export.
func (s *DirectoryExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export.
func (s *DirectoryExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes stored files older than ttl, or the configured result TTL when ttl <= 0.
func (s *DirectoryExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *DirectoryExportService) buildReport(reps []models.RepresentativeDetail, params models.ExportJobParams) export.Report {
	sections := export.GroupBy(reps,
		func(rep models.RepresentativeDetail) string { return sectionKey(rep, params.GroupBy) },
		exportRow,
	)
	if params.GroupBy == models.GroupByRole {
		sort.SliceStable(sections, func(i, j int) bool {
			return roleOrder[sections[i].Title] < roleOrder[sections[j].Title]
		})
	}

	title := strings.TrimSpace(params.Title)
	if title == "" {
		title = "Student Representatives Directory"
	}
	return export.Report{
		Title:       title,
		Subtitle:    fmt.Sprintf("%d representatives grouped by %s", len(reps), params.GroupBy),
		Headers:     exportHeaders,
		Sections:    sections,
		GeneratedAt: s.now(),
	}
}

func exportRow(rep models.RepresentativeDetail) map[string]string {
	return map[string]string{
		"Name":       rep.FullName,
		"Role":       rep.Role.Label(),
		"Phone":      rep.PhoneNumber,
		"WhatsApp":   deref(rep.WhatsAppNumber),
		"Department": rep.DepartmentName,
		"Year":       representativeYear(rep.Representative),
		"Status":     string(rep.VerificationStatus),
	}
}

func (s *DirectoryExportService) filename(format models.ExportFormat, params models.ExportJobParams) string {
	return fmt.Sprintf("representatives_by_%s_%s.%s", params.GroupBy, s.now().Format("20060102_150405"), format)
}

func sectionKey(rep models.RepresentativeDetail, groupBy models.ExportGrouping) string {
	switch groupBy {
	case models.GroupByFaculty:
		return fmt.Sprintf("%s, %s", rep.FacultyName, rep.UniversityName)
	case models.GroupByRole:
		return rep.Role.Label()
	default:
		return fmt.Sprintf("%s, %s, %s", rep.DepartmentName, rep.FacultyName, rep.UniversityName)
	}
}

// representativeYear is the entry year for class reps and the tenure start for presidents.
func representativeYear(rep models.Representative) string {
	year := rep.EntryYear
	if rep.Role.IsPresident() {
		year = rep.TenureStartYear
	}
	if year == nil {
		return ""
	}
	return strconv.Itoa(*year)
}

func validateExportParams(format models.ExportFormat, params models.ExportJobParams) error {
	if format != models.ExportFormatCSV && format != models.ExportFormatPDF {
		return appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
	switch params.GroupBy {
	case models.GroupByDepartment, models.GroupByFaculty, models.GroupByRole:
	default:
		return appErrors.Clone(appErrors.ErrValidation, "group_by must be department, faculty or role")
	}
	if params.Role != "" && !params.Role.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, "unknown role")
	}
	if params.VerificationStatus != "" && !params.VerificationStatus.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, "unknown verification status")
	}
	return nil
}

func deref(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}
