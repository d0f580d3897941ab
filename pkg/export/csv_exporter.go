package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// GroupColumn is prepended to CSV output when a report has titled sections.
const GroupColumn = "Group"

// CSVExporter renders reports into CSV bytes.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render writes one header row followed by every section's rows. Section titles become
// the leading Group column so the file stays a single flat table.
func (e *CSVExporter) Render(report Report) ([]byte, error) {
	if len(report.Headers) == 0 {
		return nil, fmt.Errorf("csv requires at least one header")
	}
	grouped := false
	for _, s := range report.Sections {
		if s.Title != "" {
			grouped = true
			break
		}
	}

	headers := report.Headers
	if grouped {
		headers = append([]string{GroupColumn}, report.Headers...)
	}

	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}
	for _, section := range report.Sections {
		for _, row := range section.Rows {
			record := make([]string, 0, len(headers))
			if grouped {
				record = append(record, section.Title)
			}
			for _, header := range report.Headers {
				record = append(record, row[header])
			}
			if err := writer.Write(record); err != nil {
				return nil, fmt.Errorf("write csv row: %w", err)
			}
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
