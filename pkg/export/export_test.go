package export

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport() Report {
	rows := []map[string]string{
		{"Name": "Ada Obi", "Role": "Class Representative", "Department": "Computer Science"},
		{"Name": "Bola Ade", "Role": "Department President", "Department": "Physics"},
		{"Name": "Chidi Eze", "Role": "Class Representative", "Department": "Computer Science"},
	}
	return Report{
		Title:       "Representatives",
		Headers:     []string{"Name", "Role"},
		Sections: GroupBy(rows,
			func(r map[string]string) string { return r["Department"] },
			func(r map[string]string) map[string]string { return r }),
		GeneratedAt: time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestGroupByKeepsFirstSeenOrder(t *testing.T) {
	sections := sampleReport().Sections
	require.Len(t, sections, 2)
	assert.Equal(t, "Computer Science", sections[0].Title)
	assert.Len(t, sections[0].Rows, 2)
	assert.Equal(t, "Physics", sections[1].Title)
}

func TestCSVExporterAddsGroupColumn(t *testing.T) {
	data, err := NewCSVExporter().Render(sampleReport())
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, []string{GroupColumn, "Name", "Role"}, records[0])
	assert.Equal(t, []string{"Computer Science", "Chidi Eze", "Class Representative"}, records[2])
}

func TestCSVExporterFlatReport(t *testing.T) {
	report := Report{Headers: []string{"Name"}, Sections: []Section{{Rows: []map[string]string{{"Name": "Ada"}}}}}
	data, err := NewCSVExporter().Render(report)
	require.NoError(t, err)
	assert.Equal(t, "Name\nAda\n", string(data))
}

func TestExportersRequireHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Report{})
	assert.Error(t, err)
	_, err = NewPDFExporter(nil).Render(Report{})
	assert.Error(t, err)
}

func TestPDFExporterRendersSections(t *testing.T) {
	report := sampleReport()
	for i := 0; i < 60; i++ {
		report.Sections[1].Rows = append(report.Sections[1].Rows, map[string]string{"Name": "Überlong name that certainly does not fit in the narrow column", "Role": "Class Representative"})
	}
	data, err := NewPDFExporter(map[string]float64{"Name": 3}).Render(report)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}

func TestPDFExporterEmptyReport(t *testing.T) {
	data, err := NewPDFExporter(nil).Render(Report{Title: "Empty", Headers: []string{"Name"}})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}
