package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

const (
	pageWidth   = 277.0 // A4 landscape minus margins
	rowHeight   = 7.0
	headerFill  = 220
	sectionFill = 240
)

// PDFExporter renders reports into a landscape PDF with one table per section.
type PDFExporter struct {
	// Widths holds relative column weights keyed by header. Missing headers weigh 1.
	Widths map[string]float64
}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter(widths map[string]float64) *PDFExporter {
	return &PDFExporter{Widths: widths}
}

// Render lays out the title block, then each section heading and its table. The header
// row repeats at the top of every page a section spills onto.
func (e *PDFExporter) Render(report Report) ([]byte, error) {
	if len(report.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}
	widths := e.columnWidths(report.Headers)

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 12, 10)
	pdf.SetAutoPageBreak(true, 15)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Arial", "I", 8)
		footer := fmt.Sprintf("Page %d", pdf.PageNo())
		if !report.GeneratedAt.IsZero() {
			footer = fmt.Sprintf("Generated %s  |  %s", report.GeneratedAt.UTC().Format("2006-01-02 15:04 MST"), footer)
		}
		pdf.CellFormat(0, 8, footer, "", 0, "R", false, 0, "")
	})
	pdf.AddPage()

	if report.Title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, tr(report.Title), "", 1, "C", false, 0, "")
	}
	if report.Subtitle != "" {
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 6, tr(report.Subtitle), "", 1, "C", false, 0, "")
	}
	pdf.Ln(4)

	if report.RowCount() == 0 {
		pdf.SetFont("Arial", "I", 10)
		pdf.CellFormat(0, 10, "No records match the selected filters.", "", 1, "C", false, 0, "")
	}

	_, pageHeight := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()
	limit := pageHeight - bottom - rowHeight

	for _, section := range report.Sections {
		if len(section.Rows) == 0 {
			continue
		}
		if pdf.GetY()+3*rowHeight > limit {
			pdf.AddPage()
		}
		if section.Title != "" {
			pdf.SetFont("Arial", "B", 11)
			pdf.SetFillColor(sectionFill, sectionFill, sectionFill)
			label := fmt.Sprintf("%s (%d)", section.Title, len(section.Rows))
			pdf.CellFormat(0, 8, tr(label), "", 1, "L", true, 0, "")
		}
		writeHeader(pdf, report.Headers, widths)

		pdf.SetFont("Arial", "", 9)
		for _, row := range section.Rows {
			if pdf.GetY() > limit {
				pdf.AddPage()
				writeHeader(pdf, report.Headers, widths)
				pdf.SetFont("Arial", "", 9)
			}
			for i, header := range report.Headers {
				pdf.CellFormat(widths[i], rowHeight, tr(fit(pdf, row[header], widths[i])), "1", 0, "", false, 0, "")
			}
			pdf.Ln(-1)
		}
		pdf.Ln(4)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (e *PDFExporter) columnWidths(headers []string) []float64 {
	total := 0.0
	weights := make([]float64, len(headers))
	for i, h := range headers {
		w, ok := e.Widths[h]
		if !ok || w <= 0 {
			w = 1
		}
		weights[i] = w
		total += w
	}
	for i := range weights {
		weights[i] = weights[i] / total * pageWidth
	}
	return weights
}

func writeHeader(pdf *gofpdf.Fpdf, headers []string, widths []float64) {
	pdf.SetFont("Arial", "B", 9)
	pdf.SetFillColor(headerFill, headerFill, headerFill)
	for i, header := range headers {
		pdf.CellFormat(widths[i], rowHeight+1, header, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)
}

// fit truncates value with an ellipsis so it stays inside a cell of width w.
func fit(pdf *gofpdf.Fpdf, value string, w float64) string {
	room := w - 2
	if pdf.GetStringWidth(value) <= room {
		return value
	}
	runes := []rune(value)
	for len(runes) > 0 && pdf.GetStringWidth(string(runes)+"...") > room {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "..."
}
