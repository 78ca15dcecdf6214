package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// TimelineRow is a single rendered line of a paper's event timeline.
type TimelineRow struct {
	Date       string
	Type       string
	Actor      string
	Visibility string
}

// PDFExporter renders a paper's visible event timeline as a tabular PDF.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

var timelineHeaders = []string{"Date", "Event", "Actor", "Visibility"}

// Render creates the timeline document with the paper title as heading.
func (e *PDFExporter) Render(title string, rows []TimelineRow) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()

	if title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, strings.ToUpper(title), "", 1, "C", false, 0, "")
		pdf.Ln(5)
	}

	pdf.SetFont("Arial", "B", 10)
	colWidth := 190.0 / float64(len(timelineHeaders))
	for _, header := range timelineHeaders {
		pdf.CellFormat(colWidth, 8, header, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, row := range rows {
		pdf.CellFormat(colWidth, 7, row.Date, "1", 0, "", false, 0, "")
		pdf.CellFormat(colWidth, 7, row.Type, "1", 0, "", false, 0, "")
		pdf.CellFormat(colWidth, 7, row.Actor, "1", 0, "", false, 0, "")
		pdf.CellFormat(colWidth, 7, row.Visibility, "1", 0, "", false, 0, "")
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render timeline pdf: %w", err)
	}
	return buf.Bytes(), nil
}
