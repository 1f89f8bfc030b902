package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

const (
	pdfPageWidth   = 190.0
	pdfHeaderRowH  = 8.0
	pdfBodyRowH    = 7.0
	pdfBottomLimit = 280.0
)

// PDFExporter renders a Dataset as an A4 table. The header row is repeated
// on every page and body rows are shaded alternately.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render creates a PDF document with an optional title, the dataset notes and
// the table body.
func (e *PDFExporter) Render(data Dataset, title string) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, ErrNoHeaders
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.SetAutoPageBreak(false, 15)
	pdf.AddPage()

	if title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, title, "", 1, "C", false, 0, "")
	}
	if len(data.Notes) > 0 {
		pdf.SetFont("Arial", "", 9)
		for _, note := range data.Notes {
			pdf.CellFormat(0, 5, note, "", 1, "L", false, 0, "")
		}
	}
	pdf.Ln(4)

	widths := columnWidths(pdf, data)
	header := func() {
		pdf.SetFont("Arial", "B", 10)
		pdf.SetFillColor(220, 228, 240)
		for i, h := range data.Headers {
			pdf.CellFormat(widths[i], pdfHeaderRowH, h, "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 9)
	}
	header()

	pdf.SetFillColor(245, 245, 245)
	for i := range data.Rows {
		if pdf.GetY()+pdfBodyRowH > pdfBottomLimit {
			pdf.AddPage()
			header()
			pdf.SetFillColor(245, 245, 245)
		}
		for j, value := range data.Record(i) {
			pdf.CellFormat(widths[j], pdfBodyRowH, value, "1", 0, "", i%2 == 1, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// columnWidths sizes columns by their widest cell, scaled to the page width.
func columnWidths(pdf *gofpdf.Fpdf, data Dataset) []float64 {
	pdf.SetFont("Arial", "B", 10)
	widths := make([]float64, len(data.Headers))
	var total float64
	for i, h := range data.Headers {
		widths[i] = pdf.GetStringWidth(h) + 4
	}
	pdf.SetFont("Arial", "", 9)
	for r := range data.Rows {
		for i, value := range data.Record(r) {
			if w := pdf.GetStringWidth(value) + 4; w > widths[i] {
				widths[i] = w
			}
		}
	}
	for _, w := range widths {
		total += w
	}
	for i := range widths {
		widths[i] = widths[i] / total * pdfPageWidth
	}
	return widths
}
