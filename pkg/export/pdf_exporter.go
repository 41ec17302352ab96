package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

const (
	pageWidth  = 190.0
	labelWidth = 45.0
)

// PDFExporter renders datasets as a document of labelled blocks, one per
// row, so long free-text answers wrap instead of being clipped by cells.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render creates a PDF document from the dataset.
func (e *PDFExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	if data.Title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.MultiCell(0, 8, tr(data.Title), "", "C", false)
		pdf.Ln(3)
	}

	for _, field := range data.Meta {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(labelWidth, 6, tr(field.Label), "", 0, "", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.MultiCell(pageWidth-labelWidth, 6, tr(field.Value), "", "", false)
	}
	if len(data.Meta) > 0 {
		pdf.Ln(4)
	}

	for i, row := range data.Rows {
		if i > 0 {
			y := pdf.GetY() + 2
			pdf.Line(10, y, 10+pageWidth, y)
			pdf.Ln(4)
		}
		for _, header := range data.Headers {
			pdf.SetFont("Arial", "B", 9)
			pdf.CellFormat(labelWidth, 6, tr(header), "", 0, "", false, 0, "")
			pdf.SetFont("Arial", "", 9)
			pdf.MultiCell(pageWidth-labelWidth, 6, tr(row[header]), "", "", false)
		}
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
