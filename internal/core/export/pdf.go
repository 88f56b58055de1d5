package export

import (
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"
)

func writePDF(w io.Writer, t *Table) error {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetAutoPageBreak(false, 15)
	pdf.AddPage()

	if t.Title != "" {
		pdf.SetFont("Arial", "B", 16)
		pdf.Cell(0, 10, t.Title)
		pdf.Ln(10)
	}
	if t.Subtitle != "" {
		pdf.SetFont("Arial", "", 10)
		pdf.MultiCell(0, 5, t.Subtitle, "", "", false)
	}
	if !t.GeneratedAt.IsZero() {
		pdf.SetFont("Arial", "I", 8)
		pdf.Cell(0, 5, "Generated: "+t.GeneratedAt.UTC().Format("2006-01-02 15:04:05 MST"))
		pdf.Ln(8)
	}

	pageWidth, pageHeight := pdf.GetPageSize()
	left, _, right, bottom := pdf.GetMargins()
	colWidth := (pageWidth - left - right) / float64(len(t.Headers))

	header := func() {
		pdf.SetFont("Arial", "B", 8)
		pdf.SetFillColor(68, 114, 196)
		pdf.SetTextColor(255, 255, 255)
		for _, h := range t.Headers {
			pdf.CellFormat(colWidth, 7, h, "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetTextColor(0, 0, 0)
		pdf.SetFont("Arial", "", 8)
	}

	header()
	for i, row := range t.Rows {
		if pdf.GetY()+6 > pageHeight-bottom {
			pdf.AddPage()
			header()
		}
		if i%2 == 0 {
			pdf.SetFillColor(255, 255, 255)
		} else {
			pdf.SetFillColor(242, 242, 242)
		}
		for c := range t.Headers {
			var v interface{}
			if c < len(row) {
				v = row[c]
			}
			pdf.CellFormat(colWidth, 6, truncate(cellString(v), 40), "1", 0, "L", true, 0, "")
		}
		pdf.Ln(-1)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to write PDF: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
