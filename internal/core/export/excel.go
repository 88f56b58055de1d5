package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Report"

func writeExcel(w io.Writer, t *Table) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return err
	}

	row := 1
	if t.Title != "" {
		titleStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}})
		if err != nil {
			return err
		}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		f.SetCellValue(sheetName, cell, t.Title)
		f.SetCellStyle(sheetName, cell, cell, titleStyle)
		row++
		if t.Subtitle != "" {
			cell, _ = excelize.CoordinatesToCellName(1, row)
			f.SetCellValue(sheetName, cell, t.Subtitle)
			row++
		}
		row++
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"4472C4"}},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	headerRow := row
	for i, h := range t.Headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		f.SetCellValue(sheetName, cell, h)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}
	row++

	for _, r := range t.Rows {
		for i, v := range r {
			cell, _ := excelize.CoordinatesToCellName(i+1, row)
			f.SetCellValue(sheetName, cell, excelValue(v))
		}
		row++
	}

	lastCol, _ := excelize.ColumnNumberToName(len(t.Headers))
	f.SetColWidth(sheetName, "A", lastCol, 18)
	f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      headerRow,
		TopLeftCell: fmt.Sprintf("A%d", headerRow+1),
		ActivePane:  "bottomLeft",
	})
	if len(t.Rows) > 0 {
		f.AutoFilter(sheetName, fmt.Sprintf("A%d:%s%d", headerRow, lastCol, headerRow+len(t.Rows)), nil)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write Excel file: %w", err)
	}
	return nil
}

// excelValue keeps numbers numeric and renders times as text.
func excelValue(v interface{}) interface{} {
	switch v.(type) {
	case int, int64, float64, string, bool:
		return v
	default:
		return cellString(v)
	}
}
