// Package export renders tabular reports as spreadsheets, PDFs or CSV.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"time"
)

type Format string

const (
	FormatExcel Format = "xlsx"
	FormatPDF   Format = "pdf"
	FormatCSV   Format = "csv"
)

var ErrUnsupportedFormat = errors.New("unsupported export format")

// ParseFormat maps a query value to a Format; empty means xlsx.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "", "xlsx", "excel":
		return FormatExcel, nil
	case "pdf":
		return FormatPDF, nil
	case "csv":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, s)
	}
}

// Table is a titled grid of cells. Every row should have len(Headers) cells.
type Table struct {
	Title       string
	Subtitle    string
	Headers     []string
	Rows        [][]interface{}
	GeneratedAt time.Time
}

func (f Format) ContentType() string {
	switch f {
	case FormatExcel:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatPDF:
		return "application/pdf"
	case FormatCSV:
		return "text/csv"
	default:
		return "application/octet-stream"
	}
}

func (f Format) Extension() string {
	return "." + string(f)
}

// Write renders t in format f.
func Write(w io.Writer, f Format, t *Table) error {
	if len(t.Headers) == 0 {
		return fmt.Errorf("no headers provided")
	}
	switch f {
	case FormatExcel:
		return writeExcel(w, t)
	case FormatPDF:
		return writePDF(w, t)
	case FormatCSV:
		return writeCSV(w, t)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, f)
	}
}

func writeCSV(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Headers); err != nil {
		return err
	}
	record := make([]string, len(t.Headers))
	for _, row := range t.Rows {
		for i := range record {
			record[i] = ""
			if i < len(row) {
				record[i] = cellString(row[i])
			}
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func cellString(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case time.Time:
		return x.UTC().Format(time.RFC3339)
	case *time.Time:
		if x == nil {
			return ""
		}
		return x.UTC().Format(time.RFC3339)
	default:
		return fmt.Sprint(x)
	}
}
