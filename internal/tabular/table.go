package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ErrEmptyTable is returned when an input has no header row.
var ErrEmptyTable = errors.New("table has no header row")

// ErrUnsupportedFormat is returned for uploads that are neither CSV nor XLSX.
var ErrUnsupportedFormat = errors.New("unsupported file type")

// Table is a header plus string rows, every row padded to the header width.
type Table struct {
	Name   string
	Header []string
	Rows   [][]string
}

// Read decodes a CSV or XLSX payload, choosing the format from the name's
// extension. Names without an extension are read as CSV.
func Read(name string, r io.Reader) (*Table, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".txt", "":
		return ReadCSV(name, r)
	case ".xlsx", ".xlsm":
		return ReadXLSX(name, r)
	default:
		return nil, fmt.Errorf("%s: %w", name, ErrUnsupportedFormat)
	}
}

// ReadCSV decodes comma-separated text. A leading UTF-8 or UTF-16 BOM is
// honoured and stripped.
func ReadCSV(name string, r io.Reader) (*Table, error) {
	decoded := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))

	reader := csv.NewReader(decoded)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv %s: %w", name, err)
	}

	return FromRecords(name, records)
}

// ReadXLSX decodes the first worksheet of a workbook. Cells are read as
// stored, so date cells arrive as serial day numbers whatever their
// display format.
func ReadXLSX(name string, r io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", name, err)
	}
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q of %s: %w", sheet, name, err)
	}

	return FromRecords(name, rows)
}

// FromValues adapts a Google Sheets value range.
func FromValues(name string, values [][]interface{}) (*Table, error) {
	records := make([][]string, 0, len(values))
	for _, row := range values {
		cells := make([]string, len(row))
		for i, v := range row {
			if v == nil {
				continue
			}
			cells[i] = fmt.Sprint(v)
		}
		records = append(records, cells)
	}
	return FromRecords(name, records)
}

// FromRecords builds a table from raw records whose first element is the
// header. Fully blank rows are dropped.
func FromRecords(name string, records [][]string) (*Table, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: %w", name, ErrEmptyTable)
	}

	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = strings.TrimSpace(h)
	}
	if isBlank(header) {
		return nil, fmt.Errorf("%s: %w", name, ErrEmptyTable)
	}

	t := &Table{Name: name, Header: header, Rows: make([][]string, 0, len(records)-1)}
	for _, rec := range records[1:] {
		if isBlank(rec) {
			continue
		}
		t.Rows = append(t.Rows, pad(rec, len(header)))
	}
	return t, nil
}

// Values renders the table as a Sheets value range, header first.
func (t *Table) Values() [][]interface{} {
	out := make([][]interface{}, 0, len(t.Rows)+1)
	out = append(out, toInterfaces(t.Header))
	for _, row := range t.Rows {
		out = append(out, toInterfaces(row))
	}
	return out
}

// WriteCSV encodes the table as CSV, header first.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return err
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return err
	}
	return cw.Error()
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func pad(rec []string, width int) []string {
	row := make([]string, width)
	copy(row, rec)
	return row
}

func toInterfaces(cells []string) []interface{} {
	out := make([]interface{}, len(cells))
	for i, c := range cells {
		out[i] = c
	}
	return out
}
