package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/lashiva/stockrecon/internal/tabular"
)

// SheetName is the worksheet used by the XLSX export.
const SheetName = "库存更新结果"

// Table renders the summary, totals row included, with a leading 0-based
// index column.
func (s *Summary) Table() *tabular.Table {
	l := s.Labels
	t := &tabular.Table{
		Name:   fmt.Sprintf("库存更新结果_%s", s.WorkDate.Format("2006-01-02")),
		Header: []string{l.Index, l.Name, l.SKU, l.Opening, l.Received, l.Sold, l.Closing},
	}
	for i, row := range s.AllRows() {
		t.Rows = append(t.Rows, []string{
			strconv.Itoa(i),
			row.Name,
			row.SKU,
			strconv.Itoa(row.Opening),
			strconv.Itoa(row.Received),
			strconv.Itoa(row.Sold),
			strconv.Itoa(row.Closing),
		})
	}
	return t
}

// WriteCSV encodes the summary as UTF-8 CSV with a BOM so spreadsheet
// applications detect the encoding.
func (s *Summary) WriteCSV(w io.Writer) error {
	return WriteCSVWithBOM(w, s.Table())
}

// WriteCSVWithBOM encodes any table as UTF-8 CSV with a BOM.
func WriteCSVWithBOM(w io.Writer, t *tabular.Table) error {
	bw := transform.NewWriter(w, unicode.UTF8BOM.NewEncoder())
	if err := t.WriteCSV(bw); err != nil {
		return fmt.Errorf("encode csv: %w", err)
	}
	return bw.Close()
}

var highlightStyles = map[Highlight]excelize.Style{
	HighlightLowStock: {
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"FFF7E6"}},
		Font: &excelize.Font{Color: "7C2D12"},
	},
	HighlightZeroSales: {
		Font: &excelize.Font{Color: "94A3B8"},
	},
	HighlightReceived: {
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"ECFDF5"}},
		Font: &excelize.Font{Color: "065F46"},
	},
	HighlightTotal: {
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"F8FAFC"}},
		Font: &excelize.Font{Bold: true},
	},
}

// WriteXLSX encodes the summary as a workbook, rendering highlights as
// cell styles.
func (s *Summary) WriteXLSX(w io.Writer) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	styles := make(map[Highlight]int, len(highlightStyles))
	for h, style := range highlightStyles {
		style := style
		id, err := f.NewStyle(&style)
		if err != nil {
			return fmt.Errorf("create %s style: %w", h, err)
		}
		styles[h] = id
	}

	l := s.Labels
	header := []interface{}{l.Index, l.Name, l.SKU, l.Opening, l.Received, l.Sold, l.Closing}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, row := range s.AllRows() {
		excelRow := i + 2
		values := []interface{}{i, row.Name, row.SKU, row.Opening, row.Received, row.Sold, row.Closing}
		start, _ := excelize.CoordinatesToCellName(1, excelRow)
		if err := f.SetSheetRow(SheetName, start, &values); err != nil {
			return fmt.Errorf("write row %d: %w", excelRow, err)
		}

		for colIdx, col := range Columns {
			h, ok := row.Highlights[col]
			if !ok {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(colIdx+2, excelRow)
			if err := f.SetCellStyle(SheetName, cell, cell, styles[h]); err != nil {
				return fmt.Errorf("style %s: %w", cell, err)
			}
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
