// Package report turns a reconciliation result into the working-date
// summary table and its export encodings.
package report

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/lashiva/stockrecon/internal/domain/models"
	"github.com/lashiva/stockrecon/internal/reconcile"
)

// Placeholder fills the name and SKU cells of the totals row.
const Placeholder = "—"

// Column identifies a summary column.
type Column string

const (
	ColumnName     Column = "name"
	ColumnSKU      Column = "sku"
	ColumnOpening  Column = "opening"
	ColumnReceived Column = "received"
	ColumnSold     Column = "sold"
	ColumnClosing  Column = "closing"
)

// Columns is the display order.
var Columns = []Column{ColumnName, ColumnSKU, ColumnOpening, ColumnReceived, ColumnSold, ColumnClosing}

// Highlight is a conditional display rule applied to a cell.
type Highlight string

const (
	HighlightLowStock  Highlight = "low_stock"
	HighlightZeroSales Highlight = "zero_sales"
	HighlightReceived  Highlight = "received"
	HighlightTotal     Highlight = "total"
)

// Row is one line of the summary.
type Row struct {
	Name       string               `json:"name"`
	SKU        string               `json:"sku"`
	Opening    int                  `json:"opening"`
	Received   int                  `json:"received"`
	Sold       int                  `json:"sold"`
	Closing    int                  `json:"closing"`
	Safety     *int                 `json:"safety,omitempty"`
	Total      bool                 `json:"total,omitempty"`
	Highlights map[Column]Highlight `json:"highlights,omitempty"`
}

// Metrics are the headline numbers shown above the table.
type Metrics struct {
	SKUCount      int  `json:"sku_count"`
	LowStockCount int  `json:"low_stock_count"`
	OpeningTotal  int  `json:"opening_total"`
	ReceivedTotal int  `json:"received_total"`
	SoldTotal     int  `json:"sold_total"`
	ClosingTotal  int  `json:"closing_total"`
	Healthy       bool `json:"healthy"`
}

// Labels are the header texts used by the exports.
type Labels struct {
	Index    string
	Name     string
	SKU      string
	Opening  string
	Received string
	Sold     string
	Closing  string
}

// Summary is the working-date view of a reconciliation.
type Summary struct {
	WorkDate time.Time
	Rows     []Row
	Total    Row
	Metrics  Metrics
	Labels   Labels
}

// Build assembles the summary: one row per working-date ledger row sorted
// by SKU, then the totals row.
func Build(res *reconcile.Result) *Summary {
	cols := res.Ledger.Columns()
	s := &Summary{
		WorkDate: res.WorkDate,
		Labels: Labels{
			Index:    "序号",
			Name:     cols.Name,
			SKU:      cols.SKU,
			Opening:  cols.Opening,
			Received: cols.Received,
			Sold:     "当日销量",
			Closing:  cols.Closing,
		},
	}

	safety := make(map[string]int)
	for _, rec := range res.Ledger.Records {
		if !rec.OnDate(res.WorkDate) {
			continue
		}
		if _, seen := safety[rec.SKU]; !seen && rec.Safety.Valid {
			safety[rec.SKU] = rec.Safety.Value
		}
		if _, seen := safety[rec.SKU]; !seen {
			safety[rec.SKU] = -1
		}

		s.Rows = append(s.Rows, Row{
			Name:     rec.Name,
			SKU:      rec.SKU,
			Opening:  rec.Opening.Int(),
			Received: rec.Received.Int(),
			Sold:     res.Sold[rec.SKU],
			Closing:  rec.Closing.Int(),
		})
	}
	sort.SliceStable(s.Rows, func(i, j int) bool { return s.Rows[i].SKU < s.Rows[j].SKU })

	total := Row{Name: Placeholder, SKU: Placeholder, Total: true}
	for i := range s.Rows {
		row := &s.Rows[i]
		if v := safety[row.SKU]; v >= 0 {
			threshold := v
			row.Safety = &threshold
		}
		row.Highlights = highlightsFor(*row)
		if row.Highlights[ColumnClosing] == HighlightLowStock {
			s.Metrics.LowStockCount++
		}

		total.Opening += row.Opening
		total.Received += row.Received
		total.Sold += row.Sold
		total.Closing += row.Closing
	}
	total.Highlights = make(map[Column]Highlight, len(Columns))
	for _, c := range Columns {
		total.Highlights[c] = HighlightTotal
	}
	s.Total = total

	s.Metrics.SKUCount = len(s.Rows)
	s.Metrics.OpeningTotal = total.Opening
	s.Metrics.ReceivedTotal = total.Received
	s.Metrics.SoldTotal = total.Sold
	s.Metrics.ClosingTotal = total.Closing
	s.Metrics.Healthy = s.Metrics.LowStockCount == 0

	return s
}

func highlightsFor(row Row) map[Column]Highlight {
	h := make(map[Column]Highlight)
	if row.Safety != nil && row.Closing < *row.Safety {
		h[ColumnClosing] = HighlightLowStock
	}
	if row.Sold == 0 {
		h[ColumnSold] = HighlightZeroSales
	}
	if row.Received > 0 {
		h[ColumnReceived] = HighlightReceived
	}
	if len(h) == 0 {
		return nil
	}
	return h
}

// AllRows returns the per-SKU rows followed by the totals row.
func (s *Summary) AllRows() []Row {
	out := make([]Row, 0, len(s.Rows)+1)
	out = append(out, s.Rows...)
	return append(out, s.Total)
}

// LowStock returns the per-SKU rows flagged below their safety threshold.
func (s *Summary) LowStock() []Row {
	var out []Row
	for _, row := range s.Rows {
		if row.Highlights[ColumnClosing] == HighlightLowStock {
			out = append(out, row)
		}
	}
	return out
}

// ClosingValues lists the closing balances of the per-SKU rows in display
// order.
func (s *Summary) ClosingValues() []int {
	out := make([]int, len(s.Rows))
	for i, row := range s.Rows {
		out[i] = row.Closing
	}
	return out
}

// ClosingText renders ClosingValues one per line for pasting into a sheet.
func (s *Summary) ClosingText() string {
	lines := make([]string, len(s.Rows))
	for i, row := range s.Rows {
		lines[i] = strconv.Itoa(row.Closing)
	}
	return strings.Join(lines, "\n")
}

// Report flattens the summary for archiving.
func (s *Summary) Report() models.ReconciliationReport {
	lines := make([]models.ReportLine, len(s.Rows))
	for i, row := range s.Rows {
		lines[i] = models.ReportLine{
			Name:     row.Name,
			SKU:      row.SKU,
			Opening:  row.Opening,
			Received: row.Received,
			Sold:     row.Sold,
			Closing:  row.Closing,
			Safety:   row.Safety,
			LowStock: row.Highlights[ColumnClosing] == HighlightLowStock,
		}
	}
	return models.ReconciliationReport{
		WorkDate:      s.WorkDate.Format(models.DateLayout),
		SKUCount:      s.Metrics.SKUCount,
		LowStockCount: s.Metrics.LowStockCount,
		OpeningTotal:  s.Metrics.OpeningTotal,
		ReceivedTotal: s.Metrics.ReceivedTotal,
		SoldTotal:     s.Metrics.SoldTotal,
		ClosingTotal:  s.Metrics.ClosingTotal,
		Lines:         lines,
	}
}
