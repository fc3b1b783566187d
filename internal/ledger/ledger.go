// Package ledger maps the inventory ledger table onto typed records and
// back. The ledger uses a closed set of column labels configured in
// Columns; extra columns ride along untouched.
package ledger

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/lashiva/stockrecon/internal/domain/models"
	"github.com/lashiva/stockrecon/internal/tabular"
)

// ErrMissingColumns is wrapped by MissingColumnsError.
var ErrMissingColumns = errors.New("inventory ledger is missing required columns")

// MissingColumnsError lists the required ledger labels that were not found.
type MissingColumnsError struct {
	Missing []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMissingColumns.Error(), strings.Join(e.Missing, ", "))
}

func (e *MissingColumnsError) Unwrap() error { return ErrMissingColumns }

// Columns holds the ledger header labels.
type Columns struct {
	Name     string
	Date     string
	SKU      string
	Opening  string
	Received string
	Closing  string
	Safety   string
	Seed     string // optional baseline opening balance
}

// DefaultColumns returns the labels used by the shop's ledger template.
func DefaultColumns() Columns {
	return Columns{
		Name:     "名称（关联）",
		Date:     "日期",
		SKU:      "SKU",
		Opening:  "初期库存（承接）",
		Received: "当日入库",
		Closing:  "期末库存",
		Safety:   "安全库存数",
		Seed:     "初期库存（基准）",
	}
}

// Required lists the labels a ledger must carry.
func (c Columns) Required() []string {
	return []string{c.Name, c.Date, c.SKU, c.Opening, c.Received, c.Closing, c.Safety}
}

type layout struct {
	name, date, sku, opening, received, closing, safety, seed int
}

// Ledger is a parsed inventory ledger.
type Ledger struct {
	Source  string
	Header  []string
	Records []models.InventoryRecord

	cols   Columns
	layout layout
}

// Parse reads an inventory table. A *MissingColumnsError is returned when
// any required label is absent.
func Parse(t *tabular.Table, cols Columns) (*Ledger, error) {
	var missing []string
	find := func(label string, required bool) int {
		idx := t.ColumnIndex(label)
		if idx < 0 && required {
			missing = append(missing, label)
		}
		return idx
	}

	lay := layout{
		name:     find(cols.Name, true),
		date:     find(cols.Date, true),
		sku:      find(cols.SKU, true),
		opening:  find(cols.Opening, true),
		received: find(cols.Received, true),
		closing:  find(cols.Closing, true),
		safety:   find(cols.Safety, true),
		seed:     -1,
	}
	if cols.Seed != "" {
		lay.seed = find(cols.Seed, false)
	}
	if len(missing) > 0 {
		return nil, &MissingColumnsError{Missing: missing}
	}

	l := &Ledger{
		Source:  t.Name,
		Header:  append([]string(nil), t.Header...),
		Records: make([]models.InventoryRecord, 0, len(t.Rows)),
		cols:    cols,
		layout:  lay,
	}

	for _, row := range t.Rows {
		rec := models.InventoryRecord{
			Name:     strings.TrimSpace(row[lay.name]),
			RawDate:  row[lay.date],
			SKU:      tabular.NormalizeSKU(row[lay.sku]),
			Opening:  tabular.ParseQuantity(row[lay.opening]),
			Received: tabular.ParseQuantity(row[lay.received]),
			Closing:  tabular.ParseQuantity(row[lay.closing]),
			Safety:   tabular.ParseQuantity(row[lay.safety]),
			Cells:    append([]string(nil), row...),
		}
		if d, ok := tabular.ParseDate(row[lay.date]); ok {
			rec.Date = d
		}
		if lay.seed >= 0 {
			rec.Seed = tabular.ParseQuantity(row[lay.seed])
		}
		l.Records = append(l.Records, rec)
	}

	return l, nil
}

// Columns returns the labels the ledger was parsed with.
func (l *Ledger) Columns() Columns { return l.cols }

// HasSeed reports whether the ledger carries the baseline column.
func (l *Ledger) HasSeed() bool { return l.layout.seed >= 0 }

// Dates returns the distinct parseable dates in ascending order.
func (l *Ledger) Dates() []time.Time {
	seen := make(map[time.Time]struct{})
	var dates []time.Time
	for _, rec := range l.Records {
		if rec.Date.IsZero() {
			continue
		}
		if _, ok := seen[rec.Date]; ok {
			continue
		}
		seen[rec.Date] = struct{}{}
		dates = append(dates, rec.Date)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

// LatestDate returns the maximum parseable date.
func (l *Ledger) LatestDate() (time.Time, bool) {
	dates := l.Dates()
	if len(dates) == 0 {
		return time.Time{}, false
	}
	return dates[len(dates)-1], true
}

// Table renders the ledger back to a table in the source column order.
// SKU and date cells are written in normalized form; for rows on workDate
// the opening and closing balances are rewritten from the records.
func (l *Ledger) Table(workDate time.Time) *tabular.Table {
	out := &tabular.Table{
		Name:   l.Source,
		Header: append([]string(nil), l.Header...),
		Rows:   make([][]string, 0, len(l.Records)),
	}
	lay := l.layout

	for _, rec := range l.Records {
		row := make([]string, len(l.Header))
		if rec.Cells != nil {
			copy(row, rec.Cells)
		} else {
			row[lay.name] = rec.Name
			row[lay.received] = rec.Received.String()
			row[lay.safety] = rec.Safety.String()
			if lay.seed >= 0 {
				row[lay.seed] = rec.Seed.String()
			}
		}

		row[lay.sku] = rec.SKU
		if !rec.Date.IsZero() {
			row[lay.date] = rec.Date.Format(models.DateLayout)
		}
		if rec.OnDate(workDate) {
			row[lay.opening] = rec.Opening.String()
			row[lay.closing] = rec.Closing.String()
		}
		out.Rows = append(out.Rows, row)
	}

	return out
}
