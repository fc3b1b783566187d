package reconcile

import (
	"strings"
	"time"

	"github.com/lashiva/stockrecon/internal/domain/models"
	"github.com/lashiva/stockrecon/internal/tabular"
)

// ReadSales normalizes one sales table into records for workDate. The
// second result is false when the SKU or quantity column cannot be found.
// Rows are kept only when their SKU is non-blank, their quantity is
// positive and, if the table has a date column, their date is workDate.
// The third result counts rows dropped for a negative quantity.
func ReadSales(t *tabular.Table, workDate time.Time) ([]models.SalesRecord, bool, int) {
	skuCol := t.FindColumn(tabular.SalesSKU)
	qtyCol := t.FindColumn(tabular.SalesQuantity)
	dateCol := t.FindColumn(tabular.SalesDate)
	if skuCol < 0 || qtyCol < 0 {
		return nil, false, 0
	}

	var (
		out     []models.SalesRecord
		returns int
	)
	for _, row := range t.Rows {
		rec := models.SalesRecord{
			SKU:      tabular.NormalizeSKU(row[skuCol]),
			Quantity: tabular.ParseQuantity(row[qtyCol]).Int(),
		}
		if dateCol >= 0 {
			d, ok := tabular.ParseDate(row[dateCol])
			if !ok || !models.SameDay(d, workDate) {
				continue
			}
			rec.Date = d
		}
		if rec.SKU == "" {
			continue
		}
		if rec.Quantity <= 0 {
			if rec.Quantity < 0 {
				returns++
			}
			continue
		}
		out = append(out, rec)
	}

	return out, true, returns
}

// AggregateSales merges every usable sales table into SKU -> quantity
// sold on workDate. Tables without recognizable columns are skipped with
// a warning; ErrNoSalesData is returned when none is usable.
func AggregateSales(tables []*tabular.Table, workDate time.Time, notices *Notices) (map[string]int, error) {
	totals := make(map[string]int)
	usable := 0
	returns := 0

	for _, t := range tables {
		if t == nil {
			continue
		}
		records, ok, dropped := ReadSales(t, workDate)
		if !ok {
			notices.Warnf("sales file %q has no recognizable SKU/quantity columns and was skipped (columns: %s)",
				t.Name, strings.Join(t.Header, ", "))
			continue
		}
		usable++
		returns += dropped
		for _, rec := range records {
			totals[rec.SKU] += rec.Quantity
		}
	}

	if usable == 0 {
		return nil, ErrNoSalesData
	}
	if returns > 0 {
		notices.Infof("%d sales rows with negative quantity (returns) were excluded", returns)
	}

	return totals, nil
}
