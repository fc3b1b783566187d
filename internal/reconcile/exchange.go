package reconcile

import (
	"time"

	"github.com/lashiva/stockrecon/internal/domain/models"
	"github.com/lashiva/stockrecon/internal/tabular"
)

// ExchangeStats counts exchange rows that could only be applied in part or
// not at all.
type ExchangeStats struct {
	HalfBlank int // one SKU blank; only the filled side is applied
	Blank     int // both SKUs blank; ignored
}

// ReadExchanges normalizes an exchange table into records for workDate.
// The second result is false when the original or replacement SKU column
// cannot be found. A missing or unreadable quantity counts as one unit.
// Records with one blank SKU are kept; ApplyExchanges applies their
// filled side only.
func ReadExchanges(t *tabular.Table, workDate time.Time) ([]models.ExchangeRecord, bool, ExchangeStats) {
	var stats ExchangeStats
	origCol := t.FindColumn(tabular.ExchangeOriginal)
	newCol := t.FindColumn(tabular.ExchangeReplacement)
	qtyCol := t.FindColumn(tabular.ExchangeQuantity)
	dateCol := t.FindColumn(tabular.ExchangeDate)
	if origCol < 0 || newCol < 0 {
		return nil, false, stats
	}

	var out []models.ExchangeRecord
	for _, row := range t.Rows {
		rec := models.ExchangeRecord{
			Original:    tabular.NormalizeSKU(row[origCol]),
			Replacement: tabular.NormalizeSKU(row[newCol]),
			Quantity:    1,
		}
		if qtyCol >= 0 {
			if q := tabular.ParseQuantity(row[qtyCol]); q.Valid {
				rec.Quantity = q.Value
			}
		}
		if dateCol >= 0 {
			d, ok := tabular.ParseDate(row[dateCol])
			if !ok || !models.SameDay(d, workDate) {
				continue
			}
			rec.Date = d
		}
		switch {
		case rec.Original == "" && rec.Replacement == "":
			stats.Blank++
			continue
		case rec.Original == "" || rec.Replacement == "":
			stats.HalfBlank++
		}
		out = append(out, rec)
	}
	return out, true, stats
}

// ApplyExchanges moves sold quantity from each original SKU to its
// replacement and returns a new mapping. Results may be negative; the
// closing-balance floor handles that later.
func ApplyExchanges(sales map[string]int, exchanges []models.ExchangeRecord) map[string]int {
	plus := make(map[string]int)
	minus := make(map[string]int)
	for _, ex := range exchanges {
		if ex.Replacement != "" {
			plus[ex.Replacement] += ex.Quantity
		}
		if ex.Original != "" {
			minus[ex.Original] += ex.Quantity
		}
	}

	adjusted := make(map[string]int, len(sales)+len(plus)+len(minus))
	for sku, qty := range sales {
		adjusted[sku] = qty
	}
	for sku, qty := range plus {
		adjusted[sku] += qty
	}
	for sku, qty := range minus {
		adjusted[sku] -= qty
	}
	return adjusted
}

// AdjustForExchanges applies an exchange table to the sales mapping. When
// the table lacks identifiable SKU columns the mapping passes through
// unchanged and a warning is recorded.
func AdjustForExchanges(sales map[string]int, t *tabular.Table, workDate time.Time, notices *Notices) map[string]int {
	exchanges, ok, stats := ReadExchanges(t, workDate)
	if !ok {
		notices.Warnf("exchange file %q has no recognizable original/replacement SKU columns; sales were not adjusted", t.Name)
		return sales
	}

	notices.Infof("sales adjusted for %d exchange records", len(exchanges))
	if stats.HalfBlank > 0 {
		notices.Warnf("%d exchange rows in %q have a blank original or replacement SKU; only the filled side was applied",
			stats.HalfBlank, t.Name)
	}
	if stats.Blank > 0 {
		notices.Warnf("%d exchange rows in %q have no SKU on either side and were ignored", stats.Blank, t.Name)
	}
	return ApplyExchanges(sales, exchanges)
}
