package reconcile

import (
	"time"

	"github.com/lashiva/stockrecon/internal/domain/models"
)

// CarryStats counts how working-date opening balances were established.
type CarryStats struct {
	Created        int // rows synthesized because the date had none
	FromPrevious   int // openings taken from the previous day's closing
	FromSeed       int // openings taken from the baseline column
	Defaulted      int // openings that fell back to zero
	KeptExisting   int // openings already entered and left alone
	PreviousDay    time.Time
	PreviousDaySKU int // SKUs with a usable closing on the previous day
}

// CarryForward establishes every SKU's opening balance for workDate and
// returns the updated records.
//
// The previous day is strictly workDate minus one calendar day. Its closing
// balances are keyed by SKU with the last row winning. Baseline (seed)
// values and descriptive columns come from the first row of each SKU.
// Opening cells already filled for workDate are never overwritten.
func CarryForward(records []models.InventoryRecord, workDate time.Time) ([]models.InventoryRecord, CarryStats) {
	prevDay := models.Day(workDate).AddDate(0, 0, -1)
	stats := CarryStats{PreviousDay: prevDay}

	prev := make(map[string]int)
	for _, rec := range records {
		if !rec.OnDate(prevDay) {
			continue
		}
		if rec.Closing.Valid {
			prev[rec.SKU] = rec.Closing.Value
		} else {
			delete(prev, rec.SKU)
		}
	}
	stats.PreviousDaySKU = len(prev)

	var order []string
	first := make(map[string]models.InventoryRecord)
	hasToday := false
	for _, rec := range records {
		if rec.OnDate(workDate) {
			hasToday = true
		}
		if rec.SKU == "" {
			continue
		}
		if _, ok := first[rec.SKU]; !ok {
			first[rec.SKU] = rec
			order = append(order, rec.SKU)
		}
	}

	opening := func(sku string) int {
		if v, ok := prev[sku]; ok {
			stats.FromPrevious++
			return v
		}
		if seed := first[sku].Seed; seed.Present {
			stats.FromSeed++
			return seed.Int()
		}
		stats.Defaulted++
		return 0
	}

	if !hasToday {
		day := models.Day(workDate)
		for _, sku := range order {
			base := first[sku]
			records = append(records, models.InventoryRecord{
				Name:     base.Name,
				Date:     day,
				RawDate:  day.Format(models.DateLayout),
				SKU:      sku,
				Opening:  models.Qty(nonNegative(opening(sku))),
				Received: models.Qty(0),
				Safety:   base.Safety,
			})
			stats.Created++
		}
		return records, stats
	}

	for i := range records {
		rec := &records[i]
		if !rec.OnDate(workDate) {
			continue
		}
		if rec.Opening.Present {
			stats.KeptExisting++
			rec.Opening = models.Qty(nonNegative(rec.Opening.Int()))
			continue
		}
		rec.Opening = models.Qty(nonNegative(opening(rec.SKU)))
	}

	return records, stats
}

func nonNegative(v int) int {
	if v < 0 {
		return 0
	}
	return v
}
