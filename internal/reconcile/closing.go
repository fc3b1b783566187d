package reconcile

import (
	"time"

	"github.com/lashiva/stockrecon/internal/domain/models"
)

// ClosingBalance is opening + received - sold, floored at zero.
func ClosingBalance(opening, received, sold int) int {
	closing := opening + received - sold
	if closing < 0 {
		return 0
	}
	return closing
}

// ApplyClosing writes closing balances into the workDate rows only.
func ApplyClosing(records []models.InventoryRecord, workDate time.Time, sold map[string]int) {
	for i := range records {
		rec := &records[i]
		if !rec.OnDate(workDate) {
			continue
		}
		rec.Closing = models.Qty(ClosingBalance(rec.Opening.Int(), rec.Received.Int(), sold[rec.SKU]))
	}
}
