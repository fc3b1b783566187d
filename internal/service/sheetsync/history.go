package sheetsync

import (
	"context"
	"fmt"
	"time"

	"github.com/lashiva/stockrecon/internal/audit"
	"github.com/lashiva/stockrecon/internal/domain/models"
	"github.com/lashiva/stockrecon/internal/repository/sheets"
)

const historyTimeout = 20 * time.Second

// History appends audit rows to a range of the spreadsheet. It satisfies
// audit.Recorder.
type History struct {
	repo       sheets.Repository
	sheetRange string
}

// NewHistory returns a recorder writing to sheetRange.
func NewHistory(repo sheets.Repository, sheetRange string) *History {
	return &History{repo: repo, sheetRange: sheetRange}
}

// Append writes rec, adding the header row first when the range is empty.
func (h *History) Append(rec models.AuditRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), historyTimeout)
	defer cancel()

	existing, err := h.repo.ReadRange(ctx, h.sheetRange)
	if err != nil {
		return fmt.Errorf("read history range: %w", err)
	}
	if len(existing) == 0 {
		if err := h.repo.AppendRow(ctx, h.sheetRange, cells(audit.Header)); err != nil {
			return fmt.Errorf("write history header: %w", err)
		}
	}

	if err := h.repo.AppendRow(ctx, h.sheetRange, cells(audit.Row(rec))); err != nil {
		return fmt.Errorf("append history row: %w", err)
	}
	return nil
}

func cells(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
