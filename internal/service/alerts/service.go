// Package alerts notifies the store manager about SKUs that closed below
// their safety threshold.
package alerts

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/lashiva/stockrecon/internal/domain/models"
	"github.com/lashiva/stockrecon/internal/report"
	"github.com/lashiva/stockrecon/pkg/clients/whatsapp"
)

// maxListed caps the SKUs listed in one message.
const maxListed = 30

// Service sends low-stock summaries over WhatsApp.
type Service struct {
	client    whatsapp.Client
	recipient string
	logger    *zap.Logger
}

// NewService builds an alert service that writes to recipient.
func NewService(client whatsapp.Client, recipient string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{client: client, recipient: recipient, logger: logger}
}

// NotifyLowStock sends one message when the summary has low-stock rows and
// reports whether a message was sent.
func (s *Service) NotifyLowStock(ctx context.Context, summary *report.Summary) (bool, error) {
	if summary == nil || len(summary.LowStock()) == 0 {
		return false, nil
	}

	id, err := s.client.SendText(ctx, whatsapp.TextMessage{
		To:   s.recipient,
		Body: FormatLowStock(summary),
	})
	if err != nil {
		return false, fmt.Errorf("send low-stock alert: %w", err)
	}

	s.logger.Info("low-stock alert sent",
		zap.String("message_id", id),
		zap.Int("low_stock", summary.Metrics.LowStockCount))
	return true, nil
}

// FormatLowStock renders the alert body.
func FormatLowStock(summary *report.Summary) string {
	var b strings.Builder
	m := summary.Metrics

	fmt.Fprintf(&b, "Inventory %s\n", summary.WorkDate.Format(models.DateLayout))
	fmt.Fprintf(&b, "SKUs: %d | opening %d | received %d | sold %d | closing %d\n",
		m.SKUCount, m.OpeningTotal, m.ReceivedTotal, m.SoldTotal, m.ClosingTotal)
	fmt.Fprintf(&b, "Below safety stock: %d", m.LowStockCount)

	low := summary.LowStock()
	for i, row := range low {
		if i == maxListed {
			fmt.Fprintf(&b, "\n... and %d more", len(low)-maxListed)
			break
		}
		name := row.SKU
		if row.Name != "" {
			name = row.SKU + " " + row.Name
		}
		fmt.Fprintf(&b, "\n- %s: %d / %d", name, row.Closing, *row.Safety)
	}
	return b.String()
}
