// Package reconciliation runs one reconciliation end to end: compute, build
// the summary, then record the run in the audit history and the optional
// archive and alert integrations.
package reconciliation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lashiva/stockrecon/internal/audit"
	"github.com/lashiva/stockrecon/internal/domain/models"
	"github.com/lashiva/stockrecon/internal/reconcile"
	"github.com/lashiva/stockrecon/internal/report"
	"github.com/lashiva/stockrecon/internal/tabular"
)

// Archive stores report snapshots.
type Archive interface {
	SaveReport(ctx context.Context, report models.ReconciliationReport) error
}

// Alerter notifies about low-stock SKUs.
type Alerter interface {
	NotifyLowStock(ctx context.Context, summary *report.Summary) (bool, error)
}

// Request is one batch of uploaded or fetched tables.
type Request struct {
	Inventory       *tabular.Table
	Sales           []*tabular.Table
	Exchange        *tabular.Table
	ExchangeEnabled bool
	WorkDate        time.Time
}

// Outcome is a run's product. Warnings lists best-effort side effects
// that failed; they never change the computed figures.
type Outcome struct {
	RunID    string
	Result   *reconcile.Result
	Summary  *report.Summary
	Warnings []string
}

// Service orchestrates a run.
type Service struct {
	engine  *reconcile.Engine
	history audit.Recorder
	archive Archive
	alerter Alerter
	logger  *zap.Logger
	now     func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithArchive stores every successful report in a.
func WithArchive(a Archive) Option {
	return func(s *Service) { s.archive = a }
}

// WithAlerter sends low-stock alerts after every successful run.
func WithAlerter(a Alerter) Option {
	return func(s *Service) { s.alerter = a }
}

// WithClock overrides the time source used for audit timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService wires a reconciliation service. history may be nil to skip
// auditing.
func NewService(engine *reconcile.Engine, history audit.Recorder, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{engine: engine, history: history, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dates lists the distinct ledger dates of inventory and the working date
// that would be used by default.
func (s *Service) Dates(inventory *tabular.Table) ([]time.Time, time.Time, error) {
	l, err := s.engine.ParseLedger(inventory)
	if err != nil {
		return nil, time.Time{}, err
	}
	return l.Dates(), s.engine.DefaultWorkDate(l), nil
}

// Reconcile computes the run. On a fatal error found after the ledger was
// read, the Outcome is still returned with only Result set so callers can
// show the notices gathered before the failure.
func (s *Service) Reconcile(ctx context.Context, req Request) (*Outcome, error) {
	res, err := s.engine.Run(reconcile.Input{
		Inventory:       req.Inventory,
		Sales:           req.Sales,
		Exchange:        req.Exchange,
		ExchangeEnabled: req.ExchangeEnabled,
		WorkDate:        req.WorkDate,
	})
	if err != nil {
		s.logger.Warn("reconciliation failed", zap.Error(err))
		if res == nil {
			return nil, err
		}
		return &Outcome{Result: res}, err
	}

	out := &Outcome{
		RunID:   uuid.NewString(),
		Result:  res,
		Summary: report.Build(res),
	}
	now := s.now()
	workDate := res.WorkDate.Format(models.DateLayout)
	log := s.logger.With(zap.String("run_id", out.RunID), zap.String("work_date", workDate))

	if s.history != nil {
		rec := models.AuditRecord{
			Timestamp:       now,
			WorkDate:        workDate,
			InventoryFile:   req.Inventory.Name,
			SalesFileCount:  len(req.Sales),
			ExchangeEnabled: req.ExchangeEnabled,
		}
		if err := s.history.Append(rec); err != nil {
			log.Warn("audit history not written", zap.Error(err))
			out.Warnings = append(out.Warnings, fmt.Sprintf("audit history not written: %v", err))
		}
	}

	if s.archive != nil {
		doc := out.Summary.Report()
		doc.RunID = out.RunID
		doc.InventorySource = req.Inventory.Name
		doc.SalesSources = tableNames(req.Sales)
		doc.ExchangeEnabled = req.ExchangeEnabled
		doc.Notices = res.Notices.Messages()
		doc.CreatedAt = now.UTC()
		if err := s.archive.SaveReport(ctx, doc); err != nil {
			log.Warn("report not archived", zap.Error(err))
			out.Warnings = append(out.Warnings, fmt.Sprintf("report not archived: %v", err))
		}
	}

	if s.alerter != nil {
		if _, err := s.alerter.NotifyLowStock(ctx, out.Summary); err != nil {
			log.Warn("low-stock alert not sent", zap.Error(err))
			out.Warnings = append(out.Warnings, fmt.Sprintf("low-stock alert not sent: %v", err))
		}
	}

	log.Info("reconciliation completed",
		zap.Int("skus", out.Summary.Metrics.SKUCount),
		zap.Int("low_stock", out.Summary.Metrics.LowStockCount),
		zap.Int("warnings", len(out.Warnings)))
	return out, nil
}

func tableNames(tables []*tabular.Table) []string {
	names := make([]string, 0, len(tables))
	for _, t := range tables {
		names = append(names, t.Name)
	}
	return names
}
