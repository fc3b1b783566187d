// Package sheetsync reconciles the ledger kept in a Google Sheet and writes
// the updated ledger back over it.
package sheetsync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lashiva/stockrecon/internal/config"
	"github.com/lashiva/stockrecon/internal/repository/sheets"
	"github.com/lashiva/stockrecon/internal/service/reconciliation"
	"github.com/lashiva/stockrecon/internal/tabular"
)

// ErrRunInProgress is returned when a sync is triggered while another one
// has not finished.
var ErrRunInProgress = errors.New("sheetsync: a run is already in progress")

// Reconciler is the part of the reconciliation service the job needs.
type Reconciler interface {
	Reconcile(ctx context.Context, req reconciliation.Request) (*reconciliation.Outcome, error)
}

// Service runs the scheduled sheet reconciliation.
type Service struct {
	repo       sheets.Repository
	ranges     config.SheetsConfig
	reconciler Reconciler
	loc        *time.Location
	now        func() time.Time
	logger     *zap.Logger

	mu sync.Mutex
}

// NewService builds a sync job. Working dates are "today" in loc.
func NewService(repo sheets.Repository, ranges config.SheetsConfig, reconciler Reconciler, loc *time.Location, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Service{repo: repo, ranges: ranges, reconciler: reconciler, loc: loc, now: time.Now, logger: logger}
}

// Run reconciles today's ledger rows and replaces the ledger range with the
// updated ledger.
func (s *Service) Run(ctx context.Context) (*reconciliation.Outcome, error) {
	if !s.mu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer s.mu.Unlock()

	inventory, err := s.readTable(ctx, s.ranges.LedgerRange)
	if err != nil {
		return nil, err
	}
	sales, err := s.readTable(ctx, s.ranges.SalesRange)
	if err != nil {
		return nil, err
	}

	req := reconciliation.Request{
		Inventory: inventory,
		Sales:     []*tabular.Table{sales},
		WorkDate:  workDate(s.now().In(s.loc)),
	}
	if s.ranges.ExchangeRange != "" {
		exchange, err := s.readTable(ctx, s.ranges.ExchangeRange)
		switch {
		case errors.Is(err, tabular.ErrEmptyTable):
			s.logger.Info("exchange range empty; skipping exchange adjustment", zap.String("range", s.ranges.ExchangeRange))
		case err != nil:
			return nil, err
		default:
			req.Exchange = exchange
		}
		req.ExchangeEnabled = true
	}

	out, err := s.reconciler.Reconcile(ctx, req)
	if err != nil {
		return out, fmt.Errorf("reconcile sheet ledger: %w", err)
	}

	updated := out.Result.Ledger.Table(out.Result.WorkDate)
	if err := s.repo.ReplaceRange(ctx, s.ranges.LedgerRange, updated.Values()); err != nil {
		return out, fmt.Errorf("write ledger range: %w", err)
	}

	s.logger.Info("sheet ledger updated",
		zap.String("run_id", out.RunID),
		zap.String("range", s.ranges.LedgerRange),
		zap.Int("rows", len(updated.Rows)))
	return out, nil
}

func (s *Service) readTable(ctx context.Context, sheetRange string) (*tabular.Table, error) {
	values, err := s.repo.ReadRange(ctx, sheetRange)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", sheetRange, err)
	}
	return tabular.FromValues(sheetRange, values)
}

// workDate keeps the calendar date of t in its own location.
func workDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
