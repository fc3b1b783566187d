// Package reconcile computes a working date's inventory balances from the
// ledger, the day's sales and, optionally, exchange records.
package reconcile

import (
	"time"

	"go.uber.org/zap"

	"github.com/lashiva/stockrecon/internal/domain/models"
	"github.com/lashiva/stockrecon/internal/ledger"
	"github.com/lashiva/stockrecon/internal/tabular"
)

// Input is one batch of tables to reconcile.
type Input struct {
	Inventory       *tabular.Table
	Sales           []*tabular.Table
	Exchange        *tabular.Table
	ExchangeEnabled bool
	// WorkDate defaults to the latest date in the ledger when zero.
	WorkDate time.Time
}

// Result is the outcome of a run. Sold is kept apart from the ledger and
// is never written into it.
type Result struct {
	WorkDate time.Time
	Ledger   *ledger.Ledger
	Sold     map[string]int
	Carry    CarryStats
	Notices  Notices
}

// Engine runs the reconciliation steps in order.
type Engine struct {
	columns ledger.Columns
	now     func() time.Time
	logger  *zap.Logger
}

// NewEngine builds an engine for ledgers laid out with columns.
func NewEngine(columns ledger.Columns, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{columns: columns, now: time.Now, logger: logger}
}

// ResolveWorkDate picks the requested date, else the ledger's latest date,
// else today.
func ResolveWorkDate(l *ledger.Ledger, requested time.Time, now time.Time) time.Time {
	if !requested.IsZero() {
		return models.Day(requested)
	}
	if latest, ok := l.LatestDate(); ok {
		return latest
	}
	return models.Day(now)
}

// ParseLedger reads an inventory table with the engine's column labels.
func (e *Engine) ParseLedger(t *tabular.Table) (*ledger.Ledger, error) {
	if t == nil {
		return nil, ErrNoInventory
	}
	return ledger.Parse(t, e.columns)
}

// DefaultWorkDate is the working date used when the operator picks none.
func (e *Engine) DefaultWorkDate(l *ledger.Ledger) time.Time {
	return ResolveWorkDate(l, time.Time{}, e.now())
}

// Run reconciles one batch. When an error occurs after the ledger was
// read, the returned Result is non-nil and carries the notices gathered
// so far.
func (e *Engine) Run(in Input) (*Result, error) {
	l, err := e.ParseLedger(in.Inventory)
	if err != nil {
		return nil, err
	}

	res := &Result{
		WorkDate: ResolveWorkDate(l, in.WorkDate, e.now()),
		Ledger:   l,
	}
	day := res.WorkDate

	l.Records, res.Carry = CarryForward(l.Records, day)
	if res.Carry.Created > 0 {
		res.Notices.Infof("created %d rows for %s carrying forward from %s",
			res.Carry.Created, day.Format(models.DateLayout), res.Carry.PreviousDay.Format(models.DateLayout))
	}
	if res.Carry.PreviousDaySKU == 0 {
		res.Notices.Infof("no closing balances found for %s; openings fell back to the baseline or zero",
			res.Carry.PreviousDay.Format(models.DateLayout))
	}

	sold, err := AggregateSales(in.Sales, day, &res.Notices)
	if err != nil {
		return res, err
	}

	if in.ExchangeEnabled {
		if in.Exchange != nil {
			sold = AdjustForExchanges(sold, in.Exchange, day, &res.Notices)
		} else {
			res.Notices.Infof("exchange adjustment is enabled but no exchange file was provided")
		}
	} else if in.Exchange != nil {
		res.Notices.Infof("exchange file %q ignored because exchange adjustment is disabled", in.Exchange.Name)
	}
	res.Sold = sold

	ApplyClosing(l.Records, day, sold)

	e.logger.Info("reconciliation computed",
		zap.String("work_date", day.Format(models.DateLayout)),
		zap.String("inventory", in.Inventory.Name),
		zap.Int("sales_tables", len(in.Sales)),
		zap.Int("rows_created", res.Carry.Created),
		zap.Int("skus_sold", len(sold)))

	return res, nil
}
