package models

import (
	"strconv"
	"time"
)

// Quantity is a ledger cell holding a count. A blank cell is not Present.
// Text that is not a number is Present but not Valid and counts as zero.
type Quantity struct {
	Value   int
	Present bool
	Valid   bool
}

// Qty builds a present, numeric quantity.
func Qty(v int) Quantity {
	return Quantity{Value: v, Present: true, Valid: true}
}

// Int returns the value used in arithmetic: zero unless the cell is numeric.
func (q Quantity) Int() int {
	if !q.Valid {
		return 0
	}
	return q.Value
}

// String renders the cell the way it is written back to a ledger.
func (q Quantity) String() string {
	if !q.Present {
		return ""
	}
	return strconv.Itoa(q.Int())
}

// InventoryRecord is one ledger row: a SKU's counts for a single date.
type InventoryRecord struct {
	Name     string
	Date     time.Time // zero when the ledger cell could not be parsed
	RawDate  string
	SKU      string
	Opening  Quantity
	Received Quantity
	Closing  Quantity
	Safety   Quantity
	Seed     Quantity

	// Cells is the source row aligned to the ledger header; nil for rows
	// created during reconciliation.
	Cells []string
}

// OnDate reports whether the record belongs to the given calendar day.
func (r InventoryRecord) OnDate(day time.Time) bool {
	return !r.Date.IsZero() && SameDay(r.Date, day)
}

// SalesRecord captures one sales line after column normalization.
type SalesRecord struct {
	SKU      string
	Quantity int
	Date     time.Time
}

// ExchangeRecord captures one exchange line: Quantity units of Original
// were swapped for Replacement.
type ExchangeRecord struct {
	Original    string
	Replacement string
	Quantity    int
	Date        time.Time
}

// DateLayout is the canonical calendar-date rendering.
const DateLayout = "2006-01-02"

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SameDay compares calendar dates, ignoring clock and location.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
