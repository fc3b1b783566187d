package tabular

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lashiva/stockrecon/internal/domain/models"
)

var dateLayouts = []string{
	"2006-1-2",
	"2006/1/2",
	"2006.1.2",
	"20060102",
	"2006-1-2 15:04:05",
	"2006/1/2 15:04:05",
	"2006-1-2 15:04",
	"2006/1/2 15:04",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"1/2/2006",
	"1/2/2006 15:04:05",
	"2006年1月2日",
	"Jan 2, 2006",
	"2 Jan 2006",
	"02-Jan-2006",
}

// Spreadsheet serial day numbers count from this epoch.
var serialEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// ParseDate parses a calendar date permissively. The second result is
// false when nothing matched; callers treat that as a missing date.
func ParseDate(value string) (time.Time, bool) {
	s := strings.TrimSpace(value)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return models.Day(t), true
		}
	}

	if n, ok := serialDay(s); ok {
		return serialEpoch.AddDate(0, 0, n), true
	}

	if len(s) > 10 {
		return ParseDate(s[:10])
	}

	return time.Time{}, false
}

// serialDay accepts a five-digit spreadsheet serial with an optional time
// fraction ("45445", "45445.5") and returns its whole days.
func serialDay(s string) (int, bool) {
	whole, frac, _ := strings.Cut(s, ".")
	if len(whole) != 5 || !allDigits(whole) || !allDigits(frac) {
		return 0, false
	}
	n, err := strconv.Atoi(whole)
	return n, err == nil
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ParseQuantity reads a count cell. Blank cells and the literal "nan" are
// not present; other unparseable text is present but not valid. Decimals
// truncate toward zero.
func ParseQuantity(value string) models.Quantity {
	s := strings.TrimSpace(value)
	if s == "" || strings.EqualFold(s, "nan") {
		return models.Quantity{}
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return models.Quantity{Present: true}
	}
	return models.Qty(int(d.IntPart()))
}

// NormalizeSKU trims and upper-cases a SKU for exact matching.
func NormalizeSKU(value string) string {
	return strings.ToUpper(strings.TrimSpace(value))
}
