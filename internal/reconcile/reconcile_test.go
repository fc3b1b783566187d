package reconcile

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lashiva/stockrecon/internal/domain/models"
	"github.com/lashiva/stockrecon/internal/ledger"
	"github.com/lashiva/stockrecon/internal/tabular"
)

const ledgerHeader = "名称（关联）,日期,SKU,初期库存（承接）,当日入库,期末库存,安全库存数"

func day(s string) time.Time {
	d, err := time.Parse(models.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

func mustTable(t *testing.T, name string, lines ...string) *tabular.Table {
	t.Helper()
	table, err := tabular.ReadCSV(name, strings.NewReader(strings.Join(lines, "\n")))
	require.NoError(t, err)
	return table
}

func newTestEngine() *Engine {
	e := NewEngine(ledger.DefaultColumns(), nil)
	e.now = func() time.Time { return day("2024-06-30") }
	return e
}

func recordsOn(l *ledger.Ledger, d time.Time) map[string]models.InventoryRecord {
	out := make(map[string]models.InventoryRecord)
	for _, rec := range l.Records {
		if rec.OnDate(d) {
			out[rec.SKU] = rec
		}
	}
	return out
}

func TestRunCarriesForwardIntoNewDay(t *testing.T) {
	inventory := mustTable(t, "ledger.csv",
		ledgerHeader,
		"Dress,2024-06-01,x1,40,10,50,5",
		"Skirt,2024-06-01,Y2,8,0,8,10",
	)
	sales := mustTable(t, "sales.csv",
		"SKU,数量,日期",
		"X1,12,2024-06-02",
		"X1,3,2024-06-01",
	)

	res, err := newTestEngine().Run(Input{
		Inventory: inventory,
		Sales:     []*tabular.Table{sales},
		WorkDate:  day("2024-06-02"),
	})
	require.NoError(t, err)

	today := recordsOn(res.Ledger, day("2024-06-02"))
	require.Len(t, today, 2)

	x1 := today["X1"]
	assert.Equal(t, "Dress", x1.Name)
	assert.Equal(t, 50, x1.Opening.Int())
	assert.Equal(t, 0, x1.Received.Int())
	assert.Equal(t, 38, x1.Closing.Int())
	assert.Equal(t, 5, x1.Safety.Int())
	assert.Equal(t, 12, res.Sold["X1"])

	y2 := today["Y2"]
	assert.Equal(t, 8, y2.Opening.Int())
	assert.Equal(t, 8, y2.Closing.Int())

	assert.Equal(t, 2, res.Carry.Created)
	assert.Equal(t, 2, res.Carry.FromPrevious)
}

func TestRunDefaultsWorkDateToLatestLedgerDate(t *testing.T) {
	inventory := mustTable(t, "ledger.csv",
		ledgerHeader,
		"A,2024-06-01,A1,1,0,1,",
		"A,2024/06/03,A1,,2,,",
		"A,garbage,A1,,,,",
	)
	sales := mustTable(t, "sales.csv", "sku,qty", "a1,1")

	res, err := newTestEngine().Run(Input{Inventory: inventory, Sales: []*tabular.Table{sales}})
	require.NoError(t, err)
	assert.Equal(t, day("2024-06-03"), res.WorkDate)

	// 2024-06-02 is a gap: nothing to carry, no baseline column, so zero.
	rec := recordsOn(res.Ledger, res.WorkDate)["A1"]
	assert.Equal(t, 0, rec.Opening.Int())
	assert.Equal(t, 1, rec.Closing.Int())
}

func TestRunDefaultsWorkDateToTodayForUndatedLedger(t *testing.T) {
	inventory := mustTable(t, "ledger.csv", ledgerHeader, "A,,A1,1,0,1,")
	sales := mustTable(t, "sales.csv", "sku,qty", "a1,1")

	res, err := newTestEngine().Run(Input{Inventory: inventory, Sales: []*tabular.Table{sales}})
	require.NoError(t, err)
	assert.Equal(t, day("2024-06-30"), res.WorkDate)
}

func TestCarryForwardFillsOnlyBlankOpenings(t *testing.T) {
	records := []models.InventoryRecord{
		{SKU: "A", Date: day("2024-06-01"), Closing: models.Qty(30)},
		{SKU: "B", Date: day("2024-06-01"), Closing: models.Qty(9)},
		{SKU: "A", Date: day("2024-06-02"), Opening: models.Qty(25)},
		{SKU: "B", Date: day("2024-06-02")},
		{SKU: "C", Date: day("2024-06-02"), Opening: models.Quantity{Present: true}},
		{SKU: "D", Date: day("2024-06-02"), Opening: models.Qty(-4)},
	}

	out, stats := CarryForward(records, day("2024-06-02"))
	require.Len(t, out, len(records), "no rows are created when the date exists")

	assert.Equal(t, 25, out[2].Opening.Int(), "manual value kept")
	assert.Equal(t, 9, out[3].Opening.Int(), "blank filled from previous day")
	assert.Equal(t, 0, out[4].Opening.Int(), "non-numeric text is kept as entered and counts as zero")
	assert.True(t, out[4].Opening.Valid)
	assert.Equal(t, 0, out[5].Opening.Int(), "openings are non-negative")

	assert.Equal(t, 3, stats.KeptExisting)
	assert.Equal(t, 1, stats.FromPrevious)
}

func TestCarryForwardIsIdempotentForManualOpenings(t *testing.T) {
	records := []models.InventoryRecord{
		{SKU: "A", Date: day("2024-06-01"), Closing: models.Qty(30)},
		{SKU: "A", Date: day("2024-06-02"), Opening: models.Qty(12), Received: models.Qty(1)},
		{SKU: "B", Date: day("2024-06-02")},
	}

	first, _ := CarryForward(records, day("2024-06-02"))
	ApplyClosing(first, day("2024-06-02"), map[string]int{"A": 2})
	second, _ := CarryForward(first, day("2024-06-02"))

	assert.Equal(t, 12, second[1].Opening.Int())
	assert.Equal(t, first[2].Opening, second[2].Opening)
}

func TestCarryForwardPreviousDayLastRowWins(t *testing.T) {
	records := []models.InventoryRecord{
		{SKU: "A", Date: day("2024-06-01"), Closing: models.Qty(30)},
		{SKU: "A", Date: day("2024-06-01"), Closing: models.Qty(31)},
		{SKU: "B", Date: day("2024-06-01"), Closing: models.Qty(5)},
		{SKU: "B", Date: day("2024-06-01")},
	}

	out, _ := CarryForward(records, day("2024-06-02"))
	created := out[len(records):]
	require.Len(t, created, 2)
	assert.Equal(t, "A", created[0].SKU)
	assert.Equal(t, 31, created[0].Opening.Int())
	assert.Equal(t, "B", created[1].SKU)
	assert.Equal(t, 0, created[1].Opening.Int(), "last row has no closing, so the fallback applies")
}

func TestCarryForwardFallsBackToSeed(t *testing.T) {
	records := []models.InventoryRecord{
		{SKU: "A", Name: "first", Date: day("2024-05-01"), Seed: models.Qty(100), Safety: models.Qty(3)},
		{SKU: "A", Name: "second", Date: day("2024-05-02"), Seed: models.Qty(7)},
		{SKU: "", Date: day("2024-05-02")},
		{SKU: "Z", Date: day("2024-05-02")},
	}

	out, stats := CarryForward(records, day("2024-06-02"))
	created := out[len(records):]
	require.Len(t, created, 2, "blank SKUs are not synthesized")

	assert.Equal(t, "first", created[0].Name)
	assert.Equal(t, 100, created[0].Opening.Int())
	assert.Equal(t, 3, created[0].Safety.Int())
	assert.False(t, created[0].Closing.Present)
	assert.Equal(t, 0, created[1].Opening.Int())
	assert.Equal(t, 1, stats.FromSeed)
	assert.Equal(t, 1, stats.Defaulted)
}

func TestClosingNeverNegative(t *testing.T) {
	assert.Equal(t, 0, ClosingBalance(5, 0, 9))
	assert.Equal(t, 38, ClosingBalance(50, 0, 12))
	assert.Equal(t, 13, ClosingBalance(5, 3, -5))

	records := []models.InventoryRecord{
		{SKU: "A", Date: day("2024-06-01"), Opening: models.Qty(1), Closing: models.Qty(1)},
		{SKU: "A", Date: day("2024-06-02"), Opening: models.Qty(5), Received: models.Qty(0)},
		{SKU: "B", Date: day("2024-06-02"), Opening: models.Qty(5), Received: models.Quantity{Present: true}},
	}
	ApplyClosing(records, day("2024-06-02"), map[string]int{"A": 9, "B": 1})

	assert.Equal(t, 1, records[0].Closing.Int(), "other dates untouched")
	assert.Equal(t, 0, records[1].Closing.Int())
	assert.Equal(t, 4, records[2].Closing.Int())
}

func TestAggregateSalesAcrossFiles(t *testing.T) {
	workDate := day("2024-06-02")
	whole := mustTable(t, "all.csv",
		"款式,销量,出库日期",
		"a,2,2024-06-02",
		"b,5,2024-06-02",
		"a,4,2024-06-02",
		"a,-1,2024-06-02",
		" ,3,2024-06-02",
		"c,0,2024-06-02",
		"b,7,2024-06-01",
		"b,7,not a date",
	)
	partA := mustTable(t, "a.csv", "Style,QTY,Date", "a,2,2024-06-02", "b,5,2024-06-02")
	partB := mustTable(t, "b.csv", "sku_id,件数", "A,4")

	var notices Notices
	got, err := AggregateSales([]*tabular.Table{whole}, workDate, &notices)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"A": 6, "B": 5}, got)
	require.Len(t, notices, 1)
	assert.Contains(t, notices[0].Message, "1 sales rows with negative quantity")

	split, err := AggregateSales([]*tabular.Table{partB, partA}, workDate, &Notices{})
	require.NoError(t, err)
	assert.Equal(t, got, split)
}

func TestAggregateSalesSkipsUnrecognizedTables(t *testing.T) {
	bad := mustTable(t, "bad.csv", "product,amount", "a,1")
	good := mustTable(t, "good.csv", "sku,qty", "a,1")

	var notices Notices
	got, err := AggregateSales([]*tabular.Table{bad, good}, day("2024-06-02"), &notices)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"A": 1}, got)
	require.Len(t, notices, 1)
	assert.Equal(t, LevelWarning, notices[0].Level)
	assert.Contains(t, notices[0].Message, "bad.csv")
	assert.Contains(t, notices[0].Message, "product, amount")

	_, err = AggregateSales([]*tabular.Table{bad}, day("2024-06-02"), &Notices{})
	assert.ErrorIs(t, err, ErrNoSalesData)

	_, err = AggregateSales(nil, day("2024-06-02"), &Notices{})
	assert.ErrorIs(t, err, ErrNoSalesData)
}

func TestApplyExchanges(t *testing.T) {
	got := ApplyExchanges(map[string]int{"A": 10}, []models.ExchangeRecord{
		{Original: "A", Replacement: "B", Quantity: 3},
	})
	assert.Equal(t, map[string]int{"A": 7, "B": 3}, got)

	got = ApplyExchanges(map[string]int{}, []models.ExchangeRecord{
		{Original: "C", Replacement: "D", Quantity: 2},
	})
	assert.Equal(t, map[string]int{"C": -2, "D": 2}, got, "negative results are allowed")
}

func TestAdjustForExchangesReadsTable(t *testing.T) {
	workDate := day("2024-06-02")
	ex := mustTable(t, "exchange.csv",
		"原款SKU,换货SKU,日期",
		"a,b,2024-06-02",
		"a,b,2024-06-02",
		"a,c,2024-06-01",
		"a,,2024-06-02",
	)

	var notices Notices
	got := AdjustForExchanges(map[string]int{"A": 10}, ex, workDate, &notices)
	assert.Equal(t, map[string]int{"A": 7, "B": 2}, got, "missing quantity column means one unit per row")
	require.Len(t, notices, 2)
	assert.Equal(t, LevelInfo, notices[0].Level)
	assert.Equal(t, LevelWarning, notices[1].Level)

	withQty := mustTable(t, "exchange.csv", "orig_sku,new_sku,qty", "a,b,3", "a,b,oops")
	got = AdjustForExchanges(map[string]int{"A": 10}, withQty, workDate, &Notices{})
	assert.Equal(t, map[string]int{"A": 6, "B": 4}, got)
}

func TestAdjustForExchangesAppliesFilledSide(t *testing.T) {
	ex := mustTable(t, "exchange.csv", "原款SKU,换货SKU,数量", "A,,2", ",B,3", ",,4")

	var notices Notices
	got := AdjustForExchanges(map[string]int{"A": 10}, ex, day("2024-06-02"), &notices)
	assert.Equal(t, map[string]int{"A": 8, "B": 3}, got)

	require.Len(t, notices, 3)
	assert.Equal(t, LevelWarning, notices[1].Level)
	assert.Contains(t, notices[1].Message, "2 exchange rows")
	assert.Equal(t, LevelWarning, notices[2].Level)
	assert.Contains(t, notices[2].Message, "1 exchange rows")
}

func TestAdjustForExchangesPassThrough(t *testing.T) {
	ex := mustTable(t, "exchange.csv", "from,to", "a,b")
	sales := map[string]int{"A": 10}

	var notices Notices
	got := AdjustForExchanges(sales, ex, day("2024-06-02"), &notices)
	assert.Equal(t, sales, got)
	require.Len(t, notices, 1)
	assert.Equal(t, LevelWarning, notices[0].Level)
}

func TestRunAppliesExchangeOnlyWhenEnabled(t *testing.T) {
	inventory := mustTable(t, "ledger.csv",
		ledgerHeader,
		"A,2024-06-01,A,0,0,20,",
		"B,2024-06-01,B,0,0,20,",
	)
	sales := mustTable(t, "sales.csv", "sku,qty", "A,10")
	ex := mustTable(t, "exchange.csv", "original_sku,new_sku,quantity", "A,B,3")

	in := Input{
		Inventory: inventory,
		Sales:     []*tabular.Table{sales},
		Exchange:  ex,
		WorkDate:  day("2024-06-02"),
	}

	res, err := newTestEngine().Run(in)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"A": 10}, res.Sold)

	in.Inventory = mustTable(t, "ledger.csv",
		ledgerHeader,
		"A,2024-06-01,A,0,0,20,",
		"B,2024-06-01,B,0,0,20,",
	)
	in.ExchangeEnabled = true
	res, err = newTestEngine().Run(in)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"A": 7, "B": 3}, res.Sold)

	today := recordsOn(res.Ledger, day("2024-06-02"))
	assert.Equal(t, 13, today["A"].Closing.Int())
	assert.Equal(t, 17, today["B"].Closing.Int())
}

func TestRunFatalErrors(t *testing.T) {
	e := newTestEngine()

	_, err := e.Run(Input{})
	assert.ErrorIs(t, err, ErrNoInventory)

	_, err = e.Run(Input{Inventory: mustTable(t, "ledger.csv", "SKU,日期", "a,2024-06-01")})
	assert.ErrorIs(t, err, ledger.ErrMissingColumns)

	res, err := e.Run(Input{
		Inventory: mustTable(t, "ledger.csv", ledgerHeader, "A,2024-06-01,A,0,0,20,"),
		Sales:     []*tabular.Table{mustTable(t, "sales.csv", "foo,bar", "1,2")},
	})
	assert.ErrorIs(t, err, ErrNoSalesData)
	require.NotNil(t, res)
	require.NotEmpty(t, res.Notices)
	assert.Equal(t, LevelWarning, res.Notices[len(res.Notices)-1].Level)
}

func TestRunClosingFormulaHoldsForEveryRow(t *testing.T) {
	inventory := mustTable(t, "ledger.csv",
		ledgerHeader,
		"A,2024-06-01,A,0,0,20,",
		"B,2024-06-01,B,0,0,3,",
		"A,2024-06-02,A,,5,,",
		"B,2024-06-02,B,1,,,",
		"C,2024-06-02,C,abc,2,,",
	)
	sales := mustTable(t, "sales.csv", "sku,qty", "A,30", "B,1", "D,4")

	res, err := newTestEngine().Run(Input{
		Inventory: inventory,
		Sales:     []*tabular.Table{sales},
		WorkDate:  day("2024-06-02"),
	})
	require.NoError(t, err)

	for _, rec := range res.Ledger.Records {
		if !rec.OnDate(res.WorkDate) {
			continue
		}
		want := rec.Opening.Int() + rec.Received.Int() - res.Sold[rec.SKU]
		if want < 0 {
			want = 0
		}
		assert.Equal(t, want, rec.Closing.Int(), rec.SKU)
		assert.GreaterOrEqual(t, rec.Closing.Int(), 0, rec.SKU)
	}
	assert.Equal(t, 20, recordsOn(res.Ledger, res.WorkDate)["A"].Opening.Int())
}
