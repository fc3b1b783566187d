package models

import "time"

// ReportLine is one per-SKU line of a stored reconciliation report.
type ReportLine struct {
	Name     string `bson:"name" json:"name"`
	SKU      string `bson:"sku" json:"sku"`
	Opening  int    `bson:"opening" json:"opening"`
	Received int    `bson:"received" json:"received"`
	Sold     int    `bson:"sold" json:"sold"`
	Closing  int    `bson:"closing" json:"closing"`
	Safety   *int   `bson:"safety,omitempty" json:"safety,omitempty"`
	LowStock bool   `bson:"low_stock" json:"low_stock"`
}

// ReconciliationReport is the archived snapshot of one reconciliation run.
type ReconciliationReport struct {
	RunID           string       `bson:"run_id" json:"run_id"`
	WorkDate        string       `bson:"work_date" json:"work_date"`
	InventorySource string       `bson:"inventory_source" json:"inventory_source"`
	SalesSources    []string     `bson:"sales_sources" json:"sales_sources"`
	ExchangeEnabled bool         `bson:"exchange_enabled" json:"exchange_enabled"`
	SKUCount        int          `bson:"sku_count" json:"sku_count"`
	LowStockCount   int          `bson:"low_stock_count" json:"low_stock_count"`
	OpeningTotal    int          `bson:"opening_total" json:"opening_total"`
	ReceivedTotal   int          `bson:"received_total" json:"received_total"`
	SoldTotal       int          `bson:"sold_total" json:"sold_total"`
	ClosingTotal    int          `bson:"closing_total" json:"closing_total"`
	Lines           []ReportLine `bson:"lines" json:"lines"`
	Notices         []string     `bson:"notices" json:"notices"`
	CreatedAt       time.Time    `bson:"created_at" json:"created_at"`
}
