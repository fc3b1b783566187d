package models

import "time"

// AuditRecord is the one-line history entry appended after each run.
type AuditRecord struct {
	Timestamp       time.Time `json:"timestamp"`
	WorkDate        string    `json:"work_date"`
	InventoryFile   string    `json:"inventory_file"`
	SalesFileCount  int       `json:"sales_file_count"`
	ExchangeEnabled bool      `json:"exchange_enabled"`
}
