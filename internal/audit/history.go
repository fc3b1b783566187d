// Package audit keeps the append-only history of reconciliation runs.
package audit

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/lashiva/stockrecon/internal/domain/models"
	"github.com/lashiva/stockrecon/internal/tabular"
)

const timestampLayout = "2006-01-02 15:04:05"

// Header is the history file's column row.
var Header = []string{"时间", "工作日期", "库存文件", "销量文件数", "是否开启换货区"}

// Recorder appends one history entry per run.
type Recorder interface {
	Append(rec models.AuditRecord) error
}

// Row renders a record in Header order.
func Row(rec models.AuditRecord) []string {
	exchange := "False"
	if rec.ExchangeEnabled {
		exchange = "True"
	}
	return []string{
		rec.Timestamp.Format(timestampLayout),
		rec.WorkDate,
		rec.InventoryFile,
		strconv.Itoa(rec.SalesFileCount),
		exchange,
	}
}

// FileHistory stores the history as a CSV file next to the process.
type FileHistory struct {
	path string
	mu   sync.Mutex
}

// NewFileHistory returns a history backed by path. The file is created on
// first append.
func NewFileHistory(path string) *FileHistory {
	return &FileHistory{path: path}
}

// Path returns the backing file.
func (h *FileHistory) Path() string { return h.path }

// Append writes one record, creating the file with a BOM and header row
// when it does not exist yet.
func (h *FileHistory) Append(rec models.AuditRecord) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	f, err := os.OpenFile(h.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open history %s: %w", h.path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat history %s: %w", h.path, err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if _, err := io.WriteString(f, "\ufeff"); err != nil {
			return fmt.Errorf("write history %s: %w", h.path, err)
		}
		if err := w.Write(Header); err != nil {
			return fmt.Errorf("write history %s: %w", h.path, err)
		}
	}
	if err := w.Write(Row(rec)); err != nil {
		return fmt.Errorf("write history %s: %w", h.path, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("write history %s: %w", h.path, err)
	}
	return nil
}

// List reads every record back, oldest first. A missing file is an empty
// history.
func (h *FileHistory) List() ([]models.AuditRecord, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	f, err := os.Open(h.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open history %s: %w", h.path, err)
	}
	defer f.Close()

	table, err := tabular.ReadCSV(h.path, f)
	if errors.Is(err, tabular.ErrEmptyTable) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	records := make([]models.AuditRecord, 0, len(table.Rows))
	for _, row := range table.Rows {
		if len(row) < len(Header) {
			continue
		}
		ts, _ := time.ParseInLocation(timestampLayout, row[0], time.Local)
		count, _ := strconv.Atoi(strings.TrimSpace(row[3]))
		records = append(records, models.AuditRecord{
			Timestamp:       ts,
			WorkDate:        row[1],
			InventoryFile:   row[2],
			SalesFileCount:  count,
			ExchangeEnabled: strings.EqualFold(strings.TrimSpace(row[4]), "true"),
		})
	}
	return records, nil
}
