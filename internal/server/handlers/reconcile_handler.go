package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lashiva/stockrecon/internal/domain/models"
	"github.com/lashiva/stockrecon/internal/ledger"
	"github.com/lashiva/stockrecon/internal/reconcile"
	"github.com/lashiva/stockrecon/internal/report"
	"github.com/lashiva/stockrecon/internal/service/reconciliation"
	"github.com/lashiva/stockrecon/internal/tabular"
)

// Output formats accepted by the reconcile endpoint.
const (
	FormatJSON    = "json"
	FormatCSV     = "csv"
	FormatXLSX    = "xlsx"
	FormatLedger  = "ledger"
	FormatClosing = "closing"
)

const (
	contentTypeCSV  = "text/csv; charset=utf-8"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypeText = "text/plain; charset=utf-8"
)

var errBadRequest = errors.New("bad request")

// Reconciler is the reconciliation service as seen by HTTP.
type Reconciler interface {
	Reconcile(ctx context.Context, req reconciliation.Request) (*reconciliation.Outcome, error)
	Dates(inventory *tabular.Table) ([]time.Time, time.Time, error)
}

// HistoryLister reads the audit history.
type HistoryLister interface {
	List() ([]models.AuditRecord, error)
}

// ReportLister reads archived reports.
type ReportLister interface {
	ListReports(ctx context.Context, limit int64) ([]models.ReconciliationReport, error)
}

// ReconcileHandler serves the operator upload surface.
type ReconcileHandler struct {
	svc       Reconciler
	history   HistoryLister
	reports   ReportLister
	maxUpload int64
	logger    *zap.Logger
}

// NewReconcileHandler constructs the HTTP handler adapter. reports may be
// nil when no archive is configured.
func NewReconcileHandler(svc Reconciler, history HistoryLister, reports ReportLister, maxUpload int64, logger *zap.Logger) *ReconcileHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReconcileHandler{svc: svc, history: history, reports: reports, maxUpload: maxUpload, logger: logger}
}

type reconcileForm struct {
	WorkDate        string `form:"work_date" binding:"omitempty,datetime=2006-01-02"`
	ExchangeEnabled bool   `form:"exchange_enabled"`
	Format          string `form:"format" binding:"omitempty,oneof=json csv xlsx ledger closing"`
}

type errorResponse struct {
	Error   string            `json:"error"`
	Notices reconcile.Notices `json:"notices,omitempty"`
}

type datesResponse struct {
	Dates           []string `json:"dates"`
	DefaultWorkDate string   `json:"default_work_date"`
}

type reconcileResponse struct {
	RunID         string            `json:"run_id"`
	WorkDate      string            `json:"work_date"`
	Rows          []report.Row      `json:"rows"`
	Total         report.Row        `json:"total"`
	Metrics       report.Metrics    `json:"metrics"`
	ClosingValues []int             `json:"closing_values"`
	Notices       reconcile.Notices `json:"notices"`
	Warnings      []string          `json:"warnings,omitempty"`
}

// Dates lists the ledger dates of an uploaded inventory file.
func (h *ReconcileHandler) Dates(c *gin.Context) {
	h.limitBody(c)

	inventory, err := h.readUpload(c, "inventory")
	if err != nil {
		h.fail(c, err, nil)
		return
	}

	dates, def, err := h.svc.Dates(inventory)
	if err != nil {
		h.fail(c, err, nil)
		return
	}

	resp := datesResponse{Dates: make([]string, len(dates)), DefaultWorkDate: def.Format(models.DateLayout)}
	for i, d := range dates {
		resp.Dates[i] = d.Format(models.DateLayout)
	}
	c.JSON(http.StatusOK, resp)
}

// Reconcile runs one reconciliation over the uploaded files.
func (h *ReconcileHandler) Reconcile(c *gin.Context) {
	h.limitBody(c)

	var form reconcileForm
	if err := c.ShouldBind(&form); err != nil {
		h.fail(c, fmt.Errorf("%w: %w", errBadRequest, err), nil)
		return
	}
	format := form.Format
	if format == "" {
		format = FormatJSON
	}

	req, err := h.buildRequest(c, form)
	if err != nil {
		h.fail(c, err, nil)
		return
	}

	out, err := h.svc.Reconcile(c.Request.Context(), req)
	if err != nil {
		var notices reconcile.Notices
		if out != nil && out.Result != nil {
			notices = out.Result.Notices
		}
		h.fail(c, err, notices)
		return
	}

	date := out.Result.WorkDate.Format(models.DateLayout)
	var buf bytes.Buffer
	switch format {
	case FormatCSV:
		err = out.Summary.WriteCSV(&buf)
		h.attach(c, &buf, err, contentTypeCSV, fmt.Sprintf("库存更新结果_%s.csv", date))
	case FormatXLSX:
		err = out.Summary.WriteXLSX(&buf)
		h.attach(c, &buf, err, contentTypeXLSX, fmt.Sprintf("库存更新结果_%s.xlsx", date))
	case FormatLedger:
		err = report.WriteCSVWithBOM(&buf, out.Result.Ledger.Table(out.Result.WorkDate))
		h.attach(c, &buf, err, contentTypeCSV, fmt.Sprintf("库存表_%s.csv", date))
	case FormatClosing:
		buf.WriteString(out.Summary.ClosingText())
		h.attach(c, &buf, nil, contentTypeText, fmt.Sprintf("期末库存_%s.txt", date))
	default:
		c.JSON(http.StatusOK, reconcileResponse{
			RunID:         out.RunID,
			WorkDate:      date,
			Rows:          out.Summary.Rows,
			Total:         out.Summary.Total,
			Metrics:       out.Summary.Metrics,
			ClosingValues: out.Summary.ClosingValues(),
			Notices:       out.Result.Notices,
			Warnings:      out.Warnings,
		})
	}
}

// History returns the audit history, oldest first.
func (h *ReconcileHandler) History(c *gin.Context) {
	records, err := h.history.List()
	if err != nil {
		h.logger.Error("failed reading history", zap.Error(err))
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "unable to read history"})
		return
	}
	if records == nil {
		records = []models.AuditRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"records": records})
}

// Reports returns archived reports, newest first.
func (h *ReconcileHandler) Reports(c *gin.Context) {
	if h.reports == nil {
		c.JSON(http.StatusNotFound, errorResponse{Error: "report archive is not configured"})
		return
	}

	limit, err := strconv.ParseInt(c.DefaultQuery("limit", "20"), 10, 64)
	if err != nil || limit < 1 {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "limit must be a positive integer"})
		return
	}

	reports, err := h.reports.ListReports(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("failed listing reports", zap.Error(err))
		c.JSON(http.StatusBadGateway, errorResponse{Error: "unable to read report archive"})
		return
	}
	if reports == nil {
		reports = []models.ReconciliationReport{}
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports})
}

func (h *ReconcileHandler) buildRequest(c *gin.Context, f reconcileForm) (reconciliation.Request, error) {
	req := reconciliation.Request{ExchangeEnabled: f.ExchangeEnabled}
	if f.WorkDate != "" {
		d, err := time.Parse(models.DateLayout, f.WorkDate)
		if err != nil {
			return req, fmt.Errorf("%w: %w", errBadRequest, err)
		}
		req.WorkDate = d
	}

	inventory, err := h.readUpload(c, "inventory")
	if err != nil {
		return req, err
	}
	req.Inventory = inventory

	form, err := c.MultipartForm()
	if err != nil {
		return req, fmt.Errorf("%w: %w", errBadRequest, err)
	}
	for _, fh := range form.File["sales"] {
		t, err := openTable(fh)
		if err != nil {
			return req, err
		}
		req.Sales = append(req.Sales, t)
	}
	if len(req.Sales) == 0 {
		return req, fmt.Errorf("%w: at least one sales file is required", errBadRequest)
	}

	if files := form.File["exchange"]; len(files) > 0 {
		t, err := openTable(files[0])
		if err != nil {
			return req, err
		}
		req.Exchange = t
	}

	return req, nil
}

// readUpload parses the single file field. A missing field is reported as
// reconcile.ErrNoInventory for the inventory field.
func (h *ReconcileHandler) readUpload(c *gin.Context, field string) (*tabular.Table, error) {
	fh, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		if field == "inventory" {
			return nil, reconcile.ErrNoInventory
		}
		return nil, fmt.Errorf("%w: missing file %q", errBadRequest, field)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errBadRequest, err)
	}
	return openTable(fh)
}

func openTable(fh *multipart.FileHeader) (*tabular.Table, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, &reconcile.MalformedFileError{File: fh.Filename, Err: err}
	}
	defer f.Close()

	t, err := tabular.Read(fh.Filename, f)
	if err != nil {
		return nil, &reconcile.MalformedFileError{File: fh.Filename, Err: err}
	}
	return t, nil
}

func (h *ReconcileHandler) limitBody(c *gin.Context) {
	if h.maxUpload > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)
	}
}

func (h *ReconcileHandler) attach(c *gin.Context, buf *bytes.Buffer, err error, contentType, filename string) {
	if err != nil {
		h.logger.Error("failed encoding download", zap.String("file", filename), zap.Error(err))
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "unable to encode result"})
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename*=UTF-8''%s", url.PathEscape(filename)))
	c.Data(http.StatusOK, contentType, buf.Bytes())
}

func (h *ReconcileHandler) fail(c *gin.Context, err error, notices reconcile.Notices) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("reconcile request failed", zap.Error(err))
	} else {
		h.logger.Warn("reconcile request rejected", zap.Int("status", status), zap.Error(err))
	}
	c.JSON(status, errorResponse{Error: err.Error(), Notices: notices})
}

func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ledger.ErrMissingColumns), errors.Is(err, reconcile.ErrNoSalesData):
		return http.StatusUnprocessableEntity
	case errors.Is(err, reconcile.ErrNoInventory),
		errors.Is(err, reconcile.ErrMalformedFile),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
