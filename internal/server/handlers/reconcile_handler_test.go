package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lashiva/stockrecon/internal/audit"
	"github.com/lashiva/stockrecon/internal/ledger"
	"github.com/lashiva/stockrecon/internal/reconcile"
	"github.com/lashiva/stockrecon/internal/service/reconciliation"
)

const ledgerCSV = "名称（关联）,日期,SKU,初期库存（承接）,当日入库,期末库存,安全库存数\n" +
	"Dress,2024-03-04,X1,0,0,50,5\n" +
	"Skirt,2024-03-04,Y2,0,0,8,10\n"

type upload struct {
	field, filename, body string
}

func multipartRequest(t *testing.T, path string, fields map[string]string, files ...upload) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, f := range files {
		fw, err := w.CreateFormFile(f.field, f.filename)
		require.NoError(t, err)
		_, err = fw.Write([]byte(f.body))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func setup(t *testing.T) (*gin.Engine, *audit.FileHistory) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	history := audit.NewFileHistory(filepath.Join(t.TempDir(), "history.csv"))
	svc := reconciliation.NewService(reconcile.NewEngine(ledger.DefaultColumns(), nil), history, nil)
	h := NewReconcileHandler(svc, history, nil, 1<<20, nil)

	r := gin.New()
	r.POST("/dates", h.Dates)
	r.POST("/reconcile", h.Reconcile)
	r.GET("/history", h.History)
	r.GET("/reports", h.Reports)
	return r, history
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestReconcileJSON(t *testing.T) {
	r, history := setup(t)
	req := multipartRequest(t, "/reconcile",
		map[string]string{"work_date": "2024-03-05"},
		upload{"inventory", "ledger.csv", ledgerCSV},
		upload{"sales", "a.csv", "SKU,数量\nX1,12\n"},
		upload{"sales", "b.csv", "sku,qty\ny2,5\nX1,-3\n"},
	)

	rec := serve(r, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body reconcileResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "2024-03-05", body.WorkDate)
	assert.NotEmpty(t, body.RunID)
	require.Len(t, body.Rows, 2)
	assert.Equal(t, "X1", body.Rows[0].SKU)
	assert.Equal(t, 38, body.Rows[0].Closing)
	assert.Equal(t, 3, body.Rows[1].Closing)
	assert.Equal(t, []int{38, 3}, body.ClosingValues)
	assert.Equal(t, 41, body.Metrics.ClosingTotal)
	assert.Equal(t, 1, body.Metrics.LowStockCount)
	assert.NotEmpty(t, body.Notices)

	records, err := history.List()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 2, records[0].SalesFileCount)
}

func TestReconcileDownloads(t *testing.T) {
	r, _ := setup(t)
	files := []upload{
		{"inventory", "ledger.csv", ledgerCSV},
		{"sales", "a.csv", "SKU,数量\nX1,12\n"},
	}
	cases := map[string]struct {
		filename    string
		contentType string
		contains    string
	}{
		"csv":     {"库存更新结果_2024-03-05.csv", contentTypeCSV, "0,Dress,X1,50,0,12,38"},
		"xlsx":    {"库存更新结果_2024-03-05.xlsx", contentTypeXLSX, "PK"},
		"ledger":  {"库存表_2024-03-05.csv", contentTypeCSV, "Dress,2024-03-05,X1,50,0,38,5"},
		"closing": {"期末库存_2024-03-05.txt", contentTypeText, "38\n8"},
	}

	for format, tc := range cases {
		t.Run(format, func(t *testing.T) {
			req := multipartRequest(t, "/reconcile", map[string]string{"format": format, "work_date": "2024-03-05"}, files...)
			rec := serve(r, req)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Equal(t, tc.contentType, rec.Header().Get("Content-Type"))
			assert.Contains(t, rec.Header().Get("Content-Disposition"), "filename*=UTF-8''")
			assert.Contains(t, rec.Header().Get("Content-Disposition"), "2024-03-05")
			assert.Contains(t, rec.Body.String(), tc.contains)
		})
	}
}

func TestReconcileErrors(t *testing.T) {
	r, history := setup(t)
	sales := upload{"sales", "a.csv", "SKU,数量\nX1,1\n"}

	cases := map[string]struct {
		fields map[string]string
		files  []upload
		status int
	}{
		"no inventory":    {nil, []upload{sales}, http.StatusBadRequest},
		"no sales":        {nil, []upload{{"inventory", "ledger.csv", ledgerCSV}}, http.StatusBadRequest},
		"bad date":        {map[string]string{"work_date": "05/03/2024"}, []upload{{"inventory", "ledger.csv", ledgerCSV}, sales}, http.StatusBadRequest},
		"bad format":      {map[string]string{"format": "pdf"}, []upload{{"inventory", "ledger.csv", ledgerCSV}, sales}, http.StatusBadRequest},
		"unsupported":     {nil, []upload{{"inventory", "ledger.pdf", ledgerCSV}, sales}, http.StatusBadRequest},
		"missing columns": {nil, []upload{{"inventory", "ledger.csv", "SKU,日期\nX1,2024-03-04\n"}, sales}, http.StatusUnprocessableEntity},
		"no sales data":   {nil, []upload{{"inventory", "ledger.csv", ledgerCSV}, {"sales", "a.csv", "foo,bar\n1,2\n"}}, http.StatusUnprocessableEntity},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			rec := serve(r, multipartRequest(t, "/reconcile", tc.fields, tc.files...))
			assert.Equal(t, tc.status, rec.Code, rec.Body.String())

			var body errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body.Error)
			if name == "no sales data" {
				assert.NotEmpty(t, body.Notices)
			}
		})
	}

	records, err := history.List()
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestDates(t *testing.T) {
	r, _ := setup(t)
	body := strings.Replace(ledgerCSV, "Skirt,2024-03-04", "Skirt,2024-03-02", 1)
	rec := serve(r, multipartRequest(t, "/dates", nil, upload{"inventory", "ledger.csv", body}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp datesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"2024-03-02", "2024-03-04"}, resp.Dates)
	assert.Equal(t, "2024-03-04", resp.DefaultWorkDate)
}

func TestHistoryAndReports(t *testing.T) {
	r, _ := setup(t)

	rec := serve(r, httptest.NewRequest(http.MethodGet, "/history", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"records":[]}`, rec.Body.String())

	rec = serve(r, httptest.NewRequest(http.MethodGet, "/reports", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUploadTooLarge(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := reconciliation.NewService(reconcile.NewEngine(ledger.DefaultColumns(), nil), nil, nil)
	h := NewReconcileHandler(svc, nil, nil, 64, nil)
	r := gin.New()
	r.POST("/reconcile", h.Reconcile)

	req := multipartRequest(t, "/reconcile", nil,
		upload{"inventory", "ledger.csv", ledgerCSV},
		upload{"sales", "a.csv", "SKU,数量\nX1,1\n"},
	)
	rec := serve(r, req)
	assert.Contains(t, []int{http.StatusBadRequest, http.StatusRequestEntityTooLarge}, rec.Code)
}
