package router

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lashiva/stockrecon/internal/audit"
	"github.com/lashiva/stockrecon/internal/ledger"
	"github.com/lashiva/stockrecon/internal/reconcile"
	"github.com/lashiva/stockrecon/internal/server/handlers"
	"github.com/lashiva/stockrecon/internal/service/reconciliation"
)

func newRouter(t *testing.T) http.Handler {
	history := audit.NewFileHistory(filepath.Join(t.TempDir(), "history.csv"))
	svc := reconciliation.NewService(reconcile.NewEngine(ledger.DefaultColumns(), nil), history, nil)
	return New(handlers.NewReconcileHandler(svc, history, nil, 1<<20, nil), 1<<20, nil)
}

func TestRoutes(t *testing.T) {
	r := newRouter(t)

	cases := []struct {
		method, path string
		status       int
	}{
		{http.MethodGet, "/healthz", http.StatusOK},
		{http.MethodGet, "/api/v1/history", http.StatusOK},
		{http.MethodGet, "/api/v1/reports", http.StatusNotFound},
		{http.MethodPost, "/api/v1/reconcile", http.StatusBadRequest},
		{http.MethodPost, "/api/v1/ledger/dates", http.StatusBadRequest},
		{http.MethodGet, "/api/v1/unknown", http.StatusNotFound},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))
		assert.Equal(t, tc.status, rec.Code, "%s %s", tc.method, tc.path)
	}
}

func TestHealthz(t *testing.T) {
	rec := httptest.NewRecorder()
	newRouter(t).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
