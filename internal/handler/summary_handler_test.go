package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nk-tutoring/ledger-api/internal/billing"
	"github.com/nk-tutoring/ledger-api/internal/models"
	"github.com/nk-tutoring/ledger-api/internal/service"
	"github.com/nk-tutoring/ledger-api/pkg/export"
)

type fakeSummarySessions struct {
	sessions []models.Session
}

func (f *fakeSummarySessions) ListAll(_ context.Context) ([]models.Session, error) {
	return f.sessions, nil
}

type fakeRowStore struct {
	stored []models.SummaryRow
}

func (f *fakeRowStore) Replace(_ context.Context, rows []models.SummaryRow) error {
	f.stored = rows
	return nil
}

func (f *fakeRowStore) List(_ context.Context) ([]models.SummaryRow, error) {
	return f.stored, nil
}

func newSummaryHandlerFixture(sessions *fakeSummarySessions, rows *fakeRowStore) *SummaryHandler {
	settings := service.BillingSettings{Owner: "Nitin", Rates: billing.DefaultRateTable()}
	svc := service.NewSummaryService(sessions, rows, nil, export.NewCSVExporter(), export.NewPDFExporter(), zap.NewNop(), settings)
	return NewSummaryHandler(svc)
}

func TestSummaryHandlerRebuildAndGet(t *testing.T) {
	gin.SetMode(gin.TestMode)
	sessions := &fakeSummarySessions{sessions: []models.Session{{
		Date:         time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC),
		Tutor:        "Maya",
		PaidStatus:   models.PaidStatusPaid,
		HoursDecimal: decimal.RequireFromString("2"),
		Rate:         decimal.RequireFromString("35"),
		AmountDue:    decimal.RequireFromString("70"),
	}}}
	store := &fakeRowStore{}
	handler := newSummaryHandlerFixture(sessions, store)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/summary/rebuild", nil)
	handler.Rebuild(c)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, store.stored)
	assert.Contains(t, rec.Body.String(), "Month: 2025-03")
	assert.Contains(t, rec.Body.String(), "Nitin Business Earnings")

	rec = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/summary", nil)
	handler.Get(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Maya")
}

func TestSummaryHandlerExportHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newSummaryHandlerFixture(&fakeSummarySessions{}, &fakeRowStore{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/summary/export?format=csv", nil)
	handler.Export(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "tutor_summary.csv")
}

func TestSummaryHandlerExportRejectsUnknownFormat(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newSummaryHandlerFixture(&fakeSummarySessions{}, &fakeRowStore{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/summary/export?format=xlsx", nil)
	handler.Export(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
