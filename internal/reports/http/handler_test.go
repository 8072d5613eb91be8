package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/mahafpc/fpo-ledger/internal/inventory"
	"github.com/mahafpc/fpo-ledger/internal/ledger"
	"github.com/mahafpc/fpo-ledger/internal/money"
	"github.com/mahafpc/fpo-ledger/internal/payments"
	"github.com/mahafpc/fpo-ledger/internal/period"
	"github.com/mahafpc/fpo-ledger/internal/records"
	"github.com/mahafpc/fpo-ledger/internal/reports"
	"github.com/mahafpc/fpo-ledger/internal/reports/export"
	"github.com/mahafpc/fpo-ledger/internal/shared"
)

type fakeReports struct {
	last reports.Request
	err  error
}

func (f *fakeReports) Ledger(_ context.Context, req reports.Request) (ledger.Ledger, error) {
	f.last = req
	if f.err != nil {
		return ledger.Ledger{}, f.err
	}
	return ledger.Ledger{
		Window: req.Window,
		Farmers: []ledger.FarmerSummary{{
			FarmerID: 1, FarmerName: "Ramesh Patil",
			TotalPurchaseQty: money.Tons(5), TotalPurchaseAmount: money.Rupees(180000),
			TotalPaid: money.Rupees(50000), Remaining: money.Rupees(130000),
		}},
		Totals: ledger.Totals{Purchase: money.Rupees(180000), Paid: money.Rupees(50000), Remaining: money.Rupees(130000)},
	}, nil
}

func (f *fakeReports) Period(_ context.Context, req reports.Request) (period.Summary, error) {
	f.last = req
	return period.Summary{Window: req.Window, FPOs: []period.FPOSummary{}, Overall: period.Overall{Products: []period.ProductRow{}}}, f.err
}

func (f *fakeReports) Valuation(_ context.Context, req reports.Request) (reports.Valuation, error) {
	f.last = req
	return reports.Valuation{Window: req.Window}, f.err
}

func (f *fakeReports) StockCard(_ context.Context, req reports.Request) (inventory.Card, error) {
	f.last = req
	if f.err != nil {
		return inventory.Card{}, f.err
	}
	return inventory.Card{FPOID: 10, ProductID: 1, Window: req.Window, Approximate: true}, nil
}

func (f *fakeReports) Dashboard(_ context.Context, req reports.Request) (reports.Dashboard, error) {
	f.last = req
	return reports.Dashboard{}, f.err
}

type fakePayments struct {
	in  payments.Input
	err error
}

func (f *fakePayments) Record(_ context.Context, in payments.Input) (payments.Result, error) {
	f.in = in
	if f.err != nil {
		return payments.Result{}, f.err
	}
	return payments.Result{
		Payment:  records.PaymentLine{ID: 101, FPOID: in.FPOID, FarmerID: in.FarmerID, Date: in.Date, Amount: in.Amount},
		Decision: payments.Decision{Remaining: money.Rupees(180000), After: money.Rupees(130000)},
	}, nil
}

func newRouter(rep *fakeReports, pay *fakePayments) http.Handler {
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), rep, pay, Options{ExportsPerMinute: 2})
	r := chi.NewRouter()
	h.MountRoutes(r)
	return r
}

func get(t *testing.T, router http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestLedgerJSON(t *testing.T) {
	rep := &fakeReports{}
	rec := get(t, newRouter(rep, &fakePayments{}), "/reports/ledger?month=2024-03&fpo_id=10&farmer_id=1")
	require.Equal(t, http.StatusOK, rec.Code)

	require.Equal(t, records.MonthWindow(2024, time.March), rep.last.Window)
	require.Equal(t, int64(10), *rep.last.Filters.FPOID)
	require.Equal(t, int64(1), *rep.last.Filters.FarmerID)
	require.Nil(t, rep.last.Filters.ProductID)

	var body struct {
		Farmers []struct {
			Remaining string `json:"remaining"`
		} `json:"farmers"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Farmers, 1)
	require.Equal(t, "130000.00", body.Farmers[0].Remaining)
}

func TestRangeWindow(t *testing.T) {
	rep := &fakeReports{}
	rec := get(t, newRouter(rep, &fakePayments{}), "/reports/period?from=2024-03-01&to=2024-03-15")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC), rep.last.Window.End)
}

func TestBadQueries(t *testing.T) {
	router := newRouter(&fakeReports{}, &fakePayments{})
	for _, target := range []string{
		"/reports/ledger",
		"/reports/ledger?month=2024-13",
		"/reports/ledger?month=2024-03&from=2024-03-01&to=2024-03-02",
		"/reports/ledger?from=2024-03-10&to=2024-03-01",
		"/reports/ledger?month=2024-03&fpo_id=abc",
		"/reports/ledger?month=2024-03&fpo_id=-1",
		"/reports/ledger?month=2024-03&format=pdf",
	} {
		rec := get(t, router, target)
		require.Equal(t, http.StatusBadRequest, rec.Code, target)
		require.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"), target)
	}
}

func TestLedgerCSV(t *testing.T) {
	rec := get(t, newRouter(&fakeReports{}, &fakePayments{}), "/reports/ledger?month=2024-03&format=csv")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	require.Equal(t, `attachment; filename="farmer-ledger-20240301-20240331.csv"`, rec.Header().Get("Content-Disposition"))
	require.Contains(t, rec.Body.String(), "# Report: Farmer Ledger\r\n")
	require.Contains(t, rec.Body.String(), "130000.00")
}

func TestStockCardXLSX(t *testing.T) {
	rec := get(t, newRouter(&fakeReports{}, &fakePayments{}), "/reports/stock-card?month=2024-03&fpo_id=10&product_id=1&format=xlsx")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, export.ContentTypeXLSX, rec.Header().Get("Content-Type"))
	require.Equal(t, `attachment; filename="stock-card-10-1-20240301-20240331.xlsx"`, rec.Header().Get("Content-Disposition"))
	require.True(t, strings.HasPrefix(rec.Body.String(), "PK"))
}

func TestExportsAreRateLimited(t *testing.T) {
	router := newRouter(&fakeReports{}, &fakePayments{})
	for i := 0; i < 2; i++ {
		require.Equal(t, http.StatusOK, get(t, router, "/reports/valuation?month=2024-03&format=csv").Code)
	}
	require.Equal(t, http.StatusTooManyRequests, get(t, router, "/reports/valuation?month=2024-03&format=csv").Code)
	require.Equal(t, http.StatusOK, get(t, router, "/reports/valuation?month=2024-03").Code)
}

func TestDomainErrorsMapToStatus(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{inventory.ErrScopeRequired, http.StatusBadRequest},
		{shared.ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("load: %w", shared.ErrLockHeld), http.StatusServiceUnavailable},
		{fmt.Errorf("pgx: connection refused"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rec := get(t, newRouter(&fakeReports{err: tc.err}, &fakePayments{}), "/reports/stock-card?month=2024-03")
		require.Equal(t, tc.code, rec.Code, tc.err.Error())
	}
}

func postPayment(t *testing.T, router http.Handler, body, key string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/payments", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRecordPayment(t *testing.T) {
	pay := &fakePayments{}
	rec := postPayment(t, newRouter(&fakeReports{}, pay),
		`{"fpo_id":10,"farmer_id":1,"date":"2024-03-20","amount":"50000.00","description":" cheque 4411 "}`, "k-1")
	require.Equal(t, http.StatusCreated, rec.Code)

	require.Equal(t, money.Rupees(50000), pay.in.Amount)
	require.Equal(t, time.Date(2024, time.March, 20, 0, 0, 0, 0, time.UTC), pay.in.Date)
	require.Equal(t, "cheque 4411", pay.in.Description)
	require.Equal(t, "k-1", pay.in.IdempotencyKey)

	var body payments.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, int64(101), body.Payment.ID)
	require.Equal(t, money.Rupees(130000), body.Decision.After)
}

func TestRecordPaymentRejectsBadBody(t *testing.T) {
	router := newRouter(&fakeReports{}, &fakePayments{})
	for _, body := range []string{
		`{"fpo_id":10,"farmer_id":1,"date":"20/03/2024","amount":"1"}`,
		`{"fpo_id":10,"farmer_id":1,"date":"2024-03-20","amount":"lots"}`,
		`{"fpo_id":10,"unexpected":true}`,
		`not json`,
	} {
		require.Equal(t, http.StatusBadRequest, postPayment(t, router, body, "").Code, body)
	}
}

func TestRecordPaymentErrors(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{fmt.Errorf("check: %w", payments.ErrOverpayment), http.StatusConflict},
		{shared.ErrIdempotencyConflict, http.StatusConflict},
		{payments.ErrUnknownFarmer, http.StatusNotFound},
		{fmt.Errorf("%w: amount", records.ErrInvalidInput), http.StatusBadRequest},
		{shared.ErrLockHeld, http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		rec := postPayment(t, newRouter(&fakeReports{}, &fakePayments{err: tc.err}),
			`{"fpo_id":10,"farmer_id":1,"date":"2024-03-20","amount":"1.00"}`, "")
		require.Equal(t, tc.code, rec.Code, tc.err.Error())
	}
}
