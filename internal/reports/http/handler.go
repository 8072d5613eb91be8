// Package http serves the ledger, period, valuation and stock-card reports
// and accepts payment entries.
package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/mahafpc/fpo-ledger/internal/inventory"
	"github.com/mahafpc/fpo-ledger/internal/ledger"
	"github.com/mahafpc/fpo-ledger/internal/payments"
	"github.com/mahafpc/fpo-ledger/internal/period"
	"github.com/mahafpc/fpo-ledger/internal/platform/httpx"
	"github.com/mahafpc/fpo-ledger/internal/records"
	"github.com/mahafpc/fpo-ledger/internal/reports"
	"github.com/mahafpc/fpo-ledger/internal/reports/export"
	"github.com/mahafpc/fpo-ledger/internal/shared"
	"github.com/mahafpc/fpo-ledger/internal/snapshot"
)

// ReportService is the subset of *reports.Service the handler uses.
type ReportService interface {
	Ledger(ctx context.Context, req reports.Request) (ledger.Ledger, error)
	Period(ctx context.Context, req reports.Request) (period.Summary, error)
	Valuation(ctx context.Context, req reports.Request) (reports.Valuation, error)
	StockCard(ctx context.Context, req reports.Request) (inventory.Card, error)
	Dashboard(ctx context.Context, req reports.Request) (reports.Dashboard, error)
}

// PaymentRecorder is the subset of *payments.Service the handler uses.
type PaymentRecorder interface {
	Record(ctx context.Context, in payments.Input) (payments.Result, error)
}

// Handler wires report and payment endpoints.
type Handler struct {
	logger    *slog.Logger
	reports   ReportService
	payments  PaymentRecorder
	rateLimit func(http.Handler) http.Handler
}

// Options tunes the handler.
type Options struct {
	// ExportsPerMinute limits CSV/XLSX downloads per client IP.
	ExportsPerMinute int
}

// NewHandler constructs the report handler.
func NewHandler(logger *slog.Logger, reports ReportService, payments PaymentRecorder, opts Options) *Handler {
	if opts.ExportsPerMinute <= 0 {
		opts.ExportsPerMinute = 30
	}
	return &Handler{
		logger:    logger,
		reports:   reports,
		payments:  payments,
		rateLimit: httprate.Limit(opts.ExportsPerMinute, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP, exportKey)),
	}
}

// MountRoutes registers report and payment routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/reports", func(r chi.Router) {
		r.Use(h.limitExports)
		r.Get("/ledger", h.handleLedger)
		r.Get("/period", h.handlePeriod)
		r.Get("/valuation", h.handleValuation)
		r.Get("/stock-card", h.handleStockCard)
		r.Get("/dashboard", h.handleDashboard)
	})
	r.Post("/payments", h.handleRecordPayment)
}

// limitExports applies the rate limit to file downloads only.
func (h *Handler) limitExports(next http.Handler) http.Handler {
	limited := h.rateLimit(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if format := r.URL.Query().Get("format"); format == "csv" || format == "xlsx" {
			limited.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func exportKey(r *http.Request) (string, error) {
	return r.URL.Query().Get("format"), nil
}

func (h *Handler) handleLedger(w http.ResponseWriter, r *http.Request) {
	req, format, err := parseRequest(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	l, err := h.reports.Ledger(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, r, format, "farmer-ledger-"+fileStamp(l.Window), l, export.LedgerTables(l))
}

func (h *Handler) handlePeriod(w http.ResponseWriter, r *http.Request) {
	req, format, err := parseRequest(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	s, err := h.reports.Period(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, r, format, "period-summary-"+fileStamp(s.Window), s, export.PeriodTables(s))
}

func (h *Handler) handleValuation(w http.ResponseWriter, r *http.Request) {
	req, format, err := parseRequest(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	v, err := h.reports.Valuation(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, r, format, "inventory-valuation-"+fileStamp(v.Window), v, []export.Table{export.ValuationTable(v)})
}

func (h *Handler) handleStockCard(w http.ResponseWriter, r *http.Request) {
	req, format, err := parseRequest(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	card, err := h.reports.StockCard(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	name := fmt.Sprintf("stock-card-%d-%d-%s", card.FPOID, card.ProductID, fileStamp(card.Window))
	h.respond(w, r, format, name, card, []export.Table{export.StockCardTable(card)})
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	req, format, err := parseRequest(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	d, err := h.reports.Dashboard(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	tables := append(export.PeriodTables(d.Period), export.LedgerTables(d.Ledger)...)
	h.respond(w, r, format, "dashboard-"+fileStamp(d.Period.Window), d, tables)
}

type paymentRequest struct {
	FPOID       int64  `json:"fpo_id"`
	FarmerID    int64  `json:"farmer_id"`
	Date        string `json:"date"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
}

func (h *Handler) handleRecordPayment(w http.ResponseWriter, r *http.Request) {
	var body paymentRequest
	if err := httpx.DecodeJSON(r, &body); err != nil {
		h.fail(w, r, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return
	}
	in, err := body.input(r.Header.Get("Idempotency-Key"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	res, err := h.payments.Record(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, res)
}

func (b paymentRequest) input(key string) (payments.Input, error) {
	in := payments.Input{
		FPOID:          b.FPOID,
		FarmerID:       b.FarmerID,
		Description:    strings.TrimSpace(b.Description),
		IdempotencyKey: strings.TrimSpace(key),
	}
	if b.Date != "" {
		d, err := time.Parse(records.DateLayout, b.Date)
		if err != nil {
			return payments.Input{}, fmt.Errorf("%w: date must be YYYY-MM-DD", httpx.ErrValidation)
		}
		in.Date = d
	}
	if err := in.Amount.UnmarshalText([]byte(b.Amount)); err != nil {
		return payments.Input{}, fmt.Errorf("%w: amount: %v", httpx.ErrValidation, err)
	}
	return in, nil
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, format, name string, data any, tables []export.Table) {
	switch format {
	case "csv":
		var buf bytes.Buffer
		if err := export.WriteCSV(&buf, tables...); err != nil {
			h.fail(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name+".csv"))
		_, _ = w.Write(buf.Bytes())
	case "xlsx":
		var buf bytes.Buffer
		if err := export.WriteXLSX(&buf, tables...); err != nil {
			h.fail(w, r, err)
			return
		}
		w.Header().Set("Content-Type", export.ContentTypeXLSX)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name+".xlsx"))
		_, _ = w.Write(buf.Bytes())
	default:
		httpx.JSON(w, http.StatusOK, data)
	}
}

var errorRules = []httpx.Rule{
	{Sentinel: httpx.ErrValidation, Members: []error{
		records.ErrInvalidInput, records.ErrWindowRequired, records.ErrInvalidWindow, inventory.ErrScopeRequired,
	}},
	{Sentinel: httpx.ErrNotFound, Members: []error{
		payments.ErrUnknownFarmer, snapshot.ErrUnknownReference, shared.ErrNotFound,
	}},
	{Sentinel: httpx.ErrConflict, Members: []error{
		payments.ErrOverpayment, snapshot.ErrDuplicatePayment, shared.ErrIdempotencyConflict,
	}},
	{Sentinel: httpx.ErrBusy, Members: []error{shared.ErrLockHeld}},
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	err = httpx.Classify(err, errorRules...)
	if !errors.Is(err, httpx.ErrValidation) && !errors.Is(err, httpx.ErrNotFound) &&
		!errors.Is(err, httpx.ErrConflict) && !errors.Is(err, httpx.ErrBusy) {
		h.logger.Error("report request failed",
			slog.String("path", r.URL.Path),
			slog.Any("error", err),
		)
	}
	httpx.RespondError(w, err)
}

// parseRequest reads month or from/to plus the id filters and the format.
func parseRequest(r *http.Request) (reports.Request, string, error) {
	q := r.URL.Query()
	var req reports.Request

	format := strings.ToLower(q.Get("format"))
	switch format {
	case "", "json":
		format = "json"
	case "csv", "xlsx":
	default:
		return req, "", fmt.Errorf("%w: format must be json, csv or xlsx", httpx.ErrValidation)
	}

	var err error
	switch month, from, to := q.Get("month"), q.Get("from"), q.Get("to"); {
	case month != "" && (from != "" || to != ""):
		return req, "", fmt.Errorf("%w: use either month or from/to", httpx.ErrValidation)
	case month != "":
		req.Window, err = records.ParseMonth(month)
	case from != "" || to != "":
		req.Window, err = records.ParseRange(from, to)
	default:
		return req, "", fmt.Errorf("%w: month or from/to required", records.ErrWindowRequired)
	}
	if err != nil {
		return req, "", err
	}

	for _, f := range []struct {
		name string
		dst  **int64
	}{
		{"fpo_id", &req.Filters.FPOID},
		{"product_id", &req.Filters.ProductID},
		{"farmer_id", &req.Filters.FarmerID},
	} {
		raw := q.Get(f.name)
		if raw == "" {
			continue
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return req, "", fmt.Errorf("%w: %s must be a positive integer", httpx.ErrValidation, f.name)
		}
		*f.dst = records.ID(id)
	}
	return req, format, nil
}

func fileStamp(w records.TimeWindow) string {
	return w.Start.Format("20060102") + "-" + w.End.Format("20060102")
}
