// Package reports loads record snapshots and runs the ledger, period,
// valuation and stock-card engines over them.
package reports

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/mahafpc/fpo-ledger/internal/inventory"
	"github.com/mahafpc/fpo-ledger/internal/ledger"
	"github.com/mahafpc/fpo-ledger/internal/period"
	"github.com/mahafpc/fpo-ledger/internal/records"
	"github.com/mahafpc/fpo-ledger/internal/snapshot"
)

// Loader reads a consistent snapshot of records.
type Loader interface {
	Load(ctx context.Context, scope snapshot.Scope) (records.Snapshot, error)
}

// MetricsPort observes report builds.
type MetricsPort interface {
	ObserveReport(report string, elapsed time.Duration, rows int)
	ObserveNegativeStock()
}

// Request scopes one report.
type Request struct {
	Window  records.TimeWindow
	Filters records.Filters
}

// Dashboard pairs the farmer ledger and the period summary built from the
// same snapshot.
type Dashboard struct {
	Ledger ledger.Ledger  `json:"ledger"`
	Period period.Summary `json:"period"`
}

// Service builds reports.
type Service struct {
	loader  Loader
	metrics MetricsPort
	logger  *slog.Logger
	workers int
	loads   singleflight.Group
}

// Config groups optional settings.
type Config struct {
	// Workers bounds the per-FPO fan-out of period summaries.
	Workers int
}

// NewService builds Service. metrics may be nil.
func NewService(loader Loader, metrics MetricsPort, cfg Config, logger *slog.Logger) *Service {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{loader: loader, metrics: metrics, logger: logger, workers: cfg.Workers}
}

// Ledger returns the farmer ledger for the request.
func (s *Service) Ledger(ctx context.Context, req Request) (ledger.Ledger, error) {
	if err := req.Window.Validate(); err != nil {
		return ledger.Ledger{}, err
	}
	start := time.Now()
	snap, err := s.load(ctx, ledgerScope(req))
	if err != nil {
		return ledger.Ledger{}, err
	}
	l, err := ledger.Build(ledgerInput(snap, req))
	if err != nil {
		return ledger.Ledger{}, err
	}
	s.observe("ledger", start, len(l.Farmers))
	return l, nil
}

// Period returns the cross-FPO period summary for the request.
func (s *Service) Period(ctx context.Context, req Request) (period.Summary, error) {
	if err := req.Window.Validate(); err != nil {
		return period.Summary{}, err
	}
	start := time.Now()
	snap, err := s.load(ctx, periodScope(req))
	if err != nil {
		return period.Summary{}, err
	}
	summary, err := period.BuildParallel(ctx, periodInput(snap, req), s.workers)
	if err != nil {
		return period.Summary{}, err
	}
	s.observe("period", start, len(summary.FPOs))
	return summary, nil
}

// Dashboard loads one snapshot and builds the ledger and period summary from
// it concurrently.
func (s *Service) Dashboard(ctx context.Context, req Request) (Dashboard, error) {
	if err := req.Window.Validate(); err != nil {
		return Dashboard{}, err
	}
	start := time.Now()
	// each engine applies its own filters, so load what either needs
	scope := snapshot.ScopeFor(req.Window, req.Filters)
	scope.FarmerID, scope.ProductID = nil, nil
	snap, err := s.load(ctx, scope)
	if err != nil {
		return Dashboard{}, err
	}

	var out Dashboard
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		l, err := ledger.Build(ledgerInput(snap, req))
		if err != nil {
			return err
		}
		out.Ledger = l
		return nil
	})
	g.Go(func() error {
		p, err := period.BuildParallel(gctx, periodInput(snap, req), s.workers)
		if err != nil {
			return err
		}
		out.Period = p
		return nil
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}
	s.observe("dashboard", start, len(out.Ledger.Farmers)+len(out.Period.FPOs))
	return out, nil
}

// StockCard reconstructs the approximate stock card for the FPO and product
// named in the filters.
func (s *Service) StockCard(ctx context.Context, req Request) (inventory.Card, error) {
	if req.Filters.FPOID == nil || req.Filters.ProductID == nil {
		return inventory.Card{}, inventory.ErrScopeRequired
	}
	if err := req.Window.Validate(); err != nil {
		return inventory.Card{}, err
	}
	start := time.Now()
	window := req.Filters.Narrow(req.Window)
	// history before the window feeds the opening balance
	snap, err := s.load(ctx, snapshot.Scope{FPOID: req.Filters.FPOID, ProductID: req.Filters.ProductID, To: &window.End})
	if err != nil {
		return inventory.Card{}, err
	}
	fpoID, productID := *req.Filters.FPOID, *req.Filters.ProductID
	card, err := inventory.Reconstruct(inventory.Input{
		FPOID:        fpoID,
		ProductID:    productID,
		Opening:      inventory.OpeningBalance(snap.Inventory, snap.Procurements, snap.Sales, fpoID, productID, window.Start),
		Procurements: snap.Procurements,
		Sales:        snap.Sales,
		Window:       window,
	})
	if err != nil {
		return inventory.Card{}, err
	}
	if card.Negative {
		s.logger.Warn("reconstructed stock went negative",
			slog.Int64("fpo_id", fpoID),
			slog.Int64("product_id", productID),
			slog.String("window", window.String()),
		)
		if s.metrics != nil {
			s.metrics.ObserveNegativeStock()
		}
	}
	s.observe("stock_card", start, len(card.Entries))
	return card, nil
}

// load coalesces identical concurrent loads.
func (s *Service) load(ctx context.Context, scope snapshot.Scope) (records.Snapshot, error) {
	ch := s.loads.DoChan(scopeKey(scope), func() (any, error) {
		return s.loader.Load(context.WithoutCancel(ctx), scope)
	})
	select {
	case <-ctx.Done():
		return records.Snapshot{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return records.Snapshot{}, res.Err
		}
		return res.Val.(records.Snapshot), nil
	}
}

func (s *Service) observe(report string, start time.Time, rows int) {
	if s.metrics != nil {
		s.metrics.ObserveReport(report, time.Since(start), rows)
	}
}

func ledgerInput(snap records.Snapshot, req Request) ledger.Input {
	return ledger.Input{
		Farmers:      snap.Farmers,
		Procurements: snap.Procurements,
		Payments:     snap.Payments,
		Window:       req.Window,
		Filters:      req.Filters,
	}
}

func periodInput(snap records.Snapshot, req Request) period.Input {
	return period.Input{
		FPOs:         snap.FPOs,
		Products:     snap.Products,
		Procurements: snap.Procurements,
		Sales:        snap.Sales,
		Inventory:    snap.Inventory,
		Window:       req.Window,
		Filters:      req.Filters,
	}
}

// ledgerScope drops the product filter: payments are not tied to products.
func ledgerScope(req Request) snapshot.Scope {
	scope := snapshot.ScopeFor(req.Window, req.Filters)
	scope.ProductID = nil
	return scope
}

// periodScope drops the farmer filter: sales carry no farmer.
func periodScope(req Request) snapshot.Scope {
	scope := snapshot.ScopeFor(req.Window, req.Filters)
	scope.FarmerID = nil
	return scope
}

func scopeKey(s snapshot.Scope) string {
	return fmt.Sprintf("%s|%s|%s|%s|%s", idKey(s.FPOID), idKey(s.FarmerID), idKey(s.ProductID), dateKey(s.From), dateKey(s.To))
}

func idKey(v *int64) string {
	if v == nil {
		return "*"
	}
	return fmt.Sprint(*v)
}

func dateKey(t *time.Time) string {
	if t == nil {
		return "*"
	}
	return t.Format(records.DateLayout)
}
