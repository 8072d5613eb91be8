package reports

import (
	"context"
	"sort"
	"time"

	"github.com/mahafpc/fpo-ledger/internal/money"
	"github.com/mahafpc/fpo-ledger/internal/records"
	"github.com/mahafpc/fpo-ledger/internal/valuation"
)

// ValuationLine is one FPO's latest stated stock of a product, valued at that
// FPO's weighted procurement rate for the window.
type ValuationLine struct {
	FPOID       int64           `json:"fpo_id"`
	FPOName     string          `json:"fpo_name"`
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	AsOf        time.Time       `json:"as_of"`
	Quantity    money.Quantity  `json:"quantity"`
	Rate        money.NullMoney `json:"rate"`
	Value       money.NullMoney `json:"value"`
}

// Valuation is the valued inventory across the FPOs in scope.
type Valuation struct {
	Window     records.TimeWindow `json:"window"`
	Lines      []ValuationLine    `json:"lines"`
	TotalValue money.Money        `json:"total_value"`
	Unvalued   int                `json:"unvalued"`
}

// Valuation values the latest inventory snapshots with rates derived from the
// procurements in the request window. Stock of a product the FPO did not buy
// in the window has an undefined value.
func (s *Service) Valuation(ctx context.Context, req Request) (Valuation, error) {
	if err := req.Window.Validate(); err != nil {
		return Valuation{}, err
	}
	start := time.Now()
	snap, err := s.load(ctx, periodScope(req))
	if err != nil {
		return Valuation{}, err
	}
	out := ValueSnapshot(snap, req)
	s.observe("valuation", start, len(out.Lines))
	return out, nil
}

// ValueSnapshot is the pure part of Valuation.
func ValueSnapshot(snap records.Snapshot, req Request) Valuation {
	window := req.Filters.Narrow(req.Window)
	procs := make(map[int64][]records.ProcurementLine)
	for _, l := range snap.Procurements {
		if window.Contains(l.Date) && req.Filters.MatchProduct(l.ProductID) {
			procs[l.FPOID] = append(procs[l.FPOID], l)
		}
	}
	stock := make(map[int64][]records.InventorySnapshot)
	for _, inv := range valuation.Latest(snap.Inventory) {
		if req.Filters.MatchFPO(inv.FPOID) && req.Filters.MatchProduct(inv.ProductID) {
			stock[inv.FPOID] = append(stock[inv.FPOID], inv)
		}
	}

	fpoNames := make(map[int64]string, len(snap.FPOs))
	for _, f := range snap.FPOs {
		fpoNames[f.ID] = f.Name
	}
	productNames := snap.ProductNames()

	out := Valuation{Window: window, Lines: []ValuationLine{}}
	for fpoID, snaps := range stock {
		asOf := make(map[int64]time.Time, len(snaps))
		for _, inv := range snaps {
			asOf[inv.ProductID] = inv.AsOf
		}
		p := valuation.ValuePortfolio(snaps, valuation.RatesByProduct(procs[fpoID]))
		out.TotalValue += p.TotalValue
		out.Unvalued += p.Unvalued
		for _, line := range p.Lines {
			out.Lines = append(out.Lines, ValuationLine{
				FPOID:       fpoID,
				FPOName:     records.NameOr(fpoNames, fpoID),
				ProductID:   line.ProductID,
				ProductName: records.NameOr(productNames, line.ProductID),
				AsOf:        asOf[line.ProductID],
				Quantity:    line.Quantity,
				Rate:        line.Rate,
				Value:       line.Value,
			})
		}
	}
	sort.Slice(out.Lines, func(i, j int) bool {
		a, b := out.Lines[i], out.Lines[j]
		if a.FPOName != b.FPOName {
			return a.FPOName < b.FPOName
		}
		if a.FPOID != b.FPOID {
			return a.FPOID < b.FPOID
		}
		if a.ProductName != b.ProductName {
			return a.ProductName < b.ProductName
		}
		return a.ProductID < b.ProductID
	})
	return out
}
