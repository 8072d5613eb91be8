package period

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/mahafpc/fpo-ledger/internal/money"
	"github.com/mahafpc/fpo-ledger/internal/records"
	"github.com/mahafpc/fpo-ledger/internal/valuation"
)

type productKey struct {
	fpoID     int64
	productID int64
}

type productAcc struct {
	procurement valuation.Accumulator
	sales       valuation.Accumulator
	pending     money.Money
}

// index holds the in-window lines grouped by FPO and product. It is built once
// and only read afterwards, so per-FPO summaries may run concurrently.
type index struct {
	names    map[int64]string
	products map[int64]map[int64]*productAcc
	stock    map[productKey]records.InventorySnapshot
}

func newIndex(in Input, window records.TimeWindow) *index {
	idx := &index{
		names:    make(map[int64]string, len(in.Products)),
		products: make(map[int64]map[int64]*productAcc),
		stock:    make(map[productKey]records.InventorySnapshot),
	}
	for _, p := range in.Products {
		idx.names[p.ID] = p.Name
	}
	acc := func(fpoID, productID int64) *productAcc {
		byProduct, ok := idx.products[fpoID]
		if !ok {
			byProduct = make(map[int64]*productAcc)
			idx.products[fpoID] = byProduct
		}
		a, ok := byProduct[productID]
		if !ok {
			a = &productAcc{}
			byProduct[productID] = a
		}
		return a
	}
	for _, l := range in.Procurements {
		if !window.Contains(l.Date) || !in.Filters.MatchProduct(l.ProductID) {
			continue
		}
		acc(l.FPOID, l.ProductID).procurement.Add(l.Quantity, l.Rate)
	}
	for _, l := range in.Sales {
		if !window.Contains(l.Date) || !in.Filters.MatchProduct(l.ProductID) {
			continue
		}
		a := acc(l.FPOID, l.ProductID)
		a.sales.Add(l.Quantity, l.Rate)
		if l.Status == records.SaleStatusPending {
			a.pending += l.Extended()
		}
	}
	for _, s := range valuation.Latest(in.Inventory) {
		idx.stock[productKey{s.FPOID, s.ProductID}] = s
	}
	return idx
}

// summarise returns the FPO's summary and whether it had any activity.
func (idx *index) summarise(fpo records.FPO) (FPOSummary, bool) {
	byProduct := idx.products[fpo.ID]
	if len(byProduct) == 0 {
		return FPOSummary{}, false
	}
	s := FPOSummary{FPOID: fpo.ID, FPOName: fpo.Name, Products: make([]ProductRow, 0, len(byProduct))}
	for productID, a := range byProduct {
		row := ProductRow{
			ProductID:           productID,
			ProductName:         records.NameOr(idx.names, productID),
			ProcurementQuantity: a.procurement.Quantity,
			ProcurementAmount:   a.procurement.Amount,
			ProcurementCount:    a.procurement.Count,
			ProcurementRate:     a.procurement.Rate(),
			SalesQuantity:       a.sales.Quantity,
			SalesAmount:         a.sales.Amount,
			SalesCount:          a.sales.Count,
			SalesRate:           a.sales.Rate(),
			SalesPendingAmount:  a.pending,
		}
		if snap, ok := idx.stock[productKey{fpo.ID, productID}]; ok {
			line := valuation.ValueInventory(snap, row.ProcurementRate)
			row.Inventory = money.SomeQuantity(line.Quantity)
			row.InventoryValue = line.Value
			if line.Value.Valid {
				s.Totals.InventoryValue += line.Value.Money
			} else {
				s.Totals.UnvaluedProducts++
			}
		}
		s.Totals.ProcurementQuantity += row.ProcurementQuantity
		s.Totals.ProcurementAmount += row.ProcurementAmount
		s.Totals.ProcurementCount += row.ProcurementCount
		s.Totals.SalesQuantity += row.SalesQuantity
		s.Totals.SalesAmount += row.SalesAmount
		s.Totals.SalesCount += row.SalesCount
		s.Totals.SalesPendingAmount += row.SalesPendingAmount
		s.Products = append(s.Products, row)
	}
	s.Totals.TotalBusiness = s.Totals.ProcurementAmount + s.Totals.SalesAmount
	sortProducts(s.Products)
	return s, true
}

// scope returns the FPOs selected by the filters, deduplicated by id.
func scope(in Input) []records.FPO {
	seen := make(map[int64]bool, len(in.FPOs))
	out := make([]records.FPO, 0, len(in.FPOs))
	for _, f := range in.FPOs {
		if seen[f.ID] || !in.Filters.MatchFPO(f.ID) {
			continue
		}
		seen[f.ID] = true
		out = append(out, f)
	}
	return out
}

// Build summarises every FPO in in.FPOs over the window. FPOs with no
// procurement or sale in the window are omitted, and Overall is the Merge of
// the remaining summaries.
func Build(in Input) (Summary, error) {
	return build(context.Background(), in, 1)
}

// BuildParallel is Build with per-FPO summaries computed on up to workers
// goroutines. The result is identical to Build.
func BuildParallel(ctx context.Context, in Input, workers int) (Summary, error) {
	return build(ctx, in, workers)
}

func build(ctx context.Context, in Input, workers int) (Summary, error) {
	if err := in.Window.Validate(); err != nil {
		return Summary{}, err
	}
	window := in.Filters.Narrow(in.Window)
	idx := newIndex(in, window)
	fpos := scope(in)

	results := make([]FPOSummary, len(fpos))
	active := make([]bool, len(fpos))
	if workers <= 1 {
		for i, f := range fpos {
			results[i], active[i] = idx.summarise(f)
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(workers)
		for i, f := range fpos {
			i, f := i, f
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				results[i], active[i] = idx.summarise(f)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return Summary{}, err
		}
	}

	out := Summary{Window: window, FPOs: make([]FPOSummary, 0, len(fpos))}
	for i, s := range results {
		if active[i] {
			out.FPOs = append(out.FPOs, s)
		}
	}
	sort.Slice(out.FPOs, func(i, j int) bool {
		a, b := out.FPOs[i], out.FPOs[j]
		if a.FPOName != b.FPOName {
			return a.FPOName < b.FPOName
		}
		return a.FPOID < b.FPOID
	})
	out.Overall = Overall{Products: []ProductRow{}}
	for _, s := range out.FPOs {
		out.Overall = Merge(out.Overall, fromFPO(s))
	}
	return out, nil
}

// Lookup returns the summary for fpoID, if the FPO had activity.
func (s Summary) Lookup(fpoID int64) (FPOSummary, bool) {
	for _, f := range s.FPOs {
		if f.FPOID == fpoID {
			return f, true
		}
	}
	return FPOSummary{}, false
}

// Product returns the row for productID, if present.
func (s FPOSummary) Product(productID int64) (ProductRow, bool) {
	for _, r := range s.Products {
		if r.ProductID == productID {
			return r, true
		}
	}
	return ProductRow{}, false
}
