package period

import (
	"sort"

	"github.com/mahafpc/fpo-ledger/internal/money"
)

// Add returns the field-wise sum of t and o.
func (t Totals) Add(o Totals) Totals {
	return Totals{
		ProcurementQuantity: t.ProcurementQuantity + o.ProcurementQuantity,
		ProcurementAmount:   t.ProcurementAmount + o.ProcurementAmount,
		ProcurementCount:    t.ProcurementCount + o.ProcurementCount,
		SalesQuantity:       t.SalesQuantity + o.SalesQuantity,
		SalesAmount:         t.SalesAmount + o.SalesAmount,
		SalesCount:          t.SalesCount + o.SalesCount,
		SalesPendingAmount:  t.SalesPendingAmount + o.SalesPendingAmount,
		InventoryValue:      t.InventoryValue + o.InventoryValue,
		UnvaluedProducts:    t.UnvaluedProducts + o.UnvaluedProducts,
		TotalBusiness:       t.TotalBusiness + o.TotalBusiness,
	}
}

// mergeRow adds o into r and recomputes both weighted rates from the merged
// quantities and amounts.
func mergeRow(r, o ProductRow) ProductRow {
	r.ProcurementQuantity += o.ProcurementQuantity
	r.ProcurementAmount += o.ProcurementAmount
	r.ProcurementCount += o.ProcurementCount
	r.SalesQuantity += o.SalesQuantity
	r.SalesAmount += o.SalesAmount
	r.SalesCount += o.SalesCount
	r.SalesPendingAmount += o.SalesPendingAmount
	r.Inventory = r.Inventory.Add(o.Inventory)
	r.InventoryValue = r.InventoryValue.Add(o.InventoryValue)
	r.ProcurementRate = money.RateOf(r.ProcurementAmount, r.ProcurementQuantity)
	r.SalesRate = money.RateOf(r.SalesAmount, r.SalesQuantity)
	return r
}

// Merge reduces two overall summaries into one. It is associative and
// commutative, so per-FPO results can be combined in any grouping or order.
func Merge(a, b Overall) Overall {
	out := Overall{
		FPOCount: a.FPOCount + b.FPOCount,
		Totals:   a.Totals.Add(b.Totals),
	}
	out.Products = mergeProducts(append(append([]ProductRow(nil), a.Products...), b.Products...))
	return out
}

func mergeProducts(rows []ProductRow) []ProductRow {
	byID := make(map[int64]int, len(rows))
	out := make([]ProductRow, 0, len(rows))
	for _, row := range rows {
		if i, ok := byID[row.ProductID]; ok {
			out[i] = mergeRow(out[i], row)
			continue
		}
		byID[row.ProductID] = len(out)
		out = append(out, row)
	}
	sortProducts(out)
	return out
}

func sortProducts(rows []ProductRow) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].ProductName != rows[j].ProductName {
			return rows[i].ProductName < rows[j].ProductName
		}
		return rows[i].ProductID < rows[j].ProductID
	})
}

func fromFPO(s FPOSummary) Overall {
	return Overall{FPOCount: 1, Totals: s.Totals, Products: s.Products}
}
