package export

import (
	"fmt"

	"github.com/mahafpc/fpo-ledger/internal/inventory"
	"github.com/mahafpc/fpo-ledger/internal/ledger"
	"github.com/mahafpc/fpo-ledger/internal/money"
	"github.com/mahafpc/fpo-ledger/internal/period"
	"github.com/mahafpc/fpo-ledger/internal/reports"
)

// display renders the human-readable totals in table metadata.
var display = money.NewFormatter("en-IN")

// LedgerTables renders the farmer summary and the drill-down lines.
func LedgerTables(l ledger.Ledger) []Table {
	summary := Table{
		Name:   "Farmer Ledger",
		Title:  "Farmer Ledger",
		Meta:   []string{"Window: " + l.Window.String(), "Outstanding: " + display.Money(l.Totals.Remaining)},
		Header: []string{"Farmer ID", "Farmer", "Purchase Qty (t)", "Purchase Amount", "Paid", "Remaining"},
	}
	lines := Table{
		Name:   "Ledger Lines",
		Title:  "Farmer Ledger Lines",
		Meta:   summary.Meta,
		Header: []string{"Farmer ID", "Farmer", "Date", "Type", "Line ID", "Quantity (t)", "Rate", "Amount", "Description"},
	}
	for _, s := range l.Farmers {
		summary.AddRow(s.FarmerID, s.FarmerName, s.TotalPurchaseQty, s.TotalPurchaseAmount, s.TotalPaid, s.Remaining)
		for _, p := range s.Procurements {
			lines.AddRow(s.FarmerID, s.FarmerName, p.Date, "procurement", p.ID, p.Quantity, p.Rate, p.Amount, "")
		}
		for _, p := range s.Payments {
			lines.AddRow(s.FarmerID, s.FarmerName, p.Date, "payment", p.ID, "", "", p.Amount, p.Description)
		}
	}
	summary.AddRow("", "Total", "", l.Totals.Purchase, l.Totals.Paid, l.Totals.Remaining)
	return []Table{summary, lines}
}

// PeriodTables renders per-FPO totals, per-FPO product rows and the overall
// product rows.
func PeriodTables(s period.Summary) []Table {
	meta := []string{
		"Window: " + s.Window.String(),
		fmt.Sprintf("FPOs with activity: %d", s.Overall.FPOCount),
		"Total business: " + display.Money(s.Overall.Totals.TotalBusiness),
	}
	fpos := Table{
		Name:  "FPO Summary",
		Title: "Period Summary by FPO",
		Meta:  meta,
		Header: []string{"FPO ID", "FPO", "Procurement Qty (t)", "Procurement Amount", "Procurements",
			"Sales Qty (t)", "Sales Amount", "Sales", "Pending Sales", "Inventory Value", "Unvalued Products", "Total Business"},
	}
	addTotals := func(id any, name string, t period.Totals) {
		fpos.AddRow(id, name, t.ProcurementQuantity, t.ProcurementAmount, t.ProcurementCount,
			t.SalesQuantity, t.SalesAmount, t.SalesCount, t.SalesPendingAmount, t.InventoryValue, t.UnvaluedProducts, t.TotalBusiness)
	}
	products := Table{
		Name:   "FPO Products",
		Title:  "Period Summary by FPO and Product",
		Meta:   meta,
		Header: append([]string{"FPO ID", "FPO"}, productHeader...),
	}
	for _, f := range s.FPOs {
		addTotals(f.FPOID, f.FPOName, f.Totals)
		for _, r := range f.Products {
			products.AddRow(append([]any{f.FPOID, f.FPOName}, productCells(r)...)...)
		}
	}
	addTotals("", "Overall", s.Overall.Totals)

	overall := Table{Name: "Products", Title: "Period Summary by Product", Meta: meta, Header: productHeader}
	for _, r := range s.Overall.Products {
		overall.AddRow(productCells(r)...)
	}
	return []Table{fpos, products, overall}
}

var productHeader = []string{"Product ID", "Product", "Procurement Qty (t)", "Procurement Amount", "Procurement Rate",
	"Sales Qty (t)", "Sales Amount", "Sales Rate", "Pending Sales", "Inventory (t)", "Inventory Value"}

func productCells(r period.ProductRow) []any {
	return []any{r.ProductID, r.ProductName, r.ProcurementQuantity, r.ProcurementAmount, r.ProcurementRate,
		r.SalesQuantity, r.SalesAmount, r.SalesRate, r.SalesPendingAmount, r.Inventory, r.InventoryValue}
}

// ValuationTable renders valued inventory.
func ValuationTable(v reports.Valuation) Table {
	t := Table{
		Name:  "Inventory Valuation",
		Title: "Inventory Valuation",
		Meta: []string{
			"Rates from procurements in " + v.Window.String(),
			"Total value: " + display.Money(v.TotalValue),
			fmt.Sprintf("Unvalued lines: %d", v.Unvalued),
		},
		Header: []string{"FPO ID", "FPO", "Product ID", "Product", "As Of", "Quantity (t)", "Rate", "Value"},
	}
	for _, l := range v.Lines {
		t.AddRow(l.FPOID, l.FPOName, l.ProductID, l.ProductName, l.AsOf, l.Quantity, l.Rate, l.Value)
	}
	t.AddRow("", "Total", "", "", "", "", "", v.TotalValue)
	return t
}

// StockCardTable renders a reconstructed stock card.
func StockCardTable(c inventory.Card) Table {
	meta := []string{
		fmt.Sprintf("FPO: %d | Product: %d | Window: %s", c.FPOID, c.ProductID, c.Window.String()),
		"Approximate: reconstructed from procurement and sales lines",
	}
	if c.Negative {
		meta = append(meta, "Warning: running balance went negative")
	}
	t := Table{
		Name:   "Stock Card",
		Title:  "Stock Card",
		Meta:   meta,
		Header: []string{"Date", "Type", "Ref", "Qty In (t)", "Qty Out (t)", "Balance (t)", "Unit Cost", "Avg Cost"},
	}
	for _, e := range c.Entries {
		t.AddRow(e.Date, string(e.Type), e.Ref, e.QtyIn, e.QtyOut, e.Balance, e.UnitCost, e.AvgCost)
	}
	return t
}
