// Package period aggregates procurement, sales and inventory for a set of
// FPOs over a time window.
package period

import (
	"github.com/mahafpc/fpo-ledger/internal/money"
	"github.com/mahafpc/fpo-ledger/internal/records"
)

// Input is the snapshot and scope a period summary is built from. FPOs is the
// aggregation scope: lines belonging to other organisations are not counted.
type Input struct {
	FPOs         []records.FPO
	Products     []records.Product
	Procurements []records.ProcurementLine
	Sales        []records.SaleLine
	Inventory    []records.InventorySnapshot
	Window       records.TimeWindow
	Filters      records.Filters
}

// ProductRow is the product-wise breakdown for one FPO (or, in Overall, for
// every FPO). Rates are recomputed from the in-window lines.
type ProductRow struct {
	ProductID           int64              `json:"product_id"`
	ProductName         string             `json:"product_name"`
	ProcurementQuantity money.Quantity     `json:"procurement_quantity"`
	ProcurementAmount   money.Money        `json:"procurement_amount"`
	ProcurementCount    int                `json:"procurement_count"`
	ProcurementRate     money.NullMoney    `json:"procurement_rate"`
	SalesQuantity       money.Quantity     `json:"sales_quantity"`
	SalesAmount         money.Money        `json:"sales_amount"`
	SalesCount          int                `json:"sales_count"`
	SalesRate           money.NullMoney    `json:"sales_rate"`
	SalesPendingAmount  money.Money        `json:"sales_pending_amount"`
	Inventory           money.NullQuantity `json:"inventory"`
	InventoryValue      money.NullMoney    `json:"inventory_value"`
}

// Totals are the additive figures of a summary. Every field merges by plain
// addition, which keeps the overall reduction associative.
type Totals struct {
	ProcurementQuantity money.Quantity `json:"procurement_quantity"`
	ProcurementAmount   money.Money    `json:"procurement_amount"`
	ProcurementCount    int            `json:"procurement_count"`
	SalesQuantity       money.Quantity `json:"sales_quantity"`
	SalesAmount         money.Money    `json:"sales_amount"`
	SalesCount          int            `json:"sales_count"`
	SalesPendingAmount  money.Money    `json:"sales_pending_amount"`
	InventoryValue      money.Money    `json:"inventory_value"`
	UnvaluedProducts    int            `json:"unvalued_products"`
	TotalBusiness       money.Money    `json:"total_business"`
}

// FPOSummary is one organisation's activity in the window.
type FPOSummary struct {
	FPOID    int64        `json:"fpo_id"`
	FPOName  string       `json:"fpo_name"`
	Totals   Totals       `json:"totals"`
	Products []ProductRow `json:"products"`
}

// Overall is the reduction of every FPOSummary.
type Overall struct {
	FPOCount int          `json:"fpo_count"`
	Totals   Totals       `json:"totals"`
	Products []ProductRow `json:"products"`
}

// Summary is the result of Build.
type Summary struct {
	Window  records.TimeWindow `json:"window"`
	FPOs    []FPOSummary       `json:"fpos"`
	Overall Overall            `json:"overall"`
}
