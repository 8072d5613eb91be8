package inventory

import (
	"errors"
	"time"

	"github.com/mahafpc/fpo-ledger/internal/money"
	"github.com/mahafpc/fpo-ledger/internal/records"
)

// MovementType enumerates the movements a stock card is rebuilt from.
type MovementType string

const (
	// MovementOpening is the carried-forward balance at the start of the window.
	MovementOpening MovementType = "OPENING"
	// MovementIn is a procurement from a farmer.
	MovementIn MovementType = "IN"
	// MovementOut is a sale to the aggregator.
	MovementOut MovementType = "OUT"
)

// Entry is one line of a reconstructed stock card.
type Entry struct {
	Date     time.Time       `json:"date"`
	Type     MovementType    `json:"type"`
	Ref      string          `json:"ref"`
	QtyIn    money.Quantity  `json:"qty_in"`
	QtyOut   money.Quantity  `json:"qty_out"`
	Balance  money.Quantity  `json:"balance"`
	UnitCost money.NullMoney `json:"unit_cost"`
	// AvgCost is the moving average cost of the balance after this entry.
	// It is undefined whenever the balance is not positive.
	AvgCost money.NullMoney `json:"avg_cost"`
}

// Card is a stock card derived from procurement and sales history. It is an
// estimate, so Approximate is always set; stated inventory snapshots remain
// the source of truth.
type Card struct {
	FPOID       int64              `json:"fpo_id"`
	ProductID   int64              `json:"product_id"`
	Window      records.TimeWindow `json:"window"`
	Opening     money.Quantity     `json:"opening"`
	Closing     money.Quantity     `json:"closing"`
	Entries     []Entry            `json:"entries"`
	Approximate bool               `json:"approximate"`
	// Negative is set when any running balance dropped below zero. Balances
	// are reported as computed, never clamped.
	Negative bool `json:"negative"`
}

// Input scopes a reconstruction to one FPO and product.
type Input struct {
	FPOID        int64
	ProductID    int64
	Opening      money.Quantity
	Procurements []records.ProcurementLine
	Sales        []records.SaleLine
	Window       records.TimeWindow
}

// ErrScopeRequired indicates a reconstruction without an FPO or product.
var ErrScopeRequired = errors.New("inventory: fpo and product required")
