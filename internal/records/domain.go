// Package records holds the immutable input records consumed by the ledger and
// valuation engine, together with the time window and filter types that scope
// every aggregation.
package records

import (
	"errors"
	"time"

	"github.com/mahafpc/fpo-ledger/internal/money"
)

// UnknownName is displayed when a line references an id missing from the
// supplied master data. The line is still aggregated.
const UnknownName = "Unknown"

var (
	// ErrInvalidInput indicates a record rejected at the boundary.
	ErrInvalidInput = errors.New("records: invalid input")
	// ErrWindowRequired indicates an aggregation was requested without a window.
	ErrWindowRequired = errors.New("records: time window required")
	// ErrInvalidWindow indicates the window ends before it starts.
	ErrInvalidWindow = errors.New("records: window end precedes start")
)

// FPO is a farmer producer organisation.
type FPO struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	District string `json:"district,omitempty"`
}

// Farmer belongs to exactly one FPO.
type Farmer struct {
	ID           int64  `json:"id"`
	FPOID        int64  `json:"fpo_id"`
	Name         string `json:"name"`
	MobileNumber string `json:"mobile_number,omitempty"`
	VillageName  string `json:"village_name,omitempty"`
}

// Product is reference data shared across FPOs.
type Product struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
}

// ProcurementLine is a purchase from a farmer by an FPO.
type ProcurementLine struct {
	ID        int64          `json:"id"`
	Date      time.Time      `json:"date" validate:"required"`
	FarmerID  int64          `json:"farmer_id" validate:"gt=0"`
	FPOID     int64          `json:"fpo_id" validate:"gt=0"`
	ProductID int64          `json:"product_id" validate:"gt=0"`
	Quantity  money.Quantity `json:"quantity" validate:"gt=0"`
	Rate      money.Money    `json:"rate" validate:"gte=0"`
	Amount    money.Money    `json:"amount"`
}

// Extended returns quantity*rate. Aggregations use it instead of Amount.
func (l ProcurementLine) Extended() money.Money {
	return money.Extend(l.Quantity, l.Rate)
}

// PaymentLine is money disbursed to a farmer against the aggregate balance.
type PaymentLine struct {
	ID          int64       `json:"id"`
	Date        time.Time   `json:"date" validate:"required"`
	FarmerID    int64       `json:"farmer_id" validate:"gt=0"`
	FPOID       int64       `json:"fpo_id" validate:"gt=0"`
	Amount      money.Money `json:"amount" validate:"gt=0"`
	Description string      `json:"description,omitempty" validate:"max=500"`
}

// SaleStatus is the lifecycle state of an FPO to aggregator transfer.
type SaleStatus string

const (
	SaleStatusPending   SaleStatus = "pending"
	SaleStatusCompleted SaleStatus = "completed"
)

// SaleLine is a transfer of produce from an FPO to the aggregator.
type SaleLine struct {
	ID        int64          `json:"id"`
	Date      time.Time      `json:"date" validate:"required"`
	FPOID     int64          `json:"fpo_id" validate:"gt=0"`
	ProductID int64          `json:"product_id" validate:"gt=0"`
	Quantity  money.Quantity `json:"quantity" validate:"gt=0"`
	Rate      money.Money    `json:"rate" validate:"gte=0"`
	Amount    money.Money    `json:"amount"`
	Status    SaleStatus     `json:"status" validate:"oneof=pending completed"`
}

// Extended returns quantity*rate. Aggregations use it instead of Amount.
func (l SaleLine) Extended() money.Money {
	return money.Extend(l.Quantity, l.Rate)
}

// InventorySnapshot is a stated on-hand quantity. It is valued, never derived.
type InventorySnapshot struct {
	FPOID     int64          `json:"fpo_id" validate:"gt=0"`
	ProductID int64          `json:"product_id" validate:"gt=0"`
	Quantity  money.Quantity `json:"quantity" validate:"gte=0"`
	AsOf      time.Time      `json:"as_of"`
}

// Snapshot bundles one consistent read of every collection.
type Snapshot struct {
	FPOs         []FPO               `json:"fpos"`
	Farmers      []Farmer            `json:"farmers"`
	Products     []Product           `json:"products"`
	Procurements []ProcurementLine   `json:"procurements"`
	Payments     []PaymentLine       `json:"payments"`
	Sales        []SaleLine          `json:"sales"`
	Inventory    []InventorySnapshot `json:"inventory"`
}

// FarmerNames indexes farmer names by id.
func (s Snapshot) FarmerNames() map[int64]string {
	names := make(map[int64]string, len(s.Farmers))
	for _, f := range s.Farmers {
		names[f.ID] = f.Name
	}
	return names
}

// ProductNames indexes product names by id.
func (s Snapshot) ProductNames() map[int64]string {
	names := make(map[int64]string, len(s.Products))
	for _, p := range s.Products {
		names[p.ID] = p.Name
	}
	return names
}

// NameOr resolves id in names, falling back to UnknownName.
func NameOr(names map[int64]string, id int64) string {
	if name, ok := names[id]; ok && name != "" {
		return name
	}
	return UnknownName
}
