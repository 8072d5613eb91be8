// Package ledger builds per-farmer purchase and payment balances for a time
// window.
package ledger

import (
	"sort"

	"github.com/mahafpc/fpo-ledger/internal/money"
	"github.com/mahafpc/fpo-ledger/internal/records"
)

// Input is the snapshot and scope a ledger is built from.
type Input struct {
	Farmers      []records.Farmer
	Procurements []records.ProcurementLine
	Payments     []records.PaymentLine
	Window       records.TimeWindow
	Filters      records.Filters
}

// FarmerSummary is one farmer's position within the window. Remaining is
// negative when the farmer has been overpaid.
type FarmerSummary struct {
	FarmerID            int64                     `json:"farmer_id"`
	FarmerName          string                    `json:"farmer_name"`
	TotalPurchaseQty    money.Quantity            `json:"total_purchase_quantity"`
	TotalPurchaseAmount money.Money               `json:"total_purchase_amount"`
	TotalPaid           money.Money               `json:"total_paid"`
	Remaining           money.Money               `json:"remaining"`
	Procurements        []records.ProcurementLine `json:"procurements"`
	Payments            []records.PaymentLine     `json:"payments"`
}

// Totals sums every farmer in the ledger.
type Totals struct {
	Purchase  money.Money `json:"purchase"`
	Paid      money.Money `json:"paid"`
	Remaining money.Money `json:"remaining"`
}

// Ledger is the sparse set of farmers with activity in Window, ordered by
// farmer name.
type Ledger struct {
	Window  records.TimeWindow `json:"window"`
	Farmers []FarmerSummary    `json:"farmers"`
	Totals  Totals             `json:"totals"`
}

// Build groups in-window procurements and payments by farmer. Farmers without
// activity in the window are omitted. Lines naming a farmer missing from
// in.Farmers are still counted under UnknownName.
func Build(in Input) (Ledger, error) {
	if err := in.Window.Validate(); err != nil {
		return Ledger{}, err
	}
	window := in.Filters.Narrow(in.Window)
	names := make(map[int64]string, len(in.Farmers))
	for _, f := range in.Farmers {
		names[f.ID] = f.Name
	}

	byFarmer := make(map[int64]*FarmerSummary)
	summary := func(farmerID int64) *FarmerSummary {
		s, ok := byFarmer[farmerID]
		if !ok {
			s = &FarmerSummary{
				FarmerID:     farmerID,
				FarmerName:   records.NameOr(names, farmerID),
				Procurements: []records.ProcurementLine{},
				Payments:     []records.PaymentLine{},
			}
			byFarmer[farmerID] = s
		}
		return s
	}

	for _, l := range in.Procurements {
		if !window.Contains(l.Date) || !in.Filters.MatchFPO(l.FPOID) || !in.Filters.MatchFarmer(l.FarmerID) {
			continue
		}
		s := summary(l.FarmerID)
		l.Amount = l.Extended()
		s.TotalPurchaseQty += l.Quantity
		s.TotalPurchaseAmount += l.Amount
		s.Procurements = append(s.Procurements, l)
	}
	for _, p := range in.Payments {
		if !window.Contains(p.Date) || !in.Filters.MatchFPO(p.FPOID) || !in.Filters.MatchFarmer(p.FarmerID) {
			continue
		}
		s := summary(p.FarmerID)
		s.TotalPaid += p.Amount
		s.Payments = append(s.Payments, p)
	}

	out := Ledger{Window: window, Farmers: make([]FarmerSummary, 0, len(byFarmer))}
	for _, s := range byFarmer {
		s.Remaining = s.TotalPurchaseAmount - s.TotalPaid
		sortProcurements(s.Procurements)
		sortPayments(s.Payments)
		out.Farmers = append(out.Farmers, *s)
		out.Totals.Purchase += s.TotalPurchaseAmount
		out.Totals.Paid += s.TotalPaid
		out.Totals.Remaining += s.Remaining
	}
	sort.Slice(out.Farmers, func(i, j int) bool {
		a, b := out.Farmers[i], out.Farmers[j]
		if a.FarmerName != b.FarmerName {
			return a.FarmerName < b.FarmerName
		}
		return a.FarmerID < b.FarmerID
	})
	return out, nil
}

// Lookup returns the summary for farmerID, if the farmer had activity.
func (l Ledger) Lookup(farmerID int64) (FarmerSummary, bool) {
	for _, s := range l.Farmers {
		if s.FarmerID == farmerID {
			return s, true
		}
	}
	return FarmerSummary{}, false
}

// ByFarmer indexes the summaries by farmer id.
func (l Ledger) ByFarmer() map[int64]FarmerSummary {
	out := make(map[int64]FarmerSummary, len(l.Farmers))
	for _, s := range l.Farmers {
		out[s.FarmerID] = s
	}
	return out
}

func sortProcurements(lines []records.ProcurementLine) {
	sort.Slice(lines, func(i, j int) bool {
		if !lines[i].Date.Equal(lines[j].Date) {
			return lines[i].Date.After(lines[j].Date)
		}
		return lines[i].ID > lines[j].ID
	})
}

func sortPayments(lines []records.PaymentLine) {
	sort.Slice(lines, func(i, j int) bool {
		if !lines[i].Date.Equal(lines[j].Date) {
			return lines[i].Date.After(lines[j].Date)
		}
		return lines[i].ID > lines[j].ID
	})
}
