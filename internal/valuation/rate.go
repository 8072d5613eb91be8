// Package valuation computes quantity-weighted rates and values stated
// inventory with them.
package valuation

import (
	"github.com/mahafpc/fpo-ledger/internal/money"
	"github.com/mahafpc/fpo-ledger/internal/records"
)

// Accumulator collects quantity and extended amount for one product (or any
// other grouping) so that a weighted average rate can be derived. The zero
// value is ready to use.
type Accumulator struct {
	Quantity money.Quantity `json:"quantity"`
	Amount   money.Money    `json:"amount"`
	Count    int            `json:"count"`
}

// Add folds one line into the accumulator. The amount is always recomputed
// from quantity and rate.
func (a *Accumulator) Add(q money.Quantity, rate money.Money) {
	a.Quantity += q
	a.Amount += money.Extend(q, rate)
	a.Count++
}

// Merge returns the field-wise sum of a and b.
func (a Accumulator) Merge(b Accumulator) Accumulator {
	return Accumulator{
		Quantity: a.Quantity + b.Quantity,
		Amount:   a.Amount + b.Amount,
		Count:    a.Count + b.Count,
	}
}

// Rate returns Amount/Quantity, or an invalid NullMoney when no quantity has
// been accumulated.
func (a Accumulator) Rate() money.NullMoney {
	return money.RateOf(a.Amount, a.Quantity)
}

// WeightedRate returns Σ(quantity*rate) / Σ(quantity) for lines the caller has
// already filtered to one product. The result is undefined when the lines
// carry no quantity.
func WeightedRate(lines []records.ProcurementLine) money.NullMoney {
	var acc Accumulator
	for _, l := range lines {
		acc.Add(l.Quantity, l.Rate)
	}
	return acc.Rate()
}

// RatesByProduct groups lines by product and returns each product's weighted
// rate. Products absent from lines are absent from the map.
func RatesByProduct(lines []records.ProcurementLine) map[int64]money.NullMoney {
	accs := make(map[int64]*Accumulator)
	for _, l := range lines {
		acc, ok := accs[l.ProductID]
		if !ok {
			acc = &Accumulator{}
			accs[l.ProductID] = acc
		}
		acc.Add(l.Quantity, l.Rate)
	}
	rates := make(map[int64]money.NullMoney, len(accs))
	for id, acc := range accs {
		rates[id] = acc.Rate()
	}
	return rates
}
