// Package inventory rebuilds approximate stock movements for an FPO and
// product from procurement and sales lines.
package inventory

import (
	"fmt"
	"sort"
	"time"

	"github.com/mahafpc/fpo-ledger/internal/money"
	"github.com/mahafpc/fpo-ledger/internal/records"
)

type movement struct {
	date time.Time
	typ  MovementType
	id   int64
	qty  money.Quantity
	rate money.Money
}

// Reconstruct builds the stock card for in.FPOID/in.ProductID over the window,
// starting from in.Opening. Inbound movements on a day are applied before
// outbound ones.
func Reconstruct(in Input) (Card, error) {
	if in.FPOID <= 0 || in.ProductID <= 0 {
		return Card{}, ErrScopeRequired
	}
	if err := in.Window.Validate(); err != nil {
		return Card{}, err
	}
	moves := collect(in.FPOID, in.ProductID, in.Procurements, in.Sales, func(t time.Time) bool {
		return in.Window.Contains(t)
	})

	card := Card{
		FPOID:       in.FPOID,
		ProductID:   in.ProductID,
		Window:      in.Window,
		Opening:     in.Opening,
		Entries:     make([]Entry, 0, len(moves)+1),
		Approximate: true,
	}
	balance := in.Opening
	var pool money.Money
	// the opening balance carries no cost, so the average stays undefined
	// until the balance is exhausted
	costed := balance <= 0
	card.Entries = append(card.Entries, Entry{
		Date:    records.Day(in.Window.Start),
		Type:    MovementOpening,
		Ref:     string(MovementOpening),
		Balance: balance,
	})
	if balance < 0 {
		card.Negative = true
	}

	for _, m := range moves {
		entry := Entry{Date: m.date, Type: m.typ, Ref: ref(m)}
		switch m.typ {
		case MovementIn:
			entry.QtyIn = m.qty
			entry.UnitCost = money.SomeMoney(m.rate)
			if balance <= 0 {
				// a shortfall absorbs part of the receipt; only the quantity
				// left on hand is costed
				pool, costed = 0, true
				if onHand := balance + m.qty; onHand > 0 {
					pool = money.Extend(onHand, m.rate)
				}
			} else {
				pool += money.Extend(m.qty, m.rate)
			}
			balance += m.qty
		case MovementOut:
			entry.QtyOut = m.qty
			avg := avgCost(pool, balance, costed)
			entry.UnitCost = avg
			if avg.Valid {
				pool -= money.Extend(m.qty, avg.Money)
			}
			balance -= m.qty
			if balance <= 0 {
				pool, costed = 0, true
			}
		}
		entry.Balance = balance
		entry.AvgCost = avgCost(pool, balance, costed)
		if balance < 0 {
			card.Negative = true
		}
		card.Entries = append(card.Entries, entry)
	}
	card.Closing = balance
	return card, nil
}

// OpeningBalance carries the latest snapshot stated on or before start
// forward through the movements dated after it and before start. Without such
// a snapshot the balance starts from zero at the earliest movement.
func OpeningBalance(snaps []records.InventorySnapshot, procurements []records.ProcurementLine, sales []records.SaleLine, fpoID, productID int64, start time.Time) money.Quantity {
	start = records.Day(start)
	var (
		base  money.Quantity
		asOf  time.Time
		found bool
	)
	for _, s := range snaps {
		if s.FPOID != fpoID || s.ProductID != productID || s.AsOf.After(start) {
			continue
		}
		if !found || !s.AsOf.Before(asOf) {
			base, asOf, found = s.Quantity, s.AsOf, true
		}
	}
	moves := collect(fpoID, productID, procurements, sales, func(t time.Time) bool {
		d := records.Day(t)
		if !d.Before(start) {
			return false
		}
		return !found || d.After(records.Day(asOf))
	})
	for _, m := range moves {
		if m.typ == MovementIn {
			base += m.qty
		} else {
			base -= m.qty
		}
	}
	return base
}

func collect(fpoID, productID int64, procurements []records.ProcurementLine, sales []records.SaleLine, keep func(time.Time) bool) []movement {
	var moves []movement
	for _, l := range procurements {
		if l.FPOID == fpoID && l.ProductID == productID && keep(l.Date) {
			moves = append(moves, movement{date: records.Day(l.Date), typ: MovementIn, id: l.ID, qty: l.Quantity, rate: l.Rate})
		}
	}
	for _, l := range sales {
		if l.FPOID == fpoID && l.ProductID == productID && keep(l.Date) {
			moves = append(moves, movement{date: records.Day(l.Date), typ: MovementOut, id: l.ID, qty: l.Quantity, rate: l.Rate})
		}
	}
	sort.Slice(moves, func(i, j int) bool {
		a, b := moves[i], moves[j]
		if !a.date.Equal(b.date) {
			return a.date.Before(b.date)
		}
		if a.typ != b.typ {
			return a.typ == MovementIn
		}
		return a.id < b.id
	})
	return moves
}

func avgCost(pool money.Money, balance money.Quantity, costed bool) money.NullMoney {
	if !costed || balance <= 0 {
		return money.NullMoney{}
	}
	return money.RateOf(pool, balance)
}

func ref(m movement) string {
	if m.typ == MovementIn {
		return fmt.Sprintf("PROC-%d", m.id)
	}
	return fmt.Sprintf("SALE-%d", m.id)
}
