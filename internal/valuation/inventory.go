package valuation

import (
	"sort"

	"github.com/mahafpc/fpo-ledger/internal/money"
	"github.com/mahafpc/fpo-ledger/internal/records"
)

// Line is one valued inventory position.
type Line struct {
	FPOID     int64           `json:"fpo_id"`
	ProductID int64           `json:"product_id"`
	Quantity  money.Quantity  `json:"quantity"`
	Rate      money.NullMoney `json:"rate"`
	Value     money.NullMoney `json:"value"`
}

// Portfolio is a set of valued lines and the sum of the defined values.
type Portfolio struct {
	Lines      []Line      `json:"lines"`
	TotalValue money.Money `json:"total_value"`
	// Unvalued counts lines whose product has no rate.
	Unvalued int `json:"unvalued"`
}

// ValueInventory values a stated quantity at rate. When rate is undefined the
// value is undefined too, never zero.
func ValueInventory(s records.InventorySnapshot, rate money.NullMoney) Line {
	line := Line{FPOID: s.FPOID, ProductID: s.ProductID, Quantity: s.Quantity, Rate: rate}
	if rate.Valid {
		line.Value = money.SomeMoney(money.Extend(s.Quantity, rate.Money))
	}
	return line
}

// ValuePortfolio values every snapshot with its product's rate. A product
// missing from rates is treated as having no purchase history.
func ValuePortfolio(snaps []records.InventorySnapshot, rates map[int64]money.NullMoney) Portfolio {
	p := Portfolio{Lines: make([]Line, 0, len(snaps))}
	for _, s := range snaps {
		line := ValueInventory(s, rates[s.ProductID])
		if line.Value.Valid {
			p.TotalValue += line.Value.Money
		} else {
			p.Unvalued++
		}
		p.Lines = append(p.Lines, line)
	}
	sort.SliceStable(p.Lines, func(i, j int) bool {
		if p.Lines[i].FPOID != p.Lines[j].FPOID {
			return p.Lines[i].FPOID < p.Lines[j].FPOID
		}
		return p.Lines[i].ProductID < p.Lines[j].ProductID
	})
	return p
}

type stockKey struct {
	fpoID     int64
	productID int64
}

// Latest keeps the most recent snapshot per FPO and product. Equal AsOf
// values resolve to the one appearing later in snaps.
func Latest(snaps []records.InventorySnapshot) []records.InventorySnapshot {
	latest := make(map[stockKey]int, len(snaps))
	for i, s := range snaps {
		k := stockKey{s.FPOID, s.ProductID}
		if j, ok := latest[k]; ok && snaps[j].AsOf.After(s.AsOf) {
			continue
		}
		latest[k] = i
	}
	out := make([]records.InventorySnapshot, 0, len(latest))
	for i, s := range snaps {
		if latest[stockKey{s.FPOID, s.ProductID}] == i {
			out = append(out, s)
		}
	}
	return out
}
