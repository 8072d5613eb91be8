package inventory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mahafpc/fpo-ledger/internal/money"
	"github.com/mahafpc/fpo-ledger/internal/records"
)

func day(m time.Month, d int) time.Time {
	return time.Date(2024, m, d, 0, 0, 0, 0, time.UTC)
}

func buy(id int64, date time.Time, qty, rate string) records.ProcurementLine {
	return records.ProcurementLine{
		ID: id, Date: date, FarmerID: 1, FPOID: 10, ProductID: 1,
		Quantity: money.MustQuantity(qty), Rate: money.MustMoney(rate),
	}
}

func sell(id int64, date time.Time, qty string) records.SaleLine {
	return records.SaleLine{
		ID: id, Date: date, FPOID: 10, ProductID: 1,
		Quantity: money.MustQuantity(qty), Rate: money.MustMoney("45000"), Status: records.SaleStatusCompleted,
	}
}

var march = records.MonthWindow(2024, time.March)

func TestReconstructMovingAverage(t *testing.T) {
	card, err := Reconstruct(Input{
		FPOID: 10, ProductID: 1,
		Procurements: []records.ProcurementLine{
			buy(1, day(time.March, 1), "10", "100000"),
			buy(2, day(time.March, 5), "5", "120000"),
		},
		Sales:  []records.SaleLine{sell(1, day(time.March, 8), "8")},
		Window: march,
	})
	require.NoError(t, err)
	require.True(t, card.Approximate)
	require.False(t, card.Negative)
	require.Len(t, card.Entries, 4)
	require.Equal(t, MovementOpening, card.Entries[0].Type)

	second := card.Entries[2]
	require.Equal(t, money.Tons(15), second.Balance)
	require.Equal(t, money.SomeMoney(money.MustMoney("106666.67")), second.AvgCost)

	out := card.Entries[3]
	require.Equal(t, "SALE-1", out.Ref)
	require.Equal(t, money.Tons(8), out.QtyOut)
	require.Equal(t, money.Tons(7), out.Balance)
	require.Equal(t, money.SomeMoney(money.MustMoney("106666.67")), out.UnitCost)
	require.Equal(t, money.Tons(7), card.Closing)
}

func TestReconstructSurfacesNegativeBalance(t *testing.T) {
	card, err := Reconstruct(Input{
		FPOID: 10, ProductID: 1,
		Opening:      money.Tons(2),
		Procurements: []records.ProcurementLine{buy(1, day(time.March, 10), "1", "30000")},
		Sales:        []records.SaleLine{sell(1, day(time.March, 4), "5")},
		Window:       march,
	})
	require.NoError(t, err)
	require.True(t, card.Negative)
	require.Equal(t, money.Tons(-3), card.Entries[1].Balance)
	require.False(t, card.Entries[1].AvgCost.Valid)
	require.Equal(t, money.Tons(-2), card.Closing)
	require.True(t, card.Approximate)
}

func TestReconstructRestockAfterShortfallCostsOnlyStockOnHand(t *testing.T) {
	card, err := Reconstruct(Input{
		FPOID: 10, ProductID: 1,
		Procurements: []records.ProcurementLine{
			buy(1, day(time.March, 3), "10", "100000"),
			buy(2, day(time.March, 9), "5", "130000"),
		},
		Sales:  []records.SaleLine{sell(1, day(time.March, 2), "5")},
		Window: march,
	})
	require.NoError(t, err)
	require.True(t, card.Negative)
	require.Len(t, card.Entries, 4)

	short := card.Entries[1]
	require.Equal(t, money.Tons(-5), short.Balance)
	require.False(t, short.AvgCost.Valid)

	restock := card.Entries[2]
	require.Equal(t, money.Tons(5), restock.Balance)
	require.Equal(t, money.SomeMoney(money.Rupees(100000)), restock.AvgCost)

	// 5 t at 100000 plus 5 t at 130000
	last := card.Entries[3]
	require.Equal(t, money.Tons(10), last.Balance)
	require.Equal(t, money.SomeMoney(money.Rupees(115000)), last.AvgCost)
}

func TestReconstructRestockThatStaysNegativeHasNoCost(t *testing.T) {
	card, err := Reconstruct(Input{
		FPOID: 10, ProductID: 1,
		Procurements: []records.ProcurementLine{
			buy(1, day(time.March, 3), "2", "100000"),
			buy(2, day(time.March, 4), "4", "90000"),
		},
		Sales:  []records.SaleLine{sell(1, day(time.March, 2), "5")},
		Window: march,
	})
	require.NoError(t, err)
	require.Equal(t, money.Tons(-3), card.Entries[2].Balance)
	require.False(t, card.Entries[2].AvgCost.Valid)
	require.Equal(t, money.Tons(1), card.Entries[3].Balance)
	require.Equal(t, money.SomeMoney(money.Rupees(90000)), card.Entries[3].AvgCost)
}

func TestReconstructInboundBeforeOutboundOnSameDay(t *testing.T) {
	card, err := Reconstruct(Input{
		FPOID: 10, ProductID: 1,
		Procurements: []records.ProcurementLine{buy(7, day(time.March, 3), "4", "30000")},
		Sales:        []records.SaleLine{sell(3, day(time.March, 3), "4")},
		Window:       march,
	})
	require.NoError(t, err)
	require.False(t, card.Negative)
	require.Equal(t, MovementIn, card.Entries[1].Type)
	require.Equal(t, "PROC-7", card.Entries[1].Ref)
	require.Equal(t, money.Quantity(0), card.Closing)
}

func TestReconstructIgnoresOtherScopes(t *testing.T) {
	other := buy(2, day(time.March, 3), "9", "30000")
	other.ProductID = 2
	outside := buy(3, day(time.April, 1), "9", "30000")
	card, err := Reconstruct(Input{
		FPOID: 10, ProductID: 1,
		Procurements: []records.ProcurementLine{buy(1, day(time.March, 2), "1", "30000"), other, outside},
		Window:       march,
	})
	require.NoError(t, err)
	require.Len(t, card.Entries, 2)
	require.Equal(t, money.Tons(1), card.Closing)
}

func TestReconstructRequiresScope(t *testing.T) {
	_, err := Reconstruct(Input{ProductID: 1, Window: march})
	require.ErrorIs(t, err, ErrScopeRequired)
	_, err = Reconstruct(Input{FPOID: 10, ProductID: 1})
	require.ErrorIs(t, err, records.ErrWindowRequired)
}

func TestOpeningBalance(t *testing.T) {
	snaps := []records.InventorySnapshot{
		{FPOID: 10, ProductID: 1, Quantity: money.Tons(4), AsOf: day(time.February, 10)},
		{FPOID: 10, ProductID: 1, Quantity: money.Tons(6), AsOf: day(time.February, 20)},
		{FPOID: 10, ProductID: 1, Quantity: money.Tons(99), AsOf: day(time.March, 15)},
	}
	procs := []records.ProcurementLine{
		buy(1, day(time.February, 15), "3", "30000"),
		buy(2, day(time.February, 25), "2", "30000"),
		buy(3, day(time.March, 2), "5", "30000"),
	}
	sales := []records.SaleLine{sell(1, day(time.February, 27), "1")}

	got := OpeningBalance(snaps, procs, sales, 10, 1, march.Start)
	require.Equal(t, money.Tons(7), got)

	got = OpeningBalance(nil, procs, sales, 10, 1, march.Start)
	require.Equal(t, money.Tons(4), got)
}

func TestReconstructOpeningStockHasNoCost(t *testing.T) {
	card, err := Reconstruct(Input{
		FPOID: 10, ProductID: 1,
		Opening:      money.Tons(5),
		Procurements: []records.ProcurementLine{buy(1, day(time.March, 6), "5", "30000")},
		Sales:        []records.SaleLine{sell(1, day(time.March, 2), "2")},
		Window:       march,
	})
	require.NoError(t, err)
	require.False(t, card.Entries[1].UnitCost.Valid)
	require.False(t, card.Entries[2].AvgCost.Valid)
	require.Equal(t, money.Tons(8), card.Closing)
}
