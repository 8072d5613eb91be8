package valuation

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mahafpc/fpo-ledger/internal/money"
	"github.com/mahafpc/fpo-ledger/internal/records"
)

func march(day int) time.Time {
	return time.Date(2024, time.March, day, 0, 0, 0, 0, time.UTC)
}

func purchase(id int64, productID int64, qty, rate string) records.ProcurementLine {
	return records.ProcurementLine{
		ID:        id,
		Date:      march(int(id%28) + 1),
		FarmerID:  1,
		FPOID:     1,
		ProductID: productID,
		Quantity:  money.MustQuantity(qty),
		Rate:      money.MustMoney(rate),
	}
}

func TestWeightedRateIsQuantityWeighted(t *testing.T) {
	lines := []records.ProcurementLine{
		purchase(1, 1, "2", "30000"),
		purchase(2, 1, "3", "40000"),
	}
	rate := WeightedRate(lines)
	require.True(t, rate.Valid)
	require.Equal(t, money.Rupees(36000), rate.Money)
	require.NotEqual(t, money.Rupees(35000), rate.Money)
}

func TestWeightedRateSmallExpensiveDoNotOutweighLargeCheap(t *testing.T) {
	lines := []records.ProcurementLine{
		purchase(1, 1, "0.5", "90000"),
		purchase(2, 1, "0.5", "90000"),
		purchase(3, 1, "9", "10000"),
	}
	// (45000 + 45000 + 90000) / 10 = 18000; the simple mean would be 63333.33
	require.Equal(t, money.SomeMoney(money.Rupees(18000)), WeightedRate(lines))
}

func TestWeightedRateUndefinedWithoutQuantity(t *testing.T) {
	require.False(t, WeightedRate(nil).Valid)
	require.False(t, WeightedRate([]records.ProcurementLine{}).Valid)
}

func TestWeightedRateZeroCostIsDefined(t *testing.T) {
	rate := WeightedRate([]records.ProcurementLine{purchase(1, 1, "4", "0")})
	require.True(t, rate.Valid)
	require.Equal(t, money.Money(0), rate.Money)
}

func TestWeightedRateIgnoresSuppliedAmount(t *testing.T) {
	line := purchase(1, 1, "2", "30000")
	line.Amount = money.Rupees(1)
	require.Equal(t, money.SomeMoney(money.Rupees(30000)), WeightedRate([]records.ProcurementLine{line}))
}

func randomLines(r *rand.Rand, n int) []records.ProcurementLine {
	lines := make([]records.ProcurementLine, n)
	for i := range lines {
		lines[i] = records.ProcurementLine{
			ID:        int64(i + 1),
			Date:      march(r.Intn(28) + 1),
			FarmerID:  int64(r.Intn(5) + 1),
			FPOID:     1,
			ProductID: 1,
			Quantity:  money.Quantity(r.Int63n(50000) + 1),
			Rate:      money.Money(r.Int63n(6000000)),
		}
	}
	return lines
}

func TestWeightedRateOrderIndependent(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for trial := 0; trial < 200; trial++ {
		lines := randomLines(r, r.Intn(20)+1)
		want := WeightedRate(lines)

		shuffled := append([]records.ProcurementLine(nil), lines...)
		r.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		require.Equal(t, want, WeightedRate(shuffled), "trial %d", trial)
	}
}

func TestWeightedRateStableUnderDuplication(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for trial := 0; trial < 200; trial++ {
		lines := randomLines(r, r.Intn(20)+1)
		doubled := append(append([]records.ProcurementLine(nil), lines...), lines...)
		require.Equal(t, WeightedRate(lines), WeightedRate(doubled), "trial %d", trial)
	}
}

func TestWeightedRateDoesNotMutateInput(t *testing.T) {
	lines := []records.ProcurementLine{purchase(1, 1, "2", "30000"), purchase(2, 1, "3", "40000")}
	before := append([]records.ProcurementLine(nil), lines...)
	_ = WeightedRate(lines)
	require.Equal(t, before, lines)
}

func TestAccumulatorMergeMatchesSequentialAdd(t *testing.T) {
	var a, b, all Accumulator
	a.Add(money.Tons(2), money.Rupees(30000))
	b.Add(money.Tons(3), money.Rupees(40000))
	all.Add(money.Tons(2), money.Rupees(30000))
	all.Add(money.Tons(3), money.Rupees(40000))
	require.Equal(t, all, a.Merge(b))
	require.Equal(t, a.Merge(b), b.Merge(a))
	require.Equal(t, 2, all.Count)
}

func TestRatesByProduct(t *testing.T) {
	rates := RatesByProduct([]records.ProcurementLine{
		purchase(1, 1, "2", "30000"),
		purchase(2, 1, "3", "40000"),
		purchase(3, 2, "1", "5000"),
	})
	require.Len(t, rates, 2)
	require.Equal(t, money.SomeMoney(money.Rupees(36000)), rates[1])
	require.Equal(t, money.SomeMoney(money.Rupees(5000)), rates[2])
	_, ok := rates[3]
	require.False(t, ok)
}

func TestValueInventory(t *testing.T) {
	snap := records.InventorySnapshot{FPOID: 1, ProductID: 1, Quantity: money.Tons(10)}
	line := ValueInventory(snap, money.SomeMoney(money.Rupees(35000)))
	require.Equal(t, money.SomeMoney(money.Rupees(350000)), line.Value)

	unvalued := ValueInventory(snap, money.NullMoney{})
	require.False(t, unvalued.Value.Valid)
	require.False(t, unvalued.Rate.Valid)

	free := ValueInventory(snap, money.SomeMoney(0))
	require.True(t, free.Value.Valid)
	require.Equal(t, money.Money(0), free.Value.Money)
}

func TestValuePortfolioKeepsNotApplicableDistinct(t *testing.T) {
	snaps := []records.InventorySnapshot{
		{FPOID: 1, ProductID: 2, Quantity: money.Tons(4)},
		{FPOID: 1, ProductID: 1, Quantity: money.Tons(10)},
		{FPOID: 1, ProductID: 3, Quantity: money.Tons(1)},
	}
	rates := map[int64]money.NullMoney{
		1: money.SomeMoney(money.Rupees(35000)),
		3: money.SomeMoney(0),
	}
	p := ValuePortfolio(snaps, rates)
	require.Len(t, p.Lines, 3)
	require.Equal(t, int64(1), p.Lines[0].ProductID)
	require.Equal(t, money.Rupees(350000), p.TotalValue)
	require.Equal(t, 1, p.Unvalued)
	require.False(t, p.Lines[1].Value.Valid)
	require.True(t, p.Lines[2].Value.Valid)
}

func TestValuePortfolioEmpty(t *testing.T) {
	p := ValuePortfolio(nil, nil)
	require.Empty(t, p.Lines)
	require.Equal(t, money.Money(0), p.TotalValue)
	require.Equal(t, 0, p.Unvalued)
}

func TestLatest(t *testing.T) {
	snaps := []records.InventorySnapshot{
		{FPOID: 1, ProductID: 1, Quantity: money.Tons(5), AsOf: march(1)},
		{FPOID: 1, ProductID: 1, Quantity: money.Tons(7), AsOf: march(10)},
		{FPOID: 1, ProductID: 1, Quantity: money.Tons(6), AsOf: march(3)},
		{FPOID: 2, ProductID: 1, Quantity: money.Tons(1), AsOf: march(2)},
		{FPOID: 2, ProductID: 1, Quantity: money.Tons(2), AsOf: march(2)},
	}
	latest := Latest(snaps)
	require.Len(t, latest, 2)
	require.Equal(t, money.Tons(7), latest[0].Quantity)
	require.Equal(t, money.Tons(2), latest[1].Quantity)
}
