package pricing

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/warunghub/order-engine/internal/money"
)

func standardRates() Rates {
	return Rates{TaxPercent: pct("11"), ServicePercent: pct("5")}
}

// Subtotal 100000, no discounts, 11% tax, 5% service.
func TestAssembleTotals_NoDiscounts(t *testing.T) {
	snap := AssembleTotals(
		[]LineItem{{Quantity: 4, PricePerItem: 25000}},
		DiscountSet{},
		standardRates(),
	)

	assert.Equal(t, money.Amount(100000), snap.BeforeDiscount)
	assert.Equal(t, money.Amount(100000), snap.TaxableBase)
	assert.Equal(t, money.Amount(11000), snap.TotalTax)
	assert.Equal(t, money.Amount(5000), snap.TotalServiceFee)
	assert.Equal(t, money.Amount(116000), snap.GrandTotal)
}

// Same order plus a 10000 order-level discount: tax and service must be
// recomputed from the shrunken base, not from the original subtotal.
func TestAssembleTotals_OrderLevelDiscountShrinksTaxBase(t *testing.T) {
	snap := AssembleTotals(
		[]LineItem{{Quantity: 4, PricePerItem: 25000}},
		DiscountSet{OrderLevelCustom: 10000},
		standardRates(),
	)

	assert.Equal(t, money.Amount(90000), snap.AfterOrderLevelDiscount)
	assert.Equal(t, money.Amount(90000), snap.TaxableBase)
	assert.Equal(t, money.Amount(9900), snap.TotalTax)
	assert.Equal(t, money.Amount(4500), snap.TotalServiceFee)
	assert.Equal(t, money.Amount(104400), snap.GrandTotal)
}

func TestAssembleTotals_ItemCustomDiscountsFromLines(t *testing.T) {
	snap := AssembleTotals(
		[]LineItem{
			{Quantity: 2, PricePerItem: 30000, CustomDiscount: 5000},
			{Quantity: 1, PricePerItem: 40000},
		},
		// A stale aggregate here must be ignored in favour of the lines.
		DiscountSet{ItemCustom: 999999},
		Rates{TaxPercent: pct("0"), ServicePercent: pct("0")},
	)

	assert.Equal(t, money.Amount(100000), snap.BeforeDiscount)
	assert.Equal(t, money.Amount(95000), snap.AfterLineDiscounts)
	assert.Equal(t, money.Amount(95000), snap.GrandTotal)
}

func TestAssembleTotals_EmptyOrder(t *testing.T) {
	snap := AssembleTotals(nil, DiscountSet{}, standardRates())
	assert.Equal(t, money.Zero, snap.BeforeDiscount)
	assert.Equal(t, money.Zero, snap.GrandTotal)
}

// Property: every assembled snapshot satisfies the two structural invariants
// regardless of input mix.
func TestAssembleTotals_Invariants(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	rates := standardRates()

	for range 1000 {
		items := make([]LineItem, 1+rng.Intn(5))
		for i := range items {
			items[i] = LineItem{
				Quantity:       1 + rng.Intn(9),
				PricePerItem:   money.Amount(rng.Int63n(200_000)),
				CustomDiscount: money.Amount(rng.Int63n(20_000)),
			}
		}
		set := DiscountSet{
			Loyalty:          money.Amount(rng.Int63n(50_000)),
			AutoPromo:        money.Amount(rng.Int63n(50_000)),
			Voucher:          money.Amount(rng.Int63n(50_000)),
			OrderLevelCustom: money.Amount(rng.Int63n(50_000)),
		}

		snap := AssembleTotals(items, set, rates)

		assert.Equal(t, snap.AfterOrderLevelDiscount, snap.TaxableBase)
		assert.Equal(t,
			snap.TaxableBase.Add(snap.TotalTax).Add(snap.TotalServiceFee),
			snap.GrandTotal,
		)
	}
}
