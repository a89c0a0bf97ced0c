package pricing

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/warunghub/order-engine/internal/money"
)

func TestAggregateDiscounts_TwoPhases(t *testing.T) {
	agg := AggregateDiscounts(100000, DiscountSet{
		ItemCustom:       5000,
		Loyalty:          2000,
		AutoPromo:        1000,
		Voucher:          2000,
		OrderLevelCustom: 10000,
	})

	assert.Equal(t, money.Amount(90000), agg.AfterLineDiscounts)
	assert.Equal(t, money.Amount(80000), agg.AfterOrderLevelDiscount)
}

func TestAggregateDiscounts_NoOrderLevel(t *testing.T) {
	agg := AggregateDiscounts(50000, DiscountSet{Voucher: 5000})

	assert.Equal(t, money.Amount(45000), agg.AfterLineDiscounts)
	assert.Equal(t, agg.AfterLineDiscounts, agg.AfterOrderLevelDiscount)
}

func TestAggregateDiscounts_ClampsAtZero(t *testing.T) {
	agg := AggregateDiscounts(10000, DiscountSet{
		Loyalty:          7000,
		Voucher:          7000,
		OrderLevelCustom: 5000,
	})

	assert.Equal(t, money.Zero, agg.AfterLineDiscounts)
	assert.Equal(t, money.Zero, agg.AfterOrderLevelDiscount)
}

// The order-level discount must shrink phase 1's result, not the original
// subtotal. If it were applied to the subtotal, the automatic discounts
// would effectively be dropped and the final base would come out too high.
func TestAggregateDiscounts_OrderLevelChainsOnPhaseOne(t *testing.T) {
	agg := AggregateDiscounts(100000, DiscountSet{
		Voucher:          30000,
		OrderLevelCustom: 20000,
	})

	assert.Equal(t, money.Amount(70000), agg.AfterLineDiscounts)
	// 70000 - 20000, not 100000 - 20000.
	assert.Equal(t, money.Amount(50000), agg.AfterOrderLevelDiscount)
}

// Property: for any non-negative inputs the aggregation never goes negative
// and never exceeds the original subtotal.
func TestAggregateDiscounts_NeverNegative(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for range 1000 {
		before := money.Amount(rng.Int63n(1_000_000))
		set := DiscountSet{
			ItemCustom:       money.Amount(rng.Int63n(400_000)),
			Loyalty:          money.Amount(rng.Int63n(400_000)),
			AutoPromo:        money.Amount(rng.Int63n(400_000)),
			Voucher:          money.Amount(rng.Int63n(400_000)),
			OrderLevelCustom: money.Amount(rng.Int63n(400_000)),
		}

		agg := AggregateDiscounts(before, set)

		assert.GreaterOrEqual(t, agg.AfterLineDiscounts.Int64(), int64(0))
		assert.GreaterOrEqual(t, agg.AfterOrderLevelDiscount.Int64(), int64(0))
		assert.LessOrEqual(t, agg.AfterLineDiscounts.Int64(), before.Int64())
		assert.LessOrEqual(t, agg.AfterOrderLevelDiscount.Int64(), agg.AfterLineDiscounts.Int64())
	}
}
