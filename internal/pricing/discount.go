package pricing

import "github.com/warunghub/order-engine/internal/money"

// DiscountSet collects every discount source applied to an order. All fields
// are amounts already resolved to whole units; none may be negative. The
// fields are not required to sum below the order subtotal; clamping happens
// during aggregation, not at the field level.
type DiscountSet struct {
	// ItemCustom is the sum of active per-item custom discounts.
	ItemCustom money.Amount `json:"itemCustomDiscounts"`
	// Loyalty is the loyalty-program deduction.
	Loyalty money.Amount `json:"loyaltyDiscount"`
	// AutoPromo is the automatically applied promotion deduction.
	AutoPromo money.Amount `json:"autoPromoDiscount"`
	// Voucher is the resolved voucher deduction.
	Voucher money.Amount `json:"voucherDiscount"`
	// OrderLevelCustom is the manual whole-order discount. Zero means absent;
	// applying a zero discount and applying none are the same operation.
	OrderLevelCustom money.Amount `json:"orderLevelCustomDiscount"`
}

// Automatic returns the phase-1 deduction: every discount source except the
// manual order-level one.
func (s DiscountSet) Automatic() money.Amount {
	return s.ItemCustom + s.Loyalty + s.AutoPromo + s.Voucher
}

// Aggregation is the result of applying a DiscountSet to an order subtotal.
type Aggregation struct {
	AfterLineDiscounts      money.Amount
	AfterOrderLevelDiscount money.Amount
}

// AggregateDiscounts applies the discount set to beforeDiscount in two
// strictly ordered phases. Phase 1 subtracts the automatic discounts from the
// subtotal; phase 2 subtracts the order-level manual discount from phase 1's
// result, never from the original subtotal, so the two phases chain on a
// single shrinking base and no discount can be counted twice. Every
// subtraction floors at zero.
func AggregateDiscounts(beforeDiscount money.Amount, s DiscountSet) Aggregation {
	afterLine := beforeDiscount.Sub(s.Automatic())
	return Aggregation{
		AfterLineDiscounts:      afterLine,
		AfterOrderLevelDiscount: afterLine.Sub(s.OrderLevelCustom),
	}
}
