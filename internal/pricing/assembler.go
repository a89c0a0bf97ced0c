// Package pricing implements the order pricing pipeline: discount
// aggregation, tax and service fee calculation, and assembly of the
// totals snapshot. Everything here is pure computation over amounts
// already loaded into the request's working set.
package pricing

import "github.com/warunghub/order-engine/internal/money"

// LineItem is the pricing view of one order line.
type LineItem struct {
	Quantity     int
	PricePerItem money.Amount
	// CustomDiscount is the active per-item discount for this line, zero
	// when none applies.
	CustomDiscount money.Amount
}

// Subtotal returns quantity × price for the line.
func (l LineItem) Subtotal() money.Amount {
	return l.PricePerItem.MulQty(l.Quantity)
}

// TotalsSnapshot is the fully assembled, internally consistent pricing
// result for one order. Invariants:
//
//	TaxableBase == AfterOrderLevelDiscount
//	GrandTotal  == TaxableBase + TotalTax + TotalServiceFee
//
// The snapshot is produced whole and replaced whole; partial patching of a
// previously stored snapshot is how create and edit paths drift apart.
type TotalsSnapshot struct {
	BeforeDiscount          money.Amount `json:"beforeDiscount"`
	AfterLineDiscounts      money.Amount `json:"afterLineDiscounts"`
	AfterOrderLevelDiscount money.Amount `json:"afterOrderLevelDiscount"`
	TaxableBase             money.Amount `json:"taxableBase"`
	TotalTax                money.Amount `json:"totalTax"`
	TotalServiceFee         money.Amount `json:"totalServiceFee"`
	GrandTotal              money.Amount `json:"grandTotal"`
}

// AssembleTotals runs the whole pipeline for the given lines, discounts and
// rates: subtotal → two-phase discount aggregation → tax/service against the
// final discount-adjusted base → grand total. This is the single formula of
// record; both order creation and order edit must obtain their snapshot here
// and nowhere else.
//
// The per-line custom discounts in items take precedence over
// discounts.ItemCustom: the aggregate is recomputed from the lines so the
// snapshot can never disagree with the items it was built from.
func AssembleTotals(items []LineItem, discounts DiscountSet, rates Rates) TotalsSnapshot {
	var before, itemCustom money.Amount
	for _, it := range items {
		before = before.Add(it.Subtotal())
		itemCustom = itemCustom.Add(it.CustomDiscount)
	}
	discounts.ItemCustom = itemCustom

	agg := AggregateDiscounts(before, discounts)

	// Tax and service are computed exactly once, against the base that
	// already carries the order-level discount.
	taxableBase := agg.AfterOrderLevelDiscount
	ts := ComputeTaxService(taxableBase, rates)

	return TotalsSnapshot{
		BeforeDiscount:          before,
		AfterLineDiscounts:      agg.AfterLineDiscounts,
		AfterOrderLevelDiscount: agg.AfterOrderLevelDiscount,
		TaxableBase:             taxableBase,
		TotalTax:                ts.TotalTax,
		TotalServiceFee:         ts.TotalServiceFee,
		GrandTotal:              taxableBase.Add(ts.TotalTax).Add(ts.TotalServiceFee),
	}
}
