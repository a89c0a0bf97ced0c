// Package payment reconciles split-payment entries against an order's grand
// total. Single-payment orders go through the same path as a one-element
// list, so there is exactly one place where payment amounts are adjusted.
package payment

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/warunghub/order-engine/internal/money"
)

// Entry is one payment against an order. Tendered and Change are only
// populated for cash-style methods where the customer hands over more than
// the charged amount.
type Entry struct {
	Method   string        `json:"method"`
	Amount   money.Amount  `json:"amount"`
	Tendered *money.Amount `json:"tenderedAmount,omitempty"`
	Change   *money.Amount `json:"changeAmount,omitempty"`
	Status   string        `json:"status"`
}

var (
	// ErrNoPayments is returned for an empty entry list.
	ErrNoPayments = errors.New("payment entries required")
	// ErrZeroPayment is returned when the entries sum to zero: there is no
	// proportion to scale by, so no adjustment is attempted.
	ErrZeroPayment = errors.New("payment entries sum to zero")
)

// Reconcile scales the entries so their amounts sum exactly to grandTotal.
//
// Entries already summing to grandTotal are returned as-is (amounts are
// whole units, so "within rounding tolerance" means equal). Otherwise each
// entry is scaled by grandTotal/totalOriginal with half-away-from-zero
// rounding, and the signed rounding remainder, possibly negative, is
// folded into the last entry's amount only, leaving tendered and change at
// their scaled values. The sign must be preserved: adding the absolute value
// would inflate the total whenever the original sum exceeded the target.
//
// Postcondition: the returned amounts sum to grandTotal exactly.
func Reconcile(entries []Entry, grandTotal money.Amount) ([]Entry, error) {
	if len(entries) == 0 {
		return nil, ErrNoPayments
	}

	var totalOriginal money.Amount
	for _, e := range entries {
		totalOriginal = totalOriginal.Add(e.Amount)
	}
	if totalOriginal.IsZero() {
		return nil, ErrZeroPayment
	}
	if totalOriginal == grandTotal {
		return entries, nil
	}

	ratio := grandTotal.Decimal().Div(totalOriginal.Decimal())

	out := make([]Entry, len(entries))
	var totalAdjusted money.Amount
	for i, e := range entries {
		adj := e
		adj.Amount = scale(e.Amount, ratio)

		if e.Tendered != nil {
			t := scale(*e.Tendered, ratio)
			adj.Tendered = &t
		} else {
			t := adj.Amount
			adj.Tendered = &t
		}

		if e.Change != nil {
			c := scale(*e.Change, ratio)
			adj.Change = &c
		} else {
			c := money.Zero
			adj.Change = &c
		}

		totalAdjusted = totalAdjusted.Add(adj.Amount)
		out[i] = adj
	}

	// Signed remainder: negative when per-entry rounding overshot the target.
	remainder := grandTotal.Int64() - totalAdjusted.Int64()
	if remainder != 0 {
		last := &out[len(out)-1]
		last.Amount = money.Amount(last.Amount.Int64() + remainder)
	}

	return out, nil
}

// scale returns round(a × ratio), ties away from zero.
func scale(a money.Amount, ratio decimal.Decimal) money.Amount {
	return money.Amount(a.Decimal().Mul(ratio).Round(0).IntPart())
}
