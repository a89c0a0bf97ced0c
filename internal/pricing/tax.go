package pricing

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/warunghub/order-engine/internal/money"
)

var hundred = decimal.NewFromInt(100)

// Rates carries the tax and service fee percentages for one pricing run.
// They are fetched from configuration once per commit and passed in
// explicitly; the calculator never reads ambient state.
type Rates struct {
	TaxPercent     decimal.Decimal
	ServicePercent decimal.Decimal
}

// Validate checks both percentages are within [0, 100].
func (r Rates) Validate() error {
	for _, p := range []struct {
		name string
		v    decimal.Decimal
	}{
		{"tax", r.TaxPercent},
		{"service", r.ServicePercent},
	} {
		if p.v.IsNegative() || p.v.GreaterThan(hundred) {
			return errors.Errorf("%s rate %s outside [0, 100]", p.name, p.v)
		}
	}
	return nil
}

// TaxService holds the computed tax and service fee amounts.
type TaxService struct {
	TotalTax        money.Amount
	TotalServiceFee money.Amount
}

// ComputeTaxService calculates tax and service fee for the given taxable
// base, rounding each to the nearest whole unit with ties away from zero.
// It is pure; callers must invoke it exactly once per commit or recompute,
// and only against the final discount-adjusted base.
func ComputeTaxService(taxableBase money.Amount, r Rates) TaxService {
	return TaxService{
		TotalTax:        applyPercent(taxableBase, r.TaxPercent),
		TotalServiceFee: applyPercent(taxableBase, r.ServicePercent),
	}
}

// applyPercent computes round(base × pct / 100). shopspring's Round uses
// half-away-from-zero, which is the required tie rule. The result of a
// non-negative base and a rate within [0, 100] is always a non-negative
// integer, so the conversion back cannot fail.
func applyPercent(base money.Amount, pct decimal.Decimal) money.Amount {
	v := base.Decimal().Mul(pct).Div(hundred).Round(0)
	return money.Amount(v.IntPart())
}
