// Package money provides the exact integer amount type used by all pricing
// computation. Amounts are counted in the smallest whole currency unit; the
// currency has no fractional sub-units, so every arithmetic operation stays
// in int64 and there is nothing to round inside this package.
package money

import (
	"strconv"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Amount is a non-negative number of whole currency units.
type Amount int64

// Zero is the additive identity.
const Zero Amount = 0

// MaxAmount bounds every externally supplied amount. The cap exists so that
// line math (price × quantity, summed across lines) provably stays inside
// int64; one trillion units is far beyond any real order.
const MaxAmount Amount = 1_000_000_000_000

var (
	// ErrNegative is returned when a negative value is presented where an
	// amount is required.
	ErrNegative = errors.New("monetary amount must not be negative")
	// ErrTooLarge is returned when an input amount exceeds MaxAmount.
	ErrTooLarge = errors.Errorf("monetary amount exceeds the maximum of %d", MaxAmount)
)

// New validates v as an amount. Negative values are rejected, never clamped:
// a negative monetary input is a caller bug, not a computation result.
func New(v int64) (Amount, error) {
	if v < 0 {
		return 0, ErrNegative
	}
	if Amount(v) > MaxAmount {
		return 0, ErrTooLarge
	}
	return Amount(v), nil
}

// Parse converts a decimal string to an Amount. Only plain base-10 integers
// are accepted: no sign, no fraction, no exponent, no grouping. Anything else
// is a parse error, matching the reject-never-coerce boundary rule.
func Parse(s string) (Amount, error) {
	if s == "" {
		return 0, errors.New("empty monetary value")
	}
	v, err := strconv.ParseUint(s, 10, 63)
	if err != nil {
		return 0, errors.Wrapf(err, "parse amount %q", s)
	}
	if Amount(v) > MaxAmount {
		return 0, ErrTooLarge
	}
	return Amount(v), nil
}

// FromDecimal converts d to an Amount. The value must be a non-negative
// integer; fractional values are rejected rather than rounded, since any
// rounding decision belongs to the calculator that produced d.
func FromDecimal(d decimal.Decimal) (Amount, error) {
	if d.IsNegative() {
		return 0, ErrNegative
	}
	if !d.IsInteger() {
		return 0, errors.Errorf("amount %s has a fractional part", d)
	}
	return Amount(d.IntPart()), nil
}

// Int64 returns the raw unit count.
func (a Amount) Int64() int64 { return int64(a) }

// Decimal returns the amount as a decimal for percentage math.
func (a Amount) Decimal() decimal.Decimal { return decimal.NewFromInt(int64(a)) }

// Add returns a + b.
func (a Amount) Add(b Amount) Amount { return a + b }

// Sub returns a - b floored at zero. Discount application must never drive
// an amount negative; the clamp is the defined behaviour, not an error.
func (a Amount) Sub(b Amount) Amount {
	if b >= a {
		return 0
	}
	return a - b
}

// MulQty returns the amount multiplied by a (non-negative) quantity.
func (a Amount) MulQty(qty int) Amount { return a * Amount(qty) }

// IsZero reports whether the amount is zero.
func (a Amount) IsZero() bool { return a == 0 }

// String formats the amount as a plain integer.
func (a Amount) String() string { return strconv.FormatInt(int64(a), 10) }
