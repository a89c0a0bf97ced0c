package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warunghub/order-engine/internal/money"
)

func pct(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestComputeTaxService(t *testing.T) {
	ts := ComputeTaxService(100000, Rates{TaxPercent: pct("11"), ServicePercent: pct("5")})

	assert.Equal(t, money.Amount(11000), ts.TotalTax)
	assert.Equal(t, money.Amount(5000), ts.TotalServiceFee)
}

func TestComputeTaxService_RoundsHalfAwayFromZero(t *testing.T) {
	// 1234 * 11% = 135.74 -> 136; 1234 * 5% = 61.7 -> 62.
	ts := ComputeTaxService(1234, Rates{TaxPercent: pct("11"), ServicePercent: pct("5")})
	assert.Equal(t, money.Amount(136), ts.TotalTax)
	assert.Equal(t, money.Amount(62), ts.TotalServiceFee)

	// Exact half: 50 * 11% = 5.5 rounds up to 6.
	ts = ComputeTaxService(50, Rates{TaxPercent: pct("11"), ServicePercent: pct("0")})
	assert.Equal(t, money.Amount(6), ts.TotalTax)
	assert.Equal(t, money.Zero, ts.TotalServiceFee)
}

func TestComputeTaxService_ZeroBase(t *testing.T) {
	ts := ComputeTaxService(0, Rates{TaxPercent: pct("11"), ServicePercent: pct("5")})
	assert.Equal(t, money.Zero, ts.TotalTax)
	assert.Equal(t, money.Zero, ts.TotalServiceFee)
}

func TestRatesValidate(t *testing.T) {
	require.NoError(t, Rates{TaxPercent: pct("0"), ServicePercent: pct("100")}.Validate())
	require.Error(t, Rates{TaxPercent: pct("-1"), ServicePercent: pct("5")}.Validate())
	require.Error(t, Rates{TaxPercent: pct("11"), ServicePercent: pct("100.01")}.Validate())
}
