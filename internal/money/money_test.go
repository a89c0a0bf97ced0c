package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RejectsNegative(t *testing.T) {
	_, err := New(-1)
	require.ErrorIs(t, err, ErrNegative)

	a, err := New(0)
	require.NoError(t, err)
	assert.Equal(t, Zero, a)
}

func TestNew_RejectsAboveMax(t *testing.T) {
	a, err := New(int64(MaxAmount))
	require.NoError(t, err)
	assert.Equal(t, MaxAmount, a)

	_, err = New(int64(MaxAmount) + 1)
	require.ErrorIs(t, err, ErrTooLarge)
}

func TestParse(t *testing.T) {
	a, err := Parse("100000")
	require.NoError(t, err)
	assert.Equal(t, Amount(100000), a)

	for _, s := range []string{"", "-5", "10.5", "1e3", "10,000", "abc", "+7", " 7"} {
		_, err := Parse(s)
		assert.Error(t, err, "input %q", s)
	}

	_, err = Parse("1000000000001")
	require.ErrorIs(t, err, ErrTooLarge)

	_, err = Parse("4611686018427387904")
	require.ErrorIs(t, err, ErrTooLarge)
}

func TestFromDecimal(t *testing.T) {
	a, err := FromDecimal(decimal.NewFromInt(11000))
	require.NoError(t, err)
	assert.Equal(t, Amount(11000), a)

	_, err = FromDecimal(decimal.RequireFromString("10.5"))
	require.Error(t, err)

	_, err = FromDecimal(decimal.NewFromInt(-1))
	require.ErrorIs(t, err, ErrNegative)
}

func TestSub_FloorsAtZero(t *testing.T) {
	assert.Equal(t, Amount(30), Amount(100).Sub(70))
	assert.Equal(t, Zero, Amount(100).Sub(100))
	assert.Equal(t, Zero, Amount(100).Sub(250))
}

func TestMulQty(t *testing.T) {
	assert.Equal(t, Amount(45000), Amount(15000).MulQty(3))
}
