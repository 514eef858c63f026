package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoney_Add(t *testing.T) {
	sum, err := MustParse("10.50", "USD").Add(MustParse("4.25", "USD"))
	require.NoError(t, err)
	assert.True(t, MustParse("14.75", "USD").Equal(sum), "got %s", sum)

	_, err = MustParse("1", "USD").Add(MustParse("1", "EUR"))
	require.ErrorIs(t, err, ErrCurrencyMismatch)
}

func TestMoney_Sub(t *testing.T) {
	diff, err := MustParse("10", "USD").Sub(MustParse("12.5", "USD"))
	require.NoError(t, err)
	assert.True(t, diff.Amount.Equal(decimal.RequireFromString("-2.5")))
	assert.True(t, Zero("USD").Equal(diff.FloorAtZero()))

	_, err = MustParse("1", "USD").Sub(MustParse("1", "EUR"))
	require.ErrorIs(t, err, ErrCurrencyMismatch)
}

func TestMoney_Percent(t *testing.T) {
	tests := []struct {
		name  string
		price Money
		pct   string
		want  Money
	}{
		{"ten percent of 100", MustParse("100.00", "USD"), "10", MustParse("10.00", "USD")},
		{"rounds half away from zero", MustParse("29.97", "USD"), "15", MustParse("4.50", "USD")},
		{"fractional percentage", MustParse("10.01", "EUR"), "33.33", MustParse("3.34", "EUR")},
		{"full price", MustParse("42.42", "USD"), "100", MustParse("42.42", "USD")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.price.Percent(decimal.RequireFromString(tt.pct))
			assert.True(t, tt.want.Equal(got), "expected %s, got %s", tt.want, got)
		})
	}
}

func TestMoney_Equal(t *testing.T) {
	assert.True(t, MustParse("10", "USD").Equal(MustParse("10.00", "USD")))
	assert.False(t, MustParse("10", "USD").Equal(MustParse("10", "EUR")))
	assert.False(t, MustParse("10", "USD").Equal(MustParse("10.01", "USD")))
}

func TestValidCurrency(t *testing.T) {
	assert.True(t, ValidCurrency("USD"))
	assert.True(t, ValidCurrency("VND"))
	assert.False(t, ValidCurrency("usd"))
	assert.False(t, ValidCurrency("US"))
	assert.False(t, ValidCurrency("USDT"))
	assert.False(t, ValidCurrency(""))
}

func TestMoney_String(t *testing.T) {
	assert.Equal(t, "10.00 USD", MustParse("10", "USD").String())
}
