// Package money implements currency-tagged decimal amounts.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/xenking/academy-checkout/internal/domain/failure"
)

// ErrCurrencyMismatch is returned when two amounts in different currencies
// are combined or compared.
var ErrCurrencyMismatch = failure.New(failure.KindConflict, "currency_mismatch", "currency mismatch")

var hundred = decimal.NewFromInt(100)

// Money is a decimal amount in a single currency.
type Money struct {
	Amount   decimal.Decimal
	Currency string
}

// New returns Money for the given amount and currency.
func New(amount decimal.Decimal, currency string) Money {
	return Money{Amount: amount, Currency: currency}
}

// Zero returns a zero amount in currency.
func Zero(currency string) Money {
	return Money{Amount: decimal.Zero, Currency: currency}
}

// MustParse parses amount and panics on malformed input. Intended for tests
// and static seed data.
func MustParse(amount, currency string) Money {
	return Money{Amount: decimal.RequireFromString(amount), Currency: currency}
}

// ValidCurrency reports whether code looks like an ISO-4217 code: exactly
// three upper-case ASCII letters.
func ValidCurrency(code string) bool {
	if len(code) != 3 {
		return false
	}
	for i := range len(code) {
		if code[i] < 'A' || code[i] > 'Z' {
			return false
		}
	}
	return true
}

// Add returns m + o.
func (m Money) Add(o Money) (Money, error) {
	if m.Currency != o.Currency {
		return Money{}, ErrCurrencyMismatch
	}
	return Money{Amount: m.Amount.Add(o.Amount), Currency: m.Currency}, nil
}

// Sub returns m - o.
func (m Money) Sub(o Money) (Money, error) {
	if m.Currency != o.Currency {
		return Money{}, ErrCurrencyMismatch
	}
	return Money{Amount: m.Amount.Sub(o.Amount), Currency: m.Currency}, nil
}

// Percent returns pct percent of m, rounded to cents.
func (m Money) Percent(pct decimal.Decimal) Money {
	return Money{Amount: m.Amount.Mul(pct).Div(hundred).Round(2), Currency: m.Currency}
}

// FloorAtZero clamps negative amounts to zero.
func (m Money) FloorAtZero() Money {
	if m.Amount.IsNegative() {
		return Zero(m.Currency)
	}
	return m
}

// Round rounds the amount to cents.
func (m Money) Round() Money {
	return Money{Amount: m.Amount.Round(2), Currency: m.Currency}
}

// Equal reports whether both currency and amount match. Amounts compare by
// value, so 10 and 10.00 are equal.
func (m Money) Equal(o Money) bool {
	return m.Currency == o.Currency && m.Amount.Equal(o.Amount)
}

// IsPositive reports whether the amount is strictly greater than zero.
func (m Money) IsPositive() bool {
	return m.Amount.IsPositive()
}

// IsZero reports whether m is the zero value.
func (m Money) IsZero() bool {
	return m.Currency == "" && m.Amount.IsZero()
}

// String formats as "10.00 USD".
func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.Amount.StringFixed(2), m.Currency)
}
