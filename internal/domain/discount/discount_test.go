package discount

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/academy-checkout/internal/domain/money"
	"github.com/xenking/academy-checkout/internal/domain/validation"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func TestDiscount_Calculate(t *testing.T) {
	tests := []struct {
		name     string
		discount Discount
		price    money.Money
		want     money.Money
		wantErr  error
	}{
		{
			name:     "SAVE10 on $100.00",
			discount: Discount{Code: "SAVE10", Type: TypePercentage, Percentage: d("10")},
			price:    money.MustParse("100.00", "USD"),
			want:     money.MustParse("10.00", "USD"),
		},
		{
			name:     "percentage rounds to cents",
			discount: Discount{Code: "PCT15", Type: TypePercentage, Percentage: d("15")},
			price:    money.MustParse("29.97", "USD"),
			want:     money.MustParse("4.50", "USD"),
		},
		{
			name:     "percentage keeps price currency",
			discount: Discount{Code: "EU20", Type: TypePercentage, Percentage: d("20")},
			price:    money.MustParse("50", "EUR"),
			want:     money.MustParse("10", "EUR"),
		},
		{
			name:     "fixed ignores price",
			discount: Discount{Code: "FLAT5", Type: TypeFixed, FixedAmount: money.MustParse("5.00", "USD")},
			price:    money.MustParse("100.00", "USD"),
			want:     money.MustParse("5.00", "USD"),
		},
		{
			name:     "fixed larger than price is returned as stored",
			discount: Discount{Code: "BIG", Type: TypeFixed, FixedAmount: money.MustParse("200.00", "USD")},
			price:    money.MustParse("20.00", "USD"),
			want:     money.MustParse("200.00", "USD"),
		},
		{
			name:     "unknown type",
			discount: Discount{Code: "BAD", Type: Type("bogus"), Percentage: d("10")},
			price:    money.MustParse("10", "USD"),
			wantErr:  ErrInvalidType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.discount.Calculate(tt.price)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "expected %s, got %s", tt.want, got)
		})
	}
}

func TestDiscount_FixedIgnoresPrice(t *testing.T) {
	disc := Discount{Type: TypeFixed, FixedAmount: money.MustParse("7.50", "USD")}
	for _, p := range []string{"0.01", "7.50", "10", "99999.99"} {
		got, err := disc.Calculate(money.MustParse(p, "USD"))
		require.NoError(t, err)
		assert.True(t, disc.FixedAmount.Equal(got), "price %s", p)
	}
}

func TestDiscount_IsValid(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	disc := Discount{StartsAt: start, EndsAt: end}

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"before start", start.Add(-time.Hour), false},
		{"exactly at start", start, false},
		{"inside window", start.Add(24 * time.Hour), true},
		{"just before end", end.Add(-time.Nanosecond), true},
		{"exactly at end", end, false},
		{"after end", end.Add(time.Hour), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, disc.IsValid(tt.now))
		})
	}
}

func TestDiscount_Transition(t *testing.T) {
	tests := []struct {
		from    State
		to      State
		allowed bool
	}{
		{StateActive, StateTrashed, true},
		{StateActive, StatePurged, true},
		{StateActive, StateActive, false},
		{StateTrashed, StateActive, true},
		{StateTrashed, StatePurged, true},
		{StateTrashed, StateTrashed, false},
		{StatePurged, StateActive, false},
		{StatePurged, StateTrashed, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			disc := &Discount{State: tt.from}
			err := disc.Transition(tt.to)
			if tt.allowed {
				require.NoError(t, err)
				assert.Equal(t, tt.to, disc.State)
				return
			}
			require.ErrorIs(t, err, ErrIllegalTransition)
			assert.Equal(t, tt.from, disc.State)
		})
	}
}

func TestDraft_Validate(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(30 * 24 * time.Hour)

	valid := Draft{
		Code:       "SAVE10",
		Type:       TypePercentage,
		Percentage: d("10"),
		StartsAt:   start,
		EndsAt:     end,
	}

	tests := []struct {
		name       string
		mutate     func(*Draft)
		wantFields []string
	}{
		{
			name:   "valid percentage",
			mutate: func(*Draft) {},
		},
		{
			name: "valid fixed",
			mutate: func(dr *Draft) {
				dr.Type = TypeFixed
				dr.Percentage = decimal.Zero
				dr.FixedAmount = money.MustParse("5", "USD")
			},
		},
		{
			name:       "missing code",
			mutate:     func(dr *Draft) { dr.Code = "" },
			wantFields: []string{"code"},
		},
		{
			name:       "code with spaces",
			mutate:     func(dr *Draft) { dr.Code = "SAVE 10" },
			wantFields: []string{"code"},
		},
		{
			name:       "percentage above 100",
			mutate:     func(dr *Draft) { dr.Percentage = d("100.01") },
			wantFields: []string{"percentage"},
		},
		{
			name:       "percentage finer than cents",
			mutate:     func(dr *Draft) { dr.Percentage = d("12.345") },
			wantFields: []string{"percentage"},
		},
		{
			name:   "percentage with trailing zeros",
			mutate: func(dr *Draft) { dr.Percentage = d("12.500") },
		},
		{
			name:       "zero percentage",
			mutate:     func(dr *Draft) { dr.Percentage = decimal.Zero },
			wantFields: []string{"percentage"},
		},
		{
			name: "fixed without amount and bad currency",
			mutate: func(dr *Draft) {
				dr.Type = TypeFixed
				dr.FixedAmount = money.MustParse("0", "usd")
			},
			wantFields: []string{"fixed_amount.amount", "fixed_amount.currency"},
		},
		{
			name:       "unknown type",
			mutate:     func(dr *Draft) { dr.Type = "bogo" },
			wantFields: []string{"type"},
		},
		{
			name:       "window reversed",
			mutate:     func(dr *Draft) { dr.StartsAt, dr.EndsAt = dr.EndsAt, dr.StartsAt },
			wantFields: []string{"ends_at"},
		},
		{
			name: "everything wrong at once",
			mutate: func(dr *Draft) {
				*dr = Draft{}
			},
			wantFields: []string{"code", "type", "starts_at", "ends_at"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			draft := valid
			tt.mutate(&draft)

			err := draft.Validate()
			if len(tt.wantFields) == 0 {
				require.NoError(t, err)
				return
			}

			var verrs validation.Errors
			require.ErrorAs(t, err, &verrs)
			fields := make([]string, len(verrs))
			for i, fe := range verrs {
				fields[i] = fe.Field
			}
			assert.Equal(t, tt.wantFields, fields)
		})
	}
}
