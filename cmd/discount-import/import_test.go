package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xenking/academy-checkout/internal/domain/discount"
	"github.com/xenking/academy-checkout/internal/domain/money"
	"github.com/xenking/academy-checkout/internal/domain/validation"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func writeGz(t *testing.T, name string, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	require.NoError(t, err)
	gz := pgzip.NewWriter(f)
	_, err = gz.Write([]byte(strings.Join(lines, "\n") + "\n"))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())
	return path
}

const csvHeader = "code,type,value,currency,starts_at,ends_at,description"

type sink struct {
	batches [][]discount.Discount
	err     error
}

func (s *sink) write(_ context.Context, ds []discount.Discount) error {
	if s.err != nil {
		return s.err
	}
	s.batches = append(s.batches, append([]discount.Discount(nil), ds...))
	return nil
}

func (s *sink) codes() []string {
	var out []string
	for _, b := range s.batches {
		for _, d := range b {
			out = append(out, d.Code)
		}
	}
	return out
}

func newImporter(s *sink, batchSize int, files ...string) *importer {
	return &importer{
		files:     files,
		now:       testNow,
		batchSize: batchSize,
		write:     s.write,
		lg:        zap.NewNop(),
	}
}

func TestImporter_SkipsDuplicates(t *testing.T) {
	first := writeGz(t, "a.csv.gz",
		csvHeader,
		"SAVE10,percentage,10,,2025-01-01T00:00:00Z,2026-01-01T00:00:00Z,ten off",
		"FLAT5,fixed,5.00,USD,2025-01-01T00:00:00Z,2026-01-01T00:00:00Z,five off",
		"SAVE10,percentage,15,,2025-01-01T00:00:00Z,2026-01-01T00:00:00Z,again",
	)
	second := writeGz(t, "b.csv.gz",
		"FLAT5,fixed,7.00,USD,2025-01-01T00:00:00Z,2026-01-01T00:00:00Z,seven off",
		"NEW20,percentage,20,,2025-01-01T00:00:00Z,2026-01-01T00:00:00Z,",
	)

	s := &sink{}
	st, err := newImporter(s, 2, first, second).run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, stats{Rows: 5, Written: 3, Duplicates: 2}, st)
	assert.Equal(t, []string{"SAVE10", "FLAT5", "NEW20"}, s.codes())
	require.Len(t, s.batches, 2, "batch size 2")

	save10, flat5 := s.batches[0][0], s.batches[0][1]
	assert.True(t, decimal.NewFromInt(10).Equal(save10.Percentage), "first occurrence wins")
	assert.True(t, money.MustParse("5", "USD").Equal(flat5.FixedAmount))
	assert.Equal(t, discount.StateActive, flat5.State)
	assert.Equal(t, importedBy, flat5.CreatedBy)
	assert.Equal(t, testNow, flat5.CreatedAt)
	assert.NotEmpty(t, flat5.ID)
}

func TestImporter_InvalidRowWritesNothing(t *testing.T) {
	good := writeGz(t, "good.csv.gz",
		"SAVE10,percentage,10,,2025-01-01T00:00:00Z,2026-01-01T00:00:00Z,",
	)
	bad := writeGz(t, "bad.csv.gz",
		csvHeader,
		"BROKEN,percentage,150,,2025-01-01T00:00:00Z,2026-01-01T00:00:00Z,",
	)

	s := &sink{}
	_, err := newImporter(s, 10, good, bad).run(context.Background())
	require.ErrorContains(t, err, "bad.csv.gz:2")

	var verrs validation.Errors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "percentage", verrs[0].Field)
	assert.Empty(t, s.batches)
}

func TestImporter_WriteError(t *testing.T) {
	file := writeGz(t, "a.csv.gz",
		"SAVE10,percentage,10,,2025-01-01T00:00:00Z,2026-01-01T00:00:00Z,",
	)
	s := &sink{err: errors.New("connection reset")}
	_, err := newImporter(s, 10, file).run(context.Background())
	require.ErrorContains(t, err, "connection reset")
}

func TestImporter_NotGzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.csv")
	require.NoError(t, os.WriteFile(path, []byte(csvHeader+"\n"), 0o600))

	_, err := newImporter(&sink{}, 10, path).run(context.Background())
	require.ErrorContains(t, err, "gzip reader")
}

func TestParseRecord(t *testing.T) {
	tests := []struct {
		name    string
		rec     string
		wantErr string
		check   func(t *testing.T, d *discount.Discount)
	}{
		{
			name: "percentage ignores currency",
			rec:  "SAVE10,percentage,10,EUR,2025-01-01T00:00:00Z,2026-01-01T00:00:00Z,ten",
			check: func(t *testing.T, d *discount.Discount) {
				assert.Equal(t, discount.TypePercentage, d.Type)
				assert.True(t, decimal.NewFromInt(10).Equal(d.Percentage))
				assert.True(t, d.FixedAmount.Amount.IsZero())
				assert.Equal(t, "ten", d.Description)
			},
		},
		{
			name: "fixed amount is rounded",
			rec:  "FLAT,fixed,5.005,USD,2025-01-01T00:00:00Z,2026-01-01T00:00:00Z,",
			check: func(t *testing.T, d *discount.Discount) {
				assert.True(t, money.MustParse("5.01", "USD").Equal(d.FixedAmount))
			},
		},
		{name: "bad value", rec: "X,fixed,five,USD,2025-01-01T00:00:00Z,2026-01-01T00:00:00Z,", wantErr: "value"},
		{name: "bad start", rec: "X,fixed,5,USD,2025-01-01,2026-01-01T00:00:00Z,", wantErr: "starts_at"},
		{name: "bad end", rec: "X,fixed,5,USD,2025-01-01T00:00:00Z,soon,", wantErr: "ends_at"},
		{name: "unknown type", rec: "X,bogo,5,USD,2025-01-01T00:00:00Z,2026-01-01T00:00:00Z,", wantErr: `code "X"`},
		{name: "window inverted", rec: "X,fixed,5,USD,2026-01-01T00:00:00Z,2025-01-01T00:00:00Z,", wantErr: "ends_at: must be after starts_at"},
		{name: "short row", rec: "X,fixed,5", wantErr: "expected 7 fields"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := parseRecord(strings.Split(tt.rec, ","), testNow)
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.check(t, d)
		})
	}
}
