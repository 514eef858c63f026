package main

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/academy-checkout/internal/domain/discount"
	"github.com/xenking/academy-checkout/internal/domain/money"
)

const (
	bloomCapacity    = 2_000_000
	bloomFPR         = 0.001
	defaultBatchSize = 500
	progressEvery    = 100_000

	// importedBy is stamped into the audit fields of imported discounts.
	importedBy = "discount-import"
)

// header is the expected column layout. The header row itself is optional.
var header = []string{"code", "type", "value", "currency", "starts_at", "ends_at", "description"}

type stats struct {
	Rows       int
	Written    int
	Duplicates int
}

type importer struct {
	files     []string
	now       time.Time
	batchSize int
	write     func(ctx context.Context, ds []discount.Discount) error
	lg        *zap.Logger
}

// run validates every file, then writes the first occurrence of each code.
//
// Pass 1 builds one bloom filter per file, concurrently. A code that the
// filter of its own file has already seen, or that any other file's filter
// may contain, is a duplicate candidate. Pass 2 tracks exact occurrences for
// candidates only, so memory stays proportional to the number of candidates.
func (im *importer) run(ctx context.Context) (stats, error) {
	var st stats
	if im.batchSize <= 0 {
		im.batchSize = defaultBatchSize
	}

	filters := make([]*bloom.BloomFilter, len(im.files))
	repeated := make([]map[string]struct{}, len(im.files))
	counts := make([]int, len(im.files))

	g, gctx := errgroup.WithContext(ctx)
	for i, path := range im.files {
		g.Go(func() error {
			filter := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
			seen := make(map[string]struct{})
			err := im.scan(gctx, path, func(d *discount.Discount) error {
				if filter.TestAndAddString(d.Code) {
					seen[d.Code] = struct{}{}
				}
				counts[i]++
				return nil
			})
			if err != nil {
				return err
			}
			filters[i], repeated[i] = filter, seen
			im.lg.Info("Validated file", zap.String("file", path), zap.Int("rows", counts[i]))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return st, err
	}
	for _, c := range counts {
		st.Rows += c
	}

	candidate := func(idx int, code string) bool {
		if _, ok := repeated[idx][code]; ok {
			return true
		}
		for j, f := range filters {
			if j != idx && f.TestString(code) {
				return true
			}
		}
		return false
	}

	batches := make(chan []discount.Discount, 2)
	g, gctx = errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(batches)
		written := make(map[string]struct{})
		batch := make([]discount.Discount, 0, im.batchSize)
		flush := func() error {
			if len(batch) == 0 {
				return nil
			}
			select {
			case batches <- batch:
			case <-gctx.Done():
				return gctx.Err()
			}
			batch = make([]discount.Discount, 0, im.batchSize)
			return nil
		}

		for i, path := range im.files {
			err := im.scan(gctx, path, func(d *discount.Discount) error {
				if candidate(i, d.Code) {
					if _, dup := written[d.Code]; dup {
						st.Duplicates++
						im.lg.Debug("Skipping duplicate code", zap.String("code", d.Code), zap.String("file", path))
						return nil
					}
					written[d.Code] = struct{}{}
				}
				batch = append(batch, *d)
				if len(batch) == im.batchSize {
					return flush()
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return flush()
	})
	g.Go(func() error {
		for b := range batches {
			if err := im.write(gctx, b); err != nil {
				return errors.Wrap(err, "write batch")
			}
			prev := st.Written
			st.Written += len(b)
			if st.Written/progressEvery != prev/progressEvery {
				im.lg.Info("Write progress", zap.Int("written", st.Written), zap.Int("total", st.Rows))
			}
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return st, err
	}
	return st, nil
}

// scan streams a gzip-compressed CSV file and calls fn for every valid row.
// The first invalid row aborts the scan with its position.
func (im *importer) scan(ctx context.Context, path string, fn func(d *discount.Discount) error) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	r := csv.NewReader(gz)
	r.FieldsPerRecord = len(header)
	r.ReuseRecord = true
	for line := 1; ; line++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return errors.Wrapf(err, "read %s", path)
		}
		if line == 1 && rec[0] == header[0] {
			continue
		}

		d, err := parseRecord(rec, im.now)
		if err != nil {
			return errors.Wrapf(err, "%s:%d", path, line)
		}
		if err := fn(d); err != nil {
			return err
		}
	}
}

// parseRecord turns one CSV row into a validated discount. value is the
// percentage for percentage discounts and the amount for fixed ones; currency
// is only read for fixed discounts.
func parseRecord(rec []string, now time.Time) (*discount.Discount, error) {
	if len(rec) != len(header) {
		return nil, errors.Errorf("expected %d fields, got %d", len(header), len(rec))
	}

	value, err := decimal.NewFromString(rec[2])
	if err != nil {
		return nil, errors.Wrap(err, "value")
	}
	startsAt, err := time.Parse(time.RFC3339, rec[4])
	if err != nil {
		return nil, errors.Wrap(err, "starts_at")
	}
	endsAt, err := time.Parse(time.RFC3339, rec[5])
	if err != nil {
		return nil, errors.Wrap(err, "ends_at")
	}

	draft := discount.Draft{
		Code:        rec[0],
		Type:        discount.Type(rec[1]),
		StartsAt:    startsAt,
		EndsAt:      endsAt,
		Description: rec[6],
	}
	switch draft.Type {
	case discount.TypePercentage:
		draft.Percentage = value
	case discount.TypeFixed:
		draft.FixedAmount = money.New(value, rec[3])
	}

	d, err := discount.New(draft, importedBy, now)
	if err != nil {
		return nil, errors.Wrapf(err, "code %q", rec[0])
	}
	return d, nil
}
