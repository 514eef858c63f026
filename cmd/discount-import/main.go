// Command discount-import loads discount codes from gzip-compressed CSV
// files. Later occurrences of a code are skipped; existing codes in the
// database are overwritten.
//
// Usage:
//
//	discount-import -database-url postgres://... promos-2025q1.csv.gz promos-2025q2.csv.gz
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/academy-checkout/internal/repository"
)

func main() {
	var (
		databaseURL string
		batchSize   int
	)
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.IntVar(&batchSize, "batch-size", defaultBatchSize, "discounts per database round trip")
	flag.Parse()

	lg, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = lg.Sync() }()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		lg.Fatal("Database URL is required: set --database-url or DATABASE_URL")
	}
	if flag.NArg() == 0 {
		lg.Fatal("No input files")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, lg, databaseURL, batchSize, flag.Args()); err != nil {
		lg.Fatal("Discount import failed", zap.Error(err))
	}
}

func run(ctx context.Context, lg *zap.Logger, databaseURL string, batchSize int, files []string) error {
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			return errors.Wrapf(err, "check file %s", f)
		}
	}

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	im := &importer{
		files:     files,
		now:       time.Now(),
		batchSize: batchSize,
		write:     repository.NewDiscountRepository(pool).UpsertBatch,
		lg:        lg,
	}
	st, err := im.run(ctx)
	if err != nil {
		return err
	}

	lg.Info("Discount import completed",
		zap.Int("rows", st.Rows),
		zap.Int("written", st.Written),
		zap.Int("duplicates", st.Duplicates),
	)
	return nil
}
