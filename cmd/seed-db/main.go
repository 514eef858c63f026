// Command seed-db loads a demo catalog, discounts and API keys.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/academy-checkout/internal/domain/auth"
	"github.com/xenking/academy-checkout/internal/repository"
)

type options struct {
	databaseURL string
	coursesFile string
	adminKey    string
	studentKey  string
	pepper      string
}

func main() {
	var opts options
	flag.StringVar(&opts.databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&opts.coursesFile, "courses-file", "", "JSON course catalog; the built-in catalog is used when empty")
	flag.StringVar(&opts.adminKey, "admin-key", "", "admin API key to seed (or ACADEMY_SEED_ADMIN_KEY env)")
	flag.StringVar(&opts.studentKey, "student-key", "", "student API key to seed (or ACADEMY_SEED_STUDENT_KEY env)")
	flag.StringVar(&opts.pepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or ACADEMY_API_KEY_PEPPER env)")
	flag.Parse()

	lg, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = lg.Sync() }()

	opts.fromEnv()
	if opts.databaseURL == "" {
		lg.Fatal("Database URL is required: set --database-url or DATABASE_URL")
	}
	if opts.adminKey == "" && opts.studentKey == "" {
		lg.Fatal("At least one API key is required: set --admin-key or --student-key")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, lg, opts); err != nil {
		lg.Fatal("Seed failed", zap.Error(err))
	}
	lg.Info("Seed completed")
}

func (o *options) fromEnv() {
	env := func(dst *string, key string) {
		if *dst == "" {
			*dst = os.Getenv(key)
		}
	}
	env(&o.databaseURL, "DATABASE_URL")
	env(&o.adminKey, "ACADEMY_SEED_ADMIN_KEY")
	env(&o.studentKey, "ACADEMY_SEED_STUDENT_KEY")
	env(&o.pepper, "ACADEMY_API_KEY_PEPPER")
}

func run(ctx context.Context, lg *zap.Logger, opts options) error {
	courses := defaultCourses
	if opts.coursesFile != "" {
		data, err := os.ReadFile(opts.coursesFile)
		if err != nil {
			return errors.Wrap(err, "read courses file")
		}
		if courses, err = decodeCourses(data); err != nil {
			return errors.Wrap(err, "parse courses file")
		}
	}
	discounts, err := defaultDiscounts(time.Now())
	if err != nil {
		return errors.Wrap(err, "build discounts")
	}

	pool, err := repository.NewPool(ctx, opts.databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	lg.Info("Running migrations")
	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	var (
		courseRepo   = repository.NewCourseRepository(pool)
		discountRepo = repository.NewDiscountRepository(pool)
		apikeyRepo   = repository.NewAPIKeyRepository(pool)
	)
	return repository.NewTransactor(pool).WithinTx(ctx, func(ctx context.Context) error {
		for _, c := range courses {
			if err := courseRepo.Upsert(ctx, c); err != nil {
				return err
			}
			lg.Info("Upserted course", zap.String("id", c.ID), zap.String("price", c.Price.String()))
		}

		if err := discountRepo.UpsertBatch(ctx, discounts); err != nil {
			return err
		}
		for _, d := range discounts {
			lg.Info("Upserted discount", zap.String("code", d.Code), zap.Time("ends_at", d.EndsAt))
		}

		for _, k := range apiKeys(opts) {
			if err := apikeyRepo.Upsert(ctx, k); err != nil {
				return err
			}
			lg.Info("Upserted API key", zap.String("id", k.ID), zap.String("subject", k.SubjectID))
		}
		return nil
	})
}

func apiKeys(opts options) []auth.APIKeyInfo {
	pepper := []byte(opts.pepper)
	var out []auth.APIKeyInfo
	if opts.adminKey != "" {
		out = append(out, auth.APIKeyInfo{
			ID:        "seed-admin",
			KeyHash:   auth.HashKey(pepper, opts.adminKey),
			SubjectID: "admin",
			Roles:     []auth.Role{auth.RoleAdmin},
		})
	}
	if opts.studentKey != "" {
		out = append(out, auth.APIKeyInfo{
			ID:        "seed-student",
			KeyHash:   auth.HashKey(pepper, opts.studentKey),
			SubjectID: "student",
			Roles:     []auth.Role{auth.RoleStudent},
		})
	}
	return out
}

