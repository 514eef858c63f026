package repository

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/academy-checkout/internal/domain/course"
	"github.com/xenking/academy-checkout/internal/domain/money"
)

const (
	listCoursesSQL = `SELECT id, title, price, currency, published
		FROM courses WHERE published ORDER BY id`

	getCourseByIDSQL = `SELECT id, title, price, currency, published
		FROM courses WHERE id = $1 AND published`

	getCoursesByIDsSQL = `SELECT id, title, price, currency, published
		FROM courses WHERE id = ANY($1) AND published`

	upsertCourseSQL = `INSERT INTO courses (id, title, price, currency, published)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET title = EXCLUDED.title, price = EXCLUDED.price,
			currency = EXCLUDED.currency, published = EXCLUDED.published`
)

var _ course.Repository = (*CourseRepository)(nil)

// CourseRepository implements course.Repository backed by PostgreSQL.
type CourseRepository struct {
	pool *pgxpool.Pool
}

// NewCourseRepository returns a CourseRepository that uses the given pool.
func NewCourseRepository(pool *pgxpool.Pool) *CourseRepository {
	return &CourseRepository{pool: pool}
}

// List returns all published courses ordered by ID.
func (r *CourseRepository) List(ctx context.Context) ([]course.Course, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, listCoursesSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list courses")
	}
	return pgx.CollectRows(rows, scanCourse)
}

// GetByID returns a single published course.
func (r *CourseRepository) GetByID(ctx context.Context, id string) (*course.Course, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, getCourseByIDSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get course %q", id)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCourse)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, course.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get course %q", id)
	}
	return &c, nil
}

// GetByIDs returns the published courses among ids.
func (r *CourseRepository) GetByIDs(ctx context.Context, ids []string) ([]course.Course, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, getCoursesByIDsSQL, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get courses by ids")
	}
	return pgx.CollectRows(rows, scanCourse)
}

// Upsert inserts or replaces a course. Used by seeding.
func (r *CourseRepository) Upsert(ctx context.Context, c course.Course) error {
	_, err := conn(ctx, r.pool).Exec(ctx, upsertCourseSQL,
		c.ID, c.Title, c.Price.Amount, c.Price.Currency, c.Published,
	)
	if err != nil {
		return errors.Wrapf(err, "upsert course %q", c.ID)
	}
	return nil
}

func scanCourse(row pgx.CollectableRow) (course.Course, error) {
	var (
		c        course.Course
		price    decimal.Decimal
		currency string
	)
	err := row.Scan(&c.ID, &c.Title, &price, &currency, &c.Published)
	c.Price = money.New(price, currency)
	return c, err
}
