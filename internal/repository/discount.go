package repository

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/academy-checkout/internal/domain/discount"
	"github.com/xenking/academy-checkout/internal/domain/money"
)

const discountColumns = `id, code, discount_type, percentage, fixed_amount, fixed_currency,
		starts_at, ends_at, description, state, uses, created_by, modified_by, created_at, modified_at`

const (
	getDiscountByCodeSQL = `SELECT ` + discountColumns + `
		FROM discounts WHERE code = $1 AND state = 'active'`

	getDiscountByIDSQL = `SELECT ` + discountColumns + `
		FROM discounts WHERE id = $1`

	listDiscountsSQL = `SELECT ` + discountColumns + `
		FROM discounts WHERE ($1 = '' OR state = $1) ORDER BY created_at DESC, code`

	insertDiscountSQL = `INSERT INTO discounts (` + discountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	updateDiscountSQL = `UPDATE discounts SET code = $2, discount_type = $3, percentage = $4,
		fixed_amount = $5, fixed_currency = $6, starts_at = $7, ends_at = $8, description = $9,
		modified_by = $10, modified_at = $11
		WHERE id = $1`

	setDiscountStateSQL = `UPDATE discounts SET state = $2, modified_by = $3, modified_at = $4
		WHERE id = $1`

	purgeDiscountSQL = `DELETE FROM discounts WHERE id = $1`

	incrementDiscountUsesSQL = `UPDATE discounts SET uses = uses + 1
		WHERE code = $1 AND state = 'active'`

	upsertImportedDiscountSQL = `INSERT INTO discounts (` + discountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (code) DO UPDATE SET discount_type = EXCLUDED.discount_type,
			percentage = EXCLUDED.percentage, fixed_amount = EXCLUDED.fixed_amount,
			fixed_currency = EXCLUDED.fixed_currency, starts_at = EXCLUDED.starts_at,
			ends_at = EXCLUDED.ends_at, description = EXCLUDED.description,
			modified_by = EXCLUDED.modified_by, modified_at = EXCLUDED.modified_at`
)

var _ discount.Repository = (*DiscountRepository)(nil)

// DiscountRepository implements discount.Repository backed by PostgreSQL.
// Purged discounts are deleted, so the state column only holds active and
// trashed.
type DiscountRepository struct {
	pool *pgxpool.Pool
}

// NewDiscountRepository returns a DiscountRepository that uses the given pool.
func NewDiscountRepository(pool *pgxpool.Pool) *DiscountRepository {
	return &DiscountRepository{pool: pool}
}

// FindByCode looks up an active discount by its exact code.
func (r *DiscountRepository) FindByCode(ctx context.Context, code string) (*discount.Discount, error) {
	return r.findOne(ctx, getDiscountByCodeSQL, code)
}

// FindByID looks up an active or trashed discount.
func (r *DiscountRepository) FindByID(ctx context.Context, id string) (*discount.Discount, error) {
	return r.findOne(ctx, getDiscountByIDSQL, id)
}

func (r *DiscountRepository) findOne(ctx context.Context, query, arg string) (*discount.Discount, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, query, arg)
	if err != nil {
		return nil, errors.Wrapf(err, "find discount %q", arg)
	}

	d, err := pgx.CollectExactlyOneRow(rows, scanDiscount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, discount.ErrNotFound
		}
		return nil, errors.Wrapf(err, "find discount %q", arg)
	}
	return &d, nil
}

// List returns discounts in filter.State, or all of them.
func (r *DiscountRepository) List(ctx context.Context, filter discount.ListFilter) ([]discount.Discount, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, listDiscountsSQL, string(filter.State))
	if err != nil {
		return nil, errors.Wrap(err, "list discounts")
	}
	return pgx.CollectRows(rows, scanDiscount)
}

// Create inserts d. A duplicate code yields discount.ErrCodeTaken.
func (r *DiscountRepository) Create(ctx context.Context, d *discount.Discount) error {
	_, err := conn(ctx, r.pool).Exec(ctx, insertDiscountSQL, discountArgs(d)...)
	if err != nil {
		if isUniqueViolation(err) {
			return discount.ErrCodeTaken
		}
		return errors.Wrapf(err, "insert discount %q", d.Code)
	}
	return nil
}

// Update stores the editable fields of d.
func (r *DiscountRepository) Update(ctx context.Context, d *discount.Discount) error {
	fixedAmount, fixedCurrency := fixedColumns(d)
	tag, err := conn(ctx, r.pool).Exec(ctx, updateDiscountSQL,
		d.ID, d.Code, string(d.Type), d.Percentage, fixedAmount, fixedCurrency,
		d.StartsAt, d.EndsAt, d.Description, d.ModifiedBy, d.ModifiedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return discount.ErrCodeTaken
		}
		return errors.Wrapf(err, "update discount %s", d.ID)
	}
	if tag.RowsAffected() == 0 {
		return discount.ErrNotFound
	}
	return nil
}

// SetState stores a lifecycle transition.
func (r *DiscountRepository) SetState(ctx context.Context, d *discount.Discount) error {
	tag, err := conn(ctx, r.pool).Exec(ctx, setDiscountStateSQL, d.ID, string(d.State), d.ModifiedBy, d.ModifiedAt)
	if err != nil {
		return errors.Wrapf(err, "set discount %s state", d.ID)
	}
	if tag.RowsAffected() == 0 {
		return discount.ErrNotFound
	}
	return nil
}

// Purge deletes the discount row.
func (r *DiscountRepository) Purge(ctx context.Context, id string) error {
	tag, err := conn(ctx, r.pool).Exec(ctx, purgeDiscountSQL, id)
	if err != nil {
		return errors.Wrapf(err, "purge discount %s", id)
	}
	if tag.RowsAffected() == 0 {
		return discount.ErrNotFound
	}
	return nil
}

// IncrementUses atomically increments the usage counter of an active
// discount in a single statement.
func (r *DiscountRepository) IncrementUses(ctx context.Context, code string) error {
	tag, err := conn(ctx, r.pool).Exec(ctx, incrementDiscountUsesSQL, code)
	if err != nil {
		return errors.Wrapf(err, "increment uses for discount %q", code)
	}
	if tag.RowsAffected() == 0 {
		return discount.ErrNotFound
	}
	return nil
}

// UpsertBatch inserts discounts or overwrites existing codes. Existing rows
// keep their id, state, usage counter and creation audit fields.
func (r *DiscountRepository) UpsertBatch(ctx context.Context, ds []discount.Discount) error {
	batch := &pgx.Batch{}
	for i := range ds {
		batch.Queue(upsertImportedDiscountSQL, discountArgs(&ds[i])...)
	}
	if err := conn(ctx, r.pool).SendBatch(ctx, batch).Close(); err != nil {
		return errors.Wrap(err, "upsert discounts")
	}
	return nil
}

func fixedColumns(d *discount.Discount) (decimal.Decimal, string) {
	if d.Type != discount.TypeFixed {
		return decimal.Zero, ""
	}
	return d.FixedAmount.Amount, d.FixedAmount.Currency
}

func discountArgs(d *discount.Discount) []any {
	fixedAmount, fixedCurrency := fixedColumns(d)
	return []any{
		d.ID, d.Code, string(d.Type), d.Percentage, fixedAmount, fixedCurrency,
		d.StartsAt, d.EndsAt, d.Description, string(d.State), d.Uses,
		d.CreatedBy, d.ModifiedBy, d.CreatedAt, d.ModifiedAt,
	}
}

func scanDiscount(row pgx.CollectableRow) (discount.Discount, error) {
	var (
		d             discount.Discount
		discountType  string
		state         string
		fixedAmount   decimal.Decimal
		fixedCurrency string
		startsAt      time.Time
		endsAt        time.Time
	)
	err := row.Scan(
		&d.ID, &d.Code, &discountType, &d.Percentage, &fixedAmount, &fixedCurrency,
		&startsAt, &endsAt, &d.Description, &state, &d.Uses,
		&d.CreatedBy, &d.ModifiedBy, &d.CreatedAt, &d.ModifiedAt,
	)
	d.Type = discount.Type(discountType)
	d.State = discount.State(state)
	d.StartsAt = startsAt.UTC()
	d.EndsAt = endsAt.UTC()
	if d.Type == discount.TypeFixed {
		d.FixedAmount = money.New(fixedAmount, fixedCurrency)
	}
	return d, err
}
