package repository

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/academy-checkout/internal/domain/money"
	"github.com/xenking/academy-checkout/internal/domain/order"
)

const orderColumns = `id, owner_id, ordered_at, currency, subtotal, discount_code, discount_amount,
		total, status, paid_at`

const (
	insertOrderSQL = `INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	insertOrderItemSQL = `INSERT INTO order_items (id, order_id, position, course_id, price, currency)
		VALUES ($1, $2, $3, $4, $5, $6)`

	getOrderSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	getOrderForUpdateSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR UPDATE`

	listOrdersByOwnerSQL = `SELECT ` + orderColumns + `
		FROM orders WHERE owner_id = $1 ORDER BY ordered_at DESC, id`

	listOrderItemsSQL = `SELECT order_id, id, course_id, price, currency
		FROM order_items WHERE order_id = ANY($1) ORDER BY order_id, position`

	markOrderPaidSQL = `UPDATE orders SET status = 'paid', paid_at = $2
		WHERE id = $1 AND status = 'pending'`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL. Items
// live in their own table and are always read and written with the order.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create inserts the order and its items. Callers wrap it in a transaction
// to make the insert atomic.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	batch := &pgx.Batch{}
	batch.Queue(insertOrderSQL,
		o.ID, o.OwnerID, o.OrderedAt, o.Currency, o.Subtotal.Amount, o.DiscountCode,
		o.DiscountAmount.Amount, o.Total.Amount, string(o.Status), o.PaidAt,
	)
	for i, it := range o.Items {
		batch.Queue(insertOrderItemSQL, it.ID, o.ID, i, it.CourseID, it.Price.Amount, it.Price.Currency)
	}

	if err := conn(ctx, r.pool).SendBatch(ctx, batch).Close(); err != nil {
		return errors.Wrapf(err, "insert order %q", o.ID)
	}
	return nil
}

// Get returns the order with its items.
func (r *OrderRepository) Get(ctx context.Context, id string) (*order.Order, error) {
	return r.getOne(ctx, getOrderSQL, id)
}

// GetForUpdate returns the order with its items and locks the order row for
// the rest of the surrounding transaction.
func (r *OrderRepository) GetForUpdate(ctx context.Context, id string) (*order.Order, error) {
	return r.getOne(ctx, getOrderForUpdateSQL, id)
}

func (r *OrderRepository) getOne(ctx context.Context, query, id string) (*order.Order, error) {
	q := conn(ctx, r.pool)
	rows, err := q.Query(ctx, query, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get order %q", id)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get order %q", id)
	}

	orders := []order.Order{o}
	if err := r.attachItems(ctx, q, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

// ListByOwner returns the owner's orders, newest first.
func (r *OrderRepository) ListByOwner(ctx context.Context, ownerID string) ([]order.Order, error) {
	q := conn(ctx, r.pool)
	rows, err := q.Query(ctx, listOrdersByOwnerSQL, ownerID)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	if err := r.attachItems(ctx, q, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// MarkPaid moves a pending order to paid.
func (r *OrderRepository) MarkPaid(ctx context.Context, id string, paidAt time.Time) error {
	tag, err := conn(ctx, r.pool).Exec(ctx, markOrderPaidSQL, id, paidAt)
	if err != nil {
		return errors.Wrapf(err, "mark order %q paid", id)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

func (r *OrderRepository) attachItems(ctx context.Context, q querier, orders []order.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]string, len(orders))
	index := make(map[string]int, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
		index[orders[i].ID] = i
	}

	rows, err := q.Query(ctx, listOrderItemsSQL, ids)
	if err != nil {
		return errors.Wrap(err, "list order items")
	}
	defer rows.Close()

	for rows.Next() {
		var (
			orderID  string
			it       order.Item
			price    decimal.Decimal
			currency string
		)
		if err := rows.Scan(&orderID, &it.ID, &it.CourseID, &price, &currency); err != nil {
			return errors.Wrap(err, "scan order item")
		}
		it.Price = money.New(price, currency)
		i := index[orderID]
		orders[i].Items = append(orders[i].Items, it)
	}
	return rows.Err()
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o        order.Order
		subtotal decimal.Decimal
		reduct   decimal.Decimal
		total    decimal.Decimal
		status   string
		paidAt   *time.Time
	)
	err := row.Scan(
		&o.ID, &o.OwnerID, &o.OrderedAt, &o.Currency, &subtotal, &o.DiscountCode,
		&reduct, &total, &status, &paidAt,
	)
	o.OrderedAt = o.OrderedAt.UTC()
	o.Subtotal = money.New(subtotal, o.Currency)
	o.DiscountAmount = money.New(reduct, o.Currency)
	o.Total = money.New(total, o.Currency)
	o.Status = order.Status(status)
	if paidAt != nil {
		utc := paidAt.UTC()
		o.PaidAt = &utc
	}
	return o, err
}
