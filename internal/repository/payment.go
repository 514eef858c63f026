package repository

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/academy-checkout/internal/domain/money"
	"github.com/xenking/academy-checkout/internal/domain/payment"
)

const (
	insertPaymentSQL = `INSERT INTO payments (id, order_id, amount, currency, method, token, status,
		transaction_id, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	listPaymentsByOrderSQL = `SELECT id, order_id, amount, currency, method, token, status,
		transaction_id, created_by, created_at
		FROM payments WHERE order_id = $1 ORDER BY created_at, id`
)

var _ payment.Repository = (*PaymentRepository)(nil)

// PaymentRepository implements payment.Repository backed by PostgreSQL.
type PaymentRepository struct {
	pool *pgxpool.Pool
}

// NewPaymentRepository returns a PaymentRepository that uses the given pool.
func NewPaymentRepository(pool *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{pool: pool}
}

// Create inserts a settled payment. A second settled payment for the same
// order violates a unique index and yields payment.ErrOrderAlreadyPaid.
func (r *PaymentRepository) Create(ctx context.Context, p *payment.Payment) error {
	_, err := conn(ctx, r.pool).Exec(ctx, insertPaymentSQL,
		p.ID, p.OrderID, p.Amount.Amount, p.Amount.Currency, string(p.Method), p.Token,
		string(p.Status), p.TransactionID, p.CreatedBy, p.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return payment.ErrOrderAlreadyPaid
		}
		return errors.Wrapf(err, "insert payment %q", p.ID)
	}
	return nil
}

// ListByOrder returns the payments of an order, oldest first.
func (r *PaymentRepository) ListByOrder(ctx context.Context, orderID string) ([]payment.Payment, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, listPaymentsByOrderSQL, orderID)
	if err != nil {
		return nil, errors.Wrapf(err, "list payments of order %q", orderID)
	}
	return pgx.CollectRows(rows, scanPayment)
}

func scanPayment(row pgx.CollectableRow) (payment.Payment, error) {
	var (
		p         payment.Payment
		amount    decimal.Decimal
		currency  string
		method    string
		status    string
		createdAt time.Time
	)
	err := row.Scan(
		&p.ID, &p.OrderID, &amount, &currency, &method, &p.Token, &status,
		&p.TransactionID, &p.CreatedBy, &createdAt,
	)
	p.Amount = money.New(amount, currency)
	p.Method = payment.Method(method)
	p.Status = payment.Status(status)
	p.CreatedAt = createdAt.UTC()
	return p, err
}
