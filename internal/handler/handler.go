// Package handler exposes the checkout services over REST.
package handler

import (
	"context"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/metric"

	"github.com/xenking/academy-checkout/internal/domain/auth"
	"github.com/xenking/academy-checkout/internal/domain/course"
	"github.com/xenking/academy-checkout/internal/domain/discount"
	"github.com/xenking/academy-checkout/internal/domain/money"
	"github.com/xenking/academy-checkout/internal/domain/order"
	"github.com/xenking/academy-checkout/internal/domain/payment"
)

// Orders is the order service as seen by the HTTP layer.
type Orders interface {
	Create(ctx context.Context, req order.CreateRequest) (*order.Order, error)
	Get(ctx context.Context, subject auth.Subject, id string) (*order.Order, error)
	ListByOwner(ctx context.Context, ownerID string) ([]order.Order, error)
}

// Payments is the payment service as seen by the HTTP layer.
type Payments interface {
	Create(ctx context.Context, by auth.Subject, req payment.CreateRequest) (*payment.Payment, error)
	ListByOrder(ctx context.Context, by auth.Subject, orderID string) ([]payment.Payment, error)
}

// Discounts is the discount service as seen by the HTTP layer.
type Discounts interface {
	FindByCode(ctx context.Context, code string) (*discount.Discount, error)
	FindByID(ctx context.Context, id string) (*discount.Discount, error)
	List(ctx context.Context, filter discount.ListFilter) ([]discount.Discount, error)
	Calculate(ctx context.Context, code string, price money.Money) (money.Money, error)
	Create(ctx context.Context, by auth.Subject, draft discount.Draft) (*discount.Discount, error)
	Update(ctx context.Context, by auth.Subject, id string, draft discount.Draft) (*discount.Discount, error)
	Delete(ctx context.Context, by auth.Subject, id string) (*discount.Discount, error)
	Restore(ctx context.Context, by auth.Subject, id string) (*discount.Discount, error)
	ForceDelete(ctx context.Context, id string) error
}

// Deps groups the services a Handler delegates to.
type Deps struct {
	Courses   course.Repository
	Orders    Orders
	Payments  Payments
	Discounts Discounts
	Resolver  auth.Resolver
}

// Handler serves the /api routes.
type Handler struct {
	courses   course.Repository
	orders    Orders
	payments  Payments
	discounts Discounts
	resolver  auth.Resolver

	ordersCreated   metric.Int64Counter
	paymentsSettled metric.Int64Counter
	paymentsFailed  metric.Int64Counter
}

// New creates a Handler. Business counters are registered on meters from mp.
func New(deps Deps, mp metric.MeterProvider) (*Handler, error) {
	h := &Handler{
		courses:   deps.Courses,
		orders:    deps.Orders,
		payments:  deps.Payments,
		discounts: deps.Discounts,
		resolver:  deps.Resolver,
	}

	meter := mp.Meter("github.com/xenking/academy-checkout/internal/handler")
	var err error
	if h.ordersCreated, err = meter.Int64Counter("checkout.orders.created",
		metric.WithDescription("Orders created"),
	); err != nil {
		return nil, errors.Wrap(err, "orders counter")
	}
	if h.paymentsSettled, err = meter.Int64Counter("checkout.payments.settled",
		metric.WithDescription("Payments settled"),
	); err != nil {
		return nil, errors.Wrap(err, "settled counter")
	}
	if h.paymentsFailed, err = meter.Int64Counter("checkout.payments.failed",
		metric.WithDescription("Payment attempts rejected by a gateway"),
	); err != nil {
		return nil, errors.Wrap(err, "failed counter")
	}
	return h, nil
}
