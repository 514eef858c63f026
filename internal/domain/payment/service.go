package payment

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xenking/academy-checkout/internal/domain/auth"
	"github.com/xenking/academy-checkout/internal/domain/money"
	"github.com/xenking/academy-checkout/internal/domain/order"
	"github.com/xenking/academy-checkout/internal/domain/validation"
)

// CreateRequest holds the input for paying an order.
type CreateRequest struct {
	OrderID string
	Amount  money.Money
	Method  Method
	Token   string
}

// Validate checks the request shape.
func (r CreateRequest) Validate() error {
	var errs validation.Errors
	errs.Check(r.OrderID != "", "order_id", "required")
	errs.Check(r.Token != "", "token", "required")
	errs.Check(r.Method.Valid(), "method", "must be one of: card, wallet, gateway")
	errs.Check(!r.Amount.Amount.IsNegative(), "amount.amount", "must not be negative")
	errs.Check(money.ValidCurrency(r.Amount.Currency), "amount.currency", "must be a 3-letter currency code")
	return errs.Err()
}

// Service settles orders.
type Service struct {
	orders   order.Repository
	payments Repository
	gateways Gateways
	tx       order.Transactor
	now      func() time.Time
}

// NewService creates a payment Service.
func NewService(
	orders order.Repository,
	payments Repository,
	gateways Gateways,
	tx order.Transactor,
) *Service {
	return &Service{
		orders:   orders,
		payments: payments,
		gateways: gateways,
		tx:       tx,
		now:      time.Now,
	}
}

// Create charges the order total through the gateway registered for the
// method and records the settled payment.
//
// The order row stays locked from the paid-status check until the payment is
// recorded, so concurrent attempts on one order are charged at most once. A
// failed or declined charge rolls everything back and leaves no payment. An
// order with a zero total settles without a charge.
func (s *Service) Create(ctx context.Context, by auth.Subject, req CreateRequest) (*Payment, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	gw, err := s.gateways.Gateway(req.Method)
	if err != nil {
		return nil, err
	}

	var (
		p       *Payment
		charged bool
	)
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		o, err := s.orders.GetForUpdate(ctx, req.OrderID)
		if err != nil {
			return errors.Wrapf(err, "get order %s", req.OrderID)
		}
		if !by.CanAccess(o.OwnerID) {
			return order.ErrNotFound
		}
		if o.IsPaid() {
			return ErrOrderAlreadyPaid
		}
		if !req.Amount.Equal(o.Total) {
			return &AmountMismatchError{Expected: o.Total, Got: req.Amount}
		}

		p = &Payment{
			ID:        uuid.New().String(),
			OrderID:   o.ID,
			Amount:    o.Total,
			Method:    req.Method,
			Token:     req.Token,
			Status:    StatusSettled,
			CreatedBy: by.ID,
		}

		if !o.Total.Amount.IsZero() {
			res, err := gw.Charge(ctx, ChargeRequest{
				PaymentID: p.ID,
				OrderID:   o.ID,
				Amount:    o.Total,
				Method:    req.Method,
				Token:     req.Token,
			})
			if err != nil {
				return &GatewayError{Method: req.Method, Reason: "gateway unavailable", Err: err}
			}
			if !res.Approved {
				return &GatewayError{Method: req.Method, Reason: res.DeclineReason}
			}
			charged = true
			p.TransactionID = res.TransactionID
		}

		now := s.now().UTC()
		p.CreatedAt = now

		if err := s.payments.Create(ctx, p); err != nil {
			return errors.Wrap(err, "create payment")
		}
		if err := s.orders.MarkPaid(ctx, o.ID, now); err != nil {
			return errors.Wrap(err, "mark order paid")
		}
		return nil
	})
	if err != nil {
		if charged {
			// The gateway took the money but nothing was recorded.
			zctx.From(ctx).Error("Approved charge not recorded",
				zap.String("order_id", req.OrderID),
				zap.String("payment_id", p.ID),
				zap.String("transaction_id", p.TransactionID),
				zap.Error(err),
			)
		}
		return nil, err
	}
	return p, nil
}

// ListByOrder returns the payments of an order visible to the subject.
func (s *Service) ListByOrder(ctx context.Context, by auth.Subject, orderID string) ([]Payment, error) {
	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, errors.Wrapf(err, "get order %s", orderID)
	}
	if !by.CanAccess(o.OwnerID) {
		return nil, order.ErrNotFound
	}

	out, err := s.payments.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, errors.Wrap(err, "list payments")
	}
	return out, nil
}
