package order

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xenking/academy-checkout/internal/domain/auth"
	"github.com/xenking/academy-checkout/internal/domain/course"
	"github.com/xenking/academy-checkout/internal/domain/money"
	"github.com/xenking/academy-checkout/internal/domain/validation"
)

// CreateRequest holds the input for creating an order.
type CreateRequest struct {
	OwnerID      string
	CourseIDs    []string
	DiscountCode string
}

// Validate checks the request shape before anything is looked up.
func (r CreateRequest) Validate() error {
	if len(r.CourseIDs) == 0 {
		return ErrEmptyItems
	}

	var errs validation.Errors
	errs.Check(r.OwnerID != "", "owner_id", "required")

	seen := make(map[string]struct{}, len(r.CourseIDs))
	for i, id := range r.CourseIDs {
		field := fmt.Sprintf("course_ids[%d]", i)
		if strings.TrimSpace(id) == "" {
			errs.Add(field, "required")
			continue
		}
		if _, dup := seen[id]; dup {
			errs.Add(field, "duplicate course")
			continue
		}
		seen[id] = struct{}{}
	}
	return errs.Err()
}

// Service encapsulates order creation and owner-scoped reads.
type Service struct {
	catalog   course.Repository
	discounts Discounts
	orders    Repository
	tx        Transactor
	notifier  Notifier
	now       func() time.Time
}

// NewService creates an order Service with the required domain dependencies.
func NewService(
	catalog course.Repository,
	discounts Discounts,
	orders Repository,
	tx Transactor,
	notifier Notifier,
) *Service {
	return &Service{
		catalog:   catalog,
		discounts: discounts,
		orders:    orders,
		tx:        tx,
		notifier:  notifier,
		now:       time.Now,
	}
}

// Create validates the request, prices every course in a single batch,
// applies the discount code, and persists the order and the discount usage in
// one transaction. The OrderCreated event is emitted after commit.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Order, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	fetched, err := s.catalog.GetByIDs(ctx, req.CourseIDs)
	if err != nil {
		return nil, errors.Wrap(err, "get courses")
	}
	byID := make(map[string]course.Course, len(fetched))
	for _, c := range fetched {
		byID[c.ID] = c
	}

	items := make([]Item, 0, len(req.CourseIDs))
	var subtotal money.Money
	for i, id := range req.CourseIDs {
		c, ok := byID[id]
		if !ok {
			return nil, &CourseNotFoundError{CourseID: id}
		}
		price := c.Price.Round()
		if i == 0 {
			subtotal = money.Zero(price.Currency)
		}
		if subtotal, err = subtotal.Add(price); err != nil {
			return nil, errors.Wrapf(err, "course %s", id)
		}
		items = append(items, Item{
			ID:       uuid.New().String(),
			CourseID: id,
			Price:    price,
		})
	}

	reduction := money.Zero(subtotal.Currency)
	if req.DiscountCode != "" {
		amount, _, err := s.discounts.Apply(ctx, req.DiscountCode, subtotal)
		if err != nil {
			return nil, errors.Wrap(err, "apply discount")
		}
		if amount.Currency != subtotal.Currency {
			return nil, errors.Wrapf(money.ErrCurrencyMismatch, "discount %q", req.DiscountCode)
		}
		reduction = amount.Round()
		// The recorded reduction never exceeds the subtotal so that
		// total == subtotal - reduction holds for every order.
		if reduction.Amount.GreaterThan(subtotal.Amount) {
			reduction = subtotal
		}
	}

	total, err := subtotal.Sub(reduction)
	if err != nil {
		return nil, err
	}

	o := &Order{
		ID:             uuid.New().String(),
		OwnerID:        req.OwnerID,
		OrderedAt:      s.now().UTC(),
		Items:          items,
		Currency:       subtotal.Currency,
		Subtotal:       subtotal,
		DiscountCode:   req.DiscountCode,
		DiscountAmount: reduction,
		Total:          total.FloorAtZero().Round(),
		Status:         StatusPending,
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.orders.Create(ctx, o); err != nil {
			return errors.Wrap(err, "create order")
		}
		if o.DiscountCode != "" {
			if err := s.discounts.IncreaseUsage(ctx, o.DiscountCode); err != nil {
				return errors.Wrap(err, "increase discount usage")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emitCreated(ctx, o)
	return o, nil
}

func (s *Service) emitCreated(ctx context.Context, o *Order) {
	ids := make([]string, len(o.Items))
	for i, it := range o.Items {
		ids[i] = it.CourseID
	}
	err := s.notifier.OrderCreated(ctx, Event{
		OrderID:    o.ID,
		OwnerID:    o.OwnerID,
		Total:      o.Total,
		CourseIDs:  ids,
		OccurredAt: o.OrderedAt,
	})
	if err != nil {
		zctx.From(ctx).Warn("Order created notification failed",
			zap.String("order_id", o.ID),
			zap.Error(err),
		)
	}
}

// Get returns the order if the subject owns it or is an admin. Orders that
// are not visible are reported as ErrNotFound.
func (s *Service) Get(ctx context.Context, subject auth.Subject, id string) (*Order, error) {
	o, err := s.orders.Get(ctx, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get order %s", id)
	}
	if !subject.CanAccess(o.OwnerID) {
		return nil, ErrNotFound
	}
	return o, nil
}

// ListByOwner returns the orders placed by ownerID, newest first.
func (s *Service) ListByOwner(ctx context.Context, ownerID string) ([]Order, error) {
	out, err := s.orders.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return out, nil
}
