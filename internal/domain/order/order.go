package order

import (
	"context"
	"fmt"
	"time"

	"github.com/xenking/academy-checkout/internal/domain/discount"
	"github.com/xenking/academy-checkout/internal/domain/failure"
	"github.com/xenking/academy-checkout/internal/domain/money"
)

// Status is the payment status of an order.
type Status string

const (
	StatusPending Status = "pending"
	StatusPaid    Status = "paid"
)

var (
	// ErrEmptyItems is returned when an order is requested without items.
	ErrEmptyItems = failure.New(failure.KindInputInvalid, "order_empty_items", "items required")
	// ErrNotFound is returned when an order does not exist or is not visible
	// to the caller.
	ErrNotFound = failure.New(failure.KindNotFound, "order_not_found", "order not found")
)

// CourseNotFoundError indicates a requested course does not exist or is not
// purchasable.
type CourseNotFoundError struct {
	CourseID string
}

func (e *CourseNotFoundError) Error() string {
	return fmt.Sprintf("course %s not found", e.CourseID)
}

// FailureKind implements failure.Classified.
func (e *CourseNotFoundError) FailureKind() failure.Kind { return failure.KindNotFound }

// FailureCode implements failure.Classified.
func (e *CourseNotFoundError) FailureCode() string { return "course_not_found" }

// Order is a persisted purchase of one or more courses.
type Order struct {
	ID             string
	OwnerID        string
	OrderedAt      time.Time
	Items          []Item
	Currency       string
	Subtotal       money.Money
	DiscountCode   string
	DiscountAmount money.Money
	Total          money.Money
	Status         Status
	PaidAt         *time.Time
}

// IsPaid reports whether a settled payment has been recorded for the order.
func (o *Order) IsPaid() bool {
	return o.Status == StatusPaid
}

// Item is one purchased course with its price captured at order time.
type Item struct {
	ID       string
	CourseID string
	Price    money.Money
}

// Event is published after an order has been committed.
type Event struct {
	OrderID    string
	OwnerID    string
	Total      money.Money
	CourseIDs  []string
	OccurredAt time.Time
}

// Repository defines persistence operations for orders. Implementations use
// the transaction carried by ctx when there is one.
type Repository interface {
	// Create inserts the order together with its items.
	Create(ctx context.Context, o *Order) error
	Get(ctx context.Context, id string) (*Order, error)
	ListByOwner(ctx context.Context, ownerID string) ([]Order, error)
	// GetForUpdate loads the order and locks its row until the surrounding
	// transaction ends.
	GetForUpdate(ctx context.Context, id string) (*Order, error)
	MarkPaid(ctx context.Context, id string, paidAt time.Time) error
}

// Transactor runs fn inside a single database transaction. The transaction
// is committed when fn returns nil and rolled back otherwise.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Notifier emits order lifecycle events. Implementations must not block the
// caller on broker I/O.
type Notifier interface {
	OrderCreated(ctx context.Context, e Event) error
}

// Discounts resolves and books discount codes for new orders.
type Discounts interface {
	Apply(ctx context.Context, code string, price money.Money) (money.Money, *discount.Discount, error)
	IncreaseUsage(ctx context.Context, code string) error
}
