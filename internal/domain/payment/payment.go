// Package payment settles orders through external payment gateways.
package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/xenking/academy-checkout/internal/domain/failure"
	"github.com/xenking/academy-checkout/internal/domain/money"
)

// Method enumerates the supported ways to pay.
type Method string

const (
	MethodCard    Method = "card"
	MethodWallet  Method = "wallet"
	MethodGateway Method = "gateway"
)

// Methods lists every known method.
var Methods = []Method{MethodCard, MethodWallet, MethodGateway}

// Valid reports whether m is a known method.
func (m Method) Valid() bool {
	switch m {
	case MethodCard, MethodWallet, MethodGateway:
		return true
	}
	return false
}

// Status is the state of a recorded payment. Only settled payments are
// persisted.
type Status string

const StatusSettled Status = "settled"

var (
	// ErrOrderAlreadyPaid is returned when an order has a settled payment.
	ErrOrderAlreadyPaid = failure.New(failure.KindConflict, "order_already_paid", "order is already paid")
	// ErrUnknownMethod is returned when no gateway serves the method.
	ErrUnknownMethod = failure.New(failure.KindInputInvalid, "payment_unknown_method", "unsupported payment method")
)

// AmountMismatchError indicates the claimed amount differs from the order
// total.
type AmountMismatchError struct {
	Expected money.Money
	Got      money.Money
}

func (e *AmountMismatchError) Error() string {
	return fmt.Sprintf("amount %s does not match order total %s", e.Got, e.Expected)
}

// FailureKind implements failure.Classified.
func (e *AmountMismatchError) FailureKind() failure.Kind { return failure.KindConflict }

// FailureCode implements failure.Classified.
func (e *AmountMismatchError) FailureCode() string { return "amount_mismatch" }

// GatewayError is returned when a charge fails or is declined. No payment is
// recorded for the attempt.
type GatewayError struct {
	Method Method
	Reason string
	Err    error
}

func (e *GatewayError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("payment failed: %s", e.Reason)
	}
	return "payment failed"
}

func (e *GatewayError) Unwrap() error { return e.Err }

// FailureKind implements failure.Classified.
func (e *GatewayError) FailureKind() failure.Kind { return failure.KindExternal }

// FailureCode implements failure.Classified.
func (e *GatewayError) FailureCode() string { return "payment_failed" }

// Payment is a settled charge against an order.
type Payment struct {
	ID            string
	OrderID       string
	Amount        money.Money
	Method        Method
	Token         string
	Status        Status
	TransactionID string
	CreatedBy     string
	CreatedAt     time.Time
}

// ChargeRequest is sent to a gateway adapter.
type ChargeRequest struct {
	PaymentID string
	OrderID   string
	Amount    money.Money
	Method    Method
	Token     string
}

// ChargeResult is the gateway's verdict on a charge. A declined charge is not
// an error at the adapter level.
type ChargeResult struct {
	Approved      bool
	TransactionID string
	DeclineReason string
}

// Gateway charges a payment token.
type Gateway interface {
	Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error)
}

// Gateways resolves the adapter for a payment method.
type Gateways interface {
	Gateway(m Method) (Gateway, error)
}

// Repository defines persistence operations for payments. Implementations use
// the transaction carried by ctx when there is one.
type Repository interface {
	Create(ctx context.Context, p *Payment) error
	ListByOrder(ctx context.Context, orderID string) ([]Payment, error)
}
