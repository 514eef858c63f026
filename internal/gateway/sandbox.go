package gateway

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/xenking/academy-checkout/internal/domain/payment"
)

// DeclinePrefix marks sandbox tokens that are always declined.
const DeclinePrefix = "tok_decline"

var _ payment.Gateway = Sandbox{}

// Sandbox approves every charge except tokens starting with DeclinePrefix.
// It performs no I/O.
type Sandbox struct{}

// Charge implements payment.Gateway.
func (Sandbox) Charge(ctx context.Context, req payment.ChargeRequest) (payment.ChargeResult, error) {
	if err := ctx.Err(); err != nil {
		return payment.ChargeResult{}, err
	}
	if strings.HasPrefix(req.Token, DeclinePrefix) {
		return payment.ChargeResult{Approved: false, DeclineReason: "card declined"}, nil
	}
	return payment.ChargeResult{
		Approved:      true,
		TransactionID: "sbx_" + uuid.NewString(),
	}, nil
}
