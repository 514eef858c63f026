// Package gateway implements payment gateway adapters and the method
// registry used by the payment service.
package gateway

import (
	"github.com/xenking/academy-checkout/internal/domain/payment"
)

var _ payment.Gateways = (*Registry)(nil)

// Registry maps payment methods to gateway adapters.
type Registry struct {
	byMethod map[payment.Method]payment.Gateway
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byMethod: make(map[payment.Method]payment.Gateway)}
}

// Register serves method with gw, replacing any earlier adapter.
func (r *Registry) Register(method payment.Method, gw payment.Gateway) *Registry {
	r.byMethod[method] = gw
	return r
}

// Gateway returns the adapter for method or payment.ErrUnknownMethod.
func (r *Registry) Gateway(method payment.Method) (payment.Gateway, error) {
	gw, ok := r.byMethod[method]
	if !ok {
		return nil, payment.ErrUnknownMethod
	}
	return gw, nil
}
