package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/xenking/academy-checkout/internal/domain/failure"
	"github.com/xenking/academy-checkout/internal/domain/payment"
)

// createPayment settles an order:
//
//	{"order_id":"...","amount":{"amount":"90.00","currency":"USD"},"method":"card","token":"tok_visa"}
func (h *Handler) createPayment(w http.ResponseWriter, r *http.Request) {
	var req payment.CreateRequest
	err := decodeBody(r, func(d *jx.Decoder, key string) (err error) {
		switch key {
		case "order_id":
			req.OrderID, err = d.Str()
		case "amount":
			req.Amount, err = decodeMoney(d)
		case "method":
			var m string
			m, err = d.Str()
			req.Method = payment.Method(m)
		case "token":
			req.Token, err = d.Str()
		default:
			return d.Skip()
		}
		if err != nil {
			return errors.Wrap(err, key)
		}
		return nil
	})
	if err != nil {
		fail(w, r, err)
		return
	}

	ctx := r.Context()
	method := metric.WithAttributes(attribute.String("method", string(req.Method)))
	p, err := h.payments.Create(ctx, subject(r), req)
	if err != nil {
		if failure.KindOf(err) == failure.KindExternal {
			h.paymentsFailed.Add(ctx, 1, method)
		}
		fail(w, r, err)
		return
	}
	h.paymentsSettled.Add(ctx, 1, method)

	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) {
		encodePayment(e, p)
	})
}

func (h *Handler) listPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := h.payments.ListByOrder(r.Context(), subject(r), chi.URLParam(r, "orderId"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ArrStart()
		for i := range payments {
			encodePayment(e, &payments[i])
		}
		e.ArrEnd()
	})
}
