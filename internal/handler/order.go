package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/academy-checkout/internal/domain/order"
)

// createOrder places an order for the calling subject:
//
//	{"course_ids":["c1","c2"],"discount_code":"SAVE10"}
func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	req := order.CreateRequest{OwnerID: subject(r).ID}
	err := decodeBody(r, func(d *jx.Decoder, key string) (err error) {
		switch key {
		case "course_ids":
			req.CourseIDs, err = decodeStrings(d)
		case "discount_code":
			req.DiscountCode, err = d.Str()
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

	o, err := h.orders.Create(r.Context(), req)
	if err != nil {
		fail(w, r, err)
		return
	}
	h.ordersCreated.Add(r.Context(), 1)

	w.Header().Set("Location", "/api/orders/"+o.ID)
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) {
		encodeOrder(e, o)
	})
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListByOwner(r.Context(), subject(r).ID)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ArrStart()
		for i := range orders {
			encodeOrder(e, &orders[i])
		}
		e.ArrEnd()
	})
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Get(r.Context(), subject(r), chi.URLParam(r, "orderId"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeOrder(e, o)
	})
}
