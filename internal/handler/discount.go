package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/academy-checkout/internal/domain/discount"
	"github.com/xenking/academy-checkout/internal/domain/failure"
	"github.com/xenking/academy-checkout/internal/domain/money"
	"github.com/xenking/academy-checkout/internal/domain/validation"
)

// ErrInvalidState is returned for an unknown ?state= filter.
var ErrInvalidState = failure.New(failure.KindInputInvalid, "invalid_state", "state must be active or trashed")

func (h *Handler) findDiscount(w http.ResponseWriter, r *http.Request) {
	d, err := h.discounts.FindByCode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeDiscount(w, http.StatusOK, d)
}

// calculateDiscount answers what a code would take off a price:
//
//	{"code":"SAVE10","price":{"amount":"100.00","currency":"USD"}}
func (h *Handler) calculateDiscount(w http.ResponseWriter, r *http.Request) {
	var (
		code  string
		price money.Money
	)
	err := decodeBody(r, func(d *jx.Decoder, key string) (err error) {
		switch key {
		case "code":
			code, err = d.Str()
		case "price":
			price, err = decodeMoney(d)
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

	var errs validation.Errors
	errs.Check(code != "", "code", "required")
	errs.Check(!price.Amount.IsNegative(), "price.amount", "must not be negative")
	errs.Check(money.ValidCurrency(price.Currency), "price.currency", "must be a 3-letter currency code")
	if err := errs.Err(); err != nil {
		fail(w, r, err)
		return
	}

	amount, err := h.discounts.Calculate(r.Context(), code, price)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("code")
		e.Str(code)
		e.FieldStart("price")
		encodeMoney(e, price)
		e.FieldStart("discount")
		encodeMoney(e, amount)
		e.ObjEnd()
	})
}

func (h *Handler) listDiscounts(w http.ResponseWriter, r *http.Request) {
	filter := discount.ListFilter{State: discount.State(r.URL.Query().Get("state"))}
	switch filter.State {
	case "", discount.StateActive, discount.StateTrashed:
	default:
		fail(w, r, ErrInvalidState)
		return
	}

	list, err := h.discounts.List(r.Context(), filter)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ArrStart()
		for i := range list {
			encodeDiscount(e, &list[i])
		}
		e.ArrEnd()
	})
}

func (h *Handler) getDiscount(w http.ResponseWriter, r *http.Request) {
	d, err := h.discounts.FindByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeDiscount(w, http.StatusOK, d)
}

func (h *Handler) createDiscount(w http.ResponseWriter, r *http.Request) {
	draft, err := decodeDraft(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	d, err := h.discounts.Create(r.Context(), subject(r), draft)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeDiscount(w, http.StatusCreated, d)
}

func (h *Handler) updateDiscount(w http.ResponseWriter, r *http.Request) {
	draft, err := decodeDraft(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	d, err := h.discounts.Update(r.Context(), subject(r), chi.URLParam(r, "id"), draft)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeDiscount(w, http.StatusOK, d)
}

func (h *Handler) trashDiscount(w http.ResponseWriter, r *http.Request) {
	d, err := h.discounts.Delete(r.Context(), subject(r), chi.URLParam(r, "id"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeDiscount(w, http.StatusOK, d)
}

func (h *Handler) restoreDiscount(w http.ResponseWriter, r *http.Request) {
	d, err := h.discounts.Restore(r.Context(), subject(r), chi.URLParam(r, "id"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeDiscount(w, http.StatusOK, d)
}

func (h *Handler) forceDeleteDiscount(w http.ResponseWriter, r *http.Request) {
	if err := h.discounts.ForceDelete(r.Context(), chi.URLParam(r, "id")); err != nil {
		fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeDiscount(w http.ResponseWriter, status int, d *discount.Discount) {
	writeJSON(w, status, func(e *jx.Encoder) {
		encodeDiscount(e, d)
	})
}
