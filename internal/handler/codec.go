package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/academy-checkout/internal/domain/course"
	"github.com/xenking/academy-checkout/internal/domain/discount"
	"github.com/xenking/academy-checkout/internal/domain/failure"
	"github.com/xenking/academy-checkout/internal/domain/money"
	"github.com/xenking/academy-checkout/internal/domain/order"
	"github.com/xenking/academy-checkout/internal/domain/payment"
)

const maxBodyBytes = 1 << 20

// ErrMalformedBody is returned for request bodies that are not the expected
// JSON document.
var ErrMalformedBody = failure.New(failure.KindInputInvalid, "malformed_body", "malformed request body")

// decodeBody reads the request body and walks its top-level object.
func decodeBody(r *http.Request, field func(d *jx.Decoder, key string) error) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return errors.Wrap(ErrMalformedBody, err.Error())
	}
	d := jx.DecodeBytes(body)
	if err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		return field(d, string(key))
	}); err != nil {
		return errors.Wrap(ErrMalformedBody, err.Error())
	}
	return nil
}

// decodeDecimal accepts both "10.50" and 10.50.
func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Decimal{}, err
		}
		return decimal.NewFromString(s)
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return decimal.Decimal{}, err
		}
		return decimal.NewFromString(n.String())
	default:
		return decimal.Decimal{}, errors.New("expected decimal string or number")
	}
}

func decodeMoney(d *jx.Decoder) (money.Money, error) {
	var m money.Money
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "amount":
			v, err := decodeDecimal(d)
			if err != nil {
				return errors.Wrap(err, "amount")
			}
			m.Amount = v
		case "currency":
			v, err := d.Str()
			if err != nil {
				return errors.Wrap(err, "currency")
			}
			m.Currency = v
		default:
			return d.Skip()
		}
		return nil
	})
	return m, err
}

func decodeTime(d *jx.Decoder) (time.Time, error) {
	s, err := d.Str()
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339, s)
}

func decodeStrings(d *jx.Decoder) ([]string, error) {
	var out []string
	err := d.Arr(func(d *jx.Decoder) error {
		s, err := d.Str()
		if err != nil {
			return err
		}
		out = append(out, s)
		return nil
	})
	return out, err
}

func decodeDraft(r *http.Request) (discount.Draft, error) {
	var dr discount.Draft
	err := decodeBody(r, func(d *jx.Decoder, key string) (err error) {
		switch key {
		case "code":
			dr.Code, err = d.Str()
		case "type":
			var t string
			t, err = d.Str()
			dr.Type = discount.Type(t)
		case "percentage":
			dr.Percentage, err = decodeDecimal(d)
		case "fixed_amount":
			dr.FixedAmount, err = decodeMoney(d)
		case "starts_at":
			dr.StartsAt, err = decodeTime(d)
		case "ends_at":
			dr.EndsAt, err = decodeTime(d)
		case "description":
			dr.Description, err = d.Str()
		default:
			return d.Skip()
		}
		if err != nil {
			return errors.Wrap(err, key)
		}
		return nil
	})
	return dr, err
}

func encodeMoney(e *jx.Encoder, m money.Money) {
	e.ObjStart()
	e.FieldStart("amount")
	e.Str(m.Amount.StringFixed(2))
	e.FieldStart("currency")
	e.Str(m.Currency)
	e.ObjEnd()
}

func encodeTime(e *jx.Encoder, t time.Time) {
	e.Str(t.UTC().Format(time.RFC3339))
}

func encodeCourse(e *jx.Encoder, c course.Course) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(c.ID)
	e.FieldStart("title")
	e.Str(c.Title)
	e.FieldStart("price")
	encodeMoney(e, c.Price)
	e.ObjEnd()
}

func encodeOrder(e *jx.Encoder, o *order.Order) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(o.ID)
	e.FieldStart("owner_id")
	e.Str(o.OwnerID)
	e.FieldStart("ordered_at")
	encodeTime(e, o.OrderedAt)
	e.FieldStart("status")
	e.Str(string(o.Status))
	e.FieldStart("items")
	e.ArrStart()
	for _, it := range o.Items {
		e.ObjStart()
		e.FieldStart("id")
		e.Str(it.ID)
		e.FieldStart("course_id")
		e.Str(it.CourseID)
		e.FieldStart("price")
		encodeMoney(e, it.Price)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.FieldStart("subtotal")
	encodeMoney(e, o.Subtotal)
	if o.DiscountCode != "" {
		e.FieldStart("discount_code")
		e.Str(o.DiscountCode)
	}
	e.FieldStart("discount")
	encodeMoney(e, o.DiscountAmount)
	e.FieldStart("total")
	encodeMoney(e, o.Total)
	if o.PaidAt != nil {
		e.FieldStart("paid_at")
		encodeTime(e, *o.PaidAt)
	}
	e.ObjEnd()
}

func encodePayment(e *jx.Encoder, p *payment.Payment) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(p.ID)
	e.FieldStart("order_id")
	e.Str(p.OrderID)
	e.FieldStart("amount")
	encodeMoney(e, p.Amount)
	e.FieldStart("method")
	e.Str(string(p.Method))
	e.FieldStart("status")
	e.Str(string(p.Status))
	e.FieldStart("transaction_id")
	e.Str(p.TransactionID)
	e.FieldStart("created_by")
	e.Str(p.CreatedBy)
	e.FieldStart("created_at")
	encodeTime(e, p.CreatedAt)
	e.ObjEnd()
}

func encodeDiscount(e *jx.Encoder, d *discount.Discount) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(d.ID)
	e.FieldStart("code")
	e.Str(d.Code)
	e.FieldStart("type")
	e.Str(string(d.Type))
	switch d.Type {
	case discount.TypePercentage:
		e.FieldStart("percentage")
		e.Str(d.Percentage.String())
	case discount.TypeFixed:
		e.FieldStart("fixed_amount")
		encodeMoney(e, d.FixedAmount)
	}
	e.FieldStart("starts_at")
	encodeTime(e, d.StartsAt)
	e.FieldStart("ends_at")
	encodeTime(e, d.EndsAt)
	e.FieldStart("description")
	e.Str(d.Description)
	e.FieldStart("state")
	e.Str(string(d.State))
	e.FieldStart("uses")
	e.Int64(d.Uses)
	e.FieldStart("created_by")
	e.Str(d.CreatedBy)
	e.FieldStart("modified_by")
	e.Str(d.ModifiedBy)
	e.FieldStart("created_at")
	encodeTime(e, d.CreatedAt)
	e.FieldStart("modified_at")
	encodeTime(e, d.ModifiedAt)
	e.ObjEnd()
}

func writeJSON(w http.ResponseWriter, status int, encode func(e *jx.Encoder)) {
	var e jx.Encoder
	encode(&e)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}
