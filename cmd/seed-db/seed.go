package main

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/academy-checkout/internal/domain/course"
	"github.com/xenking/academy-checkout/internal/domain/discount"
	"github.com/xenking/academy-checkout/internal/domain/money"
)

var defaultCourses = []course.Course{
	{ID: "go-fundamentals", Title: "Go Fundamentals", Price: money.MustParse("49.00", "USD"), Published: true},
	{ID: "go-concurrency", Title: "Concurrency in Go", Price: money.MustParse("79.00", "USD"), Published: true},
	{ID: "postgres-for-devs", Title: "PostgreSQL for Developers", Price: money.MustParse("59.90", "USD"), Published: true},
	{ID: "kafka-in-practice", Title: "Kafka in Practice", Price: money.MustParse("99.00", "USD"), Published: true},
	{ID: "distributed-systems", Title: "Distributed Systems", Price: money.MustParse("129.00", "USD"), Published: false},
}

// defaultDiscounts are valid for a year from now.
func defaultDiscounts(now time.Time) ([]discount.Discount, error) {
	start := now.Add(-time.Hour)
	end := now.AddDate(1, 0, 0)
	drafts := []discount.Draft{
		{
			Code:        "SAVE10",
			Type:        discount.TypePercentage,
			Percentage:  decimal.NewFromInt(10),
			StartsAt:    start,
			EndsAt:      end,
			Description: "10% off the whole order",
		},
		{
			Code:        "WELCOME5",
			Type:        discount.TypeFixed,
			FixedAmount: money.MustParse("5.00", "USD"),
			StartsAt:    start,
			EndsAt:      end,
			Description: "$5 off your first course",
		},
	}

	out := make([]discount.Discount, 0, len(drafts))
	for _, dr := range drafts {
		d, err := discount.New(dr, "seed", now)
		if err != nil {
			return nil, errors.Wrapf(err, "discount %s", dr.Code)
		}
		out = append(out, *d)
	}
	return out, nil
}

// decodeCourses parses a catalog file:
//
//	[{"id":"go-101","title":"Go 101","price":{"amount":"49.00","currency":"USD"},"published":true}]
func decodeCourses(data []byte) ([]course.Course, error) {
	var out []course.Course
	err := jx.DecodeBytes(data).Arr(func(d *jx.Decoder) error {
		c := course.Course{Published: true}
		if err := d.Obj(func(d *jx.Decoder, key string) (err error) {
			switch key {
			case "id":
				c.ID, err = d.Str()
			case "title":
				c.Title, err = d.Str()
			case "price":
				c.Price, err = decodePrice(d)
			case "published":
				c.Published, err = d.Bool()
			default:
				return d.Skip()
			}
			if err != nil {
				return errors.Wrap(err, key)
			}
			return nil
		}); err != nil {
			return err
		}
		if c.ID == "" || !c.Price.IsPositive() || !money.ValidCurrency(c.Price.Currency) {
			return errors.Errorf("course %d: id and a positive price are required", len(out))
		}
		out = append(out, c)
		return nil
	})
	return out, err
}

func decodePrice(d *jx.Decoder) (money.Money, error) {
	var m money.Money
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "amount":
			s, err := d.Str()
			if err != nil {
				return err
			}
			if m.Amount, err = decimal.NewFromString(s); err != nil {
				return err
			}
		case "currency":
			v, err := d.Str()
			if err != nil {
				return err
			}
			m.Currency = v
		default:
			return d.Skip()
		}
		return nil
	})
	return m.Round(), err
}
