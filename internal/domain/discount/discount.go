package discount

import (
	"context"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/academy-checkout/internal/domain/failure"
	"github.com/xenking/academy-checkout/internal/domain/money"
	"github.com/xenking/academy-checkout/internal/domain/validation"
)

// Type enumerates the supported discount strategies.
type Type string

const (
	// TypePercentage reduces the price by a percentage of it.
	TypePercentage Type = "percentage"
	// TypeFixed reduces the price by a stored fixed amount.
	TypeFixed Type = "fixed"
)

// State is the lifecycle state of a discount.
type State string

const (
	// StateActive discounts can be looked up and applied.
	StateActive State = "active"
	// StateTrashed discounts are soft-deleted and can be restored.
	StateTrashed State = "trashed"
	// StatePurged discounts are permanently removed. Terminal.
	StatePurged State = "purged"
)

var (
	// ErrNotFound is returned when no active discount matches a code or id.
	ErrNotFound = failure.New(failure.KindNotFound, "discount_not_found", "discount not found")
	// ErrExpired is returned when a discount is applied outside its
	// validity window.
	ErrExpired = failure.New(failure.KindConflict, "discount_expired", "discount is expired or not yet active")
	// ErrInvalidType is returned when a discount carries a type that has
	// no calculation rule.
	ErrInvalidType = failure.New(failure.KindConflict, "discount_invalid_type", "discount type has no calculation rule")
	// ErrIllegalTransition is returned for lifecycle moves outside the
	// transition table.
	ErrIllegalTransition = failure.New(failure.KindConflict, "discount_illegal_transition", "illegal discount state transition")
	// ErrCodeTaken is returned when creating or renaming a discount to a
	// code that already exists.
	ErrCodeTaken = failure.New(failure.KindConflict, "discount_code_taken", "discount code already exists")
)

// transitions lists the legal lifecycle moves.
var transitions = map[State][]State{
	StateActive:  {StateTrashed, StatePurged},
	StateTrashed: {StateActive, StatePurged},
}

// Discount is a named, time-bounded price reduction.
type Discount struct {
	ID          string
	Code        string
	Type        Type
	Percentage  decimal.Decimal
	FixedAmount money.Money
	StartsAt    time.Time
	EndsAt      time.Time
	Description string
	State       State
	Uses        int64

	CreatedBy  string
	ModifiedBy string
	CreatedAt  time.Time
	ModifiedAt time.Time
}

// IsValid reports whether now lies strictly inside the validity window.
func (d *Discount) IsValid(now time.Time) bool {
	return now.After(d.StartsAt) && now.Before(d.EndsAt)
}

// Calculate returns the reduction this discount grants on price. It does not
// look at the validity window.
func (d *Discount) Calculate(price money.Money) (money.Money, error) {
	switch d.Type {
	case TypePercentage:
		return price.Percent(d.Percentage), nil
	case TypeFixed:
		return d.FixedAmount, nil
	default:
		return money.Money{}, ErrInvalidType
	}
}

// CanTransition reports whether the lifecycle allows moving to next.
func (d *Discount) CanTransition(next State) bool {
	for _, s := range transitions[d.State] {
		if s == next {
			return true
		}
	}
	return false
}

// Transition moves the discount to next or returns ErrIllegalTransition.
func (d *Discount) Transition(next State) error {
	if !d.CanTransition(next) {
		return ErrIllegalTransition
	}
	d.State = next
	return nil
}

// Draft holds the admin-editable fields of a discount.
type Draft struct {
	Code        string
	Type        Type
	Percentage  decimal.Decimal
	FixedAmount money.Money
	StartsAt    time.Time
	EndsAt      time.Time
	Description string
}

const maxCodeLen = 64

// Validate runs the full validation pass and reports every failing field.
func (d Draft) Validate() error {
	var errs validation.Errors

	switch {
	case d.Code == "":
		errs.Add("code", "required")
	case len(d.Code) > maxCodeLen:
		errs.Add("code", "must be at most 64 characters")
	case strings.ContainsFunc(d.Code, unicode.IsSpace):
		errs.Add("code", "must not contain whitespace")
	}

	switch d.Type {
	case TypePercentage:
		errs.Check(d.Percentage.IsPositive() && d.Percentage.LessThanOrEqual(decimal.NewFromInt(100)),
			"percentage", "must be greater than 0 and at most 100")
		errs.Check(d.Percentage.Equal(d.Percentage.Round(2)), "percentage", "must have at most 2 decimal places")
	case TypeFixed:
		errs.Check(d.FixedAmount.IsPositive(), "fixed_amount.amount", "must be positive")
		errs.Check(money.ValidCurrency(d.FixedAmount.Currency), "fixed_amount.currency", "must be a 3-letter currency code")
	default:
		errs.Add("type", "must be one of: percentage, fixed")
	}

	errs.Check(!d.StartsAt.IsZero(), "starts_at", "required")
	errs.Check(!d.EndsAt.IsZero(), "ends_at", "required")
	if !d.StartsAt.IsZero() && !d.EndsAt.IsZero() {
		errs.Check(d.StartsAt.Before(d.EndsAt), "ends_at", "must be after starts_at")
	}

	return errs.Err()
}

// New validates draft and builds an active discount created by createdBy.
func New(draft Draft, createdBy string, now time.Time) (*Discount, error) {
	if err := draft.Validate(); err != nil {
		return nil, err
	}
	now = now.UTC()
	d := &Discount{
		ID:         uuid.New().String(),
		State:      StateActive,
		CreatedBy:  createdBy,
		ModifiedBy: createdBy,
		CreatedAt:  now,
		ModifiedAt: now,
	}
	d.apply(draft)
	return d, nil
}

// apply copies the draft onto d. Only the field active for the type is kept.
func (d *Discount) apply(draft Draft) {
	d.Code = draft.Code
	d.Type = draft.Type
	d.StartsAt = draft.StartsAt
	d.EndsAt = draft.EndsAt
	d.Description = draft.Description
	d.Percentage = decimal.Zero
	d.FixedAmount = money.Money{}
	switch draft.Type {
	case TypePercentage:
		d.Percentage = draft.Percentage
	case TypeFixed:
		d.FixedAmount = draft.FixedAmount.Round()
	}
}

// ListFilter narrows admin listings. An empty State lists all non-purged
// discounts.
type ListFilter struct {
	State State
}

// Repository provides persistence for discounts.
type Repository interface {
	// FindByCode returns the active discount with exactly this code.
	FindByCode(ctx context.Context, code string) (*Discount, error)
	// FindByID returns the discount in any non-purged state.
	FindByID(ctx context.Context, id string) (*Discount, error)
	List(ctx context.Context, filter ListFilter) ([]Discount, error)
	Create(ctx context.Context, d *Discount) error
	Update(ctx context.Context, d *Discount) error
	// SetState persists a lifecycle transition and the audit fields.
	SetState(ctx context.Context, d *Discount) error
	Purge(ctx context.Context, id string) error
	// IncrementUses atomically bumps the usage counter of the active
	// discount with this code.
	IncrementUses(ctx context.Context, code string) error
}
