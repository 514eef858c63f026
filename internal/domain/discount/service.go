package discount

import (
	"context"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/academy-checkout/internal/domain/auth"
	"github.com/xenking/academy-checkout/internal/domain/money"
)

// Service resolves discount codes, calculates reductions and runs the admin
// lifecycle operations.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a Service backed by repo.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// FindByCode returns the active discount with exactly this code.
func (s *Service) FindByCode(ctx context.Context, code string) (*Discount, error) {
	d, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		return nil, errors.Wrapf(err, "find discount %q", code)
	}
	return d, nil
}

// FindByID returns a discount in any non-purged state.
func (s *Service) FindByID(ctx context.Context, id string) (*Discount, error) {
	d, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, errors.Wrapf(err, "find discount %s", id)
	}
	return d, nil
}

// List returns discounts matching filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Discount, error) {
	out, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "list discounts")
	}
	return out, nil
}

// Calculate returns the reduction the discount identified by code grants on
// price. The validity window is not checked; use Apply for that.
func (s *Service) Calculate(ctx context.Context, code string, price money.Money) (money.Money, error) {
	d, err := s.FindByCode(ctx, code)
	if err != nil {
		return money.Money{}, err
	}
	return d.Calculate(price)
}

// Apply resolves code, rejects it when outside its validity window, and
// returns the reduction on price together with the discount.
func (s *Service) Apply(ctx context.Context, code string, price money.Money) (money.Money, *Discount, error) {
	d, err := s.FindByCode(ctx, code)
	if err != nil {
		return money.Money{}, nil, err
	}
	if !d.IsValid(s.now()) {
		return money.Money{}, nil, ErrExpired
	}
	amount, err := d.Calculate(price)
	if err != nil {
		return money.Money{}, nil, err
	}
	return amount, d, nil
}

// IncreaseUsage bumps the usage counter of the active discount with code.
func (s *Service) IncreaseUsage(ctx context.Context, code string) error {
	if err := s.repo.IncrementUses(ctx, code); err != nil {
		return errors.Wrapf(err, "increase usage of %q", code)
	}
	return nil
}

// Create validates draft and stores a new active discount.
func (s *Service) Create(ctx context.Context, by auth.Subject, draft Draft) (*Discount, error) {
	d, err := New(draft, by.ID, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, d); err != nil {
		return nil, errors.Wrap(err, "create discount")
	}
	return d, nil
}

// Update replaces the editable fields of a non-purged discount.
func (s *Service) Update(ctx context.Context, by auth.Subject, id string, draft Draft) (*Discount, error) {
	if err := draft.Validate(); err != nil {
		return nil, err
	}

	d, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	d.apply(draft)
	d.ModifiedBy = by.ID
	d.ModifiedAt = s.now().UTC()

	if err := s.repo.Update(ctx, d); err != nil {
		return nil, errors.Wrap(err, "update discount")
	}
	return d, nil
}

// Delete moves an active discount to the trash.
func (s *Service) Delete(ctx context.Context, by auth.Subject, id string) (*Discount, error) {
	return s.transition(ctx, by, id, StateTrashed)
}

// Restore moves a trashed discount back to active.
func (s *Service) Restore(ctx context.Context, by auth.Subject, id string) (*Discount, error) {
	return s.transition(ctx, by, id, StateActive)
}

// ForceDelete permanently removes a discount. It cannot be undone.
func (s *Service) ForceDelete(ctx context.Context, id string) error {
	d, err := s.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := d.Transition(StatePurged); err != nil {
		return err
	}
	if err := s.repo.Purge(ctx, id); err != nil {
		return errors.Wrap(err, "purge discount")
	}
	return nil
}

func (s *Service) transition(ctx context.Context, by auth.Subject, id string, next State) (*Discount, error) {
	d, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := d.Transition(next); err != nil {
		return nil, err
	}
	d.ModifiedBy = by.ID
	d.ModifiedAt = s.now().UTC()

	if err := s.repo.SetState(ctx, d); err != nil {
		return nil, errors.Wrapf(err, "set discount state %s", next)
	}
	return d, nil
}
