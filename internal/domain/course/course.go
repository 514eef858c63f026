// Package course holds the purchasable course catalog.
package course

import (
	"context"

	"github.com/xenking/academy-checkout/internal/domain/failure"
	"github.com/xenking/academy-checkout/internal/domain/money"
)

// ErrNotFound is returned when a course does not exist or is not published.
var ErrNotFound = failure.New(failure.KindNotFound, "course_not_found", "course not found")

// Course is a catalog entry that can be bought.
type Course struct {
	ID        string
	Title     string
	Price     money.Money
	Published bool
}

// Repository defines read operations for the course catalog. Only published
// courses are returned.
type Repository interface {
	List(ctx context.Context) ([]Course, error)
	GetByID(ctx context.Context, id string) (*Course, error)
	// GetByIDs returns the published courses among ids in a single round
	// trip. Missing ids are simply absent from the result.
	GetByIDs(ctx context.Context, ids []string) ([]Course, error)
}
