package auth

import (
	"context"
	"slices"

	"github.com/xenking/academy-checkout/internal/domain/failure"
)

// Role names a permission group.
type Role string

const (
	// RoleAdmin may manage discounts and read every order.
	RoleAdmin Role = "admin"
	// RoleStudent may buy courses and read own orders.
	RoleStudent Role = "student"
)

var (
	// ErrUnauthenticated is returned when a request carries no valid
	// credentials.
	ErrUnauthenticated = failure.New(failure.KindInputInvalid, "unauthenticated", "unauthorized")
	// ErrForbidden is returned when the subject lacks a required role.
	ErrForbidden = failure.New(failure.KindInputInvalid, "forbidden", "forbidden")
	// ErrKeyNotFound is returned by a Repository when no active key has the
	// requested digest.
	ErrKeyNotFound = failure.New(failure.KindNotFound, "api_key_not_found", "api key not found")
)

// Subject is an authenticated caller.
type Subject struct {
	ID    string
	Roles []Role
}

// HasRole reports whether the subject holds r.
func (s Subject) HasRole(r Role) bool {
	return slices.Contains(s.Roles, r)
}

// IsAdmin reports whether the subject holds the admin role.
func (s Subject) IsAdmin() bool {
	return s.HasRole(RoleAdmin)
}

// CanAccess reports whether the subject may read a resource owned by ownerID.
func (s Subject) CanAccess(ownerID string) bool {
	return s.ID == ownerID || s.IsAdmin()
}

// APIKeyInfo holds the identity data stored for an API key.
type APIKeyInfo struct {
	ID        string
	KeyHash   string
	SubjectID string
	Roles     []Role
}

// Repository provides lookup of API keys by their HMAC hash.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*APIKeyInfo, error)
}

// Resolver turns raw credentials into a Subject.
type Resolver interface {
	Resolve(ctx context.Context, apiKey string) (Subject, error)
}

type subjectKey struct{}

// WithSubject returns a context carrying s.
func WithSubject(ctx context.Context, s Subject) context.Context {
	return context.WithValue(ctx, subjectKey{}, s)
}

// SubjectFrom extracts the subject stored by WithSubject.
func SubjectFrom(ctx context.Context) (Subject, bool) {
	s, ok := ctx.Value(subjectKey{}).(Subject)
	return s, ok
}
