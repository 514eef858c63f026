// Package failure defines the error taxonomy shared by all domain packages.
//
// Every domain sentinel is a *Error carrying a Kind (which decides how the
// transport layer reports it) and a stable machine-readable Code.
package failure

import (
	"github.com/go-faster/errors"
)

// Kind classifies a domain error.
type Kind uint8

const (
	// KindInternal is the zero value: unexpected failures that are not part
	// of the domain contract.
	KindInternal Kind = iota
	// KindInputInvalid marks malformed or missing request fields.
	KindInputInvalid
	// KindNotFound marks unknown identifiers or codes.
	KindNotFound
	// KindConflict marks requests that are well-formed but violate a domain
	// rule (expired discount, amount mismatch, illegal transition).
	KindConflict
	// KindExternal marks failures of external collaborators such as
	// payment gateways.
	KindExternal
)

func (k Kind) String() string {
	switch k {
	case KindInputInvalid:
		return "input_invalid"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "domain_conflict"
	case KindExternal:
		return "external_failure"
	default:
		return "internal"
	}
}

// Error is a classified domain error.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

// New returns a classified error. It is meant for package-level sentinels.
func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func (e *Error) Error() string {
	return e.Message
}

// Classified is implemented by richer domain error types that still belong
// to one Kind (e.g. errors carrying the offending identifier).
type Classified interface {
	error
	FailureKind() Kind
	FailureCode() string
}

// FailureKind implements Classified.
func (e *Error) FailureKind() Kind { return e.Kind }

// FailureCode implements Classified.
func (e *Error) FailureCode() string { return e.Code }

// KindOf reports the Kind of the first classified error in err's chain.
func KindOf(err error) Kind {
	var c Classified
	if errors.As(err, &c) {
		return c.FailureKind()
	}
	return KindInternal
}

// CodeOf reports the stable code of the first classified error in err's
// chain, or "internal".
func CodeOf(err error) string {
	var c Classified
	if errors.As(err, &c) {
		return c.FailureCode()
	}
	return "internal"
}

// MessageOf returns the human-readable message of the first classified error
// in err's chain. Internal errors get a generic message so that details do
// not leak to callers.
func MessageOf(err error) string {
	var c Classified
	if errors.As(err, &c) {
		return c.Error()
	}
	return "internal error"
}
