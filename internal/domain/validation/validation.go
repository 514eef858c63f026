// Package validation collects field-level request errors.
package validation

import (
	"strings"

	"github.com/xenking/academy-checkout/internal/domain/failure"
)

// FieldError describes one invalid request field.
type FieldError struct {
	Field   string
	Message string
}

// Errors is the result of a validation pass. A nil or empty Errors means the
// input is valid.
type Errors []FieldError

// Add appends a field error.
func (e *Errors) Add(field, message string) {
	*e = append(*e, FieldError{Field: field, Message: message})
}

// Check appends a field error when ok is false.
func (e *Errors) Check(ok bool, field, message string) {
	if !ok {
		e.Add(field, message)
	}
}

// Err returns e as an error, or nil when there are no field errors.
func (e Errors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

func (e Errors) Error() string {
	var b strings.Builder
	b.WriteString("invalid input: ")
	for i, fe := range e {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(fe.Field)
		b.WriteString(": ")
		b.WriteString(fe.Message)
	}
	return b.String()
}

// FailureKind implements failure.Classified.
func (Errors) FailureKind() failure.Kind { return failure.KindInputInvalid }

// FailureCode implements failure.Classified.
func (Errors) FailureCode() string { return "validation_failed" }
