package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/academy-checkout/internal/domain/auth"
	"github.com/xenking/academy-checkout/internal/domain/failure"
	"github.com/xenking/academy-checkout/internal/domain/validation"
)

// statusOf maps an error to its HTTP status.
func statusOf(err error) int {
	switch {
	case errors.Is(err, auth.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrForbidden):
		return http.StatusForbidden
	}
	switch failure.KindOf(err) {
	case failure.KindInputInvalid:
		return http.StatusBadRequest
	case failure.KindNotFound:
		return http.StatusNotFound
	case failure.KindConflict:
		return http.StatusConflict
	case failure.KindExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err as {"code","message","fields"}. Internal errors are logged
// and reported without details.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	lg := zctx.From(r.Context())
	switch {
	case status >= http.StatusInternalServerError && status != http.StatusBadGateway:
		lg.Error("Request failed", zap.Error(err))
	case status == http.StatusBadGateway:
		lg.Warn("Upstream failure", zap.Error(err))
	}

	var fields validation.Errors
	errors.As(err, &fields)

	writeJSON(w, status, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("code")
		e.Str(failure.CodeOf(err))
		e.FieldStart("message")
		e.Str(failure.MessageOf(err))
		if len(fields) > 0 {
			e.FieldStart("fields")
			e.ArrStart()
			for _, f := range fields {
				e.ObjStart()
				e.FieldStart("field")
				e.Str(f.Field)
				e.FieldStart("message")
				e.Str(f.Message)
				e.ObjEnd()
			}
			e.ArrEnd()
		}
		e.ObjEnd()
	})
}
