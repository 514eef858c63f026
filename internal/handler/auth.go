package handler

import (
	"net/http"
	"strings"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/academy-checkout/internal/domain/auth"
)

// HeaderAPIKey carries the raw API key. Authorization: Bearer is accepted
// as well.
const HeaderAPIKey = "api_key"

func credentials(r *http.Request) string {
	if key := r.Header.Get(HeaderAPIKey); key != "" {
		return key
	}
	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// authenticate resolves the caller and stores the subject in the context.
func (h *Handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, err := h.resolver.Resolve(r.Context(), credentials(r))
		if err != nil {
			fail(w, r, err)
			return
		}
		ctx := auth.WithSubject(r.Context(), s)
		ctx = zctx.With(ctx, zap.String("subject_id", s.ID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !subject(r).IsAdmin() {
			fail(w, r, auth.ErrForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// subject returns the caller resolved by authenticate.
func subject(r *http.Request) auth.Subject {
	s, _ := auth.SubjectFrom(r.Context())
	return s
}
