package httpmiddleware

import (
	"net/http"

	"github.com/go-faster/jx"
)

// writeError writes the API error body {"code","message"} used across the
// service.
func writeError(w http.ResponseWriter, status int, code, message string) {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("code")
	e.Str(code)
	e.FieldStart("message")
	e.Str(message)
	e.ObjEnd()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}
