package httpmiddleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/sdk/zctx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestWrap_Order(t *testing.T) {
	var calls []string
	mark := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls = append(calls, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Wrap(okHandler(), mark("outer"), mark("middle"), mark("inner"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, []string{"outer", "middle", "inner"}, calls)
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	tests := []struct {
		name     string
		incoming string
		reuse    bool
	}{
		{name: "generated", incoming: ""},
		{name: "reused", incoming: "req-123", reuse: true},
		{name: "too long", incoming: strings.Repeat("a", 129)},
		{name: "control chars", incoming: "bad\x01id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.incoming != "" {
				req.Header.Set(HeaderRequestID, tt.incoming)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			got := w.Header().Get(HeaderRequestID)
			require.NotEmpty(t, got)
			assert.Equal(t, got, seen)
			if tt.reuse {
				assert.Equal(t, tt.incoming, got)
			} else {
				assert.NotEqual(t, tt.incoming, got)
			}
		})
	}
}

func TestRecovery(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	h := Wrap(
		http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }),
		InjectLogger(zap.New(core)),
		Recovery(),
	)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/orders", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"code":"internal","message":"internal error"}`, w.Body.String())
	require.Equal(t, 1, logs.FilterMessage("Panic recovered").Len())
}

func TestCORS(t *testing.T) {
	tests := []struct {
		name       string
		cfg        CORSConfig
		method     string
		origin     string
		preflight  bool
		wantStatus int
		wantOrigin string
		wantCreds  bool
	}{
		{
			name:       "any origin",
			cfg:        CORSConfig{AllowOrigins: []string{"*"}},
			method:     http.MethodGet,
			origin:     "https://academy.example",
			wantStatus: http.StatusOK,
			wantOrigin: "*",
		},
		{
			name:       "listed origin case-insensitive",
			cfg:        CORSConfig{AllowOrigins: []string{"https://Academy.example"}},
			method:     http.MethodGet,
			origin:     "https://academy.example",
			wantStatus: http.StatusOK,
			wantOrigin: "https://Academy.example",
		},
		{
			name:       "unlisted origin",
			cfg:        CORSConfig{AllowOrigins: []string{"https://academy.example"}},
			method:     http.MethodGet,
			origin:     "https://evil.example",
			wantStatus: http.StatusOK,
		},
		{
			name:       "credentials echo origin",
			cfg:        CORSConfig{AllowCredentials: true},
			method:     http.MethodGet,
			origin:     "https://academy.example",
			wantStatus: http.StatusOK,
			wantOrigin: "https://academy.example",
			wantCreds:  true,
		},
		{
			name:       "preflight",
			cfg:        CORSConfig{AllowOrigins: []string{"*"}, MaxAge: 600},
			method:     http.MethodOptions,
			origin:     "https://academy.example",
			preflight:  true,
			wantStatus: http.StatusNoContent,
			wantOrigin: "*",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := CORS(tt.cfg)(okHandler())
			req := httptest.NewRequest(tt.method, "/api/courses", nil)
			req.Header.Set("Origin", tt.origin)
			if tt.preflight {
				req.Header.Set("Access-Control-Request-Method", http.MethodPost)
				req.Header.Set("Access-Control-Request-Headers", "api_key")
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantOrigin, w.Header().Get("Access-Control-Allow-Origin"))
			if tt.wantCreds {
				assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
			}
			if tt.preflight {
				assert.Equal(t, "api_key", w.Header().Get("Access-Control-Allow-Headers"))
				assert.Equal(t, "600", w.Header().Get("Access-Control-Max-Age"))
				assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
			}
		})
	}
}

func TestLogRequests_RoutePattern(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)

	r := chi.NewRouter()
	r.Use(LogRequests(), Labeler())
	r.Get("/api/orders/{orderId}", func(w http.ResponseWriter, r *http.Request) {
		zctx.From(r.Context()).Info("Handling")
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte("ok"))
	})

	h := Wrap(r, RequestID(), InjectLogger(zap.New(core)))
	req := httptest.NewRequest(http.MethodGet, "/api/orders/o-1", nil)
	req.Header.Set(HeaderRequestID, "req-7")
	h.ServeHTTP(httptest.NewRecorder(), req)

	entries := logs.FilterMessage("Request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "/api/orders/{orderId}", fields["route"])
	assert.Equal(t, "/api/orders/o-1", fields["path"])
	assert.EqualValues(t, http.StatusAccepted, fields["status"])
	assert.EqualValues(t, 2, fields["bytes"])
	assert.Equal(t, "req-7", fields["request_id"])

	handled := logs.FilterMessage("Handling").All()
	require.Len(t, handled, 1)
	assert.Equal(t, "req-7", handled[0].ContextMap()["request_id"])
}

type noopTelemetry struct{}

func (noopTelemetry) TracerProvider() trace.TracerProvider { return tracenoop.NewTracerProvider() }
func (noopTelemetry) MeterProvider() metric.MeterProvider  { return metricnoop.NewMeterProvider() }

func TestInstrument(t *testing.T) {
	h := Instrument("academy-api", noopTelemetry{})(okHandler())
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/livez", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
