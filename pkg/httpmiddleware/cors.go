package httpmiddleware

import (
	"net/http"
	"strconv"
	"strings"
)

// CORSConfig configures the CORS middleware.
type CORSConfig struct {
	// AllowOrigins lists allowed origins, matched case-insensitively. Empty
	// or "*" allows any origin.
	AllowOrigins []string
	// AllowMethods defaults to the methods served by the API.
	AllowMethods []string
	// AllowHeaders, when empty, echoes Access-Control-Request-Headers.
	AllowHeaders  []string
	ExposeHeaders []string
	// AllowCredentials disables the "*" response; the request origin is
	// echoed instead.
	AllowCredentials bool
	// MaxAge in seconds. Zero omits the header.
	MaxAge int
}

type corsPolicy struct {
	anyOrigin   bool
	origins     map[string]string
	methods     string
	headers     string
	expose      string
	credentials bool
	maxAge      string
}

func newCORSPolicy(cfg CORSConfig) corsPolicy {
	p := corsPolicy{
		origins:     make(map[string]string, len(cfg.AllowOrigins)),
		methods:     strings.Join(cfg.AllowMethods, ", "),
		headers:     strings.Join(cfg.AllowHeaders, ", "),
		expose:      strings.Join(cfg.ExposeHeaders, ", "),
		credentials: cfg.AllowCredentials,
		anyOrigin:   len(cfg.AllowOrigins) == 0,
	}
	for _, o := range cfg.AllowOrigins {
		if o == "*" {
			p.anyOrigin = true
			continue
		}
		p.origins[strings.ToLower(o)] = o
	}
	if p.methods == "" {
		p.methods = "GET, POST, PUT, DELETE, OPTIONS"
	}
	if cfg.MaxAge > 0 {
		p.maxAge = strconv.Itoa(cfg.MaxAge)
	}
	return p
}

// allowOrigin returns the Access-Control-Allow-Origin value for origin, or
// "" when the origin is rejected.
func (p corsPolicy) allowOrigin(origin string) string {
	if p.anyOrigin {
		if p.credentials {
			return origin
		}
		return "*"
	}
	return p.origins[strings.ToLower(origin)]
}

// CORS handles preflight requests and decorates actual cross-origin
// responses.
func CORS(cfg CORSConfig) Middleware {
	p := newCORSPolicy(cfg)
	varyOrigin := !p.anyOrigin || p.credentials

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			origin := r.Header.Get("Origin")
			if varyOrigin {
				h.Add("Vary", "Origin")
			}
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}
			allowed := p.allowOrigin(origin)

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				h.Add("Vary", "Access-Control-Request-Method")
				h.Add("Vary", "Access-Control-Request-Headers")
				if allowed != "" {
					h.Set("Access-Control-Allow-Origin", allowed)
					h.Set("Access-Control-Allow-Methods", p.methods)
					switch {
					case p.headers != "":
						h.Set("Access-Control-Allow-Headers", p.headers)
					case r.Header.Get("Access-Control-Request-Headers") != "":
						h.Set("Access-Control-Allow-Headers", r.Header.Get("Access-Control-Request-Headers"))
					}
					if p.credentials {
						h.Set("Access-Control-Allow-Credentials", "true")
					}
					if p.maxAge != "" {
						h.Set("Access-Control-Max-Age", p.maxAge)
					}
				}
				w.WriteHeader(http.StatusNoContent)
				return
			}

			if allowed != "" {
				h.Set("Access-Control-Allow-Origin", allowed)
				if p.credentials {
					h.Set("Access-Control-Allow-Credentials", "true")
				}
				if p.expose != "" {
					h.Set("Access-Control-Expose-Headers", p.expose)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
