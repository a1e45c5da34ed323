package middleware

import (
	"net/http"
	"slices"
	"strings"
)

type CORSConfig struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
}

// allowOrigin returns the Access-Control-Allow-Origin value for origin, or
// "" when it is not allowed. A "*" entry echoes the origin when credentials
// are allowed, since browsers reject a wildcard with credentials.
func (c CORSConfig) allowOrigin(origin string) string {
	switch {
	case origin != "" && slices.Contains(c.AllowedOrigins, origin):
		return origin
	case !slices.Contains(c.AllowedOrigins, "*"):
		return ""
	case c.AllowCredentials:
		return origin
	default:
		return "*"
	}
}

func CORS(config CORSConfig) Middleware {
	methods := strings.Join(config.AllowedMethods, ", ")
	headers := strings.Join(config.AllowedHeaders, ", ")
	exposed := strings.Join(config.ExposedHeaders, ", ")

	return func(f http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			allowed := config.allowOrigin(r.Header.Get("Origin"))

			h := w.Header()
			h.Add("Vary", "Origin")
			if allowed != "" {
				h.Set("Access-Control-Allow-Origin", allowed)
				if config.AllowCredentials {
					h.Set("Access-Control-Allow-Credentials", "true")
				}
				h.Set("Access-Control-Allow-Methods", methods)
				h.Set("Access-Control-Allow-Headers", headers)
				if exposed != "" {
					h.Set("Access-Control-Expose-Headers", exposed)
				}
			}

			if r.Method == http.MethodOptions {
				if allowed == "" {
					w.WriteHeader(http.StatusForbidden)
				} else {
					w.WriteHeader(http.StatusNoContent)
				}
				return
			}

			f(w, r)
		}
	}
}
