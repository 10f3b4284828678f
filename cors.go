package pipeline

import (
	"context"
	"net/http"
	"slices"
	"strconv"
	"strings"
)

// CORSConfig configures the CORS middleware.
type CORSConfig struct {
	AllowOrigins     []string
	AllowMethods     []string
	AllowHeaders     []string
	ExposeHeaders    []string
	AllowCredentials bool
	MaxAge           int // seconds
}

// CORS returns middleware that handles Cross-Origin Resource Sharing.
// Empty origin, method and header lists fall back to permissive defaults.
// Preflight requests are answered with 204 without reaching later layers.
func CORS(cfg ...CORSConfig) Middleware {
	var c CORSConfig
	if len(cfg) > 0 {
		c = cfg[0]
	}
	if len(c.AllowOrigins) == 0 {
		c.AllowOrigins = []string{"*"}
	}
	if len(c.AllowMethods) == 0 {
		c.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	}
	if len(c.AllowHeaders) == 0 {
		c.AllowHeaders = []string{"Content-Type", "Authorization"}
	}

	wildcard := slices.Contains(c.AllowOrigins, "*")
	methods := strings.Join(c.AllowMethods, ", ")
	headers := strings.Join(c.AllowHeaders, ", ")
	expose := strings.Join(c.ExposeHeaders, ", ")
	maxAge := ""
	if c.MaxAge > 0 {
		maxAge = strconv.Itoa(c.MaxAge)
	}

	allowOrigin := func(origin string) string {
		if wildcard && !c.AllowCredentials {
			return "*"
		}
		if origin != "" && (wildcard || slices.Contains(c.AllowOrigins, origin)) {
			return origin
		}
		return ""
	}

	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, r *Request) *Response {
			var resp *Response
			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				resp = NoContent()
			} else {
				resp = next(ctx, r)
			}
			if resp == nil {
				return nil
			}

			origin := allowOrigin(r.Header.Get("Origin"))
			if origin == "" {
				return resp
			}

			resp.SetHeader("Access-Control-Allow-Origin", origin)
			resp.SetHeader("Access-Control-Allow-Methods", methods)
			resp.SetHeader("Access-Control-Allow-Headers", headers)
			if expose != "" {
				resp.SetHeader("Access-Control-Expose-Headers", expose)
			}
			if c.AllowCredentials {
				resp.SetHeader("Access-Control-Allow-Credentials", "true")
			}
			if maxAge != "" {
				resp.SetHeader("Access-Control-Max-Age", maxAge)
			}
			resp.Header.Add("Vary", "Origin")
			return resp
		}
	}
}
