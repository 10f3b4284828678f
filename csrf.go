package pipeline

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
)

// CSRFConfig configures the CSRF middleware.
type CSRFConfig struct {
	TokenLength int    // default: 32
	CookieName  string // default: "_csrf"
	HeaderName  string // default: "X-CSRF-Token"
	Secure      bool   // cookie secure flag
	SameSite    http.SameSite
}

type csrfTokenKey struct{}

// CSRF returns middleware that implements double-submit cookie CSRF protection.
// Safe methods (GET, HEAD, OPTIONS) are skipped.
func CSRF(cfg ...CSRFConfig) Middleware {
	c := CSRFConfig{
		TokenLength: 32,
		CookieName:  "_csrf",
		HeaderName:  "X-CSRF-Token",
		SameSite:    http.SameSiteLaxMode,
	}
	if len(cfg) > 0 {
		if cfg[0].TokenLength > 0 {
			c.TokenLength = cfg[0].TokenLength
		}
		if cfg[0].CookieName != "" {
			c.CookieName = cfg[0].CookieName
		}
		if cfg[0].HeaderName != "" {
			c.HeaderName = cfg[0].HeaderName
		}
		c.Secure = cfg[0].Secure
		if cfg[0].SameSite != 0 {
			c.SameSite = cfg[0].SameSite
		}
	}

	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, r *Request) *Response {
			token, _ := cookieLookup(r.Parts())(c.CookieName)

			var issued *http.Cookie
			if token == "" {
				token = generateCSRFToken(c.TokenLength)
				issued = &http.Cookie{
					Name:     c.CookieName,
					Value:    token,
					Path:     "/",
					HttpOnly: true,
					Secure:   c.Secure,
					SameSite: c.SameSite,
				}
			}

			var resp *Response
			headerToken := r.Header.Get(c.HeaderName)
			switch {
			case isSafeMethod(r.Method):
				resp = next(context.WithValue(ctx, csrfTokenKey{}, token), r)
			case headerToken == "" || subtle.ConstantTimeCompare([]byte(headerToken), []byte(token)) != 1:
				resp = ErrorResponse(r, Forbidden("CSRF token mismatch"))
			default:
				resp = next(context.WithValue(ctx, csrfTokenKey{}, token), r)
			}

			if issued != nil && resp != nil {
				if resp.Header == nil {
					resp.Header = make(http.Header)
				}
				resp.Header.Add("Set-Cookie", issued.String())
			}
			return resp
		}
	}
}

// GetCSRFToken returns the CSRF token stored by CSRF.
func GetCSRFToken(ctx context.Context) string {
	if v, ok := ctx.Value(csrfTokenKey{}).(string); ok {
		return v
	}
	return ""
}

func generateCSRFToken(length int) string {
	b := make([]byte, length)
	//nolint:errcheck,gosec // crypto/rand.Read always returns nil error
	rand.Read(b)
	return hex.EncodeToString(b)
}

func isSafeMethod(method string) bool {
	return method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions
}
