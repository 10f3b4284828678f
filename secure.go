package pipeline

import (
	"context"
	"strconv"
)

// SecureConfig configures the Secure headers middleware.
type SecureConfig struct {
	ContentTypeNosniff bool   // default: true → X-Content-Type-Options: nosniff
	FrameDeny          bool   // default: true → X-Frame-Options: DENY
	HSTSMaxAge         int    // default: 0 (disabled). If >0: Strict-Transport-Security
	XSSProtection      string // default: "1; mode=block"
	ReferrerPolicy     string // default: "strict-origin-when-cross-origin"
}

// Secure returns middleware that sets security response headers.
// With no arguments, it uses sensible defaults.
func Secure(cfg ...SecureConfig) Middleware {
	c := SecureConfig{
		ContentTypeNosniff: true,
		FrameDeny:          true,
		XSSProtection:      "1; mode=block",
		ReferrerPolicy:     "strict-origin-when-cross-origin",
	}
	if len(cfg) > 0 {
		c = cfg[0]
	}

	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, r *Request) *Response {
			resp := next(ctx, r)
			if resp == nil {
				return nil
			}

			if c.ContentTypeNosniff {
				resp.SetHeader("X-Content-Type-Options", "nosniff")
			}
			if c.FrameDeny {
				resp.SetHeader("X-Frame-Options", "DENY")
			}
			if c.HSTSMaxAge > 0 {
				resp.SetHeader("Strict-Transport-Security", "max-age="+strconv.Itoa(c.HSTSMaxAge))
			}
			if c.XSSProtection != "" {
				resp.SetHeader("X-XSS-Protection", c.XSSProtection)
			}
			if c.ReferrerPolicy != "" {
				resp.SetHeader("Referrer-Policy", c.ReferrerPolicy)
			}
			return resp
		}
	}
}
