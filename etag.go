package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
)

// ETagConfig configures the ETag middleware.
type ETagConfig struct {
	Weak bool // use weak ETags
}

// ETag returns middleware that handles conditional requests via ETag and If-None-Match.
func ETag(cfg ...ETagConfig) Middleware {
	c := ETagConfig{}
	if len(cfg) > 0 {
		c = cfg[0]
	}

	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, r *Request) *Response {
			// Only apply to GET/HEAD.
			if r.Method != http.MethodGet && r.Method != http.MethodHead {
				return next(ctx, r)
			}

			resp := next(ctx, r)
			if resp == nil || resp.Status < 200 || resp.Status >= 300 {
				return resp
			}

			hash := sha256.Sum256(resp.Body)
			etag := `"` + hex.EncodeToString(hash[:8]) + `"`
			if c.Weak {
				etag = "W/" + etag
			}
			resp.SetHeader("ETag", etag)

			if match := r.Header.Get("If-None-Match"); match != "" && noneMatch(match, etag) {
				notModified := NewResponse(http.StatusNotModified)
				notModified.Header.Set("ETag", etag)
				return notModified
			}
			return resp
		}
	}
}

// noneMatch reports whether an If-None-Match list matches etag. The
// comparison is weak, so W/ prefixes on either side are ignored.
func noneMatch(header, etag string) bool {
	want := strings.TrimPrefix(etag, "W/")
	for tag := range strings.SplitSeq(header, ",") {
		tag = strings.TrimSpace(tag)
		if tag == "*" || strings.TrimPrefix(tag, "W/") == want {
			return true
		}
	}
	return false
}
