package pipeline

import (
	"context"
	"net/http"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// CacheConfig configures the Cache middleware.
type CacheConfig struct {
	Size    int                     // max entries (default: 1024)
	TTL     time.Duration           // entry lifetime (default: 1m)
	KeyFunc func(r *Request) string // default: method, URL and Accept header
}

// Cache returns middleware that keeps successful GET responses in an
// in-memory LRU. A hit is answered without calling later layers. Responses
// carry X-Cache: HIT or MISS.
func Cache(cfg CacheConfig) Middleware {
	if cfg.Size <= 0 {
		cfg.Size = 1024
	}
	if cfg.TTL <= 0 {
		cfg.TTL = time.Minute
	}
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = func(r *Request) string {
			return r.Method + " " + r.URL.String() + " " + r.Header.Get("Accept")
		}
	}

	store := expirable.NewLRU[string, *Response](cfg.Size, nil, cfg.TTL)

	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, r *Request) *Response {
			if r.Method != http.MethodGet {
				return next(ctx, r)
			}

			key := cfg.KeyFunc(r)
			if cached, ok := store.Get(key); ok {
				resp := cached.Clone()
				resp.SetHeader("X-Cache", "HIT")
				return resp
			}

			resp := next(ctx, r)
			if resp == nil {
				return nil
			}
			if resp.Status >= 200 && resp.Status < 300 && resp.Header.Get("Cache-Control") != "no-store" {
				store.Add(key, resp.Clone())
			}
			resp.SetHeader("X-Cache", "MISS")
			return resp
		}
	}
}
