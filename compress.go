package pipeline

import (
	"bytes"
	"context"
	"strconv"
	"strings"
	"sync"

	"github.com/klauspost/compress/gzip"
)

// CompressConfig configures the Compress middleware.
type CompressConfig struct {
	Level   int      // gzip level (1-9, default: 5)
	MinSize int      // minimum response size to compress (default: 1024)
	Types   []string // content types to compress (default: application/json, text/*)
}

// Compress returns middleware that gzip-compresses response bodies for
// clients that accept it.
func Compress(cfg ...CompressConfig) Middleware {
	c := CompressConfig{
		Level:   5,
		MinSize: 1024,
		Types:   []string{"application/json", "text/"},
	}
	if len(cfg) > 0 {
		if cfg[0].Level > 0 {
			c.Level = cfg[0].Level
		}
		if cfg[0].MinSize > 0 {
			c.MinSize = cfg[0].MinSize
		}
		if len(cfg[0].Types) > 0 {
			c.Types = cfg[0].Types
		}
	}

	pool := &sync.Pool{
		New: func() any {
			gz, _ := gzip.NewWriterLevel(nil, c.Level) //nolint:errcheck // level is pre-validated
			return gz
		},
	}

	shouldCompress := func(resp *Response) bool {
		if len(resp.Body) < c.MinSize || resp.Header.Get("Content-Encoding") != "" {
			return false
		}
		ct := resp.Header.Get("Content-Type")
		if strings.Contains(ct, "event-stream") {
			return false
		}
		for _, t := range c.Types {
			if strings.Contains(ct, t) {
				return true
			}
		}
		return false
	}

	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, r *Request) *Response {
			resp := next(ctx, r)
			if resp == nil || !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
				return resp
			}
			resp.SetHeader("Vary", "Accept-Encoding")
			if !shouldCompress(resp) {
				return resp
			}

			var buf bytes.Buffer
			gz := pool.Get().(*gzip.Writer) //nolint:errcheck,forcetypeassert // pool.New always returns *gzip.Writer
			gz.Reset(&buf)
			_, err := gz.Write(resp.Body)
			if err == nil {
				err = gz.Close()
			}
			pool.Put(gz)
			if err != nil {
				return resp
			}

			resp.Body = buf.Bytes()
			resp.Header.Set("Content-Encoding", "gzip")
			resp.Header.Set("Content-Length", strconv.Itoa(len(resp.Body)))
			return resp
		}
	}
}
