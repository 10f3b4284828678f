package pipeline

import "context"

// BodyLimit returns middleware that limits the maximum request body size.
// Body extractors fail with 413 Payload Too Large once more than maxBytes
// have been read. A limit set on the route with WithBodyLimit takes
// precedence.
func BodyLimit(maxBytes int64) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, r *Request) *Response {
			r.defaultLimit(maxBytes)
			return next(ctx, r)
		}
	}
}
