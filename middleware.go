package pipeline

import (
	"context"
	"net/http"
	"runtime/debug"
)

// Middleware wraps a HandlerFunc. It may change the request, return early
// without calling next, post-process the response of next, or call next more
// than once on cloned requests.
type Middleware func(next HandlerFunc) HandlerFunc

// Chain wraps h in mw. The first middleware is the outermost one and sees the
// request first and the response last.
func Chain(h HandlerFunc, mw ...Middleware) HandlerFunc {
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}
	return h
}

// Recovery returns middleware that recovers from panics in later layers and
// responds with an internal error.
func Recovery() Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, r *Request) (resp *Response) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					r.runtime().log().ErrorContext(ctx, "panic recovered",
						"panic", rec,
						"stack", string(debug.Stack()),
						"method", r.Method,
						"path", r.URL.Path,
					)
					resp = ErrorResponse(r, Internal(http.StatusText(http.StatusInternalServerError)).
						WithInternal("%v: %v", ErrHandlerPanic, rec))
				}
			}()
			return next(ctx, r)
		}
	}
}
