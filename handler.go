package pipeline

import (
	"context"
	"net/http"
	"runtime/debug"
)

// HandlerFunc is the type-erased form of every handler. Routes store
// HandlerFuncs regardless of the shape of the function they were built from.
type HandlerFunc func(ctx context.Context, r *Request) *Response

// Handle0 erases a handler without extractor parameters.
func Handle0[R any](fn func(ctx context.Context) (R, error)) HandlerFunc {
	return guard(func(ctx context.Context, r *Request) *Response {
		return respond(r, fn)(ctx)
	})
}

// Handle1 erases a handler with one extractor parameter.
func Handle1[A, R any](fn func(ctx context.Context, a A) (R, error)) HandlerFunc {
	mustExtractor[A]()
	return guard(func(ctx context.Context, r *Request) *Response {
		a, err := Extract[A](ctx, r)
		if err != nil {
			return ErrorResponse(r, err)
		}
		return respond(r, func(ctx context.Context) (R, error) { return fn(ctx, a) })(ctx)
	})
}

// Handle2 erases a handler with two extractor parameters.
func Handle2[A, B, R any](fn func(ctx context.Context, a A, b B) (R, error)) HandlerFunc {
	mustExtractor[A]()
	mustExtractor[B]()
	return guard(func(ctx context.Context, r *Request) *Response {
		a, err := Extract[A](ctx, r)
		if err != nil {
			return ErrorResponse(r, err)
		}
		b, err := Extract[B](ctx, r)
		if err != nil {
			return ErrorResponse(r, err)
		}
		return respond(r, func(ctx context.Context) (R, error) { return fn(ctx, a, b) })(ctx)
	})
}

// Handle3 erases a handler with three extractor parameters.
func Handle3[A, B, C, R any](fn func(ctx context.Context, a A, b B, c C) (R, error)) HandlerFunc {
	mustExtractor[A]()
	mustExtractor[B]()
	mustExtractor[C]()
	return guard(func(ctx context.Context, r *Request) *Response {
		a, err := Extract[A](ctx, r)
		if err != nil {
			return ErrorResponse(r, err)
		}
		b, err := Extract[B](ctx, r)
		if err != nil {
			return ErrorResponse(r, err)
		}
		c, err := Extract[C](ctx, r)
		if err != nil {
			return ErrorResponse(r, err)
		}
		return respond(r, func(ctx context.Context) (R, error) { return fn(ctx, a, b, c) })(ctx)
	})
}

// Handle4 erases a handler with four extractor parameters.
func Handle4[A, B, C, D, R any](fn func(ctx context.Context, a A, b B, c C, d D) (R, error)) HandlerFunc {
	mustExtractor[A]()
	mustExtractor[B]()
	mustExtractor[C]()
	mustExtractor[D]()
	return guard(func(ctx context.Context, r *Request) *Response {
		a, err := Extract[A](ctx, r)
		if err != nil {
			return ErrorResponse(r, err)
		}
		b, err := Extract[B](ctx, r)
		if err != nil {
			return ErrorResponse(r, err)
		}
		c, err := Extract[C](ctx, r)
		if err != nil {
			return ErrorResponse(r, err)
		}
		d, err := Extract[D](ctx, r)
		if err != nil {
			return ErrorResponse(r, err)
		}
		return respond(r, func(ctx context.Context) (R, error) { return fn(ctx, a, b, c, d) })(ctx)
	})
}

// Handle5 erases a handler with five extractor parameters.
func Handle5[A, B, C, D, E, R any](fn func(ctx context.Context, a A, b B, c C, d D, e E) (R, error)) HandlerFunc {
	mustExtractor[A]()
	mustExtractor[B]()
	mustExtractor[C]()
	mustExtractor[D]()
	mustExtractor[E]()
	return guard(func(ctx context.Context, r *Request) *Response {
		a, err := Extract[A](ctx, r)
		if err != nil {
			return ErrorResponse(r, err)
		}
		b, err := Extract[B](ctx, r)
		if err != nil {
			return ErrorResponse(r, err)
		}
		c, err := Extract[C](ctx, r)
		if err != nil {
			return ErrorResponse(r, err)
		}
		d, err := Extract[D](ctx, r)
		if err != nil {
			return ErrorResponse(r, err)
		}
		e, err := Extract[E](ctx, r)
		if err != nil {
			return ErrorResponse(r, err)
		}
		return respond(r, func(ctx context.Context) (R, error) { return fn(ctx, a, b, c, d, e) })(ctx)
	})
}

// Handle6 erases a handler with six extractor parameters.
func Handle6[A, B, C, D, E, F, R any](fn func(ctx context.Context, a A, b B, c C, d D, e E, f F) (R, error)) HandlerFunc {
	mustExtractor[A]()
	mustExtractor[B]()
	mustExtractor[C]()
	mustExtractor[D]()
	mustExtractor[E]()
	mustExtractor[F]()
	return guard(func(ctx context.Context, r *Request) *Response {
		a, err := Extract[A](ctx, r)
		if err != nil {
			return ErrorResponse(r, err)
		}
		b, err := Extract[B](ctx, r)
		if err != nil {
			return ErrorResponse(r, err)
		}
		c, err := Extract[C](ctx, r)
		if err != nil {
			return ErrorResponse(r, err)
		}
		d, err := Extract[D](ctx, r)
		if err != nil {
			return ErrorResponse(r, err)
		}
		e, err := Extract[E](ctx, r)
		if err != nil {
			return ErrorResponse(r, err)
		}
		f, err := Extract[F](ctx, r)
		if err != nil {
			return ErrorResponse(r, err)
		}
		return respond(r, func(ctx context.Context) (R, error) { return fn(ctx, a, b, c, d, e, f) })(ctx)
	})
}

// respond calls the user function and converts its result.
func respond[R any](r *Request, call func(ctx context.Context) (R, error)) func(ctx context.Context) *Response {
	return func(ctx context.Context) *Response {
		v, err := call(ctx)
		if err != nil {
			return ErrorResponse(r, err)
		}
		return IntoResponse(r, v)
	}
}

// guard turns a panic anywhere in dispatch into an internal error response.
func guard(h HandlerFunc) HandlerFunc {
	return func(ctx context.Context, r *Request) (resp *Response) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				resp = ErrorResponse(r, Internal(http.StatusText(http.StatusInternalServerError)).
					WithInternal("%v: %v\n%s", ErrHandlerPanic, rec, debug.Stack()))
			}
		}()
		return h(ctx, r)
	}
}
