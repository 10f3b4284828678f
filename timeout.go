package pipeline

import (
	"context"
	"errors"
	"time"
)

// Timeout returns middleware that bounds the time later layers and the
// handler may take. The context passed on carries the deadline. When it
// expires first, a 503 response with type "timeout" is returned and the
// in-flight work is abandoned to observe the cancelled context.
//
// A streaming body is read into memory before the deadline starts, so
// abandoned work never reads from the connection after the response is
// written. Place BodyLimit or WithBodyLimit outside Timeout to bound it.
func Timeout(d time.Duration) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, r *Request) *Response {
			if err := r.buffer(); err != nil {
				return ErrorResponse(r, err)
			}

			ctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()

			done := make(chan *Response, 1)
			panicked := make(chan any, 1)
			go func() {
				defer func() {
					if rec := recover(); rec != nil {
						panicked <- rec
					}
				}()
				done <- next(ctx, r)
			}()

			select {
			case resp := <-done:
				return resp
			case rec := <-panicked:
				panic(rec)
			case <-ctx.Done():
				if errors.Is(ctx.Err(), context.DeadlineExceeded) {
					return ErrorResponse(r, TimeoutError("request timed out").WithInternal("after %s", d))
				}
				return ErrorResponse(r, ServiceUnavailable("request cancelled").WithInternal("%v", ctx.Err()))
			}
		}
	}
}
