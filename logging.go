package pipeline

import (
	"context"
	"log/slog"
	"time"
)

// Logger returns middleware that logs each request using the provided slog.Logger.
// Server errors are logged at error level, client errors at warn level.
func Logger(logger *slog.Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, r *Request) *Response {
			start := time.Now()
			resp := next(ctx, r)

			status, size := 0, 0
			if resp != nil {
				status, size = resp.Status, len(resp.Body)
			}

			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", status),
				slog.Duration("latency", time.Since(start)),
				slog.Int("size", size),
				slog.String("remote", r.RemoteAddr),
			}
			if pattern := r.Pattern(); pattern != "" {
				attrs = append(attrs, slog.String("route", pattern))
			}
			if id := GetRequestID(ctx); id != "" {
				attrs = append(attrs, slog.String("request_id", id))
			}

			level := slog.LevelInfo
			switch {
			case status >= 500:
				level = slog.LevelError
			case status >= 400:
				level = slog.LevelWarn
			}

			logger.LogAttrs(ctx, level, "request", attrs...)
			return resp
		}
	}
}
