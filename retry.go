package pipeline

import (
	"context"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryConfig configures the Retry middleware.
type RetryConfig struct {
	MaxRetries      int                       // retries after the first attempt
	InitialInterval time.Duration             // default: 50ms
	MaxInterval     time.Duration             // default: 2s
	RetryOn         func(resp *Response) bool // default: status >= 500
}

// Retry returns middleware that calls later layers again while RetryOn
// reports the response as retryable. Every attempt runs on its own clone of
// the request, so each one sees the full body. Delays grow exponentially.
func Retry(cfg RetryConfig) Middleware {
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = 50 * time.Millisecond
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = 2 * time.Second
	}
	if cfg.MaxInterval < cfg.InitialInterval {
		cfg.MaxInterval = cfg.InitialInterval
	}
	if cfg.RetryOn == nil {
		cfg.RetryOn = func(resp *Response) bool {
			return resp == nil || resp.Status >= http.StatusInternalServerError
		}
	}
	maxRetries := max(cfg.MaxRetries, 0)

	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, r *Request) *Response {
			policy := newRetryPolicy(cfg, maxRetries)

			for attempt := 0; ; attempt++ {
				req, err := r.Clone()
				if err != nil {
					return ErrorResponse(r, err)
				}

				resp := next(ctx, req)
				if attempt >= maxRetries || !cfg.RetryOn(resp) {
					return resp
				}

				wait := policy.NextBackOff()
				if wait == backoff.Stop {
					return resp
				}

				timer := time.NewTimer(wait)
				select {
				case <-ctx.Done():
					timer.Stop()
					return resp
				case <-timer.C:
				}
			}
		}
	}
}

func newRetryPolicy(cfg RetryConfig, maxRetries int) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = cfg.InitialInterval
	exp.MaxInterval = cfg.MaxInterval
	exp.MaxElapsedTime = 0
	exp.Reset()
	return backoff.WithMaxRetries(exp, uint64(maxRetries))
}
