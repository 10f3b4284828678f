package pipeline

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// BreakerState is the state of a circuit breaker.
type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerOpen
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig configures a CircuitBreaker.
type BreakerConfig struct {
	FailureThreshold int                       // consecutive failures that open the circuit (default: 5)
	SuccessThreshold int                       // half-open successes that close it again (default: 1)
	OpenTimeout      time.Duration             // time spent open before probing (default: 30s)
	IsFailure        func(resp *Response) bool // default: status >= 500
}

// CircuitBreaker stops calling later layers after repeated failures. While
// open, requests are answered with 503 immediately. After OpenTimeout one
// probe at a time is let through; enough successful probes close the circuit
// and a failed one opens it again.
type CircuitBreaker struct {
	cfg BreakerConfig
	now func() time.Time

	mu        sync.Mutex
	state     BreakerState
	failures  int
	successes int
	openedAt  time.Time
	probing   bool
}

// NewCircuitBreaker returns a closed breaker.
func NewCircuitBreaker(cfg BreakerConfig) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = 1
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	if cfg.IsFailure == nil {
		cfg.IsFailure = func(resp *Response) bool {
			return resp == nil || resp.Status >= http.StatusInternalServerError
		}
	}
	return &CircuitBreaker{cfg: cfg, now: time.Now}
}

// State returns the current state.
func (cb *CircuitBreaker) State() BreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Middleware returns the breaker as middleware.
func (cb *CircuitBreaker) Middleware() Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, r *Request) *Response {
			if wait, ok := cb.allow(); !ok {
				resp := ErrorResponse(r, ServiceUnavailable("circuit open"))
				resp.SetHeader("Retry-After", strconv.Itoa(max(1, int(wait.Round(time.Second)/time.Second))))
				return resp
			}

			return cb.call(ctx, r, next)
		}
	}
}

// call runs next and records the outcome. A panic counts as a failure and
// keeps unwinding.
func (cb *CircuitBreaker) call(ctx context.Context, r *Request, next HandlerFunc) (resp *Response) {
	completed := false
	defer func() {
		if !completed {
			cb.record(true)
		}
	}()

	resp = next(ctx, r)
	completed = true
	cb.record(cb.cfg.IsFailure(resp))
	return resp
}

// allow reports whether a call may proceed. When it may not, it returns the
// time left until the next probe.
func (cb *CircuitBreaker) allow() (time.Duration, bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case BreakerOpen:
		elapsed := cb.now().Sub(cb.openedAt)
		if elapsed < cb.cfg.OpenTimeout {
			return cb.cfg.OpenTimeout - elapsed, false
		}
		cb.state = BreakerHalfOpen
		cb.successes = 0
		cb.probing = true
		return 0, true
	case BreakerHalfOpen:
		if cb.probing {
			return cb.cfg.OpenTimeout, false
		}
		cb.probing = true
		return 0, true
	default:
		return 0, true
	}
}

func (cb *CircuitBreaker) record(failed bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case BreakerHalfOpen:
		cb.probing = false
		if failed {
			cb.trip()
			return
		}
		cb.successes++
		if cb.successes >= cb.cfg.SuccessThreshold {
			cb.state = BreakerClosed
			cb.failures = 0
		}
	case BreakerClosed:
		if !failed {
			cb.failures = 0
			return
		}
		cb.failures++
		if cb.failures >= cb.cfg.FailureThreshold {
			cb.trip()
		}
	case BreakerOpen:
		// A call admitted before the circuit opened finished late.
	}
}

func (cb *CircuitBreaker) trip() {
	cb.state = BreakerOpen
	cb.openedAt = cb.now()
	cb.failures = 0
	cb.successes = 0
}
