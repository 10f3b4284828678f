package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors wrapped into the diagnostics of internal errors.
var (
	ErrBodyConsumed  = errors.New("request body already consumed")
	ErrMissingState  = errors.New("application state not provided")
	ErrNoPathParam   = errors.New("no path parameter")
	ErrNotExtractor  = errors.New("type is not an extractor")
	ErrMissingValue  = errors.New("context value not set")
	ErrNilResponse   = errors.New("handler produced nil response")
	ErrHandlerPanic  = errors.New("handler panicked")
	ErrEncodeFailure = errors.New("response encoding failed")
)

// Sentinel errors for request binding.
var (
	ErrBindPath   = errors.New("bind path")
	ErrBindQuery  = errors.New("bind query")
	ErrBindHeader = errors.New("bind header")
	ErrBindCookie = errors.New("bind cookie")
	ErrBindBody   = errors.New("bind body")
)

// Error type tags.
const (
	TypeBadRequest           = "bad_request"
	TypeUnauthorized         = "unauthorized"
	TypeForbidden            = "forbidden"
	TypeNotFound             = "not_found"
	TypeConflict             = "conflict"
	TypePayloadTooLarge      = "payload_too_large"
	TypeUnsupportedMediaType = "unsupported_media_type"
	TypeTooManyRequests      = "too_many_requests"
	TypeInternal             = "internal"
	TypeServiceUnavailable   = "service_unavailable"
	TypeTimeout              = "timeout"
)

var statusTypes = map[int]string{
	http.StatusBadRequest:            TypeBadRequest,
	http.StatusUnauthorized:          TypeUnauthorized,
	http.StatusForbidden:             TypeForbidden,
	http.StatusNotFound:              TypeNotFound,
	http.StatusConflict:              TypeConflict,
	http.StatusRequestEntityTooLarge: TypePayloadTooLarge,
	http.StatusUnsupportedMediaType:  TypeUnsupportedMediaType,
	http.StatusTooManyRequests:       TypeTooManyRequests,
	http.StatusInternalServerError:   TypeInternal,
	http.StatusServiceUnavailable:    TypeServiceUnavailable,
	http.StatusGatewayTimeout:        TypeTimeout,
}

// TypeForStatus returns the default type tag for a status code.
func TypeForStatus(status int) string {
	if t, ok := statusTypes[status]; ok {
		return t
	}
	if status >= 500 {
		return TypeInternal
	}
	return TypeBadRequest
}

// StatusCoder is implemented by errors or responses that carry an HTTP status code.
type StatusCoder interface {
	StatusCode() int
}

// HTTPError is the single error type crossing extractor, handler and
// middleware boundaries. Internal is a server-side diagnostic and is never
// written to the client.
type HTTPError struct {
	Status   int    `json:"-"`
	Type     string `json:"type"`
	Message  string `json:"message"`
	Internal string `json:"-"`
}

// Error returns the error message.
func (e *HTTPError) Error() string {
	if e.Internal != "" {
		return e.Message + ": " + e.Internal
	}
	return e.Message
}

// StatusCode returns the HTTP status code.
func (e *HTTPError) StatusCode() int { return e.Status }

// WithInternal returns a copy of e carrying a formatted diagnostic.
func (e *HTTPError) WithInternal(format string, args ...any) *HTTPError {
	cp := *e
	cp.Internal = fmt.Sprintf(format, args...)
	return &cp
}

// Respond converts the error into its wire response.
func (e *HTTPError) Respond(r *Request) *Response {
	return r.runtime().handleError(r, e)
}

func newError(status int, message string) *HTTPError {
	return &HTTPError{Status: status, Type: TypeForStatus(status), Message: message}
}

// Error returns an error with the given HTTP status code and message.
func Error(status int, message string) error {
	return newError(status, message)
}

// Errorf returns a formatted error with the given HTTP status code.
func Errorf(status int, format string, args ...any) error {
	return newError(status, fmt.Sprintf(format, args...))
}

// BadRequest reports malformed client input.
func BadRequest(message string) *HTTPError { return newError(http.StatusBadRequest, message) }

// Unauthorized reports missing or invalid credentials.
func Unauthorized(message string) *HTTPError { return newError(http.StatusUnauthorized, message) }

// Forbidden reports a guard rejection.
func Forbidden(message string) *HTTPError { return newError(http.StatusForbidden, message) }

// NotFound reports a missing resource.
func NotFound(message string) *HTTPError { return newError(http.StatusNotFound, message) }

// Conflict reports a state conflict.
func Conflict(message string) *HTTPError { return newError(http.StatusConflict, message) }

// PayloadTooLarge reports a body over the configured limit.
func PayloadTooLarge(message string) *HTTPError {
	return newError(http.StatusRequestEntityTooLarge, message)
}

// UnsupportedMediaType reports a body in a format no decoder accepts.
func UnsupportedMediaType(message string) *HTTPError {
	return newError(http.StatusUnsupportedMediaType, message)
}

// TooManyRequests reports a rate limit rejection.
func TooManyRequests(message string) *HTTPError {
	return newError(http.StatusTooManyRequests, message)
}

// Internal reports a programming or wiring error.
func Internal(message string) *HTTPError {
	return newError(http.StatusInternalServerError, message)
}

// ServiceUnavailable reports a failing upstream or dependency.
func ServiceUnavailable(message string) *HTTPError {
	return newError(http.StatusServiceUnavailable, message)
}

// TimeoutError reports a request that did not finish in time.
func TimeoutError(message string) *HTTPError {
	return &HTTPError{Status: http.StatusServiceUnavailable, Type: TypeTimeout, Message: message}
}

// ErrorStatus extracts the HTTP status code from an error. Returns
// http.StatusInternalServerError if the error does not implement StatusCoder.
func ErrorStatus(err error) int {
	var sc StatusCoder
	if errors.As(err, &sc) {
		return sc.StatusCode()
	}
	return http.StatusInternalServerError
}

// AsHTTPError maps any error into an *HTTPError. Errors that are not already
// HTTP errors keep their text only in the Internal diagnostic.
func AsHTTPError(err error) *HTTPError {
	if err == nil {
		return nil
	}

	var he *HTTPError
	if errors.As(err, &he) {
		if !isErrorStatus(he.Status) {
			return internalStatus(he.Status, err)
		}
		return he
	}

	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return PayloadTooLarge(fmt.Sprintf("request body exceeds %d bytes", mbe.Limit))
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return TimeoutError("request timed out").WithInternal("%v", err)
	}

	var sc StatusCoder
	if errors.As(err, &sc) {
		status := sc.StatusCode()
		if !isErrorStatus(status) {
			return internalStatus(status, err)
		}
		if status < 500 {
			return newError(status, err.Error())
		}
		return newError(status, http.StatusText(status)).WithInternal("%v", err)
	}

	return Internal(http.StatusText(http.StatusInternalServerError)).WithInternal("%v", err)
}

// isErrorStatus reports whether status may carry an error body.
func isErrorStatus(status int) bool {
	return status >= http.StatusBadRequest && status <= 599
}

func internalStatus(status int, err error) *HTTPError {
	return Internal(http.StatusText(http.StatusInternalServerError)).
		WithInternal("invalid error status %d: %v", status, err)
}
