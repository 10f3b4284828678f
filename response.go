package pipeline

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"runtime/debug"
)

// Void is used as a handler result when there is no response body
// (results in 204 No Content).
type Void struct{}

// Response is a concrete wire response.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// NewResponse returns an empty response with the given status.
func NewResponse(status int) *Response {
	return &Response{Status: status, Header: make(http.Header)}
}

// Respond implements Responder.
func (resp *Response) Respond(*Request) *Response { return resp }

// SetHeader sets a response header, allocating the header map if needed.
func (resp *Response) SetHeader(key, value string) {
	if resp.Header == nil {
		resp.Header = make(http.Header)
	}
	resp.Header.Set(key, value)
}

// Clone returns a deep copy of the response.
func (resp *Response) Clone() *Response {
	return &Response{
		Status: resp.Status,
		Header: resp.Header.Clone(),
		Body:   bytes.Clone(resp.Body),
	}
}

// Write sends the response to w.
func (resp *Response) Write(w http.ResponseWriter) error {
	h := w.Header()
	for k, vs := range resp.Header {
		h[k] = append(h[k][:0:0], vs...)
	}
	status := resp.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	if len(resp.Body) == 0 {
		return nil
	}
	_, err := w.Write(resp.Body)
	return err
}

// Responder is implemented by any value that knows its own wire response.
// Respond must not return nil.
type Responder interface {
	Respond(r *Request) *Response
}

// ErrorBody is the wire shape of every error response.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail is the inner object of ErrorBody.
type ErrorDetail struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// ErrorHandler converts an error into a response. It must not return nil.
type ErrorHandler func(r *Request, err *HTTPError) *Response

// WriteError is the default ErrorHandler. Internal diagnostics of server
// errors are logged, never serialized.
func WriteError(r *Request, err *HTTPError) *Response {
	if err.Status >= http.StatusInternalServerError {
		logError(r, err)
	}

	resp := NewResponse(err.Status)
	resp.Header.Set("Content-Type", "application/json")

	body, mErr := json.Marshal(ErrorBody{Error: ErrorDetail{Type: err.Type, Message: err.Message}})
	if mErr != nil {
		body = []byte(`{"error":{"type":"internal","message":"Internal Server Error"}}`)
	}
	resp.Body = append(body, '\n')
	return resp
}

func logError(r *Request, err *HTTPError) {
	attrs := []any{
		"status", err.Status,
		"type", err.Type,
		"message", err.Message,
	}
	if err.Internal != "" {
		attrs = append(attrs, "internal", err.Internal)
	}
	if r != nil {
		attrs = append(attrs, "method", r.Method, "path", r.URL.Path)
	}
	r.runtime().log().Error("request failed", attrs...)
}

// ErrorResponse converts err into a wire response through the request's
// error handler.
func ErrorResponse(r *Request, err error) *Response {
	he := AsHTTPError(err)
	if he == nil {
		he = Internal(http.StatusText(http.StatusInternalServerError)).WithInternal("%v", ErrNilResponse)
	}
	resp := r.runtime().handleError(r, he)
	if resp == nil {
		return WriteError(r, he)
	}
	return resp
}

// IntoResponse converts a handler result into a wire response. The mapping
// is total: failures while converting a successful value produce an internal
// error response.
func IntoResponse(r *Request, v any) *Response {
	switch t := v.(type) {
	case nil:
		return NewResponse(http.StatusNoContent)
	case *Response:
		if t == nil {
			return NewResponse(http.StatusNoContent)
		}
		return t
	case error:
		return ErrorResponse(r, t)
	case Void, *Void:
		return NewResponse(http.StatusNoContent)
	case Responder:
		if isNilPointer(t) {
			return NewResponse(http.StatusNoContent)
		}
		return respondSafely(r, t)
	case []byte:
		return Bytes(http.StatusOK, "application/octet-stream", t)
	case string:
		return Text(http.StatusOK, t)
	}

	if isNilPointer(v) {
		return NewResponse(http.StatusNoContent)
	}
	return Encode(r, http.StatusOK, v)
}

func respondSafely(r *Request, rs Responder) (resp *Response) {
	defer func() {
		if rec := recover(); rec != nil {
			resp = ErrorResponse(r, Internal(http.StatusText(http.StatusInternalServerError)).
				WithInternal("%v: %v\n%s", ErrHandlerPanic, rec, debug.Stack()))
		}
	}()
	resp = rs.Respond(r)
	if resp == nil {
		return ErrorResponse(r, Internal(http.StatusText(http.StatusInternalServerError)).
			WithInternal("%v: %T", ErrNilResponse, rs))
	}
	return resp
}

// Encode serializes v with the encoder negotiated from the Accept header.
// Unknown media types fall back to JSON.
func Encode(r *Request, status int, v any) *Response {
	codecs := r.runtime().codecs

	var accept string
	if r != nil {
		accept = r.Header.Get("Accept")
	}
	enc, ok := codecs.negotiate(accept)
	if !ok {
		enc = codecs.encoders[0]
	}

	var buf bytes.Buffer
	if err := encodeSafely(enc, &buf, v); err != nil {
		return ErrorResponse(r, Internal(http.StatusText(http.StatusInternalServerError)).
			WithInternal("%v: %v", ErrEncodeFailure, err))
	}

	resp := NewResponse(status)
	resp.Header.Set("Content-Type", enc.ContentType())
	resp.Body = buf.Bytes()
	return resp
}

func encodeSafely(enc Encoder, buf *bytes.Buffer, v any) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("encoder panicked: %v", rec)
		}
	}()
	return enc.Encode(buf, v)
}

func isNilPointer(v any) bool {
	rv := reflect.ValueOf(v)
	//exhaustive:ignore
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}

// Bytes returns a response with a raw body.
func Bytes(status int, contentType string, body []byte) *Response {
	resp := NewResponse(status)
	if contentType != "" {
		resp.Header.Set("Content-Type", contentType)
	}
	resp.Body = body
	return resp
}

// Text returns a text/plain response.
func Text(status int, s string) *Response {
	return Bytes(status, "text/plain; charset=utf-8", []byte(s))
}

// NoContent returns a 204 response.
func NoContent() *Response { return NewResponse(http.StatusNoContent) }

// Status wraps a value with an explicit status code.
type Status[T any] struct {
	Code  int
	Value T
}

// Respond implements Responder.
func (s Status[T]) Respond(r *Request) *Response {
	if isNilPointer(s.Value) || reflect.TypeFor[T]() == reflect.TypeFor[Void]() {
		return NewResponse(s.Code)
	}
	return Encode(r, s.Code, s.Value)
}

// WithStatus returns v encoded with the given status code.
func WithStatus[T any](code int, v T) Status[T] {
	return Status[T]{Code: code, Value: v}
}

// Created returns v encoded with 201 Created.
func Created[T any](v T) Status[T] {
	return Status[T]{Code: http.StatusCreated, Value: v}
}

// Redirect is returned from a handler to issue an HTTP redirect.
type Redirect struct {
	URL    string
	Status int
}

// Respond implements Responder.
func (rd Redirect) Respond(*Request) *Response {
	status := rd.Status
	if status == 0 {
		status = http.StatusFound
	}
	resp := NewResponse(status)
	resp.Header.Set("Location", rd.URL)
	return resp
}

// IsErrorResponse reports whether resp carries a client or server error.
func IsErrorResponse(resp *Response) bool {
	return resp == nil || resp.Status >= http.StatusBadRequest
}

// DecodeError parses an error response body.
func DecodeError(resp *Response) (ErrorDetail, error) {
	var body ErrorBody
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return ErrorDetail{}, err
	}
	if body.Error.Type == "" {
		return ErrorDetail{}, errors.New("response is not an error body")
	}
	return body.Error, nil
}
