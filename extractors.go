package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
)

// Path extracts the first path parameter of the matched route, parsed as T.
type Path[T any] struct {
	Value T
}

// ExtractParts implements PartsExtractor.
func (p *Path[T]) ExtractParts(parts Parts) error {
	t := reflect.TypeFor[T]()
	if !supportsText(t) {
		return Internal("unsupported path parameter type").WithInternal("%s", t)
	}

	param, ok := parts.FirstParam()
	if !ok {
		return Internal("route has no path parameter").
			WithInternal("%v: pattern %q", ErrNoPathParam, parts.Pattern())
	}

	if err := setValue(reflect.ValueOf(&p.Value).Elem(), param.Value); err != nil {
		return BadRequest(fmt.Sprintf("invalid path parameter %q: %q is not a valid %s", param.Key, param.Value, t))
	}
	return nil
}

// Params binds path parameters into the fields of T tagged `path:"name"`.
type Params[T any] struct {
	Value T
}

// ExtractParts implements PartsExtractor.
func (p *Params[T]) ExtractParts(parts Parts) error {
	return bindError(bindTagged(&p.Value, "path", pathLookup(parts), ErrBindPath))
}

// Query binds query string values into the fields of T tagged `query:"name"`.
type Query[T any] struct {
	Value T
}

// ExtractParts implements PartsExtractor.
func (q *Query[T]) ExtractParts(parts Parts) error {
	return bindError(bindTagged(&q.Value, "query", queryLookup(parts), ErrBindQuery))
}

// Headers binds request headers into the fields of T tagged `header:"Name"`.
type Headers[T any] struct {
	Value T
}

// ExtractParts implements PartsExtractor.
func (h *Headers[T]) ExtractParts(parts Parts) error {
	return bindError(bindTagged(&h.Value, "header", headerLookup(parts), ErrBindHeader))
}

// Cookies binds cookies into the fields of T tagged `cookie:"name"`.
type Cookies[T any] struct {
	Value T
}

// ExtractParts implements PartsExtractor.
func (c *Cookies[T]) ExtractParts(parts Parts) error {
	return bindError(bindTagged(&c.Value, "cookie", cookieLookup(parts), ErrBindCookie))
}

func bindError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotExtractor) {
		return Internal("invalid binding target").WithInternal("%v", err)
	}
	return BadRequest(err.Error())
}

// Method extracts the request method.
type Method string

// ExtractParts implements PartsExtractor.
func (m *Method) ExtractParts(parts Parts) error {
	*m = Method(parts.Method())
	return nil
}

// URI extracts a copy of the request URL.
type URI struct {
	url.URL
}

// ExtractParts implements PartsExtractor.
func (u *URI) ExtractParts(parts Parts) error {
	u.URL = *parts.URL()
	return nil
}

// State extracts a value of type T from the application state.
type State[T any] struct {
	Value T
}

// ExtractParts implements PartsExtractor.
func (s *State[T]) ExtractParts(parts Parts) error {
	v, ok := Lookup[T](parts.State())
	if !ok {
		return Internal("application state is not configured").
			WithInternal("%v: %s", ErrMissingState, reflect.TypeFor[T]())
	}
	s.Value = v
	return nil
}

// Value extracts a typed value a middleware stored in the context with
// SetValue.
type Value[T any] struct {
	Value T
}

// Extract implements Extractor.
func (v *Value[T]) Extract(ctx context.Context, _ *Request) error {
	val, ok := GetValue[T](ctx)
	if !ok {
		return Internal("request value is not set").
			WithInternal("%v: %s", ErrMissingValue, reflect.TypeFor[T]())
	}
	v.Value = val
	return nil
}

// takeBytes takes the body of r and collects it.
func takeBytes(r *Request) ([]byte, error) {
	body, ok := r.TakeBody()
	if !ok {
		return nil, Internal("request body already consumed").WithInternal("%v", ErrBodyConsumed)
	}
	data, err := body.Bytes()
	if err != nil {
		he := AsHTTPError(err)
		if he.Status == http.StatusInternalServerError {
			return nil, BadRequest("failed to read request body").WithInternal("%v", err)
		}
		return nil, he
	}
	return data, nil
}

// JSON decodes a JSON request body into T. An empty body leaves T zero.
type JSON[T any] struct {
	Value T
}

// Extract implements Extractor.
func (j *JSON[T]) Extract(_ context.Context, r *Request) error {
	data, err := takeBytes(r)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, &j.Value); err != nil {
		return BadRequest(fmt.Sprintf("%v: %v", ErrBindBody, err))
	}
	return nil
}

// Body decodes the request body into T with the decoder registered for its
// Content-Type. An empty body leaves T zero.
type Body[T any] struct {
	Value T
}

// Extract implements Extractor.
func (b *Body[T]) Extract(_ context.Context, r *Request) error {
	contentType := r.Header.Get("Content-Type")
	dec, ok := r.runtime().codecs.decoderFor(contentType)
	if !ok {
		return UnsupportedMediaType(fmt.Sprintf("unsupported content type %q", contentType))
	}

	data, err := takeBytes(r)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := dec.Decode(bytes.NewReader(data), &b.Value); err != nil && !errors.Is(err, io.EOF) {
		return BadRequest(fmt.Sprintf("%v: %v", ErrBindBody, err))
	}
	return nil
}

// RawBody extracts the request body as bytes.
type RawBody []byte

// Extract implements Extractor.
func (b *RawBody) Extract(_ context.Context, r *Request) error {
	data, err := takeBytes(r)
	if err != nil {
		return err
	}
	*b = data
	return nil
}

// BodyString extracts the request body as a string.
type BodyString string

// Extract implements Extractor.
func (s *BodyString) Extract(_ context.Context, r *Request) error {
	data, err := takeBytes(r)
	if err != nil {
		return err
	}
	*s = BodyString(data)
	return nil
}

// BodyStream hands the unread body to the handler. The handler must close
// Reader.
type BodyStream struct {
	Reader io.ReadCloser
}

// Extract implements Extractor.
func (s *BodyStream) Extract(_ context.Context, r *Request) error {
	body, ok := r.TakeBody()
	if !ok {
		return Internal("request body already consumed").WithInternal("%v", ErrBodyConsumed)
	}
	s.Reader = body.Reader()
	return nil
}

// Optional wraps the extractor T. Any extraction failure yields
// Present == false instead of an error.
type Optional[T any] struct {
	Value   T
	Present bool
}

// Extract implements Extractor.
func (o *Optional[T]) Extract(ctx context.Context, r *Request) error {
	if !IsExtractor[T]() {
		return Internal("handler parameter is not an extractor").
			WithInternal("%v: %s", ErrNotExtractor, reflect.TypeFor[T]())
	}
	v, err := Extract[T](ctx, r)
	if err != nil {
		var zero T
		o.Value, o.Present = zero, false
		return nil
	}
	o.Value, o.Present = v, true
	return nil
}
