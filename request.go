package pipeline

import (
	"bytes"
	"io"
	"net/http"
	"net/url"
	"sync"
)

// Param is a single path parameter captured by the router.
type Param struct {
	Key   string
	Value string
}

type bodyState int

const (
	bodyBuffered bodyState = iota
	bodyStreaming
	bodyConsumed
)

// Payload is the body taken out of a Request. It is either a buffered byte
// slice or a stream that has not been read yet.
type Payload struct {
	data   []byte
	stream io.ReadCloser
	limit  int64
}

// Streaming reports whether the body still has to be read from its source.
func (b Payload) Streaming() bool { return b.stream != nil }

// Reader returns the body as a stream. The caller must close it.
func (b Payload) Reader() io.ReadCloser {
	if b.stream != nil {
		if b.limit > 0 {
			return &limitedBody{ReadCloser: b.stream, remaining: b.limit, limit: b.limit}
		}
		return b.stream
	}
	return io.NopCloser(bytes.NewReader(b.data))
}

// Bytes collects the whole body. A stream is read to the end and closed.
// Bodies larger than the configured limit yield an *http.MaxBytesError.
func (b Payload) Bytes() ([]byte, error) {
	if b.stream == nil {
		if b.limit > 0 && int64(len(b.data)) > b.limit {
			return nil, &http.MaxBytesError{Limit: b.limit}
		}
		return b.data, nil
	}
	defer b.stream.Close() //nolint:errcheck // read side

	if b.limit <= 0 {
		return io.ReadAll(b.stream)
	}
	data, err := io.ReadAll(io.LimitReader(b.stream, b.limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > b.limit {
		return nil, &http.MaxBytesError{Limit: b.limit}
	}
	return data, nil
}

// limitedBody fails once more than limit bytes have been read.
type limitedBody struct {
	io.ReadCloser
	remaining int64
	limit     int64
}

func (l *limitedBody) Read(p []byte) (int, error) {
	if l.remaining < 0 {
		return 0, &http.MaxBytesError{Limit: l.limit}
	}
	if int64(len(p)) > l.remaining+1 {
		p = p[:l.remaining+1]
	}
	n, err := l.ReadCloser.Read(p)
	l.remaining -= int64(n)
	if l.remaining < 0 {
		return n, &http.MaxBytesError{Limit: l.limit}
	}
	return n, err
}

// Request is a single inbound request as seen by extractors, middleware and
// handlers. It lives for the duration of one dispatch.
type Request struct {
	Method     string
	URL        *url.URL
	Header     http.Header
	RemoteAddr string

	params   []Param
	pattern  string
	state    *AppState
	settings *settings

	mu        sync.Mutex
	bodyState bodyState
	data      []byte
	stream    io.ReadCloser
	limit     int64
	routed    bool // limit fixed by the route
}

// RequestOption configures a Request at construction time.
type RequestOption func(*Request)

// WithParams sets the path parameters in pattern order.
func WithParams(params ...Param) RequestOption {
	return func(r *Request) {
		r.params = append(r.params[:0], params...)
	}
}

// WithBody sets a buffered body.
func WithBody(data []byte) RequestOption {
	return func(r *Request) {
		r.bodyState = bodyBuffered
		r.data = data
		r.stream = nil
	}
}

// WithStream sets a streaming body. A nil stream is treated as an empty
// buffered body.
func WithStream(rc io.ReadCloser) RequestOption {
	return func(r *Request) {
		if rc == nil || rc == http.NoBody {
			r.bodyState = bodyBuffered
			r.data = nil
			r.stream = nil
			return
		}
		r.bodyState = bodyStreaming
		r.stream = rc
		r.data = nil
	}
}

// WithHeader replaces the request headers.
func WithHeader(h http.Header) RequestOption {
	return func(r *Request) {
		r.Header = h
	}
}

// WithRemoteAddr sets the network address of the client.
func WithRemoteAddr(addr string) RequestOption {
	return func(r *Request) {
		r.RemoteAddr = addr
	}
}

// WithAppState attaches the shared application state.
func WithAppState(s *AppState) RequestOption {
	return func(r *Request) {
		r.state = s
	}
}

// WithPattern records the route pattern that matched the request.
func WithPattern(pattern string) RequestOption {
	return func(r *Request) {
		r.pattern = pattern
	}
}

// withRouteLimit fixes the body limit before any layer runs. BodyLimit
// layers leave it in place.
func withRouteLimit(n int64) RequestOption {
	return func(r *Request) {
		if n > 0 {
			r.limit = n
			r.routed = true
		}
	}
}

func withSettings(s *settings) RequestOption {
	return func(r *Request) {
		r.settings = s
	}
}

// NewRequest builds a Request with an empty buffered body. A target that is
// not a valid URL is used verbatim as the path.
func NewRequest(method, target string, opts ...RequestOption) *Request {
	u, err := url.Parse(target)
	if err != nil {
		u = &url.URL{Path: target}
	}
	r := &Request{
		Method: method,
		URL:    u,
		Header: make(http.Header),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.Header == nil {
		r.Header = make(http.Header)
	}
	return r
}

// FromHTTP wraps a net/http request. Its body becomes a streaming body owned
// by the returned Request.
func FromHTTP(hr *http.Request, opts ...RequestOption) *Request {
	r := &Request{
		Method:     hr.Method,
		URL:        hr.URL,
		Header:     hr.Header,
		RemoteAddr: hr.RemoteAddr,
	}
	WithStream(hr.Body)(r)
	for _, opt := range opts {
		opt(r)
	}
	if r.Header == nil {
		r.Header = make(http.Header)
	}
	return r
}

// Param returns the value of the named path parameter.
func (r *Request) Param(name string) string {
	for _, p := range r.params {
		if p.Key == name {
			return p.Value
		}
	}
	return ""
}

// Params returns a copy of the path parameters in pattern order.
func (r *Request) Params() []Param {
	return append([]Param(nil), r.params...)
}

// Pattern returns the route pattern that matched, if any.
func (r *Request) Pattern() string { return r.pattern }

// State returns the shared application state. It may be nil.
func (r *Request) State() *AppState { return r.state }

// Parts returns a body-less view of the request.
func (r *Request) Parts() Parts { return Parts{r: r} }

// TakeBody moves the body out of the request. It returns false when the body
// has already been taken.
func (r *Request) TakeBody() (Payload, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.bodyState == bodyConsumed {
		return Payload{}, false
	}
	b := Payload{data: r.data, stream: r.stream, limit: r.limit}
	r.bodyState = bodyConsumed
	r.data = nil
	r.stream = nil
	return b, true
}

// BodyConsumed reports whether the body has been taken.
func (r *Request) BodyConsumed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.bodyState == bodyConsumed
}

// LimitBody caps the number of body bytes extractors may collect.
func (r *Request) LimitBody(n int64) {
	r.mu.Lock()
	r.limit = n
	r.mu.Unlock()
}

// defaultLimit sets the body limit unless the route fixed one.
func (r *Request) defaultLimit(n int64) {
	r.mu.Lock()
	if !r.routed {
		r.limit = n
	}
	r.mu.Unlock()
}

// Clone returns an independent copy of the request. A streaming body is read
// into memory first so both the original and the copy hold it buffered.
func (r *Request) Clone() (*Request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.bufferLocked(); err != nil {
		return nil, err
	}

	u := *r.URL
	clone := &Request{
		Method:     r.Method,
		URL:        &u,
		Header:     r.Header.Clone(),
		RemoteAddr: r.RemoteAddr,
		params:     append([]Param(nil), r.params...),
		pattern:    r.pattern,
		state:      r.state,
		settings:   r.settings,
		bodyState:  r.bodyState,
		limit:      r.limit,
		routed:     r.routed,
	}
	if r.bodyState == bodyBuffered {
		clone.data = bytes.Clone(r.data)
	}
	return clone, nil
}

// buffer reads a streaming body into memory, honoring the body limit.
func (r *Request) buffer() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.bufferLocked()
}

func (r *Request) bufferLocked() error {
	if r.bodyState != bodyStreaming {
		return nil
	}
	data, err := Payload{stream: r.stream, limit: r.limit}.Bytes()
	r.stream = nil
	if err != nil {
		r.bodyState = bodyConsumed
		return err
	}
	r.bodyState = bodyBuffered
	r.data = data
	return nil
}

func (r *Request) runtime() *settings {
	if r == nil || r.settings == nil {
		return defaultSettings
	}
	return r.settings
}

// Parts is a read-only view of a Request without access to its body.
type Parts struct {
	r *Request
}

// Method returns the HTTP method.
func (p Parts) Method() string { return p.r.Method }

// URL returns the request URL.
func (p Parts) URL() *url.URL { return p.r.URL }

// Header returns the request headers.
func (p Parts) Header() http.Header { return p.r.Header }

// RemoteAddr returns the client address.
func (p Parts) RemoteAddr() string { return p.r.RemoteAddr }

// Param returns the named path parameter.
func (p Parts) Param(name string) string { return p.r.Param(name) }

// Params returns the path parameters in pattern order.
func (p Parts) Params() []Param { return p.r.Params() }

// FirstParam returns the first path parameter, if any.
func (p Parts) FirstParam() (Param, bool) {
	if len(p.r.params) == 0 {
		return Param{}, false
	}
	return p.r.params[0], true
}

// Pattern returns the matched route pattern.
func (p Parts) Pattern() string { return p.r.pattern }

// State returns the shared application state.
func (p Parts) State() *AppState { return p.r.state }
