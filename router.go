package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// Router holds routes, middleware and the runtime shared by every request.
// It implements http.Handler. Pipelines are assembled once, the first time
// the router serves a request; routes and middleware cannot change after
// that.
type Router struct {
	mux        *http.ServeMux
	middleware []Middleware
	routes     []*route

	state        *AppState
	errorHandler ErrorHandler
	encoders     []Encoder
	decoders     []Decoder
	logger       *slog.Logger

	settings *settings

	mu    sync.Mutex
	once  sync.Once
	built bool
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithState sets the application state shared by every request.
func WithState(s *AppState) RouterOption {
	return func(r *Router) {
		r.state = s
	}
}

// WithErrorHandler sets a custom error conversion for the router.
func WithErrorHandler(h ErrorHandler) RouterOption {
	return func(r *Router) {
		r.errorHandler = h
	}
}

// WithEncoder registers an additional response encoder.
func WithEncoder(enc Encoder) RouterOption {
	return func(r *Router) {
		r.encoders = append(r.encoders, enc)
	}
}

// WithDecoder registers an additional request body decoder.
func WithDecoder(dec Decoder) RouterOption {
	return func(r *Router) {
		r.decoders = append(r.decoders, dec)
	}
}

// WithLogger sets the logger used for server errors and recovered panics.
// slog.Default() is used otherwise.
func WithLogger(l *slog.Logger) RouterOption {
	return func(r *Router) {
		r.logger = l
	}
}

// New creates a new Router with the given options.
func New(opts ...RouterOption) *Router {
	r := &Router{
		mux: http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.state == nil {
		r.state = NewAppState()
	}

	errHandler := r.errorHandler
	if errHandler == nil {
		errHandler = WriteError
	}
	r.settings = &settings{
		codecs:       newCodecRegistry(r.encoders, r.decoders),
		errorHandler: errHandler,
		logger:       r.logger,
	}
	return r
}

// State returns the application state of the router.
func (r *Router) State() *AppState { return r.state }

// Use adds middleware to the router. The first middleware added is the
// outermost one.
func (r *Router) Use(mw ...Middleware) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.mustNotBeBuilt()
	r.middleware = append(r.middleware, mw...)
}

// Handle registers h for requests matching method and pattern. The pattern
// follows http.ServeMux syntax without the method, e.g. "/items/{id}".
func (r *Router) Handle(method, pattern string, h HandlerFunc, opts ...RouteOption) {
	r.addRoute(newRoute(method, pattern, h, nil, opts))
}

// Get registers a GET route.
func (r *Router) Get(pattern string, h HandlerFunc, opts ...RouteOption) {
	r.Handle(http.MethodGet, pattern, h, opts...)
}

// Post registers a POST route.
func (r *Router) Post(pattern string, h HandlerFunc, opts ...RouteOption) {
	r.Handle(http.MethodPost, pattern, h, opts...)
}

// Put registers a PUT route.
func (r *Router) Put(pattern string, h HandlerFunc, opts ...RouteOption) {
	r.Handle(http.MethodPut, pattern, h, opts...)
}

// Patch registers a PATCH route.
func (r *Router) Patch(pattern string, h HandlerFunc, opts ...RouteOption) {
	r.Handle(http.MethodPatch, pattern, h, opts...)
}

// Delete registers a DELETE route.
func (r *Router) Delete(pattern string, h HandlerFunc, opts ...RouteOption) {
	r.Handle(http.MethodDelete, pattern, h, opts...)
}

// Raw registers a plain http.Handler. The pattern may carry a method prefix
// ("GET /metrics"). Raw handlers bypass the middleware chain.
func (r *Router) Raw(pattern string, h http.Handler, opts ...RouteOption) {
	method, path := splitPattern(pattern)
	r.addRoute(newRoute(method, path, nil, h, opts))
}

// Routes returns the registered routes in registration order.
func (r *Router) Routes() []RouteInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]RouteInfo, len(r.routes))
	for i, ri := range r.routes {
		out[i] = ri.info()
	}
	return out
}

// Pipeline wraps h in the router middleware followed by mw. It is used to
// mount handlers on another transport that shares the router's state and
// runtime.
func (r *Router) Pipeline(h HandlerFunc, mw ...Middleware) HandlerFunc {
	r.mu.Lock()
	global := append([]Middleware(nil), r.middleware...)
	r.mu.Unlock()

	return Chain(h, append(global, mw...)...)
}

// RequestOptions returns the options that attach the router's state and
// runtime to a Request built by another transport.
func (r *Router) RequestOptions() []RequestOption {
	return []RequestOption{WithAppState(r.state), withSettings(r.settings)}
}

// ServeHTTP implements http.Handler.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.once.Do(r.build)
	r.mux.ServeHTTP(w, req)
}

// ListenAndServe starts an HTTP server on the given address.
// It blocks until the context is cancelled, then shuts down gracefully.
func (r *Router) ListenAndServe(ctx context.Context, addr string) error {
	cfg := DefaultConfig()
	cfg.Addr = addr
	return r.Run(ctx, cfg)
}

// Run starts an HTTP server configured by cfg. It blocks until the context is
// cancelled, then shuts down within cfg.ShutdownTimeout.
func (r *Router) Run(ctx context.Context, cfg Config) error {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeout := cfg.ShutdownTimeout
		if timeout <= 0 {
			timeout = defaultShutdown
		}
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// addRoute stores ri for registration when the router is built.
func (r *Router) addRoute(ri *route) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.mustNotBeBuilt()
	r.routes = append(r.routes, ri)
}

func (r *Router) mustNotBeBuilt() {
	if r.built {
		panic("pipeline: router modified after it started serving")
	}
}

// build assembles the pipeline of every route and registers it with the mux.
// Global middleware wraps group middleware, which wraps route middleware.
// Route body limits are set on the request before the chain runs.
func (r *Router) build() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.built = true
	r.state.freeze()

	catchAll := false
	for _, ri := range r.routes {
		if ri.muxPattern() == "/" {
			catchAll = true
		}
		if ri.raw != nil {
			r.mux.Handle(ri.muxPattern(), ri.raw)
			continue
		}

		mw := make([]Middleware, 0, len(r.middleware)+len(ri.middleware))
		mw = append(mw, r.middleware...)
		mw = append(mw, ri.middleware...)
		r.mux.Handle(ri.muxPattern(), r.serve(ri, Chain(ri.handler, mw...)))
	}

	if !catchAll {
		r.mux.Handle("/", r.serve(&route{}, Chain(notFound, r.middleware...)))
	}
}

// serve adapts a pipeline to net/http.
func (r *Router) serve(ri *route, h HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, hr *http.Request) {
		params := make([]Param, len(ri.params))
		for i, name := range ri.params {
			params[i] = Param{Key: name, Value: hr.PathValue(name)}
		}

		req := FromHTTP(hr,
			WithParams(params...),
			WithPattern(ri.pattern),
			WithAppState(r.state),
			withSettings(r.settings),
			withRouteLimit(ri.bodyLimit),
		)

		resp := h(hr.Context(), req)
		if resp == nil {
			resp = ErrorResponse(req, Internal(http.StatusText(http.StatusInternalServerError)).
				WithInternal("%v", ErrNilResponse))
		}
		if err := resp.Write(w); err != nil {
			r.settings.log().DebugContext(hr.Context(), "write response",
				"error", err,
				"method", hr.Method,
				"path", hr.URL.Path,
			)
		}
	})
}

func newRoute(method, pattern string, h HandlerFunc, raw http.Handler, opts []RouteOption) *route {
	if h == nil && raw == nil {
		panic("pipeline: nil handler for " + pattern)
	}
	ri := &route{
		method:  method,
		pattern: pattern,
		params:  patternParams(pattern),
		handler: h,
		raw:     raw,
	}
	for _, opt := range opts {
		opt(ri)
	}
	return ri
}

// defaultShutdown is used when a Config carries no shutdown timeout.
const defaultShutdown = 30 * time.Second
