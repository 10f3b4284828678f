package pipeline

import "net/http"

// Group is a collection of routes under a shared prefix with shared middleware and tags.
type Group struct {
	router     *Router
	prefix     string
	middleware []Middleware
	tags       []string
}

// GroupOption configures a Group.
type GroupOption func(*Group)

// WithGroupTags adds default tags to all routes registered on the group.
func WithGroupTags(tags ...string) GroupOption {
	return func(g *Group) {
		g.tags = append(g.tags, tags...)
	}
}

// WithGroupMiddleware adds middleware to the group. It runs inside the router
// middleware and outside route middleware.
func WithGroupMiddleware(mw ...Middleware) GroupOption {
	return func(g *Group) {
		g.middleware = append(g.middleware, mw...)
	}
}

// Group creates a new route group with the given prefix and options.
func (r *Router) Group(prefix string, opts ...GroupOption) *Group {
	g := &Group{
		router: r,
		prefix: prefix,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Group creates a nested group. It inherits the prefix, middleware and tags
// of g.
func (g *Group) Group(prefix string, opts ...GroupOption) *Group {
	sub := &Group{
		router:     g.router,
		prefix:     g.prefix + prefix,
		middleware: append([]Middleware(nil), g.middleware...),
		tags:       append([]string(nil), g.tags...),
	}
	for _, opt := range opts {
		opt(sub)
	}
	return sub
}

// Handle registers h under the group prefix.
func (g *Group) Handle(method, pattern string, h HandlerFunc, opts ...RouteOption) {
	ri := newRoute(method, g.prefix+pattern, h, nil, opts)
	ri.middleware = append(append([]Middleware(nil), g.middleware...), ri.middleware...)
	ri.tags = append(append([]string(nil), g.tags...), ri.tags...)
	g.router.addRoute(ri)
}

// Get registers a GET route.
func (g *Group) Get(pattern string, h HandlerFunc, opts ...RouteOption) {
	g.Handle(http.MethodGet, pattern, h, opts...)
}

// Post registers a POST route.
func (g *Group) Post(pattern string, h HandlerFunc, opts ...RouteOption) {
	g.Handle(http.MethodPost, pattern, h, opts...)
}

// Put registers a PUT route.
func (g *Group) Put(pattern string, h HandlerFunc, opts ...RouteOption) {
	g.Handle(http.MethodPut, pattern, h, opts...)
}

// Patch registers a PATCH route.
func (g *Group) Patch(pattern string, h HandlerFunc, opts ...RouteOption) {
	g.Handle(http.MethodPatch, pattern, h, opts...)
}

// Delete registers a DELETE route.
func (g *Group) Delete(pattern string, h HandlerFunc, opts ...RouteOption) {
	g.Handle(http.MethodDelete, pattern, h, opts...)
}
