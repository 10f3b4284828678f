package pipeline

import (
	"context"
	"net/http"
	"strings"
)

// route holds a registered route until the router assembles its pipeline.
type route struct {
	method     string
	pattern    string
	summary    string
	desc       string
	tags       []string
	bodyLimit  int64
	middleware []Middleware
	params     []string

	handler HandlerFunc
	raw     http.Handler
}

// RouteInfo describes a registered route.
type RouteInfo struct {
	Method      string
	Pattern     string
	Summary     string
	Description string
	Tags        []string
	Params      []string
}

func (ri *route) info() RouteInfo {
	return RouteInfo{
		Method:      ri.method,
		Pattern:     ri.pattern,
		Summary:     ri.summary,
		Description: ri.desc,
		Tags:        append([]string(nil), ri.tags...),
		Params:      append([]string(nil), ri.params...),
	}
}

// muxPattern is the pattern the route is registered under in http.ServeMux.
func (ri *route) muxPattern() string {
	if ri.method == "" {
		return ri.pattern
	}
	return ri.method + " " + ri.pattern
}

// RouteOption configures a route at registration time.
type RouteOption func(*route)

// WithSummary sets a short summary for the route.
func WithSummary(s string) RouteOption {
	return func(ri *route) {
		ri.summary = s
	}
}

// WithDescription sets the description of the route.
func WithDescription(d string) RouteOption {
	return func(ri *route) {
		ri.desc = d
	}
}

// WithTags adds tags to the route.
func WithTags(tags ...string) RouteOption {
	return func(ri *route) {
		ri.tags = append(ri.tags, tags...)
	}
}

// WithRouteMiddleware adds middleware that wraps only this route. It runs
// inside the router and group middleware.
func WithRouteMiddleware(mw ...Middleware) RouteOption {
	return func(ri *route) {
		ri.middleware = append(ri.middleware, mw...)
	}
}

// WithBodyLimit sets a per-route maximum request body size in bytes.
// This overrides any global BodyLimit middleware for this route.
func WithBodyLimit(maxBytes int64) RouteOption {
	return func(ri *route) {
		ri.bodyLimit = maxBytes
	}
}

// patternParams returns the wildcard names of a ServeMux pattern in order.
func patternParams(pattern string) []string {
	var names []string
	for {
		start := strings.IndexByte(pattern, '{')
		if start < 0 {
			return names
		}
		end := strings.IndexByte(pattern[start:], '}')
		if end < 0 {
			return names
		}
		name := strings.TrimSuffix(pattern[start+1:start+end], "...")
		if name != "" && name != "$" {
			names = append(names, name)
		}
		pattern = pattern[start+end+1:]
	}
}

// splitPattern separates an optional method prefix from a ServeMux pattern.
func splitPattern(pattern string) (method, path string) {
	if i := strings.IndexAny(pattern, " \t"); i >= 0 {
		return pattern[:i], strings.TrimLeft(pattern[i+1:], " \t")
	}
	return "", pattern
}

// notFound is the handler for requests no route matches.
func notFound(_ context.Context, r *Request) *Response {
	return ErrorResponse(r, NotFound("no route matches "+r.Method+" "+r.URL.Path))
}
