// Package muxadapter mounts pipeline handlers on a gorilla/mux router.
//
// Path variables are handed to extractors in the order they appear in the
// route template, so Path[T] sees the first variable of the template.
package muxadapter

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/bjaus/pipeline"
)

// Adapter serves pipeline handlers through gorilla/mux. The pipeline router
// supplies the application state, codecs, error handler and the middleware
// every mounted handler is wrapped in.
type Adapter struct {
	router *pipeline.Router
}

// New returns an adapter bound to pr.
func New(pr *pipeline.Router) *Adapter {
	return &Adapter{router: pr}
}

// Handle registers h on mr for method and path.
func (a *Adapter) Handle(mr *mux.Router, method, path string, h pipeline.HandlerFunc, mw ...pipeline.Middleware) *mux.Route {
	return mr.Handle(path, a.Handler(h, mw...)).Methods(method)
}

// Handler returns h as an http.Handler. It must be served by a mux.Router so
// the matched route is known.
func (a *Adapter) Handler(h pipeline.HandlerFunc, mw ...pipeline.Middleware) http.Handler {
	chain := a.router.Pipeline(h, mw...)

	return http.HandlerFunc(func(w http.ResponseWriter, hr *http.Request) {
		var (
			template string
			params   []pipeline.Param
		)
		if route := mux.CurrentRoute(hr); route != nil {
			template, _ = route.GetPathTemplate()
			vars := mux.Vars(hr)
			for _, name := range TemplateParams(template) {
				params = append(params, pipeline.Param{Key: name, Value: vars[name]})
			}
		}

		opts := append(a.router.RequestOptions(),
			pipeline.WithParams(params...),
			pipeline.WithPattern(template),
		)
		req := pipeline.FromHTTP(hr, opts...)

		resp := chain(hr.Context(), req)
		if resp == nil {
			resp = pipeline.ErrorResponse(req, pipeline.Internal(http.StatusText(http.StatusInternalServerError)).
				WithInternal("%v", pipeline.ErrNilResponse))
		}
		_ = resp.Write(w)
	})
}

// TemplateParams returns the variable names of a mux path template in
// order. Variables may carry a pattern, as in "{id:[0-9]+}".
func TemplateParams(template string) []string {
	var (
		names []string
		depth int
		start int
	)
	for i := 0; i < len(template); i++ {
		switch template[i] {
		case '{':
			if depth == 0 {
				start = i + 1
			}
			depth++
		case '}':
			depth--
			if depth == 0 {
				name, _, _ := strings.Cut(template[start:i], ":")
				if name = strings.TrimSpace(name); name != "" {
					names = append(names, name)
				}
			}
		}
	}
	return names
}
