package pipeline

import (
	"net/http"
	"net/http/pprof"
)

// Pprof registers pprof profiling endpoints under the given prefix.
// Default prefix is "/debug/pprof". They are plain handlers outside the
// middleware chain.
func Pprof(r *Router, prefix string) {
	if prefix == "" {
		prefix = "/debug/pprof"
	}

	r.Raw("GET "+prefix+"/", http.HandlerFunc(pprof.Index))
	r.Raw("GET "+prefix+"/cmdline", http.HandlerFunc(pprof.Cmdline))
	r.Raw("GET "+prefix+"/profile", http.HandlerFunc(pprof.Profile))
	r.Raw("GET "+prefix+"/symbol", http.HandlerFunc(pprof.Symbol))
	r.Raw("GET "+prefix+"/trace", http.HandlerFunc(pprof.Trace))
	for _, name := range []string{"goroutine", "heap", "allocs", "block", "mutex", "threadcreate"} {
		r.Raw("GET "+prefix+"/"+name, pprof.Handler(name))
	}
}
