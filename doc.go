// Package pipeline is the request-processing core of a generics-first HTTP
// framework. A request is turned into typed handler arguments by extractors,
// routed through an ordered chain of middleware, dispatched to user code and
// converted back into a wire response.
//
// Handlers are plain functions whose parameters are extractor types:
//
//	func getItem(ctx context.Context, id pipeline.Path[uint64], db pipeline.State[*DB]) (*Item, error)
//
// Handle0 through Handle6 erase such functions into a uniform HandlerFunc:
//
//	r := pipeline.New(pipeline.WithAppState(state))
//	r.Use(pipeline.Recovery(), pipeline.Logger(slog.Default()))
//	r.Get("/items/{id}", pipeline.Handle2(getItem))
//
// Extractors run left to right. The first one that fails stops dispatch and
// its *HTTPError becomes the response. A request body can be taken exactly
// once; a second body extractor fails with an internal error.
//
// Middleware uses the signature func(next HandlerFunc) HandlerFunc. The first
// middleware registered is the outermost: it sees the request first and the
// response last.
//
// Every failure crossing a pipeline boundary is an *HTTPError and is written
// as:
//
//	{"error": {"type": "bad_request", "message": "..."}}
package pipeline
