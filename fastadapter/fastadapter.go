// Package fastadapter serves pipeline handlers from a valyala/fasthttp
// server. Bodies arrive fully read, so requests always carry a buffered body.
package fastadapter

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/valyala/fasthttp"

	"github.com/bjaus/pipeline"
)

// Adapter serves pipeline handlers through fasthttp. The pipeline router
// supplies the application state, codecs, error handler and the middleware
// every handler is wrapped in.
type Adapter struct {
	router *pipeline.Router
}

// New returns an adapter bound to pr.
func New(pr *pipeline.Router) *Adapter {
	return &Adapter{router: pr}
}

// Handler returns h as a fasthttp.RequestHandler. params names the user
// values set by the fasthttp router in use, in route order.
func (a *Adapter) Handler(h pipeline.HandlerFunc, params ...string) fasthttp.RequestHandler {
	chain := a.router.Pipeline(h)

	return func(ctx *fasthttp.RequestCtx) {
		req := Request(ctx, append(a.router.RequestOptions(), pipeline.WithParams(userParams(ctx, params)...))...)

		// RequestCtx is only a usable context.Context under a running server.
		resp := chain(context.Background(), req)
		if resp == nil {
			resp = pipeline.ErrorResponse(req, pipeline.Internal(http.StatusText(http.StatusInternalServerError)).
				WithInternal("%v", pipeline.ErrNilResponse))
		}
		Write(ctx, resp)
	}
}

// Request converts a fasthttp request into a pipeline request with a
// buffered copy of the body.
func Request(ctx *fasthttp.RequestCtx, opts ...pipeline.RequestOption) *pipeline.Request {
	header := make(http.Header)
	ctx.Request.Header.VisitAll(func(k, v []byte) {
		header.Add(string(k), string(v))
	})

	target := string(ctx.RequestURI())
	if _, err := url.ParseRequestURI(target); err != nil {
		target = string(ctx.Path())
	}

	base := []pipeline.RequestOption{
		pipeline.WithHeader(header),
		pipeline.WithRemoteAddr(ctx.RemoteAddr().String()),
		pipeline.WithBody(bytes.Clone(ctx.PostBody())),
	}
	return pipeline.NewRequest(string(ctx.Method()), target, append(base, opts...)...)
}

// Write copies resp into the fasthttp response.
func Write(ctx *fasthttp.RequestCtx, resp *pipeline.Response) {
	status := resp.Status
	if status == 0 {
		status = fasthttp.StatusOK
	}
	for k, vs := range resp.Header {
		for i, v := range vs {
			if i == 0 {
				ctx.Response.Header.Set(k, v)
				continue
			}
			ctx.Response.Header.Add(k, v)
		}
	}
	ctx.SetStatusCode(status)
	ctx.SetBody(resp.Body)
}

func userParams(ctx *fasthttp.RequestCtx, names []string) []pipeline.Param {
	params := make([]pipeline.Param, 0, len(names))
	for _, name := range names {
		v := ctx.UserValue(name)
		if v == nil {
			continue
		}
		s, ok := v.(string)
		if !ok {
			s = fmt.Sprint(v)
		}
		params = append(params, pipeline.Param{Key: name, Value: s})
	}
	return params
}
