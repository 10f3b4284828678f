package pipeline_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bjaus/pipeline"
)

// serve runs req through h and returns the recorded response.
func serve(t *testing.T, h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// errorDetail decodes the error body of resp.
func errorDetail(t *testing.T, resp *pipeline.Response) pipeline.ErrorDetail {
	t.Helper()
	require.NotNil(t, resp)
	detail, err := pipeline.DecodeError(resp)
	require.NoError(t, err, "body: %s", resp.Body)
	return detail
}

// recorderDetail decodes the error body written to rec.
func recorderDetail(t *testing.T, rec *httptest.ResponseRecorder) pipeline.ErrorDetail {
	t.Helper()
	return errorDetail(t, &pipeline.Response{Status: rec.Code, Body: rec.Body.Bytes()})
}

// trace records the order in which pipeline stages ran.
type trace struct {
	mu     sync.Mutex
	events []string
}

func (tr *trace) add(event string) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.events = append(tr.events, event)
}

func (tr *trace) list() []string {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return append([]string(nil), tr.events...)
}

// traced is a middleware that records its pre and post hooks.
func traced(tr *trace, name string) pipeline.Middleware {
	return func(next pipeline.HandlerFunc) pipeline.HandlerFunc {
		return func(ctx context.Context, r *pipeline.Request) *pipeline.Response {
			tr.add(name + ":pre")
			resp := next(ctx, r)
			tr.add(name + ":post")
			return resp
		}
	}
}

// okHandler is a handler that always answers 200 "ok".
func okHandler(context.Context, *pipeline.Request) *pipeline.Response {
	return pipeline.Text(http.StatusOK, "ok")
}

func mustAtoi(t *testing.T, s string) int {
	t.Helper()
	n, err := strconv.Atoi(s)
	require.NoError(t, err)
	return n
}
