package pipeline_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bjaus/pipeline"
)

type item struct {
	ID   uint64 `json:"id" xml:"id" yaml:"id"`
	Name string `json:"name" xml:"name" yaml:"name"`
}

func TestIntoResponse(t *testing.T) {
	t.Parallel()

	var nilItem *item

	tests := map[string]struct {
		value           any
		wantStatus      int
		wantContentType string
		wantBody        string
	}{
		"nil": {
			value:      nil,
			wantStatus: http.StatusNoContent,
		},
		"void": {
			value:      pipeline.Void{},
			wantStatus: http.StatusNoContent,
		},
		"nil pointer": {
			value:      nilItem,
			wantStatus: http.StatusNoContent,
		},
		"string": {
			value:           "hello",
			wantStatus:      http.StatusOK,
			wantContentType: "text/plain; charset=utf-8",
			wantBody:        "hello",
		},
		"bytes": {
			value:           []byte{1, 2},
			wantStatus:      http.StatusOK,
			wantContentType: "application/octet-stream",
			wantBody:        "\x01\x02",
		},
		"struct": {
			value:           &item{ID: 1, Name: "a"},
			wantStatus:      http.StatusOK,
			wantContentType: "application/json",
			wantBody:        `{"id":1,"name":"a"}` + "\n",
		},
		"created": {
			value:           pipeline.Created(item{ID: 2}),
			wantStatus:      http.StatusCreated,
			wantContentType: "application/json",
			wantBody:        `{"id":2,"name":""}` + "\n",
		},
		"status void": {
			value:      pipeline.WithStatus(http.StatusAccepted, pipeline.Void{}),
			wantStatus: http.StatusAccepted,
		},
		"response": {
			value:           pipeline.Text(http.StatusTeapot, "tea"),
			wantStatus:      http.StatusTeapot,
			wantContentType: "text/plain; charset=utf-8",
			wantBody:        "tea",
		},
		"error": {
			value:           pipeline.NotFound("gone"),
			wantStatus:      http.StatusNotFound,
			wantContentType: "application/json",
			wantBody:        `{"error":{"type":"not_found","message":"gone"}}` + "\n",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			r := pipeline.NewRequest(http.MethodGet, "/")
			resp := pipeline.IntoResponse(r, tc.value)

			require.NotNil(t, resp)
			assert.Equal(t, tc.wantStatus, resp.Status)
			assert.Equal(t, tc.wantContentType, resp.Header.Get("Content-Type"))
			assert.Equal(t, tc.wantBody, string(resp.Body))
		})
	}
}

func TestIntoResponse_redirect(t *testing.T) {
	t.Parallel()

	r := pipeline.NewRequest(http.MethodGet, "/")

	resp := pipeline.IntoResponse(r, pipeline.Redirect{URL: "/new"})
	assert.Equal(t, http.StatusFound, resp.Status)
	assert.Equal(t, "/new", resp.Header.Get("Location"))

	resp = pipeline.IntoResponse(r, pipeline.Redirect{URL: "/moved", Status: http.StatusMovedPermanently})
	assert.Equal(t, http.StatusMovedPermanently, resp.Status)
}

func TestIntoResponse_encode_failure_is_internal(t *testing.T) {
	t.Parallel()

	r := pipeline.NewRequest(http.MethodGet, "/")
	resp := pipeline.IntoResponse(r, map[string]any{"ch": make(chan int)})

	assert.Equal(t, http.StatusInternalServerError, resp.Status)
	assert.Equal(t, pipeline.TypeInternal, errorDetail(t, resp).Type)
}

type panickingResponder struct{}

func (panickingResponder) Respond(*pipeline.Request) *pipeline.Response { panic("boom") }

type nilResponder struct{}

func (nilResponder) Respond(*pipeline.Request) *pipeline.Response { return nil }

func TestIntoResponse_broken_responder_is_internal(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		value any
	}{
		"panics":      {value: panickingResponder{}},
		"returns nil": {value: nilResponder{}},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			resp := pipeline.IntoResponse(pipeline.NewRequest(http.MethodGet, "/"), tc.value)
			assert.Equal(t, http.StatusInternalServerError, resp.Status)
			assert.Equal(t, pipeline.TypeInternal, errorDetail(t, resp).Type)
		})
	}
}

func TestIntoResponse_negotiates_encoder(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		accept string
		want   string
	}{
		"empty":       {accept: "", want: "application/json"},
		"wildcard":    {accept: "*/*", want: "application/json"},
		"xml":         {accept: "application/xml", want: "application/xml"},
		"yaml":        {accept: "application/yaml", want: "application/yaml"},
		"quality":     {accept: "application/xml;q=0.5, application/yaml;q=0.9", want: "application/yaml"},
		"unknown":     {accept: "image/png", want: "application/json"},
		"malformed":   {accept: ";;;", want: "application/json"},
		"first known": {accept: "text/html, application/xml", want: "application/xml"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			r := pipeline.NewRequest(http.MethodGet, "/")
			r.Header.Set("Accept", tc.accept)

			resp := pipeline.IntoResponse(r, item{ID: 7, Name: "x"})
			assert.Equal(t, http.StatusOK, resp.Status)
			assert.Equal(t, tc.want, resp.Header.Get("Content-Type"))
		})
	}
}

func TestNegotiate(t *testing.T) {
	t.Parallel()

	got, ok := pipeline.Negotiate("application/yaml")
	require.True(t, ok)
	assert.Equal(t, "application/yaml", got)

	_, ok = pipeline.Negotiate("image/png")
	assert.False(t, ok)
}

func TestDecoderFor(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		contentType string
		want        string
		wantOK      bool
	}{
		"empty is json": {contentType: "", want: "application/json", wantOK: true},
		"json charset":  {contentType: "application/json; charset=utf-8", want: "application/json", wantOK: true},
		"xml":           {contentType: "application/xml", want: "application/xml", wantOK: true},
		"yaml":          {contentType: "application/yaml", want: "application/yaml", wantOK: true},
		"unknown":       {contentType: "text/csv"},
		"malformed":     {contentType: "/"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, ok := pipeline.DecoderFor(tc.contentType)
			assert.Equal(t, tc.wantOK, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestWriteError_hides_internal(t *testing.T) {
	t.Parallel()

	r := pipeline.NewRequest(http.MethodGet, "/")
	resp := pipeline.ErrorResponse(r, errors.New("dial tcp 10.0.0.1:5432: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, resp.Status)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.JSONEq(t, `{"error":{"type":"internal","message":"Internal Server Error"}}`, string(resp.Body))
	assert.NotContains(t, string(resp.Body), "10.0.0.1")
}

func TestResponse_Write(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	resp := &pipeline.Response{Body: []byte("hi")}
	resp.SetHeader("X-A", "1")

	require.NoError(t, resp.Write(rec))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("X-A"))
	assert.Equal(t, "hi", rec.Body.String())
}

func TestResponse_Clone(t *testing.T) {
	t.Parallel()

	orig := pipeline.Text(http.StatusOK, "abc")
	clone := orig.Clone()
	clone.Body[0] = 'z'
	clone.Header.Set("X-B", "2")

	assert.Equal(t, "abc", string(orig.Body))
	assert.Empty(t, orig.Header.Get("X-B"))
}

func TestIsErrorResponse(t *testing.T) {
	t.Parallel()

	assert.True(t, pipeline.IsErrorResponse(nil))
	assert.True(t, pipeline.IsErrorResponse(pipeline.NewResponse(http.StatusBadRequest)))
	assert.False(t, pipeline.IsErrorResponse(pipeline.NoContent()))
}

func TestDecodeError_not_an_error_body(t *testing.T) {
	t.Parallel()

	_, err := pipeline.DecodeError(pipeline.Text(http.StatusOK, `{"ok":true}`))
	require.Error(t, err)
}
