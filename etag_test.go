package pipeline_test

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bjaus/pipeline"
)

func TestETag_sets_header(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		method   string
		cfg      []pipeline.ETagConfig
		resp     *pipeline.Response
		wantETag bool
		wantWeak bool
	}{
		"get": {
			method:   http.MethodGet,
			resp:     pipeline.Text(http.StatusOK, "hello"),
			wantETag: true,
		},
		"head": {
			method:   http.MethodHead,
			resp:     pipeline.Text(http.StatusOK, "hello"),
			wantETag: true,
		},
		"weak": {
			method:   http.MethodGet,
			cfg:      []pipeline.ETagConfig{{Weak: true}},
			resp:     pipeline.Text(http.StatusOK, "hello"),
			wantETag: true,
			wantWeak: true,
		},
		"post bypasses": {
			method: http.MethodPost,
			resp:   pipeline.Text(http.StatusOK, "hello"),
		},
		"non 2xx passes through": {
			method: http.MethodGet,
			resp:   pipeline.Text(http.StatusNotFound, "missing"),
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			r := pipeline.NewRequest(tc.method, "/")
			resp := pipeline.Chain(fixed(tc.resp), pipeline.ETag(tc.cfg...))(context.Background(), r)

			etag := resp.Header.Get("ETag")
			assert.Equal(t, tc.resp.Status, resp.Status)
			if !tc.wantETag {
				assert.Empty(t, etag)
				return
			}
			require.NotEmpty(t, etag)
			assert.Equal(t, tc.wantWeak, strings.HasPrefix(etag, "W/"))
		})
	}
}

func TestETag_if_none_match(t *testing.T) {
	t.Parallel()

	h := pipeline.Chain(fixed(pipeline.Text(http.StatusOK, "stable")), pipeline.ETag())

	first := h(context.Background(), pipeline.NewRequest(http.MethodGet, "/"))
	etag := first.Header.Get("ETag")
	require.NotEmpty(t, etag)

	tests := map[string]struct {
		ifNoneMatch string
		wantStatus  int
	}{
		"matching":     {ifNoneMatch: etag, wantStatus: http.StatusNotModified},
		"list":         {ifNoneMatch: `"other", ` + etag, wantStatus: http.StatusNotModified},
		"not matching": {ifNoneMatch: `"other"`, wantStatus: http.StatusOK},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			r := pipeline.NewRequest(http.MethodGet, "/")
			r.Header.Set("If-None-Match", tc.ifNoneMatch)

			resp := h(context.Background(), r)
			assert.Equal(t, tc.wantStatus, resp.Status)
			assert.Equal(t, etag, resp.Header.Get("ETag"))
			if tc.wantStatus == http.StatusNotModified {
				assert.Empty(t, resp.Body)
			}
		})
	}
}

func TestETag_weak_comparison(t *testing.T) {
	t.Parallel()

	h := pipeline.Chain(fixed(pipeline.Text(http.StatusOK, "stable")), pipeline.ETag(pipeline.ETagConfig{Weak: true}))

	first := h(context.Background(), pipeline.NewRequest(http.MethodGet, "/"))
	etag := first.Header.Get("ETag")
	require.True(t, strings.HasPrefix(etag, "W/"))
	strong := strings.TrimPrefix(etag, "W/")

	tests := map[string]struct {
		ifNoneMatch string
		wantStatus  int
	}{
		"weak tag":          {ifNoneMatch: etag, wantStatus: http.StatusNotModified},
		"strong client tag": {ifNoneMatch: strong, wantStatus: http.StatusNotModified},
		"wildcard":          {ifNoneMatch: "*", wantStatus: http.StatusNotModified},
		"tag inside another": {
			ifNoneMatch: `"x` + strings.Trim(strong, `"`) + `"`,
			wantStatus:  http.StatusOK,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			r := pipeline.NewRequest(http.MethodGet, "/")
			r.Header.Set("If-None-Match", tc.ifNoneMatch)

			assert.Equal(t, tc.wantStatus, h(context.Background(), r).Status)
		})
	}
}
