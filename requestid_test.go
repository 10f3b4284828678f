package pipeline_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bjaus/pipeline"
)

func idEcho(ctx context.Context, _ *pipeline.Request) *pipeline.Response {
	return pipeline.Text(http.StatusOK, pipeline.GetRequestID(ctx))
}

func TestRequestID(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		incoming string
	}{
		"generated":  {},
		"propagated": {incoming: "upstream-id"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			r := pipeline.NewRequest(http.MethodGet, "/")
			if tc.incoming != "" {
				r.Header.Set("X-Request-ID", tc.incoming)
			}

			resp := pipeline.Chain(idEcho, pipeline.RequestID())(context.Background(), r)
			id := resp.Header.Get("X-Request-ID")
			require.NotEmpty(t, id)
			assert.Equal(t, id, string(resp.Body))
			assert.Equal(t, id, r.Header.Get("X-Request-ID"))

			if tc.incoming != "" {
				assert.Equal(t, tc.incoming, id)
				return
			}
			_, err := uuid.Parse(id)
			assert.NoError(t, err)
		})
	}
}

func TestRequestID_custom_generator(t *testing.T) {
	t.Parallel()

	mw := pipeline.RequestID(pipeline.RequestIDConfig{
		Header:    "X-Trace",
		Generator: func() string { return "fixed" },
	})

	resp := pipeline.Chain(idEcho, mw)(context.Background(), pipeline.NewRequest(http.MethodGet, "/"))
	assert.Equal(t, "fixed", resp.Header.Get("X-Trace"))
	assert.Empty(t, resp.Header.Get("X-Request-ID"))
}

func TestRequestID_on_nil_header_response(t *testing.T) {
	t.Parallel()

	bare := func(context.Context, *pipeline.Request) *pipeline.Response {
		return &pipeline.Response{Status: http.StatusAccepted}
	}

	resp := pipeline.Chain(bare, pipeline.RequestID())(context.Background(), pipeline.NewRequest(http.MethodGet, "/"))
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestGetRequestID_without_middleware(t *testing.T) {
	t.Parallel()
	assert.Empty(t, pipeline.GetRequestID(context.Background()))
}
