package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bjaus/pipeline"
)

func TestError(t *testing.T) {
	t.Parallel()

	err := pipeline.Error(http.StatusNotFound, "not found")
	assert.EqualError(t, err, "not found")

	var sc pipeline.StatusCoder
	require.ErrorAs(t, err, &sc)
	assert.Equal(t, http.StatusNotFound, sc.StatusCode())
}

func TestErrorf(t *testing.T) {
	t.Parallel()

	err := pipeline.Errorf(http.StatusBadRequest, "invalid %s", "email")
	assert.EqualError(t, err, "invalid email")
}

func TestErrorStatus(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		err    error
		expect int
	}{
		"with StatusCoder": {
			err:    pipeline.Error(http.StatusForbidden, "forbidden"),
			expect: http.StatusForbidden,
		},
		"without StatusCoder": {
			err:    errors.New("plain error"),
			expect: http.StatusInternalServerError,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.expect, pipeline.ErrorStatus(tc.err))
		})
	}
}

func TestHTTPError_constructors(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		err        *pipeline.HTTPError
		wantStatus int
		wantType   string
	}{
		"bad request":            {err: pipeline.BadRequest("m"), wantStatus: http.StatusBadRequest, wantType: pipeline.TypeBadRequest},
		"unauthorized":           {err: pipeline.Unauthorized("m"), wantStatus: http.StatusUnauthorized, wantType: pipeline.TypeUnauthorized},
		"forbidden":              {err: pipeline.Forbidden("m"), wantStatus: http.StatusForbidden, wantType: pipeline.TypeForbidden},
		"not found":              {err: pipeline.NotFound("m"), wantStatus: http.StatusNotFound, wantType: pipeline.TypeNotFound},
		"conflict":               {err: pipeline.Conflict("m"), wantStatus: http.StatusConflict, wantType: pipeline.TypeConflict},
		"payload too large":      {err: pipeline.PayloadTooLarge("m"), wantStatus: http.StatusRequestEntityTooLarge, wantType: pipeline.TypePayloadTooLarge},
		"unsupported media type": {err: pipeline.UnsupportedMediaType("m"), wantStatus: http.StatusUnsupportedMediaType, wantType: pipeline.TypeUnsupportedMediaType},
		"too many requests":      {err: pipeline.TooManyRequests("m"), wantStatus: http.StatusTooManyRequests, wantType: pipeline.TypeTooManyRequests},
		"internal":               {err: pipeline.Internal("m"), wantStatus: http.StatusInternalServerError, wantType: pipeline.TypeInternal},
		"service unavailable":    {err: pipeline.ServiceUnavailable("m"), wantStatus: http.StatusServiceUnavailable, wantType: pipeline.TypeServiceUnavailable},
		"timeout":                {err: pipeline.TimeoutError("m"), wantStatus: http.StatusServiceUnavailable, wantType: pipeline.TypeTimeout},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.wantStatus, tc.err.Status)
			assert.Equal(t, tc.wantType, tc.err.Type)
			assert.Equal(t, "m", tc.err.Message)
		})
	}
}

func TestHTTPError_WithInternal_copies(t *testing.T) {
	t.Parallel()

	base := pipeline.Internal("boom")
	withDiag := base.WithInternal("db: %s", "down")

	assert.Empty(t, base.Internal)
	assert.Equal(t, "db: down", withDiag.Internal)
	assert.EqualError(t, withDiag, "boom: db: down")
}

type teapotError struct{}

func (teapotError) Error() string   { return "short and stout" }
func (teapotError) StatusCode() int { return http.StatusTeapot }

type zeroStatusError struct{}

func (zeroStatusError) Error() string   { return "no status" }
func (zeroStatusError) StatusCode() int { return 0 }

type upstreamError struct{}

func (upstreamError) Error() string   { return "upstream exploded" }
func (upstreamError) StatusCode() int { return http.StatusBadGateway }

func TestAsHTTPError(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		err          error
		wantStatus   int
		wantType     string
		wantMessage  string
		wantInternal string
	}{
		"http error passes through": {
			err:         fmt.Errorf("wrapped: %w", pipeline.Conflict("taken")),
			wantStatus:  http.StatusConflict,
			wantType:    pipeline.TypeConflict,
			wantMessage: "taken",
		},
		"max bytes": {
			err:         &http.MaxBytesError{Limit: 10},
			wantStatus:  http.StatusRequestEntityTooLarge,
			wantType:    pipeline.TypePayloadTooLarge,
			wantMessage: "request body exceeds 10 bytes",
		},
		"deadline": {
			err:          context.DeadlineExceeded,
			wantStatus:   http.StatusServiceUnavailable,
			wantType:     pipeline.TypeTimeout,
			wantMessage:  "request timed out",
			wantInternal: context.DeadlineExceeded.Error(),
		},
		"client status coder keeps message": {
			err:         teapotError{},
			wantStatus:  http.StatusTeapot,
			wantType:    pipeline.TypeBadRequest,
			wantMessage: "short and stout",
		},
		"server status coder hides message": {
			err:          upstreamError{},
			wantStatus:   http.StatusBadGateway,
			wantType:     pipeline.TypeInternal,
			wantMessage:  http.StatusText(http.StatusBadGateway),
			wantInternal: "upstream exploded",
		},
		"status coder below 400 is internal": {
			err:          zeroStatusError{},
			wantStatus:   http.StatusInternalServerError,
			wantType:     pipeline.TypeInternal,
			wantMessage:  http.StatusText(http.StatusInternalServerError),
			wantInternal: "invalid error status 0: no status",
		},
		"http error with success status is internal": {
			err:          pipeline.Error(http.StatusFound, "moved"),
			wantStatus:   http.StatusInternalServerError,
			wantType:     pipeline.TypeInternal,
			wantMessage:  http.StatusText(http.StatusInternalServerError),
			wantInternal: "invalid error status 302: moved",
		},
		"foreign error is internal": {
			err:          errors.New("sql: connection refused"),
			wantStatus:   http.StatusInternalServerError,
			wantType:     pipeline.TypeInternal,
			wantMessage:  http.StatusText(http.StatusInternalServerError),
			wantInternal: "sql: connection refused",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			he := pipeline.AsHTTPError(tc.err)
			require.NotNil(t, he)
			assert.Equal(t, tc.wantStatus, he.Status)
			assert.Equal(t, tc.wantType, he.Type)
			assert.Equal(t, tc.wantMessage, he.Message)
			assert.Equal(t, tc.wantInternal, he.Internal)
		})
	}
}

func TestAsHTTPError_nil(t *testing.T) {
	t.Parallel()
	assert.Nil(t, pipeline.AsHTTPError(nil))
}

func TestErrorResponse_never_success_status(t *testing.T) {
	t.Parallel()

	resp := pipeline.ErrorResponse(pipeline.NewRequest(http.MethodGet, "/"), zeroStatusError{})
	assert.Equal(t, http.StatusInternalServerError, resp.Status)
	assert.True(t, pipeline.IsErrorResponse(resp))
	assert.Equal(t, pipeline.TypeInternal, errorDetail(t, resp).Type)
}

func TestErrorResponse_without_router_uses_default_handler(t *testing.T) {
	t.Parallel()

	resp := pipeline.ErrorResponse(pipeline.NewRequest(http.MethodGet, "/"), pipeline.NotFound("gone"))
	assert.Equal(t, http.StatusNotFound, resp.Status)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Equal(t, pipeline.ErrorDetail{Type: pipeline.TypeNotFound, Message: "gone"}, errorDetail(t, resp))

	var nilReq *pipeline.Request
	assert.Equal(t, http.StatusNotFound, pipeline.ErrorResponse(nilReq, pipeline.NotFound("gone")).Status)
}
