package pipeline_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bjaus/pipeline"
)

type signup struct {
	Email string `json:"email"`
}

func (s signup) Validate() error {
	switch {
	case s.Email == "":
		return errors.New("email is required")
	case s.Email == "taken@example.com":
		return pipeline.Conflict("email already registered")
	case !strings.Contains(s.Email, "@"):
		return pipeline.BadRequest("email must contain @")
	}
	return nil
}

type pageQuery struct {
	Page int `query:"page" default:"1"`
}

type checkedPage struct {
	pipeline.Query[pageQuery]
}

func (c *checkedPage) Validate() error {
	if c.Value.Page < 1 {
		return errors.New("page must be positive")
	}
	return nil
}

func TestValid_body(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		body        string
		wantStatus  int
		wantMessage string
	}{
		"valid":       {body: `{"email":"a@example.com"}`},
		"plain error": {body: `{}`, wantStatus: http.StatusBadRequest, wantMessage: "email is required"},
		"http error":  {body: `{"email":"taken@example.com"}`, wantStatus: http.StatusConflict, wantMessage: "email already registered"},
		"bad request": {body: `{"email":"nope"}`, wantStatus: http.StatusBadRequest, wantMessage: "email must contain @"},
		"malformed":   {body: `{`, wantStatus: http.StatusBadRequest},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			r := pipeline.NewRequest(http.MethodPost, "/", pipeline.WithBody([]byte(tc.body)))
			v, err := pipeline.Extract[pipeline.Valid[pipeline.JSON[signup]]](context.Background(), r)
			if tc.wantStatus == 0 {
				require.NoError(t, err)
				assert.Equal(t, "a@example.com", v.Value.Value.Email)
				return
			}
			he := requireHTTPError(t, err, tc.wantStatus, pipeline.TypeForStatus(tc.wantStatus))
			if tc.wantMessage != "" {
				assert.Equal(t, tc.wantMessage, he.Message)
			}
		})
	}
}

func TestValid_extractor_with_own_validation(t *testing.T) {
	t.Parallel()

	_, err := pipeline.Extract[pipeline.Valid[checkedPage]](context.Background(), pipeline.NewRequest(http.MethodGet, "/?page=0"))
	requireHTTPError(t, err, http.StatusBadRequest, pipeline.TypeBadRequest)

	v, err := pipeline.Extract[pipeline.Valid[checkedPage]](context.Background(), pipeline.NewRequest(http.MethodGet, "/"))
	require.NoError(t, err)
	assert.Equal(t, 1, v.Value.Value.Page)
}

func TestValid_without_validator(t *testing.T) {
	t.Parallel()

	v, err := pipeline.Extract[pipeline.Valid[pipeline.Path[int]]](context.Background(),
		pipeline.NewRequest(http.MethodGet, "/", withID("3")))
	require.NoError(t, err)
	assert.Equal(t, 3, v.Value.Value)
}

func TestValid_non_extractor_is_internal(t *testing.T) {
	t.Parallel()

	_, err := pipeline.Extract[pipeline.Valid[signup]](context.Background(), pipeline.NewRequest(http.MethodGet, "/"))
	requireHTTPError(t, err, http.StatusInternalServerError, pipeline.TypeInternal)
}
