package pipeline_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bjaus/pipeline"
)

type dbHandle struct{ dsn string }

func TestAppState_Provide_Lookup(t *testing.T) {
	t.Parallel()

	s := pipeline.NewAppState()
	pipeline.Provide(s, &dbHandle{dsn: "postgres://"})
	pipeline.Provide(s, 42)

	db, ok := pipeline.Lookup[*dbHandle](s)
	assert.True(t, ok)
	assert.Equal(t, "postgres://", db.dsn)

	n, ok := pipeline.Lookup[int](s)
	assert.True(t, ok)
	assert.Equal(t, 42, n)

	_, ok = pipeline.Lookup[string](s)
	assert.False(t, ok)

	assert.Equal(t, 2, s.Len())
}

func TestAppState_keyed_by_static_type(t *testing.T) {
	t.Parallel()

	type alias int

	s := pipeline.NewAppState()
	pipeline.Provide(s, 1)
	pipeline.Provide[alias](s, 2)

	n, _ := pipeline.Lookup[int](s)
	a, _ := pipeline.Lookup[alias](s)
	assert.Equal(t, 1, n)
	assert.Equal(t, alias(2), a)
}

func TestAppState_nil_is_empty(t *testing.T) {
	t.Parallel()

	var s *pipeline.AppState

	_, ok := pipeline.Lookup[int](s)
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len())
}
