package pipeline

import (
	"fmt"
	"reflect"
	"sync/atomic"
)

// AppState holds application-wide values keyed by their static type. It is
// populated at startup and read concurrently by every request afterwards.
type AppState struct {
	values map[reflect.Type]any
	frozen atomic.Bool
}

// NewAppState returns an empty state container.
func NewAppState() *AppState {
	return &AppState{values: make(map[reflect.Type]any)}
}

// Provide stores v under the type T and returns s for chaining. It panics
// once the state has been frozen by a serving router.
func Provide[T any](s *AppState, v T) *AppState {
	if s.frozen.Load() {
		panic(fmt.Sprintf("pipeline: Provide[%s] after the application state was frozen", reflect.TypeFor[T]()))
	}
	s.values[reflect.TypeFor[T]()] = v
	return s
}

// Lookup returns the value stored under the type T.
func Lookup[T any](s *AppState) (T, bool) {
	var zero T
	if s == nil {
		return zero, false
	}
	v, ok := s.values[reflect.TypeFor[T]()]
	if !ok {
		return zero, false
	}
	return v.(T), true
}

// Len returns the number of stored values.
func (s *AppState) Len() int {
	if s == nil {
		return 0
	}
	return len(s.values)
}

func (s *AppState) freeze() {
	if s != nil {
		s.frozen.Store(true)
	}
}
