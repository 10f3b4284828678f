package pipeline

import (
	"context"
	"errors"
	"reflect"
)

// SelfValidator is implemented by values that validate themselves.
type SelfValidator interface {
	Validate() error
}

// Valid runs the extractor T and then validates the result. The extracted
// value, or the value it wraps in a Value field, is checked for
// SelfValidator. A plain validation error becomes bad_request.
type Valid[T any] struct {
	Value T
}

// Extract implements Extractor.
func (v *Valid[T]) Extract(ctx context.Context, r *Request) error {
	if !IsExtractor[T]() {
		return Internal("handler parameter is not an extractor").
			WithInternal("%v: %s", ErrNotExtractor, reflect.TypeFor[T]())
	}

	val, err := Extract[T](ctx, r)
	if err != nil {
		return err
	}
	v.Value = val

	sv, ok := selfValidator(&v.Value)
	if !ok {
		return nil
	}
	if err := sv.Validate(); err != nil {
		var he *HTTPError
		if errors.As(err, &he) {
			return he
		}
		return BadRequest(err.Error())
	}
	return nil
}

// selfValidator finds a SelfValidator on ptr or on its Value field.
func selfValidator(ptr any) (SelfValidator, bool) {
	if sv, ok := ptr.(SelfValidator); ok {
		return sv, true
	}
	rv := reflect.ValueOf(ptr).Elem()
	if rv.Kind() != reflect.Struct {
		return nil, false
	}
	field := rv.FieldByName("Value")
	if !field.IsValid() || !field.CanAddr() {
		return nil, false
	}
	if sv, ok := field.Addr().Interface().(SelfValidator); ok {
		return sv, true
	}
	if sv, ok := field.Interface().(SelfValidator); ok {
		return sv, true
	}
	return nil, false
}
