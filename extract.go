package pipeline

import (
	"context"
	"fmt"
	"reflect"
)

// PartsExtractor derives a value from the body-less parts of a request.
// It is implemented on the pointer receiver of a handler parameter type.
type PartsExtractor interface {
	ExtractParts(p Parts) error
}

// Extractor derives a value from the whole request and may take its body.
// It is implemented on the pointer receiver of a handler parameter type.
type Extractor interface {
	Extract(ctx context.Context, r *Request) error
}

var (
	extractorType      = reflect.TypeFor[Extractor]()
	partsExtractorType = reflect.TypeFor[PartsExtractor]()
)

// Extract runs the extractor implemented by *T against r. A type that only
// implements PartsExtractor is evaluated on r.Parts() without touching the
// body.
func Extract[T any](ctx context.Context, r *Request) (T, error) {
	var v T
	switch e := any(&v).(type) {
	case Extractor:
		if err := e.Extract(ctx, r); err != nil {
			return v, err
		}
	case PartsExtractor:
		if err := e.ExtractParts(r.Parts()); err != nil {
			return v, err
		}
	default:
		return v, Internal("handler parameter is not an extractor").
			WithInternal("%v: %s", ErrNotExtractor, reflect.TypeFor[T]())
	}
	return v, nil
}

// IsExtractor reports whether *T implements Extractor or PartsExtractor.
func IsExtractor[T any]() bool {
	pt := reflect.PointerTo(reflect.TypeFor[T]())
	return pt.Implements(extractorType) || pt.Implements(partsExtractorType)
}

func mustExtractor[T any]() {
	if !IsExtractor[T]() {
		panic(fmt.Sprintf("pipeline: handler parameter %s implements neither Extractor nor PartsExtractor", reflect.TypeFor[T]()))
	}
}
