package pipeline

import (
	"encoding"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"time"
)

// lookupFunc returns the raw value for a tagged field name.
type lookupFunc func(name string) (string, bool)

// bindTagged fills the exported fields of the struct pointed to by target
// whose tag key names a value known to lookup. Fields without a value fall
// back to their `default` tag.
func bindTagged(target any, key string, lookup lookupFunc, sentinel error) error {
	v := reflect.ValueOf(target)
	if v.Kind() == reflect.Pointer {
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return fmt.Errorf("%w: %s is not a struct", ErrNotExtractor, v.Type())
	}

	t := v.Type()
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}

		name := f.Tag.Get(key)
		if name == "" {
			continue
		}

		val, ok := lookup(name)
		if !ok || val == "" {
			val = f.Tag.Get("default")
		}
		if val == "" {
			continue
		}

		if err := setValue(v.Field(i), val); err != nil {
			return fmt.Errorf("%w: %s: %w", sentinel, name, err)
		}
	}

	return nil
}

func queryLookup(p Parts) lookupFunc {
	q := p.URL().Query()
	return func(name string) (string, bool) {
		if !q.Has(name) {
			return "", false
		}
		return q.Get(name), true
	}
}

func headerLookup(p Parts) lookupFunc {
	return func(name string) (string, bool) {
		vals := p.Header().Values(name)
		if len(vals) == 0 {
			return "", false
		}
		return vals[0], true
	}
}

func cookieLookup(p Parts) lookupFunc {
	hr := &http.Request{Header: p.Header()}
	return func(name string) (string, bool) {
		c, err := hr.Cookie(name)
		if err != nil {
			return "", false
		}
		return c.Value, true
	}
}

func pathLookup(p Parts) lookupFunc {
	return func(name string) (string, bool) {
		for _, param := range p.r.params {
			if param.Key == name {
				return param.Value, true
			}
		}
		return "", false
	}
}

var textUnmarshalerType = reflect.TypeFor[encoding.TextUnmarshaler]()

// setValue sets a reflect.Value from a string, supporting common types.
func setValue(field reflect.Value, value string) error {
	if field.Type() == reflect.TypeFor[time.Duration]() {
		d, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		field.Set(reflect.ValueOf(d))
		return nil
	}

	if field.CanAddr() && field.Addr().Type().Implements(textUnmarshalerType) {
		return field.Addr().Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(value))
	}

	//exhaustive:ignore
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(value, 10, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(value, 10, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetUint(n)
	case reflect.Float32, reflect.Float64:
		n, err := strconv.ParseFloat(value, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetFloat(n)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.Pointer:
		elem := reflect.New(field.Type().Elem())
		if err := setValue(elem.Elem(), value); err != nil {
			return err
		}
		field.Set(elem)
	default:
		return fmt.Errorf("unsupported type: %s", field.Type())
	}
	return nil
}

// supportsText reports whether setValue can parse into t.
func supportsText(t reflect.Type) bool {
	if t == reflect.TypeFor[time.Duration]() || reflect.PointerTo(t).Implements(textUnmarshalerType) {
		return true
	}
	//exhaustive:ignore
	switch t.Kind() {
	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	case reflect.Pointer:
		return supportsText(t.Elem())
	default:
		return false
	}
}
