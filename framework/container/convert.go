package container

import (
	"fmt"
	"reflect"
	"strconv"
	"time"
)

// Converter coerces literal definition values to declared types.
type Converter interface {
	Convert(value any, to reflect.Type) (any, error)
}

// DefaultConverter handles assignable values, strings to scalars and
// durations, scalars to strings, and numeric conversions.
type DefaultConverter struct{}

var durationType = reflect.TypeFor[time.Duration]()

func (DefaultConverter) Convert(value any, to reflect.Type) (any, error) {
	if value == nil {
		switch to.Kind() {
		case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
			return reflect.Zero(to).Interface(), nil
		}
		return nil, fmt.Errorf("%w: nil is not assignable to %s", ErrTypeMismatch, to)
	}

	from := reflect.TypeOf(value)
	if from.AssignableTo(to) {
		return value, nil
	}

	if s, ok := value.(string); ok {
		return parseString(s, to)
	}

	rv := reflect.ValueOf(value)
	switch {
	case to.Kind() == reflect.String && isScalar(from.Kind()):
		return reflect.ValueOf(fmt.Sprint(value)).Convert(to).Interface(), nil
	case isNumeric(from.Kind()) && isNumeric(to.Kind()):
		return rv.Convert(to).Interface(), nil
	case from.ConvertibleTo(to) && from.Kind() == to.Kind():
		return rv.Convert(to).Interface(), nil
	}
	return nil, fmt.Errorf("%w: cannot convert %s to %s", ErrTypeMismatch, from, to)
}

func parseString(s string, to reflect.Type) (any, error) {
	if to == durationType {
		d, err := time.ParseDuration(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a duration: %v", ErrTypeMismatch, s, err)
		}
		return d, nil
	}

	out := reflect.New(to).Elem()
	var err error
	switch to.Kind() {
	case reflect.String:
		out.SetString(s)
	case reflect.Bool:
		var b bool
		if b, err = strconv.ParseBool(s); err == nil {
			out.SetBool(b)
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		var n int64
		if n, err = strconv.ParseInt(s, 10, to.Bits()); err == nil {
			out.SetInt(n)
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		var n uint64
		if n, err = strconv.ParseUint(s, 10, to.Bits()); err == nil {
			out.SetUint(n)
		}
	case reflect.Float32, reflect.Float64:
		var f float64
		if f, err = strconv.ParseFloat(s, to.Bits()); err == nil {
			out.SetFloat(f)
		}
	case reflect.Interface:
		if reflect.TypeFor[string]().Implements(to) {
			return s, nil
		}
		fallthrough
	default:
		return nil, fmt.Errorf("%w: cannot convert string to %s", ErrTypeMismatch, to)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not a valid %s: %v", ErrTypeMismatch, s, to, err)
	}
	return out.Interface(), nil
}

// isPlainValueType reports whether t holds literals rather than beans.
// References assigned to such properties are used as their name.
func isPlainValueType(t reflect.Type) bool {
	return t != durationType && isScalar(t.Kind())
}

func isScalar(k reflect.Kind) bool {
	return k == reflect.String || k == reflect.Bool || isNumeric(k)
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
