package document

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"time"
)

// ValueOf converts a plain Go value into a Value.
//
// Supported are nil, bool, all integer and float types, string, time.Time,
// json.Number, Value, Fields, Document, maps with string keys (keys sorted, since
// Go maps have no order) and slices or arrays of any supported type.
func ValueOf(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		return t, nil
	case Fields:
		return Doc(t), nil
	case Document:
		return Doc(t.Fields), nil
	case bool:
		return Bool(t), nil
	case string:
		return String(t), nil
	case time.Time:
		return Date(t), nil
	case *time.Time:
		if t == nil {
			return Null(), nil
		}
		return Date(*t), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("document: invalid number %q: %w", t, err)
		}
		return Number(f), nil
	case float64:
		return Number(t), nil
	case int:
		return Number(float64(t)), nil
	case map[string]any:
		f, err := FieldsOf(t)
		if err != nil {
			return Value{}, err
		}
		return Doc(f), nil
	case []any:
		arr := make([]Value, len(t))
		for i, e := range t {
			v, err := ValueOf(e)
			if err != nil {
				return Value{}, err
			}
			arr[i] = v
		}
		return Array(arr...), nil
	}

	rv := reflect.ValueOf(x)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Number(float64(rv.Int())), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return Number(float64(rv.Uint())), nil
	case reflect.Float32, reflect.Float64:
		return Number(rv.Float()), nil
	case reflect.String:
		return String(rv.String()), nil
	case reflect.Bool:
		return Bool(rv.Bool()), nil
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return Null(), nil
		}
		return ValueOf(rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return Null(), nil
		}
		arr := make([]Value, rv.Len())
		for i := range arr {
			v, err := ValueOf(rv.Index(i).Interface())
			if err != nil {
				return Value{}, err
			}
			arr[i] = v
		}
		return Array(arr...), nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return Value{}, fmt.Errorf("document: unsupported map key type %s", rv.Type().Key())
		}
		keys := make([]string, 0, rv.Len())
		for _, k := range rv.MapKeys() {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		f := make(Fields, 0, len(keys))
		for _, k := range keys {
			v, err := ValueOf(rv.MapIndex(reflect.ValueOf(k).Convert(rv.Type().Key())).Interface())
			if err != nil {
				return Value{}, fmt.Errorf("document: field %s: %w", k, err)
			}
			f.Set(k, v)
		}
		return Doc(f), nil
	}

	return Value{}, fmt.Errorf("document: unsupported type %T", x)
}

// MustValue is ValueOf that panics on error. Meant for literals in tests and fixtures.
func MustValue(x any) Value {
	v, err := ValueOf(x)
	if err != nil {
		panic(err)
	}
	return v
}

// FieldsOf converts a map into Fields with keys in sorted order
func FieldsOf(m map[string]any) (Fields, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	f := make(Fields, 0, len(keys))
	for _, k := range keys {
		v, err := ValueOf(m[k])
		if err != nil {
			return nil, fmt.Errorf("document: field %s: %w", k, err)
		}
		f.Set(k, v)
	}
	return f, nil
}

// NewFields builds Fields from alternating name/value arguments, keeping their order:
//
//	document.NewFields("nombre", "Max", "chip", "A1")
func NewFields(pairs ...any) (Fields, error) {
	if len(pairs)%2 != 0 {
		return nil, fmt.Errorf("document: odd number of arguments to NewFields")
	}
	f := make(Fields, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		name, ok := pairs[i].(string)
		if !ok {
			return nil, fmt.Errorf("document: field name at position %d is %T, not string", i, pairs[i])
		}
		v, err := ValueOf(pairs[i+1])
		if err != nil {
			return nil, fmt.Errorf("document: field %s: %w", name, err)
		}
		f.Set(name, v)
	}
	return f, nil
}

// MustFields is NewFields that panics on error
func MustFields(pairs ...any) Fields {
	f, err := NewFields(pairs...)
	if err != nil {
		panic(err)
	}
	return f
}
