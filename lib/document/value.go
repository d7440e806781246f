package document

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Kinds
// --------------------------------------------------------------------------

// Kind is the type tag of a Value
type Kind uint8

const (
	KindAbsent   Kind = iota // field not present (zero Value)
	KindNull                 // explicit null
	KindBool                 // true / false
	KindNumber               // float64
	KindString               // UTF-8 string
	KindDate                 // instant in time (UTC)
	KindDocument             // nested ordered mapping
	KindArray                // ordered list of values
)

func (k Kind) String() string {
	switch k {
	case KindAbsent:
		return "absent"
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindDate:
		return "date"
	case KindDocument:
		return "document"
	case KindArray:
		return "array"
	default:
		return "unknown"
	}
}

// --------------------------------------------------------------------------
// Value
// --------------------------------------------------------------------------

// Value is a tagged variant holding one document value. The zero Value is absent.
// Values are immutable once built, nested documents and arrays must not be modified
// after they were wrapped.
type Value struct {
	kind Kind
	b    bool
	n    float64
	s    string
	t    time.Time
	doc  Fields
	arr  []Value
}

// Absent returns the absent value (the zero Value)
func Absent() Value { return Value{} }

// Null returns an explicit null
func Null() Value { return Value{kind: KindNull} }

func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

func Number(n float64) Value { return Value{kind: KindNumber, n: n} }

// Int is a shorthand for Number(float64(i))
func Int(i int) Value { return Value{kind: KindNumber, n: float64(i)} }

func String(s string) Value { return Value{kind: KindString, s: s} }

// Date wraps an instant, the location is normalized to UTC
func Date(t time.Time) Value { return Value{kind: KindDate, t: t.UTC()} }

// Doc wraps a nested document
func Doc(f Fields) Value { return Value{kind: KindDocument, doc: f} }

// Array wraps a list of values
func Array(values ...Value) Value {
	if values == nil {
		values = []Value{}
	}
	return Value{kind: KindArray, arr: values}
}

// --------------------------------------------------------------------------
// Accessors
// --------------------------------------------------------------------------

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsAbsent() bool { return v.kind == KindAbsent }

func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

func (v Value) AsNumber() (float64, bool) { return v.n, v.kind == KindNumber }

func (v Value) AsString() (string, bool) { return v.s, v.kind == KindString }

func (v Value) AsDate() (time.Time, bool) { return v.t, v.kind == KindDate }

func (v Value) AsDocument() (Fields, bool) { return v.doc, v.kind == KindDocument }

func (v Value) AsArray() ([]Value, bool) { return v.arr, v.kind == KindArray }

// String renders the value for humans (logs, CLI tables), not for storage
func (v Value) String() string {
	switch v.kind {
	case KindAbsent:
		return "<absent>"
	case KindNull:
		return "null"
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindNumber:
		return strconv.FormatFloat(v.n, 'g', -1, 64)
	case KindString:
		return strconv.Quote(v.s)
	case KindDate:
		return v.t.Format(time.RFC3339Nano)
	case KindDocument:
		parts := make([]string, 0, len(v.doc))
		for _, f := range v.doc {
			parts = append(parts, fmt.Sprintf("%s: %s", f.Name, f.Value))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case KindArray:
		parts := make([]string, 0, len(v.arr))
		for _, e := range v.arr {
			parts = append(parts, e.String())
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return "<invalid>"
	}
}

// Interface converts the value to plain Go values: nil, bool, float64, string,
// time.Time, map[string]any and []any. Absent and null both become nil, and the
// field order of documents is lost.
func (v Value) Interface() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		return v.n
	case KindString:
		return v.s
	case KindDate:
		return v.t
	case KindDocument:
		return v.doc.Map()
	case KindArray:
		out := make([]any, len(v.arr))
		for i, e := range v.arr {
			out[i] = e.Interface()
		}
		return out
	default:
		return nil
	}
}
