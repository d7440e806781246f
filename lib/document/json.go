package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"
)

// DateKey is the single key of the JSON object that encodes a date
const DateKey = "$date"

// dateLayouts are accepted when a plain string is coerced to a date
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
}

// ParseDate parses an RFC 3339 timestamp
func ParseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// --------------------------------------------------------------------------
// Encoding
// --------------------------------------------------------------------------

func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := writeJSON(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (f Fields) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := writeJSON(&buf, Doc(f)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (d Document) MarshalJSON() ([]byte, error) {
	return d.Fields.MarshalJSON()
}

func writeJSON(buf *bytes.Buffer, v Value) error {
	switch v.kind {
	case KindAbsent, KindNull:
		buf.WriteString("null")
	case KindBool:
		buf.WriteString(strconv.FormatBool(v.b))
	case KindNumber:
		if math.IsNaN(v.n) || math.IsInf(v.n, 0) {
			// not representable in JSON
			buf.WriteString("null")
			return nil
		}
		b, err := json.Marshal(v.n)
		if err != nil {
			return err
		}
		buf.Write(b)
	case KindString:
		b, err := json.Marshal(v.s)
		if err != nil {
			return err
		}
		buf.Write(b)
	case KindDate:
		buf.WriteString(`{"` + DateKey + `":"`)
		buf.WriteString(v.t.UTC().Format(time.RFC3339Nano))
		buf.WriteString(`"}`)
	case KindDocument:
		buf.WriteByte('{')
		first := true
		for _, f := range v.doc {
			if f.Value.IsAbsent() {
				continue
			}
			if !first {
				buf.WriteByte(',')
			}
			first = false
			name, err := json.Marshal(f.Name)
			if err != nil {
				return err
			}
			buf.Write(name)
			buf.WriteByte(':')
			if err := writeJSON(buf, f.Value); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case KindArray:
		buf.WriteByte('[')
		for i, e := range v.arr {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeJSON(buf, e); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	default:
		return fmt.Errorf("document: cannot encode kind %d", v.kind)
	}
	return nil
}

// --------------------------------------------------------------------------
// Decoding
// --------------------------------------------------------------------------

var errNotObject = errors.New("document: expected a JSON object")

func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := ParseJSON(data)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func (f *Fields) UnmarshalJSON(data []byte) error {
	v, err := ParseJSON(data)
	if err != nil {
		return err
	}
	doc, ok := v.AsDocument()
	if !ok {
		return errNotObject
	}
	*f = doc
	return nil
}

// UnmarshalJSON decodes a stored document. Plain RFC 3339 strings in createdAt and
// updatedAt are coerced to dates, so hand written or legacy data loads as well.
func (d *Document) UnmarshalJSON(data []byte) error {
	var f Fields
	if err := f.UnmarshalJSON(data); err != nil {
		return err
	}
	for _, name := range []string{FieldCreatedAt, FieldUpdatedAt} {
		if s, ok := f.Get(name).AsString(); ok {
			if t, ok := ParseDate(s); ok {
				f.Set(name, Date(t))
			}
		}
	}
	d.Fields = f
	return nil
}

// ParseJSON decodes one JSON value, keeping the order of object keys.
// Objects of the form {"$date": "<RFC 3339>"} become dates.
func ParseJSON(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := parseValue(dec)
	if err != nil {
		return Value{}, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return Value{}, fmt.Errorf("document: unexpected data after JSON value")
	}
	return v, nil
}

// ParseFields decodes a JSON object into Fields
func ParseFields(data []byte) (Fields, error) {
	var f Fields
	if err := f.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return f, nil
}

func parseValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		if err == io.EOF {
			return Value{}, io.ErrUnexpectedEOF
		}
		return Value{}, err
	}

	switch t := tok.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case string:
		return String(t), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("document: invalid number %s: %w", t, err)
		}
		return Number(f), nil
	case json.Delim:
		switch t {
		case '{':
			return parseObject(dec)
		case '[':
			return parseArray(dec)
		}
	}
	return Value{}, fmt.Errorf("document: unexpected token %v", tok)
}

func parseObject(dec *json.Decoder) (Value, error) {
	f := Fields{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return Value{}, err
		}
		name, ok := tok.(string)
		if !ok {
			return Value{}, fmt.Errorf("document: invalid object key %v", tok)
		}
		v, err := parseValue(dec)
		if err != nil {
			return Value{}, err
		}
		f.Set(name, v)
	}
	if _, err := dec.Token(); err != nil { // closing '}'
		return Value{}, err
	}

	if len(f) == 1 && f[0].Name == DateKey {
		if s, ok := f[0].Value.AsString(); ok {
			if t, ok := ParseDate(s); ok {
				return Date(t), nil
			}
		}
	}
	return Doc(f), nil
}

func parseArray(dec *json.Decoder) (Value, error) {
	arr := []Value{}
	for dec.More() {
		v, err := parseValue(dec)
		if err != nil {
			return Value{}, err
		}
		arr = append(arr, v)
	}
	if _, err := dec.Token(); err != nil { // closing ']'
		return Value{}, err
	}
	return Array(arr...), nil
}
