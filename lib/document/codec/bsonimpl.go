package codec

import (
	"fmt"
	"sort"

	"github.com/ValentinKolb/petlaDB/lib/document"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NewBSONCodec creates a codec storing documents as BSON. Field order is kept.
// BSON dates have millisecond precision, finer parts of a date are dropped.
func NewBSONCodec() IDocCodec {
	return &bsonCodecImpl{}
}

type bsonCodecImpl struct {
}

// --------------------------------------------------------------------------
// Interface Methods (docu see codec.IDocCodec)
// --------------------------------------------------------------------------

func (c bsonCodecImpl) Name() string {
	return "bson"
}

func (c bsonCodecImpl) Encode(doc document.Document) ([]byte, error) {
	return bson.Marshal(toBSONDoc(doc.Fields))
}

func (c bsonCodecImpl) Decode(b []byte) (document.Document, error) {
	var raw bson.D
	if err := bson.Unmarshal(b, &raw); err != nil {
		return document.Document{}, err
	}
	f, err := fromBSONDoc(raw)
	if err != nil {
		return document.Document{}, err
	}
	return document.Document{Fields: f}, nil
}

// --------------------------------------------------------------------------
// Conversion helpers
// --------------------------------------------------------------------------

func toBSONDoc(f document.Fields) bson.D {
	d := make(bson.D, 0, len(f))
	for _, field := range f {
		if field.Value.IsAbsent() {
			continue
		}
		d = append(d, bson.E{Key: field.Name, Value: toBSON(field.Value)})
	}
	return d
}

func toBSON(v document.Value) any {
	switch v.Kind() {
	case document.KindBool:
		b, _ := v.AsBool()
		return b
	case document.KindNumber:
		n, _ := v.AsNumber()
		return n
	case document.KindString:
		s, _ := v.AsString()
		return s
	case document.KindDate:
		t, _ := v.AsDate()
		return primitive.NewDateTimeFromTime(t)
	case document.KindDocument:
		f, _ := v.AsDocument()
		return toBSONDoc(f)
	case document.KindArray:
		arr, _ := v.AsArray()
		a := make(bson.A, len(arr))
		for i, e := range arr {
			a[i] = toBSON(e)
		}
		return a
	default:
		return nil
	}
}

func fromBSONDoc(d bson.D) (document.Fields, error) {
	f := make(document.Fields, 0, len(d))
	for _, e := range d {
		v, err := fromBSON(e.Value)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", e.Key, err)
		}
		f.Set(e.Key, v)
	}
	return f, nil
}

func fromBSON(x any) (document.Value, error) {
	switch t := x.(type) {
	case nil, primitive.Null, primitive.Undefined:
		return document.Null(), nil
	case bool:
		return document.Bool(t), nil
	case int32:
		return document.Number(float64(t)), nil
	case int64:
		return document.Number(float64(t)), nil
	case float64:
		return document.Number(t), nil
	case string:
		return document.String(t), nil
	case primitive.DateTime:
		return document.Date(t.Time()), nil
	case primitive.ObjectID:
		return document.String(t.Hex()), nil
	case bson.D:
		f, err := fromBSONDoc(t)
		if err != nil {
			return document.Value{}, err
		}
		return document.Doc(f), nil
	case bson.M:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		d := make(bson.D, 0, len(t))
		for _, k := range keys {
			d = append(d, bson.E{Key: k, Value: t[k]})
		}
		f, err := fromBSONDoc(d)
		if err != nil {
			return document.Value{}, err
		}
		return document.Doc(f), nil
	case bson.A:
		arr := make([]document.Value, len(t))
		for i, e := range t {
			v, err := fromBSON(e)
			if err != nil {
				return document.Value{}, err
			}
			arr[i] = v
		}
		return document.Array(arr...), nil
	default:
		return document.Value{}, fmt.Errorf("unsupported BSON type %T", x)
	}
}
