package document

import (
	"strconv"
	"strings"
	"time"
)

// Reserved field names every stored document carries
const (
	FieldID        = "_id"
	FieldCreatedAt = "createdAt"
	FieldUpdatedAt = "updatedAt"
)

// Field is one name/value pair of a document
type Field struct {
	Name  string
	Value Value
}

// Fields is an ordered mapping of field names to values. Names are unique.
// Setting an existing name replaces the value in place and keeps the position.
type Fields []Field

// Index returns the position of name or -1
func (f Fields) Index(name string) int {
	for i := range f {
		if f[i].Name == name {
			return i
		}
	}
	return -1
}

// Get returns the value of a top level field (absent if missing)
func (f Fields) Get(name string) Value {
	if i := f.Index(name); i >= 0 {
		return f[i].Value
	}
	return Value{}
}

// Has reports whether a top level field exists (explicit null counts as present)
func (f Fields) Has(name string) bool {
	return f.Index(name) >= 0
}

// Set replaces or appends a field. Setting an absent value removes the field.
func (f *Fields) Set(name string, v Value) {
	if v.IsAbsent() {
		f.Delete(name)
		return
	}
	if i := f.Index(name); i >= 0 {
		(*f)[i].Value = v
		return
	}
	*f = append(*f, Field{Name: name, Value: v})
}

// Delete removes a field, missing names are ignored
func (f *Fields) Delete(name string) {
	if i := f.Index(name); i >= 0 {
		*f = append((*f)[:i:i], (*f)[i+1:]...)
	}
}

// Names returns the field names in order
func (f Fields) Names() []string {
	names := make([]string, len(f))
	for i := range f {
		names[i] = f[i].Name
	}
	return names
}

// Clone returns a copy of the field list. Values are immutable and shared.
func (f Fields) Clone() Fields {
	if f == nil {
		return nil
	}
	out := make(Fields, len(f))
	copy(out, f)
	return out
}

// Merge returns a copy of f with every field of patch set over it (shallow merge:
// nested documents are replaced, not merged)
func (f Fields) Merge(patch Fields) Fields {
	out := f.Clone()
	for _, p := range patch {
		out.Set(p.Name, p.Value)
	}
	return out
}

// Map converts the fields to a map[string]any (see Value.Interface)
func (f Fields) Map() map[string]any {
	m := make(map[string]any, len(f))
	for _, field := range f {
		m[field.Name] = field.Value.Interface()
	}
	return m
}

// Lookup resolves a dotted path. Path segments walk into nested documents, numeric
// segments index into arrays. Anything that cannot be resolved is absent.
func (f Fields) Lookup(path string) Value {
	if !strings.Contains(path, ".") {
		return f.Get(path)
	}

	current := Doc(f)
	for _, segment := range strings.Split(path, ".") {
		switch current.kind {
		case KindDocument:
			current = current.doc.Get(segment)
		case KindArray:
			i, err := strconv.Atoi(segment)
			if err != nil || i < 0 || i >= len(current.arr) {
				return Value{}
			}
			current = current.arr[i]
		default:
			return Value{}
		}
	}
	return current
}

// --------------------------------------------------------------------------
// Document
// --------------------------------------------------------------------------

// Document is a stored record: its fields including _id, createdAt and updatedAt
type Document struct {
	Fields
}

// ID returns the _id field, empty if missing or not a string
func (d Document) ID() string {
	id, _ := d.Get(FieldID).AsString()
	return id
}

// CreatedAt returns the creation timestamp (zero if missing)
func (d Document) CreatedAt() time.Time {
	t, _ := d.Get(FieldCreatedAt).AsDate()
	return t
}

// UpdatedAt returns the modification timestamp (zero if missing)
func (d Document) UpdatedAt() time.Time {
	t, _ := d.Get(FieldUpdatedAt).AsDate()
	return t
}

// Clone returns a copy of the document
func (d Document) Clone() Document {
	return Document{Fields: d.Fields.Clone()}
}

// UserFields returns the fields without _id, createdAt and updatedAt
func (d Document) UserFields() Fields {
	out := make(Fields, 0, len(d.Fields))
	for _, f := range d.Fields {
		switch f.Name {
		case FieldID, FieldCreatedAt, FieldUpdatedAt:
			continue
		}
		out = append(out, f)
	}
	return out
}
