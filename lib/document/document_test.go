package document

import (
	"encoding/json"
	"math"
	"sort"
	"testing"
	"time"
)

func TestCompareTotalOrder(t *testing.T) {
	date := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	// ascending by the documented kind order
	ordered := []Value{
		Absent(),
		Null(),
		Number(math.NaN()),
		Number(-1),
		Number(0),
		Number(2.5),
		String(""),
		String("A"),
		String("a"),
		Doc(MustFields("a", 1)),
		Doc(MustFields("a", 2)),
		Doc(MustFields("a", 2, "b", 1)),
		Array(),
		Array(Int(1)),
		Array(Int(1), Int(2)),
		Array(Int(2)),
		Bool(false),
		Bool(true),
		Date(date),
		Date(date.Add(time.Second)),
	}

	for i := range ordered {
		for j := range ordered {
			want := 0
			if i < j {
				want = -1
			} else if i > j {
				want = 1
			}
			if got := Compare(ordered[i], ordered[j]); got != want {
				t.Errorf("Compare(%s, %s) = %d, want %d", ordered[i], ordered[j], got, want)
			}
		}
	}

	shuffled := make([]Value, len(ordered))
	for i := range ordered {
		shuffled[i] = ordered[len(ordered)-1-i]
	}
	sort.SliceStable(shuffled, func(i, j int) bool { return Compare(shuffled[i], shuffled[j]) < 0 })
	for i := range ordered {
		if !Equal(shuffled[i], ordered[i]) {
			t.Errorf("sorted[%d] = %s, want %s", i, shuffled[i], ordered[i])
		}
	}
}

func TestEqual(t *testing.T) {
	berlin := time.FixedZone("CEST", 2*60*60)
	instant := time.Date(2024, 5, 1, 12, 0, 0, 0, berlin)

	tests := []struct {
		name string
		a, b Value
		want bool
	}{
		{"numbers", Int(1), Number(1.0), true},
		{"number vs string", Int(1), String("1"), false},
		{"null vs absent", Null(), Absent(), false},
		{"dates by instant", Date(instant), Date(instant.UTC()), true},
		{"nested documents", Doc(MustFields("a", MustFields("b", 1))), Doc(MustFields("a", MustFields("b", 1))), true},
		{"field order matters", Doc(MustFields("a", 1, "b", 2)), Doc(MustFields("b", 2, "a", 1)), false},
		{"arrays", Array(Int(1), String("x")), Array(Int(1), String("x")), true},
		{"array length", Array(Int(1)), Array(Int(1), Int(1)), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Equal(tt.a, tt.b); got != tt.want {
				t.Errorf("Equal(%s, %s) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
			if got := CanonicalKey(tt.a) == CanonicalKey(tt.b); got != tt.want {
				t.Errorf("CanonicalKey equality for %s, %s = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestCanonicalKey(t *testing.T) {
	tests := []struct {
		v    Value
		want string
	}{
		{String("A1"), "s:A1"},
		{Int(1), "n:1"},
		{Number(math.Copysign(0, -1)), "n:0"},
		{Number(1.5), "n:1.5"},
		{Null(), "z:null"},
		{Absent(), "u:"},
		{Bool(true), "b:true"},
		{Date(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)), "d:2024-01-02T03:04:05Z"},
		{Array(String("a,b"), String("c")), `a:[s:"a,b",s:"c"]`},
	}
	for _, tt := range tests {
		if got := CanonicalKey(tt.v); got != tt.want {
			t.Errorf("CanonicalKey(%s) = %q, want %q", tt.v, got, tt.want)
		}
	}
}

func TestComparable(t *testing.T) {
	if !Comparable(Int(1), Int(2)) || !Comparable(String("a"), String("b")) {
		t.Errorf("same scalar kinds must be comparable")
	}
	if Comparable(Int(1), String("1")) {
		t.Errorf("number and string must not be comparable")
	}
	if Comparable(Absent(), Absent()) || Comparable(Null(), Null()) {
		t.Errorf("absent and null must not be comparable")
	}
	if Comparable(Array(), Array()) {
		t.Errorf("arrays must not be comparable")
	}
}

func TestFields(t *testing.T) {
	f := MustFields("nombre", "Max", "edad", 3)
	f.Set("especie", String("perro"))
	f.Set("nombre", String("Rex"))

	if got := f.Names(); len(got) != 3 || got[0] != "nombre" || got[2] != "especie" {
		t.Errorf("Names() = %v", got)
	}
	if s, _ := f.Get("nombre").AsString(); s != "Rex" {
		t.Errorf("Set should replace in place, got %s", s)
	}

	f.Set("edad", Absent())
	if f.Has("edad") {
		t.Errorf("setting absent should remove the field")
	}

	clone := f.Clone()
	clone.Set("nombre", String("Other"))
	if s, _ := f.Get("nombre").AsString(); s != "Rex" {
		t.Errorf("Clone must not share the field list")
	}

	merged := f.Merge(MustFields("especie", "gato", "chip", "A1"))
	if s, _ := merged.Get("especie").AsString(); s != "gato" || !merged.Has("chip") {
		t.Errorf("Merge = %s", Doc(merged))
	}
	if f.Has("chip") {
		t.Errorf("Merge must not modify the receiver")
	}
}

func TestLookup(t *testing.T) {
	f := MustFields(
		"propietario", MustFields("nombre", "Ana", "contacto", MustFields("email", "ana@x.com")),
		"vacunas", []any{"rabia", MustFields("nombre", "moquillo")},
		"edad", 4,
	)

	tests := []struct {
		path string
		want Value
	}{
		{"edad", Int(4)},
		{"propietario.nombre", String("Ana")},
		{"propietario.contacto.email", String("ana@x.com")},
		{"vacunas.0", String("rabia")},
		{"vacunas.1.nombre", String("moquillo")},
		{"vacunas.5", Absent()},
		{"edad.x", Absent()},
		{"missing.path", Absent()},
	}
	for _, tt := range tests {
		if got := f.Lookup(tt.path); !Equal(got, tt.want) {
			t.Errorf("Lookup(%q) = %s, want %s", tt.path, got, tt.want)
		}
	}
}

func TestValueOf(t *testing.T) {
	now := time.Now()
	tests := []struct {
		in   any
		want Value
	}{
		{nil, Null()},
		{int8(3), Int(3)},
		{uint64(7), Int(7)},
		{float32(0.5), Number(0.5)},
		{json.Number("12"), Int(12)},
		{"x", String("x")},
		{now, Date(now)},
		{[]string{"a", "b"}, Array(String("a"), String("b"))},
		{map[string]int{"b": 2, "a": 1}, Doc(MustFields("a", 1, "b", 2))},
	}
	for _, tt := range tests {
		got, err := ValueOf(tt.in)
		if err != nil {
			t.Errorf("ValueOf(%v) failed: %v", tt.in, err)
			continue
		}
		if !Equal(got, tt.want) {
			t.Errorf("ValueOf(%v) = %s, want %s", tt.in, got, tt.want)
		}
	}

	if _, err := ValueOf(struct{}{}); err == nil {
		t.Errorf("structs are not supported and should fail")
	}
	if _, err := NewFields("a"); err == nil {
		t.Errorf("odd argument count should fail")
	}
}

func TestJSONRoundTrip(t *testing.T) {
	created := time.Date(2024, 3, 1, 8, 30, 0, 123000000, time.UTC)
	doc := Document{Fields: MustFields(
		"_id", "0190c0de-0000-7000-8000-000000000001",
		"zeta", 1,
		"alpha", "first key stays second",
		"nested", MustFields("y", true, "x", nil),
		"list", []any{1.5, "two", created},
		"createdAt", created,
		"updatedAt", created,
	)}

	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}

	var decoded Document
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v\n%s", err, data)
	}

	if !Equal(Doc(decoded.Fields), Doc(doc.Fields)) {
		t.Errorf("round trip changed the document:\n got %s\nwant %s", Doc(decoded.Fields), Doc(doc.Fields))
	}
	if decoded.ID() != doc.ID() || !decoded.CreatedAt().Equal(created) {
		t.Errorf("accessors after round trip: id=%s createdAt=%s", decoded.ID(), decoded.CreatedAt())
	}
}

func TestJSONDateCoercion(t *testing.T) {
	var d Document
	err := json.Unmarshal([]byte(`{"_id":"1","createdAt":"2024-01-02T03:04:05Z","updatedAt":"not a date","fecha":"2024-01-02T03:04:05Z"}`), &d)
	if err != nil {
		t.Fatal(err)
	}
	if d.CreatedAt().IsZero() {
		t.Errorf("createdAt string should be coerced to a date")
	}
	if d.Get("updatedAt").Kind() != KindString {
		t.Errorf("unparseable updatedAt should stay a string")
	}
	if d.Get("fecha").Kind() != KindString {
		t.Errorf("only the timestamp fields are coerced on load")
	}
}

func TestJSONErrors(t *testing.T) {
	for _, in := range []string{`{"a":`, `[1,2`, `{"a":1} {}`, ``} {
		if _, err := ParseJSON([]byte(in)); err == nil {
			t.Errorf("ParseJSON(%q) should fail", in)
		}
	}
	if _, err := ParseFields([]byte(`[1]`)); err == nil {
		t.Errorf("ParseFields of an array should fail")
	}
}

func TestJSONSpecialNumbers(t *testing.T) {
	data, err := json.Marshal(Array(Number(math.NaN()), Number(math.Inf(1)), Int(10)))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "[null,null,10]" {
		t.Errorf("got %s", data)
	}
}
