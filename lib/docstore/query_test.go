package docstore

import (
	"errors"
	"testing"
	"time"

	"github.com/ValentinKolb/petlaDB/lib/document"
)

var f = document.MustFields

func sampleDocument() document.Document {
	return document.Document{Fields: f(
		"_id", "1",
		"nombre", "Max",
		"edad", 3,
		"peso", 12.5,
		"tags", []any{"a", "b"},
		"dueño", f("nombre", "Ana"),
		"vacunado", true,
		"nacimiento", time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		"nulo", nil,
	)}
}

func TestQueryMatching(t *testing.T) {
	doc := sampleDocument()

	tests := []struct {
		name   string
		filter Filter
		legacy bool
		strict bool
	}{
		{"empty filter", nil, true, true},
		{"literal number", f("edad", 3), true, true},
		{"literal kind mismatch", f("edad", "3"), false, false},
		{"literal bool", f("vacunado", true), true, true},
		{"literal null", f("nulo", nil), true, true},
		{"missing field is not null", f("missing", nil), false, false},
		{"literal array", f("tags", []any{"a", "b"}), true, true},
		{"dotted path", f("dueño.nombre", "Ana"), true, true},
		{"array index path", f("tags.1", "b"), true, true},
		{"implicit and", f("nombre", "Max", "edad", 4), false, false},

		{"$gt", f("edad", f("$gt", 2)), true, true},
		{"$gt equal", f("edad", f("$gt", 3)), false, false},
		{"$gte inclusive", f("edad", f("$gte", 3)), true, true},
		{"$lt", f("edad", f("$lt", 4)), true, true},
		{"$lte", f("edad", f("$lte", 2)), false, false},
		{"$gt kind mismatch", f("edad", f("$gt", "2")), false, false},
		{"$gt strings", f("nombre", f("$gt", "A")), true, true},
		{"$gte dates", f("nacimiento", f("$gte", time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC))), true, true},
		{"$lt absent", f("missing", f("$lt", 10)), false, false},
		{"range", f("edad", f("$gt", 2, "$lt", 3)), false, false},

		{"$ne", f("edad", f("$ne", 4)), true, true},
		{"$ne same", f("edad", f("$ne", 3)), false, false},
		{"$ne absent", f("missing", f("$ne", 1)), true, true},
		{"$in", f("edad", f("$in", []any{1, 3})), true, true},
		{"$in miss", f("edad", f("$in", []any{1, "3"})), false, false},
		{"$nin", f("edad", f("$nin", []any{3})), false, false},
		{"$nin absent", f("missing", f("$nin", []any{3})), true, true},

		{"$exists true", f("edad", f("$exists", true)), true, true},
		{"$exists null counts", f("nulo", f("$exists", true)), true, true},
		{"$exists false", f("missing", f("$exists", false)), true, true},
		{"$exists false present", f("edad", f("$exists", false)), false, false},

		{"$regex", f("nombre", f("$regex", "^M")), true, true},
		{"$regex no match", f("nombre", f("$regex", "^R")), false, false},
		{"$regex on number", f("edad", f("$regex", "3")), false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, strict := range []bool{false, true} {
				q, err := compileQuery(tt.filter, strict)
				if err != nil {
					t.Fatalf("compileQuery(strict=%t) failed: %v", strict, err)
				}
				want := tt.legacy
				if strict {
					want = tt.strict
				}
				if got := q.matches(doc); got != want {
					t.Errorf("matches(strict=%t) = %t, want %t", strict, got, want)
				}
			}
		})
	}
}

func TestLegacyOperatorFallback(t *testing.T) {
	doc := sampleDocument()

	// unknown operators compare their argument with the field value
	q, err := compileQuery(f("edad", f("$foo", 3)), false)
	if err != nil {
		t.Fatal(err)
	}
	if !q.matches(doc) {
		t.Errorf("unknown operator should fall back to equality")
	}

	// a plain sub document is read as operators, so it does not match the nested value
	q, err = compileQuery(f("dueño", f("nombre", "Ana")), false)
	if err != nil {
		t.Fatal(err)
	}
	if q.matches(doc) {
		t.Errorf("legacy mode should treat a sub document as operators")
	}

	q, err = compileQuery(f("dueño", f("nombre", "Ana")), true)
	if err != nil {
		t.Fatal(err)
	}
	if !q.matches(doc) {
		t.Errorf("strict mode should match a sub document literally")
	}

	// $in without an array never matches in legacy mode
	q, err = compileQuery(f("edad", f("$in", 3)), false)
	if err != nil {
		t.Fatal(err)
	}
	if q.matches(doc) {
		t.Errorf("$in with a non array argument should not match")
	}
}

func TestInvalidQueries(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		legacy bool // rejected in legacy mode as well
	}{
		{"unknown operator", f("edad", f("$foo", 1)), false},
		{"mixed condition", f("edad", f("$gt", 1, "x", 2)), false},
		{"$in without array", f("edad", f("$in", 3)), false},
		{"$nin without array", f("edad", f("$nin", "x")), false},
		{"$exists without bool", f("edad", f("$exists", 1)), false},
		{"invalid regex", f("nombre", f("$regex", "(")), true},
		{"regex not a string", f("nombre", f("$regex", 1)), true},
		{"empty path", document.Fields{{Name: "", Value: document.Int(1)}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := compileQuery(tt.filter, true); !errors.Is(err, ErrInvalidQuery) {
				t.Errorf("strict: expected ErrInvalidQuery, got %v", err)
			}
			_, err := compileQuery(tt.filter, false)
			if tt.legacy && !errors.Is(err, ErrInvalidQuery) {
				t.Errorf("legacy: expected ErrInvalidQuery, got %v", err)
			}
			if !tt.legacy && err != nil {
				t.Errorf("legacy: expected no error, got %v", err)
			}
		})
	}
}

func TestSortAndPaginate(t *testing.T) {
	var docs []document.Document
	for i, x := range []any{5, 1, nil, 4, 2, 3, "a"} {
		fields := f("_id", string(rune('a'+i)))
		if x != nil {
			fields.Set("x", document.MustValue(x))
		}
		docs = append(docs, document.Document{Fields: fields})
	}

	sortDocuments(docs, []SortField{{Field: "x", Order: 1}})
	var got []string
	for _, d := range docs {
		got = append(got, d.Lookup("x").String())
	}
	want := []string{"<absent>", "1", "2", "3", "4", "5", `"a"`}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ascending order = %v, want %v", got, want)
		}
	}

	page := paginate(docs, 1, 2)
	if len(page) != 2 || page[0].Lookup("x").String() != "1" || page[1].Lookup("x").String() != "2" {
		t.Errorf("paginate(1, 2) returned %v", page)
	}
	if len(paginate(docs, 10, 0)) != 0 {
		t.Errorf("skip beyond the end should return nothing")
	}
	if len(paginate(docs, 0, 0)) != len(docs) {
		t.Errorf("limit 0 should return everything")
	}

	sortDocuments(docs, []SortField{{Field: "x", Order: -1}})
	if docs[0].Lookup("x").String() != `"a"` {
		t.Errorf("descending order should start with the string, got %s", docs[0].Lookup("x"))
	}
}

func TestValidateFindOptions(t *testing.T) {
	for _, opts := range []*FindOptions{
		{Skip: -1},
		{Limit: -1},
		{Sort: []SortField{{Field: "x", Order: 0}}},
		{Sort: []SortField{{Field: "", Order: 1}}},
	} {
		if err := validateFindOptions(opts); err == nil {
			t.Errorf("validateFindOptions(%+v) should fail", opts)
		}
	}
	if err := validateFindOptions(&FindOptions{Sort: []SortField{{Field: "x", Order: -1}}, Skip: 1, Limit: 2}); err != nil {
		t.Errorf("valid options rejected: %v", err)
	}
}
