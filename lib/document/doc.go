// Package document defines the value model of the document store.
//
// A Document is an ordered mapping of field names to Values. Value is a tagged
// variant (absent, null, bool, number, string, date, document, array) instead of a
// plain interface{}, so the query matcher, the index maintenance and the codecs can
// switch on the kind and never guess at Go types.
//
// Ordering:
//
//	Compare defines one total order over all values:
//	absent < null < number < string < document < array < bool < date.
//	Sorting uses it directly. Ordering operators ($gt and friends) only apply to two
//	values of the same scalar kind (see Comparable).
//
// Equality and index keys:
//
//	Equal is deep equality (dates by instant). CanonicalKey maps values to strings
//	such that two keys are equal exactly when the values are; index maps and
//	Distinct use it. Keys are kind-prefixed ("s:A1", "n:1", "z:null").
//
// JSON form:
//
//	Documents keep their field order in JSON. Dates are written as
//	{"$date": "<RFC 3339>"}; when a Document is decoded, plain RFC 3339 strings in
//	createdAt and updatedAt are accepted as dates too.
package document
