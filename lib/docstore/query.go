package docstore

import (
	"math"
	"regexp"
	"slices"
	"strings"

	"github.com/ValentinKolb/petlaDB/lib/document"
)

// Filter maps field paths (dot notation) to conditions. A condition is either a
// literal, matched by equality, or an operator document such as {"$gte": 5}.
// All conditions must hold.
type Filter = document.Fields

// query operators
const (
	opGt     = "$gt"
	opGte    = "$gte"
	opLt     = "$lt"
	opLte    = "$lte"
	opNe     = "$ne"
	opIn     = "$in"
	opNin    = "$nin"
	opExists = "$exists"
	opRegex  = "$regex"
)

type operator struct {
	name string
	arg  document.Value
	re   *regexp.Regexp
}

type condition struct {
	path string
	// literal is used if ops is nil
	literal document.Value
	ops     []operator
}

// query is a compiled filter
type query struct {
	conds []condition
}

// compileQuery validates a filter and prepares it for matching.
//
// In legacy mode every document valued condition is an operator document and an
// unknown operator matches by equality against its argument. In strict mode a
// condition document is an operator document only if all its keys start with '$',
// unknown operators are rejected and mixing operators with plain keys is an error.
func compileQuery(filter Filter, strict bool) (*query, error) {
	q := &query{conds: make([]condition, 0, len(filter))}
	for _, f := range filter {
		if f.Name == "" {
			return nil, newError(CodeInvalidQuery, "empty field path in filter")
		}
		cond, err := compileCondition(f.Name, f.Value, strict)
		if err != nil {
			return nil, err
		}
		q.conds = append(q.conds, cond)
	}
	return q, nil
}

func compileCondition(path string, v document.Value, strict bool) (condition, error) {
	fields, isDoc := v.AsDocument()
	if !isDoc {
		return condition{path: path, literal: v}, nil
	}

	if strict {
		dollar := 0
		for _, f := range fields {
			if strings.HasPrefix(f.Name, "$") {
				dollar++
			}
		}
		switch {
		case dollar == 0:
			return condition{path: path, literal: v}, nil
		case dollar != len(fields):
			return condition{}, newError(CodeInvalidQuery,
				"condition on %s mixes operators and fields", path)
		}
	}

	ops := make([]operator, 0, len(fields))
	for _, f := range fields {
		op, err := compileOperator(path, f.Name, f.Value, strict)
		if err != nil {
			return condition{}, err
		}
		ops = append(ops, op)
	}
	return condition{path: path, ops: ops}, nil
}

func compileOperator(path, name string, arg document.Value, strict bool) (operator, error) {
	op := operator{name: name, arg: arg}
	switch name {
	case opGt, opGte, opLt, opLte, opNe:
	case opIn, opNin:
		if _, ok := arg.AsArray(); !ok && strict {
			return operator{}, newError(CodeInvalidQuery, "%s on %s needs an array, got %s", name, path, arg.Kind())
		}
	case opExists:
		if _, ok := arg.AsBool(); !ok && strict {
			return operator{}, newError(CodeInvalidQuery, "%s on %s needs a bool, got %s", name, path, arg.Kind())
		}
	case opRegex:
		pattern, ok := arg.AsString()
		if !ok {
			return operator{}, newError(CodeInvalidQuery, "%s on %s needs a string, got %s", name, path, arg.Kind())
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return operator{}, newError(CodeInvalidQuery, "invalid regular expression for %s: %v", path, err)
		}
		op.re = re
	default:
		if strict {
			return operator{}, newError(CodeInvalidQuery, "unknown operator %s on %s", name, path)
		}
	}
	return op, nil
}

// matches reports whether doc satisfies every condition
func (q *query) matches(doc document.Document) bool {
	for _, c := range q.conds {
		v := doc.Lookup(c.path)
		if c.ops == nil {
			if !document.Equal(v, c.literal) {
				return false
			}
			continue
		}
		for _, op := range c.ops {
			if !op.matches(v) {
				return false
			}
		}
	}
	return true
}

func (op operator) matches(v document.Value) bool {
	switch op.name {
	case opGt:
		return document.Comparable(v, op.arg) && document.Compare(v, op.arg) > 0
	case opGte:
		return document.Comparable(v, op.arg) && document.Compare(v, op.arg) >= 0
	case opLt:
		return document.Comparable(v, op.arg) && document.Compare(v, op.arg) < 0
	case opLte:
		return document.Comparable(v, op.arg) && document.Compare(v, op.arg) <= 0
	case opNe:
		return !document.Equal(v, op.arg)
	case opIn:
		arr, ok := op.arg.AsArray()
		return ok && contains(arr, v)
	case opNin:
		arr, ok := op.arg.AsArray()
		return !ok || !contains(arr, v)
	case opExists:
		return truthy(op.arg) == !v.IsAbsent()
	case opRegex:
		s, ok := v.AsString()
		return ok && op.re.MatchString(s)
	default:
		// unknown operator in legacy mode
		return document.Equal(v, op.arg)
	}
}

// equalities returns the literal equality conditions by path. They are used to
// narrow a scan through an index.
func (q *query) equalities() map[string]document.Value {
	var eq map[string]document.Value
	for _, c := range q.conds {
		if c.ops != nil {
			continue
		}
		if eq == nil {
			eq = map[string]document.Value{}
		}
		eq[c.path] = c.literal
	}
	return eq
}

func contains(arr []document.Value, v document.Value) bool {
	for _, e := range arr {
		if document.Equal(e, v) {
			return true
		}
	}
	return false
}

// truthy converts an $exists argument to a bool the way loose languages do
func truthy(v document.Value) bool {
	switch v.Kind() {
	case document.KindAbsent, document.KindNull:
		return false
	case document.KindBool:
		b, _ := v.AsBool()
		return b
	case document.KindNumber:
		n, _ := v.AsNumber()
		return n != 0 && !math.IsNaN(n)
	case document.KindString:
		s, _ := v.AsString()
		return s != ""
	default:
		return true
	}
}

// --------------------------------------------------------------------------
// Sorting and Pagination
// --------------------------------------------------------------------------

func validateFindOptions(opts *FindOptions) error {
	if opts == nil {
		return nil
	}
	if opts.Skip < 0 {
		return newError(CodeInvalidArgument, "skip must not be negative, got %d", opts.Skip)
	}
	if opts.Limit < 0 {
		return newError(CodeInvalidArgument, "limit must not be negative, got %d", opts.Limit)
	}
	for _, s := range opts.Sort {
		if s.Field == "" {
			return newError(CodeInvalidQuery, "empty sort field")
		}
		if s.Order != 1 && s.Order != -1 {
			return newError(CodeInvalidQuery, "sort order of %s must be 1 or -1, got %d", s.Field, s.Order)
		}
	}
	return nil
}

// sortDocuments orders docs by the sort keys (stable, first key wins)
func sortDocuments(docs []document.Document, keys []SortField) {
	if len(keys) == 0 {
		return
	}
	slices.SortStableFunc(docs, func(a, b document.Document) int {
		for _, k := range keys {
			if c := document.Compare(a.Lookup(k.Field), b.Lookup(k.Field)); c != 0 {
				return c * k.Order
			}
		}
		return 0
	})
}

// paginate applies skip and limit (0 = no limit)
func paginate(docs []document.Document, skip, limit int) []document.Document {
	if skip >= len(docs) {
		return docs[:0]
	}
	docs = docs[skip:]
	if limit > 0 && limit < len(docs) {
		docs = docs[:limit]
	}
	return docs
}
