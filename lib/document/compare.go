package document

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// typeRank defines the order between kinds:
// absent < null < number < string < document < array < bool < date
var typeRank = [...]int{
	KindAbsent:   0,
	KindNull:     1,
	KindNumber:   2,
	KindString:   3,
	KindDocument: 4,
	KindArray:    5,
	KindBool:     6,
	KindDate:     7,
}

// Compare returns -1, 0 or +1 following the total order over all values.
// Values of different kinds are ordered by kind. Within a kind numbers compare
// numerically (NaN first), strings bytewise, bools false < true, dates by instant,
// documents field by field (name, then value) and arrays element by element,
// the shorter one first when one is a prefix of the other.
func Compare(a, b Value) int {
	if ra, rb := typeRank[a.kind], typeRank[b.kind]; ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}

	switch a.kind {
	case KindNumber:
		return compareNumbers(a.n, b.n)
	case KindString:
		return strings.Compare(a.s, b.s)
	case KindBool:
		switch {
		case a.b == b.b:
			return 0
		case !a.b:
			return -1
		default:
			return 1
		}
	case KindDate:
		return a.t.Compare(b.t)
	case KindDocument:
		for i := 0; i < len(a.doc) && i < len(b.doc); i++ {
			if c := strings.Compare(a.doc[i].Name, b.doc[i].Name); c != 0 {
				return c
			}
			if c := Compare(a.doc[i].Value, b.doc[i].Value); c != 0 {
				return c
			}
		}
		return compareInts(len(a.doc), len(b.doc))
	case KindArray:
		for i := 0; i < len(a.arr) && i < len(b.arr); i++ {
			if c := Compare(a.arr[i], b.arr[i]); c != 0 {
				return c
			}
		}
		return compareInts(len(a.arr), len(b.arr))
	default:
		// absent and null have a single value each
		return 0
	}
}

func compareNumbers(a, b float64) int {
	aNaN, bNaN := math.IsNaN(a), math.IsNaN(b)
	switch {
	case aNaN && bNaN:
		return 0
	case aNaN:
		return -1
	case bNaN:
		return 1
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareInts(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Equal reports deep equality: same kind and Compare == 0. Dates are equal when
// they denote the same instant.
func Equal(a, b Value) bool {
	return a.kind == b.kind && Compare(a, b) == 0
}

// Comparable reports whether an ordering operator ($gt, $gte, $lt, $lte) may be
// applied to the pair: both values must be numbers, strings, dates or bools.
func Comparable(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNumber, KindString, KindDate, KindBool:
		return true
	default:
		return false
	}
}

// CanonicalKey returns a string that is equal for two values exactly when Equal
// reports them equal. Keys carry a kind prefix, so 1 and "1" never collide.
// The absent value gets its own key, distinct from null.
func CanonicalKey(v Value) string {
	var sb strings.Builder
	writeCanonical(&sb, v, false)
	return sb.String()
}

// nested strings are quoted so separators inside them stay unambiguous
func writeCanonical(sb *strings.Builder, v Value, nested bool) {
	switch v.kind {
	case KindAbsent:
		sb.WriteString("u:")
	case KindNull:
		sb.WriteString("z:null")
	case KindBool:
		sb.WriteString("b:")
		sb.WriteString(strconv.FormatBool(v.b))
	case KindNumber:
		sb.WriteString("n:")
		n := v.n
		if n == 0 {
			n = 0 // folds -0 into 0
		}
		sb.WriteString(strconv.FormatFloat(n, 'g', -1, 64))
	case KindString:
		sb.WriteString("s:")
		if nested {
			sb.WriteString(strconv.Quote(v.s))
		} else {
			sb.WriteString(v.s)
		}
	case KindDate:
		sb.WriteString("d:")
		sb.WriteString(v.t.UTC().Format(time.RFC3339Nano))
	case KindDocument:
		sb.WriteString("o:{")
		for i, f := range v.doc {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(strconv.Quote(f.Name))
			sb.WriteByte('=')
			writeCanonical(sb, f.Value, true)
		}
		sb.WriteByte('}')
	case KindArray:
		sb.WriteString("a:[")
		for i, e := range v.arr {
			if i > 0 {
				sb.WriteByte(',')
			}
			writeCanonical(sb, e, true)
		}
		sb.WriteByte(']')
	}
}
