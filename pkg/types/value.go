package types

import (
	"fmt"
	"strconv"
)

// Kind tags the payload held by a Value.
type Kind int

// Value kinds. The zero Kind is Null so the zero Value is a valid NULL.
const (
	KindNull Kind = iota
	KindReal
	KindInteger
	KindText
)

// String returns the lower-case kind name.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindReal:
		return "real"
	case KindInteger:
		return "integer"
	case KindText:
		return "text"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is a single column value. The tag always matches the payload:
// values are only built through the constructors below.
type Value struct {
	kind Kind
	f    float64
	i    int64
	s    string
}

// Real returns a Value holding a float.
func Real(f float64) Value { return Value{kind: KindReal, f: f} }

// Integer returns a Value holding an integer.
func Integer(i int64) Value { return Value{kind: KindInteger, i: i} }

// Text returns a Value holding a string.
func Text(s string) Value { return Value{kind: KindText, s: s} }

// Null returns the NULL Value.
func Null() Value { return Value{} }

// Kind reports the tag of v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is NULL.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Float returns the payload of a Real value, or def for any other kind.
func (v Value) Float(def float64) float64 {
	if v.kind != KindReal {
		return def
	}
	return v.f
}

// Int returns the payload of an Integer value, or def for any other kind.
func (v Value) Int(def int64) int64 {
	if v.kind != KindInteger {
		return def
	}
	return v.i
}

// Str returns the payload of a Text value, or def for any other kind.
func (v Value) Str(def string) string {
	if v.kind != KindText {
		return def
	}
	return v.s
}

// String renders v for diagnostics.
func (v Value) String() string {
	switch v.kind {
	case KindReal:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindInteger:
		return strconv.FormatInt(v.i, 10)
	case KindText:
		return strconv.Quote(v.s)
	default:
		return "NULL"
	}
}

// GoString implements fmt.GoStringer so test failures print the tag.
func (v Value) GoString() string {
	return fmt.Sprintf("types.Value{%s: %s}", v.kind, v)
}

// Row is one result row keyed by column name.
type Row map[string]Value

// Get returns the named column, or NULL when the column is absent.
func (r Row) Get(column string) Value {
	return r[column]
}

// Table is an ordered sequence of rows in driver result order.
type Table []Row
