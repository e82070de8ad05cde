// Package data contains the variant value tree used to represent documents,
// filters and update expressions, along with the path traversal rules shared
// by the matcher, the modifier and the indexes.
package data

import (
	"math"
	"regexp"
	"time"
)

// Kind identifies the variant held by a [Value]. Kinds that can be stored in
// a document are declared in the order used to sort values of different
// kinds.
type Kind uint8

// Available kinds. The zero [Value] is [KindUndefined], which represents a
// missing field.
const (
	KindUndefined Kind = iota
	KindNull
	KindNumber
	KindString
	KindBool
	KindDate
	KindArray
	KindObject
	// KindRegex and KindPredicate only appear in filters.
	KindRegex
	KindPredicate
)

var kindNames = [...]string{
	KindUndefined: "undefined",
	KindNull:      "null",
	KindNumber:    "number",
	KindString:    "string",
	KindBool:      "bool",
	KindDate:      "date",
	KindArray:     "array",
	KindObject:    "object",
	KindRegex:     "regex",
	KindPredicate: "predicate",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Predicate is a user function evaluated by the $where operator.
type Predicate func(Object) (bool, error)

// Value is a node of the variant tree. Values are immutable by convention:
// every function in this module that needs to change one works on a copy
// made with [Value.Clone].
type Value struct {
	kind Kind
	num  float64
	str  string
	b    bool
	t    time.Time
	arr  []Value
	obj  Object
	re   *regexp.Regexp
	fn   Predicate
}

// Undefined returns the value of a missing field.
func Undefined() Value { return Value{} }

// Null returns a null value.
func Null() Value { return Value{kind: KindNull} }

// Number returns a numeric value.
func Number(n float64) Value { return Value{kind: KindNumber, num: n} }

// Int returns a numeric value from an int.
func Int(n int) Value { return Number(float64(n)) }

// String returns a textual value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Date returns a date value. Dates are kept with millisecond precision, the
// precision of the datafile.
func Date(t time.Time) Value {
	return Value{kind: KindDate, t: time.UnixMilli(t.UnixMilli())}
}

// Array returns an array holding the given elements.
func Array(elems ...Value) Value {
	if elems == nil {
		elems = []Value{}
	}
	return Value{kind: KindArray, arr: elems}
}

// Regex returns a value holding a compiled regular expression.
func Regex(re *regexp.Regexp) Value { return Value{kind: KindRegex, re: re} }

// Where returns a value holding a predicate.
func Where(fn Predicate) Value { return Value{kind: KindPredicate, fn: fn} }

// Kind returns the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// Defined reports whether v is anything other than a missing field.
func (v Value) Defined() bool { return v.kind != KindUndefined }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsNumber returns the number held by v.
func (v Value) AsNumber() (float64, bool) { return v.num, v.kind == KindNumber }

// AsInt returns the number held by v if it is integral.
func (v Value) AsInt() (int, bool) {
	if v.kind != KindNumber || v.num != math.Trunc(v.num) || math.IsInf(v.num, 0) {
		return 0, false
	}
	return int(v.num), true
}

// AsString returns the text held by v.
func (v Value) AsString() (string, bool) { return v.str, v.kind == KindString }

// AsBool returns the boolean held by v.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsDate returns the date held by v.
func (v Value) AsDate() (time.Time, bool) { return v.t, v.kind == KindDate }

// AsArray returns the elements held by v. The slice is shared with v and
// must not be modified.
func (v Value) AsArray() ([]Value, bool) { return v.arr, v.kind == KindArray }

// AsObject returns the object held by v. The map is shared with v and must
// not be modified.
func (v Value) AsObject() (Object, bool) { return v.obj, v.kind == KindObject }

// AsRegex returns the regular expression held by v.
func (v Value) AsRegex() (*regexp.Regexp, bool) { return v.re, v.kind == KindRegex }

// AsPredicate returns the predicate held by v.
func (v Value) AsPredicate() (Predicate, bool) { return v.fn, v.kind == KindPredicate }

// Truthy follows the loose truth rules used by $exists: false, null,
// undefined, zero and the empty string are false.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindUndefined, KindNull:
		return false
	case KindBool:
		return v.b
	case KindNumber:
		return v.num != 0 && !math.IsNaN(v.num)
	case KindString:
		return v.str != ""
	default:
		return true
	}
}

// Clone returns a deep copy of v.
func (v Value) Clone() Value {
	switch v.kind {
	case KindArray:
		cp := make([]Value, len(v.arr))
		for i, el := range v.arr {
			cp[i] = el.Clone()
		}
		return Value{kind: KindArray, arr: cp}
	case KindObject:
		return v.obj.Clone().Value()
	default:
		return v
	}
}

// Native converts v into plain Go values: map[string]any, []any, float64,
// string, bool, time.Time or nil.
func (v Value) Native() any {
	switch v.kind {
	case KindNumber:
		return v.num
	case KindString:
		return v.str
	case KindBool:
		return v.b
	case KindDate:
		return v.t
	case KindArray:
		res := make([]any, len(v.arr))
		for i, el := range v.arr {
			res[i] = el.Native()
		}
		return res
	case KindObject:
		return v.obj.Native()
	case KindRegex:
		return v.re
	case KindPredicate:
		return v.fn
	default:
		return nil
	}
}
