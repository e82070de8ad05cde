// Package matcher contains the default implementation of [domain.Matcher]
// using basic mongo-like match API.
package matcher

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ramiroaisen/nedb-types/adapter/comparer"
	"github.com/ramiroaisen/nedb-types/adapter/data"
	"github.com/ramiroaisen/nedb-types/domain"
	"github.com/ramiroaisen/nedb-types/pkg/errs"
)

var (
	// ErrMixedOperators is returned when user provides a query with mixed
	// use of normal fields and operators.
	ErrMixedOperators = fmt.Errorf("%w: cannot mix operators and normal fields", errs.ErrValidation)
)

// ErrUnknownOperator is returned when user provides an unknown top level
// dollar field.
type ErrUnknownOperator struct {
	Operator string
}

// Error implements [error].
func (e ErrUnknownOperator) Error() string {
	return fmt.Sprintf("unknown logical operator %q", e.Operator)
}

// Unwrap implements the interface used by [errors.Is].
func (e ErrUnknownOperator) Unwrap() error { return errs.ErrValidation }

// ErrUnknownComparison is returned when an unknown compare field is provided.
type ErrUnknownComparison struct {
	Comparison string
}

// Error implements [error].
func (e ErrUnknownComparison) Error() string {
	return fmt.Sprintf("unknown comparison function %q", e.Comparison)
}

// Unwrap implements the interface used by [errors.Is].
func (e ErrUnknownComparison) Unwrap() error { return errs.ErrValidation }

// ErrCompArgType is returned when an operator is called with an argument of
// invalid type.
type ErrCompArgType struct {
	Comp   string
	Want   string
	Actual data.Kind
}

// Error implements [error].
func (e ErrCompArgType) Error() string {
	return fmt.Sprintf("%s value should be of type %s, got %s", e.Comp, e.Want, e.Actual)
}

// Unwrap implements the interface used by [errors.Is].
func (e ErrCompArgType) Unwrap() error { return errs.ErrValidation }

// wrapKey is the field primitive values are placed under so that they can be
// matched like documents.
const wrapKey = "needAKey"

// Matcher implements [domain.Matcher].
type Matcher struct {
	comparer domain.Comparer
}

// NewMatcher returns a new implementation of domain.Matcher.
func NewMatcher(options ...Option) domain.Matcher {
	m := &Matcher{
		comparer: comparer.NewComparer(),
	}
	for _, option := range options {
		option(m)
	}
	return m
}

// Match implements [domain.Matcher].
func (m *Matcher) Match(value data.Value, query data.Value) (bool, error) {
	if !query.Defined() || query.IsNull() {
		return true, nil
	}
	q, qIsObj := query.AsObject()
	if _, isObj := value.AsObject(); !isObj || !qIsObj {
		doc := data.Object{wrapKey: value}.Value()
		return m.matchPart(doc, []string{wrapKey}, query, false)
	}
	for _, key := range q.Keys() {
		var (
			ok  bool
			err error
		)
		if strings.HasPrefix(key, "$") {
			ok, err = m.logical(key, value, q[key])
		} else {
			ok, err = m.matchPart(value, data.SplitPath(key), q[key], false)
		}
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func (m *Matcher) logical(op string, value, arg data.Value) (bool, error) {
	switch op {
	case "$or", "$and":
		subs, ok := arg.AsArray()
		if !ok {
			return false, ErrCompArgType{Comp: op, Want: "array", Actual: arg.Kind()}
		}
		for _, sub := range subs {
			matches, err := m.Match(value, sub)
			if err != nil {
				return false, err
			}
			if op == "$or" && matches {
				return true, nil
			}
			if op == "$and" && !matches {
				return false, nil
			}
		}
		return op == "$and", nil
	case "$not":
		matches, err := m.Match(value, arg)
		return !matches && err == nil, err
	case "$where":
		fn, ok := arg.AsPredicate()
		if !ok {
			return false, ErrCompArgType{Comp: op, Want: "predicate", Actual: arg.Kind()}
		}
		doc, _ := value.AsObject()
		return fn(doc)
	default:
		return false, ErrUnknownOperator{Operator: op}
	}
}

// matchPart matches the value found at path against a query part, which is
// either a literal or an object of comparison operators.
func (m *Matcher) matchPart(doc data.Value, path []string, query data.Value, treatArrayAsValue bool) (bool, error) {
	fieldValue := doc.Lookup(path)

	if elems, ok := fieldValue.AsArray(); ok && !treatArrayAsValue {
		if query.Kind() == data.KindArray {
			return m.matchPart(doc, path, query, true)
		}
		if q, ok := query.AsObject(); ok {
			if _, size := q["$size"]; size {
				return m.matchPart(doc, path, query, true)
			}
			if _, elemMatch := q["$elemMatch"]; elemMatch {
				return m.matchPart(doc, path, query, true)
			}
		}
		for _, el := range elems {
			wrapped := data.Object{"k": el}.Value()
			matches, err := m.matchPart(wrapped, []string{"k"}, query, false)
			if err != nil || matches {
				return matches, err
			}
		}
		return false, nil
	}

	if q, ok := query.AsObject(); ok {
		keys := q.Keys()
		dollar := 0
		for _, k := range keys {
			if strings.HasPrefix(k, "$") {
				dollar++
			}
		}
		if dollar > 0 && dollar != len(keys) {
			return false, ErrMixedOperators
		}
		if dollar > 0 {
			for _, k := range keys {
				matches, err := m.compare(k, fieldValue, q[k])
				if err != nil || !matches {
					return false, err
				}
			}
			return true, nil
		}
	}

	if re, ok := query.AsRegex(); ok {
		return m.regex(fieldValue, re), nil
	}

	return data.Equal(fieldValue, query), nil
}

func (m *Matcher) compare(op string, a, b data.Value) (bool, error) {
	switch op {
	case "$lt":
		return m.comparer.Comparable(a, b) && m.comparer.Compare(a, b) < 0, nil
	case "$lte":
		return m.comparer.Comparable(a, b) && m.comparer.Compare(a, b) <= 0, nil
	case "$gt":
		return m.comparer.Comparable(a, b) && m.comparer.Compare(a, b) > 0, nil
	case "$gte":
		return m.comparer.Comparable(a, b) && m.comparer.Compare(a, b) >= 0, nil
	case "$ne":
		return !a.Defined() || !data.Equal(a, b), nil
	case "$in", "$nin":
		list, ok := b.AsArray()
		if !ok {
			return false, ErrCompArgType{Comp: op, Want: "array", Actual: b.Kind()}
		}
		found := false
		for _, el := range list {
			if data.Equal(a, el) {
				found = true
				break
			}
		}
		return found == (op == "$in"), nil
	case "$regex":
		re, err := m.toRegex(b)
		if err != nil {
			return false, err
		}
		return m.regex(a, re), nil
	case "$exists":
		want := b.Truthy()
		if s, ok := b.AsString(); ok && s == "" {
			want = true
		}
		return a.Defined() == want, nil
	case "$size":
		n, ok := b.AsInt()
		if !ok {
			return false, ErrCompArgType{Comp: op, Want: "integer", Actual: b.Kind()}
		}
		elems, isArr := a.AsArray()
		return isArr && len(elems) == n, nil
	case "$elemMatch":
		elems, ok := a.AsArray()
		if !ok {
			return false, nil
		}
		for _, el := range elems {
			matches, err := m.Match(el, b)
			if err != nil || matches {
				return matches, err
			}
		}
		return false, nil
	default:
		return false, ErrUnknownComparison{Comparison: op}
	}
}

func (m *Matcher) toRegex(v data.Value) (*regexp.Regexp, error) {
	if re, ok := v.AsRegex(); ok {
		return re, nil
	}
	if s, ok := v.AsString(); ok {
		re, err := regexp.Compile(s)
		if err != nil {
			return nil, fmt.Errorf("%w: $regex: %w", errs.ErrValidation, err)
		}
		return re, nil
	}
	return nil, ErrCompArgType{Comp: "$regex", Want: "regex", Actual: v.Kind()}
}

func (m *Matcher) regex(v data.Value, re *regexp.Regexp) bool {
	s, ok := v.AsString()
	return ok && re.MatchString(s)
}
