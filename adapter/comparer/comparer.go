// Package comparer contains the default [domain.Comparer] implementation.
package comparer

import (
	"cmp"
	"strings"

	"github.com/ramiroaisen/nedb-types/adapter/data"
	"github.com/ramiroaisen/nedb-types/domain"
)

// Comparer implements [domain.Comparer]. Values of different kinds are
// ordered undefined < null < number < string < bool < date < array < object.
type Comparer struct {
	compareStrings func(a, b string) int
}

// NewComparer returns a new implementation of [domain.Comparer].
func NewComparer(options ...Option) domain.Comparer {
	opts := Options{
		StringComparer: strings.Compare,
	}
	for _, option := range options {
		option(&opts)
	}
	if opts.StringComparer == nil {
		opts.StringComparer = strings.Compare
	}
	return &Comparer{compareStrings: opts.StringComparer}
}

// Comparable implements [domain.Comparer].
func (c *Comparer) Comparable(a, b data.Value) bool {
	if a.Kind() != b.Kind() {
		return false
	}
	switch a.Kind() {
	case data.KindNumber, data.KindString, data.KindDate:
		return true
	default:
		return false
	}
}

// Compare implements [domain.Comparer].
func (c *Comparer) Compare(a, b data.Value) int {
	if a.Kind() != b.Kind() {
		return cmp.Compare(a.Kind(), b.Kind())
	}
	switch a.Kind() {
	case data.KindNumber:
		x, _ := a.AsNumber()
		y, _ := b.AsNumber()
		return cmp.Compare(x, y)
	case data.KindString:
		x, _ := a.AsString()
		y, _ := b.AsString()
		return c.compareStrings(x, y)
	case data.KindBool:
		x, _ := a.AsBool()
		y, _ := b.AsBool()
		switch {
		case x == y:
			return 0
		case x:
			return 1
		default:
			return -1
		}
	case data.KindDate:
		x, _ := a.AsDate()
		y, _ := b.AsDate()
		return x.Compare(y)
	case data.KindArray:
		x, _ := a.AsArray()
		y, _ := b.AsArray()
		return c.compareArrays(x, y)
	case data.KindObject:
		x, _ := a.AsObject()
		y, _ := b.AsObject()
		return c.compareObjects(x, y)
	case data.KindRegex:
		x, _ := a.AsRegex()
		y, _ := b.AsRegex()
		return strings.Compare(x.String(), y.String())
	default:
		return 0
	}
}

func (c *Comparer) compareArrays(a, b []data.Value) int {
	for i := range min(len(a), len(b)) {
		if comp := c.Compare(a[i], b[i]); comp != 0 {
			return comp
		}
	}
	return cmp.Compare(len(a), len(b))
}

func (c *Comparer) compareObjects(a, b data.Object) int {
	aKeys, bKeys := a.Keys(), b.Keys()
	for i := range min(len(aKeys), len(bKeys)) {
		if comp := strings.Compare(aKeys[i], bKeys[i]); comp != 0 {
			return comp
		}
		if comp := c.Compare(a[aKeys[i]], b[bKeys[i]]); comp != 0 {
			return comp
		}
	}
	return cmp.Compare(len(aKeys), len(bKeys))
}
