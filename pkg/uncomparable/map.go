// Package uncomparable contains a map keyed by [data.Value], a type Go cannot
// use as a map key. Keys are bucketed by hash and told apart with
// [data.Equal].
package uncomparable

import (
	"iter"
	"slices"

	"github.com/ramiroaisen/nedb-types/adapter/data"
	"github.com/ramiroaisen/nedb-types/domain"
)

// Map represents a map[data.Value]T.
type Map[T any] struct {
	buckets map[uint64][]kv[T]
	hasher  domain.Hasher
	order   []data.Value
}

// New returns a new instance of [Map] using the given [domain.Hasher].
func New[T any](hasher domain.Hasher) *Map[T] {
	return &Map[T]{
		buckets: make(map[uint64][]kv[T]),
		hasher:  hasher,
	}
}

// Get returns the value for the given key with a bool to indicate whether it
// exists in the map or not.
func (m *Map[T]) Get(key data.Value) (T, bool) {
	for _, keyVal := range m.buckets[m.hasher.Hash(key)] {
		if equal(key, keyVal.key) {
			return keyVal.value, true
		}
	}
	return *new(T), false
}

// Set adds or replaces the given key in the map. It reports whether the key
// was added.
func (m *Map[T]) Set(key data.Value, value T) bool {
	h := m.hasher.Hash(key)
	bucket := m.buckets[h]
	for n, v := range bucket {
		if equal(key, v.key) {
			bucket[n].value = value
			return false
		}
	}
	m.buckets[h] = append(bucket, kv[T]{key: key, value: value})
	m.order = append(m.order, key)
	return true
}

// Keys returns the keys in insertion order.
func (m *Map[T]) Keys() iter.Seq[data.Value] {
	return slices.Values(m.order)
}

type kv[T any] struct {
	key   data.Value
	value T
}

// equal extends [data.Equal] so that undefined keys can be stored.
func equal(a, b data.Value) bool {
	if !a.Defined() || !b.Defined() {
		return a.Defined() == b.Defined()
	}
	return data.Equal(a, b)
}
