// Package index contains the default [domain.Index] and
// [domain.IndexManager] implementations.
package index

import (
	"slices"
	"time"

	"github.com/ramiroaisen/nedb-types/adapter/comparer"
	"github.com/ramiroaisen/nedb-types/adapter/data"
	"github.com/ramiroaisen/nedb-types/adapter/hasher"
	"github.com/ramiroaisen/nedb-types/domain"
	"github.com/ramiroaisen/nedb-types/pkg/uncomparable"
	"github.com/vinicius-lino-figueiredo/bst"
)

// Index implements [domain.Index].
type Index struct {
	dto      domain.IndexDTO
	fields   []string
	comparer domain.Comparer
	hasher   domain.Hasher
	tree     *tree
	// keys caches the keys each identifier was indexed under, so a
	// document can be removed without recomputing them.
	keys map[string][]data.Value
}

// NewIndex returns a new implementation of [domain.Index].
func NewIndex(dto domain.IndexDTO, options ...Option) (domain.Index, error) {
	if dto.FieldName == "" {
		return nil, domain.ErrIndexField{Reason: "field name is required"}
	}
	opts := Options{}
	for _, option := range options {
		option(&opts)
	}
	if opts.Comparer == nil {
		opts.Comparer = comparer.NewComparer()
	}
	if opts.Hasher == nil {
		opts.Hasher = hasher.NewHasher()
	}
	return &Index{
		dto:      dto,
		fields:   data.SplitPath(dto.FieldName),
		comparer: opts.Comparer,
		hasher:   opts.Hasher,
		tree:     newTree(dto.Unique, opts.Comparer),
		keys:     make(map[string][]data.Value),
	}, nil
}

// FieldName implements [domain.Index].
func (i *Index) FieldName() string { return i.dto.FieldName }

// Unique implements [domain.Index].
func (i *Index) Unique() bool { return i.dto.Unique }

// Sparse implements [domain.Index].
func (i *Index) Sparse() bool { return i.dto.Sparse }

// ExpireAfter implements [domain.Index].
func (i *Index) ExpireAfter() time.Duration { return i.dto.ExpireAfter }

// DTO implements [domain.Index].
func (i *Index) DTO() domain.IndexDTO { return i.dto }

// Reset implements [domain.Index].
func (i *Index) Reset() {
	i.tree.reset()
	clear(i.keys)
}

// getKeys returns the distinct keys doc is indexed under. Arrays index
// each of their elements. A missing field is indexed as undefined unless the
// index is sparse.
func (i *Index) getKeys(doc domain.Document) []data.Value {
	value := doc.Value().Lookup(i.fields)
	if !value.Defined() {
		if i.dto.Sparse {
			return nil
		}
		return []data.Value{value}
	}
	elems, isArray := value.AsArray()
	if !isArray {
		return []data.Value{value}
	}
	seen := uncomparable.New[struct{}](i.hasher)
	keys := make([]data.Value, 0, len(elems))
	for _, el := range elems {
		if seen.Set(el, struct{}{}) {
			keys = append(keys, el)
		}
	}
	return keys
}

// Insert implements [domain.Index].
func (i *Index) Insert(docs ...domain.Document) (domain.Undo, error) {
	type entry struct {
		key data.Value
		id  string
	}
	var (
		inserted []entry
		previous = make(map[string][]data.Value)
	)
	undo := func() {
		for _, e := range slices.Backward(inserted) {
			i.tree.delete(e.key, e.id)
		}
		for id, keys := range previous {
			if keys == nil {
				delete(i.keys, id)
			} else {
				i.keys[id] = keys
			}
		}
	}

	for _, doc := range docs {
		id := doc.ID()
		keys := i.getKeys(doc)
		for _, key := range keys {
			violated, err := i.tree.insert(key, id)
			if err != nil {
				undo()
				if violated {
					return nil, domain.ErrUniqueViolation{FieldName: i.dto.FieldName, Key: key.Native()}
				}
				return nil, err
			}
			inserted = append(inserted, entry{key: key, id: id})
		}
		if len(keys) == 0 {
			continue
		}
		if _, saved := previous[id]; !saved {
			previous[id] = i.keys[id]
		}
		i.keys[id] = append(slices.Clone(i.keys[id]), keys...)
	}

	return undo, nil
}

// Remove implements [domain.Index].
func (i *Index) Remove(docs ...domain.Document) domain.Undo {
	removed := make(map[string][]data.Value, len(docs))
	for _, doc := range docs {
		id := doc.ID()
		keys, ok := i.keys[id]
		if !ok {
			continue
		}
		for _, key := range keys {
			i.tree.delete(key, id)
		}
		delete(i.keys, id)
		removed[id] = keys
	}
	return func() {
		for id, keys := range removed {
			for _, key := range keys {
				_, _ = i.tree.insert(key, id)
			}
			i.keys[id] = keys
		}
	}
}

// GetMatching implements [domain.Index].
func (i *Index) GetMatching(values ...data.Value) ([]string, error) {
	distinct := uncomparable.New[struct{}](i.hasher)
	for _, v := range values {
		distinct.Set(v, struct{}{})
	}
	keys := slices.SortedFunc(distinct.Keys(), i.comparer.Compare)

	var res []string
	for _, key := range keys {
		ids, err := i.tree.search(key)
		if err != nil {
			return nil, err
		}
		res = append(res, ids...)
	}
	return dedupe(res), nil
}

// GetBetweenBounds implements [domain.Index].
func (i *Index) GetBetweenBounds(bounds data.Object) ([]string, error) {
	var gt, lt *bst.Bound[data.Value]
	for _, op := range bounds.Keys() {
		v := bounds[op]
		switch op {
		case "$gt":
			gt = &bst.Bound[data.Value]{Value: v, IncludeEqual: false}
		case "$gte":
			gt = &bst.Bound[data.Value]{Value: v, IncludeEqual: true}
		case "$lt":
			lt = &bst.Bound[data.Value]{Value: v, IncludeEqual: false}
		case "$lte":
			lt = &bst.Bound[data.Value]{Value: v, IncludeEqual: true}
		}
	}
	ids, err := i.tree.between(gt, lt)
	if err != nil {
		return nil, err
	}
	return dedupe(ids), nil
}

// GetAll implements [domain.Index].
func (i *Index) GetAll() []string {
	return dedupe(i.tree.all())
}

// GetNumberOfKeys implements [domain.Index].
func (i *Index) GetNumberOfKeys() int {
	return i.tree.numberOfKeys()
}

// dedupe drops repeated identifiers, which appear when a document is indexed
// under several array elements. The first occurrence wins.
func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	res := ids[:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		res = append(res, id)
	}
	return res
}
