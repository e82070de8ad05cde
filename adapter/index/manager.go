package index

import (
	"maps"
	"slices"
	"time"

	"github.com/ramiroaisen/nedb-types/adapter/comparer"
	"github.com/ramiroaisen/nedb-types/adapter/data"
	"github.com/ramiroaisen/nedb-types/adapter/hasher"
	"github.com/ramiroaisen/nedb-types/domain"
)

// Manager implements [domain.IndexManager].
type Manager struct {
	indexes map[string]domain.Index
	options []Option
}

// NewManager returns a new implementation of [domain.IndexManager] holding
// only the identifier index.
func NewManager(options ...Option) domain.IndexManager {
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
	m := &Manager{
		indexes: make(map[string]domain.Index),
		options: []Option{WithComparer(opts.Comparer), WithHasher(opts.Hasher)},
	}
	// a non-empty field name never fails
	m.indexes[data.IDField], _ = NewIndex(domain.IndexDTO{FieldName: data.IDField, Unique: true}, m.options...)
	return m
}

// sorted returns the indexes ordered by field name.
func (m *Manager) sorted() []domain.Index {
	res := make([]domain.Index, 0, len(m.indexes))
	for _, field := range slices.Sorted(maps.Keys(m.indexes)) {
		res = append(res, m.indexes[field])
	}
	return res
}

// rollback runs undo functions in reverse order.
func rollback(undos []domain.Undo) {
	for _, undo := range slices.Backward(undos) {
		undo()
	}
}

// Add implements [domain.IndexManager].
func (m *Manager) Add(docs ...domain.Document) error {
	undos := make([]domain.Undo, 0, len(m.indexes))
	for _, idx := range m.sorted() {
		undo, err := idx.Insert(docs...)
		if err != nil {
			rollback(undos)
			return err
		}
		undos = append(undos, undo)
	}
	return nil
}

// Remove implements [domain.IndexManager].
func (m *Manager) Remove(docs ...domain.Document) {
	for _, idx := range m.indexes {
		idx.Remove(docs...)
	}
}

// Update implements [domain.IndexManager].
func (m *Manager) Update(pairs ...domain.Update) error {
	oldDocs := make([]domain.Document, len(pairs))
	newDocs := make([]domain.Document, len(pairs))
	for n, pair := range pairs {
		oldDocs[n], newDocs[n] = pair.OldDoc, pair.NewDoc
	}

	undos := make([]domain.Undo, 0, 2*len(m.indexes))
	for _, idx := range m.sorted() {
		undos = append(undos, idx.Remove(oldDocs...))
		undo, err := idx.Insert(newDocs...)
		if err != nil {
			rollback(undos)
			return err
		}
		undos = append(undos, undo)
	}
	return nil
}

// Candidates implements [domain.IndexManager]. It prefers an equality on an
// indexed field, then $in, then range operators, and falls back to every
// document. Fields are tried in ascending order.
func (m *Manager) Candidates(query domain.Document) ([]string, error) {
	if _, ok := query["$where"]; ok {
		return m.indexes[data.IDField].GetAll(), nil
	}

	fields := make([]string, 0, len(query))
	for _, field := range query.Keys() {
		if _, ok := m.indexes[field]; ok {
			fields = append(fields, field)
		}
	}

	for _, field := range fields {
		if isEqualityKey(query[field]) {
			return m.indexes[field].GetMatching(query[field])
		}
	}

	for _, field := range fields {
		ops, ok := query[field].AsObject()
		if !ok {
			continue
		}
		if in, ok := ops["$in"].AsArray(); ok {
			return m.indexes[field].GetMatching(in...)
		}
	}

	for _, field := range fields {
		ops, ok := query[field].AsObject()
		if !ok {
			continue
		}
		for _, op := range []string{"$lt", "$lte", "$gt", "$gte"} {
			if _, ok := ops[op]; ok {
				return m.indexes[field].GetBetweenBounds(ops)
			}
		}
	}

	return m.indexes[data.IDField].GetAll(), nil
}

// isEqualityKey reports whether a query value is a literal that can be looked
// up as a single index key.
func isEqualityKey(v data.Value) bool {
	switch v.Kind() {
	case data.KindNull, data.KindNumber, data.KindString, data.KindBool, data.KindDate:
		return true
	default:
		return false
	}
}

// Expired implements [domain.IndexManager].
func (m *Manager) Expired(doc domain.Document, now time.Time) bool {
	for _, idx := range m.indexes {
		if idx.ExpireAfter() <= 0 {
			continue
		}
		t, ok := doc.Get(idx.FieldName()).AsDate()
		if ok && now.After(t.Add(idx.ExpireAfter())) {
			return true
		}
	}
	return false
}

// Ensure implements [domain.IndexManager].
func (m *Manager) Ensure(dto domain.IndexDTO, docs []domain.Document) error {
	if _, ok := m.indexes[dto.FieldName]; ok {
		return nil
	}
	if dto.ExpireAfter < 0 {
		return domain.ErrIndexField{FieldName: dto.FieldName, Reason: "expiration must not be negative"}
	}
	idx, err := NewIndex(dto, m.options...)
	if err != nil {
		return err
	}
	if _, err := idx.Insert(docs...); err != nil {
		return err
	}
	m.indexes[dto.FieldName] = idx
	return nil
}

// Drop implements [domain.IndexManager].
func (m *Manager) Drop(fieldName string) error {
	if fieldName == data.IDField {
		return domain.ErrIndexField{FieldName: fieldName, Reason: "the identifier index cannot be removed"}
	}
	delete(m.indexes, fieldName)
	return nil
}

// Reset implements [domain.IndexManager].
func (m *Manager) Reset(docs []domain.Document) error {
	for _, idx := range m.indexes {
		idx.Reset()
	}
	return m.Add(docs...)
}

// Indexes implements [domain.IndexManager].
func (m *Manager) Indexes() map[string]domain.IndexDTO {
	res := make(map[string]domain.IndexDTO, len(m.indexes))
	for field, idx := range m.indexes {
		if field != data.IDField {
			res[field] = idx.DTO()
		}
	}
	return res
}

// Get implements [domain.IndexManager].
func (m *Manager) Get(fieldName string) (domain.Index, bool) {
	idx, ok := m.indexes[fieldName]
	return idx, ok
}
