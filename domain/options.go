package domain

import "time"

// WithProjection specifies which fields to include or exclude from query
// results.
func WithProjection(p map[string]int) FindOption {
	return func(fo *FindOptions) {
		fo.Projection = p
	}
}

// WithSkip sets the number of documents to skip in query results.
func WithSkip(s int64) FindOption {
	return func(fo *FindOptions) {
		fo.Skip = s
	}
}

// WithLimit sets the maximum number of documents to return.
func WithLimit(l int64) FindOption {
	return func(fo *FindOptions) {
		fo.Limit = l
	}
}

// WithSort specifies the sort order for query results.
func WithSort(s Sort) FindOption {
	return func(fo *FindOptions) {
		fo.Sort = s
	}
}

// FindOption configures query behavior through the functional options pattern.
type FindOption func(*FindOptions)

// FindOptions contains parameters for customizing query execution.
type FindOptions struct {
	Projection map[string]int
	Skip       int64
	Limit      int64
	Sort       Sort
}

// WithUpdateMulti enables updating multiple documents that match the query.
func WithUpdateMulti(m bool) UpdateOption {
	return func(uo *UpdateOptions) {
		uo.Multi = m
	}
}

// WithUpsert enables inserting a document if no matches are found.
func WithUpsert(u bool) UpdateOption {
	return func(uo *UpdateOptions) {
		uo.Upsert = u
	}
}

// WithReturnUpdatedDocs fills [UpdateResult.Documents].
func WithReturnUpdatedDocs(r bool) UpdateOption {
	return func(uo *UpdateOptions) {
		uo.ReturnUpdatedDocs = r
	}
}

// UpdateOption configures update behavior through the functional options
// pattern.
type UpdateOption func(*UpdateOptions)

// UpdateOptions contains parameters for customizing update operations.
type UpdateOptions struct {
	// Multi enables updating multiple documents that match the query.
	Multi bool
	// Upsert enables inserting a document if no matches are found.
	Upsert bool
	// ReturnUpdatedDocs returns the modified documents.
	ReturnUpdatedDocs bool
}

// WithRemoveMulti enables removing multiple documents that match the query.
func WithRemoveMulti(m bool) RemoveOption {
	return func(ro *RemoveOptions) {
		ro.Multi = m
	}
}

// RemoveOption configures remove behavior through the functional options
// pattern.
type RemoveOption func(*RemoveOptions)

// RemoveOptions contains parameters for customizing remove operations.
type RemoveOptions struct {
	// Multi enables removing every document that matches the query.
	Multi bool
}

// WithFieldName sets the indexed field. Dotted paths index nested values.
func WithFieldName(f string) EnsureIndexOption {
	return func(eio *EnsureIndexOptions) {
		eio.FieldName = f
	}
}

// WithUnique creates a unique index that prevents duplicate values.
func WithUnique(u bool) EnsureIndexOption {
	return func(eio *EnsureIndexOptions) {
		eio.Unique = u
	}
}

// WithSparse creates a sparse index that skips documents lacking the field.
func WithSparse(s bool) EnsureIndexOption {
	return func(eio *EnsureIndexOptions) {
		eio.Sparse = s
	}
}

// WithExpireAfter creates a TTL index: documents whose indexed date is older
// than the given duration are removed.
func WithExpireAfter(e time.Duration) EnsureIndexOption {
	return func(eio *EnsureIndexOptions) {
		eio.ExpireAfter = e
	}
}

// EnsureIndexOption configures index creation through the functional options
// pattern.
type EnsureIndexOption func(*EnsureIndexOptions)

// EnsureIndexOptions contains parameters for customizing index creation.
type EnsureIndexOptions struct {
	FieldName   string
	Unique      bool
	Sparse      bool
	ExpireAfter time.Duration
}

// DTO returns the index definition described by the options.
func (e EnsureIndexOptions) DTO() IndexDTO {
	return IndexDTO{
		FieldName:   e.FieldName,
		Unique:      e.Unique,
		Sparse:      e.Sparse,
		ExpireAfter: e.ExpireAfter,
	}
}
