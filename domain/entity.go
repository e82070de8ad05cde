package domain

import (
	"time"

	"github.com/ramiroaisen/nedb-types/adapter/data"
)

// Datafile markers.
const (
	DeletedKey      = "$$deleted"
	IndexCreatedKey = "$$indexCreated"
	IndexRemovedKey = "$$indexRemoved"
	SnapshotKey     = "$$snapshot"
)

// Timestamp fields maintained when timestamping is enabled.
const (
	CreatedAtField = "createdAt"
	UpdatedAtField = "updatedAt"
)

// IndexDTO is the persisted definition of an index.
type IndexDTO struct {
	FieldName   string
	Unique      bool
	Sparse      bool
	ExpireAfter time.Duration
}

// CreatedRecord returns the datafile record announcing the index.
func (i IndexDTO) CreatedRecord() Document {
	def := data.Object{
		"fieldName": data.String(i.FieldName),
		"unique":    data.Bool(i.Unique),
		"sparse":    data.Bool(i.Sparse),
	}
	if i.ExpireAfter > 0 {
		def["expireAfterSeconds"] = data.Number(i.ExpireAfter.Seconds())
	}
	return Document{IndexCreatedKey: def.Value()}
}

// IndexRemovedRecord returns the datafile record announcing the removal of
// the index on fieldName.
func IndexRemovedRecord(fieldName string) Document {
	return Document{IndexRemovedKey: data.String(fieldName)}
}

// DeletedRecord returns the datafile record announcing the removal of the
// document with the given identifier.
func DeletedRecord(id string) Document {
	return Document{
		data.IDField: data.String(id),
		DeletedKey:   data.Bool(true),
	}
}

// SnapshotRecord returns the marker written at the top of a compacted
// datafile.
func SnapshotRecord(at time.Time, count int) Document {
	return Document{SnapshotKey: data.Object{
		"at":    data.Date(at),
		"count": data.Int(count),
	}.Value()}
}

// Update represents a pair of documents used in index update operations,
// containing both the old and new versions of a document.
type Update struct {
	OldDoc Document
	NewDoc Document
}

// Sort represents an ordered list of fields which should be used to sort query
// results, applied in sequence.
type Sort = []SortName

// SortName represents a single field and the order which should be used to sort
// it. A positive Order value means ascending order and a negative value means
// descending order.
type SortName struct {
	Key   string
	Order int64
}

// UpdateResult reports the outcome of an update.
type UpdateResult struct {
	// NumAffected is the number of updated or upserted documents.
	NumAffected int64
	// Upserted is true when no document matched and one was inserted.
	Upserted bool
	// Documents holds the updated or upserted documents when
	// [WithReturnUpdatedDocs] is set.
	Documents []Document
}

// QueryOptions describes a query executed by a [Querier].
type QueryOptions struct {
	// Query specifies the criteria for filtering documents.
	Query Document
	// Skip specifies the number of documents to skip.
	Skip int64
	// Limit specifies the maximum number of documents to return. Zero
	// means no limit.
	Limit int64
	// Sort specifies the sort order for results.
	Sort Sort
	// Projection specifies which fields to include or exclude.
	Projection map[string]int
}
