// Package domain contains the interfaces implemented by the adapters, the
// per-call option types and the error kinds of the database.
//
// Every behavior of the datastore is reached through one of these
// interfaces, so any of them can be replaced or mocked.
package domain

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/ramiroaisen/nedb-types/adapter/data"
)

// Document is a stored record. It is always an object and always carries a
// string identifier once inserted.
type Document = data.Object

// Undo reverses a single index mutation. Undo functions never fail.
type Undo = func()

// Comparer orders values of every kind.
type Comparer interface {
	// Compare returns -1, 0 or 1.
	Compare(a, b data.Value) int
	// Comparable reports whether two values take part in range operators.
	Comparable(a, b data.Value) bool
}

// Hasher hashes values so that equal values hash equally.
type Hasher interface {
	Hash(data.Value) uint64
}

// Matcher evaluates filters.
type Matcher interface {
	// Match reports whether value satisfies query. value is usually a
	// document but may be a primitive when matching array elements.
	Match(value data.Value, query data.Value) (bool, error)
}

// Modifier applies update expressions.
type Modifier interface {
	// Modify returns a new document with update applied. doc is never
	// changed.
	Modify(doc Document, update Document) (Document, error)
}

// Projector keeps or omits fields of query results.
type Projector interface {
	Project(docs []Document, projection map[string]int) ([]Document, error)
}

// Querier turns candidates into the final result set of a query.
type Querier interface {
	// Query filters, sorts, paginates and projects candidates.
	Query(candidates []Document, opts QueryOptions) ([]Document, error)
	// Count returns the number of candidates matching query.
	Count(candidates []Document, query Document) (int64, error)
}

// Serializer encodes a datafile record into a single line.
type Serializer interface {
	Serialize(ctx context.Context, record Document) ([]byte, error)
}

// Deserializer decodes a datafile line.
type Deserializer interface {
	Deserialize(ctx context.Context, line []byte) (Document, error)
}

// Transform is applied to every datafile line after serialization and before
// deserialization. Both methods must be inverse of each other.
type Transform interface {
	AfterSerialization([]byte) ([]byte, error)
	BeforeDeserialization([]byte) ([]byte, error)
}

// Storage provides low-level file operations with crash-safety guarantees.
type Storage interface {
	// AppendFile appends data to a file, creating it if necessary.
	AppendFile(ctx context.Context, filename string, mode os.FileMode, data []byte) (int, error)
	// Exists checks if a file exists.
	Exists(filename string) (bool, error)
	// EnsureParentDirectoryExists creates parent directories if needed.
	EnsureParentDirectoryExists(filename string, mode os.FileMode) error
	// EnsureDatafileIntegrity restores the datafile from its crash-safe
	// copy, or creates it empty.
	EnsureDatafileIntegrity(filename string, mode os.FileMode) error
	// CrashSafeWriteFileLines atomically replaces a file with the given
	// lines.
	CrashSafeWriteFileLines(ctx context.Context, filename string, lines [][]byte, dirMode, fileMode os.FileMode) error
	// ReadFileStream opens a file for streaming reads.
	ReadFileStream(ctx context.Context, filename string, mode os.FileMode) (io.ReadCloser, error)
	// Remove deletes a file.
	Remove(filename string) error
}

// Persistence keeps the datafile in sync with the in-memory state.
type Persistence interface {
	// LoadDatabase replays the datafile and returns the live documents and
	// index definitions.
	LoadDatabase(ctx context.Context) ([]Document, map[string]IndexDTO, error)
	// PersistNewState appends records to the datafile.
	PersistNewState(ctx context.Context, records ...Document) error
	// PersistCachedDatabase rewrites the datafile with the given state.
	PersistCachedDatabase(ctx context.Context, docs []Document, indexes map[string]IndexDTO) error
	// DropDatabase removes the datafile.
	DropDatabase(ctx context.Context) error
	// WaitCompaction blocks until the next compaction completes.
	WaitCompaction(ctx context.Context) error
	// InMemoryOnly reports whether the datafile is disabled.
	InMemoryOnly() bool
}

// Index maps the values of one field to document identifiers.
type Index interface {
	FieldName() string
	Unique() bool
	Sparse() bool
	ExpireAfter() time.Duration
	// DTO returns the persisted definition of the index.
	DTO() IndexDTO
	// Insert adds the documents. Either all of them are added or none.
	Insert(docs ...Document) (Undo, error)
	// Remove drops the documents. It never fails.
	Remove(docs ...Document) Undo
	// GetMatching returns the identifiers indexed under any of the values,
	// in index order.
	GetMatching(values ...data.Value) ([]string, error)
	// GetBetweenBounds returns the identifiers within the bounds of a
	// {$gt, $gte, $lt, $lte} object, in index order.
	GetBetweenBounds(bounds data.Object) ([]string, error)
	// GetAll returns every identifier in index order.
	GetAll() []string
	// GetNumberOfKeys returns the number of distinct keys.
	GetNumberOfKeys() int
	// Reset removes every entry.
	Reset()
}

// IndexManager coordinates the indexes of a datastore.
type IndexManager interface {
	// Add inserts the documents into every index, all or nothing.
	Add(docs ...Document) error
	// Remove drops the documents from every index.
	Remove(docs ...Document)
	// Update replaces index entries of each pair, all or nothing.
	Update(pairs ...Update) error
	// Candidates returns the identifiers worth matching against query.
	Candidates(query Document) ([]string, error)
	// Expired reports whether any TTL index considers doc stale at now.
	Expired(doc Document, now time.Time) bool
	// Ensure creates an index and fills it with docs. If the index cannot
	// hold docs it is not created.
	Ensure(dto IndexDTO, docs []Document) error
	// Drop removes an index. The identifier index cannot be removed.
	Drop(fieldName string) error
	// Reset rebuilds every index from docs. On failure every index is
	// left empty.
	Reset(docs []Document) error
	// Indexes returns the definitions of every index but the identifier
	// one.
	Indexes() map[string]IndexDTO
	// Get returns an index by field name.
	Get(fieldName string) (Index, bool)
}

// Decoder copies a document into a user-provided target.
type Decoder interface {
	Decode(source any, target any) error
}

// IDGenerator creates document identifiers.
type IDGenerator interface {
	GenerateID(l int) (string, error)
}

// TimeGetter provides current time for timestamping operations.
type TimeGetter interface {
	GetTime() time.Time
}

// Cursor builds a query lazily. Nothing runs until Exec, Scan or Count.
type Cursor interface {
	Skip(n int64) Cursor
	Limit(n int64) Cursor
	Sort(sort ...SortName) Cursor
	Projection(projection map[string]int) Cursor
	// Exec runs the query and returns copies of the matching documents.
	Exec(ctx context.Context) ([]Document, error)
	// Scan runs the query and decodes the results into target, which
	// must be a pointer to a slice.
	Scan(ctx context.Context, target any) error
	// Count returns the number of matching documents, ignoring skip,
	// limit, sort and projection.
	Count(ctx context.Context) (int64, error)
}

// Finder executes the queries built by a [Cursor].
type Finder interface {
	FindDocuments(ctx context.Context, opts QueryOptions) ([]Document, error)
	CountDocuments(ctx context.Context, query Document) (int64, error)
}

// DB defines the main interface for interacting with the embedded database.
// Every method is safe for concurrent use: operations run one at a time in
// submission order.
type DB interface {
	// LoadDatabase replays the datafile. Operations issued before it on a
	// persistent database wait until it completes.
	LoadDatabase(ctx context.Context) error
	// DropDatabase removes every document and index and deletes the
	// datafile.
	DropDatabase(ctx context.Context) error
	// CompactDatafile rewrites the datafile with the current state only.
	CompactDatafile(ctx context.Context) error
	// SetAutocompactionInterval compacts the datafile periodically.
	SetAutocompactionInterval(interval time.Duration)
	// StopAutocompaction stops periodic compaction.
	StopAutocompaction()
	// WaitCompaction blocks until the next compaction completes.
	WaitCompaction(ctx context.Context) error
	// GetAllData returns a copy of every live document.
	GetAllData(ctx context.Context) ([]Document, error)
	// EnsureIndex creates an index if it does not exist.
	EnsureIndex(ctx context.Context, options ...EnsureIndexOption) error
	// RemoveIndex removes an index by field name.
	RemoveIndex(ctx context.Context, fieldName string) error
	// Insert stores the documents, all or nothing, and returns the stored
	// versions.
	Insert(ctx context.Context, newDocs ...any) ([]Document, error)
	// Find returns a lazy cursor over the documents matching query.
	Find(query any, options ...FindOption) Cursor
	// FindOne decodes the first document matching query into target.
	FindOne(ctx context.Context, query any, target any, options ...FindOption) error
	// Count returns the number of documents matching query.
	Count(ctx context.Context, query any) (int64, error)
	// Update modifies the documents matching query.
	Update(ctx context.Context, query any, update any, options ...UpdateOption) (UpdateResult, error)
	// Remove deletes the documents matching query and returns how many
	// were removed.
	Remove(ctx context.Context, query any, options ...RemoveOption) (int64, error)
}
