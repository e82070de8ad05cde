// Package nedb provides an embedded document database with a MongoDB-like
// query language.
//
// Documents are kept in memory and, unless the database is in-memory only,
// every change is appended to a datafile that is replayed on load and
// periodically compacted.
//
// The basic usage starts with [NewDB]:
//
//	db, err := nedb.NewDB(nedb.WithFilename("people.db"))
//	if err != nil {
//		return err
//	}
//	if err := db.LoadDatabase(ctx); err != nil {
//		return err
//	}
//	_, err = db.Insert(ctx, map[string]any{"name": "ann", "age": 30})
//
// Operations issued before [DB.LoadDatabase] on a persistent database wait
// until the load succeeds.
package nedb

import (
	"log/slog"
	"os"
	"time"

	"github.com/ramiroaisen/nedb-types/adapter/datastore"
	"github.com/ramiroaisen/nedb-types/adapter/deserializer"
	"github.com/ramiroaisen/nedb-types/adapter/serializer"
	"github.com/ramiroaisen/nedb-types/domain"
	"github.com/ramiroaisen/nedb-types/pkg/errs"
)

// Error kinds. Every error returned by the database wraps one of them, so
// they can be checked with [errors.Is].
var (
	// ErrValidation is returned for malformed documents, queries, updates
	// and index definitions.
	ErrValidation = errs.ErrValidation
	// ErrUniqueViolated is returned when a change would break a unique
	// index. The change is not applied.
	ErrUniqueViolated = errs.ErrUniqueViolated
	// ErrNotFound is returned by [DB.FindOne] when nothing matches.
	ErrNotFound = errs.ErrNotFound
	// ErrCorruption is returned by [DB.LoadDatabase] when the datafile
	// cannot be replayed.
	ErrCorruption = errs.ErrCorruption
	// ErrIO is returned when the underlying storage fails.
	ErrIO = errs.ErrIO
)

// ErrCorruptFiles is returned by [DB.LoadDatabase] when the share of
// unreadable lines exceeds the corruption threshold.
type ErrCorruptFiles = domain.ErrCorruptFiles

// ErrUniqueViolation reports the index and key of a unique violation.
type ErrUniqueViolation = domain.ErrUniqueViolation

// ErrDatafileName is returned for datafile names ending with the suffix
// reserved for the crash-safe temporary file.
type ErrDatafileName = domain.ErrDatafileName

// DB is the database handle returned by [NewDB].
type DB = domain.DB

// Cursor is a lazily evaluated query returned by [DB.Find].
type Cursor = domain.Cursor

// Document is a stored document.
type Document = domain.Document

// UpdateResult reports the outcome of [DB.Update].
type UpdateResult = domain.UpdateResult

// Sort is an ordered list of sort keys.
type Sort = domain.Sort

// SortName is a single sort key. A positive Order sorts ascending and a
// negative one descending.
type SortName = domain.SortName

// Serializer turns documents into datafile lines.
type Serializer = domain.Serializer

// Deserializer parses datafile lines.
type Deserializer = domain.Deserializer

// Transform is a pair of functions applied to every datafile line after
// serialization and before deserialization.
type Transform = domain.Transform

// Storage provides the file operations used by persistence.
type Storage = domain.Storage

// Persistence stores the database state.
type Persistence = domain.Persistence

// TimeGetter provides the current time for timestamps and TTL indexes.
type TimeGetter = domain.TimeGetter

// IDGenerator creates identifiers for new documents.
type IDGenerator = domain.IDGenerator

// Decoder copies documents into user values for [DB.FindOne] and
// [Cursor.Scan].
type Decoder = domain.Decoder

// NewDB creates a database. Without [WithFilename] the database is in-memory
// only and can be used right away.
func NewDB(options ...Option) (DB, error) {
	return datastore.NewDatastore(options...)
}

// Option configures [NewDB].
type Option = datastore.Option

// WithFilename sets the datafile path.
func WithFilename(f string) Option { return datastore.WithFilename(f) }

// WithInMemoryOnly disables persistence even when a filename is set.
func WithInMemoryOnly(i bool) Option { return datastore.WithInMemoryOnly(i) }

// WithTimestamps maintains createdAt and updatedAt fields.
func WithTimestamps(t bool) Option { return datastore.WithTimestamps(t) }

// WithAutoload loads the datafile while creating the database.
func WithAutoload(a bool) Option { return datastore.WithAutoload(a) }

// WithCorruptionThreshold sets the share of unreadable datafile lines
// tolerated on load, between 0 and 1.
func WithCorruptionThreshold(c float64) Option { return datastore.WithCorruptionThreshold(c) }

// WithFileMode sets the permissions of the datafile.
func WithFileMode(f os.FileMode) Option { return datastore.WithFileMode(f) }

// WithDirMode sets the permissions of created parent directories.
func WithDirMode(d os.FileMode) Option { return datastore.WithDirMode(d) }

// WithStringComparer replaces the comparison used to sort strings.
func WithStringComparer(f func(a, b string) int) Option { return datastore.WithStringComparer(f) }

// WithSerializer sets the line serializer.
func WithSerializer(s Serializer) Option { return datastore.WithSerializer(s) }

// WithDeserializer sets the line deserializer.
func WithDeserializer(d Deserializer) Option { return datastore.WithDeserializer(d) }

// WithTransform sets the line transform.
func WithTransform(t Transform) Option { return datastore.WithTransform(t) }

// WithStorage sets the storage used by the default persistence.
func WithStorage(s Storage) Option { return datastore.WithStorage(s) }

// WithPersistence replaces the persistence layer.
func WithPersistence(p Persistence) Option { return datastore.WithPersistence(p) }

// WithTimeGetter sets the clock.
func WithTimeGetter(t TimeGetter) Option { return datastore.WithTimeGetter(t) }

// WithIDGenerator sets the identifier generator.
func WithIDGenerator(g IDGenerator) Option { return datastore.WithIDGenerator(g) }

// WithDecoder sets the decoder used by [DB.FindOne] and [Cursor.Scan].
func WithDecoder(d Decoder) Option { return datastore.WithDecoder(d) }

// WithLogger sets the logger. Nothing is logged by default.
func WithLogger(l *slog.Logger) Option { return datastore.WithLogger(l) }

// WithCompactionListener registers a function called after every
// compaction.
func WithCompactionListener(f func()) Option { return datastore.WithCompactionListener(f) }

// WithMsgpack stores datafile lines as base64 encoded MessagePack.
func WithMsgpack() Option {
	return func(o *datastore.Options) {
		o.Serializer = serializer.NewMsgpack()
		o.Deserializer = deserializer.NewMsgpack()
	}
}

// FindOption configures [DB.Find].
type FindOption = domain.FindOption

// WithProjection keeps (1) or omits (0) fields. Both cannot be mixed, except
// for _id.
func WithProjection(p map[string]int) FindOption { return domain.WithProjection(p) }

// WithSkip skips the first s results.
func WithSkip(s int64) FindOption { return domain.WithSkip(s) }

// WithLimit returns at most l results. Zero means no limit.
func WithLimit(l int64) FindOption { return domain.WithLimit(l) }

// WithSort orders the results.
func WithSort(s Sort) FindOption { return domain.WithSort(s) }

// UpdateOption configures [DB.Update].
type UpdateOption = domain.UpdateOption

// WithUpdateMulti updates every match instead of the first one.
func WithUpdateMulti(m bool) UpdateOption { return domain.WithUpdateMulti(m) }

// WithUpsert inserts a document when nothing matches.
func WithUpsert(u bool) UpdateOption { return domain.WithUpsert(u) }

// WithReturnUpdatedDocs returns copies of the updated documents.
func WithReturnUpdatedDocs(r bool) UpdateOption { return domain.WithReturnUpdatedDocs(r) }

// RemoveOption configures [DB.Remove].
type RemoveOption = domain.RemoveOption

// WithRemoveMulti removes every match instead of the first one.
func WithRemoveMulti(m bool) RemoveOption { return domain.WithRemoveMulti(m) }

// EnsureIndexOption configures [DB.EnsureIndex].
type EnsureIndexOption = domain.EnsureIndexOption

// WithFieldName sets the indexed field. Dotted paths index nested fields.
func WithFieldName(f string) EnsureIndexOption { return domain.WithFieldName(f) }

// WithUnique rejects duplicate keys.
func WithUnique(u bool) EnsureIndexOption { return domain.WithUnique(u) }

// WithSparse leaves out documents missing the field.
func WithSparse(s bool) EnsureIndexOption { return domain.WithSparse(s) }

// WithExpireAfter makes the index a TTL index: documents whose date field is
// older than e are removed on the next read.
func WithExpireAfter(e time.Duration) EnsureIndexOption { return domain.WithExpireAfter(e) }
