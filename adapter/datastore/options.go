package datastore

import (
	"log/slog"
	"os"

	"github.com/ramiroaisen/nedb-types/domain"
)

// Options holds the configuration of a [Datastore]. Nil collaborators are
// replaced by the default implementations.
type Options struct {
	Filename              string
	InMemoryOnly          bool
	TimestampData         bool
	Autoload              bool
	CorruptAlertThreshold float64
	FileMode              os.FileMode
	DirMode               os.FileMode
	StringComparer        func(a, b string) int
	Comparer              domain.Comparer
	Hasher                domain.Hasher
	Matcher               domain.Matcher
	Modifier              domain.Modifier
	Querier               domain.Querier
	Transform             domain.Transform
	Serializer            domain.Serializer
	Deserializer          domain.Deserializer
	Storage               domain.Storage
	Persistence           domain.Persistence
	IDGenerator           domain.IDGenerator
	TimeGetter            domain.TimeGetter
	Decoder               domain.Decoder
	Logger                *slog.Logger
	CompactionListeners   []func()
}

// Option configures datastore behavior through the functional options
// pattern.
type Option func(*Options)

// WithFilename sets the datafile path. Without one the datastore is kept in
// memory only.
func WithFilename(f string) Option {
	return func(o *Options) {
		o.Filename = f
	}
}

// WithInMemoryOnly disables the datafile.
func WithInMemoryOnly(i bool) Option {
	return func(o *Options) {
		o.InMemoryOnly = i
	}
}

// WithTimestamps enables automatic timestamping of documents with createdAt
// and updatedAt fields.
func WithTimestamps(t bool) Option {
	return func(o *Options) {
		o.TimestampData = t
	}
}

// WithAutoload loads the datafile when the datastore is created.
func WithAutoload(a bool) Option {
	return func(o *Options) {
		o.Autoload = a
	}
}

// WithCorruptionThreshold sets the share of unreadable datafile lines, between
// 0 and 1, tolerated on load.
func WithCorruptionThreshold(c float64) Option {
	return func(o *Options) {
		o.CorruptAlertThreshold = c
	}
}

// WithFileMode sets the permissions of the datafile.
func WithFileMode(f os.FileMode) Option {
	return func(o *Options) {
		o.FileMode = f
	}
}

// WithDirMode sets the permissions of created directories.
func WithDirMode(d os.FileMode) Option {
	return func(o *Options) {
		o.DirMode = d
	}
}

// WithStringComparer sets the function ordering strings when sorting cursor
// results. Indexes and query operators keep the default order. Ignored if
// WithComparer is used.
func WithStringComparer(f func(a, b string) int) Option {
	return func(o *Options) {
		o.StringComparer = f
	}
}

// WithComparer sets the comparer for value comparison operations.
func WithComparer(c domain.Comparer) Option {
	return func(o *Options) {
		o.Comparer = c
	}
}

// WithHasher sets the hasher used by indexes.
func WithHasher(h domain.Hasher) Option {
	return func(o *Options) {
		o.Hasher = h
	}
}

// WithMatcher sets the matcher used to evaluate queries.
func WithMatcher(m domain.Matcher) Option {
	return func(o *Options) {
		o.Matcher = m
	}
}

// WithModifier sets the modifier implementation for document updates.
func WithModifier(m domain.Modifier) Option {
	return func(o *Options) {
		o.Modifier = m
	}
}

// WithQuerier sets the querier turning candidates into results.
func WithQuerier(q domain.Querier) Option {
	return func(o *Options) {
		o.Querier = q
	}
}

// WithTransform sets hooks applied to every datafile line.
func WithTransform(t domain.Transform) Option {
	return func(o *Options) {
		o.Transform = t
	}
}

// WithSerializer sets the datafile record encoder.
func WithSerializer(s domain.Serializer) Option {
	return func(o *Options) {
		o.Serializer = s
	}
}

// WithDeserializer sets the datafile record decoder.
func WithDeserializer(d domain.Deserializer) Option {
	return func(o *Options) {
		o.Deserializer = d
	}
}

// WithStorage sets the storage implementation for low-level file operations.
func WithStorage(s domain.Storage) Option {
	return func(o *Options) {
		o.Storage = s
	}
}

// WithPersistence replaces the persistence layer. Filename, modes, codecs,
// transform, storage, logger and listeners are then ignored.
func WithPersistence(p domain.Persistence) Option {
	return func(o *Options) {
		o.Persistence = p
	}
}

// WithIDGenerator sets the generator of document identifiers.
func WithIDGenerator(g domain.IDGenerator) Option {
	return func(o *Options) {
		o.IDGenerator = g
	}
}

// WithTimeGetter sets the clock used for timestamps and TTL indexes.
func WithTimeGetter(t domain.TimeGetter) Option {
	return func(o *Options) {
		o.TimeGetter = t
	}
}

// WithDecoder sets the decoder used by FindOne and Cursor.Scan.
func WithDecoder(d domain.Decoder) Option {
	return func(o *Options) {
		o.Decoder = d
	}
}

// WithLogger sets the logger. Nil discards output.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}

// WithCompactionListener registers a function called after every datafile
// compaction.
func WithCompactionListener(f func()) Option {
	return func(o *Options) {
		o.CompactionListeners = append(o.CompactionListeners, f)
	}
}
