package persistence

import (
	"log/slog"
	"os"

	"github.com/ramiroaisen/nedb-types/domain"
	"github.com/ramiroaisen/nedb-types/pkg/logging"
)

// Option configures persistence behavior through the functional options
// pattern.
type Option func(*Persistence)

// WithFilename sets the datafile path.
func WithFilename(f string) Option {
	return func(p *Persistence) {
		p.filename = f
	}
}

// WithInMemoryOnly disables the datafile even if a filename is set.
func WithInMemoryOnly(i bool) Option {
	return func(p *Persistence) {
		p.inMemoryOnly = i
	}
}

// WithCorruptAlertThreshold sets the share of unreadable lines, between 0
// and 1, tolerated on load.
func WithCorruptAlertThreshold(c float64) Option {
	return func(p *Persistence) {
		p.corruptAlertThreshold = c
	}
}

// WithFileMode sets the permissions of the datafile.
func WithFileMode(f os.FileMode) Option {
	return func(p *Persistence) {
		p.fileMode = f
	}
}

// WithDirMode sets the permissions of created directories.
func WithDirMode(d os.FileMode) Option {
	return func(p *Persistence) {
		p.dirMode = d
	}
}

// WithSerializer sets the record encoder.
func WithSerializer(s domain.Serializer) Option {
	return func(p *Persistence) {
		p.serializer = s
	}
}

// WithDeserializer sets the record decoder.
func WithDeserializer(d domain.Deserializer) Option {
	return func(p *Persistence) {
		p.deserializer = d
	}
}

// WithTransform sets hooks applied to every line after serialization and
// before deserialization.
func WithTransform(t domain.Transform) Option {
	return func(p *Persistence) {
		p.transform = t
	}
}

// WithStorage sets the storage implementation for file operations.
func WithStorage(s domain.Storage) Option {
	return func(p *Persistence) {
		p.storage = s
	}
}

// WithTimeGetter sets the clock used to stamp compaction markers.
func WithTimeGetter(t domain.TimeGetter) Option {
	return func(p *Persistence) {
		p.timeGetter = t
	}
}

// WithLogger sets the logger. Nil discards output.
func WithLogger(l *slog.Logger) Option {
	return func(p *Persistence) {
		p.logger = logging.FromSlog(l)
	}
}

// WithCompactionListener registers a function called after every
// compaction.
func WithCompactionListener(f func()) Option {
	return func(p *Persistence) {
		if f != nil {
			p.listeners = append(p.listeners, f)
		}
	}
}
