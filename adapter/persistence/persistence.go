// Package persistence contains the default [domain.Persistence]
// implementation: an append-only datafile holding one record per line.
package persistence

import (
	"bufio"
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/ramiroaisen/nedb-types/adapter/data"
	"github.com/ramiroaisen/nedb-types/adapter/deserializer"
	"github.com/ramiroaisen/nedb-types/adapter/serializer"
	"github.com/ramiroaisen/nedb-types/adapter/storage"
	"github.com/ramiroaisen/nedb-types/adapter/timegetter"
	"github.com/ramiroaisen/nedb-types/domain"
	"github.com/ramiroaisen/nedb-types/pkg/ctxsync"
	"github.com/ramiroaisen/nedb-types/pkg/errs"
	"github.com/ramiroaisen/nedb-types/pkg/logging"
)

const (
	// DefaultDirMode is used when creating the datafile directory.
	DefaultDirMode os.FileMode = 0o755
	// DefaultFileMode is used when creating the datafile.
	DefaultFileMode os.FileMode = 0o644
	// DefaultCorruptAlertThreshold is the share of unreadable lines
	// tolerated on load.
	DefaultCorruptAlertThreshold = 0.1

	// maxLineSize bounds a single datafile record.
	maxLineSize = 64 << 20
	// transformChecks is the number of random strings used to verify a
	// transform pair.
	transformChecks = 30
)

// Persistence implements [domain.Persistence].
type Persistence struct {
	inMemoryOnly          bool
	filename              string
	corruptAlertThreshold float64
	fileMode              os.FileMode
	dirMode               os.FileMode
	serializer            domain.Serializer
	deserializer          domain.Deserializer
	transform             domain.Transform
	storage               domain.Storage
	timeGetter            domain.TimeGetter
	logger                *logging.Logger
	listeners             []func()

	// file guards the datafile so a rewrite never interleaves with an
	// append.
	file      *ctxsync.Mutex
	compacted *ctxsync.Signal
}

// NewPersistence returns a new implementation of [domain.Persistence]. Without
// a filename the datafile is disabled.
func NewPersistence(options ...Option) (domain.Persistence, error) {
	p := Persistence{
		corruptAlertThreshold: DefaultCorruptAlertThreshold,
		fileMode:              DefaultFileMode,
		dirMode:               DefaultDirMode,
		file:                  ctxsync.NewMutex(),
		compacted:             ctxsync.NewSignal(),
	}
	for _, option := range options {
		option(&p)
	}
	if p.serializer == nil {
		p.serializer = serializer.NewSerializer()
	}
	if p.deserializer == nil {
		p.deserializer = deserializer.NewDeserializer()
	}
	if p.storage == nil {
		p.storage = storage.NewStorage()
	}
	if p.timeGetter == nil {
		p.timeGetter = timegetter.NewTimeGetter()
	}
	if p.logger == nil {
		p.logger = logging.NoopLogger()
	}

	if p.filename == "" {
		p.inMemoryOnly = true
	}
	if p.inMemoryOnly {
		return &p, nil
	}
	p.logger = p.logger.WithDatafile(p.filename)

	if strings.HasSuffix(p.filename, "~") {
		return nil, domain.ErrDatafileName{Name: p.filename, Reason: "cannot end with '~', reserved for crash-safe copies"}
	}
	if p.corruptAlertThreshold < 0 || p.corruptAlertThreshold > 1 {
		return nil, fmt.Errorf("%w: corruption threshold must be within [0, 1], got %v", errs.ErrValidation, p.corruptAlertThreshold)
	}
	if err := p.checkTransform(); err != nil {
		return nil, err
	}
	return &p, nil
}

// checkTransform verifies that the transform hooks undo each other.
func (p *Persistence) checkTransform() error {
	if p.transform == nil {
		return nil
	}
	for range transformChecks {
		sample := []byte(rand.Text())
		out, err := p.transform.AfterSerialization(sample)
		if err != nil {
			return fmt.Errorf("%w: %w", domain.ErrTransform{Reason: "serialization hook failed"}, err)
		}
		back, err := p.transform.BeforeDeserialization(out)
		if err != nil {
			return fmt.Errorf("%w: %w", domain.ErrTransform{Reason: "deserialization hook failed"}, err)
		}
		if !bytes.Equal(sample, back) {
			return domain.ErrTransform{Reason: "deserialization hook is not the inverse of the serialization hook"}
		}
	}
	return nil
}

// InMemoryOnly implements [domain.Persistence].
func (p *Persistence) InMemoryOnly() bool {
	return p.inMemoryOnly
}

// encode turns a record into a datafile line, without the line break.
func (p *Persistence) encode(ctx context.Context, record domain.Document) ([]byte, error) {
	line, err := p.serializer.Serialize(ctx, record)
	if err != nil {
		return nil, err
	}
	if p.transform != nil {
		if line, err = p.transform.AfterSerialization(line); err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrTransform{Reason: "serialization hook failed"}, err)
		}
	}
	if bytes.ContainsAny(line, "\r\n") {
		return nil, domain.ErrTransform{Reason: "serialized record contains a line break"}
	}
	return line, nil
}

func (p *Persistence) decode(ctx context.Context, line []byte) (domain.Document, error) {
	if p.transform != nil {
		var err error
		if line, err = p.transform.BeforeDeserialization(line); err != nil {
			return nil, fmt.Errorf("%w: %w", errs.ErrCorruption, err)
		}
	}
	return p.deserializer.Deserialize(ctx, line)
}

// PersistNewState implements [domain.Persistence].
func (p *Persistence) PersistNewState(ctx context.Context, records ...domain.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.inMemoryOnly || len(records) == 0 {
		return nil
	}

	var buf bytes.Buffer
	for _, record := range records {
		line, err := p.encode(ctx, record)
		if err != nil {
			return err
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}

	if err := p.file.LockWithContext(ctx); err != nil {
		return err
	}
	defer p.file.Unlock()
	_, err := p.storage.AppendFile(ctx, p.filename, p.fileMode, buf.Bytes())
	return err
}

// LoadDatabase implements [domain.Persistence]. The datafile is compacted
// once it is read.
func (p *Persistence) LoadDatabase(ctx context.Context) ([]domain.Document, map[string]domain.IndexDTO, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	if p.inMemoryOnly {
		return nil, map[string]domain.IndexDTO{}, nil
	}

	if err := p.storage.EnsureParentDirectoryExists(p.filename, p.dirMode); err != nil {
		return nil, nil, err
	}
	if err := p.storage.EnsureDatafileIntegrity(p.filename, p.fileMode); err != nil {
		return nil, nil, err
	}

	stream, err := p.storage.ReadFileStream(ctx, p.filename, p.fileMode)
	if err != nil {
		return nil, nil, err
	}
	docs, indexes, err := p.treatRawStream(ctx, stream)
	if closeErr := stream.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("%w: %w", errs.ErrIO, closeErr)
	}
	if err != nil {
		return nil, nil, err
	}

	if err := p.PersistCachedDatabase(ctx, docs, indexes); err != nil {
		return nil, nil, err
	}
	return docs, indexes, nil
}

// treatRawStream replays the datafile. The returned documents are sorted by
// identifier.
func (p *Persistence) treatRawStream(ctx context.Context, stream io.Reader) ([]domain.Document, map[string]domain.IndexDTO, error) {
	docs := make(map[string]domain.Document)
	indexes := make(map[string]domain.IndexDTO)
	corrupt, total := 0, 0

	scanner := bufio.NewScanner(stream)
	scanner.Buffer(make([]byte, 0, 64<<10), maxLineSize)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		total++
		record, err := p.decode(ctx, line)
		if err == nil {
			err = applyRecord(record, docs, indexes)
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, nil, ctxErr
			}
			corrupt++
		}
	}
	if err := scanner.Err(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, nil, ctxErr
		}
		if errors.Is(err, bufio.ErrTooLong) {
			return nil, nil, fmt.Errorf("%w: %w", errs.ErrCorruption, err)
		}
		return nil, nil, fmt.Errorf("%w: %w", errs.ErrIO, err)
	}

	if total > 0 {
		rate := float64(corrupt) / float64(total)
		if rate > p.corruptAlertThreshold {
			return nil, nil, domain.ErrCorruptFiles{
				CorruptionRate:        rate,
				CorruptItems:          corrupt,
				DataLength:            total,
				CorruptAlertThreshold: p.corruptAlertThreshold,
			}
		}
	}

	p.logger.Info("datafile loaded", "documents", len(docs), "indexes", len(indexes), "corrupt", corrupt, "lines", total)

	res := make([]domain.Document, 0, len(docs))
	for _, id := range slices.Sorted(maps.Keys(docs)) {
		res = append(res, docs[id])
	}
	return res, indexes, nil
}

// applyRecord replays one datafile record. Records of unknown shape are
// ignored.
func applyRecord(record domain.Document, docs map[string]domain.Document, indexes map[string]domain.IndexDTO) error {
	if _, ok := record[domain.SnapshotKey]; ok {
		clear(docs)
		clear(indexes)
		return nil
	}

	if idVal, ok := record[data.IDField]; ok {
		id, isString := idVal.AsString()
		if !isString || id == "" {
			return fmt.Errorf("%w: invalid identifier %v", errs.ErrCorruption, idVal.Native())
		}
		if deleted, _ := record[domain.DeletedKey].AsBool(); deleted {
			delete(docs, id)
			return nil
		}
		docs[id] = record
		return nil
	}

	if def, ok := record[domain.IndexCreatedKey].AsObject(); ok {
		dto, err := indexFromRecord(def)
		if err != nil {
			return err
		}
		indexes[dto.FieldName] = dto
		return nil
	}

	if field, ok := record[domain.IndexRemovedKey].AsString(); ok {
		delete(indexes, field)
	}
	return nil
}

func indexFromRecord(def data.Object) (domain.IndexDTO, error) {
	field, ok := def["fieldName"].AsString()
	if !ok || field == "" {
		return domain.IndexDTO{}, fmt.Errorf("%w: index definition without field name", errs.ErrCorruption)
	}
	dto := domain.IndexDTO{FieldName: field}
	dto.Unique, _ = def["unique"].AsBool()
	dto.Sparse, _ = def["sparse"].AsBool()
	if secs, ok := def["expireAfterSeconds"].AsNumber(); ok && secs > 0 {
		dto.ExpireAfter = time.Duration(secs * float64(time.Second))
	}
	return dto, nil
}

// PersistCachedDatabase implements [domain.Persistence]. Every call rewrites
// the datafile with its own docs and indexes; concurrent calls take turns on
// the file lock.
func (p *Persistence) PersistCachedDatabase(ctx context.Context, docs []domain.Document, indexes map[string]domain.IndexDTO) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.compact(ctx, docs, indexes)
}

func (p *Persistence) compact(ctx context.Context, docs []domain.Document, indexes map[string]domain.IndexDTO) error {
	if p.inMemoryOnly {
		p.notify()
		return nil
	}

	lines := make([][]byte, 0, len(docs)+len(indexes)+1)
	marker, err := p.encode(ctx, domain.SnapshotRecord(p.timeGetter.GetTime(), len(docs)))
	if err != nil {
		return err
	}
	lines = append(lines, marker)
	for _, doc := range docs {
		line, err := p.encode(ctx, doc)
		if err != nil {
			return err
		}
		lines = append(lines, line)
	}
	for _, field := range slices.Sorted(maps.Keys(indexes)) {
		if field == data.IDField {
			continue
		}
		line, err := p.encode(ctx, indexes[field].CreatedRecord())
		if err != nil {
			return err
		}
		lines = append(lines, line)
	}

	if err := p.file.LockWithContext(ctx); err != nil {
		return err
	}
	err = p.storage.CrashSafeWriteFileLines(ctx, p.filename, lines, p.dirMode, p.fileMode)
	p.file.Unlock()
	if err != nil {
		return err
	}

	p.logger.Debug("datafile compacted", "documents", len(docs), "indexes", len(indexes))
	p.notify()
	return nil
}

// notify runs the compaction listeners and wakes WaitCompaction callers.
func (p *Persistence) notify() {
	for _, listener := range p.listeners {
		listener()
	}
	p.compacted.Broadcast()
}

// DropDatabase implements [domain.Persistence].
func (p *Persistence) DropDatabase(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.inMemoryOnly {
		return nil
	}
	if err := p.file.LockWithContext(ctx); err != nil {
		return err
	}
	defer p.file.Unlock()

	exists, err := p.storage.Exists(p.filename)
	if err != nil || !exists {
		return err
	}
	return p.storage.Remove(p.filename)
}

// WaitCompaction implements [domain.Persistence].
func (p *Persistence) WaitCompaction(ctx context.Context) error {
	return p.compacted.Wait(ctx)
}
