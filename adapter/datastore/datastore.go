// Package datastore contains the default [domain.DB] implementation.
package datastore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ramiroaisen/nedb-types/adapter/comparer"
	"github.com/ramiroaisen/nedb-types/adapter/cursor"
	"github.com/ramiroaisen/nedb-types/adapter/data"
	"github.com/ramiroaisen/nedb-types/adapter/decoder"
	"github.com/ramiroaisen/nedb-types/adapter/hasher"
	"github.com/ramiroaisen/nedb-types/adapter/idgenerator"
	"github.com/ramiroaisen/nedb-types/adapter/index"
	"github.com/ramiroaisen/nedb-types/adapter/matcher"
	"github.com/ramiroaisen/nedb-types/adapter/modifier"
	"github.com/ramiroaisen/nedb-types/adapter/persistence"
	"github.com/ramiroaisen/nedb-types/adapter/querier"
	"github.com/ramiroaisen/nedb-types/adapter/timegetter"
	"github.com/ramiroaisen/nedb-types/domain"
	"github.com/ramiroaisen/nedb-types/pkg/ctxsync"
	"github.com/ramiroaisen/nedb-types/pkg/errs"
	"github.com/ramiroaisen/nedb-types/pkg/logging"
	"golang.org/x/sync/singleflight"
)

const (
	// IDLength is the length of generated identifiers.
	IDLength = 16
	// MinAutocompactionInterval is the shortest accepted autocompaction
	// interval.
	MinAutocompactionInterval = 5 * time.Second
)

// Datastore implements [domain.DB] and [domain.Finder].
type Datastore struct {
	docs          map[string]domain.Document
	indexes       domain.IndexManager
	persistence   domain.Persistence
	executor      *ctxsync.Executor
	timestampData bool
	modifier      domain.Modifier
	querier       domain.Querier
	decoder       domain.Decoder
	idGenerator   domain.IDGenerator
	timeGetter    domain.TimeGetter
	logger        *logging.Logger
	compactions   singleflight.Group

	autocompaction struct {
		sync.Mutex
		stop chan struct{}
		done chan struct{}
	}
}

// NewDatastore returns a new implementation of [domain.DB]. A persistent
// datastore holds every operation until [Datastore.LoadDatabase] succeeds,
// unless it is created with [WithAutoload].
func NewDatastore(options ...Option) (*Datastore, error) {
	opts := Options{
		CorruptAlertThreshold: persistence.DefaultCorruptAlertThreshold,
		FileMode:              persistence.DefaultFileMode,
		DirMode:               persistence.DefaultDirMode,
	}
	for _, option := range options {
		option(&opts)
	}

	// The string collation only orders cursor results. Index keys and
	// query operators always use the default order.
	sortComparer := opts.Comparer
	if opts.Comparer == nil {
		opts.Comparer = comparer.NewComparer()
		sortComparer = opts.Comparer
		if opts.StringComparer != nil {
			sortComparer = comparer.NewComparer(comparer.WithStringComparer(opts.StringComparer))
		}
	}
	if opts.Hasher == nil {
		opts.Hasher = hasher.NewHasher()
	}
	if opts.TimeGetter == nil {
		opts.TimeGetter = timegetter.NewTimeGetter()
	}
	if opts.Matcher == nil {
		opts.Matcher = matcher.NewMatcher(matcher.WithComparer(opts.Comparer))
	}
	if opts.Modifier == nil {
		modOpts := []modifier.Option{
			modifier.WithComparer(opts.Comparer),
			modifier.WithMatcher(opts.Matcher),
		}
		if opts.TimestampData {
			modOpts = append(modOpts, modifier.WithTimestamps(opts.TimeGetter))
		}
		opts.Modifier = modifier.NewModifier(modOpts...)
	}
	if opts.Querier == nil {
		opts.Querier = querier.NewQuerier(
			querier.WithComparer(sortComparer),
			querier.WithMatcher(opts.Matcher),
		)
	}
	if opts.Decoder == nil {
		opts.Decoder = decoder.NewDecoder()
	}
	if opts.IDGenerator == nil {
		opts.IDGenerator = idgenerator.NewIDGenerator()
	}

	if opts.Persistence == nil {
		persistenceOptions := []persistence.Option{
			persistence.WithFilename(opts.Filename),
			persistence.WithInMemoryOnly(opts.InMemoryOnly),
			persistence.WithCorruptAlertThreshold(opts.CorruptAlertThreshold),
			persistence.WithFileMode(opts.FileMode),
			persistence.WithDirMode(opts.DirMode),
			persistence.WithSerializer(opts.Serializer),
			persistence.WithDeserializer(opts.Deserializer),
			persistence.WithTransform(opts.Transform),
			persistence.WithStorage(opts.Storage),
			persistence.WithTimeGetter(opts.TimeGetter),
			persistence.WithLogger(opts.Logger),
		}
		for _, listener := range opts.CompactionListeners {
			persistenceOptions = append(persistenceOptions, persistence.WithCompactionListener(listener))
		}
		var err error
		if opts.Persistence, err = persistence.NewPersistence(persistenceOptions...); err != nil {
			return nil, err
		}
	}

	d := &Datastore{
		docs: make(map[string]domain.Document),
		indexes: index.NewManager(
			index.WithComparer(opts.Comparer),
			index.WithHasher(opts.Hasher),
		),
		persistence:   opts.Persistence,
		executor:      ctxsync.NewExecutor(!opts.Persistence.InMemoryOnly()),
		timestampData: opts.TimestampData,
		modifier:      opts.Modifier,
		querier:       opts.Querier,
		decoder:       opts.Decoder,
		idGenerator:   opts.IDGenerator,
		timeGetter:    opts.TimeGetter,
		logger:        logging.FromSlog(opts.Logger),
	}

	if opts.Autoload {
		if err := d.LoadDatabase(context.Background()); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// LoadDatabase implements [domain.DB]. It runs ahead of every operation held
// since the datastore was created and releases them once it succeeds.
func (d *Datastore) LoadDatabase(ctx context.Context) error {
	if d.persistence.InMemoryOnly() {
		d.executor.ProcessBuffer()
		return nil
	}
	err := d.executor.PushUnbuffered(ctx, d.loadDatabase)
	if err != nil {
		return err
	}
	d.executor.ProcessBuffer()
	return nil
}

func (d *Datastore) loadDatabase(ctx context.Context) error {
	docs, indexes, err := d.persistence.LoadDatabase(ctx)
	if err != nil {
		return err
	}

	d.resetState()
	for _, dto := range indexes {
		if err := d.indexes.Ensure(dto, nil); err != nil {
			d.resetState()
			return err
		}
	}
	if err := d.indexes.Reset(docs); err != nil {
		d.resetState()
		return err
	}
	for _, doc := range docs {
		d.docs[doc.ID()] = doc
	}
	return nil
}

// resetState drops every document and every index but the identifier one.
func (d *Datastore) resetState() {
	clear(d.docs)
	for field := range d.indexes.Indexes() {
		_ = d.indexes.Drop(field)
	}
	_ = d.indexes.Reset(nil)
}

// DropDatabase implements [domain.DB]. Autocompaction is stopped.
func (d *Datastore) DropDatabase(ctx context.Context) error {
	d.StopAutocompaction()
	return d.executor.Push(ctx, func(ctx context.Context) error {
		d.resetState()
		return d.persistence.DropDatabase(ctx)
	})
}

// CompactDatafile implements [domain.DB]. Calls made while a compaction is
// queued or running share its result.
func (d *Datastore) CompactDatafile(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ch := d.compactions.DoChan("compact", func() (any, error) {
		return nil, d.executor.Push(ctx, func(ctx context.Context) error {
			return d.persistence.PersistCachedDatabase(ctx, d.allDocs(), d.indexes.Indexes())
		})
	})
	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SetAutocompactionInterval implements [domain.DB]. Intervals shorter than
// [MinAutocompactionInterval] are raised to it.
func (d *Datastore) SetAutocompactionInterval(interval time.Duration) {
	interval = max(interval, MinAutocompactionInterval)

	d.autocompaction.Lock()
	defer d.autocompaction.Unlock()
	d.stopAutocompactionLocked()

	stop, done := make(chan struct{}), make(chan struct{})
	d.autocompaction.stop, d.autocompaction.done = stop, done

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
			}
			ctx, cancel := context.WithCancel(context.Background())
			go func() {
				select {
				case <-stop:
					cancel()
				case <-ctx.Done():
				}
			}()
			if err := d.CompactDatafile(ctx); err != nil && !errors.Is(err, context.Canceled) {
				d.logger.WithOperation("autocompaction").Error("compaction failed", "error", err)
			}
			cancel()
		}
	}()
}

// StopAutocompaction implements [domain.DB]. It returns once the background
// compaction loop has exited.
func (d *Datastore) StopAutocompaction() {
	d.autocompaction.Lock()
	defer d.autocompaction.Unlock()
	d.stopAutocompactionLocked()
}

// stopAutocompactionLocked must be called with d.autocompaction held.
func (d *Datastore) stopAutocompactionLocked() {
	if d.autocompaction.stop == nil {
		return
	}
	close(d.autocompaction.stop)
	<-d.autocompaction.done
	d.autocompaction.stop, d.autocompaction.done = nil, nil
}

// WaitCompaction implements [domain.DB].
func (d *Datastore) WaitCompaction(ctx context.Context) error {
	return d.persistence.WaitCompaction(ctx)
}

// GetAllData implements [domain.DB].
func (d *Datastore) GetAllData(ctx context.Context) ([]domain.Document, error) {
	var res []domain.Document
	err := d.executor.Push(ctx, func(context.Context) error {
		res = cloneDocs(d.allDocs())
		return nil
	})
	return res, err
}

// allDocs returns the stored documents in identifier order.
func (d *Datastore) allDocs() []domain.Document {
	idx, _ := d.indexes.Get(data.IDField)
	return d.lookup(idx.GetAll())
}

func (d *Datastore) lookup(ids []string) []domain.Document {
	res := make([]domain.Document, 0, len(ids))
	for _, id := range ids {
		if doc, ok := d.docs[id]; ok {
			res = append(res, doc)
		}
	}
	return res
}

func cloneDocs(docs []domain.Document) []domain.Document {
	res := make([]domain.Document, len(docs))
	for n, doc := range docs {
		res[n] = doc.Clone()
	}
	return res
}

// EnsureIndex implements [domain.DB]. Ensuring an existing index does
// nothing, even if the options differ.
func (d *Datastore) EnsureIndex(ctx context.Context, options ...domain.EnsureIndexOption) error {
	var opts domain.EnsureIndexOptions
	for _, option := range options {
		option(&opts)
	}
	dto := opts.DTO()
	if dto.FieldName == "" {
		return domain.ErrIndexField{Reason: "field name is required"}
	}

	return d.executor.Push(ctx, func(ctx context.Context) error {
		if _, exists := d.indexes.Get(dto.FieldName); exists {
			return nil
		}
		if err := d.indexes.Ensure(dto, d.allDocs()); err != nil {
			return err
		}
		if err := d.persistence.PersistNewState(ctx, dto.CreatedRecord()); err != nil {
			_ = d.indexes.Drop(dto.FieldName)
			return err
		}
		return nil
	})
}

// RemoveIndex implements [domain.DB].
func (d *Datastore) RemoveIndex(ctx context.Context, fieldName string) error {
	return d.executor.Push(ctx, func(ctx context.Context) error {
		idx, existed := d.indexes.Get(fieldName)
		if err := d.indexes.Drop(fieldName); err != nil {
			return err
		}
		if err := d.persistence.PersistNewState(ctx, domain.IndexRemovedRecord(fieldName)); err != nil {
			if existed {
				_ = d.indexes.Ensure(idx.DTO(), d.allDocs())
			}
			return err
		}
		return nil
	})
}

// Insert implements [domain.DB]. Inputs are copied, so changing them later
// does not affect stored documents.
func (d *Datastore) Insert(ctx context.Context, newDocs ...any) ([]domain.Document, error) {
	var res []domain.Document
	err := d.executor.Push(ctx, func(ctx context.Context) error {
		var err error
		res, err = d.insert(ctx, newDocs)
		return err
	})
	return res, err
}

func (d *Datastore) insert(ctx context.Context, newDocs []any) ([]domain.Document, error) {
	if len(newDocs) == 0 {
		return nil, nil
	}
	prepared, err := d.prepareDocumentsForInsertion(newDocs)
	if err != nil {
		return nil, err
	}

	if err := d.indexes.Add(prepared...); err != nil {
		return nil, err
	}
	for _, doc := range prepared {
		d.docs[doc.ID()] = doc
	}

	if err := d.persistence.PersistNewState(ctx, prepared...); err != nil {
		d.indexes.Remove(prepared...)
		for _, doc := range prepared {
			delete(d.docs, doc.ID())
		}
		return nil, err
	}
	return cloneDocs(prepared), nil
}

func (d *Datastore) prepareDocumentsForInsertion(newDocs []any) ([]domain.Document, error) {
	prepared := make([]domain.Document, len(newDocs))
	batchIDs := make(map[string]struct{}, len(newDocs))
	for n, newDoc := range newDocs {
		doc, err := data.FromObject(newDoc)
		if err != nil {
			return nil, err
		}

		if idVal, ok := doc[data.IDField]; ok && idVal.Defined() {
			if id, isString := idVal.AsString(); !isString || id == "" {
				return nil, data.ErrFieldName{Key: data.IDField, Reason: "must be a non-empty string"}
			}
		} else {
			id, err := d.createNewID(batchIDs)
			if err != nil {
				return nil, err
			}
			doc[data.IDField] = data.String(id)
		}
		batchIDs[doc.ID()] = struct{}{}

		if d.timestampData {
			now := data.Date(d.timeGetter.GetTime())
			if !doc[domain.CreatedAtField].Defined() {
				doc[domain.CreatedAtField] = now
			}
			if !doc[domain.UpdatedAtField].Defined() {
				doc[domain.UpdatedAtField] = now
			}
		}

		if err := data.CheckObject(doc); err != nil {
			return nil, err
		}
		prepared[n] = doc
	}
	return prepared, nil
}

// createNewID returns an identifier unused by stored documents and by the
// batch being inserted.
func (d *Datastore) createNewID(batch map[string]struct{}) (string, error) {
	for {
		id, err := d.idGenerator.GenerateID(IDLength)
		if err != nil {
			return "", err
		}
		if _, taken := d.docs[id]; taken {
			continue
		}
		if _, taken := batch[id]; taken {
			continue
		}
		return id, nil
	}
}

// Find implements [domain.DB]. The query is parsed when the cursor runs.
func (d *Datastore) Find(query any, options ...domain.FindOption) domain.Cursor {
	var opts domain.FindOptions
	for _, option := range options {
		option(&opts)
	}
	return cursor.NewCursor(d, query,
		cursor.WithDecoder(d.decoder),
		cursor.WithFindOptions(opts),
	)
}

// FindOne implements [domain.DB]. It returns [errs.ErrNotFound] if nothing
// matches.
func (d *Datastore) FindOne(ctx context.Context, query any, target any, options ...domain.FindOption) error {
	docs, err := d.Find(query, options...).Limit(1).Exec(ctx)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return fmt.Errorf("%w: no document matches the query", errs.ErrNotFound)
	}
	return d.decoder.Decode(docs[0], target)
}

// Count implements [domain.DB].
func (d *Datastore) Count(ctx context.Context, query any) (int64, error) {
	return d.Find(query).Count(ctx)
}

// FindDocuments implements [domain.Finder].
func (d *Datastore) FindDocuments(ctx context.Context, opts domain.QueryOptions) ([]domain.Document, error) {
	var res []domain.Document
	err := d.executor.Push(ctx, func(ctx context.Context) error {
		candidates, err := d.getCandidates(ctx, opts.Query, false)
		if err != nil {
			return err
		}
		found, err := d.querier.Query(candidates, opts)
		if err != nil {
			return err
		}
		res = cloneDocs(found)
		return nil
	})
	return res, err
}

// CountDocuments implements [domain.Finder].
func (d *Datastore) CountDocuments(ctx context.Context, query domain.Document) (int64, error) {
	var res int64
	err := d.executor.Push(ctx, func(ctx context.Context) error {
		candidates, err := d.getCandidates(ctx, query, false)
		if err != nil {
			return err
		}
		res, err = d.querier.Count(candidates, query)
		return err
	})
	return res, err
}

// getCandidates returns the documents worth matching against query. Unless
// keepExpired is set, documents expired by a TTL index are removed and left
// out.
func (d *Datastore) getCandidates(ctx context.Context, query domain.Document, keepExpired bool) ([]domain.Document, error) {
	ids, err := d.indexes.Candidates(query)
	if err != nil {
		return nil, err
	}
	docs := d.lookup(ids)
	if keepExpired {
		return docs, nil
	}

	now := d.timeGetter.GetTime()
	valid := make([]domain.Document, 0, len(docs))
	var expired []domain.Document
	for _, doc := range docs {
		if d.indexes.Expired(doc, now) {
			expired = append(expired, doc)
			continue
		}
		valid = append(valid, doc)
	}
	if len(expired) == 0 {
		return valid, nil
	}

	if _, err := d.removeDocs(ctx, expired); err != nil {
		return nil, err
	}
	d.logger.WithOperation("expire").Debug("expired documents removed", "count", len(expired))
	return valid, nil
}

// matching returns the stored documents matching query, at most one unless
// multi is set.
func (d *Datastore) matching(ctx context.Context, query domain.Document, multi, keepExpired bool) ([]domain.Document, error) {
	candidates, err := d.getCandidates(ctx, query, keepExpired)
	if err != nil {
		return nil, err
	}
	var limit int64
	if !multi {
		limit = 1
	}
	return d.querier.Query(candidates, domain.QueryOptions{Query: query, Limit: limit})
}

// Update implements [domain.DB]. A query matching nothing is not an error:
// the result reports zero affected documents unless an upsert happened.
func (d *Datastore) Update(ctx context.Context, query any, update any, options ...domain.UpdateOption) (domain.UpdateResult, error) {
	var opts domain.UpdateOptions
	for _, option := range options {
		option(&opts)
	}

	var res domain.UpdateResult
	err := d.executor.Push(ctx, func(ctx context.Context) error {
		q, err := cursor.ParseQuery(query)
		if err != nil {
			return err
		}
		mod, err := data.FromObject(update)
		if err != nil {
			return fmt.Errorf("parsing update: %w", err)
		}
		res, err = d.update(ctx, q, mod, opts)
		return err
	})
	if err != nil {
		return domain.UpdateResult{}, err
	}
	return res, nil
}

func (d *Datastore) update(ctx context.Context, query, mod domain.Document, opts domain.UpdateOptions) (domain.UpdateResult, error) {
	found, err := d.matching(ctx, query, opts.Multi, false)
	if err != nil {
		return domain.UpdateResult{}, err
	}

	if len(found) == 0 {
		if !opts.Upsert {
			return domain.UpdateResult{}, nil
		}
		return d.upsert(ctx, query, mod, opts)
	}

	pairs := make([]domain.Update, len(found))
	newDocs := make([]domain.Document, len(found))
	for n, oldDoc := range found {
		newDoc, err := d.modifier.Modify(oldDoc, mod)
		if err != nil {
			return domain.UpdateResult{}, err
		}
		if err := data.CheckObject(newDoc); err != nil {
			return domain.UpdateResult{}, err
		}
		pairs[n] = domain.Update{OldDoc: oldDoc, NewDoc: newDoc}
		newDocs[n] = newDoc
	}

	if err := d.indexes.Update(pairs...); err != nil {
		return domain.UpdateResult{}, err
	}
	for _, doc := range newDocs {
		d.docs[doc.ID()] = doc
	}

	if err := d.persistence.PersistNewState(ctx, newDocs...); err != nil {
		reverse := make([]domain.Update, len(pairs))
		for n, pair := range pairs {
			reverse[n] = domain.Update{OldDoc: pair.NewDoc, NewDoc: pair.OldDoc}
			d.docs[pair.OldDoc.ID()] = pair.OldDoc
		}
		if undoErr := d.indexes.Update(reverse...); undoErr != nil {
			return domain.UpdateResult{}, errors.Join(err, undoErr)
		}
		return domain.UpdateResult{}, err
	}

	res := domain.UpdateResult{NumAffected: int64(len(newDocs))}
	if opts.ReturnUpdatedDocs {
		res.Documents = cloneDocs(newDocs)
	}
	return res, nil
}

// upsert inserts the document an update matching nothing describes: a
// replacement as given, or the plain fields of the query with the modifiers
// applied.
func (d *Datastore) upsert(ctx context.Context, query, mod domain.Document, opts domain.UpdateOptions) (domain.UpdateResult, error) {
	toInsert := mod
	if isModifierUpdate(mod) {
		var err error
		if toInsert, err = d.modifier.Modify(plainFields(query), mod); err != nil {
			return domain.UpdateResult{}, err
		}
	}

	inserted, err := d.insert(ctx, []any{toInsert})
	if err != nil {
		return domain.UpdateResult{}, err
	}
	res := domain.UpdateResult{NumAffected: 1, Upserted: true}
	if opts.ReturnUpdatedDocs {
		res.Documents = inserted
	}
	return res, nil
}

func isModifierUpdate(mod domain.Document) bool {
	for key := range mod {
		if strings.HasPrefix(key, "$") {
			return true
		}
	}
	return false
}

// plainFields returns the fields of query that pin a literal value. Logical
// operators, dotted paths and operator objects are left out.
func plainFields(query domain.Document) domain.Document {
	res := make(domain.Document, len(query))
	for key, value := range query {
		if strings.HasPrefix(key, "$") || strings.Contains(key, ".") {
			continue
		}
		if obj, ok := value.AsObject(); ok && isModifierUpdate(obj) {
			continue
		}
		if v, ok := plainValue(value); ok {
			res[key] = v
		}
	}
	return res
}

// plainValue deep copies v without the regular expressions and predicates,
// which only make sense in queries.
func plainValue(v data.Value) (data.Value, bool) {
	switch v.Kind() {
	case data.KindRegex, data.KindPredicate:
		return data.Value{}, false
	case data.KindArray:
		arr, _ := v.AsArray()
		res := make([]data.Value, 0, len(arr))
		for _, el := range arr {
			if el, ok := plainValue(el); ok {
				res = append(res, el)
			}
		}
		return data.Array(res...), true
	case data.KindObject:
		obj, _ := v.AsObject()
		res := make(data.Object, len(obj))
		for key, el := range obj {
			if strings.HasPrefix(key, "$") || strings.Contains(key, ".") {
				continue
			}
			if el, ok := plainValue(el); ok {
				res[key] = el
			}
		}
		return res.Value(), true
	default:
		return v.Clone(), true
	}
}

// Remove implements [domain.DB]. Expired documents are not swept while
// removing.
func (d *Datastore) Remove(ctx context.Context, query any, options ...domain.RemoveOption) (int64, error) {
	var opts domain.RemoveOptions
	for _, option := range options {
		option(&opts)
	}

	var removed int64
	err := d.executor.Push(ctx, func(ctx context.Context) error {
		q, err := cursor.ParseQuery(query)
		if err != nil {
			return err
		}
		found, err := d.matching(ctx, q, opts.Multi, true)
		if err != nil {
			return err
		}
		removed, err = d.removeDocs(ctx, found)
		return err
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// removeDocs drops stored documents and logs their deletion. On failure
// nothing is removed.
func (d *Datastore) removeDocs(ctx context.Context, docs []domain.Document) (int64, error) {
	if len(docs) == 0 {
		return 0, nil
	}
	records := make([]domain.Document, len(docs))
	for n, doc := range docs {
		records[n] = domain.DeletedRecord(doc.ID())
	}

	d.indexes.Remove(docs...)
	for _, doc := range docs {
		delete(d.docs, doc.ID())
	}

	if err := d.persistence.PersistNewState(ctx, records...); err != nil {
		for _, doc := range docs {
			d.docs[doc.ID()] = doc
		}
		if undoErr := d.indexes.Add(docs...); undoErr != nil {
			return 0, errors.Join(err, undoErr)
		}
		return 0, err
	}
	return int64(len(docs)), nil
}
