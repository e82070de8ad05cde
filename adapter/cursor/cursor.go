// Package cursor contains the default [domain.Cursor] implementation.
package cursor

import (
	"context"
	"fmt"

	"github.com/ramiroaisen/nedb-types/adapter/data"
	"github.com/ramiroaisen/nedb-types/adapter/decoder"
	"github.com/ramiroaisen/nedb-types/domain"
	"github.com/ramiroaisen/nedb-types/pkg/errs"
)

// Cursor implements [domain.Cursor]. The builder methods only record
// configuration; the query runs when Exec, Scan or Count is called, so a
// cursor can be executed several times.
type Cursor struct {
	finder     domain.Finder
	dec        domain.Decoder
	query      any
	skip       int64
	limit      int64
	sort       domain.Sort
	projection map[string]int
}

// NewCursor returns a new implementation of [domain.Cursor] over the
// documents matching query. A nil query matches everything.
func NewCursor(finder domain.Finder, query any, options ...Option) domain.Cursor {
	opts := Options{}
	for _, option := range options {
		option(&opts)
	}
	if opts.Decoder == nil {
		opts.Decoder = decoder.NewDecoder()
	}
	return &Cursor{
		finder:     finder,
		dec:        opts.Decoder,
		query:      query,
		skip:       opts.Find.Skip,
		limit:      opts.Find.Limit,
		sort:       opts.Find.Sort,
		projection: opts.Find.Projection,
	}
}

// Skip implements [domain.Cursor].
func (c *Cursor) Skip(n int64) domain.Cursor {
	c.skip = n
	return c
}

// Limit implements [domain.Cursor].
func (c *Cursor) Limit(n int64) domain.Cursor {
	c.limit = n
	return c
}

// Sort implements [domain.Cursor]. Keys are applied in the given order.
func (c *Cursor) Sort(sort ...domain.SortName) domain.Cursor {
	c.sort = sort
	return c
}

// Projection implements [domain.Cursor].
func (c *Cursor) Projection(projection map[string]int) domain.Cursor {
	c.projection = projection
	return c
}

// ParseQuery converts a user query into a document. A nil query matches
// every document.
func ParseQuery(query any) (domain.Document, error) {
	if query == nil {
		return domain.Document{}, nil
	}
	q, err := data.FromObject(query)
	if err != nil {
		return nil, fmt.Errorf("parsing query: %w", err)
	}
	return q, nil
}

func (c *Cursor) options() (domain.QueryOptions, error) {
	if c.skip < 0 {
		return domain.QueryOptions{}, fmt.Errorf("%w: skip must not be negative", errs.ErrValidation)
	}
	if c.limit < 0 {
		return domain.QueryOptions{}, fmt.Errorf("%w: limit must not be negative", errs.ErrValidation)
	}
	q, err := ParseQuery(c.query)
	if err != nil {
		return domain.QueryOptions{}, err
	}
	return domain.QueryOptions{
		Query:      q,
		Skip:       c.skip,
		Limit:      c.limit,
		Sort:       c.sort,
		Projection: c.projection,
	}, nil
}

// Exec implements [domain.Cursor].
func (c *Cursor) Exec(ctx context.Context) ([]domain.Document, error) {
	opts, err := c.options()
	if err != nil {
		return nil, err
	}
	return c.finder.FindDocuments(ctx, opts)
}

// Scan implements [domain.Cursor].
func (c *Cursor) Scan(ctx context.Context, target any) error {
	docs, err := c.Exec(ctx)
	if err != nil {
		return err
	}
	return c.dec.Decode(docs, target)
}

// Count implements [domain.Cursor].
func (c *Cursor) Count(ctx context.Context) (int64, error) {
	q, err := ParseQuery(c.query)
	if err != nil {
		return 0, err
	}
	return c.finder.CountDocuments(ctx, q)
}
