// Package querier contains the default [domain.Querier] implementation.
package querier

import (
	"fmt"
	"slices"

	"github.com/ramiroaisen/nedb-types/adapter/comparer"
	"github.com/ramiroaisen/nedb-types/adapter/data"
	"github.com/ramiroaisen/nedb-types/adapter/matcher"
	"github.com/ramiroaisen/nedb-types/adapter/projector"
	"github.com/ramiroaisen/nedb-types/domain"
)

// Querier implements [domain.Querier].
type Querier struct {
	mtchr domain.Matcher
	cmpr  domain.Comparer
	proj  domain.Projector
}

// NewQuerier returns a new implementation of [domain.Querier].
func NewQuerier(opts ...Option) domain.Querier {
	q := Querier{}
	for _, opt := range opts {
		opt(&q)
	}
	if q.cmpr == nil {
		q.cmpr = comparer.NewComparer()
	}
	if q.proj == nil {
		q.proj = projector.NewProjector()
	}
	if q.mtchr == nil {
		q.mtchr = matcher.NewMatcher(matcher.WithComparer(q.cmpr))
	}
	return &q
}

// Query implements [domain.Querier].
func (q *Querier) Query(candidates []domain.Document, options domain.QueryOptions) ([]domain.Document, error) {
	// without sorting, documents past skip+limit never need matching
	stopAt := -1
	if len(options.Sort) == 0 && options.Limit > 0 {
		stopAt = int(max(options.Skip, 0) + options.Limit)
	}

	res, err := q.filter(candidates, options.Query, stopAt)
	if err != nil {
		return nil, err
	}

	if len(options.Sort) > 0 {
		res = q.sort(res, options.Sort)
	}
	res = q.skipAndLimit(res, options.Skip, options.Limit)

	res, err = q.proj.Project(res, options.Projection)
	if err != nil {
		return nil, fmt.Errorf("projecting: %w", err)
	}
	return res, nil
}

// Count implements [domain.Querier].
func (q *Querier) Count(candidates []domain.Document, query domain.Document) (int64, error) {
	res, err := q.filter(candidates, query, -1)
	if err != nil {
		return 0, err
	}
	return int64(len(res)), nil
}

func (q *Querier) filter(candidates []domain.Document, query domain.Document, stopAt int) ([]domain.Document, error) {
	res := make([]domain.Document, 0, len(candidates))
	for _, doc := range candidates {
		if stopAt >= 0 && len(res) == stopAt {
			break
		}
		matches, err := q.mtchr.Match(doc.Value(), query.Value())
		if err != nil {
			return nil, fmt.Errorf("matching document: %w", err)
		}
		if matches {
			res = append(res, doc)
		}
	}
	return res, nil
}

func (q *Querier) sort(docs []domain.Document, sort domain.Sort) []domain.Document {
	res := slices.Clone(docs)
	slices.SortStableFunc(res, func(a, b domain.Document) int {
		for _, crit := range sort {
			if comp := q.compareByCriterion(a, b, crit); comp != 0 {
				return comp
			}
		}
		return 0
	})
	return res
}

func (q *Querier) compareByCriterion(a, b domain.Document, crit domain.SortName) int {
	path := data.SplitPath(crit.Key)
	comp := q.cmpr.Compare(a.Value().Lookup(path), b.Value().Lookup(path))
	if crit.Order < 0 {
		return -comp
	}
	return comp
}

func (q *Querier) skipAndLimit(docs []domain.Document, skip, limit int64) []domain.Document {
	length := int64(len(docs))

	skip = min(max(skip, 0), length)

	end := length
	if limit > 0 {
		end = min(skip+limit, length)
	}

	return docs[skip:end]
}
