package querier

import "github.com/ramiroaisen/nedb-types/domain"

// WithMatcher sets the matcher implementation for querier evaluations.
func WithMatcher(m domain.Matcher) Option {
	return func(q *Querier) {
		q.mtchr = m
	}
}

// WithComparer sets the comparer implementation for sorting operations.
func WithComparer(c domain.Comparer) Option {
	return func(q *Querier) {
		q.cmpr = c
	}
}

// WithProjector sets the implementation what will be used to project
// the resultant documents.
func WithProjector(p domain.Projector) Option {
	return func(q *Querier) {
		q.proj = p
	}
}

// Option configures querier behavior through the functional options
// pattern.
type Option func(*Querier)
