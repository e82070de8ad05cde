package matcher

import "github.com/ramiroaisen/nedb-types/domain"

// WithComparer sets the comparer implementation for value comparisons during
// matching.
func WithComparer(c domain.Comparer) Option {
	return func(mo *Matcher) {
		mo.comparer = c
	}
}

// Option configures matcher behavior through the functional options pattern.
type Option func(*Matcher)
