package modifier

import "github.com/ramiroaisen/nedb-types/domain"

// Option configures a [Modifier].
type Option func(*Modifier)

// WithComparer sets the comparer used by $min, $max and the default matcher.
func WithComparer(c domain.Comparer) Option {
	return func(m *Modifier) {
		m.comp = c
	}
}

// WithMatcher sets the matcher used by $pull.
func WithMatcher(mtchr domain.Matcher) Option {
	return func(m *Modifier) {
		m.matcher = mtchr
	}
}

// WithTimestamps makes every modified document keep its createdAt field and
// receive a fresh updatedAt read from tg.
func WithTimestamps(tg domain.TimeGetter) Option {
	return func(m *Modifier) {
		m.timestamps = tg != nil
		m.timeGetter = tg
	}
}
