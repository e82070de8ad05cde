package index

import "github.com/ramiroaisen/nedb-types/domain"

// Options holds the collaborators shared by indexes and the manager.
type Options struct {
	Comparer domain.Comparer
	Hasher   domain.Hasher
}

// Option configures an [Index] or a [Manager].
type Option func(*Options)

// WithComparer sets the comparer used to order index keys.
func WithComparer(c domain.Comparer) Option {
	return func(o *Options) {
		o.Comparer = c
	}
}

// WithHasher sets the hasher used to deduplicate keys.
func WithHasher(h domain.Hasher) Option {
	return func(o *Options) {
		o.Hasher = h
	}
}
